package handlers_analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"biostore/internal/clmiddleware"
	"biostore/internal/models/clanalytics"
	"biostore/internal/models/clapp"
	"biostore/internal/models/clconfig"
	"biostore/internal/models/clgeo"
	"biostore/internal/models/clpages"
	"biostore/internal/models/clstore"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestApp(t *testing.T) (*clapp.App, *gin.Engine) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, clstore.Migrate(db))

	app := clapp.New(&clconfig.Config{}, db, nil, clgeo.Nop{}, prometheus.NewRegistry())
	_, err = app.Pages.Create(context.Background(), "user_1", clpages.CreateInput{Username: "ana", Email: "ana@example.com"})
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(clmiddleware.Identity("X-User-Id"))
	h := NewAnalyticsHandler(app.Analytics, app.Pages)
	r.POST("/api/analytics/view", h.RecordView)
	r.POST("/api/analytics/click", h.RecordClick)
	r.GET("/api/analytics/:pageId", h.GetAnalytics)
	r.GET("/api/analytics/:pageId/summary", h.GetSummary)
	r.GET("/api/analytics/:pageId/realtime", h.GetRealtime)
	return app, r
}

func post(r *gin.Engine, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r *gin.Engine, path, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRecordViewUsesHeaders(t *testing.T) {
	app, r := setupTestApp(t)

	w := post(r, "/api/analytics/view", `{"pageId":1}`, map[string]string{
		"User-Agent": "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148",
		"Referer":    "https://instagram.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	var view clanalytics.PageView
	require.NoError(t, app.Db.First(&view).Error)
	require.NotNil(t, view.Referrer)
	assert.Equal(t, "https://instagram.com", *view.Referrer)
	require.NotNil(t, view.UserAgent)
	assert.Contains(t, *view.UserAgent, "iPhone")

	// le corps l'emporte sur les en-têtes
	w = post(r, "/api/analytics/view", `{"pageId":1,"referrer":"https://t.co"}`, map[string]string{"Referer": "https://ignored"})
	require.Equal(t, http.StatusOK, w.Code)
	var last clanalytics.PageView
	require.NoError(t, app.Db.Order("id DESC").First(&last).Error)
	assert.Equal(t, "https://t.co", *last.Referrer)

	page, err := app.Pages.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Views)
}

func TestRecordRejections(t *testing.T) {
	_, r := setupTestApp(t)

	w := post(r, "/api/analytics/view", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/api/analytics/view", `{"pageId":99}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = post(r, "/api/analytics/click", `{"pageId":1}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/api/analytics/click", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReports(t *testing.T) {
	_, r := setupTestApp(t)

	require.Equal(t, http.StatusOK, post(r, "/api/analytics/view", `{"pageId":1,"userAgent":"Mozilla/5.0 (Windows NT 10.0)"}`, nil).Code)
	require.Equal(t, http.StatusOK, post(r, "/api/analytics/click", `{"pageId":1,"componentId":4,"componentType":"button","componentLabel":"Shop"}`, nil).Code)
	require.Equal(t, http.StatusOK, post(r, "/api/analytics/click", `{"pageId":1,"componentId":4,"componentType":"button","componentLabel":"Shop"}`, nil).Code)

	w := get(r, "/api/analytics/1?period=30d", "user_1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report clanalytics.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, int64(1), report.TotalViews)
	assert.Equal(t, int64(2), report.TotalClicks)
	assert.Len(t, report.ChartData, 30)
	require.Len(t, report.TopComponents, 1)
	assert.Equal(t, int64(2), report.TopComponents[0].Count)

	w = get(r, "/api/analytics/1?period=2w", "user_1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(r, "/api/analytics/1/summary", "user_1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"views7d":1,"clicks7d":2}`, w.Body.String())

	w = get(r, "/api/analytics/1/realtime", "user_1")
	require.Equal(t, http.StatusOK, w.Code)
	var rt map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rt))
	assert.Equal(t, float64(0), rt["views"])
}

func TestReportsRequireOwner(t *testing.T) {
	_, r := setupTestApp(t)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/analytics/1", "").Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/api/analytics/1/summary", "user_2").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/api/analytics/9/realtime", "user_1").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/api/analytics/zero", "user_1").Code)
}
