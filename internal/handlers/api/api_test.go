package handlers_api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"biostore/internal/models/clerrors"
	"biostore/internal/models/clpages"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		err  error
		code int
		body string
	}{
		{clerrors.Validation("pageId is required"), http.StatusBadRequest, `{"error":"pageId is required"}`},
		{clerrors.ErrUnauthorized, http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{clerrors.ErrForbidden, http.StatusForbidden, `{"error":"Access denied"}`},
		{clerrors.NotFound("Page"), http.StatusNotFound, `{"error":"Page not found"}`},
		{clerrors.Unexpected("failed to load", errors.New("disk on fire")), http.StatusInternalServerError, `{"error":"failed to load"}`},
		{errors.New("raw"), http.StatusInternalServerError, `{"error":"Internal server error"}`},
	}
	for _, tc := range cases {
		r := setupTestRouter()
		r.GET("/", func(c *gin.Context) { RespondError(c, tc.err) })
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, tc.code, w.Code)
		assert.JSONEq(t, tc.body, w.Body.String())
	}
}

func TestParamID(t *testing.T) {
	r := setupTestRouter()
	r.GET("/pages/:id", func(c *gin.Context) {
		id, err := ParamID(c, "id")
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	for path, code := range map[string]int{"/pages/12": 200, "/pages/0": 400, "/pages/-1": 400, "/pages/x": 400} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, code, w.Code, path)
	}
}

func TestPublicStats(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&clpages.User{}, &clpages.Page{}))
	require.NoError(t, db.Create(&clpages.Page{Username: "ana", Views: 10, Clicks: 3}).Error)
	require.NoError(t, db.Create(&clpages.Page{Username: "bia", Views: 5, Clicks: 1}).Error)

	r := setupTestRouter()
	r.GET("/api/public/stats", NewStatsHandler(clpages.NewService(db)).PublicStats)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/public/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"pages":2,"views":15,"clicks":4}`, w.Body.String())
}
