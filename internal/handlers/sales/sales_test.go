package handlers_sales

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"biostore/internal/clmiddleware"
	"biostore/internal/models/clapp"
	"biostore/internal/models/clcomponents"
	"biostore/internal/models/clconfig"
	"biostore/internal/models/clgeo"
	"biostore/internal/models/clpages"
	"biostore/internal/models/clsales"
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
	ctx := context.Background()
	page, err := app.Pages.Create(ctx, "user_1", clpages.CreateInput{Username: "ana", Email: "ana@example.com"})
	require.NoError(t, err)
	_, err = app.Components.Add(ctx, "user_1", page.ID, clcomponents.TypeProduct,
		json.RawMessage(`{"id":"p1","title":"Serum","image":"https://img/p1.png","kits":[{"id":"k1","label":"1 un","price":97}]}`))
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(clmiddleware.Identity("X-User-Id"))
	h := NewSalesHandler(app.Sales)
	r.POST("/api/sales", h.Record)
	r.GET("/api/sales/:pageId", h.List)
	r.GET("/api/sales/:pageId/summary", h.Summary)
	r.DELETE("/api/sales/sale/:saleId", h.Delete)
	return app, r
}

func do(r *gin.Engine, method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func saleBody(date string) string {
	return `{"page_id":1,"product_id":"p1","kit_id":"k1","product_price":97,"commission_amount":29.1,"sale_date":"` + date + `","customer_name":"Bia"}`
}

func TestRecordSale(t *testing.T) {
	_, r := setupTestApp(t)
	today := time.Now().UTC().Format("2006-01-02")

	w := do(r, http.MethodPost, "/api/sales", "user_1", saleBody(today))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sale clsales.Sale
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sale))
	assert.Equal(t, "Serum", sale.ProductTitle)
	assert.Equal(t, "1 un", sale.KitLabel)
	assert.Equal(t, clsales.SourceManual, sale.Source)
	assert.Contains(t, string(sale.ExternalPayload), "Bia")

	w = do(r, http.MethodPost, "/api/sales", "user_1", `{"page_id":1,"product_id":"p1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing required fields"}`, w.Body.String())

	w = do(r, http.MethodPost, "/api/sales", "", saleBody(today))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/sales", "user_2", saleBody(today))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListAndSummary(t *testing.T) {
	_, r := setupTestApp(t)
	today := time.Now().UTC().Format("2006-01-02")
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/api/sales", "user_1", saleBody(today)).Code)
	}

	w := do(r, http.MethodGet, "/api/sales/1", "user_1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sales []clsales.Sale
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sales))
	require.Len(t, sales, 2)
	assert.Greater(t, sales[0].ID, sales[1].ID)

	w = do(r, http.MethodGet, "/api/sales/1/summary?period=7d", "user_1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary clsales.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, int64(2), summary.TotalSales)
	assert.InDelta(t, 194, summary.TotalRevenue, 0.001)
	assert.InDelta(t, 58.2, summary.TotalCommission, 0.001)
	assert.Len(t, summary.SalesByDay, 7)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/sales/1?period=1y", "user_1", "").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/sales/1", "user_2", "").Code)
}

func TestDeleteSale(t *testing.T) {
	app, r := setupTestApp(t)
	today := time.Now().UTC().Format("2006-01-02")
	require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/api/sales", "user_1", saleBody(today)).Code)

	_, err := app.Pages.GetOrCreateUser(context.Background(), "user_2", "b@example.com")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodDelete, "/api/sales/sale/1", "user_2", "").Code)

	w := do(r, http.MethodDelete, "/api/sales/sale/1", "user_1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = do(r, http.MethodDelete, "/api/sales/sale/1", "user_1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Sale not found"}`, w.Body.String())
}
