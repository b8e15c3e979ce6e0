package clsales

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"biostore/internal/models/clcomponents"
	"biostore/internal/models/clerrors"
	"biostore/internal/models/cllegacy"
	"biostore/internal/models/clpages"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db         *gorm.DB
	pages      *clpages.Service
	components *clcomponents.Store
	ledger     *Ledger
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&clpages.User{}, &clpages.Page{}, &clcomponents.PageComponent{}, &cllegacy.LegacyStore{}, &Sale{}))
	return db
}

func setup(t *testing.T) *fixture {
	db := setupTestDB(t)
	pages := clpages.NewService(db, &Sale{})
	components := clcomponents.NewStore(db, pages)
	ledger := NewLedger(db, pages, NewPageCatalog(components, cllegacy.NewAdapter(db)), nil)
	ledger.Now = func() time.Time { return fixedNow }
	return &fixture{db: db, pages: pages, components: components, ledger: ledger}
}

func (f *fixture) page(t *testing.T, authID, username string) *clpages.Page {
	page, err := f.pages.Create(context.Background(), authID, clpages.CreateInput{Username: username, Email: authID + "@example.com"})
	require.NoError(t, err)
	return page
}

func ptr[T any](v T) *T { return &v }

func input(pageID uint, productID string, price float64, date string) SaleInput {
	return SaleInput{
		PageID:           pageID,
		ProductID:        productID,
		KitID:            "k1",
		ProductPrice:     ptr(price),
		CommissionAmount: ptr(price * 0.3),
		SaleDate:         date,
	}
}

func TestRecordSaleResolvesProduct(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	page := f.page(t, "auth-1", "alice")

	_, err := f.components.Add(ctx, "auth-1", page.ID, clcomponents.TypeProduct, json.RawMessage(
		`{"id":"p1","title":"Serum","image":"https://img/serum.png","kits":[{"id":"k1","label":"Kit 1","price":97}]}`))
	require.NoError(t, err)

	in := input(page.ID, "p1", 97, "2026-03-09")
	in.CustomerName = "Maria"
	sale, err := f.ledger.RecordSale(ctx, "auth-1", in)
	require.NoError(t, err)

	assert.Equal(t, "Serum", sale.ProductTitle)
	assert.Equal(t, "https://img/serum.png", *sale.ProductImage)
	assert.Equal(t, "Kit 1", sale.KitLabel)
	assert.Equal(t, SourceManual, sale.Source)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), sale.SaleDate)
	assert.JSONEq(t, `{"customer_name":"Maria"}`, string(sale.ExternalPayload))

	// les valeurs fournies gagnent
	in = input(page.ID, "p1", 97, "2026-03-09T10:00:00Z")
	in.ProductTitle = "Custom"
	in.Source = SourceHotmart
	sale, err = f.ledger.RecordSale(ctx, "auth-1", in)
	require.NoError(t, err)
	assert.Equal(t, "Custom", sale.ProductTitle)
	assert.Equal(t, "Kit 1", sale.KitLabel)
	assert.Equal(t, SourceHotmart, sale.Source)
	assert.Nil(t, sale.ExternalPayload)
}

func TestRecordSaleFromLegacyCatalog(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	page := f.page(t, "auth-1", "alice")

	require.NoError(t, f.db.Create(&cllegacy.LegacyStore{
		UserID:   page.UserID,
		Username: "oldshop",
		Products: datatypes.JSON(`[{"id":"lp","title":"Legacy Cream","kits":[{"id":"k1","label":"Pack"}]}]`),
	}).Error)

	sale, err := f.ledger.RecordSale(ctx, "auth-1", input(page.ID, "lp", 50, "2026-03-10"))
	require.NoError(t, err)
	assert.Equal(t, "Legacy Cream", sale.ProductTitle)
	assert.Equal(t, "Pack", sale.KitLabel)
}

func TestRecordSaleRejects(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	page := f.page(t, "auth-1", "alice")
	f.page(t, "auth-2", "bob")

	_, err := f.ledger.RecordSale(ctx, "", input(page.ID, "p1", 10, "2026-03-10"))
	assert.True(t, clerrors.Is(err, clerrors.KindUnauthorized))

	missing := input(page.ID, "p1", 10, "2026-03-10")
	missing.CommissionAmount = nil
	_, err = f.ledger.RecordSale(ctx, "auth-1", missing)
	assert.True(t, clerrors.Is(err, clerrors.KindValidation))
	assert.Equal(t, "Missing required fields", clerrors.Message(err))

	badSource := input(page.ID, "p1", 10, "2026-03-10")
	badSource.Source = "paypal"
	_, err = f.ledger.RecordSale(ctx, "auth-1", badSource)
	assert.True(t, clerrors.Is(err, clerrors.KindValidation))

	_, err = f.ledger.RecordSale(ctx, "auth-1", input(page.ID, "p1", 10, "yesterday"))
	assert.True(t, clerrors.Is(err, clerrors.KindValidation))

	_, err = f.ledger.RecordSale(ctx, "auth-1", input(404, "p1", 10, "2026-03-10"))
	assert.True(t, clerrors.Is(err, clerrors.KindNotFound))

	_, err = f.ledger.RecordSale(ctx, "auth-2", input(page.ID, "p1", 10, "2026-03-10"))
	assert.True(t, clerrors.Is(err, clerrors.KindForbidden))

	var count int64
	f.db.Model(&Sale{}).Count(&count)
	assert.Zero(t, count)
}

func TestListSales(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	page := f.page(t, "auth-1", "alice")

	for _, d := range []string{"2026-03-01", "2026-03-09", "2026-01-01"} {
		_, err := f.ledger.RecordSale(ctx, "auth-1", input(page.ID, "p1", 10, d))
		require.NoError(t, err)
	}

	sales, err := f.ledger.ListSales(ctx, "auth-1", page.ID, "")
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "2026-03-09", sales[0].SaleDate.Format("2006-01-02"))
	assert.Equal(t, "2026-03-01", sales[1].SaleDate.Format("2006-01-02"))

	sales, err = f.ledger.ListSales(ctx, "auth-1", page.ID, "1d")
	require.NoError(t, err)
	assert.Empty(t, sales)
	assert.NotNil(t, sales)

	_, err = f.ledger.ListSales(ctx, "auth-1", page.ID, "year")
	assert.True(t, clerrors.Is(err, clerrors.KindValidation))
}

func TestGetSalesSummary(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	page := f.page(t, "auth-1", "alice")

	record := func(product, title string, price, commission float64, date string) {
		in := input(page.ID, product, price, date)
		in.ProductTitle = title
		in.CommissionAmount = ptr(commission)
		_, err := f.ledger.RecordSale(ctx, "auth-1", in)
		require.NoError(t, err)
	}
	record("p1", "Serum", 97.10, 29.13, "2026-03-10")
	record("p1", "Serum", 97.10, 29.13, "2026-03-10")
	record("p2", "Cream", 49.90, 14.97, "2026-03-08")
	record("p1", "Serum", 97.10, 29.13, "2026-03-04")

	summary, err := f.ledger.GetSalesSummary(ctx, "auth-1", page.ID, "7d")
	require.NoError(t, err)
	assert.Equal(t, "7d", summary.Period)
	assert.Equal(t, int64(4), summary.TotalSales)
	assert.Equal(t, 341.2, summary.TotalRevenue)
	assert.Equal(t, 102.36, summary.TotalCommission)

	require.Len(t, summary.SalesByDay, 7)
	assert.Equal(t, DayPoint{Date: "2026-03-10", Count: 2, Revenue: 194.2, Commission: 58.26}, summary.SalesByDay[6])
	assert.Equal(t, DayPoint{Date: "2026-03-08", Count: 1, Revenue: 49.9, Commission: 14.97}, summary.SalesByDay[4])
	assert.Equal(t, DayPoint{Date: "2026-03-04", Count: 1, Revenue: 97.1, Commission: 29.13}, summary.SalesByDay[0])

	assert.Equal(t, []ProductStat{
		{ProductTitle: "Serum", Count: 3, Revenue: 291.3},
		{ProductTitle: "Cream", Count: 1, Revenue: 49.9},
	}, summary.TopProducts)

	empty, err := f.ledger.GetSalesSummary(ctx, "auth-1", page.ID, "1d")
	require.NoError(t, err)
	assert.Equal(t, int64(2), empty.TotalSales)

	_, err = f.ledger.GetSalesSummary(ctx, "", page.ID, "")
	assert.True(t, clerrors.Is(err, clerrors.KindUnauthorized))
}

func TestTopProductsTruncatesAtFive(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	page := f.page(t, "auth-1", "alice")

	for i := 0; i < 7; i++ {
		for j := 0; j <= i%2; j++ {
			in := input(page.ID, fmt.Sprintf("p%d", i), 10, "2026-03-10")
			in.ProductTitle = fmt.Sprintf("Product %d", i)
			_, err := f.ledger.RecordSale(ctx, "auth-1", in)
			require.NoError(t, err)
		}
	}

	summary, err := f.ledger.GetSalesSummary(ctx, "auth-1", page.ID, "")
	require.NoError(t, err)
	require.Len(t, summary.TopProducts, 5)
	assert.Equal(t, "Product 1", summary.TopProducts[0].ProductTitle)
	assert.Equal(t, "Product 3", summary.TopProducts[1].ProductTitle)
	assert.Equal(t, "Product 5", summary.TopProducts[2].ProductTitle)
	assert.Equal(t, "Product 0", summary.TopProducts[3].ProductTitle)
	assert.Equal(t, "Product 2", summary.TopProducts[4].ProductTitle)
}

func TestDeleteSale(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	page := f.page(t, "auth-1", "alice")
	f.page(t, "auth-2", "bob")

	sale, err := f.ledger.RecordSale(ctx, "auth-1", input(page.ID, "p1", 10, "2026-03-10"))
	require.NoError(t, err)

	assert.True(t, clerrors.Is(f.ledger.DeleteSale(ctx, "", sale.ID), clerrors.KindUnauthorized))
	assert.True(t, clerrors.Is(f.ledger.DeleteSale(ctx, "auth-1", 999), clerrors.KindNotFound))
	assert.True(t, clerrors.Is(f.ledger.DeleteSale(ctx, "auth-2", sale.ID), clerrors.KindForbidden))
	assert.True(t, clerrors.Is(f.ledger.DeleteSale(ctx, "stranger", sale.ID), clerrors.KindForbidden))

	require.NoError(t, f.ledger.DeleteSale(ctx, "auth-1", sale.ID))
	assert.True(t, clerrors.Is(f.ledger.DeleteSale(ctx, "auth-1", sale.ID), clerrors.KindNotFound))
}

func TestPageDeleteCascadesToSales(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	page := f.page(t, "auth-1", "alice")

	_, err := f.ledger.RecordSale(ctx, "auth-1", input(page.ID, "p1", 10, "2026-03-10"))
	require.NoError(t, err)
	require.NoError(t, f.pages.Delete(ctx, "auth-1", page.ID))

	var count int64
	f.db.Model(&Sale{}).Count(&count)
	assert.Zero(t, count)
}
