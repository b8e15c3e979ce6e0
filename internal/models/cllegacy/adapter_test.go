package cllegacy

import (
	"context"
	"testing"

	"biostore/internal/models/clcomponents"
	"biostore/internal/models/clerrors"
	"biostore/internal/models/clpages"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&clpages.User{}, &clpages.Page{}, &clcomponents.PageComponent{}, &LegacyStore{}))
	return db
}

func ptr[T any](v T) *T { return &v }

const threeProducts = `[
	{"id":"a","title":"Serum","kits":[{"id":"k1","label":"1 un","price":97,"link":"https://buy/a"}]},
	{"id":"b","title":"Cream","discountPercent":25,"imageScale":140},
	{"id":"c","title":"Soap"}
]`

func TestSynthesizeProducts(t *testing.T) {
	store := &LegacyStore{ID: 3, Products: datatypes.JSON(threeProducts), DiscountPercent: 10}

	out := Synthesize(store, 42)
	require.Len(t, out, 3)
	for i, c := range out {
		assert.Equal(t, i, c.OrderIndex)
		assert.Equal(t, 1000+i, c.ID)
		assert.Equal(t, uint(42), c.PageID)
		assert.Equal(t, clcomponents.TypeProduct, c.Type)
		assert.True(t, c.Synthetic)
	}

	first := out[0].Config.(*clcomponents.ProductConfig)
	assert.Equal(t, 10.0, first.DiscountPercent)
	assert.Equal(t, 100, first.ImageScale)
	assert.Len(t, first.Kits, 1)

	second := out[1].Config.(*clcomponents.ProductConfig)
	assert.Equal(t, 25.0, second.DiscountPercent)
	assert.Equal(t, 140, second.ImageScale)

	third := out[2].Config.(*clcomponents.ProductConfig)
	assert.Equal(t, 10.0, third.DiscountPercent)
	assert.NotNil(t, third.Kits)
	assert.Empty(t, third.Kits)
}

func TestSynthesizeVideoFirst(t *testing.T) {
	store := &LegacyStore{
		Products:  datatypes.JSON(`[{"id":"a","title":"Serum"}]`),
		VideoURL:  ptr("https://youtu.be/abc"),
		ShowVideo: true,
	}
	out := Synthesize(store, 1)
	require.Len(t, out, 2)
	assert.Equal(t, clcomponents.TypeVideo, out[0].Type)
	assert.Equal(t, -1, out[0].OrderIndex)
	assert.Equal(t, 999, out[0].ID)
	assert.Equal(t, "https://youtu.be/abc", out[0].Config.(*clcomponents.VideoConfig).URL)
	assert.Equal(t, 0, out[1].OrderIndex)

	store.ShowVideo = false
	assert.Len(t, Synthesize(store, 1), 1)
}

func TestSynthesizeEmptyProducts(t *testing.T) {
	assert.Empty(t, Synthesize(&LegacyStore{}, 1))
	assert.Empty(t, Synthesize(&LegacyStore{Products: datatypes.JSON(`null`)}, 1))
}

func TestMerge(t *testing.T) {
	db := setupTestDB(t)
	a := NewAdapter(db)
	ctx := context.Background()

	userID := uint(7)
	page := &clpages.Page{ID: 5, UserID: &userID}
	button := clcomponents.PageComponent{ID: 1, PageID: 5, Type: clcomponents.TypeButton, OrderIndex: 0}

	// pas de boutique legacy: la liste est inchangée
	items, err := a.Merge(ctx, page, []clcomponents.PageComponent{button})
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, db.Create(&LegacyStore{UserID: &userID, Username: "old", Products: datatypes.JSON(threeProducts), DiscountPercent: 10}).Error)

	items, err = a.Merge(ctx, page, []clcomponents.PageComponent{button})
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, clcomponents.TypeButton, items[0].ItemType())
	for i := 1; i < 4; i++ {
		assert.IsType(t, SyntheticComponent{}, items[i])
		assert.Equal(t, i-1, items[i].ItemOrder())
	}

	// un vrai produit désactive l'adaptateur
	product := clcomponents.PageComponent{ID: 2, PageID: 5, Type: clcomponents.TypeProduct, OrderIndex: 1}
	items, err = a.Merge(ctx, page, []clcomponents.PageComponent{button, product})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// page orpheline
	items, err = a.Merge(ctx, &clpages.Page{ID: 6}, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPageByUsername(t *testing.T) {
	db := setupTestDB(t)
	a := NewAdapter(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&LegacyStore{
		Username:    "oldshop",
		ProfileName: "Old Shop",
		ProfileBio:  ptr("since 2019"),
		Products:    datatypes.JSON(threeProducts),
		VideoURL:    ptr("https://youtu.be/abc"),
		ShowVideo:   true,
		IsActive:    true,
	}).Error)
	require.NoError(t, db.Create(&LegacyStore{Username: "closed", IsActive: false}).Error)

	page, components, err := a.PageByUsername(ctx, "OldShop")
	require.NoError(t, err)
	assert.Equal(t, "Old Shop", page.ProfileName)
	assert.Equal(t, "gradient", *page.BackgroundType)
	assert.True(t, page.IsActive)
	require.Len(t, components, 4)
	assert.Equal(t, clcomponents.TypeVideo, components[0].Type)

	_, _, err = a.PageByUsername(ctx, "closed")
	assert.True(t, clerrors.Is(err, clerrors.KindNotFound))

	taken, err := a.UsernameTaken(ctx, "closed")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = a.UsernameTaken(ctx, "brandnew")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestByUsername(t *testing.T) {
	db := setupTestDB(t)
	a := NewAdapter(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&LegacyStore{Username: "oldshop", ProfileName: "Old Shop", DiscountPercent: 10, IsActive: true}).Error)
	require.NoError(t, db.Create(&LegacyStore{Username: "closed", ProfileName: "Closed", IsActive: false}).Error)

	store, err := a.ByUsername(ctx, " OldShop ")
	require.NoError(t, err)
	assert.Equal(t, "Old Shop", store.ProfileName)
	assert.InDelta(t, 10, store.DiscountPercent, 0.001)

	_, err = a.ByUsername(ctx, "closed")
	require.True(t, clerrors.Is(err, clerrors.KindNotFound))
	assert.Equal(t, "Store not found", err.Error())
}
