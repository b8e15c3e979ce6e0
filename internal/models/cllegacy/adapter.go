package cllegacy

import (
	"context"
	"errors"
	"sort"
	"strings"

	"biostore/internal/models/clcomponents"
	"biostore/internal/models/clerrors"
	"biostore/internal/models/clpages"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	// les ids synthétiques restent hors de la plage des vrais composants
	productIDOffset = 1000
	videoID         = 999
	videoOrder      = -1
	defaultScale    = 100

	legacyBackgroundType  = "gradient"
	legacyBackgroundValue = "linear-gradient(135deg, #fce7f3 0%, #f3e8ff 100%)"
)

type Adapter struct {
	db *gorm.DB
}

func NewAdapter(db *gorm.DB) *Adapter {
	return &Adapter{db: db}
}

// ForUser retourne la boutique legacy du compte, nil si aucune
func (a *Adapter) ForUser(ctx context.Context, userID *uint) (*LegacyStore, error) {
	if userID == nil {
		return nil, nil
	}
	var store LegacyStore
	err := a.db.WithContext(ctx).Where("user_id = ?", *userID).Order("id ASC").First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, clerrors.Unexpected("failed to load legacy store", err)
	}
	return &store, nil
}

// Synthesize convertit les produits (et la vidéo) de la boutique en
// composants synthétiques triés par order_index
func Synthesize(store *LegacyStore, pageID uint) []SyntheticComponent {
	products, err := store.DecodeProducts()
	if err != nil {
		log.Warn().Err(err).Uint("store_id", store.ID).Msg("invalid legacy products")
		products = nil
	}

	out := make([]SyntheticComponent, 0, len(products)+1)
	if store.VideoURL != nil && *store.VideoURL != "" && store.ShowVideo {
		out = append(out, SyntheticComponent{
			ID:         videoID,
			PageID:     pageID,
			Type:       clcomponents.TypeVideo,
			OrderIndex: videoOrder,
			Config:     &clcomponents.VideoConfig{URL: *store.VideoURL},
			IsVisible:  true,
			Synthetic:  true,
		})
	}

	for i, p := range products {
		discount := p.DiscountPercent
		if discount <= 0 {
			discount = store.DiscountPercent
		}
		scale := p.ImageScale
		if scale <= 0 {
			scale = defaultScale
		}
		kits := p.Kits
		if kits == nil {
			kits = []clcomponents.ProductKit{}
		}
		out = append(out, SyntheticComponent{
			ID:         productIDOffset + i,
			PageID:     pageID,
			Type:       clcomponents.TypeProduct,
			OrderIndex: i,
			Config: &clcomponents.ProductConfig{
				ID:              p.ID,
				Title:           p.Title,
				Description:     p.Description,
				Image:           p.Image,
				ImageScale:      scale,
				DiscountPercent: discount,
				Kits:            kits,
			},
			IsVisible: true,
			Synthetic: true,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out
}

// Merge complète les composants d'une page sans produit avec ceux de la
// boutique legacy de son propriétaire. Les composants réels restent en tête.
func (a *Adapter) Merge(ctx context.Context, page *clpages.Page, current []clcomponents.PageComponent) ([]clcomponents.Item, error) {
	items := make([]clcomponents.Item, 0, len(current))
	for _, c := range current {
		items = append(items, c)
	}
	for _, c := range current {
		if c.Type == clcomponents.TypeProduct {
			return items, nil
		}
	}

	store, err := a.ForUser(ctx, page.UserID)
	if err != nil || store == nil {
		return items, err
	}
	for _, s := range Synthesize(store, page.ID) {
		items = append(items, s)
	}
	return items, nil
}

// ByUsername retourne la boutique legacy active de ce username
func (a *Adapter) ByUsername(ctx context.Context, username string) (*LegacyStore, error) {
	var store LegacyStore
	err := a.db.WithContext(ctx).
		Where("username = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(username)), true).
		Order("id ASC").
		First(&store).Error
	if err != nil {
		return nil, clerrors.FromStore(err, "Store")
	}
	return &store, nil
}

// PageByUsername construit une page synthétique depuis une boutique legacy
// active, une boutique fermée reste introuvable
func (a *Adapter) PageByUsername(ctx context.Context, username string) (*clpages.Page, []SyntheticComponent, error) {
	store, err := a.ByUsername(ctx, username)
	if clerrors.Is(err, clerrors.KindNotFound) {
		return nil, nil, clerrors.NotFound("Page")
	}
	if err != nil {
		return nil, nil, err
	}

	bgType := legacyBackgroundType
	if store.Theme != nil && *store.Theme != "" {
		bgType = *store.Theme
	}
	bgValue := legacyBackgroundValue
	page := &clpages.Page{
		ID:                store.ID,
		UserID:            store.UserID,
		Username:          store.Username,
		ProfileName:       store.ProfileName,
		ProfileBio:        store.ProfileBio,
		ProfileImage:      store.ProfileImage,
		ProfileImageScale: store.ProfileImageScale,
		WhatsappNumber:    store.WhatsappNumber,
		WhatsappMessage:   store.WhatsappMessage,
		BackgroundType:    &bgType,
		BackgroundValue:   &bgValue,
		IsActive:          true,
		CreatedAt:         store.CreatedAt,
		UpdatedAt:         store.UpdatedAt,
	}
	return page, Synthesize(store, store.ID), nil
}

// UsernameTaken indique si une boutique legacy réserve déjà ce username
func (a *Adapter) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&LegacyStore{}).
		Where("username = ?", strings.ToLower(username)).
		Count(&count).Error
	return count > 0, err
}
