package clsales

import (
	"context"

	"biostore/internal/models/clcomponents"
	"biostore/internal/models/cllegacy"
	"biostore/internal/models/clpages"
)

// Catalog fournit les produits affichés sur une page
type Catalog interface {
	Products(ctx context.Context, page *clpages.Page) ([]*clcomponents.ProductConfig, error)
}

// PageCatalog lit les composants produit de la page, puis la boutique
// legacy du propriétaire quand la page n'en a aucun
type PageCatalog struct {
	components *clcomponents.Store
	legacy     *cllegacy.Adapter
}

func NewPageCatalog(components *clcomponents.Store, legacy *cllegacy.Adapter) *PageCatalog {
	return &PageCatalog{components: components, legacy: legacy}
}

func (c *PageCatalog) Products(ctx context.Context, page *clpages.Page) ([]*clcomponents.ProductConfig, error) {
	list, err := c.components.List(ctx, page.ID)
	if err != nil {
		return nil, err
	}
	products := clcomponents.Products(list)
	if len(products) > 0 || c.legacy == nil {
		return products, nil
	}

	store, err := c.legacy.ForUser(ctx, page.UserID)
	if err != nil || store == nil {
		return products, err
	}
	for _, s := range cllegacy.Synthesize(store, page.ID) {
		if cfg, ok := s.Config.(*clcomponents.ProductConfig); ok {
			products = append(products, cfg)
		}
	}
	return products, nil
}
