package clcomponents

import (
	"context"
	"encoding/json"

	"biostore/internal/models/clerrors"
	"biostore/internal/models/clpages"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// reorderParallelism borne le nombre de mises à jour simultanées
const reorderParallelism = 8

type Store struct {
	db    *gorm.DB
	pages *clpages.Service
	// Transactional applique un reorder dans une seule transaction
	Transactional bool
}

func NewStore(db *gorm.DB, pages *clpages.Service) *Store {
	return &Store{db: db, pages: pages}
}

// List retourne les composants de la page par order_index croissant puis id
func (s *Store) List(ctx context.Context, pageID uint) ([]PageComponent, error) {
	return s.list(ctx, pageID, false)
}

// ListVisible ne retourne que les composants visibles
func (s *Store) ListVisible(ctx context.Context, pageID uint) ([]PageComponent, error) {
	return s.list(ctx, pageID, true)
}

func (s *Store) list(ctx context.Context, pageID uint, visibleOnly bool) ([]PageComponent, error) {
	components := []PageComponent{}
	q := s.db.WithContext(ctx).Where("page_id = ?", pageID)
	if visibleOnly {
		q = q.Where("is_visible = ?", true)
	}
	if err := q.Order("order_index ASC, id ASC").Find(&components).Error; err != nil {
		return nil, clerrors.Unexpected("failed to fetch components", err)
	}
	return components, nil
}

func (s *Store) Get(ctx context.Context, id ComponentID) (*PageComponent, error) {
	var c PageComponent
	if err := s.db.WithContext(ctx).First(&c, uint(id)).Error; err != nil {
		return nil, clerrors.FromStore(err, "Component")
	}
	return &c, nil
}

// Add ajoute un composant en fin de page (max(order_index)+1, 0 si vide)
func (s *Store) Add(ctx context.Context, authID string, pageID uint, t ComponentType, raw json.RawMessage) (*PageComponent, error) {
	cfg, err := DecodeConfig(t, raw)
	if err != nil {
		return nil, err
	}
	config, err := json.Marshal(cfg)
	if err != nil {
		return nil, clerrors.Unexpected("failed to encode config", err)
	}
	if _, _, err := s.pages.Owner(ctx, authID, pageID); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var last int
	err = db.Model(&PageComponent{}).
		Where("page_id = ?", pageID).
		Select("COALESCE(MAX(order_index), -1)").
		Scan(&last).Error
	if err != nil {
		return nil, clerrors.Unexpected("failed to read component order", err)
	}

	component := PageComponent{
		PageID:     pageID,
		Type:       t,
		OrderIndex: last + 1,
		Config:     datatypes.JSON(config),
		IsVisible:  true,
	}
	if err := db.Create(&component).Error; err != nil {
		return nil, clerrors.Unexpected("failed to create component", err)
	}
	return &component, nil
}

// Reorder affecte order_index = position pour chaque id. Tous les ids
// doivent appartenir à la page, une seule fois, sinon rien n'est écrit.
func (s *Store) Reorder(ctx context.Context, authID string, pageID uint, ids []ComponentID) error {
	seen := make(map[ComponentID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return clerrors.Validation("component %d appears more than once", id)
		}
		seen[id] = struct{}{}
	}
	if _, _, err := s.pages.Owner(ctx, authID, pageID); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	var owned []ComponentID
	err := s.db.WithContext(ctx).Model(&PageComponent{}).
		Where("page_id = ? AND id IN ?", pageID, ids).
		Pluck("id", &owned).Error
	if err != nil {
		return clerrors.Unexpected("failed to load components", err)
	}
	if len(owned) != len(ids) {
		known := make(map[ComponentID]struct{}, len(owned))
		for _, id := range owned {
			known[id] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				return clerrors.Validation("component %d does not belong to page %d", id, pageID)
			}
		}
	}

	if s.Transactional {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for i, id := range ids {
				if err := setOrder(tx, pageID, id, i); err != nil {
					return err
				}
			}
			return nil
		})
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(reorderParallelism)
		for i, id := range ids {
			g.Go(func() error {
				return setOrder(s.db.WithContext(gctx), pageID, id, i)
			})
		}
		err = g.Wait()
	}
	if err != nil {
		return clerrors.Unexpected("failed to reorder components", err)
	}

	log.Debug().Uint("page_id", pageID).Int("count", len(ids)).Bool("transactional", s.Transactional).Msg("components reordered")
	return nil
}

func setOrder(db *gorm.DB, pageID uint, id ComponentID, index int) error {
	return db.Model(&PageComponent{}).
		Where("id = ? AND page_id = ?", id, pageID).
		Update("order_index", index).Error
}

// Update applique un patch partiel, la config est validée contre le type stocké
func (s *Store) Update(ctx context.Context, authID string, id ComponentID, patch Patch) (*PageComponent, error) {
	if authID == "" {
		return nil, clerrors.ErrUnauthorized
	}
	component, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.pages.Owner(ctx, authID, component.PageID); err != nil {
		return nil, err
	}
	if patch.empty() {
		return component, nil
	}

	cols := make(map[string]any)
	if patch.OrderIndex != nil {
		cols["order_index"] = *patch.OrderIndex
	}
	if patch.IsVisible != nil {
		cols["is_visible"] = *patch.IsVisible
	}
	if len(patch.Config) > 0 {
		cfg, err := DecodeConfig(component.Type, patch.Config)
		if err != nil {
			return nil, err
		}
		config, err := json.Marshal(cfg)
		if err != nil {
			return nil, clerrors.Unexpected("failed to encode config", err)
		}
		cols["config"] = datatypes.JSON(config)
	}

	if err := s.db.WithContext(ctx).Model(component).Updates(cols).Error; err != nil {
		return nil, clerrors.Unexpected("failed to update component", err)
	}
	return s.Get(ctx, id)
}

// Delete supprime le composant sans renuméroter les autres
func (s *Store) Delete(ctx context.Context, authID string, id ComponentID) error {
	if authID == "" {
		return clerrors.ErrUnauthorized
	}
	component, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, _, err := s.pages.Owner(ctx, authID, component.PageID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&PageComponent{}, uint(id)).Error; err != nil {
		return clerrors.Unexpected("failed to delete component", err)
	}
	return nil
}
