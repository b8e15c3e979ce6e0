package clcomponents

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ComponentID identifie un composant persisté
type ComponentID uint

type PageComponent struct {
	ID         ComponentID    `json:"id" gorm:"primaryKey"`
	PageID     uint           `json:"page_id" gorm:"not null;index:idx_component_page_order"`
	Type       ComponentType  `json:"type" gorm:"size:32;not null"`
	OrderIndex int            `json:"order_index" gorm:"not null;index:idx_component_page_order"`
	Config     datatypes.JSON `json:"config"`
	IsVisible  bool           `json:"is_visible" gorm:"not null;default:true"`
	CreatedAt  time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// Decode retourne la variante typée de la configuration stockée
func (c *PageComponent) Decode() (ComponentConfig, error) {
	return DecodeConfig(c.Type, c.Config)
}

func (c PageComponent) ItemType() ComponentType { return c.Type }
func (c PageComponent) ItemOrder() int          { return c.OrderIndex }

// Item est un élément de liste rendu au client, persisté ou synthétique
type Item interface {
	ItemType() ComponentType
	ItemOrder() int
}

// Patch est une mise à jour partielle d'un composant
type Patch struct {
	OrderIndex *int            `json:"order_index"`
	Config     json.RawMessage `json:"config"`
	IsVisible  *bool           `json:"is_visible"`
}

func (p Patch) empty() bool {
	return p.OrderIndex == nil && len(p.Config) == 0 && p.IsVisible == nil
}

// Products extrait les configurations des composants produit, sans revalidation
func Products(components []PageComponent) []*ProductConfig {
	var out []*ProductConfig
	for i := range components {
		if components[i].Type != TypeProduct {
			continue
		}
		var cfg ProductConfig
		if err := json.Unmarshal(components[i].Config, &cfg); err != nil {
			continue
		}
		out = append(out, &cfg)
	}
	return out
}
