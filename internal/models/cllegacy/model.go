package cllegacy

import (
	"encoding/json"
	"time"

	"biostore/internal/models/clcomponents"

	"gorm.io/datatypes"
)

// LegacyProduct est un produit de l'ancienne boutique à liste plate
type LegacyProduct struct {
	ID              string                    `json:"id"`
	Title           string                    `json:"title"`
	Description     string                    `json:"description"`
	Image           string                    `json:"image"`
	ImageScale      int                       `json:"imageScale"`
	DiscountPercent float64                   `json:"discountPercent"`
	Kits            []clcomponents.ProductKit `json:"kits"`
}

// LegacyStore est lu uniquement, jamais écrit
type LegacyStore struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	UserID            *uint          `json:"user_id" gorm:"index"`
	Username          string         `json:"username" gorm:"size:64;index"`
	ProfileName       string         `json:"profile_name"`
	ProfileBio        *string        `json:"profile_bio"`
	ProfileImage      *string        `json:"profile_image"`
	ProfileImageScale *int           `json:"profile_image_scale"`
	WhatsappNumber    *string        `json:"whatsapp_number"`
	WhatsappMessage   *string        `json:"whatsapp_message"`
	Theme             *string        `json:"theme"`
	Products          datatypes.JSON `json:"products"`
	DiscountPercent   float64        `json:"discount_percent"`
	VideoURL          *string        `json:"video_url"`
	ShowVideo         bool           `json:"show_video"`
	IsActive          bool           `json:"is_active"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (LegacyStore) TableName() string {
	return "stores"
}

// DecodeProducts lit la liste JSON des produits, vide si absente
func (s *LegacyStore) DecodeProducts() ([]LegacyProduct, error) {
	products := []LegacyProduct{}
	if len(s.Products) == 0 || string(s.Products) == "null" {
		return products, nil
	}
	if err := json.Unmarshal(s.Products, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// SyntheticComponent est construit à la lecture depuis une boutique legacy.
// Il n'a pas de ComponentID et ne peut donc pas être modifié ni supprimé.
type SyntheticComponent struct {
	ID         int                          `json:"id"`
	PageID     uint                         `json:"page_id"`
	Type       clcomponents.ComponentType   `json:"type"`
	OrderIndex int                          `json:"order_index"`
	Config     clcomponents.ComponentConfig `json:"config"`
	IsVisible  bool                         `json:"is_visible"`
	Synthetic  bool                         `json:"synthetic"`
}

func (c SyntheticComponent) ItemType() clcomponents.ComponentType { return c.Type }
func (c SyntheticComponent) ItemOrder() int                       { return c.OrderIndex }
