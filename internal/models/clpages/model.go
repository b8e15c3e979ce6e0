package clpages

import (
	"time"
)

// User est le compte local lié au sujet du fournisseur d'identité
type User struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	AuthID           string    `json:"auth_id" gorm:"uniqueIndex;size:191;not null"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Plan             string    `json:"plan" gorm:"not null;default:free"`
	StripeCustomerID *string   `json:"stripe_customer_id"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

type Page struct {
	ID                       uint      `json:"id" gorm:"primaryKey"`
	UserID                   *uint     `json:"user_id" gorm:"index"`
	Username                 string    `json:"username" gorm:"size:64;not null;index:idx_username_active"`
	ProfileName              string    `json:"profile_name"`
	ProfileBio               *string   `json:"profile_bio" gorm:"type:text"`
	ProfileImage             *string   `json:"profile_image" gorm:"type:text"`
	ProfileImageScale        *int      `json:"profile_image_scale"`
	ProfileImagePositionX    *int      `json:"profile_image_position_x"`
	ProfileImagePositionY    *int      `json:"profile_image_position_y"`
	WhatsappNumber           *string   `json:"whatsapp_number"`
	WhatsappMessage          *string   `json:"whatsapp_message" gorm:"type:text"`
	BackgroundType           *string   `json:"background_type"`
	BackgroundValue          *string   `json:"background_value" gorm:"type:text"`
	BackgroundImage          *string   `json:"background_image" gorm:"type:text"`
	BackgroundImageScale     *int      `json:"background_image_scale"`
	BackgroundImagePositionX *int      `json:"background_image_position_x"`
	BackgroundImagePositionY *int      `json:"background_image_position_y"`
	FontFamily               *string   `json:"font_family"`
	Views                    int64     `json:"views" gorm:"not null;default:0"`
	Clicks                   int64     `json:"clicks" gorm:"not null;default:0"`
	IsActive                 bool      `json:"is_active" gorm:"not null;default:true;index:idx_username_active"`
	CreatedAt                time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt                time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// OwnedBy indique si la page appartient à l'utilisateur
func (p *Page) OwnedBy(userID uint) bool {
	return p.UserID != nil && *p.UserID == userID
}

type CreateInput struct {
	Username    string `json:"username"`
	ProfileName string `json:"profile_name"`
	Email       string `json:"email"`
}

// PageUpdate ne modifie que les champs présents
type PageUpdate struct {
	ProfileName              *string `json:"profile_name"`
	ProfileBio               *string `json:"profile_bio"`
	ProfileImage             *string `json:"profile_image"`
	ProfileImageScale        *int    `json:"profile_image_scale"`
	ProfileImagePositionX    *int    `json:"profile_image_position_x"`
	ProfileImagePositionY    *int    `json:"profile_image_position_y"`
	WhatsappNumber           *string `json:"whatsapp_number"`
	WhatsappMessage          *string `json:"whatsapp_message"`
	BackgroundType           *string `json:"background_type"`
	BackgroundValue          *string `json:"background_value"`
	BackgroundImage          *string `json:"background_image"`
	BackgroundImageScale     *int    `json:"background_image_scale"`
	BackgroundImagePositionX *int    `json:"background_image_position_x"`
	BackgroundImagePositionY *int    `json:"background_image_position_y"`
	FontFamily               *string `json:"font_family"`
	IsActive                 *bool   `json:"is_active"`
}

func (u PageUpdate) columns() map[string]any {
	cols := make(map[string]any)
	set := func(name string, present bool, v any) {
		if present {
			cols[name] = v
		}
	}
	set("profile_name", u.ProfileName != nil, deref(u.ProfileName))
	set("profile_bio", u.ProfileBio != nil, u.ProfileBio)
	set("profile_image", u.ProfileImage != nil, u.ProfileImage)
	set("profile_image_scale", u.ProfileImageScale != nil, u.ProfileImageScale)
	set("profile_image_position_x", u.ProfileImagePositionX != nil, u.ProfileImagePositionX)
	set("profile_image_position_y", u.ProfileImagePositionY != nil, u.ProfileImagePositionY)
	set("whatsapp_number", u.WhatsappNumber != nil, u.WhatsappNumber)
	set("whatsapp_message", u.WhatsappMessage != nil, u.WhatsappMessage)
	set("background_type", u.BackgroundType != nil, u.BackgroundType)
	set("background_value", u.BackgroundValue != nil, u.BackgroundValue)
	set("background_image", u.BackgroundImage != nil, u.BackgroundImage)
	set("background_image_scale", u.BackgroundImageScale != nil, u.BackgroundImageScale)
	set("background_image_position_x", u.BackgroundImagePositionX != nil, u.BackgroundImagePositionX)
	set("background_image_position_y", u.BackgroundImagePositionY != nil, u.BackgroundImagePositionY)
	set("font_family", u.FontFamily != nil, u.FontFamily)
	if u.IsActive != nil {
		cols["is_active"] = *u.IsActive
	}
	return cols
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Stats agrège les compteurs de toutes les pages
type Stats struct {
	Pages  int64 `json:"pages"`
	Views  int64 `json:"views"`
	Clicks int64 `json:"clicks"`
}
