package clcomponents

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"biostore/internal/models/clerrors"

	"github.com/go-playground/validator/v10"
)

type ComponentType string

const (
	TypeButton   ComponentType = "button"
	TypeText     ComponentType = "text"
	TypeProduct  ComponentType = "product"
	TypeVideo    ComponentType = "video"
	TypeSocial   ComponentType = "social"
	TypeLink     ComponentType = "link"
	TypeCarousel ComponentType = "carousel"
	TypeCalendly ComponentType = "calendly"
	TypeMaps     ComponentType = "maps"
	TypePix      ComponentType = "pix"
	TypeStories  ComponentType = "stories"
)

// ComponentConfig est implémentée par une structure par type de composant
type ComponentConfig interface {
	ComponentType() ComponentType
}

var variants = map[ComponentType]func() ComponentConfig{
	TypeButton:   func() ComponentConfig { return &ButtonConfig{} },
	TypeText:     func() ComponentConfig { return &TextConfig{} },
	TypeProduct:  func() ComponentConfig { return &ProductConfig{} },
	TypeVideo:    func() ComponentConfig { return &VideoConfig{} },
	TypeSocial:   func() ComponentConfig { return &SocialConfig{} },
	TypeLink:     func() ComponentConfig { return &LinkConfig{} },
	TypeCarousel: func() ComponentConfig { return &CarouselConfig{} },
	TypeCalendly: func() ComponentConfig { return &CalendlyConfig{} },
	TypeMaps:     func() ComponentConfig { return &MapsConfig{} },
	TypePix:      func() ComponentConfig { return &PixConfig{} },
	TypeStories:  func() ComponentConfig { return &StoriesConfig{} },
}

func (t ComponentType) Valid() bool {
	_, ok := variants[t]
	return ok
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type ButtonConfig struct {
	Type            string `json:"type" validate:"oneof=whatsapp link"`
	Text            string `json:"text" validate:"required"`
	URL             string `json:"url,omitempty"`
	WhatsappNumber  string `json:"whatsappNumber,omitempty"`
	WhatsappMessage string `json:"whatsappMessage,omitempty"`
	Style           string `json:"style" validate:"omitempty,oneof=large medium"`
	Icon            string `json:"icon,omitempty"`
}

type TextConfig struct {
	Content   string `json:"content"`
	Alignment string `json:"alignment" validate:"omitempty,oneof=left center right"`
	Size      string `json:"size" validate:"omitempty,oneof=small medium large"`
	Bold      bool   `json:"bold,omitempty"`
	Italic    bool   `json:"italic,omitempty"`
}

type ProductConfig struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Image           string       `json:"image"`
	ImageScale      int          `json:"imageScale"`
	ImagePositionX  *int         `json:"imagePositionX,omitempty" validate:"omitempty,gte=0,lte=100"`
	ImagePositionY  *int         `json:"imagePositionY,omitempty" validate:"omitempty,gte=0,lte=100"`
	DiscountPercent float64      `json:"discountPercent" validate:"gte=0,lte=100"`
	DiscountEndDate string       `json:"discountEndDate,omitempty"`
	Kits            []ProductKit `json:"kits" validate:"dive"`
	DisplayStyle    string       `json:"displayStyle,omitempty" validate:"omitempty,oneof=card compact ecommerce"`
	Rating          *float64     `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	RatingCount     *int         `json:"ratingCount,omitempty" validate:"omitempty,gte=0"`
	CtaText         string       `json:"ctaText,omitempty"`
	CtaLink         string       `json:"ctaLink,omitempty"`
	Alt             string       `json:"alt,omitempty"`
}

type VideoConfig struct {
	URL                string  `json:"url" validate:"required"`
	Thumbnail          *string `json:"thumbnail"`
	ThumbnailScale     *int    `json:"thumbnailScale,omitempty" validate:"omitempty,gte=100,lte=200"`
	ThumbnailPositionX *int    `json:"thumbnailPositionX,omitempty" validate:"omitempty,gte=0,lte=100"`
	ThumbnailPositionY *int    `json:"thumbnailPositionY,omitempty" validate:"omitempty,gte=0,lte=100"`
	Title              string  `json:"title"`
	ShowTitle          bool    `json:"showTitle"`
}

type SocialLink struct {
	ID       string `json:"id"`
	Platform string `json:"platform" validate:"oneof=instagram tiktok youtube facebook twitter custom"`
	URL      string `json:"url" validate:"required"`
	Label    string `json:"label,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

type SocialConfig struct {
	Links []SocialLink `json:"links" validate:"dive"`
	Style string       `json:"style" validate:"omitempty,oneof=icons buttons"`
}

type LinkConfig struct {
	Text               string `json:"text" validate:"required"`
	URL                string `json:"url" validate:"required"`
	Icon               string `json:"icon,omitempty"`
	Style              string `json:"style" validate:"omitempty,oneof=large small"`
	BackgroundColor    string `json:"backgroundColor,omitempty"`
	Shape              string `json:"shape,omitempty" validate:"omitempty,oneof=rounded pill square"`
	Variant            string `json:"variant,omitempty" validate:"omitempty,oneof=filled outline soft"`
	Animation          string `json:"animation,omitempty" validate:"omitempty,oneof=none pulse shine"`
	Badge              string `json:"badge,omitempty"`
	Thumbnail          string `json:"thumbnail,omitempty"`
	ThumbnailScale     *int   `json:"thumbnailScale,omitempty"`
	ThumbnailPositionX *int   `json:"thumbnailPositionX,omitempty" validate:"omitempty,gte=0,lte=100"`
	ThumbnailPositionY *int   `json:"thumbnailPositionY,omitempty" validate:"omitempty,gte=0,lte=100"`
	ThumbnailAlt       string `json:"thumbnailAlt,omitempty"`
}

type CarouselImage struct {
	ID        string `json:"id"`
	URL       string `json:"url" validate:"required"`
	Type      string `json:"type,omitempty" validate:"omitempty,oneof=image video"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Scale     *int   `json:"scale,omitempty" validate:"omitempty,gte=100,lte=200"`
	PositionX *int   `json:"positionX,omitempty" validate:"omitempty,gte=0,lte=100"`
	PositionY *int   `json:"positionY,omitempty" validate:"omitempty,gte=0,lte=100"`
	Badge     string `json:"badge,omitempty"`
	Link      string `json:"link,omitempty"`
	Alt       string `json:"alt,omitempty"`
}

type CarouselConfig struct {
	Images        []CarouselImage `json:"images" validate:"max=10,dive"`
	AutoPlay      bool            `json:"autoPlay,omitempty"`
	SlideInterval *int            `json:"slideInterval,omitempty" validate:"omitempty,gte=1000,lte=10000"`
	ShowDots      bool            `json:"showDots,omitempty"`
	AspectRatio   string          `json:"aspectRatio,omitempty" validate:"omitempty,oneof=square landscape portrait"`
}

type CalendlyConfig struct {
	URL        string `json:"url" validate:"required"`
	EmbedType  string `json:"embedType" validate:"oneof=button inline"`
	ButtonText string `json:"buttonText,omitempty"`
	Height     *int   `json:"height,omitempty" validate:"omitempty,gt=0"`
}

type MapsConfig struct {
	EmbedURL       string `json:"embedUrl,omitempty"`
	Address        string `json:"address,omitempty"`
	Height         *int   `json:"height,omitempty" validate:"omitempty,gt=0"`
	ShowOpenButton bool   `json:"showOpenButton,omitempty"`
}

type PixConfig struct {
	Mode            string   `json:"mode" validate:"oneof=qrcode copypaste"`
	QrcodeImage     string   `json:"qrcodeImage,omitempty"`
	QrcodeScale     *int     `json:"qrcodeScale,omitempty"`
	QrcodePositionX *int     `json:"qrcodePositionX,omitempty" validate:"omitempty,gte=0,lte=100"`
	QrcodePositionY *int     `json:"qrcodePositionY,omitempty" validate:"omitempty,gte=0,lte=100"`
	PixCode         string   `json:"pixCode,omitempty"`
	RecipientName   string   `json:"recipientName,omitempty"`
	Amount          *float64 `json:"amount,omitempty" validate:"omitempty,gte=0"`
	Description     string   `json:"description,omitempty"`
}

type StoriesItem struct {
	ID        string `json:"id"`
	URL       string `json:"url" validate:"required,url"`
	Type      string `json:"type" validate:"oneof=image video"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Duration  *int   `json:"duration,omitempty" validate:"omitempty,gt=0"`
	Link      string `json:"link,omitempty" validate:"omitempty,url"`
}

type StoriesConfig struct {
	Items          []StoriesItem `json:"items" validate:"dive"`
	AutoPlay       bool          `json:"autoPlay"`
	ShowOnCarousel *bool         `json:"showOnCarousel"`
}

func (*ButtonConfig) ComponentType() ComponentType   { return TypeButton }
func (*TextConfig) ComponentType() ComponentType     { return TypeText }
func (*ProductConfig) ComponentType() ComponentType  { return TypeProduct }
func (*VideoConfig) ComponentType() ComponentType    { return TypeVideo }
func (*SocialConfig) ComponentType() ComponentType   { return TypeSocial }
func (*LinkConfig) ComponentType() ComponentType     { return TypeLink }
func (*CarouselConfig) ComponentType() ComponentType { return TypeCarousel }
func (*CalendlyConfig) ComponentType() ComponentType { return TypeCalendly }
func (*MapsConfig) ComponentType() ComponentType     { return TypeMaps }
func (*PixConfig) ComponentType() ComponentType      { return TypePix }
func (*StoriesConfig) ComponentType() ComponentType  { return TypeStories }

// DecodeConfig décode et valide la configuration brute pour le type donné.
// Une configuration absente est traitée comme un objet vide.
func DecodeConfig(t ComponentType, raw []byte) (ComponentConfig, error) {
	factory, ok := variants[t]
	if !ok {
		return nil, clerrors.Validation("unknown component type %q", t)
	}
	cfg := factory()
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, clerrors.Validation("invalid %s config: %v", t, err)
	}
	normalize(cfg)
	if err := validate.Struct(cfg); err != nil {
		return nil, clerrors.Validation("invalid %s config: %s", t, describe(err))
	}
	return cfg, nil
}

func normalize(cfg ComponentConfig) {
	switch c := cfg.(type) {
	case *ProductConfig:
		if c.Kits == nil {
			c.Kits = []ProductKit{}
		}
	case *SocialConfig:
		if c.Links == nil {
			c.Links = []SocialLink{}
		}
	case *CarouselConfig:
		if c.Images == nil {
			c.Images = []CarouselImage{}
		}
	case *StoriesConfig:
		if c.Items == nil {
			c.Items = []StoriesItem{}
		}
		if c.ShowOnCarousel == nil {
			show := true
			c.ShowOnCarousel = &show
		}
	}
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
