package clsales

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SourceManual    = "manual"
	SourceWebhook   = "webhook"
	SourceHotmart   = "hotmart"
	SourceKiwify    = "kiwify"
	SourceMonetizze = "monetizze"
)

// Sale est immuable, seul le propriétaire de la page peut la supprimer
type Sale struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	PageID           uint           `json:"page_id" gorm:"index:idx_sales_page_date;not null"`
	UserID           uint           `json:"user_id" gorm:"index;not null"`
	ProductID        string         `json:"product_id" gorm:"size:191;not null"`
	ProductTitle     string         `json:"product_title"`
	ProductImage     *string        `json:"product_image" gorm:"type:text"`
	KitID            string         `json:"kit_id" gorm:"size:191;not null"`
	KitLabel         string         `json:"kit_label"`
	ProductPrice     float64        `json:"product_price" gorm:"type:decimal(12,2);not null"`
	CommissionAmount float64        `json:"commission_amount" gorm:"type:decimal(12,2);not null"`
	Source           string         `json:"source" gorm:"size:16;not null;default:manual"`
	ExternalOrderID  *string        `json:"external_order_id" gorm:"size:191"`
	ExternalPayload  datatypes.JSON `json:"external_payload"`
	SaleDate         time.Time      `json:"sale_date" gorm:"index:idx_sales_page_date;not null"`
	CreatedAt        time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// SaleInput est le corps de POST /api/sales
type SaleInput struct {
	PageID           uint           `json:"page_id" validate:"required"`
	ProductID        string         `json:"product_id" validate:"required"`
	ProductTitle     string         `json:"product_title"`
	ProductImage     *string        `json:"product_image"`
	KitID            string         `json:"kit_id" validate:"required"`
	KitLabel         string         `json:"kit_label"`
	ProductPrice     *float64       `json:"product_price" validate:"required,gte=0"`
	CommissionAmount *float64       `json:"commission_amount" validate:"required,gte=0"`
	Source           string         `json:"source" validate:"omitempty,oneof=manual webhook hotmart kiwify monetizze"`
	ExternalOrderID  *string        `json:"external_order_id"`
	CustomerName     string         `json:"customer_name"`
	ExternalPayload  map[string]any `json:"external_payload"`
	SaleDate         string         `json:"sale_date" validate:"required"`
}

type DayPoint struct {
	Date       string  `json:"date"`
	Count      int64   `json:"count"`
	Revenue    float64 `json:"revenue"`
	Commission float64 `json:"commission"`
}

type ProductStat struct {
	ProductTitle string  `json:"productTitle"`
	Count        int64   `json:"count"`
	Revenue      float64 `json:"revenue"`
}

// Summary est le résultat de GetSalesSummary
type Summary struct {
	TotalSales      int64         `json:"totalSales"`
	TotalRevenue    float64       `json:"totalRevenue"`
	TotalCommission float64       `json:"totalCommission"`
	SalesByDay      []DayPoint    `json:"salesByDay"`
	TopProducts     []ProductStat `json:"topProducts"`
	Period          string        `json:"period"`
}
