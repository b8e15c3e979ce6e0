package clanalytics

import "time"

const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceUnknown = "unknown"
)

// PageView représente une vue de page
type PageView struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	PageID     uint      `gorm:"index:idx_views_page_time;not null" json:"page_id"`
	ViewedAt   time.Time `gorm:"index:idx_views_page_time;not null" json:"viewed_at"`
	Referrer   *string   `json:"referrer"`
	UserAgent  *string   `json:"user_agent" gorm:"type:text"`
	DeviceType string    `gorm:"size:16;not null;default:unknown" json:"device_type"`
	Country    string    `gorm:"size:2" json:"country"`
}

// ComponentClick représente un clic sur un élément de page
type ComponentClick struct {
	ID             uint64    `gorm:"primaryKey" json:"id"`
	PageID         uint      `gorm:"index:idx_clicks_page_time;not null" json:"page_id"`
	ComponentID    *uint     `json:"component_id"`
	ComponentType  string    `gorm:"size:32;not null" json:"component_type"`
	ComponentLabel *string   `json:"component_label"`
	TargetURL      *string   `json:"target_url" gorm:"type:text"`
	ClickedAt      time.Time `gorm:"index:idx_clicks_page_time;not null" json:"clicked_at"`
}

// TableName spécifie le nom de la table pour PageView
func (PageView) TableName() string {
	return "page_views"
}

// TableName spécifie le nom de la table pour ComponentClick
func (ComponentClick) TableName() string {
	return "component_clicks"
}

// ViewInput est le corps de POST /api/analytics/view
type ViewInput struct {
	PageID    uint    `json:"pageId"`
	Referrer  *string `json:"referrer"`
	UserAgent *string `json:"userAgent"`
}

// ClickInput est le corps de POST /api/analytics/click
type ClickInput struct {
	PageID         uint    `json:"pageId"`
	ComponentID    *uint   `json:"componentId"`
	ComponentType  string  `json:"componentType"`
	ComponentLabel *string `json:"componentLabel"`
	TargetURL      *string `json:"targetUrl"`
}

type DayPoint struct {
	Date   string `json:"date"`
	Views  int64  `json:"views"`
	Clicks int64  `json:"clicks"`
}

type ComponentStat struct {
	Count int64  `json:"count"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Report est le résultat de GetAnalytics
type Report struct {
	TotalViews    int64            `json:"totalViews"`
	TotalClicks   int64            `json:"totalClicks"`
	CTR           float64          `json:"ctr"`
	ChartData     []DayPoint       `json:"chartData"`
	DeviceStats   map[string]int64 `json:"deviceStats"`
	TopComponents []ComponentStat  `json:"topComponents"`
	Period        string           `json:"period"`
}

type Summary struct {
	Views7d  int64 `json:"views7d"`
	Clicks7d int64 `json:"clicks7d"`
}

type Realtime struct {
	Date   string `json:"date"`
	Views  int64  `json:"views"`
	Clicks int64  `json:"clicks"`
}
