package clsales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"biostore/internal/models/clerrors"
	"biostore/internal/models/clmetrics"
	"biostore/internal/models/clpages"
	"biostore/internal/models/clrollup"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultPeriod   = clrollup.Period30d
	topProductsSize = 5
)

var saleDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", clrollup.DayLayout}

type Ledger struct {
	db       *gorm.DB
	pages    *clpages.Service
	catalog  Catalog
	metrics  *clmetrics.Metrics
	validate *validator.Validate

	// Now est remplacé dans les tests
	Now func() time.Time
}

// NewLedger accepte un catalog et des métriques nil
func NewLedger(db *gorm.DB, pages *clpages.Service, catalog Catalog, metrics *clmetrics.Metrics) *Ledger {
	return &Ledger{
		db:       db,
		pages:    pages,
		catalog:  catalog,
		metrics:  metrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		Now:      time.Now,
	}
}

// RecordSale enregistre une vente sur une page du propriétaire
func (l *Ledger) RecordSale(ctx context.Context, authID string, in SaleInput) (*Sale, error) {
	if authID == "" {
		return nil, clerrors.ErrUnauthorized
	}
	saleDate, err := l.checkInput(in)
	if err != nil {
		return nil, err
	}

	page, user, err := l.pages.Owner(ctx, authID, in.PageID)
	if err != nil {
		return nil, err
	}

	source := in.Source
	if source == "" {
		source = SourceManual
	}
	sale := Sale{
		PageID:           page.ID,
		UserID:           user.ID,
		ProductID:        in.ProductID,
		ProductTitle:     in.ProductTitle,
		ProductImage:     in.ProductImage,
		KitID:            in.KitID,
		KitLabel:         in.KitLabel,
		ProductPrice:     *in.ProductPrice,
		CommissionAmount: *in.CommissionAmount,
		Source:           source,
		ExternalOrderID:  in.ExternalOrderID,
		SaleDate:         saleDate,
	}
	if sale.ExternalPayload, err = payload(in); err != nil {
		return nil, err
	}
	l.denormalize(ctx, page, &sale)

	if err := l.db.WithContext(ctx).Create(&sale).Error; err != nil {
		return nil, clerrors.Unexpected("failed to record sale", err)
	}
	l.metrics.RecordSale(sale.Source, sale.ProductPrice, sale.CommissionAmount)
	log.Info().Uint("sale_id", sale.ID).Uint("page_id", sale.PageID).Str("product_id", sale.ProductID).Msg("Sale recorded")
	return &sale, nil
}

func (l *Ledger) checkInput(in SaleInput) (time.Time, error) {
	if err := l.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "required" {
					return time.Time{}, clerrors.Validation("Missing required fields")
				}
			}
			fe := verrs[0]
			return time.Time{}, clerrors.Validation("%s failed on %s", fe.Field(), fe.Tag())
		}
		return time.Time{}, clerrors.Validation("%s", err.Error())
	}
	for _, layout := range saleDateLayouts {
		if t, err := time.Parse(layout, in.SaleDate); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, clerrors.Validation("sale_date must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
}

func payload(in SaleInput) (datatypes.JSON, error) {
	fields := make(map[string]any, len(in.ExternalPayload)+1)
	for k, v := range in.ExternalPayload {
		fields[k] = v
	}
	if name := strings.TrimSpace(in.CustomerName); name != "" {
		fields["customer_name"] = name
	}
	if len(fields) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, clerrors.Validation("external_payload must be a JSON object")
	}
	return datatypes.JSON(raw), nil
}

// denormalize complète titre, image et libellé du kit depuis le produit
// de la page. Les valeurs fournies par l'appelant sont conservées.
func (l *Ledger) denormalize(ctx context.Context, page *clpages.Page, sale *Sale) {
	if l.catalog == nil || (sale.ProductTitle != "" && sale.ProductImage != nil && sale.KitLabel != "") {
		return
	}
	products, err := l.catalog.Products(ctx, page)
	if err != nil {
		log.Warn().Err(err).Uint("page_id", page.ID).Msg("Product lookup failed")
		return
	}
	for _, p := range products {
		if p.ID != sale.ProductID {
			continue
		}
		if sale.ProductTitle == "" {
			sale.ProductTitle = p.Title
		}
		if sale.ProductImage == nil && p.Image != "" {
			image := p.Image
			sale.ProductImage = &image
		}
		if kit, ok := p.Kit(sale.KitID); ok && sale.KitLabel == "" {
			sale.KitLabel = kit.Label
		}
		return
	}
}

// ListSales retourne les ventes de la période, plus récentes d'abord
func (l *Ledger) ListSales(ctx context.Context, authID string, pageID uint, period string) ([]Sale, error) {
	p, err := clrollup.ParsePeriod(period, DefaultPeriod)
	if err != nil {
		return nil, err
	}
	if _, _, err := l.pages.Owner(ctx, authID, pageID); err != nil {
		return nil, err
	}

	sales := []Sale{}
	err = l.db.WithContext(ctx).
		Where("page_id = ? AND sale_date >= ?", pageID, p.Start(l.now())).
		Order("sale_date DESC, id DESC").
		Find(&sales).Error
	if err != nil {
		return nil, clerrors.Unexpected("failed to load sales", err)
	}
	return sales, nil
}

type productTotals struct {
	title   string
	revenue float64
}

// GetSalesSummary agrège les ventes par jour et par produit
func (l *Ledger) GetSalesSummary(ctx context.Context, authID string, pageID uint, period string) (*Summary, error) {
	p, err := clrollup.ParsePeriod(period, DefaultPeriod)
	if err != nil {
		return nil, err
	}
	if _, _, err := l.pages.Owner(ctx, authID, pageID); err != nil {
		return nil, err
	}
	started := time.Now()
	defer l.metrics.ObserveRollup("sales", started)

	now := l.now()
	var sales []Sale
	err = l.db.WithContext(ctx).
		Where("page_id = ? AND sale_date >= ?", pageID, p.Start(now)).
		Order("sale_date ASC, id ASC").
		Find(&sales).Error
	if err != nil {
		return nil, clerrors.Unexpected("failed to load sales", err)
	}

	keys := clrollup.DayKeys(now, p.Days())
	days := make(map[string]*DayPoint, len(keys))
	chart := make([]DayPoint, len(keys))
	for i, k := range keys {
		chart[i].Date = k
		days[k] = &chart[i]
	}

	summary := &Summary{Period: string(p)}
	products := clrollup.NewTally[productTotals]()
	for _, s := range sales {
		summary.TotalSales++
		summary.TotalRevenue += s.ProductPrice
		summary.TotalCommission += s.CommissionAmount

		if d, ok := days[clrollup.DayKey(s.SaleDate.UTC())]; ok {
			d.Count++
			d.Revenue += s.ProductPrice
			d.Commission += s.CommissionAmount
		}

		title, price := s.ProductTitle, s.ProductPrice
		products.Add(s.ProductID, func() productTotals {
			return productTotals{title: title}
		}, func(t *productTotals) {
			t.revenue += price
		})
	}

	for i := range chart {
		chart[i].Revenue = clrollup.Round(chart[i].Revenue, 2)
		chart[i].Commission = clrollup.Round(chart[i].Commission, 2)
	}
	summary.SalesByDay = chart
	summary.TotalRevenue = clrollup.Round(summary.TotalRevenue, 2)
	summary.TotalCommission = clrollup.Round(summary.TotalCommission, 2)

	summary.TopProducts = make([]ProductStat, 0, topProductsSize)
	for _, r := range products.Top(topProductsSize) {
		summary.TopProducts = append(summary.TopProducts, ProductStat{
			ProductTitle: r.Value.title,
			Count:        r.Count,
			Revenue:      clrollup.Round(r.Value.revenue, 2),
		})
	}
	return summary, nil
}

// DeleteSale supprime une vente d'une page du propriétaire
func (l *Ledger) DeleteSale(ctx context.Context, authID string, saleID uint) error {
	user, err := l.pages.FindUser(ctx, authID)
	if err != nil {
		return err
	}

	var owner struct {
		SaleID uint
		UserID *uint
	}
	result := l.db.WithContext(ctx).Table("sales").
		Select("sales.id AS sale_id, pages.user_id AS user_id").
		Joins("JOIN pages ON pages.id = sales.page_id").
		Where("sales.id = ?", saleID).
		Limit(1).
		Scan(&owner)
	if result.Error != nil {
		return clerrors.Unexpected("failed to load sale", result.Error)
	}
	if result.RowsAffected == 0 {
		return clerrors.NotFound("Sale")
	}
	if user == nil || owner.UserID == nil || *owner.UserID != user.ID {
		return clerrors.ErrForbidden
	}

	if err := l.db.WithContext(ctx).Delete(&Sale{}, saleID).Error; err != nil {
		return clerrors.Unexpected(fmt.Sprintf("failed to delete sale %d", saleID), err)
	}
	return nil
}

func (l *Ledger) now() time.Time {
	return l.Now().UTC()
}
