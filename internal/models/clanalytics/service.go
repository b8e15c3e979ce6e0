package clanalytics

import (
	"context"
	"strconv"
	"time"

	"biostore/internal/models/clerrors"
	"biostore/internal/models/clgeo"
	"biostore/internal/models/clmetrics"
	"biostore/internal/models/clpages"
	"biostore/internal/models/clrollup"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	DefaultPeriod     = clrollup.Period7d
	topComponentsSize = 10
	summaryDays       = 7
)

type Service struct {
	db      *gorm.DB
	redis   *redis.Client
	metrics *clmetrics.Metrics
	geo     clgeo.Locator
	cron    *cron.Cron

	// Now est remplacé dans les tests
	Now func() time.Time
}

// NewService accepte un client redis et des métriques nil
func NewService(db *gorm.DB, redisClient *redis.Client, metrics *clmetrics.Metrics, geo clgeo.Locator) *Service {
	if geo == nil {
		geo = clgeo.Nop{}
	}
	return &Service{
		db:      db,
		redis:   redisClient,
		metrics: metrics,
		geo:     geo,
		Now:     time.Now,
	}
}

func (s *Service) now() time.Time {
	return s.Now().UTC()
}

// GetAnalytics agrège vues et clics de la période par jour, appareil et composant
func (s *Service) GetAnalytics(ctx context.Context, pageID uint, period string) (*Report, error) {
	p, err := clrollup.ParsePeriod(period, DefaultPeriod)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	defer s.metrics.ObserveRollup("analytics", started)

	now := s.now()
	since := p.Start(now)

	var views []PageView
	err = s.db.WithContext(ctx).
		Where("page_id = ? AND viewed_at >= ?", pageID, since).
		Order("viewed_at ASC, id ASC").
		Find(&views).Error
	if err != nil {
		return nil, clerrors.Unexpected("failed to load views", err)
	}

	var clicks []ComponentClick
	err = s.db.WithContext(ctx).
		Where("page_id = ? AND clicked_at >= ?", pageID, since).
		Order("clicked_at ASC, id ASC").
		Find(&clicks).Error
	if err != nil {
		return nil, clerrors.Unexpected("failed to load clicks", err)
	}

	keys := clrollup.DayKeys(now, p.Days())
	days := make(map[string]*DayPoint, len(keys))
	chart := make([]DayPoint, len(keys))
	for i, k := range keys {
		chart[i].Date = k
		days[k] = &chart[i]
	}

	devices := make(map[string]int64)
	for _, v := range views {
		if d, ok := days[clrollup.DayKey(v.ViewedAt.UTC())]; ok {
			d.Views++
		}
		device := v.DeviceType
		if device == "" {
			device = DeviceUnknown
		}
		devices[device]++
	}

	components := clrollup.NewTally[ComponentStat]()
	for _, c := range clicks {
		if d, ok := days[clrollup.DayKey(c.ClickedAt.UTC())]; ok {
			d.Clicks++
		}
		label := c.ComponentType
		if c.ComponentLabel != nil && *c.ComponentLabel != "" {
			label = *c.ComponentLabel
		}
		componentType := c.ComponentType
		components.Add(label, func() ComponentStat {
			return ComponentStat{Label: label, Type: componentType}
		}, nil)
	}

	top := make([]ComponentStat, 0, topComponentsSize)
	for _, r := range components.Top(topComponentsSize) {
		stat := r.Value
		stat.Count = r.Count
		top = append(top, stat)
	}

	totalViews := int64(len(views))
	totalClicks := int64(len(clicks))
	return &Report{
		TotalViews:    totalViews,
		TotalClicks:   totalClicks,
		CTR:           clrollup.Ratio(totalClicks, totalViews),
		ChartData:     chart,
		DeviceStats:   devices,
		TopComponents: top,
		Period:        string(p),
	}, nil
}

// GetSummary compte vues et clics des 7 derniers jours
func (s *Service) GetSummary(ctx context.Context, pageID uint) (*Summary, error) {
	since := s.now().AddDate(0, 0, -summaryDays)
	var summary Summary

	err := s.db.WithContext(ctx).Model(&PageView{}).
		Where("page_id = ? AND viewed_at >= ?", pageID, since).
		Count(&summary.Views7d).Error
	if err != nil {
		return nil, clerrors.Unexpected("failed to count views", err)
	}
	err = s.db.WithContext(ctx).Model(&ComponentClick{}).
		Where("page_id = ? AND clicked_at >= ?", pageID, since).
		Count(&summary.Clicks7d).Error
	if err != nil {
		return nil, clerrors.Unexpected("failed to count clicks", err)
	}
	return &summary, nil
}

// GetRealtime lit les compteurs du jour dans Redis, zéros sans Redis
func (s *Service) GetRealtime(ctx context.Context, pageID uint) (*Realtime, error) {
	today := clrollup.DayKey(s.now())
	rt := &Realtime{Date: today}
	if s.redis == nil {
		return rt, nil
	}

	values, err := s.redis.HGetAll(ctx, realtimeKey(pageID, today)).Result()
	if err != nil && err != redis.Nil {
		return nil, clerrors.Unexpected("failed to read realtime counters", err)
	}
	rt.Views, _ = strconv.ParseInt(values["views"], 10, 64)
	rt.Clicks, _ = strconv.ParseInt(values["clicks"], 10, 64)
	return rt, nil
}

// Reconcile recalcule views et clicks de toutes les pages depuis les tables d'événements
func (s *Service) Reconcile(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Model(&clpages.Page{}).
		Where("1 = 1").
		UpdateColumns(map[string]any{
			"views":  gorm.Expr("(SELECT COUNT(*) FROM page_views WHERE page_views.page_id = pages.id)"),
			"clicks": gorm.Expr("(SELECT COUNT(*) FROM component_clicks WHERE component_clicks.page_id = pages.id)"),
		})
	s.metrics.RecordReconcile(result.Error)
	if result.Error != nil {
		return 0, clerrors.Unexpected("failed to reconcile counters", result.Error)
	}
	return result.RowsAffected, nil
}

// StartReconcile planifie Reconcile. Une planification vide désactive le job.
func (s *Service) StartReconcile(schedule string) error {
	if schedule == "" {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		n, err := s.Reconcile(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("Counter reconciliation failed")
			return
		}
		log.Info().Int64("pages", n).Msg("Counter reconciliation completed")
	})
	if err != nil {
		return err
	}
	c.Start()
	s.cron = c
	log.Info().Str("schedule", schedule).Msg("Counter reconciliation scheduled")
	return nil
}

// Stop arrête le cron et attend la fin d'une exécution en cours
func (s *Service) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
