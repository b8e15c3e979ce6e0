package clanalytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"biostore/internal/models/clerrors"
	"biostore/internal/models/clpages"
	"biostore/internal/models/clrollup"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const realtimeTTL = 48 * time.Hour

var mobileMarkers = []string{"mobile", "android", "iphone", "ipod", "blackberry", "windows phone"}

// DetectDevice classe un user-agent. Tablette passe avant mobile.
func DetectDevice(userAgent string) string {
	if userAgent == "" {
		return DeviceUnknown
	}
	ua := strings.ToLower(userAgent)
	if strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet") {
		return DeviceTablet
	}
	for _, m := range mobileMarkers {
		if strings.Contains(ua, m) {
			return DeviceMobile
		}
	}
	return DeviceDesktop
}

// RecordView enregistre une vue puis incrémente le compteur de la page
func (s *Service) RecordView(ctx context.Context, in ViewInput, ip string) error {
	if in.PageID == 0 {
		return clerrors.Validation("pageId is required")
	}
	if err := s.pageExists(ctx, in.PageID); err != nil {
		return err
	}

	ua := ""
	if in.UserAgent != nil {
		ua = *in.UserAgent
	}
	view := PageView{
		PageID:     in.PageID,
		ViewedAt:   s.now(),
		Referrer:   emptyToNil(in.Referrer),
		UserAgent:  emptyToNil(in.UserAgent),
		DeviceType: DetectDevice(ua),
		Country:    s.geo.Country(ip),
	}
	if err := s.db.WithContext(ctx).Create(&view).Error; err != nil {
		return clerrors.Unexpected("failed to record view", err)
	}

	s.bump(ctx, in.PageID, "views")
	s.bumpRealtime(ctx, in.PageID, view.ViewedAt, "views")
	s.metrics.RecordView(view.DeviceType)
	return nil
}

// RecordClick enregistre un clic puis incrémente le compteur de la page
func (s *Service) RecordClick(ctx context.Context, in ClickInput) error {
	if in.PageID == 0 {
		return clerrors.Validation("pageId is required")
	}
	if strings.TrimSpace(in.ComponentType) == "" {
		return clerrors.Validation("componentType is required")
	}
	if err := s.pageExists(ctx, in.PageID); err != nil {
		return err
	}

	click := ComponentClick{
		PageID:         in.PageID,
		ComponentID:    in.ComponentID,
		ComponentType:  in.ComponentType,
		ComponentLabel: emptyToNil(in.ComponentLabel),
		TargetURL:      emptyToNil(in.TargetURL),
		ClickedAt:      s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&click).Error; err != nil {
		return clerrors.Unexpected("failed to record click", err)
	}

	s.bump(ctx, in.PageID, "clicks")
	s.bumpRealtime(ctx, in.PageID, click.ClickedAt, "clicks")
	s.metrics.RecordClick(click.ComponentType)
	return nil
}

func (s *Service) pageExists(ctx context.Context, pageID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&clpages.Page{}).Where("id = ?", pageID).Count(&count).Error; err != nil {
		return clerrors.Unexpected("failed to load page", err)
	}
	if count == 0 {
		return clerrors.NotFound("Page")
	}
	return nil
}

// bump incrémente atomiquement views ou clicks. L'événement est déjà
// enregistré: une erreur ici est journalisée, jamais retournée.
func (s *Service) bump(ctx context.Context, pageID uint, column string) {
	err := s.db.WithContext(ctx).Model(&clpages.Page{}).
		Where("id = ?", pageID).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1)).Error
	if err != nil {
		log.Error().Err(err).Uint("page_id", pageID).Str("counter", column).Msg("Counter update failed")
		s.metrics.RecordCounterFailure(column)
	}
}

func (s *Service) bumpRealtime(ctx context.Context, pageID uint, at time.Time, field string) {
	if s.redis == nil {
		return
	}
	key := realtimeKey(pageID, clrollup.DayKey(at))
	pipe := s.redis.TxPipeline()
	pipe.HIncrBy(ctx, key, field, 1)
	pipe.Expire(ctx, key, realtimeTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Uint("page_id", pageID).Msg("Realtime counter update failed")
	}
}

func realtimeKey(pageID uint, day string) string {
	return fmt.Sprintf("analytics:daily:%d:%s", pageID, day)
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
