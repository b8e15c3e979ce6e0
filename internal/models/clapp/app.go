package clapp

import (
	"context"
	"fmt"

	"biostore/internal/clredis"
	"biostore/internal/models/clanalytics"
	"biostore/internal/models/clcomponents"
	"biostore/internal/models/clconfig"
	"biostore/internal/models/clgeo"
	"biostore/internal/models/cllegacy"
	"biostore/internal/models/clmetrics"
	"biostore/internal/models/clpages"
	"biostore/internal/models/clsales"
	"biostore/internal/models/clstore"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// App regroupe les services construits une fois au démarrage
type App struct {
	Configuration *clconfig.Config
	Db            *gorm.DB
	Redis         *redis.Client
	Metrics       *clmetrics.Metrics
	Geo           clgeo.Locator

	Pages      *clpages.Service
	Components *clcomponents.Store
	Legacy     *cllegacy.Adapter
	Analytics  *clanalytics.Service
	Sales      *clsales.Ledger

	Version string
	BuildID string
}

// Init ouvre la base, Redis et la base GeoIP puis construit les services.
// reg vaut prometheus.DefaultRegisterer en production.
func Init(config *clconfig.Config, version string, buildid string, reg prometheus.Registerer) (*App, error) {
	db, err := clstore.Open(config)
	if err != nil {
		return nil, err
	}

	rdb, err := clredis.Open(context.Background(), config.Database.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis indisponible, démarrage sans Redis")
		rdb = nil
	}

	geo, err := clgeo.Open(config.Analytics.GeoIP)
	if err != nil {
		return nil, fmt.Errorf("erreur ouverture GeoIP: %w", err)
	}

	app := New(config, db, rdb, geo, reg)
	app.Version = version
	app.BuildID = buildid

	if err := app.Analytics.StartReconcile(config.Analytics.Reconcile); err != nil {
		app.Close()
		return nil, fmt.Errorf("planification de la réconciliation invalide: %w", err)
	}
	return app, nil
}

// New câble les services sur des dépendances déjà ouvertes
func New(config *clconfig.Config, db *gorm.DB, rdb *redis.Client, geo clgeo.Locator, reg prometheus.Registerer) *App {
	metrics := clmetrics.New(reg)

	pages := clpages.NewService(db,
		&clcomponents.PageComponent{},
		&clanalytics.PageView{},
		&clanalytics.ComponentClick{},
		&clsales.Sale{},
	)
	legacy := cllegacy.NewAdapter(db)
	pages.AddReserver(legacy)

	components := clcomponents.NewStore(db, pages)
	components.Transactional = config.Components.ReorderTransaction

	return &App{
		Configuration: config,
		Db:            db,
		Redis:         rdb,
		Metrics:       metrics,
		Geo:           geo,
		Pages:         pages,
		Components:    components,
		Legacy:        legacy,
		Analytics:     clanalytics.NewService(db, rdb, metrics, geo),
		Sales:         clsales.NewLedger(db, pages, clsales.NewPageCatalog(components, legacy), metrics),
	}
}

// Close arrête le cron et libère les connexions
func (app *App) Close() {
	app.Analytics.Stop()
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Fermeture Redis")
		}
	}
	if closer, ok := app.Geo.(interface{ Close() error }); ok {
		closer.Close()
	}
	if sqlDB, err := app.Db.DB(); err == nil {
		sqlDB.Close()
	}
}
