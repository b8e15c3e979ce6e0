package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"biostore/internal/clmiddleware"
	handlers_analytics "biostore/internal/handlers/analytics"
	handlers_api "biostore/internal/handlers/api"
	handlers_components "biostore/internal/handlers/components"
	handlers_og "biostore/internal/handlers/og"
	handlers_pages "biostore/internal/handlers/pages"
	handlers_sales "biostore/internal/handlers/sales"
	"biostore/internal/models/clapp"
	"biostore/internal/models/clconfig"
	"biostore/internal/models/cllog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const VERSION string = "0.3.0"

var BuildID string

const shutdownTimeout = 10 * time.Second

func main() {
	if BuildID == "" {
		BuildID = VERSION
	}

	configuration := initConfiguration()
	if err := cllog.InitLogger(configuration.Logger, configuration.Production); err != nil {
		log.Fatal().Err(err).Msg("Logger impossible à initialiser")
	}
	clconfig.DisplayConfiguration(configuration, VERSION)

	app, err := clapp.Init(configuration, VERSION, BuildID, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("Initialisation impossible")
	}

	r := newServer(configuration)
	setMiddleware(r, app)
	if err := setRoutes(r, app); err != nil {
		app.Close()
		log.Fatal().Err(err).Msg("Déclaration des routes impossible")
	}

	startServer(r, app)
}

func initConfiguration() *clconfig.Config {
	configFile, shouldCreateExample, versionDisplay, err := parseCommandLineArgs()
	if err != nil {
		fmt.Println("Usage:")
		fmt.Println("  biostore -config biostore.yaml")
		fmt.Println("  biostore -example  (pour créer un fichier exemple)")
		fmt.Println("  biostore -version  (affiche la version)")
		os.Exit(1)
	}

	if versionDisplay {
		println(VERSION)
		os.Exit(0)
	}

	clconfig.CreateExample(shouldCreateExample, configFile)

	conf, err := clconfig.LoadConfig(configFile)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	return conf
}

func newServer(configuration *clconfig.Config) *gin.Engine {
	if configuration.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	if configuration.TrustedProxies != nil {
		if err := r.SetTrustedProxies(configuration.TrustedProxies); err != nil {
			log.Warn().Err(err).Msg("Proxies de confiance invalides")
		}
	}
	if configuration.TrustedPlatform != "" {
		switch configuration.TrustedPlatform {
		case "cloudflare":
			r.TrustedPlatform = gin.PlatformCloudflare
		case "google":
			r.TrustedPlatform = gin.PlatformGoogleAppEngine
		case "flyio":
			r.TrustedPlatform = gin.PlatformFlyIO
		default:
			r.TrustedPlatform = configuration.TrustedPlatform
		}
	}

	return r
}

func setMiddleware(r *gin.Engine, app *clapp.App) {
	clmiddleware.InitMiddleware(r, app.Configuration.Identity.Header, app.Metrics)
}

func setRoutes(r *gin.Engine, app *clapp.App) error {
	// middleware rate limiter
	middlewareLimiter, err := clmiddleware.NewLimiter(app.Configuration.Limiter.RatePerMinute, app.Redis)
	if err != nil {
		return err
	}

	ogHandler, err := handlers_og.NewOGHandler(app.Pages, app.Legacy, app.Configuration.Site)
	if err != nil {
		return err
	}
	pagesHandler := handlers_pages.NewPagesHandler(app.Pages, app.Components, app.Legacy, app.Analytics)
	componentsHandler := handlers_components.NewComponentsHandler(app.Pages, app.Components, app.Legacy)
	analyticsHandler := handlers_analytics.NewAnalyticsHandler(app.Analytics, app.Pages)
	salesHandler := handlers_sales.NewSalesHandler(app.Sales)
	statsHandler := handlers_api.NewStatsHandler(app.Pages)

	//default
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	api := r.Group("/api")
	{
		// pages
		api.GET("/pages", pagesHandler.List)
		api.POST("/pages", pagesHandler.Create)
		api.GET("/pages/:id", pagesHandler.Get)
		api.PATCH("/pages/:id", pagesHandler.Update)
		api.DELETE("/pages/:id", pagesHandler.Delete)
		api.GET("/pages/username/:username", pagesHandler.GetByUsername)
		api.GET("/check-username/:username", pagesHandler.CheckUsername)
		api.GET("/stores/:username", pagesHandler.GetStore)
		api.POST("/admin/transfer-page/:id", pagesHandler.Transfer)

		// composants
		api.GET("/pages/:id/components", componentsHandler.List)
		api.POST("/pages/:id/components", componentsHandler.Add)
		api.POST("/pages/:id/reorder", componentsHandler.Reorder)
		api.PATCH("/components/:id", componentsHandler.Update)
		api.DELETE("/components/:id", componentsHandler.Delete)

		// tracking public
		api.POST("/analytics/view", middlewareLimiter, analyticsHandler.RecordView)
		api.POST("/analytics/click", middlewareLimiter, analyticsHandler.RecordClick)
		api.GET("/analytics/:pageId", analyticsHandler.GetAnalytics)
		api.GET("/analytics/:pageId/summary", analyticsHandler.GetSummary)
		api.GET("/analytics/:pageId/realtime", analyticsHandler.GetRealtime)

		// ventes
		api.POST("/sales", salesHandler.Record)
		api.GET("/sales/:pageId", salesHandler.List)
		api.GET("/sales/:pageId/summary", salesHandler.Summary)
		api.DELETE("/sales/sale/:saleId", salesHandler.Delete)

		api.GET("/og/:username", ogHandler.Render)
		api.GET("/public/stats", statsHandler.PublicStats)
	}
	return nil
}

// metricsServer expose /metrics sur un port séparé
func metricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func startServer(r *gin.Engine, app *clapp.App) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configuration := app.Configuration
	var metrics *http.Server
	if configuration.Listen.Metrics != "" {
		metrics = metricsServer(configuration.Listen.Metrics)
		log.Info().Msgf("Metrics disponible sur http://%s/metrics", configuration.Listen.Metrics)
		go func() {
			if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Serveur de métriques arrêté")
			}
		}()
	}

	srv := &http.Server{
		Addr:              configuration.Listen.Website,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Msgf("API démarrée sur http://%s", configuration.Listen.Website)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Serveur arrêté")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Arrêt en cours")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownServers(shutdownCtx, srv, metrics); err != nil {
		log.Error().Err(err).Msg("Arrêt incomplet")
	}
	app.Close()
}

// shutdownServers arrête chaque serveur non nil et cumule les erreurs
func shutdownServers(ctx context.Context, servers ...*http.Server) error {
	var errs []error
	for _, srv := range servers {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Str("addr", srv.Addr).Msg("Arrêt du serveur")
			errs = append(errs, fmt.Errorf("%s: %w", srv.Addr, err))
		}
	}
	return errors.Join(errs...)
}

func parseCommandLineArgs() (configFile string, shouldCreateExample bool, versionDisplay bool, err error) {
	var config = flag.String("config", "", "Fichier de configuration YAML")
	var example = flag.Bool("example", false, "Créer un fichier de configuration exemple")
	var version = flag.Bool("version", false, "version du produit")
	flag.Parse()

	if *version {
		return "", false, true, nil
	}

	if *example {
		return "", true, false, nil
	}

	if *config == "" {
		return "", false, false, fmt.Errorf("fichier de configuration requis")
	}

	return *config, false, false, nil
}
