package clconfig

import (
	"fmt"
	"log/syslog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Production      bool             `yaml:"production" env:"BIOSTORE_PRODUCTION"`
	TrustedProxies  []string         `yaml:"trustedproxies" env:"BIOSTORE_TRUSTED_PROXIES" env-separator:","`
	TrustedPlatform string           `yaml:"trustedplatform" env:"BIOSTORE_TRUSTED_PLATFORM"`
	Listen          ListenConfig     `yaml:"listen"`
	Database        DatabaseConfig   `yaml:"database"`
	Logger          LoggerConfig     `yaml:"logger"`
	Identity        IdentityConfig   `yaml:"identity"`
	Limiter         LimiterConfig    `yaml:"limiter"`
	Analytics       AnalyticsConfig  `yaml:"analytics"`
	Components      ComponentsConfig `yaml:"components"`
	Site            SiteConfig       `yaml:"site"`
}

type ListenConfig struct {
	Website string `yaml:"website" env:"BIOSTORE_LISTEN" env-default:"0.0.0.0:8080"`
	Metrics string `yaml:"metrics" env:"BIOSTORE_METRICS_LISTEN"`
}

type DatabaseConfig struct {
	Db    string      `yaml:"db" env:"BIOSTORE_DB" env-default:"sqlite"`
	Path  string      `yaml:"path" env:"BIOSTORE_DB_PATH" env-default:"./biostore.db"`
	Dsn   string      `yaml:"dsn" env:"BIOSTORE_DB_DSN"`
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"BIOSTORE_REDIS_ADDR"`
	Password string `yaml:"password" env:"BIOSTORE_REDIS_PASSWORD"`
	Db       int    `yaml:"db" env:"BIOSTORE_REDIS_DB"`
}

type LoggerConfig struct {
	Level         string             `yaml:"level" env:"BIOSTORE_LOG_LEVEL" env-default:"info"`
	SlowThreshold int                `yaml:"slowthreshold" env-default:"200"`
	File          LoggerFileConfig   `yaml:"file"`
	Syslog        LoggerSyslogConfig `yaml:"syslog"`
}

type LoggerFileConfig struct {
	Enable     bool   `yaml:"enable"`
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxsize"`
	MaxBackups int    `yaml:"maxbackups"`
	MaxAge     int    `yaml:"maxage"`
	Compress   bool   `yaml:"compress"`
}

type LoggerSyslogConfig struct {
	Enable   bool            `yaml:"enable"`
	Protocol string          `yaml:"protocol"`
	Address  string          `yaml:"address"`
	Tag      string          `yaml:"tag"`
	Priority syslog.Priority `yaml:"priority"`
}

// IdentityConfig nomme l'en-tête posé par le fournisseur d'identité
type IdentityConfig struct {
	Header string `yaml:"header" env:"BIOSTORE_IDENTITY_HEADER" env-default:"X-User-Id"`
}

type LimiterConfig struct {
	RatePerMinute int64 `yaml:"rateperminute" env:"BIOSTORE_RATE_PER_MINUTE" env-default:"60"`
}

type AnalyticsConfig struct {
	Reconcile string `yaml:"reconcile" env:"BIOSTORE_RECONCILE" env-default:"0 3 * * *"`
	GeoIP     string `yaml:"geoip" env:"BIOSTORE_GEOIP"`
}

type ComponentsConfig struct {
	ReorderTransaction bool `yaml:"reordertransaction" env:"BIOSTORE_REORDER_TRANSACTION"`
}

type SiteConfig struct {
	BaseURL   string `yaml:"baseurl" env:"BIOSTORE_BASE_URL" env-default:"http://localhost:8080"`
	OGImage   string `yaml:"ogimage" env:"BIOSTORE_OG_IMAGE"`
	SiteName  string `yaml:"sitename" env-default:"Biostore"`
	OGDefault string `yaml:"ogdescription" env-default:"Confira meus produtos e conteúdos exclusivos."`
}

func CreateExampleConfig(filename string) (string, error) {
	example := &Config{
		Production: false,
		Listen: ListenConfig{
			Website: "0.0.0.0:8080",
			Metrics: "127.0.0.1:9090",
		},
		Database: DatabaseConfig{
			Db:   "sqlite",
			Path: "./biostore.db",
		},
		Logger: LoggerConfig{
			Level:         "info",
			SlowThreshold: 200,
		},
		Identity: IdentityConfig{
			Header: "X-User-Id",
		},
		Limiter: LimiterConfig{
			RatePerMinute: 60,
		},
		Analytics: AnalyticsConfig{
			Reconcile: "0 3 * * *",
		},
		Site: SiteConfig{
			BaseURL:   "http://localhost:8080",
			OGImage:   "http://localhost:8080/og-image.png",
			SiteName:  "Biostore",
			OGDefault: "Confira meus produtos e conteúdos exclusivos.",
		},
	}

	if filename == "/etc/" {
		example.Listen.Website = "127.0.0.1:8000"
		example.Production = true
		example.Database.Path = "/var/lib/biostore/sqlite.db"
		example.Logger.File = LoggerFileConfig{
			Enable:     true,
			Path:       "/var/log/biostore/biostore.log",
			MaxSize:    100,
			MaxBackups: 30,
			MaxAge:     7,
			Compress:   true,
		}
		filename = "/etc/biostore/config.yaml"
	}

	return filename, WriteConfigYaml(filename, example)
}

func WriteConfigYaml(filename string, conf *Config) error {
	data, err := yaml.Marshal(conf)
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}

// LoadConfig lit le YAML puis applique les variables BIOSTORE_*
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, fmt.Errorf("impossible de lire le fichier %s: %w", filename, err)
	}

	var config Config
	if err := cleanenv.ReadConfig(filename, &config); err != nil {
		return nil, fmt.Errorf("erreur de parsing de la configuration: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch c.Database.Db {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path est requis avec sqlite")
		}
	case "mysql", "postgres":
		if c.Database.Dsn == "" {
			return fmt.Errorf("database.dsn est requis avec %s", c.Database.Db)
		}
	default:
		return fmt.Errorf("database.db inconnu: %q (sqlite, mysql ou postgres)", c.Database.Db)
	}
	if c.Limiter.RatePerMinute <= 0 {
		return fmt.Errorf("limiter.rateperminute doit être positif")
	}
	return nil
}

func CreateExample(shouldCreateExample bool, configFile string) {
	if shouldCreateExample {
		if err := handleExampleCreation(configFile); err != nil {
			fmt.Printf("❌ %v\n", err)
		}
		os.Exit(1)
	}

	_, err := os.Stat(configFile)
	if err != nil && os.IsNotExist(err) {
		if err := handleExampleCreation(configFile); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
	}
}

func handleExampleCreation(filename string) error {
	if filename == "" {
		filename = "biostore.yaml"
	}
	filename, err := CreateExampleConfig(filename)
	if err != nil {
		return fmt.Errorf("erreur création exemple: %v", err)
	}

	fmt.Printf("✅ Fichier exemple créé: %s\n", filename)
	return nil
}

func DisplayConfiguration(config *Config, version string) {
	logPrintf("Biostore version %s", version)

	logPrintf("Mode Production %v", config.Production)
	logPrintf("Écoute sur %s", config.Listen.Website)
	if config.Listen.Metrics != "" {
		logPrintf("  • Métriques sur %s", config.Listen.Metrics)
	}

	logPrintf("Database")
	switch config.Database.Db {
	case "sqlite":
		logPrintf("  • Type sqlite")
		logPrintf("  • Path %s", config.Database.Path)
	case "mysql", "postgres":
		logPrintf("  • Type %s", config.Database.Db)
		logPrintf("  • DSN renseigné %v", config.Database.Dsn != "")
	}
	if config.Database.Redis.Addr != "" {
		logPrintf("  • Redis %s (db %d)", config.Database.Redis.Addr, config.Database.Redis.Db)
	} else {
		logPrintf("  • Redis désactivé, compteurs temps réel à zéro")
	}

	logPrintf("Identité via l'en-tête %s", config.Identity.Header)
	logPrintf("Limite de %d requêtes par minute sur le tracking", config.Limiter.RatePerMinute)

	logPrintf("Analytics")
	if config.Analytics.Reconcile != "" {
		logPrintf("  • Réconciliation des compteurs \"%s\"", config.Analytics.Reconcile)
	} else {
		logPrintf("  • Réconciliation des compteurs désactivée")
	}
	if config.Analytics.GeoIP != "" {
		logPrintf("  • GeoIP %s", config.Analytics.GeoIP)
	}
	logPrintf("Réordonnancement transactionnel %v", config.Components.ReorderTransaction)
	logPrintf("URL publique %s", config.Site.BaseURL)

	lf, ls := config.Logger.File, config.Logger.Syslog
	log.Info().
		Str("level", config.Logger.Level).
		Bool("file", lf.Enable).
		Str("file_path", lf.Path).
		Int("file_maxsize", lf.MaxSize).
		Int("file_maxage", lf.MaxAge).
		Int("file_maxbackups", lf.MaxBackups).
		Bool("syslog", ls.Enable).
		Str("syslog_address", ls.Address).
		Str("syslog_tag", ls.Tag).
		Msg("Logger")
}

// Info logue avec printf
func logPrintf(format string, a ...any) {
	log.Info().Msg(fmt.Sprintf(format, a...))
}
