package clstore

import (
	"fmt"
	"time"

	"biostore/internal/models/clanalytics"
	"biostore/internal/models/clcomponents"
	"biostore/internal/models/clconfig"
	"biostore/internal/models/cllegacy"
	"biostore/internal/models/clpages"
	"biostore/internal/models/clsales"
	"biostore/internal/models/gormzerologger"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Models liste les tables gérées par AutoMigrate
func Models() []any {
	return []any{
		&clpages.User{},
		&clpages.Page{},
		&clcomponents.PageComponent{},
		&cllegacy.LegacyStore{},
		&clanalytics.PageView{},
		&clanalytics.ComponentClick{},
		&clsales.Sale{},
	}
}

// Dialector choisit le driver gorm selon database.db
func Dialector(cfg clconfig.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Db {
	case "sqlite":
		return sqlite.Open(cfg.Path), nil
	case "mysql":
		return mysql.Open(cfg.Dsn), nil
	case "postgres":
		return postgres.Open(cfg.Dsn), nil
	}
	return nil, fmt.Errorf("le type de database doit etre sqlite, mysql ou postgres")
}

// Open ouvre la base avec le logger zerolog puis migre le schéma
func Open(config *clconfig.Config) (*gorm.DB, error) {
	dialector, err := Dialector(config.Database)
	if err != nil {
		return nil, err
	}

	// Créer le logger GORM avec Zerolog
	level := "warn"
	if config.Logger.Level == "debug" || config.Logger.Level == "trace" || !config.Production {
		level = "trace"
	}
	slow := time.Duration(config.Logger.SlowThreshold) * time.Millisecond

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormzerologger.New(level, slow),
	})
	if err != nil {
		return nil, fmt.Errorf("erreur connexion base de données: %w", err)
	}

	if config.Database.Db == "sqlite" {
		// sqlite: une seule connexion
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info().Str("db", config.Database.Db).Msg("Database ready")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("erreur migration: %w", err)
	}
	return nil
}
