package clstore

import (
	"path/filepath"
	"testing"

	"biostore/internal/models/clconfig"
	"biostore/internal/models/clsales"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialector(t *testing.T) {
	for _, db := range []string{"sqlite", "mysql", "postgres"} {
		d, err := Dialector(clconfig.DatabaseConfig{Db: db, Path: "x.db", Dsn: "dsn"})
		require.NoError(t, err)
		assert.Equal(t, db, d.Name())
	}
	_, err := Dialector(clconfig.DatabaseConfig{Db: "oracle"})
	assert.Error(t, err)
}

func TestOpenSqliteMigrates(t *testing.T) {
	conf := &clconfig.Config{
		Database: clconfig.DatabaseConfig{Db: "sqlite", Path: filepath.Join(t.TempDir(), "biostore.db")},
		Logger:   clconfig.LoggerConfig{Level: "error", SlowThreshold: 200},
	}
	db, err := Open(conf)
	require.NoError(t, err)

	for _, table := range []string{"users", "pages", "page_components", "stores", "page_views", "component_clicks", "sales"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasColumn(&clsales.Sale{}, "external_payload"))
}
