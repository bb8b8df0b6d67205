package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-estateportal/internal/pkg/config"
)

func TestNewDatabaseConfig(t *testing.T) {
	cfg := &config.Config{Repositories: config.RepositoriesConfig{Postgres: config.PostgresConfig{
		Host:     "db.internal",
		Port:     "5432",
		DB:       "estate_portal",
		Username: "portal",
		Password: "p@ss word",
		MaxConns: 8,
	}}}

	dbCfg, err := NewDatabaseConfig(cfg, zap.NewNop())
	require.NoError(t, err)

	u, err := url.Parse(dbCfg.ConnectionURL)
	require.NoError(t, err)
	assert.Equal(t, "postgresql", u.Scheme)
	assert.Equal(t, "db.internal:5432", u.Host)
	assert.Equal(t, "/estate_portal", u.Path)
	pass, _ := u.User.Password()
	assert.Equal(t, "p@ss word", pass)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, int32(8), dbCfg.MaxConns)
}

func TestNewDatabaseConfigRequiresHost(t *testing.T) {
	_, err := NewDatabaseConfig(&config.Config{}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewDatabaseConfig(nil, zap.NewNop())
	assert.Error(t, err)
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := migrationFS.ReadDir("migrations")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_session_snapshots.up.sql")
	assert.Contains(t, names, "000001_session_snapshots.down.sql")
}

func TestRunMigrationsRejectsForeignScheme(t *testing.T) {
	err := RunMigrations("mysql://localhost/portal", zap.NewNop())
	assert.Error(t, err)
}
