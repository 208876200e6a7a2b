package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeeds(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		feeds, err := ParseFeeds([]byte(`
feeds:
  - id: chennai_bus
    name: Chennai MTC
    url: https://example.com/gtfs/bus.zip
  - id: chennai_metro
    path: ./data/metro.zip
`))
		require.NoError(t, err)
		require.Len(t, feeds, 2)
		assert.Equal(t, "chennai_bus", feeds[0].ID)
		assert.Equal(t, "https://example.com/gtfs/bus.zip", feeds[0].Location())
		assert.Equal(t, "./data/metro.zip", feeds[1].Location())
	})

	tests := []struct {
		yaml string
		name string
	}{
		{`feeds: []`, "No feeds"},
		{"feeds:\n  - url: https://example.com/a.zip\n", "Missing id"},
		{"feeds:\n  - id: a\n", "Neither url nor path"},
		{"feeds:\n  - id: a\n    url: https://example.com/a.zip\n    path: a.zip\n", "Both url and path"},
		{"feeds:\n  - id: a\n    url: not a url\n", "Invalid url"},
		{"feeds:\n  - id: a:b\n    path: a.zip\n", "Colon in id"},
		{"feeds:\n  - id: a\n    path: a.zip\n  - id: a\n    path: b.zip\n", "Duplicate id"},
		{"feeds: [", "Malformed yaml"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFeeds([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFeeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feeds.yml")
	require.NoError(t, os.WriteFile(path, []byte("feeds:\n  - id: f1\n    path: f1.zip\n"), 0o600))

	feeds, err := LoadFeeds(path)
	require.NoError(t, err)
	assert.Equal(t, []FeedConfig{{ID: "f1", Path: "f1.zip"}}, feeds)

	_, err = LoadFeeds(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tracking")
	t.Setenv("GEOMETRY_DATABASE_URL", "file:geometry.db")
	t.Setenv("GEOMETRY_DATABASE_DRIVER", "sqlite")
	t.Setenv("REFRESH_CONCURRENCY", "8")
	t.Setenv("FEED_FETCH_TIMEOUT_SECONDS", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := FromEnv()

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/tracking", cfg.Database.URL)
	assert.Equal(t, "sqlite", cfg.Geometry.Driver)
	assert.Equal(t, "file:geometry.db", cfg.Geometry.URL)
	assert.Equal(t, cfg.Database.MaxConnections, cfg.Geometry.MaxConnections)
	assert.Equal(t, 8, cfg.Refresh.Concurrency)
	assert.Equal(t, 60*time.Second, cfg.Refresh.FetchTimeout)
	assert.Equal(t, "@every 15m", cfg.Refresh.Schedule)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestFromEnv_GeometryDefaultsToTrackingDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tracking")
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("GEOMETRY_DATABASE_URL", "")

	cfg := FromEnv()

	assert.Equal(t, cfg.Database, cfg.Geometry)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: "postgres", URL: "postgres://x"},
			Geometry: DatabaseConfig{Driver: "sqlite", URL: "file:g.db"},
			JWT:      JWTConfig{Secret: "secret"},
			Refresh:  RefreshConfig{Concurrency: 1, FetchTimeout: time.Second},
			Feeds:    []FeedConfig{{ID: "f1", Path: "f1.zip"}},
		}
	}

	assert.NoError(t, valid().Validate())

	tests := []struct {
		mutate func(c *Config)
		name   string
	}{
		{func(c *Config) { c.Database.URL = "" }, "Missing database url"},
		{func(c *Config) { c.Database.Driver = "mysql" }, "Unsupported driver"},
		{func(c *Config) { c.Geometry.Driver = "oracle" }, "Unsupported geometry driver"},
		{func(c *Config) { c.JWT.Secret = "" }, "Missing jwt secret"},
		{func(c *Config) { c.Refresh.Concurrency = 0 }, "Zero concurrency"},
		{func(c *Config) { c.Refresh.FetchTimeout = 0 }, "Zero timeout"},
		{func(c *Config) { c.Feeds = nil }, "No feeds"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
