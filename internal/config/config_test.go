package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collatz-checker/internal/store"
	"collatz-checker/internal/sweep"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collatz.yaml")
	content := `
range:
  lower: 10
  upper: 500
policy: continue
workers: 4
store:
  driver: sqlite
  path: /tmp/memo.db
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(10), cfg.Range.Lower)
	assert.Equal(t, uint64(500), cfg.Range.Upper)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr, "unset fields keep their defaults")

	opts := cfg.SweepOptions()
	assert.Equal(t, sweep.ContinueOnDivergence, opts.Policy)
	assert.Equal(t, 4, opts.Workers)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collatz.yaml")
	require.NoError(t, os.WriteFile(path, []byte("range: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COLLATZ_DB_PATH", "/data/memo.db")
	t.Setenv("COLLATZ_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/data/memo.db", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "collatz.yaml")
	cfg := DefaultConfig()
	cfg.Range.Upper = 1000
	cfg.Policy = "continue"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectedErr bool
	}{
		{name: "Defaults", mutate: func(*Config) {}},
		{name: "ZeroLower", mutate: func(c *Config) { c.Range.Lower = 0 }, expectedErr: true},
		{name: "InvertedRange", mutate: func(c *Config) { c.Range.Lower = 50; c.Range.Upper = 10 }, expectedErr: true},
		{name: "BadPolicy", mutate: func(c *Config) { c.Policy = "panic" }, expectedErr: true},
		{name: "NegativeWorkers", mutate: func(c *Config) { c.Workers = -1 }, expectedErr: true},
		{name: "NoStore", mutate: func(c *Config) { c.Store.Driver = DriverNone; c.Store.Path = "" }},
		{name: "MissingPath", mutate: func(c *Config) { c.Store.Path = "" }, expectedErr: true},
		{name: "UnknownDriver", mutate: func(c *Config) { c.Store.Driver = "redis" }, expectedErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.expectedErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Store.Driver = DriverNone
	s, closeFn, err := cfg.OpenStore(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.NoError(t, closeFn())

	cfg.Store = StoreConfig{Driver: DriverFile, Path: filepath.Join(dir, "memo.txt")}
	s, closeFn, err = cfg.OpenStore(ctx)
	require.NoError(t, err)
	assert.IsType(t, &store.FileStore{}, s)
	assert.NoError(t, closeFn())

	cfg.Store = StoreConfig{Driver: DriverSQLite, Path: filepath.Join(dir, "memo.db")}
	s, closeFn, err = cfg.OpenStore(ctx)
	require.NoError(t, err)
	assert.IsType(t, &store.SQLiteStore{}, s)
	assert.NoError(t, closeFn())

	cfg.Store = StoreConfig{Driver: "redis", Path: "x"}
	_, _, err = cfg.OpenStore(ctx)
	assert.Error(t, err)
}
