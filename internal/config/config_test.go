package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Highway Fuels", "STN01")
	cfg.Fiscal.Open = []WindowConfig{{Start: "2025-04-01", End: "2026-03-31"}}
	cfg.Fiscal.ClosedPeriods = []string{"2025-04"}

	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, cfg)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Business, got.Business)
	assert.Equal(t, cfg.Fiscal, got.Fiscal)
	assert.Equal(t, cfg.Store, got.Store)
	assert.Equal(t, cfg.Log, got.Log)
	assert.Equal(t, cfg.Export, got.Export)
	assert.Equal(t, cfg.Audit, got.Audit)
}

func TestDefaults(t *testing.T) {
	cfg := Default("Highway Fuels", "STN01")

	assert.Equal(t, "Highway Fuels", cfg.Business.Name)
	assert.Equal(t, "STN01", cfg.Business.Tenant)
	assert.Equal(t, "04-01", cfg.Fiscal.YearStart)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "books.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Export.AutoCommit)
	assert.Equal(t, "exports", cfg.Export.Dir)
	assert.Empty(t, cfg.Fiscal.Open)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"missing tenant", func(c *Config) { c.Business.Tenant = "" }, "business.tenant"},
		{"bad year start", func(c *Config) { c.Fiscal.YearStart = "13-01" }, "fiscal.year_start"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }, "store.driver"},
		{"sqlite without path", func(c *Config) { c.Store.Path = "" }, "store.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("Highway Fuels", "STN01")
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	cfg := Default("Highway Fuels", "STN01")
	cfg.Store = StoreConfig{Driver: "memory"}
	assert.NoError(t, cfg.Validate())
}

func TestYAMLFormat(t *testing.T) {
	cfg := Default("Highway Fuels", "STN01")
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Highway Fuels")
	assert.Contains(t, contents, "tenant: STN01")
	assert.Contains(t, contents, "year_start: 04-01")
	assert.Contains(t, contents, "driver: sqlite")
	assert.Contains(t, contents, "auto_commit: true")
	assert.NotContains(t, contents, "closed_periods")
}

func TestCalendarDefaultsToCurrentYear(t *testing.T) {
	ctx := context.Background()
	cfg := Default("Highway Fuels", "STN01")
	cal, err := cfg.Calendar(time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	open, err := cal.IsDateOpenForPosting(ctx, "STN01", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, open)
	open, err = cal.IsDateOpenForPosting(ctx, "STN01", time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, open)
}

func TestCalendarWindowsAndClosedPeriods(t *testing.T) {
	ctx := context.Background()
	cfg := Default("Highway Fuels", "STN01")
	cfg.Fiscal.Open = []WindowConfig{{Start: "2024-04-01", End: "2026-03-31"}}
	cfg.Fiscal.ClosedPeriods = []string{"2024-05"}

	cal, err := cfg.Calendar(time.Now())
	require.NoError(t, err)

	open, err := cal.IsDateOpenForPosting(ctx, "STN01", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, open)
	open, err = cal.IsDateOpenForPosting(ctx, "STN01", time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, open)

	cfg.Fiscal.Open = []WindowConfig{{Start: "2025-04-01", End: "2025-03-31"}}
	_, err = cfg.Calendar(time.Now())
	assert.Error(t, err)

	cfg.Fiscal.Open = nil
	cfg.Fiscal.ClosedPeriods = []string{"May 2024"}
	_, err = cfg.Calendar(time.Now())
	assert.Error(t, err)
}
