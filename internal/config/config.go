package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/forecourt/internal/fiscal"
)

// FileName is the project configuration file looked up in the books
// directory.
const FileName = "forecourt.yaml"

// Config represents the top-level forecourt.yaml configuration.
type Config struct {
	Business BusinessConfig `yaml:"business"`
	Fiscal   FiscalConfig   `yaml:"fiscal"`
	Store    StoreConfig    `yaml:"store"`
	Log      LogConfig      `yaml:"log"`
	Export   ExportConfig   `yaml:"export"`
	Audit    AuditConfig    `yaml:"audit"`
}

// BusinessConfig identifies the station whose books these are.
type BusinessConfig struct {
	Name   string `yaml:"name"`
	Tenant string `yaml:"tenant"`
}

// FiscalConfig defines the financial year and which dates accept postings.
type FiscalConfig struct {
	YearStart     string         `yaml:"year_start"` // "MM-DD" format, e.g. "04-01"
	Open          []WindowConfig `yaml:"open,omitempty"`
	ClosedPeriods []string       `yaml:"closed_periods,omitempty"` // "YYYY-MM"
}

// WindowConfig is an inclusive range of open dates, "YYYY-MM-DD".
type WindowConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "memory"
	Path   string `yaml:"path,omitempty"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// ExportConfig controls CSV exports and their git history.
type ExportConfig struct {
	Dir         string `yaml:"dir"`
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// AuditConfig locates the append-only audit trail.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// Load reads a forecourt.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new station.
func Default(businessName, tenant string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name:   businessName,
			Tenant: tenant,
		},
		Fiscal: FiscalConfig{
			YearStart: "04-01",
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "books.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Export: ExportConfig{
			Dir:         "exports",
			AutoCommit:  true,
			AuthorName:  "Forecourt",
			AuthorEmail: "books@forecourt.local",
		},
		Audit: AuditConfig{
			Path: "logs/audit-log.csv",
		},
	}
}

// Validate checks the fields that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Business.Tenant == "" {
		return fmt.Errorf("business.tenant is required")
	}
	if _, _, err := fiscal.ParseYearStart(c.Fiscal.YearStart); err != nil {
		return fmt.Errorf("fiscal.year_start: %w", err)
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("store.driver %q: want sqlite or memory", c.Store.Driver)
	}
	return nil
}

// Calendar builds the posting calendar. Without explicit open windows the
// financial year containing now is open.
func (c *Config) Calendar(now time.Time) (*fiscal.Static, error) {
	month, day, err := fiscal.ParseYearStart(c.Fiscal.YearStart)
	if err != nil {
		return nil, fmt.Errorf("fiscal.year_start: %w", err)
	}
	windows := make([]fiscal.Window, 0, len(c.Fiscal.Open))
	for i, w := range c.Fiscal.Open {
		start, err := time.Parse(time.DateOnly, w.Start)
		if err != nil {
			return nil, fmt.Errorf("fiscal.open[%d].start: %w", i, err)
		}
		end, err := time.Parse(time.DateOnly, w.End)
		if err != nil {
			return nil, fmt.Errorf("fiscal.open[%d].end: %w", i, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("fiscal.open[%d]: ends before it starts", i)
		}
		windows = append(windows, fiscal.Window{Start: start, End: end})
	}
	if len(windows) == 0 {
		windows = append(windows, fiscal.FinancialYear(now, month, day))
	}
	for i, p := range c.Fiscal.ClosedPeriods {
		if _, err := time.Parse("2006-01", p); err != nil {
			return nil, fmt.Errorf("fiscal.closed_periods[%d]: %w", i, err)
		}
	}
	return fiscal.NewStatic(windows, nil, c.Fiscal.ClosedPeriods), nil
}
