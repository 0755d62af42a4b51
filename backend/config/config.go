package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Listen is the local development address. PublicListen is used instead
	// when the public_server flag is on in the variables file.
	Listen       string `yaml:"listen"`
	PublicListen string `yaml:"public_listen"`

	// DataDir holds the flat files: users.txt, variables.txt,
	// unlock_secret.txt, version.txt.
	DataDir string `yaml:"data_dir"`

	Dataset DatasetConfig `yaml:"dataset"`
	Session SessionConfig `yaml:"session"`
	Search  SearchConfig  `yaml:"search"`
	Audit   AuditConfig   `yaml:"audit"`
	TLS     TLSConfig     `yaml:"tls"`
}

type DatasetConfig struct {
	Dir      string `yaml:"dir"`
	Primary  string `yaml:"primary"`  // used when the primary_dataset flag is on
	Fallback string `yaml:"fallback"` // used otherwise
}

type SessionConfig struct {
	Secret  string        `yaml:"secret"`
	Timeout time.Duration `yaml:"timeout"`

	// InvalidateOnNav clears an authenticated session on any page view
	// except the one right after login. Historical deployments differ on
	// this, so it is a switch rather than a constant.
	InvalidateOnNav bool `yaml:"invalidate_on_nav"`
}

type SearchConfig struct {
	// FoldCase makes restricted-mode substring matching case-insensitive.
	FoldCase bool `yaml:"fold_case"`
}

type AuditConfig struct {
	DBPath string `yaml:"db_path"`
}

type TLSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cert    string `yaml:"cert"`
	Key     string `yaml:"key"`
}

var C Config

func Load() error {
	// Defaults
	C = Config{
		Listen:       "127.0.0.1:5000",
		PublicListen: ":52025",
		DataDir:      "data",
		Dataset: DatasetConfig{
			Dir:      "pages",
			Primary:  "all.csv",
			Fallback: "all_vrai.csv",
		},
		Session: SessionConfig{
			Timeout:         24 * time.Hour,
			InvalidateOnNav: true,
		},
		Audit: AuditConfig{
			DBPath: "audit.db",
		},
	}

	// Load from YAML if exists
	if data, err := os.ReadFile("config.yaml"); err == nil {
		if err := yaml.Unmarshal(data, &C); err != nil {
			return err
		}
	}

	// Environment overrides
	if v := os.Getenv("LISTEN"); v != "" {
		C.Listen = v
	}
	if v := os.Getenv("PUBLIC_LISTEN"); v != "" {
		C.PublicListen = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		C.DataDir = v
	}
	if v := os.Getenv("DATASET_DIR"); v != "" {
		C.Dataset.Dir = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		C.Session.Secret = v
	}
	if v := os.Getenv("SESSION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			C.Session.Timeout = d
		}
	}
	if v := os.Getenv("AUDIT_DB_PATH"); v != "" {
		C.Audit.DBPath = v
	}
	if v := os.Getenv("TLS_ENABLED"); v == "true" {
		C.TLS.Enabled = true
	}
	if v := os.Getenv("TLS_CERT"); v != "" {
		C.TLS.Cert = v
	}
	if v := os.Getenv("TLS_KEY"); v != "" {
		C.TLS.Key = v
	}

	return nil
}

func (c *Config) UsersPath() string   { return filepath.Join(c.DataDir, "users.txt") }
func (c *Config) FlagsPath() string   { return filepath.Join(c.DataDir, "variables.txt") }
func (c *Config) UnlockPath() string  { return filepath.Join(c.DataDir, "unlock_secret.txt") }
func (c *Config) VersionPath() string { return filepath.Join(c.DataDir, "version.txt") }

// DatasetPath picks the CSV file according to the primary_dataset flag.
func (c *Config) DatasetPath(primary bool) string {
	name := c.Dataset.Fallback
	if primary {
		name = c.Dataset.Primary
	}
	return filepath.Join(c.Dataset.Dir, name)
}

// ListenAddr picks the address according to the public_server flag.
func (c *Config) ListenAddr(public bool) string {
	if public {
		return c.PublicListen
	}
	return c.Listen
}
