package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultFileName = "ledgertx.yaml"
)

type Config struct {
	DataDir  string         `yaml:"-"`
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	Log      LogConfig      `yaml:"log"`
	Events   EventsConfig   `yaml:"events"`
	Ledger   LedgerConfig   `yaml:"ledger"`
}

type SQLiteConfig struct {
	Path          string `yaml:"path"`
	AuditPath     string `yaml:"audit_path"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
}

type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
}

type LogConfig struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
}

type EventsConfig struct {
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
}

type LedgerConfig struct {
	AllowNegativeBalance bool          `yaml:"allow_negative_balance"`
	Seed                 []SeedAccount `yaml:"seed"`
}

type SeedAccount struct {
	Name    string `yaml:"name"`
	Balance string `yaml:"balance"`
}

// New returns the defaults rooted at dataDir.
func New(dataDir string) (Config, error) {
	if dataDir == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	return Config{
		DataDir: dataDir,
		Driver:  DriverSQLite,
		SQLite: SQLiteConfig{
			Path:          filepath.Join(dataDir, ".ledgertx", "ledger.db"),
			AuditPath:     filepath.Join(dataDir, ".ledgertx", "audit.db"),
			BusyTimeoutMS: 5000,
		},
		Postgres: PostgresConfig{MaxConns: 4},
		Log:      LogConfig{Mode: "dev", Level: "info"},
		Events:   EventsConfig{Exchange: "ledger_events"},
		Ledger: LedgerConfig{
			Seed: []SeedAccount{
				{Name: "alice", Balance: "1000.00"},
				{Name: "bob", Balance: "2000.00"},
			},
		},
	}, nil
}

// Load layers the YAML file and LEDGERTX_* environment variables over the
// defaults. An empty file falls back to <dataDir>/ledgertx.yaml when present.
func Load(dataDir, file string) (Config, error) {
	cfg, err := New(dataDir)
	if err != nil {
		return Config{}, err
	}
	explicit := file != ""
	if !explicit {
		file = filepath.Join(dataDir, DefaultFileName)
	}
	if err := cfg.mergeFile(file, explicit); err != nil {
		return Config{}, err
	}
	cfg.mergeEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(payload, c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() {
	c.Driver = envString("LEDGERTX_DRIVER", c.Driver)
	c.SQLite.Path = envString("LEDGERTX_SQLITE_PATH", c.SQLite.Path)
	c.SQLite.AuditPath = envString("LEDGERTX_SQLITE_AUDIT_PATH", c.SQLite.AuditPath)
	c.SQLite.BusyTimeoutMS = envInt("LEDGERTX_SQLITE_BUSY_TIMEOUT_MS", c.SQLite.BusyTimeoutMS)
	c.Postgres.DSN = envString("LEDGERTX_POSTGRES_DSN", c.Postgres.DSN)
	c.Log.Mode = envString("LEDGERTX_LOG_MODE", c.Log.Mode)
	c.Log.Level = envString("LEDGERTX_LOG_LEVEL", c.Log.Level)
	c.Events.AMQPURL = envString("LEDGERTX_AMQP_URL", c.Events.AMQPURL)
	c.Ledger.AllowNegativeBalance = envBool("LEDGERTX_ALLOW_NEGATIVE_BALANCE", c.Ledger.AllowNegativeBalance)
}

func (c Config) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.SQLite.Path == "" || c.SQLite.AuditPath == "" {
			return fmt.Errorf("sqlite path and audit_path are required")
		}
		if filepath.Clean(c.SQLite.Path) == filepath.Clean(c.SQLite.AuditPath) {
			return fmt.Errorf("sqlite audit_path must differ from path")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			return fmt.Errorf("postgres dsn is required for driver %q", c.Driver)
		}
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	for _, seed := range c.Ledger.Seed {
		if strings.TrimSpace(seed.Name) == "" {
			return fmt.Errorf("seed account name is required")
		}
		if _, err := decimal.NewFromString(seed.Balance); err != nil {
			return fmt.Errorf("seed account %s: invalid balance %q", seed.Name, seed.Balance)
		}
	}
	return nil
}

func envString(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
