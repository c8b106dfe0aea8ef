package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mslinn/perftrend/pkg/buildrange"
	"github.com/mslinn/perftrend/pkg/discover"
	"github.com/mslinn/perftrend/pkg/logging"
	"github.com/mslinn/perftrend/pkg/parser"
	"github.com/mslinn/perftrend/pkg/trend"
)

// Store backends
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config represents the perftrend configuration
type Config struct {
	DatabasePath    string            `yaml:"database"`
	Store           string            `yaml:"store"`
	RedisAddress    string            `yaml:"redis_address"`
	RedisPassword   string            `yaml:"redis_password,omitempty"`
	RedisDB         int               `yaml:"redis_db"`
	Glob            string            `yaml:"glob"`
	Marker          string            `yaml:"marker"`
	Workers         int               `yaml:"workers"`
	LogLevel        string            `yaml:"log_level"`
	Report          string            `yaml:"report,omitempty"`
	SummarizerChart string            `yaml:"summarizer_chart"`
	Range           buildrange.Config `yaml:"range"`
}

// Keys lists the keys accepted by Set and Get
var Keys = []string{
	"database", "store", "redis_address", "redis_password", "redis_db",
	"glob", "marker", "workers", "log_level", "report", "summarizer_chart",
	"range.mode", "range.count", "range.step", "range.first_day", "range.last_day",
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	homeDir, err := os.UserHomeDir()
	dbPath := "perftrend.db"
	if err == nil {
		dbPath = filepath.Join(homeDir, "perftrend", "perftrend.db")
	}
	return &Config{
		DatabasePath:    dbPath,
		Store:           StoreSQLite,
		RedisAddress:    "localhost:6379",
		Glob:            discover.DefaultGlob,
		Marker:          parser.DefaultMarker,
		Workers:         runtime.NumCPU(),
		LogLevel:        "info",
		SummarizerChart: string(trend.KindResponseTime),
		Range:           buildrange.Config{Mode: buildrange.ModeNone},
	}
}

// Load loads configuration from file and environment variables
// Priority: environment variables > config file > defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := loadFromFile(cfg, GetConfigPath()); err != nil {
		// Config file is optional, so we just skip if not found
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if db := os.Getenv("PERFTREND_DB"); db != "" {
		cfg.DatabasePath = db
	}
	if store := os.Getenv("PERFTREND_STORE"); store != "" {
		cfg.Store = store
	}
	if addr := os.Getenv("PERFTREND_REDIS_ADDR"); addr != "" {
		cfg.RedisAddress = addr
	}
	if password := os.Getenv("PERFTREND_REDIS_PASSWORD"); password != "" {
		cfg.RedisPassword = password
	}
	if level := os.Getenv("PERFTREND_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if workers := os.Getenv("PERFTREND_WORKERS"); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return nil, fmt.Errorf("invalid PERFTREND_WORKERS %q: %w", workers, err)
		}
		cfg.Workers = n
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// Save saves the configuration to a file
func (cfg *Config) Save(path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	configPath := os.Getenv("PERFTREND_CONFIG")
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(homeDir, ".perftrend.yaml")
		} else {
			configPath = ".perftrend.yaml"
		}
	}
	return configPath
}

// GetDatabasePath returns the database path, expanding ~/ and environment variables
func (cfg *Config) GetDatabasePath() string {
	path := os.ExpandEnv(cfg.DatabasePath)
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

// UseDatabase points the configuration at the SQLite database at path,
// whatever store the file or environment selected
func (cfg *Config) UseDatabase(path string) {
	cfg.DatabasePath = path
	cfg.Store = StoreSQLite
}

// ValidateDatabase checks the database path and creates its directory
func (cfg *Config) ValidateDatabase() error {
	path := cfg.GetDatabasePath()
	if path == "" {
		return fmt.Errorf("database path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

// Validate checks every setting that can be checked without opening a store
func (cfg *Config) Validate() error {
	switch cfg.Store {
	case StoreSQLite:
		if cfg.DatabasePath == "" {
			return fmt.Errorf("database path is empty")
		}
	case StoreRedis:
		if cfg.RedisAddress == "" {
			return fmt.Errorf("redis_address is empty")
		}
	default:
		return fmt.Errorf("unknown store %q (use %s or %s)", cfg.Store, StoreSQLite, StoreRedis)
	}

	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	if _, err := logging.New(cfg.LogLevel); err != nil {
		return err
	}
	if _, err := trend.ParseChartKind(cfg.SummarizerChart); err != nil {
		return err
	}
	if _, err := buildrange.ParseMode(string(cfg.Range.Mode)); err != nil {
		return err
	}
	if _, err := discover.Compile(discover.SplitList(cfg.Glob)); err != nil {
		return err
	}
	return nil
}

// Set assigns a configuration value by key
func (cfg *Config) Set(key, value string) error {
	atoi := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: %q is not a number", key, value)
		}
		return n, nil
	}

	var err error
	switch key {
	case "database":
		cfg.DatabasePath = value
	case "store":
		cfg.Store = value
	case "redis_address":
		cfg.RedisAddress = value
	case "redis_password":
		cfg.RedisPassword = value
	case "redis_db":
		cfg.RedisDB, err = atoi()
	case "glob":
		cfg.Glob = value
	case "marker":
		cfg.Marker = value
	case "workers":
		cfg.Workers, err = atoi()
	case "log_level":
		cfg.LogLevel = value
	case "report":
		cfg.Report = value
	case "summarizer_chart":
		cfg.SummarizerChart = value
	case "range.mode":
		var mode buildrange.Mode
		if mode, err = buildrange.ParseMode(value); err == nil {
			cfg.Range.Mode = mode
		}
	case "range.count":
		cfg.Range.Count, err = atoi()
	case "range.step":
		cfg.Range.Step, err = atoi()
	case "range.first_day":
		cfg.Range.FirstDay = value
	case "range.last_day":
		cfg.Range.LastDay = value
	default:
		return fmt.Errorf("unknown config key '%s' (valid keys: %s)", key, strings.Join(Keys, ", "))
	}
	return err
}

// Get returns a configuration value by key
func (cfg *Config) Get(key string) (string, error) {
	switch key {
	case "database":
		return cfg.DatabasePath, nil
	case "store":
		return cfg.Store, nil
	case "redis_address":
		return cfg.RedisAddress, nil
	case "redis_password":
		return cfg.RedisPassword, nil
	case "redis_db":
		return strconv.Itoa(cfg.RedisDB), nil
	case "glob":
		return cfg.Glob, nil
	case "marker":
		return cfg.Marker, nil
	case "workers":
		return strconv.Itoa(cfg.Workers), nil
	case "log_level":
		return cfg.LogLevel, nil
	case "report":
		return cfg.Report, nil
	case "summarizer_chart":
		return cfg.SummarizerChart, nil
	case "range.mode":
		return string(cfg.Range.Mode), nil
	case "range.count":
		return strconv.Itoa(cfg.Range.Count), nil
	case "range.step":
		return strconv.Itoa(cfg.Range.Step), nil
	case "range.first_day":
		return cfg.Range.FirstDay, nil
	case "range.last_day":
		return cfg.Range.LastDay, nil
	}
	return "", fmt.Errorf("unknown config key '%s' (valid keys: %s)", key, strings.Join(Keys, ", "))
}
