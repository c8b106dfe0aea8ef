package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mslinn/perftrend/pkg/buildrange"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.DatabasePath == "" {
		t.Error("DatabasePath should not be empty")
	}

	if cfg.Store != StoreSQLite {
		t.Errorf("Expected Store='sqlite', got '%s'", cfg.Store)
	}

	if cfg.Glob != "**/*.log" {
		t.Errorf("Expected Glob='**/*.log', got '%s'", cfg.Glob)
	}

	if cfg.Marker != "jmeter.reporters.Summariser:" {
		t.Errorf("Expected default summariser marker, got '%s'", cfg.Marker)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configPath := filepath.Join(tempDir, "test-config.yaml")

	cfg := DefaultConfig()
	cfg.DatabasePath = "/tmp/test.db"
	cfg.Store = StoreRedis
	cfg.RedisDB = 3
	cfg.Report = "summary.log"
	cfg.Range = buildrange.Config{Mode: buildrange.ModeDate, FirstDay: "01/03/2024", LastDay: "31/03/2024"}

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}

	loadedCfg := DefaultConfig()
	if err := loadFromFile(loadedCfg, configPath); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loadedCfg.DatabasePath != cfg.DatabasePath {
		t.Errorf("DatabasePath mismatch: expected '%s', got '%s'", cfg.DatabasePath, loadedCfg.DatabasePath)
	}
	if loadedCfg.Store != cfg.Store {
		t.Errorf("Store mismatch: expected '%s', got '%s'", cfg.Store, loadedCfg.Store)
	}
	if loadedCfg.RedisDB != 3 {
		t.Errorf("RedisDB mismatch: expected 3, got %d", loadedCfg.RedisDB)
	}
	if loadedCfg.Report != "summary.log" {
		t.Errorf("Report mismatch: expected 'summary.log', got '%s'", loadedCfg.Report)
	}
	if loadedCfg.Range != cfg.Range {
		t.Errorf("Range mismatch: expected %+v, got %+v", cfg.Range, loadedCfg.Range)
	}
}

func TestLoadWithEnvironmentOverrides(t *testing.T) {
	t.Setenv("PERFTREND_DB", "/env/test.db")
	t.Setenv("PERFTREND_STORE", "redis")
	t.Setenv("PERFTREND_REDIS_ADDR", "cache:6380")
	t.Setenv("PERFTREND_LOG_LEVEL", "debug")
	t.Setenv("PERFTREND_WORKERS", "3")
	t.Setenv("PERFTREND_CONFIG", "/nonexistent/config")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.DatabasePath != "/env/test.db" {
		t.Errorf("Expected DatabasePath from env '/env/test.db', got '%s'", cfg.DatabasePath)
	}
	if cfg.Store != "redis" {
		t.Errorf("Expected Store from env 'redis', got '%s'", cfg.Store)
	}
	if cfg.RedisAddress != "cache:6380" {
		t.Errorf("Expected RedisAddress from env 'cache:6380', got '%s'", cfg.RedisAddress)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected LogLevel from env 'debug', got '%s'", cfg.LogLevel)
	}
	if cfg.Workers != 3 {
		t.Errorf("Expected Workers from env 3, got %d", cfg.Workers)
	}
}

func TestLoadRejectsBadWorkers(t *testing.T) {
	t.Setenv("PERFTREND_CONFIG", "/nonexistent/config")
	t.Setenv("PERFTREND_WORKERS", "many")

	if _, err := Load(); err == nil {
		t.Error("Load should reject a non-numeric PERFTREND_WORKERS")
	}
}

func TestLoadFromConfigFile(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configPath := filepath.Join(tempDir, "perftrend.yaml")
	content := "store: redis\nworkers: 2\nrange:\n  mode: count\n  count: 5\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("PERFTREND_CONFIG", configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Store != StoreRedis || cfg.Workers != 2 {
		t.Errorf("file values not applied: store=%s workers=%d", cfg.Store, cfg.Workers)
	}
	if cfg.Range.Mode != buildrange.ModeCount || cfg.Range.Count != 5 {
		t.Errorf("Range = %+v, want count 5", cfg.Range)
	}
	if cfg.Glob != "**/*.log" {
		t.Errorf("unset keys should keep defaults, Glob = %q", cfg.Glob)
	}
}

func TestGetDatabasePath(t *testing.T) {
	tests := []struct {
		name     string
		dbPath   string
		envVars  map[string]string
		expected func() string
	}{
		{
			name:   "absolute path",
			dbPath: "/absolute/path/to/db",
			expected: func() string {
				return "/absolute/path/to/db"
			},
		},
		{
			name:   "home directory expansion",
			dbPath: "~/perftrend/test.db",
			expected: func() string {
				home, _ := os.UserHomeDir()
				return filepath.Join(home, "perftrend/test.db")
			},
		},
		{
			name:    "environment variable expansion",
			dbPath:  "$work/perftrend.db",
			envVars: map[string]string{"work": "/mnt/f/work"},
			expected: func() string {
				return "/mnt/f/work/perftrend.db"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}
			cfg := &Config{DatabasePath: tt.dbPath}
			got := cfg.GetDatabasePath()
			expected := tt.expected()
			if got != expected {
				t.Errorf("GetDatabasePath() = %v, want %v", got, expected)
			}
		})
	}
}

func TestUseDatabaseOverridesRedis(t *testing.T) {
	t.Setenv("PERFTREND_CONFIG", "/nonexistent/config")
	t.Setenv("PERFTREND_STORE", "redis")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Store != StoreRedis {
		t.Fatalf("Store = %q, want redis before the override", cfg.Store)
	}

	cfg.UseDatabase("/tmp/cli.db")

	if cfg.Store != StoreSQLite {
		t.Errorf("Store = %q, want %q after UseDatabase", cfg.Store, StoreSQLite)
	}
	if cfg.GetDatabasePath() != "/tmp/cli.db" {
		t.Errorf("GetDatabasePath() = %q, want /tmp/cli.db", cfg.GetDatabasePath())
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("PERFTREND_CONFIG", "/custom/config/path")
	path := GetConfigPath()
	if path != "/custom/config/path" {
		t.Errorf("GetConfigPath() with env = %v, want /custom/config/path", path)
	}

	t.Setenv("PERFTREND_CONFIG", "")
	path = GetConfigPath()
	if path == "" {
		t.Error("GetConfigPath() should not return empty string")
	}
	if !filepath.IsAbs(path) && path != ".perftrend.yaml" {
		t.Errorf("GetConfigPath() should return absolute path or relative fallback, got %v", path)
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configPath := filepath.Join(tempDir, "nested", "dir", "config.yaml")

	cfg := DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save should create parent directories: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created in nested directory")
	}
}

func TestValidateDatabase_CreatesDirectory(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "db_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "nested", "dir", "test.db")
	cfg := &Config{DatabasePath: dbPath}

	if err := cfg.ValidateDatabase(); err != nil {
		t.Fatalf("ValidateDatabase() failed: %v", err)
	}

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("ValidateDatabase() did not create database directory")
	}

	if err := (&Config{}).ValidateDatabase(); err == nil {
		t.Error("ValidateDatabase() with empty path should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown store", func(c *Config) { c.Store = "mongo" }, true},
		{"redis without address", func(c *Config) { c.Store = StoreRedis; c.RedisAddress = "" }, true},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }, true},
		{"bad chart kind", func(c *Config) { c.SummarizerChart = "latency" }, true},
		{"bad range mode", func(c *Config) { c.Range.Mode = "weekly" }, true},
		{"step alias", func(c *Config) { c.Range.Mode = "step" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestSetAndGet(t *testing.T) {
	cfg := DefaultConfig()

	for _, key := range Keys {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q) failed: %v", key, err)
		}
	}

	sets := map[string]string{
		"database":        "/data/p.db",
		"workers":         "6",
		"range.mode":      "count",
		"range.count":     "10",
		"range.first_day": "01/02/2024",
		"report":          "summary.log",
	}
	for key, value := range sets {
		if err := cfg.Set(key, value); err != nil {
			t.Fatalf("Set(%q, %q) failed: %v", key, value, err)
		}
		got, err := cfg.Get(key)
		if err != nil {
			t.Fatalf("Get(%q) failed: %v", key, err)
		}
		if got != value {
			t.Errorf("Get(%q) = %q, want %q", key, got, value)
		}
	}

	if err := cfg.Set("workers", "lots"); err == nil {
		t.Error("Set workers to a non-number should fail")
	}
	if err := cfg.Set("range.mode", "weekly"); err == nil {
		t.Error("Set range.mode to an unknown mode should fail")
	}
	if cfg.Range.Mode != buildrange.ModeCount {
		t.Errorf("failed Set changed range.mode to %q", cfg.Range.Mode)
	}
	if err := cfg.Set("remote_host", "x"); err == nil {
		t.Error("Set with an unknown key should fail")
	}
	if _, err := cfg.Get("remote_host"); err == nil {
		t.Error("Get with an unknown key should fail")
	}
}
