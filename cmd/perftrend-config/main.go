package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/mslinn/perftrend/pkg/config"
)

var version = "dev" // Set by -ldflags during build

func main() {
	var (
		showVersion bool
		showHelp    bool
		configPath  string
	)

	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")
	pflag.StringVar(&configPath, "config", "", "Path to config file (default: ~/.perftrend.yaml)")

	pflag.Parse()

	if showVersion {
		fmt.Printf("perftrend-config version %s\n", version)
		os.Exit(0)
	}

	if showHelp {
		printHelp()
		os.Exit(0)
	}

	args := pflag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Error: subcommand required\n\n")
		printUsage()
		os.Exit(1)
	}

	subcommand := args[0]

	if configPath != "" {
		os.Setenv("PERFTREND_CONFIG", configPath)
	}

	switch subcommand {
	case "init":
		handleInit(args[1:])
	case "set":
		handleSet(args[1:])
	case "get":
		handleGet(args[1:])
	case "show":
		handleShow()
	case "path":
		fmt.Println(config.GetConfigPath())
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown subcommand '%s'\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func handleInit(args []string) {
	var force bool
	flags := pflag.NewFlagSet("init", pflag.ExitOnError)
	flags.BoolVarP(&force, "force", "f", false, "Overwrite existing config file")
	flags.Parse(args)

	configPath := config.GetConfigPath()

	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Fprintf(os.Stderr, "Error: config file already exists at %s\n", configPath)
		fmt.Fprintf(os.Stderr, "Use --force to overwrite\n")
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Created config file at %s\n", configPath)
	fmt.Println("\nDefault configuration:")
	printConfig(cfg)
	fmt.Println("\nEdit the file or use 'perftrend-config set' to customize.")
}

func handleSet(args []string) {
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "Error: 'set' requires KEY and VALUE arguments\n\n")
		fmt.Fprintf(os.Stderr, "Usage: perftrend-config set KEY VALUE\n")
		fmt.Fprintf(os.Stderr, "\nValid keys: %s\n", strings.Join(config.Keys, ", "))
		os.Exit(1)
	}

	key, value := args[0], args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Try running 'perftrend-config init' first\n")
		os.Exit(1)
	}

	if err := cfg.Set(key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Save(config.GetConfigPath()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Set %s = %v\n", key, value)
}

func handleGet(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: 'get' requires KEY argument\n\n")
		fmt.Fprintf(os.Stderr, "Usage: perftrend-config get KEY\n")
		fmt.Fprintf(os.Stderr, "\nValid keys: %s\n", strings.Join(config.Keys, ", "))
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	value, err := cfg.Get(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

func handleShow() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Configuration from: %s\n\n", config.GetConfigPath())
	printConfig(cfg)

	fmt.Println("\nEnvironment variable overrides:")
	for _, env := range []struct{ name, key string }{
		{"PERFTREND_DB", "database"},
		{"PERFTREND_STORE", "store"},
		{"PERFTREND_REDIS_ADDR", "redis_address"},
		{"PERFTREND_REDIS_PASSWORD", "redis_password"},
		{"PERFTREND_LOG_LEVEL", "log_level"},
		{"PERFTREND_WORKERS", "workers"},
	} {
		if v := os.Getenv(env.name); v != "" {
			if env.name == "PERFTREND_REDIS_PASSWORD" {
				v = "****"
			}
			fmt.Printf("  %s=%s (overrides %s)\n", env.name, v, env.key)
		}
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("\n⚠ Configuration problem: %v\n", err)
	}
}

func printConfig(cfg *config.Config) {
	for _, key := range config.Keys {
		value, _ := cfg.Get(key)
		if key == "database" {
			value = cfg.GetDatabasePath()
		}
		if key == "redis_password" && value != "" {
			value = "****"
		}
		fmt.Printf("  %-18s %s\n", key+":", value)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: perftrend-config [OPTIONS] SUBCOMMAND\n\n")
	fmt.Fprintf(os.Stderr, "Manage perftrend configuration\n\n")
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	fmt.Fprintf(os.Stderr, "  init          Create default config file\n")
	fmt.Fprintf(os.Stderr, "  set KEY VAL   Set configuration value\n")
	fmt.Fprintf(os.Stderr, "  get KEY       Get configuration value\n")
	fmt.Fprintf(os.Stderr, "  show          Show all configuration\n")
	fmt.Fprintf(os.Stderr, "  path          Show config file path\n\n")
	pflag.PrintDefaults()
}

func printHelp() {
	fmt.Printf("perftrend-config - Manage perftrend configuration\n\n")
	fmt.Printf("Version: %s\n\n", version)

	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Configuration is stored in ~/.perftrend.yaml by default and can be\n")
	fmt.Printf("  overridden with environment variables.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  perftrend-config [OPTIONS] SUBCOMMAND\n\n")

	fmt.Printf("SUBCOMMANDS:\n")
	fmt.Printf("  init          Create default configuration file\n")
	fmt.Printf("  set KEY VAL   Set a configuration value\n")
	fmt.Printf("  get KEY       Get a configuration value\n")
	fmt.Printf("  show          Display all configuration values\n")
	fmt.Printf("  path          Show the config file path\n\n")

	fmt.Printf("CONFIGURATION KEYS:\n")
	fmt.Printf("  database          Path to SQLite database (default: ~/perftrend/perftrend.db)\n")
	fmt.Printf("  store             sqlite or redis\n")
	fmt.Printf("  redis_address     host:port of the Redis server\n")
	fmt.Printf("  redis_password    Redis password\n")
	fmt.Printf("  redis_db          Redis database number\n")
	fmt.Printf("  glob              Log files to import, separated by ; : or , (default: **/*.log)\n")
	fmt.Printf("  marker            Text identifying summariser lines\n")
	fmt.Printf("  workers           Files parsed in parallel\n")
	fmt.Printf("  log_level         debug, info, warn or error\n")
	fmt.Printf("  report            Report used by perftrend-trend when several exist\n")
	fmt.Printf("  summarizer_chart  responseTime, error or throughput\n")
	fmt.Printf("  range.mode        none, count, nth or date\n")
	fmt.Printf("  range.count       Number of newest runs (count mode)\n")
	fmt.Printf("  range.step        Run number step (nth mode)\n")
	fmt.Printf("  range.first_day   dd/MM/yyyy (date mode)\n")
	fmt.Printf("  range.last_day    dd/MM/yyyy, inclusive (date mode)\n\n")

	fmt.Printf("ENVIRONMENT VARIABLES:\n")
	fmt.Printf("  PERFTREND_CONFIG          Path to config file\n")
	fmt.Printf("  PERFTREND_DB              Override database path\n")
	fmt.Printf("  PERFTREND_STORE           Override store\n")
	fmt.Printf("  PERFTREND_REDIS_ADDR      Override redis_address\n")
	fmt.Printf("  PERFTREND_REDIS_PASSWORD  Override redis_password\n")
	fmt.Printf("  PERFTREND_LOG_LEVEL       Override log_level\n")
	fmt.Printf("  PERFTREND_WORKERS         Override workers\n\n")

	fmt.Printf("OPTIONS:\n")
	pflag.PrintDefaults()

	fmt.Printf("\nEXAMPLES:\n")
	fmt.Printf("  # Keep the last 20 runs in every trend\n")
	fmt.Printf("  perftrend-config set range.mode count\n")
	fmt.Printf("  perftrend-config set range.count 20\n\n")

	fmt.Printf("  # Use a shared Redis server\n")
	fmt.Printf("  perftrend-config set store redis\n")
	fmt.Printf("  perftrend-config set redis_address perf-cache:6379\n\n")
}
