package cmd

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
)

// ErrVersion is returned when -version was requested.
var ErrVersion = errors.New("version requested")

// Config holds CLI configuration.
type Config struct {
	ConfigDir string
	DBPath    string
	APIURL    string
	APIToken  string
	LogLevel  string
	LogFile   string
	PageSize  int
	Seed      bool
	Version   string
}

// Remote reports whether the app talks to a REST backend instead of the local database.
func (c *Config) Remote() bool { return c.APIURL != "" }

// ParseFlags parses command-line flags and returns configuration.
func ParseFlags(version string) (*Config, error) {
	// Load .env files first so env-based defaults work with existing flag parsing.
	loadDotEnv(".env")
	loadDotEnv(".env.local")

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	config, err := load(loadOptions{
		args:      os.Args[1:],
		getenv:    os.Getenv,
		configDir: filepath.Join(home, ".testdeck"),
		version:   version,
		output:    os.Stderr,
	})
	if errors.Is(err, ErrVersion) {
		fmt.Println("testdeck", version)
		os.Exit(0)
	}
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(config.ConfigDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	settings, err := loadOnboardingSettings(config.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load onboarding settings: %w", err)
	}
	if !config.Remote() && shouldRunOnboarding(settings) {
		settings, err = runOnboarding(config.ConfigDir)
		if err != nil {
			return nil, fmt.Errorf("failed to run onboarding: %w", err)
		}
	}
	applyOnboarding(config, settings)

	return config, nil
}

type loadOptions struct {
	args      []string
	getenv    func(string) string
	configDir string
	version   string
	output    io.Writer
}

// Config file keys. A config.toml looks like:
//
//	[database]
//	path = "/data/testdeck.db"
//	seed = true
//	[api]
//	url = "https://qa.example.com"
//	token = "..."
//	[log]
//	level = "debug"
//	file = "/tmp/testdeck.log"
//	[ui]
//	page_size = 25
const (
	keyDBPath   = "database.path"
	keyDBSeed   = "database.seed"
	keyAPIURL   = "api.url"
	keyAPIToken = "api.token"
	keyLogLevel = "log.level"
	keyLogFile  = "log.file"
	keyPageSize = "ui.page_size"
)

// load resolves configuration with precedence flags > env > config file > defaults.
func load(opts loadOptions) (*Config, error) {
	fs := flag.NewFlagSet("testdeck", flag.ContinueOnError)
	if opts.output != nil {
		fs.SetOutput(opts.output)
	} else {
		fs.SetOutput(io.Discard)
	}

	var (
		dbPath     = fs.String("db", "", "Path to SQLite database file (default: ~/.testdeck/testdeck.db)")
		apiURL     = fs.String("api", "", "Base URL of a testdeck REST backend (or set TESTDECK_API_URL)")
		configPath = fs.String("config", "", "Path to config file (default: ~/.testdeck/config.toml)")
		logLevel   = fs.String("log-level", "", "Log level: debug, info, warn, error")
		pageSize   = fs.Int("page-size", 0, "Default rows per page")
		seed       = fs.Bool("seed", true, "Seed demo data into an empty local database")
		showVer    = fs.Bool("version", false, "Print version and exit")
	)
	if err := fs.Parse(opts.args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}
	if *showVer {
		return nil, ErrVersion
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	config := &Config{
		ConfigDir: opts.configDir,
		DBPath:    filepath.Join(opts.configDir, "testdeck.db"),
		LogLevel:  "info",
		LogFile:   filepath.Join(opts.configDir, "testdeck.log"),
		PageSize:  10,
		Seed:      true,
		Version:   opts.version,
	}

	// Config file
	path, explicit := *configPath, set["config"]
	if path == "" {
		path = filepath.Join(opts.configDir, "config.toml")
	}
	k := koanf.New(".")
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if k.Exists(keyDBPath) {
		config.DBPath = k.String(keyDBPath)
	}
	if k.Exists(keyDBSeed) {
		config.Seed = k.Bool(keyDBSeed)
	}
	config.APIURL = k.String(keyAPIURL)
	config.APIToken = k.String(keyAPIToken)
	if k.Exists(keyLogLevel) {
		config.LogLevel = k.String(keyLogLevel)
	}
	if k.Exists(keyLogFile) {
		config.LogFile = k.String(keyLogFile)
	}
	if k.Exists(keyPageSize) {
		config.PageSize = k.Int(keyPageSize)
	}

	// Environment
	getenv := opts.getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	if v := getenv("TESTDECK_DB"); v != "" {
		config.DBPath = v
	}
	if v := getenv("TESTDECK_API_URL"); v != "" {
		config.APIURL = v
	}
	if v := getenv("TESTDECK_API_TOKEN"); v != "" {
		config.APIToken = v
	}
	if v := getenv("TESTDECK_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
	if v := getenv("TESTDECK_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TESTDECK_PAGE_SIZE %q: %w", v, err)
		}
		config.PageSize = n
	}

	// Flags
	if set["db"] {
		config.DBPath = *dbPath
	}
	if set["api"] {
		config.APIURL = *apiURL
	}
	if set["log-level"] {
		config.LogLevel = *logLevel
	}
	if set["page-size"] {
		config.PageSize = *pageSize
	}
	if set["seed"] {
		config.Seed = *seed
	}

	if err := validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validate(c *Config) error {
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	if c.APIURL != "" {
		if err := validateAPIURL(c.APIURL); err != nil {
			return err
		}
		c.APIURL = strings.TrimRight(c.APIURL, "/")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error", "disabled", "off":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

func validateAPIURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid API URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API URL %q: want http(s)://host", raw)
	}
	return nil
}

func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := parseDotEnvLine(scanner.Text())
		if !ok {
			continue
		}
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}

func parseDotEnvLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")

	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}
	return key, strings.Trim(strings.TrimSpace(value), `"'`), true
}
