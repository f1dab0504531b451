package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAPI          = "https://ns1.hosttech.eu/public/api"
	defaultTimeout      = 5 * time.Minute
	defaultSyncInterval = time.Minute
	defaultJournalPath  = "hosttechdnssync.db"
	defaultMetricsAddr  = ":9090"
	defaultLogLevel     = "info"
	defaultLogEnv       = "prod"
)

type Config struct {
	API          string        `yaml:"api"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	Timeout      time.Duration `yaml:"timeout"`
	Retries      int           `yaml:"retries"`
	DryRun       bool          `yaml:"dryRun"`
	SpecPath     string        `yaml:"specPath"`
	JournalPath  string        `yaml:"journalPath"`
	SyncInterval time.Duration `yaml:"syncInterval"`
	MetricsAddr  string        `yaml:"metricsAddr"`
	Log          Log           `yaml:"log"`
}

type Log struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

// Load reads the YAML config when present, fills defaults and applies
// environment overrides. A missing file is fine; everything can come from the
// environment.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		slog.Default().Debug("no config file, using defaults and environment", "path", path)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			slog.Default().Warn("fail close config file", "path", path, "error", err)
		}
	}

	if cfg.API == "" {
		cfg.API = defaultAPI
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.SyncInterval == 0 {
		cfg.SyncInterval = defaultSyncInterval
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = defaultJournalPath
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = defaultMetricsAddr
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Log.Env == "" {
		cfg.Log.Env = defaultLogEnv
	}

	if api := os.Getenv("HOSTTECH_DNS_API"); api != "" {
		cfg.API = api
	}
	if username := os.Getenv("HOSTTECH_DNS_USERNAME"); username != "" {
		cfg.Username = username
	}
	if password := os.Getenv("HOSTTECH_DNS_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if timeout := os.Getenv("HOSTTECH_DNS_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.Timeout = d
		} else {
			slog.Default().Warn("fail parse timeout from environment", "timeout", timeout, "error", err)
		}
	}
	if retries := os.Getenv("HOSTTECH_DNS_RETRIES"); retries != "" {
		if n, err := strconv.Atoi(retries); err == nil {
			cfg.Retries = n
		} else {
			slog.Default().Warn("fail parse retries from environment", "retries", retries, "error", err)
		}
	}
	if dryRun := os.Getenv("HOSTTECH_DNS_DRYRUN"); dryRun != "" {
		if b, err := strconv.ParseBool(dryRun); err == nil {
			cfg.DryRun = b
		} else {
			slog.Default().Warn("fail parse dryrun from environment", "dryrun", dryRun)
		}
	}
	if specPath := os.Getenv("HOSTTECH_DNS_SPEC_PATH"); specPath != "" {
		cfg.SpecPath = specPath
	}
	if journalPath := os.Getenv("HOSTTECH_DNS_JOURNAL_PATH"); journalPath != "" {
		cfg.JournalPath = journalPath
	}
	if interval := os.Getenv("HOSTTECH_DNS_SYNC_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			cfg.SyncInterval = d
		} else {
			slog.Default().Warn("fail parse sync interval from environment", "interval", interval, "error", err)
		}
	}
	if addr := os.Getenv("HOSTTECH_DNS_METRICS_ADDR"); addr != "" {
		cfg.MetricsAddr = addr
	}
	if level := os.Getenv("HOSTTECH_DNS_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if env := os.Getenv("HOSTTECH_DNS_LOG_ENV"); env != "" {
		cfg.Log.Env = env
	}
	return &cfg, nil
}
