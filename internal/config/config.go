package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/gpv-forecast-service/internal/domain"
)

// Default source: JMA GSM global GPV sample archive.
const (
	DefaultSourceURL = "https://www.data.jma.go.jp/developer/gpv_sample/gsm_gl.zip"
	DefaultMember    = "gsm_gl/Z__C_RJTD_20171205000000_GSM_GPV_Rgl_FD0006_grib2.bin"
	DefaultFilter    = "stepType=instant,numberOfPoints=65160"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DB DBConfig

	// GPV source and ingest settings.
	SourceURL    string
	DataDir      string
	ArchiveName  string
	Member       string
	Filter       domain.Filter
	FetchTimeout time.Duration
	GribDumpPath string
	IngestMode   domain.Mode
	Mapping      domain.Mapping

	// Kafka ingest report publishing, disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string

	// Pushgateway export of ingest metrics, disabled when PushgatewayURL is empty.
	PushgatewayURL string
	PushgatewayJob string
}

// DBConfig holds connection parameters for the relational store.
type DBConfig struct {
	Driver     string
	User       string
	Password   string
	Name       string
	Host       string
	Port       int
	SSLMode    string
	SQLitePath string
	Echo       bool
}

// ArchivePath is where the fetched source archive is cached.
func (c *Config) ArchivePath() string {
	return filepath.Join(c.DataDir, c.ArchiveName)
}

// KafkaEnabled reports whether ingest reports are published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// PushEnabled reports whether ingest metrics are pushed after a run.
func (c *Config) PushEnabled() bool {
	return c.PushgatewayURL != ""
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first when present; real
// environment variables take precedence over it.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	var errs *multierror.Error

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	fetchTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("GPV_FETCH_TIMEOUT", "60s"))
	if err != nil || fetchTimeout <= 0 {
		errs = multierror.Append(errs, errors.New("invalid GPV_FETCH_TIMEOUT"))
	}

	port, err := strconv.Atoi(sharedcfg.EnvOrDefault("DB_PORT", "5432"))
	if err != nil || port <= 0 || port > 65535 {
		errs = multierror.Append(errs, errors.New("invalid DB_PORT"))
	}

	filter, err := domain.ParseFilter(sharedcfg.EnvOrDefault("GPV_FILTER", DefaultFilter))
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("invalid GPV_FILTER: %w", err))
	}

	mode, err := domain.ParseMode(sharedcfg.EnvOrDefault("INGEST_MODE", string(domain.ModeReplace)))
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("invalid INGEST_MODE: %w", err))
	}

	mapping, err := domain.ParseMapping(sharedcfg.EnvOrDefault("INGEST_MAPPING", string(domain.MappingConverted)))
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("invalid INGEST_MAPPING: %w", err))
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8000"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DB: DBConfig{
			Driver:     sharedcfg.EnvOrDefault("DB_DRIVER", "postgres"),
			User:       sharedcfg.EnvOrDefault("DB_USER", "weather"),
			Password:   sharedcfg.EnvOrDefault("DB_PASSWORD", "weatherpass"),
			Name:       sharedcfg.EnvOrDefault("DB_NAME", "weatherdb"),
			Host:       sharedcfg.EnvOrDefault("DB_HOST", "db"),
			Port:       port,
			SSLMode:    sharedcfg.EnvOrDefault("DB_SSLMODE", "disable"),
			SQLitePath: sharedcfg.EnvOrDefault("DB_SQLITE_PATH", "data/weather.db"),
			Echo:       os.Getenv("DB_ECHO") == "true",
		},

		SourceURL:    sharedcfg.EnvOrDefault("GPV_SOURCE_URL", DefaultSourceURL),
		DataDir:      sharedcfg.EnvOrDefault("GPV_DATA_DIR", "data/raw/gsm_gl"),
		ArchiveName:  sharedcfg.EnvOrDefault("GPV_ARCHIVE_NAME", "gsm_gl_sample.zip"),
		Member:       ParseMember(sharedcfg.EnvOrDefault("GPV_MEMBER", DefaultMember)),
		Filter:       filter,
		FetchTimeout: fetchTimeout,
		GribDumpPath: sharedcfg.EnvOrDefault("GRIB_DUMP_PATH", "grib_dump"),
		IngestMode:   mode,
		Mapping:      mapping,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "gpv-ingest-reports"),

		PushgatewayURL: strings.TrimSpace(os.Getenv("PUSHGATEWAY_URL")),
		PushgatewayJob: sharedcfg.EnvOrDefault("PUSHGATEWAY_JOB", "gpv-ingest"),
	}

	switch cfg.DB.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		errs = multierror.Append(errs, fmt.Errorf("DB_DRIVER %q is not one of postgres, mysql, sqlite", cfg.DB.Driver))
	}
	if cfg.SourceURL == "" {
		errs = multierror.Append(errs, errors.New("GPV_SOURCE_URL is required"))
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		errs = multierror.Append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}

	if cfg.PushEnabled() && cfg.PushgatewayJob == "" {
		errs = multierror.Append(errs, errors.New("PUSHGATEWAY_JOB is required when PUSHGATEWAY_URL is set"))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseMember maps "auto" to an empty member name, which makes the extractor
// pick the first archive entry with a grid file suffix.
func ParseMember(s string) string {
	if strings.EqualFold(s, "auto") {
		return ""
	}
	return s
}
