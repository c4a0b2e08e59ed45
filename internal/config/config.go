package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/elks-go/pkg/elks"
)

// Config captures the runtime configuration of the elks command.
type Config struct {
	App     AppConfig
	Elks    ElksConfig
	Tracing TracingConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	LogLevel string
}

// ElksConfig holds the API endpoint and credentials.
type ElksConfig struct {
	APIURL     string
	Username   string
	Password   string
	BatchLimit int
	Timeout    time.Duration
}

// TracingConfig points at an OTLP gRPC collector. An empty Endpoint leaves
// tracing disabled.
type TracingConfig struct {
	Endpoint string
	Insecure bool
}

// Enabled reports whether spans should be exported.
func (c TracingConfig) Enabled() bool {
	return c.Endpoint != ""
}

// Client converts the settings into a client configuration.
func (c ElksConfig) Client() elks.Config {
	return elks.Config{
		APIURL:     c.APIURL,
		BatchLimit: c.BatchLimit,
		Username:   c.Username,
		Password:   c.Password,
		Timeout:    c.Timeout,
	}
}

// Load reads a .env file when present, then the environment, applies
// defaults and validates required values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	cfg.Elks.APIURL = ldr.getString("ELKS_API_URL", elks.DefaultAPIURL, false)
	cfg.Elks.Username = ldr.getString("ELKS_USERNAME", "", true)
	cfg.Elks.Password = ldr.getString("ELKS_PASSWORD", "", true)
	cfg.Elks.BatchLimit = ldr.getInt("ELKS_BATCH_LIMIT", elks.DefaultBatchLimit, false)
	cfg.Elks.Timeout = time.Duration(ldr.getInt("ELKS_TIMEOUT_SECONDS", 30, false)) * time.Second

	cfg.Tracing.Endpoint = ldr.getString("OTEL_EXPORTER_OTLP_ENDPOINT", "", false)
	cfg.Tracing.Insecure = ldr.getBool("OTEL_EXPORTER_OTLP_INSECURE", true, false)

	if cfg.Elks.BatchLimit <= 0 {
		ldr.addError("ELKS_BATCH_LIMIT must be positive")
	}
	if cfg.Elks.Timeout < 0 {
		ldr.addError("ELKS_TIMEOUT_SECONDS must not be negative")
	}

	if err := ldr.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

// lookup returns the trimmed value of key. Missing or blank values are
// reported when required.
func (l *envLoader) lookup(key string, required bool) (string, bool) {
	val, ok := os.LookupEnv(key)
	val = strings.TrimSpace(val)
	if !ok || val == "" {
		if required {
			l.addError(fmt.Sprintf("%s is required", key))
		}
		return "", false
	}
	return val, true
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := l.lookup(key, required); ok {
		return val
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	val, ok := l.lookup(key, required)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid integer", key))
		return def
	}
	return i
}

func (l *envLoader) getBool(key string, def bool, required bool) bool {
	val, ok := l.lookup(key, required)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid boolean", key))
		return def
	}
	return b
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
