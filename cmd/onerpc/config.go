package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration. Values are layered: defaults, then
// the YAML file, then ONERPC_* environment variables (including those in a
// .env file), then command line flags.
type Config struct {
	Addr        string   `yaml:"addr" validate:"required,hostname_port"`
	Path        string   `yaml:"path" validate:"required,startswith=/"`
	MetricsPath string   `yaml:"metrics_path" validate:"omitempty,startswith=/,nefield=Path"`
	Namespace   string   `yaml:"namespace" validate:"omitempty,namespace"`
	Separator   string   `yaml:"separator" validate:"required,len=1"`
	CORSOrigins []string `yaml:"cors_origins" validate:"dive,required"`
	MaxBatch    int      `yaml:"max_batch" validate:"gte=0"`
	LogLevel    string   `yaml:"log_level" validate:"oneof=debug info warn error"`
	// TrustRequestID reuses well-formed X-Request-ID headers sent by clients.
	TrustRequestID bool `yaml:"trust_request_id"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Addr:        ":8080",
		Path:        "/rpc",
		MetricsPath: "/metrics",
		Namespace:   "API",
		Separator:   "/",
		MaxBatch:    100,
		LogLevel:    "info",
	}
}

// Environment variables read by applyEnv.
const (
	envAddr           = "ONERPC_ADDR"
	envPath           = "ONERPC_PATH"
	envMetricsPath    = "ONERPC_METRICS_PATH"
	envNamespace      = "ONERPC_NAMESPACE"
	envSeparator      = "ONERPC_SEPARATOR"
	envCORSOrigins    = "ONERPC_CORS_ORIGINS"
	envMaxBatch       = "ONERPC_MAX_BATCH"
	envLogLevel       = "ONERPC_LOG_LEVEL"
	envTrustRequestID = "ONERPC_TRUST_REQUEST_ID"
)

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("namespace", validateNamespace)
}

// validateNamespace accepts dot-separated alphanumeric segments, e.g. "API"
// or "Test.V1".
func validateNamespace(fl validator.FieldLevel) bool {
	for _, seg := range strings.Split(strings.Trim(fl.Field().String(), "."), ".") {
		if seg == "" {
			return false
		}
		for _, c := range seg {
			if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
				return false
			}
		}
	}
	return true
}

// LoadConfig builds a Config from defaults, the YAML file at path (if path
// is not empty) and the environment. A missing envFile is not an error.
func LoadConfig(path, envFile string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		defer f.Close()
		if err := decodeConfig(f, &cfg); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("config: %s: %w", envFile, err)
		}
		if m != nil {
			dotenv = m
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// decodeConfig overlays the YAML document in r onto cfg. Unknown keys are
// rejected. An empty document leaves cfg unchanged.
func decodeConfig(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{envAddr, &cfg.Addr},
		{envPath, &cfg.Path},
		{envMetricsPath, &cfg.MetricsPath},
		{envNamespace, &cfg.Namespace},
		{envSeparator, &cfg.Separator},
		{envLogLevel, &cfg.LogLevel},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok {
			*s.dst = v
		}
	}

	if v, ok := lookup(envCORSOrigins); ok {
		cfg.CORSOrigins = splitList(v)
	}
	if v, ok := lookup(envMaxBatch); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", envMaxBatch, err)
		}
		cfg.MaxBatch = n
	}
	if v, ok := lookup(envTrustRequestID); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", envTrustRequestID, err)
		}
		cfg.TrustRequestID = b
	}
	return nil
}

// splitList splits a comma separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: invalid %s (%s=%q)", fe.Field(), fe.Tag(), fmt.Sprint(fe.Value()))
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
