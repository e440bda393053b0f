package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	LLMProviderGemini = "gemini"
	LLMProviderOpenAI = "openai"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	DB            DBConfig
	LLM           LLMConfig
	NL2SQL        NL2SQLConfig
	Archive       ArchiveConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxUploadBytes int64
	CORSOrigins    []string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// LLMConfig.Enabled is the process-wide capability flag. It is resolved once
// in Load and passed explicitly to the SQL generator and the ranker.
type LLMConfig struct {
	Enabled     bool
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type NL2SQLConfig struct {
	FallbackRoles []string
	DemandsLimit  int
}

type ArchiveConfig struct {
	Enabled          bool
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

// LoadFromEnv reads an optional .env file from the working directory before
// consulting the process environment. Variables already set are not
// overridden by the file.
func LoadFromEnv(serviceName string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("DEMANDDESK_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid DEMANDDESK_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}
	cfg.DB.DSN = dsnFromPGEnv(lookup)

	steps := []func() error{
		func() error { return applyString(lookup, "DEMANDDESK_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "DEMANDDESK_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "DEMANDDESK_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "DEMANDDESK_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "DEMANDDESK_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyInt64(lookup, "DEMANDDESK_HTTP_MAX_UPLOAD_BYTES", &cfg.HTTP.MaxUploadBytes) },
		func() error { return applyList(lookup, "DEMANDDESK_HTTP_CORS_ORIGINS", &cfg.HTTP.CORSOrigins) },
		func() error { return applyString(lookup, "DEMANDDESK_DB_DSN", &cfg.DB.DSN) },
		func() error { return applyInt(lookup, "DEMANDDESK_DB_MAX_OPEN_CONNS", &cfg.DB.MaxOpenConns) },
		func() error { return applyInt(lookup, "DEMANDDESK_DB_MAX_IDLE_CONNS", &cfg.DB.MaxIdleConns) },
		func() error { return applyDuration(lookup, "DEMANDDESK_DB_CONN_MAX_IDLE_TIME", &cfg.DB.ConnMaxIdleTime) },
		func() error { return applyDuration(lookup, "DEMANDDESK_DB_CONN_MAX_LIFETIME", &cfg.DB.ConnMaxLifetime) },
		func() error { return applyString(lookup, "DEMANDDESK_LLM_PROVIDER", &cfg.LLM.Provider) },
		func() error { return applyString(lookup, "DEMANDDESK_LLM_BASE_URL", &cfg.LLM.BaseURL) },
		func() error { return applyString(lookup, "GEMINI_API_KEY", &cfg.LLM.APIKey) },
		func() error { return applyString(lookup, "DEMANDDESK_LLM_API_KEY", &cfg.LLM.APIKey) },
		func() error { return applyString(lookup, "DEMANDDESK_LLM_MODEL", &cfg.LLM.Model) },
		func() error { return applyFloat(lookup, "DEMANDDESK_LLM_TEMPERATURE", &cfg.LLM.Temperature) },
		func() error { return applyDuration(lookup, "DEMANDDESK_LLM_TIMEOUT", &cfg.LLM.Timeout) },
		func() error { return applyList(lookup, "DEMANDDESK_NL2SQL_FALLBACK_ROLES", &cfg.NL2SQL.FallbackRoles) },
		func() error { return applyInt(lookup, "DEMANDDESK_DEMANDS_LIMIT", &cfg.NL2SQL.DemandsLimit) },
		func() error { return applyBool(lookup, "DEMANDDESK_ARCHIVE_ENABLED", &cfg.Archive.Enabled) },
		func() error { return applyString(lookup, "DEMANDDESK_ARCHIVE_ENDPOINT", &cfg.Archive.Endpoint) },
		func() error { return applyString(lookup, "DEMANDDESK_ARCHIVE_REGION", &cfg.Archive.Region) },
		func() error { return applyString(lookup, "DEMANDDESK_ARCHIVE_BUCKET", &cfg.Archive.Bucket) },
		func() error { return applyString(lookup, "DEMANDDESK_ARCHIVE_ACCESS_KEY", &cfg.Archive.AccessKeyID) },
		func() error { return applyString(lookup, "DEMANDDESK_ARCHIVE_SECRET_KEY", &cfg.Archive.SecretAccessKey) },
		func() error { return applyBool(lookup, "DEMANDDESK_ARCHIVE_USE_SSL", &cfg.Archive.UseSSL) },
		func() error { return applyString(lookup, "DEMANDDESK_ARCHIVE_PREFIX", &cfg.Archive.Prefix) },
		func() error {
			return applyBool(lookup, "DEMANDDESK_ARCHIVE_AUTO_CREATE_BUCKET", &cfg.Archive.AutoCreateBucket)
		},
		func() error { return applyBool(lookup, "DEMANDDESK_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "DEMANDDESK_LOG_LEVEL", &cfg.Observability.LogLevel) },
		func() error { return applyBool(lookup, "DEMANDDESK_AUTH_REQUIRED", &cfg.Auth.Required) },
		func() error { return applyString(lookup, "DEMANDDESK_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Config{}, err
		}
	}

	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModel(cfg.LLM.Provider)
	}
	cfg.LLM.Enabled = cfg.LLM.APIKey != ""
	if err := applyBool(lookup, "DEMANDDESK_LLM_ENABLED", &cfg.LLM.Enabled); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	switch cfg.LLM.Provider {
	case LLMProviderGemini, LLMProviderOpenAI:
	default:
		return Config{}, fmt.Errorf("invalid DEMANDDESK_LLM_PROVIDER: %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Enabled && cfg.LLM.APIKey == "" {
		return Config{}, fmt.Errorf("llm is enabled but no api key is configured")
	}
	if cfg.HTTP.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("DEMANDDESK_HTTP_MAX_UPLOAD_BYTES must be > 0")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "demanddesk-api"},
		HTTP: HTTPConfig{
			Address:        ":8000",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxUploadBytes: 32 << 20,
			CORSOrigins:    []string{"*"},
		},
		DB: DBConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:    LLMProviderGemini,
			BaseURL:     "https://api.openai.com",
			Temperature: 0.1,
			Timeout:     30 * time.Second,
		},
		NL2SQL: NL2SQLConfig{
			FallbackRoles: []string{
				"Sr. Frontend Developer",
				"Backend Engineer",
				"DevOps Specialist",
				"React Developer",
			},
			DemandsLimit: 500,
		},
		Archive: ArchiveConfig{
			Enabled:          false,
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "demanddesk-uploads",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			AutoCreateBucket: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18000"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.Archive.UseSSL = true
		cfg.Archive.AutoCreateBucket = false
	}

	return cfg
}

func defaultModel(provider string) string {
	if provider == LLMProviderOpenAI {
		return "gpt-4o-mini"
	}
	return "gemini-2.0-flash"
}

// dsnFromPGEnv builds a postgres URL from the libpq environment variables.
// DEMANDDESK_DB_DSN, when set, replaces it.
func dsnFromPGEnv(lookup LookupFunc) string {
	get := func(key, fallback string) string {
		if raw, ok := lookup(key); ok && strings.TrimSpace(raw) != "" {
			return strings.TrimSpace(raw)
		}
		return fallback
	}
	host := get("PGHOST", "localhost")
	port := get("PGPORT", "5432")
	u := url.URL{
		Scheme:   "postgres",
		Host:     host + ":" + port,
		Path:     "/" + get("PGDATABASE", "DemandPlanning"),
		RawQuery: "sslmode=" + get("PGSSLMODE", "disable"),
	}
	user := get("PGUSER", "postgres")
	if password := get("PGPASSWORD", ""); password != "" {
		u.User = url.UserPassword(user, password)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyList(lookup LookupFunc, key string, dst *[]string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			items = append(items, part)
		}
	}
	*dst = items
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
