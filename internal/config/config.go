// Package config loads the service configuration from environment variables,
// applying defaults and validating ranges. Server, logging, storage, HTTP
// protection, campaign and transport settings all live here.
package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "event-campaigns")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// CampaignConfig tunes dispatching and scheduling.
type CampaignConfig struct {
	SchedulerInterval   time.Duration // SCHEDULER_INTERVAL; 0 disables the in-process ticker
	SchedulerBatchLimit int           // SCHEDULER_BATCH_LIMIT; max schedules per tick (0 = all)
	DispatchConcurrency int           // DISPATCH_CONCURRENCY in [1..32]
	DefaultSendHour     int           // DEFAULT_SEND_HOUR in [0..23], event-local
	RSVPBaseURL         string        // RSVP_BASE_URL, public RSVP page root
}

// TransportConfig selects and tunes the outbound message gateway.
type TransportConfig struct {
	Kind        string  // TRANSPORT: log|whatsapp
	RPS         float64 // TRANSPORT_RPS; <= 0 disables throttling
	Burst       int     // TRANSPORT_BURST
	DataDir     string  // WHATSAPP_DATA_DIR, device session store
	CountryCode string  // WHATSAPP_COUNTRY_CODE, e.g. "972"
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBPath string // SQLite path

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Campaigns
	Campaign  CampaignConfig
	Transport TransportConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBPath: getenv("DB_PATH", "campaigns.db"),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Campaigns
		Campaign: CampaignConfig{
			SchedulerInterval:   getdur("SCHEDULER_INTERVAL", time.Minute),
			SchedulerBatchLimit: getint("SCHEDULER_BATCH_LIMIT", 100),
			DispatchConcurrency: getint("DISPATCH_CONCURRENCY", 1),
			DefaultSendHour:     getint("DEFAULT_SEND_HOUR", 10),
			RSVPBaseURL:         strings.TrimRight(getenv("RSVP_BASE_URL", "http://localhost:8080"), "/"),
		},
		Transport: TransportConfig{
			Kind:        strings.ToLower(getenv("TRANSPORT", "log")),
			RPS:         getfloat("TRANSPORT_RPS", 1.0),
			Burst:       getint("TRANSPORT_BURST", 1),
			DataDir:     getenv("WHATSAPP_DATA_DIR", "whatsapp"),
			CountryCode: getenv("WHATSAPP_COUNTRY_CODE", "972"),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "event-campaigns"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	if cfg.Campaign.SchedulerInterval < 0 {
		return cfg, errors.New("SCHEDULER_INTERVAL must be >= 0")
	}
	if cfg.Campaign.SchedulerBatchLimit < 0 {
		return cfg, errors.New("SCHEDULER_BATCH_LIMIT must be >= 0")
	}
	if cfg.Campaign.DispatchConcurrency < 1 || cfg.Campaign.DispatchConcurrency > 32 {
		return cfg, errors.New("DISPATCH_CONCURRENCY must be between 1 and 32")
	}
	if cfg.Campaign.DefaultSendHour < 0 || cfg.Campaign.DefaultSendHour > 23 {
		return cfg, errors.New("DEFAULT_SEND_HOUR must be between 0 and 23")
	}
	if u, err := url.Parse(cfg.Campaign.RSVPBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return cfg, errors.New("RSVP_BASE_URL must be an absolute URL")
	}
	switch cfg.Transport.Kind {
	case "log":
	case "whatsapp":
		if strings.TrimSpace(cfg.Transport.DataDir) == "" {
			return cfg, errors.New("WHATSAPP_DATA_DIR must not be empty")
		}
	default:
		return cfg, errors.New("TRANSPORT must be one of: log, whatsapp")
	}
	if cfg.Transport.RPS > 0 && cfg.Transport.Burst < 1 {
		return cfg, errors.New("TRANSPORT_BURST must be >= 1")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
