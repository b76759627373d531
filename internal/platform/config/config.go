// Package config builds typed configuration from environment variables so
// main stays lean. Every tunable the pipeline depends on (retry budgets,
// backoff, per-stage timeouts) lives here rather than as inline constants.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates all service configuration.
type Config struct {
	HTTP      HTTP
	Pipeline  Pipeline
	Providers Providers
	Reasoning Reasoning
	Artifacts Artifacts
	Redis     Redis
	Postgres  Postgres
	Kafka     Kafka
	Email     Email
}

// HTTP captures server level configuration.
type HTTP struct {
	Addr string
}

// Pipeline holds the orchestrator's retry and timeout policy. Attempts counts
// total tries, not retries: 3 means one call plus two retries.
type Pipeline struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffFactor     float64
	ExtractionTimeout time.Duration
	ProviderTimeout   time.Duration
	ReasoningTimeout  time.Duration
	NotifyTimeout     time.Duration
}

// Providers configures the extraction and screening service endpoints.
type Providers struct {
	IDCheckURL       string
	WatchmanURL      string
	WatchmanKey      string
	OpenSanctionsURL string
	OpenSanctionsKey string
	DilisenseURL     string
	DilisenseKey     string
}

// Reasoning configures the generative analysis service.
type Reasoning struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Artifacts configures where uploaded documents and generated reports live.
type Artifacts struct {
	UploadDir string
	ReportDir string
}

// Redis configures the optional Redis-backed job store.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Postgres configures the optional Postgres-backed job store.
type Postgres struct {
	URL string
}

// Kafka configures the optional audit event sink.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Email configures the SendGrid notifier.
type Email struct {
	APIKey    string
	FromEmail string
	BaseURL   string
}

// FromEnv builds the full configuration with development-friendly defaults.
func FromEnv() Config {
	return Config{
		HTTP: HTTP{
			Addr: envStr("IDVET_ADDR", ":8080"),
		},
		Pipeline: Pipeline{
			MaxAttempts:       envInt("PIPELINE_MAX_ATTEMPTS", 3),
			BackoffBase:       envDuration("PIPELINE_BACKOFF_BASE", 500*time.Millisecond),
			BackoffFactor:     envFloat("PIPELINE_BACKOFF_FACTOR", 2.0),
			ExtractionTimeout: envDuration("PIPELINE_EXTRACTION_TIMEOUT", 30*time.Second),
			ProviderTimeout:   envDuration("PIPELINE_PROVIDER_TIMEOUT", 15*time.Second),
			ReasoningTimeout:  envDuration("PIPELINE_REASONING_TIMEOUT", 2*time.Minute),
			NotifyTimeout:     envDuration("PIPELINE_NOTIFY_TIMEOUT", 10*time.Second),
		},
		Providers: Providers{
			IDCheckURL:       envStr("ID_CHECK_URL", "https://idcheck.nxu.ae/api/id"),
			WatchmanURL:      envStr("WATCHMAN_URL", "https://watchman.nxu.ae/search"),
			WatchmanKey:      os.Getenv("WATCHMAN_API_KEY"),
			OpenSanctionsURL: envStr("OPENSANCTIONS_URL", "https://api.opensanctions.org/match/default"),
			OpenSanctionsKey: os.Getenv("OPENSANCTIONS_API_KEY"),
			DilisenseURL:     envStr("DILISENSE_URL", "https://api.dilisense.com/v1/media/checkIndividual"),
			DilisenseKey:     os.Getenv("DILISENSE_API_KEY"),
		},
		Reasoning: Reasoning{
			BaseURL: envStr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   envStr("OPENAI_MODEL", "gpt-4o"),
		},
		Artifacts: Artifacts{
			UploadDir: envStr("UPLOAD_DIR", "uploads"),
			ReportDir: envStr("REPORT_DIR", "reports"),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: Postgres{
			URL: os.Getenv("DATABASE_URL"),
		},
		Kafka: Kafka{
			Brokers: envList("KAFKA_BROKERS"),
			Topic:   envStr("KAFKA_AUDIT_TOPIC", "idvet.audit.events"),
		},
		Email: Email{
			APIKey:    os.Getenv("SENDGRID_API_KEY"),
			FromEmail: os.Getenv("SENDGRID_FROM_EMAIL"),
			BaseURL:   envStr("SENDGRID_BASE_URL", "https://api.sendgrid.com"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
