package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration, loaded from the environment.
type Config struct {
	Service       ServiceConfig
	STT           STTConfig
	Classifier    ClassifierConfig
	Verdict       VerdictConfig
	Session       SessionConfig
	Kafka         KafkaConfig
	Redis         RedisConfig
	Archive       ArchiveConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Principal      string
	HTTPPort       string
	GRPCPort       string
	AllowedOrigins []string
}

type STTConfig struct {
	Provider        string // mock, google
	LanguageCode    string
	SampleRateHz    int
	AudioEncoding   string
	Diarization     bool
	MinSpeakerCount int
	MaxSpeakerCount int
	Timeout         time.Duration
}

type ClassifierConfig struct {
	Provider   string // mock, anthropic, gemini
	Model      string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// VerdictConfig carries the product-tuned mapping policy.
type VerdictConfig struct {
	ScamThreshold        float64
	SuspiciousThreshold  float64
	HighRiskConfidence   float64
	MediumRiskConfidence float64
}

type SessionConfig struct {
	MaxSessions   int
	IdleTimeout   time.Duration
	ReapInterval  time.Duration
	MaxFrameBytes int
	WriteQueue    int
	PingInterval  time.Duration
}

type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TopicVerdict string
	TopicSession string
	Principal    string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// ArchiveConfig controls the debug-only raw audio archive.
type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsPort string
}

// Load reads configuration from environment variables, after loading an
// optional .env file. Unparseable values fall back to defaults.
func Load() *Config {
	_ = godotenv.Load()

	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-scam-guard")

	return &Config{
		Service: ServiceConfig{
			Principal:      principal,
			HTTPPort:       envOrDefault("HTTP_PORT", "8000"),
			GRPCPort:       envOrDefault("GRPC_PORT", "50051"),
			AllowedOrigins: envOrDefaultList("ALLOWED_ORIGINS", []string{"*"}),
		},
		STT: STTConfig{
			Provider:        envOrDefault("STT_PROVIDER", "mock"),
			LanguageCode:    envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			SampleRateHz:    envOrDefaultInt("STT_SAMPLE_RATE_HZ", 8000),
			AudioEncoding:   envOrDefault("STT_AUDIO_ENCODING", "LINEAR16"),
			Diarization:     envOrDefaultBool("STT_DIARIZATION", true),
			MinSpeakerCount: envOrDefaultInt("STT_MIN_SPEAKERS", 1),
			MaxSpeakerCount: envOrDefaultInt("STT_MAX_SPEAKERS", 2),
			Timeout:         envOrDefaultDuration("STT_TIMEOUT", 5*time.Second),
		},
		Classifier: ClassifierConfig{
			Provider:   envOrDefault("CLASSIFIER_PROVIDER", "mock"),
			Model:      os.Getenv("CLASSIFIER_MODEL"),
			APIKey:     classifierAPIKey(),
			Timeout:    envOrDefaultDuration("CLASSIFIER_TIMEOUT", 5*time.Second),
			MaxRetries: envOrDefaultInt("CLASSIFIER_MAX_RETRIES", 2),
		},
		Verdict: VerdictConfig{
			ScamThreshold:        envOrDefaultFloat("VERDICT_SCAM_THRESHOLD", 0.80),
			SuspiciousThreshold:  envOrDefaultFloat("VERDICT_SUSPICIOUS_THRESHOLD", 0.50),
			HighRiskConfidence:   envOrDefaultFloat("VERDICT_HIGH_RISK_CONFIDENCE", 0.95),
			MediumRiskConfidence: envOrDefaultFloat("VERDICT_MEDIUM_RISK_CONFIDENCE", 0.60),
		},
		Session: SessionConfig{
			MaxSessions:   envOrDefaultInt("SESSION_MAX_SESSIONS", 100),
			IdleTimeout:   envOrDefaultDuration("SESSION_IDLE_TIMEOUT", 5*time.Minute),
			ReapInterval:  envOrDefaultDuration("SESSION_REAP_INTERVAL", time.Minute),
			MaxFrameBytes: envOrDefaultInt("SESSION_MAX_FRAME_BYTES", 1024*1024),
			WriteQueue:    envOrDefaultInt("SESSION_WRITE_QUEUE", 32),
			PingInterval:  envOrDefaultDuration("SESSION_PING_INTERVAL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:      envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:      envOrDefaultList("KAFKA_BROKERS", nil),
			TopicVerdict: envOrDefault("KAFKA_TOPIC_VERDICT", "scamguard.verdict.emitted"),
			TopicSession: envOrDefault("KAFKA_TOPIC_SESSION", "scamguard.session.lifecycle"),
			Principal:    envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Redis: RedisConfig{
			Enabled:  envOrDefaultBool("REDIS_ENABLED", false),
			Addr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envOrDefaultInt("REDIS_DB", 0),
		},
		Archive: ArchiveConfig{
			Enabled:   envOrDefaultBool("ARCHIVE_ENABLED", false),
			Endpoint:  envOrDefault("ARCHIVE_ENDPOINT", "localhost:9000"),
			AccessKey: os.Getenv("ARCHIVE_ACCESS_KEY"),
			SecretKey: os.Getenv("ARCHIVE_SECRET_KEY"),
			Bucket:    envOrDefault("ARCHIVE_BUCKET", "scamguard-debug-audio"),
			UseSSL:    envOrDefaultBool("ARCHIVE_USE_SSL", false),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
	}
}

// classifierAPIKey picks the provider-specific key when no generic key is set.
func classifierAPIKey() string {
	if v := os.Getenv("CLASSIFIER_API_KEY"); v != "" {
		return v
	}
	switch os.Getenv("CLASSIFIER_PROVIDER") {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	}
	return ""
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
