package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/faceid/internal/constants"
)

type Config struct {
	Web       WebConfig
	Advisor   AdvisorConfig
	Gemini    GeminiConfig
	OpenAI    OpenAIConfig
	Embedding EmbeddingConfig
	Database  DatabaseConfig
	Matcher   MatcherConfig
	RateLimit RateLimitConfig
	LogLevel  string
}

type WebConfig struct {
	Host           string
	Port           int
	StaticDir      string // optional directory served at "/"
	AllowedOrigins []string
	// ReturnEmbedding includes the query embedding in recognize responses.
	ReturnEmbedding bool
}

type AdvisorConfig struct {
	Provider     string        // "gemini" (default) or "openai"
	Timeout      time.Duration // per outbound generation call
	NotifyQueue  int           // buffered priming notifications
	NotifyWorker int           // concurrent priming workers
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenAIConfig struct {
	Token string
	Model string
}

type EmbeddingConfig struct {
	URL     string        // defaults to http://localhost:8000
	Model   string        // weight set the sidecar loads for face descriptors
	Dim     int           // defaults to 128
	Timeout time.Duration // per extraction call
}

type DatabaseConfig struct {
	Driver       string // "postgres" (default) or "mysql"
	URL          string // connection URL or DSN
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type MatcherConfig struct {
	Threshold float64 // maximum Euclidean distance, exclusive
}

type RateLimitConfig struct {
	PerMinute int    // requests per client per minute, 0 disables
	RedisURL  string // optional, shares counters across replicas
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envNonNegInt is like envInt but accepts zero.
func envNonNegInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads a Go duration string (e.g. "45s").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return defaultVal
	}
	return b
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	return &Config{
		Web: WebConfig{
			Host:            envString("WEB_HOST", "0.0.0.0"),
			Port:            envInt("PORT", 5000),
			StaticDir:       os.Getenv("WEB_STATIC_DIR"),
			AllowedOrigins:  splitList(os.Getenv("WEB_ALLOWED_ORIGINS")),
			ReturnEmbedding: envBool("RECOGNIZE_RETURN_EMBEDDING", false),
		},
		Advisor: AdvisorConfig{
			Provider:     strings.ToLower(envString("ADVISOR_PROVIDER", "gemini")),
			Timeout:      envDuration("ADVISOR_TIMEOUT", 60*time.Second),
			NotifyQueue:  envInt("ADVISOR_NOTIFY_QUEUE", 64),
			NotifyWorker: envInt("ADVISOR_NOTIFY_WORKERS", 2),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  envString("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
			Model: envString("OPENAI_MODEL", "gpt-4.1-mini"),
		},
		Embedding: EmbeddingConfig{
			URL:     os.Getenv("EMBEDDING_URL"),
			Model:   envString("EMBEDDING_MODEL", "face_recognition_model"),
			Dim:     envInt("EMBEDDING_DIM", constants.DefaultEmbeddingDim),
			Timeout: envDuration("EMBEDDING_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(envString("DATABASE_DRIVER", "postgres")),
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Matcher: MatcherConfig{
			Threshold: envFloat("MATCH_THRESHOLD", constants.DefaultDistanceThreshold),
		},
		RateLimit: RateLimitConfig{
			PerMinute: envNonNegInt("RATE_LIMIT_PER_MINUTE", 0),
			RedisURL:  os.Getenv("REDIS_URL"),
		},
		LogLevel: envString("LOG_LEVEL", "info"),
	}
}

// Addr returns host:port for the HTTP listener.
func (c *WebConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// AdvisorAPIKey returns the credential for the selected advisor provider.
func (c *Config) AdvisorAPIKey() string {
	if c.Advisor.Provider == "openai" {
		return c.OpenAI.Token
	}
	return c.Gemini.APIKey
}
