package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	SMTP      SMTPConfig
	Ai        AIConfig
	Retrieval RetrievalConfig
	Session   SessionConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
}

type DatabaseConfig struct {
	// Connection may be empty: the archive is optional and the server runs
	// memory-only without it.
	Connection      string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogQueries      bool
}

type SMTPConfig struct {
	Host         string
	Port         int
	Email        string
	Password     string
	SenderName   string
	EscalationTo string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama", "gemini" or "jina"
	EmbeddingModel    string
	EmbeddingDims     int
	OllamaBaseURL     string
	LLMProvider       string // "ollama" or "huggingface"
	LLMModel          string
	TTSBaseURL        string // empty disables speech synthesis
	TTSModel          string
	GeminiApiKey      string
	JinaApiKey        string
	HuggingFaceApiKey string
}

type RetrievalConfig struct {
	SnapshotDir   string
	TopK          int
	MinSimilarity float64
}

type SessionConfig struct {
	IdleTimeout     time.Duration
	SweepInterval   time.Duration
	MaxTurnDuration time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection:      getEnv("DB_CONNECTION_STRING", ""),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			LogQueries:      getEnvAsBool("DB_LOG_QUERIES", false),
		},
		SMTP: SMTPConfig{
			Host:         getEnv("SMTP_HOST", ""),
			Port:         getEnvAsInt("SMTP_PORT", 587),
			Email:        getEnv("SMTP_EMAIL", ""),
			Password:     getEnv("SMTP_PASSWORD", ""),
			SenderName:   getEnv("SMTP_SENDER_NAME", "VoicePilot"),
			EscalationTo: getEnv("ESCALATION_EMAIL_TO", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingDims:     getEnvAsInt("EMBEDDING_DIMS", 768),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			TTSBaseURL:        getEnv("TTS_BASE_URL", ""),
			TTSModel:          getEnv("TTS_MODEL", "tts-1"),
			GeminiApiKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			JinaApiKey:        getEnv("JINA_API_KEY", ""),
			HuggingFaceApiKey: getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Retrieval: RetrievalConfig{
			SnapshotDir:   getEnv("RETRIEVAL_SNAPSHOT_DIR", "data/snapshots"),
			TopK:          getEnvAsInt("RETRIEVAL_TOP_K", 5),
			MinSimilarity: getEnvAsFloat("RETRIEVAL_MIN_SIMILARITY", 0.7),
		},
		Session: SessionConfig{
			IdleTimeout:     getEnvAsDuration("SESSION_IDLE_TIMEOUT", 10*time.Minute),
			SweepInterval:   getEnvAsDuration("SESSION_SWEEP_INTERVAL", 30*time.Second),
			MaxTurnDuration: getEnvAsDuration("SESSION_MAX_TURN_DURATION", 30*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
