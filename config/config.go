package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment  string
	HTTPPort     string
	HTTPSPort    string
	Domains      []string
	CertCacheDir string
	LogDir       string

	// Embedding backend. The same endpoint serves ingestion and queries;
	// mixing models would make the stored vectors incomparable.
	EmbeddingEndpoint  string
	EmbeddingModel     string
	EmbeddingAPIKey    string
	EmbeddingDimension int

	// Vector index. Backend selects among memory, pinecone and pgvector.
	VectorBackend     string
	IndexName         string
	IndexMetric       string
	IndexCloud        string
	IndexRegion       string
	IndexReadyTimeout time.Duration
	PineconeAPIKey    string
	PineconeControlURL string
	DatabaseURL       string
	ReindexInterval   time.Duration

	ChunkSize int
	TopK      int

	OCRLanguages []string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	TwilioToNumber   string
}

var isTest bool

func init() {
	isTest = os.Getenv("GO_ENVIRONMENT") == "test"
	if !isTest {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Error loading .env file:", err)
		}
	}
}

func Load() Config {
	return Config{
		Environment:  getEnv("ENVIRONMENT", "development"),
		HTTPPort:     getEnv("HTTP_PORT", "8086"),
		HTTPSPort:    getEnv("HTTPS_PORT", "443"),
		Domains:      strings.Split(getEnv("DOMAIN", "example.com"), ","),
		CertCacheDir: getEnv("CERT_CACHE_DIR", "/etc/letsencrypt/live/example.com"),
		LogDir:       getEnv("LOG_DIR", "logs"),

		EmbeddingEndpoint:  getEnv("EMBEDDING_ENDPOINT", "http://localhost:8080/embed"),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "sentence-transformers/all-mpnet-base-v2"),
		EmbeddingAPIKey:    getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", 768),

		VectorBackend:      getEnv("VECTOR_BACKEND", "memory"),
		IndexName:          getEnv("INDEX_NAME", "surgical-assistant"),
		IndexMetric:        getEnv("INDEX_METRIC", "cosine"),
		IndexCloud:         getEnv("INDEX_CLOUD", "aws"),
		IndexRegion:        getEnv("INDEX_REGION", "us-east-1"),
		IndexReadyTimeout:  time.Duration(getEnvAsInt("INDEX_READY_TIMEOUT", 120)) * time.Second,
		PineconeAPIKey:     getEnv("PINECONE_API_KEY", ""),
		PineconeControlURL: getEnv("PINECONE_CONTROL_URL", "https://api.pinecone.io"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		ReindexInterval:    time.Duration(getEnvAsInt("REINDEX_INTERVAL", 3600)) * time.Second,

		ChunkSize: getEnvAsInt("CHUNK_SIZE", 512),
		TopK:      getEnvAsInt("TOP_K", 1),

		OCRLanguages: strings.Split(getEnv("OCR_LANGUAGES", "eng"), ","),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		TwilioToNumber:   getEnv("TWILIO_TO_NUMBER", ""),
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
