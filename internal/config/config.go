package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	MaxUploadMB int64            `json:"max_upload_mb"`
	CORSOrigins []string         `json:"cors_origins"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Database    DatabaseConfig   `json:"database"`
	AI          AIConfig         `json:"ai"`
	RAG         RAGConfig        `json:"rag"`
	FileStore   FileStoreConfig  `json:"file_store"`
	Inbox       InboxConfig      `json:"inbox"`
}

type DatabaseConfig struct {
	DSN            string `json:"dsn"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	User           string `json:"user"`
	Password       string `json:"password"`
	DBName         string `json:"dbname"`
	SSLMode        string `json:"sslmode"`
	ConnectRetries int    `json:"connect_retries"`
	ConnectDelayMs int    `json:"connect_delay_ms"`
}

type AIConfig struct {
	Provider           string      `json:"provider"`
	EmbedProvider      string      `json:"embed_provider"`
	Data               interface{} `json:"data"`
	EmbeddingModel     string      `json:"embedding_model"`
	EmbeddingDimension int         `json:"embedding_dimension"`
	ChatModel          string      `json:"chat_model"`
	Temperature        *float64    `json:"temperature"`
	Timeout            int         `json:"timeout"`
}

// RAGConfig carries every chunking and retrieval default so callers never
// hard-code them.
// ChatTemperature is the sampling temperature; zero is a valid setting.
func (c AIConfig) ChatTemperature() float64 {
	if c.Temperature == nil {
		return 0
	}
	return *c.Temperature
}

type RAGConfig struct {
	ChunkSize         int   `json:"chunk_size"`
	ChunkOverlap      *int  `json:"chunk_overlap"`
	SearchTopK        int   `json:"search_top_k"`
	SearchMaxTopK     int   `json:"search_max_top_k"`
	AskTopK           int   `json:"ask_top_k"`
	AskMaxTopK        int   `json:"ask_max_top_k"`
	IngestConcurrency int   `json:"ingest_concurrency"`
	AtomicIngest      *bool `json:"atomic_ingest"`
}

// Overlap is the configured chunk overlap; zero is a valid setting.
func (c RAGConfig) Overlap() int {
	if c.ChunkOverlap == nil {
		return 0
	}
	return *c.ChunkOverlap
}

func (c RAGConfig) Atomic() bool {
	return c.AtomicIngest == nil || *c.AtomicIngest
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type InboxConfig struct {
	Dir  string `json:"dir"`
	Spec string `json:"spec"`
}

var defaultCORSOrigins = []string{
	"http://localhost:5500",
	"http://127.0.0.1:5500",
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"null",
}

// Load reads the optional JSON config at path, then applies .env and process
// environment overrides, then defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	_ = godotenv.Load()
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.Host, "POSTGRES_HOST")
	setInt(&cfg.Database.Port, "POSTGRES_PORT")
	setString(&cfg.Database.DBName, "POSTGRES_DB")
	setString(&cfg.Database.User, "POSTGRES_USER")
	setString(&cfg.Database.Password, "POSTGRES_PASSWORD")
	setString(&cfg.Database.DSN, "DATABASE_URL")
	setString(&cfg.AI.EmbeddingModel, "EMBEDDING_MODEL")
	setInt(&cfg.AI.EmbeddingDimension, "EMBEDDING_DIMENSION")
	setString(&cfg.AI.ChatModel, "CHAT_MODEL")
	setInt(&cfg.RAG.AskTopK, "TOP_K")
	setInt(&cfg.Port, "PORT")
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		data, _ := cfg.AI.Data.(map[string]interface{})
		if data == nil {
			data = map[string]interface{}{}
		}
		if _, ok := data["api_key"]; !ok {
			data["api_key"] = key
		}
		cfg.AI.Data = data
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 20
	}
	if cfg.CORSOrigins == nil {
		cfg.CORSOrigins = defaultCORSOrigins
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.LogConfig.File == "" {
		cfg.LogConfig.Console = true
	}

	db := &cfg.Database
	if db.Host == "" {
		db.Host = "localhost"
	}
	if db.Port == 0 {
		db.Port = 5432
	}
	if db.DBName == "" {
		db.DBName = "ragdb"
	}
	if db.User == "" {
		db.User = "rag"
	}
	if db.Password == "" {
		db.Password = "ragpass"
	}
	if db.SSLMode == "" {
		db.SSLMode = "disable"
	}
	if db.ConnectRetries <= 0 {
		db.ConnectRetries = 10
	}
	if db.ConnectDelayMs <= 0 {
		db.ConnectDelayMs = 3000
	}

	ai := &cfg.AI
	if ai.Provider == "" {
		ai.Provider = "openai"
	}
	if ai.EmbedProvider == "" {
		ai.EmbedProvider = ai.Provider
	}
	if ai.EmbeddingModel == "" {
		ai.EmbeddingModel = "text-embedding-3-small"
	}
	if ai.EmbeddingDimension == 0 {
		ai.EmbeddingDimension = 1536
	}
	if ai.ChatModel == "" {
		ai.ChatModel = "gpt-4o-mini"
	}
	if ai.Temperature == nil {
		t := 0.2
		ai.Temperature = &t
	}
	if ai.Timeout <= 0 {
		ai.Timeout = 60
	}

	rag := &cfg.RAG
	if rag.ChunkSize <= 0 {
		rag.ChunkSize = 800
	}
	if rag.ChunkOverlap == nil {
		overlap := 120
		rag.ChunkOverlap = &overlap
	}
	if rag.SearchTopK == 0 {
		rag.SearchTopK = 5
	}
	if rag.SearchMaxTopK == 0 {
		rag.SearchMaxTopK = 50
	}
	if rag.AskTopK == 0 {
		rag.AskTopK = 4
	}
	if rag.AskMaxTopK == 0 {
		rag.AskMaxTopK = 20
	}
	if rag.IngestConcurrency <= 0 {
		rag.IngestConcurrency = 4
	}

	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "none"
	}
	if cfg.Inbox.Spec == "" {
		cfg.Inbox.Spec = "*/5 * * * *"
	}
}

func validate(cfg *Config) error {
	if cfg.AI.EmbeddingDimension < 0 {
		return fmt.Errorf("ai.embedding_dimension must be positive")
	}
	if t := cfg.AI.ChatTemperature(); t < 0 || t > 2 {
		return fmt.Errorf("ai.temperature must be within [0, 2]")
	}
	if cfg.RAG.Overlap() < 0 {
		return fmt.Errorf("rag.chunk_overlap must not be negative")
	}
	if cfg.RAG.Overlap() >= cfg.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be smaller than rag.chunk_size")
	}
	if cfg.RAG.SearchMaxTopK < 1 || cfg.RAG.SearchMaxTopK > 50 {
		return fmt.Errorf("rag.search_max_top_k must be within [1, 50]")
	}
	if cfg.RAG.AskMaxTopK < 1 || cfg.RAG.AskMaxTopK > 20 {
		return fmt.Errorf("rag.ask_max_top_k must be within [1, 20]")
	}
	if cfg.RAG.SearchTopK < 1 || cfg.RAG.SearchTopK > cfg.RAG.SearchMaxTopK {
		return fmt.Errorf("rag.search_top_k must be within [1, %d]", cfg.RAG.SearchMaxTopK)
	}
	if cfg.RAG.AskTopK < 1 || cfg.RAG.AskTopK > cfg.RAG.AskMaxTopK {
		return fmt.Errorf("rag.ask_top_k must be within [1, %d]", cfg.RAG.AskMaxTopK)
	}
	switch strings.ToLower(cfg.FileStore.Type) {
	case "none", "local", "s3":
	default:
		return fmt.Errorf("file_store.type must be none, local or s3")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
