package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath        = "config.yaml"
	defaultLLMProvider       = LLMGroq
	defaultGroqModel         = "llama-3.3-70b-versatile"
	defaultGroqVisionModel   = "meta-llama/llama-4-scout-17b-16e-instruct"
	defaultOpenAIModel       = "gpt-4o"
	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultOpenAITimeout     = 60 * time.Second
	defaultGeminiModel       = "gemini-2.0-flash"
	defaultGeminiLocation    = "us-central1"
	defaultKieBaseURL        = "https://api.kie.ai"
	defaultKieTimeout        = 30 * time.Second
	defaultKiePollInterval   = 5 * time.Second
	defaultKiePollAttempts   = 30
	defaultStoreBackend      = StoreSQLite
	defaultSQLitePath        = "./carousel.db"
	defaultMongoDatabase     = "carousel"
	defaultServerAddr        = ":8001"
	defaultSlideCount        = 5
	defaultMaxSlideCount     = 10
	defaultTheme             = "trust_clarity"
	defaultAssetsBackend     = AssetsNone
	defaultAssetsDir         = "./assets"
	defaultAssetsRoute       = "/assets"
	defaultGCSPrefix         = "carousel"
	defaultShutdownTimeout   = 10 * time.Second
	defaultCORSAllowedOrigin = "*"
)

const (
	LLMGroq   = "groq"
	LLMOpenAI = "openai"
	LLMGemini = "gemini"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"

	AssetsNone  = "none"
	AssetsLocal = "local"
	AssetsGCS   = "gcs"
)

type Config struct {
	GroqAPIKey            string `yaml:"-"`
	OpenAIAPIKey          string `yaml:"-"`
	KieAPIKey             string `yaml:"-"`
	MongoURL              string `yaml:"-"`
	GCPProject            string `yaml:"-"`
	GCSBucket             string `yaml:"-"`
	GoogleCredentialsFile string `yaml:"-"`

	LLM      LLMConfig      `yaml:"llm"`
	Groq     GroqConfig     `yaml:"groq"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Kie      KieConfig      `yaml:"kie"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Assets   AssetsConfig   `yaml:"assets"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // "groq", "openai" or "gemini"
}

type GroqConfig struct {
	Model       string `yaml:"model"`
	VisionModel string `yaml:"vision_model"`
	BaseURL     string `yaml:"base_url"`
}

// OpenAIConfig covers any OpenAI-compatible chat completions endpoint.
type OpenAIConfig struct {
	Model       string        `yaml:"model"`
	VisionModel string        `yaml:"vision_model"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

// GeminiConfig runs Gemini on Vertex AI in GOOGLE_CLOUD_PROJECT with application default credentials.
type GeminiConfig struct {
	Model      string `yaml:"model"`
	Location   string `yaml:"location"`
	DailyLimit int    `yaml:"daily_limit"`
}

type KieConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	PollAttempts int           `yaml:"poll_attempts"`
}

type StoreConfig struct {
	Backend       string `yaml:"backend"` // "memory", "sqlite" or "mongo"
	SQLitePath    string `yaml:"sqlite_path"`
	MongoDatabase string `yaml:"mongo_database"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigin   string        `yaml:"allowed_origin"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type PipelineConfig struct {
	DefaultSlideCount int    `yaml:"default_slide_count"`
	MaxSlideCount     int    `yaml:"max_slide_count"`
	DefaultTheme      string `yaml:"default_theme"`
	AutoVisuals       bool   `yaml:"auto_visuals"`
	PromptsPath       string `yaml:"prompts_path"`
}

type AssetsConfig struct {
	Backend   string `yaml:"backend"` // "none", "local" or "gcs"
	Dir       string `yaml:"dir"`
	Route     string `yaml:"route"`
	BaseURL   string `yaml:"base_url"`
	GCSPrefix string `yaml:"gcs_prefix"`
}

func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, defaultConfigPath)
}

func LoadFrom(ctx context.Context, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		GroqAPIKey:            os.Getenv("GROQ_API_KEY"),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		KieAPIKey:             getEnvOrDefault("KIE_API_KEY", os.Getenv("KIE_AI_API_KEY")),
		MongoURL:              os.Getenv("MONGO_URL"),
		GCPProject:            os.Getenv("GOOGLE_CLOUD_PROJECT"),
		GCSBucket:             os.Getenv("GCS_BUCKET"),
		GoogleCredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	}

	if err := loadYAMLConfig(cfg, path); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if cfg.GCPProject != "" {
		resolveSecrets(ctx, cfg)
	}

	return cfg, nil
}

// Default returns a config with every non-secret setting at its default value.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func loadYAMLConfig(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	applyLLMDefaults(cfg)
	applyGroqDefaults(cfg)
	applyOpenAIDefaults(cfg)
	applyGeminiDefaults(cfg)
	applyKieDefaults(cfg)
	applyStoreDefaults(cfg)
	applyServerDefaults(cfg)
	applyPipelineDefaults(cfg)
	applyAssetsDefaults(cfg)
}

func applyLLMDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = defaultLLMProvider
		if cfg.GroqAPIKey == "" && cfg.OpenAIAPIKey != "" {
			cfg.LLM.Provider = LLMOpenAI
		}
	}
}

func applyOpenAIDefaults(cfg *Config) {
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = defaultOpenAIModel
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = getEnvOrDefault("OPENAI_BASE_URL", defaultOpenAIBaseURL)
	}
	if cfg.OpenAI.Timeout == 0 {
		cfg.OpenAI.Timeout = defaultOpenAITimeout
	}
}

func applyGeminiDefaults(cfg *Config) {
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = defaultGeminiModel
	}
	if cfg.Gemini.Location == "" {
		cfg.Gemini.Location = defaultGeminiLocation
	}
}

func applyGroqDefaults(cfg *Config) {
	if cfg.Groq.Model == "" {
		cfg.Groq.Model = defaultGroqModel
	}
	if cfg.Groq.VisionModel == "" {
		cfg.Groq.VisionModel = defaultGroqVisionModel
	}
}

func applyKieDefaults(cfg *Config) {
	if cfg.Kie.BaseURL == "" {
		cfg.Kie.BaseURL = defaultKieBaseURL
	}
	if cfg.Kie.Timeout == 0 {
		cfg.Kie.Timeout = defaultKieTimeout
	}
	if cfg.Kie.PollInterval == 0 {
		cfg.Kie.PollInterval = defaultKiePollInterval
	}
	if cfg.Kie.PollAttempts == 0 {
		cfg.Kie.PollAttempts = defaultKiePollAttempts
	}
}

func applyStoreDefaults(cfg *Config) {
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = defaultStoreBackend
		if cfg.MongoURL != "" {
			cfg.Store.Backend = StoreMongo
		}
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = defaultSQLitePath
	}
	if cfg.Store.MongoDatabase == "" {
		cfg.Store.MongoDatabase = defaultMongoDatabase
	}
}

func applyServerDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultServerAddr
	}
	if cfg.Server.AllowedOrigin == "" {
		cfg.Server.AllowedOrigin = defaultCORSAllowedOrigin
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
}

func applyPipelineDefaults(cfg *Config) {
	if cfg.Pipeline.MaxSlideCount == 0 {
		cfg.Pipeline.MaxSlideCount = defaultMaxSlideCount
	}
	if cfg.Pipeline.DefaultSlideCount == 0 {
		cfg.Pipeline.DefaultSlideCount = defaultSlideCount
	}
	if cfg.Pipeline.DefaultTheme == "" {
		cfg.Pipeline.DefaultTheme = defaultTheme
	}
}

func applyAssetsDefaults(cfg *Config) {
	if cfg.Assets.Backend == "" {
		cfg.Assets.Backend = defaultAssetsBackend
	}
	if cfg.Assets.Dir == "" {
		cfg.Assets.Dir = defaultAssetsDir
	}
	if cfg.Assets.Route == "" {
		cfg.Assets.Route = defaultAssetsRoute
	}
	if cfg.Assets.GCSPrefix == "" {
		cfg.Assets.GCSPrefix = defaultGCSPrefix
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
