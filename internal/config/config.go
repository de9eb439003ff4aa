package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Import    ImportConfig    `mapstructure:"import"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Search    SearchConfig    `mapstructure:"search"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		if c.URL != "" {
			return c.URL
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	// busy_timeout keeps concurrent job writers from failing fast on SQLITE_BUSY
	return c.Path + "?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL"
}

type StorageConfig struct {
	Type       string `mapstructure:"type"`
	LocalDir   string `mapstructure:"local_dir"`
	PublicPath string `mapstructure:"public_path"`
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	UseSSL     bool   `mapstructure:"use_ssl"`
	Bucket     string `mapstructure:"bucket"`
	Region     string `mapstructure:"region"`
	PublicURL  string `mapstructure:"public_url"`
}

type ScraperConfig struct {
	UserAgent         string        `mapstructure:"user_agent"`
	PageTimeout       time.Duration `mapstructure:"page_timeout"`
	ImageTimeout      time.Duration `mapstructure:"image_timeout"`
	MaxImageDimension int           `mapstructure:"max_image_dimension"`
	JPEGQuality       int           `mapstructure:"jpeg_quality"`
	MaxPageBytes      int64         `mapstructure:"max_page_bytes"`
	MaxImageBytes     int64         `mapstructure:"max_image_bytes"`
}

type ImportConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	BatchSize   int           `mapstructure:"batch_size"`
	BatchPause  time.Duration `mapstructure:"batch_pause"`
}

type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

type SearchConfig struct {
	SemanticEnabled bool    `mapstructure:"semantic_enabled"`
	ScoreThreshold  float32 `mapstructure:"score_threshold"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("import.concurrency", "CONCURRENT_LIMIT")
	v.BindEnv("embedding.api_key", "JINA_API_KEY")
	v.BindEnv("qdrant.host", "QDRANT_HOST")
	v.BindEnv("qdrant.port", "QDRANT_PORT")
	v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")
	v.BindEnv("search.score_threshold", "SEARCH_SCORE_THRESHOLD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/recipes.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_dir", "./data/media")
	v.SetDefault("storage.public_path", "/media")
	v.SetDefault("storage.bucket", "recipes")

	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (compatible; RecipeBot/1.0)")
	v.SetDefault("scraper.page_timeout", 15*time.Second)
	v.SetDefault("scraper.image_timeout", 10*time.Second)
	v.SetDefault("scraper.max_image_dimension", 1200)
	v.SetDefault("scraper.jpeg_quality", 85)
	v.SetDefault("scraper.max_page_bytes", 10<<20)
	v.SetDefault("scraper.max_image_bytes", 20<<20)

	v.SetDefault("import.concurrency", 3)
	v.SetDefault("import.batch_size", 3)
	v.SetDefault("import.batch_pause", 2*time.Second)

	v.SetDefault("embedding.provider", "jina")
	v.SetDefault("embedding.model", "jina-embeddings-v3")
	v.SetDefault("embedding.base_url", "https://api.jina.ai/v1")
	v.SetDefault("embedding.dimensions", 1024)

	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "recipes")

	v.SetDefault("search.semantic_enabled", false)
	v.SetDefault("search.score_threshold", 0.0)
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Import.Concurrency < 1 {
		return fmt.Errorf("import.concurrency must be at least 1, got %d", c.Import.Concurrency)
	}
	if c.Import.BatchSize < 1 {
		return fmt.Errorf("import.batch_size must be at least 1, got %d", c.Import.BatchSize)
	}
	if c.Scraper.JPEGQuality < 1 || c.Scraper.JPEGQuality > 100 {
		return fmt.Errorf("scraper.jpeg_quality must be within 1..100, got %d", c.Scraper.JPEGQuality)
	}
	if c.Scraper.MaxImageDimension < 1 {
		return fmt.Errorf("scraper.max_image_dimension must be positive, got %d", c.Scraper.MaxImageDimension)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Search.SemanticEnabled {
		if err := c.Embedding.ValidateWithAPIKey(); err != nil {
			return err
		}
	}
	return nil
}
