package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        App        `mapstructure:"app"`
	Server     Server     `mapstructure:"server"`
	Content    Content    `mapstructure:"content"`
	Generation Generation `mapstructure:"generation"`
	Replicate  Replicate  `mapstructure:"replicate"`
	Blob       Blob       `mapstructure:"blob"`
	Database   Database   `mapstructure:"database"`
	AI         AI         `mapstructure:"ai"`
	Crawler    Crawler    `mapstructure:"crawler"`
	Duplicates Duplicates `mapstructure:"duplicates"`
	Autorun    Autorun    `mapstructure:"autorun"`
	PostHog    PostHog    `mapstructure:"posthog"`
	Logging    Logging    `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Env   string `mapstructure:"env"` // development, preview or production
	Debug bool   `mapstructure:"debug"`

	// EnvAliases holds the raw value of every set variable in appEnvKeys.
	// Env only keeps the first of them.
	EnvAliases []string `mapstructure:"-"`
}

// appEnvKeys lists the variables that name the deployment, by precedence.
var appEnvKeys = []string{"APP_ENV", "VERCEL_ENV", "NODE_ENV"}

// IsProduction reports whether the app runs in production.
func (a App) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// DeploymentEnvs returns the configured env followed by every raw alias.
// Any of them being "production" selects the production endpoint.
func (a App) DeploymentEnvs() []string {
	return append([]string{a.Env}, a.EnvAliases...)
}

// Server holds HTTP server configuration
type Server struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AdminJWTSecret string        `mapstructure:"admin_jwt_secret"`
	CORS           CORS          `mapstructure:"cors"`
}

// CORS holds cross-origin settings
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Content holds the locations of the blog index and article files
type Content struct {
	IndexBackend string `mapstructure:"index_backend"` // sqlite or flatfile
	IndexPath    string `mapstructure:"index_path"`    // generated TypeScript index for flatfile
	SQLitePath   string `mapstructure:"sqlite_path"`
	Dir          string `mapstructure:"dir"`
	HashFile     string `mapstructure:"hash_file"`
	Author       string `mapstructure:"author"`
	AuthorImage  string `mapstructure:"author_image"`
}

// Generation holds article generation endpoint settings
type Generation struct {
	BaseURL        string `mapstructure:"base_url"`
	InternalAPIKey string `mapstructure:"internal_api_key"`
	Tone           string `mapstructure:"tone"`
	WordCount      int    `mapstructure:"word_count"`
}

// Replicate holds prediction API settings
type Replicate struct {
	APIToken     string        `mapstructure:"api_token"`
	BaseURL      string        `mapstructure:"base_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
}

// Blob holds blob storage settings
type Blob struct {
	Token   string `mapstructure:"token"`
	BaseURL string `mapstructure:"base_url"`
}

// Database holds the gallery database settings
type Database struct {
	URL string `mapstructure:"url"`
}

// AI holds AI/LLM configuration
type AI struct {
	Provider string       `mapstructure:"provider"`
	Model    string       `mapstructure:"model"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

// OpenAIConfig holds OpenAI configuration
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// SourceGroup is a named list of news listing URLs
type SourceGroup struct {
	Name string   `mapstructure:"name"`
	URLs []string `mapstructure:"urls"`
}

// Crawler holds news crawler configuration
type Crawler struct {
	UserAgent       string        `mapstructure:"user_agent"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ListingInterval time.Duration `mapstructure:"listing_interval"`
	ArticleInterval time.Duration `mapstructure:"article_interval"`
	MaxPerSource    int           `mapstructure:"max_per_source"`
	MaxCandidates   int           `mapstructure:"max_candidates"`
	TargetArticles  int           `mapstructure:"target_articles"`
	Sources         []SourceGroup `mapstructure:"sources"`
}

// Duplicates holds duplicate detector thresholds
type Duplicates struct {
	SimilarityThreshold    float64 `mapstructure:"similarity_threshold"`
	PhraseOverlapThreshold float64 `mapstructure:"phrase_overlap_threshold"`
	MinCommonPhrases       int     `mapstructure:"min_common_phrases"`
	PhraseMatchThreshold   float64 `mapstructure:"phrase_match_threshold"`
}

// Autorun holds automated run settings
type Autorun struct {
	Delay                time.Duration `mapstructure:"delay"`
	UseNews              bool          `mapstructure:"use_news"`
	Schedule             string        `mapstructure:"schedule"` // cron expression
	Timezone             string        `mapstructure:"timezone"`
	RefreshKnowledgeBase bool          `mapstructure:"refresh_knowledge_base"`
}

// PostHog holds product analytics settings
type PostHog struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	Host    string `mapstructure:"host"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".fais")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Aliases win over the config file, the way the site's own env vars do.
	bindEnvironmentVariables()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", false)

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	// Media generation may poll for five minutes.
	viper.SetDefault("server.write_timeout", "6m")
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})

	viper.SetDefault("content.index_backend", "sqlite")
	viper.SetDefault("content.index_path", "app/blog/blog-data.ts")
	viper.SetDefault("content.sqlite_path", "data/blog.db")
	viper.SetDefault("content.dir", "content/blog")
	viper.SetDefault("content.hash_file", "data/content-hashes.json")
	viper.SetDefault("content.author", "Fantastic AI Studio")
	viper.SetDefault("content.author_image", "/images/fais-logo.png")

	viper.SetDefault("generation.tone", "informative")
	viper.SetDefault("generation.word_count", 800)

	viper.SetDefault("replicate.base_url", "https://api.replicate.com/v1")
	viper.SetDefault("replicate.poll_interval", "5s")
	viper.SetDefault("replicate.max_attempts", 60)

	viper.SetDefault("blob.base_url", "https://blob.vercel-storage.com")

	viper.SetDefault("crawler.timeout", "10s")
	viper.SetDefault("crawler.listing_interval", "1s")
	viper.SetDefault("crawler.article_interval", "2s")
	viper.SetDefault("crawler.max_per_source", 5)
	viper.SetDefault("crawler.max_candidates", 10)
	viper.SetDefault("crawler.target_articles", 4)

	viper.SetDefault("duplicates.similarity_threshold", 0.7)
	viper.SetDefault("duplicates.phrase_overlap_threshold", 0.5)
	viper.SetDefault("duplicates.min_common_phrases", 4)
	viper.SetDefault("duplicates.phrase_match_threshold", 0.8)

	viper.SetDefault("autorun.delay", "10s")
	viper.SetDefault("autorun.use_news", false)
	viper.SetDefault("autorun.schedule", "0 9 * * *")
	viper.SetDefault("autorun.timezone", "UTC")
	viper.SetDefault("autorun.refresh_knowledge_base", true)

	viper.SetDefault("posthog.host", "https://us.i.posthog.com")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("app.env", appEnvKeys)

	bindEnvKeys("server.port", []string{
		"PORT",
	})

	bindEnvKeys("server.admin_jwt_secret", []string{
		"ADMIN_JWT_SECRET",
		"JWT_SECRET",
	})

	bindEnvKeys("generation.base_url", []string{
		"INTERNAL_API_BASE_URL",
	})

	bindEnvKeys("generation.internal_api_key", []string{
		"INTERNAL_API_KEY",
	})

	bindEnvKeys("replicate.api_token", []string{
		"REPLICATE_API_TOKEN",
		"REPLICATE_API_KEY",
	})

	bindEnvKeys("blob.token", []string{
		"BLOB_READ_WRITE_TOKEN",
	})

	bindEnvKeys("database.url", []string{
		"DATABASE_URL",
		"POSTGRES_URL",
	})

	bindEnvKeys("ai.openai.api_key", []string{
		"OPENAI_API_KEY",
	})

	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("posthog.api_key", []string{
		"POSTHOG_API_KEY",
		"NEXT_PUBLIC_POSTHOG_KEY",
	})

	bindEnvKeys("logging.level", []string{
		"LOG_LEVEL",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"FAIS_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	config.Content.IndexPath = expandPath(config.Content.IndexPath)
	config.Content.SQLitePath = expandPath(config.Content.SQLitePath)
	config.Content.Dir = expandPath(config.Content.Dir)
	config.Content.HashFile = expandPath(config.Content.HashFile)
	config.Content.IndexBackend = strings.ToLower(config.Content.IndexBackend)
	config.App.Env = strings.ToLower(config.App.Env)
	config.App.EnvAliases = nil
	for _, key := range appEnvKeys {
		if value := os.Getenv(key); value != "" {
			config.App.EnvAliases = append(config.App.EnvAliases, strings.ToLower(value))
		}
	}

	if config.PostHog.APIKey != "" {
		config.PostHog.Enabled = true
	}

	durations := map[string]time.Duration{
		"server.read_timeout":      config.Server.ReadTimeout,
		"server.write_timeout":     config.Server.WriteTimeout,
		"replicate.poll_interval":  config.Replicate.PollInterval,
		"crawler.timeout":          config.Crawler.Timeout,
		"crawler.listing_interval": config.Crawler.ListingInterval,
		"crawler.article_interval": config.Crawler.ArticleInterval,
		"autorun.delay":            config.Autorun.Delay,
	}
	for key, d := range durations {
		if d < 0 {
			return fmt.Errorf("invalid duration for %s: %s", key, d)
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures the configuration is usable. API keys are checked by
// the commands that need them.
func validateConfig(config *Config) error {
	var errors []string

	switch config.Content.IndexBackend {
	case "sqlite", "flatfile":
	default:
		errors = append(errors, fmt.Sprintf("Unknown index backend: %s. Supported: sqlite, flatfile", config.Content.IndexBackend))
	}

	if config.Content.Dir == "" {
		errors = append(errors, "content.dir is required")
	}

	thresholds := map[string]float64{
		"duplicates.similarity_threshold":     config.Duplicates.SimilarityThreshold,
		"duplicates.phrase_overlap_threshold": config.Duplicates.PhraseOverlapThreshold,
		"duplicates.phrase_match_threshold":   config.Duplicates.PhraseMatchThreshold,
	}
	for key, v := range thresholds {
		if v <= 0 || v > 1 {
			errors = append(errors, fmt.Sprintf("%s must be in (0, 1], got %v", key, v))
		}
	}

	if config.Crawler.TargetArticles <= 0 {
		errors = append(errors, "crawler.target_articles must be positive")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("server.port out of range: %d", config.Server.Port))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// HasMediaTokens reports whether both tokens the media endpoint needs are set.
func (c *Config) HasMediaTokens() bool {
	return c.Replicate.APIToken != "" && c.Blob.Token != ""
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
