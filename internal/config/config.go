package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"SentimentVision/internal/domain"
)

const (
	defaultDir        = "config"
	configDirEnv      = "SENTIMENT_VISION_CONFIG_DIR"
	envPrefix         = "SENTIMENT_VISION"
	settingsName      = "settings"
	clientsFileName   = "clients.yaml"
	databaseDSNEnv    = "DATABASE_DSN"
	dbHostEnv         = "DB_HOST"
	dbPortEnv         = "DB_PORT"
	dbUserEnv         = "DB_USER"
	dbPasswordEnv     = "DB_PASSWORD"
	dbNameEnv         = "DB_NAME"
	dbSSLModeEnv      = "DB_SSLMODE"
	anthropicKeyEnv   = "ANTHROPIC_API_KEY"
	openAIKeyEnv      = "OPENAI_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Provider names accepted by ai_scoring.provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig        `mapstructure:"logging"`
	Database      DatabaseConfig       `mapstructure:"database"`
	Fetching      FetchingConfig       `mapstructure:"fetching"`
	Extraction    ExtractionConfig     `mapstructure:"content_extraction"`
	Sentiment     SentimentConfig      `mapstructure:"sentiment"`
	Tagging       TaggingConfig        `mapstructure:"tagging"`
	Schedule      ScheduleConfig       `mapstructure:"schedule"`
	Notifications NotificationConfig   `mapstructure:"notifications"`
	GlobalSources []GlobalSourceConfig `mapstructure:"global_sources"`

	// Clients come from clients.yaml next to the settings file.
	Clients []domain.Client `mapstructure:"-"`
	// Dir is the resolved configuration directory.
	Dir string `mapstructure:"-"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString returns the explicit DSN or one assembled from the parts.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   d.Host + ":" + strconv.Itoa(d.Port),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{d.SSLMode}}.Encode()
	}
	return u.String()
}

// FetchingConfig tunes the polite HTTP getter and per-source limits.
type FetchingConfig struct {
	PerDomainDelay       time.Duration `mapstructure:"per_domain_delay"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	RetryAttempts        int           `mapstructure:"retry_attempts"`
	RetryDelay           time.Duration `mapstructure:"retry_delay"`
	UserAgent            string        `mapstructure:"user_agent"`
	MaxArticlesPerSource int           `mapstructure:"max_articles_per_source"`
	Concurrency          int           `mapstructure:"concurrency"`
	BatchSize            int           `mapstructure:"refetch_batch_size"`
}

// ExtractionConfig bounds content extraction.
type ExtractionConfig struct {
	MaxContentLength int `mapstructure:"max_content_length"`
	MinInlineChars   int `mapstructure:"min_inline_chars"`
	MinWords         int `mapstructure:"min_words"`
}

// SentimentConfig carries labeling thresholds and contextual scoring settings.
type SentimentConfig struct {
	PositiveThreshold float64         `mapstructure:"positive_threshold"`
	NegativeThreshold float64         `mapstructure:"negative_threshold"`
	BatchSize         int             `mapstructure:"batch_size"`
	AIScoring         AIScoringConfig `mapstructure:"ai_scoring"`
}

// Thresholds returns the labeling thresholds.
func (s SentimentConfig) Thresholds() domain.Thresholds {
	return domain.Thresholds{Positive: s.PositiveThreshold, Negative: s.NegativeThreshold}
}

// AIScoringConfig defines how and when the contextual model is called.
type AIScoringConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Temperature       float64       `mapstructure:"temperature"`
	MaxWords          int           `mapstructure:"max_words"`
	MonthlyBudgetUSD  float64       `mapstructure:"monthly_budget_usd"`
	InputCostPerMTok  float64       `mapstructure:"input_cost_per_mtok"`
	OutputCostPerMTok float64       `mapstructure:"output_cost_per_mtok"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
}

// ModelName returns the configured model or the provider's default.
func (a AIScoringConfig) ModelName() string {
	if a.Model != "" {
		return a.Model
	}
	if strings.EqualFold(a.Provider, ProviderOpenAI) {
		return "gpt-4o-mini"
	}
	return "claude-haiku-4-5"
}

// TaggingConfig controls batch tagging and the catalog seed file.
type TaggingConfig struct {
	BatchSize int    `mapstructure:"batch_size"`
	SeedFile  string `mapstructure:"seed_file"`
}

// ScheduleConfig drives the long-running mode.
type ScheduleConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// Enabled reports whether both token and chat are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// GlobalSourceConfig is a mass-media feed shared by all clients.
type GlobalSourceConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
	Tier int    `mapstructure:"tier"`
}

// Load reads settings.yaml, clients.yaml and .env from dir and applies environment overrides.
// An empty dir falls back to $SENTIMENT_VISION_CONFIG_DIR, then ./config.
func Load(dir string) (Config, error) {
	if dir == "" {
		dir = os.Getenv(configDirEnv)
	}
	if dir == "" {
		dir = defaultDir
	}

	if err := loadDotEnv(dir); err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(settingsName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read settings: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode settings: %w", err)
	}
	cfg.Dir = dir
	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	clients, err := LoadClients(filepath.Join(dir, clientsFileName))
	switch {
	case err == nil:
		cfg.Clients = clients
	case os.IsNotExist(err):
	default:
		return Config{}, err
	}

	return cfg, nil
}

// loadDotEnv reads .env from the project root (the parent of the config dir).
// Variables already present in the environment win.
func loadDotEnv(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	path := filepath.Join(filepath.Dir(abs), ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "sentiment")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "sentiment_vision")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("fetching.per_domain_delay", 2*time.Second)
	v.SetDefault("fetching.request_timeout", 15*time.Second)
	v.SetDefault("fetching.retry_attempts", 2)
	v.SetDefault("fetching.retry_delay", 5*time.Second)
	v.SetDefault("fetching.user_agent", "SentimentVisionBot/1.0")
	v.SetDefault("fetching.max_articles_per_source", 50)
	v.SetDefault("fetching.concurrency", 4)
	v.SetDefault("fetching.refetch_batch_size", 500)

	v.SetDefault("content_extraction.max_content_length", 500000)
	v.SetDefault("content_extraction.min_inline_chars", 200)
	v.SetDefault("content_extraction.min_words", 50)

	v.SetDefault("sentiment.positive_threshold", domain.DefaultThresholds.Positive)
	v.SetDefault("sentiment.negative_threshold", domain.DefaultThresholds.Negative)
	v.SetDefault("sentiment.batch_size", 500)
	v.SetDefault("sentiment.ai_scoring.enabled", false)
	v.SetDefault("sentiment.ai_scoring.provider", ProviderAnthropic)
	v.SetDefault("sentiment.ai_scoring.model", "")
	v.SetDefault("sentiment.ai_scoring.api_key", "")
	v.SetDefault("sentiment.ai_scoring.base_url", "")
	v.SetDefault("sentiment.ai_scoring.max_tokens", 100)
	v.SetDefault("sentiment.ai_scoring.temperature", 0.0)
	v.SetDefault("sentiment.ai_scoring.max_words", 500)
	v.SetDefault("sentiment.ai_scoring.monthly_budget_usd", 3.0)
	v.SetDefault("sentiment.ai_scoring.input_cost_per_mtok", 0.25)
	v.SetDefault("sentiment.ai_scoring.output_cost_per_mtok", 1.25)
	v.SetDefault("sentiment.ai_scoring.timeout", 30*time.Second)
	v.SetDefault("sentiment.ai_scoring.max_retries", 2)

	v.SetDefault("tagging.batch_size", 500)
	v.SetDefault("tagging.seed_file", "tags.yaml")

	v.SetDefault("schedule.interval", 24*time.Hour)

	v.SetDefault("notifications.telegram.bot_token", "")
	v.SetDefault("notifications.telegram.chat_id", "")
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(dbHostEnv); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv(dbPortEnv); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := os.Getenv(dbUserEnv); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv(dbPasswordEnv); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv(dbNameEnv); v != "" {
		c.Database.Name = v
	}
	if v := os.Getenv(dbSSLModeEnv); v != "" {
		c.Database.SSLMode = v
	}

	if c.Sentiment.AIScoring.APIKey == "" {
		keyEnv := anthropicKeyEnv
		if strings.EqualFold(c.Sentiment.AIScoring.Provider, ProviderOpenAI) {
			keyEnv = openAIKeyEnv
		}
		c.Sentiment.AIScoring.APIKey = os.Getenv(keyEnv)
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) validate() error {
	if c.Sentiment.NegativeThreshold > c.Sentiment.PositiveThreshold {
		return fmt.Errorf("sentiment: negative_threshold %.2f exceeds positive_threshold %.2f",
			c.Sentiment.NegativeThreshold, c.Sentiment.PositiveThreshold)
	}
	c.Sentiment.AIScoring.Provider = strings.ToLower(strings.TrimSpace(c.Sentiment.AIScoring.Provider))
	switch c.Sentiment.AIScoring.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("sentiment.ai_scoring: unknown provider %q", c.Sentiment.AIScoring.Provider)
	}
	for i := range c.GlobalSources {
		gs := &c.GlobalSources[i]
		gs.Name = strings.TrimSpace(gs.Name)
		gs.URL = strings.TrimSpace(gs.URL)
		if gs.Tier == 0 {
			gs.Tier = 1
		}
		if gs.Name == "" || gs.URL == "" {
			return fmt.Errorf("global source at index %d: missing name or url", i)
		}
		if gs.Tier < 1 || gs.Tier > 4 {
			return fmt.Errorf("global source %q: tier must be 1-4, got %d", gs.Name, gs.Tier)
		}
	}
	return nil
}

// GlobalFeeds converts global_sources into RSS sources.
func (c Config) GlobalFeeds() []domain.Source {
	out := make([]domain.Source, 0, len(c.GlobalSources))
	for _, gs := range c.GlobalSources {
		out = append(out, domain.Source{
			Name:      gs.Name,
			Type:      domain.SourceRSS,
			URL:       gs.URL,
			MediaTier: gs.Tier,
			Global:    true,
		})
	}
	return out
}

// SeedPath resolves the tag seed file relative to the config dir.
func (c Config) SeedPath() string {
	if filepath.IsAbs(c.Tagging.SeedFile) {
		return c.Tagging.SeedFile
	}
	return filepath.Join(c.Dir, c.Tagging.SeedFile)
}
