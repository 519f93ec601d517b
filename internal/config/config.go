package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "Asia/Shanghai"
	configPathEnv   = "COMPETITION_SCANNER_CONFIG"

	feishuAppIDEnv     = "FEISHU_APP_ID"
	feishuAppSecretEnv = "FEISHU_APP_SECRET"
	deepSeekAPIKeyEnv  = "DEEPSEEK_API_KEY"
	databaseDSNEnv     = "DATABASE_DSN"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	logLevelEnv        = "LOG_LEVEL"
)

// Store drivers.
const (
	DriverFeishu   = "feishu"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Renderer kinds.
const (
	RendererHTTP   = "http"
	RendererChrome = "chrome"
)

// Classifier fallbacks.
const (
	FallbackDefault = "default"
	FallbackKeyword = "keyword"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Store         StoreConfig        `yaml:"store"`
	Feishu        FeishuConfig       `yaml:"feishu"`
	Classifier    ClassifierConfig   `yaml:"classifier"`
	Dedup         DedupConfig        `yaml:"dedup"`
	Ingest        IngestConfig       `yaml:"ingest"`
	Dates         DatesConfig        `yaml:"dates"`
	Renderer      RendererConfig     `yaml:"renderer"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// LoggingConfig sets the level and an optional JSON log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	PageSize int    `yaml:"pageSize"`
}

// FeishuConfig addresses one bitable table.
type FeishuConfig struct {
	BaseURL   string        `yaml:"baseUrl"`
	AppID     string        `yaml:"appId"`
	AppSecret string        `yaml:"appSecret"`
	AppToken  string        `yaml:"appToken"`
	TableID   string        `yaml:"tableId"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ClassifierConfig defines how to contact the OpenAI-compatible labeling API.
type ClassifierConfig struct {
	BaseURL     string        `yaml:"baseUrl"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"apiKey"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	Fallback    string        `yaml:"fallback"`
}

// DedupConfig tunes the duplicate checker.
type DedupConfig struct {
	SimilarityThreshold float64 `yaml:"similarityThreshold"`
	ReviewThreshold     float64 `yaml:"reviewThreshold"`
	SampleSize          int     `yaml:"sampleSize"`
	UseClassifier       bool    `yaml:"useClassifier"`
}

// IngestConfig holds retry budget and pacing toward the store.
type IngestConfig struct {
	MaxRetries        int           `yaml:"maxRetries"`
	RetryBaseDelay    time.Duration `yaml:"retryBaseDelay"`
	ItemDelay         time.Duration `yaml:"itemDelay"`
	PageDelay         time.Duration `yaml:"pageDelay"`
	StatusUpdateDelay time.Duration `yaml:"statusUpdateDelay"`
	RequestTimeout    time.Duration `yaml:"requestTimeout"`
	BatchSize         int           `yaml:"batchSize"`
}

// DatesConfig sets the zone wall-clock dates on pages are read in.
type DatesConfig struct {
	Timezone string `yaml:"timezone"`
}

// Location resolves the timezone, falling back to the default zone.
func (d DatesConfig) Location() *time.Location {
	return resolveLocation(d.Timezone)
}

// RendererConfig picks how detail pages are turned into text.
type RendererConfig struct {
	Kind        string        `yaml:"kind"`
	WaitTimeout time.Duration `yaml:"waitTimeout"`
	UserAgent   string        `yaml:"userAgent"`
}

// SchedulerConfig defines when the daily run fires.
type SchedulerConfig struct {
	Hour     int    `yaml:"hour"`
	Minute   int    `yaml:"minute"`
	Timezone string `yaml:"timezone"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	return resolveLocation(s.Timezone)
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIBase  string `yaml:"apiBase"`
}

// SiteConfig describes a single site with its scanner strategy.
type SiteConfig struct {
	Name     string            `yaml:"name"`
	Scanner  string            `yaml:"scanner"`
	Platform string            `yaml:"platform"`
	URL      string            `yaml:"url"`
	MaxPages int               `yaml:"maxPages"`
	Options  map[string]string `yaml:"options"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if parsed, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = parsed
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// LoadFile reads path on top of the defaults and applies environment overrides.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Parse decodes YAML over the defaults. Keys absent from raw keep their
// default values; a sites list replaces the default sites.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	if len(cfg.Sites) == 0 {
		cfg.Sites = Default().Sites
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(feishuAppIDEnv); v != "" {
		c.Feishu.AppID = v
	}
	if v := os.Getenv(feishuAppSecretEnv); v != "" {
		c.Feishu.AppSecret = v
	}
	if v := os.Getenv(deepSeekAPIKeyEnv); v != "" {
		c.Classifier.APIKey = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

// SitesFor returns the sites whose platform matches selector; "all" keeps every site.
func (c Config) SitesFor(selector string) []SiteConfig {
	if selector == "" || strings.EqualFold(selector, "all") {
		return c.Sites
	}
	var out []SiteConfig
	for _, site := range c.Sites {
		if strings.EqualFold(site.Platform, selector) || strings.EqualFold(site.Name, selector) {
			out = append(out, site)
		}
	}
	return out
}

func resolveLocation(tz string) *time.Location {
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to UTC", tz)
		return time.UTC
	}
	return loc
}

// Default returns the settings the scanner runs with when nothing is configured.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Store:   StoreConfig{Driver: DriverFeishu, PageSize: 500},
		Feishu: FeishuConfig{
			BaseURL: "https://open.feishu.cn",
			Timeout: 30 * time.Second,
		},
		Classifier: ClassifierConfig{
			BaseURL:     "https://api.deepseek.com",
			Model:       "deepseek-chat",
			Temperature: 0.1,
			Timeout:     30 * time.Second,
			Fallback:    FallbackDefault,
		},
		Dedup: DedupConfig{
			SimilarityThreshold: 0.8,
			ReviewThreshold:     0.9,
			SampleSize:          10,
			UseClassifier:       true,
		},
		Ingest: IngestConfig{
			MaxRetries:        3,
			RetryBaseDelay:    time.Second,
			ItemDelay:         time.Second,
			PageDelay:         2 * time.Second,
			StatusUpdateDelay: 500 * time.Millisecond,
			RequestTimeout:    30 * time.Second,
			BatchSize:         10,
		},
		Dates:     DatesConfig{Timezone: defaultTimezone},
		Renderer:  RendererConfig{Kind: RendererHTTP, WaitTimeout: 20 * time.Second},
		Scheduler: SchedulerConfig{Hour: 9, Minute: 0, Timezone: defaultTimezone},
		Sites: []SiteConfig{
			{
				Name:     "baidu-aistudio",
				Scanner:  "baidu",
				Platform: "baidu",
				URL:      "https://aistudio.baidu.com/studio/match/search",
				MaxPages: 5,
			},
			{
				Name:     "aliyun-tianchi",
				Scanner:  "aliyun",
				Platform: "aliyun",
				URL:      "https://tianchi.aliyun.com/v3/proxy/competition/api/race/page",
				MaxPages: 5,
			},
			{
				Name:     "tencent-cloud",
				Scanner:  "tencent",
				Platform: "tencent",
				URL:      "https://blog.csdn.net/QcloudCommunity/article/list",
				MaxPages: 3,
			},
			{
				Name:     "wechat-mp",
				Scanner:  "wechat",
				Platform: "wechat",
				URL:      "https://mp.weixin.qq.com/cgi-bin/appmsg",
				MaxPages: 3,
			},
		},
	}
}
