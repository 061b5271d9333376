package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/demyz/dou-jobs-feed/internal/logging"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port         int           `yaml:"port" default:"8080"`
		Host         string        `yaml:"host" default:"0.0.0.0"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
		IdleTimeout  time.Duration `yaml:"idle_timeout" default:"60s"`
	} `yaml:"server"`

	Database struct {
		URL          string        `yaml:"url"`
		MaxOpenConns int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns int           `yaml:"max_idle_conns" default:"5"`
		ConnMaxLife  time.Duration `yaml:"conn_max_life" default:"30m"`
	} `yaml:"database"`

	Redis struct {
		URL     string        `yaml:"url" default:"redis://localhost:6379"`
		Timeout time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"redis"`

	Telegram struct {
		BotToken   string        `yaml:"bot_token"`
		APIBaseURL string        `yaml:"api_base_url" default:"https://api.telegram.org"`
		WebAppURL  string        `yaml:"webapp_url"`
		Timeout    time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"telegram"`

	Scraper struct {
		GlobalFeedURL  string        `yaml:"global_feed_url" default:"https://jobs.dou.ua/vacancies/feeds/"`
		UserAgent      string        `yaml:"user_agent"`
		AcceptLanguage string        `yaml:"accept_language" default:"en-GB,en-US;q=0.9,en;q=0.8"`
		LangCookie     string        `yaml:"lang_cookie" default:"lang=en"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"30s"`
		CronSpec       string        `yaml:"cron_spec" default:"@every 15m"`
	} `yaml:"scraper"`

	Notifications struct {
		SendDelay time.Duration `yaml:"send_delay" default:"50ms"`
		CronSpec  string        `yaml:"cron_spec" default:"@every 5m"`
	} `yaml:"notifications"`

	Logging logging.Config `yaml:"logging"`
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := &Config{}

	// Set defaults
	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 60 * time.Second

	config.Database.MaxOpenConns = 10
	config.Database.MaxIdleConns = 5
	config.Database.ConnMaxLife = 30 * time.Minute

	config.Redis.URL = "redis://localhost:6379"
	config.Redis.Timeout = 5 * time.Second

	config.Telegram.APIBaseURL = "https://api.telegram.org"
	config.Telegram.Timeout = 10 * time.Second

	config.Scraper.GlobalFeedURL = "https://jobs.dou.ua/vacancies/feeds/"
	config.Scraper.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	config.Scraper.AcceptLanguage = "en-GB,en-US;q=0.9,en;q=0.8"
	config.Scraper.LangCookie = "lang=en"
	config.Scraper.RequestTimeout = 30 * time.Second
	config.Scraper.CronSpec = "@every 15m"

	config.Notifications.SendDelay = 50 * time.Millisecond
	config.Notifications.CronSpec = "@every 5m"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	// Load from YAML file if it exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))

			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, err
			}
		}
	}

	// Override with environment variables
	config.loadFromEnv()

	return config, nil
}

// Validate checks that required configuration is present
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required (DATABASE_URL)")
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required (TELEGRAM_BOT_TOKEN)")
	}
	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		c.Database.URL = dbURL
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if redisTimeout := os.Getenv("REDIS_TIMEOUT"); redisTimeout != "" {
		if timeout, err := time.ParseDuration(redisTimeout); err == nil {
			c.Redis.Timeout = timeout
		}
	}

	if botToken := os.Getenv("TELEGRAM_BOT_TOKEN"); botToken != "" {
		c.Telegram.BotToken = botToken
	}

	if apiBaseURL := os.Getenv("TELEGRAM_API_BASE_URL"); apiBaseURL != "" {
		c.Telegram.APIBaseURL = apiBaseURL
	}

	if webAppURL := os.Getenv("TELEGRAM_WEBAPP_URL"); webAppURL != "" {
		c.Telegram.WebAppURL = webAppURL
	}

	if feedURL := os.Getenv("SCRAPER_GLOBAL_FEED_URL"); feedURL != "" {
		c.Scraper.GlobalFeedURL = feedURL
	}

	if userAgent := os.Getenv("SCRAPER_USER_AGENT"); userAgent != "" {
		c.Scraper.UserAgent = userAgent
	}

	if requestTimeout := os.Getenv("SCRAPER_REQUEST_TIMEOUT"); requestTimeout != "" {
		if timeout, err := time.ParseDuration(requestTimeout); err == nil {
			c.Scraper.RequestTimeout = timeout
		}
	}

	if cronSpec := os.Getenv("SCRAPER_CRON_SPEC"); cronSpec != "" {
		c.Scraper.CronSpec = cronSpec
	}

	if sendDelay := os.Getenv("NOTIFICATIONS_SEND_DELAY"); sendDelay != "" {
		if delay, err := time.ParseDuration(sendDelay); err == nil {
			c.Notifications.SendDelay = delay
		}
	}

	if cronSpec := os.Getenv("NOTIFICATIONS_CRON_SPEC"); cronSpec != "" {
		c.Notifications.CronSpec = cronSpec
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}
}
