package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env            string `yaml:"env" env:"ENV" env-default:"local"`
	StoragePath    string `yaml:"storage_path" env:"DATABASE_URL" env-required:"true"`
	RedisAddr      string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	FrontendDomain string `yaml:"frontend_domain" env:"FRONTEND_DOMAIN" env-default:"*"`
	// TrustedProxies lists proxy CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES" env-separator:","`
	HTTPServer     `yaml:"http_server"`
	Admin          Admin    `yaml:"admin"`
	Telegram       Telegram `yaml:"telegram"`
	Uploads        Uploads  `yaml:"uploads"`
	Cleanup        Cleanup  `yaml:"cleanup"`
	Payment        Payment  `yaml:"payment"`
	Throttle       Throttle `yaml:"throttle"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
}

type Admin struct {
	PasswordHash     string        `yaml:"password_hash" env:"ADMIN_PASSWORD_HASH" env-required:"true"`
	SessionTTL       time.Duration `yaml:"session_ttl" env-default:"168h"`
	MaxLoginAttempts int           `yaml:"max_login_attempts" env-default:"10"`
	LoginWindow      time.Duration `yaml:"login_window" env-default:"1h"`
	SecureCookie     bool          `yaml:"secure_cookie" env-default:"true"`
}

type Telegram struct {
	BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
}

type Uploads struct {
	Dir     string `yaml:"dir" env:"UPLOADS_DIR" env-default:"./static/uploads"`
	BaseURL string `yaml:"base_url" env:"UPLOADS_BASE_URL" env-default:"/uploads"`
	MaxSide int    `yaml:"max_side" env-default:"1600"`
}

type Cleanup struct {
	Enabled       bool   `yaml:"enabled" env-default:"true"`
	Schedule      string `yaml:"schedule" env-default:"0 3 * * *"`
	RetentionDays int    `yaml:"retention_days" env-default:"1"`
}

type Payment struct {
	Amount    int    `yaml:"amount" env-default:"300"`
	Card      string `yaml:"card" env-default:"2202 2000 0000 0000"`
	SBP       string `yaml:"sbp" env-default:"+7 (999) 999-99-99"`
	Recipient string `yaml:"recipient" env-default:"Иванова Анна Сергеевна"`
}

type Throttle struct {
	PerMinute int `yaml:"per_minute" env-default:"20"`
	Burst     int `yaml:"burst" env-default:"5"`
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/local.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("Failed to read config: %v", err)
	}

	return cfg
}

// Load reads the YAML file at path if it exists, otherwise environment only.
func Load(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
