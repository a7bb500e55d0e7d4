// Package config предоставляет структуры и функции загрузки конфигурации GreenCore API.
//
// Конфигурация читается из YAML-файла (путь в CONFIG_PATH, необязателен),
// затем перекрывается переменными окружения.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env                     string   `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string   `yaml:"storage_connection_string" env:"DATABASE_URL" env-required:"true"`
	MigrationsPath          string   `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	MasterKey               string   `yaml:"master_key" env:"API_KEY"`
	BaseURL                 string   `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080"`
	AllowedOrigins          []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	YooKassa                `yaml:"yookassa"`
	Mail                    `yaml:"mail"`
	Telegram                `yaml:"telegram"`
	Auth                    `yaml:"auth"`
	PlanCache               `yaml:"plan_cache"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес отключает Redis: лимиты выдачи ключей и кеш тарифов работают локально.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDR"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"2s"`
}

// RabbitMQ настройки очереди фоновой обработки вебхуков.
// Пустой URL — вебхуки обрабатываются внутри процесса.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// YooKassa настройки платёжного провайдера.
type YooKassa struct {
	ShopID         string        `yaml:"shop_id" env:"YOOKASSA_SHOP_ID"`
	SecretKey      string        `yaml:"secret_key" env:"YOOKASSA_SECRET_KEY"`
	APIURL         string        `yaml:"api_url" env:"YOOKASSA_API_URL" env-default:"https://api.yookassa.ru/v3"`
	ReturnURL      string        `yaml:"return_url" env:"YOOKASSA_RETURN_URL"`
	WebhookSecret  string        `yaml:"webhook_secret" env:"YOOKASSA_WEBHOOK_SECRET"`
	PaymentTimeout time.Duration `yaml:"timeout" env-default:"10s"`
	FulfillTimeout time.Duration `yaml:"fulfill_timeout" env-default:"30s"`
}

// Mail настройки отправки писем: Resend (если задан ключ) или SMTP.
type Mail struct {
	ResendAPIKey string        `yaml:"resend_api_key" env:"RESEND_API_KEY"`
	ResendURL    string        `yaml:"resend_url" env-default:"https://api.resend.com/emails"`
	From         string        `yaml:"from" env:"MAIL_FROM" env-default:"GreenCore <auth@greencore-api.ru>"`
	SMTPHost     string        `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort     string        `yaml:"smtp_port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser     string        `yaml:"smtp_user" env:"SMTP_USER"`
	SMTPPass     string        `yaml:"smtp_pass" env:"SMTP_PASS"`
	MailTimeout  time.Duration `yaml:"timeout" env-default:"10s"`
}

// Telegram настройки алертов.
type Telegram struct {
	TelegramToken   string        `yaml:"token" env:"TELEGRAM_TOKEN"`
	TelegramChatID  string        `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
	TelegramAPIURL  string        `yaml:"api_url" env-default:"https://api.telegram.org"`
	TelegramTimeout time.Duration `yaml:"timeout" env-default:"5s"`
}

// Auth настройки беспарольного входа.
type Auth struct {
	LoginTokenTTL time.Duration `yaml:"login_token_ttl" env-default:"15m"`
	DefaultPlan   string        `yaml:"default_plan" env:"AUTH_DEFAULT_PLAN" env-default:"free"`
	FreeKeyWindow time.Duration `yaml:"free_key_window" env-default:"24h"`
}

// PlanCache настройки кеша справочника тарифов.
type PlanCache struct {
	PlanCacheSize int           `yaml:"size" env-default:"64"`
	PlanCacheTTL  time.Duration `yaml:"ttl" env-default:"5m"`
}

// Load читает конфигурацию из файла path (если не пустой) и окружения.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, path)
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad загружает конфигурацию и завершает процесс при ошибке.
func MustLoad() *Config {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// PaymentsEnabled сообщает, настроена ли ЮKassa.
func (c *Config) PaymentsEnabled() bool {
	return c.ShopID != "" && c.SecretKey != ""
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Redis: %s\n"+
			"RabbitMQ: %t\n"+
			"YooKassa: %t\n"+
			"Resend: %t\n"+
			"Telegram: %t\n",
		c.Env,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.AddressRedis,
		c.RabbitMQURL != "",
		c.PaymentsEnabled(),
		c.ResendAPIKey != "",
		c.TelegramToken != "",
	)
}
