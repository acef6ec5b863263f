package config

import (
	"fmt"
	"time"

	"github.com/spa542/brawnyoriginals/internal/fulfillment"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Doppler     DopplerConfig     `mapstructure:"doppler"`
	Secrets     SecretsConfig     `mapstructure:"secrets"`
	Checkout    CheckoutConfig    `mapstructure:"checkout"`
	Stripe      StripeConfig      `mapstructure:"stripe"`
	Webhook     WebhookConfig     `mapstructure:"webhook"`
	Mailgun     MailgunConfig     `mapstructure:"mailgun"`
	Recaptcha   RecaptchaConfig   `mapstructure:"recaptcha"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Fulfillment FulfillmentConfig `mapstructure:"fulfillment"`
}

type ServerConfig struct {
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DopplerConfig struct {
	APIKey  string `mapstructure:"api_key"` // DOPPLER_API_KEY env
	Project string `mapstructure:"project"`
	Config  string `mapstructure:"config"`
}

type SecretsConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type CheckoutConfig struct {
	TokenLifetime time.Duration `mapstructure:"token_lifetime"`
	ValidPriceIDs []string      `mapstructure:"valid_price_ids"`
}

type StripeConfig struct {
	PaymentMethodConfigurationID string `mapstructure:"payment_method_configuration_id"`
}

type WebhookConfig struct {
	Tolerance time.Duration `mapstructure:"tolerance"`
}

type MailgunConfig struct {
	URL          string `mapstructure:"url"`
	FromName     string `mapstructure:"from_name"`
	FromAddress  string `mapstructure:"from_address"`
	ContactEmail string `mapstructure:"contact_email"`
}

type RecaptchaConfig struct {
	Threshold float64 `mapstructure:"threshold"`
}

type RateLimitConfig struct {
	BucketSize int `mapstructure:"bucket_size"`
	RefillRate int `mapstructure:"refill_rate"`
}

type FulfillmentConfig struct {
	Items map[string]fulfillment.Item `mapstructure:"items"`
}

func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath loads the config from the given file, falling back to
// config.yaml in the working directory or ./config.
func LoadWithPath(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeout", "30s")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file_path", "logs/brawnyoriginals.log")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("doppler.config", "dev")
	viper.SetDefault("secrets.ttl", "24h")
	viper.SetDefault("checkout.token_lifetime", "5m")
	viper.SetDefault("webhook.tolerance", "5m")
	viper.SetDefault("recaptcha.threshold", 0.5)
	viper.SetDefault("rate_limit.bucket_size", 20)
	viper.SetDefault("rate_limit.refill_rate", 2)

	viper.AutomaticEnv()
	if err := viper.BindEnv("doppler.api_key", "DOPPLER_API_KEY"); err != nil {
		return nil, err
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return config, nil
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	if c.Doppler.APIKey == "" {
		return fmt.Errorf("doppler api key is required (set DOPPLER_API_KEY)")
	}
	if c.Doppler.Project == "" {
		return fmt.Errorf("doppler project is required")
	}
	if len(c.Checkout.ValidPriceIDs) == 0 {
		return fmt.Errorf("at least one valid price id is required")
	}
	if c.Mailgun.URL == "" || c.Mailgun.FromAddress == "" {
		return fmt.Errorf("mailgun url and from_address are required")
	}
	return nil
}
