package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL    string `mapstructure:"database_url"`
	RedisURL       string `mapstructure:"redis_url"`
	KafkaBrokers   string `mapstructure:"kafka_brokers"`
	NatsURL        string `mapstructure:"nats_url"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	Port           string `mapstructure:"port" validate:"required"`
	ServiceName    string `mapstructure:"service_name"`
	LogLevel       string `mapstructure:"log_level" validate:"oneof=debug info warn error"`

	Locale      string `mapstructure:"locale" validate:"oneof=es en"`
	DetailLevel string `mapstructure:"detail_level" validate:"oneof=simple standard technical"`
	Network     string `mapstructure:"network" validate:"oneof=mainnet testnet"`

	Fee                  int64         `mapstructure:"fee" validate:"gte=0"`
	CallTimeout          time.Duration `mapstructure:"call_timeout" validate:"gt=0"`
	ConfirmTimeout       time.Duration `mapstructure:"confirm_timeout" validate:"gt=0"`
	PollInterval         time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	PaymentRequiredDelay time.Duration `mapstructure:"payment_required_delay" validate:"gte=0"`
	LockTTL              time.Duration `mapstructure:"lock_ttl" validate:"gt=0"`

	// Simulation knobs for the in-process wallet and facilitator.
	SignRejectRate        float64 `mapstructure:"sign_reject_rate" validate:"gte=0,lte=1"`
	SettlementFailureRate float64 `mapstructure:"settlement_failure_rate" validate:"gte=0,lte=1"`
	SimulatedLatency      bool    `mapstructure:"simulated_latency"`
	ConfirmAfter          int     `mapstructure:"confirm_after" validate:"gte=1"`
	SeedBalance           int64   `mapstructure:"seed_balance" validate:"gte=0"`
	RestoreNamespace      string  `mapstructure:"restore_namespace"`
}

var defaults = map[string]any{
	"database_url":            "",
	"redis_url":               "",
	"kafka_brokers":           "",
	"nats_url":                "",
	"jaeger_endpoint":         "",
	"port":                    "8082",
	"service_name":            "x402-pay",
	"log_level":               "info",
	"locale":                  "es",
	"detail_level":            "standard",
	"network":                 "testnet",
	"fee":                     50,
	"call_timeout":            "30s",
	"confirm_timeout":         "2m",
	"poll_interval":           "1s",
	"payment_required_delay":  "0s",
	"lock_ttl":                "5m",
	"sign_reject_rate":        0.2,
	"settlement_failure_rate": 0.1,
	"simulated_latency":       false,
	"confirm_after":           1,
	"seed_balance":            0,
	"restore_namespace":       "default",
}

var validate = validator.New()

// Load reads the configuration from the environment. When CONFIG_FILE
// names a YAML file its values sit between the defaults and the
// environment.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// KafkaBrokerList splits KafkaBrokers on commas.
func (c *Config) KafkaBrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
