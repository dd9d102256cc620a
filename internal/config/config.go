package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "SHOP"

const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"
)

type Config struct {
	HTTPAddr    string   `mapstructure:"http_addr"`
	GRPCAddr    string   `mapstructure:"grpc_addr"`
	StoreDriver string   `mapstructure:"store_driver"`
	MySQLDSN    string   `mapstructure:"mysql_dsn"`
	RedisAddr   string   `mapstructure:"redis_addr"`
	KafkaBroker []string `mapstructure:"kafka_brokers"`
	KafkaTopic  string   `mapstructure:"kafka_topic"`
	Seed        bool     `mapstructure:"seed"`
	WorkerCount int      `mapstructure:"worker_count"`
	QueueSize   int      `mapstructure:"queue_size"`
	LogLevel    string   `mapstructure:"log_level"`
	LogPretty   bool     `mapstructure:"log_pretty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("grpc_addr", ":50051")
	v.SetDefault("store_driver", StoreMemory)
	v.SetDefault("mysql_dsn", "root:root@tcp(localhost:3306)/shop?parseTime=true&multiStatements=true&clientFoundRows=true")
	v.SetDefault("redis_addr", "")
	v.SetDefault("kafka_brokers", []string{})
	v.SetDefault("kafka_topic", "order-events")
	v.SetDefault("seed", true)
	v.SetDefault("worker_count", 10)
	v.SetDefault("queue_size", 10000)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
}

// Load reads the optional config file at path, then SHOP_* environment
// variables on top (SHOP_HTTP_ADDR, SHOP_KAFKA_BROKERS=a:9092,b:9092, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case StoreMemory:
	case StoreMySQL:
		if c.MySQLDSN == "" {
			errs = append(errs, errors.New("mysql_dsn is required for the mysql store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store_driver %q", c.StoreDriver))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if c.WorkerCount < 1 {
		errs = append(errs, errors.New("worker_count must be at least 1"))
	}
	if c.QueueSize < c.WorkerCount {
		errs = append(errs, errors.New("queue_size must be at least worker_count"))
	}
	if len(c.KafkaBroker) > 0 && c.KafkaTopic == "" {
		errs = append(errs, errors.New("kafka_topic is required when kafka_brokers is set"))
	}
	return errors.Join(errs...)
}
