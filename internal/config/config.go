package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "STOREFRONT"

type Config struct {
	ServerPort     int
	RequestTimeout time.Duration
	LogLevel       string

	StoreKind        string
	DBDriver         string
	DBDataSourceName string
	MigrationsDir    string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	AnnounceInterval time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8032)
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("log_level", "info")

	v.SetDefault("store", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_database", "storefront")
	v.SetDefault("db_username", "root")
	v.SetDefault("db_password", "1234")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("migrations_dir", "migrations")

	v.SetDefault("redis_enabled", true)
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("jwt_secret", "")
	v.SetDefault("announce_interval", time.Minute)
}

// New returns a viper instance reading STOREFRONT_* variables on top of the
// defaults. Callers may bind flags to it before calling FromViper.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

func LoadConfig() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()
	return FromViper(New())
}

func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServerPort:     v.GetInt("port"),
		RequestTimeout: v.GetDuration("request_timeout"),
		LogLevel:       strings.ToLower(v.GetString("log_level")),

		StoreKind:     v.GetString("store"),
		DBDriver:      "postgres",
		MigrationsDir: v.GetString("migrations_dir"),

		RedisEnabled:  v.GetBool("redis_enabled"),
		RedisAddr:     fmt.Sprintf("%s:%s", v.GetString("redis_host"), v.GetString("redis_port")),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),

		JWTSecret:        v.GetString("jwt_secret"),
		AnnounceInterval: v.GetDuration("announce_interval"),
	}

	if dsn := v.GetString("database_url"); dsn != "" {
		cfg.DBDataSourceName = dsn
	} else {
		cfg.DBDataSourceName = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			v.GetString("db_username"), v.GetString("db_password"),
			v.GetString("db_host"), v.GetString("db_port"),
			v.GetString("db_database"), v.GetString("db_sslmode"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid port %d", c.ServerPort)
	}
	switch c.StoreKind {
	case "postgres", "pg", "memory", "mem":
	default:
		return fmt.Errorf("unknown store kind %q", c.StoreKind)
	}
	if c.AnnounceInterval <= 0 {
		return fmt.Errorf("announce interval must be a positive duration")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be a positive duration")
	}
	return nil
}
