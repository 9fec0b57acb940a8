package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageInMemory = "in-memory"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"

	devSecret = "dev-secret-change-me"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Postgres PostgresConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Seed     bool
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

type StorageConfig struct {
	Type string
}

type PostgresConfig struct {
	DSN string
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type AuthConfig struct {
	JWTSecret  string
	JWTExpire  time.Duration
	BcryptCost int
}

type Options struct {
	// Dev ослабляет обязательные настройки для локального запуска.
	Dev bool
	// ConfigPaths - где искать app.yaml; по умолчанию ./ и ./config.
	ConfigPaths []string
	// EnvFile загружается в окружение, если есть; по умолчанию .env.
	EnvFile string
}

// Load читает .env, затем app.yaml, затем окружение; побеждает последний источник.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile == "" {
		opts.EnvFile = ".env"
	}
	if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", opts.EnvFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetConfigName("app")
	paths := opts.ConfigPaths
	if len(paths) == 0 {
		paths = []string{"./", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read yaml config: %w", err)
		}
	}

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	expire, err := ParseDuration(v.GetString("auth.jwt_expire"))
	if err != nil {
		return nil, fmt.Errorf("auth.jwt_expire: %w", err)
	}
	ttl, err := ParseDuration(v.GetString("redis.ttl"))
	if err != nil {
		return nil, fmt.Errorf("redis.ttl: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("server.port"),
			AllowedOrigins: splitList(v.GetStringSlice("server.allowed_origins")),
		},
		Storage:  StorageConfig{Type: v.GetString("storage.type")},
		Postgres: PostgresConfig{DSN: v.GetString("postgres.dsn")},
		Mongo: MongoConfig{
			URI:      v.GetString("mongo.uri"),
			Database: v.GetString("mongo.database"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      ttl,
		},
		Auth: AuthConfig{
			JWTSecret:  v.GetString("auth.jwt_secret"),
			JWTExpire:  expire,
			BcryptCost: v.GetInt("auth.bcrypt_cost"),
		},
		Seed: v.GetBool("seed"),
	}

	if err := cfg.validate(opts.Dev); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost:5173",
		"http://127.0.0.1:5173",
	})
	v.SetDefault("storage.type", StorageInMemory)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "blog-platform")
	v.SetDefault("redis.ttl", "10m")
	v.SetDefault("auth.jwt_expire", "7d")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("seed", false)
}

// bindEnv связывает переменные BLOG_* с ключами, плюс старые имена без префикса.
func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix("BLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	aliases := map[string][]string{
		"server.port":            {"BLOG_SERVER_PORT", "PORT"},
		"server.allowed_origins": {"BLOG_SERVER_ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		"postgres.dsn":           {"BLOG_POSTGRES_DSN", "DATABASE_URL"},
		"mongo.uri":              {"BLOG_MONGO_URI", "MONGODB_URI"},
		"redis.addr":             {"BLOG_REDIS_ADDR", "REDIS_ADDR"},
		"auth.jwt_secret":        {"BLOG_AUTH_JWT_SECRET", "JWT_SECRET"},
		"auth.jwt_expire":        {"BLOG_AUTH_JWT_EXPIRE", "JWT_EXPIRE"},
	}
	for key, envs := range aliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) validate(dev bool) error {
	switch c.Storage.Type {
	case StorageInMemory:
	case StoragePostgres:
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn (DATABASE_URL) must be set for postgres storage")
		}
	case StorageMongo:
		if c.Mongo.URI == "" {
			return errors.New("mongo.uri (MONGODB_URI) must be set for mongo storage")
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}

	if c.Auth.JWTSecret == "" {
		if !dev {
			return errors.New("auth.jwt_secret (JWT_SECRET) must be set")
		}
		c.Auth.JWTSecret = devSecret
	}
	if c.Auth.JWTExpire <= 0 {
		return errors.New("auth.jwt_expire must be positive")
	}
	return nil
}

// ParseDuration принимает Go-длительности ("12h"), дни ("7d") и секунды ("3600").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// splitList принимает и одну строку через запятую, как приходит из env.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
