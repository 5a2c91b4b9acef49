package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Port           string        `mapstructure:"port"`
		Env            string        `mapstructure:"env"`
		LogLevel       string        `mapstructure:"log_level"`
		RequestTimeout time.Duration `mapstructure:"request_timeout"`
	} `mapstructure:"app"`
	DB struct {
		Driver         string `mapstructure:"driver"`
		DSN            string `mapstructure:"dsn"`
		MigrationsPath string `mapstructure:"migrations_path"`
		MigrateOnStart bool   `mapstructure:"migrate_on_start"`
	} `mapstructure:"db"`
	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		TTL      time.Duration `mapstructure:"ttl"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
		GroupID string   `mapstructure:"group_id"`
	} `mapstructure:"kafka"`
	Auth struct {
		JWTSecret        string        `mapstructure:"jwt_secret"`
		TokenLifespan    time.Duration `mapstructure:"token_lifespan"`
		EnforceOwnership bool          `mapstructure:"enforce_ownership"`
	} `mapstructure:"auth"`
	Blob struct {
		Provider       string `mapstructure:"provider"`
		Root           string `mapstructure:"root"`
		MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
	} `mapstructure:"blob"`
	Cloudinary struct {
		CloudName string `mapstructure:"cloud_name"`
		ApiKey    string `mapstructure:"api_key"`
		ApiSecret string `mapstructure:"api_secret"`
	} `mapstructure:"cloudinary"`
	Tracing struct {
		OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
		SampleRatio  float64 `mapstructure:"sample_ratio"`
	} `mapstructure:"tracing"`
	RateLimit struct {
		RPS   float64 `mapstructure:"rps"`
		Burst int     `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8092")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.request_timeout", 30*time.Second)
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.migrations_path", "file://migrations")
	v.SetDefault("db.migrate_on_start", false)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)
	v.SetDefault("kafka.topic", "profile.events")
	v.SetDefault("kafka.group_id", "profile-blob-janitor")
	v.SetDefault("auth.token_lifespan", 10*time.Hour)
	v.SetDefault("auth.enforce_ownership", true)
	v.SetDefault("blob.provider", "local")
	v.SetDefault("blob.root", ".")
	v.SetDefault("blob.max_upload_bytes", 5<<20)
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("rate_limit.rps", 20)
	v.SetDefault("rate_limit.burst", 40)
}

var ErrMissingJWTSecret = errors.New("auth.jwt_secret (JWT_SECRET_KEY) must be set while auth.enforce_ownership is on")

// Validate rejects settings the server must not start with. An empty signing
// key lets anyone mint a token for any email.
func (c Config) Validate() error {
	if c.Auth.EnforceOwnership && c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// LoadConfig reads .env, then config.yaml under path, then the environment.
func LoadConfig(path string) (cfg Config, err error) {
	if err := godotenv.Load(); err != nil {
		log.Println("warning: .env file not found, use default.")
	}

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		log.Printf("note: config.yaml not found, read env only. Error: %v", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("app.port", "APP_PORT")
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.log_level", "LOG_LEVEL")
	v.BindEnv("db.driver", "DB_DRIVER")
	v.BindEnv("db.dsn", "DB_DSN")
	v.BindEnv("db.migrate_on_start", "DB_MIGRATE_ON_START")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET_KEY", "JWT_SECRET")
	v.BindEnv("auth.token_lifespan", "TOKEN_LIFESPAN")
	v.BindEnv("auth.enforce_ownership", "AUTH_ENFORCE_OWNERSHIP")
	v.BindEnv("blob.provider", "BLOB_PROVIDER")
	v.BindEnv("blob.root", "BLOB_ROOT")

	v.BindEnv("cloudinary.cloud_name", "CLOUDINARY_CLOUD_NAME")
	v.BindEnv("cloudinary.api_key", "CLOUDINARY_API_KEY")
	v.BindEnv("cloudinary.api_secret", "CLOUDINARY_API_SECRET")
	v.BindEnv("tracing.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("tracing.sample_ratio", "OTEL_TRACES_SAMPLER_ARG")

	err = v.Unmarshal(&cfg)
	return
}
