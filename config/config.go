package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Admin      AdminConfig
	Storage    StorageConfig
	Messaging  MessagingConfig
	Payment    PaymentConfig
	Reconciler ReconcilerConfig
}

type AppConfig struct {
	Port               string
	Env                string
	AllowedOrigins     []string
	RateLimitPerMinute int
	FrontendURL        string
	LogLevel           string
	// ClinicName heads generated documents such as payment receipts.
	ClinicName string
}

type DBConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	AutoMigrate    bool
	MigrationsPath string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// URL returns the connection string in the form golang-migrate expects.
func (c DBConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Name + "?sslmode=" + c.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type AdminConfig struct {
	Email    string
	Password string
	FullName string
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

type MessagingConfig struct {
	RabbitMQURL string
	Exchange    string
}

type PaymentConfig struct {
	StripeSecretKey string
	WebhookSecret   string
	Currency        string
	Timeout         time.Duration
}

type ReconcilerConfig struct {
	// CronSpec wins over Interval when both are set.
	CronSpec    string
	Interval    time.Duration
	GracePeriod time.Duration
	BatchSize   int
}

func LoadConfig() (*Config, error) {
	// .env is optional; real deployments inject plain environment variables
	_ = godotenv.Load()

	viper.AutomaticEnv()
	setDefaults()

	config := &Config{
		App: AppConfig{
			Port:               viper.GetString("APP_PORT"),
			Env:                viper.GetString("APP_ENV"),
			AllowedOrigins:     splitList(viper.GetString("APP_ALLOWED_ORIGINS")),
			RateLimitPerMinute: viper.GetInt("APP_RATE_LIMIT_PER_MINUTE"),
			FrontendURL:        strings.TrimRight(viper.GetString("APP_FRONTEND_URL"), "/"),
			LogLevel:           viper.GetString("LOG_LEVEL"),
			ClinicName:         viper.GetString("APP_CLINIC_NAME"),
		},
		DB: DBConfig{
			Host:           viper.GetString("DB_HOST"),
			Port:           viper.GetString("DB_PORT"),
			User:           viper.GetString("DB_USER"),
			Password:       viper.GetString("DB_PASSWORD"),
			Name:           viper.GetString("DB_NAME"),
			SSLMode:        viper.GetString("DB_SSLMODE"),
			AutoMigrate:    viper.GetBool("DB_AUTO_MIGRATE"),
			MigrationsPath: viper.GetString("DB_MIGRATIONS_PATH"),

			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			PoolSize: viper.GetInt("REDIS_POOL_SIZE"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  parseDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: parseDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		},
		Admin: AdminConfig{
			Email:    viper.GetString("ADMIN_EMAIL"),
			Password: viper.GetString("ADMIN_PASSWORD"),
			FullName: viper.GetString("ADMIN_FULL_NAME"),
		},
		Storage: StorageConfig{
			Endpoint:      viper.GetString("MINIO_ENDPOINT"),
			AccessKey:     viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey:     viper.GetString("MINIO_SECRET_KEY"),
			Bucket:        viper.GetString("MINIO_BUCKET"),
			UseSSL:        viper.GetBool("MINIO_USE_SSL"),
			PublicBaseURL: viper.GetString("MINIO_PUBLIC_BASE_URL"),
		},
		Messaging: MessagingConfig{
			RabbitMQURL: viper.GetString("RABBITMQ_URL"),
			Exchange:    viper.GetString("RABBITMQ_EXCHANGE"),
		},
		Payment: PaymentConfig{
			StripeSecretKey: viper.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret:   viper.GetString("STRIPE_WEBHOOK_SECRET"),
			Currency:        viper.GetString("PAYMENT_CURRENCY"),
			Timeout:         parseDuration("PAYMENT_TIMEOUT", 10*time.Second),
		},
		Reconciler: ReconcilerConfig{
			CronSpec:    viper.GetString("RECONCILER_CRON_SPEC"),
			Interval:    parseDuration("RECONCILER_INTERVAL", 5*time.Minute),
			GracePeriod: parseDuration("RECONCILER_GRACE_PERIOD", 2*time.Minute),
			BatchSize:   viper.GetInt("RECONCILER_BATCH_SIZE"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// validate rejects settings the service cannot start without.
func (c *Config) validate() error {
	var missing []string
	if c.DB.Host == "" {
		missing = append(missing, "DB_HOST")
	}
	if c.DB.Name == "" {
		missing = append(missing, "DB_NAME")
	}
	if c.JWT.Secret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	if c.JWT.AccessExpiry >= c.JWT.RefreshExpiry {
		return errors.New("JWT_ACCESS_EXPIRY must be shorter than JWT_REFRESH_EXPIRY")
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_ALLOWED_ORIGINS", "*")
	viper.SetDefault("APP_RATE_LIMIT_PER_MINUTE", 120)
	viper.SetDefault("APP_FRONTEND_URL", "http://localhost:5173")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("APP_CLINIC_NAME", "Clinic")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 50)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("ADMIN_FULL_NAME", "Administrator")
	viper.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	viper.SetDefault("MINIO_BUCKET", "profile-images")
	viper.SetDefault("RABBITMQ_EXCHANGE", "appointments")
	viper.SetDefault("PAYMENT_CURRENCY", "inr")
	viper.SetDefault("RECONCILER_BATCH_SIZE", 500)
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
