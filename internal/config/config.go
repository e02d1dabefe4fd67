package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	DatabaseURL      string
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート
	PostgresSSLMode  string

	JWTSecret        string // JWT署名シークレット
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	PasswordResetTTL time.Duration

	FEURL string // フロントURL（メール内リンク・CORS）

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AWSRegion           string
	AWSEndpoint         string // LocalStack など
	S3Bucket            string
	OrderEventsTopicARN string

	ChatAPIURL      string
	ChatAPIKey      string
	ChatModel       string
	ChatTemperature float64
	ClassifierURL   string
	ExternalTimeout time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	LogFile       string
	LogLevel      string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// IsProd は本番環境かどうか
func (c Config) IsProd() bool {
	return c.GoEnv == "prod" || c.GoEnv == "production"
}

// Loadは.env（あれば）と環境変数から設定を読む
func Load() (Config, error) {
	// .envは無くてもよい
	_ = godotenv.Load()

	var err error
	cfg := Config{
		Port:  getenv("PORT", "8080"),
		GoEnv: getenv("GO_ENV", "dev"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "smartplant"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		FEURL: getenv("FE_URL", "http://localhost:3000"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getenv("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: os.Getenv("SMTP_FROM"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		AWSRegion:           getenv("AWS_REGION", "ap-northeast-1"),
		AWSEndpoint:         os.Getenv("AWS_ENDPOINT"),
		S3Bucket:            os.Getenv("S3_BUCKET"),
		OrderEventsTopicARN: os.Getenv("ORDER_EVENTS_TOPIC_ARN"),

		ChatAPIURL:    getenv("CHAT_API_URL", "https://openrouter.ai/api/v1"),
		ChatAPIKey:    os.Getenv("CHAT_API_KEY"),
		ChatModel:     getenv("CHAT_MODEL", "nvidia/llama-3.1-nemotron-70b-instruct:free"),
		ClassifierURL: os.Getenv("CLASSIFIER_URL"),

		LogFile:  os.Getenv("LOG_FILE"),
		LogLevel: getenv("LOG_LEVEL", "info"),
	}

	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUser
	}

	if cfg.PostgresPort, err = atoiDefault("POSTGRES_PORT", 5432); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = atoiDefault("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = atoiDefault("RATE_LIMIT_BURST", 20); err != nil {
		return Config{}, err
	}
	if cfg.LogMaxSizeMB, err = atoiDefault("LOG_MAX_SIZE_MB", 100); err != nil {
		return Config{}, err
	}
	if cfg.LogMaxBackups, err = atoiDefault("LOG_MAX_BACKUPS", 5); err != nil {
		return Config{}, err
	}
	if cfg.LogMaxAgeDays, err = atoiDefault("LOG_MAX_AGE_DAYS", 30); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = floatDefault("RATE_LIMIT_RPS", 5); err != nil {
		return Config{}, err
	}
	if cfg.ChatTemperature, err = floatDefault("CHAT_TEMPERATURE", 0.7); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationDefault("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationDefault("REFRESH_TOKEN_TTL", 14*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.PasswordResetTTL, err = durationDefault("PASSWORD_RESET_TTL", 72*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ExternalTimeout, err = durationDefault("EXTERNAL_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func floatDefault(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return f, nil
}

// "15m" / "72h" 形式
func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}
