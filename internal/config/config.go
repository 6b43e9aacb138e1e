package config

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"

	pkgcfg "github.com/Skotchmaster/research_repository/pkg/config"
)

type Config struct {
	ServerPort int
	LogLevel   string

	DBDriver    string
	DatabaseURL string

	SessionSecret []byte
	SessionTTL    time.Duration
	RememberTTL   time.Duration
	HomeRoute     string
	SecureCookies bool

	KafkaBrokers []string
	MailTopic    string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string

	SMTPAddr     string
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	AuthThrottleRPS   float64
	AuthThrottleBurst int

	OTPSweepInterval time.Duration

	SeedAdminEmail string
	SeedAdminName  string
}

// MailerConfig is all cmd/mailer needs; it never touches the database.
type MailerConfig struct {
	LogLevel     string
	KafkaBrokers []string
	MailTopic    string
	MailGroupID  string

	SMTPAddr     string
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		ServerPort: pkgcfg.EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:   pkgcfg.EnvDefault("LOG_LEVEL", "info"),

		DBDriver:    pkgcfg.EnvDefault("DB_DRIVER", "postgres"),
		DatabaseURL: pkgcfg.EnvDefault("DATABASE_URL", ""),

		SessionSecret: []byte(pkgcfg.EnvDefault("SESSION_SECRET", "")),
		SessionTTL:    pkgcfg.EnvDurationDefault("SESSION_TTL", 2*time.Hour),
		RememberTTL:   pkgcfg.EnvDurationDefault("REMEMBER_TTL", 30*24*time.Hour),
		HomeRoute:     pkgcfg.EnvDefault("HOME_ROUTE", "/dashboard"),
		SecureCookies: pkgcfg.EnvBoolDefault("SECURE_COOKIES", false),

		KafkaBrokers: pkgcfg.CSV(pkgcfg.EnvDefault("KAFKA_BROKERS", "")),
		MailTopic:    pkgcfg.EnvDefault("MAIL_TOPIC", "mail_events"),

		ESURL:      pkgcfg.EnvDefault("ES_URL", ""),
		ESUser:     pkgcfg.EnvDefault("ES_USER", ""),
		ESPassword: pkgcfg.EnvDefault("ES_PASSWORD", ""),
		ESIndex:    pkgcfg.EnvDefault("ES_INDEX", "assets"),

		S3Region:    pkgcfg.EnvDefault("S3_REGION", "us-east-1"),
		S3Endpoint:  pkgcfg.EnvDefault("S3_ENDPOINT", ""),
		S3AccessKey: pkgcfg.EnvDefault("S3_ACCESS_KEY", ""),
		S3SecretKey: pkgcfg.EnvDefault("S3_SECRET_KEY", ""),
		S3Bucket:    pkgcfg.EnvDefault("S3_BUCKET", "assets"),

		SMTPAddr:     pkgcfg.EnvDefault("SMTP_ADDR", "localhost:1025"),
		SMTPUser:     pkgcfg.EnvDefault("SMTP_USER", ""),
		SMTPPassword: pkgcfg.EnvDefault("SMTP_PASSWORD", ""),
		MailFrom:     pkgcfg.EnvDefault("MAIL_FROM", "no-reply@research.local"),

		AuthThrottleRPS:   pkgcfg.EnvFloatDefault("AUTH_THROTTLE_RPS", 5),
		AuthThrottleBurst: pkgcfg.EnvIntDefault("AUTH_THROTTLE_BURST", 10),

		OTPSweepInterval: pkgcfg.EnvDurationDefault("OTP_SWEEP_INTERVAL", 15*time.Minute),

		SeedAdminEmail: pkgcfg.EnvDefault("SEED_ADMIN_EMAIL", "admin@research.local"),
		SeedAdminName:  pkgcfg.EnvDefault("SEED_ADMIN_NAME", "Administrator"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := pkgcfg.MustNonEmpty(c.DatabaseURL, "DATABASE_URL"); err != nil {
		return err
	}
	if err := pkgcfg.MustNonEmptyBytes(c.SessionSecret, "SESSION_SECRET"); err != nil {
		return err
	}
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return errors.New("DB_DRIVER must be postgres or sqlite")
	}
	return nil
}

func LoadMailerConfig() (*MailerConfig, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &MailerConfig{
		LogLevel:     pkgcfg.EnvDefault("LOG_LEVEL", "info"),
		KafkaBrokers: pkgcfg.CSV(pkgcfg.EnvDefault("KAFKA_BROKERS", "")),
		MailTopic:    pkgcfg.EnvDefault("MAIL_TOPIC", "mail_events"),
		MailGroupID:  pkgcfg.EnvDefault("MAIL_GROUP_ID", "mailer"),

		SMTPAddr:     pkgcfg.EnvDefault("SMTP_ADDR", "localhost:1025"),
		SMTPUser:     pkgcfg.EnvDefault("SMTP_USER", ""),
		SMTPPassword: pkgcfg.EnvDefault("SMTP_PASSWORD", ""),
		MailFrom:     pkgcfg.EnvDefault("MAIL_FROM", "no-reply@research.local"),
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	return cfg, nil
}
