package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds every setting read from the environment. Secrets are optional
// here; handlers report their absence per request.
type Config struct {
	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"https://letpeople.work"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	Stripe   StripeConfig
	License  LicenseConfig
	Release  ReleaseConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	SMTP     SMTPConfig
}

type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	APIURL        string `env:"STRIPE_API_URL"`

	ProductName string `env:"PRODUCT_NAME" envDefault:"Lighthouse Premium License"`
	Currency    string `env:"PRODUCT_CURRENCY" envDefault:"chf"`
	UnitAmount  int64  `env:"PRODUCT_UNIT_AMOUNT" envDefault:"99900"`
}

type LicenseConfig struct {
	GitHubToken  string `env:"GITHUB_TOKEN"`
	GitHubAPIURL string `env:"GITHUB_API_URL" envDefault:"https://api.github.com"`
	Repository   string `env:"LICENSE_WORKFLOW_REPO" envDefault:"LetPeopleWork/Lighthouse"`
	WorkflowFile string `env:"LICENSE_WORKFLOW_FILE" envDefault:"generate-license.yml"`
	Ref          string `env:"LICENSE_WORKFLOW_REF" envDefault:"main"`
}

type ReleaseConfig struct {
	Repository      string        `env:"RELEASE_REPO" envDefault:"LetPeopleWork/Lighthouse"`
	FallbackVersion string        `env:"RELEASE_FALLBACK_VERSION" envDefault:"v25.7.27.1729"`
	CacheTTL        time.Duration `env:"RELEASE_CACHE_TTL" envDefault:"10m"`
}

type DatabaseConfig struct {
	URL             string `env:"DATABASE_URL"`
	MigrationsPath  string `env:"MIGRATIONS_PATH" envDefault:"file://db/migrations"`
	MigrationsTable string `env:"MIGRATIONS_TABLE" envDefault:"checkout_schema_migrations"`
}

type KafkaConfig struct {
	BootstrapServers string `env:"KAFKA_BOOTSTRAP_SERVERS"`
	Topic            string `env:"KAFKA_TOPIC" envDefault:"license_purchases"`
	GroupID          string `env:"KAFKA_GROUP_ID" envDefault:"license_notifier_group"`
}

type SMTPConfig struct {
	Host       string `env:"SMTP_HOST"`
	Port       string `env:"SMTP_PORT"`
	User       string `env:"SMTP_USER"`
	Password   string `env:"SMTP_PASSWORD"`
	From       string `env:"MAIL_FROM"`
	SalesInbox string `env:"SALES_INBOX" envDefault:"licensing@letpeople.work"`
}

// Configured reports whether every SMTP setting is present.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Port != "" && c.User != "" && c.Password != "" && c.From != ""
}

// KafkaServers strips the quotes some deployments leave around the list.
func (c KafkaConfig) KafkaServers() string {
	return strings.Trim(c.BootstrapServers, "\"")
}

// Load reads the optional .env files and parses the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env", "../.env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err == nil {
			log.WithField("file", f).Debug("Loaded env file")
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// SetupLogger configures the package-level logrus logger.
func SetupLogger(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("Unknown log level, falling back to info")
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
