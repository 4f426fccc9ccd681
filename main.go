package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"lighthouse-checkout/internal/config"
	"lighthouse-checkout/internal/consumer"
	"lighthouse-checkout/internal/dispatch"
	"lighthouse-checkout/internal/handler"
	"lighthouse-checkout/internal/lambdaproxy"
	"lighthouse-checkout/internal/payment"
	"lighthouse-checkout/internal/producer"
	"lighthouse-checkout/internal/release"
	"lighthouse-checkout/internal/repository"
	"lighthouse-checkout/internal/sender"
	"lighthouse-checkout/internal/server"
	"lighthouse-checkout/internal/service"

	"github.com/aws/aws-lambda-go/lambda"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	envFile        string
	lambdaFunction string
)

var rootCmd = &cobra.Command{
	Use:           "lighthouse-checkout",
	Short:         "Lighthouse license checkout and fulfilment",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the checkout and webhook endpoints over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		app, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return server.Run(ctx, cfg.HTTPAddr, app.router())
	},
}

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run one endpoint as an AWS Lambda function",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		app, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		var h http.Handler
		switch lambdaFunction {
		case "checkout":
			h = app.checkout
		case "webhook":
			h = app.webhook
		case "":
			h = app.router()
		default:
			return fmt.Errorf("unknown lambda function %q", lambdaFunction)
		}
		log.WithField("function", lambdaFunction).Info("Starting Lambda handler")
		lambda.Start(lambdaproxy.New(h))
		return nil
	},
}

var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Consume license purchases and email the sales inbox",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Kafka.KafkaServers() == "" {
			return fmt.Errorf("KAFKA_BOOTSTRAP_SERVERS is not set")
		}
		if !cfg.SMTP.Configured() {
			return fmt.Errorf("SMTP environment variables are not set")
		}

		var emailRepository service.EmailRepository
		if cfg.Database.URL != "" {
			db, err := openDatabase(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			emailRepository = repository.NewPostgresRepository(db)
		} else {
			log.Warn("DATABASE_URL is not set, email logs will not be stored")
		}

		emailSender := sender.NewSMTPEmailSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
		notificationService := service.NewNotificationService(emailSender, emailRepository, cfg.SMTP.SalesInbox)
		purchaseHandler := handler.NewPurchaseHandler(notificationService)

		log.WithField("kafka_servers", cfg.Kafka.KafkaServers()).Info("Connecting to Kafka")
		kafkaConsumer, err := consumer.NewKafkaConsumer(cfg.Kafka.KafkaServers(), cfg.Kafka.GroupID, cfg.Kafka.Topic, purchaseHandler)
		if err != nil {
			return err
		}
		defer kafkaConsumer.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := kafkaConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is not set")
		}
		return repository.Migrate(cfg.Database.MigrationsPath, cfg.Database.URL, cfg.Database.MigrationsTable)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file (default: .env, ../.env)")
	lambdaCmd.Flags().StringVar(&lambdaFunction, "function", os.Getenv("LAMBDA_FUNCTION"), "Endpoint to serve: checkout or webhook (default: all)")

	rootCmd.AddCommand(serveCmd, lambdaCmd, notifierCmd, migrateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.WithError(err).Fatal("Command failed")
	}
}

func loadConfig() (config.Config, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return config.Config{}, err
	}
	config.SetupLogger(cfg.LogLevel)
	return cfg, nil
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	if err := repository.Migrate(cfg.MigrationsPath, cfg.URL, cfg.MigrationsTable); err != nil {
		return nil, err
	}
	return repository.Open(cfg.URL)
}

// app holds the HTTP side of the service: both function endpoints plus the
// optional audit log and purchase stream.
type app struct {
	checkout *handler.CheckoutHandler
	webhook  *handler.WebhookHandler
	version  *handler.VersionHandler

	db       *sql.DB
	producer *producer.KafkaProducer
}

func newApp(cfg config.Config) (*app, error) {
	a := &app{}

	gateway := payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.APIURL, payment.Product{
		Name:       cfg.Stripe.ProductName,
		Currency:   cfg.Stripe.Currency,
		UnitAmount: cfg.Stripe.UnitAmount,
	})
	a.checkout = handler.NewCheckoutHandler(service.NewCheckoutService(gateway, cfg.PublicBaseURL))

	workflow := dispatch.NewWorkflowClient(dispatch.Options{
		Token:        cfg.License.GitHubToken,
		APIURL:       cfg.License.GitHubAPIURL,
		Repository:   cfg.License.Repository,
		WorkflowFile: cfg.License.WorkflowFile,
		Ref:          cfg.License.Ref,
	}, nil)

	var dispatchLogs service.DispatchLogRepository
	if cfg.Database.URL != "" {
		db, err := openDatabase(cfg.Database)
		if err != nil {
			return nil, err
		}
		a.db = db
		dispatchLogs = repository.NewPostgresRepository(db)
	}

	var publisher service.PurchasePublisher
	if servers := cfg.Kafka.KafkaServers(); servers != "" {
		p, err := producer.NewKafkaProducer(servers, cfg.Kafka.Topic)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.producer = p
		publisher = p
	}

	licenseService := service.NewLicenseService(workflow, publisher, dispatchLogs)
	a.webhook = handler.NewWebhookHandler(cfg.Stripe.WebhookSecret, licenseService)

	releases := release.NewClient(release.Options{
		APIURL:     cfg.License.GitHubAPIURL,
		Repository: cfg.Release.Repository,
		Fallback:   cfg.Release.FallbackVersion,
		CacheTTL:   cfg.Release.CacheTTL,
	}, nil)
	a.version = handler.NewVersionHandler(releases)

	return a, nil
}

func (a *app) router() http.Handler {
	return server.NewRouter(server.Handlers{
		Checkout: a.checkout,
		Webhook:  a.webhook,
		Version:  a.version,
	})
}

func (a *app) Close() {
	if a.producer != nil {
		a.producer.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.WithError(err).Error("Failed to close database")
		}
	}
}
