package cmd

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/postpilot/postpilot/core/config"
	"github.com/postpilot/postpilot/core/database"
	generationApp "github.com/postpilot/postpilot/generation/application"
	generationDomain "github.com/postpilot/postpilot/generation/domain"
	"github.com/postpilot/postpilot/generation/providers"
	"github.com/postpilot/postpilot/infrastructure/valkey"
	"github.com/postpilot/postpilot/integrations/trending"
	"github.com/postpilot/postpilot/notify"
	"github.com/postpilot/postpilot/pkg/crypto"
	"github.com/postpilot/postpilot/pkg/postworker"
	"github.com/postpilot/postpilot/pkg/utils"
	"github.com/postpilot/postpilot/publisher"
	"github.com/postpilot/postpilot/publisher/platforms"
	schedulerApp "github.com/postpilot/postpilot/scheduler/application"
	"github.com/postpilot/postpilot/scheduler/repository"
)

var (
	db         *gorm.DB
	repo       *repository.SchedulerGormRepository
	engine     *generationApp.Engine
	registry   *publisher.Registry
	notifyPool *postworker.Pool
	notifier   *notify.Service
	manager    *schedulerApp.Manager
	vkClient   *valkey.Client
	serverID   string
)

var rootCmd = &cobra.Command{
	Use:   "postpilot",
	Short: "Autonomous multi-platform content publishing engine",
	Long: `PostPilot generates content with AI providers and publishes it to
configured platforms on a per-platform weekly schedule.`,
}

func init() {
	// Environment variables first, .env as fallback
	_ = godotenv.Load()

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	viper.AutomaticEnv()
	initFlags()

	cobra.OnInitialize(initApp)
}

var (
	flagPort  string
	flagDebug bool
	flagDBURI string
)

func initFlags() {
	rootCmd.PersistentFlags().StringVarP(
		&flagPort,
		"port", "p",
		"",
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&flagDebug,
		"debug", "d",
		false,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringVarP(
		&flagDBURI,
		"db-name", "",
		"",
		`database location (file path for sqlite, database name for postgres) --db-name <string> | example: --db-name="storages/postpilot.db"`,
	)
}

func initApp() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	if flagPort != "" {
		cfg.App.Port = flagPort
	}
	if flagDebug {
		cfg.App.Debug = true
	}
	if flagDBURI != "" {
		cfg.Database.Name = flagDBURI
	}

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if cfg.App.CredentialsKey != "" {
		if err := crypto.SetEncryptionKey(cfg.App.CredentialsKey); err != nil {
			logrus.Fatalf("Invalid credentials encryption key: %v", err)
		}
	}

	ctx := context.Background()

	db, err = database.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}

	repo = repository.NewSchedulerGormRepository(db)
	if err := repo.Init(ctx); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	// Valkey is optional; without it the instance runs standalone.
	if cfg.Valkey.Enabled {
		vkClient, err = valkey.NewClient(valkey.Config{
			Address:   cfg.Valkey.Address,
			Password:  cfg.Valkey.Password,
			DB:        cfg.Valkey.DB,
			KeyPrefix: cfg.Valkey.KeyPrefix,
		})
		if err != nil {
			logrus.WithError(err).Warn("[APP] Valkey unavailable, running standalone")
			vkClient = nil
		}
	}
	serverID = utils.GetPersistentServerID(cfg.App.ServerID, "storages")

	// Generation engine, providers in configured priority order
	var provs []generationDomain.ContentProvider
	for _, name := range cfg.AI.ProviderOrder {
		switch name {
		case "gemini":
			if cfg.AI.GeminiAPIKey != "" {
				provs = append(provs, providers.NewGeminiProvider(cfg.AI.GeminiAPIKey, cfg.AI.GeminiModel))
			}
		case "openai":
			if cfg.AI.OpenAIAPIKey != "" {
				provs = append(provs, providers.NewOpenAIProvider(cfg.AI.OpenAIAPIKey, cfg.AI.OpenAIModel))
			}
		default:
			logrus.Warnf("[APP] Unknown AI provider %q ignored", name)
		}
	}
	if len(provs) == 0 {
		logrus.Warn("[APP] No AI provider configured, content generation will fail until one is set")
	}
	engine = generationApp.NewEngine(provs...)

	// Publishers
	creds := publisher.NewStoreCredentialSource(repo, cfg.Scheduler.UserID)
	registry = publisher.NewRegistry()
	registry.Register(platforms.NewDevtoPublisher(creds))
	registry.Register(platforms.NewHashnodePublisher(creds))
	registry.Register(platforms.NewMediumPublisher(creds))
	registry.Register(platforms.NewTwitterPublisher(creds))
	registry.Register(platforms.NewLinkedinPublisher(creds))
	registry.Register(platforms.NewFacebookPublisher(creds))
	registry.Register(platforms.NewInstagramPublisher(creds))

	// Notifications
	notifyPool = postworker.NewPool(cfg.Notify.WorkerPoolSize, cfg.Notify.QueueSize)
	notifyPool.Start(ctx)
	notifier = notify.NewService(repo, notifyPool, nil)

	// Scheduler
	opts := []schedulerApp.Option{}
	if cfg.AI.TrendingSource != "" {
		opts = append(opts, schedulerApp.WithTopicSource(trending.NewClient(cfg.AI.TrendingSource).TopicSource))
	}
	if vkClient != nil {
		opts = append(opts, schedulerApp.WithLock(func(key string, ttl time.Duration) bool {
			lockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return vkClient.TryLock(lockCtx, key, ttl)
		}))
	}
	manager = schedulerApp.NewManager(
		schedulerApp.Config{
			UserID:           cfg.Scheduler.UserID,
			DispatchInterval: time.Duration(cfg.Scheduler.DispatchInterval) * time.Second,
			WatchInterval:    time.Duration(cfg.Scheduler.WatchInterval) * time.Second,
			MaxRetries:       cfg.Scheduler.MaxRetries,
			PublishTimeout:   time.Duration(cfg.Scheduler.PublishTimeout) * time.Second,
		},
		repo, engine, registry, notifier,
		opts...,
	)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of the scheduler and its dependencies.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if manager != nil {
		manager.Stop()
	}
	if notifyPool != nil {
		notifyPool.Stop()
	}
	if vkClient != nil {
		vkClient.Close()
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
