package main

import (
	"context"
	"fmt"
	"os"

	redisclient "github.com/yungbote/pianocrm-backend/internal/clients/redis"
	"github.com/yungbote/pianocrm-backend/internal/db"
	"github.com/yungbote/pianocrm-backend/internal/handlers"
	"github.com/yungbote/pianocrm-backend/internal/platform/envutil"
	"github.com/yungbote/pianocrm-backend/internal/platform/logger"
	"github.com/yungbote/pianocrm-backend/internal/platform/openai"
	"github.com/yungbote/pianocrm-backend/internal/repos"
	"github.com/yungbote/pianocrm-backend/internal/scoringcfg"
	"github.com/yungbote/pianocrm-backend/internal/server"
	"github.com/yungbote/pianocrm-backend/internal/services"
)

func main() {
	// Logger
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", &services.ConfigurationError{Setting: "postgres", Err: err})
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	profileRepo := repos.NewProfileRepo(thePG, log)
	dialogueRepo := repos.NewDialogueRepo(thePG, log)
	productRepo := repos.NewProductRepo(thePG, log)
	reminderRepo := repos.NewReminderRepo(thePG, log)

	// Services
	log.Info("Setting up services from main...")
	llmClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", &services.ConfigurationError{Setting: "openai", Err: err})
		os.Exit(1)
	}
	summarizer := services.NewSummarizerService(llmClient, log)
	extractor := services.NewFactExtractorService(llmClient, log)
	requalifyService := services.NewRequalifyService(
		thePG,
		log,
		profileRepo,
		dialogueRepo,
		productRepo,
		summarizer,
		extractor,
		services.CycleConfigFromEnv(),
	)

	scoringConfig, err := scoringcfg.Load(envutil.String("SCORING_CONFIG_PATH", ""))
	if err != nil {
		log.Error("Could not load scoring config", "error", &services.ConfigurationError{Setting: "scoring_config", Err: err})
		os.Exit(1)
	}
	scoringService := services.NewScoringService(log, profileRepo, productRepo, reminderRepo, scoringConfig)
	reminderService := services.NewReminderService(log, reminderRepo)
	batchService := services.NewBatchService(log, scoringService, requalifyService, reminderService)

	// Trigger queue (optional): the chat responder pushes customer ids
	// after each inbound message.
	if envutil.String("REDIS_ADDR", "") != "" {
		queue, err := redisclient.NewTriggerQueue(log)
		if err != nil {
			log.Error("Could not init trigger queue", "error", err)
			os.Exit(1)
		}
		go queue.StartConsumer(context.Background(), func(ctx context.Context, customerID int64) {
			if _, err := requalifyService.Run(ctx, customerID); err != nil {
				log.Error("Triggered merge cycle failed", "customer_id", customerID, "error", err)
			}
		})
	} else {
		log.Info("REDIS_ADDR not set, trigger queue consumer disabled")
	}

	// Router
	log.Info("Setting up router from main...")
	customerHandler := handlers.NewCustomerHandler(log, requalifyService, batchService, profileRepo)
	router := server.NewRouter(server.RouterConfig{
		CustomerHandler: customerHandler,
	})

	port := envutil.String("PORT", "8080")
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
