// One-shot requalification of a single customer, invoked by the chat
// responder pipeline. The customer id comes from argv or, failing that,
// the first line of stdin. Exit code 0 means the merge committed or
// there was nothing to do; 1 means the cycle failed in any phase.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/yungbote/pianocrm-backend/internal/db"
	"github.com/yungbote/pianocrm-backend/internal/platform/envutil"
	"github.com/yungbote/pianocrm-backend/internal/platform/logger"
	"github.com/yungbote/pianocrm-backend/internal/platform/openai"
	"github.com/yungbote/pianocrm-backend/internal/repos"
	"github.com/yungbote/pianocrm-backend/internal/services"
)

func main() {
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	customerID, err := readCustomerID()
	if err != nil {
		log.Error("No usable customer id", "error", err)
		os.Exit(1)
	}

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", &services.ConfigurationError{Setting: "postgres", Err: err})
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	profileRepo := repos.NewProfileRepo(thePG, log)
	dialogueRepo := repos.NewDialogueRepo(thePG, log)
	productRepo := repos.NewProductRepo(thePG, log)

	llmClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", &services.ConfigurationError{Setting: "openai", Err: err})
		os.Exit(1)
	}

	requalifyService := services.NewRequalifyService(
		thePG,
		log,
		profileRepo,
		dialogueRepo,
		productRepo,
		services.NewSummarizerService(llmClient, log),
		services.NewFactExtractorService(llmClient, log),
		services.CycleConfigFromEnv(),
	)

	result, err := requalifyService.Run(context.Background(), customerID)
	if err != nil {
		log.Error("Merge cycle failed", "customer_id", customerID, "error", err)
		os.Exit(1)
	}

	if result.Skipped {
		log.Info("Nothing to do", "customer_id", customerID)
		return
	}
	log.Info("Merge cycle done",
		"customer_id", customerID,
		"funnel_stage", result.FunnelStage,
		"tags", result.QualificationTags,
	)
}

func readCustomerID() (int64, error) {
	if len(os.Args) > 1 {
		return parseCustomerID(os.Args[1])
	}

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return parseCustomerID(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("no customer id on argv or stdin")
}

func parseCustomerID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid customer id %q", raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("customer id must be positive, got %d", id)
	}
	return id, nil
}
