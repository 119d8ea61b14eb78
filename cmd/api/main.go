package main

import (
	"context"
	"database/sql"
	"log"

	"datachat-backend/internal/analyses"
	"datachat-backend/internal/llm"
	"datachat-backend/internal/llm/gemini"
	"datachat-backend/internal/services/health"
	"datachat-backend/internal/shared/config"
	"datachat-backend/internal/shared/server"
	"datachat-backend/internal/shared/storage/db"
	"datachat-backend/internal/shared/storage/object"
	"datachat-backend/internal/shared/storage/object/local"
	"datachat-backend/internal/shared/storage/object/s3"
	"datachat-backend/internal/topics"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("object store init: %v", err)
	}

	var database *sql.DB
	var analysesRepo analyses.Repo
	var topicsRepo topics.Repo
	if cfg.DatabaseURL != "" {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		database, err = db.Connect(ctx, cfg.DatabaseURL, opts)
		if err != nil {
			log.Fatalf("database connect: %v", err)
		}
		defer database.Close()
		if err := db.RunMigrations(ctx, database); err != nil {
			log.Fatalf("database migrations: %v", err)
		}
		analysesRepo = &analyses.PGRepo{DB: database}
		topicsRepo = &topics.PGRepo{DB: database}
	} else {
		log.Printf("DATABASE_URL not set; using in-memory repositories")
		analysesRepo = analyses.NewMemoryRepo()
		topicsRepo = topics.NewMemoryRepo()
	}

	llmClient := buildLLM(ctx, cfg)

	analysesSvc := &analyses.Service{
		Repo:  analysesRepo,
		Store: store,
		LLM:   llmClient,
		Model: cfg.GeminiModel,
	}
	topicsSvc := &topics.Service{
		Analyses: analysesRepo,
		Repo:     topicsRepo,
		LLM:      llmClient,
		Model:    cfg.GeminiModel,
	}

	engine := server.NewEngine(cfg, server.Deps{
		Health:   health.NewService(database),
		Analyses: &analyses.Handler{Svc: analysesSvc},
		Topics:   &topics.Handler{Svc: topicsSvc},
	})

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	if cfg.ObjectStoreType == "s3" {
		return s3.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	}
	return local.New(cfg.LocalStoreDir), nil
}

func buildLLM(ctx context.Context, cfg config.Config) llm.Client {
	client, err := gemini.New(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Printf("gemini client unavailable: %v", err)
		return llm.NewUnconfigured("GEMINI_API_KEY is not set")
	}
	return client
}
