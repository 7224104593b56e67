package main

import (
	"context"
	"fmt"
	"os"

	"jurislens-backend/config"
	"jurislens-backend/handlers"
	"jurislens-backend/repository"
	"jurislens-backend/service"
	"jurislens-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Info().Msg("no .env file found, using environment variables")
		}
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_PRETTY") == "true" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not set, analysis endpoints will report a configuration error")
	}

	db, err := initPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Postgres")
	}
	defer db.Close()

	rulingArchive, err := storage.NewStorageFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize ruling archive storage")
	}
	log.Info().Msg("ruling archive storage initialized")

	searchRepo := repository.NewCaseSearchRepository(db)
	docRepo := repository.NewCaseDocumentRepository(db, cfg.DocsTable)

	embedder := service.NewEmbeddingClient(service.EmbeddingConfig{
		BaseURL:    cfg.OpenAIBaseURL,
		APIKey:     cfg.OpenAIAPIKey,
		Model:      cfg.EmbedModel,
		Dimensions: cfg.EmbedDim,
		MaxChars:   cfg.MaxEmbedChars,
	})

	analysisService := service.NewAnalysisService(
		service.AnalysisWithEmbedder(embedder),
		service.AnalysisWithSearcher(searchRepo),
		service.AnalysisWithCompletion(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.AnalyzeModel),
		service.AnalysisWithDocumentCeiling(cfg.MaxDocumentChars),
	)

	answerService := service.NewAnswerService(
		service.AnswerWithCompletion(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.RAGModel),
	)

	caseDetailService := service.NewCaseDetailService(docRepo,
		service.CaseDetailWithArchive(rulingArchive),
		service.CaseDetailWithBaseURL(cfg.RulingsBaseURL),
	)

	documentHandler := handlers.NewDocumentHandler(analysisService, cfg.MaxDocumentChars)
	searchHandler := handlers.NewSearchHandler(embedder, searchRepo)
	answerHandler := handlers.NewAnswerHandler(answerService)
	caseHandler := handlers.NewCaseHandler(caseDetailService)

	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	api := r.Group("/api")
	{
		api.POST("/documents/analyze", documentHandler.AnalyzeDocument)
		api.POST("/search", searchHandler.Search)
		api.POST("/answer", answerHandler.Answer)

		// ECLIs contain colons, so the route is a catch-all.
		api.GET("/ecli/*ecli", caseHandler.GetCase)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info().Str("addr", addr).Msg("server starting")
	if err := r.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}

func initPostgres(connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, err
	}

	// Enable pgvector extension
	ctx := context.Background()
	_, err = pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		log.Warn().Err(err).Msg("failed to create pgvector extension, it may already be installed or require superuser privileges")
	} else {
		log.Info().Msg("pgvector extension enabled")
	}

	log.Info().Msg("Postgres connection established with pgvector support")
	return pool, nil
}
