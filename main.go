package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/negroni"

	"github.com/solenne/bistoury/config"
	"github.com/solenne/bistoury/db"
	"github.com/solenne/bistoury/logging"
	"github.com/solenne/bistoury/scheduler"
	"github.com/solenne/bistoury/server"
	"github.com/solenne/bistoury/services/notification_service"
	"github.com/solenne/bistoury/services/rag_service"
	"github.com/solenne/bistoury/vector_store"
	"github.com/solenne/bistoury/vector_store/memory"
	"github.com/solenne/bistoury/vector_store/pgvector"
	"github.com/solenne/bistoury/vector_store/pinecone"
)

func main() {
	cfg := config.Load()

	handler, err := logging.NewDailyFileHandler(cfg.LogDir, &slog.HandlerOptions{Level: slog.LevelInfo})
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	logger := slog.New(handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	embedder := rag_service.NewEmbeddingClient(
		cfg.EmbeddingEndpoint,
		cfg.EmbeddingAPIKey,
		cfg.EmbeddingModel,
		cfg.EmbeddingDimension,
		logger,
	)

	store, pool := buildStore(ctx, cfg, logger)

	ensureCtx, ensureCancel := context.WithTimeout(ctx, cfg.IndexReadyTimeout+30*time.Second)
	defer ensureCancel()
	if err := store.EnsureIndex(ensureCtx); err != nil {
		log.Fatalf("Failed to ensure vector index: %v", err)
	}

	ocr := rag_service.NewOCRNormalizer(cfg.OCRLanguages, logger)
	extractor := rag_service.NewDocumentExtractor(logger, ocr)
	chunker := rag_service.NewChunker(cfg.ChunkSize)
	processor := rag_service.NewProcessor(extractor, chunker, embedder, store, logger)
	retriever := rag_service.NewRetriever(embedder, store, cfg.TopK, logger)
	notifier := notification_service.NewSMSNotifier(
		cfg.TwilioAccountSID,
		cfg.TwilioAuthToken,
		cfg.TwilioFromNumber,
		cfg.TwilioToNumber,
		logger,
	)

	if pool != nil {
		manager := rag_service.NewIndexManager(pool, logger)
		s := scheduler.New(manager, cfg.ReindexInterval, logger)
		go s.Start(ctx)
	}

	r := server.SetupRoutes(processor, retriever, notifier, logger)
	n := setupNegroni(r)

	serverCfg := server.Config{
		Domains:      cfg.Domains,
		CertCacheDir: cfg.CertCacheDir,
		HTTPPort:     cfg.HTTPPort,
		HTTPSPort:    cfg.HTTPSPort,
	}

	logger.Info("Starting surgical assistant ingestion service",
		slog.String("environment", cfg.Environment),
		slog.String("vector_backend", cfg.VectorBackend),
		slog.String("index", cfg.IndexName))

	if cfg.Environment == "production" {
		server.ServeProduction(n, serverCfg)
	} else {
		srv := &http.Server{
			Addr:         ":" + cfg.HTTPPort,
			Handler:      n,
			IdleTimeout:  time.Minute,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		}
		server.ServeDevelopment(srv)
	}
}

func buildStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (vector_store.Store, *pgxpool.Pool) {
	switch cfg.VectorBackend {
	case "pinecone":
		return pinecone.NewStore(pinecone.Config{
			ControlURL:   cfg.PineconeControlURL,
			APIKey:       cfg.PineconeAPIKey,
			IndexName:    cfg.IndexName,
			Dimension:    cfg.EmbeddingDimension,
			Metric:       cfg.IndexMetric,
			Cloud:        cfg.IndexCloud,
			Region:       cfg.IndexRegion,
			ReadyTimeout: cfg.IndexReadyTimeout,
		}, logger), nil
	case "pgvector":
		pool, err := db.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		return pgvector.NewStore(pool, cfg.EmbeddingDimension, logger), pool
	default:
		logger.Warn("Using in-memory vector store; entries are lost on restart")
		return memory.NewStore(cfg.EmbeddingDimension), nil
	}
}

func setupNegroni(r http.Handler) *negroni.Negroni {
	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.Use(negroni.NewLogger())
	n.UseHandler(r)
	return n
}
