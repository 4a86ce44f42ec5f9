package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/contentforge/ragpipe/internal/config"
	"github.com/contentforge/ragpipe/internal/core"
	db "github.com/contentforge/ragpipe/internal/core/database"
	"github.com/contentforge/ragpipe/internal/core/extract"
	"github.com/contentforge/ragpipe/internal/core/llm"
	"github.com/contentforge/ragpipe/internal/core/objectstore"
	"github.com/contentforge/ragpipe/internal/processor"
)

// App owns the wired pipeline and its external clients.
type App struct {
	DBClient core.DbClient
	Loader   *processor.Loader
	Pipeline *processor.Pipeline

	embedClient *llm.GeminiEmbedder
	genClient   *llm.GeminiLLM
}

// Options tune the run without touching the environment config.
type Options struct {
	CheckpointDir string
}

// NewApp connects the database, object storage and AI clients, and wires the
// processing pipeline. Object storage and the AI clients are optional: a
// missing credential degrades that capability instead of failing startup.
func NewApp(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	objClient, err := objectstore.NewS3Client(appCtx, cfg)
	if err != nil {
		log.Printf("Object storage unavailable, document files will be skipped: %v", err)
		objClient = nil
	}

	var (
		embedder    *llm.GeminiEmbedder
		llmProvider *llm.GeminiLLM
	)
	if cfg.AIAPIKey != "" {
		embedder, err = llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
		if err != nil {
			_ = dbClient.Close()
			return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
		}

		llmProvider, err = llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			log.Printf("LLM unavailable, summaries fall back to heuristics: %v", err)
			llmProvider = nil
		}
	} else {
		log.Println("GEMINI_API_KEY not set; embeddings disabled, summaries fall back to heuristics")
	}

	checkpointDir := opts.CheckpointDir
	if checkpointDir == "" {
		checkpointDir = cfg.CheckpointDir
	}
	checkpoints, err := processor.NewCheckpointStore(checkpointDir)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}

	procCfg := processor.DefaultConfig()
	procCfg.EmbedDim = cfg.EmbedDim
	procCfg.EmbedModel = cfg.EmbedModel

	extractor := extract.NewDocconvExtractor(false)
	loader := processor.NewLoader(dbClient, objClient, extractor, cfg.BucketName)

	// Interface values built from nil pointers must stay nil.
	var embedProvider core.EmbeddingProvider
	if embedder != nil {
		embedProvider = embedder
	}
	var genProvider core.LLMProvider
	if llmProvider != nil {
		genProvider = llmProvider
	}

	summarizer := processor.NewSummarizer(genProvider, procCfg)
	batchEmbedder := processor.NewEmbedder(embedProvider, procCfg)
	pipeline := processor.NewPipeline(dbClient, summarizer, batchEmbedder, checkpoints, procCfg)

	return &App{
		DBClient:    dbClient,
		Loader:      loader,
		Pipeline:    pipeline,
		embedClient: embedder,
		genClient:   llmProvider,
	}, nil
}

func (a *App) Close() {
	if a.embedClient != nil {
		_ = a.embedClient.Close()
	}
	if a.genClient != nil {
		_ = a.genClient.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
