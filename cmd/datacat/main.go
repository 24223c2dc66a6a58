// -----------------------------------------------------------------------
// Last Modified: Thursday, 30th July 2026 9:00:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/datacat/internal/catalogue"
	"github.com/ternarybob/datacat/internal/common"
	"github.com/ternarybob/datacat/internal/embeddings"
	"github.com/ternarybob/datacat/internal/etl"
	"github.com/ternarybob/datacat/internal/guardrails"
	"github.com/ternarybob/datacat/internal/interfaces"
	"github.com/ternarybob/datacat/internal/models"
	"github.com/ternarybob/datacat/internal/parser"
	"github.com/ternarybob/datacat/internal/rag"
	"github.com/ternarybob/datacat/internal/rerank"
	"github.com/ternarybob/datacat/internal/resource"
	"github.com/ternarybob/datacat/internal/search"
	"github.com/ternarybob/datacat/internal/storage/sqlite"
	"github.com/ternarybob/datacat/internal/vectorstore/qdrant"
)

// configPaths is a custom flag type that allows multiple -config flags.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

func main() {
	common.InstallCrashHandler("./logs")
	defer common.RecoverWithCrashFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	subcommand := os.Args[1]
	args := os.Args[2:]

	switch subcommand {
	case "init":
		runInit(args)
	case "run":
		runPipeline(args)
	case "embed":
		runEmbed(args)
	case "status":
		runStatus(args)
	case "search":
		runSearch(args)
	case "-v", "-version", "--version", "version":
		fmt.Printf("datacat version %s\n", common.GetVersion())
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`datacat - environmental dataset metadata catalogue search engine

Usage:
  datacat init     [-config path]...                      initialise the database schema
  datacat run      [-config path]... [-ids path] [-resume] fetch, parse, and store catalogue datasets
  datacat embed    [-config path]... [-reindex]            embed and index stored datasets into the vector store
  datacat status   [-config path]...                       report repository and index counts
  datacat search   [-config path]... [-role name] "<query>" run a hybrid search and print the results
  datacat version                                          print version information`)
}

// loadApp runs the shared startup sequence (load config, apply flag
// overrides, initialize logger, print banner) common to every
// subcommand.
func loadApp(configFiles []string, port int, host string) (*common.Config, arbor.ILogger) {
	if len(configFiles) == 0 {
		if _, err := os.Stat("datacat.toml"); err == nil {
			configFiles = append(configFiles, "datacat.toml")
		} else if _, err := os.Stat("deployments/local/datacat.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/datacat.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, port, host)

	logger := common.SetupLogger(config)
	common.InitLogger(logger)
	common.PrintBanner(config, logger)

	return config, logger
}

// components bundles every wired dependency a subcommand might need.
// Fields that could not be constructed (no vector store address or a
// client construction error, no Anthropic key configured) are left nil
// and callers degrade accordingly. The qdrant client connects lazily, so
// an unreachable store is still constructed; search checks IsAvailable.
type components struct {
	config      *common.Config
	logger      arbor.ILogger
	db          *sqlite.SQLiteDB
	repository  interfaces.Repository
	factory     *resource.Factory
	client      *catalogue.Client
	registry    *parser.Registry
	embedder    *embeddings.Service
	vectorStore *qdrant.Store
	searchSvc   interfaces.SearchService
	guard       interfaces.Guardrails
	generator   interfaces.Generator
}

func wire(config *common.Config, logger arbor.ILogger, openDB bool) (*components, error) {
	c := &components{config: config, logger: logger, guard: guardrails.New()}

	if openDB {
		db, err := sqlite.NewSQLiteDB(logger, &config.Storage.SQLite)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		c.db = db
		c.repository = sqlite.NewDatasetRepository(db, logger)
	}

	factory, err := resource.NewFactory(&config.Cache, config.Catalogue.RequestTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("init resource cache: %w", err)
	}
	c.factory = factory
	c.client = catalogue.New(&config.Catalogue, factory, logger)
	c.registry = parser.NewRegistry()
	c.embedder = embeddings.New(&config.Embeddings, logger)

	if config.VectorStore.Address != "" {
		store, err := qdrant.New(&config.VectorStore, c.embedder, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("vector store unavailable, search will degrade to keyword-only")
		} else {
			c.vectorStore = store
		}
	}

	var vs interfaces.VectorStore
	if c.vectorStore != nil {
		vs = c.vectorStore
	}
	var reranker interfaces.Reranker
	if config.Rerank.Enabled && config.Rerank.BaseURL != "" {
		reranker = rerank.New(&config.Rerank, logger)
	}
	if c.repository != nil {
		c.searchSvc = search.New(&config.Search, &config.Rerank, c.repository, vs, reranker, logger)
	}

	generator, err := rag.NewAnthropicGenerator(&config.Claude, logger)
	if err != nil {
		logger.Info().Msg("no generator configured, RAG answers will be extractive")
	} else {
		c.generator = generator
	}

	return c, nil
}

func (c *components) Close() {
	if c.vectorStore != nil {
		_ = c.vectorStore.Close()
	}
	if c.db != nil {
		_ = c.db.Close()
	}
	common.Stop()
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var configFiles configPaths
	fs.Var(&configFiles, "config", "configuration file path (repeatable)")
	fs.Parse(args)

	config, logger := loadApp(configFiles, 0, "")

	db, err := sqlite.NewSQLiteDB(logger, &config.Storage.SQLite)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize schema")
	}

	logger.Info().Str("path", config.Storage.SQLite.Path).Msg("database schema initialized")
}

func runPipeline(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var configFiles configPaths
	fs.Var(&configFiles, "config", "configuration file path (repeatable)")
	idsPath := fs.String("ids", "", "path to a newline-delimited file of dataset identifiers")
	resume := fs.Bool("resume", false, "use the configured checkpoint to skip already-processed identifiers")
	schedule := fs.String("schedule", "", "cron expression; if set, runs repeatedly instead of once")
	fs.Parse(args)

	config, logger := loadApp(configFiles, 0, "")

	c, err := wire(config, logger, true)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire components")
	}
	defer c.Close()

	datasetIDs, err := readIDs(*idsPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read dataset identifiers")
	}

	cronExpr := *schedule
	if cronExpr == "" {
		cronExpr = config.Pipeline.Schedule
	}

	run := func() {
		result := executePipeline(c, datasetIDs, *resume)
		logger.Info().
			Int("successful", len(result.Successful)).
			Int("failed", len(result.Failed)).
			Str("success_rate", fmt.Sprintf("%.3f", result.SuccessRate)).
			Int64("duration_ms", result.TotalDurationMS).
			Msg("pipeline run complete")
	}

	if cronExpr == "" {
		run()
		return
	}

	if err := common.ValidatePipelineSchedule(cronExpr); err != nil {
		logger.Fatal().Err(err).Str("schedule", cronExpr).Msg("invalid cron schedule")
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cronExpr, run); err != nil {
		logger.Fatal().Err(err).Msg("failed to register scheduled pipeline run")
	}
	scheduler.Start()
	logger.Info().Str("schedule", cronExpr).Msg("pipeline scheduler started")

	waitForSignal(logger)
	ctx := scheduler.Stop()
	<-ctx.Done()
}

func executePipeline(c *components, datasetIDs []string, resume bool) *models.PipelineResult {
	pipeline := etl.New(&c.config.Pipeline, c.client, c.registry, c.repository, c.logger)

	progress := func(u catalogue.ProgressUpdate) {
		c.logger.Debug().
			Str("dataset_id", u.DatasetID).
			Int("current", u.Current).
			Int("total", u.Total).
			Msg("fetch progress")
	}

	ctx := context.Background()

	if resume && c.config.Pipeline.CheckpointPath != "" {
		resumable := etl.NewResumable(pipeline, c.config.Pipeline.CheckpointPath, c.logger)
		return resumable.Run(ctx, datasetIDs, progress)
	}

	return pipeline.Run(ctx, datasetIDs, progress)
}

func readIDs(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			ids = append(ids, line)
		}
	}
	return ids, nil
}

func runEmbed(args []string) {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	var configFiles configPaths
	fs.Var(&configFiles, "config", "configuration file path (repeatable)")
	reindex := fs.Bool("reindex", false, "clear the vector store and re-embed every dataset")
	fs.Parse(args)

	config, logger := loadApp(configFiles, 0, "")

	c, err := wire(config, logger, true)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire components")
	}
	defer c.Close()

	if c.vectorStore == nil {
		logger.Fatal().Msg("vector store is not configured or unreachable")
	}

	ctx := context.Background()

	if *reindex {
		if err := c.vectorStore.Clear(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to clear vector store")
		}
	}

	datasets, err := c.repository.GetAllForEmbedding(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load datasets for embedding")
	}

	result, err := c.vectorStore.AddDatasets(ctx, datasets, !*reindex)
	if err != nil {
		logger.Fatal().Err(err).Msg("indexing failed")
	}

	logger.Info().
		Int("indexed", len(result.Succeeded)).
		Int("skipped", len(result.Skipped)).
		Int("failed", len(result.Failed)).
		Msg("embedding complete")
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	var configFiles configPaths
	fs.Var(&configFiles, "config", "configuration file path (repeatable)")
	fs.Parse(args)

	config, logger := loadApp(configFiles, 0, "")

	c, err := wire(config, logger, true)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire components")
	}
	defer c.Close()

	ctx := context.Background()

	count, err := c.repository.Count(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to count datasets")
	}

	status := map[string]interface{}{
		"datasets_stored":    count,
		"vector_store":       c.vectorStore != nil,
		"generator":          c.generator != nil,
	}

	if c.vectorStore != nil {
		if stats, err := c.vectorStore.GetStats(ctx); err == nil {
			status["vector_store_stats"] = stats
		}
	}

	if cacheStats, err := c.factory.Stats(ctx); err == nil {
		status["cache_entries"] = cacheStats.EntryCount
		status["cache_bytes"] = cacheStats.TotalBytes
	}

	out, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(out))
}

func runSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	var configFiles configPaths
	fs.Var(&configFiles, "config", "configuration file path (repeatable)")
	role := fs.String("role", "public", "requesting role: public, researcher, or admin")
	limit := fs.Int("limit", 0, "maximum results (0 = service default)")
	ask := fs.Bool("ask", false, "answer via the RAG orchestrator instead of returning raw search results")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println(`usage: datacat search [-role name] [-limit n] [-ask] "<query>"`)
		os.Exit(1)
	}
	query := fs.Arg(0)

	config, logger := loadApp(configFiles, 0, "")

	c, err := wire(config, logger, true)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire components")
	}
	defer c.Close()

	ctx := context.Background()

	if *ask {
		orchestrator := rag.New(&config.RAG, wrapVectorStore(c.vectorStore), c.guard, c.generator, logger)
		answer, err := orchestrator.Answer(ctx, query, *role)
		if err != nil {
			logger.Fatal().Err(err).Msg("rag query failed")
		}
		out, _ := json.MarshalIndent(answer, "", "  ")
		fmt.Println(string(out))
		return
	}

	response, err := c.searchSvc.Search(ctx, query, interfaces.SearchOptions{Limit: *limit, Mode: "hybrid"})
	if err != nil {
		logger.Fatal().Err(err).Msg("search failed")
	}
	response.Results = c.guard.FilterMergedResultsByAccess(response.Results, *role)

	out, _ := json.MarshalIndent(response, "", "  ")
	fmt.Println(string(out))
}

// wrapVectorStore returns nil as an interfaces.VectorStore when store is
// a nil *qdrant.Store, since an interface holding a typed nil pointer is
// not itself nil.
func wrapVectorStore(store *qdrant.Store) interfaces.VectorStore {
	if store == nil {
		return nil
	}
	return store
}

func waitForSignal(logger arbor.ILogger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("interrupt signal received, shutting down")
}
