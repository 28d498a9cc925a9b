// Package main is the revsearch CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/revsearch/internal/cli"
	"github.com/hyperjump/revsearch/internal/config"
	"github.com/hyperjump/revsearch/internal/corpus"
	"github.com/hyperjump/revsearch/internal/embedding"
	"github.com/hyperjump/revsearch/internal/indexer"
	"github.com/hyperjump/revsearch/internal/models"
	"github.com/hyperjump/revsearch/internal/rerank"
	"github.com/hyperjump/revsearch/internal/retrieval"
	"github.com/hyperjump/revsearch/internal/server"
	"github.com/hyperjump/revsearch/internal/storage"
	"github.com/hyperjump/revsearch/internal/vector"
	"github.com/hyperjump/revsearch/internal/watcher"
	"github.com/hyperjump/revsearch/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/revsearch/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newLogger(cfg *config.Config, debug bool) (*zap.Logger, error) {
	return utils.NewLoggerWithFile(debug, utils.FileSink{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
}

// setup loads the config and creates the logger, exiting on failure.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := newLogger(cfg, cfg.Debug || debugFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "encode":
		runEncode()
	case "build":
		runBuild()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("revsearch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(components.Pipeline, components.Storage, components.Index.Type(), cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: revsearch search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Results are ordered by cosine similarity to the query. With --rerank the server asks the
ranking oracle to reorder the candidates and falls back to vector order if the answer is unusable.

Examples:
  revsearch search лесные пожары в Сибири
  revsearch search --top-k 5 "лесные пожары"
  revsearch search --rerank --output json "наводнение"
  revsearch search --server "" "наводнение"            # no server, load the index directly
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchConfigPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func searchConfigPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// searchDefaultsFromConfig loads config at path and returns the default top_k and whether
// reranking is on by default. On load failure it returns models.DefaultTopK and false.
func searchDefaultsFromConfig(path string) (topK int, rerank bool) {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil {
		return models.DefaultTopK, false
	}
	return cfg.Search.DefaultTopK, cfg.Rerank.Enabled
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])
	configPath := searchConfigPathFromArgs(searchArgs, defaultConfigPath)
	defaultTopK, defaultRerank := searchDefaultsFromConfig(configPath)

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = load the index directly)")
	topK := fs.Int("top-k", defaultTopK, "number of results")
	rerankFlag := fs.Bool("rerank", defaultRerank, "rerank candidates with the ranking oracle")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	var format cli.SearchOutputFormat
	switch *outputFormat {
	case "json", "text", "compact":
		format = cli.ParseOutputFormat(*outputFormat)
	default:
		fmt.Printf("Unknown output format %q; use text, compact, or json\n", *outputFormat)
		os.Exit(1)
	}

	searchQuery := &models.SearchQuery{Query: queryStr, TopK: *topK, Rerank: *rerankFlag}

	var response *models.SearchResponse
	if *serverURL != "" {
		res, err := searchViaHTTP(*serverURL, searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = res
	} else {
		cfg, _, logger := setup(*configPathFlag, false)
		defer logger.Sync()

		if err := searchQuery.Validate(cfg.Search.MaxTopK); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid query: %v\n", err)
			os.Exit(1)
		}
		components, err := initializeComponents(context.Background(), cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		res, err := components.Pipeline.RetrieveAndOptionallyRerank(context.Background(), searchQuery.Query, searchQuery.TopK, searchQuery.Rerank)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = res
	}

	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runEncode() {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	input := fs.String("input", "", "corpus JSON file (default: storage.corpus_path)")
	vectorsPath := fs.String("vectors", "", "output vector file, .npy or raw float32 (default: storage.vectors_path)")
	metadataPath := fs.String("metadata", "", "output metadata JSON (default: storage.metadata_path)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, *debug)
	defer logger.Sync()

	encoder, err := embedding.NewEncoderFromConfig(&cfg.Embedding, embedding.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to load embedding model", zap.Error(err))
	}
	defer encoder.Close()

	idx := indexer.NewIndexer(encoder, nil, cfg.Vector.IndexType,
		indexer.WithLogger(logger),
		indexer.WithProgress(os.Stderr),
		indexer.WithChunkSize(cfg.Embedding.BatchSize),
	)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := idx.Encode(ctx,
		orDefault(*input, cfg.Storage.CorpusPath),
		orDefault(*vectorsPath, cfg.Storage.VectorsPath),
		orDefault(*metadataPath, cfg.Storage.MetadataPath),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encoding failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Encoded %d document(s) into %d-dimensional vectors in %s\n",
		res.Documents, res.Dimensions, res.Duration.Round(time.Millisecond))
}

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	vectorsPath := fs.String("vectors", "", "input vector file (default: storage.vectors_path)")
	metadataPath := fs.String("metadata", "", "input metadata JSON (default: storage.metadata_path)")
	indexPath := fs.String("index", "", "output index file (default: storage.index_path)")
	watch := fs.Bool("watch", false, "rebuild whenever the vector or metadata file changes")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, *debug)
	defer logger.Sync()

	store, err := storage.NewSQLiteStorage(cfg.Storage.CorpusDBPath)
	if err != nil {
		logger.Fatal("Failed to open corpus database", zap.Error(err))
	}
	defer store.Close()

	idx := indexer.NewIndexer(nil, store, cfg.Vector.IndexType, indexer.WithLogger(logger))
	in := indexer.BuildInput{
		VectorsPath:  orDefault(*vectorsPath, cfg.Storage.VectorsPath),
		MetadataPath: orDefault(*metadataPath, cfg.Storage.MetadataPath),
		IndexPath:    orDefault(*indexPath, cfg.Storage.IndexPath),
		Dimensions:   cfg.Embedding.Dimensions,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watch {
		if err := idx.Watch(ctx, in, watcher.WithLogger(logger)); err != nil {
			fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	res, err := idx.Build(ctx, in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Built %s index over %d document(s), %d dimensions, in %s\n",
		res.IndexType, res.Documents, res.Dimensions, res.Duration.Round(time.Millisecond))
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Documents       int        `json:"documents"`
	VectorIndexSize int        `json:"vector_index_size"`
	VectorIndexType string     `json:"vector_index_type"`
	Dimensions      int        `json:"dimensions"`
	RerankEnabled   bool       `json:"rerank_enabled"`
	BuiltAt         *time.Time `json:"built_at,omitempty"`
	DiskUsageBytes  *int64     `json:"disk_usage_bytes,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read the build outputs directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		res, err := statusFromStorage(context.Background(), cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		writeStatusText(os.Stdout, &status)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// statusFromStorage reports the last build without loading the index or the model.
func statusFromStorage(ctx context.Context, cfg *config.Config) (*statusResponse, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.CorpusDBPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	count, err := store.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	status := &statusResponse{
		Documents:       int(count),
		VectorIndexType: cfg.Vector.IndexType,
		Dimensions:      cfg.Embedding.Dimensions,
		RerankEnabled:   cfg.Rerank.Enabled,
	}
	info, err := store.GetBuildInfo(ctx)
	switch {
	case err == nil:
		status.VectorIndexSize = info.Documents
		status.VectorIndexType = info.IndexType
		status.Dimensions = info.Dimensions
		status.BuiltAt = &info.BuiltAt
	case !errors.Is(err, storage.ErrNoBuild):
		return nil, err
	}
	if diskBytes, err := storage.ArtifactUsageBytes(cfg.Storage.IndexPath, cfg.Storage.CorpusDBPath); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func writeStatusText(w io.Writer, status *statusResponse) {
	fmt.Fprintf(w, "documents:          %d   # corpus entries\n", status.Documents)
	fmt.Fprintf(w, "vector_index_size:  %d   # vectors in the index\n", status.VectorIndexSize)
	fmt.Fprintf(w, "vector_index_type:  %s\n", status.VectorIndexType)
	fmt.Fprintf(w, "dimensions:         %d\n", status.Dimensions)
	fmt.Fprintf(w, "rerank_enabled:     %t\n", status.RerankEnabled)
	if status.BuiltAt != nil {
		fmt.Fprintf(w, "built_at:           %s\n", status.BuiltAt.Format(time.RFC3339))
	}
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # index + corpus database\n", *status.DiskUsageBytes)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(strings.TrimRight(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Encoder  *embedding.Encoder
	Index    vector.Index
	Pipeline *retrieval.Pipeline
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Encoder != nil {
		_ = c.Encoder.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
}

// initializeComponents loads the corpus and index written by "build", the query model
// and, when enabled, the ranking oracle.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	store, err := storage.NewSQLiteStorage(cfg.Storage.CorpusDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	info, err := store.GetBuildInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("no usable build in %s (run \"revsearch build\" first): %w", cfg.Storage.CorpusDBPath, err)
	}
	docs, err := store.LoadCorpus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	indexType := info.IndexType
	if indexType == "" {
		indexType = cfg.Vector.IndexType
	}
	index, err := vector.Open(indexType, info.Dimensions, cfg.Storage.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load vector index: %w", err)
	}
	c.Index = index
	logger.Info("vector index loaded",
		zap.String("type", index.Type()),
		zap.Int("vectors", index.Size()),
		zap.Int("dimensions", index.Dimensions()),
		zap.Bool("faiss_available", vector.IsFAISSAvailable()))

	encoder, err := embedding.NewEncoderFromConfig(&cfg.Embedding, embedding.WithLogger(logger))
	if err != nil {
		// queries fail with an encoding error until a model is available
		logger.Warn("embedding model unavailable", zap.String("provider", cfg.Embedding.Provider), zap.Error(err))
		encoder = embedding.NewEncoder(nil, embedding.WithLogger(logger))
	}
	c.Encoder = encoder

	opts := []retrieval.Option{retrieval.WithLogger(logger)}
	if r := newReranker(&cfg.Rerank, logger); r != nil {
		opts = append(opts, retrieval.WithReranker(r))
	}
	p, err := retrieval.New(encoder, index, corpus.New(docs), opts...)
	if err != nil {
		return nil, err
	}
	c.Pipeline = p
	ok = true
	return c, nil
}

// newReranker returns nil when reranking is disabled or no API key is configured.
func newReranker(cfg *config.RerankConfig, logger *zap.Logger) *rerank.Reranker {
	if !cfg.Enabled {
		return nil
	}
	apiKey := cfg.APIKey()
	if apiKey == "" {
		logger.Warn("rerank enabled but no API key found, reranking disabled", zap.String("env", cfg.APIKeyEnv))
		return nil
	}
	oracle := rerank.NewChatOracle(apiKey, cfg.BaseURL,
		rerank.WithModel(cfg.Model),
		rerank.WithTemperature(cfg.Temperature),
	)
	return rerank.NewReranker(oracle, rerank.WithTimeout(cfg.Timeout), rerank.WithLogger(logger))
}

func printUsage() {
	fmt.Println(`revsearch - semantic reverse search over a fixed corpus of summaries

Usage:
  revsearch encode [flags]          Encode the corpus into a vector file and metadata
  revsearch build [flags]           Build the vector index and corpus database
  revsearch server [flags]          Start the HTTP server
  revsearch search [flags] <query>  Search the corpus
  revsearch status [flags]          Show index and corpus status
  revsearch version                 Show version
  revsearch help                    Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/revsearch/config.yaml,
                     or ./config.yaml when present)

Encode Flags:
  --input string     Corpus JSON (default: storage.corpus_path)
  --vectors string   Output vectors, .npy or raw float32 (default: storage.vectors_path)
  --metadata string  Output metadata JSON (default: storage.metadata_path)

Build Flags:
  --vectors, --metadata, --index   Override storage paths
  --watch                          Rebuild when the vector or metadata file changes

Search Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to load the index directly.
  --top-k int        Number of results (default from config)
  --rerank           Rerank with the ranking oracle (default from config)
  --output string    text, compact or json (default: text)

Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to read build outputs.
  --output string    text or json (default: text)

Examples:
  revsearch encode --input corpus.json
  revsearch build
  revsearch server
  revsearch search "лесные пожары"
  revsearch search --rerank --top-k 5 --output json "наводнение"
  revsearch status --output json`)
}
