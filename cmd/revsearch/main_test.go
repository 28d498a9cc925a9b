package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/revsearch/internal/config"
	"github.com/hyperjump/revsearch/internal/corpus"
	"github.com/hyperjump/revsearch/internal/indexer"
	"github.com/hyperjump/revsearch/internal/matrix"
	"github.com/hyperjump/revsearch/internal/models"
	"github.com/hyperjump/revsearch/internal/storage"
	"go.uber.org/zap"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"лесные пожары", "-top-k", "5"},
			expected: []string{"-top-k", "5", "лесные пожары"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-top-k", "5", "лесные пожары"},
			expected: []string{"-top-k", "5", "лесные пожары"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"лесные пожары"},
			expected: []string{"лесные пожары"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"one", "two", "-rerank"},
			expected: []string{"-rerank", "one", "two"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"пожар"}, "пожар"},
		{"multiple words", []string{"лесные", "пожары"}, "лесные пожары"},
		{"single quoted phrase", []string{"лесные пожары"}, "лесные пожары"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestSearchConfigPathFromArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		defaultPath string
		want        string
	}{
		{"no config flag", []string{"-top-k", "5", "query"}, "/default.yaml", "/default.yaml"},
		{"-config present", []string{"-config", "/custom.yaml", "query"}, "/default.yaml", "/custom.yaml"},
		{"--config present", []string{"--config", "/other.yaml"}, "/default.yaml", "/other.yaml"},
		{"config at end", []string{"query", "-config", "/end.yaml"}, "/default.yaml", "/end.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchConfigPathFromArgs(tt.args, tt.defaultPath)
			if got != tt.want {
				t.Errorf("searchConfigPathFromArgs() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSearchDefaultsFromConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
search:
  default_top_k: 7
rerank:
  enabled: true
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	topK, rerank := searchDefaultsFromConfig(configPath)
	if topK != 7 || !rerank {
		t.Errorf("searchDefaultsFromConfig() = %d, %t; want 7, true", topK, rerank)
	}
	topK, rerank = searchDefaultsFromConfig(filepath.Join(dir, "nonexistent.yaml"))
	if topK != models.DefaultTopK || rerank {
		t.Errorf("searchDefaultsFromConfig(nonexistent) = %d, %t", topK, rerank)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolvedCanon, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			VectorsPath:  filepath.Join(dir, "vectors.npy"),
			MetadataPath: filepath.Join(dir, "metadata.json"),
			IndexPath:    filepath.Join(dir, "index.bin"),
			CorpusDBPath: filepath.Join(dir, "corpus.db"),
		},
		Embedding: config.EmbeddingConfig{Provider: "mock", Dimensions: 3},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func buildFixture(t *testing.T, cfg *config.Config) {
	t.Helper()
	rows := [][]float32{{1, 0, 0}, {0, 1, 0}}
	docs := []models.Document{{ID: 10, Summary: "first"}, {ID: 20, Summary: "second"}}
	if err := matrix.Save(cfg.Storage.VectorsPath, rows); err != nil {
		t.Fatal(err)
	}
	if err := corpus.WriteJSON(cfg.Storage.MetadataPath, docs); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.CorpusDBPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	idx := indexer.NewIndexer(nil, store, cfg.Vector.IndexType)
	if _, err := idx.Build(context.Background(), indexer.BuildInput{
		VectorsPath:  cfg.Storage.VectorsPath,
		MetadataPath: cfg.Storage.MetadataPath,
		IndexPath:    cfg.Storage.IndexPath,
		Dimensions:   3,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestInitializeComponents(t *testing.T) {
	cfg := testConfig(t)
	buildFixture(t, cfg)

	c, err := initializeComponents(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	defer c.Close()
	if c.Pipeline.Size() != 2 || c.Pipeline.Dimensions() != 3 {
		t.Errorf("pipeline size=%d dims=%d", c.Pipeline.Size(), c.Pipeline.Dimensions())
	}
	if c.Pipeline.RerankEnabled() {
		t.Error("rerank should be disabled by default")
	}
	res, err := c.Pipeline.RetrieveAndOptionallyRerank(context.Background(), "anything", 5, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 {
		t.Errorf("total = %d, want 2", res.Total)
	}
}

func TestInitializeComponents_requiresBuild(t *testing.T) {
	cfg := testConfig(t)
	if _, err := initializeComponents(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected an error before any build")
	}
}

func TestNewReranker(t *testing.T) {
	cfg := &config.RerankConfig{Enabled: false, APIKeyEnv: "REVSEARCH_TEST_ORACLE_KEY"}
	if newReranker(cfg, zap.NewNop()) != nil {
		t.Error("disabled rerank should give no reranker")
	}
	cfg.Enabled = true
	t.Setenv("REVSEARCH_TEST_ORACLE_KEY", "")
	if newReranker(cfg, zap.NewNop()) != nil {
		t.Error("missing API key should give no reranker")
	}
	t.Setenv("REVSEARCH_TEST_ORACLE_KEY", "secret")
	cfg.Timeout = time.Second
	if newReranker(cfg, zap.NewNop()) == nil {
		t.Error("expected a reranker when enabled with a key")
	}
}

func TestStatusFromStorage(t *testing.T) {
	cfg := testConfig(t)
	buildFixture(t, cfg)

	status, err := statusFromStorage(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if status.Documents != 2 || status.VectorIndexSize != 2 || status.Dimensions != 3 {
		t.Errorf("status = %+v", status)
	}
	if status.BuiltAt == nil || status.VectorIndexType != "flat" {
		t.Errorf("status = %+v", status)
	}

	var buf bytes.Buffer
	writeStatusText(&buf, status)
	for _, sub := range []string{"documents:          2", "vector_index_type:  flat", "built_at:"} {
		if !strings.Contains(buf.String(), sub) {
			t.Errorf("status text missing %q:\n%s", sub, buf.String())
		}
	}
}

func TestOrDefault(t *testing.T) {
	if orDefault("", "b") != "b" || orDefault("a", "b") != "a" {
		t.Error("orDefault")
	}
}
