package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  corpus_db_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.CorpusDBPath == "" {
		t.Error("corpus_db_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_durationsAndRerank(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
rerank:
  enabled: true
  timeout: 5s
  model: "test/model"
embedding:
  provider: mock
  dimensions: 4
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Rerank.Enabled || cfg.Rerank.Timeout != 5*time.Second || cfg.Rerank.Model != "test/model" {
		t.Errorf("unexpected rerank config: %+v", cfg.Rerank)
	}
	if cfg.Rerank.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("rerank base_url default: got %s", cfg.Rerank.BaseURL)
	}
	if cfg.Embedding.Provider != "mock" || cfg.Embedding.Dimensions != 4 {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  index_path: "./data/index/flat_index.bin"
  vectors_path: "./data/embeddings.npy"
log:
  file: "./logs/revsearch.log"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantIndex := filepath.Join(dir, "data", "index", "flat_index.bin")
	if cfg.Storage.IndexPath != wantIndex {
		t.Errorf("index_path = %s, want %s", cfg.Storage.IndexPath, wantIndex)
	}
	wantVectors := filepath.Join(dir, "data", "embeddings.npy")
	if cfg.Storage.VectorsPath != wantVectors {
		t.Errorf("vectors_path = %s, want %s", cfg.Storage.VectorsPath, wantVectors)
	}
	if cfg.Log.File != filepath.Join(dir, "logs", "revsearch.log") {
		t.Errorf("log file = %s", cfg.Log.File)
	}
	if cfg.Log.MaxSizeMB != 10 {
		t.Errorf("log max size default: got %d", cfg.Log.MaxSizeMB)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Search.DefaultTopK != 10 || cfg.Search.MaxTopK != 50 {
		t.Errorf("default top_k: got %d / %d", cfg.Search.DefaultTopK, cfg.Search.MaxTopK)
	}
	if cfg.Embedding.Dimensions != 768 || cfg.Embedding.BatchSize != 64 {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Vector.IndexType != "flat" {
		t.Errorf("index type default: got %s", cfg.Vector.IndexType)
	}
	if cfg.Rerank.Enabled {
		t.Error("rerank should be disabled by default")
	}
	if cfg.Rerank.Timeout != 30*time.Second {
		t.Errorf("rerank timeout default: got %v", cfg.Rerank.Timeout)
	}
	if cfg.Log.MaxSizeMB != 0 {
		t.Error("log rotation defaults should only apply when a log file is set")
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("REVSEARCH_TEST_KEY", "secret")
	r := RerankConfig{APIKeyEnv: "REVSEARCH_TEST_KEY"}
	if r.APIKey() != "secret" {
		t.Errorf("APIKey() = %q", r.APIKey())
	}
	e := EmbeddingConfig{}
	if e.APIKey() != "" {
		t.Error("empty api_key_env should yield empty key")
	}
}

func TestEmbeddingTokenizerPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
embedding:
  model_path: "./models/e5/model.onnx"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "models", "e5", "tokenizer.json")
	if got := cfg.Embedding.Tokenizer(); got != want {
		t.Errorf("Tokenizer() = %s, want %s", got, want)
	}

	explicit := EmbeddingConfig{ModelPath: "/m/model.onnx", TokenizerPath: "/t/tokenizer.json"}
	if got := explicit.Tokenizer(); got != "/t/tokenizer.json" {
		t.Errorf("explicit Tokenizer() = %s", got)
	}
	if got := (&EmbeddingConfig{}).Tokenizer(); got != "" {
		t.Errorf("no model should give no tokenizer, got %s", got)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{CorpusDBPath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
