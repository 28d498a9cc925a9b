package embedding

import (
	"context"
	"testing"

	"github.com/hyperjump/revsearch/internal/config"
)

func TestMockEmbedder(t *testing.T) {
	e := NewMockEmbedder(8)
	if e.Dimensions() != 8 {
		t.Fatalf("Dimensions() = %d", e.Dimensions())
	}
	a, _ := e.Embed(context.Background(), "hello")
	b, _ := e.Embed(context.Background(), "hello")
	c, _ := e.Embed(context.Background(), "world")
	if len(a) != 8 {
		t.Fatalf("len = %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text must give the same vector")
		}
	}
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Error("different texts should give different vectors")
	}
}

func TestNewEmbedder_Providers(t *testing.T) {
	e, err := NewEmbedder(&config.EmbeddingConfig{Provider: "mock", Dimensions: 4})
	if err != nil || e.Dimensions() != 4 {
		t.Fatalf("mock provider: %v", err)
	}
	if _, err := NewEmbedder(&config.EmbeddingConfig{Provider: "word2vec"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := NewEmbedder(&config.EmbeddingConfig{Provider: "http", Dimensions: 4}); err == nil {
		t.Error("expected error for http provider without base URL")
	}
}
