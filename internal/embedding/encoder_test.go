package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/revsearch/internal/models"
	"github.com/hyperjump/revsearch/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoder_EmptyInput(t *testing.T) {
	model := NewStaticEmbedder(2, nil)
	enc := NewEncoder(model)

	out, err := enc.Encode(context.Background(), nil, RolePassage)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, int64(0), model.Calls())
}

func TestEncoder_NoModel(t *testing.T) {
	enc := NewEncoder(nil)
	_, err := enc.Encode(context.Background(), []string{"x"}, RoleQuery)
	assert.ErrorIs(t, err, models.ErrEncoding)
	assert.Equal(t, 0, enc.Dimensions())
}

func TestEncoder_RejectsEmptyText(t *testing.T) {
	model := NewStaticEmbedder(2, map[string][]float32{"passage: a": {1, 0}})
	enc := NewEncoder(model)
	_, err := enc.Encode(context.Background(), []string{"a", "   "}, RolePassage)
	assert.ErrorIs(t, err, models.ErrEncoding)
	assert.Equal(t, int64(0), model.Calls())
}

func TestEncoder_AppliesRolePrefix(t *testing.T) {
	model := NewStaticEmbedder(2, map[string][]float32{
		"query: fires":   {1, 0},
		"passage: fires": {0, 1},
	})
	enc := NewEncoder(model)

	q, err := enc.EncodeQuery(context.Background(), "fires")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, q)

	p, err := enc.Encode(context.Background(), []string{"fires"}, RolePassage)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, p[0])
}

func TestEncoder_NormalizesOutput(t *testing.T) {
	model := NewStaticEmbedder(2, map[string][]float32{"passage: a": {3, 4}})
	enc := NewEncoder(model)
	out, err := enc.Encode(context.Background(), []string{"a"}, RolePassage)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, out[0][0], 1e-6)
	assert.InDelta(t, 0.8, out[0][1], 1e-6)
	assert.InDelta(t, 1.0, utils.L2Norm(out[0]), 1e-6)
}

func TestEncoder_ZeroVectorFails(t *testing.T) {
	model := NewStaticEmbedder(2, map[string][]float32{"passage: a": {0, 0}})
	_, err := NewEncoder(model).Encode(context.Background(), []string{"a"}, RolePassage)
	assert.ErrorIs(t, err, models.ErrEncoding)
}

func TestEncoder_ModelErrorWrapped(t *testing.T) {
	boom := errors.New("boom")
	model := NewStaticEmbedder(2, nil)
	model.FailWith(boom)
	_, err := NewEncoder(model).Encode(context.Background(), []string{"a"}, RolePassage)
	assert.ErrorIs(t, err, models.ErrEncoding)
	assert.ErrorIs(t, err, boom)
}

func TestEncoder_DimensionDrift(t *testing.T) {
	model := NewStaticEmbedder(3, map[string][]float32{"passage: a": {1, 0}})
	_, err := NewEncoder(model).Encode(context.Background(), []string{"a"}, RolePassage)
	assert.ErrorIs(t, err, models.ErrEncoding)
}

func TestEncoder_BatchSizeDoesNotChangeOutput(t *testing.T) {
	texts := []string{"one", "two", "three", "four", "five"}
	ctx := context.Background()

	whole, err := NewEncoder(NewMockEmbedder(16), WithBatchSize(64)).Encode(ctx, texts, RolePassage)
	require.NoError(t, err)
	small, err := NewEncoder(NewMockEmbedder(16), WithBatchSize(2)).Encode(ctx, texts, RolePassage)
	require.NoError(t, err)

	require.Len(t, small, len(whole))
	for i := range whole {
		for d := range whole[i] {
			if math.Abs(float64(whole[i][d]-small[i][d])) > 1e-6 {
				t.Fatalf("row %d differs at %d: %v vs %v", i, d, whole[i][d], small[i][d])
			}
		}
	}
}

func TestEncoder_BatchesModelCalls(t *testing.T) {
	table := map[string][]float32{}
	texts := []string{"a", "b", "c", "d", "e"}
	for i, s := range texts {
		table["passage: "+s] = []float32{float32(i + 1), 1}
	}
	model := NewStaticEmbedder(2, table)
	_, err := NewEncoder(model, WithBatchSize(2)).Encode(context.Background(), texts, RolePassage)
	require.NoError(t, err)
	assert.Equal(t, int64(3), model.Calls())
}

func TestEncoder_Cache(t *testing.T) {
	model := NewStaticEmbedder(2, map[string][]float32{"query: a": {1, 1}})
	enc := NewEncoder(model, WithCache(8))
	ctx := context.Background()

	first, err := enc.EncodeQuery(ctx, "a")
	require.NoError(t, err)
	first[0] = 42 // must not leak into the cache

	second, err := enc.EncodeQuery(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), model.Calls())
	assert.InDelta(t, 1/math.Sqrt2, second[0], 1e-6)
}

func TestEncoder_Deterministic(t *testing.T) {
	enc := NewEncoder(NewMockEmbedder(32))
	a, err := enc.EncodeQuery(context.Background(), "лесные пожары")
	require.NoError(t, err)
	b, err := enc.EncodeQuery(context.Background(), "лесные пожары")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
