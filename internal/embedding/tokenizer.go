package embedding

import (
	"fmt"

	"github.com/sugarme/tokenizer/pretrained"
)

// XLM-RoBERTa special tokens used by the multilingual E5 family.
const (
	tokenBOS = 0
	tokenPad = 1
	tokenEOS = 2
)

// Tokenizer produces token IDs for transformer models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64, err error)
}

// HFTokenizer applies a Hugging Face tokenizer.json (the SentencePiece vocabulary shipped
// with the model) and lays the ids out for a fixed-length input.
type HFTokenizer struct {
	encode func(text string) ([]int, error)
}

// NewHFTokenizer loads the tokenizer definition at path.
func NewHFTokenizer(path string) (*HFTokenizer, error) {
	if path == "" {
		return nil, fmt.Errorf("tokenizer path is not configured")
	}
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", path, err)
	}
	return &HFTokenizer{encode: func(text string) ([]int, error) {
		en, err := tk.EncodeSingle(text, true)
		if err != nil {
			return nil, err
		}
		return en.Ids, nil
	}}, nil
}

// Tokenize encodes text and pads or truncates the result to maxTokens. A truncated
// sequence still ends with its closing special token.
func (t *HFTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64, err error) {
	ids, err := t.encode(text)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("tokenize: %w", err)
	}
	inputIDs, attentionMask, tokenTypeIDs = layoutTokens(ids, maxTokens)
	return inputIDs, attentionMask, tokenTypeIDs, nil
}

func layoutTokens(ids []int, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	if len(ids) > maxTokens {
		last := ids[len(ids)-1]
		ids = append(ids[:maxTokens-1:maxTokens-1], last)
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)
	for i := range inputIDs {
		if i < len(ids) {
			inputIDs[i] = int64(ids[i])
			attentionMask[i] = 1
		} else {
			inputIDs[i] = tokenPad
		}
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// HashString returns a deterministic non-negative hash of s.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	if h < 0 {
		// -MinInt overflows back to MinInt
		h = 0
	}
	return h
}
