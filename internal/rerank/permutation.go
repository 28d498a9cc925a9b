package rerank

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/revsearch/internal/models"
)

// ParsePermutation turns an oracle answer into 0-based positions. The answer must consist of
// exactly n whitespace-separated integers that are a permutation of 1..n; anything else,
// including duplicates, omissions, extra tokens and punctuation, is rejected.
func ParsePermutation(answer string, n int) ([]int, error) {
	fields := strings.Fields(answer)
	if len(fields) != n {
		return nil, fmt.Errorf("%w: expected %d positions, got %d in %q", models.ErrRerankOracle, n, len(fields), answer)
	}
	order := make([]int, n)
	seen := make([]bool, n)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: token %q is not an integer", models.ErrRerankOracle, f)
		}
		pos := v - 1
		if pos < 0 || pos >= n {
			return nil, fmt.Errorf("%w: position %d out of range 1..%d", models.ErrRerankOracle, v, n)
		}
		if seen[pos] {
			return nil, fmt.Errorf("%w: position %d repeated", models.ErrRerankOracle, v)
		}
		seen[pos] = true
		order[i] = pos
	}
	return order, nil
}
