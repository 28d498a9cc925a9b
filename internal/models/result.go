package models

// SearchResult is a single retrieval hit joined with its corpus metadata.
type SearchResult struct {
	Score   float64 `json:"score"`
	ID      int64   `json:"id"`
	Summary string  `json:"summary"`
	URL     string  `json:"url"`
	Rank    int     `json:"rank"`
}

// NewSearchResult builds a result from a document and its similarity score.
func NewSearchResult(doc Document, score float64, rank int) SearchResult {
	return SearchResult{
		Score:   score,
		ID:      doc.ID,
		Summary: doc.Summary,
		URL:     doc.URL,
		Rank:    rank,
	}
}

// SearchResponse is the response for a search request.
// An empty Results slice means "no matches"; failures are reported as errors, never as empty responses.
type SearchResponse struct {
	Results   []SearchResult `json:"results"`
	Total     int            `json:"total"`
	Reranked  bool           `json:"reranked"`
	QueryTime int64          `json:"query_time_ms"`
	Query     string         `json:"query"`
	RequestID string         `json:"request_id,omitempty"`
}
