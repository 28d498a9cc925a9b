package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hyperjump/revsearch/internal/models"
	"github.com/hyperjump/revsearch/internal/storage"
	"go.uber.org/zap"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if query.TopK == 0 && s.config != nil && s.config.Search.DefaultTopK > 0 {
		query.TopK = s.config.Search.DefaultTopK
	}
	maxTopK := 0
	if s.config != nil {
		maxTopK = s.config.Search.MaxTopK
	}
	if err := query.Validate(maxTopK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("top_k", query.TopK), zap.Bool("rerank", query.Rerank))
	response, err := s.retriever.RetrieveAndOptionallyRerank(r.Context(), query.Query, query.TopK, query.Rerank)
	if err != nil {
		if errors.Is(err, models.ErrInvalidArgument) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		// cause is logged by the pipeline; clients only learn that the search failed
		s.respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"documents":         s.retriever.Size(),
		"vector_index_size": s.retriever.Size(),
		"vector_index_type": s.indexType,
		"dimensions":        s.retriever.Dimensions(),
		"rerank_enabled":    s.retriever.RerankEnabled(),
	}

	if s.storage != nil {
		info, err := s.storage.GetBuildInfo(r.Context())
		switch {
		case err == nil:
			resp["built_at"] = info.BuiltAt
		case errors.Is(err, storage.ErrNoBuild):
		default:
			s.logger.Warn("status: build info unavailable", zap.Error(err))
		}
	}
	if s.config != nil {
		diskBytes, err := storage.ArtifactUsageBytes(s.config.Storage.IndexPath, s.config.Storage.CorpusDBPath)
		if err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
