package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/models"
)

// searchRequest is the POST /api/v1/search body: an image path on the server
// host and an optional result count.
type searchRequest struct {
	Path string `json:"path"`
	K    int    `json:"k,omitempty"`
}

// searchResponse carries the ranked matches for one query image.
type searchResponse struct {
	Query           string          `json:"query"`
	QueryCategories string          `json:"query_categories"`
	K               int             `json:"k"`
	Matches         []*models.Match `json:"matches"`
	PrecisionAtK    float64         `json:"precision_at_k"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	k := req.K
	if k <= 0 {
		k = s.cfg.Search.TopK
	}
	s.logger.Debug("search request", zap.String("path", req.Path), zap.Int("k", k))

	desc, err := s.pipe.Builder().BuildFile(req.Path)
	if err != nil {
		s.logger.Warn("query image failed", zap.String("path", req.Path), zap.Error(err))
		s.respondError(w, http.StatusUnprocessableEntity, "could not process query image")
		return
	}

	results, err := s.pipe.Index().Search(desc, k)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	matches, precision := s.pipe.Evaluator().Evaluate(req.Path, results)
	_, queryCatStr := s.pipe.Evaluator().QueryCategories(req.Path)
	s.respondJSON(w, http.StatusOK, &searchResponse{
		Query:           req.Path,
		QueryCategories: queryCatStr,
		K:               k,
		Matches:         matches,
		PrecisionAtK:    precision,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":        s.id,
		"indexed":   s.pipe.Index().Size(),
		"dimension": s.pipe.Index().Dim(),
		"feature":   s.pipe.Builder().Feature(),
		"mode":      string(s.pipe.Builder().Mode()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
