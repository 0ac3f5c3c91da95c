package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/baxromumarov/job-harvester/internal/core"
	"github.com/baxromumarov/job-harvester/internal/observability"
	"github.com/baxromumarov/job-harvester/internal/search"
	"github.com/baxromumarov/job-harvester/internal/store"
)

type StartCrawlRequest struct {
	Keywords         string   `json:"keywords" validate:"required"`
	Location         string   `json:"location"`
	JobTypes         []string `json:"job_types"`
	PostedWithinDays int      `json:"posted_within_days" validate:"gte=0"`
	Total            int      `json:"total" validate:"required,gt=0,lte=1000"`
}

func (r StartCrawlRequest) Validate() error {
	return validator.New().Struct(r)
}

type statsResponse struct {
	observability.StatsSnapshot
	StoredLinks *int `json:"stored_links,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{StatsSnapshot: observability.Snapshot()}
	if s.records != nil {
		n, err := s.records.CountLinks(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to count links: "+err.Error())
			return
		}
		resp.StoredLinks = &n
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartCrawl(w http.ResponseWriter, r *http.Request) {
	var req StartCrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var types []search.JobType
	for _, raw := range req.JobTypes {
		jt, err := search.ParseJobType(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		types = append(types, jt)
	}

	id := s.runs.Launch(s.baseCtx, core.CrawlRequest{
		Query: search.Query{
			Keywords:         req.Keywords,
			Location:         req.Location,
			JobTypes:         types,
			PostedWithinDays: req.PostedWithinDays,
		},
		Total: req.Total,
	})
	s.logger.Info("crawl launched", "id", id, "keywords", req.Keywords, "total", req.Total)

	run, _ := s.runs.Get(id)
	respondJSON(w, http.StatusAccepted, run)
}

func (s *Server) handleGetCrawl(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runs.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "Crawl not found")
		return
	}
	respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleListCrawls(w http.ResponseWriter, r *http.Request) {
	runs := s.runs.List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": runs,
		"total": len(runs),
	})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		respondError(w, http.StatusServiceUnavailable, "Record store not configured")
		return
	}
	limit, offset := parsePagination(r, 20)

	records, total, err := s.records.ListRecords(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch records: "+err.Error())
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":  records,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func parsePagination(r *http.Request, defaultLimit int) (int, int) {
	q := r.URL.Query()
	limit := defaultLimit
	offset := 0

	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	if v := q.Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
