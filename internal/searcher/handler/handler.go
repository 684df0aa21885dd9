// Package handler exposes the search and classification HTTP API.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/searchcore/textindex/internal/corpus"
	"github.com/searchcore/textindex/internal/ramindex"
	"github.com/searchcore/textindex/internal/searcher/cache"
	"github.com/searchcore/textindex/internal/tokenizer"
	"github.com/searchcore/textindex/pkg/config"
	pkgerrors "github.com/searchcore/textindex/pkg/errors"
	"github.com/searchcore/textindex/pkg/metrics"
)

// SearchResponse is the /search reply body.
type SearchResponse struct {
	Query     string            `json:"query"`
	TotalHits int               `json:"total_hits"`
	Cached    bool              `json:"cached"`
	Results   []ramindex.Result `json:"results"`
}

// ClassifyResponse is the /classify reply body.
type ClassifyResponse struct {
	Query    string `json:"query"`
	K        int    `json:"k"`
	Category string `json:"category"`
}

// Handler serves queries against a built RAM index.
type Handler struct {
	index   *ramindex.Index
	tok     *tokenizer.Word
	cache   *cache.QueryCache
	cfg     config.SearchConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Handler. qc and m may be nil to disable caching and
// instrumentation.
func New(index *ramindex.Index, tok *tokenizer.Word, qc *cache.QueryCache, cfg config.SearchConfig, m *metrics.Metrics) *Handler {
	return &Handler{
		index:   index,
		tok:     tok,
		cache:   qc,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "search-handler"),
	}
}

// Register wires the API routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /search", h.handleSearch)
	mux.HandleFunc("GET /classify", h.handleClassify)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, pkgerrors.New(pkgerrors.ErrInvalidInput, http.StatusBadRequest, "missing query parameter q"))
		return
	}
	limit := h.cfg.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, pkgerrors.Newf(pkgerrors.ErrInvalidInput, http.StatusBadRequest, "invalid limit %q", v))
			return
		}
		limit = n
	}

	compute := func() ([]ramindex.Result, error) {
		results, err := h.index.Search(r.Context(), h.queryDocument(query))
		if err != nil {
			return nil, err
		}
		if limit > 0 && len(results) > limit {
			results = results[:limit]
		}
		return results, nil
	}

	var results []ramindex.Result
	var cached bool
	var err error
	if h.cache != nil {
		results, cached, err = h.cache.GetOrCompute(r.Context(), query, limit, compute)
	} else {
		results, err = compute()
	}
	if err != nil {
		h.observeSearch("error", start, 0)
		h.writeError(w, err)
		return
	}
	if cached && h.metrics != nil {
		h.metrics.CacheHitsTotal.Inc()
	} else if h.cache != nil && h.metrics != nil {
		h.metrics.CacheMissesTotal.Inc()
	}

	resultType := "hit"
	if len(results) == 0 {
		resultType = "zero_result"
	}
	h.observeSearch(resultType, start, len(results))
	h.writeJSON(w, http.StatusOK, SearchResponse{
		Query:     query,
		TotalHits: len(results),
		Cached:    cached,
		Results:   results,
	})
}

func (h *Handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, pkgerrors.New(pkgerrors.ErrInvalidInput, http.StatusBadRequest, "missing query parameter q"))
		return
	}
	k := h.cfg.DefaultK
	if v := r.URL.Query().Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, pkgerrors.Newf(pkgerrors.ErrInvalidInput, http.StatusBadRequest, "invalid k %q", v))
			return
		}
		k = n
	}

	category, err := h.index.ClassifyKNN(r.Context(), h.queryDocument(query), k)
	if err != nil {
		if h.metrics != nil {
			h.metrics.ClassificationsTotal.WithLabelValues("error").Inc()
		}
		h.writeError(w, err)
		return
	}
	if h.metrics != nil {
		outcome := "labeled"
		if category == ramindex.NoResults {
			outcome = "no_results"
		}
		h.metrics.ClassificationsTotal.WithLabelValues(outcome).Inc()
	}
	h.writeJSON(w, http.StatusOK, ClassifyResponse{
		Query:    query,
		K:        k,
		Category: category,
	})
}

// queryDocument tokenizes raw query text into a query document whose term
// frequencies are the query's term counts. Corpus statistics are left
// untouched: a query is borrowed, never indexed.
func (h *Handler) queryDocument(query string) *corpus.Document {
	doc := corpus.New("query/adhoc")
	h.tok.TokenizeText(query, &doc, nil)
	return &doc
}

func (h *Handler) observeSearch(resultType string, start time.Time, results int) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.Observe(time.Since(start).Seconds())
	h.metrics.SearchResultsCount.Observe(float64(results))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("writing response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := pkgerrors.HTTPStatusCode(err)
	h.logger.Error("request failed", "status", status, "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
