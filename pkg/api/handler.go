// Package api exposes the resolver, the scorer and the athlete store over
// HTTP and MCP. Both transports dispatch to the same kit.Endpoints.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/hazyhaar/recruitmatch/pkg/institution"
	"github.com/hazyhaar/recruitmatch/pkg/kit"
	"github.com/hazyhaar/recruitmatch/pkg/match"
	"github.com/hazyhaar/recruitmatch/pkg/store"
)

// Request body limits.
const (
	maxBody     = 64 * 1024
	maxRankBody = 4 << 20
)

// NewRouter returns an http.Handler with all API routes.
func NewRouter(svc *Service) http.Handler {
	mux := http.NewServeMux()
	h := &handler{endpoints: svc.endpoints(), svc: svc}

	mux.HandleFunc("GET /v1/resolve", h.handleResolve)
	mux.HandleFunc("GET /v1/resolve/logo", h.handleResolveLogo)
	mux.HandleFunc("POST /v1/score", h.handleScore)
	mux.HandleFunc("POST /v1/rank", h.handleRank)
	mux.HandleFunc("POST /v1/duplicates", h.handleDuplicates)
	mux.HandleFunc("POST /v1/athletes", h.handleCreateAthlete)
	mux.HandleFunc("GET /v1/athletes", h.handleListAthletes)
	mux.HandleFunc("GET /v1/athletes/{id}", h.handleGetAthlete)
	mux.HandleFunc("PUT /v1/athletes/{id}", h.handleUpdateAthlete)
	mux.HandleFunc("DELETE /v1/athletes/{id}", h.handleDeleteAthlete)
	mux.HandleFunc("GET /v1/corpora", h.handleListCorpora)
	mux.HandleFunc("GET /v1/health", h.handleHealth)
	if svc.Metrics != nil {
		mux.Handle("GET /metrics", svc.Metrics.Handler())
	}

	return cors(requestID(mux))
}

type handler struct {
	endpoints
	svc *Service
}

// --- resolve ---

func (h *handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, h.resolve, resolveRequest(r))
}

func (h *handler) handleResolveLogo(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, h.resolveLogo, resolveRequest(r))
}

func resolveRequest(r *http.Request) *resolveReq {
	return &resolveReq{Query: r.URL.Query().Get("q"), Corpus: r.URL.Query().Get("corpus")}
}

// --- score / rank ---

func (h *handler) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreReq
	if !decodeBody(w, r, maxBody, &req) {
		return
	}
	h.serve(w, r, http.StatusOK, h.score, &req)
}

func (h *handler) handleRank(w http.ResponseWriter, r *http.Request) {
	var req rankReq
	if !decodeBody(w, r, maxRankBody, &req) {
		return
	}
	h.serve(w, r, http.StatusOK, h.rank, &req)
}

// --- duplicates ---

func (h *handler) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	var crit match.Criteria
	if !decodeBody(w, r, maxBody, &crit) {
		return
	}
	h.serve(w, r, http.StatusOK, h.duplicates, &crit)
}

// --- athletes ---

func (h *handler) handleCreateAthlete(w http.ResponseWriter, r *http.Request) {
	var c match.Candidate
	if !decodeBody(w, r, maxBody, &c) {
		return
	}
	h.serve(w, r, http.StatusCreated, h.createAthlete, &c)
}

func (h *handler) handleListAthletes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	h.serve(w, r, http.StatusOK, h.listAthletes, &listAthletesReq{Limit: limit})
}

func (h *handler) handleGetAthlete(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, h.getAthlete, r.PathValue("id"))
}

func (h *handler) handleUpdateAthlete(w http.ResponseWriter, r *http.Request) {
	req := updateAthleteReq{ID: r.PathValue("id")}
	if !decodeBody(w, r, maxBody, &req.Athlete) {
		return
	}
	h.serve(w, r, http.StatusOK, h.updateAthlete, &req)
}

func (h *handler) handleDeleteAthlete(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusNoContent, h.deleteAthlete, r.PathValue("id"))
}

// --- corpora ---

func (h *handler) handleListCorpora(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, h.listCorpora, nil)
}

// --- health ---

type healthResponse struct {
	Status        string `json:"status"`
	Corpora       int    `json:"corpora"`
	TotalEntities int    `json:"total_entities"`
	Athletes      *int   `json:"athletes,omitempty"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		Corpora:       h.svc.Registry.CorpusCount(),
		TotalEntities: h.svc.Registry.TotalEntities(),
	}
	if h.svc.Store != nil {
		n, err := h.svc.Store.Count(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		resp.Athletes = &n
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- helpers ---

func (h *handler) serve(w http.ResponseWriter, r *http.Request, code int, ep kit.Endpoint, req any) {
	resp, err := ep(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if code == http.StatusNoContent {
		w.WriteHeader(code)
		return
	}
	writeJSON(w, code, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, institution.ErrUnknownCorpus):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// requestID propagates X-Request-ID, minting one when the client sent none.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithTransport(kit.WithRequestID(r.Context(), id), "http")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
