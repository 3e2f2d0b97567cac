package api

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/flibusta-apps/batch-downloader/internal/config"
	"github.com/flibusta-apps/batch-downloader/internal/models"
	"github.com/flibusta-apps/batch-downloader/internal/ratelimit"
	"github.com/flibusta-apps/batch-downloader/internal/store"
	"github.com/flibusta-apps/batch-downloader/internal/tasks"
	"github.com/flibusta-apps/batch-downloader/internal/telemetry"
)

// Server wires HTTP handlers for the archive API.
type Server struct {
	cfg     config.Config
	store   *store.Store
	creator *tasks.Creator
	limiter *ratelimit.TokenBucket
}

// New constructs the API server.
func New(cfg config.Config, st *store.Store, creator *tasks.Creator, limiter *ratelimit.TokenBucket) *Server {
	return &Server{
		cfg:     cfg,
		store:   st,
		creator: creator,
		limiter: limiter,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.auth)
		r.Post("/", s.handleCreate)
		r.Get("/check_archive/{jobID}", s.handleCheckArchive)
	})
	return r
}

// auth requires the shared-secret Authorization header on every /api route.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != s.cfg.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createRequest struct {
	EntityID     int               `json:"entity_id"`
	EntityKind   models.EntityKind `json:"entity_kind"`
	Format       string            `json:"format"`
	AllowedLangs []string          `json:"allowed_langs"`
}

// digest builds the dedup key: same entity, format, and language set map to
// the same digest regardless of language order.
func (r createRequest) digest() string {
	langs := slices.Clone(r.AllowedLangs)
	slices.Sort(langs)
	normalized := r
	normalized.AllowedLangs = langs
	data, _ := json.Marshal(normalized)
	return fmt.Sprintf("%x", md5.Sum(data))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid json"})
		return
	}
	if req.EntityID <= 0 || !req.EntityKind.Valid() || req.Format == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request"})
		return
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(r.Context(), "rl:"+clientKey(r))
		if err != nil {
			http.Error(w, "rate limit error", http.StatusInternalServerError)
			return
		}
		if !allowed {
			telemetry.RateLimitRejects.Inc()
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
	}

	// An identical in-flight request reuses the live job instead of fanning
	// out the same downloads again.
	digest := req.digest()
	if jobID, err := s.store.JobForRequest(r.Context(), digest); err == nil && jobID != "" {
		if job, err := s.store.Get(r.Context(), jobID); err == nil && job != nil {
			writeJSON(w, http.StatusOK, job)
			return
		}
	}

	job, err := s.creator.CreateJob(r.Context(), req.EntityID, req.EntityKind, req.Format, req.AllowedLangs)
	if err != nil {
		var ce *tasks.CreateError
		if errors.As(err, &ce) {
			telemetry.JobCreateErrors.Inc()
			writeJSON(w, http.StatusBadRequest, ce)
			return
		}
		http.Error(w, "create job failed", http.StatusInternalServerError)
		return
	}

	// Dedup is best effort; the job itself is already persisted.
	_ = s.store.RememberRequest(r.Context(), digest, job.ID)

	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCheckArchive(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.store.Get(r.Context(), jobID)
	if err != nil {
		http.Error(w, "job lookup failed", http.StatusInternalServerError)
		return
	}
	if job == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func clientKey(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		return v
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
