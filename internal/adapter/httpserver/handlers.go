package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/3CBolt/promptpractice-kiro-sub000/internal/config"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/domain"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/provider/registry"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/usecase"
	"github.com/3CBolt/promptpractice-kiro-sub000/pkg/textx"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Submit     *usecase.SubmitService
	Results    *usecase.ResultService
	Registry   *registry.Registry
	Limiter    domain.RateLimiter
	RedisCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers wired.
func NewServer(cfg config.Config, submit *usecase.SubmitService, results *usecase.ResultService, reg *registry.Registry, limiter domain.RateLimiter, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Submit: submit, Results: results, Registry: reg, Limiter: limiter, RedisCheck: redisCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// acceptsJSON rejects requests whose Accept header excludes JSON; this API
// speaks nothing else.
func acceptsJSON(w http.ResponseWriter, r *http.Request) bool {
	a := r.Header.Get("Accept")
	if a == "" || a == "*/*" || strings.Contains(a, "application/json") {
		return true
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusNotAcceptable)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: apiError{
		Code:    "INVALID_ARGUMENT",
		Message: "not acceptable",
		Details: map[string]any{"accept": a},
	}})
	return false
}

// CreateAttemptHandler accepts a prompt submission and starts evaluation.
func (s *Server) CreateAttemptHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
		var req struct {
			LabID        string   `json:"labId" validate:"required"`
			UserPrompt   string   `json:"userPrompt" validate:"required,max=2000"`
			SystemPrompt string   `json:"systemPrompt" validate:"max=2000"`
			Models       []string `json:"models" validate:"required,min=1,max=3"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			verrs := map[string]string{}
			if ve, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range ve {
					verrs[strings.ToLower(fe.Field())] = fe.Tag()
				}
			}
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
			return
		}

		attempt, err := s.Submit.Submit(r.Context(), usecase.SubmitInput{
			LabID:        req.LabID,
			UserPrompt:   textx.SanitizeText(req.UserPrompt),
			SystemPrompt: textx.SanitizeText(req.SystemPrompt),
			Models:       req.Models,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"attemptId": attempt.ID,
			"labId":     attempt.LabID,
			"createdAt": attempt.CreatedAt,
		})
	}
}

// AttemptResultHandler returns evaluation status and results for polling.
func (s *Server) AttemptResultHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		res, etag, err := s.Results.Fetch(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ListModelsHandler exposes the model catalog, optionally filtered by
// source class via ?source=.
func (s *Server) ListModelsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		var models []domain.ModelDescriptor
		if src := r.URL.Query().Get("source"); src != "" {
			models = s.Registry.ListBySource(domain.SourceClass(src))
		} else {
			models = s.Registry.List()
		}
		writeJSON(w, http.StatusOK, map[string]any{"models": models})
	}
}

// RateLimitHandler reports the shared hosted-quota window so clients can
// show countdowns or switch to sample models proactively.
func (s *Server) RateLimitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, s.Limiter.Status(r.Context()))
	}
}

// HealthzHandler is a trivial liveness probe.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler probes the data directory and, when configured, Redis.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 2)
		if _, err := os.Stat(s.Cfg.DataDir); err != nil {
			checks = append(checks, check{Name: "datadir", OK: false, Details: err.Error()})
		} else {
			checks = append(checks, check{Name: "datadir", OK: true})
		}
		if s.RedisCheck != nil {
			if err := s.RedisCheck(ctx); err != nil {
				checks = append(checks, check{Name: "redis", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "redis", OK: true})
			}
		}
		ok := true
		for _, c := range checks {
			if !c.OK {
				ok = false
				break
			}
		}
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{"ok": ok, "checks": checks})
	}
}
