// Package api exposes opening hours, closing rules and open/closed status over JSON HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"openinghours/internal/closing"
	"openinghours/internal/db"
	"openinghours/internal/export"
	"openinghours/internal/model"
	"openinghours/internal/slots"
	"openinghours/internal/status"
	"openinghours/internal/tz"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// PremisesFinder resolves a premises from its URL slug.
type PremisesFinder interface {
	GetPremisesBySlug(ctx context.Context, slug string) (*model.Premises, error)
}

// Server wires the HTTP surface to the domain services.
type Server struct {
	premises PremisesFinder
	hours    *slots.Engine
	rules    *closing.Service
	status   *status.Evaluator
	exporter *export.Exporter
	limiter  *RateLimiter
	logger   *zerolog.Logger
	now      func() time.Time
}

type Deps struct {
	Premises PremisesFinder
	Hours    *slots.Engine
	Rules    *closing.Service
	Status   *status.Evaluator
	Exporter *export.Exporter
	Limiter  *RateLimiter
}

func NewServer(deps Deps, logger *zerolog.Logger) *Server {
	return &Server{
		premises: deps.Premises,
		hours:    deps.Hours,
		rules:    deps.Rules,
		status:   deps.Status,
		exporter: deps.Exporter,
		limiter:  deps.Limiter,
		logger:   logger,
		now:      time.Now,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Route("/api/premises/{slug}", func(r chi.Router) {
		r.Use(s.premisesCtx)

		r.Get("/hours", s.handleGetHours)
		r.With(s.limiter.Limit).Put("/hours", s.handlePutHours)
		r.With(s.limiter.Limit).Post("/closing-rules", s.handlePostClosingRules)
		r.Get("/status", s.handleStatus)
		r.Get("/export.xlsx", s.handleExport)
	})

	return r
}

type premisesKey struct{}

// premisesCtx loads the premises named in the URL. Inactive premises are not served.
func (s *Server) premisesCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.premises.GetPremisesBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err == nil && !p.IsActive {
			err = db.ErrNotFound
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), premisesKey{}, p)))
	})
}

func premisesFrom(ctx context.Context) *model.Premises {
	p, _ := ctx.Value(premisesKey{}).(*model.Premises)
	return p
}

// fail maps domain errors to responses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		tzErr *tz.UnknownTimezoneError
		verr  slots.ValidationErrors
	)
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:  "invalid opening hours",
			Fields: verr.Fields(),
		})
	case errors.As(err, &tzErr):
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Premises timezone misconfigured")
		writeError(w, http.StatusInternalServerError, "premises timezone is misconfigured")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}

// decodeJSON reads a bounded body and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
