// Package httpapi exposes the AI gateway over HTTP: typed dispatch routes,
// health and admin endpoints, and the middleware chain around them.
package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/kru-ai/kru/pkg/ai"
	"github.com/kru-ai/kru/pkg/audit"
	"github.com/kru-ai/kru/pkg/auth"
	"github.com/kru-ai/kru/pkg/budget"
	"github.com/kru-ai/kru/pkg/config"
	"github.com/kru-ai/kru/pkg/metrics"
	"github.com/kru-ai/kru/pkg/models"
	"github.com/kru-ai/kru/pkg/ratelimit"
	"github.com/kru-ai/kru/pkg/store"
	"github.com/kru-ai/kru/pkg/tracker"
)

// Deps carries everything the server needs. All fields except Config and
// Dispatcher may be nil; nil disables the corresponding concern.
type Deps struct {
	Config     *config.Config
	Dispatcher *ai.Dispatcher
	Auth       *auth.Middleware
	Limiter    *ratelimit.Limiter
	Gate       *ratelimit.Gate
	Store      store.Store
	Tracker    tracker.Tracker
	Auditor    *audit.Logger
	Enforcer   *budget.Enforcer
	Metrics    *metrics.Metrics
	Logger     *log.Logger
}

// Server is the AI gateway HTTP server.
type Server struct {
	cfg        *config.Config
	dispatcher *ai.Dispatcher
	auth       *auth.Middleware
	limiter    *ratelimit.Limiter
	store      store.Store
	tracker    tracker.Tracker
	auditor    *audit.Logger
	enforcer   *budget.Enforcer
	metrics    *metrics.Metrics
	logger     *log.Logger
	handler    http.Handler
}

// New creates a Server wired with all dependencies.
func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		cfg:        d.Config,
		dispatcher: d.Dispatcher,
		auth:       d.Auth,
		limiter:    d.Limiter,
		store:      d.Store,
		tracker:    d.Tracker,
		auditor:    d.Auditor,
		enforcer:   d.Enforcer,
		metrics:    d.Metrics,
		logger:     logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/ai/health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.Handle("POST /v1/ai/process", s.protected(http.HandlerFunc(s.handleProcess)))
	mux.Handle("POST /v1/ai/match", s.protected(s.typed(models.JobMatching)))
	mux.Handle("POST /v1/ai/analyze-document", s.protected(s.typed(models.DocumentAnalysis)))
	mux.Handle("POST /v1/ai/translate", s.protected(s.typed(models.Translation)))
	mux.Handle("POST /v1/ai/parse-resume", s.protected(s.typed(models.ResumeParsing)))
	mux.Handle("POST /v1/ai/interview-prep", s.protected(s.typed(models.InterviewPrep)))

	mux.Handle("POST /v1/ai/generate-content",
		s.protected(auth.RequireRole(models.RoleSchool, models.RoleAdmin)(s.typed(models.ContentGeneration))))
	mux.Handle("POST /v1/ai/bulk-match",
		s.protected(auth.RequireRole(models.RoleTeacher, models.RoleAdmin)(http.HandlerFunc(s.handleBulkMatch))))

	// Chatbot works anonymously; an identity only improves attribution.
	chatbot := http.HandlerFunc(s.typed(models.Chatbot))
	if s.auth != nil {
		mux.Handle("POST /v1/ai/chatbot", s.rateLimited(s.auth.Optional(chatbot)))
	} else {
		mux.Handle("POST /v1/ai/chatbot", s.rateLimited(chatbot))
	}

	mux.Handle("GET /v1/ai/budget", s.protected(http.HandlerFunc(s.handleBudget)))
	mux.Handle("GET /v1/ai/stats",
		s.protected(auth.RequireRole(models.RoleAdmin)(http.HandlerFunc(s.handleStats))))
	mux.Handle("GET /v1/ai/config",
		s.protected(auth.RequireRole(models.RoleAdmin)(http.HandlerFunc(s.handleConfig))))

	var h http.Handler = mux
	if d.Gate != nil {
		h = d.Gate.Middleware(h)
	}
	h = s.observe(h)
	h = cors(s.allowedOrigins(), h)
	h = securityHeaders(h)
	h = requestID(h)
	h = s.recover(h)
	s.handler = h
	return s
}

func (s *Server) allowedOrigins() []string {
	if s.cfg == nil {
		return nil
	}
	return s.cfg.AllowedOrigins
}

// protected wraps a handler with authentication and per-client rate
// limiting. Authentication runs first so the limit is charged to a real
// principal, not to anonymous probes.
func (s *Server) protected(next http.Handler) http.Handler {
	next = s.rateLimited(next)
	if s.auth != nil {
		next = s.auth.Require(next)
	}
	return next
}

func (s *Server) rateLimited(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return s.limiter.Middleware(next)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe starts the server and shuts it down gracefully when the
// context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("kru gateway listening on %s", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}
