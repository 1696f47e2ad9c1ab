// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/assistant"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

// Ledger is the façade the handlers drive.
type Ledger interface {
	Today() core.Date
	Ping(ctx context.Context) error
	ListWithProjection(ctx context.Context, userID int64) ([]core.Transaction, error)
	Summary(ctx context.Context, userID int64) (core.Summary, error)
	BudgetStatus(ctx context.Context, userID int64, month core.Month) (core.BudgetStatus, error)
	AddTransaction(ctx context.Context, userID int64, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id int64, patch core.TransactionPatch) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) error
	SetBudget(ctx context.Context, userID int64, month core.Month, amount decimal.Decimal) (core.Budget, error)
}

// Answerer answers free-form questions about a user's ledger.
type Answerer interface {
	Answer(ctx context.Context, userID int64, query string) (assistant.Reply, error)
}

type Options struct {
	Logger             *log.Logger
	RateLimitPerMinute int
	// Exporter enables POST /export/sheets when set.
	Exporter sheets.Exporter
	// Assistant enables POST /assistant when set.
	Assistant Answerer
}

type Server struct {
	http.Server
	ledger    Ledger
	assistant Answerer
	exporter  sheets.Exporter
	logger    *log.Logger

	limiter      *rateLimiter
	metrics      *securityMetrics
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger Ledger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:    ledger,
		assistant: opts.Assistant,
		exporter:  opts.Exporter,
		logger:    logger,
		limiter:   newRateLimiter(opts.RateLimitPerMinute),
		metrics:   &securityMetrics{},
	}
	go s.limiter.startCleanup(5 * time.Minute)

	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.assignRequestID)
	r.Use(log.RequestLogger(s.logger, func(r *http.Request) string { return RequestID(r.Context()) }, extractClientIP))
	r.Use(securityHeaders)
	r.Use(s.flagSuspicious)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorJSON{Error: "route not found", RequestID: RequestID(r.Context())})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorJSON{Error: "method not allowed", RequestID: RequestID(r.Context())})
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)
		r.Use(s.rateLimit)

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Post("/", s.handleCreateExpense)
			r.Get("/summary", s.handleSummary)
			r.Put("/{id}", s.handleUpdateExpense)
			r.Delete("/{id}", s.handleDeleteExpense)
		})

		r.Post("/budget", s.handleSetBudget)
		r.Get("/budget/status", s.handleBudgetStatus)

		if s.assistant != nil {
			r.Post("/assistant", s.handleAssistant)
		}
		if s.exporter != nil {
			r.Post("/export/sheets", s.handleExportSheets)
		}
	})
	return r
}

// SecurityStats reports rate limit, probe and authentication rejections since start.
func (s *Server) SecurityStats() SecurityStats {
	return s.metrics.snapshot()
}

// Shutdown stops the rate limiter sweep and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) assignRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSuspicious(r) {
			atomic.AddInt64(&s.metrics.suspiciousRequests, 1)
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, extractClientIP(r),
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := parseUserID(r)
		if err != nil {
			atomic.AddInt64(&s.metrics.unauthenticated, 1)
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = log.IntoContext(ctx, log.FromContext(ctx).With(log.FieldUserID, userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strconv.FormatInt(userIDFrom(r.Context()), 10)
		if !s.limiter.allow(key, s.metrics) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldComponent, log.ComponentRateLimit,
				log.FieldClientIP, extractClientIP(r))
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorJSON{
				Error:     "rate limit exceeded, try again later",
				RequestID: RequestID(r.Context()),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
