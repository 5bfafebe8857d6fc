package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"fintrack/internal/ai"
	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/export"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

type (
	TransactionAPI interface {
		export.TransactionSource
		GetTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
		GetRecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, id string, u core.TransactionUpdate) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
		UploadInvoice(ctx context.Context, transactionID, filename, contentType string, r io.Reader) (string, error)
	}

	BudgetAPI interface {
		export.BudgetSource
		GetBudgets(ctx context.Context, f core.BudgetFilter) ([]core.BudgetView, error)
		GetBudget(ctx context.Context, id string) (core.BudgetView, error)
		CreateBudget(ctx context.Context, b core.Budget) (core.BudgetView, error)
		UpdateBudget(ctx context.Context, id string, u core.BudgetUpdate) (core.BudgetView, error)
		DeleteBudget(ctx context.Context, id string) error
		GetBudgetTrends(ctx context.Context, months int) ([]core.BudgetTrend, error)
	}

	InsightAPI interface {
		Ask(ctx context.Context, userID, query string) (core.Insight, error)
		AnalyzeInvoice(ctx context.Context, userID, filename string, image ai.InlineData) (ai.InvoiceExtraction, core.Insight, error)
		History(ctx context.Context, userID string) ([]core.Insight, error)
		Overview(ctx context.Context) (services.Overview, error)
		TaxTips(ctx context.Context, period core.Period) ([]ai.TaxTip, error)
	}

	SessionBridge interface {
		Establish(ctx context.Context, token string) (*auth.Session, error)
		End(ctx context.Context, token string)
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Services are the backends the API serves. Exporter may be nil, in which
// case report export answers 503.
type Services struct {
	Transactions TransactionAPI
	Budgets      BudgetAPI
	Insights     InsightAPI
	Sessions     SessionBridge
	Exporter     export.Exporter
	DB           Pinger
}

type Config struct {
	Addr           string
	AllowedOrigins []string
	// FilesDir is served under /files/ when invoices are stored locally.
	FilesDir               string
	WriteRequestsPerMinute int
	AIRequestsPerMinute    int
}

const (
	defaultWriteRequestsPerMinute = 60
	defaultAIRequestsPerMinute    = 20
	filesCacheSeconds             = 300
	readyTimeout                  = 5 * time.Second
)

var (
	errForbidden   = errors.New("forbidden")
	errUnavailable = errors.New("unavailable")
)

type Server struct {
	http.Server

	svc          Services
	mux          *http.ServeMux
	logger       *applog.Logger
	detector     *security.Detector
	tracer       *trace.Middleware
	writeLimiter *ratelimit.Limiter
	aiLimiter    *ratelimit.Limiter
	startedAt    time.Time
	now          func() time.Time

	shutdownOnce sync.Once
}

// NewServer builds the API server and its middleware chain.
func NewServer(cfg Config, svc Services, logger *applog.Logger) *Server {
	if cfg.WriteRequestsPerMinute <= 0 {
		cfg.WriteRequestsPerMinute = defaultWriteRequestsPerMinute
	}
	if cfg.AIRequestsPerMinute <= 0 {
		cfg.AIRequestsPerMinute = defaultAIRequestsPerMinute
	}

	s := &Server{
		svc:          svc,
		mux:          http.NewServeMux(),
		logger:       logger.WithComponent(applog.ComponentHTTP),
		detector:     security.NewDetector(logger),
		writeLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.WriteRequestsPerMinute}),
		aiLimiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.AIRequestsPerMinute}),
		startedAt:    time.Now(),
		now:          time.Now,
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	s.routes(cfg.FilesDir)

	var h http.Handler = s.mux
	h = s.rateLimit(h)
	h = security.CORS(cfg.AllowedOrigins)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(s.detector.ExtractClientIP)(h)
	h = applog.Middleware(logger, trace.RequestID)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// WithClock replaces time.Now for timestamps the handlers produce.
func (s *Server) WithClock(now func() time.Time) *Server {
	s.now = now
	return s
}

func (s *Server) routes(filesDir string) {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)

	s.handle("GET /api/me", "", s.handleMe)
	s.handle("POST /api/auth/sign-out", "", s.handleSignOut)

	s.handle("GET /api/dashboard/executive", auth.CapViewDashboards, s.handleExecutiveDashboard)
	s.handle("GET /api/dashboard/cash-flow/export", auth.CapViewDashboards, s.handleCashFlowExport)

	s.handle("GET /api/transactions", auth.CapViewDashboards, s.handleListTransactions)
	s.handle("GET /api/transactions/recent", auth.CapViewDashboards, s.handleRecentTransactions)
	s.handle("GET /api/transactions/summary", auth.CapViewDashboards, s.handleFinancialSummary)
	s.handle("GET /api/transactions/expense-breakdown", auth.CapViewDashboards, s.handleExpenseBreakdown)
	s.handle("GET /api/transactions/cash-flow", auth.CapViewDashboards, s.handleCashFlow)
	s.handle("GET /api/transactions/{id}", auth.CapViewDashboards, s.handleGetTransaction)
	s.handle("POST /api/transactions", auth.CapManageTransactions, s.handleCreateTransaction)
	s.handle("PUT /api/transactions/{id}", auth.CapManageTransactions, s.handleUpdateTransaction)
	s.handle("DELETE /api/transactions/{id}", auth.CapManageTransactions, s.handleDeleteTransaction)
	s.handle("POST /api/transactions/{id}/invoice", auth.CapManageTransactions, s.handleUploadInvoice)

	s.handle("GET /api/budgets", auth.CapViewDashboards, s.handleListBudgets)
	s.handle("GET /api/budgets/summary", auth.CapViewDashboards, s.handleBudgetSummary)
	s.handle("GET /api/budgets/departments", auth.CapViewDashboards, s.handleBudgetDepartments)
	s.handle("GET /api/budgets/alerts", auth.CapViewDashboards, s.handleBudgetAlerts)
	s.handle("GET /api/budgets/trends", auth.CapViewDashboards, s.handleBudgetTrends)
	s.handle("GET /api/budgets/{id}", auth.CapViewDashboards, s.handleGetBudget)
	s.handle("POST /api/budgets", auth.CapManageBudgets, s.handleCreateBudget)
	s.handle("PUT /api/budgets/{id}", auth.CapManageBudgets, s.handleUpdateBudget)
	s.handle("DELETE /api/budgets/{id}", auth.CapManageBudgets, s.handleDeleteBudget)

	s.handle("GET /api/ai/overview", auth.CapViewDashboards, s.handleAIOverview)
	s.handle("GET /api/ai/insights", auth.CapViewDashboards, s.handleInsightHistory)
	s.handle("POST /api/ai/query", auth.CapViewDashboards, s.handleAIQuery)
	s.handle("POST /api/ai/invoice", auth.CapViewDashboards, s.handleAnalyzeInvoice)
	s.handle("GET /api/ai/tax-tips", auth.CapViewTaxAnalytics, s.handleTaxTips)

	s.handle("POST /api/reports/export", auth.CapManageUsers, s.handleReportExport)

	if filesDir != "" {
		files := security.StaticAssetMiddleware(filesCacheSeconds)(
			http.StripPrefix("/files/", noDirListing(http.FileServer(http.Dir(filesDir)))))
		s.mux.Handle("GET /files/", s.requireSession(s.requireCapability(auth.CapViewDashboards, files)))
	}

	s.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		s.errorResponse(w, r, http.StatusNotFound, "Not found")
	})
}

// handle registers an API route behind the session check and, when c is
// set, the capability check.
func (s *Server) handle(pattern string, c auth.Capability, h http.HandlerFunc) {
	var next http.Handler = h
	if c != "" {
		next = s.requireCapability(c, next)
	}
	s.mux.Handle(pattern, s.requireSession(next))
}

// rateLimit throttles AI calls and writes per client IP.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	writes := s.writeLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(next)
	aiCalls := s.aiLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/ai/"):
			aiCalls.ServeHTTP(w, r)
		case r.Method == http.MethodPost, r.Method == http.MethodPut, r.Method == http.MethodDelete:
			writes.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	s.errorResponse(w, r, http.StatusTooManyRequests, "Too many requests. Please try again later.")
}

func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.Server.Handler
}

// Shutdown stops the rate limiters and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.writeLimiter.Stop()
		s.aiLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Close stops the rate limiters without serving; used when the server was
// never started.
func (s *Server) Close() error {
	s.writeLimiter.Stop()
	s.aiLimiter.Stop()
	return s.Server.Close()
}

func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	ErrorResponse(status, message).
		Data(ErrorBody{Error: message, RequestID: trace.RequestID(r)}).
		Write(w)
}

// fail maps err to a status code, logs it and writes the error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, message := classify(err)

	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP)
	args := applog.NewFields().
		WithOperation(op).
		WithError(err).
		ToSlice()
	args = append(args, applog.FieldStatusCode, status)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", args...)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", args...)
	}

	s.errorResponse(w, r, status, message)
}

func classify(err error) (int, string) {
	if cause, ok := core.ValidationCause(err); ok {
		return http.StatusUnprocessableEntity, cause.Error()
	}
	if msg, ok := core.UserMessage(err); ok {
		return http.StatusBadGateway, msg
	}
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, "You do not have permission to perform this action"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
