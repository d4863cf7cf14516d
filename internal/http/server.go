package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
)

// Pinger reports whether the store answers. ledger.Store satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call.
type Deps struct {
	Store     Pinger
	Auth      *auth.Service
	Tokens    *auth.TokenManager
	Ledger    *services.LedgerService
	Dashboard *services.DashboardService
	Analytics *services.AnalyticsService
	Reports   *services.ReportService
	Admin     *services.AdminService
}

type Options struct {
	RateLimitPerMinute int
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	deps     Deps
	logger   *applog.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Nop()
	}

	s := &Server{
		deps:     deps,
		logger:   logger.WithComponent(applog.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	tracer := trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, ErrorBody{Error: "rate limit exceeded", RequestID: trace.GetRequestID(r.Context())})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           tracer.Middleware(headers.Middleware(s.detector.Middleware(limit(mux)))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	authed := auth.Middleware(s.deps.Tokens, writeError)
	admin := func(h http.Handler) http.Handler {
		return authed(auth.RequireRole(core.RoleAdmin, writeError)(h))
	}
	user := func(h http.HandlerFunc) http.Handler { return authed(h) }

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("POST /api/login", s.handleLogin)

	mux.Handle("GET /api/me", user(s.handleMe))
	mux.Handle("GET /api/categories", user(s.handleCategories))

	mux.Handle("GET /api/incomes", user(s.handleListIncomes))
	mux.Handle("POST /api/incomes", user(s.handleCreateIncome))
	mux.Handle("GET /api/incomes/{id}", user(s.handleGetIncome))
	mux.Handle("PUT /api/incomes/{id}", user(s.handleUpdateIncome))
	mux.Handle("DELETE /api/incomes/{id}", user(s.handleDeleteIncome))

	mux.Handle("GET /api/expenses", user(s.handleListExpenses))
	mux.Handle("POST /api/expenses", user(s.handleCreateExpense))
	mux.Handle("GET /api/expenses/{id}", user(s.handleGetExpense))
	mux.Handle("PUT /api/expenses/{id}", user(s.handleUpdateExpense))
	mux.Handle("DELETE /api/expenses/{id}", user(s.handleDeleteExpense))

	mux.Handle("GET /api/budgets", user(s.handleListBudgets))
	mux.Handle("POST /api/budgets", user(s.handleCreateBudget))
	mux.Handle("GET /api/budgets/{id}", user(s.handleGetBudget))
	mux.Handle("PUT /api/budgets/{id}", user(s.handleUpdateBudget))
	mux.Handle("DELETE /api/budgets/{id}", user(s.handleDeleteBudget))

	mux.Handle("GET /api/dashboard", user(s.handleDashboard))
	mux.Handle("GET /api/analytics", user(s.handleAnalytics))

	mux.Handle("GET /api/reports", user(s.handleReportIndex))
	mux.Handle("GET /api/reports/monthly/{year}/{month}", user(s.handleMonthlyReport))
	mux.Handle("GET /api/reports/monthly/{year}/{month}/pdf", user(s.handleMonthlyPDF))
	mux.Handle("GET /api/reports/monthly/{year}/{month}/csv", user(s.handleMonthlyCSV))
	mux.Handle("GET /api/reports/yearly/{year}", user(s.handleYearlyReport))
	mux.Handle("GET /api/reports/yearly/{year}/pdf", user(s.handleYearlyPDF))

	mux.Handle("GET /api/admin/dashboard", admin(http.HandlerFunc(s.handleAdminDashboard)))
	mux.Handle("GET /api/admin/analytics", admin(http.HandlerFunc(s.handleAdminAnalytics)))
	mux.Handle("GET /api/admin/users", admin(http.HandlerFunc(s.handleAdminUsers)))
	mux.Handle("GET /api/admin/users/{id}", admin(http.HandlerFunc(s.handleAdminUserDetails)))
	mux.Handle("POST /api/admin/users/{id}/toggle-status", admin(http.HandlerFunc(s.handleAdminToggleStatus)))
}

// Shutdown stops the rate limiter and drains the HTTP server. Safe to call twice.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady checks the store with a short deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.deps.Store.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
