// Package http is the JSON API surface. Handlers are thin: decode,
// call a service, encode. Everything mutating is rate limited per
// client IP and every request carries a generated request id.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aaron7k/wealth/internal/cache"
	applog "github.com/aaron7k/wealth/internal/log"
	"github.com/aaron7k/wealth/internal/services"
	"github.com/aaron7k/wealth/internal/storage"
)

// userIDHeader selects the acting user; absent, the configured
// single-user identity applies.
const userIDHeader = "X-User-ID"

type Server struct {
	http.Server

	storage      *storage.SQLiteRepository
	transactions *services.TransactionService
	ledger       *services.LedgerService
	reporting    *services.ReportingService

	rateLimiter   *rateLimiter
	cacheManager  *cache.Manager
	dashCache     *cache.LRUCache[services.DashboardSummary]
	defaultUserID string

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a
// ready-to-run http.Server.
func NewServer(addr, defaultUserID string, repo *storage.SQLiteRepository, tx *services.TransactionService, ledger *services.LedgerService, reporting *services.ReportingService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		storage:       repo,
		transactions:  tx,
		ledger:        ledger,
		reporting:     reporting,
		rateLimiter:   newRateLimiter(),
		cacheManager:  cache.NewManager(),
		dashCache:     cache.NewLRUCache[services.DashboardSummary](100, 5*time.Minute),
		defaultUserID: defaultUserID,
	}
	s.cacheManager.Register(s.dashCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("GET /api/v1/accounts", s.wrap(s.handleListAccounts))
	mux.HandleFunc("POST /api/v1/accounts", s.wrap(s.handleCreateAccount))
	mux.HandleFunc("GET /api/v1/accounts/{id}", s.wrap(s.handleGetAccount))
	mux.HandleFunc("PUT /api/v1/accounts/{id}", s.wrap(s.handleUpdateAccount))
	mux.HandleFunc("DELETE /api/v1/accounts/{id}", s.wrap(s.handleDeleteAccount))

	mux.HandleFunc("GET /api/v1/categories", s.wrap(s.handleListCategories))
	mux.HandleFunc("POST /api/v1/categories", s.wrap(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/v1/categories/{id}", s.wrap(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/v1/categories/{id}", s.wrap(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/v1/transactions", s.wrap(s.handleListTransactions))
	mux.HandleFunc("POST /api/v1/transactions", s.wrap(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/v1/transactions/{id}", s.wrap(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/v1/transactions/{id}", s.wrap(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/v1/transactions/{id}", s.wrap(s.handleDeleteTransaction))

	mux.HandleFunc("POST /api/v1/transfers", s.wrap(s.handleCreateTransfer))

	mux.HandleFunc("GET /api/v1/budgets", s.wrap(s.handleListBudgets))
	mux.HandleFunc("POST /api/v1/budgets", s.wrap(s.handleCreateBudget))
	mux.HandleFunc("GET /api/v1/budgets/{id}", s.wrap(s.handleGetBudget))
	mux.HandleFunc("PUT /api/v1/budgets/{id}", s.wrap(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/v1/budgets/{id}", s.wrap(s.handleDeleteBudget))

	mux.HandleFunc("GET /api/v1/subscriptions", s.wrap(s.handleListSubscriptions))
	mux.HandleFunc("POST /api/v1/subscriptions", s.wrap(s.handleCreateSubscription))
	mux.HandleFunc("PUT /api/v1/subscriptions/{id}", s.wrap(s.handleUpdateSubscription))
	mux.HandleFunc("DELETE /api/v1/subscriptions/{id}", s.wrap(s.handleDeleteSubscription))

	mux.HandleFunc("GET /api/v1/goals", s.wrap(s.handleListGoals))
	mux.HandleFunc("POST /api/v1/goals", s.wrap(s.handleCreateGoal))
	mux.HandleFunc("GET /api/v1/goals/{id}", s.wrap(s.handleGetGoal))
	mux.HandleFunc("PUT /api/v1/goals/{id}", s.wrap(s.handleUpdateGoal))
	mux.HandleFunc("DELETE /api/v1/goals/{id}", s.wrap(s.handleDeleteGoal))
	mux.HandleFunc("GET /api/v1/goals/{id}/contributions", s.wrap(s.handleListContributions))
	mux.HandleFunc("POST /api/v1/goals/{id}/contributions", s.wrap(s.handleAddContribution))

	mux.HandleFunc("GET /api/v1/ledger/diezmo", s.wrap(s.handleDiezmoOverview))
	mux.HandleFunc("GET /api/v1/ledger/savings", s.wrap(s.handleSavingsOverview))
	mux.HandleFunc("POST /api/v1/ledger/{id}/pay", s.wrap(s.handleMarkEntryPaid))
	mux.HandleFunc("POST /api/v1/ledger/diezmo/recalculate", s.wrap(s.handleRecalculateDiezmo))

	mux.HandleFunc("GET /api/v1/profile", s.wrap(s.handleGetProfile))
	mux.HandleFunc("PUT /api/v1/profile", s.wrap(s.handleUpdateProfile))

	mux.HandleFunc("GET /api/v1/dashboard", s.wrap(s.handleDashboard))

	return s
}

// Shutdown stops the cleanup goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// userID resolves the acting user from the request header.
func (s *Server) userID(r *http.Request) string {
	if id := r.Header.Get(userIDHeader); id != "" {
		return id
	}
	return s.defaultUserID
}

// mutating reports whether the method changes state and should be
// rate limited.
func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// wrap adds security headers, rate limiting, and request logging.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := r.Context()

		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP,
			applog.FieldUserAgent, r.Header.Get("User-Agent"))

		if mutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("storage not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// dashboardKey is the cache key for one user's month view.
func dashboardKey(userID string, t time.Time) string {
	return userID + "-" + strconv.Itoa(t.Year()) + "-" + strconv.Itoa(int(t.Month()))
}

// invalidateDashboard drops the cached summary for the month a write
// touched, plus the current month.
func (s *Server) invalidateDashboard(userID string, touched time.Time) {
	s.dashCache.Delete(dashboardKey(userID, touched))
	s.dashCache.Delete(dashboardKey(userID, time.Now()))
}
