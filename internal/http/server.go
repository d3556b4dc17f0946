// Package http exposes the ledger engine as a JSON API. Identity comes
// from the X-User-ID header; the role oracle decides what it may do.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"bachat/internal/auth"
	"bachat/internal/service"
	"bachat/internal/store"
)

const userIDHeader = "X-User-ID"

type Server struct {
	http.Server
	ledgers     *service.LedgerService
	settings    *service.SettingsService
	roles       *auth.Service
	store       store.Store
	rateLimiter *rateLimiter
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, ledgers *service.LedgerService, settings *service.SettingsService, roles *auth.Service, st store.Store) *Server {
	router := mux.NewRouter()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: router,
		},
		ledgers:     ledgers,
		settings:    settings,
		roles:       roles,
		store:       st,
		rateLimiter: newRateLimiter(),
	}

	router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.withSecurityHeaders)

	api.HandleFunc("/members", s.handleListMembers).Methods(http.MethodGet)
	api.HandleFunc("/members", s.handleAddMember).Methods(http.MethodPost)
	api.HandleFunc("/members/{id}", s.handleDeleteMember).Methods(http.MethodDelete)

	api.HandleFunc("/ledger/savings", s.handleSavingsLedger).Methods(http.MethodGet)
	api.HandleFunc("/ledger/savings", s.handleUpsertSavings).Methods(http.MethodPut)
	api.HandleFunc("/ledger/loans", s.handleLoanLedger).Methods(http.MethodGet)
	api.HandleFunc("/ledger/loans", s.handleUpsertLoan).Methods(http.MethodPut)
	api.HandleFunc("/ledger/group", s.handleGroupLedger).Methods(http.MethodGet)
	api.HandleFunc("/ledger/group", s.handleAddGroupEntry).Methods(http.MethodPost)
	api.HandleFunc("/ledger/group/{id}", s.handleDeleteGroupEntry).Methods(http.MethodDelete)

	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)

	api.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings/rates", s.handleUpdateRates).Methods(http.MethodPut)
	api.HandleFunc("/settings/fiscal-years", s.handleListFiscalYears).Methods(http.MethodGet)
	api.HandleFunc("/settings/fiscal-years", s.handleAddFiscalYear).Methods(http.MethodPost)
	api.HandleFunc("/settings/fiscal-years", s.handleRemoveFiscalYear).Methods(http.MethodDelete)

	api.HandleFunc("/admins", s.handleGrantAdmin).Methods(http.MethodPost)
	api.HandleFunc("/admins/{userId}", s.handleRevokeAdmin).Methods(http.MethodDelete)

	api.HandleFunc("/export/savings.csv", s.handleExportSavings).Methods(http.MethodGet)
	api.HandleFunc("/export/loans.csv", s.handleExportLoans).Methods(http.MethodGet)
	api.HandleFunc("/export/group.csv", s.handleExportGroup).Methods(http.MethodGet)

	api.HandleFunc("/backup", s.handleBackup).Methods(http.MethodGet)
	api.HandleFunc("/backup", s.handleRestore).Methods(http.MethodPost)

	return s
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		// Generate request ID for tracing
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit mutations only; ledger reads recompute from scratch
		// but are cheap enough to leave unmetered.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	})
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.stop()
	}
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ledgers.ListMembers(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// userID extracts the caller identity. An empty value is an anonymous
// read-only caller; mutations will fail the admin check downstream.
func userID(r *http.Request) string {
	return r.Header.Get(userIDHeader)
}
