package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shubham5177/expense-tracker/internal/amqp"
	"github.com/shubham5177/expense-tracker/internal/core"
	"github.com/shubham5177/expense-tracker/internal/log"
	"github.com/shubham5177/expense-tracker/internal/report"
	"github.com/shubham5177/expense-tracker/internal/stats"
)

// UserStore is the user persistence surface the server depends on.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (int64, error)
	GetUserByID(ctx context.Context, id int64) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	MarkUserVerified(ctx context.Context, email string) error
	UpdateUserName(ctx context.Context, id int64, name string) error
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	UpdateUserCurrency(ctx context.Context, id int64, currency string) error
	DeleteUser(ctx context.Context, id int64) error
}

// ExpenseStore is the expense persistence surface the server depends on.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.Expense) (int64, error)
	GetExpense(ctx context.Context, userID, id int64) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, userID, id int64) error
	SearchByUser(ctx context.Context, userID int64, search, category string) ([]core.Expense, error)
}

// StatsProvider computes dashboard aggregates for a user.
type StatsProvider interface {
	ComputeStats(ctx context.Context, userID int64) (stats.Result, error)
}

// ReportRenderer produces the monthly PDF report for a user.
type ReportRenderer interface {
	RenderMonthlyReport(ctx context.Context, userID int64, identity report.Identity) ([]byte, string, error)
}

// TokenService issues and validates session and email-verification tokens.
type TokenService interface {
	GenerateSessionToken(userID int64) (string, error)
	ParseSessionToken(token string) (int64, error)
	GenerateEmailToken(email string) (string, error)
	ParseEmailToken(token string) (string, error)
}

// MailPublisher enqueues verification mail messages. May be nil when
// messaging is disabled; signup then skips the mail step.
type MailPublisher interface {
	PublishVerificationMail(ctx context.Context, msg *amqp.VerificationMailMessage) error
}

// Deps bundles the collaborators NewServer wires into the route table.
type Deps struct {
	Users    UserStore
	Expenses ExpenseStore
	Stats    StatsProvider
	Reports  ReportRenderer
	Tokens   TokenService
	Mail     MailPublisher
	Logger   *log.Logger
}

type Server struct {
	http.Server
	users    UserStore
	expenses ExpenseStore
	stats    StatsProvider
	reports  ReportRenderer
	tokens   TokenService
	mail     MailPublisher
	validate *validator.Validate
	logger   *log.Logger

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
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

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		users:       deps.Users,
		expenses:    deps.Expenses,
		stats:       deps.Stats,
		reports:     deps.Reports,
		tokens:      deps.Tokens,
		mail:        deps.Mail,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /signup", s.withSecurityHeaders(s.handleSignup))
	mux.HandleFunc("POST /login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("GET /verify", s.withSecurityHeaders(s.handleVerify))

	mux.HandleFunc("GET /api/expenses", s.withSecurityHeaders(s.requireUser(s.handleListExpenses)))
	mux.HandleFunc("POST /api/expenses", s.withSecurityHeaders(s.requireUser(s.handleCreateExpense)))
	mux.HandleFunc("PUT /api/expenses/{id}", s.withSecurityHeaders(s.requireUser(s.handleUpdateExpense)))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withSecurityHeaders(s.requireUser(s.handleDeleteExpense)))

	mux.HandleFunc("GET /api/dashboard/stats", s.withSecurityHeaders(s.requireUser(s.handleDashboardStats)))
	mux.HandleFunc("GET /api/export/pdf", s.withSecurityHeaders(s.requireUser(s.handleExportPDF)))

	mux.HandleFunc("PUT /api/settings/profile", s.withSecurityHeaders(s.requireUser(s.handleUpdateProfile)))
	mux.HandleFunc("PUT /api/settings/password", s.withSecurityHeaders(s.requireUser(s.handleChangePassword)))
	mux.HandleFunc("PUT /api/settings/currency", s.withSecurityHeaders(s.requireUser(s.handleChangeCurrency)))
	mux.HandleFunc("DELETE /api/settings/account", s.withSecurityHeaders(s.requireUser(s.handleDeleteAccount)))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
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

		s.logger.InfoContext(r.Context(), "request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldRemote, clientIP)

		// Rate limit mutating requests only; reads stay cheap.
		if mutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			s.logger.Warn("rate limit exceeded",
				log.FieldRequestID, requestID,
				log.FieldRemote, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.logger.InfoContext(r.Context(), "request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatus, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
			log.FieldRemote, clientIP)
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

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
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
