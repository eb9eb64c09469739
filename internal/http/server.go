package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"feelance/internal/ai"
	"feelance/internal/auth"
	"feelance/internal/cache"
	"feelance/internal/core"
	"feelance/internal/log"
	"feelance/internal/services"
	"feelance/internal/storage"
)

// TransactionAPI is the transaction surface the handlers call.
type TransactionAPI interface {
	List(ctx context.Context, userID string, f storage.TransactionFilter) ([]core.Transaction, error)
	Get(ctx context.Context, txID string) (core.Transaction, error)
	Create(ctx context.Context, userID string, date core.Date, item string, amount float64, moodScore int) (core.Transaction, error)
	Update(ctx context.Context, txID string, upd services.TransactionUpdate) (core.Transaction, error)
	Delete(ctx context.Context, txID string) error
}

// DiaryAPI is the diary surface the handlers call.
type DiaryAPI interface {
	StreamChat(ctx context.Context, txID, userID string, history []core.ChatMessage, onToken func(string) error) error
	ChatHistory(ctx context.Context, txID, userID string) ([]core.ChatMessage, error)
	Generate(ctx context.Context, txID, userID string, history []core.ChatMessage) (ai.TitledDocument, error)
	Save(ctx context.Context, txID, userID, title, body string) (core.DiaryEntry, error)
	List(ctx context.Context, userID string, f services.DiaryFilter) ([]core.DiaryEntry, error)
}

// ReportAPI is the report surface the handlers call.
type ReportAPI interface {
	StreamChat(ctx context.Context, txID string, history []core.ChatMessage, onToken func(string) error) error
	Generate(ctx context.Context, txID string, history []core.ChatMessage) (ai.TitledDocument, error)
	Save(ctx context.Context, txID, userID, title, body string) (core.Report, error)
}

// RetrospectiveAPI is the retrospective surface the handlers call.
type RetrospectiveAPI interface {
	Summarize(ctx context.Context, userID string, months int) (core.RetrospectiveSummary, error)
}

// UserLookup resolves registered users at login.
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (core.User, error)
}

// Server wires the HTTP surface: session auth, security headers, rate
// limiting, and a short-lived in-memory cache for retrospective
// responses.
type Server struct {
	http.Server
	logger       *log.Logger
	sessions     *auth.Sessions
	users        UserLookup
	transactions TransactionAPI
	diary        DiaryAPI
	reports      ReportAPI
	retro        RetrospectiveAPI

	rateLimiter *rateLimiter

	// whole-aggregate cache keyed user_id:months; mutations for a user
	// drop every window via DeletePrefix
	retroCache   *cache.LRU[core.RetrospectiveSummary]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, sessions *auth.Sessions, users UserLookup, transactions TransactionAPI, diary DiaryAPI, reports ReportAPI, retro RetrospectiveAPI, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger:       logger.WithComponent(log.ComponentHTTP),
		sessions:     sessions,
		users:        users,
		transactions: transactions,
		diary:        diary,
		reports:      reports,
		retro:        retro,
		rateLimiter:  newRateLimiter(),
		retroCache:   cache.NewLRU[core.RetrospectiveSummary](100, time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.retroCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /auth/login", s.withMiddleware(s.handleLogin))
	mux.HandleFunc("POST /auth/logout", s.withMiddleware(s.handleLogout))
	mux.HandleFunc("GET /auth/me", s.withMiddleware(s.requireSession(s.handleMe)))

	mux.HandleFunc("GET /transactions", s.withMiddleware(s.requireSession(s.handleListTransactions)))
	mux.HandleFunc("POST /transactions", s.withMiddleware(s.requireSession(s.handleCreateTransaction)))
	mux.HandleFunc("GET /transactions/{id}", s.withMiddleware(s.requireSession(s.handleGetTransaction)))
	mux.HandleFunc("PATCH /transactions/{id}", s.withMiddleware(s.requireSession(s.handleUpdateTransaction)))
	mux.HandleFunc("DELETE /transactions/{id}", s.withMiddleware(s.requireSession(s.handleDeleteTransaction)))

	mux.HandleFunc("GET /diary", s.withMiddleware(s.requireSession(s.handleListDiaries)))
	mux.HandleFunc("GET /diary/chat", s.withMiddleware(s.requireSession(s.handleChatHistory)))
	mux.HandleFunc("POST /diary/chat/stream", s.withMiddleware(s.requireSession(s.handleDiaryChatStream)))
	mux.HandleFunc("POST /diary/generate", s.withMiddleware(s.requireSession(s.handleDiaryGenerate)))
	mux.HandleFunc("POST /diary/save", s.withMiddleware(s.requireSession(s.handleDiarySave)))

	mux.HandleFunc("POST /reports/chat/stream", s.withMiddleware(s.requireSession(s.handleReportChatStream)))
	mux.HandleFunc("POST /reports/generate", s.withMiddleware(s.requireSession(s.handleReportGenerate)))
	mux.HandleFunc("POST /reports/save", s.withMiddleware(s.requireSession(s.handleReportSave)))

	mux.HandleFunc("GET /retrospective/summary", s.withMiddleware(s.requireSession(s.handleRetrospective)))

	return s
}

// Shutdown stops the background cleanup routines and then the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// withMiddleware adds security headers, rate limiting for mutations,
// and request logging with a request id.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		reqLogger := s.logger.With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), log.LoggerContextKey, reqLogger)
		r = r.WithContext(ctx)

		reqLogger.InfoContext(ctx, "Request started",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			reqLogger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		reqLogger.InfoContext(ctx, "Request completed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds())
	}
}

// requireSession resolves the session cookie and passes the user id to
// the handler. Missing or invalid sessions get 401.
func (s *Server) requireSession(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.sessions.UserFromRequest(r)
		if err != nil {
			writeError(w, r, core.ErrUnauthenticated)
			return
		}
		next(w, r, userID)
	}
}

// responseWriter captures the status code for the completion log line.
// Flush is forwarded so SSE streaming keeps working through the wrapper.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
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
	fmt.Fprintln(w, "ok")
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ready")
}
