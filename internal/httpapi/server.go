package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/authkit/internal/auth"
	"github.com/dmitrymomot/authkit/pkg/ratelimit"
)

// Config holds the HTTP surface settings.
type Config struct {
	CORS CORSConfig

	// AuthRateLimit caps login/register/reset attempts per key per window.
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT" envDefault:"5"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1m"`

	// ResendRateLimit caps verification resends per key per window.
	ResendRateLimit  int           `env:"RESEND_RATE_LIMIT" envDefault:"6"`
	ResendRateWindow time.Duration `env:"RESEND_RATE_WINDOW" envDefault:"1m"`
}

// Server wires the domain services into the JSON HTTP surface.
type Server struct {
	users        auth.UserStorage
	tokens       *auth.TokenService
	passwords    *auth.PasswordService
	resets       *auth.ResetService
	verification *auth.VerificationService
	oauth        *auth.OAuthService
	cfg          Config
	limitStore   ratelimit.Store
	logger       *slog.Logger
}

// ServerOption configures a Server during construction.
type ServerOption func(*Server)

// WithServerLogger sets a custom logger for the HTTP surface.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithRateLimitStore sets the backend the per-route limiters use. Tests
// and dev mode use the memory store, production wiring passes Redis.
func WithRateLimitStore(store ratelimit.Store) ServerOption {
	return func(s *Server) {
		s.limitStore = store
	}
}

// NewServer creates the HTTP surface over the given domain services.
func NewServer(
	users auth.UserStorage,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	resets *auth.ResetService,
	verification *auth.VerificationService,
	oauth *auth.OAuthService,
	cfg Config,
	opts ...ServerOption,
) *Server {
	s := &Server{
		users:        users,
		tokens:       tokens,
		passwords:    passwords,
		resets:       resets,
		verification: verification,
		oauth:        oauth,
		cfg:          cfg,
		limitStore:   ratelimit.NewMemoryStore(),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cfg.AuthRateLimit <= 0 {
		s.cfg.AuthRateLimit = 5
	}
	if s.cfg.AuthRateWindow <= 0 {
		s.cfg.AuthRateWindow = time.Minute
	}
	if s.cfg.ResendRateLimit <= 0 {
		s.cfg.ResendRateLimit = 6
	}
	if s.cfg.ResendRateWindow <= 0 {
		s.cfg.ResendRateWindow = time.Minute
	}

	return s
}

// Routes builds the chi router with the complete endpoint surface.
func (s *Server) Routes() http.Handler {
	// Config is normalized in NewServer, constructor errors cannot occur.
	authLimiter, _ := ratelimit.NewSlidingWindow(s.limitStore, s.cfg.AuthRateLimit, s.cfg.AuthRateWindow)
	resendLimiter, _ := ratelimit.NewSlidingWindow(s.limitStore, s.cfg.ResendRateLimit, s.cfg.ResendRateWindow)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(CORS(s.cfg.CORS))

	// Public routes, throttled by email when present else client address.
	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(authLimiter, EmailOrIPKey()))
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/forgot-password", s.handleForgotPassword)
		r.Post("/reset-password", s.handleResetPassword)
	})

	r.Get("/auth/redirect/{provider}", s.handleOAuthRedirect)
	r.Get("/auth/callback/{provider}", s.handleOAuthCallback)

	// Bearer routes. Middleware order is load-bearing: authentication
	// always precedes ability and verification checks.
	r.Group(func(r chi.Router) {
		r.Use(s.Authenticate)

		r.Group(func(r chi.Router) {
			r.Use(RequireAbility(auth.AbilityRefresh), RequireVerified)
			r.Post("/refresh", s.handleRefresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireAbility(auth.AbilityAccess))
			r.Post("/logout", s.handleLogout)
			r.Post("/logout-all", s.handleLogoutAll)
			r.Get("/email/verify", s.handleVerifyNotice)
			r.Get("/email/verify/{id}/{hash}", s.handleVerifyEmail)

			r.Group(func(r chi.Router) {
				r.Use(ratelimit.Middleware(resendLimiter, IPKey()))
				r.Post("/email/verification-notification", s.handleResendVerification)
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireVerified)
				r.Get("/user", s.handleUser)
			})
		})
	})

	return r
}
