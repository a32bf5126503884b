// Package rest exposes the account and catalog use cases as a JSON HTTP API.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/senas-auth/internal/logging"
	"github.com/dmitrijs2005/senas-auth/internal/server/catalog"
	"github.com/dmitrijs2005/senas-auth/internal/server/config"
	"github.com/dmitrijs2005/senas-auth/internal/server/models"
	"github.com/dmitrijs2005/senas-auth/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const shutdownTimeout = 10 * time.Second

// UserService is the account API the handlers depend on.
type UserService interface {
	Register(ctx context.Context, email, password string, name *string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, renewalToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, renewalToken string)
	WhoAmI(ctx context.Context, authorization string) (*models.User, error)
	FederatedLogin(ctx context.Context, token string) (*models.User, error)
	Authenticate(authorization string) (string, error)
}

// Catalog is the content API the handlers depend on.
type Catalog interface {
	Locales() []catalog.Locale
	Lessons(locale string) []catalog.Lesson
	Models(locale string) []catalog.Model
	PresignAsset(ctx context.Context, assetID string) (string, error)
}

type Server struct {
	address      string
	users        UserService
	catalog      Catalog
	logger       logging.Logger
	cookieSecure bool
	cookieMaxAge int
	origins      []string
}

func NewServer(cfg *config.Config, us UserService, cat Catalog, l logging.Logger) *Server {
	return &Server{
		address:      cfg.EndpointAddrHTTP,
		users:        us,
		catalog:      cat,
		logger:       l.With("module", "http_server"),
		cookieSecure: cfg.CookieSecure,
		cookieMaxAge: cookieMaxAge(cfg.RefreshTokenValidityDuration),
		origins:      cfg.AllowedOrigins,
	}
}

// cookieMaxAge turns the renewal token lifetime into a cookie Max-Age.
// Non-expiring tokens get a session cookie.
func cookieMaxAge(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	return int(ttl / time.Second)
}

// Handler returns the fully routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.Post("/refresh", s.refresh)
			r.Post("/logout", s.logout)
			r.Get("/me", s.me)
			r.Post("/firebase_login", s.firebaseLogin)
		})

		r.Get("/locales", s.locales)
		r.Get("/lessons", s.lessons)
		r.Get("/models", s.models)
		r.With(s.requireAccessToken).Get("/assets/{assetID}/presign", s.presignAsset)
	})

	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
