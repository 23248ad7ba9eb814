package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/assessment/internal/core/services/activity"
	auth2 "gitlab.com/fcv-2025.net/assessment/internal/core/services/auth"
	"gitlab.com/fcv-2025.net/assessment/internal/core/services/runner"
	"gitlab.com/fcv-2025.net/assessment/internal/core/services/session"
	"gitlab.com/fcv-2025.net/assessment/internal/config"
	"gitlab.com/fcv-2025.net/assessment/internal/handlers"
	"gitlab.com/fcv-2025.net/assessment/internal/handlers/attempts"
	"gitlab.com/fcv-2025.net/assessment/internal/handlers/auth"
)

type ServiceProvider struct {
	sessions session.ISessionManager
	runner   runner.IRunnerService
	catalog  activity.IActivityCatalog
	jwt      primary.JWTService

	ggAuth    auth2.IAuthService
	localAuth auth2.IAuthService
}

func NewServiceProvider(
	sessions session.ISessionManager,
	runner runner.IRunnerService,
	catalog activity.IActivityCatalog,
	jwt primary.JWTService,
	ggAuth auth2.IAuthService,
	localAuth auth2.IAuthService,
) *ServiceProvider {
	return &ServiceProvider{
		sessions:  sessions,
		runner:    runner,
		catalog:   catalog,
		jwt:       jwt,
		ggAuth:    ggAuth,
		localAuth: localAuth,
	}
}

type Server struct {
	router          *mux.Router
	srv             *http.Server
	Port            string
	ServiceName     string
	ServiceProvider ServiceProvider
	ggAuthConfig    *config.GGAuthConfig
	logger          primary.Logger
}

func NewServer(port string, serviceName string, serviceProvider ServiceProvider, ggAuthConfig *config.GGAuthConfig, logger primary.Logger) *Server {
	return &Server{
		Port:            port,
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		ggAuthConfig:    ggAuthConfig,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		handlers.ResponseWithJson(w, http.StatusOK, map[string]string{"service": s.ServiceName, "status": "ok"})
	}).Methods(http.MethodGet)

	auth.NewHandler(s.ggAuthConfig, s.logger).RegisterRoutes(r, &auth.ServiceDependencies{
		GGAuthService:    s.ServiceProvider.ggAuth,
		LocalAuthService: s.ServiceProvider.localAuth,
	})

	api := r.PathPrefix("/api").Subrouter()
	api.Use(handlers.New(s.ServiceProvider.jwt, s.logger).JWTMiddleware)
	attempts.
		NewAttemptHandler(s.ServiceProvider.sessions, s.ServiceProvider.runner, s.ServiceProvider.catalog, s.logger).
		RegisterRoutes(api)

	s.router = r
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until the listener fails; errors other than a shutdown are
// sent on the returned channel
func (s *Server) Start() <-chan error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down http server...")
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
