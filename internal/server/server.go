package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/KaramelBytes/finlens/internal/assistant"
	"github.com/KaramelBytes/finlens/internal/dataset"
	"github.com/KaramelBytes/finlens/internal/logger"
)

// DatasetProvider returns the loaded dataset. *dataset.Loader satisfies it.
type DatasetProvider interface {
	Load(ctx context.Context) (*dataset.Dataset, error)
}

// Server exposes the dashboard over HTTP.
type Server struct {
	data   DatasetProvider
	asker  assistant.Asker
	router *mux.Router
	log    *logger.Entry
}

// New wires the routes. asker may be nil, in which case /api/ask answers 502.
func New(data DatasetProvider, asker assistant.Asker) *Server {
	s := &Server{
		data:   data,
		asker:  asker,
		router: mux.NewRouter(),
		log:    logger.WithComponent("server"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(requestID, s.accessLog)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/filters", s.handleFilters).Methods(http.MethodGet)
	api.HandleFunc("/companies", s.handleCompanies).Methods(http.MethodGet)
	api.HandleFunc("/top", s.handleTop).Methods(http.MethodGet)
	api.HandleFunc("/breakdown", s.handleBreakdown).Methods(http.MethodGet)
	api.HandleFunc("/describe", s.handleDescribe).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/charts/bar/{column}.png", s.handleBarChart).Methods(http.MethodGet)
	api.HandleFunc("/charts/pie/{column}.png", s.handlePieChart).Methods(http.MethodGet)
	api.HandleFunc("/ask", s.handleAsk).Methods(http.MethodPost)

	r.NotFoundHandler = requestID(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	}))
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.WithFields(logger.Fields{"addr": ln.Addr().String()}).Info("dashboard server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	s.log.Info("dashboard server stopped")
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}
