// Package http serves the query API, demo CRUD endpoints and operational probes.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/gpv-forecast-service/internal/domain"
)

// ItemStore persists demo items.
type ItemStore interface {
	CreateItem(ctx context.Context, item *domain.Item) error
	ListItems(ctx context.Context) ([]domain.Item, error)
	GetItem(ctx context.Context, id uint) (domain.Item, error)
	UpdateItem(ctx context.Context, id uint, item domain.Item) (domain.Item, error)
	DeleteItem(ctx context.Context, id uint) error
}

// ForecastReader lists stored forecast data.
type ForecastReader interface {
	ListForecasts(ctx context.Context) ([]domain.Forecast, error)
	ListWeatherSamples(ctx context.Context) ([]domain.WeatherSample, error)
}

// Store is everything the server reads from the database.
type Store interface {
	ItemStore
	ForecastReader
	sharedobs.ReadinessChecker
}

// TodoStore keeps todos.
type TodoStore interface {
	CreateTodo(ctx context.Context, title string, done bool) (domain.Todo, error)
	ListTodos(ctx context.Context) ([]domain.Todo, error)
}

// Server exposes the JSON API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	store      Store
	todos      TodoStore
	logger     *slog.Logger
}

// NewServer creates an HTTP server with every route registered.
func NewServer(addr string, store Store, todos TodoStore, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:  store,
		todos:  todos,
		logger: logger,
	}

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /greet", s.handleGreet)

	mux.HandleFunc("POST /todos", s.handleCreateTodo)
	mux.HandleFunc("GET /todos", s.handleListTodos)

	mux.HandleFunc("POST /items", s.handleCreateItem)
	mux.HandleFunc("GET /items", s.handleListItems)
	mux.HandleFunc("GET /items/{id}", s.handleGetItem)
	mux.HandleFunc("PUT /items/{id}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /items/{id}", s.handleDeleteItem)

	mux.HandleFunc("GET /weather-samples", s.handleListWeatherSamples)
	mux.HandleFunc("GET /forecasts", s.handleListForecasts)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(store))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type message struct {
	Message string `json:"message"`
}

type detail struct {
	Detail string `json:"detail"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, message{Message: "GPV forecast service is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGreet(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "World"
	}
	writeJSON(w, http.StatusOK, message{Message: "Hello, " + name + "!"})
}

func (s *Server) handleListWeatherSamples(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListWeatherSamples(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleListForecasts(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListForecasts(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// storeError maps a store failure to a response: unknown items are 404, anything else 500.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrItemNotFound) {
		writeJSON(w, http.StatusNotFound, detail{Detail: "Item not found"})
		return
	}
	s.internalError(w, r, err)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, detail{Detail: "internal server error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	sharedobs.WriteJSON(w, status, v)
}
