package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"points-ledger/internal/config"
	"points-ledger/internal/events"
	"points-ledger/internal/events/kafka"
	"points-ledger/internal/handler"
	"points-ledger/internal/lock"
	"points-ledger/internal/middleware"
	"points-ledger/internal/repository"
	"points-ledger/internal/service"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Server represents the HTTP server
type Server struct {
	cfg     *config.Config
	router  *mux.Router
	handler http.Handler
	server  *http.Server
	store   *repository.Store
	ledger  *service.LedgerService
	logger  zerolog.Logger
	port    string
}

// OpenStore connects to the configured backend and applies the schema.
func OpenStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repository.Store, error) {
	pool := repository.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	store, err := repository.Open(ctx, cfg.Database.Driver, cfg.GetDBConnectionString(), pool, logger)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}

	logger.Info().Str("driver", cfg.Database.Driver).Msg("Successfully connected to database")
	return store, nil
}

// NewPublisher returns a Kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func NewPublisher(cfg *config.Config, logger zerolog.Logger) events.Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.NopPublisher{}
	}
	logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Publishing entry events to Kafka")
	return kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	publisher := NewPublisher(cfg, logger)
	ledger := service.NewLedgerService(store, lock.NewKeyedMutex(), publisher, logger)

	s := &Server{
		cfg:    cfg,
		store:  store,
		ledger: ledger,
		logger: logger,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	router := mux.NewRouter()
	router.Use(middleware.Metrics())

	handler.RegisterRoutes(router,
		handler.NewAccountHandler(s.ledger, s.logger),
		handler.NewEntryHandler(s.ledger, s.logger),
	)

	router.HandleFunc("/health", s.health).Methods("GET")
	if s.cfg.Metrics.Enabled {
		router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	chain := []middleware.Middleware{
		middleware.RequestLogging(s.logger),
		middleware.ErrorHandling(s.logger),
		middleware.SecurityHeaders(),
		middleware.CORS(s.cfg.CORS.AllowedOrigins),
	}
	if s.cfg.RateLimit.RPS > 0 {
		burst := s.cfg.RateLimit.Burst
		if burst <= 0 {
			burst = int(s.cfg.RateLimit.RPS) + 1
		}
		chain = append(chain, middleware.NewRateLimiter(rate.Limit(s.cfg.RateLimit.RPS), burst).Middleware())
	}

	s.router = router
	s.handler = middleware.Chain(router, chain...)
}

// health checks database connectivity.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Health check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port string) (string, error) {
	// Create listener first to get actual port
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("port", s.port).Msg("Starting server")

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Server stopped unexpectedly")
		}
	}()

	return s.port, nil
}

// Stop drains in-flight requests, flushes queued entry events, then closes the store.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server")

	var shutdownErr error
	if s.server != nil {
		shutdownErr = s.server.Shutdown(ctx)
	}

	if err := s.ledger.Shutdown(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to flush entry events")
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to close store")
	}

	return shutdownErr
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// Handler returns the full middleware-wrapped handler for testing purposes
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Ledger exposes the engine to other entry points such as the CLI.
func (s *Server) Ledger() *service.LedgerService {
	return s.ledger
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config, logger zerolog.Logger) (*Server, string, error) {
	server, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.Server.Port)
	if err != nil {
		server.Stop(context.Background())
		return nil, "", err
	}

	return server, port, nil
}
