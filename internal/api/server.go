package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/secretbox-core/internal/bridge"
	"github.com/nerrad567/secretbox-core/internal/chain"
	"github.com/nerrad567/secretbox-core/internal/infrastructure/config"
	"github.com/nerrad567/secretbox-core/internal/infrastructure/logging"
	"github.com/nerrad567/secretbox-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/secretbox-core/internal/pin"
	"github.com/nerrad567/secretbox-core/internal/show"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Engine is the chain engine surface the API reads and steps.
type Engine interface {
	Snapshots() []chain.Snapshot
	Snapshot(name string) (chain.Snapshot, error)
	Pins() []pin.Snapshot
	AdvancePin(id int) (pin.Snapshot, time.Duration, error)
	Stats() chain.Stats
}

// Commander applies chain control verbs and raw command frames. The bridge
// implements it so HTTP and MQTT share one code path.
type Commander interface {
	HandleFrame(frame []byte) (bridge.Result, error)
	Control(name, op string) error
}

// LinkStatus reports the state of the MQTT broker link.
type LinkStatus interface {
	Stats() mqtt.LinkStats
}

// DBStatter exposes connection pool statistics.
type DBStatter interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Engine   Engine
	Commands Commander
	// Optional.
	Runs    show.Repository
	Metrics http.Handler
	MQTT    LinkStatus
	DB      DBStatter
	Version string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware and WebSocket hub. The
// hub exists from New so it can be registered as an engine observer before
// Start.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	engine    Engine
	commands  Commander
	runs      show.Repository
	metrics   http.Handler
	mqtt      LinkStatus
	db        DBStatter
	version   string
	startTime time.Time
	server    *http.Server
	hub       *Hub
	tickets   *ticketStore
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if deps.Commands == nil {
		return nil, fmt.Errorf("commander is required")
	}

	logger := deps.Logger.Component("api")
	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    logger,
		engine:    deps.Engine,
		commands:  deps.Commands,
		runs:      deps.Runs,
		metrics:   deps.Metrics,
		mqtt:      deps.MQTT,
		db:        deps.DB,
		version:   deps.Version,
		startTime: time.Now(),
		hub:       NewHub(logger),
		tickets:   newTicketStore(),
	}, nil
}

// Hub returns the WebSocket hub. Register it with the engine to stream
// chain events.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	go s.cleanTicketsLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
