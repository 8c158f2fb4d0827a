// Package app assembles the treasury server: storage, custody, event bus,
// service, and the HTTP surface with metrics and health endpoints.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hearthvault/hearthvault/internal/platform/authtoken"
	treasuryhttp "github.com/hearthvault/hearthvault/internal/treasury/api/http"
	"github.com/hearthvault/hearthvault/internal/treasury/custody"
	"github.com/hearthvault/hearthvault/internal/treasury/ledger"
	"github.com/hearthvault/hearthvault/internal/treasury/notify"
	"github.com/hearthvault/hearthvault/internal/treasury/service"
	"github.com/hearthvault/hearthvault/internal/treasury/storage/sqlite"
)

const shutdownTimeout = 10 * time.Second

// Config holds server assembly options.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string
	// DBPath locates the SQLite file. Empty means a file under the
	// user data directory.
	DBPath string
	// WithdrawPolicy selects claim ordering; defaults to after-transfer.
	WithdrawPolicy service.WithdrawPolicy
	// Logger receives structured server logs. Nil means slog.Default.
	Logger *slog.Logger
}

// Server hosts the treasury service over HTTP.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *sqlite.Store
	bus        *notify.Bus
	logger     *slog.Logger
}

// New creates a configured treasury server listening on cfg.Addr.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	verifier, err := authtoken.LoadVerifierConfigFromEnv(time.Now)
	if err != nil {
		return nil, err
	}

	dbPath, err := resolveDBPath(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, err
	}

	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = ":8080"
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	bus := notify.NewBus(registry, logger)
	mem := ledger.NewMemory()
	vault := custody.NewVault(mem)
	svc := service.New(store, vault, bus,
		service.WithWithdrawPolicy(cfg.WithdrawPolicy),
		service.WithLogger(logger),
	)

	mux := http.NewServeMux()
	treasuryhttp.NewHandler(svc, verifier, logger).Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		listener:   listener,
		httpServer: &http.Server{Handler: treasuryhttp.WithTelemetry(logger, mux)},
		store:      store,
		bus:        bus,
		logger:     logger,
	}, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a treasury server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve blocks until the server stops or the context ends, then shuts the
// HTTP surface, event bus, and store down in order.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.logger.Info("treasury server listening", "addr", s.Addr())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case err := <-serveErr:
		s.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		s.close()
		<-serveErr
		return err
	}
}

func (s *Server) close() {
	s.bus.Stop()
	if err := s.store.Close(); err != nil {
		s.logger.Error("close store", "error", err)
	}
}

func resolveDBPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path != "" {
		return path, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve data dir: %w", err)
	}
	dir := filepath.Join(base, "hearthvault")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return filepath.Join(dir, "treasury.db"), nil
}
