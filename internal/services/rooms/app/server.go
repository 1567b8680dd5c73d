// Package server hosts the rooms HTTP API and the gRPC room service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	platformgrpc "github.com/louisbranch/classroom.space/internal/platform/grpc"
	"github.com/louisbranch/classroom.space/internal/platform/timeouts"
	roomsgrpc "github.com/louisbranch/classroom.space/internal/services/rooms/api/grpc"
	httpapi "github.com/louisbranch/classroom.space/internal/services/rooms/api/http"
	"github.com/louisbranch/classroom.space/internal/services/rooms/identity"
	"github.com/louisbranch/classroom.space/internal/services/rooms/seed"
	"github.com/louisbranch/classroom.space/internal/services/rooms/service"
	roomsqlite "github.com/louisbranch/classroom.space/internal/services/rooms/storage/sqlite"
	"golang.org/x/sync/errgroup"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// HealthService is the gRPC health service name reported while serving.
const HealthService = "classroom.rooms"

// Config defines the inputs for the rooms process.
type Config struct {
	HTTPAddr          string
	GRPCAddr          string
	DBPath            string
	Seed              bool
	Token             identity.Config
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	StoreOpenTimeout  time.Duration
}

// Server hosts the rooms process.
type Server struct {
	httpListener    net.Listener
	grpcListener    net.Listener
	httpServer      *http.Server
	grpcServer      *gogrpc.Server
	health          *health.Server
	store           *roomsqlite.Store
	shutdownTimeout time.Duration
}

// NewServer opens the store, seeds it when asked, and binds both listeners.
func NewServer(ctx context.Context, config Config) (*Server, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	grpcAddr := strings.TrimSpace(config.GRPCAddr)
	if grpcAddr == "" {
		return nil, errors.New("grpc address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}
	if config.StoreOpenTimeout <= 0 {
		config.StoreOpenTimeout = timeouts.StoreOpen
	}

	verifier, err := identity.NewVerifier(config.Token)
	if err != nil {
		return nil, fmt.Errorf("token verifier: %w", err)
	}

	store, err := openStore(ctx, config.DBPath, config.StoreOpenTimeout)
	if err != nil {
		return nil, err
	}
	if config.Seed {
		if err := seedStore(ctx, store); err != nil {
			closeStore(store)
			return nil, err
		}
	}

	svc, err := service.New(store)
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("init rooms service: %w", err)
	}
	handler, err := httpapi.NewHandler(svc, verifier)
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("init rooms handler: %w", err)
	}
	roomServer, err := roomsgrpc.NewServer(svc, verifier)
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("init rooms gRPC service: %w", err)
	}

	httpListener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("listen on http addr %s: %w", httpAddr, err)
	}
	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		_ = httpListener.Close()
		closeStore(store)
		return nil, fmt.Errorf("listen on grpc addr %s: %w", grpcAddr, err)
	}

	grpcServer := platformgrpc.NewServer()
	roomsgrpc.Register(grpcServer, roomServer)
	healthServer := platformgrpc.RegisterHealth(grpcServer, HealthService, roomsgrpc.ServiceName)

	return &Server{
		httpListener: httpListener,
		grpcListener: grpcListener,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: config.ReadHeaderTimeout,
		},
		grpcServer:      grpcServer,
		health:          healthServer,
		store:           store,
		shutdownTimeout: config.ShutdownTimeout,
	}, nil
}

// Run creates and serves a rooms server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(ctx, config)
	if err != nil {
		return fmt.Errorf("init rooms server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve rooms: %w", err)
	}
	return nil
}

// HTTPAddr returns the bound HTTP listener address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the bound gRPC listener address.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// ListenAndServe serves HTTP and gRPC until the context ends or either
// server fails. Either failure stops the other.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("rooms server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	group, groupCtx := errgroup.WithContext(ctx)
	log.Printf("rooms HTTP server listening on %s", s.HTTPAddr())
	group.Go(func() error {
		if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	log.Printf("rooms gRPC server listening on %s", s.GRPCAddr())
	group.Go(func() error {
		if err := s.grpcServer.Serve(s.grpcListener); err != nil && !errors.Is(err, gogrpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		return s.shutdown()
	})
	return group.Wait()
}

func (s *Server) shutdown() error {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	closeStore(s.store)
	s.store = nil
}

// openStore retries while another process holds the database lock.
func openStore(ctx context.Context, path string, maxWait time.Duration) (*roomsqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join("data", "rooms.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := backoff.Retry(ctx, func() (*roomsqlite.Store, error) {
		store, err := roomsqlite.Open(path)
		if err != nil {
			if roomsqlite.IsBusy(err) {
				log.Printf("rooms store busy, retrying: %v", err)
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return store, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(maxWait))
	if err != nil {
		return nil, fmt.Errorf("open rooms sqlite store: %w", err)
	}
	return store, nil
}

func seedStore(ctx context.Context, store *roomsqlite.Store) error {
	fixtures, err := seed.LoadFixtures()
	if err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}
	seeder, err := seed.New(store, fixtures)
	if err != nil {
		return err
	}
	if _, err := seeder.SeedIfEmpty(ctx); err != nil {
		return err
	}
	return nil
}

func closeStore(store *roomsqlite.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		log.Printf("close rooms store: %v", err)
	}
}
