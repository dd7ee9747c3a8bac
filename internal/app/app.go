// Package app wires configuration, logging, storage, authentication and
// routing together and runs the HTTP and optional gRPC servers with
// graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/essayshare/internal/auth"
	"github.com/patric-chuzhbe/essayshare/internal/config"
	"github.com/patric-chuzhbe/essayshare/internal/db/jsondb"
	"github.com/patric-chuzhbe/essayshare/internal/db/memorystorage"
	"github.com/patric-chuzhbe/essayshare/internal/db/postgresdb"
	"github.com/patric-chuzhbe/essayshare/internal/db/sqlitedb"
	"github.com/patric-chuzhbe/essayshare/internal/essay"
	"github.com/patric-chuzhbe/essayshare/internal/grpcserver"
	"github.com/patric-chuzhbe/essayshare/internal/ipchecker"
	"github.com/patric-chuzhbe/essayshare/internal/logger"
	"github.com/patric-chuzhbe/essayshare/internal/models"
	"github.com/patric-chuzhbe/essayshare/internal/password"
	"github.com/patric-chuzhbe/essayshare/internal/router"
	"github.com/patric-chuzhbe/essayshare/internal/service"
	"github.com/patric-chuzhbe/essayshare/internal/user"
)

const shutdownTimeout = 10 * time.Second

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) (*user.User, error)

	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
}

type essayKeeper interface {
	CreateEssay(ctx context.Context, e *essay.Essay) (*essay.Essay, error)

	GetEssay(ctx context.Context, id int64) (*essay.Essay, error)

	ListPublicEssays(ctx context.Context) ([]essay.Essay, error)

	ListEssaysByOwner(ctx context.Context, userID int64) ([]essay.Essay, error)

	UpdateEssay(ctx context.Context, id int64, fields essay.Fields) (*essay.Essay, error)

	DeleteEssay(ctx context.Context, id int64) error

	GetEssayOwner(ctx context.Context, id int64) (*int64, error)
}

type statsKeeper interface {
	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfEssays(ctx context.Context) (int64, error)
}

type storage interface {
	userKeeper
	essayKeeper
	statsKeeper
	Ping(ctx context.Context) error
	Close() error
}

// App holds everything needed to serve the essay API.
type App struct {
	cfg         *config.Config
	db          storage
	httpHandler http.Handler

	// grpcServer is nil when no gRPC address is configured.
	grpcServer *grpc.Server
}

// New loads the configuration, initializes the logger, opens the selected
// storage and builds the router.
func New(configOptions ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(configOptions...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	checker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("in internal/app/app.go/New(): error while `ipchecker.New()` calling: %w", err)
	}

	verifier := auth.NewVerifier([]byte(app.cfg.JWTSecret), app.cfg.TokenTTL)

	svc := service.New(app.db, password.New(app.cfg.BcryptCost), verifier)

	app.httpHandler = router.New(
		svc,
		verifier,
		checker,
		router.WithGzip(app.cfg.EnableGzip),
	)

	if app.cfg.GRPCAddr != "" {
		app.grpcServer = grpcserver.NewServer(grpcserver.NewEssayHandler(svc), verifier, checker)
	}

	return app, nil
}

// Handler exposes the routed API, mostly for tests.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run serves HTTP until SIGINT or SIGTERM, then drains in-flight requests
// and closes the storage.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 2)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	if a.grpcServer != nil {
		lis, err := net.Listen("tcp", a.cfg.GRPCAddr)
		if err != nil {
			_ = server.Close()
			_ = a.db.Close()
			return fmt.Errorf("in internal/app/app.go/Run(): error while `net.Listen()` calling: %w", err)
		}

		logger.Log.Infoln("gRPC server running", "GRPCAddr", a.cfg.GRPCAddr)
		go func() {
			serverErrCh <- a.grpcServer.Serve(lis)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing storage and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if a.grpcServer != nil {
			a.grpcServer.GracefulStop()
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			_ = a.db.Close()
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		if a.grpcServer != nil {
			a.grpcServer.Stop()
		}
		_ = server.Close()
		_ = a.db.Close()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// Close flushes the logger.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Fprintln(os.Stderr, "Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.SQLitePath != "" {
		return models.StorageTypeSQLite
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		logger.Log.Infoln("using PostgreSQL storage")
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeSQLite:
		logger.Log.Infoln("using SQLite storage", "path", cfg.SQLitePath)
		return sqlitedb.New(context.Background(), cfg.SQLitePath)

	case models.StorageTypeFile:
		logger.Log.Infoln("using JSON file storage", "path", cfg.DBFileName)
		return jsondb.New(cfg.DBFileName)
	}

	logger.Log.Infoln("using in-memory storage")
	return memorystorage.New()
}
