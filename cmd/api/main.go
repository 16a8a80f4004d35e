package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/httpapi"
	memgrouprepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/memory/grouprepo"
	memsessionrepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/memory/sessionrepo"
	memuserrepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/memory/userrepo"
	postgres "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/postgres"
	pggrouprepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/postgres/grouprepo"
	pgsessionrepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/postgres/sessionrepo"
	pguserrepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/postgres/userrepo"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/app/groups"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/app/sessions"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/app/users"
	platformclock "github.com/Roll-Call-Gaming/roll-call-api/internal/platform/clock"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/platform/config"
	grouprepoport "github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/grouprepo"
	sessionrepoport "github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/sessionrepo"
	userrepoport "github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/userrepo"
	"github.com/Roll-Call-Gaming/roll-call-api/pkg/logging"
)

func main() {
	seed := flag.Bool("seed", false, "seed sample users, groups and sessions on startup")
	flag.Parse()

	// Local dev convenience; a missing .env is not an error.
	_ = godotenv.Load()
	logging.Setup()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var (
		userRepo    userrepoport.Repository
		groupRepo   grouprepoport.Repository
		sessionRepo sessionrepoport.Repository
		cleanup     func()
	)

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			slog.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		cleanup = pool.Close
		if err := postgres.Migrate(context.Background(), pool); err != nil {
			slog.Error("postgres migrate failed", "error", err)
			pool.Close()
			os.Exit(1)
		}
		userRepo = pguserrepo.NewRepo(pool)
		groupRepo = pggrouprepo.NewRepo(pool)
		sessionRepo = pgsessionrepo.NewRepo(pool)
	default:
		memUsers := memuserrepo.NewRepo()
		userRepo = memUsers
		groupRepo = memgrouprepo.NewRepo(memUsers)
		sessionRepo = memsessionrepo.NewRepo()
	}
	if cleanup != nil {
		defer cleanup()
	}

	clk := platformclock.NewSystemClock()
	userSvc := users.NewService(userRepo, clk)
	groupSvc := groups.NewService(groupRepo, userRepo, clk)
	sessionSvc := sessions.NewService(sessionRepo, groupRepo, clk)

	if *seed {
		if err := seedSampleData(context.Background(), userSvc, groupSvc, sessionSvc); err != nil {
			slog.Error("seeding failed", "error", err)
			os.Exit(1)
		}
		slog.Info("sample data seeded")
	}

	api := httpapi.NewServer(userSvc, groupSvc, sessionSvc, slog.Default())
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(api),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("api listening", "addr", cfg.Addr, "backend", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
