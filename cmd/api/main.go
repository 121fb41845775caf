package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Auth-Wave/authwave-backend/internal/account"
	"github.com/Auth-Wave/authwave-backend/internal/config"
	"github.com/Auth-Wave/authwave-backend/internal/httpapi"
	"github.com/Auth-Wave/authwave-backend/internal/lifecycle"
	"github.com/Auth-Wave/authwave-backend/internal/obs"
	"github.com/Auth-Wave/authwave-backend/internal/project"
	"github.com/Auth-Wave/authwave-backend/internal/seclog"
	"github.com/Auth-Wave/authwave-backend/internal/session"
	"github.com/Auth-Wave/authwave-backend/internal/store/pg"
	"github.com/Auth-Wave/authwave-backend/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Stores: Postgres when a DSN is configured, in-memory otherwise.
	// In-memory mode loses all state on restart and exists for local
	// development and tests.
	var (
		db        *sql.DB
		admins    account.AdminStore
		users     account.UserStore
		projStore project.Store
		sessStore session.Store
		logStore  seclog.Store
	)
	if cfg.PGDSN != "" {
		store, err := pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()
		db = store.DB()
		admins = store.Admins()
		users = store.Users()
		projStore = store.Projects()
		sessStore = store.Sessions()
		logStore = store.SecurityLogs()
	} else {
		log.Println("AUTHWAVE_PG_DSN not set, using in-memory stores")
		admins = account.NewInMemoryAdmins()
		users = account.NewInMemoryUsers()
		projStore = project.NewInMemory()
		sessStore = session.NewInMemory()
		logStore = seclog.NewInMemory()
	}

	registry, err := project.NewRegistry(projStore, []byte(cfg.KeySecret))
	if err != nil {
		log.Fatalf("project registry: %v", err)
	}
	sessions, err := session.NewManager(sessStore, registry, []byte(cfg.TokenSecret), cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		log.Fatalf("session manager: %v", err)
	}
	events := stream.New()
	logs, err := seclog.NewService(logStore, seclog.WithPublisher(events.Publish))
	if err != nil {
		log.Fatalf("security log: %v", err)
	}
	accounts, err := account.NewService(admins, users, registry, logs)
	if err != nil {
		log.Fatalf("accounts: %v", err)
	}
	orch, err := lifecycle.New(admins, users, projStore, sessStore, logs)
	if err != nil {
		log.Fatalf("lifecycle: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		ReadyProbe:   httpapi.ReadyProbe{DB: db},
		Version:      version,
		Accounts:     accounts,
		Projects:     registry,
		Sessions:     sessions,
		Logs:         logs,
		Lifecycle:    orch,
		Stream:       events,
		InactiveDays: cfg.InactiveUserDays,
	})

	handler := api.Handler()
	handler = httpapi.RateLimit(handler, cfg.RateLimitBurst, cfg.RateLimitPerSecond)
	handler = httpapi.MaxBodyBytes(handler, 1<<20)
	handler = httpapi.CORS(handler)
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.Logging(handler)
	handler = httpapi.RequestID(handler)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// gRPC health endpoint for infra probes.
	grpcSrv := httpapi.NewGRPCServer(httpapi.ReadyProbe{DB: db})
	go func() {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		if err := grpcSrv.Serve(ctx, lis); err != nil {
			log.Printf("grpc server: %v", err)
		}
	}()

	log.Printf("Starting authwave-api %s on %s (grpc %s)", version, srv.Addr, cfg.GRPCAddr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Println("Stopped")
}
