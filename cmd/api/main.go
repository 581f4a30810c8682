package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"incubator-platform/internal/audit"
	"incubator-platform/internal/auth"
	"incubator-platform/internal/config"
	"incubator-platform/internal/httpapi"
	"incubator-platform/internal/identity"
	"incubator-platform/internal/incubation"
	"incubator-platform/pkg/logger"
	"incubator-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	codec, err := auth.NewCodec(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// logs references users, so the identity schema goes first.
	identityRepo := identity.NewPostgresRepo(db)
	auditRepo := audit.NewPostgresRepo(db)
	incubationRepo := incubation.NewPostgresRepo(db)
	if err := ensureSchemas(rootCtx, identityRepo.EnsureSchema, auditRepo.EnsureSchema, incubationRepo.EnsureSchema); err != nil {
		log.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	identityCache := identity.NewRedisCache(rdb, cfg.Auth.IdentityCacheTTL)
	identitySvc := identity.NewService(identityRepo, identityCache)
	resolver := identity.NewResolver(identityRepo, identityCache)
	gate := auth.NewGate(codec, resolver)

	auditSvc := audit.NewService(auditRepo, cfg.Audit.WriteTimeout)
	pipe := audit.NewPipeline(auditSvc)

	h := httpapi.Handlers{
		Identity:   identitySvc,
		Codec:      codec,
		Audit:      auditSvc,
		Incubation: incubation.NewService(incubationRepo),
		DB:         db,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	registerRoutes(r, h, gate, pipe)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

func ensureSchemas(ctx context.Context, steps ...func(context.Context) error) error {
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}
