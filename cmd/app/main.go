package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading-signal-console/internal/config"
	pg "trading-signal-console/internal/infra/db/postgres"
	"trading-signal-console/internal/infra/logging"
	"trading-signal-console/internal/infra/metrics"
	red "trading-signal-console/internal/infra/redis"
	"trading-signal-console/internal/infra/web"
	"trading-signal-console/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, insecure cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	keyRepo := pg.NewActivationKeyRepo(pool)
	groupRepo := pg.NewGroupRepoCacheDecorator(pg.NewGroupRepo(pool), redisClient, cfg.Redis.TTL)
	principalRepo := pg.NewPrincipalRepo(pool)
	auditRepo := pg.NewGrantAuditRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Use cases ----
	issuerUC := usecase.NewKeyIssuerUseCase(keyRepo, tm, logger)
	keyAdminUC := usecase.NewKeyAdminUseCase(keyRepo, auditRepo, tm, logger)
	redeemerUC := usecase.NewKeyRedeemerUseCase(keyRepo, principalRepo, auditRepo, tm, locker, logger)
	groupUC := usecase.NewGroupUseCase(groupRepo, principalRepo, tm, logger)
	accessUC := usecase.NewAccessUseCase(principalRepo, groupRepo, logger)

	// ---- Metrics ----
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Auth.HMACSecret, cfg.Auth.SecureCookie && !cfg.Runtime.Dev, cfg.Auth.CookieDomain, cfg.Auth.SessionTTL)
	server := web.NewServer(
		issuerUC, keyAdminUC, redeemerUC, groupUC, accessUC,
		auth, rateLimiter,
		web.RedeemLimit{Attempts: cfg.Redeem.RateLimit, Window: cfg.Redeem.RateLimitWindow},
		logger,
	)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Router(),
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
