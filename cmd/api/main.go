// @title           Coupon Admin Identity API
// @version         1.0
// @description     Login, Windows identity and current-user endpoints for the coupon admin console.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	_ "github.com/99minutos/coupon-admin/docs"
	"github.com/99minutos/coupon-admin/internal/api"
	"github.com/99minutos/coupon-admin/internal/api/handler"
	"github.com/99minutos/coupon-admin/internal/api/metrics"
	"github.com/99minutos/coupon-admin/internal/core/domain"
	"github.com/99minutos/coupon-admin/internal/core/ports"
	"github.com/99minutos/coupon-admin/internal/core/service"
	"github.com/99minutos/coupon-admin/internal/infrastructure/db/memory"
	mongostore "github.com/99minutos/coupon-admin/internal/infrastructure/db/mongo"
	redisstore "github.com/99minutos/coupon-admin/internal/infrastructure/db/redis"
	"github.com/99minutos/coupon-admin/internal/infrastructure/http/handlers"
	"github.com/99minutos/coupon-admin/internal/infrastructure/queue"
	"github.com/99minutos/coupon-admin/internal/pkg/config"
	"github.com/99minutos/coupon-admin/pkg/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "coupon-admin-api",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open stores")
	}
	defer st.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	authMetrics := metrics.NewAuth(reg)

	audit := service.NewAuditService(st.events, logger.Named("audit"))
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, audit, logger.Named("dispatcher"))
	dispatcher.OnDrop = func(domain.AuthEvent) { authMetrics.AuditDroppedTotal.Inc() }
	dispatcher.Start(context.Background())

	issuer := service.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	authService := service.NewAuthService(st.users, st.cache, issuer, dispatcher, service.AuthOptions{
		WindowsEmailDomain: cfg.Windows.EmailDomain,
		WindowsAdminUsers:  cfg.Windows.AdminUsers,
	}, logger.Named("auth"))

	router := api.NewRouter(api.Deps{
		Auth:     authService,
		Tokens:   issuer,
		Windows:  handler.WindowsOptions{NativeFallback: cfg.Windows.NativeFallback},
		Log:      logger.Named("http"),
		Registry: reg,
		Ready:    st.ready,
		Metrics:  authMetrics,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("user_store", cfg.UserStore).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	// Events still queued at the drain deadline are counted as dropped.
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelDrain()
	if err := dispatcher.Shutdown(drainCtx); err != nil {
		log.Warn().Err(err).Msg("audit queue not fully drained")
	}
	log.Info().Int64("audit_dropped", dispatcher.Dropped()).Msg("shutdown complete")
}

type stores struct {
	users  ports.UserRepository
	events ports.AuthEventRepository
	cache  ports.UserCache
	ready  map[string]handlers.Pinger
	close  func()
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	if cfg.UserStore == "memory" {
		log.Warn().Msg("using in-memory user store, data is lost on restart")
		return &stores{
			users:  memory.NewUserRepository(),
			events: memory.NewEventRepository(),
			ready:  map[string]handlers.Pinger{},
			close:  func() {},
		}, nil
	}

	client, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "coupon-admin-api",
	})
	if err != nil {
		return nil, err
	}
	users := mongostore.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &stores{
		users:  users,
		events: mongostore.NewEventRepository(db),
		cache:  redisstore.NewUserCache(rdb, cfg.Redis.UserCacheTTL),
		ready: map[string]handlers.Pinger{
			"mongodb": mongostore.Pinger{Client: client},
			"redis":   redisstore.Pinger{Client: rdb},
		},
		close: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				log.Error().Err(err).Msg("mongo disconnect failed")
			}
			if err := rdb.Close(); err != nil {
				log.Error().Err(err).Msg("redis close failed")
			}
		},
	}, nil
}
