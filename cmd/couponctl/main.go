// Command couponctl signs into the coupon admin identity API and shows what
// the console would let the current user see.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/99minutos/coupon-admin/internal/console"
	"github.com/99minutos/coupon-admin/internal/core/ports"
	"github.com/99minutos/coupon-admin/internal/infrastructure/apiclient"
	"github.com/99minutos/coupon-admin/internal/infrastructure/config"
	redisstore "github.com/99minutos/coupon-admin/internal/infrastructure/db/redis"
	"github.com/99minutos/coupon-admin/internal/infrastructure/tokenstore"
	"github.com/99minutos/coupon-admin/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, zerolog.Nop())
	if err != nil {
		fmt.Fprintln(os.Stderr, "couponctl:", err)
		stop()
		os.Exit(2)
	}
	logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Output: os.Stderr})
	log := logger.Named("couponctl")

	tokens, closeTokens := openTokenStore(cfg)

	client, err := apiclient.New(apiclient.Options{
		BaseURL:       cfg.APIURL,
		Timeout:       cfg.FetchTimeout,
		ForwardedUser: cfg.ForwardedUser,
	}, logger.Named("apiclient"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "couponctl:", err)
		closeTokens()
		stop()
		os.Exit(2)
	}

	a := &app{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
	a.console = console.New(console.Options{
		Tokens:       tokens,
		API:          client,
		Navigator:    &printNavigator{w: os.Stderr, log: log},
		FetchTimeout: cfg.FetchTimeout,
		Log:          log,
	})

	code := a.run(ctx, os.Args[1:])
	closeTokens()
	stop()
	os.Exit(code)
}

func openTokenStore(cfg *config.Config) (ports.TokenStore, func()) {
	switch cfg.Token.Backend {
	case config.BackendMemory:
		return tokenstore.NewMemory(), func() {}
	case config.BackendRedis:
		client := redisstore.NewClient(redisstore.Config{Addr: cfg.Token.RedisAddr, DB: cfg.Token.RedisDB})
		return tokenstore.NewRedis(client, cfg.Token.Profile, cfg.Token.TTL, logger.Named("tokenstore")), func() { _ = client.Close() }
	default:
		path := cfg.Token.File
		if path == "" {
			path = tokenstore.DefaultPath()
		}
		return tokenstore.NewFile(path, logger.Named("tokenstore")), func() {}
	}
}
