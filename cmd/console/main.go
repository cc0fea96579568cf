package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"agent-console/config"
	"agent-console/internal/api"
	"agent-console/internal/auth"
	"agent-console/internal/dispatch"
	"agent-console/internal/engine"
	"agent-console/internal/lookup"
	"agent-console/internal/retry"
	"agent-console/internal/store"
	"agent-console/internal/transport"
	"agent-console/internal/upload"
	"agent-console/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	logg := logger.New(cfg.AppMode)
	logger.SetGlobalLogger(logg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AccessToken == "" {
		log.Fatal("ACCESS_TOKEN is required")
	}
	claims, err := auth.ParseToken(cfg.AccessToken, cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Failed to parse access token: %v", err)
	}
	staff := claims.Config()
	logg.Infof("console starting for staff %d (%s)", staff.StaffID, staff.NickName)

	// Backend query client, optionally fronted by the Redis profile cache.
	var svc lookup.Service = lookup.NewClient(cfg.GraphQLURL, cfg.AccessToken)
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logg.Warnf("redis unavailable, lookups uncached: %v", err)
		} else {
			svc = lookup.NewCachedService(svc, rdb, cfg.ProfileTTL)
		}
	}

	var uploads *upload.Store
	if cfg.S3Bucket != "" {
		uploads, err = upload.NewStore(ctx, upload.Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
		})
		if err != nil {
			log.Fatalf("Failed to init attachment storage: %v", err)
		}
	}

	sock, err := transport.Dial(ctx, cfg.SocketURL, cfg.AccessToken, logg)
	if err != nil {
		log.Fatalf("Failed to connect socket: %v", err)
	}

	adapter := transport.NewAdapter(sock, cfg.SendTimeout, logg)
	policy := retry.NewPolicy(cfg.SendMaxAttempts, cfg.SendRetryBase)

	eng := engine.New(ctx, staff, adapter, policy, store.New(), svc, dispatch.NewBus(), logg)
	eng.Bind(sock)

	go sock.WriteLoop(ctx)
	go sock.ReadLoop(ctx)

	if err := eng.Register(ctx); err != nil {
		log.Fatalf("Failed to register on socket: %v", err)
	}
	logg.Infof("registered on %s", cfg.SocketURL)

	handler := api.NewHandler(eng, uploads)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.APIPort),
		Handler: api.NewRouter(handler),
	}

	go func() {
		logg.Infof("facade listening on port %s", cfg.APIPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logg.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Errorf("server shutdown: %v", err)
	}
	eng.Close()
}
