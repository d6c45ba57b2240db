package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"mayorsearch/internal/ratelimit"
	"mayorsearch/internal/util"
	"mayorsearch/pkg/pdftext"
	"mayorsearch/pkg/queue"
	"mayorsearch/pkg/session"
	"mayorsearch/pkg/storage"
	"mayorsearch/pkg/store"
	"mayorsearch/services/catalog/internal/app"
	"mayorsearch/services/catalog/internal/config"
	"mayorsearch/services/catalog/internal/notify"
	"mayorsearch/services/catalog/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to CATALOG_CONFIG, then config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel, cfg.LogFormat)

	var dataStore store.Store
	if cfg.MemoryStore() {
		logger.Warn("using in-memory store; data is lost on restart")
		dataStore = store.NewMemoryStore()
	} else {
		gormStore, err := store.NewGormStore(cfg.DatabaseURL, store.WithTextSearchConfig(cfg.TextSearchConfig))
		if err != nil {
			log.Fatalf("failed to init store: %v", err)
		}
		defer gormStore.Close()
		dataStore = gormStore
	}

	var objects storage.ObjectStore
	if cfg.MemoryObjects() {
		logger.Warn("using in-memory object store; uploads are lost on restart")
		objects = storage.NewMemoryStore()
	} else {
		objects, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("failed to init object store: %v", err)
		}
	}

	var redisClient *redis.Client
	var revoker session.TokenRevoker = session.NewMemoryTokenRevoker()
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer redisClient.Close()
		revoker = session.NewRedisTokenRevoker(redisClient)
	}

	sessions, err := session.NewManager(cfg.JWTSecret, revoker, session.Options{
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.JWTTTLDuration(),
		Leeway: cfg.JWTLeewayDuration(),
	})
	if err != nil {
		log.Fatalf("failed to init sessions: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var resetSender app.ResetSender = app.LogResetSender{}
	if redisClient != nil {
		resets, err := queue.NewResetQueue(queue.Config{Client: redisClient, Stream: notify.DefaultStream, Group: "catalog"})
		if err != nil {
			log.Fatalf("failed to init reset queue: %v", err)
		}
		notify.StartWorker(util.ContextWithLogger(ctx, logger), resets, 1, app.LogResetSender{})
		resetSender = notify.QueueSender{Queue: resets}
	}

	appCore, err := app.New(app.Config{
		Store:          dataStore,
		Objects:        objects,
		Sessions:       sessions,
		Extractor:      pdftext.Extractor{UsePdftotext: cfg.Pdftotext},
		ResetSender:    resetSender,
		MaxUploadBytes: cfg.MaxUploadBytes,
		PresignExpiry:  cfg.PresignExpiryDuration(),
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}
	srvCfg := server.Config{
		App:            appCore,
		CORSOrigins:    cfg.CORSOrigins,
		TrustedProxies: trusted,
	}
	if cfg.LoginRateLimit > 0 {
		limiter, err := ratelimit.NewFixedWindowLimiter(redisClient, ratelimit.DefaultPrefix, cfg.LoginRateLimit, cfg.LoginRateWindowDuration())
		if err != nil {
			log.Fatalf("failed to init login rate limiter: %v", err)
		}
		srvCfg.LoginLimiter = limiter
	}
	httpServer, err := server.New(srvCfg)
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "err", err)
		}
	}()

	logger.Info("catalog server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		return
	}
	<-drained
	logger.Info("catalog server stopped")
}
