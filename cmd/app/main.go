package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasklist-api/internal/config"
	"github.com/BuzzLyutic/tasklist-api/internal/database"
	"github.com/BuzzLyutic/tasklist-api/internal/handler"
	"github.com/BuzzLyutic/tasklist-api/internal/identity"
	"github.com/BuzzLyutic/tasklist-api/internal/logging"
	"github.com/BuzzLyutic/tasklist-api/internal/repo"
	"github.com/BuzzLyutic/tasklist-api/internal/service"
	"github.com/BuzzLyutic/tasklist-api/internal/session"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Dev: cfg.Log.Dev})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal("Failed to connect to the Database", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("Successfully connected to the Database!")

	redisClient, err := session.NewRedisClient(ctx, session.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	revocations := session.NewRevocationStore(redisClient, cfg.Redis.Prefix)

	// Signing keys are loaded before serving; without them no request can be authenticated.
	httpClient := &http.Client{Timeout: 10 * time.Second}
	keys, err := identity.NewKeyfunc(ctx, identity.KeySetConfig{
		URL:             cfg.Auth.JWKSURL,
		RefreshInterval: cfg.Auth.RefreshInterval,
		Client:          httpClient,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to fetch JWKS", zap.String("url", cfg.Auth.JWKSURL), zap.Error(err))
	}
	if n, err := identity.KeyCount(ctx, keys); err == nil {
		logger.Info("JWKS loaded", zap.Int("keys", n))
	}

	verifier := identity.NewVerifier(keys.Keyfunc, identity.VerifierConfig{
		Issuer:        cfg.Auth.Issuer,
		ClientID:      cfg.Auth.ClientID,
		UsernameClaim: cfg.Auth.UsernameClaim,
		Leeway:        30 * time.Second,
	})
	provider := identity.NewProvider(identity.ProviderConfig{
		Issuer:       cfg.Auth.Issuer,
		JWKSURL:      cfg.Auth.JWKSURL,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		AuthURL:      cfg.Auth.AuthURL,
		TokenURL:     cfg.Auth.TokenURL,
		UserInfoURL:  cfg.Auth.UserInfoURL,
		RevokeURL:    cfg.Auth.RevokeURL,
		RedirectURL:  cfg.Auth.RedirectURL,
	}, httpClient)

	userRepo := repo.NewUserRepo(pool)
	taskRepo := repo.NewTaskRepo(pool)

	router := handler.NewRouter(handler.RouterDeps{
		Tasks:          service.NewTaskService(taskRepo, userRepo),
		Auth:           service.NewAuthService(userRepo, provider, revocations, logger),
		Verifier:       verifier,
		Revocations:    revocations,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		Checks: map[string]handler.Pinger{
			"database": pool,
			"redis":    revocations,
		},
	})

	srv := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("Server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
	logger.Info("Server stopped successfully!")
}
