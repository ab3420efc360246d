package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"medcase/internal/config"
	"medcase/internal/db"
	"medcase/internal/domain"
	apihttp "medcase/internal/http"
	"medcase/internal/llm"
	"medcase/internal/seed"
	"medcase/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	var logger *zap.Logger
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	store, closeStore, err := db.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer closeStore()

	if _, err := seed.Cases(ctx, store.Cases, cfg.SeedFile, logger); err != nil {
		logger.Fatal("seed cases", zap.Error(err))
	}
	userSvc := service.NewUserService(logger, store.Users)
	defaultUser, err := userSvc.EnsureDefault(ctx)
	if err != nil {
		logger.Fatal("default user", zap.Error(err))
	}

	var (
		statsCache = service.NewNoopStatsCache()
		tokenStore service.RefreshTokenStore
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			statsCache = service.NewRedisStatsCache(redisClient, cfg.StatsCacheTTL)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
		}
		cancel()
	}

	llmClient, err := llm.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("llm client", zap.Error(err))
	}
	if llmClient == nil {
		logger.Info("no llm provider configured, using rule-based patient and feedback")
	}

	jwtSvc := service.NewJWTService(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)
	if !jwtSvc.Enabled() {
		logger.Warn("jwt secret not configured, all requests use the default user")
	}

	scheduler := service.NewReplyScheduler(logger, cfg.ReplyDelay)
	responder := service.NewPatientResponder(logger, llmClient)
	caseSvc := service.NewCaseService(logger, store.Cases, store.Completions)
	chatSvc := service.NewChatService(logger, store, scheduler, responder)
	statsSvc := service.NewStatsService(logger, store.Completions, statsCache)
	completionSvc := service.NewCompletionService(logger, store, chatSvc, statsSvc)
	feedbackSvc := service.NewFeedbackService(logger, llmClient, store, completionSvc)

	router := apihttp.NewRouter(
		logger,
		cfg.CORSAllowedOrigins,
		apihttp.IdentityMiddleware(jwtSvc, domain.UserContext{UserID: defaultUser.ID, Username: defaultUser.Username}),
		apihttp.NewCaseHandler(logger, caseSvc),
		apihttp.NewChatHandler(logger, chatSvc),
		apihttp.NewCompletionHandler(logger, completionSvc, statsSvc),
		apihttp.NewFeedbackHandler(logger, feedbackSvc),
		apihttp.NewUserHandler(logger, userSvc, jwtSvc),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := scheduler.Shutdown(shutdownCtx); err != nil {
		logger.Error("reply scheduler shutdown", zap.Error(err))
	}
}
