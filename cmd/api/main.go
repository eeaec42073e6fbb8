package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"vitalsync-auth/internal/config"
	"vitalsync-auth/internal/db"
	"vitalsync-auth/internal/email"
	apihttp "vitalsync-auth/internal/http"
	"vitalsync-auth/internal/repository"
	"vitalsync-auth/internal/service"
	"vitalsync-auth/internal/sms"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	codeRepo := repository.NewPgCodeRepository(pool)
	detailRepo := repository.NewPgDetailRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	smsSender := sms.NewDisabledSender("sms sender not configured")
	if cfg.SMSAccountSID != "" {
		sender, err := sms.NewTwilioSender(cfg.SMSAccountSID, cfg.SMSAuthToken, cfg.SMSFromNumber, cfg.SMSBaseURL)
		if err != nil {
			logger.Warn("sms sender init failed", zap.Error(err))
		} else {
			smsSender = sender
		}
	}

	var (
		sendLimiter service.SendRateLimiter
		tokenStore  service.RefreshTokenStore
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			sendLimiter = service.NewRedisSendRateLimiter(redisClient, 10*time.Minute, 3)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
		}
		cancel()
	}

	tokenSvc := service.NewTokenServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)

	authSvc := service.NewAuthService(logger, userRepo)
	verifSvc := service.NewVerificationService(logger, codeRepo, userRepo, emailSender, smsSender, sendLimiter)
	fedSvc, err := service.NewFederatedService(logger, userRepo, cfg.GoogleClientID, cfg.GoogleCertsURL, cfg.GoogleServiceEmail, cfg.GoogleServiceKey)
	if err != nil {
		logger.Fatal("federated service init", zap.Error(err))
	}

	authHandler := apihttp.NewAuthHandler(logger, authSvc, tokenSvc)
	verifHandler := apihttp.NewVerificationHandler(logger, verifSvc)
	fedHandler := apihttp.NewFederatedHandler(logger, fedSvc)
	detailHandler := apihttp.NewDetailHandler(logger, detailRepo, authSvc)
	router := apihttp.NewRouter(logger, tokenSvc, authHandler, verifHandler, fedHandler, detailHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
