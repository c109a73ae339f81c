package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"user-service/internal/config"
	"user-service/internal/db"
	"user-service/internal/email"
	"user-service/internal/repository"
	"user-service/internal/service"
)

func main() {
	username := flag.String("username", "testuser", "username of the demo account")
	emailAddr := flag.String("email", "test.user@example.com", "email of the demo account")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(context.Background(), cfg, logger, *username, *emailAddr); err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, username, emailAddr string) error {
	users, limiter, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	svc := service.NewUserService(logger, users, newSender(cfg, logger), limiter)
	u, err := svc.Register(ctx, service.RegisterInput{
		FirstName: "Test",
		LastName:  "User",
		Email:     emailAddr,
		Username:  username,
		Password:  "changeme",
		Addresses: []service.AddressInput{{FullAddress: "1 Main St", PostalCode: "10001", City: "New York"}},
	})
	if err != nil {
		return fmt.Errorf("register %q: %w", username, err)
	}
	_, err = svc.AttachVerificationToken(ctx, username, "", time.Now().Add(24*time.Hour))
	switch {
	case errors.Is(err, service.ErrEmailSendFailure):
		logger.Warn("verification token stored but not mailed", zap.String("username", username))
	case err != nil:
		return fmt.Errorf("attach token: %w", err)
	}

	loaded, err := svc.GetUser(ctx, *u.UserID)
	if err != nil {
		return err
	}
	fmt.Println(loaded)
	fmt.Println(loaded.Credential)
	for _, a := range loaded.Addresses {
		fmt.Println(a)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(loaded)
}

func newSender(cfg *config.Config, logger *zap.Logger) email.Sender {
	fallback := email.NewDisabledSender("smtp not configured")
	if cfg.SMTPHost == "" {
		return fallback
	}
	sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
	if err != nil {
		logger.Warn("smtp sender init failed", zap.Error(err))
		return fallback
	}
	return sender
}

// openRepository selects the storage backend. Token rate limits are shared
// through redis when that backend is active and kept in process otherwise.
func openRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.UserRepository, service.TokenRateLimiter, func(), error) {
	localLimiter := service.NewTokenRateLimiter(cfg.TokenRateWindow, cfg.TokenRateMax)

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("db connect: %w", err)
		}
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := db.Ping(ctxPing, pool); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("db ping: %w", err)
		}
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		logger.Info("using postgres storage")
		return repository.NewPgUserRepository(pool), localLimiter, pool.Close, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(ctxPing).Err(); err != nil {
			client.Close()
			return nil, nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		logger.Info("using redis storage", zap.String("addr", cfg.RedisAddr))
		limiter := service.NewRedisTokenRateLimiter(client, logger, cfg.RedisKeyPrefix, cfg.TokenRateWindow, cfg.TokenRateMax)
		return repository.NewRedisUserRepository(client, cfg.RedisKeyPrefix), limiter, func() { client.Close() }, nil

	default:
		logger.Info("using in-memory storage")
		return repository.NewMemoryUserRepository(), localLimiter, func() {}, nil
	}
}
