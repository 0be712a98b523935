package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/mailer"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// dependencies holds everything the commands share. close releases the
// database and, when used, the redis client.
type dependencies struct {
	cfg      *config.Config
	db       *sql.DB
	accounts service.AccountService
	close    func()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err = configureLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func newRevocationStore(cfg *config.Config, db *sql.DB) (service.RevocationStore, func(), error) {
	if cfg.Revocation.Backend != config.RevocationBackendRedis {
		return repository.NewRevokedTokenRepository(db), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logrus.WithField("addr", cfg.Redis.Addr).Info("Using redis revocation store")
	return repository.NewRedisRevokedTokenRepository(client), func() { client.Close() }, nil
}

func newDependencies() (*dependencies, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	revocations, closeRevocations, err := newRevocationStore(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	mail, err := mailer.New(cfg.Mail)
	if err != nil {
		closeRevocations()
		db.Close()
		return nil, err
	}

	accountRepo := repository.NewAccountRepository(db)
	tokens := service.NewTokenIssuer(cfg.JWT, accountRepo, revocations)
	resets := service.NewPasswordResetFlow(
		accountRepo,
		service.NewResetTokenGenerator(cfg.App.SecretKey, cfg.Tokens.ResetTTL),
		mail,
		cfg,
	)
	verifier := service.NewCredentialVerifier(accountRepo)

	return &dependencies{
		cfg:      cfg,
		db:       db,
		accounts: service.NewAccountService(accountRepo, verifier, tokens, resets, cfg),
		close: func() {
			closeRevocations()
			db.Close()
		},
	}, nil
}
