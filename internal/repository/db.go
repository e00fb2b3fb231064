package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
)

// Open connects to the configured store and waits until it answers a ping.
// Driver "none" (or empty) returns a nil repository and no error.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (ExtractionRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		repo ExtractionRepository
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		logger.Info("store disabled")
		return nil, nil
	case "postgres":
		repo, err = OpenPostgres(ctx, cfg, logger)
	case "sqlite":
		repo, err = OpenSQLite(ctx, cfg.DSN, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown database driver %q", cfg.Driver), common.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}

	if err := waitReady(ctx, repo, cfg, logger); err != nil {
		if cerr := repo.Close(); cerr != nil {
			logger.Warn("store close after failed ping", "error", cerr)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	logger.Info("store ready", "driver", cfg.Driver)
	return repo, nil
}

// waitReady pings until the store answers or the attempts run out.
func waitReady(ctx context.Context, repo ExtractionRepository, cfg common.DatabaseConfig, logger *slog.Logger) error {
	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return retry.Do(
		func() error {
			return HealthCheck(ctx, repo, cfg.DialTimeout, logger)
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(250*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("store ping failed, retrying", "attempt", n+1, "error", err)
		}),
	)
}

// HealthCheck pings the store with an optional timeout.
func HealthCheck(ctx context.Context, repo ExtractionRepository, timeout time.Duration, logger *slog.Logger) error {
	if repo == nil {
		return fmt.Errorf("%w: store not configured", common.ErrDatabase)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := repo.Ping(ctx); err != nil {
		return err
	}
	logger.Debug("store ping ok")
	return nil
}
