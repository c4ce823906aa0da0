// Package readiness blocks startup until PostgreSQL accepts connections.
package readiness

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultInterval is the pause between attempts.
const DefaultInterval = time.Second

// CheckFunc performs a single connectivity attempt.
type CheckFunc func(ctx context.Context) error

// Options configures WaitFor.
type Options struct {
	// Interval between attempts. Defaults to DefaultInterval.
	Interval time.Duration
	// AttemptTimeout bounds a single check. Zero means no per-attempt bound.
	AttemptTimeout time.Duration
	Logger         *slog.Logger
}

// WaitFor calls check until it succeeds. Connectivity errors are logged and
// retried after opts.Interval, with no limit on attempts. Any other error is
// returned immediately, as is ctx.Err() once ctx is done.
func WaitFor(ctx context.Context, check CheckFunc, opts Options) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for attempt := 1; ; attempt++ {
		err := attemptCheck(ctx, check, opts.AttemptTimeout)
		if err == nil {
			logger.Info("database available", slog.Int("attempts", attempt))
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !IsConnectivityError(err) {
			return err
		}

		logger.Warn("database unavailable, waiting",
			slog.Int("attempt", attempt),
			slog.Duration("interval", interval),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func attemptCheck(ctx context.Context, check CheckFunc, timeout time.Duration) error {
	if timeout <= 0 {
		return check(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return check(attemptCtx)
}

// PostgresCheck returns a CheckFunc that opens a fresh connection to
// databaseURL, pings it and closes it.
func PostgresCheck(databaseURL string) CheckFunc {
	return func(ctx context.Context) error {
		conn, err := pgx.Connect(ctx, databaseURL)
		if err != nil {
			return err
		}
		defer conn.Close(context.Background())
		return conn.Ping(ctx)
	}
}

// IsConnectivityError reports whether err means the database could not be
// reached yet, as opposed to a fault that retrying will not fix.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isConnectivityCode(pgErr.Code)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// isConnectivityCode covers connection exceptions (class 08), a server that
// is starting up or shutting down, and a database not created yet.
func isConnectivityCode(code string) bool {
	if len(code) == 5 && code[:2] == "08" {
		return true
	}
	switch code {
	case "57P01", "57P02", "57P03", "3D000":
		return true
	}
	return false
}
