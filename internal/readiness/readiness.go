// Package readiness blocks until a dependency is reachable.
//
// Polling runs at a fixed interval with no deadline of its own: an
// unreachable target blocks until the context is cancelled.
package readiness

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const DefaultInterval = time.Second

type options struct {
	interval    time.Duration
	dialTimeout time.Duration
	logger      *slog.Logger
}

type Option func(*options)

func WithInterval(interval time.Duration) Option {
	return func(o *options) {
		o.interval = interval
	}
}

func WithDialTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = timeout
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) options {
	o := options{
		interval:    DefaultInterval,
		dialTimeout: DefaultInterval,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WaitForPort returns once a TCP connection to host:port succeeds.
func WaitForPort(ctx context.Context, host string, port int, opts ...Option) error {
	o := newOptions(opts)
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: o.dialTimeout}

	check := func(ctx context.Context) error {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}

	return waitFor(ctx, addr, check, o)
}

// WaitFor runs check once per interval until it returns nil.
func WaitFor(ctx context.Context, name string, check func(ctx context.Context) error, opts ...Option) error {
	return waitFor(ctx, name, check, newOptions(opts))
}

func waitFor(ctx context.Context, name string, check func(ctx context.Context) error, o options) error {
	attempt := 0
	operation := func() error {
		attempt++
		return check(ctx)
	}
	notify := func(err error, next time.Duration) {
		o.logger.Debug("Waiting for dependency",
			slog.String("target", name),
			slog.Int("attempt", attempt),
			slog.Duration("next", next),
			slog.Any("error", err))
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(o.interval), ctx)
	err := backoff.RetryNotify(operation, b, notify)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("waiting for %s: %w", name, ctxErr)
		}
		return fmt.Errorf("waiting for %s: %w", name, err)
	}

	o.logger.Info("Dependency is ready", slog.String("target", name), slog.Int("attempts", attempt))
	return nil
}
