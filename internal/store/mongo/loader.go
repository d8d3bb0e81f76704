// Package mongo persists unified measurement records to MongoDB. A Loader
// lives for exactly one run and walks a fixed state machine:
//
//	Disconnected → Connected → IndexesEnsured → Loading → Done | Failed
//
// Calling an operation out of order is a programming error and returns a
// *TransitionError.
package mongo

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrMissingConnectionConfig signals that no MongoDB URI was configured for
// a run that needs the store.
var ErrMissingConnectionConfig = errors.New("mongodb uri not configured")

// State is the loader's position in its per-run lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateIndexesEnsured
	StateLoading
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateIndexesEnsured:
		return "indexes_ensured"
	case StateLoading:
		return "loading"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TransitionError reports an operation invoked from the wrong state.
type TransitionError struct {
	Op   string
	From State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("mongo loader: cannot %s from state %q", e.Op, e.From)
}

// RetryPolicy bounds connection retries. MaxAttempts of 1 means no retry.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Config carries everything the loader needs for one run.
type Config struct {
	URI                  string
	Database             string
	Collection           string
	TLSEnabled           bool
	TLSAllowInvalidCerts bool
	ConnectTimeout       time.Duration
	Retry                RetryPolicy
	// DryRun skips all writes. With a URI the loader still connects and
	// ensures indexes; without one it skips the store entirely.
	DryRun bool
}

// Loader writes one run's accepted records to the measurement collection.
type Loader struct {
	cfg    Config
	logger *slog.Logger

	state      State
	client     *mongodrv.Client
	collection *mongodrv.Collection
}

// New builds a Loader in the Disconnected state.
func New(cfg Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	return &Loader{cfg: cfg, logger: logger}
}

// State returns the loader's current lifecycle position.
func (l *Loader) State() State {
	return l.state
}

// offline reports whether the run bypasses the store entirely.
func (l *Loader) offline() bool {
	return l.cfg.DryRun && l.cfg.URI == ""
}

// Connect establishes and pings the client, honoring the retry policy.
// A dry run without a URI connects to nothing and still succeeds.
func (l *Loader) Connect(ctx context.Context) error {
	if l.state != StateDisconnected {
		return &TransitionError{Op: "connect", From: l.state}
	}
	if l.offline() {
		l.logger.Info("dry run without mongodb uri, store disabled")
		l.state = StateConnected
		return nil
	}
	if l.cfg.URI == "" {
		l.state = StateFailed
		return ErrMissingConnectionConfig
	}

	backoff := l.cfg.Retry.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= l.cfg.Retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if !sleepWithContext(ctx, backoff) {
				l.state = StateFailed
				return ctx.Err()
			}
			backoff = nextBackoff(backoff, l.cfg.Retry.MaxBackoff)
		}

		client, err := l.dial(ctx)
		if err == nil {
			l.client = client
			l.collection = client.Database(l.cfg.Database).Collection(l.cfg.Collection)
			l.state = StateConnected
			l.logger.Info("mongodb connected",
				"database", l.cfg.Database, "collection", l.cfg.Collection)
			return nil
		}
		lastErr = err
		l.logger.Warn("mongodb connect failed",
			"attempt", attempt, "max_attempts", l.cfg.Retry.MaxAttempts, "error", err)
	}

	l.state = StateFailed
	return fmt.Errorf("connect mongodb after %d attempts: %w", l.cfg.Retry.MaxAttempts, lastErr)
}

// dial opens and pings one client within the configured timeout.
func (l *Loader) dial(ctx context.Context) (*mongodrv.Client, error) {
	if l.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.ConnectTimeout)
		defer cancel()
	}

	opts := options.Client().ApplyURI(l.cfg.URI)
	if l.cfg.TLSEnabled {
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if l.cfg.TLSAllowInvalidCerts {
			tlsCfg.InsecureSkipVerify = true
			l.logger.Warn("mongodb tls certificate verification disabled")
		}
		opts.SetTLSConfig(tlsCfg)
	}

	client, err := mongodrv.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open client: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}
	return client, nil
}

// Close disconnects the client. It is safe to call from any state,
// including after a failure or on a store-less dry run.
func (l *Loader) Close(ctx context.Context) error {
	if l.client == nil {
		return nil
	}
	err := l.client.Disconnect(ctx)
	l.client = nil
	l.collection = nil
	if err != nil {
		return fmt.Errorf("disconnect mongodb: %w", err)
	}
	return nil
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if maxBackoff > 0 && next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
