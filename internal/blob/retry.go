package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// RetryStore retries failed uploads with doubling backoff. Reads, deletes
// and listings pass straight through.
type RetryStore struct {
	Store
	MaxRetries     int
	InitialBackoff time.Duration
	AttemptTimeout time.Duration
	Logger         *slog.Logger
}

// WithRetry wraps s so that Put is attempted up to maxRetries times.
func WithRetry(s Store, maxRetries int) *RetryStore {
	return &RetryStore{
		Store:          s,
		MaxRetries:     maxRetries,
		InitialBackoff: time.Second,
		AttemptTimeout: 50 * time.Second,
		Logger:         slog.Default(),
	}
}

func (s *RetryStore) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, fmt.Errorf("failed to buffer %s: %w", key, err)
	}
	attempts := max(s.MaxRetries, 1)
	backoff := s.InitialBackoff
	var lastErr error

	for i := 0; i < attempts; i++ {
		info, err := s.putOnce(ctx, key, data, opts)
		if err == nil {
			return info, nil
		}
		if errors.Is(err, ErrExists) {
			return Info{}, err
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		s.Logger.Warn(
			"Upload failed, will retry.",
			"key", key,
			"attempt", i+1,
			"maxRetries", attempts,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			s.Logger.Error("Context cancelled during backoff. Aborting retries.", "key", key, "error", ctx.Err())
			return Info{}, ctx.Err()
		}
	}
	s.Logger.Error("Upload failed after all retries.", "key", key, "error", lastErr)
	return Info{}, fmt.Errorf("upload for %s failed after all retries: %w", key, lastErr)
}

func (s *RetryStore) putOnce(ctx context.Context, key string, data []byte, opts PutOptions) (Info, error) {
	if s.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AttemptTimeout)
		defer cancel()
	}
	return s.Store.Put(ctx, key, bytes.NewReader(data), opts)
}
