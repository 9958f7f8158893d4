package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ETAnderson/deskflow/internal/dimension"
)

// retryRow runs one row-scoped store operation up to attempts times, backing
// off linearly between tries. Transient store errors get retried; a key that
// normalized to nothing is permanent and returns immediately.
func retryRow(ctx context.Context, attempts int, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, dimension.ErrEmptyKey) {
			return err
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 50 * time.Millisecond):
		}
	}
	return err
}
