package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/siherrmann/memograph/model"
)

// SuggestWithTimeout bounds every call of fn with the given timeout.
// A stalled classifier call must never hold a note's consolidation lock
// indefinitely; deadline hits surface as model.ErrSuggestionTimeout.
func SuggestWithTimeout(fn SuggestFunc, timeout time.Duration) SuggestFunc {
	return func(ctx context.Context, target *model.Note, candidates []*model.Note) ([]model.LinkProposal, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		proposals, err := fn(ctx, target, candidates)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, model.ErrSuggestionTimeout
		}
		return proposals, err
	}
}

// EmbedWithRetry retries an embedder call with bounded backoff.
// Embedding is an idempotent read, so retrying on
// model.ErrExternalUnavailable is safe. Other errors are returned as is.
func EmbedWithRetry(fn EmbedFunc, attempts int, baseDelay time.Duration) EmbedFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		var lastErr error
		delay := baseDelay

		for attempt := 0; attempt < attempts; attempt++ {
			embedding, err := fn(ctx, text)
			if err == nil {
				return embedding, nil
			}
			if !errors.Is(err, model.ErrExternalUnavailable) {
				return nil, err
			}
			lastErr = err

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		return nil, lastErr
	}
}
