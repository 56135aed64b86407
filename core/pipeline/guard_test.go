package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/siherrmann/memograph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestWithTimeout(t *testing.T) {
	t.Run("Fast suggester passes through", func(t *testing.T) {
		suggest := SuggestWithTimeout(func(ctx context.Context, target *model.Note, candidates []*model.Note) ([]model.LinkProposal, error) {
			return []model.LinkProposal{{Relation: model.RelationRelated}}, nil
		}, time.Second)

		proposals, err := suggest(context.Background(), &model.Note{}, nil)

		require.NoError(t, err)
		assert.Len(t, proposals, 1)
	})

	t.Run("Stalled suggester hits the deadline", func(t *testing.T) {
		suggest := SuggestWithTimeout(func(ctx context.Context, target *model.Note, candidates []*model.Note) ([]model.LinkProposal, error) {
			select {
			case <-time.After(10 * time.Second):
				return nil, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}, 50*time.Millisecond)

		_, err := suggest(context.Background(), &model.Note{}, nil)

		assert.ErrorIs(t, err, model.ErrSuggestionTimeout)
	})

	t.Run("Suggester errors pass through unchanged", func(t *testing.T) {
		backendErr := fmt.Errorf("classifier rejected request")
		suggest := SuggestWithTimeout(func(ctx context.Context, target *model.Note, candidates []*model.Note) ([]model.LinkProposal, error) {
			return nil, backendErr
		}, time.Second)

		_, err := suggest(context.Background(), &model.Note{}, nil)

		assert.ErrorIs(t, err, backendErr)
	})
}

func TestEmbedWithRetry(t *testing.T) {
	t.Run("Transient unavailability is retried", func(t *testing.T) {
		calls := 0
		embed := EmbedWithRetry(func(ctx context.Context, text string) ([]float32, error) {
			calls++
			if calls < 3 {
				return nil, model.ErrExternalUnavailable
			}
			return []float32{1, 2, 3}, nil
		}, 5, time.Millisecond)

		embedding, err := embed(context.Background(), "text")

		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2, 3}, embedding)
		assert.Equal(t, 3, calls)
	})

	t.Run("Gives up after the configured attempts", func(t *testing.T) {
		calls := 0
		embed := EmbedWithRetry(func(ctx context.Context, text string) ([]float32, error) {
			calls++
			return nil, model.ErrExternalUnavailable
		}, 3, time.Millisecond)

		_, err := embed(context.Background(), "text")

		assert.ErrorIs(t, err, model.ErrExternalUnavailable)
		assert.Equal(t, 3, calls)
	})

	t.Run("Non-retryable errors fail immediately", func(t *testing.T) {
		calls := 0
		backendErr := fmt.Errorf("bad input")
		embed := EmbedWithRetry(func(ctx context.Context, text string) ([]float32, error) {
			calls++
			return nil, backendErr
		}, 5, time.Millisecond)

		_, err := embed(context.Background(), "text")

		assert.ErrorIs(t, err, backendErr)
		assert.Equal(t, 1, calls)
	})

	t.Run("Cancellation stops the retry loop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		embed := EmbedWithRetry(func(ctx context.Context, text string) ([]float32, error) {
			cancel()
			return nil, model.ErrExternalUnavailable
		}, 5, time.Minute)

		_, err := embed(ctx, "text")

		assert.ErrorIs(t, err, context.Canceled)
	})
}
