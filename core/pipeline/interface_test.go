package pipeline

import (
	"context"
	"testing"

	"github.com/siherrmann/memograph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipeline(t *testing.T) {
	embedder := func(ctx context.Context, text string) ([]float32, error) {
		return []float32{0.1, 0.2}, nil
	}

	pipe := NewPipeline(embedder)

	require.NotNil(t, pipe)
	assert.NotNil(t, pipe.Embedder)
	assert.Nil(t, pipe.Suggester, "Expected suggester to be unset initially")
	assert.Nil(t, pipe.Synthesizer, "Expected synthesizer to be unset initially")
	assert.Nil(t, pipe.Streamer, "Expected streamer to be unset initially")
}

func TestPipelineSetters(t *testing.T) {
	pipe := NewPipeline(nil)

	pipe.SetSuggester(func(ctx context.Context, target *model.Note, candidates []*model.Note) ([]model.LinkProposal, error) {
		return nil, nil
	})
	pipe.SetSynthesizer(func(ctx context.Context, query string, notes []*model.Note) (string, error) {
		return "", nil
	})
	pipe.SetStreamer(func(ctx context.Context, query string, notes []*model.Note) (<-chan string, error) {
		return nil, nil
	})

	assert.NotNil(t, pipe.Suggester)
	assert.NotNil(t, pipe.Synthesizer)
	assert.NotNil(t, pipe.Streamer)
}
