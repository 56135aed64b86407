package retrieval

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/memograph/core/pipeline"
	"github.com/siherrmann/memograph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkStreamer(chunks ...string) pipeline.StreamFunc {
	return func(ctx context.Context, query string, notes []*model.Note) (<-chan string, error) {
		out := make(chan string)
		go func() {
			defer close(out)
			for _, chunk := range chunks {
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
			}
		}()
		return out, nil
	}
}

func streamTestEngine(t *testing.T, streamer pipeline.StreamFunc) *Engine {
	rid := uuid.New()
	notes := NewMockNoteSource()
	notes.AddNote(&model.Note{RID: rid, Text: "note"})
	notes.keyword = []*model.KeywordHit{{NoteRID: rid, Score: 0.5}}

	pipe := pipeline.NewPipeline(testEmbedder(8))
	pipe.SetStreamer(streamer)

	return NewEngine(notes, NewMockEdgeSource(), pipe, model.DefaultQueryConfig(), testLogger())
}

func collectEvents(t *testing.T, events <-chan model.SynthesisEvent) []model.SynthesisEvent {
	var collected []model.SynthesisEvent
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return collected
			}
			collected = append(collected, event)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for synthesis events")
		}
	}
}

func TestSynthesizeStream(t *testing.T) {
	t.Run("Events arrive in contract order", func(t *testing.T) {
		engine := streamTestEngine(t, chunkStreamer("first ", "second ", "third"))

		events, err := engine.SynthesizeStream(context.Background(), model.RetrievalRequest{Query: "note"})
		require.NoError(t, err)

		collected := collectEvents(t, events)

		require.NoError(t, ValidateEventOrder(collected))
		require.Len(t, collected, 6)
		assert.Equal(t, model.SynthesisEventMetadata, collected[0].Kind)
		assert.Equal(t, "first ", collected[1].Chunk)
		assert.Equal(t, model.SynthesisEventResults, collected[4].Kind)
		require.NotNil(t, collected[4].Results)
		assert.Len(t, collected[4].Results.PrimaryResults, 1)
		assert.Equal(t, model.SynthesisEventDone, collected[5].Kind)
	})

	t.Run("Metadata event carries result counts", func(t *testing.T) {
		engine := streamTestEngine(t, chunkStreamer())

		events, err := engine.SynthesizeStream(context.Background(), model.RetrievalRequest{Query: "note"})
		require.NoError(t, err)

		collected := collectEvents(t, events)

		require.NotEmpty(t, collected)
		metadata := collected[0]
		assert.Equal(t, "note", metadata.Metadata["query"])
		assert.Equal(t, 1, metadata.Metadata["primary_count"])
	})

	t.Run("Streamer failure closes with done carrying the error", func(t *testing.T) {
		engine := streamTestEngine(t, func(ctx context.Context, query string, notes []*model.Note) (<-chan string, error) {
			return nil, fmt.Errorf("synthesis backend unavailable")
		})

		events, err := engine.SynthesizeStream(context.Background(), model.RetrievalRequest{Query: "note"})
		require.NoError(t, err)

		collected := collectEvents(t, events)

		require.NoError(t, ValidateEventOrder(collected))
		last := collected[len(collected)-1]
		assert.Equal(t, model.SynthesisEventDone, last.Kind)
		assert.Error(t, last.Err)
	})

	t.Run("Consumer cancellation stops the producer", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		started := make(chan struct{})
		engine := streamTestEngine(t, func(ctx context.Context, query string, notes []*model.Note) (<-chan string, error) {
			out := make(chan string)
			go func() {
				defer close(out)
				close(started)
				for {
					select {
					case out <- "chunk ":
					case <-ctx.Done():
						return
					}
				}
			}()
			return out, nil
		})

		events, err := engine.SynthesizeStream(ctx, model.RetrievalRequest{Query: "note"})
		require.NoError(t, err)

		// Read a couple of events, then walk away
		<-events
		<-started
		<-events
		cancel()

		select {
		case _, ok := <-events:
			if ok {
				// One event may already be in flight; the channel must
				// close right after
				for range events {
				}
			}
		case <-time.After(5 * time.Second):
			t.Fatal("expected event channel to close after cancellation")
		}
	})

	t.Run("Missing streamer is an error", func(t *testing.T) {
		rid := uuid.New()
		notes := NewMockNoteSource()
		notes.AddNote(&model.Note{RID: rid, Text: "note"})
		notes.keyword = []*model.KeywordHit{{NoteRID: rid, Score: 0.5}}

		engine := NewEngine(notes, NewMockEdgeSource(), pipeline.NewPipeline(testEmbedder(8)), model.DefaultQueryConfig(), testLogger())

		_, err := engine.SynthesizeStream(context.Background(), model.RetrievalRequest{Query: "note"})

		assert.Error(t, err)
	})
}

func TestValidateEventOrder(t *testing.T) {
	t.Run("Valid full sequence", func(t *testing.T) {
		events := []model.SynthesisEvent{
			{Kind: model.SynthesisEventMetadata},
			{Kind: model.SynthesisEventChunk, Chunk: "a"},
			{Kind: model.SynthesisEventChunk, Chunk: "b"},
			{Kind: model.SynthesisEventResults, Results: &model.RetrievalResponse{}},
			{Kind: model.SynthesisEventDone},
		}
		assert.NoError(t, ValidateEventOrder(events))
	})

	t.Run("Chunk before metadata is rejected", func(t *testing.T) {
		events := []model.SynthesisEvent{
			{Kind: model.SynthesisEventChunk, Chunk: "a"},
		}
		assert.Error(t, ValidateEventOrder(events))
	})

	t.Run("Chunk after results is rejected", func(t *testing.T) {
		events := []model.SynthesisEvent{
			{Kind: model.SynthesisEventMetadata},
			{Kind: model.SynthesisEventResults, Results: &model.RetrievalResponse{}},
			{Kind: model.SynthesisEventChunk, Chunk: "late"},
		}
		assert.Error(t, ValidateEventOrder(events))
	})

	t.Run("Event after done is rejected", func(t *testing.T) {
		events := []model.SynthesisEvent{
			{Kind: model.SynthesisEventMetadata},
			{Kind: model.SynthesisEventDone},
			{Kind: model.SynthesisEventChunk, Chunk: "late"},
		}
		assert.Error(t, ValidateEventOrder(events))
	})

	t.Run("Early done after failure is accepted", func(t *testing.T) {
		events := []model.SynthesisEvent{
			{Kind: model.SynthesisEventMetadata},
			{Kind: model.SynthesisEventDone, Err: fmt.Errorf("backend failure")},
		}
		assert.NoError(t, ValidateEventOrder(events))
	})
}
