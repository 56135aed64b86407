package retrieval

import (
	"context"
	"fmt"

	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
)

// SynthesizeStream runs retrieval and delivers the synthesis as an ordered
// event stream: one metadata event, zero or more chunk events, one results
// event, one done event. Consumer cancellation stops the producer promptly;
// the channel is closed on every exit path so no background work survives.
func (e *Engine) SynthesizeStream(ctx context.Context, req model.RetrievalRequest) (<-chan model.SynthesisEvent, error) {
	if e.pipe == nil || e.pipe.Streamer == nil {
		return nil, helper.NewError("synthesize stream", fmt.Errorf("no streamer configured"))
	}

	response, err := e.Retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	notes := e.workingSet(response)

	out := make(chan model.SynthesisEvent)

	go func() {
		defer close(out)

		send := func(event model.SynthesisEvent) bool {
			select {
			case out <- event:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(model.SynthesisEvent{
			Kind: model.SynthesisEventMetadata,
			Metadata: model.Metadata{
				"query":          req.Query,
				"primary_count":  len(response.PrimaryResults),
				"expanded_count": len(response.ExpandedResults),
				"cluster_count":  len(response.Clusters),
			},
		}) {
			return
		}

		chunks, err := e.pipe.Streamer(ctx, req.Query, notes)
		if err != nil {
			send(model.SynthesisEvent{Kind: model.SynthesisEventDone, Err: err})
			return
		}

		for chunk := range chunks {
			if !send(model.SynthesisEvent{Kind: model.SynthesisEventChunk, Chunk: chunk}) {
				// Consumer is gone; ctx cancellation also stops the
				// streaming producer.
				return
			}
		}

		if !send(model.SynthesisEvent{Kind: model.SynthesisEventResults, Results: response}) {
			return
		}

		send(model.SynthesisEvent{Kind: model.SynthesisEventDone})
	}()

	return out, nil
}

// ValidateEventOrder checks a synthesis event sequence against the contract:
// metadata first, chunks in the middle, then results, then done, nothing
// after done.
func ValidateEventOrder(events []model.SynthesisEvent) error {
	const (
		expectMetadata = iota
		expectChunksOrResults
		expectDone
		expectNothing
	)

	state := expectMetadata
	for i, event := range events {
		switch state {
		case expectMetadata:
			if event.Kind != model.SynthesisEventMetadata {
				return fmt.Errorf("event %d: expected metadata, got %s", i, event.Kind)
			}
			state = expectChunksOrResults
		case expectChunksOrResults:
			switch event.Kind {
			case model.SynthesisEventChunk:
				// Stay in state
			case model.SynthesisEventResults:
				state = expectDone
			case model.SynthesisEventDone:
				// A failed stream may close early with done
				state = expectNothing
			default:
				return fmt.Errorf("event %d: unexpected %s", i, event.Kind)
			}
		case expectDone:
			if event.Kind != model.SynthesisEventDone {
				return fmt.Errorf("event %d: expected done, got %s", i, event.Kind)
			}
			state = expectNothing
		case expectNothing:
			return fmt.Errorf("event %d: %s after done", i, event.Kind)
		}
	}

	return nil
}
