package pipeline

import (
	"context"

	"github.com/siherrmann/memograph/model"
)

// EmbedFunc is a function that generates embeddings for text
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// SuggestFunc asks the external classifier for link proposals between a
// target note and a set of candidates. Proposals reference candidate notes
// by rid together with a relation from the closed taxonomy.
type SuggestFunc func(ctx context.Context, target *model.Note, candidates []*model.Note) ([]model.LinkProposal, error)

// SynthesizeFunc produces a buffered narrative for a query over a set of
// notes, typically a cluster theme or an answer summary.
type SynthesizeFunc func(ctx context.Context, query string, notes []*model.Note) (string, error)

// StreamFunc produces a narrative as a stream of text chunks. The returned
// channel is closed by the producer when the narrative is complete or the
// context is cancelled.
type StreamFunc func(ctx context.Context, query string, notes []*model.Note) (<-chan string, error)

// Pipeline bundles the external collaborator functions the engine consumes.
// The classifier and synthesizer are black boxes; only the embedder has a
// local default.
type Pipeline struct {
	Embedder    EmbedFunc
	Suggester   SuggestFunc    // Optional
	Synthesizer SynthesizeFunc // Optional
	Streamer    StreamFunc     // Optional
}

// NewPipeline creates a new pipeline with the given embedder
func NewPipeline(embedder EmbedFunc) *Pipeline {
	return &Pipeline{
		Embedder: embedder,
	}
}

// SetSuggester sets the link suggestion function
func (p *Pipeline) SetSuggester(suggester SuggestFunc) {
	p.Suggester = suggester
}

// SetSynthesizer sets the buffered synthesis function
func (p *Pipeline) SetSynthesizer(synthesizer SynthesizeFunc) {
	p.Synthesizer = synthesizer
}

// SetStreamer sets the streaming synthesis function
func (p *Pipeline) SetStreamer(streamer StreamFunc) {
	p.Streamer = streamer
}
