package model

// SynthesisEventKind identifies the position of an event in a synthesis
// stream. Events arrive in strict order: one metadata event, zero or more
// chunk events, one results event, one done event.
type SynthesisEventKind string

const (
	SynthesisEventMetadata SynthesisEventKind = "metadata"
	SynthesisEventChunk    SynthesisEventKind = "chunk"
	SynthesisEventResults  SynthesisEventKind = "results"
	SynthesisEventDone     SynthesisEventKind = "done"
)

// SynthesisEvent is a single event in a streaming synthesis response.
type SynthesisEvent struct {
	Kind     SynthesisEventKind `json:"kind"`
	Metadata Metadata           `json:"metadata,omitempty"`
	Chunk    string             `json:"chunk,omitempty"`
	Results  *RetrievalResponse `json:"results,omitempty"`
	Err      error              `json:"-"`
}
