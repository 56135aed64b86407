package model

import (
	"time"

	"github.com/google/uuid"
)

// NoteStatus tracks the enrichment lifecycle of a note.
// A note is captured immediately and enriched (embedding, episodic metadata)
// in the background; the status column is the authoritative completion signal.
type NoteStatus string

const (
	NoteStatusCaptured NoteStatus = "captured"
	NoteStatusEnriched NoteStatus = "enriched"
)

// Note represents a single captured note (node in the knowledge graph).
// The RID is immutable once assigned. Text and embedding are append-only:
// edits create a new note. Episodic metadata and tags are mutable.
type Note struct {
	ID        int       `json:"id"`
	RID       uuid.UUID `json:"rid"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
	// Episodic metadata
	Who   []string `json:"who,omitempty"`
	What  []string `json:"what,omitempty"`
	Where []string `json:"where,omitempty"`
	When  []string `json:"when,omitempty"`
	Tags  []string `json:"tags,omitempty"`
	// Dimension flags
	IsTask     bool `json:"is_task"`
	IsIdea     bool `json:"is_idea"`
	IsDecision bool `json:"is_decision"`
	// Cluster assignment (optional, set by materialized clustering)
	ClusterID *int       `json:"cluster_id,omitempty"`
	Status    NoteStatus `json:"status"`
	Metadata  Metadata   `json:"metadata,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	// Results
	Similarity *float64 `json:"similarity,omitempty"`
	FTSScore   *float64 `json:"fts_score,omitempty"`
	Snippet    string   `json:"snippet,omitempty"`
}

// SharedAttributes returns the union of episodic entities and tags of a note.
// Used for cluster linking and candidate generation overlap checks.
func (n *Note) SharedAttributes() []string {
	attrs := make([]string, 0, len(n.Who)+len(n.What)+len(n.Where)+len(n.Tags))
	attrs = append(attrs, n.Who...)
	attrs = append(attrs, n.What...)
	attrs = append(attrs, n.Where...)
	attrs = append(attrs, n.Tags...)
	return attrs
}
