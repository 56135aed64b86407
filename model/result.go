package model

import (
	"time"

	"github.com/google/uuid"
)

// KeywordHit is a single full-text search hit with its score in [0,1].
type KeywordHit struct {
	NoteRID   uuid.UUID `json:"note_rid"`
	Score     float64   `json:"score"`
	Snippet   string    `json:"snippet,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// VectorHit is a single vector similarity hit with its score in [0,1].
type VectorHit struct {
	NoteRID   uuid.UUID `json:"note_rid"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchResult is a fused retrieval result for a note.
type SearchResult struct {
	NoteRID      uuid.UUID `json:"note_rid"`
	Score        float64   `json:"score"`
	KeywordScore float64   `json:"keyword_score"`
	VectorScore  float64   `json:"vector_score"`
	Snippet      string    `json:"snippet,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ExpandedNode is a note discovered through graph expansion.
// HopDistance is the minimum hop count from any seed; SeedRIDs accumulates
// every seed that reaches the node at that distance.
type ExpandedNode struct {
	NoteRID     uuid.UUID   `json:"note_rid"`
	Relation    Relation    `json:"relation"`
	HopDistance int         `json:"hop_distance"`
	Relevance   float64     `json:"relevance"`
	SeedRIDs    []uuid.UUID `json:"seed_rids"`
}

// RetrievalRequest is the retrieval contract consumed by the API layer.
type RetrievalRequest struct {
	Query       string `json:"query"`
	TopK        int    `json:"top_k"`
	ExpandGraph bool   `json:"expand_graph"`
	MaxHops     int    `json:"max_hops"`
}

// RetrievalResponse bundles the full retrieval pipeline output.
type RetrievalResponse struct {
	PrimaryResults  []*SearchResult `json:"primary_results"`
	ExpandedResults []*ExpandedNode `json:"expanded_results"`
	Clusters        []*Cluster      `json:"cluster_summaries"`
	ExecutionTime   time.Duration   `json:"execution_time"`
	Degraded        bool            `json:"degraded,omitempty"`
}

// ConsolidationResult reports the outcome of a single consolidation run.
type ConsolidationResult struct {
	NoteRID         uuid.UUID     `json:"note_rid"`
	CandidatesFound int           `json:"candidates_found"`
	LinksCreated    int           `json:"links_created"`
	Duration        time.Duration `json:"duration"`
}

// BatchResult accumulates counters over a batch consolidation run.
// A single note's failure is counted and does not abort the batch.
type BatchResult struct {
	Processed      int                         `json:"processed"`
	Failed         int                         `json:"failed"`
	LinksCreated   int                         `json:"links_created"`
	NotesWithLinks int                         `json:"notes_with_links"`
	Timings        map[uuid.UUID]time.Duration `json:"timings,omitempty"`
}
