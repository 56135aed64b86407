package model

import "time"

// MaxHopCeiling is the hard upper bound for graph expansion depth.
// Requests asking for more hops are clamped, never rejected.
const MaxHopCeiling = 3

// QueryConfig represents configuration for a retrieval query.
type QueryConfig struct {
	// Search parameters
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`

	// Score fusion weights
	KeywordWeight float64 `json:"keyword_weight"`
	VectorWeight  float64 `json:"vector_weight"`

	// Graph expansion parameters
	MaxHops     int        `json:"max_hops,omitempty"`
	Relations   []Relation `json:"relations,omitempty"` // Filter by relation, nil means all
	DecayFactor float64    `json:"decay_factor"`        // Per-hop relevance decay
	SeedCount   int        `json:"seed_count"`          // Top fused results used as seeds

	// Clustering parameters
	MinOverlap     int     `json:"min_overlap"`      // Shared entity/tag count to cluster-link
	MinSimilarity  float64 `json:"min_similarity"`   // Vector proximity to cluster-link
	MinClusterSize int     `json:"min_cluster_size"` // Smaller clusters are dropped from output
}

// DefaultQueryConfig returns a sensible default configuration.
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:                10,
		SimilarityThreshold: 0.0,
		KeywordWeight:       0.4,
		VectorWeight:        0.6,
		MaxHops:             2,
		Relations:           nil,
		DecayFactor:         0.5,
		SeedCount:           5,
		MinOverlap:          1,
		MinSimilarity:       0.8,
		MinClusterSize:      1,
	}
}

// ConsolidationConfig represents configuration for consolidation runs.
type ConsolidationConfig struct {
	MaxCandidates     int           `json:"max_candidates"`     // Cap on candidates handed to the classifier
	RecencyWindow     time.Duration `json:"recency_window"`     // Notes within this window qualify as candidates
	SuggestionTimeout time.Duration `json:"suggestion_timeout"` // Bound on the classifier call
	LockTimeout       time.Duration `json:"lock_timeout"`       // Bound on waiting for the per-note lock
	BatchParallelism  int           `json:"batch_parallelism"`  // Concurrent notes in batch mode
	DefaultWeight     float64       `json:"default_weight"`     // Edge weight for proposals without one
}

// DefaultConsolidationConfig returns a sensible default configuration.
func DefaultConsolidationConfig() ConsolidationConfig {
	return ConsolidationConfig{
		MaxCandidates:     20,
		RecencyWindow:     24 * time.Hour,
		SuggestionTimeout: 30 * time.Second,
		LockTimeout:       10 * time.Second,
		BatchParallelism:  4,
		DefaultWeight:     0.5,
	}
}
