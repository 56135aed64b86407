package memograph

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/siherrmann/memograph/core/consolidate"
	"github.com/siherrmann/memograph/core/pipeline"
	"github.com/siherrmann/memograph/core/retrieval"
	"github.com/siherrmann/memograph/database"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
	loadSql "github.com/siherrmann/memograph/sql"
)

// MemoGraph provides a unified interface to the note store, the retrieval
// engine and the consolidation linker
type MemoGraph struct {
	DB       *helper.Database
	Notes    *database.NotesDBHandler
	Edges    *database.EdgesDBHandler
	Pipeline *pipeline.Pipeline // External collaborators (embedder, classifier, synthesizer)
	Engine   *retrieval.Engine  // Retrieval engine for fused search and expansion
	Linker   *consolidate.Linker
	// Per-note consolidation locks, shared across rebuilt linkers so an
	// in-flight run still excludes new runs after reconfiguration
	locker *consolidate.NoteLocker
	// Configuration
	queryConfig         model.QueryConfig
	consolidationConfig model.ConsolidationConfig
	// Logging
	log *slog.Logger
}

// NewMemoGraph creates a new MemoGraph instance with all handlers initialized
func NewMemoGraph(config *helper.DatabaseConfiguration, embeddingDim int) (*MemoGraph, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("memograph", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	notes, err := database.NewNotesDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create notes handler", err)
	}

	edges, err := database.NewEdgesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create edges handler", err)
	}

	m := &MemoGraph{
		DB:                  db,
		Notes:               notes,
		Edges:               edges,
		locker:              consolidate.NewNoteLocker(),
		queryConfig:         model.DefaultQueryConfig(),
		consolidationConfig: model.DefaultConsolidationConfig(),
		log:                 logger,
	}
	m.rebuild()

	return m, nil
}

// rebuild recreates the engine and linker from the current pipeline and
// configuration.
func (m *MemoGraph) rebuild() {
	var suggest pipeline.SuggestFunc
	if m.Pipeline != nil {
		suggest = m.Pipeline.Suggester
	}

	m.Engine = retrieval.NewEngine(m.Notes, m.Edges, m.Pipeline, m.queryConfig, m.log)
	m.Linker = consolidate.NewLinkerWithLocker(m.Notes, m.Edges, suggest, m.locker, m.consolidationConfig, m.log)
}

// Close closes the database connection
func (m *MemoGraph) Close() error {
	if m.DB != nil && m.DB.Instance != nil {
		return m.DB.Instance.Close()
	}
	return nil
}

// SetPipeline sets the external collaborator functions
func (m *MemoGraph) SetPipeline(pipe *pipeline.Pipeline) {
	m.Pipeline = pipe
	m.rebuild()
}

// SetQueryConfig overrides the default retrieval configuration
func (m *MemoGraph) SetQueryConfig(config model.QueryConfig) {
	m.queryConfig = config
	m.rebuild()
}

// SetConsolidationConfig overrides the default consolidation configuration
func (m *MemoGraph) SetConsolidationConfig(config model.ConsolidationConfig) {
	m.consolidationConfig = config
	m.rebuild()
}

// UseDefaultPipeline sets up the default local embedding pipeline.
// This uses DefaultEmbedder with the all-MiniLM-L6-v2 model (384 dimensions).
// Classifier and synthesizer stay unset until provided via SetPipeline.
func (m *MemoGraph) UseDefaultPipeline() error {
	embedder, err := pipeline.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	m.Pipeline = pipeline.NewPipeline(embedder)
	m.rebuild()
	return nil
}

// CaptureNote stores a raw note immediately, without waiting for enrichment.
// The note becomes findable through keyword search right away; vector search
// picks it up once it is enriched.
func (m *MemoGraph) CaptureNote(note *model.Note) error {
	if note.Text == "" {
		return helper.NewError("capture note", fmt.Errorf("note text is empty"))
	}

	note.Status = model.NoteStatusCaptured
	note.Embedding = nil

	if err := m.Notes.InsertNote(note); err != nil {
		return helper.NewError("insert note", err)
	}

	m.log.Info("Captured note", slog.String("rid", note.RID.String()))

	return nil
}

// EnrichNote completes the deferred enrichment of a captured note: the note's
// episodic entities and tags are persisted and an embedding is computed from
// the note text when the note does not carry one yet.
func (m *MemoGraph) EnrichNote(ctx context.Context, note *model.Note) error {
	if len(note.Embedding) == 0 {
		if m.Pipeline == nil || m.Pipeline.Embedder == nil {
			return helper.NewError("enrich note", fmt.Errorf("pipeline with embedder not set, use SetPipeline() first"))
		}

		embedding, err := m.Pipeline.Embedder(ctx, note.Text)
		if err != nil {
			return helper.NewError("generate embedding", err)
		}
		note.Embedding = embedding
	}

	if err := m.Notes.UpdateNoteEnrichment(note); err != nil {
		return err
	}

	m.log.Info("Enriched note", slog.String("rid", note.RID.String()))

	return nil
}

// EnrichPending enriches every note still in captured state, oldest first.
// Returns the number of notes enriched.
func (m *MemoGraph) EnrichPending(ctx context.Context, limit int) (int, error) {
	pending, err := m.Notes.SelectNotesByStatus(model.NoteStatusCaptured, nil, limit)
	if err != nil {
		return 0, helper.NewError("select pending notes", err)
	}

	for i, note := range pending {
		if err := m.EnrichNote(ctx, note); err != nil {
			return i, helper.NewError(fmt.Sprintf("enrich note %s", note.RID), err)
		}
	}

	return len(pending), nil
}

// LinkNotes creates a manual edge between two notes.
// Relations outside the closed taxonomy are rejected with
// model.ErrInvalidRelation; a weight of 0 falls back to the default.
func (m *MemoGraph) LinkNotes(from uuid.UUID, to uuid.UUID, relation model.Relation, weight float64) (*model.Edge, error) {
	if !relation.Valid() {
		return nil, model.ErrInvalidRelation
	}

	if weight <= 0 {
		weight = m.consolidationConfig.DefaultWeight
	}

	edge := &model.Edge{
		FromRID:  from,
		ToRID:    to,
		Relation: relation,
		Weight:   weight,
	}
	if err := m.Edges.InsertEdge(edge); err != nil {
		return nil, helper.NewError("insert edge", err)
	}

	return edge, nil
}

// Search performs fused keyword + vector retrieval without graph expansion
func (m *MemoGraph) Search(ctx context.Context, query string, topK int) (*model.RetrievalResponse, error) {
	return m.Engine.Retrieve(ctx, model.RetrievalRequest{
		Query: query,
		TopK:  topK,
	})
}

// Retrieve runs the full retrieval pipeline with the given request
func (m *MemoGraph) Retrieve(ctx context.Context, req model.RetrievalRequest) (*model.RetrievalResponse, error) {
	return m.Engine.Retrieve(ctx, req)
}

// Synthesize produces a buffered narrative over a retrieval response
func (m *MemoGraph) Synthesize(ctx context.Context, query string, response *model.RetrievalResponse) (string, error) {
	return m.Engine.Synthesize(ctx, query, response)
}

// SynthesizeStream runs retrieval and streams the synthesis as ordered events
func (m *MemoGraph) SynthesizeStream(ctx context.Context, req model.RetrievalRequest) (<-chan model.SynthesisEvent, error) {
	return m.Engine.SynthesizeStream(ctx, req)
}

// Consolidate runs one consolidation pass for a note
func (m *MemoGraph) Consolidate(ctx context.Context, rid uuid.UUID) (*model.ConsolidationResult, error) {
	return m.Linker.Consolidate(ctx, rid)
}

// ConsolidateBatch consolidates a set of notes with bounded parallelism
func (m *MemoGraph) ConsolidateBatch(ctx context.Context, rids []uuid.UUID) (*model.BatchResult, error) {
	return m.Linker.ConsolidateBatch(ctx, rids)
}

// ConsolidateRecent consolidates every enriched note inside the recency window
func (m *MemoGraph) ConsolidateRecent(ctx context.Context) (*model.BatchResult, error) {
	return m.Linker.ConsolidateRecent(ctx)
}

// PersistClusters writes the cluster assignments of a retrieval response back
// to the notes. Notes outside the response keep their previous assignment.
func (m *MemoGraph) PersistClusters(clusters []*model.Cluster) error {
	for _, cluster := range clusters {
		for _, rid := range cluster.NoteRIDs {
			clusterID := cluster.ID
			if err := m.Notes.UpdateNoteCluster(rid, &clusterID); err != nil {
				return helper.NewError(fmt.Sprintf("assign note %s to cluster %d", rid, cluster.ID), err)
			}
		}
	}
	return nil
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
func (m *MemoGraph) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return m.Notes.ChangeIndexType(ctx, indexType, params)
}
