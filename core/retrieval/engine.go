package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/memograph/core/pipeline"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
)

// NoteSource provides the note store primitives the engine consumes.
type NoteSource interface {
	SearchFTS(query string, limit int) ([]*model.KeywordHit, error)
	SelectNotesBySimilarity(embedding []float32, limit int, threshold float64) ([]*model.VectorHit, error)
	SelectNote(rid uuid.UUID) (*model.Note, error)
}

// Engine composes score fusion, graph expansion and clustering into the
// retrieval pipeline exposed at the boundary.
type Engine struct {
	notes  NoteSource
	edges  EdgeSource
	pipe   *pipeline.Pipeline
	config model.QueryConfig
	log    *slog.Logger
}

// NewEngine creates a new retrieval engine
func NewEngine(notes NoteSource, edges EdgeSource, pipe *pipeline.Pipeline, config model.QueryConfig, logger *slog.Logger) *Engine {
	return &Engine{
		notes:  notes,
		edges:  edges,
		pipe:   pipe,
		config: config,
		log:    logger,
	}
}

// Retrieve runs the full pipeline: keyword + vector search, score fusion,
// optional graph expansion and clustering. Sub-stage failures degrade the
// answer instead of failing the query; only the loss of both search sources
// is an error.
func (e *Engine) Retrieve(ctx context.Context, req model.RetrievalRequest) (*model.RetrievalResponse, error) {
	start := time.Now()

	config := e.config
	if req.TopK > 0 {
		config.TopK = req.TopK
	}

	response := &model.RetrievalResponse{}

	keywordHits, keywordErr := e.notes.SearchFTS(req.Query, config.TopK)
	if keywordErr != nil {
		e.log.Warn("Keyword search failed, degrading to vector-only", slog.String("error", keywordErr.Error()))
		response.Degraded = true
	}

	vectorHits, vectorErr := e.vectorSearch(ctx, req.Query, config)
	if vectorErr != nil {
		e.log.Warn("Vector search failed, degrading to keyword-only", slog.String("error", vectorErr.Error()))
		response.Degraded = true
	}

	if keywordErr != nil && vectorErr != nil {
		return nil, helper.NewError("retrieve", fmt.Errorf("both search sources failed: %v, %v", keywordErr, vectorErr))
	}

	response.PrimaryResults = FuseResults(keywordHits, vectorHits, &config)

	if req.ExpandGraph && req.MaxHops > 0 && len(response.PrimaryResults) > 0 {
		seeds := response.PrimaryResults
		if config.SeedCount > 0 && len(seeds) > config.SeedCount {
			seeds = seeds[:config.SeedCount]
		}

		expanded, err := Expand(e.edges, seeds, req.MaxHops, config.Relations, config.DecayFactor)
		if err != nil {
			e.log.Warn("Graph expansion failed, returning primary results only", slog.String("error", err.Error()))
			response.Degraded = true
		} else {
			response.ExpandedResults = expanded
		}
	}

	response.Clusters = ComputeClusters(e.workingSet(response), &config)
	response.ExecutionTime = time.Since(start)

	return response, nil
}

// vectorSearch embeds the query and runs similarity search.
func (e *Engine) vectorSearch(ctx context.Context, query string, config model.QueryConfig) ([]*model.VectorHit, error) {
	if e.pipe == nil || e.pipe.Embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}

	embedding, err := e.pipe.Embedder(ctx, query)
	if err != nil {
		return nil, err
	}

	return e.notes.SelectNotesBySimilarity(embedding, config.TopK, config.SimilarityThreshold)
}

// workingSet loads the notes referenced by primary and expanded results.
// Notes that disappeared under the query are skipped.
func (e *Engine) workingSet(response *model.RetrievalResponse) []*model.Note {
	seen := make(map[uuid.UUID]bool)
	var notes []*model.Note

	load := func(rid uuid.UUID) {
		if seen[rid] {
			return
		}
		seen[rid] = true

		note, err := e.notes.SelectNote(rid)
		if err != nil {
			return
		}
		notes = append(notes, note)
	}

	for _, result := range response.PrimaryResults {
		load(result.NoteRID)
	}
	for _, expanded := range response.ExpandedResults {
		load(expanded.NoteRID)
	}

	return notes
}

// Synthesize produces a buffered narrative over the notes of a retrieval
// response, delegating to the external synthesis collaborator.
func (e *Engine) Synthesize(ctx context.Context, query string, response *model.RetrievalResponse) (string, error) {
	if e.pipe == nil || e.pipe.Synthesizer == nil {
		return "", helper.NewError("synthesize", fmt.Errorf("no synthesizer configured"))
	}

	return e.pipe.Synthesizer(ctx, query, e.workingSet(response))
}
