package memograph

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/memograph/core/pipeline"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEmbedder creates a simple deterministic embedder for testing
func testEmbedder(dimension int) pipeline.EmbedFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		embedding := make([]float32, dimension)
		for i := 0; i < dimension; i++ {
			embedding[i] = float32((len(text)+i)%100) / 100.0
		}
		return embedding, nil
	}
}

func initMemoGraph(t *testing.T) *MemoGraph {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	m, err := NewMemoGraph(dbConfig, 3)
	require.NoError(t, err, "failed to create memograph")
	require.NotNil(t, m, "expected memograph to be non-nil")

	m.SetPipeline(pipeline.NewPipeline(testEmbedder(3)))

	t.Cleanup(func() {
		m.Close()
	})

	return m
}

func TestNewMemoGraph(t *testing.T) {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err)

	t.Run("Valid call NewMemoGraph", func(t *testing.T) {
		m, err := NewMemoGraph(dbConfig, 3)
		require.NoError(t, err, "Expected NewMemoGraph to not return an error")
		require.NotNil(t, m, "Expected NewMemoGraph to return a non-nil instance")
		assert.NotNil(t, m.DB, "Expected memograph to have a database instance")
		assert.NotNil(t, m.Notes, "Expected memograph to have notes handler")
		assert.NotNil(t, m.Edges, "Expected memograph to have edges handler")
		assert.NotNil(t, m.Engine, "Expected memograph to have a retrieval engine")
		assert.NotNil(t, m.Linker, "Expected memograph to have a consolidation linker")
		assert.Nil(t, m.Pipeline, "Expected pipeline to be nil initially")

		// Cleanup
		err = m.Close()
		assert.NoError(t, err, "Expected Close to not return an error")
	})

	t.Run("MemoGraph with nil database handles Close gracefully", func(t *testing.T) {
		m := &MemoGraph{}

		err := m.Close()
		assert.NoError(t, err, "Expected Close to handle nil DB gracefully")
	})
}

func TestCaptureAndEnrich(t *testing.T) {
	m := initMemoGraph(t)

	t.Run("Captured note is keyword searchable before enrichment", func(t *testing.T) {
		note := &model.Note{Text: "Remember to fix the greenhouse thermostat"}
		err := m.CaptureNote(note)
		require.NoError(t, err)
		defer m.Notes.DeleteNote(note.RID)

		assert.Equal(t, model.NoteStatusCaptured, note.Status)

		hits, err := m.Notes.SearchFTS("greenhouse thermostat", 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, note.RID, hits[0].NoteRID)
	})

	t.Run("Capture rejects empty text", func(t *testing.T) {
		err := m.CaptureNote(&model.Note{})
		assert.Error(t, err)
	})

	t.Run("Enrichment computes the embedding and flips the status", func(t *testing.T) {
		note := &model.Note{Text: "Sketch the rollout plan with Priya"}
		require.NoError(t, m.CaptureNote(note))
		defer m.Notes.DeleteNote(note.RID)

		note.Who = []string{"Priya"}
		err := m.EnrichNote(context.Background(), note)
		require.NoError(t, err)

		assert.Equal(t, model.NoteStatusEnriched, note.Status)
		assert.Len(t, note.Embedding, 3)
		assert.Equal(t, []string{"Priya"}, note.Who)
	})

	t.Run("EnrichPending enriches captured notes", func(t *testing.T) {
		note := &model.Note{Text: "Backlog grooming notes"}
		require.NoError(t, m.CaptureNote(note))
		defer m.Notes.DeleteNote(note.RID)

		count, err := m.EnrichPending(context.Background(), 10)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, 1)

		enriched, err := m.Notes.SelectNote(note.RID)
		require.NoError(t, err)
		assert.Equal(t, model.NoteStatusEnriched, enriched.Status)
	})
}

func TestLinkNotes(t *testing.T) {
	m := initMemoGraph(t)

	noteA := &model.Note{Text: "first note"}
	noteB := &model.Note{Text: "second note"}
	require.NoError(t, m.CaptureNote(noteA))
	require.NoError(t, m.CaptureNote(noteB))
	t.Cleanup(func() {
		m.Notes.DeleteNote(noteA.RID)
		m.Notes.DeleteNote(noteB.RID)
	})

	t.Run("Valid relation creates the edge", func(t *testing.T) {
		edge, err := m.LinkNotes(noteA.RID, noteB.RID, model.RelationSpawned, 0.8)
		require.NoError(t, err)
		assert.NotEmpty(t, edge.ID)
		assert.Equal(t, 0.8, edge.Weight)

		// Cleanup
		m.Edges.DeleteEdge(edge.ID)
	})

	t.Run("Zero weight falls back to the default", func(t *testing.T) {
		edge, err := m.LinkNotes(noteA.RID, noteB.RID, model.RelationReferences, 0)
		require.NoError(t, err)
		assert.Equal(t, model.DefaultConsolidationConfig().DefaultWeight, edge.Weight)

		// Cleanup
		m.Edges.DeleteEdge(edge.ID)
	})

	t.Run("Unknown relation is rejected", func(t *testing.T) {
		_, err := m.LinkNotes(noteA.RID, noteB.RID, "friends_with", 0.5)
		assert.ErrorIs(t, err, model.ErrInvalidRelation)
	})
}

func TestRetrieveWithExpansion(t *testing.T) {
	m := initMemoGraph(t)
	ctx := context.Background()

	seed := &model.Note{Text: "Ceramics studio membership renewal due soon"}
	neighbor := &model.Note{Text: "Buy more clay for the ceramics wheel"}
	require.NoError(t, m.CaptureNote(seed))
	require.NoError(t, m.CaptureNote(neighbor))
	t.Cleanup(func() {
		m.Notes.DeleteNote(seed.RID)
		m.Notes.DeleteNote(neighbor.RID)
	})

	require.NoError(t, m.EnrichNote(ctx, seed))
	require.NoError(t, m.EnrichNote(ctx, neighbor))

	edge, err := m.LinkNotes(seed.RID, neighbor.RID, model.RelationRelated, 0.9)
	require.NoError(t, err)
	t.Cleanup(func() {
		m.Edges.DeleteEdge(edge.ID)
	})

	// Keep only the strongest fused result as seed so the linked note is
	// discovered through the graph rather than through vector search.
	config := model.DefaultQueryConfig()
	config.TopK = 1
	config.SeedCount = 1
	m.SetQueryConfig(config)

	t.Run("Expansion reaches the linked note", func(t *testing.T) {
		response, err := m.Retrieve(ctx, model.RetrievalRequest{
			Query:       "membership renewal",
			ExpandGraph: true,
			MaxHops:     2,
		})
		require.NoError(t, err)
		require.NotEmpty(t, response.PrimaryResults)

		found := false
		for _, expanded := range response.ExpandedResults {
			if expanded.NoteRID == neighbor.RID {
				found = true
				assert.Equal(t, 1, expanded.HopDistance)
			}
		}
		assert.True(t, found, "Expected the related note in the expanded results")
	})

	t.Run("Search without expansion stays primary", func(t *testing.T) {
		response, err := m.Search(ctx, "membership renewal", 5)
		require.NoError(t, err)
		assert.NotEmpty(t, response.PrimaryResults)
		assert.Empty(t, response.ExpandedResults)
	})
}

func TestConsolidateFlow(t *testing.T) {
	m := initMemoGraph(t)
	ctx := context.Background()

	target := &model.Note{Text: "Sarah suggested splitting the auth service", Who: []string{"Sarah"}}
	related := &model.Note{Text: "Sarah's notes on service boundaries", Who: []string{"Sarah"}}
	require.NoError(t, m.CaptureNote(target))
	require.NoError(t, m.CaptureNote(related))
	t.Cleanup(func() {
		m.Notes.DeleteNote(target.RID)
		m.Notes.DeleteNote(related.RID)
	})

	pipe := pipeline.NewPipeline(testEmbedder(3))
	pipe.SetSuggester(func(ctx context.Context, tgt *model.Note, candidates []*model.Note) ([]model.LinkProposal, error) {
		var proposals []model.LinkProposal
		for _, candidate := range candidates {
			proposals = append(proposals, model.LinkProposal{
				NoteRID:  candidate.RID,
				Relation: model.RelationRelated,
				Weight:   0.7,
			})
		}
		return proposals, nil
	})
	m.SetPipeline(pipe)

	result, err := m.Consolidate(ctx, target.RID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.CandidatesFound, 1)
	assert.GreaterOrEqual(t, result.LinksCreated, 1)

	exists, err := m.Edges.EdgeExists(target.RID, related.RID, model.RelationRelated)
	require.NoError(t, err)
	assert.True(t, exists, "Expected consolidation to link the shared entity note")
}

func TestConsolidationLockSurvivesReconfiguration(t *testing.T) {
	m := initMemoGraph(t)
	ctx := context.Background()

	target := &model.Note{Text: "Sarah on lock semantics", Who: []string{"Sarah"}}
	other := &model.Note{Text: "Sarah's follow-up note", Who: []string{"Sarah"}}
	require.NoError(t, m.CaptureNote(target))
	require.NoError(t, m.CaptureNote(other))
	t.Cleanup(func() {
		m.Notes.DeleteNote(target.RID)
		m.Notes.DeleteNote(other.RID)
	})

	entered := make(chan struct{})
	proceed := make(chan struct{})
	pipe := pipeline.NewPipeline(testEmbedder(3))
	pipe.SetSuggester(func(ctx context.Context, tgt *model.Note, candidates []*model.Note) ([]model.LinkProposal, error) {
		close(entered)
		<-proceed
		return nil, nil
	})
	m.SetPipeline(pipe)

	done := make(chan error, 1)
	go func() {
		_, err := m.Consolidate(ctx, target.RID)
		done <- err
	}()
	<-entered

	// Rebuilds the linker while the first run still holds the note lock
	m.SetConsolidationConfig(model.DefaultConsolidationConfig())

	_, err := m.Consolidate(ctx, target.RID)
	assert.ErrorIs(t, err, model.ErrConsolidationInFlight,
		"Expected the in-flight run to still exclude new runs after reconfiguration")

	close(proceed)
	require.NoError(t, <-done)
}

func TestPersistClusters(t *testing.T) {
	m := initMemoGraph(t)

	noteA := &model.Note{Text: "cluster member one"}
	noteB := &model.Note{Text: "cluster member two"}
	require.NoError(t, m.CaptureNote(noteA))
	require.NoError(t, m.CaptureNote(noteB))
	t.Cleanup(func() {
		m.Notes.DeleteNote(noteA.RID)
		m.Notes.DeleteNote(noteB.RID)
	})

	clusters := []*model.Cluster{
		{ID: 1, NoteRIDs: []uuid.UUID{noteA.RID, noteB.RID}},
	}

	err := m.PersistClusters(clusters)
	require.NoError(t, err)

	selected, err := m.Notes.SelectNote(noteA.RID)
	require.NoError(t, err)
	require.NotNil(t, selected.ClusterID)
	assert.Equal(t, 1, *selected.ClusterID)
}
