package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/siherrmann/memograph"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
)

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port and credentials
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: helper.TestDatabase,
		Username: helper.TestUsername,
		Password: helper.TestPassword,
		Schema:   "public",
		SSLMode:  "disable",
	}

	m, err := memograph.NewMemoGraph(dbConfig, 384)
	if err != nil {
		log.Fatalf("Failed to create memograph: %v", err)
	}
	defer m.Close()

	if err := m.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	// Wire a link classifier and a streaming synthesizer on top of the
	// default embedder. Both are stand-ins for external model calls.
	m.Pipeline.SetSuggester(func(ctx context.Context, target *model.Note, candidates []*model.Note) ([]model.LinkProposal, error) {
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
	m.Pipeline.SetStreamer(func(ctx context.Context, query string, notes []*model.Note) (<-chan string, error) {
		out := make(chan string, len(notes)+1)
		go func() {
			defer close(out)
			out <- fmt.Sprintf("Found %d notes for %q. ", len(notes), query)
			for _, note := range notes {
				out <- strings.Split(note.Text, ".")[0] + ". "
			}
		}()
		return out, nil
	})
	m.SetPipeline(m.Pipeline)

	ctx := context.Background()

	// Capture and enrich a small working set
	notes := []*model.Note{
		{
			Text: "Sarah suggested splitting the auth service into token issuance and validation.",
			Who:  []string{"Sarah"},
			What: []string{"auth service"},
		},
		{
			Text: "Sarah's follow-up: the validation half should stay stateless.",
			Who:  []string{"Sarah"},
			What: []string{"auth service"},
		},
		{
			Text: "Decision: keep the session store on Redis for now.",
			What: []string{"session store"},
		},
	}

	fmt.Println("=== Ingesting Notes ===")
	for _, note := range notes {
		if err := m.CaptureNote(note); err != nil {
			log.Fatalf("Failed to capture note: %v", err)
		}
		if err := m.EnrichNote(ctx, note); err != nil {
			log.Fatalf("Failed to enrich note: %v", err)
		}
		fmt.Printf("Note %s ready\n", note.RID)
	}

	// Manual link between the decision and the first auth note
	edge, err := m.LinkNotes(notes[2].RID, notes[0].RID, model.RelationReferences, 0.6)
	if err != nil {
		log.Fatalf("Failed to link notes: %v", err)
	}
	fmt.Printf("Linked %s -> %s (%s)\n", edge.FromRID, edge.ToRID, edge.Relation)

	// Consolidation asks the classifier for links between the target and
	// its attribute-sharing candidates
	fmt.Println("\n=== Consolidation ===")
	result, err := m.Consolidate(ctx, notes[0].RID)
	if err != nil {
		log.Fatalf("Failed to consolidate: %v", err)
	}
	fmt.Printf("Candidates: %d, links created: %d in %s\n", result.CandidatesFound, result.LinksCreated, result.Duration)

	// Retrieval with graph expansion over the freshly created edges
	fmt.Println("\n=== Retrieval with Expansion ===")
	response, err := m.Retrieve(ctx, model.RetrievalRequest{
		Query:       "auth service split",
		TopK:        3,
		ExpandGraph: true,
		MaxHops:     2,
	})
	if err != nil {
		log.Fatalf("Failed to retrieve: %v", err)
	}

	for _, primary := range response.PrimaryResults {
		fmt.Printf("Primary %s score %.4f\n", primary.NoteRID, primary.Score)
	}
	for _, expanded := range response.ExpandedResults {
		fmt.Printf("Expanded %s via %s, hop %d, relevance %.4f\n",
			expanded.NoteRID, expanded.Relation, expanded.HopDistance, expanded.Relevance)
	}
	for _, cluster := range response.Clusters {
		fmt.Printf("Cluster %d with %d members (shared: %v)\n", cluster.ID, cluster.Size(), cluster.SharedAttributes)
	}

	// Streaming synthesis over the same request
	fmt.Println("\n=== Streaming Synthesis ===")
	events, err := m.SynthesizeStream(ctx, model.RetrievalRequest{
		Query: "auth service split",
		TopK:  3,
	})
	if err != nil {
		log.Fatalf("Failed to start synthesis stream: %v", err)
	}

	for event := range events {
		switch event.Kind {
		case model.SynthesisEventMetadata:
			fmt.Printf("[metadata] %v\n", event.Metadata)
		case model.SynthesisEventChunk:
			fmt.Print(event.Chunk)
		case model.SynthesisEventResults:
			fmt.Printf("\n[results] %d primary\n", len(event.Results.PrimaryResults))
		case model.SynthesisEventDone:
			if event.Err != nil {
				fmt.Printf("[done] with error: %v\n", event.Err)
			} else {
				fmt.Println("[done]")
			}
		}
	}

	fmt.Println("\nAdvanced example completed successfully!")
}
