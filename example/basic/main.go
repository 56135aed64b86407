package main

import (
	"context"
	"fmt"
	"log"

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

	// Set up the default pipeline (local embeddings)
	if err := m.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	// Capture a few notes - they are keyword searchable immediately
	notes := []*model.Note{
		{
			Text: "Sarah suggested splitting the auth service into token issuance and validation.",
			Who:  []string{"Sarah"},
			What: []string{"auth service"},
			Tags: []string{"architecture"},
		},
		{
			Text:   "Remember to renew the ceramics studio membership before Friday.",
			Where:  []string{"ceramics studio"},
			IsTask: true,
		},
		{
			Text:   "Idea: a weekly digest that clusters recent notes by shared people and topics.",
			IsIdea: true,
			Tags:   []string{"digest"},
		},
	}

	fmt.Println("=== Capturing Notes ===")
	for _, note := range notes {
		if err := m.CaptureNote(note); err != nil {
			log.Fatalf("Failed to capture note: %v", err)
		}
		fmt.Printf("Captured note %s\n", note.RID)
	}

	// Enrich all pending notes (computes embeddings, flips status)
	ctx := context.Background()
	enriched, err := m.EnrichPending(ctx, 0)
	if err != nil {
		log.Fatalf("Failed to enrich notes: %v", err)
	}
	fmt.Printf("Enriched %d notes\n", enriched)

	// Fused keyword + vector search
	queryText := "auth service architecture"
	fmt.Printf("\nQuerying: %s\n", queryText)

	response, err := m.Search(ctx, queryText, 5)
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}

	fmt.Printf("\nFound %d results:\n", len(response.PrimaryResults))
	for i, result := range response.PrimaryResults {
		fmt.Printf("\n--- Result %d ---\n", i+1)
		fmt.Printf("Note: %s\n", result.NoteRID)
		fmt.Printf("Score: %.4f (keyword %.4f, vector %.4f)\n", result.Score, result.KeywordScore, result.VectorScore)
		if result.Snippet != "" {
			fmt.Printf("Snippet: %s\n", result.Snippet)
		}
	}

	fmt.Println("\nBasic example completed successfully!")
}
