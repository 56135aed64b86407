package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
	loadSql "github.com/siherrmann/memograph/sql"
)

// NotesDBHandlerFunctions defines the interface for Notes database operations.
type NotesDBHandlerFunctions interface {
	InsertNote(note *model.Note) error
	SelectNote(rid uuid.UUID) (*model.Note, error)
	SearchFTS(query string, limit int) ([]*model.KeywordHit, error)
	SelectNotesBySimilarity(embedding []float32, limit int, threshold float64) ([]*model.VectorHit, error)
	SelectCandidateNotes(rid uuid.UUID, attrs []string, since *time.Time, limit int) ([]*model.Note, error)
	SelectNotesByStatus(status model.NoteStatus, since *time.Time, limit int) ([]*model.Note, error)
	UpdateNoteEnrichment(note *model.Note) error
	UpdateNoteCluster(rid uuid.UUID, clusterID *int) error
	DeleteNote(rid uuid.UUID) error
}

// NotesDBHandler handles note-related database operations
type NotesDBHandler struct {
	db *helper.Database
}

// NewNotesDBHandler creates a new notes database handler.
// It initializes the database connection and loads note-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewNotesDBHandler(db *helper.Database, embeddingDim int, force bool) (*NotesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	notesDbHandler := &NotesDBHandler{
		db: db,
	}

	err := loadSql.LoadNotesSql(notesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load notes sql", err)
	}

	err = notesDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized NotesDBHandler")

	return notesDbHandler, nil
}

// CreateTable creates the 'notes' table in the database.
// If the table already exists, it does not create it again.
// It also creates the status enum and all necessary indexes.
func (h *NotesDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_notes($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing notes table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table notes")

	return nil
}

// nullableVector scans a possibly NULL vector column.
type nullableVector struct {
	vec   pgvector.Vector
	valid bool
}

func (v *nullableVector) Scan(src interface{}) error {
	if src == nil {
		v.valid = false
		return nil
	}
	v.valid = true
	return v.vec.Scan(src)
}

// embeddingParam converts an embedding to a query parameter, keeping
// NULL for notes that have not been enriched yet.
func embeddingParam(embedding []float32) interface{} {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

// scanNote scans one full note row.
func scanNote(row interface{ Scan(...interface{}) error }) (*model.Note, error) {
	note := &model.Note{}
	var embedding nullableVector

	err := row.Scan(
		&note.ID,
		&note.RID,
		&note.Text,
		&embedding,
		pq.Array(&note.Who),
		pq.Array(&note.What),
		pq.Array(&note.Where),
		pq.Array(&note.When),
		pq.Array(&note.Tags),
		&note.IsTask,
		&note.IsIdea,
		&note.IsDecision,
		&note.ClusterID,
		&note.Status,
		&note.Metadata,
		&note.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if embedding.valid {
		note.Embedding = embedding.vec.Slice()
	}

	return note, nil
}

// InsertNote inserts a new note. The rid and created_at are assigned by the
// database and written back to the note.
func (h *NotesDBHandler) InsertNote(note *model.Note) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_note($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		note.Text,
		embeddingParam(note.Embedding),
		pq.Array(note.Who),
		pq.Array(note.What),
		pq.Array(note.Where),
		pq.Array(note.When),
		pq.Array(note.Tags),
		note.IsTask,
		note.IsIdea,
		note.IsDecision,
		note.Status,
		note.Metadata,
	)

	inserted, err := scanNote(row)
	if err != nil {
		return helper.NewError("scan", err)
	}
	*note = *inserted

	return nil
}

// SelectNote retrieves a note by rid.
// Returns model.ErrNoteNotFound for an unknown rid.
func (h *NotesDBHandler) SelectNote(rid uuid.UUID) (*model.Note, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_note($1)`,
		rid,
	)

	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNoteNotFound
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return note, nil
}

// SearchFTS performs a full-text search over note text.
// Scores are normalized to [0,1).
func (h *NotesDBHandler) SearchFTS(query string, limit int) ([]*model.KeywordHit, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM search_notes_fts($1, $2)`,
		query,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var hits []*model.KeywordHit
	for rows.Next() {
		hit := &model.KeywordHit{}
		err := rows.Scan(
			&hit.NoteRID,
			&hit.Score,
			&hit.Snippet,
			&hit.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		hits = append(hits, hit)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return hits, nil
}

// SelectNotesBySimilarity performs vector similarity search over enriched
// notes. Similarity is cosine, mapped to [0,1].
func (h *NotesDBHandler) SelectNotesBySimilarity(embedding []float32, limit int, threshold float64) ([]*model.VectorHit, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_notes_by_similarity($1, $2, $3)`,
		pgvector.NewVector(embedding),
		limit,
		threshold,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var hits []*model.VectorHit
	for rows.Next() {
		hit := &model.VectorHit{}
		err := rows.Scan(
			&hit.NoteRID,
			&hit.Score,
			&hit.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		hits = append(hits, hit)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return hits, nil
}

// SelectCandidateNotes returns linking candidates for a target note: notes
// sharing at least one episodic entity or tag with it, or created within the
// recency window. The target itself is excluded by the query.
func (h *NotesDBHandler) SelectCandidateNotes(rid uuid.UUID, attrs []string, since *time.Time, limit int) ([]*model.Note, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_candidate_notes($1, $2, $3, $4)`,
		rid,
		pq.Array(attrs),
		since,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanNotes(rows)
}

// SelectNotesByStatus returns notes in a given enrichment state, oldest
// first, optionally restricted to notes created after since.
func (h *NotesDBHandler) SelectNotesByStatus(status model.NoteStatus, since *time.Time, limit int) ([]*model.Note, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_notes_by_status($1, $2, $3)`,
		status,
		since,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanNotes(rows)
}

func scanNotes(rows *sql.Rows) ([]*model.Note, error) {
	var notes []*model.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		notes = append(notes, note)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return notes, nil
}

// UpdateNoteEnrichment stores the embedding and enriched episodic metadata
// of a note and marks it enriched. The updated row is written back.
func (h *NotesDBHandler) UpdateNoteEnrichment(note *model.Note) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_note_enrichment($1, $2, $3, $4, $5, $6, $7)`,
		note.RID,
		embeddingParam(note.Embedding),
		pq.Array(note.Who),
		pq.Array(note.What),
		pq.Array(note.Where),
		pq.Array(note.When),
		pq.Array(note.Tags),
	)

	updated, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNoteNotFound
	}
	if err != nil {
		return helper.NewError("scan", err)
	}
	*note = *updated

	return nil
}

// UpdateNoteCluster assigns a note to a materialized cluster.
// A nil clusterID clears the assignment.
func (h *NotesDBHandler) UpdateNoteCluster(rid uuid.UUID, clusterID *int) error {
	_, err := h.db.Instance.Exec(
		`SELECT update_note_cluster($1, $2)`,
		rid,
		clusterID,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// DeleteNote deletes a note by rid. Adjacent edges cascade.
func (h *NotesDBHandler) DeleteNote(rid uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_note($1)`,
		rid,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
