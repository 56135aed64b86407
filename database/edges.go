package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
	loadSql "github.com/siherrmann/memograph/sql"
)

// EdgesDBHandlerFunctions defines the interface for Edges database operations.
type EdgesDBHandlerFunctions interface {
	InsertEdge(edge *model.Edge) error
	InsertEdgeBatch(ctx context.Context, edges []*model.Edge) error
	SelectEdge(id int) (*model.Edge, error)
	SelectEdgesOfNote(rid uuid.UUID, relation *model.Relation) ([]*model.Edge, error)
	EdgeExists(from uuid.UUID, to uuid.UUID, relation model.Relation) (bool, error)
	UpdateEdgeWeight(id int, weight float64) error
	DeleteEdge(id int) error
}

// EdgesDBHandler handles edge-related database operations
type EdgesDBHandler struct {
	db *helper.Database
}

// NewEdgesDBHandler creates a new edges database handler.
// It initializes the database connection and loads edge-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEdgesDBHandler(db *helper.Database, force bool) (*EdgesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	edgesDbHandler := &EdgesDBHandler{
		db: db,
	}

	err := loadSql.LoadEdgesSql(edgesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load edges sql", err)
	}

	err = edgesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EdgesDBHandler")

	return edgesDbHandler, nil
}

// CreateTable creates the 'edges' table in the database.
// If the table already exists, it does not create it again.
// It also creates the relation enum and all necessary indexes.
func (h *EdgesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_edges();`)
	if err != nil {
		log.Panicf("error initializing edges table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table edges")

	return nil
}

func scanEdge(row interface{ Scan(...interface{}) error }) (*model.Edge, error) {
	edge := &model.Edge{}
	err := row.Scan(
		&edge.ID,
		&edge.FromRID,
		&edge.ToRID,
		&edge.Relation,
		&edge.Weight,
		&edge.Metadata,
		&edge.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return edge, nil
}

// InsertEdge inserts a new edge.
// The unique (from, to, relation) constraint rejects duplicate triples.
func (h *EdgesDBHandler) InsertEdge(edge *model.Edge) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_edge($1, $2, $3, $4, $5)`,
		edge.FromRID,
		edge.ToRID,
		edge.Relation,
		edge.Weight,
		edge.Metadata,
	)

	inserted, err := scanEdge(row)
	if err != nil {
		return helper.NewError("scan", err)
	}
	*edge = *inserted

	return nil
}

// InsertEdgeBatch inserts all edges in a single transaction.
// The batch is all-or-nothing; a half-applied batch is never visible to
// concurrent readers.
func (h *EdgesDBHandler) InsertEdgeBatch(ctx context.Context, edges []*model.Edge) error {
	if len(edges) == 0 {
		return nil
	}

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	for _, edge := range edges {
		row := tx.QueryRowContext(
			ctx,
			`SELECT * FROM insert_edge($1, $2, $3, $4, $5)`,
			edge.FromRID,
			edge.ToRID,
			edge.Relation,
			edge.Weight,
			edge.Metadata,
		)

		inserted, err := scanEdge(row)
		if err != nil {
			return helper.NewError("insert edge batch", err)
		}
		*edge = *inserted
	}

	if err := tx.Commit(); err != nil {
		return helper.NewError("commit transaction", err)
	}

	return nil
}

// SelectEdge retrieves an edge by ID
func (h *EdgesDBHandler) SelectEdge(id int) (*model.Edge, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_edge($1)`,
		id,
	)

	edge, err := scanEdge(row)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return edge, nil
}

// SelectEdgesOfNote retrieves edges adjacent to a note: all outgoing edges
// plus incoming edges with a symmetric relation. An optional relation
// filters the result.
func (h *EdgesDBHandler) SelectEdgesOfNote(rid uuid.UUID, relation *model.Relation) ([]*model.Edge, error) {
	var rows *sql.Rows
	var err error

	if relation != nil {
		rows, err = h.db.Instance.Query(
			`SELECT * FROM select_edges_of_note($1, $2)`,
			rid,
			*relation,
		)
	} else {
		rows, err = h.db.Instance.Query(
			`SELECT * FROM select_edges_of_note($1, NULL)`,
			rid,
		)
	}

	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var edges []*model.Edge
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		edges = append(edges, edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return edges, nil
}

// EdgeExists checks whether the (from, to, relation) triple is already
// linked. Symmetric relations also match the reversed direction.
func (h *EdgesDBHandler) EdgeExists(from uuid.UUID, to uuid.UUID, relation model.Relation) (bool, error) {
	var exists bool
	err := h.db.Instance.QueryRow(
		`SELECT edge_exists($1, $2, $3)`,
		from,
		to,
		relation,
	).Scan(&exists)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return exists, nil
}

// UpdateEdgeWeight updates the weight of an edge
func (h *EdgesDBHandler) UpdateEdgeWeight(id int, weight float64) error {
	_, err := h.db.Instance.Exec(
		`SELECT update_edge_weight($1, $2)`,
		id,
		weight,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// DeleteEdge deletes an edge by ID
func (h *EdgesDBHandler) DeleteEdge(id int) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_edge($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
