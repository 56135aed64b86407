package model

import (
	"time"

	"github.com/google/uuid"
)

// Relation represents the type of relationship between notes.
// The taxonomy is closed; proposals with an unknown relation are invalid.
type Relation string

const (
	RelationRelated     Relation = "related"
	RelationSpawned     Relation = "spawned"
	RelationReferences  Relation = "references"
	RelationContradicts Relation = "contradicts"
	RelationSemantic    Relation = "semantic"
	RelationEntityLink  Relation = "entity_link"
	RelationTagLink     Relation = "tag_link"
)

// Relations lists all valid relations.
var Relations = []Relation{
	RelationRelated,
	RelationSpawned,
	RelationReferences,
	RelationContradicts,
	RelationSemantic,
	RelationEntityLink,
	RelationTagLink,
}

// symmetricRelations are queryable from either endpoint even though
// edges are stored directed.
var symmetricRelations = map[Relation]bool{
	RelationRelated:     true,
	RelationContradicts: true,
	RelationSemantic:    true,
}

// Valid reports whether r is part of the closed relation taxonomy.
func (r Relation) Valid() bool {
	for _, relation := range Relations {
		if r == relation {
			return true
		}
	}
	return false
}

// Symmetric reports whether the relation is queryable from either endpoint.
func (r Relation) Symmetric() bool {
	return symmetricRelations[r]
}

// Edge represents a typed, weighted link between two notes.
// The (FromRID, ToRID, Relation) triple is unique.
type Edge struct {
	ID        int       `json:"id"`
	FromRID   uuid.UUID `json:"from_rid"`
	ToRID     uuid.UUID `json:"to_rid"`
	Relation  Relation  `json:"relation"`
	Weight    float64   `json:"weight"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Other returns the endpoint of the edge that is not rid.
func (e *Edge) Other(rid uuid.UUID) uuid.UUID {
	if e.FromRID == rid {
		return e.ToRID
	}
	return e.FromRID
}

// LinkProposal is a (note, relation) pair proposed by the external classifier
// for a consolidation target.
type LinkProposal struct {
	NoteRID  uuid.UUID `json:"note_rid"`
	Relation Relation  `json:"relation"`
	Weight   float64   `json:"weight,omitempty"`
}
