package model

import "github.com/google/uuid"

// Cluster is a derived grouping of notes. The theme narrative is filled in
// by the external synthesis collaborator; the engine only produces membership
// and the shared attributes that link the members.
type Cluster struct {
	ID               int         `json:"id"`
	NoteRIDs         []uuid.UUID `json:"note_rids"`
	SharedAttributes []string    `json:"shared_attributes,omitempty"`
	Theme            string      `json:"theme,omitempty"`
}

// Size returns the number of member notes.
func (c *Cluster) Size() int {
	return len(c.NoteRIDs)
}
