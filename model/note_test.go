package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoteSharedAttributes(t *testing.T) {
	t.Run("Union of episodic entities and tags", func(t *testing.T) {
		note := &Note{
			Who:   []string{"Sarah"},
			What:  []string{"auth service"},
			Where: []string{"office"},
			When:  []string{"yesterday"},
			Tags:  []string{"work"},
		}

		attrs := note.SharedAttributes()
		assert.Contains(t, attrs, "Sarah")
		assert.Contains(t, attrs, "auth service")
		assert.Contains(t, attrs, "office")
		assert.Contains(t, attrs, "work")
		// Temporal references are too coarse for overlap matching
		assert.NotContains(t, attrs, "yesterday")
	})

	t.Run("Empty note has no attributes", func(t *testing.T) {
		note := &Note{Text: "just text"}
		assert.Empty(t, note.SharedAttributes())
	})
}
