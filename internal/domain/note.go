package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Note-specific validation errors
var (
	// ErrNoteIDEmpty is returned when a note ID is empty or nil.
	ErrNoteIDEmpty = errors.New("note ID cannot be empty")

	// ErrNoteTypeEmpty is returned when a note's type identifier is empty.
	ErrNoteTypeEmpty = errors.New("note type cannot be empty")

	// ErrNoteFieldsEmpty is returned when a note has no fields at all.
	ErrNoteFieldsEmpty = errors.New("note must have at least one field")
)

// Note represents one question/answer unit in the collection. Fields are
// keyed by field name, matching the note type's schema; which fields hold
// the question and the answer is configuration, not structure.
type Note struct {
	ID        uuid.UUID         `json:"id"`
	NoteType  string            `json:"note_type"`
	Deck      string            `json:"deck"`
	Fields    map[string]string `json:"fields"`
	Tags      []string          `json:"tags"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewNote creates a new Note with the given type, deck, fields and tags.
// It generates a new UUID for the note ID and sets the creation timestamp.
// Returns an error if validation fails.
func NewNote(noteType, deck string, fields map[string]string, tags []string) (*Note, error) {
	note := &Note{
		ID:        uuid.New(),
		NoteType:  noteType,
		Deck:      deck,
		Fields:    fields,
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
	}

	if err := note.Validate(); err != nil {
		return nil, err
	}

	return note, nil
}

// Validate checks if the Note has valid data.
// Returns an error if any field fails validation.
func (n *Note) Validate() error {
	if n.ID == uuid.Nil {
		return ErrNoteIDEmpty
	}

	if n.NoteType == "" {
		return ErrNoteTypeEmpty
	}

	if len(n.Fields) == 0 {
		return ErrNoteFieldsEmpty
	}

	return nil
}

// HasTag reports whether the note carries the given tag.
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasField reports whether the note's schema includes the named field.
func (n *Note) HasField(name string) bool {
	_, ok := n.Fields[name]
	return ok
}

// Field returns the value of the named field, or the empty string if the
// field is not present.
func (n *Note) Field(name string) string {
	return n.Fields[name]
}

// ProcessingState classifies a note with respect to the split pipeline.
// The tag set is the only persisted state: a note carrying the source
// marker has already been split, a note carrying the derived marker is
// itself a split product, and anything else is fair game.
type ProcessingState string

// Possible processing states
const (
	StateUnprocessed ProcessingState = "unprocessed"
	StateSource      ProcessingState = "source"
	StateDerived     ProcessingState = "derived"
)

// StateOf derives the note's processing state from its tags. A note that
// carries both markers reports StateSource; either marker alone is enough
// to exclude it from processing.
func StateOf(n *Note, newNoteTag, sourceNoteTag string) ProcessingState {
	switch {
	case n.HasTag(sourceNoteTag):
		return StateSource
	case n.HasTag(newNoteTag):
		return StateDerived
	default:
		return StateUnprocessed
	}
}
