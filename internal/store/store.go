// Package store defines the persistence boundary of the pipeline: the
// CollectionStore interface, its error sentinels, and the transaction
// helper shared by implementations.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/cardsplit/cardsplit/internal/domain"
)

// SelectFilter describes the candidate pre-filter: notes that have both
// configured fields, whose answer field exceeds MaxAnswerChars, and that
// carry none of the excluded marker tags. Selection order is stable
// (creation order, then ID).
type SelectFilter struct {
	QuestionField  string
	AnswerField    string
	MaxAnswerChars int
	ExcludeTags    []string
	Limit          int
}

// ChangeSet is the unit of commit for one successful split: the derived
// notes to create, in order, plus the marker tag to add to the source.
// A change set is applied atomically; either every derived note exists
// and the source is tagged, or nothing changed.
type ChangeSet struct {
	SourceID  uuid.UUID
	SourceTag string
	Derived   []*domain.Note
}

// CollectionStore is the persistence boundary of the pipeline. It stands
// in for the host collection API: note lookup, candidate selection, note
// creation, tagging, and the atomic application of a split's change set.
type CollectionStore interface {
	// GetNote retrieves a note by ID. Returns ErrNoteNotFound if absent.
	GetNote(ctx context.Context, id uuid.UUID) (*domain.Note, error)

	// SelectCandidates returns, in stable order, the notes matching the
	// filter.
	SelectCandidates(ctx context.Context, f SelectFilter) ([]*domain.Note, error)

	// CreateNote persists a new note with its fields and tags.
	CreateNote(ctx context.Context, n *domain.Note) error

	// AddTag adds a tag to an existing note. Adding a tag the note
	// already carries is a no-op.
	AddTag(ctx context.Context, id uuid.UUID, tag string) error

	// Apply commits a change set in a single scoped transaction.
	// Failures wrap ErrCommitFailed.
	Apply(ctx context.Context, cs ChangeSet) error
}
