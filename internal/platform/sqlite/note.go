package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cardsplit/cardsplit/internal/domain"
	"github.com/cardsplit/cardsplit/internal/store"
)

// timeLayout is the canonical storage format for timestamps.
const timeLayout = time.RFC3339Nano

// execer abstracts *sql.DB and *sql.Tx for the write helpers.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// GetNote retrieves a note with its fields and tags.
// Returns store.ErrNoteNotFound if the note does not exist.
func (s *Store) GetNote(ctx context.Context, id uuid.UUID) (*domain.Note, error) {
	note := &domain.Note{ID: id, Fields: map[string]string{}}

	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT note_type, deck, created_at FROM notes WHERE id = ?", id.String(),
	).Scan(&note.NoteType, &note.Deck, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query note: %w", err)
	}

	note.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse note timestamp: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, value FROM note_fields WHERE note_id = ?", id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query note fields: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan note field: %w", err)
		}
		note.Fields[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate note fields: %w", err)
	}

	tagRows, err := s.db.QueryContext(ctx,
		"SELECT tag FROM note_tags WHERE note_id = ? ORDER BY tag", id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query note tags: %w", err)
	}
	defer func() { _ = tagRows.Close() }()

	for tagRows.Next() {
		var tag string
		if err := tagRows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan note tag: %w", err)
		}
		note.Tags = append(note.Tags, tag)
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate note tags: %w", err)
	}

	return note, nil
}

// SelectCandidates returns the notes matching the filter in creation
// order. This is the candidate pre-filter: both configured fields must
// exist, the answer field must exceed the length threshold, and none of
// the excluded marker tags may be present.
func (s *Store) SelectCandidates(ctx context.Context, f store.SelectFilter) ([]*domain.Note, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT n.id FROM notes n
JOIN note_fields q ON q.note_id = n.id AND q.name = ?
JOIN note_fields a ON a.note_id = n.id AND a.name = ? AND length(a.value) > ?`)

	args := []any{f.QuestionField, f.AnswerField, f.MaxAnswerChars}

	if len(f.ExcludeTags) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.ExcludeTags)), ",")
		sb.WriteString(" WHERE NOT EXISTS (SELECT 1 FROM note_tags t WHERE t.note_id = n.id AND t.tag IN (")
		sb.WriteString(placeholders)
		sb.WriteString("))")
		for _, tag := range f.ExcludeTags {
			args = append(args, tag)
		}
	}

	sb.WriteString(" ORDER BY n.created_at, n.id")

	if f.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan candidate ID: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse candidate ID %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}

	notes := make([]*domain.Note, 0, len(ids))
	for _, id := range ids {
		note, err := s.GetNote(ctx, id)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}

	return notes, nil
}

// CreateNote persists a new note with its fields and tags in one
// transaction.
func (s *Store) CreateNote(ctx context.Context, n *domain.Note) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return createNote(ctx, tx, n)
	})
}

// AddTag adds a tag to an existing note. Re-adding an existing tag is a
// no-op; tagging a missing note returns store.ErrNoteNotFound.
func (s *Store) AddTag(ctx context.Context, id uuid.UUID, tag string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM notes WHERE id = ?", id.String()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNoteNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check note existence: %w", err)
	}

	return addTag(ctx, s.db, id, tag)
}

// Apply commits a change set atomically: every derived note is created,
// in order, and the source note receives its marker tag, or nothing
// changes at all. Any failure wraps store.ErrCommitFailed.
func (s *Store) Apply(ctx context.Context, cs store.ChangeSet) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		for _, n := range cs.Derived {
			if err := createNote(ctx, tx, n); err != nil {
				return err
			}
		}

		// The FOREIGN KEY on note_tags makes tagging a missing source fail
		// here, rolling back the derived notes with it.
		return addTag(ctx, tx, cs.SourceID, cs.SourceTag)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrCommitFailed, err)
	}

	return nil
}

// createNote inserts the note row plus its fields and tags.
func createNote(ctx context.Context, e execer, n *domain.Note) error {
	_, err := e.ExecContext(ctx,
		"INSERT INTO notes (id, note_type, deck, created_at) VALUES (?, ?, ?, ?)",
		n.ID.String(), n.NoteType, n.Deck, n.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert note %s: %w", n.ID, err)
	}

	for name, value := range n.Fields {
		if _, err := e.ExecContext(ctx,
			"INSERT INTO note_fields (note_id, name, value) VALUES (?, ?, ?)",
			n.ID.String(), name, value); err != nil {
			return fmt.Errorf("failed to insert field %q of note %s: %w", name, n.ID, err)
		}
	}

	for _, tag := range n.Tags {
		if err := addTag(ctx, e, n.ID, tag); err != nil {
			return err
		}
	}

	return nil
}

// addTag inserts a tag, ignoring duplicates.
func addTag(ctx context.Context, e execer, id uuid.UUID, tag string) error {
	_, err := e.ExecContext(ctx,
		"INSERT OR IGNORE INTO note_tags (note_id, tag) VALUES (?, ?)",
		id.String(), tag)
	if err != nil {
		return fmt.Errorf("failed to add tag %q to note %s: %w", tag, id, err)
	}
	return nil
}
