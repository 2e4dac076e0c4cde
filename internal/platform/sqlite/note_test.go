package sqlite

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardsplit/cardsplit/internal/domain"
	"github.com/cardsplit/cardsplit/internal/store"
)

// newTestStore returns an ephemeral in-memory collection.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(":memory:")
	require.NoError(t, err, "opening an in-memory collection should succeed")
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func mustNote(t *testing.T, fields map[string]string, tags ...string) *domain.Note {
	t.Helper()

	n, err := domain.NewNote("Basic", "Default", fields, tags)
	require.NoError(t, err)
	return n
}

func TestCreateAndGetNote(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	note := mustNote(t, map[string]string{"Front": "Q", "Back": "A"}, "med", "anatomy")
	require.NoError(t, s.CreateNote(ctx, note))

	got, err := s.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, note.ID, got.ID)
	assert.Equal(t, "Basic", got.NoteType)
	assert.Equal(t, "Default", got.Deck)
	assert.Equal(t, note.Fields, got.Fields)
	assert.ElementsMatch(t, note.Tags, got.Tags)
	assert.True(t, note.CreatedAt.Equal(got.CreatedAt), "timestamp should round-trip")
}

func TestGetNoteNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetNote(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNoteNotFound)
	assert.True(t, store.IsNotFoundError(err))
}

func TestAddTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	note := mustNote(t, map[string]string{"Front": "Q"})
	require.NoError(t, s.CreateNote(ctx, note))

	require.NoError(t, s.AddTag(ctx, note.ID, "marker"))
	require.NoError(t, s.AddTag(ctx, note.ID, "marker"), "re-adding a tag should be a no-op")

	got, err := s.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"marker"}, got.Tags)

	err = s.AddTag(ctx, uuid.New(), "marker")
	assert.ErrorIs(t, err, store.ErrNoteNotFound)
}

func TestSelectCandidates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	longAnswer := strings.Repeat("x", 300)

	long1 := mustNote(t, map[string]string{"Front": "Q1", "Back": longAnswer})
	short := mustNote(t, map[string]string{"Front": "Q2", "Back": "short"})
	tagged := mustNote(t, map[string]string{"Front": "Q3", "Back": longAnswer}, "LongAnswerSplitSource")
	derived := mustNote(t, map[string]string{"Front": "Q4", "Back": longAnswer}, "SplitFromLong")
	noQuestion := mustNote(t, map[string]string{"Back": longAnswer})
	long2 := mustNote(t, map[string]string{"Front": "Q6", "Back": longAnswer})

	for _, n := range []*domain.Note{long1, short, tagged, derived, noQuestion, long2} {
		require.NoError(t, s.CreateNote(ctx, n))
	}

	filter := store.SelectFilter{
		QuestionField:  "Front",
		AnswerField:    "Back",
		MaxAnswerChars: 220,
		ExcludeTags:    []string{"SplitFromLong", "LongAnswerSplitSource"},
	}

	candidates, err := s.SelectCandidates(ctx, filter)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{long1.ID, long2.ID}, ids,
		"only untagged notes with both fields and a long answer qualify")

	t.Run("limit", func(t *testing.T) {
		filter.Limit = 1
		limited, err := s.SelectCandidates(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})
}

func TestApplyCommitsAtomically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	source := mustNote(t, map[string]string{"Front": "Q", "Back": "long answer"}, "med")
	require.NoError(t, s.CreateNote(ctx, source))

	d1 := mustNote(t, map[string]string{"Front": "Q1", "Back": "A1"}, "med", "SplitFromLong")
	d2 := mustNote(t, map[string]string{"Front": "Q2", "Back": "A2"}, "med", "SplitFromLong")

	cs := store.ChangeSet{
		SourceID:  source.ID,
		SourceTag: "LongAnswerSplitSource",
		Derived:   []*domain.Note{d1, d2},
	}
	require.NoError(t, s.Apply(ctx, cs))

	got, err := s.GetNote(ctx, source.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Tags, "LongAnswerSplitSource", "source should carry the marker after Apply")

	for _, d := range []*domain.Note{d1, d2} {
		created, err := s.GetNote(ctx, d.ID)
		require.NoError(t, err)
		assert.Contains(t, created.Tags, "SplitFromLong")
	}
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d1 := mustNote(t, map[string]string{"Front": "Q1", "Back": "A1"})

	// The source note does not exist, so tagging it violates the foreign
	// key and the whole change set must roll back.
	cs := store.ChangeSet{
		SourceID:  uuid.New(),
		SourceTag: "LongAnswerSplitSource",
		Derived:   []*domain.Note{d1},
	}

	err := s.Apply(ctx, cs)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrCommitFailed)

	_, err = s.GetNote(ctx, d1.ID)
	assert.ErrorIs(t, err, store.ErrNoteNotFound,
		"derived note must not survive a failed commit")
}

func TestCreateNoteValidation(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateNote(context.Background(), &domain.Note{})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestCreateNoteDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	note := mustNote(t, map[string]string{"Front": "Q"})
	require.NoError(t, s.CreateNote(ctx, note))

	err := s.CreateNote(ctx, note)
	assert.Error(t, err, "inserting the same note ID twice should fail")
}
