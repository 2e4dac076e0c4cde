package split

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cardsplit/cardsplit/internal/config"
	"github.com/cardsplit/cardsplit/internal/domain"
	"github.com/cardsplit/cardsplit/internal/store"
)

// Materializer turns a source note plus a validated split result into
// the change set to persist, and owns the pre-check that makes the whole
// pipeline idempotent.
type Materializer struct {
	questionField string
	answerField   string
	newNoteTag    string
	sourceNoteTag string
	defaultDeck   string
}

// NewMaterializer builds a Materializer from the split configuration.
func NewMaterializer(cfg config.SplitConfig, defaultDeck string) *Materializer {
	return &Materializer{
		questionField: cfg.QuestionField,
		answerField:   cfg.AnswerField,
		newNoteTag:    cfg.NewNoteTag,
		sourceNoteTag: cfg.SourceNoteTag,
		defaultDeck:   defaultDeck,
	}
}

// State reports the note's processing state with respect to the marker
// tags.
func (m *Materializer) State(n *domain.Note) domain.ProcessingState {
	return domain.StateOf(n, m.newNoteTag, m.sourceNoteTag)
}

// ShouldProcess reports whether the note is still an eligible candidate.
// It returns false for notes already carrying either marker tag (a note
// that was split, or is itself a split product) and for notes missing
// one of the configured fields. This runs before any backend call; the
// tag set is the sole idempotency guard.
func (m *Materializer) ShouldProcess(n *domain.Note) bool {
	if m.State(n) != domain.StateUnprocessed {
		return false
	}

	return n.HasField(m.questionField) && n.HasField(m.answerField)
}

// ProvenanceTag returns the tag that ties a derived note back to its
// source.
func (m *Materializer) ProvenanceTag(sourceID uuid.UUID) string {
	return fmt.Sprintf("%s_%s", m.newNoteTag, sourceID)
}

// Plan builds the change set for one successful split: one derived note
// per card pair, in the order given. Each derived note copies every
// field of the source, overwrites exactly the configured question and
// answer fields, and carries the source's tags plus the new-note marker
// and the provenance tag. The source itself is only marked, never
// modified otherwise.
func (m *Materializer) Plan(n *domain.Note, pairs []domain.CardPair) (store.ChangeSet, error) {
	if len(pairs) == 0 {
		return store.ChangeSet{}, fmt.Errorf("cannot plan a split with no card pairs")
	}

	deck := n.Deck
	if deck == "" {
		deck = m.defaultDeck
	}

	tags := deriveTags(n.Tags, m.newNoteTag, m.ProvenanceTag(n.ID))

	now := time.Now().UTC()
	derived := make([]*domain.Note, 0, len(pairs))
	for _, pair := range pairs {
		fields := make(map[string]string, len(n.Fields))
		for name, value := range n.Fields {
			fields[name] = value
		}
		fields[m.questionField] = pair.Question
		fields[m.answerField] = pair.Answer

		derived = append(derived, &domain.Note{
			ID:        uuid.New(),
			NoteType:  n.NoteType,
			Deck:      deck,
			Fields:    fields,
			Tags:      tags,
			CreatedAt: now,
		})
	}

	return store.ChangeSet{
		SourceID:  n.ID,
		SourceTag: m.sourceNoteTag,
		Derived:   derived,
	}, nil
}

// deriveTags unions the source tags with the marker tags, deduplicated
// and sorted for deterministic output.
func deriveTags(source []string, extra ...string) []string {
	set := make(map[string]struct{}, len(source)+len(extra))
	for _, t := range source {
		set[t] = struct{}{}
	}
	for _, t := range extra {
		set[t] = struct{}{}
	}

	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)

	return tags
}
