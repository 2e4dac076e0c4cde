package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardsplit/cardsplit/internal/domain"
)

func TestExtractDirectParse(t *testing.T) {
	raw := `{"cards":[{"question":"Q1","answer":"A1"},{"question":"Q2","answer":"A2"}]}`

	pairs, err := Extract(raw, 5)

	require.NoError(t, err, "well-formed response should extract directly")
	require.Len(t, pairs, 2)
	assert.Equal(t, domain.CardPair{Question: "Q1", Answer: "A1"}, pairs[0])
	assert.Equal(t, domain.CardPair{Question: "Q2", Answer: "A2"}, pairs[1])
}

func TestExtractFenceTolerance(t *testing.T) {
	raw := "Here you go:\n```json\n{\"cards\":[{\"question\":\"Q\",\"answer\":\"A\"}]}\n```"

	pairs, err := Extract(raw, 5)

	require.NoError(t, err, "fenced JSON should extract")
	require.Len(t, pairs, 1)
	assert.Equal(t, "Q", pairs[0].Question)
	assert.Equal(t, "A", pairs[0].Answer)
}

func TestExtractMissingClosingFence(t *testing.T) {
	raw := "```json\n{\"cards\":[{\"question\":\"Q\",\"answer\":\"A\"}]}"

	pairs, err := Extract(raw, 5)

	require.NoError(t, err, "a truncated closing fence should still extract")
	require.Len(t, pairs, 1)
}

func TestExtractBraceSpanSalvage(t *testing.T) {
	raw := `Sure! The cards are {"cards":[{"question":"Q","answer":"A"}]} — let me know if you need more.`

	pairs, err := Extract(raw, 5)

	require.NoError(t, err, "JSON surrounded by commentary should extract via brace scan")
	require.Len(t, pairs, 1)
}

func TestExtractMalformedRejection(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"refusal prose", "Sorry, I can't help with that."},
		{"empty text", ""},
		{"object without cards", `{"items":[]}`},
		{"cards not a list", `{"cards":"Q and A"}`},
		{"top-level array", `[{"question":"Q","answer":"A"}]`},
		{"unbalanced braces", `{"cards":[{"question":"Q"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Extract(tc.raw, 5)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestExtractEmptyFieldDropping(t *testing.T) {
	raw := `{"cards":[{"question":"Q1","answer":""},{"question":"Q2","answer":"A2"},{"answer":"A3"}]}`

	pairs, err := Extract(raw, 5)

	require.NoError(t, err, "elements with empty fields should be dropped, not fatal")
	require.Len(t, pairs, 1)
	assert.Equal(t, "Q2", pairs[0].Question)
}

func TestExtractEmptyResult(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty cards list", `{"cards":[]}`},
		{"all elements invalid", `{"cards":[{"question":"","answer":""},{"question":"  "}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Extract(tc.raw, 5)
			assert.ErrorIs(t, err, ErrEmptyResult)
		})
	}
}

func TestExtractCapEnforcement(t *testing.T) {
	raw := `{"cards":[
		{"question":"Q1","answer":"A1"},
		{"question":"Q2","answer":"A2"},
		{"question":"Q3","answer":"A3"},
		{"question":"Q4","answer":"A4"},
		{"question":"Q5","answer":"A5"}]}`

	pairs, err := Extract(raw, 3)

	require.NoError(t, err, "over-production should be truncated, never an error")
	require.Len(t, pairs, 3)
	assert.Equal(t, "Q1", pairs[0].Question)
	assert.Equal(t, "Q3", pairs[2].Question, "truncation should keep the first maxCards in order")
}

func TestExtractPreservesOrderAndDuplicates(t *testing.T) {
	raw := `{"cards":[{"question":"Same","answer":"A1"},{"question":"Same","answer":"A2"}]}`

	pairs, err := Extract(raw, 5)

	require.NoError(t, err)
	require.Len(t, pairs, 2, "duplicate questions are accepted as-is")
	assert.Equal(t, "A1", pairs[0].Answer)
	assert.Equal(t, "A2", pairs[1].Answer)
}

func TestExtractTrimsWhitespace(t *testing.T) {
	raw := `{"cards":[{"question":"  Q  ","answer":"\tA\n"}]}`

	pairs, err := Extract(raw, 5)

	require.NoError(t, err)
	assert.Equal(t, "Q", pairs[0].Question)
	assert.Equal(t, "A", pairs[0].Answer)
}

// TestExtractDeterminism runs the same raw text twice and expects
// identical output.
func TestExtractDeterminism(t *testing.T) {
	raw := "```\n{\"cards\":[{\"question\":\"Q\",\"answer\":\"A\"},{\"question\":\"\",\"answer\":\"x\"}]}\n```"

	first, err1 := Extract(raw, 5)
	second, err2 := Extract(raw, 5)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}
