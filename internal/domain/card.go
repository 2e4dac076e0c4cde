package domain

import (
	"errors"
	"strings"
)

// CardPair validation errors
var (
	// ErrEmptyQuestion is returned when a generated question is empty after trimming.
	ErrEmptyQuestion = errors.New("card question cannot be empty")

	// ErrEmptyAnswer is returned when a generated answer is empty after trimming.
	ErrEmptyAnswer = errors.New("card answer cannot be empty")
)

// CardPair is one validated question/answer pair produced by the
// generation backend. Both fields are plain, whitespace-trimmed text.
type CardPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// NewCardPair creates a CardPair from raw question and answer text.
// Both values are trimmed; an error is returned if either is empty
// after trimming.
func NewCardPair(question, answer string) (CardPair, error) {
	q := strings.TrimSpace(question)
	a := strings.TrimSpace(answer)

	if q == "" {
		return CardPair{}, ErrEmptyQuestion
	}

	if a == "" {
		return CardPair{}, ErrEmptyAnswer
	}

	return CardPair{Question: q, Answer: a}, nil
}
