package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cardsplit/cardsplit/internal/domain"
)

// cardsEnvelope is the expected shape of the model's JSON output.
type cardsEnvelope struct {
	Cards []rawCard `json:"cards"`
}

// rawCard is one unvalidated element of the cards list.
type rawCard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Extract reduces raw model output to an ordered list of validated card
// pairs. Model output is not guaranteed well-formed, so parsing walks a
// ladder of salvage heuristics, each rung a pure function tried in order:
//
//  1. parse the whole text as the cards object,
//  2. parse the inside of a fenced code block,
//  3. parse the span from the first '{' to the last '}'.
//
// A response that no rung can parse, or that parses without a cards
// list, fails with ErrMalformedResponse. Elements missing a question or
// answer are dropped rather than failing the batch; if nothing survives
// the result is ErrEmptyResult. Over-production beyond maxCards is
// truncated, never an error. Extraction is deterministic and has no side
// effects.
func Extract(raw string, maxCards int) ([]domain.CardPair, error) {
	env, ok := parseDirect(raw)
	if !ok {
		env, ok = parseFenced(raw)
	}
	if !ok {
		env, ok = parseBraceSpan(raw)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object found in response", ErrMalformedResponse)
	}

	if env.Cards == nil {
		return nil, fmt.Errorf("%w: response object has no cards list", ErrMalformedResponse)
	}

	pairs := make([]domain.CardPair, 0, len(env.Cards))
	for _, c := range env.Cards {
		pair, err := domain.NewCardPair(c.Question, c.Answer)
		if err != nil {
			// Invalid elements are dropped, not fatal.
			continue
		}
		pairs = append(pairs, pair)
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: %d elements, none valid", ErrEmptyResult, len(env.Cards))
	}

	if maxCards > 0 && len(pairs) > maxCards {
		pairs = pairs[:maxCards]
	}

	return pairs, nil
}

// parseDirect attempts a structural parse of the entire text.
func parseDirect(raw string) (*cardsEnvelope, bool) {
	return parseEnvelope(raw)
}

// parseFenced locates a triple-backtick code block, optionally labeled
// (```json), and parses its inner content. A missing closing fence is
// tolerated: truncated model output often loses the final fence line.
func parseFenced(raw string) (*cardsEnvelope, bool) {
	const fence = "```"

	start := strings.Index(raw, fence)
	if start == -1 {
		return nil, false
	}

	inner := raw[start+len(fence):]

	// Drop the rest of the opening fence line (the "json" label, if any).
	if nl := strings.IndexByte(inner, '\n'); nl != -1 {
		inner = inner[nl+1:]
	}

	if end := strings.Index(inner, fence); end != -1 {
		inner = inner[:end]
	}

	return parseEnvelope(inner)
}

// parseBraceSpan parses the span between the first '{' and the last '}',
// which handles commentary the model may add around the JSON.
func parseBraceSpan(raw string) (*cardsEnvelope, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start == -1 || end <= start {
		return nil, false
	}

	return parseEnvelope(raw[start : end+1])
}

// parseEnvelope attempts to unmarshal text into the expected object
// shape. Text that is valid JSON but not a matching object (an array, a
// bare string, a cards value of the wrong type) does not parse.
func parseEnvelope(text string) (*cardsEnvelope, bool) {
	text = strings.TrimSpace(text)
	if text == "" || text[0] != '{' {
		return nil, false
	}

	var env cardsEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, false
	}

	return &env, true
}
