package generation

import "context"

// Payload is the immutable instruction content built for one source note.
// System carries the fixed role line, Prompt the rendered per-note
// instructions including the question, the answer, and the structural
// output constraints.
type Payload struct {
	System string
	Prompt string
}

// Generator is the capability shared by all generation backends. An
// implementation owns its credentials, request construction, timeout and
// transport-level retry policy for its own call only; it returns the raw
// response text without interpreting it. Parsing belongs to Extract.
//
// Errors wrap ErrCredentialMissing, ErrBackendUnavailable or
// ErrBackendRejected.
type Generator interface {
	// Name identifies the backend for logs and reports.
	Name() string

	// Generate sends the payload to the remote model and returns the raw
	// response text.
	Generate(ctx context.Context, p Payload) (string, error)
}
