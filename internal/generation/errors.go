package generation

import "errors"

// Failure taxonomy for the split pipeline. Every error surfaced by a
// backend or by extraction wraps exactly one of these sentinels so the
// batch runner can classify terminal states with errors.Is.
var (
	// ErrCredentialMissing is returned when the environment variable that
	// should hold a provider's API key is unset or empty. The wrapping
	// error names the variable.
	ErrCredentialMissing = errors.New("backend credential missing")

	// ErrBackendUnavailable is returned after transient network, rate-limit
	// or server-side failures have exhausted the retry budget.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrBackendRejected is returned for non-retryable request failures:
	// invalid credentials, malformed requests, content blocked by the
	// provider.
	ErrBackendRejected = errors.New("backend rejected request")

	// ErrMalformedResponse is returned when raw model output cannot be
	// reduced to the expected cards object by any extraction rung.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrEmptyResult is returned when the response parsed structurally but
	// no card pair survived validation.
	ErrEmptyResult = errors.New("no usable cards in model response")

	// ErrInvalidConfig is returned when a generator cannot be constructed
	// from its configuration.
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
