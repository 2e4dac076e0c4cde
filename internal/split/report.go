package split

import (
	"github.com/google/uuid"
)

// Status is the terminal state of one candidate.
type Status string

// Possible candidate terminal states. StatusExtracted is terminal only
// in dry-run mode, where the pipeline stops before commit.
const (
	StatusSkipped   Status = "skipped"
	StatusCommitted Status = "committed"
	StatusExtracted Status = "extracted"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// FailureKind classifies a failed candidate for the run report.
type FailureKind string

// Possible failure kinds, one per sentinel in the error taxonomy.
const (
	FailureCredentialMissing  FailureKind = "credential_missing"
	FailureBackendUnavailable FailureKind = "backend_unavailable"
	FailureBackendRejected    FailureKind = "backend_rejected"
	FailureMalformedResponse  FailureKind = "malformed_response"
	FailureEmptyResult        FailureKind = "empty_result"
	FailureCommitError        FailureKind = "commit_error"
	FailureInternal           FailureKind = "internal"
)

// FailureReason returns the human-readable explanation for a failure
// kind, phrased as advice to the operator.
func FailureReason(kind FailureKind) string {
	switch kind {
	case FailureCredentialMissing:
		return "fix your credentials: the API key environment variable is not set"
	case FailureBackendUnavailable:
		return "transient network/provider issue; retry later"
	case FailureBackendRejected:
		return "the provider rejected the request; check credentials and request parameters"
	case FailureMalformedResponse, FailureEmptyResult:
		return "the model output could not be parsed; consider raising the output-token limit or lowering the input size"
	case FailureCommitError:
		return "the collection commit failed; no changes were applied for this note"
	default:
		return "internal error"
	}
}

// CandidateResult records the terminal state of one candidate, in input
// order.
type CandidateResult struct {
	NoteID  uuid.UUID
	Status  Status
	Failure FailureKind
	Detail  string
	Created int
}

// RunReport aggregates a batch run: per-state counts, total derived
// notes created, failure counts per kind, and the ordered per-candidate
// results with the first error detail for each failure.
type RunReport struct {
	Total     int
	Skipped   int
	Committed int
	Extracted int
	Failed    int
	Cancelled int
	Created   int
	Failures  map[FailureKind]int
	Results   []CandidateResult
}

// newRunReport builds the aggregate view over ordered results.
func newRunReport(results []CandidateResult) *RunReport {
	report := &RunReport{
		Total:    len(results),
		Failures: make(map[FailureKind]int),
		Results:  results,
	}

	for _, res := range results {
		switch res.Status {
		case StatusSkipped:
			report.Skipped++
		case StatusCommitted:
			report.Committed++
			report.Created += res.Created
		case StatusExtracted:
			report.Extracted++
		case StatusFailed:
			report.Failed++
			report.Failures[res.Failure]++
		case StatusCancelled:
			report.Cancelled++
		}
	}

	return report
}
