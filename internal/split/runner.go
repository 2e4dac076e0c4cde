package split

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/cardsplit/cardsplit/internal/domain"
	"github.com/cardsplit/cardsplit/internal/generation"
	"github.com/cardsplit/cardsplit/internal/platform/logger"
	"github.com/cardsplit/cardsplit/internal/store"
)

// Options holds batch execution settings.
type Options struct {
	// OutputLanguage and MaxCards are passed through to the prompt and
	// the extractor.
	OutputLanguage string
	MaxCards       int

	// Workers bounds how many candidates are in flight at once. Values
	// below 1 run sequentially.
	Workers int

	// DryRun stops each candidate after extraction; nothing is committed.
	DryRun bool
}

// Runner drives candidates through the split pipeline. Each candidate
// reaches a terminal state independently; one candidate's failure never
// aborts the batch.
type Runner struct {
	store        store.CollectionStore
	backend      generation.Generator
	prompts      *generation.PromptBuilder
	materializer *Materializer
	opts         Options
	logger       *slog.Logger
}

// NewRunner wires the pipeline components together.
func NewRunner(
	st store.CollectionStore,
	backend generation.Generator,
	prompts *generation.PromptBuilder,
	materializer *Materializer,
	opts Options,
	log *slog.Logger,
) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	return &Runner{
		store:        st,
		backend:      backend,
		prompts:      prompts,
		materializer: materializer,
		opts:         opts,
		logger:       log,
	}
}

// Run processes the candidates in the order supplied and returns the
// aggregated report. Results keep input order regardless of worker
// scheduling. Cancelling ctx stops new backend calls promptly; a
// candidate whose commit is already in flight either completes or rolls
// back cleanly.
func (r *Runner) Run(ctx context.Context, candidates []*domain.Note) *RunReport {
	results := make([]CandidateResult, len(candidates))

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := r.opts.Workers
	if workers > len(candidates) && len(candidates) > 0 {
		workers = len(candidates)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					// Drain without issuing new backend calls.
					results[idx] = CandidateResult{
						NoteID: candidates[idx].ID,
						Status: StatusCancelled,
						Detail: ctx.Err().Error(),
					}
					continue
				}
				results[idx] = r.processOne(ctx, candidates[idx], workerID)
			}
		}(w)
	}

	for idx := range candidates {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	report := newRunReport(results)

	r.logger.Info("batch run finished",
		"backend", r.backend.Name(),
		"total", report.Total,
		"committed", report.Committed,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"cancelled", report.Cancelled,
		"created_notes", report.Created)

	return report
}

// processOne takes a single candidate to its terminal state.
func (r *Runner) processOne(ctx context.Context, note *domain.Note, workerID int) CandidateResult {
	log := r.logger.With(
		"note_id", note.ID.String(),
		"worker_id", workerID,
	)
	ctx = logger.WithLogger(ctx, log)

	// The idempotency guard runs before anything that costs money.
	if !r.materializer.ShouldProcess(note) {
		log.Debug("skipping candidate", "state", r.materializer.State(note))
		return CandidateResult{NoteID: note.ID, Status: StatusSkipped}
	}

	question := note.Field(r.materializer.questionField)
	answer := note.Field(r.materializer.answerField)

	payload, err := r.prompts.Build(question, answer, r.opts.OutputLanguage, r.opts.MaxCards)
	if err != nil {
		return r.fail(log, note, err)
	}

	log.Info("generating split", "answer_length", len(answer))

	raw, err := r.backend.Generate(ctx, payload)
	if err != nil {
		return r.fail(log, note, err)
	}

	pairs, err := generation.Extract(raw, r.opts.MaxCards)
	if err != nil {
		return r.fail(log, note, err)
	}

	log.Debug("extracted card pairs", "count", len(pairs))

	if r.opts.DryRun {
		return CandidateResult{NoteID: note.ID, Status: StatusExtracted, Created: 0}
	}

	cs, err := r.materializer.Plan(note, pairs)
	if err != nil {
		return r.fail(log, note, err)
	}

	if err := r.store.Apply(ctx, cs); err != nil {
		return r.fail(log, note, err)
	}

	log.Info("committed split", "created_notes", len(cs.Derived))

	return CandidateResult{
		NoteID:  note.ID,
		Status:  StatusCommitted,
		Created: len(cs.Derived),
	}
}

// fail logs and classifies a candidate failure.
func (r *Runner) fail(log *slog.Logger, note *domain.Note, err error) CandidateResult {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Warn("candidate cancelled", "error", err)
		return CandidateResult{NoteID: note.ID, Status: StatusCancelled, Detail: err.Error()}
	}

	kind := classify(err)
	log.Error("candidate failed", "kind", kind, "error", err)

	return CandidateResult{
		NoteID:  note.ID,
		Status:  StatusFailed,
		Failure: kind,
		Detail:  err.Error(),
	}
}

// classify maps an error to its failure kind via the sentinel taxonomy.
func classify(err error) FailureKind {
	switch {
	case errors.Is(err, generation.ErrCredentialMissing):
		return FailureCredentialMissing
	case errors.Is(err, generation.ErrBackendUnavailable):
		return FailureBackendUnavailable
	case errors.Is(err, generation.ErrBackendRejected):
		return FailureBackendRejected
	case errors.Is(err, generation.ErrMalformedResponse):
		return FailureMalformedResponse
	case errors.Is(err, generation.ErrEmptyResult):
		return FailureEmptyResult
	case errors.Is(err, store.ErrCommitFailed):
		return FailureCommitError
	default:
		return FailureInternal
	}
}
