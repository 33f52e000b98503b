package pipeline

import (
	"context"
	"sync"

	"github.com/chaditya95/agentic-resume-picker/internal/candidate"

	"go.uber.org/zap"
)

// Orchestrator owns the bounded worker pool and the per-candidate state
// machine. One candidate's failure never affects another; every input record
// ends in exactly one terminal state.
type Orchestrator struct {
	cfg      Config
	executor *Executor
	logger   *zap.Logger
	events   *emitter

	mu        sync.Mutex
	counts    Counts
	remaining int
	queue     chan *candidate.Record
}

// NewOrchestrator validates the configuration and prepares a single-run
// orchestrator. Orchestrators are not reused across runs.
func NewOrchestrator(cfg Config, executor *Executor, logger *zap.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		cfg:      cfg,
		executor: executor,
		logger:   logger,
		events:   newEmitter(),
	}, nil
}

// Events returns the progress-event stream. The channel is closed when the
// run finishes. Consumption is optional; the scheduler never blocks on it.
func (o *Orchestrator) Events() <-chan Event {
	return o.events.ch
}

// Run processes every record in the batch through its stage sequence and
// blocks until all records are terminal. Cancelling ctx stops dispatching new
// stages; in-flight stage calls finish (or time out) and their candidates are
// marked cancelled rather than advanced.
func (o *Orchestrator) Run(ctx context.Context, batch *Batch) {
	defer o.events.close()

	total := len(batch.Records)
	o.counts = Counts{Total: total, Pending: total}
	o.remaining = total

	if total == 0 {
		return
	}

	// Each record has at most one outstanding unit, so the buffer can never
	// fill and re-enqueueing from a worker never blocks.
	o.queue = make(chan *candidate.Record, total)
	for _, rec := range batch.Records {
		o.queue <- rec
	}

	o.logger.Info("starting batch",
		zap.Int("candidates", total),
		zap.Int("workers", o.cfg.Workers),
		zap.Int("retry_attempts", o.cfg.RetryAttempts),
	)

	var wg sync.WaitGroup
	for i := 0; i < o.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for rec := range o.queue {
				o.process(ctx, batch.JobDescription, rec)
			}
		}(i + 1)
	}

	wg.Wait()

	o.logger.Info("batch finished",
		zap.Int("completed", o.counts.Completed),
		zap.Int("failed", o.counts.Failed),
		zap.Int("cancelled", o.counts.Cancelled),
	)
}

// process executes one stage-unit: exactly one stage for one candidate,
// including its internal retries. Ownership of the record belongs to this
// worker until the unit is done.
func (o *Orchestrator) process(ctx context.Context, jobDescription string, rec *candidate.Record) {
	// Cancellation is observed before dispatching each unit.
	if ctx.Err() != nil {
		o.finish(rec, candidate.StateCancelled, nil)
		return
	}

	stage, ok := rec.State.Next()
	if !ok || stage.Terminal() {
		o.logger.Error("record scheduled in unexpected state",
			zap.String("candidate_id", rec.ID),
			zap.String("state", string(rec.State)),
		)
		return
	}

	o.transition(rec, stage)

	err := o.executor.Run(ctx, jobDescription, rec)

	// A stage completing after cancellation does not advance the candidate.
	// Questions are only ever carried by completed records.
	if ctx.Err() != nil {
		rec.Questions = nil
		o.finish(rec, candidate.StateCancelled, nil)
		return
	}

	if err != nil {
		o.logger.Warn("stage failed",
			zap.String("candidate_id", rec.ID),
			zap.String("source", rec.SourceRef),
			zap.String("stage", string(rec.State)),
			zap.Int("attempts", rec.Attempts),
			zap.Error(err),
		)
		o.finish(rec, candidate.StateFailed, failureFrom(err))
		return
	}

	if rec.State == candidate.StateGeneratingQuestions {
		o.finish(rec, candidate.StateCompleted, nil)
		return
	}

	// Success: hand the candidate back to the queue for its next stage.
	o.queue <- rec
}

// transition moves a record forward and emits a progress event. All state
// and counter mutation happens under the single orchestrator mutex.
func (o *Orchestrator) transition(rec *candidate.Record, to candidate.State) {
	o.mu.Lock()

	from := rec.State
	if !candidate.CanTransition(from, to) {
		o.mu.Unlock()
		o.logger.Error("illegal state transition",
			zap.String("candidate_id", rec.ID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return
	}

	rec.State = to
	o.adjustCounts(from, to)
	counts := o.counts

	done := false
	if to.Terminal() {
		o.remaining--
		done = o.remaining == 0
	}
	o.mu.Unlock()

	o.events.emit(Event{
		CandidateID: rec.ID,
		SourceRef:   rec.SourceRef,
		From:        from,
		To:          to,
		Counts:      counts,
	})

	if done {
		close(o.queue)
	}
}

// finish moves a record into a terminal state, recording the failure when
// present. Records already terminal are left as-is.
func (o *Orchestrator) finish(rec *candidate.Record, to candidate.State, failure *candidate.Failure) {
	o.mu.Lock()
	if rec.State.Terminal() {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	if failure != nil {
		rec.Failure = failure
	}
	o.transition(rec, to)
}

func (o *Orchestrator) adjustCounts(from, to candidate.State) {
	switch from {
	case candidate.StatePending:
		o.counts.Pending--
	case candidate.StateCompleted, candidate.StateFailed, candidate.StateCancelled:
		// Unreachable: terminal states are never left.
	default:
		o.counts.InProgress--
	}

	switch to {
	case candidate.StateCompleted:
		o.counts.Completed++
	case candidate.StateFailed:
		o.counts.Failed++
	case candidate.StateCancelled:
		o.counts.Cancelled++
	case candidate.StatePending:
	default:
		o.counts.InProgress++
	}
}

// Counts returns a snapshot of the aggregate counters.
func (o *Orchestrator) Counts() Counts {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts
}
