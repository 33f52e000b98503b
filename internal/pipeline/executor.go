package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/chaditya95/agentic-resume-picker/internal/candidate"
	"github.com/chaditya95/agentic-resume-picker/internal/extract"
	"github.com/chaditya95/agentic-resume-picker/internal/inference"
	"github.com/chaditya95/agentic-resume-picker/internal/util"

	"go.uber.org/zap"
)

// Executor runs one stage for one candidate with bounded retry. It never
// raises out of band: every outcome is returned as a value the orchestrator
// can record.
type Executor struct {
	cfg       Config
	extractor extract.Extractor
	parser    ProfileParser
	scorer    Scorer
	questions QuestionWriter
	logger    *zap.Logger
}

// NewExecutor wires the stage collaborators together.
func NewExecutor(cfg Config, extractor extract.Extractor, parser ProfileParser, scorer Scorer, questions QuestionWriter, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Executor{
		cfg:       cfg,
		extractor: extractor,
		parser:    parser,
		scorer:    scorer,
		questions: questions,
		logger:    logger,
	}
}

// Run executes the stage named by the record's current state, mutating the
// record on success. The record is owned by the calling worker for the
// duration of the call.
func (e *Executor) Run(ctx context.Context, jobDescription string, rec *candidate.Record) error {
	rec.Attempts = 0

	var op func(ctx context.Context) error

	switch rec.State {
	case candidate.StateExtracting:
		op = func(ctx context.Context) error {
			text, err := e.extractor.Extract(ctx, rec.SourceRef)
			if err != nil {
				return err
			}
			rec.RawText = text
			return nil
		}
	case candidate.StateParsing:
		op = func(ctx context.Context) error {
			profile, err := e.parser.Parse(ctx, rec.RawText)
			if err != nil {
				return err
			}
			rec.Profile = profile
			return nil
		}
	case candidate.StateScoring:
		op = func(ctx context.Context) error {
			result, err := e.scorer.Score(ctx, jobDescription, rec.Profile)
			if err != nil {
				return err
			}
			rec.Result = result
			return nil
		}
	case candidate.StateGeneratingQuestions:
		op = func(ctx context.Context) error {
			questions, err := e.questions.Generate(ctx, jobDescription)
			if err != nil {
				return err
			}
			rec.Questions = questions
			return nil
		}
	default:
		return fmt.Errorf("no stage to run in state %s", rec.State)
	}

	return e.attempt(ctx, rec, op)
}

// attempt runs op with the per-call timeout, retrying per the failure kind:
// unreachable and timeout get the configured retry budget with increasing
// backoff, invalid_response gets a single retry, extraction failures get none.
func (e *Executor) attempt(ctx context.Context, rec *candidate.Record, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		rec.Attempts++

		// The per-call context carries only the timeout: an in-flight call is
		// allowed to finish or time out on batch cancellation, which is
		// observed between attempts instead.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.CallTimeout)
		err := op(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		budget := e.retryBudget(err)
		if attempt >= budget || ctx.Err() != nil {
			return lastErr
		}

		delay := e.cfg.Backoff * time.Duration(attempt+1)
		e.logger.Debug("retrying stage call",
			zap.String("candidate_id", rec.ID),
			zap.String("stage", string(rec.State)),
			zap.Int("attempt", rec.Attempts),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		if waitErr := util.WaitFor(ctx, delay); waitErr != nil {
			return lastErr
		}
	}
}

func (e *Executor) retryBudget(err error) int {
	if kind, ok := inference.KindOf(err); ok {
		switch kind {
		case inference.KindUnreachable, inference.KindTimeout:
			return e.cfg.RetryAttempts
		case inference.KindInvalidResponse:
			// The response may be transiently malformed; one more try.
			return 1
		}
	}

	// Extraction failures are deterministic; everything unclassified gets no
	// retry either.
	return 0
}

// failureFrom maps a stage error to the failure recorded on the candidate.
func failureFrom(err error) *candidate.Failure {
	if kind, ok := inference.KindOf(err); ok {
		return &candidate.Failure{Kind: string(kind), Detail: err.Error()}
	}
	if kind, ok := extract.KindOf(err); ok {
		return &candidate.Failure{Kind: string(kind), Detail: err.Error()}
	}
	return &candidate.Failure{Kind: "error", Detail: err.Error()}
}
