package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chaditya95/agentic-resume-picker/internal/candidate"
	"github.com/chaditya95/agentic-resume-picker/internal/extract"
	"github.com/chaditya95/agentic-resume-picker/internal/inference"

	"go.uber.org/zap"
)

func testConfig() Config {
	return Config{
		Workers:       2,
		RetryAttempts: 2,
		CallTimeout:   time.Second,
		Backoff:       0,
	}
}

type fakeExtractor struct {
	fn    func(ref string) (string, error)
	calls atomic.Int64
}

func (f *fakeExtractor) Extract(_ context.Context, ref string) (string, error) {
	f.calls.Add(1)
	if f.fn != nil {
		return f.fn(ref)
	}
	return "text of " + ref, nil
}

type fakeParser struct {
	fn    func(text string) (*candidate.Profile, error)
	calls atomic.Int64
}

func (f *fakeParser) Parse(_ context.Context, text string) (*candidate.Profile, error) {
	f.calls.Add(1)
	if f.fn != nil {
		return f.fn(text)
	}
	return &candidate.Profile{Name: "Candidate"}, nil
}

type fakeScorer struct {
	fn    func(profile *candidate.Profile) (*candidate.Evaluation, error)
	calls atomic.Int64
}

func (f *fakeScorer) Score(_ context.Context, _ string, profile *candidate.Profile) (*candidate.Evaluation, error) {
	f.calls.Add(1)
	if f.fn != nil {
		return f.fn(profile)
	}
	return &candidate.Evaluation{Score: 50, Recommendation: candidate.RecommendationMaybe}, nil
}

type fakeQuestions struct {
	fn    func() ([]candidate.Question, error)
	calls atomic.Int64
}

func (f *fakeQuestions) Generate(_ context.Context, _ string) ([]candidate.Question, error) {
	f.calls.Add(1)
	if f.fn != nil {
		return f.fn()
	}
	return sixQuestions(), nil
}

func sixQuestions() []candidate.Question {
	return []candidate.Question{
		{Level: candidate.LevelEasy, Text: "Q1", Type: candidate.QuestionTypeBehavioral},
		{Level: candidate.LevelEasy, Text: "Q2", Type: candidate.QuestionTypeTechnical},
		{Level: candidate.LevelMedium, Text: "Q3", Type: candidate.QuestionTypeTechnical},
		{Level: candidate.LevelMedium, Text: "Q4", Type: candidate.QuestionTypeBehavioral},
		{Level: candidate.LevelHard, Text: "Q5", Type: candidate.QuestionTypeTechnical},
		{Level: candidate.LevelHard, Text: "Q6", Type: candidate.QuestionTypeBehavioral},
	}
}

func newTestExecutor(cfg Config, ext *fakeExtractor, parser *fakeParser, scorer *fakeScorer, questions *fakeQuestions) *Executor {
	if ext == nil {
		ext = &fakeExtractor{}
	}
	if parser == nil {
		parser = &fakeParser{}
	}
	if scorer == nil {
		scorer = &fakeScorer{}
	}
	if questions == nil {
		questions = &fakeQuestions{}
	}
	return NewExecutor(cfg, ext, parser, scorer, questions, zap.NewNop())
}

func TestExecutorExtractStage(t *testing.T) {
	t.Parallel()

	executor := newTestExecutor(testConfig(), nil, nil, nil, nil)

	rec := candidate.NewRecord("jane.txt")
	rec.State = candidate.StateExtracting

	if err := executor.Run(context.Background(), "jd", rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.RawText != "text of jane.txt" {
		t.Fatalf("unexpected raw text: %q", rec.RawText)
	}
	if rec.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", rec.Attempts)
	}
}

func TestExecutorRetriesUnreachableExactly(t *testing.T) {
	t.Parallel()

	parser := &fakeParser{fn: func(string) (*candidate.Profile, error) {
		return nil, inference.NewError(inference.KindUnreachable, "connection refused", nil)
	}}
	cfg := testConfig()
	cfg.RetryAttempts = 2
	executor := newTestExecutor(cfg, nil, parser, nil, nil)

	rec := candidate.NewRecord("jane.txt")
	rec.RawText = "text"
	rec.State = candidate.StateParsing

	err := executor.Run(context.Background(), "jd", rec)
	if err == nil {
		t.Fatalf("expected error")
	}

	// retry_attempts + 1 total calls, never fewer, never more.
	if parser.calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", parser.calls.Load())
	}
	if rec.Attempts != 3 {
		t.Fatalf("expected 3 recorded attempts, got %d", rec.Attempts)
	}
}

func TestExecutorRetriesInvalidResponseOnce(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{fn: func(*candidate.Profile) (*candidate.Evaluation, error) {
		return nil, inference.NewError(inference.KindInvalidResponse, "not json", nil)
	}}
	executor := newTestExecutor(testConfig(), nil, nil, scorer, nil)

	rec := candidate.NewRecord("jane.txt")
	rec.Profile = &candidate.Profile{Name: "Jane"}
	rec.State = candidate.StateScoring

	if err := executor.Run(context.Background(), "jd", rec); err == nil {
		t.Fatalf("expected error")
	}

	if scorer.calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", scorer.calls.Load())
	}
}

func TestExecutorRecoversAfterTransientFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	questions := &fakeQuestions{fn: func() ([]candidate.Question, error) {
		calls++
		if calls == 1 {
			return nil, inference.NewError(inference.KindTimeout, "slow", nil)
		}
		return sixQuestions(), nil
	}}
	executor := newTestExecutor(testConfig(), nil, nil, nil, questions)

	rec := candidate.NewRecord("jane.txt")
	rec.State = candidate.StateGeneratingQuestions

	if err := executor.Run(context.Background(), "jd", rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.Questions) != 6 {
		t.Fatalf("expected 6 questions, got %d", len(rec.Questions))
	}
	if rec.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", rec.Attempts)
	}
}

func TestExecutorNeverRetriesExtractionFailures(t *testing.T) {
	t.Parallel()

	ext := &fakeExtractor{fn: func(string) (string, error) {
		return "", &extract.Error{Kind: extract.KindUnsupportedFormat, Detail: "bad type"}
	}}
	executor := newTestExecutor(testConfig(), ext, nil, nil, nil)

	rec := candidate.NewRecord("jane.bin")
	rec.State = candidate.StateExtracting

	err := executor.Run(context.Background(), "jd", rec)
	if err == nil {
		t.Fatalf("expected error")
	}

	if ext.calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", ext.calls.Load())
	}

	failure := failureFrom(err)
	if failure.Kind != string(extract.KindUnsupportedFormat) {
		t.Fatalf("unexpected failure kind: %s", failure.Kind)
	}
}

func TestExecutorStopsRetryingOnCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	parser := &fakeParser{fn: func(string) (*candidate.Profile, error) {
		cancel()
		return nil, inference.NewError(inference.KindUnreachable, "down", nil)
	}}
	cfg := testConfig()
	cfg.RetryAttempts = 5
	executor := newTestExecutor(cfg, nil, parser, nil, nil)

	rec := candidate.NewRecord("jane.txt")
	rec.RawText = "text"
	rec.State = candidate.StateParsing

	if err := executor.Run(ctx, "jd", rec); err == nil {
		t.Fatalf("expected error")
	}

	if parser.calls.Load() != 1 {
		t.Fatalf("expected 1 call before cancellation stops retries, got %d", parser.calls.Load())
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config must be valid: %v", err)
	}

	bad := []Config{
		{Workers: 0, RetryAttempts: 1, CallTimeout: time.Second},
		{Workers: 1, RetryAttempts: -1, CallTimeout: time.Second},
		{Workers: 1, RetryAttempts: 1, CallTimeout: 0},
		{Workers: 1, RetryAttempts: 1, CallTimeout: time.Second, Backoff: -time.Second},
	}

	for _, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected validation error for %+v", cfg)
		}
	}
}
