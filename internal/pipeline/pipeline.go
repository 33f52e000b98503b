// Package pipeline coordinates the multi-stage evaluation of a batch of
// candidates: a bounded worker pool pulls (candidate, stage) units from a
// queue, the stage executor applies retry policy around the inference and
// extraction calls, and the aggregator packages terminal records into a
// ranked report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/chaditya95/agentic-resume-picker/internal/candidate"
)

const (
	// DefaultWorkers bounds concurrent outbound calls to the inference service.
	DefaultWorkers = 3
	// DefaultRetryAttempts is the number of retries after the first failed call.
	DefaultRetryAttempts = 2
	// DefaultCallTimeout bounds each individual inference or extraction call.
	DefaultCallTimeout = 30 * time.Second
	// DefaultBackoff is the base delay between retries; it grows linearly
	// with the attempt number.
	DefaultBackoff = 2 * time.Second
)

// Config is the concurrency and retry configuration for one batch run,
// read once at batch start.
type Config struct {
	Workers       int
	RetryAttempts int
	CallTimeout   time.Duration
	Backoff       time.Duration
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		Workers:       DefaultWorkers,
		RetryAttempts: DefaultRetryAttempts,
		CallTimeout:   DefaultCallTimeout,
		Backoff:       DefaultBackoff,
	}
}

// Validate rejects configurations that must abort the run before any work is
// dispatched.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts must not be negative, got %d", c.RetryAttempts)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("call timeout must be positive, got %s", c.CallTimeout)
	}
	if c.Backoff < 0 {
		return fmt.Errorf("backoff must not be negative, got %s", c.Backoff)
	}
	return nil
}

// ProfileParser is the profile-extraction stage collaborator.
type ProfileParser interface {
	Parse(ctx context.Context, resumeText string) (*candidate.Profile, error)
}

// Scorer is the scoring stage collaborator.
type Scorer interface {
	Score(ctx context.Context, jobDescription string, profile *candidate.Profile) (*candidate.Evaluation, error)
}

// QuestionWriter is the question-generation stage collaborator.
type QuestionWriter interface {
	Generate(ctx context.Context, jobDescription string) ([]candidate.Question, error)
}

// Batch is one run: an immutable job description and the ordered candidate
// records evaluated against it. Records are never reused across runs.
type Batch struct {
	JobDescription string
	Records        []*candidate.Record
}

// NewBatch creates pending records for the given source documents, preserving
// input order.
func NewBatch(jobDescription string, sourceRefs []string) *Batch {
	records := make([]*candidate.Record, 0, len(sourceRefs))
	for _, ref := range sourceRefs {
		records = append(records, candidate.NewRecord(ref))
	}
	return &Batch{
		JobDescription: jobDescription,
		Records:        records,
	}
}
