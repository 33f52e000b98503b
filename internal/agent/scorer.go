package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/chaditya95/agentic-resume-picker/internal/candidate"
	"github.com/chaditya95/agentic-resume-picker/internal/inference"
	"github.com/chaditya95/agentic-resume-picker/internal/util"

	"go.uber.org/zap"
)

//go:embed prompts/scoring.md
var scoringTemplate string

// Scorer evaluates a parsed candidate profile against a job description.
type Scorer struct {
	generator inference.Generator
	logger    *zap.Logger
	maxLogLen int
}

// NewScorer creates the scoring agent.
func NewScorer(generator inference.Generator, logger *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scorer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Score makes one scoring call and validates the result. A score outside
// [0, 100] or an unknown recommendation is a schema violation, not something
// to clamp.
func (s *Scorer) Score(ctx context.Context, jobDescription string, profile *candidate.Profile) (*candidate.Evaluation, error) {
	if profile == nil {
		return nil, fmt.Errorf("profile is required")
	}

	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile payload: %w", err)
	}

	prompt := fill(scoringTemplate, map[string]string{
		"JOB_DESCRIPTION": jobDescription,
		"CANDIDATE_JSON":  string(profileJSON),
	})

	s.logger.Debug("scoring request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("scoring response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, s.maxLogLen)),
	)

	var result candidate.Evaluation
	if err := decodeObject(raw, &result); err != nil {
		return nil, err
	}

	if result.Score < 0 || result.Score > 100 {
		return nil, invalid("score %v is outside 0-100", result.Score)
	}

	result.Recommendation = strings.ToLower(strings.TrimSpace(result.Recommendation))
	if !candidate.ValidRecommendation(result.Recommendation) {
		return nil, invalid("unknown recommendation %q", result.Recommendation)
	}

	return &result, nil
}
