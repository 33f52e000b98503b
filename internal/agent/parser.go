package agent

import (
	"context"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/chaditya95/agentic-resume-picker/internal/candidate"
	"github.com/chaditya95/agentic-resume-picker/internal/inference"
	"github.com/chaditya95/agentic-resume-picker/internal/util"

	"go.uber.org/zap"
)

//go:embed prompts/parsing.md
var parsingTemplate string

const defaultMaxLogLength = 200

// Parser turns raw resume text into a structured candidate profile.
type Parser struct {
	generator inference.Generator
	logger    *zap.Logger
	maxLogLen int
}

// NewParser creates the profile-extraction agent.
func NewParser(generator inference.Generator, logger *zap.Logger, maxLogLength int) *Parser {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Parser{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Parse makes one profile-extraction call and validates the result.
func (p *Parser) Parse(ctx context.Context, resumeText string) (*candidate.Profile, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, invalid("resume text is empty")
	}

	prompt := fill(parsingTemplate, map[string]string{
		"RESUME_TEXT": resumeText,
	})

	p.logger.Debug("profile extraction request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, p.maxLogLen)),
	)

	raw, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("profile extraction response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, p.maxLogLen)),
	)

	var profile candidate.Profile
	if err := decodeObject(raw, &profile); err != nil {
		return nil, err
	}

	if strings.TrimSpace(profile.Name) == "" {
		return nil, invalid("profile is missing candidate name")
	}

	return &profile, nil
}
