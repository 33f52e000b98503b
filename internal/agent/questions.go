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

//go:embed prompts/questions.md
var questionsTemplate string

const questionsPerLevel = 2

// QuestionWriter generates interview questions for a job description.
type QuestionWriter struct {
	generator inference.Generator
	logger    *zap.Logger
	maxLogLen int
}

// NewQuestionWriter creates the question-generation agent.
func NewQuestionWriter(generator inference.Generator, logger *zap.Logger, maxLogLength int) *QuestionWriter {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QuestionWriter{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Generate makes one question-generation call and validates the result:
// exactly six questions, two per level, each tagged technical or behavioral.
func (q *QuestionWriter) Generate(ctx context.Context, jobDescription string) ([]candidate.Question, error) {
	prompt := fill(questionsTemplate, map[string]string{
		"JOB_DESCRIPTION": jobDescription,
	})

	q.logger.Debug("question generation request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, q.maxLogLen)),
	)

	raw, err := q.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	q.logger.Debug("question generation response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, q.maxLogLen)),
	)

	var questions []candidate.Question
	if err := decodeArray(raw, &questions); err != nil {
		return nil, err
	}

	if err := validateQuestions(questions); err != nil {
		return nil, err
	}

	return questions, nil
}

func validateQuestions(questions []candidate.Question) error {
	perLevel := map[string]int{}
	for i := range questions {
		question := &questions[i]

		question.Level = normalizeLevel(question.Level)
		switch question.Level {
		case candidate.LevelEasy, candidate.LevelMedium, candidate.LevelHard:
		default:
			return invalid("unknown question level %q", question.Level)
		}

		question.Type = strings.ToLower(strings.TrimSpace(question.Type))
		switch question.Type {
		case candidate.QuestionTypeTechnical, candidate.QuestionTypeBehavioral:
		default:
			return invalid("unknown question type %q", question.Type)
		}

		if strings.TrimSpace(question.Text) == "" {
			return invalid("question %d has empty text", i+1)
		}

		perLevel[question.Level]++
	}

	for _, level := range []string{candidate.LevelEasy, candidate.LevelMedium, candidate.LevelHard} {
		if perLevel[level] != questionsPerLevel {
			return invalid("expected %d %s questions, got %d", questionsPerLevel, level, perLevel[level])
		}
	}

	if len(questions) != 3*questionsPerLevel {
		return invalid("expected %d questions, got %d", 3*questionsPerLevel, len(questions))
	}

	return nil
}

func normalizeLevel(level string) string {
	level = strings.TrimSpace(level)
	if level == "" {
		return level
	}
	return strings.ToUpper(level[:1]) + strings.ToLower(level[1:])
}
