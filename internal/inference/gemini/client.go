package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chaditya95/agentic-resume-picker/internal/inference"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-pro"

// contentCaller abstracts the genai SDK call for testability.
type contentCaller interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client wraps the Google GenAI SDK behind the inference.Generator contract.
type Client struct {
	caller    contentCaller
	modelName string
}

// New creates a client configured for the Gemini API backend.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Client{caller: client.Models, modelName: model}, nil
}

// Generate sends the prompt to Gemini and returns the concatenated textual response.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.caller == nil {
		return "", errors.New("gemini client is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	resp, err := c.caller.GenerateContent(ctx, c.modelName, genai.Text(prompt), nil)
	if err != nil {
		return "", classifyError(err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", inference.NewError(inference.KindInvalidResponse, "gemini api returned empty response", nil)
	}

	return output, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.modelName
}

// CheckHealth validates the configuration eagerly. The Gemini SDK holds no
// persistent connection, so only client construction is verifiable up front.
func (c *Client) CheckHealth(_ context.Context) error {
	if c == nil || c.caller == nil {
		return errors.New("gemini client is not initialized")
	}
	if strings.TrimSpace(c.modelName) == "" {
		return errors.New("gemini model is required")
	}
	return nil
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return inference.NewError(inference.KindTimeout, "gemini call timed out", err)
	}
	return inference.NewError(inference.KindUnreachable, "gemini call failed", err)
}
