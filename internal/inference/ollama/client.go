package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chaditya95/agentic-resume-picker/internal/inference"
	"github.com/chaditya95/agentic-resume-picker/internal/util"

	"go.uber.org/zap"
)

const (
	defaultAddress = "http://localhost:11434"

	// Conservative generation options for structured output.
	temperature = 0.1
	numPredict  = 2000

	healthTimeout = 5 * time.Second
	logPreviewLen = 200
)

// Client talks to a local Ollama instance over its HTTP API.
// It performs exactly one request per Generate call; retries belong to the caller.
type Client struct {
	address    string
	model      string
	logger     *zap.Logger
	HTTPClient *http.Client
}

// New creates a client for the Ollama instance at address. The timeout bounds
// every generate call.
func New(address, model string, timeout time.Duration, logger *zap.Logger) *Client {
	if strings.TrimSpace(address) == "" {
		address = defaultAddress
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		address: strings.TrimRight(address, "/"),
		model:   model,
		logger:  logger,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Generate sends one prompt to /api/generate and returns the generated text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	payload, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: temperature,
			NumPredict:  numPredict,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.address+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("ollama generate request",
		zap.String("url", req.URL.String()),
		zap.Int("prompt_length", len(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, logPreviewLen)),
	)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", inference.NewError(inference.KindUnreachable,
			fmt.Sprintf("ollama returned status %s", resp.Status), nil)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", inference.NewError(inference.KindInvalidResponse, "decode generate response", err)
	}

	text := strings.TrimSpace(out.Response)
	if text == "" {
		return "", inference.NewError(inference.KindInvalidResponse, "ollama returned empty response", nil)
	}

	c.logger.Debug("ollama generate response",
		zap.Int("response_length", len(text)),
		zap.String("response_preview", util.TruncateForLog(text, logPreviewLen)),
	)

	return text, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// CheckHealth verifies that the instance answers /api/version and that the
// configured model is present in /api/tags. Called once before a batch is
// scheduled; a failure here aborts the whole run.
func (c *Client) CheckHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := c.getJSON(ctx, "/api/version", nil); err != nil {
		return fmt.Errorf("ollama is not reachable at %s: %w", c.address, err)
	}

	var tags tagsResponse
	if err := c.getJSON(ctx, "/api/tags", &tags); err != nil {
		return fmt.Errorf("listing ollama models: %w", err)
	}

	for _, m := range tags.Models {
		if m.Name == c.model {
			return nil
		}
	}

	return fmt.Errorf("model %q is not available on %s", c.model, c.address)
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.address+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	if target == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(target)
}

// classifyTransportError maps a failed round trip to a typed inference failure.
// Deadline errors become timeouts, everything else unreachable.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return inference.NewError(inference.KindTimeout, "ollama call timed out", err)
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return inference.NewError(inference.KindTimeout, "ollama call timed out", err)
	}

	return inference.NewError(inference.KindUnreachable, "ollama connection failed", err)
}
