package llm

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// Client invokes a language model with a prompt and returns its raw text
// response. Implementations may fail with quota or network errors.
type Client interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

const DefaultModel = "gemini-2.0-flash-lite"

// GeminiClient is the Gemini-backed Client.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient builds a client for the Gemini API. httpClient may be nil
// to use the default transport.
func NewGeminiClient(ctx context.Context, apiKey, model string, httpClient *http.Client) (*GeminiClient, error) {
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Invoke(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
