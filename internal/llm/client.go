package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrEmptyResponse is returned when the provider answered without any text.
// A blocked prompt or candidate wraps it so callers degrade the same way.
var ErrEmptyResponse = errors.New("no text in response")

// Client sends one instruction to a model and returns the raw text reply.
type Client interface {
	GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error)
	GetModel(tier ModelTier) string
	Close() error
}

// NewClient builds the client for config.Provider. A nil config uses DefaultConfig.
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}

	if config.Provider == ProviderGenAI {
		return NewGenAIClient(ctx, config, apiKey)
	}
	return NewGeminiClient(ctx, config, apiKey)
}

// GeminiClient talks to Gemini through github.com/google/generative-ai-go.
type GeminiClient struct {
	sdk    *genai.Client
	config *Config
}

// NewGeminiClient opens an SDK client authenticated with apiKey.
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}
	sdk, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{sdk: sdk, config: config}, nil
}

// GenerateContent runs prompt on the tier's model at the configured temperature.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	name := c.config.GetModel(tier)
	if name == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}

	model := c.sdk.GenerativeModel(name)
	model.SetTemperature(c.config.Temperature)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return responseText(resp)
}

func (c *GeminiClient) GetModel(tier ModelTier) string { return c.config.GetModel(tier) }

func (c *GeminiClient) Close() error {
	if c.sdk == nil {
		return nil
	}
	return c.sdk.Close()
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("%w: prompt blocked (%s)", ErrEmptyResponse, fb.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", ErrEmptyResponse
	}

	first := resp.Candidates[0]
	if first.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: candidate blocked by safety filters", ErrEmptyResponse)
	}
	if first.Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range first.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
