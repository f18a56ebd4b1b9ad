package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/lexcodex/promptforge/framework"
)

// DefaultSafetySettings blocks only high-severity harassment and hate speech.
var DefaultSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
}

// ErrMissingAPIKey is returned when no credential is configured.
var ErrMissingAPIKey = errors.New("GOOGLE_API_KEY environment variable not set")

// GeminiClient generates text through the Gemini API.
type GeminiClient struct {
	Model  string
	Safety []*genai.SafetySetting
	Debug  bool
	client *genai.Client
}

// NewGeminiClient builds a client. An empty apiKey is an error so startup
// can abort before any UI is shown. An empty endpoint uses the public API.
func NewGeminiClient(endpoint, model, apiKey string) (*GeminiClient, error) {
	return newGeminiClient(endpoint, model, apiKey, &http.Client{Timeout: 3 * time.Minute})
}

func newGeminiClient(endpoint, model, apiKey string, httpClient *http.Client) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = "gemini-pro"
	}
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(endpoint, "/") + "/"}
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiClient{
		Model:  model,
		Safety: DefaultSafetySettings,
		client: client,
	}, nil
}

// SetDebugLogging enables or disables verbose logging for requests/responses.
func (c *GeminiClient) SetDebugLogging(enabled bool) {
	c.Debug = enabled
}

// Generate sends a single-turn prompt.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.Debug {
		log.Printf("[gemini] request model=%s prompt: %s", c.Model, truncate(prompt, 2048))
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		SafetySettings: c.Safety,
	})
	if err != nil {
		return "", geminiError(err)
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", &framework.APIError{Provider: "gemini", Err: fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)}
		}
		return "", &framework.APIError{Provider: "gemini", Err: errors.New("empty response")}
	}
	text := resp.Text()
	if c.Debug {
		log.Printf("[gemini] response finish=%s text: %s", resp.Candidates[0].FinishReason, truncate(text, 2048))
	}
	return text, nil
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &framework.APIError{Provider: "gemini", Status: apiErr.Code, Err: err}
	}
	return &framework.APIError{Provider: "gemini", Err: err}
}
