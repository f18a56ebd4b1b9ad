package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/lexcodex/promptforge/framework"
)

// OllamaClient is a local alternative to the Gemini backend.
type OllamaClient struct {
	Endpoint    string
	Model       string
	Temperature float64
	client      *http.Client
	Debug       bool
}

type ollamaResponse struct {
	Text     string `json:"text"`
	Response string `json:"response"`
	Message  *struct {
		Content string `json:"content"`
	} `json:"message"`
	DoneReason string `json:"done_reason"`
	Error      string `json:"error"`
}

// NewOllamaClient builds a new Ollama client.
func NewOllamaClient(endpoint, model string) *OllamaClient {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	return &OllamaClient{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Model:    model,
		client: &http.Client{
			Timeout: 3 * time.Minute,
		},
	}
}

// Generate implements single prompt completion.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model":  c.model(),
		"prompt": prompt,
		"stream": false,
	}
	c.applyOptions(payload)
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	c.logPayload("/api/generate", body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return "", &framework.APIError{Provider: "ollama", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := strings.TrimSpace(string(msg))
		if detail == "" {
			detail = resp.Status
		}
		return "", &framework.APIError{Provider: "ollama", Status: resp.StatusCode, Err: errors.New(detail)}
	}
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &framework.APIError{Provider: "ollama", Err: err}
	}
	c.logResponse("/api/generate", responseBody)
	text, err := decodeOllamaResponse(bytes.NewReader(responseBody))
	if err != nil {
		return "", &framework.APIError{Provider: "ollama", Err: err}
	}
	return text, nil
}

// GenerateStream returns the raw streamed NDJSON lines.
func (c *OllamaClient) GenerateStream(ctx context.Context, prompt string) (<-chan string, error) {
	payload := map[string]interface{}{
		"model":  c.model(),
		"prompt": prompt,
		"stream": true,
	}
	c.applyOptions(payload)
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return nil, &framework.APIError{Provider: "ollama", Err: err}
	}
	ch := make(chan string)
	go func() {
		defer resp.Body.Close()
		defer close(ch)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			select {
			case ch <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// SetDebugLogging enables or disables verbose logging for requests/responses.
func (c *OllamaClient) SetDebugLogging(enabled bool) {
	c.Debug = enabled
}

func (c *OllamaClient) getHTTPClient() *http.Client {
	if c.client != nil {
		return c.client
	}
	c.client = &http.Client{Timeout: 60 * time.Second}
	return c.client
}

func (c *OllamaClient) model() string {
	if c.Model != "" {
		return c.Model
	}
	return "codellama"
}

func (c *OllamaClient) applyOptions(payload map[string]interface{}) {
	if c.Temperature != 0 {
		payload["options"] = map[string]interface{}{"temperature": c.Temperature}
	}
}

func decodeOllamaResponse(body io.Reader) (string, error) {
	var raw ollamaResponse
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return "", err
	}
	if raw.Error != "" {
		return "", fmt.Errorf("ollama: %s", raw.Error)
	}
	text := firstNonEmpty(raw.Text, raw.Response)
	if text == "" && raw.Message != nil {
		text = raw.Message.Content
	}
	return text, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (c *OllamaClient) logPayload(path string, payload []byte) {
	if !c.Debug {
		return
	}
	log.Printf("[ollama] request %s payload: %s", path, truncate(string(payload), 2048))
}

func (c *OllamaClient) logResponse(path string, resp []byte) {
	if !c.Debug {
		return
	}
	log.Printf("[ollama] response %s payload: %s", path, truncate(string(resp), 2048))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
