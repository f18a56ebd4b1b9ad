package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lexcodex/promptforge/framework"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestOllamaClientGenerate(t *testing.T) {
	client := NewOllamaClient("http://fake", "test")
	client.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) *http.Response {
			assert.Equal(t, "/api/generate", req.URL.Path)
			var payload map[string]interface{}
			assert.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			assert.Equal(t, "hello", payload["prompt"])
			assert.Equal(t, "test", payload["model"])
			assert.Equal(t, false, payload["stream"])
			return jsonResponse(200, `{"response":"answer"}`)
		}),
	}

	text, err := client.Generate(context.Background(), "hello")
	assert.NoError(t, err)
	assert.Equal(t, "answer", text)
}

func TestOllamaClientErrorStatus(t *testing.T) {
	client := NewOllamaClient("http://fake", "")
	client.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) *http.Response {
			return jsonResponse(500, `model not found`)
		}),
	}

	_, err := client.Generate(context.Background(), "hello")
	var apiErr *framework.APIError
	if assert.True(t, errors.As(err, &apiErr)) {
		assert.Equal(t, 500, apiErr.Status)
		assert.Contains(t, apiErr.Error(), "model not found")
	}
}

func TestOllamaClientErrorField(t *testing.T) {
	client := NewOllamaClient("http://fake", "m")
	client.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) *http.Response {
			return jsonResponse(200, `{"error":"out of memory"}`)
		}),
	}
	_, err := client.Generate(context.Background(), "hello")
	assert.ErrorContains(t, err, "out of memory")
}
