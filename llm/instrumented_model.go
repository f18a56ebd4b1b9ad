package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lexcodex/promptforge/framework"
)

// InstrumentedProvider wraps a Provider and emits telemetry for prompts and
// responses.
type InstrumentedProvider struct {
	Name      string
	Inner     Provider
	Telemetry framework.Telemetry
	Debug     bool
}

func NewInstrumentedProvider(name string, inner Provider, telemetry framework.Telemetry, debug bool) *InstrumentedProvider {
	return &InstrumentedProvider{Name: name, Inner: inner, Telemetry: telemetry, Debug: debug}
}

func (m *InstrumentedProvider) Generate(ctx context.Context, prompt string) (string, error) {
	meta := map[string]interface{}{
		"model":          m.Name,
		"prompt_chars":   len(prompt),
		"prompt_preview": clip(prompt, 1024),
	}
	if m.Debug {
		meta["prompt"] = clip(prompt, 8192)
	}
	m.emit(ctx, framework.EventLLMPrompt, "llm prompt", meta)
	started := time.Now()
	text, err := m.Inner.Generate(ctx, prompt)
	meta = map[string]interface{}{
		"model":       m.Name,
		"duration_ms": time.Since(started).Milliseconds(),
	}
	if err != nil {
		meta["error"] = err.Error()
	} else {
		meta["text_preview"] = clip(text, 1024)
	}
	m.emit(ctx, framework.EventLLMResponse, "llm response", meta)
	return text, err
}

func (m *InstrumentedProvider) emit(ctx context.Context, t framework.EventType, msg string, meta map[string]interface{}) {
	if m == nil || m.Telemetry == nil {
		return
	}
	taskID := ""
	if task, ok := framework.TaskContextFrom(ctx); ok {
		taskID = task.ID
		meta["task_kind"] = task.Kind
	}
	m.Telemetry.Emit(framework.Event{
		Type:      t,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
		Message:   fmt.Sprintf("%s %s", msg, m.Name),
		Metadata:  meta,
	})
}

func clip(s string, max int) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
