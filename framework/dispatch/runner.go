package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lexcodex/promptforge/framework"
	"github.com/lexcodex/promptforge/llm"
)

// ModifyPrompt builds the code modification request.
func ModifyPrompt(instructions, code string) string {
	return fmt.Sprintf("Please update the following code according to these instructions:\n\nInstructions:\n%s\n\nCode:\n%s", instructions, code)
}

// FailureMessage renders a task error for display.
func FailureMessage(kind Kind, err error) string {
	if kind == KindModifyCode {
		return fmt.Sprintf("Error modifying code: %v", err)
	}
	return fmt.Sprintf("API Error: %v", err)
}

// ModelRunner executes tasks against a model catalog.
//
// Generate tasks call the selected model. When a non-primary selection fails
// the primary provider is tried once more. A failure of the primary model is
// final. ModifyCode tasks always use the primary provider.
type ModelRunner struct {
	Catalog   *llm.Catalog
	Telemetry framework.Telemetry
	Logger    *log.Logger
}

// Run implements Runner.
func (r *ModelRunner) Run(ctx context.Context, task Task) (Outcome, error) {
	if r == nil || r.Catalog == nil {
		return Outcome{}, fmt.Errorf("model catalog missing")
	}
	switch task.Kind {
	case KindGenerate:
		return r.generate(ctx, task)
	case KindModifyCode:
		name, primary := r.Catalog.Primary()
		if primary == nil {
			return Outcome{}, fmt.Errorf("primary model %s not configured", name)
		}
		text, err := primary.Generate(ctx, ModifyPrompt(task.Payload.Instructions, task.Payload.Code))
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Text: text, Model: name}, nil
	default:
		return Outcome{}, fmt.Errorf("unknown task kind %q", task.Kind)
	}
}

func (r *ModelRunner) generate(ctx context.Context, task Task) (Outcome, error) {
	primaryName, primary := r.Catalog.Primary()
	selected := task.Payload.Model
	if selected == "" {
		selected = primaryName
	}
	if r.Catalog.IsPrimary(selected) {
		if primary == nil {
			return Outcome{}, fmt.Errorf("primary model %s not configured", primaryName)
		}
		text, err := primary.Generate(ctx, task.Payload.Prompt)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Text: text, Model: primaryName}, nil
	}

	var err error
	if p, ok := r.Catalog.Get(selected); ok {
		var text string
		text, err = p.Generate(ctx, task.Payload.Prompt)
		if err == nil {
			return Outcome{Text: text, Model: selected}, nil
		}
	} else {
		err = fmt.Errorf("unknown model %q", selected)
	}

	r.logf("model %s failed for task %s, retrying with %s: %v", selected, task.ID, primaryName, err)
	if r.Telemetry != nil {
		r.Telemetry.Emit(framework.Event{
			Type:      framework.EventTaskRetry,
			TaskID:    task.ID,
			Message:   fmt.Sprintf("retrying with %s", primaryName),
			Timestamp: time.Now().UTC(),
			Metadata:  map[string]interface{}{"model": selected, "error": err.Error()},
		})
	}
	if primary == nil {
		return Outcome{}, err
	}
	text, retryErr := primary.Generate(ctx, task.Payload.Prompt)
	if retryErr != nil {
		return Outcome{}, retryErr
	}
	return Outcome{Text: text, Model: primaryName, Retried: true}, nil
}

func (r *ModelRunner) logf(format string, args ...interface{}) {
	if r.Logger == nil {
		return
	}
	r.Logger.Printf("[runner] "+format, args...)
}
