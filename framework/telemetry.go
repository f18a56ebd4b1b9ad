package framework

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

// EventType categorizes telemetry events.
type EventType string

const (
	EventTaskSubmitted  EventType = "task_submitted"
	EventTaskStarted    EventType = "task_started"
	EventTaskSucceeded  EventType = "task_succeeded"
	EventTaskFailed     EventType = "task_failed"
	EventTaskRetry      EventType = "task_retry"
	EventLLMPrompt      EventType = "llm_prompt"
	EventLLMResponse    EventType = "llm_response"
	EventCommandRun     EventType = "command_run"
	EventCommandBlocked EventType = "command_blocked"
	EventFileWritten    EventType = "file_written"
	EventPreviewUpdated EventType = "preview_updated"
	EventActivity       EventType = "activity"
)

// Event captures structured telemetry data.
type Event struct {
	Type      EventType              `json:"type"`
	TaskID    string                 `json:"task_id,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Telemetry receives lifecycle events from the dispatcher, providers and
// the code pipeline.
type Telemetry interface {
	Emit(event Event)
}

// EmitActivity is a shorthand for human-readable activity log entries.
func EmitActivity(t Telemetry, message string) {
	if t == nil {
		return
	}
	t.Emit(Event{Type: EventActivity, Message: message, Timestamp: time.Now().UTC()})
}

// MultiplexTelemetry broadcasts events to multiple sinks.
type MultiplexTelemetry struct {
	Sinks []Telemetry
}

// Emit forwards the event to all registered sinks.
func (m MultiplexTelemetry) Emit(event Event) {
	for _, s := range m.Sinks {
		if s != nil {
			s.Emit(event)
		}
	}
}

// JSONFileTelemetry writes events as newline-delimited JSON to a file.
type JSONFileTelemetry struct {
	path string
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewJSONFileTelemetry opens (or creates) the trace file.
func NewJSONFileTelemetry(path string) (*JSONFileTelemetry, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONFileTelemetry{
		path: path,
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

// Emit writes the JSON record.
func (j *JSONFileTelemetry) Emit(event Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.enc != nil {
		_ = j.enc.Encode(event)
	}
}

// Close releases the file handle.
func (j *JSONFileTelemetry) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file != nil {
		err := j.file.Close()
		j.file = nil
		j.enc = nil
		return err
	}
	return nil
}

// LoggerTelemetry emits events via the standard logger.
type LoggerTelemetry struct {
	Logger *log.Logger
}

// Emit logs the event.
func (t LoggerTelemetry) Emit(event Event) {
	logger := t.Logger
	if logger == nil {
		logger = log.Default()
	}
	if len(event.Metadata) == 0 {
		logger.Printf("[%s] task=%s msg=%s\n", event.Type, event.TaskID, event.Message)
		return
	}
	logger.Printf("[%s] task=%s meta=%v msg=%s\n", event.Type, event.TaskID, event.Metadata, event.Message)
}

// RecordingTelemetry keeps events in memory. Handy in tests and for the
// headless CLI summary.
type RecordingTelemetry struct {
	mu     sync.Mutex
	events []Event
}

// Emit stores the event.
func (r *RecordingTelemetry) Emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything recorded so far.
func (r *RecordingTelemetry) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of the given type were recorded.
func (r *RecordingTelemetry) Count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}
