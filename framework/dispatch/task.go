package dispatch

import "fmt"

// Kind selects what a task does.
type Kind string

const (
	KindGenerate   Kind = "generate"
	KindModifyCode Kind = "modify_code"
)

// Status is the task lifecycle position.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Payload is the task input. Generate uses Prompt and Model; ModifyCode uses
// Instructions and Code.
type Payload struct {
	Prompt       string
	Model        string
	Instructions string
	Code         string
}

// Validate checks the payload has what the kind needs.
func (p Payload) Validate(kind Kind) error {
	switch kind {
	case KindGenerate:
		if p.Prompt == "" {
			return fmt.Errorf("generate task requires a prompt")
		}
	case KindModifyCode:
		if p.Instructions == "" {
			return fmt.Errorf("modify task requires instructions")
		}
		if p.Code == "" {
			return fmt.Errorf("modify task requires code")
		}
	default:
		return fmt.Errorf("unknown task kind %q", kind)
	}
	return nil
}

// Task is one unit of background work. Records are write-once from the
// submitter's point of view; only the dispatcher changes Status.
type Task struct {
	ID      string
	Kind    Kind
	Payload Payload
	Status  Status
}

// TaskHandle is returned by Submit.
type TaskHandle struct {
	ID   string
	Kind Kind
	done chan struct{}
}

// Done is closed after the task's terminal notifications were delivered, or
// when the task is abandoned by Shutdown.
func (h TaskHandle) Done() <-chan struct{} {
	return h.done
}

// NotificationKind types messages on the notification channel.
type NotificationKind string

const (
	NotifyStateChange NotificationKind = "state_change"
	NotifyResult      NotificationKind = "result"
	NotifyError       NotificationKind = "error"
	NotifyUIEnabled   NotificationKind = "ui_enabled"
)

// Notification is delivered to the single consumer.
type Notification struct {
	Kind     NotificationKind
	TaskID   string
	TaskKind Kind
	Status   Status
	// Payload holds the output text on NotifyResult.
	Payload string
	// Message holds the human-readable failure on NotifyError.
	Message string
	// Model is the model that produced Payload.
	Model   string
	Retried bool
}

// Stats counts submissions and outcomes.
type Stats struct {
	Submitted int
	Running   int
	Succeeded int
	Failed    int
	Abandoned int
}
