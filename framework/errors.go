package framework

import "fmt"

// ValidationError reports user input that falls outside accepted bounds.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// SecurityError is returned when input or a command is refused on safety
// grounds. Nothing has been executed or submitted when it is returned.
type SecurityError struct {
	Reason  string
	Subject string
}

func (e *SecurityError) Error() string {
	if e.Subject == "" {
		return "security: " + e.Reason
	}
	return fmt.Sprintf("security: %s (%q)", e.Reason, e.Subject)
}

// APIError wraps a failed provider call.
type APIError struct {
	Provider string
	Status   int
	Err      error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s api error (status %d): %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s api error: %v", e.Provider, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }
