package framework

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinPromptLength = 10
	MaxPromptLength = 5000
)

// Word boundaries count every Unicode letter and digit as a word character,
// so "ékey" is not a match. Go's \b only knows ASCII.
var sensitivePromptPattern = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(?:password|secret|key)(?:[^\p{L}\p{N}_]|$)`)

// ValidatePrompt trims the prompt and checks its length (in characters) and
// content. It returns the trimmed prompt on success.
func ValidatePrompt(prompt string) (string, error) {
	text := strings.TrimSpace(prompt)
	n := utf8.RuneCountInString(text)
	if n < MinPromptLength {
		return "", &ValidationError{Field: "query", Reason: fmt.Sprintf("too short (minimum %d characters)", MinPromptLength)}
	}
	if n > MaxPromptLength {
		return "", &ValidationError{Field: "query", Reason: fmt.Sprintf("too long (maximum %d characters)", MaxPromptLength)}
	}
	if sensitivePromptPattern.MatchString(text) {
		return "", &SecurityError{Reason: "query contains sensitive keywords"}
	}
	return text, nil
}
