package framework

import "strings"

// blockedCommandPatterns are matched as plain, case-sensitive substrings of
// the raw command line. A match anywhere rejects the command.
var blockedCommandPatterns = []string{"rm ", "del ", "format ", "chmod", "sudo"}

// CommandGate screens shell command lines before they reach a process.
type CommandGate struct {
	patterns []string
}

// NewCommandGate returns a gate using the built-in denylist.
func NewCommandGate() *CommandGate {
	return &CommandGate{patterns: append([]string(nil), blockedCommandPatterns...)}
}

// Validate returns a *SecurityError when command contains a blocked pattern.
func (g *CommandGate) Validate(command string) error {
	patterns := blockedCommandPatterns
	if g != nil && g.patterns != nil {
		patterns = g.patterns
	}
	for _, p := range patterns {
		if strings.Contains(command, p) {
			return &SecurityError{Reason: "blocked potentially dangerous command", Subject: command}
		}
	}
	return nil
}

// BlockedPatterns lists the active denylist.
func (g *CommandGate) BlockedPatterns() []string {
	if g == nil || g.patterns == nil {
		return append([]string(nil), blockedCommandPatterns...)
	}
	return append([]string(nil), g.patterns...)
}
