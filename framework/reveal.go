package framework

import (
	"iter"
	"strings"
)

// RevealRunes yields successive prefixes of text, one rune longer each
// step. The final value is text itself. Pacing is left to the caller.
func RevealRunes(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for i := range text {
			if i == 0 {
				continue
			}
			if !yield(text[:i]) {
				return
			}
		}
		if text != "" {
			yield(text)
		}
	}
}

// RevealLines yields successive line prefixes of text joined by "\n".
func RevealLines(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" {
			return
		}
		lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
		for i := range lines {
			if !yield(strings.Join(lines[:i+1], "\n")) {
				return
			}
		}
	}
}
