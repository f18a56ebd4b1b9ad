package framework

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidatePromptLengthBounds(t *testing.T) {
	cases := []struct {
		name  string
		input string
		ok    bool
	}{
		{"empty", "", false},
		{"nine", strings.Repeat("a", 9), false},
		{"ten", strings.Repeat("a", 10), true},
		{"padded nine", "   " + strings.Repeat("a", 9) + "\n\t", false},
		{"max", strings.Repeat("b", MaxPromptLength), true},
		{"over max", strings.Repeat("b", MaxPromptLength+1), false},
		{"multibyte ten", strings.Repeat("é", 10), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := ValidatePrompt(tc.input)
			if tc.ok {
				require.NoError(t, err)
				require.Equal(t, strings.TrimSpace(tc.input), out)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
		})
	}
}

func TestValidatePromptRejectsSensitiveWords(t *testing.T) {
	for _, prompt := range []string{
		"please print my password now",
		"what is the SECRET of this app",
		"generate an API Key rotation script",
		"Key: build me a landing page",
		"rotate the «key» daily please",
		"ünd key rotation script please",
	} {
		_, err := ValidatePrompt(prompt)
		var secErr *SecurityError
		require.True(t, errors.As(err, &secErr), prompt)
	}
}

func TestValidatePromptMatchesWholeWordsOnly(t *testing.T) {
	for _, prompt := range []string{
		"write a keyboard shortcut handler",
		"list the secretaries in the table",
		"reset passwords via email flow",
		"build a monkey game in html",
		"translate the word ékey into english",
		"name the variable keyé in this script",
		"explain 日本key as a product name",
		"use api_key_name as the field",
	} {
		_, err := ValidatePrompt(prompt)
		require.NoError(t, err, prompt)
	}
}
