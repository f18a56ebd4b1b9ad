package framework

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRevealRunesYieldsGrowingPrefixes(t *testing.T) {
	var got []string
	for prefix := range RevealRunes("héy") {
		got = append(got, prefix)
	}
	require.Equal(t, []string{"h", "hé", "héy"}, got)
}

func TestRevealRunesStopsEarly(t *testing.T) {
	var got []string
	for prefix := range RevealRunes("abcdef") {
		got = append(got, prefix)
		if len(got) == 2 {
			break
		}
	}
	require.Equal(t, []string{"a", "ab"}, got)
}

func TestRevealLines(t *testing.T) {
	var got []string
	for prefix := range RevealLines("one\r\ntwo\nthree") {
		got = append(got, prefix)
	}
	require.Equal(t, []string{"one", "one\ntwo", "one\ntwo\nthree"}, got)

	for range RevealLines("") {
		t.Fatal("empty text yields nothing")
	}
}
