package codeblock

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleResponse = "Here is your page.\n" +
	"```html\n<p>hi</p>\n```\n" +
	"Some styling:\n" +
	"```css\nbody{color:red}\n```\n" +
	"And a helper:\n" +
	"```python\nprint('one')\n```\n" +
	"```python\nprint('two')\n```\n" +
	"```go\nfunc main() {}\n```\n"

func TestExtractGroupsByLanguageInOrder(t *testing.T) {
	group := Extract(sampleResponse)
	require.Len(t, group, len(Languages))
	require.Equal(t, []CodeBlock{{Language: HTML, Text: "<p>hi</p>"}}, group.Blocks(HTML))
	require.Equal(t, []CodeBlock{{Language: CSS, Text: "body{color:red}"}}, group.Blocks(CSS))
	require.Equal(t, []CodeBlock{
		{Language: Python, Text: "print('one')"},
		{Language: Python, Text: "print('two')"},
	}, group.Blocks(Python))
	require.Empty(t, group.Blocks(Bash))
	require.Empty(t, group.Blocks(JavaScript))
	require.Equal(t, 4, group.Count())
	require.True(t, group.HasWeb())
}

func TestExtractIgnoresUnknownTagsAndPrefixes(t *testing.T) {
	group := Extract("```pythonic\nx\n```\n```htmlx\ny\n```\n```go\nz\n```")
	require.Zero(t, group.Count())
	require.False(t, group.HasWeb())
}

func TestExtractKeepsMultilineContent(t *testing.T) {
	text := "```javascript\nconst a = 1;\n\nfunction f() {\n  return a;\n}\n```"
	group := Extract(text)
	require.Equal(t, "const a = 1;\n\nfunction f() {\n  return a;\n}", group.Blocks(JavaScript)[0].Text)
}

func TestExtractEmptyInput(t *testing.T) {
	group := Extract("no code here")
	require.Zero(t, group.Count())
	for _, lang := range Languages {
		require.NotNil(t, group[lang])
	}
}

func TestExtractOther(t *testing.T) {
	other := ExtractOther(sampleResponse + "```Rust\nfn main() {}\n```\n")
	require.Len(t, other, 2)
	require.Equal(t, "func main() {}", other["go"][0].Text)
	require.Equal(t, "fn main() {}", other["Rust"][0].Text)
	require.Empty(t, other[Python])
}

func TestExtractOtherKeepsMiscasedKnownTags(t *testing.T) {
	text := "```HTML\n<p>x</p>\n```\n```Python\nprint(1)\n```\n```python.x\nprint(2)\n```\n"
	group := Extract(text)
	require.Empty(t, group[HTML])
	require.Len(t, group[Python], 1)

	other := ExtractOther(text)
	require.Len(t, other, 2)
	require.Equal(t, "<p>x</p>", other["HTML"][0].Text)
	require.Equal(t, "print(1)", other["Python"][0].Text)
	require.Empty(t, other["python.x"])
}

func TestExtractRoundTripsFencedBlocks(t *testing.T) {
	first := Extract(sampleResponse)
	var b strings.Builder
	for _, lang := range Languages {
		for _, block := range first[lang] {
			b.WriteString(Fence(block))
			b.WriteString("\n")
		}
	}
	second := Extract(b.String())
	require.Equal(t, first, second)
}
