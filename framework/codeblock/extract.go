// Package codeblock pulls fenced code out of model responses, assembles web
// fragments into a previewable document and writes the remaining blocks to
// disk for execution.
package codeblock

import (
	"regexp"
	"strings"
)

// Language is the tag that follows an opening fence.
type Language string

const (
	Python     Language = "python"
	JavaScript Language = "javascript"
	HTML       Language = "html"
	CSS        Language = "css"
	Bash       Language = "bash"
)

// Languages lists the recognized tags in extraction order.
var Languages = []Language{Python, JavaScript, HTML, CSS, Bash}

// CodeBlock is one fenced region. Text excludes the fences and surrounding
// blank space.
type CodeBlock struct {
	Language Language
	Text     string
}

// BlockGroup maps a language to its blocks in document order.
type BlockGroup map[Language][]CodeBlock

// Blocks returns the blocks for lang (nil when none were found).
func (g BlockGroup) Blocks(lang Language) []CodeBlock {
	return g[lang]
}

// Count returns the total number of blocks across all languages.
func (g BlockGroup) Count() int {
	n := 0
	for _, blocks := range g {
		n += len(blocks)
	}
	return n
}

// HasWeb reports whether any html, css or javascript block was found.
func (g BlockGroup) HasWeb() bool {
	return len(g[HTML]) > 0 || len(g[CSS]) > 0 || len(g[JavaScript]) > 0
}

var fencePatterns = compileFencePatterns()

func compileFencePatterns() map[Language]*regexp.Regexp {
	out := make(map[Language]*regexp.Regexp, len(Languages))
	for _, lang := range Languages {
		out[lang] = regexp.MustCompile("(?ms)^[ \\t]*```" + regexp.QuoteMeta(string(lang)) + "\\b\\s*(.*?)\\s*```")
	}
	return out
}

// anyFence matches a tagged block of any language. The tag group excludes
// whitespace so untagged fences never match.
var anyFence = regexp.MustCompile("(?ms)^[ \\t]*```([A-Za-z0-9_+#.-]+)[^\\S\\n]*\\n(.*?)\\s*```")

// Extract scans text for each recognized language independently. Every
// recognized language has an entry, possibly empty.
func Extract(text string) BlockGroup {
	group := make(BlockGroup, len(Languages))
	for _, lang := range Languages {
		matches := fencePatterns[lang].FindAllStringSubmatch(text, -1)
		blocks := make([]CodeBlock, 0, len(matches))
		for _, m := range matches {
			blocks = append(blocks, CodeBlock{Language: lang, Text: m[1]})
		}
		group[lang] = blocks
	}
	return group
}

// ExtractOther returns blocks whose tag Extract does not claim, grouped by
// the tag exactly as written. Tags are case-sensitive, so ```HTML lands
// here rather than in Extract's html group.
func ExtractOther(text string) BlockGroup {
	group := BlockGroup{}
	for _, m := range anyFence.FindAllStringSubmatch(text, -1) {
		if recognized(m[1]) {
			continue
		}
		lang := Language(m[1])
		group[lang] = append(group[lang], CodeBlock{Language: lang, Text: m[2]})
	}
	return group
}

// recognized mirrors the fence patterns: a known tag followed by the end of
// the tag or a non-word character.
func recognized(tag string) bool {
	for _, lang := range Languages {
		rest, ok := strings.CutPrefix(tag, string(lang))
		if ok && (rest == "" || !isWordByte(rest[0])) {
			return true
		}
	}
	return false
}

func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// Fence renders a block back into fenced form.
func Fence(block CodeBlock) string {
	return "```" + string(block.Language) + "\n" + block.Text + "\n```"
}
