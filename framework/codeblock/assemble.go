package codeblock

import (
	"regexp"
	"strings"
)

// PlaceholderFragment stands in for a missing html fragment.
const PlaceholderFragment = "<div></div>"

var (
	headClose = regexp.MustCompile(`(?i)</head>`)
	bodyClose = regexp.MustCompile(`(?i)</body>`)
	htmlClose = regexp.MustCompile(`(?i)</html>`)

	bodyInner   = regexp.MustCompile(`(?is)<body\b[^>]*>(.*?)(?:</body>|$)`)
	doctypeTag  = regexp.MustCompile(`(?is)<!doctype[^>]*>`)
	headSection = regexp.MustCompile(`(?is)<head\b.*?</head>`)
	htmlTag     = regexp.MustCompile(`(?is)</?html\b[^>]*>`)
)

// Fragments holds the joined per-language web sources.
type Fragments struct {
	HTML string
	CSS  string
	JS   string
}

// Collect trims every web block and joins each language with newlines in
// extraction order. When any html block is a full document the first one
// becomes the base and the other html blocks are unwrapped into its body.
func Collect(group BlockGroup) Fragments {
	return Fragments{
		HTML: mergeHTML(group[HTML]),
		CSS:  joinBlocks(group[CSS]),
		JS:   joinBlocks(group[JavaScript]),
	}
}

func joinBlocks(blocks []CodeBlock) string {
	if len(blocks) == 0 {
		return ""
	}
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, strings.TrimSpace(b.Text))
	}
	return strings.Join(parts, "\n")
}

func mergeHTML(blocks []CodeBlock) string {
	base := -1
	for i, b := range blocks {
		if IsDocument(b.Text) {
			base = i
			break
		}
	}
	if base < 0 {
		return joinBlocks(blocks)
	}
	var extra []string
	for i, b := range blocks {
		if i == base {
			continue
		}
		text := strings.TrimSpace(b.Text)
		if IsDocument(text) {
			text = documentBody(text)
		}
		if text != "" {
			extra = append(extra, text)
		}
	}
	doc := strings.TrimSpace(blocks[base].Text)
	if len(extra) == 0 {
		return doc
	}
	return insertBefore(doc, strings.Join(extra, "\n")+"\n", bodyClose, htmlClose)
}

// documentBody strips the document wrapper from markup, keeping only what
// would render inside <body>.
func documentBody(markup string) string {
	if m := bodyInner.FindStringSubmatch(markup); m != nil {
		return strings.TrimSpace(m[1])
	}
	markup = doctypeTag.ReplaceAllString(markup, "")
	markup = headSection.ReplaceAllString(markup, "")
	markup = htmlTag.ReplaceAllString(markup, "")
	return strings.TrimSpace(markup)
}

// insertBefore places text before the first match of the first pattern that
// matches doc. With no match the text is appended.
func insertBefore(doc, text string, patterns ...*regexp.Regexp) string {
	for _, re := range patterns {
		if loc := re.FindStringIndex(doc); loc != nil {
			return doc[:loc[0]] + text + doc[loc[0]:]
		}
	}
	return doc + "\n" + text
}

// Assemble merges the web blocks of group into one renderable document. The
// boolean is false when the group has no html, css or javascript blocks.
func Assemble(group BlockGroup) (string, bool) {
	if !group.HasWeb() {
		return "", false
	}
	return AssembleFragments(Collect(group)), true
}

// AssembleFragments wraps a fragment into a full document, or augments an
// html fragment that already is one. It never adds a second wrapper.
func AssembleFragments(f Fragments) string {
	html := f.HTML
	if html == "" {
		html = PlaceholderFragment
	}
	if !IsDocument(html) {
		return "<html>\n<head>\n<style>\n" + f.CSS + "\n</style>\n</head>\n<body>\n" +
			html + "\n<script>\n" + f.JS + "\n</script>\n</body>\n</html>"
	}
	doc := html
	if f.CSS != "" {
		doc = insertFirst(doc, "<style>"+f.CSS+"</style>", headClose)
	}
	if f.JS != "" {
		doc = insertFirst(doc, "<script>"+f.JS+"</script>", bodyClose)
	}
	return doc
}

func insertFirst(doc, text string, re *regexp.Regexp) string {
	if loc := re.FindStringIndex(doc); loc != nil {
		return doc[:loc[0]] + text + doc[loc[0]:]
	}
	return doc
}

// IsDocument reports whether markup already carries a document root tag.
func IsDocument(markup string) bool {
	return strings.Contains(strings.ToLower(markup), "<html")
}

// WrapEditorBuffer prepares hand-edited code for preview: a document is
// returned as is, anything else is wrapped in an empty-styled shell. Blank
// input yields "".
func WrapEditorBuffer(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if IsDocument(code) {
		return code
	}
	return "<html>\n<head>\n<style></style>\n</head>\n<body>\n" + code + "\n</body>\n</html>"
}
