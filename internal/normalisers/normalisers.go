package normalisers

import (
	"regexp"
	"strings"
)

// PlaintextNormaliser handles plain text and is the fallback for any format.
type PlaintextNormaliser struct{}

func (n *PlaintextNormaliser) Normalise(content string, format string) string {
	content = normaliseLineEndings(content)
	content = collapseSpaces(content)
	content = collapseBlankLines(content)
	return strings.TrimSpace(content)
}

func (n *PlaintextNormaliser) SupportedFormats() []string {
	return []string{"txt", "text", "*"}
}

func (n *PlaintextNormaliser) Priority() int {
	return 1
}

// MarkdownNormaliser handles Markdown content.
type MarkdownNormaliser struct{}

func (n *MarkdownNormaliser) Normalise(content string, format string) string {
	content = normaliseLineEndings(content)
	content = collapseBlankLines(content)
	return strings.TrimSpace(content)
}

func (n *MarkdownNormaliser) SupportedFormats() []string {
	return []string{"md", "markdown"}
}

func (n *MarkdownNormaliser) Priority() int {
	return 50
}

// HTMLNormaliser reduces HTML to its visible text.
type HTMLNormaliser struct{}

func (n *HTMLNormaliser) Normalise(content string, format string) string {
	content = removeHTMLBlocks(content, "script")
	content = removeHTMLBlocks(content, "style")
	content = stripHTMLTags(content)
	content = decodeHTMLEntities(content)
	content = normaliseLineEndings(content)
	content = collapseSpaces(content)
	content = collapseBlankLines(content)
	return strings.TrimSpace(content)
}

func (n *HTMLNormaliser) SupportedFormats() []string {
	return []string{"html", "htm", "xhtml"}
}

func (n *HTMLNormaliser) Priority() int {
	return 50
}

// PDFNormaliser repairs text laid out for print: words hyphenated across
// lines are joined and form feeds become paragraph breaks.
type PDFNormaliser struct{}

var hyphenBreak = regexp.MustCompile(`(\p{L})-\n(\p{Ll})`)

func (n *PDFNormaliser) Normalise(content string, format string) string {
	content = normaliseLineEndings(content)
	content = strings.ReplaceAll(content, "\f", "\n\n")
	content = hyphenBreak.ReplaceAllString(content, "$1$2")
	content = collapseSpaces(content)
	content = collapseBlankLines(content)
	return strings.TrimSpace(content)
}

func (n *PDFNormaliser) SupportedFormats() []string {
	return []string{"pdf"}
}

func (n *PDFNormaliser) Priority() int {
	return 60
}

func normaliseLineEndings(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

// collapseBlankLines keeps at most one empty line between paragraphs
func collapseBlankLines(content string) string {
	for strings.Contains(content, "\n\n\n") {
		content = strings.ReplaceAll(content, "\n\n\n", "\n\n")
	}
	return content
}

// collapseSpaces squeezes runs of spaces and tabs and trims each line
func collapseSpaces(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		line = strings.ReplaceAll(line, "\t", " ")
		for strings.Contains(line, "  ") {
			line = strings.ReplaceAll(line, "  ", " ")
		}
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

func removeHTMLBlocks(content, tagName string) string {
	result := content
	startTag := "<" + strings.ToLower(tagName)
	endTag := "</" + strings.ToLower(tagName) + ">"

	for {
		lower := strings.ToLower(result)
		startIdx := strings.Index(lower, startTag)
		if startIdx == -1 {
			break
		}
		endIdx := strings.Index(lower[startIdx:], endTag)
		if endIdx == -1 {
			break
		}
		result = result[:startIdx] + result[startIdx+endIdx+len(endTag):]
	}
	return result
}

func stripHTMLTags(content string) string {
	var result strings.Builder
	inTag := false

	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			result.WriteRune(' ')
		case !inTag:
			result.WriteRune(r)
		}
	}
	return result.String()
}

var htmlEntities = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", "\"",
	"&apos;", "'",
	"&#39;", "'",
	"&hellip;", "…",
)

func decodeHTMLEntities(content string) string {
	return htmlEntities.Replace(content)
}
