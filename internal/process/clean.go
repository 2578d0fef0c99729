package process

import (
	"regexp"
	"strings"
)

var (
	controlRe    = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	pageNumberRe = regexp.MustCompile(`(?im)^\s*(?:page\s+\d+(?:\s+of\s+\d+)?|\d+\s*/\s*\d+|-\s*\d+\s*-)\s*$`)
	spaceRunRe   = regexp.MustCompile(`[ \t]+`)
	newlineRunRe = regexp.MustCompile(`\n{3,}`)
	bulletRe     = regexp.MustCompile(`(?m)^\s*[•◦▪§]\s*`)
	urlRe        = regexp.MustCompile(`(?:https?://|www\.)[^\s]+`)
	emailRe      = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

var quoteReplacer = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "-",
	" ", " ",
)

// Clean normalizes extracted text: strips control characters, URLs,
// email addresses and page number lines, unifies typographic
// punctuation and collapses whitespace while preserving paragraph
// breaks.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = controlRe.ReplaceAllString(text, " ")
	text = quoteReplacer.Replace(text)
	text = urlRe.ReplaceAllString(text, "")
	text = emailRe.ReplaceAllString(text, "")
	text = pageNumberRe.ReplaceAllString(text, "")
	text = bulletRe.ReplaceAllString(text, "- ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRunRe.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = newlineRunRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
