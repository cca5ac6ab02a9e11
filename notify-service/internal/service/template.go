package service

import (
	"strings"
	"unicode"
)

// Template renders the announcement post. Overrides are display text: they
// are sanitized and capped but otherwise passed through.
type Template struct {
	DefaultTitle   string
	DefaultContent string
	TitlePrefix    string
	ContentSuffix  string
	MaxTitleLen    int
	MaxContentLen  int
}

// Render returns the final title and body for a post.
func (t Template) Render(titleOverride, contentOverride string) (string, string) {
	title := sanitizeLine(titleOverride, t.MaxTitleLen)
	if title == "" {
		title = t.DefaultTitle
	}
	content := sanitizeText(contentOverride, t.MaxContentLen)
	if content == "" {
		content = t.DefaultContent
	}
	return t.TitlePrefix + title, content + t.ContentSuffix
}

// sanitizeLine strips control characters, collapses all whitespace to
// single spaces and truncates to max runes.
func sanitizeLine(s string, max int) string {
	s = strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}), " ")
	return truncate(s, max)
}

// sanitizeText is sanitizeLine that keeps line breaks, collapsing runs of
// blank lines.
func sanitizeText(s string, max int) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = sanitizeLine(line, 0)
		if line == "" {
			if len(out) > 0 && !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return truncate(strings.TrimSpace(strings.Join(out, "\n")), max)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}
