package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplateRender(t *testing.T) {
	tpl := Template{
		DefaultTitle:   "New Listener Joined",
		DefaultContent: "Someone just tuned in!",
		TitlePrefix:    "🎵 ",
		ContentSuffix:  "\n\n-- radio",
		MaxTitleLen:    10,
		MaxContentLen:  50,
	}

	tests := []struct {
		name        string
		title       string
		content     string
		wantTitle   string
		wantContent string
	}{
		{"defaults", "", "", "🎵 New Listener Joined", "Someone just tuned in!\n\n-- radio"},
		{"whitespace only falls back", " \t\n", "\r\n", "🎵 New Listener Joined", "Someone just tuned in!\n\n-- radio"},
		{"control characters stripped", "Hi\x00there", "a\x07b", "🎵 Hi there", "a b\n\n-- radio"},
		{"title truncated by runes", "ééééééééééééé", "x", "🎵 éééééééééé", "x\n\n-- radio"},
		{"blank lines collapsed", "t", "line1\n\n\n\nline2", "🎵 t", "line1\n\nline2\n\n-- radio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, content := tpl.Render(tt.title, tt.content)
			assert.Equal(t, tt.wantTitle, title)
			assert.Equal(t, tt.wantContent, content)
		})
	}
}

func TestTemplateRenderCapsContent(t *testing.T) {
	tpl := Template{DefaultTitle: "t", DefaultContent: "c", MaxContentLen: 5}
	_, content := tpl.Render("", strings.Repeat("x", 100))
	assert.Equal(t, "xxxxx", content)
}
