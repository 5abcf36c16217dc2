package ui

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const highlightStyle = "monokai"

// Highlight colours text for a terminal using the lexer named by hint. JSON
// is re-indented first. Unknown hints and lexer failures return the text
// unchanged.
func Highlight(text, hint string) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		return text
	}
	if hint == "json" {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(text), "", "  "); err == nil {
			text = buf.String()
		}
	}

	lexer := lexers.Get(hint)
	if lexer == nil {
		return text
	}
	lexer = chroma.Coalesce(lexer)
	it, err := lexer.Tokenise(nil, text)
	if err != nil {
		return text
	}
	var out bytes.Buffer
	if err := formatters.Get("terminal256").Format(&out, styles.Get(highlightStyle), it); err != nil {
		return text
	}
	return out.String()
}

// window returns at most height lines starting at offset, clamping offset
// so the last page stays full.
func window(lines []string, offset, height int) ([]string, int) {
	if height <= 0 || len(lines) == 0 {
		return nil, 0
	}
	if maxOff := len(lines) - height; offset > maxOff {
		offset = maxOff
	}
	if offset < 0 {
		offset = 0
	}
	end := min(offset+height, len(lines))
	return lines[offset:end], offset
}

// splitText joins string elements and splits them into display lines.
func splitText(values []string) []string {
	text := strings.Join(values, "\n")
	return strings.Split(strings.TrimRight(text, "\n"), "\n")
}
