// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/jeranaias/sonic-tui/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter renders conversations as a standalone HTML page with
// syntax-highlighted code blocks.
type HTMLExporter struct{}

// Export converts a conversation to a self-contained HTML document.
func (e *HTMLExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("<meta charset=\"utf-8\">\n")
	sb.WriteString(fmt.Sprintf("<title>%s</title>\n", html.EscapeString(conv.Title)))
	sb.WriteString("<style>\n" + pageCSS + "</style>\n")
	sb.WriteString("</head>\n<body>\n")

	sb.WriteString("<header>\n")
	sb.WriteString(fmt.Sprintf("  <h1>%s</h1>\n", html.EscapeString(conv.Title)))
	sb.WriteString(fmt.Sprintf("  <p class=\"meta\">%d messages &middot; created %s &middot; exported %s</p>\n",
		len(conv.Messages),
		conv.CreatedAt.Format("2006-01-02 15:04"),
		time.Now().Format("2006-01-02 15:04")))
	sb.WriteString("</header>\n")

	sb.WriteString("<main>\n")
	for _, msg := range conv.Messages {
		cssClass := "assistant"
		if msg.Role == model.RoleUser {
			cssClass = "user"
		}
		sb.WriteString(fmt.Sprintf("<section class=\"message %s\">\n", cssClass))
		sb.WriteString(fmt.Sprintf("  <div class=\"sender\">%s</div>\n", html.EscapeString(msg.Role.DisplayName())))
		sb.WriteString("  <div class=\"content\">\n")
		sb.WriteString(formatContent(msg.Content))
		for _, img := range msg.Images {
			if strings.HasPrefix(img, "data:image/") {
				sb.WriteString(fmt.Sprintf("    <img class=\"attachment\" src=\"%s\" alt=\"attachment\">\n", img))
			}
		}
		sb.WriteString("  </div>\n")
		sb.WriteString("</section>\n")
	}
	sb.WriteString("</main>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// CONTENT FORMATTING
// =============================================================================

var codeBlockRegex = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\n(.*?)```")

// formatContent converts message text to HTML: fenced code blocks get
// syntax highlighting, everything else is escaped and paragraph-wrapped.
func formatContent(content string) string {
	var sb strings.Builder
	last := 0

	for _, loc := range codeBlockRegex.FindAllStringSubmatchIndex(content, -1) {
		sb.WriteString(formatProse(content[last:loc[0]]))
		lang := content[loc[2]:loc[3]]
		code := content[loc[4]:loc[5]]
		sb.WriteString(formatCode(code, lang))
		last = loc[1]
	}
	sb.WriteString(formatProse(content[last:]))

	return sb.String()
}

// formatCode highlights a fenced code block. Unknown languages fall back
// to an escaped <pre> block.
func formatCode(code, lang string) string {
	code = strings.TrimRight(code, "\n")

	var highlighted strings.Builder
	if lang != "" {
		if err := quick.Highlight(&highlighted, code, lang, "html", "monokai"); err == nil {
			label := fmt.Sprintf("<div class=\"code-lang\">%s</div>", html.EscapeString(lang))
			return "<div class=\"code-block\">" + label + highlighted.String() + "</div>\n"
		}
	}
	return "<div class=\"code-block\"><pre><code>" + html.EscapeString(code) + "</code></pre></div>\n"
}

// formatProse escapes plain text and wraps paragraphs.
func formatProse(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var sb strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		escaped := html.EscapeString(para)
		escaped = strings.ReplaceAll(escaped, "\n", "<br>\n")
		sb.WriteString("<p>" + escaped + "</p>\n")
	}
	return sb.String()
}

// pageCSS is the embedded stylesheet for exported pages.
const pageCSS = `
body { font-family: -apple-system, "Segoe UI", sans-serif; background: #0f1117; color: #e6e6e6; margin: 0; }
header { padding: 24px 32px; border-bottom: 1px solid #2a2d3a; }
header h1 { margin: 0 0 4px; font-size: 1.4em; }
.meta { color: #8a8f9e; font-size: 0.85em; margin: 0; }
main { max-width: 820px; margin: 0 auto; padding: 24px 16px; }
.message { margin-bottom: 20px; padding: 14px 18px; border-radius: 10px; }
.message.user { background: #1c2a4a; }
.message.assistant { background: #1a1d27; }
.sender { font-weight: 600; font-size: 0.8em; text-transform: uppercase; letter-spacing: 0.06em; color: #8a8f9e; margin-bottom: 8px; }
.content p { margin: 0 0 10px; line-height: 1.55; }
.code-block { margin: 10px 0; border-radius: 8px; overflow: hidden; background: #272822; }
.code-block pre { margin: 0; padding: 12px 14px; overflow-x: auto; font-size: 0.9em; }
.code-lang { padding: 4px 14px; font-size: 0.75em; color: #8a8f9e; background: #1f201b; text-transform: lowercase; }
.attachment { max-width: 100%; border-radius: 8px; margin-top: 8px; }
`
