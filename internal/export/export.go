// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders conversations to downloadable formats.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/sonic-tui/internal/model"
)

// =============================================================================
// FORMATS
// =============================================================================

// Format identifies an export output format.
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
)

// ParseFormat resolves a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "txt", "text", "plain":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown export format %q", name)
	}
}

// Formats returns all supported formats in display order.
func Formats() []Format {
	return []Format{FormatText, FormatMarkdown, FormatJSON, FormatHTML}
}

// =============================================================================
// EXPORTER INTERFACE
// =============================================================================

// Exporter renders a conversation to one output format.
type Exporter interface {
	// Export renders the conversation and returns the file content.
	Export(conv *model.Conversation) ([]byte, error)

	// FileExtension returns the output extension including the dot.
	FileExtension() string

	// MimeType returns the MIME type of the output.
	MimeType() string
}

// For returns the exporter for a format.
func For(format Format) (Exporter, error) {
	switch format {
	case FormatText:
		return &TextExporter{}, nil
	case FormatMarkdown:
		return &MarkdownExporter{}, nil
	case FormatJSON:
		return &JSONExporter{}, nil
	case FormatHTML:
		return &HTMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

// Filename builds the download filename for a conversation title: the
// title lowercased with every non-alphanumeric run collapsed to an
// underscore, plus the format extension.
func Filename(title string, format Format) string {
	sanitized := sanitizeFilename(title)
	if sanitized == "" {
		sanitized = "conversation"
	}
	return sanitized + "." + string(format)
}

// sanitizeFilename lowercases the title and replaces each character
// outside [a-z0-9] with an underscore.
func sanitizeFilename(title string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

// WriteFile exports a conversation into dir and returns the output path.
func WriteFile(conv *model.Conversation, format Format, dir string) (string, error) {
	exporter, err := For(format)
	if err != nil {
		return "", err
	}

	content, err := exporter.Export(conv)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(dir, Filename(conv.Title, format))
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}
