// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"strings"

	"github.com/jeranaias/sonic-tui/internal/runtime"
)

// =============================================================================
// PROGRESS CLASSIFICATION
// =============================================================================

// Phase is the coarse stage of an engine load, derived from the daemon's
// free-text progress reports.
type Phase int

const (
	PhaseStarting Phase = iota
	PhaseDownloading
	PhaseLoading
	PhaseFinishing
	PhaseFinished
)

// String returns the display label for a phase.
func (p Phase) String() string {
	switch p {
	case PhaseDownloading:
		return "Downloading"
	case PhaseLoading:
		return "Loading"
	case PhaseFinishing:
		return "Finishing"
	case PhaseFinished:
		return "Ready"
	default:
		return "Starting"
	}
}

// Substrings the daemon embeds in its progress text. These track the
// upstream runtime's report format and are the only place that format is
// depended on.
const (
	markerFinishing   = "Finish"
	markerLoading     = "Loading"
	markerDownloading = "Fetching"
)

// ProgressReport is a normalized load progress update.
type ProgressReport struct {
	Phase   Phase
	Percent float64 // fraction in [0,1]
	ModelID string
	Raw     string // daemon's original text, for detail display
}

// classifyProgress maps a raw daemon progress event to a phase. A completed
// fraction wins over any text marker; among markers, the later stage is
// checked first so "Finish loading" classifies as finishing, not loading.
func classifyProgress(ev runtime.ProgressEvent) Phase {
	switch {
	case ev.Progress == 1:
		return PhaseFinished
	case strings.Contains(ev.Text, markerFinishing):
		return PhaseFinishing
	case strings.Contains(ev.Text, markerLoading):
		return PhaseLoading
	case strings.Contains(ev.Text, markerDownloading):
		return PhaseDownloading
	default:
		return PhaseStarting
	}
}

// normalizeProgress builds the report delivered to load observers.
func normalizeProgress(ev runtime.ProgressEvent, modelID string) ProgressReport {
	return ProgressReport{
		Phase:   classifyProgress(ev),
		Percent: ev.Progress,
		ModelID: modelID,
		Raw:     ev.Text,
	}
}
