// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package runtime

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// =============================================================================
// STREAM READING
// =============================================================================

// Streams from the daemon are newline-delimited JSON: one object per line,
// no SSE framing. Blank lines are skipped.

// maxLineSize bounds a single streamed line. Chunks are small; a line this
// large indicates a broken stream.
const maxLineSize = 1024 * 1024

// readProgressStream consumes an engine acquisition stream, invoking
// onProgress for each event. Returns nil once a Done event arrives, or an
// error if the stream reports failure or ends prematurely.
func readProgressStream(ctx context.Context, r io.Reader, onProgress ProgressFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return &ClientError{Type: ErrTypeTimeout, Message: "engine load cancelled", Cause: err}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event ProgressEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "malformed progress event", Cause: err}
		}

		if event.Error != "" {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: event.Error}
		}

		if onProgress != nil {
			onProgress(event)
		}

		if event.Done {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &ClientError{Type: ErrTypeTimeout, Message: "engine load cancelled", Cause: err}
		}
		return &ClientError{Type: ErrTypeConnection, Message: "progress stream read failed", Cause: err}
	}

	// Stream ended without a Done event.
	return &ClientError{Type: ErrTypeInvalidResponse, Message: "progress stream ended before completion"}
}

// readChunkStream consumes a chat completion stream, invoking fn for each
// chunk. Returns nil once a chunk carries a finish reason.
func readChunkStream(ctx context.Context, r io.Reader, fn ChunkFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return &ClientError{Type: ErrTypeTimeout, Message: "generation cancelled", Cause: err}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk ChatCompletionChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "malformed completion chunk", Cause: err}
		}

		if fn != nil {
			fn(chunk)
		}

		if chunk.Finished() {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &ClientError{Type: ErrTypeTimeout, Message: "generation cancelled", Cause: err}
		}
		return &ClientError{Type: ErrTypeConnection, Message: "completion stream read failed", Cause: err}
	}

	return &ClientError{Type: ErrTypeInvalidResponse, Message: "completion stream ended before finish"}
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

// ChunkAccumulator folds streamed delta chunks into the full response text.
type ChunkAccumulator struct {
	builder strings.Builder
}

// Add appends a chunk's delta content and returns the accumulated text.
func (a *ChunkAccumulator) Add(chunk ChatCompletionChunk) string {
	a.builder.WriteString(chunk.Delta())
	return a.builder.String()
}

// Content returns the text accumulated so far.
func (a *ChunkAccumulator) Content() string {
	return a.builder.String()
}

// Reset clears the accumulator for reuse.
func (a *ChunkAccumulator) Reset() {
	a.builder.Reset()
}
