// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package runtime

import "time"

// =============================================================================
// CHAT REQUEST TYPES
// =============================================================================

// ChatMessage is one entry of a chat completion request. Content is either a
// plain string or, for multimodal messages, an ordered []ContentPart.
type ChatMessage struct {
	Role    string `json:"role"`    // "user" or "assistant"
	Content any    `json:"content"` // string or []ContentPart
}

// ContentPart is one part of a multi-part message content.
type ContentPart struct {
	Type     string    `json:"type"` // "text" or "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL wraps an image reference; data URIs are accepted.
type ImageURL struct {
	URL string `json:"url"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart builds an image content part from a data URI or URL.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: url}}
}

// ChatRequest is the request body for /v1/chat/completions.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// =============================================================================
// CHAT RESPONSE TYPES
// =============================================================================

// ChatCompletionChunk is one streamed response line. Consumers read the
// incremental text from Choices[0].Delta.Content.
type ChatCompletionChunk struct {
	ID      string        `json:"id,omitempty"`
	Model   string        `json:"model,omitempty"`
	Choices []ChunkChoice `json:"choices"`
}

// ChunkChoice holds the delta for one completion choice.
type ChunkChoice struct {
	Delta        ChunkDelta `json:"delta"`
	FinishReason string     `json:"finish_reason,omitempty"`
}

// ChunkDelta carries the incremental content of a chunk.
type ChunkDelta struct {
	Content string `json:"content,omitempty"`
}

// Delta returns the incremental text of the chunk, empty when the chunk
// carries no content (role preludes, finish markers).
func (c *ChatCompletionChunk) Delta() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}

// Finished reports whether this chunk terminates the stream.
func (c *ChatCompletionChunk) Finished() bool {
	return len(c.Choices) > 0 && c.Choices[0].FinishReason != ""
}

// =============================================================================
// ENGINE TYPES
// =============================================================================

// LoadRequest is the request body for /v1/engines.
type LoadRequest struct {
	Model string `json:"model"`
}

// ProgressEvent is one free-text progress report emitted while the daemon
// acquires an engine. Progress is a fraction in [0,1]; Text is the daemon's
// human-readable phase description (e.g. "Fetching param shard 3/42").
type ProgressEvent struct {
	Text     string  `json:"text"`
	Progress float64 `json:"progress"`
	Done     bool    `json:"done,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// =============================================================================
// MODEL TYPES
// =============================================================================

// ModelInfo describes one model artifact set known to the daemon.
type ModelInfo struct {
	ID        string    `json:"id"`
	SizeBytes int64     `json:"size_bytes,omitempty"`
	CachedAt  time.Time `json:"cached_at,omitempty"`
	Cached    bool      `json:"cached"`
}

// ListModelsResponse is the response from /v1/models.
type ListModelsResponse struct {
	Data []ModelInfo `json:"data"`
}

// =============================================================================
// API ERROR TYPE
// =============================================================================

// apiError is the error envelope the daemon returns on non-200 responses.
type apiError struct {
	Error string `json:"error"`
}
