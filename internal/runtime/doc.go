// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package runtime provides the HTTP client for the local inference runtime
// daemon. The daemon owns everything computationally hard (model download,
// tokenization, tensor execution, sampling) and exposes a small API:
// engine acquisition with a streamed progress feed, engine release, and an
// OpenAI-style streaming chat completion call.
//
// The rest of the application treats this package as an opaque capability:
// the engine adapter consumes chunks through their choices[0].delta.content
// field and classifies free-text progress reports, nothing more.
package runtime
