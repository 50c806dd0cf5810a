// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// the user profile, and the built-in model catalog.
//
// Conversations hold an ordered message history. The most recent assistant
// message is special: while a response streams in, its content is replaced
// wholesale on every update (the engine always delivers the full accumulated
// text, never a delta), so the rest of the history can be treated as
// immutable.
package model
