// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine manages the lifecycle of inference engines and turns
// conversations into streamed completions.
//
// The Adapter is the single owner of engine residency: at most one model
// is loaded at a time, a load for an already resident model reuses the
// existing engine, and a load for a different model releases the current
// engine first. Long operations (loading, generating) are serialized
// through a small state machine; a second caller gets ErrBusy instead of
// queueing.
package engine
