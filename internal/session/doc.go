// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session coordinates conversations, the user profile, model
// selection, and the engine adapter behind a single Controller.
//
// The Controller owns the invariants the interfaces rely on: there is
// always at least one conversation, there is always an active
// conversation, and every state change is persisted to the session store
// before the call returns.
package session
