// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the sonic application:
// rune-safe string truncation, display-width padding, and atomic file
// writes used by everything that persists outside the session store.
package util
