// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the session store: a flat string-keyed
// persistence layer holding the serialized conversation list, the active
// conversation id, the user profile, and the resident-model set.
//
// Values are opaque JSON blobs owned by the caller; this package does pure
// read/write with no knowledge of the payload shape. The store is backed by
// a single-table SQLite database so writes are durable and atomic without
// any file juggling.
package storage
