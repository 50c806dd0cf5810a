// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import "errors"

// ErrBusy is returned when a load or query is requested while another one
// is still in flight. Callers decide whether to surface it or retry.
var ErrBusy = errors.New("engine is busy")

// ErrNoEngine is returned by operations that need a resident engine when
// none is loaded.
var ErrNoEngine = errors.New("no engine loaded")

// ProcessingError wraps any failure during query processing so callers see
// a single error shape regardless of which stage failed.
type ProcessingError struct {
	Cause error
}

func (e *ProcessingError) Error() string {
	return "processing failed: " + e.Cause.Error()
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}
