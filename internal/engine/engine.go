// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"sync"

	"github.com/jeranaias/sonic-tui/internal/model"
	"github.com/jeranaias/sonic-tui/internal/runtime"
)

// =============================================================================
// RUNTIME ABSTRACTION
// =============================================================================

// EngineHandle is a loaded model instance capable of streaming completions.
type EngineHandle interface {
	ModelID() string
	ChatStream(ctx context.Context, messages []runtime.ChatMessage, fn runtime.ChunkFunc) error
	Unload(ctx context.Context) error
}

// Runtime acquires engines. The production implementation talks to the
// inference daemon; tests substitute a fake.
type Runtime interface {
	NewEngine(ctx context.Context, modelID string, onProgress runtime.ProgressFunc) (EngineHandle, error)
}

// clientRuntime adapts *runtime.Client to the Runtime interface.
type clientRuntime struct {
	client *runtime.Client
}

func (r *clientRuntime) NewEngine(ctx context.Context, modelID string, onProgress runtime.ProgressFunc) (EngineHandle, error) {
	return r.client.NewEngine(ctx, modelID, onProgress)
}

// =============================================================================
// STATE MACHINE
// =============================================================================

// State is the adapter's activity state. Transitions are Idle -> Loading ->
// Idle and Idle -> Generating -> Idle; a request arriving outside Idle is
// rejected with ErrBusy rather than queued, so stale requests never pile up
// behind a slow load.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateGenerating
)

// String returns the display label for an adapter state.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateGenerating:
		return "generating"
	default:
		return "idle"
	}
}

// =============================================================================
// ADAPTER
// =============================================================================

// ProgressObserver receives normalized load progress reports.
type ProgressObserver func(ProgressReport)

// ChunkObserver receives the full accumulated response text after each
// streamed chunk, not the chunk's delta. Consumers can render the latest
// value directly without keeping their own accumulator.
type ChunkObserver func(accumulated string)

// Adapter owns engine residency and serializes loads and queries.
type Adapter struct {
	mu      sync.Mutex
	rt      Runtime
	engine  EngineHandle
	state   State
	busyFor string             // model ID the in-flight operation is for
	cancel  context.CancelFunc // cancels the in-flight operation

	// progress holds the latest report while a load is in flight and is
	// cleared when the operation ends.
	progress    ProgressReport
	progressSet bool
}

// NewAdapter creates an adapter backed by the given runtime client.
func NewAdapter(client *runtime.Client) *Adapter {
	return &Adapter{rt: &clientRuntime{client: client}}
}

// NewAdapterWithRuntime creates an adapter over a custom runtime.
func NewAdapterWithRuntime(rt Runtime) *Adapter {
	return &Adapter{rt: rt}
}

// State returns the adapter's current activity and, when busy, the model
// the in-flight operation targets.
func (a *Adapter) State() (State, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state, a.busyFor
}

// ResidentModel returns the ID of the loaded model, or "" when none is
// resident.
func (a *Adapter) ResidentModel() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.engine == nil {
		return ""
	}
	return a.engine.ModelID()
}

// Progress returns the latest load progress report; ok is false when no
// load is in flight.
func (a *Adapter) Progress() (ProgressReport, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.progress, a.progressSet
}

// Cancel aborts the in-flight load or generation, if any. The aborted
// operation returns its context error to its own caller.
func (a *Adapter) Cancel() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// begin claims the busy slot. Returns the operation context, or ErrBusy if
// another operation holds the slot.
func (a *Adapter) begin(ctx context.Context, state State, modelID string) (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateIdle {
		return nil, ErrBusy
	}
	opCtx, cancel := context.WithCancel(ctx)
	a.state = state
	a.busyFor = modelID
	a.cancel = cancel
	return opCtx, nil
}

// end releases the busy slot.
func (a *Adapter) end() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.state = StateIdle
	a.busyFor = ""
	a.progress = ProgressReport{}
	a.progressSet = false
}

// =============================================================================
// ENGINE LIFECYCLE
// =============================================================================

// LoadCore ensures an engine for modelID is resident, streaming normalized
// progress to onProgress. A load for the already resident model returns
// immediately without touching the daemon; a load for a different model
// releases the current engine before acquiring the new one, so at most one
// model occupies the device at a time.
func (a *Adapter) LoadCore(ctx context.Context, modelID string, onProgress ProgressObserver) error {
	a.mu.Lock()
	// The fast path only applies while idle: during a swap the resident
	// handle may already be released even though the field is still set.
	if a.state == StateIdle && a.engine != nil && a.engine.ModelID() == modelID {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	opCtx, err := a.begin(ctx, StateLoading, modelID)
	if err != nil {
		return err
	}
	defer a.end()

	return a.acquire(opCtx, modelID, onProgress)
}

// acquire swaps the resident engine for modelID. Caller holds the busy slot.
func (a *Adapter) acquire(ctx context.Context, modelID string, onProgress ProgressObserver) error {
	a.mu.Lock()
	current := a.engine
	a.mu.Unlock()

	if current != nil {
		if err := current.Unload(ctx); err != nil {
			return err
		}
		a.mu.Lock()
		a.engine = nil
		a.mu.Unlock()
	}

	progressFn := func(ev runtime.ProgressEvent) {
		report := normalizeProgress(ev, modelID)
		a.mu.Lock()
		a.progress = report
		a.progressSet = true
		a.mu.Unlock()
		if onProgress != nil {
			onProgress(report)
		}
	}

	eng, err := a.rt.NewEngine(ctx, modelID, progressFn)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.engine = eng
	a.mu.Unlock()
	return nil
}

// Unload releases the resident engine, if any.
func (a *Adapter) Unload(ctx context.Context) error {
	opCtx, err := a.begin(ctx, StateLoading, "")
	if err != nil {
		return err
	}
	defer a.end()

	a.mu.Lock()
	current := a.engine
	a.engine = nil
	a.mu.Unlock()

	if current == nil {
		return nil
	}
	return current.Unload(opCtx)
}

// =============================================================================
// QUERY PROCESSING
// =============================================================================

// ProcessQuery streams a completion for the conversation history against
// modelID, loading the engine first if needed. onChunk receives the full
// accumulated text after every chunk; the same final text is returned.
// Any failure is wrapped in a ProcessingError.
func (a *Adapter) ProcessQuery(ctx context.Context, messages []*model.Message, modelID string, onChunk ChunkObserver) (string, error) {
	opCtx, err := a.begin(ctx, StateGenerating, modelID)
	if err != nil {
		return "", err
	}
	defer a.end()

	a.mu.Lock()
	needSwap := a.engine == nil || a.engine.ModelID() != modelID
	a.mu.Unlock()

	if needSwap {
		if err := a.acquire(opCtx, modelID, nil); err != nil {
			return "", &ProcessingError{Cause: err}
		}
	}

	a.mu.Lock()
	eng := a.engine
	a.mu.Unlock()

	var acc runtime.ChunkAccumulator
	streamErr := eng.ChatStream(opCtx, buildChatMessages(messages), func(chunk runtime.ChatCompletionChunk) {
		full := acc.Add(chunk)
		if onChunk != nil {
			onChunk(full)
		}
	})
	if streamErr != nil {
		return "", &ProcessingError{Cause: streamErr}
	}
	return acc.Content(), nil
}

// buildChatMessages converts conversation messages to the daemon's wire
// shape. A user message with image attachments becomes multi-part content,
// text first then images in attachment order; everything else stays a
// plain string.
func buildChatMessages(messages []*model.Message) []runtime.ChatMessage {
	out := make([]runtime.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		cm := runtime.ChatMessage{Role: msg.Role.String()}
		if msg.Role == model.RoleUser && msg.HasImages() {
			parts := make([]runtime.ContentPart, 0, 1+len(msg.Images))
			parts = append(parts, runtime.TextPart(msg.Content))
			for _, img := range msg.Images {
				parts = append(parts, runtime.ImagePart(img))
			}
			cm.Content = parts
		} else {
			cm.Content = msg.Content
		}
		out = append(out, cm)
	}
	return out
}
