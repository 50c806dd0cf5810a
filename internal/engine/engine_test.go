// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/sonic-tui/internal/model"
	"github.com/jeranaias/sonic-tui/internal/runtime"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeEngine struct {
	rt       *fakeRuntime
	modelID  string
	unloaded bool

	chatErr error
	deltas  []string

	gotMessages []runtime.ChatMessage
}

func (e *fakeEngine) ModelID() string { return e.modelID }

func (e *fakeEngine) ChatStream(ctx context.Context, messages []runtime.ChatMessage, fn runtime.ChunkFunc) error {
	e.gotMessages = messages
	if e.chatErr != nil {
		return e.chatErr
	}
	for _, d := range e.deltas {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(runtime.ChatCompletionChunk{
			Choices: []runtime.ChunkChoice{{Delta: runtime.ChunkDelta{Content: d}}},
		})
	}
	fn(runtime.ChatCompletionChunk{
		Choices: []runtime.ChunkChoice{{FinishReason: "stop"}},
	})
	return nil
}

func (e *fakeEngine) Unload(ctx context.Context) error {
	e.unloaded = true
	e.rt.events = append(e.rt.events, "unload:"+e.modelID)
	return nil
}

type fakeRuntime struct {
	mu      sync.Mutex
	events  []string // load/unload order
	loads   int
	loadErr error
	deltas  []string
	chatErr error

	progress []runtime.ProgressEvent // replayed to onProgress on load
	blockCh  chan struct{}           // when set, NewEngine blocks until closed

	engines []*fakeEngine
}

func (r *fakeRuntime) NewEngine(ctx context.Context, modelID string, onProgress runtime.ProgressFunc) (EngineHandle, error) {
	r.mu.Lock()
	r.loads++
	r.events = append(r.events, "load:"+modelID)
	blockCh := r.blockCh
	r.mu.Unlock()

	if blockCh != nil {
		select {
		case <-blockCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	for _, ev := range r.progress {
		if onProgress != nil {
			onProgress(ev)
		}
	}
	eng := &fakeEngine{rt: r, modelID: modelID, deltas: r.deltas, chatErr: r.chatErr}
	r.engines = append(r.engines, eng)
	return eng, nil
}

// =============================================================================
// ENGINE LIFECYCLE TESTS
// =============================================================================

func TestLoadCoreReusesResidentEngine(t *testing.T) {
	rt := &fakeRuntime{}
	adapter := NewAdapterWithRuntime(rt)

	require.NoError(t, adapter.LoadCore(context.Background(), "model-a", nil))
	require.NoError(t, adapter.LoadCore(context.Background(), "model-a", nil))

	assert.Equal(t, 1, rt.loads, "second load of the resident model must not hit the runtime")
	assert.Equal(t, "model-a", adapter.ResidentModel())
}

func TestLoadCoreSwapsModels(t *testing.T) {
	rt := &fakeRuntime{}
	adapter := NewAdapterWithRuntime(rt)

	require.NoError(t, adapter.LoadCore(context.Background(), "model-a", nil))
	require.NoError(t, adapter.LoadCore(context.Background(), "model-b", nil))

	assert.Equal(t, []string{"load:model-a", "unload:model-a", "load:model-b"}, rt.events,
		"the resident engine must be released before the replacement loads")
	assert.Equal(t, "model-b", adapter.ResidentModel())
}

func TestLoadCoreProgressNormalization(t *testing.T) {
	rt := &fakeRuntime{
		progress: []runtime.ProgressEvent{
			{Text: "Start to fetch params", Progress: 0},
			{Text: "Fetching param shard 2/8", Progress: 0.2},
			{Text: "Loading model to device", Progress: 0.7},
			{Text: "Finish loading on device", Progress: 0.95},
			{Text: "Finish loading on device", Progress: 1},
		},
	}
	adapter := NewAdapterWithRuntime(rt)

	var reports []ProgressReport
	require.NoError(t, adapter.LoadCore(context.Background(), "model-a", func(r ProgressReport) {
		reports = append(reports, r)
	}))

	require.Len(t, reports, 5)
	assert.Equal(t, PhaseStarting, reports[0].Phase)
	assert.Equal(t, PhaseDownloading, reports[1].Phase)
	assert.Equal(t, PhaseLoading, reports[2].Phase)
	assert.Equal(t, PhaseFinishing, reports[3].Phase)
	assert.Equal(t, PhaseFinished, reports[4].Phase)
	assert.Equal(t, "model-a", reports[1].ModelID)
	assert.Equal(t, 0.2, reports[1].Percent)
	assert.Equal(t, "Fetching param shard 2/8", reports[1].Raw)
}

func TestProgressVisibleDuringLoadAndClearedAfter(t *testing.T) {
	rt := &fakeRuntime{
		progress: []runtime.ProgressEvent{
			{Text: "Loading model to device", Progress: 0.5},
		},
	}
	adapter := NewAdapterWithRuntime(rt)

	var midLoad ProgressReport
	var midLoadOK bool
	require.NoError(t, adapter.LoadCore(context.Background(), "model-a", func(ProgressReport) {
		midLoad, midLoadOK = adapter.Progress()
	}))

	require.True(t, midLoadOK, "progress must be readable while the load runs")
	assert.Equal(t, PhaseLoading, midLoad.Phase)
	assert.Equal(t, 0.5, midLoad.Percent)

	_, ok := adapter.Progress()
	assert.False(t, ok, "progress must be cleared once the load finishes")
}

func TestProgressClearedAfterFailedLoad(t *testing.T) {
	rt := &fakeRuntime{loadErr: errors.New("artifact corrupt")}
	adapter := NewAdapterWithRuntime(rt)

	require.Error(t, adapter.LoadCore(context.Background(), "model-a", nil))

	_, ok := adapter.Progress()
	assert.False(t, ok)
	state, _ := adapter.State()
	assert.Equal(t, StateIdle, state, "a failed load must leave the adapter usable")
}

func TestClassifyProgress(t *testing.T) {
	tests := []struct {
		name string
		ev   runtime.ProgressEvent
		want Phase
	}{
		{"complete fraction wins over text", runtime.ProgressEvent{Text: "Fetching", Progress: 1}, PhaseFinished},
		{"finish marker beats loading marker", runtime.ProgressEvent{Text: "Finish loading on device", Progress: 0.9}, PhaseFinishing},
		{"loading marker", runtime.ProgressEvent{Text: "Loading model weights", Progress: 0.5}, PhaseLoading},
		{"fetching marker", runtime.ProgressEvent{Text: "Fetching param shard 1/4", Progress: 0.1}, PhaseDownloading},
		{"unrecognized text", runtime.ProgressEvent{Text: "Initializing cache", Progress: 0}, PhaseStarting},
		{"empty event", runtime.ProgressEvent{}, PhaseStarting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyProgress(tt.ev))
		})
	}
}

func TestLoadCoreBusy(t *testing.T) {
	block := make(chan struct{})
	rt := &fakeRuntime{blockCh: block}
	adapter := NewAdapterWithRuntime(rt)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		done <- adapter.LoadCore(context.Background(), "model-a", nil)
	}()
	<-started

	// Wait until the first load has claimed the busy slot.
	for {
		state, _ := adapter.State()
		if state == StateLoading {
			break
		}
	}

	err := adapter.LoadCore(context.Background(), "model-b", nil)
	assert.ErrorIs(t, err, ErrBusy)

	close(block)
	require.NoError(t, <-done)
	assert.Equal(t, "model-a", adapter.ResidentModel())
}

func TestLoadCoreRejectsOldModelMidSwap(t *testing.T) {
	rt := &fakeRuntime{}
	adapter := NewAdapterWithRuntime(rt)
	require.NoError(t, adapter.LoadCore(context.Background(), "model-a", nil))

	// Block the swap inside the new model's acquisition, after model-a has
	// already been released.
	block := make(chan struct{})
	rt.blockCh = block

	done := make(chan error, 1)
	go func() {
		done <- adapter.LoadCore(context.Background(), "model-b", nil)
	}()
	for {
		state, busyFor := adapter.State()
		if state == StateLoading && busyFor == "model-b" {
			break
		}
	}

	// model-a's handle was just unloaded; a load for it must not report
	// success off the fast path.
	err := adapter.LoadCore(context.Background(), "model-a", nil)
	assert.ErrorIs(t, err, ErrBusy)

	close(block)
	require.NoError(t, <-done)
	assert.Equal(t, "model-b", adapter.ResidentModel())
}

func TestCancelAbortsLoad(t *testing.T) {
	rt := &fakeRuntime{blockCh: make(chan struct{})}
	adapter := NewAdapterWithRuntime(rt)

	done := make(chan error, 1)
	go func() {
		done <- adapter.LoadCore(context.Background(), "model-a", nil)
	}()

	for {
		state, _ := adapter.State()
		if state == StateLoading {
			break
		}
	}
	adapter.Cancel()

	err := <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "", adapter.ResidentModel())

	// The adapter must be usable again after a cancelled load.
	state, _ := adapter.State()
	assert.Equal(t, StateIdle, state)
}

func TestUnload(t *testing.T) {
	rt := &fakeRuntime{}
	adapter := NewAdapterWithRuntime(rt)

	require.NoError(t, adapter.LoadCore(context.Background(), "model-a", nil))
	require.NoError(t, adapter.Unload(context.Background()))
	assert.Equal(t, "", adapter.ResidentModel())

	// Unloading with nothing resident is a no-op.
	require.NoError(t, adapter.Unload(context.Background()))
}

// =============================================================================
// QUERY PROCESSING TESTS
// =============================================================================

func TestProcessQueryStreamsCumulativeText(t *testing.T) {
	rt := &fakeRuntime{deltas: []string{"Hel", "lo, ", "world"}}
	adapter := NewAdapterWithRuntime(rt)

	var snapshots []string
	result, err := adapter.ProcessQuery(context.Background(),
		[]*model.Message{model.NewUserMessage("hi")},
		"model-a",
		func(accumulated string) {
			snapshots = append(snapshots, accumulated)
		})
	require.NoError(t, err)

	assert.Equal(t, "Hello, world", result)
	// Each callback carries the full text so far; the finish chunk repeats
	// the final text with an empty delta.
	assert.Equal(t, []string{"Hel", "Hello, ", "Hello, world", "Hello, world"}, snapshots)
}

func TestProcessQueryLoadsEngineOnDemand(t *testing.T) {
	rt := &fakeRuntime{deltas: []string{"ok"}}
	adapter := NewAdapterWithRuntime(rt)

	_, err := adapter.ProcessQuery(context.Background(),
		[]*model.Message{model.NewUserMessage("hi")}, "model-a", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rt.loads)
	assert.Equal(t, "model-a", adapter.ResidentModel())

	// A second query against the same model reuses the engine.
	_, err = adapter.ProcessQuery(context.Background(),
		[]*model.Message{model.NewUserMessage("again")}, "model-a", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rt.loads)
}

func TestProcessQuerySwapsForDifferentModel(t *testing.T) {
	rt := &fakeRuntime{deltas: []string{"ok"}}
	adapter := NewAdapterWithRuntime(rt)

	require.NoError(t, adapter.LoadCore(context.Background(), "model-a", nil))

	_, err := adapter.ProcessQuery(context.Background(),
		[]*model.Message{model.NewUserMessage("hi")}, "model-b", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"load:model-a", "unload:model-a", "load:model-b"}, rt.events)
}

func TestProcessQueryWrapsErrors(t *testing.T) {
	cause := errors.New("stream reset")
	rt := &fakeRuntime{chatErr: cause}
	adapter := NewAdapterWithRuntime(rt)

	_, err := adapter.ProcessQuery(context.Background(),
		[]*model.Message{model.NewUserMessage("hi")}, "model-a", nil)
	require.Error(t, err)

	var procErr *ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "processing failed: stream reset", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestProcessQueryWrapsLoadErrors(t *testing.T) {
	cause := errors.New("device out of memory")
	rt := &fakeRuntime{loadErr: cause}
	adapter := NewAdapterWithRuntime(rt)

	_, err := adapter.ProcessQuery(context.Background(),
		[]*model.Message{model.NewUserMessage("hi")}, "model-a", nil)
	require.Error(t, err)

	var procErr *ProcessingError
	assert.ErrorAs(t, err, &procErr)
	assert.ErrorIs(t, err, cause)
}

func TestProcessQueryBusy(t *testing.T) {
	rt := &fakeRuntime{blockCh: make(chan struct{})}
	adapter := NewAdapterWithRuntime(rt)

	go func() {
		adapter.LoadCore(context.Background(), "model-a", nil)
	}()
	for {
		state, _ := adapter.State()
		if state == StateLoading {
			break
		}
	}
	defer close(rt.blockCh)

	_, err := adapter.ProcessQuery(context.Background(),
		[]*model.Message{model.NewUserMessage("hi")}, "model-a", nil)
	assert.ErrorIs(t, err, ErrBusy)
}

// =============================================================================
// MESSAGE RESTRUCTURING TESTS
// =============================================================================

func TestBuildChatMessages(t *testing.T) {
	userPlain := model.NewUserMessage("plain text")
	assistant := model.NewMessage(model.RoleAssistant, "reply")
	userImages := model.NewUserMessage("look at this",
		"data:image/png;base64,AAAA", "data:image/jpeg;base64,BBBB")

	wire := buildChatMessages([]*model.Message{userPlain, assistant, userImages})
	require.Len(t, wire, 3)

	assert.Equal(t, "user", wire[0].Role)
	assert.Equal(t, "plain text", wire[0].Content)

	assert.Equal(t, "assistant", wire[1].Role)
	assert.Equal(t, "reply", wire[1].Content)

	// Attachments expand to multi-part content, text first then images in
	// attachment order.
	assert.Equal(t, "user", wire[2].Role)
	parts, ok := wire[2].Content.([]runtime.ContentPart)
	require.True(t, ok)
	require.Len(t, parts, 3)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "look at this", parts[0].Text)
	assert.Equal(t, "image_url", parts[1].Type)
	assert.Equal(t, "data:image/png;base64,AAAA", parts[1].ImageURL.URL)
	assert.Equal(t, "data:image/jpeg;base64,BBBB", parts[2].ImageURL.URL)
}

func TestBuildChatMessagesEmptyHistory(t *testing.T) {
	assert.Empty(t, buildChatMessages(nil))
}
