// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/sonic-tui/internal/engine"
	"github.com/jeranaias/sonic-tui/internal/export"
	"github.com/jeranaias/sonic-tui/internal/model"
	"github.com/jeranaias/sonic-tui/internal/runtime"
	"github.com/jeranaias/sonic-tui/internal/storage"
)

// =============================================================================
// FAKES
// =============================================================================

// memStore is an in-memory Store for tests.
type memStore struct {
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (s *memStore) Get(key string) (string, bool, error) {
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(key, value string) error {
	s.data[key] = value
	return nil
}

func (s *memStore) Delete(key string) error {
	delete(s.data, key)
	return nil
}

func (s *memStore) Close() error { return nil }

var _ storage.Store = (*memStore)(nil)

type stubEngine struct {
	modelID string
	deltas  []string
	chatErr error
}

func (e *stubEngine) ModelID() string { return e.modelID }

func (e *stubEngine) ChatStream(ctx context.Context, messages []runtime.ChatMessage, fn runtime.ChunkFunc) error {
	for _, d := range e.deltas {
		fn(runtime.ChatCompletionChunk{
			Choices: []runtime.ChunkChoice{{Delta: runtime.ChunkDelta{Content: d}}},
		})
	}
	if e.chatErr != nil {
		return e.chatErr
	}
	fn(runtime.ChatCompletionChunk{
		Choices: []runtime.ChunkChoice{{FinishReason: "stop"}},
	})
	return nil
}

func (e *stubEngine) Unload(ctx context.Context) error { return nil }

type stubRuntime struct {
	deltas  []string
	chatErr error
	loadErr error
	loads   int
	blockCh chan struct{} // when set, NewEngine blocks until closed
}

func (r *stubRuntime) NewEngine(ctx context.Context, modelID string, onProgress runtime.ProgressFunc) (engine.EngineHandle, error) {
	r.loads++
	if r.blockCh != nil {
		select {
		case <-r.blockCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	if onProgress != nil {
		onProgress(runtime.ProgressEvent{Text: "Finish loading on device", Progress: 1, Done: true})
	}
	return &stubEngine{modelID: modelID, deltas: r.deltas, chatErr: r.chatErr}, nil
}

func newTestController(t *testing.T, rt *stubRuntime) (*Controller, *memStore) {
	t.Helper()
	store := newMemStore()
	ctrl, err := NewController(store, engine.NewAdapterWithRuntime(rt))
	require.NoError(t, err)
	return ctrl, store
}

// =============================================================================
// STARTUP TESTS
// =============================================================================

func TestFreshControllerState(t *testing.T) {
	ctrl, _ := newTestController(t, &stubRuntime{})

	convs := ctrl.Conversations()
	require.Len(t, convs, 1, "a fresh controller must start with one conversation")
	assert.Equal(t, model.DefaultTitle, convs[0].Title)
	assert.Equal(t, convs[0].ID, ctrl.ActiveID())

	assert.Equal(t, "Local User", ctrl.Profile().Name)
	assert.Equal(t, model.DefaultModelID, ctrl.Model())
	assert.Empty(t, ctrl.ResidentModels())
}

func TestControllerRestoresPersistedState(t *testing.T) {
	store := newMemStore()
	rt := &stubRuntime{deltas: []string{"hello"}}

	ctrl, err := NewController(store, engine.NewAdapterWithRuntime(rt))
	require.NoError(t, err)

	require.NoError(t, ctrl.Send(context.Background(), "first question", nil, nil))
	secondID, err := ctrl.NewConversation()
	require.NoError(t, err)
	require.NoError(t, ctrl.SetProfileName("Ada"))
	require.NoError(t, ctrl.Warmup(context.Background(), model.DefaultModelID, nil))

	// A new controller over the same store sees the same state.
	restored, err := NewController(store, engine.NewAdapterWithRuntime(&stubRuntime{}))
	require.NoError(t, err)

	convs := restored.Conversations()
	require.Len(t, convs, 2)
	assert.Equal(t, secondID, restored.ActiveID())
	assert.Equal(t, "first question", convs[1].Title)
	assert.Equal(t, "Ada", restored.Profile().Name)
	assert.Equal(t, []string{model.DefaultModelID}, restored.ResidentModels())
}

func TestCorruptConversationsFallBack(t *testing.T) {
	store := newMemStore()
	store.data[storage.KeyConversations] = "{not json"

	ctrl, err := NewController(store, engine.NewAdapterWithRuntime(&stubRuntime{}))
	require.NoError(t, err)
	assert.Len(t, ctrl.Conversations(), 1)
}

// =============================================================================
// MESSAGING TESTS
// =============================================================================

func TestSendStreamsIntoPlaceholder(t *testing.T) {
	rt := &stubRuntime{deltas: []string{"The ", "answer ", "is 42."}}
	ctrl, _ := newTestController(t, rt)

	var snapshots []string
	err := ctrl.Send(context.Background(), "what is the answer?", nil, func(acc string) {
		snapshots = append(snapshots, acc)
	})
	require.NoError(t, err)

	conv := ctrl.Active()
	require.Equal(t, 2, conv.MessageCount())
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "what is the answer?", conv.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "The answer is 42.", conv.Messages[1].Content)

	// Every callback carries the full text so far.
	require.NotEmpty(t, snapshots)
	assert.Equal(t, "The ", snapshots[0])
	assert.Equal(t, "The answer is 42.", snapshots[len(snapshots)-1])
}

func TestSendDerivesTitleFromFirstInput(t *testing.T) {
	rt := &stubRuntime{deltas: []string{"ok"}}
	ctrl, _ := newTestController(t, rt)

	long := "tell me everything about the history of computing machines"
	require.NoError(t, ctrl.Send(context.Background(), long, nil, nil))
	title := ctrl.Active().Title
	assert.Equal(t, string([]rune(long)[:model.TitleLength])+"...", title)

	// A second send leaves the title alone.
	require.NoError(t, ctrl.Send(context.Background(), "and another question", nil, nil))
	assert.Equal(t, title, ctrl.Active().Title)
}

func TestSendMarksModelResident(t *testing.T) {
	rt := &stubRuntime{deltas: []string{"ok"}}
	ctrl, _ := newTestController(t, rt)

	require.False(t, ctrl.IsResident(model.DefaultModelID))
	require.NoError(t, ctrl.Send(context.Background(), "hi", nil, nil))
	assert.True(t, ctrl.IsResident(model.DefaultModelID))
}

func TestSendKeepsPartialTextOnError(t *testing.T) {
	cause := errors.New("stream reset")
	rt := &stubRuntime{deltas: []string{"partial "}, chatErr: cause}
	ctrl, _ := newTestController(t, rt)

	err := ctrl.Send(context.Background(), "hi", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)

	var procErr *engine.ProcessingError
	assert.ErrorAs(t, err, &procErr)

	conv := ctrl.Active()
	require.Equal(t, 2, conv.MessageCount())
	assert.Equal(t, "partial ", conv.Messages[1].Content,
		"text that arrived before the failure stays in the placeholder")
}

func TestSendPassesImagesThrough(t *testing.T) {
	rt := &stubRuntime{deltas: []string{"a cat"}}
	ctrl, _ := newTestController(t, rt)

	img := "data:image/png;base64,AAAA"
	require.NoError(t, ctrl.Send(context.Background(), "what is this?", []string{img}, nil))

	conv := ctrl.Active()
	require.Equal(t, []string{img}, conv.Messages[0].Images)
}

// =============================================================================
// CONVERSATION MANAGEMENT TESTS
// =============================================================================

func TestNewConversationBecomesActive(t *testing.T) {
	ctrl, _ := newTestController(t, &stubRuntime{deltas: []string{"ok"}})
	require.NoError(t, ctrl.Send(context.Background(), "hi", nil, nil))

	id, err := ctrl.NewConversation()
	require.NoError(t, err)
	assert.Equal(t, id, ctrl.ActiveID())

	convs := ctrl.Conversations()
	require.Len(t, convs, 2)
	assert.Equal(t, id, convs[0].ID, "new conversations are prepended")
}

func TestDeleteLastConversationLeavesFreshOne(t *testing.T) {
	ctrl, _ := newTestController(t, &stubRuntime{deltas: []string{"ok"}})
	require.NoError(t, ctrl.Send(context.Background(), "hi", nil, nil))

	oldID := ctrl.ActiveID()
	require.NoError(t, ctrl.DeleteConversation(oldID))

	convs := ctrl.Conversations()
	require.Len(t, convs, 1, "the list never empties")
	assert.NotEqual(t, oldID, convs[0].ID)
	assert.Equal(t, model.DefaultTitle, convs[0].Title)
	assert.Equal(t, convs[0].ID, ctrl.ActiveID())
}

func TestDeleteActiveSelectsNewestRemaining(t *testing.T) {
	ctrl, _ := newTestController(t, &stubRuntime{})
	first := ctrl.ActiveID()
	second, err := ctrl.NewConversation()
	require.NoError(t, err)

	require.NoError(t, ctrl.DeleteConversation(second))
	assert.Equal(t, first, ctrl.ActiveID())
}

func TestDeleteInactiveKeepsActive(t *testing.T) {
	ctrl, _ := newTestController(t, &stubRuntime{})
	first := ctrl.ActiveID()
	second, err := ctrl.NewConversation()
	require.NoError(t, err)

	require.NoError(t, ctrl.DeleteConversation(first))
	assert.Equal(t, second, ctrl.ActiveID())
}

func TestSelectConversation(t *testing.T) {
	ctrl, _ := newTestController(t, &stubRuntime{})
	first := ctrl.ActiveID()
	_, err := ctrl.NewConversation()
	require.NoError(t, err)

	require.NoError(t, ctrl.SelectConversation(first))
	assert.Equal(t, first, ctrl.ActiveID())

	assert.ErrorIs(t, ctrl.SelectConversation("conv_missing"), ErrConversationNotFound)
	assert.ErrorIs(t, ctrl.DeleteConversation("conv_missing"), ErrConversationNotFound)
}

func TestRenameConversation(t *testing.T) {
	ctrl, store := newTestController(t, &stubRuntime{})
	id := ctrl.ActiveID()

	require.NoError(t, ctrl.RenameConversation(id, "Budget planning"))
	assert.Equal(t, "Budget planning", ctrl.Active().Title)

	restored, err := NewController(store, engine.NewAdapterWithRuntime(&stubRuntime{}))
	require.NoError(t, err)
	assert.Equal(t, "Budget planning", restored.Active().Title)
}

// =============================================================================
// MODEL MANAGEMENT TESTS
// =============================================================================

func TestSetModel(t *testing.T) {
	ctrl, _ := newTestController(t, &stubRuntime{})

	require.NoError(t, ctrl.SetModel("Qwen2-7B-Instruct-q4f32_1-MLC"))
	assert.Equal(t, "Qwen2-7B-Instruct-q4f32_1-MLC", ctrl.Model())

	assert.ErrorIs(t, ctrl.SetModel("gpt-12"), ErrUnknownModel)
}

func TestWarmup(t *testing.T) {
	rt := &stubRuntime{}
	ctrl, _ := newTestController(t, rt)

	var phases []engine.Phase
	err := ctrl.Warmup(context.Background(), model.DefaultModelID, func(r engine.ProgressReport) {
		phases = append(phases, r.Phase)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, rt.loads)
	assert.True(t, ctrl.IsResident(model.DefaultModelID))
	require.NotEmpty(t, phases)
	assert.Equal(t, engine.PhaseFinished, phases[len(phases)-1])

	assert.ErrorIs(t, ctrl.Warmup(context.Background(), "gpt-12", nil), ErrUnknownModel)
}

func TestWarmupFailureDoesNotMarkResident(t *testing.T) {
	rt := &stubRuntime{loadErr: errors.New("device out of memory")}
	ctrl, _ := newTestController(t, rt)

	require.Error(t, ctrl.Warmup(context.Background(), model.DefaultModelID, nil))
	assert.False(t, ctrl.IsResident(model.DefaultModelID))
}

// =============================================================================
// PROFILE TESTS
// =============================================================================

func TestSetProfileName(t *testing.T) {
	ctrl, store := newTestController(t, &stubRuntime{})

	require.NoError(t, ctrl.SetProfileName("Ada"))
	assert.Equal(t, "Ada", ctrl.Profile().Name)

	// Empty input keeps the current name.
	require.NoError(t, ctrl.SetProfileName(""))
	assert.Equal(t, "Ada", ctrl.Profile().Name)

	restored, err := NewController(store, engine.NewAdapterWithRuntime(&stubRuntime{}))
	require.NoError(t, err)
	assert.Equal(t, "Ada", restored.Profile().Name)
}

func TestClearAvatar(t *testing.T) {
	ctrl, _ := newTestController(t, &stubRuntime{})
	require.NoError(t, ctrl.ClearAvatar())
	assert.False(t, ctrl.Profile().HasAvatar())
}

// =============================================================================
// EXPORT AND STATE TESTS
// =============================================================================

func TestExportConversation(t *testing.T) {
	ctrl, _ := newTestController(t, &stubRuntime{deltas: []string{"hi"}})
	require.NoError(t, ctrl.Send(context.Background(), "what is Go?", nil, nil))

	dir := t.TempDir()
	path, err := ctrl.ExportConversation(ctrl.ActiveID(), export.FormatText, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "what is Go?")
	assert.Contains(t, string(data), "hi")

	_, err = ctrl.ExportConversation("no-such-id", export.FormatText, dir)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestSendWhileLoadingIsNoOp(t *testing.T) {
	block := make(chan struct{})
	rt := &stubRuntime{blockCh: block}
	ctrl, store := newTestController(t, rt)

	done := make(chan error, 1)
	go func() {
		done <- ctrl.Warmup(context.Background(), model.DefaultModelID, nil)
	}()
	for {
		if state, _ := ctrl.State(); state == engine.StateLoading {
			break
		}
	}

	before := ctrl.Active()
	persistedBefore := store.data[storage.KeyConversations]

	err := ctrl.Send(context.Background(), "hello while busy", nil, nil)
	assert.ErrorIs(t, err, engine.ErrBusy)

	after := ctrl.Active()
	assert.Equal(t, before.MessageCount(), after.MessageCount(),
		"a rejected send must not append messages")
	assert.Equal(t, before.Title, after.Title, "a rejected send must not retitle")
	assert.Equal(t, persistedBefore, store.data[storage.KeyConversations],
		"a rejected send must not touch the persisted conversation list")

	close(block)
	require.NoError(t, <-done)
}

func TestStateAndProgressIdleWhenQuiet(t *testing.T) {
	ctrl, _ := newTestController(t, &stubRuntime{})

	state, busyFor := ctrl.State()
	assert.Equal(t, engine.StateIdle, state)
	assert.Empty(t, busyFor)

	_, ok := ctrl.Progress()
	assert.False(t, ok)
}
