// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jeranaias/sonic-tui/internal/engine"
	"github.com/jeranaias/sonic-tui/internal/export"
	"github.com/jeranaias/sonic-tui/internal/model"
	"github.com/jeranaias/sonic-tui/internal/storage"
)

// ErrConversationNotFound is returned when an operation names a
// conversation id that does not exist.
var ErrConversationNotFound = errors.New("conversation not found")

// ErrUnknownModel is returned when a model id is not in the catalog.
var ErrUnknownModel = errors.New("unknown model")

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller is the single coordination point between persisted session
// state and the engine adapter. All methods are safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	store   storage.Store
	adapter *engine.Adapter

	// conversations is ordered newest first; new conversations are
	// prepended.
	conversations []*model.Conversation
	activeID      string
	profile       model.UserProfile
	modelID       string
	resident      map[string]bool
}

// NewController builds a controller from persisted state. Missing or
// corrupt state falls back to defaults; the conversation list is never
// left empty.
func NewController(store storage.Store, adapter *engine.Adapter) (*Controller, error) {
	c := &Controller{
		store:    store,
		adapter:  adapter,
		profile:  model.DefaultProfile(),
		modelID:  model.DefaultModelID,
		resident: make(map[string]bool),
	}

	if err := c.restore(); err != nil {
		return nil, err
	}
	return c, nil
}

// restore loads persisted state and repairs the invariants.
func (c *Controller) restore() error {
	if raw, ok, err := c.store.Get(storage.KeyConversations); err != nil {
		return fmt.Errorf("load conversations: %w", err)
	} else if ok {
		// A corrupt blob falls back to a fresh list; losing history to a
		// bad write beats refusing to start.
		var convs []*model.Conversation
		if err := json.Unmarshal([]byte(raw), &convs); err == nil {
			c.conversations = convs
		}
	}

	if len(c.conversations) == 0 {
		c.conversations = []*model.Conversation{model.NewConversation()}
	}

	if raw, ok, err := c.store.Get(storage.KeyProfile); err != nil {
		return fmt.Errorf("load profile: %w", err)
	} else if ok {
		var profile model.UserProfile
		if err := json.Unmarshal([]byte(raw), &profile); err == nil && profile.Name != "" {
			c.profile = profile
		}
	}

	if raw, ok, err := c.store.Get(storage.KeyResidentModels); err != nil {
		return fmt.Errorf("load resident models: %w", err)
	} else if ok {
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err == nil {
			for _, id := range ids {
				c.resident[id] = true
			}
		}
	}

	if id, ok, err := c.store.Get(storage.KeyActiveConversation); err != nil {
		return fmt.Errorf("load active conversation: %w", err)
	} else if ok && c.findLocked(id) != nil {
		c.activeID = id
	}
	if c.activeID == "" {
		c.activeID = c.conversations[0].ID
	}

	return nil
}

// =============================================================================
// CONVERSATION ACCESS
// =============================================================================

// Active returns a deep copy of the active conversation. Callers render
// the copy; mutations go through Controller methods.
func (c *Controller) Active() *model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked().Clone()
}

// ActiveID returns the id of the active conversation.
func (c *Controller) ActiveID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

// Conversations returns metadata for all conversations, newest first.
func (c *Controller) Conversations() []model.ConversationMeta {
	c.mu.Lock()
	defer c.mu.Unlock()
	metas := make([]model.ConversationMeta, len(c.conversations))
	for i, conv := range c.conversations {
		metas[i] = conv.Meta()
	}
	return metas
}

// Conversation returns a deep copy of the conversation with the given id.
func (c *Controller) Conversation(id string) (*model.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv := c.findLocked(id)
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	return conv.Clone(), nil
}

// NewConversation creates an empty conversation, makes it active, and
// returns its id.
func (c *Controller) NewConversation() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv := model.NewConversation()
	c.conversations = append([]*model.Conversation{conv}, c.conversations...)
	c.activeID = conv.ID

	if err := c.persistLocked(); err != nil {
		return "", err
	}
	return conv.ID, nil
}

// SelectConversation makes the conversation with the given id active.
func (c *Controller) SelectConversation(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.findLocked(id) == nil {
		return ErrConversationNotFound
	}
	c.activeID = id
	return c.persistActiveLocked()
}

// DeleteConversation removes a conversation. Deleting the last remaining
// conversation replaces it with a fresh one, so the list never empties.
// If the active conversation was deleted, the newest remaining one
// becomes active.
func (c *Controller) DeleteConversation(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i, conv := range c.conversations {
		if conv.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrConversationNotFound
	}

	c.conversations = append(c.conversations[:idx], c.conversations[idx+1:]...)
	if len(c.conversations) == 0 {
		c.conversations = []*model.Conversation{model.NewConversation()}
	}
	if c.activeID == id {
		c.activeID = c.conversations[0].ID
	}

	return c.persistLocked()
}

// RenameConversation sets a conversation's title directly.
func (c *Controller) RenameConversation(id, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv := c.findLocked(id)
	if conv == nil {
		return ErrConversationNotFound
	}
	conv.SetTitle(title)
	return c.persistConversationsLocked()
}

// ExportConversation writes the conversation to a file in dir using the
// given format and returns the written path.
func (c *Controller) ExportConversation(id string, format export.Format, dir string) (string, error) {
	conv, err := c.Conversation(id)
	if err != nil {
		return "", err
	}
	return export.WriteFile(conv, format, dir)
}

// =============================================================================
// MESSAGING
// =============================================================================

// Send appends the user's input to the active conversation and streams the
// assistant's reply into a placeholder message. onChunk, when non-nil,
// receives the full accumulated reply after every streamed chunk.
//
// On failure the placeholder keeps whatever partial text arrived and the
// error is returned; the user message is persisted either way.
func (c *Controller) Send(ctx context.Context, input string, images []string, onChunk func(string)) error {
	c.mu.Lock()
	// A send while a load or generation is in flight is rejected before
	// anything is appended, so a refused send leaves no trace.
	if state, _ := c.adapter.State(); state != engine.StateIdle {
		c.mu.Unlock()
		return engine.ErrBusy
	}

	conv := c.activeLocked()
	prevTitle := conv.Title
	prevLen := len(conv.Messages)
	prevUpdated := conv.UpdatedAt
	conv.AddUserMessage(input, images...)

	// The placeholder is appended after the history snapshot so the model
	// never sees its own empty reply.
	history := make([]*model.Message, len(conv.Messages))
	copy(history, conv.Messages)
	conv.AddAssistantPlaceholder()

	modelID := c.modelID
	if err := c.persistConversationsLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	// conv is captured by pointer so chunks land in the right conversation
	// even if the user switches the active one mid-stream.
	first := true
	_, err := c.adapter.ProcessQuery(ctx, history, modelID, func(accumulated string) {
		c.mu.Lock()
		conv.SetAssistantContent(accumulated)
		if first {
			// The first chunk proves the model is fully resident.
			first = false
			c.resident[modelID] = true
			c.persistResidentLocked()
		}
		c.mu.Unlock()
		if onChunk != nil {
			onChunk(accumulated)
		}
	})

	if errors.Is(err, engine.ErrBusy) {
		// The adapter got claimed between the guard above and the query.
		// Undo the two appended messages so the rejection is a no-op.
		c.mu.Lock()
		conv.Messages = conv.Messages[:prevLen]
		conv.Title = prevTitle
		conv.UpdatedAt = prevUpdated
		c.persistConversationsLocked()
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	persistErr := c.persistConversationsLocked()
	c.mu.Unlock()

	if err != nil {
		return err
	}
	return persistErr
}

// Cancel aborts any in-flight model load or generation.
func (c *Controller) Cancel() {
	c.adapter.Cancel()
}

// State reports the adapter's activity and, when busy, the model the
// in-flight operation targets.
func (c *Controller) State() (engine.State, string) {
	return c.adapter.State()
}

// Progress returns the in-flight load progress report; ok is false when
// no load is running.
func (c *Controller) Progress() (engine.ProgressReport, bool) {
	return c.adapter.Progress()
}

// =============================================================================
// MODEL MANAGEMENT
// =============================================================================

// Model returns the currently selected model id.
func (c *Controller) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modelID
}

// SetModel selects the model used for subsequent sends. The engine is not
// loaded until the next send or warmup.
func (c *Controller) SetModel(id string) error {
	if _, ok := model.GetModelInfo(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modelID = id
	return nil
}

// Warmup loads the engine for modelID ahead of the first send, streaming
// normalized progress to onProgress. A completed warmup marks the model
// resident.
func (c *Controller) Warmup(ctx context.Context, modelID string, onProgress engine.ProgressObserver) error {
	if _, ok := model.GetModelInfo(modelID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}

	if err := c.adapter.LoadCore(ctx, modelID, onProgress); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resident[modelID] = true
	return c.persistResidentLocked()
}

// ResidentModels returns the ids of models that have completed a load at
// least once, in stable order.
func (c *Controller) ResidentModels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.resident))
	for id := range c.resident {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsResident reports whether modelID has completed a load before.
func (c *Controller) IsResident(modelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resident[modelID]
}

// =============================================================================
// PROFILE
// =============================================================================

// Profile returns the current user profile.
func (c *Controller) Profile() model.UserProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// SetProfileName updates the display name. Empty input keeps the current
// name.
func (c *Controller) SetProfileName(name string) error {
	if name == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profile.Name = name
	return c.persistProfileLocked()
}

// SetAvatarFile loads an image file as the profile avatar.
func (c *Controller) SetAvatarFile(path string) error {
	avatar, err := model.AvatarFromFile(path)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profile.Avatar = avatar
	return c.persistProfileLocked()
}

// ClearAvatar removes the profile avatar.
func (c *Controller) ClearAvatar() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profile.Avatar = ""
	return c.persistProfileLocked()
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

func (c *Controller) findLocked(id string) *model.Conversation {
	for _, conv := range c.conversations {
		if conv.ID == id {
			return conv
		}
	}
	return nil
}

func (c *Controller) activeLocked() *model.Conversation {
	if conv := c.findLocked(c.activeID); conv != nil {
		return conv
	}
	// Self-repair: an unknown active id falls back to the newest
	// conversation.
	c.activeID = c.conversations[0].ID
	return c.conversations[0]
}

func (c *Controller) persistLocked() error {
	if err := c.persistConversationsLocked(); err != nil {
		return err
	}
	return c.persistActiveLocked()
}

func (c *Controller) persistConversationsLocked() error {
	data, err := json.Marshal(c.conversations)
	if err != nil {
		return fmt.Errorf("serialize conversations: %w", err)
	}
	if err := c.store.Set(storage.KeyConversations, string(data)); err != nil {
		return fmt.Errorf("persist conversations: %w", err)
	}
	return nil
}

func (c *Controller) persistActiveLocked() error {
	if err := c.store.Set(storage.KeyActiveConversation, c.activeID); err != nil {
		return fmt.Errorf("persist active conversation: %w", err)
	}
	return nil
}

func (c *Controller) persistProfileLocked() error {
	data, err := json.Marshal(c.profile)
	if err != nil {
		return fmt.Errorf("serialize profile: %w", err)
	}
	if err := c.store.Set(storage.KeyProfile, string(data)); err != nil {
		return fmt.Errorf("persist profile: %w", err)
	}
	return nil
}

func (c *Controller) persistResidentLocked() error {
	ids := make([]string, 0, len(c.resident))
	for id := range c.resident {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("serialize resident models: %w", err)
	}
	if err := c.store.Set(storage.KeyResidentModels, string(data)); err != nil {
		return fmt.Errorf("persist resident models: %w", err)
	}
	return nil
}
