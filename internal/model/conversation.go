// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/jeranaias/sonic-tui/internal/util"
)

// TitleLength is the number of runes of the first user input used as the
// conversation title. Longer inputs get an ellipsis appended.
const TitleLength = 30

// DefaultTitle is the title of a conversation before the first message.
const DefaultTitle = "New Conversation"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a complete chat conversation with history and metadata.
type Conversation struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages
	Messages []*Message `json:"messages"`
}

// NewConversation creates a new empty conversation with a generated ID.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        generateID("conv"),
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message to the conversation.
func (c *Conversation) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
}

// AddUserMessage creates and appends a user message. The first user message
// also sets the conversation title.
func (c *Conversation) AddUserMessage(content string, images ...string) *Message {
	first := c.firstUserMessage() == nil
	msg := NewUserMessage(content, images...)
	c.AddMessage(msg)
	if first {
		c.Title = DeriveTitle(content)
	}
	return msg
}

// AddAssistantPlaceholder appends an empty assistant message that will be
// filled in as streamed text arrives.
func (c *Conversation) AddAssistantPlaceholder() *Message {
	msg := NewAssistantPlaceholder()
	c.AddMessage(msg)
	return msg
}

// SetAssistantContent replaces the content of the trailing assistant message
// with the full accumulated text. A no-op when the last message is not an
// assistant message.
func (c *Conversation) SetAssistantContent(content string) {
	last := c.LastMessage()
	if last == nil || last.Role != RoleAssistant {
		return
	}
	last.SetContent(content)
	c.UpdatedAt = time.Now()
}

// LastMessage returns the most recent message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// firstUserMessage returns the earliest user message, or nil.
func (c *Conversation) firstUserMessage() *Message {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			return msg
		}
	}
	return nil
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// TITLE DERIVATION
// =============================================================================

// DeriveTitle builds a conversation title from user input: the first
// TitleLength runes, with "..." appended only when the input was longer.
func DeriveTitle(input string) string {
	input = util.CollapseWhitespace(input)
	runes := []rune(input)
	if len(runes) <= TitleLength {
		return input
	}
	return string(runes[:TitleLength]) + "..."
}

// SetTitle manually sets the conversation title.
func (c *Conversation) SetTitle(title string) {
	c.Title = title
	c.UpdatedAt = time.Now()
}

// =============================================================================
// METADATA
// =============================================================================

// ConversationMeta holds lightweight metadata for listing.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Preview      string    `json:"preview"`
}

// Meta returns metadata about the conversation.
func (c *Conversation) Meta() ConversationMeta {
	return ConversationMeta{
		ID:           c.ID,
		Title:        c.Title,
		MessageCount: len(c.Messages),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Preview:      c.Preview(),
	}
}

// Preview returns a short one-line preview of the first user message.
func (c *Conversation) Preview() string {
	first := c.firstUserMessage()
	if first == nil {
		return ""
	}
	return util.Truncate(util.CollapseWhitespace(first.Content), 80)
}

// Clone creates a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Messages:  make([]*Message, len(c.Messages)),
	}
	for i, msg := range c.Messages {
		msgCopy := *msg
		if len(msg.Images) > 0 {
			msgCopy.Images = append([]string(nil), msg.Images...)
		}
		clone.Messages[i] = &msgCopy
	}
	return clone
}
