package conversations

import (
	"fmt"
	"time"

	"github.com/villagehq/go-community-client/users"
)

// conversationRow mirrors the conversations table columns.
type conversationRow struct {
	ID               string     `json:"id"`
	ParticipantOneID string     `json:"participant_one_id"`
	ParticipantTwoID string     `json:"participant_two_id"`
	LastMessageID    *string    `json:"last_message_id,omitempty"`
	LastMessageAt    *time.Time `json:"last_message_at,omitempty"`
	UnreadCount      int        `json:"unread_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// messageRow mirrors the messages table columns.
type messageRow struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	FromUserID     string     `json:"from_user_id"`
	ToUserID       string     `json:"to_user_id"`
	Content        string     `json:"content"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// MismatchError reports a foreign key that does not match the object being
// attached to it.
type MismatchError struct {
	Entity string
	Field  string
	Want   string
	Got    string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s.%s mismatch: row has %s, attached object has %s", e.Entity, e.Field, e.Want, e.Got)
}

func conversationFromRow(row conversationRow) Conversation {
	return Conversation{
		ID:               row.ID,
		ParticipantOneID: row.ParticipantOneID,
		ParticipantTwoID: row.ParticipantTwoID,
		LastMessageID:    row.LastMessageID,
		LastMessageAt:    row.LastMessageAt,
		UnreadCount:      row.UnreadCount,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func conversationsFromRows(rows []conversationRow) []Conversation {
	out := make([]Conversation, 0, len(rows))
	for _, row := range rows {
		out = append(out, conversationFromRow(row))
	}
	return out
}

func messageFromRow(row messageRow) Message {
	return Message{
		ID:             row.ID,
		ConversationID: row.ConversationID,
		FromUserID:     row.FromUserID,
		ToUserID:       row.ToUserID,
		Content:        row.Content,
		ReadAt:         row.ReadAt,
		CreatedAt:      row.CreatedAt,
	}
}

func messagesFromRows(rows []messageRow) []Message {
	out := make([]Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, messageFromRow(row))
	}
	return out
}

// AttachOther embeds the counterpart's profile into a conversation viewed by
// viewerID, rejecting a profile that belongs to neither participant.
func (c *Conversation) AttachOther(viewerID string, info users.UserInfo) error {
	other := c.OtherParticipantID(viewerID)
	if other == "" || info.ID != other {
		return &MismatchError{Entity: "conversation", Field: "participant", Want: other, Got: info.ID}
	}
	c.Other = &info
	return nil
}

// AttachSender embeds the sender's profile into a message.
func (m *Message) AttachSender(info users.UserInfo) error {
	if info.ID != m.FromUserID {
		return &MismatchError{Entity: "message", Field: "from_user_id", Want: m.FromUserID, Got: info.ID}
	}
	m.Sender = &info
	return nil
}

func insertConversationRow(id, participantOne, participantTwo string, now time.Time) conversationRow {
	return conversationRow{
		ID:               id,
		ParticipantOneID: participantOne,
		ParticipantTwoID: participantTwo,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func insertMessageRow(id, conversationID, from, to, content string, now time.Time) messageRow {
	return messageRow{
		ID:             id,
		ConversationID: conversationID,
		FromUserID:     from,
		ToUserID:       to,
		Content:        content,
		CreatedAt:      now,
	}
}

func lastMessageRow(messageID string, now time.Time) map[string]any {
	return map[string]any{
		"last_message_id": messageID,
		"last_message_at": now,
		"updated_at":      now,
	}
}

func markReadRow(now time.Time) map[string]any {
	return map[string]any{"read_at": now}
}
