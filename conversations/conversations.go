// Package conversations provides direct-message conversations between two
// users and their service.
package conversations

import (
	"time"

	"github.com/villagehq/go-community-client/users"
)

// Conversation is a direct-message thread between exactly two users. The
// participant pair is unique; opening a conversation with a user you already
// talk to returns the existing thread. Other is only set on projections
// fetched for a known caller.
type Conversation struct {
	ID               string          `json:"id"`
	ParticipantOneID string          `json:"participantOneId"`
	ParticipantTwoID string          `json:"participantTwoId"`
	LastMessageID    *string         `json:"lastMessageId,omitempty"`
	LastMessageAt    *time.Time      `json:"lastMessageAt,omitempty"`
	UnreadCount      int             `json:"unreadCount"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	Other            *users.UserInfo `json:"other,omitempty"`
}

// OtherParticipantID returns the participant that is not userID. It returns
// the empty string when userID is not part of the conversation.
func (c Conversation) OtherParticipantID(userID string) string {
	switch userID {
	case c.ParticipantOneID:
		return c.ParticipantTwoID
	case c.ParticipantTwoID:
		return c.ParticipantOneID
	}
	return ""
}

// Has reports whether userID is one of the two participants.
func (c Conversation) Has(userID string) bool {
	return userID == c.ParticipantOneID || userID == c.ParticipantTwoID
}

// Message is one direct message inside a conversation. ReadAt is nil until
// the recipient marks the thread read.
type Message struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversationId"`
	FromUserID     string          `json:"fromUserId"`
	ToUserID       string          `json:"toUserId"`
	Content        string          `json:"content"`
	ReadAt         *time.Time      `json:"readAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	Sender         *users.UserInfo `json:"sender,omitempty"`
}

// MessageOptions pages a conversation's message history.
type MessageOptions struct {
	// Offset skips the first Offset messages.
	Offset int
	// Limit caps the page size; zero means no explicit cap.
	Limit int
}
