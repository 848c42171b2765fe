// Package shoutouts provides peer recognition: public shoutouts and the
// thanks users attach to them or to other resources.
package shoutouts

import (
	"time"

	"github.com/villagehq/go-community-client/users"
)

// Shoutout is public recognition from one user to another, optionally tied
// to a resource such as an event. From and To are only set on projections
// with profiles embedded.
type Shoutout struct {
	ID         string          `json:"id"`
	FromUserID string          `json:"fromUserId"`
	ToUserID   string          `json:"toUserId"`
	ResourceID *string         `json:"resourceId,omitempty"`
	Message    string          `json:"message"`
	IsActive   bool            `json:"isActive"`
	DeletedAt  *time.Time      `json:"deletedAt,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	From       *users.UserInfo `json:"from,omitempty"`
	To         *users.UserInfo `json:"to,omitempty"`
}

// Thanks is a lightweight acknowledgment from one user to another,
// optionally tied to a resource.
type Thanks struct {
	ID         string          `json:"id"`
	FromUserID string          `json:"fromUserId"`
	ToUserID   string          `json:"toUserId"`
	ResourceID *string         `json:"resourceId,omitempty"`
	Message    *string         `json:"message,omitempty"`
	IsActive   bool            `json:"isActive"`
	DeletedAt  *time.Time      `json:"deletedAt,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	From       *users.UserInfo `json:"from,omitempty"`
	To         *users.UserInfo `json:"to,omitempty"`
}

// FetchOptions filters shoutout and thanks list queries.
type FetchOptions struct {
	// FromUserID restricts to recognition sent by one user.
	FromUserID string
	// ToUserID restricts to recognition received by one user.
	ToUserID string
	// ResourceID restricts to recognition tied to one resource.
	ResourceID string
	// IncludeDeleted includes soft-deleted entries.
	IncludeDeleted bool
}
