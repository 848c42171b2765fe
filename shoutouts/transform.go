package shoutouts

import (
	"fmt"
	"time"

	"github.com/villagehq/go-community-client/users"
)

// shoutoutRow mirrors the shoutouts table columns.
type shoutoutRow struct {
	ID         string     `json:"id"`
	FromUserID string     `json:"from_user_id"`
	ToUserID   string     `json:"to_user_id"`
	ResourceID *string    `json:"resource_id,omitempty"`
	Message    string     `json:"message"`
	IsActive   bool       `json:"is_active"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// thanksRow mirrors the thanks table columns.
type thanksRow struct {
	ID         string     `json:"id"`
	FromUserID string     `json:"from_user_id"`
	ToUserID   string     `json:"to_user_id"`
	ResourceID *string    `json:"resource_id,omitempty"`
	Message    *string    `json:"message,omitempty"`
	IsActive   bool       `json:"is_active"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
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

func shoutoutFromRow(row shoutoutRow) Shoutout {
	return Shoutout{
		ID:         row.ID,
		FromUserID: row.FromUserID,
		ToUserID:   row.ToUserID,
		ResourceID: row.ResourceID,
		Message:    row.Message,
		IsActive:   row.IsActive,
		DeletedAt:  row.DeletedAt,
		CreatedAt:  row.CreatedAt,
	}
}

func shoutoutsFromRows(rows []shoutoutRow) []Shoutout {
	out := make([]Shoutout, 0, len(rows))
	for _, row := range rows {
		out = append(out, shoutoutFromRow(row))
	}
	return out
}

func thanksFromRow(row thanksRow) Thanks {
	return Thanks{
		ID:         row.ID,
		FromUserID: row.FromUserID,
		ToUserID:   row.ToUserID,
		ResourceID: row.ResourceID,
		Message:    row.Message,
		IsActive:   row.IsActive,
		DeletedAt:  row.DeletedAt,
		CreatedAt:  row.CreatedAt,
	}
}

func allThanksFromRows(rows []thanksRow) []Thanks {
	out := make([]Thanks, 0, len(rows))
	for _, row := range rows {
		out = append(out, thanksFromRow(row))
	}
	return out
}

// AttachUsers embeds the sender and recipient profiles, rejecting ids that do
// not match the row's foreign keys.
func (s *Shoutout) AttachUsers(from, to users.UserInfo) error {
	if from.ID != s.FromUserID {
		return &MismatchError{Entity: "shoutout", Field: "from_user_id", Want: s.FromUserID, Got: from.ID}
	}
	if to.ID != s.ToUserID {
		return &MismatchError{Entity: "shoutout", Field: "to_user_id", Want: s.ToUserID, Got: to.ID}
	}
	s.From = &from
	s.To = &to
	return nil
}

// AttachUsers embeds the sender and recipient profiles, rejecting ids that do
// not match the row's foreign keys.
func (t *Thanks) AttachUsers(from, to users.UserInfo) error {
	if from.ID != t.FromUserID {
		return &MismatchError{Entity: "thanks", Field: "from_user_id", Want: t.FromUserID, Got: from.ID}
	}
	if to.ID != t.ToUserID {
		return &MismatchError{Entity: "thanks", Field: "to_user_id", Want: t.ToUserID, Got: to.ID}
	}
	t.From = &from
	t.To = &to
	return nil
}

func insertShoutoutRow(id string, data CreateShoutoutData, fromUserID string, now time.Time) shoutoutRow {
	return shoutoutRow{
		ID:         id,
		FromUserID: fromUserID,
		ToUserID:   data.ToUserID,
		ResourceID: data.ResourceID,
		Message:    data.Message,
		IsActive:   true,
		CreatedAt:  now,
	}
}

func insertThanksRow(id string, data CreateThanksData, fromUserID string, now time.Time) thanksRow {
	return thanksRow{
		ID:         id,
		FromUserID: fromUserID,
		ToUserID:   data.ToUserID,
		ResourceID: data.ResourceID,
		Message:    data.Message,
		IsActive:   true,
		CreatedAt:  now,
	}
}

func softDeleteRow(now time.Time) map[string]any {
	return map[string]any{
		"is_active":  false,
		"deleted_at": now,
	}
}
