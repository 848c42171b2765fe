// Package users provides profile domain objects and their service.
package users

import "time"

// User is the application-facing profile representation.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName *string    `json:"firstName,omitempty"`
	LastName  *string    `json:"lastName,omitempty"`
	AvatarURL *string    `json:"avatarUrl,omitempty"`
	Bio       *string    `json:"bio,omitempty"`
	Location  *string    `json:"location,omitempty"`
	IsActive  bool       `json:"isActive"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// UserInfo is the lightweight projection other entities embed: the id plus
// the display fields list views need, nothing else.
type UserInfo struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Info returns the user's lightweight projection. Absent display fields
// become empty strings; the projection carries no null markers.
func (u User) Info() UserInfo {
	return UserInfo{
		ID:        u.ID,
		FirstName: deref(u.FirstName),
		LastName:  deref(u.LastName),
		AvatarURL: deref(u.AvatarURL),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FetchOptions filters profile list queries.
type FetchOptions struct {
	// IDs restricts the result to the given profile ids.
	IDs []string
	// IncludeDeleted includes soft-deleted profiles.
	IncludeDeleted bool
}
