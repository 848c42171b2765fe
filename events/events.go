// Package events provides event and attendance domain objects and their
// service.
package events

import (
	"time"

	"github.com/villagehq/go-community-client/users"
)

// Event is the application-facing event representation. Organizer is only
// set on full projections fetched by id.
type Event struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   *string         `json:"description,omitempty"`
	OrganizerID   string          `json:"organizerId"`
	CommunityID   string          `json:"communityId"`
	Location      *string         `json:"location,omitempty"`
	StartsAt      time.Time       `json:"startsAt"`
	EndsAt        time.Time       `json:"endsAt"`
	Capacity      *int            `json:"capacity,omitempty"`
	AttendeeCount int             `json:"attendeeCount"`
	IsActive      bool            `json:"isActive"`
	DeletedAt     *time.Time      `json:"deletedAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Organizer     *users.UserInfo `json:"organizer,omitempty"`
}

// EventInfo is the lightweight projection for list views.
type EventInfo struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	OrganizerID   string    `json:"organizerId"`
	CommunityID   string    `json:"communityId"`
	StartsAt      time.Time `json:"startsAt"`
	EndsAt        time.Time `json:"endsAt"`
	AttendeeCount int       `json:"attendeeCount"`
}

// Attendance is the join between a user and an event, unique per pair.
type Attendance struct {
	ID           string          `json:"id"`
	EventID      string          `json:"eventId"`
	UserID       string          `json:"userId"`
	RegisteredAt time.Time       `json:"registeredAt"`
	Attendee     *users.UserInfo `json:"attendee,omitempty"`
}

// FetchOptions filters event list queries.
type FetchOptions struct {
	// CommunityID restricts to one community's events.
	CommunityID string
	// OrganizerID restricts to one organizer's events.
	OrganizerID string
	// UpcomingOnly restricts to events that have not started yet.
	UpcomingOnly bool
	// IncludeDeleted includes soft-deleted events.
	IncludeDeleted bool
}
