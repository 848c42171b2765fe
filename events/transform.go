package events

import (
	"fmt"
	"time"

	"github.com/villagehq/go-community-client/users"
)

// eventRow mirrors the events table columns.
type eventRow struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   *string    `json:"description,omitempty"`
	OrganizerID   string     `json:"organizer_id"`
	CommunityID   string     `json:"community_id"`
	Location      *string    `json:"location,omitempty"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        time.Time  `json:"ends_at"`
	Capacity      *int       `json:"capacity,omitempty"`
	AttendeeCount int        `json:"attendee_count"`
	IsActive      bool       `json:"is_active"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// attendanceRow mirrors the event_attendees table columns.
type attendanceRow struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	UserID       string    `json:"user_id"`
	RegisteredAt time.Time `json:"registered_at"`
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

func eventFromRow(row eventRow) Event {
	return Event{
		ID:            row.ID,
		Title:         row.Title,
		Description:   row.Description,
		OrganizerID:   row.OrganizerID,
		CommunityID:   row.CommunityID,
		Location:      row.Location,
		StartsAt:      row.StartsAt,
		EndsAt:        row.EndsAt,
		Capacity:      row.Capacity,
		AttendeeCount: row.AttendeeCount,
		IsActive:      row.IsActive,
		DeletedAt:     row.DeletedAt,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func infoFromRow(row eventRow) EventInfo {
	return EventInfo{
		ID:            row.ID,
		Title:         row.Title,
		OrganizerID:   row.OrganizerID,
		CommunityID:   row.CommunityID,
		StartsAt:      row.StartsAt,
		EndsAt:        row.EndsAt,
		AttendeeCount: row.AttendeeCount,
	}
}

func eventsFromRows(rows []eventRow) []Event {
	out := make([]Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, eventFromRow(row))
	}
	return out
}

func attendanceFromRow(row attendanceRow) Attendance {
	return Attendance{
		ID:           row.ID,
		EventID:      row.EventID,
		UserID:       row.UserID,
		RegisteredAt: row.RegisteredAt,
	}
}

func attendancesFromRows(rows []attendanceRow) []Attendance {
	out := make([]Attendance, 0, len(rows))
	for _, row := range rows {
		out = append(out, attendanceFromRow(row))
	}
	return out
}

// AttachOrganizer embeds the organizer into a full event projection,
// rejecting an organizer whose id does not match the row's organizer_id.
func (e *Event) AttachOrganizer(info users.UserInfo) error {
	if info.ID != e.OrganizerID {
		return &MismatchError{Entity: "event", Field: "organizer_id", Want: e.OrganizerID, Got: info.ID}
	}
	e.Organizer = &info
	return nil
}

// AttachAttendee embeds an attendee profile into an attendance row.
func (a *Attendance) AttachAttendee(info users.UserInfo) error {
	if info.ID != a.UserID {
		return &MismatchError{Entity: "attendance", Field: "user_id", Want: a.UserID, Got: info.ID}
	}
	a.Attendee = &info
	return nil
}

func insertRowFromCreate(id string, data CreateEventData, organizerID string, now time.Time) eventRow {
	return eventRow{
		ID:          id,
		Title:       data.Title,
		Description: data.Description,
		OrganizerID: organizerID,
		CommunityID: data.CommunityID,
		Location:    data.Location,
		StartsAt:    data.StartsAt,
		EndsAt:      data.EndsAt,
		Capacity:    data.Capacity,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func updateRowFromPatch(patch UpdateEventData, now time.Time) map[string]any {
	row := map[string]any{"updated_at": now}
	if patch.Title != nil {
		row["title"] = *patch.Title
	}
	if patch.Description != nil {
		row["description"] = *patch.Description
	}
	if patch.Location != nil {
		row["location"] = *patch.Location
	}
	if patch.StartsAt != nil {
		row["starts_at"] = *patch.StartsAt
	}
	if patch.EndsAt != nil {
		row["ends_at"] = *patch.EndsAt
	}
	if patch.Capacity != nil {
		row["capacity"] = *patch.Capacity
	}
	return row
}

func softDeleteRow(now time.Time) map[string]any {
	return map[string]any{
		"is_active":  false,
		"deleted_at": now,
		"updated_at": now,
	}
}
