package events

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/villagehq/go-community-client/auth"
	"github.com/villagehq/go-community-client/postgrest"
	"github.com/villagehq/go-community-client/users"
)

const (
	eventsTable    = "events"
	attendeesTable = "event_attendees"
)

// Domain-rule errors.
var (
	// ErrEventFull rejects joining an event at capacity.
	ErrEventFull = errors.New("event is at capacity")
	// ErrAlreadyAttending rejects a second registration for the same event.
	ErrAlreadyAttending = errors.New("already attending this event")
	// ErrNotAttending rejects leaving an event one never joined.
	ErrNotAttending = errors.New("not attending this event")
	// ErrNotOrganizer rejects mutations by callers other than the organizer.
	ErrNotOrganizer = errors.New("only the organizer can modify this event")
)

// CreateEventData is the input for creating an event.
type CreateEventData struct {
	Title       string
	Description *string
	CommunityID string
	Location    *string
	StartsAt    time.Time
	EndsAt      time.Time
	Capacity    *int
}

// Validate checks required fields, bounds, and that the event ends after it
// starts.
func (d CreateEventData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Title, validation.Required, validation.Length(2, 160)),
		validation.Field(&d.Description, validation.Length(0, 4000)),
		validation.Field(&d.CommunityID, validation.Required),
		validation.Field(&d.StartsAt, validation.Required),
		validation.Field(&d.EndsAt, validation.Required, validation.By(after(d.StartsAt))),
		validation.Field(&d.Capacity, validation.Min(1)),
	)
}

// UpdateEventData is a partial event update; nil fields are left as-is.
type UpdateEventData struct {
	Title       *string
	Description *string
	Location    *string
	StartsAt    *time.Time
	EndsAt      *time.Time
	Capacity    *int
}

// Validate checks field bounds on the set fields.
func (d UpdateEventData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Title, validation.Length(2, 160)),
		validation.Field(&d.Description, validation.Length(0, 4000)),
		validation.Field(&d.Capacity, validation.Min(1)),
	)
}

func after(start time.Time) validation.RuleFunc {
	return func(value any) error {
		end, ok := value.(time.Time)
		if !ok {
			return errors.New("must be a time")
		}
		if !end.After(start) {
			return errors.New("must be after the start time")
		}
		return nil
	}
}

// Service performs event and attendance CRUD against the backend.
type Service struct {
	db       *postgrest.Client
	sessions auth.UserSource
	profiles *users.Service
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates an event service.
func NewService(db *postgrest.Client, sessions auth.UserSource, profiles *users.Service, log zerolog.Logger) *Service {
	return &Service{db: db, sessions: sessions, profiles: profiles, log: log, now: time.Now}
}

// Fetch lists events. By default only active events are returned, soonest
// first; IncludeDeleted drops the activity filter.
func (s *Service) Fetch(ctx context.Context, opts FetchOptions) ([]Event, error) {
	s.log.Debug().Msg("fetching events")

	q := s.db.From(eventsTable).Select()
	if !opts.IncludeDeleted {
		q = q.Eq("is_active", true)
	}
	if opts.CommunityID != "" {
		q = q.Eq("community_id", opts.CommunityID)
	}
	if opts.OrganizerID != "" {
		q = q.Eq("organizer_id", opts.OrganizerID)
	}
	q = q.Order("starts_at", false)

	var rows []eventRow
	if err := q.Do(ctx, &rows); err != nil {
		s.log.Error().Err(err).Msg("fetch events failed")
		return nil, err
	}

	events := eventsFromRows(rows)
	if opts.UpcomingOnly {
		now := s.now()
		upcoming := events[:0]
		for _, e := range events {
			if e.StartsAt.After(now) {
				upcoming = append(upcoming, e)
			}
		}
		events = upcoming
	}
	return events, nil
}

// FetchInfos returns lightweight projections keyed by id.
func (s *Service) FetchInfos(ctx context.Context, ids []string) (map[string]EventInfo, error) {
	if len(ids) == 0 {
		return map[string]EventInfo{}, nil
	}

	var rows []eventRow
	if err := s.db.From(eventsTable).Select().In("id", ids...).Do(ctx, &rows); err != nil {
		s.log.Error().Err(err).Msg("fetch event infos failed")
		return nil, err
	}

	infos := make(map[string]EventInfo, len(rows))
	for _, row := range rows {
		infos[row.ID] = infoFromRow(row)
	}
	return infos, nil
}

// FetchByID returns a full event projection with the organizer embedded, or
// (nil, nil) when the event does not exist.
func (s *Service) FetchByID(ctx context.Context, id string) (*Event, error) {
	s.log.Debug().Str("event_id", id).Msg("fetching event")

	row, err := s.fetchRow(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	event := eventFromRow(*row)

	infos, err := s.profiles.FetchInfos(ctx, []string{event.OrganizerID})
	if err != nil {
		return nil, err
	}
	if info, ok := infos[event.OrganizerID]; ok {
		if err := event.AttachOrganizer(info); err != nil {
			return nil, err
		}
	}
	return &event, nil
}

// Create inserts a new event with the caller as organizer.
func (s *Service) Create(ctx context.Context, data CreateEventData) (*Event, error) {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	insert := insertRowFromCreate(uuid.NewString(), data, caller.ID, s.now().UTC())

	var rows []eventRow
	if err := s.db.From(eventsTable).Insert(insert).Do(ctx, &rows); err != nil {
		s.log.Error().Err(err).Msg("create event failed")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("create event returned no row")
	}

	s.log.Info().Str("event_id", rows[0].ID).Msg("event created")
	event := eventFromRow(rows[0])
	return &event, nil
}

// Update applies a partial update. Only the organizer may update.
func (s *Service) Update(ctx context.Context, id string, patch UpdateEventData) (*Event, error) {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	row, err := s.fetchRow(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, postgrest.NewNotFoundError("event", id)
	}
	if row.OrganizerID != caller.ID {
		s.log.Warn().Str("event_id", id).Str("caller_id", caller.ID).Msg("event update denied")
		return nil, ErrNotOrganizer
	}

	var rows []eventRow
	err = s.db.From(eventsTable).Update(updateRowFromPatch(patch, s.now().UTC())).Eq("id", id).Do(ctx, &rows)
	if err != nil {
		s.log.Error().Err(err).Str("event_id", id).Msg("event update failed")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, postgrest.NewNotFoundError("event", id)
	}

	s.log.Info().Str("event_id", id).Msg("event updated")
	event := eventFromRow(rows[0])
	return &event, nil
}

// Delete soft-deletes an event. Only the organizer may delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return err
	}

	row, err := s.fetchRow(ctx, id)
	if err != nil {
		return err
	}
	if row == nil {
		return postgrest.NewNotFoundError("event", id)
	}
	if row.OrganizerID != caller.ID {
		s.log.Warn().Str("event_id", id).Str("caller_id", caller.ID).Msg("event delete denied")
		return ErrNotOrganizer
	}

	if err := s.db.From(eventsTable).Update(softDeleteRow(s.now().UTC())).Eq("id", id).Do(ctx, nil); err != nil {
		s.log.Error().Err(err).Str("event_id", id).Msg("event delete failed")
		return err
	}

	s.log.Info().Str("event_id", id).Msg("event soft-deleted")
	return nil
}

// Join registers the caller for an event, rejecting full events and repeat
// registrations.
func (s *Service) Join(ctx context.Context, eventID string) (*Attendance, error) {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}

	row, err := s.fetchRow(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if row == nil || !row.IsActive {
		return nil, postgrest.NewNotFoundError("event", eventID)
	}
	if row.Capacity != nil && row.AttendeeCount >= *row.Capacity {
		return nil, ErrEventFull
	}

	existing, err := s.fetchAttendanceRow(ctx, eventID, caller.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyAttending
	}

	insert := attendanceRow{
		ID:           uuid.NewString(),
		EventID:      eventID,
		UserID:       caller.ID,
		RegisteredAt: s.now().UTC(),
	}

	var rows []attendanceRow
	if err := s.db.From(attendeesTable).Insert(insert).Do(ctx, &rows); err != nil {
		s.log.Error().Err(err).Str("event_id", eventID).Msg("join event failed")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("join event returned no row")
	}

	s.log.Info().Str("event_id", eventID).Str("user_id", caller.ID).Msg("joined event")
	attendance := attendanceFromRow(rows[0])
	return &attendance, nil
}

// Leave removes the caller's registration.
func (s *Service) Leave(ctx context.Context, eventID string) (*Attendance, error) {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}

	attendance, err := s.fetchAttendanceRow(ctx, eventID, caller.ID)
	if err != nil {
		return nil, err
	}
	if attendance == nil {
		return nil, ErrNotAttending
	}

	if err := s.db.From(attendeesTable).Delete().Eq("id", attendance.ID).Do(ctx, nil); err != nil {
		s.log.Error().Err(err).Str("event_id", eventID).Msg("leave event failed")
		return nil, err
	}

	s.log.Info().Str("event_id", eventID).Str("user_id", caller.ID).Msg("left event")
	left := attendanceFromRow(*attendance)
	return &left, nil
}

// FetchAttendees lists an event's registrations with attendee profiles
// embedded.
func (s *Service) FetchAttendees(ctx context.Context, eventID string) ([]Attendance, error) {
	var rows []attendanceRow
	err := s.db.From(attendeesTable).Select().
		Eq("event_id", eventID).
		Order("registered_at", false).
		Do(ctx, &rows)
	if err != nil {
		s.log.Error().Err(err).Str("event_id", eventID).Msg("fetch attendees failed")
		return nil, err
	}

	attendances := attendancesFromRows(rows)

	ids := make([]string, 0, len(attendances))
	for _, a := range attendances {
		ids = append(ids, a.UserID)
	}
	infos, err := s.profiles.FetchInfos(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range attendances {
		if info, ok := infos[attendances[i].UserID]; ok {
			if err := attendances[i].AttachAttendee(info); err != nil {
				return nil, err
			}
		}
	}
	return attendances, nil
}

// FetchUserEvents lists the registrations of one user.
func (s *Service) FetchUserEvents(ctx context.Context, userID string) ([]Attendance, error) {
	var rows []attendanceRow
	err := s.db.From(attendeesTable).Select().
		Eq("user_id", userID).
		Order("registered_at", true).
		Do(ctx, &rows)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("fetch user events failed")
		return nil, err
	}
	return attendancesFromRows(rows), nil
}

func (s *Service) fetchRow(ctx context.Context, id string) (*eventRow, error) {
	var rows []eventRow
	if err := s.db.From(eventsTable).Select().Eq("id", id).Limit(1).Do(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *Service) fetchAttendanceRow(ctx context.Context, eventID, userID string) (*attendanceRow, error) {
	var rows []attendanceRow
	err := s.db.From(attendeesTable).Select().
		Eq("event_id", eventID).
		Eq("user_id", userID).
		Limit(1).
		Do(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
