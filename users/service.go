package users

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"

	"github.com/villagehq/go-community-client/auth"
	"github.com/villagehq/go-community-client/postgrest"
)

const table = "profiles"

// ErrNotProfileOwner is returned when a caller updates a profile that is not
// their own.
var ErrNotProfileOwner = fmt.Errorf("only the profile owner can update it")

// UpdateProfileData is a partial profile update; nil fields are left as-is.
type UpdateProfileData struct {
	FirstName *string
	LastName  *string
	AvatarURL *string
	Bio       *string
	Location  *string
}

// Validate checks field bounds on the set fields.
func (d UpdateProfileData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.FirstName, validation.Length(1, 80)),
		validation.Field(&d.LastName, validation.Length(1, 80)),
		validation.Field(&d.Bio, validation.Length(0, 2000)),
		validation.Field(&d.Location, validation.Length(0, 160)),
	)
}

// Service performs profile CRUD against the backend.
type Service struct {
	db       *postgrest.Client
	sessions auth.UserSource
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a profile service.
func NewService(db *postgrest.Client, sessions auth.UserSource, log zerolog.Logger) *Service {
	return &Service{db: db, sessions: sessions, log: log, now: time.Now}
}

// Fetch lists profiles. Soft-deleted profiles are excluded unless
// opts.IncludeDeleted is set.
func (s *Service) Fetch(ctx context.Context, opts FetchOptions) ([]User, error) {
	s.log.Debug().Msg("fetching profiles")

	q := s.db.From(table).Select()
	if len(opts.IDs) > 0 {
		q = q.In("id", opts.IDs...)
	}
	if !opts.IncludeDeleted {
		q = q.Eq("is_active", true)
	}
	q = q.Order("created_at", true)

	var rows []userRow
	if err := q.Do(ctx, &rows); err != nil {
		s.log.Error().Err(err).Msg("fetch profiles failed")
		return nil, err
	}
	return usersFromRows(rows), nil
}

// FetchByID returns a profile, or (nil, nil) when it does not exist.
func (s *Service) FetchByID(ctx context.Context, id string) (*User, error) {
	s.log.Debug().Str("user_id", id).Msg("fetching profile")

	var rows []userRow
	if err := s.db.From(table).Select().Eq("id", id).Limit(1).Do(ctx, &rows); err != nil {
		s.log.Error().Err(err).Str("user_id", id).Msg("fetch profile failed")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	user := userFromRow(rows[0])
	return &user, nil
}

// FetchInfos returns lightweight projections for the given ids, keyed by id.
// Other entity services use this to embed users in full projections.
func (s *Service) FetchInfos(ctx context.Context, ids []string) (map[string]UserInfo, error) {
	if len(ids) == 0 {
		return map[string]UserInfo{}, nil
	}

	var rows []userRow
	if err := s.db.From(table).Select().In("id", ids...).Do(ctx, &rows); err != nil {
		s.log.Error().Err(err).Msg("fetch profile infos failed")
		return nil, err
	}

	out := make(map[string]UserInfo, len(rows))
	for _, row := range rows {
		out[row.ID] = infoFromRow(row)
	}
	return out, nil
}

// FetchCurrent returns the signed-in user's profile.
func (s *Service) FetchCurrent(ctx context.Context) (*User, error) {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}
	return s.FetchByID(ctx, caller.ID)
}

// Update applies a partial update to the caller's own profile.
func (s *Service) Update(ctx context.Context, id string, patch UpdateProfileData) (*User, error) {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}
	if caller.ID != id {
		s.log.Warn().Str("user_id", id).Str("caller_id", caller.ID).Msg("profile update denied")
		return nil, ErrNotProfileOwner
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var rows []userRow
	err = s.db.From(table).Update(updateRowFromPatch(patch, s.now().UTC())).Eq("id", id).Do(ctx, &rows)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", id).Msg("profile update failed")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, postgrest.NewNotFoundError("profile", id)
	}

	s.log.Info().Str("user_id", id).Msg("profile updated")
	user := userFromRow(rows[0])
	return &user, nil
}
