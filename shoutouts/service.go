package shoutouts

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
	shoutoutsTable = "shoutouts"
	thanksTable    = "thanks"
)

// Domain-rule errors.
var (
	// ErrSelfShoutout rejects a shoutout addressed to its sender.
	ErrSelfShoutout = errors.New("cannot send a shoutout to yourself")
	// ErrSelfThanks rejects thanks addressed to its sender.
	ErrSelfThanks = errors.New("cannot send thanks to yourself")
	// ErrNotSender rejects deletion by anyone other than the sender.
	ErrNotSender = errors.New("only the sender can delete this")
)

// CreateShoutoutData is the input for sending a shoutout.
type CreateShoutoutData struct {
	ToUserID   string
	ResourceID *string
	Message    string
}

// Validate checks the recipient and message.
func (d CreateShoutoutData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.ToUserID, validation.Required),
		validation.Field(&d.Message, validation.Required, validation.Length(1, 1000)),
	)
}

// CreateThanksData is the input for sending thanks.
type CreateThanksData struct {
	ToUserID   string
	ResourceID *string
	Message    *string
}

// Validate checks the recipient and optional message.
func (d CreateThanksData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.ToUserID, validation.Required),
		validation.Field(&d.Message, validation.Length(1, 1000)),
	)
}

// Service performs shoutout and thanks operations against the backend.
type Service struct {
	db       *postgrest.Client
	sessions auth.UserSource
	profiles *users.Service
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a shoutout service.
func NewService(db *postgrest.Client, sessions auth.UserSource, profiles *users.Service, log zerolog.Logger) *Service {
	return &Service{db: db, sessions: sessions, profiles: profiles, log: log, now: time.Now}
}

// FetchShoutouts lists shoutouts, newest first, with sender and recipient
// profiles embedded. Soft-deleted entries are excluded unless asked for.
func (s *Service) FetchShoutouts(ctx context.Context, opts FetchOptions) ([]Shoutout, error) {
	s.log.Debug().Msg("fetching shoutouts")

	q := s.db.From(shoutoutsTable).Select()
	q = applyFilters(q, opts)

	var rows []shoutoutRow
	if err := q.Do(ctx, &rows); err != nil {
		s.log.Error().Err(err).Msg("fetch shoutouts failed")
		return nil, err
	}

	shoutouts := shoutoutsFromRows(rows)
	infos, err := s.participantInfos(ctx, shoutoutParticipants(shoutouts))
	if err != nil {
		return nil, err
	}
	for i := range shoutouts {
		from, okFrom := infos[shoutouts[i].FromUserID]
		to, okTo := infos[shoutouts[i].ToUserID]
		if okFrom && okTo {
			if err := shoutouts[i].AttachUsers(from, to); err != nil {
				return nil, err
			}
		}
	}
	return shoutouts, nil
}

// CreateShoutout sends a shoutout from the caller.
func (s *Service) CreateShoutout(ctx context.Context, data CreateShoutoutData) (*Shoutout, error) {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if data.ToUserID == caller.ID {
		return nil, ErrSelfShoutout
	}

	insert := insertShoutoutRow(uuid.NewString(), data, caller.ID, s.now().UTC())

	var rows []shoutoutRow
	if err := s.db.From(shoutoutsTable).Insert(insert).Do(ctx, &rows); err != nil {
		s.log.Error().Err(err).Msg("create shoutout failed")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("create shoutout returned no row")
	}

	s.log.Info().Str("shoutout_id", rows[0].ID).Str("to_user_id", data.ToUserID).Msg("shoutout sent")
	shoutout := shoutoutFromRow(rows[0])
	return &shoutout, nil
}

// DeleteShoutout soft-deletes a shoutout. Only its sender may delete.
func (s *Service) DeleteShoutout(ctx context.Context, id string) error {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return err
	}

	var rows []shoutoutRow
	if err := s.db.From(shoutoutsTable).Select().Eq("id", id).Limit(1).Do(ctx, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return postgrest.NewNotFoundError("shoutout", id)
	}
	if rows[0].FromUserID != caller.ID {
		s.log.Warn().Str("shoutout_id", id).Str("caller_id", caller.ID).Msg("shoutout delete denied")
		return ErrNotSender
	}

	if err := s.db.From(shoutoutsTable).Update(softDeleteRow(s.now().UTC())).Eq("id", id).Do(ctx, nil); err != nil {
		s.log.Error().Err(err).Str("shoutout_id", id).Msg("shoutout delete failed")
		return err
	}

	s.log.Info().Str("shoutout_id", id).Msg("shoutout soft-deleted")
	return nil
}

// FetchThanks lists thanks, newest first, with sender and recipient profiles
// embedded.
func (s *Service) FetchThanks(ctx context.Context, opts FetchOptions) ([]Thanks, error) {
	s.log.Debug().Msg("fetching thanks")

	q := s.db.From(thanksTable).Select()
	q = applyFilters(q, opts)

	var rows []thanksRow
	if err := q.Do(ctx, &rows); err != nil {
		s.log.Error().Err(err).Msg("fetch thanks failed")
		return nil, err
	}

	thanks := allThanksFromRows(rows)
	infos, err := s.participantInfos(ctx, thanksParticipants(thanks))
	if err != nil {
		return nil, err
	}
	for i := range thanks {
		from, okFrom := infos[thanks[i].FromUserID]
		to, okTo := infos[thanks[i].ToUserID]
		if okFrom && okTo {
			if err := thanks[i].AttachUsers(from, to); err != nil {
				return nil, err
			}
		}
	}
	return thanks, nil
}

// CreateThanks sends thanks from the caller.
func (s *Service) CreateThanks(ctx context.Context, data CreateThanksData) (*Thanks, error) {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if data.ToUserID == caller.ID {
		return nil, ErrSelfThanks
	}

	insert := insertThanksRow(uuid.NewString(), data, caller.ID, s.now().UTC())

	var rows []thanksRow
	if err := s.db.From(thanksTable).Insert(insert).Do(ctx, &rows); err != nil {
		s.log.Error().Err(err).Msg("create thanks failed")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("create thanks returned no row")
	}

	s.log.Info().Str("thanks_id", rows[0].ID).Str("to_user_id", data.ToUserID).Msg("thanks sent")
	thanks := thanksFromRow(rows[0])
	return &thanks, nil
}

// DeleteThanks soft-deletes thanks. Only its sender may delete.
func (s *Service) DeleteThanks(ctx context.Context, id string) error {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return err
	}

	var rows []thanksRow
	if err := s.db.From(thanksTable).Select().Eq("id", id).Limit(1).Do(ctx, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return postgrest.NewNotFoundError("thanks", id)
	}
	if rows[0].FromUserID != caller.ID {
		s.log.Warn().Str("thanks_id", id).Str("caller_id", caller.ID).Msg("thanks delete denied")
		return ErrNotSender
	}

	if err := s.db.From(thanksTable).Update(softDeleteRow(s.now().UTC())).Eq("id", id).Do(ctx, nil); err != nil {
		s.log.Error().Err(err).Str("thanks_id", id).Msg("thanks delete failed")
		return err
	}

	s.log.Info().Str("thanks_id", id).Msg("thanks soft-deleted")
	return nil
}

func applyFilters(q *postgrest.Query, opts FetchOptions) *postgrest.Query {
	if !opts.IncludeDeleted {
		q = q.Eq("is_active", true)
	}
	if opts.FromUserID != "" {
		q = q.Eq("from_user_id", opts.FromUserID)
	}
	if opts.ToUserID != "" {
		q = q.Eq("to_user_id", opts.ToUserID)
	}
	if opts.ResourceID != "" {
		q = q.Eq("resource_id", opts.ResourceID)
	}
	return q.Order("created_at", true)
}

func (s *Service) participantInfos(ctx context.Context, ids []string) (map[string]users.UserInfo, error) {
	infos, err := s.profiles.FetchInfos(ctx, ids)
	if err != nil {
		s.log.Error().Err(err).Msg("fetch participant profiles failed")
		return nil, err
	}
	return infos, nil
}

func shoutoutParticipants(shoutouts []Shoutout) []string {
	ids := make([]string, 0, len(shoutouts)*2)
	for _, s := range shoutouts {
		ids = append(ids, s.FromUserID, s.ToUserID)
	}
	return ids
}

func thanksParticipants(thanks []Thanks) []string {
	ids := make([]string, 0, len(thanks)*2)
	for _, t := range thanks {
		ids = append(ids, t.FromUserID, t.ToUserID)
	}
	return ids
}
