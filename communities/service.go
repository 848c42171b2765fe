package communities

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
	communitiesTable = "communities"
	membersTable     = "community_members"
)

// Domain-rule errors.
var (
	// ErrAlreadyMember rejects a second join for the same (user, community).
	ErrAlreadyMember = errors.New("already a member of this community")
	// ErrNotMember rejects leaving a community one never joined.
	ErrNotMember = errors.New("not a member of this community")
	// ErrOrganizerCannotLeave rejects the organizer leaving their own community.
	ErrOrganizerCannotLeave = errors.New("the organizer cannot leave their own community")
	// ErrNotOrganizer rejects mutations by callers other than the organizer.
	ErrNotOrganizer = errors.New("only the organizer can modify this community")
)

// CreateCommunityData is the input for creating a community.
type CreateCommunityData struct {
	Name        string
	Description *string
	// ParentID nests the new community under an existing one. Nil creates a
	// root community.
	ParentID *string
}

// Validate checks required fields and bounds.
func (d CreateCommunityData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required, validation.Length(2, 120)),
		validation.Field(&d.Description, validation.Length(0, 2000)),
		validation.Field(&d.ParentID, validation.When(d.ParentID != nil, validation.Required, validation.By(isUUID))),
	)
}

// UpdateCommunityData is a partial community update; nil fields are left as-is.
type UpdateCommunityData struct {
	Name        *string
	Description *string
}

// Validate checks field bounds on the set fields.
func (d UpdateCommunityData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Length(2, 120)),
		validation.Field(&d.Description, validation.Length(0, 2000)),
	)
}

func isUUID(value any) error {
	s, _ := value.(*string)
	if s == nil {
		return nil
	}
	if _, err := uuid.Parse(*s); err != nil {
		return errors.New("must be a valid UUID")
	}
	return nil
}

// Service performs community and membership CRUD against the backend.
type Service struct {
	db       *postgrest.Client
	sessions auth.UserSource
	profiles *users.Service
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a community service. profiles is used to embed organizer
// and member projections into full views.
func NewService(db *postgrest.Client, sessions auth.UserSource, profiles *users.Service, log zerolog.Logger) *Service {
	return &Service{db: db, sessions: sessions, profiles: profiles, log: log, now: time.Now}
}

// Fetch lists communities. By default only active communities are returned,
// newest first; IncludeDeleted drops the activity filter.
func (s *Service) Fetch(ctx context.Context, opts FetchOptions) ([]Community, error) {
	s.log.Debug().Msg("fetching communities")

	q := s.db.From(communitiesTable).Select()
	if !opts.IncludeDeleted {
		q = q.Eq("is_active", true)
	}
	if opts.OrganizerID != "" {
		q = q.Eq("organizer_id", opts.OrganizerID)
	}
	if opts.ParentID != "" {
		q = q.Eq("parent_id", opts.ParentID)
	} else if opts.RootsOnly {
		q = q.IsNull("parent_id")
	}
	q = q.Order("created_at", true)

	var rows []communityRow
	if err := q.Do(ctx, &rows); err != nil {
		s.log.Error().Err(err).Msg("fetch communities failed")
		return nil, err
	}
	return communitiesFromRows(rows), nil
}

// FetchInfos lists lightweight community projections with the same filters.
func (s *Service) FetchInfos(ctx context.Context, opts FetchOptions) ([]CommunityInfo, error) {
	q := s.db.From(communitiesTable).Select(
		"id", "name", "organizer_id", "parent_id", "member_count",
	)
	if !opts.IncludeDeleted {
		q = q.Eq("is_active", true)
	}
	q = q.Order("created_at", true)

	var rows []communityRow
	if err := q.Do(ctx, &rows); err != nil {
		s.log.Error().Err(err).Msg("fetch community infos failed")
		return nil, err
	}

	out := make([]CommunityInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, infoFromRow(row))
	}
	return out, nil
}

// FetchByID returns a full community projection with the organizer embedded,
// or (nil, nil) when the community does not exist.
func (s *Service) FetchByID(ctx context.Context, id string) (*Community, error) {
	s.log.Debug().Str("community_id", id).Msg("fetching community")

	row, err := s.fetchRow(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	community := communityFromRow(*row)

	infos, err := s.profiles.FetchInfos(ctx, []string{community.OrganizerID})
	if err != nil {
		return nil, err
	}
	if info, ok := infos[community.OrganizerID]; ok {
		if err := community.AttachOrganizer(info); err != nil {
			return nil, err
		}
	}
	return &community, nil
}

// Create inserts a new community with the caller as organizer, plus the
// organizer's membership row.
func (s *Service) Create(ctx context.Context, data CreateCommunityData) (*Community, error) {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := s.now().UTC()

	hierarchyPath := id
	if data.ParentID != nil {
		parent, err := s.fetchRow(ctx, *data.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, postgrest.NewNotFoundError("community", *data.ParentID)
		}
		hierarchyPath = parent.HierarchyPath + "." + id
	}

	var rows []communityRow
	insert := insertRowFromCreate(id, data, caller.ID, hierarchyPath, now)
	if err := s.db.From(communitiesTable).Insert(insert).Do(ctx, &rows); err != nil {
		s.log.Error().Err(err).Msg("create community failed")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("create community returned no row")
	}

	membership := membershipRow{
		ID:          uuid.NewString(),
		CommunityID: id,
		UserID:      caller.ID,
		Role:        RoleOrganizer,
		JoinedAt:    now,
	}
	if err := s.db.From(membersTable).Insert(membership).Do(ctx, nil); err != nil {
		s.log.Error().Err(err).Str("community_id", id).Msg("organizer membership insert failed")
		return nil, err
	}

	s.log.Info().Str("community_id", id).Msg("community created")
	community := communityFromRow(rows[0])
	return &community, nil
}

// Update applies a partial update. Only the organizer may update.
func (s *Service) Update(ctx context.Context, id string, patch UpdateCommunityData) (*Community, error) {
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
		return nil, postgrest.NewNotFoundError("community", id)
	}
	if row.OrganizerID != caller.ID {
		s.log.Warn().Str("community_id", id).Str("caller_id", caller.ID).Msg("community update denied")
		return nil, ErrNotOrganizer
	}

	var rows []communityRow
	err = s.db.From(communitiesTable).Update(updateRowFromPatch(patch, s.now().UTC())).Eq("id", id).Do(ctx, &rows)
	if err != nil {
		s.log.Error().Err(err).Str("community_id", id).Msg("community update failed")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, postgrest.NewNotFoundError("community", id)
	}

	s.log.Info().Str("community_id", id).Msg("community updated")
	community := communityFromRow(rows[0])
	return &community, nil
}

// Delete soft-deletes a community. Only the organizer may delete.
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
		return postgrest.NewNotFoundError("community", id)
	}
	if row.OrganizerID != caller.ID {
		s.log.Warn().Str("community_id", id).Str("caller_id", caller.ID).Msg("community delete denied")
		return ErrNotOrganizer
	}

	err = s.db.From(communitiesTable).Update(softDeleteRow(caller.ID, s.now().UTC())).Eq("id", id).Do(ctx, nil)
	if err != nil {
		s.log.Error().Err(err).Str("community_id", id).Msg("community delete failed")
		return err
	}

	s.log.Info().Str("community_id", id).Msg("community soft-deleted")
	return nil
}

// Join adds the caller to a community. Memberships are unique per
// (user, community); a second join is rejected.
func (s *Service) Join(ctx context.Context, communityID string) (*Membership, error) {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}

	row, err := s.fetchRow(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if row == nil || !row.IsActive {
		return nil, postgrest.NewNotFoundError("community", communityID)
	}

	existing, err := s.fetchMembershipRow(ctx, communityID, caller.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyMember
	}

	insert := membershipRow{
		ID:          uuid.NewString(),
		CommunityID: communityID,
		UserID:      caller.ID,
		Role:        RoleMember,
		JoinedAt:    s.now().UTC(),
	}

	var rows []membershipRow
	if err := s.db.From(membersTable).Insert(insert).Do(ctx, &rows); err != nil {
		s.log.Error().Err(err).Str("community_id", communityID).Msg("join community failed")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("join community returned no row")
	}

	s.log.Info().Str("community_id", communityID).Str("user_id", caller.ID).Msg("joined community")
	membership := membershipFromRow(rows[0])
	return &membership, nil
}

// Leave removes the caller's membership. The organizer cannot leave their own
// community; they must delete it or hand it over.
func (s *Service) Leave(ctx context.Context, communityID string) (*Membership, error) {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}

	row, err := s.fetchRow(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if row != nil && row.OrganizerID == caller.ID {
		return nil, ErrOrganizerCannotLeave
	}

	membership, err := s.fetchMembershipRow(ctx, communityID, caller.ID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, ErrNotMember
	}

	err = s.db.From(membersTable).Delete().Eq("id", membership.ID).Do(ctx, nil)
	if err != nil {
		s.log.Error().Err(err).Str("community_id", communityID).Msg("leave community failed")
		return nil, err
	}

	s.log.Info().Str("community_id", communityID).Str("user_id", caller.ID).Msg("left community")
	left := membershipFromRow(*membership)
	return &left, nil
}

// FetchMembers lists a community's memberships with member profiles embedded.
func (s *Service) FetchMembers(ctx context.Context, communityID string) ([]Membership, error) {
	var rows []membershipRow
	err := s.db.From(membersTable).Select().
		Eq("community_id", communityID).
		Order("joined_at", false).
		Do(ctx, &rows)
	if err != nil {
		s.log.Error().Err(err).Str("community_id", communityID).Msg("fetch members failed")
		return nil, err
	}

	memberships := membershipsFromRows(rows)

	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.UserID)
	}
	infos, err := s.profiles.FetchInfos(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range memberships {
		if info, ok := infos[memberships[i].UserID]; ok {
			if err := memberships[i].AttachMember(info); err != nil {
				return nil, err
			}
		}
	}
	return memberships, nil
}

// FetchUserMemberships lists the memberships of one user.
func (s *Service) FetchUserMemberships(ctx context.Context, userID string) ([]Membership, error) {
	var rows []membershipRow
	err := s.db.From(membersTable).Select().
		Eq("user_id", userID).
		Order("joined_at", true).
		Do(ctx, &rows)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("fetch user memberships failed")
		return nil, err
	}
	return membershipsFromRows(rows), nil
}

// fetchRow loads a community row by id, nil when absent.
func (s *Service) fetchRow(ctx context.Context, id string) (*communityRow, error) {
	var rows []communityRow
	if err := s.db.From(communitiesTable).Select().Eq("id", id).Limit(1).Do(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// fetchMembershipRow loads the (community, user) membership, nil when absent.
func (s *Service) fetchMembershipRow(ctx context.Context, communityID, userID string) (*membershipRow, error) {
	var rows []membershipRow
	err := s.db.From(membersTable).Select().
		Eq("community_id", communityID).
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
