// Package communities provides community and membership domain objects and
// their service.
package communities

import (
	"time"

	"github.com/villagehq/go-community-client/users"
)

// Membership roles.
const (
	RoleOrganizer = "organizer"
	RoleMember    = "member"
)

// Community is the application-facing community representation. Organizer is
// only set on full projections fetched by id; list queries leave it nil and
// carry the organizer id alone.
type Community struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	OrganizerID string  `json:"organizerId"`
	// ParentID is nil for root communities. That nil is an explicit marker,
	// not a missing value.
	ParentID      *string         `json:"parentId"`
	HierarchyPath string          `json:"hierarchyPath,omitempty"`
	MemberCount   int             `json:"memberCount"`
	IsActive      bool            `json:"isActive"`
	DeletedAt     *time.Time      `json:"deletedAt,omitempty"`
	DeletedBy     *string         `json:"deletedBy,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Organizer     *users.UserInfo `json:"organizer,omitempty"`
}

// CommunityInfo is the lightweight projection for list views: ids only, no
// embedded objects.
type CommunityInfo struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	OrganizerID string  `json:"organizerId"`
	ParentID    *string `json:"parentId"`
	MemberCount int     `json:"memberCount"`
}

// Membership is the join between a user and a community, unique per pair.
type Membership struct {
	ID          string          `json:"id"`
	CommunityID string          `json:"communityId"`
	UserID      string          `json:"userId"`
	Role        string          `json:"role"`
	JoinedAt    time.Time       `json:"joinedAt"`
	Member      *users.UserInfo `json:"member,omitempty"`
}

// FetchOptions filters community list queries.
type FetchOptions struct {
	// OrganizerID restricts to communities organized by the given user.
	OrganizerID string
	// ParentID restricts to children of the given community.
	ParentID string
	// RootsOnly restricts to top-level communities (parent is null).
	RootsOnly bool
	// IncludeDeleted includes soft-deleted communities.
	IncludeDeleted bool
}
