package communities

import (
	"fmt"
	"time"

	"github.com/villagehq/go-community-client/users"
)

// communityRow mirrors the communities table columns.
type communityRow struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   *string    `json:"description,omitempty"`
	OrganizerID   string     `json:"organizer_id"`
	ParentID      *string    `json:"parent_id"`
	HierarchyPath string     `json:"hierarchy_path,omitempty"`
	MemberCount   int        `json:"member_count"`
	IsActive      bool       `json:"is_active"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	DeletedBy     *string    `json:"deleted_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// membershipRow mirrors the community_members table columns.
type membershipRow struct {
	ID          string    `json:"id"`
	CommunityID string    `json:"community_id"`
	UserID      string    `json:"user_id"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

// MismatchError reports a foreign key that does not match the object being
// attached to it. It is the typed replacement for transformer throw-strings.
type MismatchError struct {
	Entity string
	Field  string
	Want   string
	Got    string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s.%s mismatch: row has %s, attached object has %s", e.Entity, e.Field, e.Want, e.Got)
}

func communityFromRow(row communityRow) Community {
	return Community{
		ID:            row.ID,
		Name:          row.Name,
		Description:   row.Description,
		OrganizerID:   row.OrganizerID,
		ParentID:      row.ParentID,
		HierarchyPath: row.HierarchyPath,
		MemberCount:   row.MemberCount,
		IsActive:      row.IsActive,
		DeletedAt:     row.DeletedAt,
		DeletedBy:     row.DeletedBy,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func infoFromRow(row communityRow) CommunityInfo {
	return CommunityInfo{
		ID:          row.ID,
		Name:        row.Name,
		OrganizerID: row.OrganizerID,
		ParentID:    row.ParentID,
		MemberCount: row.MemberCount,
	}
}

func communitiesFromRows(rows []communityRow) []Community {
	out := make([]Community, 0, len(rows))
	for _, row := range rows {
		out = append(out, communityFromRow(row))
	}
	return out
}

func membershipFromRow(row membershipRow) Membership {
	return Membership{
		ID:          row.ID,
		CommunityID: row.CommunityID,
		UserID:      row.UserID,
		Role:        row.Role,
		JoinedAt:    row.JoinedAt,
	}
}

func membershipsFromRows(rows []membershipRow) []Membership {
	out := make([]Membership, 0, len(rows))
	for _, row := range rows {
		out = append(out, membershipFromRow(row))
	}
	return out
}

// AttachOrganizer embeds the organizer into a full community projection,
// rejecting an organizer whose id does not match the row's organizer_id.
func (c *Community) AttachOrganizer(info users.UserInfo) error {
	if info.ID != c.OrganizerID {
		return &MismatchError{Entity: "community", Field: "organizer_id", Want: c.OrganizerID, Got: info.ID}
	}
	c.Organizer = &info
	return nil
}

// AttachMember embeds a member profile into a membership row.
func (m *Membership) AttachMember(info users.UserInfo) error {
	if info.ID != m.UserID {
		return &MismatchError{Entity: "membership", Field: "user_id", Want: m.UserID, Got: info.ID}
	}
	m.Member = &info
	return nil
}

// insertRowFromCreate renders a new community row. Created and updated stamps
// match so round-trips stay stable.
func insertRowFromCreate(id string, data CreateCommunityData, organizerID, hierarchyPath string, now time.Time) communityRow {
	return communityRow{
		ID:            id,
		Name:          data.Name,
		Description:   data.Description,
		OrganizerID:   organizerID,
		ParentID:      data.ParentID,
		HierarchyPath: hierarchyPath,
		MemberCount:   1,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// updateRowFromPatch renders only the set fields of a partial update.
func updateRowFromPatch(patch UpdateCommunityData, now time.Time) map[string]any {
	row := map[string]any{"updated_at": now}
	if patch.Name != nil {
		row["name"] = *patch.Name
	}
	if patch.Description != nil {
		row["description"] = *patch.Description
	}
	return row
}

// softDeleteRow renders the soft-delete flags; rows are never hard-deleted.
func softDeleteRow(deletedBy string, now time.Time) map[string]any {
	return map[string]any{
		"is_active":  false,
		"deleted_at": now,
		"deleted_by": deletedBy,
		"updated_at": now,
	}
}
