package communities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/villagehq/go-community-client/pkg/testsupport"
	"github.com/villagehq/go-community-client/users"
)

func TestCommunityFromRow_Fixture(t *testing.T) {
	var row communityRow
	testsupport.LoadFixtureJSON(t, testsupport.FixturePath("community.json"), &row)

	community := communityFromRow(row)

	assert.Equal(t, "5f3c8a2e-9b1d-4f6a-8c3e-2d7b9a1e4c6f", community.ID)
	assert.Equal(t, "Urban Gardeners", community.Name)
	require.NotNil(t, community.Description)
	assert.Equal(t, "Rooftop and balcony growers", *community.Description)
	assert.Nil(t, community.ParentID, "null parent stays an explicit nil marker")
	assert.Equal(t, 42, community.MemberCount)
	assert.True(t, community.IsActive)
	assert.Nil(t, community.Organizer, "row transform never embeds objects")
}

func TestInsertRow_RoundTrip(t *testing.T) {
	desc := "all things sourdough"
	parent := "b8a7c6d5-0000-4000-8000-000000000002"
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	data := CreateCommunityData{Name: "Bakers", Description: &desc, ParentID: &parent}
	row := insertRowFromCreate("c-new", data, "u-org", parent+".c-new", now)
	community := communityFromRow(row)

	assert.Equal(t, "c-new", community.ID)
	assert.Equal(t, "Bakers", community.Name)
	assert.Equal(t, &desc, community.Description)
	assert.Equal(t, "u-org", community.OrganizerID)
	assert.Equal(t, &parent, community.ParentID)
	assert.Equal(t, parent+".c-new", community.HierarchyPath)
	assert.Equal(t, 1, community.MemberCount)
	assert.True(t, community.IsActive)
	assert.Equal(t, now, community.CreatedAt)
	assert.Equal(t, now, community.UpdatedAt)
}

func TestUpdateRowFromPatch_OnlySetFields(t *testing.T) {
	name := "Renamed"
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	row := updateRowFromPatch(UpdateCommunityData{Name: &name}, now)

	assert.Equal(t, "Renamed", row["name"])
	assert.Equal(t, now, row["updated_at"])
	assert.NotContains(t, row, "description")
}

func TestAttachOrganizer_RejectsMismatch(t *testing.T) {
	community := communityFromRow(activeCommunityRow("c-1", "u-org"))

	err := community.AttachOrganizer(users.UserInfo{ID: "u-impostor"})
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "organizer_id", mismatch.Field)
	assert.Nil(t, community.Organizer)

	require.NoError(t, community.AttachOrganizer(users.UserInfo{ID: "u-org", FirstName: "Ada"}))
	require.NotNil(t, community.Organizer)
	assert.Equal(t, "Ada", community.Organizer.FirstName)
}

func TestAttachMember_RejectsMismatch(t *testing.T) {
	membership := membershipFromRow(membershipRow{ID: "m-1", CommunityID: "c-1", UserID: "u-1"})

	var mismatch *MismatchError
	require.ErrorAs(t, membership.AttachMember(users.UserInfo{ID: "u-2"}), &mismatch)
	assert.Equal(t, "user_id", mismatch.Field)
}
