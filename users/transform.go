package users

import "time"

// userRow mirrors the profiles table columns.
type userRow struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName *string    `json:"first_name,omitempty"`
	LastName  *string    `json:"last_name,omitempty"`
	AvatarURL *string    `json:"avatar_url,omitempty"`
	Bio       *string    `json:"bio,omitempty"`
	Location  *string    `json:"location,omitempty"`
	IsActive  bool       `json:"is_active"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func userFromRow(row userRow) User {
	return User{
		ID:        row.ID,
		Email:     row.Email,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		AvatarURL: row.AvatarURL,
		Bio:       row.Bio,
		Location:  row.Location,
		IsActive:  row.IsActive,
		DeletedAt: row.DeletedAt,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func infoFromRow(row userRow) UserInfo {
	return userFromRow(row).Info()
}

func usersFromRows(rows []userRow) []User {
	out := make([]User, 0, len(rows))
	for _, row := range rows {
		out = append(out, userFromRow(row))
	}
	return out
}

// updateRowFromPatch renders only the set fields, so unset ones are left
// untouched by the partial update.
func updateRowFromPatch(patch UpdateProfileData, now time.Time) map[string]any {
	row := map[string]any{"updated_at": now}
	if patch.FirstName != nil {
		row["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		row["last_name"] = *patch.LastName
	}
	if patch.AvatarURL != nil {
		row["avatar_url"] = *patch.AvatarURL
	}
	if patch.Bio != nil {
		row["bio"] = *patch.Bio
	}
	if patch.Location != nil {
		row["location"] = *patch.Location
	}
	return row
}
