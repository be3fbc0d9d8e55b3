package models

import "encoding/json"

// User is the minimal identity derived from the profile.
type User struct {
	Email            string `json:"email"`
	UserID           string `json:"user_id"`
	Role             string `json:"role,omitempty"`
	TwoFactorEnabled bool   `json:"two_fa_enabled"`
}

// Profile holds the user-editable attributes returned by the profile endpoint.
type Profile struct {
	UserID           string          `json:"user_id"`
	Email            string          `json:"email"`
	Role             string          `json:"role,omitempty"`
	TwoFactorEnabled bool            `json:"two_fa_enabled"`
	FirstName        string          `json:"first_name,omitempty"`
	LastName         string          `json:"last_name,omitempty"`
	Bio              string          `json:"bio,omitempty"`
	AvatarURL        string          `json:"avatar_url,omitempty"`
	Institution      string          `json:"institution,omitempty"`
	Interests        []string        `json:"interests,omitempty"`
	SettingsMetadata json.RawMessage `json:"settings_metadata,omitempty"`
}

// Identity derives the User view of p.
func (p Profile) Identity() User {
	return User{
		Email:            p.Email,
		UserID:           p.UserID,
		Role:             p.Role,
		TwoFactorEnabled: p.TwoFactorEnabled,
	}
}

// DisplayName is "First Last" when known, otherwise the e-mail.
func (p Profile) DisplayName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.Email
	}
}

// ProfileUpdate is a partial profile update; nil fields are not sent.
type ProfileUpdate struct {
	FirstName        *string         `json:"first_name,omitempty"`
	LastName         *string         `json:"last_name,omitempty"`
	Bio              *string         `json:"bio,omitempty"`
	AvatarURL        *string         `json:"avatar_url,omitempty"`
	Institution      *string         `json:"institution,omitempty"`
	Interests        []string        `json:"interests,omitempty"`
	SettingsMetadata json.RawMessage `json:"settings_metadata,omitempty"`
}
