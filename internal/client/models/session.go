package models

import "time"

// Tokens is the token pair issued by login, OTP/2FA verification and refresh.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Session is an adopted token pair together with the local time it was
// issued at.
type Session struct {
	Tokens
	IssuedAt time.Time
}

// ExpiresAt is the local instant the access token stops being valid, or the
// zero time when the lifetime is unknown (e.g. restored from storage).
func (s Session) ExpiresAt() time.Time {
	if s.ExpiresIn <= 0 {
		return time.Time{}
	}
	return s.IssuedAt.Add(time.Duration(s.ExpiresIn) * time.Second)
}

// SessionState is the externally visible authentication state.
type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateAuthenticated   SessionState = "authenticated"
)

// LoginRequest is the body of the login call.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// VerifyOTPRequest is the body of the OTP verification call.
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// Verify2FARequest is the body of the 2FA verification call.
type Verify2FARequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// LoginResult is returned by login and verification calls. When Requires2FA
// is set the token fields are empty and the caller must follow up with a 2FA
// verification.
type LoginResult struct {
	Tokens
	User        *User `json:"user,omitempty"`
	Requires2FA bool  `json:"requires_2fa,omitempty"`
}
