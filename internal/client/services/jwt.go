package services

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry reads the exp claim of an access token without verifying its
// signature. ok is false when the token cannot be decoded or has no exp.
func tokenExpiry(token string) (exp time.Time, ok bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// tokenExpired treats undecodable tokens as expired.
func tokenExpired(token string, now time.Time) bool {
	exp, ok := tokenExpiry(token)
	return !ok || !now.Before(exp)
}
