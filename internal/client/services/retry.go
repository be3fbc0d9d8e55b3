package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/writedesk/internal/client/client"
)

// WithAuthRetry runs op with the current access token. If the server rejects
// the token with a 401, the session is refreshed and op is replayed exactly
// once. A failed refresh or a second 401 drops the session and yields
// client.ErrSessionExpired. Other errors, 403 included, are returned untouched.
func WithAuthRetry[T any](ctx context.Context, sm *SessionManager, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	res, err := op(client.WithAccessToken(ctx, sm.Token()))
	if !errors.Is(err, client.ErrUnauthorized) {
		return res, err
	}

	sm.log.Debug(ctx, "request unauthorized, refreshing session")
	if !sm.RefreshSilently(ctx) {
		sm.expire(ctx)
		return zero, client.ErrSessionExpired
	}

	res, err = op(client.WithAccessToken(ctx, sm.Token()))
	if errors.Is(err, client.ErrUnauthorized) {
		sm.log.Warn(ctx, "request rejected after refresh, dropping session")
		sm.expire(ctx)
		return zero, client.ErrSessionExpired
	}
	return res, err
}
