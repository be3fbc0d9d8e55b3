package client

import (
	"context"
	"io"

	"github.com/dmitrijs2005/writedesk/internal/client/models"
)

// Client is the transport contract of the WriteDesk API.
//
// Authenticated calls take the bearer token from the context (see
// WithAccessToken); the Client itself holds no session state.
type Client interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error)
	VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (*models.LoginResult, error)
	Verify2FA(ctx context.Context, req models.Verify2FARequest) (*models.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.Tokens, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.Profile, error)
	UpdateProfile(ctx context.Context, upd models.ProfileUpdate) error

	ListProjects(ctx context.Context) ([]models.Project, error)
	GetProject(ctx context.Context, id string) (*models.Project, error)
	CreateProject(ctx context.Context, draft models.ProjectDraft) (*models.Project, error)
	UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (*models.Project, error)
	DeleteProject(ctx context.Context, id string) error
	PermanentlyDeleteProject(ctx context.Context, id string) error
	SearchProjects(ctx context.Context, req models.SearchRequest) ([]models.SearchResult, error)
	TrashedProjects(ctx context.Context, page, limit int) ([]models.Project, error)
	RestoreProject(ctx context.Context, id string) error
	ExportProject(ctx context.Context, id, format string, w io.Writer) (int64, error)
}

type accessTokenKey struct{}

// WithAccessToken returns a context whose outgoing requests carry token as
// the bearer credential. An empty token removes it.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFromContext returns the token set by WithAccessToken.
func AccessTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}
