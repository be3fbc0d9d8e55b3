package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/writedesk/internal/client/client"
	"github.com/dmitrijs2005/writedesk/internal/client/client/clienttest"
	"github.com/dmitrijs2005/writedesk/internal/client/events"
	"github.com/dmitrijs2005/writedesk/internal/client/models"
	"github.com/stretchr/testify/require"
)

// fakeAPI implements SessionAPI and WorkspaceAPI. Func fields override the
// default behaviour; every call records the bearer token it carried.
type fakeAPI struct {
	mu     sync.Mutex
	tokens []string
	seq    int

	LoginRet     *models.LoginResult
	LoginErr     error
	LastLogin    models.LoginRequest
	VerifyOTPRet *models.LoginResult
	VerifyOTPErr error
	Verify2FARet *models.LoginResult
	Verify2FAErr error

	RefreshFn        func(ctx context.Context, token string) (*models.Tokens, error)
	refreshCalls     atomic.Int32
	LastRefreshToken string

	LogoutErr   error
	logoutCalls int

	ProfileRet      *models.Profile
	ProfileErr      error
	profileCalls    int
	UpdateProfileFn func(upd models.ProfileUpdate) error

	ListFn     func(ctx context.Context) ([]models.Project, error)
	GetFn      func(id string) (*models.Project, error)
	CreateFn   func(draft models.ProjectDraft) (*models.Project, error)
	UpdateFn   func(id string, patch models.ProjectPatch) (*models.Project, error)
	DeleteErr  error
	PurgeErr   error
	SearchFn   func(req models.SearchRequest) ([]models.SearchResult, error)
	TrashRet   []models.Project
	TrashErr   error
	RestoreErr error
	ExportErr  error

	createCalls    int
	deleteCalls    int
	searchCalls    int
	LastTrashLimit int
}

func (f *fakeAPI) record(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, client.AccessTokenFromContext(ctx))
}

func (f *fakeAPI) seenTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

func (f *fakeAPI) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	f.mu.Lock()
	f.LastLogin = req
	f.mu.Unlock()
	return f.LoginRet, f.LoginErr
}

func (f *fakeAPI) VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (*models.LoginResult, error) {
	return f.VerifyOTPRet, f.VerifyOTPErr
}

func (f *fakeAPI) Verify2FA(ctx context.Context, req models.Verify2FARequest) (*models.LoginResult, error) {
	return f.Verify2FARet, f.Verify2FAErr
}

func (f *fakeAPI) Refresh(ctx context.Context, token string) (*models.Tokens, error) {
	f.refreshCalls.Add(1)
	f.mu.Lock()
	f.LastRefreshToken = token
	fn := f.RefreshFn
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, token)
	}
	t := newTokens(fmt.Sprintf("refreshed-%d", f.refreshCalls.Load()))
	return &t, nil
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.record(ctx)
	f.mu.Lock()
	f.logoutCalls++
	f.mu.Unlock()
	return f.LogoutErr
}

func (f *fakeAPI) CurrentUser(ctx context.Context) (*models.Profile, error) {
	f.record(ctx)
	f.mu.Lock()
	f.profileCalls++
	f.mu.Unlock()
	if f.ProfileErr != nil {
		return nil, f.ProfileErr
	}
	if f.ProfileRet != nil {
		p := *f.ProfileRet
		return &p, nil
	}
	return &models.Profile{UserID: "u1", Email: "writer@example.com", FirstName: "Ada"}, nil
}

func (f *fakeAPI) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) error {
	f.record(ctx)
	if f.UpdateProfileFn != nil {
		return f.UpdateProfileFn(upd)
	}
	return nil
}

func (f *fakeAPI) ListProjects(ctx context.Context) ([]models.Project, error) {
	f.record(ctx)
	if f.ListFn != nil {
		return f.ListFn(ctx)
	}
	return []models.Project{}, nil
}

func (f *fakeAPI) GetProject(ctx context.Context, id string) (*models.Project, error) {
	f.record(ctx)
	if f.GetFn != nil {
		return f.GetFn(id)
	}
	return nil, &client.APIError{Status: 404, Message: "Workspace not found"}
}

func (f *fakeAPI) CreateProject(ctx context.Context, draft models.ProjectDraft) (*models.Project, error) {
	f.record(ctx)
	f.mu.Lock()
	f.createCalls++
	f.seq++
	seq := f.seq
	f.mu.Unlock()

	if f.CreateFn != nil {
		return f.CreateFn(draft)
	}
	return &models.Project{
		ID:         fmt.Sprintf("srv-%d", seq),
		Title:      draft.Title,
		Category:   draft.Category,
		AccessType: draft.AccessType,
	}, nil
}

func (f *fakeAPI) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (*models.Project, error) {
	f.record(ctx)
	if f.UpdateFn != nil {
		return f.UpdateFn(id, patch)
	}
	return nil, &client.APIError{Status: 404, Message: "Workspace not found"}
}

func (f *fakeAPI) DeleteProject(ctx context.Context, id string) error {
	f.record(ctx)
	f.mu.Lock()
	f.deleteCalls++
	f.mu.Unlock()
	return f.DeleteErr
}

func (f *fakeAPI) PermanentlyDeleteProject(ctx context.Context, id string) error {
	f.record(ctx)
	return f.PurgeErr
}

func (f *fakeAPI) SearchProjects(ctx context.Context, req models.SearchRequest) ([]models.SearchResult, error) {
	f.record(ctx)
	f.mu.Lock()
	f.searchCalls++
	f.mu.Unlock()
	if f.SearchFn != nil {
		return f.SearchFn(req)
	}
	return []models.SearchResult{}, nil
}

func (f *fakeAPI) TrashedProjects(ctx context.Context, page, limit int) ([]models.Project, error) {
	f.record(ctx)
	f.LastTrashLimit = limit
	return f.TrashRet, f.TrashErr
}

func (f *fakeAPI) RestoreProject(ctx context.Context, id string) error {
	f.record(ctx)
	return f.RestoreErr
}

func (f *fakeAPI) ExportProject(ctx context.Context, id, format string, w io.Writer) (int64, error) {
	f.record(ctx)
	if f.ExportErr != nil {
		return 0, f.ExportErr
	}
	n, err := io.WriteString(w, format+":"+id)
	return int64(n), err
}

// fakeTimer stands in for *time.Timer; tests fire it by calling f.
type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeTimers struct {
	mu    sync.Mutex
	armed []*fakeTimer
}

func (ft *fakeTimers) afterFunc(d time.Duration, f func()) stopper {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	ft.armed = append(ft.armed, t)
	return t
}

func (ft *fakeTimers) last() *fakeTimer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if len(ft.armed) == 0 {
		return nil
	}
	return ft.armed[len(ft.armed)-1]
}

func (ft *fakeTimers) count() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return len(ft.armed)
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTokens(suffix string) models.Tokens {
	return models.Tokens{
		AccessToken:  clienttest.MintAccessToken(testNow.Add(time.Hour)),
		RefreshToken: "refresh-" + suffix,
		TokenType:    "bearer",
		ExpiresIn:    3600,
	}
}

type sessionFixture struct {
	api    *fakeAPI
	store  *MemoryTokenStore
	timers *fakeTimers
	bus    *events.Bus
	sm     *SessionManager
}

func newSessionFixture(t *testing.T, api *fakeAPI) *sessionFixture {
	t.Helper()
	if api == nil {
		api = &fakeAPI{}
	}

	f := &sessionFixture{
		api:    api,
		store:  NewMemoryTokenStore(),
		timers: &fakeTimers{},
		bus:    events.NewBus(events.WithBuffer(64)),
	}
	f.sm = NewSessionManager(api, f.store,
		WithSessionEvents(f.bus),
		WithClock(func() time.Time { return testNow }),
	)
	f.sm.afterFunc = f.timers.afterFunc
	t.Cleanup(f.sm.Dispose)
	return f
}

// login adopts a session as if the user had just logged in.
func (f *sessionFixture) login(t *testing.T) models.Tokens {
	t.Helper()
	tokens := newTokens("login")
	require.NoError(t, f.sm.adopt(context.Background(), tokens))
	return tokens
}

// drain returns the events published so far.
func drain(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}
