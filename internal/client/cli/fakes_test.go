package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/writedesk/internal/client/client"
	"github.com/dmitrijs2005/writedesk/internal/client/config"
	"github.com/dmitrijs2005/writedesk/internal/client/events"
	"github.com/dmitrijs2005/writedesk/internal/client/models"
	"github.com/dmitrijs2005/writedesk/internal/logging"
)

type fakeSession struct {
	state   models.SessionState
	user    *models.User
	profile *models.Profile

	loginRes  *models.LoginResult
	loginErr  error
	verifyErr error
	logoutErr error
	initErr   error

	lastEmail    string
	lastPassword string
	lastRemember bool
	lastCode     string
	calls        []string
	disposed     bool
}

func (f *fakeSession) authenticate(email string) {
	f.state = models.StateAuthenticated
	f.user = &models.User{Email: email}
	f.profile = &models.Profile{Email: email, FirstName: "Ada"}
}

func (f *fakeSession) Initialize(context.Context) error {
	f.calls = append(f.calls, "initialize")
	return f.initErr
}

func (f *fakeSession) Login(_ context.Context, email, password string, remember bool) (*models.LoginResult, error) {
	f.calls = append(f.calls, "login")
	f.lastEmail, f.lastPassword, f.lastRemember = email, password, remember
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	res := f.loginRes
	if res == nil {
		res = &models.LoginResult{}
	}
	if !res.Requires2FA {
		f.authenticate(email)
	}
	return res, nil
}

func (f *fakeSession) VerifyOTP(_ context.Context, email, otp string) (*models.LoginResult, error) {
	return f.verify("verify-otp", email, otp)
}

func (f *fakeSession) Verify2FA(_ context.Context, email, code string) (*models.LoginResult, error) {
	return f.verify("verify-2fa", email, code)
}

func (f *fakeSession) verify(name, email, code string) (*models.LoginResult, error) {
	f.calls = append(f.calls, name)
	f.lastEmail, f.lastCode = email, code
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	f.authenticate(email)
	return &models.LoginResult{}, nil
}

func (f *fakeSession) Logout(context.Context) error {
	f.calls = append(f.calls, "logout")
	f.state = models.StateUnauthenticated
	f.user, f.profile = nil, nil
	return f.logoutErr
}

func (f *fakeSession) Profile(context.Context) (*models.Profile, error) {
	f.calls = append(f.calls, "profile")
	if f.profile == nil {
		return nil, client.ErrSessionExpired
	}
	p := *f.profile
	return &p, nil
}

func (f *fakeSession) State() models.SessionState {
	if f.state == "" {
		return models.StateUnauthenticated
	}
	return f.state
}

func (f *fakeSession) User() (models.User, bool) {
	if f.user == nil {
		return models.User{}, false
	}
	return *f.user, true
}

func (f *fakeSession) CurrentProfile() (models.Profile, bool) {
	if f.profile == nil {
		return models.Profile{}, false
	}
	return *f.profile, true
}

func (f *fakeSession) Dispose() { f.disposed = true }

type fakeWorkspace struct {
	projects  []models.Project
	results   []models.SearchResult
	trashed   []models.Project
	searching bool

	err       error
	exportErr error
	exported  string

	lastDraft  models.ProjectDraft
	lastID     string
	lastPatch  models.ProjectPatch
	lastQuery  string
	lastFormat string
	calls      []string
	resets     int
}

func (f *fakeWorkspace) call(name, id string) error {
	f.calls = append(f.calls, name)
	f.lastID = id
	return f.err
}

func (f *fakeWorkspace) FetchAll(context.Context) ([]models.Project, error) {
	if err := f.call("fetch", ""); err != nil {
		return nil, err
	}
	return f.projects, nil
}

func (f *fakeWorkspace) Create(_ context.Context, d models.ProjectDraft) (*models.Project, error) {
	f.lastDraft = d
	if err := f.call("create", ""); err != nil {
		return nil, err
	}
	p := models.Project{ID: "p-new", Title: d.Title, Category: d.Category, AccessType: d.AccessType}
	f.projects = append(f.projects, p)
	return &p, nil
}

func (f *fakeWorkspace) Update(_ context.Context, id string, patch models.ProjectPatch) (*models.Project, error) {
	f.lastPatch = patch
	if err := f.call("update", id); err != nil {
		return nil, err
	}
	p := models.Project{ID: id}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	return &p, nil
}

func (f *fakeWorkspace) Remove(_ context.Context, id string) error { return f.call("remove", id) }

func (f *fakeWorkspace) PermanentlyRemove(_ context.Context, id string) error {
	return f.call("purge", id)
}

func (f *fakeWorkspace) Search(_ context.Context, query string, _ int) ([]models.SearchResult, error) {
	f.lastQuery = query
	if err := f.call("search", ""); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		f.searching = false
		return nil, nil
	}
	f.searching = true
	return f.results, nil
}

func (f *fakeWorkspace) FetchTrash(context.Context) ([]models.Project, error) {
	if err := f.call("trash", ""); err != nil {
		return nil, err
	}
	return f.trashed, nil
}

func (f *fakeWorkspace) RestoreFromTrash(_ context.Context, id string) error {
	return f.call("restore", id)
}

func (f *fakeWorkspace) Get(_ context.Context, id string) (*models.Project, error) {
	if err := f.call("get", id); err != nil {
		return nil, err
	}
	for _, p := range f.projects {
		if p.ID == id {
			return &p, nil
		}
	}
	return &models.Project{ID: id}, nil
}

func (f *fakeWorkspace) Export(_ context.Context, id, format string, w io.Writer) (int64, error) {
	f.lastFormat = format
	if err := f.call("export", id); err != nil {
		return 0, err
	}
	if f.exportErr != nil {
		return 0, f.exportErr
	}
	n, err := io.WriteString(w, f.exported)
	return int64(n), err
}

func (f *fakeWorkspace) Visible() ([]models.SearchResult, bool) {
	if f.searching {
		return f.results, true
	}
	out := make([]models.SearchResult, 0, len(f.projects))
	for _, p := range f.projects {
		out = append(out, models.SearchResult{ID: p.ID, Title: p.Title, Category: p.Category})
	}
	return out, false
}

func (f *fakeWorkspace) Reset() {
	f.resets++
	f.projects, f.results, f.trashed, f.searching = nil, nil, nil, false
}

// newTestApp builds an App over fakes with output captured in the returned
// buffer.
func newTestApp(t *testing.T) (*App, *fakeSession, *fakeWorkspace, *bytes.Buffer) {
	t.Helper()
	sess := &fakeSession{}
	ws := &fakeWorkspace{}
	var out bytes.Buffer
	app := &App{
		config:  &config.Config{},
		session: sess,
		cache:   ws,
		bus:     events.NewBus(),
		log:     logging.Nop(),
		reader:  bufio.NewReader(strings.NewReader("")),
		out:     &out,
	}
	return app, sess, ws, &out
}

// stubPrompts answers getSimpleText prompts in order and getPassword with pw.
// The recorded prompts are returned.
func stubPrompts(t *testing.T, pw string, answers ...string) *[]string {
	t.Helper()
	var prompts []string

	origText, origPw := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, prompt string, _ io.Writer) (string, error) {
		prompts = append(prompts, prompt)
		if len(answers) == 0 {
			return "", io.EOF
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
	getPassword = func(io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { getSimpleText, getPassword = origText, origPw })

	return &prompts
}
