package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/writedesk/internal/client/client"
	"github.com/dmitrijs2005/writedesk/internal/client/config"
	"github.com/dmitrijs2005/writedesk/internal/client/events"
	"github.com/dmitrijs2005/writedesk/internal/client/metrics"
	"github.com/dmitrijs2005/writedesk/internal/client/models"
	"github.com/dmitrijs2005/writedesk/internal/client/services"
	"github.com/dmitrijs2005/writedesk/internal/logging"
)

// sessionService is the part of services.SessionManager the CLI drives.
type sessionService interface {
	Initialize(ctx context.Context) error
	Login(ctx context.Context, email, password string, rememberMe bool) (*models.LoginResult, error)
	VerifyOTP(ctx context.Context, email, otp string) (*models.LoginResult, error)
	Verify2FA(ctx context.Context, email, code string) (*models.LoginResult, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*models.Profile, error)
	State() models.SessionState
	User() (models.User, bool)
	CurrentProfile() (models.Profile, bool)
	Dispose()
}

// workspaceService is the part of services.WorkspaceCache the CLI drives.
type workspaceService interface {
	FetchAll(ctx context.Context) ([]models.Project, error)
	Create(ctx context.Context, draft models.ProjectDraft) (*models.Project, error)
	Update(ctx context.Context, id string, patch models.ProjectPatch) (*models.Project, error)
	Remove(ctx context.Context, id string) error
	PermanentlyRemove(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
	FetchTrash(ctx context.Context) ([]models.Project, error)
	RestoreFromTrash(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Project, error)
	Export(ctx context.Context, id, format string, w io.Writer) (int64, error)
	Visible() ([]models.SearchResult, bool)
	Reset()
}

var (
	_ sessionService   = (*services.SessionManager)(nil)
	_ workspaceService = (*services.WorkspaceCache)(nil)
)

// App is the interactive client: it owns the services for one CLI run.
type App struct {
	config  *config.Config
	session sessionService
	cache   workspaceService
	bus     *events.Bus
	log     logging.Logger
	reader  *bufio.Reader
	out     io.Writer
	closers []func() error

	// pendingEmail remembers the address of a login that still needs an
	// OTP or 2FA code.
	pendingEmail string
}

// NewApp wires the local store, the API client and the services.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger, m *metrics.Metrics) (*App, error) {
	app := &App{
		config: c,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		bus:    events.NewBus(events.WithMetrics(m)),
	}

	store, err := app.openTokenStore(ctx)
	if err != nil {
		return nil, err
	}

	api, err := client.NewHTTPClient(c.APIBaseURL,
		client.WithTimeout(c.RequestTimeout),
		client.WithLogger(log.With("component", "api")),
		client.WithMetrics(m),
	)
	if err != nil {
		app.Close()
		return nil, err
	}

	sm := services.NewSessionManager(api, store,
		services.WithSessionLogger(log.With("component", "session")),
		services.WithSessionMetrics(m),
		services.WithSessionEvents(app.bus),
		services.WithRefreshTimeout(c.RequestTimeout),
	)
	app.session = sm
	app.cache = services.NewWorkspaceCache(api, sm,
		services.WithCacheLogger(log.With("component", "workspace")),
		services.WithCacheEvents(app.bus),
		services.WithSearchRate(c.SearchRateLimit, c.SearchBurst),
	)
	return app, nil
}

func (a *App) openTokenStore(ctx context.Context) (services.TokenStore, error) {
	if a.config.Ephemeral {
		return services.NewMemoryTokenStore(), nil
	}

	db, err := client.InitDatabase(ctx, a.config.DBPath)
	if err != nil {
		a.log.Error(ctx, "error initializing database", "path", a.config.DBPath, "error", err)
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	return services.NewSQLiteTokenStore(db), nil
}

// Run restores the session, starts the event watcher and blocks in the REPL
// until the user exits or stdin is closed.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.Close()

	sub, unsubscribe := a.bus.Subscribe()
	defer unsubscribe()
	go a.watchEvents(ctx, sub)

	fmt.Fprintln(a.out, "Welcome to WriteDesk CLI (type 'help' for commands)")

	if err := a.session.Initialize(ctx); err != nil {
		a.log.Info(ctx, "stored session not restored", "error", err)
	}
	if u, ok := a.session.User(); ok {
		fmt.Fprintf(a.out, "Signed in as %s\n", u.Email)
	} else {
		fmt.Fprintln(a.out, "Not signed in. Use 'login' to start.")
	}

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

// Close stops the session timer and releases the local store.
func (a *App) Close() {
	if a.session != nil {
		a.session.Dispose()
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.log.Warn(context.Background(), "close", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) isLoggedIn() bool {
	return a.session.State() == models.StateAuthenticated
}

func (a *App) getStatus() string {
	if u, ok := a.session.User(); ok {
		return fmt.Sprintf("(%s)", u.Email)
	}
	return ""
}

// watchEvents reacts to notifications from the services until ctx is done
// or the subscription is closed.
func (a *App) watchEvents(ctx context.Context, sub <-chan events.Event) {
	for {
		select {
		case e, ok := <-sub:
			if !ok {
				return
			}
			a.handleEvent(ctx, e)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) handleEvent(ctx context.Context, e events.Event) {
	switch ev := e.(type) {
	case events.SessionExpired:
		a.cache.Reset()
		fmt.Fprintln(a.out, "\nSession expired, please log in again.")
	case events.CacheError:
		a.log.Debug(ctx, "cache error", "op", ev.Op, "message", ev.Message)
	case events.MutationSucceeded:
		a.log.Debug(ctx, "mutation succeeded", "op", ev.Op, "id", ev.ID)
	case events.SessionReady:
		a.log.Debug(ctx, "session ready", "authenticated", ev.Authenticated)
	}
}

// report prints err the way the user should see it.
func (a *App) report(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, client.ErrSessionExpired) {
		a.cache.Reset()
	}
	fmt.Fprintf(a.out, "Error: %s\n", client.UserMessage(err))
	return err
}
