package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/writedesk/internal/client/client"
	"github.com/dmitrijs2005/writedesk/internal/client/events"
	"github.com/dmitrijs2005/writedesk/internal/client/metrics"
	"github.com/dmitrijs2005/writedesk/internal/client/models"
	"github.com/dmitrijs2005/writedesk/internal/logging"
	"golang.org/x/sync/singleflight"
)

const (
	// refreshLeadTime is how long before expiry a scheduled refresh should
	// fire at the latest.
	refreshLeadTime = 5 * time.Minute

	refreshKey = "refresh"
)

var errNoRefreshToken = errors.New("no refresh token stored")

// SessionAPI is the part of client.Client the session manager needs.
type SessionAPI interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error)
	VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (*models.LoginResult, error)
	Verify2FA(ctx context.Context, req models.Verify2FARequest) (*models.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.Tokens, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.Profile, error)
	UpdateProfile(ctx context.Context, upd models.ProfileUpdate) error
}

type stopper interface {
	Stop() bool
}

// SessionManager owns the token pair: it adopts tokens from login and
// refresh, persists them, keeps a refresh timer armed and lets concurrent
// callers share a single in-flight refresh.
//
// Build one per process with NewSessionManager and call Dispose when done.
type SessionManager struct {
	api            SessionAPI
	store          TokenStore
	log            logging.Logger
	metrics        *metrics.Metrics
	bus            *events.Bus
	now            func() time.Time
	afterFunc      func(d time.Duration, f func()) stopper
	refreshTimeout time.Duration

	group singleflight.Group

	mu       sync.RWMutex
	session  *models.Session
	user     *models.User
	profile  *models.Profile
	timer    stopper
	timerGen uint64
	disposed bool
	lastErr  string
}

type SessionOption func(*SessionManager)

func WithSessionLogger(l logging.Logger) SessionOption {
	return func(sm *SessionManager) {
		if l != nil {
			sm.log = l
		}
	}
}

func WithSessionMetrics(m *metrics.Metrics) SessionOption {
	return func(sm *SessionManager) { sm.metrics = m }
}

func WithSessionEvents(b *events.Bus) SessionOption {
	return func(sm *SessionManager) { sm.bus = b }
}

func WithClock(now func() time.Time) SessionOption {
	return func(sm *SessionManager) {
		if now != nil {
			sm.now = now
		}
	}
}

// WithRefreshTimeout bounds a silent refresh independently of the callers
// waiting on it.
func WithRefreshTimeout(d time.Duration) SessionOption {
	return func(sm *SessionManager) {
		if d > 0 {
			sm.refreshTimeout = d
		}
	}
}

func NewSessionManager(api SessionAPI, store TokenStore, opts ...SessionOption) *SessionManager {
	sm := &SessionManager{
		api:            api,
		store:          store,
		log:            logging.Nop(),
		now:            time.Now,
		refreshTimeout: client.DefaultRequestTimeout,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// Initialize restores a persisted session. A stored access token that is
// already expired is refreshed once before the profile is fetched. Any
// failure drops the session and its persisted tokens. SessionReady is
// published when the sequence is over, whatever the outcome.
func (sm *SessionManager) Initialize(ctx context.Context) error {
	defer func() {
		sm.bus.Publish(events.SessionReady{Authenticated: sm.State() == models.StateAuthenticated})
	}()

	access, refresh, err := sm.store.Load(ctx)
	if err != nil {
		sm.setLastErr(err)
		sm.clear(ctx)
		return fmt.Errorf("restore session: %w", err)
	}
	if access == "" || refresh == "" {
		sm.log.Debug(ctx, "no stored session")
		return nil
	}

	now := sm.now()
	if tokenExpired(access, now) {
		sm.log.Info(ctx, "stored access token expired, refreshing")
		if !sm.RefreshSilently(ctx) {
			sm.clear(ctx)
			return client.ErrSessionExpired
		}
	} else {
		sm.mu.Lock()
		sm.session = &models.Session{
			Tokens:   models.Tokens{AccessToken: access, RefreshToken: refresh},
			IssuedAt: now,
		}
		sm.mu.Unlock()

		if exp, ok := tokenExpiry(access); ok {
			sm.ScheduleRefresh(int64(exp.Sub(now) / time.Second))
		}
	}

	if _, err := sm.Profile(ctx); err != nil {
		sm.clear(ctx)
		return fmt.Errorf("restore session: %w", err)
	}

	sm.log.Info(ctx, "session restored")
	return nil
}

// ScheduleRefresh arms the one-shot refresh timer for a token living
// expiresIn seconds, replacing any armed timer, and returns the delay. A
// non-positive delay arms nothing.
func (sm *SessionManager) ScheduleRefresh(expiresIn int64) time.Duration {
	ms := expiresIn * 1000
	delayMs := min(ms-refreshLeadTime.Milliseconds(), int64(float64(ms)*0.8))
	delay := time.Duration(delayMs) * time.Millisecond

	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.stopTimerLocked()
	if delay <= 0 || sm.disposed {
		return delay
	}

	gen := sm.timerGen
	sm.timer = sm.afterFunc(delay, func() { sm.onTimer(gen) })
	return delay
}

// stopTimerLocked also invalidates a callback that has already fired but not
// yet run.
func (sm *SessionManager) stopTimerLocked() {
	if sm.timer != nil {
		sm.timer.Stop()
		sm.timer = nil
	}
	sm.timerGen++
}

func (sm *SessionManager) onTimer(gen uint64) {
	sm.mu.RLock()
	current := gen == sm.timerGen && !sm.disposed
	sm.mu.RUnlock()
	if !current {
		return
	}

	ctx := context.Background()
	if sm.RefreshSilently(ctx) {
		return
	}
	sm.log.Warn(ctx, "scheduled refresh failed, dropping session")
	sm.expire(ctx)
}

// RefreshSilently exchanges the stored refresh token for a new pair.
// Concurrent callers share one network call and its outcome. It never
// returns an error: false means the refresh failed and the caller decides
// what to do with the session.
func (sm *SessionManager) RefreshSilently(ctx context.Context) bool {
	v, _, shared := sm.group.Do(refreshKey, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sm.refreshTimeout)
		defer cancel()

		err := sm.refresh(ctx)
		if err != nil {
			sm.metrics.ObserveRefresh(metrics.RefreshFailure)
			sm.setLastErr(err)
			sm.log.Warn(ctx, "token refresh failed", "error", err)
			return false, err
		}
		sm.metrics.ObserveRefresh(metrics.RefreshSuccess)
		return true, nil
	})
	if shared {
		sm.metrics.ObserveRefresh(metrics.RefreshShared)
	}

	ok, _ := v.(bool)
	return ok
}

func (sm *SessionManager) refresh(ctx context.Context) error {
	_, refreshToken, err := sm.store.Load(ctx)
	if err != nil {
		return err
	}
	if refreshToken == "" {
		return errNoRefreshToken
	}

	tokens, err := sm.api.Refresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	return sm.adopt(ctx, *tokens)
}

// adopt is the only path that installs a token pair: persist, keep in memory,
// arm the refresh timer.
func (sm *SessionManager) adopt(ctx context.Context, tokens models.Tokens) error {
	if err := sm.store.Save(ctx, tokens.AccessToken, tokens.RefreshToken); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}

	sm.mu.Lock()
	sm.session = &models.Session{Tokens: tokens, IssuedAt: sm.now()}
	sm.lastErr = ""
	sm.mu.Unlock()

	sm.ScheduleRefresh(tokens.ExpiresIn)
	return nil
}

// Login authenticates with e-mail and password. When the account has 2FA
// enabled no session is adopted and the result has Requires2FA set; follow
// up with Verify2FA.
func (sm *SessionManager) Login(ctx context.Context, email, password string, rememberMe bool) (*models.LoginResult, error) {
	res, err := sm.api.Login(ctx, models.LoginRequest{Email: email, Password: password, RememberMe: rememberMe})
	if err != nil {
		sm.setLastErr(err)
		return nil, fmt.Errorf("login: %w", err)
	}
	if res.Requires2FA {
		sm.log.Info(ctx, "login requires 2fa", "email", email)
		return res, nil
	}
	if err := sm.establish(ctx, res); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return res, nil
}

func (sm *SessionManager) VerifyOTP(ctx context.Context, email, otp string) (*models.LoginResult, error) {
	res, err := sm.api.VerifyOTP(ctx, models.VerifyOTPRequest{Email: email, OTP: otp})
	if err != nil {
		sm.setLastErr(err)
		return nil, fmt.Errorf("verify otp: %w", err)
	}
	if err := sm.establish(ctx, res); err != nil {
		return nil, fmt.Errorf("verify otp: %w", err)
	}
	return res, nil
}

func (sm *SessionManager) Verify2FA(ctx context.Context, email, code string) (*models.LoginResult, error) {
	res, err := sm.api.Verify2FA(ctx, models.Verify2FARequest{Email: email, Code: code})
	if err != nil {
		sm.setLastErr(err)
		return nil, fmt.Errorf("verify 2fa: %w", err)
	}
	if err := sm.establish(ctx, res); err != nil {
		return nil, fmt.Errorf("verify 2fa: %w", err)
	}
	return res, nil
}

// establish adopts the tokens of a login-style result and loads the profile.
// A failed profile fetch does not undo the login.
func (sm *SessionManager) establish(ctx context.Context, res *models.LoginResult) error {
	if err := sm.adopt(ctx, res.Tokens); err != nil {
		sm.setLastErr(err)
		return err
	}

	if res.User != nil {
		u := *res.User
		sm.mu.Lock()
		sm.user = &u
		sm.mu.Unlock()
	}

	if _, err := sm.Profile(ctx); err != nil {
		sm.setLastErr(err)
		sm.log.Warn(ctx, "profile fetch after login failed", "error", err)
	}

	sm.log.Info(ctx, "session established", "user", sm.userEmail())
	return nil
}

// Profile fetches the profile and refreshes the cached identity.
func (sm *SessionManager) Profile(ctx context.Context) (*models.Profile, error) {
	p, err := WithAuthRetry(ctx, sm, sm.api.CurrentUser)
	if err != nil {
		return nil, err
	}

	u := p.Identity()
	cp := *p
	sm.mu.Lock()
	sm.profile = &cp
	sm.user = &u
	sm.mu.Unlock()
	return p, nil
}

// UpdateProfile sends upd and returns the re-fetched profile.
func (sm *SessionManager) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.Profile, error) {
	_, err := WithAuthRetry(ctx, sm, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, sm.api.UpdateProfile(ctx, upd)
	})
	if err != nil {
		sm.setLastErr(err)
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return sm.Profile(ctx)
}

// Logout ends the session. The server call is best effort; local state and
// persisted tokens are always cleared.
func (sm *SessionManager) Logout(ctx context.Context) error {
	sm.mu.Lock()
	sm.stopTimerLocked()
	token := sm.accessTokenLocked()
	sm.mu.Unlock()

	if token != "" {
		if err := sm.api.Logout(client.WithAccessToken(ctx, token)); err != nil {
			sm.log.Warn(ctx, "server logout failed", "error", err)
		}
	}

	sm.clear(ctx)
	sm.log.Info(ctx, "logged out")
	return nil
}

// expire drops the session without telling the server and announces it.
func (sm *SessionManager) expire(ctx context.Context) {
	wasAuthenticated := sm.State() == models.StateAuthenticated
	sm.clear(ctx)
	if wasAuthenticated {
		sm.bus.Publish(events.SessionExpired{})
	}
}

func (sm *SessionManager) clear(ctx context.Context) {
	if err := sm.store.Clear(ctx); err != nil {
		sm.log.Error(ctx, "clear stored tokens", "error", err)
	}

	sm.mu.Lock()
	sm.stopTimerLocked()
	sm.session = nil
	sm.user = nil
	sm.profile = nil
	sm.mu.Unlock()
}

// Dispose stops the refresh timer. The manager arms no timers afterwards.
func (sm *SessionManager) Dispose() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.stopTimerLocked()
	sm.disposed = true
}

func (sm *SessionManager) State() models.SessionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if sm.session == nil {
		return models.StateUnauthenticated
	}
	return models.StateAuthenticated
}

// Token is the current access token, or "" when unauthenticated.
func (sm *SessionManager) Token() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.accessTokenLocked()
}

func (sm *SessionManager) accessTokenLocked() string {
	if sm.session == nil {
		return ""
	}
	return sm.session.AccessToken
}

// Session returns a copy of the adopted session.
func (sm *SessionManager) Session() (models.Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if sm.session == nil {
		return models.Session{}, false
	}
	return *sm.session, true
}

func (sm *SessionManager) User() (models.User, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if sm.user == nil {
		return models.User{}, false
	}
	return *sm.user, true
}

func (sm *SessionManager) CurrentProfile() (models.Profile, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if sm.profile == nil {
		return models.Profile{}, false
	}
	return *sm.profile, true
}

// LastError is the message of the most recent session failure, for
// diagnostics only.
func (sm *SessionManager) LastError() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.lastErr
}

func (sm *SessionManager) setLastErr(err error) {
	sm.mu.Lock()
	sm.lastErr = client.UserMessage(err)
	sm.mu.Unlock()
}

func (sm *SessionManager) userEmail() string {
	u, _ := sm.User()
	return u.Email
}
