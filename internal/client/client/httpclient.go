package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/writedesk/internal/client/metrics"
	"github.com/dmitrijs2005/writedesk/internal/client/models"
	"github.com/dmitrijs2005/writedesk/internal/common"
	"github.com/dmitrijs2005/writedesk/internal/logging"
	"github.com/google/uuid"
)

const (
	DefaultRequestTimeout = 30 * time.Second

	// maxBodySize bounds JSON responses; exports are streamed and not limited.
	maxBodySize = 16 << 20
)

// HTTPClient implements Client over JSON/HTTP.
type HTTPClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	log        logging.Logger
	metrics    *metrics.Metrics
	newID      func() string
}

type Option func(*HTTPClient)

// WithTimeout bounds every JSON request including its body, and every export
// until its response headers arrive.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client. Set no Timeout on it:
// that would cut long exports short.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) {
		if l != nil {
			c.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *HTTPClient) { c.metrics = m }
}

// NewHTTPClient validates baseURL and builds a client. A base URL without a
// scheme gets "http://"; trailing slashes are dropped.
func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	c := &HTTPClient{
		baseURL:    normalized,
		timeout:    DefaultRequestTimeout,
		httpClient: &http.Client{},
		log:        logging.Nop(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func normalizeBaseURL(raw string) (string, error) {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	if u == "" {
		return "", errors.New("api base url is empty")
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "http://" + u
	}
	return u, nil
}

// BaseURL returns the normalized API root.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// do sends one request and returns the status code and body. Transport
// failures are mapped to ErrUnavailable; a cancelled caller context is
// returned as is.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, in any) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.send(ctx, op, method, path, in)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, c.transportError(ctx, err)
	}
	return resp.StatusCode, body, nil
}

func (c *HTTPClient) send(ctx context.Context, op, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	requestID := c.newID()
	req.Header.Set(common.RequestIDHeaderName, requestID)
	if bearer := common.BearerValue(AccessTokenFromContext(ctx)); bearer != "" {
		req.Header.Set(common.AuthorizationHeaderName, bearer)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(op, 0, time.Since(start))
		c.log.Warn(ctx, "api request failed", "op", op, "request_id", requestID, "error", err)
		return nil, c.transportError(ctx, err)
	}

	c.metrics.ObserveRequest(op, resp.StatusCode, time.Since(start))
	c.log.Debug(ctx, "api request", "op", op, "status", resp.StatusCode,
		"request_id", requestID, "duration", time.Since(start))
	return resp, nil
}

func (c *HTTPClient) transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// call performs a JSON round trip and decodes the envelope payload into T.
func call[T any](ctx context.Context, c *HTTPClient, op, method, path string, in any) (T, error) {
	status, body, err := c.do(ctx, op, method, path, in)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeResponse[T](status, body)
}

func (c *HTTPClient) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	return c.loginCall(ctx, "auth.login", pathLogin, req)
}

func (c *HTTPClient) VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (*models.LoginResult, error) {
	return c.loginCall(ctx, "auth.verify_otp", pathVerifyOTP, req)
}

func (c *HTTPClient) Verify2FA(ctx context.Context, req models.Verify2FARequest) (*models.LoginResult, error) {
	return c.loginCall(ctx, "auth.verify_2fa", pathVerify2FA, req)
}

func (c *HTTPClient) loginCall(ctx context.Context, op, path string, req any) (*models.LoginResult, error) {
	res, err := call[*models.LoginResult](ctx, c, op, http.MethodPost, path, req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: %s: empty response", ErrUnavailable, op)
	}
	if !res.Requires2FA && (res.AccessToken == "" || res.RefreshToken == "") {
		return nil, fmt.Errorf("%w: %s: response without tokens", ErrUnavailable, op)
	}
	return res, nil
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*models.Tokens, error) {
	in := map[string]string{"refresh_token": refreshToken}
	tokens, err := call[*models.Tokens](ctx, c, "auth.refresh", http.MethodPost, pathRefresh, in)
	if err != nil {
		return nil, err
	}
	if tokens == nil || tokens.AccessToken == "" {
		return nil, fmt.Errorf("%w: auth.refresh: response without tokens", ErrUnavailable)
	}
	return tokens, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	_, err := call[json.RawMessage](ctx, c, "auth.logout", http.MethodPost, pathLogout, nil)
	return err
}

func (c *HTTPClient) CurrentUser(ctx context.Context) (*models.Profile, error) {
	p, err := call[profilePayload](ctx, c, "users.profile", http.MethodGet, pathProfile, nil)
	if err != nil {
		return nil, err
	}
	if p.Profile == nil {
		return nil, &APIError{Status: http.StatusOK, Message: "profile missing from response"}
	}
	return p.Profile, nil
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) error {
	_, err := call[json.RawMessage](ctx, c, "users.update_profile", http.MethodPut, pathProfile, upd)
	return err
}

func (c *HTTPClient) ListProjects(ctx context.Context) ([]models.Project, error) {
	l, err := call[projectList](ctx, c, "projects.list", http.MethodGet, pathWorkspaces, nil)
	if err != nil {
		return nil, err
	}
	return l.items(), nil
}

func (c *HTTPClient) GetProject(ctx context.Context, id string) (*models.Project, error) {
	return c.projectCall(ctx, "projects.get", http.MethodGet, projectPath(id), nil)
}

func (c *HTTPClient) CreateProject(ctx context.Context, draft models.ProjectDraft) (*models.Project, error) {
	return c.projectCall(ctx, "projects.create", http.MethodPost, pathWorkspaces, draft)
}

func (c *HTTPClient) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (*models.Project, error) {
	return c.projectCall(ctx, "projects.update", http.MethodPut, projectPath(id), patch)
}

func (c *HTTPClient) projectCall(ctx context.Context, op, method, path string, in any) (*models.Project, error) {
	p, err := call[*projectPayload](ctx, c, op, method, path, in)
	if err != nil {
		return nil, err
	}
	if p == nil || p.ID == "" {
		return nil, fmt.Errorf("%w: %s: response without project", ErrUnavailable, op)
	}
	return &p.Project, nil
}

func (c *HTTPClient) DeleteProject(ctx context.Context, id string) error {
	_, err := call[json.RawMessage](ctx, c, "projects.delete", http.MethodDelete, projectPath(id), nil)
	return err
}

func (c *HTTPClient) PermanentlyDeleteProject(ctx context.Context, id string) error {
	_, err := call[json.RawMessage](ctx, c, "projects.purge", http.MethodDelete, permanentDeletePath(id), nil)
	return err
}

func (c *HTTPClient) SearchProjects(ctx context.Context, req models.SearchRequest) ([]models.SearchResult, error) {
	l, err := call[searchList](ctx, c, "projects.search", http.MethodPost, pathSearch, req)
	if err != nil {
		return nil, err
	}
	return l.items(), nil
}

func (c *HTTPClient) TrashedProjects(ctx context.Context, page, limit int) ([]models.Project, error) {
	l, err := call[projectList](ctx, c, "projects.trash", http.MethodGet, trashPath(page, limit), nil)
	if err != nil {
		return nil, err
	}
	return l.items(), nil
}

func (c *HTTPClient) RestoreProject(ctx context.Context, id string) error {
	_, err := call[json.RawMessage](ctx, c, "projects.restore", http.MethodPost, restorePath(id), nil)
	return err
}

// ExportProject streams the exported document into w and returns the number
// of bytes written. The request timeout applies to the response headers only.
func (c *HTTPClient) ExportProject(ctx context.Context, id, format string, w io.Writer) (int64, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	headerTimer := time.AfterFunc(c.timeout, cancel)

	resp, err := c.send(reqCtx, "projects.export", http.MethodGet, exportPath(id, format), nil)
	timedOut := !headerTimer.Stop()
	if err != nil {
		if timedOut && ctx.Err() == nil {
			return 0, fmt.Errorf("%w: no response headers within %s", ErrUnavailable, c.timeout)
		}
		return 0, err
	}
	defer resp.Body.Close()
	if timedOut {
		return 0, fmt.Errorf("%w: no response headers within %s", ErrUnavailable, c.timeout)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		return 0, &APIError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, c.transportError(ctx, err)
	}
	return n, nil
}
