package services

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/writedesk/internal/client/client"
	"github.com/dmitrijs2005/writedesk/internal/client/events"
	"github.com/dmitrijs2005/writedesk/internal/client/models"
	"github.com/dmitrijs2005/writedesk/internal/logging"
	"golang.org/x/time/rate"
)

const (
	DefaultSearchLimit = 10
	DefaultTrashLimit  = 100

	defaultSearchRate  = 5
	defaultSearchBurst = 2
)

// WorkspaceAPI is the part of client.Client the workspace cache needs.
type WorkspaceAPI interface {
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

// WorkspaceCache holds the user's projects, the latest search results and
// the trash listing. Each list is either absent (nil, not fetched yet) or a
// possibly empty slice. The cache changes only after the server confirmed
// an operation.
//
// Reset bumps a generation counter; responses to calls started before the
// reset are discarded. Searches carry their own sequence number so only the
// latest Search call, including a clearing one, decides the results.
type WorkspaceCache struct {
	api        WorkspaceAPI
	session    *SessionManager
	limiter    *rate.Limiter
	bus        *events.Bus
	log        logging.Logger
	trashLimit int

	mu            sync.RWMutex
	gen           uint64
	searchSeq     uint64
	projects      []models.Project
	searchResults []models.SearchResult
	trashed       []models.Project
	lastErr       string
}

type CacheOption func(*WorkspaceCache)

func WithCacheLogger(l logging.Logger) CacheOption {
	return func(c *WorkspaceCache) {
		if l != nil {
			c.log = l
		}
	}
}

func WithCacheEvents(b *events.Bus) CacheOption {
	return func(c *WorkspaceCache) { c.bus = b }
}

// WithSearchRate throttles Search to perSecond calls with the given burst.
// Excess calls wait for a token instead of failing.
func WithSearchRate(perSecond float64, burst int) CacheOption {
	return func(c *WorkspaceCache) {
		if perSecond > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

func WithTrashLimit(n int) CacheOption {
	return func(c *WorkspaceCache) {
		if n > 0 {
			c.trashLimit = n
		}
	}
}

func NewWorkspaceCache(api WorkspaceAPI, session *SessionManager, opts ...CacheOption) *WorkspaceCache {
	c := &WorkspaceCache{
		api:        api,
		session:    session,
		limiter:    rate.NewLimiter(defaultSearchRate, defaultSearchBurst),
		log:        logging.Nop(),
		trashLimit: DefaultTrashLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchAll replaces the project list with the server's.
func (c *WorkspaceCache) FetchAll(ctx context.Context) ([]models.Project, error) {
	gen := c.generation()

	list, err := WithAuthRetry(ctx, c.session, c.api.ListProjects)
	if err != nil {
		return nil, c.fail(ctx, "fetch projects", err)
	}
	if list == nil {
		list = []models.Project{}
	}

	c.apply(gen, func() {
		c.projects = slices.Clone(list)
		c.lastErr = ""
	})
	return list, nil
}

// Create validates draft, creates it remotely and appends the server's record
// to the project list, starting the list if it was absent. Nothing is
// inserted before the server answers.
func (c *WorkspaceCache) Create(ctx context.Context, draft models.ProjectDraft) (*models.Project, error) {
	if err := draft.Validate(); err != nil {
		return nil, c.fail(ctx, "create project", err)
	}
	gen := c.generation()

	p, err := WithAuthRetry(ctx, c.session, func(ctx context.Context) (*models.Project, error) {
		return c.api.CreateProject(ctx, draft)
	})
	if err != nil {
		return nil, c.fail(ctx, "create project", err)
	}

	c.apply(gen, func() {
		c.projects = append(c.projects, *p)
		c.lastErr = ""
	})
	c.succeeded("create", p.ID, p)
	return p, nil
}

// Update sends patch and replaces the cached record with the server's.
func (c *WorkspaceCache) Update(ctx context.Context, id string, patch models.ProjectPatch) (*models.Project, error) {
	if err := patch.Validate(); err != nil {
		return nil, c.fail(ctx, "update project", err)
	}
	gen := c.generation()

	p, err := WithAuthRetry(ctx, c.session, func(ctx context.Context) (*models.Project, error) {
		return c.api.UpdateProject(ctx, id, patch)
	})
	if err != nil {
		return nil, c.fail(ctx, "update project", err)
	}

	c.apply(gen, func() {
		replaceByID(c.projects, *p)
		c.lastErr = ""
	})
	c.succeeded("update", p.ID, p)
	return p, nil
}

// Remove moves a project to the trash. Removing an id the cache does not
// hold leaves the lists untouched.
func (c *WorkspaceCache) Remove(ctx context.Context, id string) error {
	gen := c.generation()

	if _, err := WithAuthRetry(ctx, c.session, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.api.DeleteProject(ctx, id)
	}); err != nil {
		return c.fail(ctx, "delete project", err)
	}

	c.apply(gen, func() {
		c.projects = removeByID(c.projects, id)
		c.trashed = removeByID(c.trashed, id)
		c.lastErr = ""
	})
	c.succeeded("delete", id, nil)
	return nil
}

// PermanentlyRemove deletes a project for good.
func (c *WorkspaceCache) PermanentlyRemove(ctx context.Context, id string) error {
	gen := c.generation()

	if _, err := WithAuthRetry(ctx, c.session, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.api.PermanentlyDeleteProject(ctx, id)
	}); err != nil {
		return c.fail(ctx, "purge project", err)
	}

	c.apply(gen, func() {
		c.projects = removeByID(c.projects, id)
		c.trashed = removeByID(c.trashed, id)
		c.lastErr = ""
	})
	c.succeeded("purge", id, nil)
	return nil
}

// Search replaces the search results with the server's ranking. A blank
// query makes the results absent again without a network call.
func (c *WorkspaceCache) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)

	c.mu.Lock()
	c.searchSeq++
	seq, gen := c.searchSeq, c.gen
	if query == "" {
		c.searchResults = nil
		c.mu.Unlock()
		return nil, nil
	}
	c.mu.Unlock()

	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.fail(ctx, "search projects", err)
	}

	hits, err := WithAuthRetry(ctx, c.session, func(ctx context.Context) ([]models.SearchResult, error) {
		return c.api.SearchProjects(ctx, models.SearchRequest{Query: query, Limit: limit})
	})
	if err != nil {
		return nil, c.fail(ctx, "search projects", err)
	}
	if hits == nil {
		hits = []models.SearchResult{}
	}

	c.apply(gen, func() {
		if c.searchSeq != seq {
			return
		}
		c.searchResults = slices.Clone(hits)
		c.lastErr = ""
	})
	return hits, nil
}

// FetchTrash replaces the trash listing with the server's first page.
func (c *WorkspaceCache) FetchTrash(ctx context.Context) ([]models.Project, error) {
	gen := c.generation()

	list, err := WithAuthRetry(ctx, c.session, func(ctx context.Context) ([]models.Project, error) {
		return c.api.TrashedProjects(ctx, 1, c.trashLimit)
	})
	if err != nil {
		return nil, c.fail(ctx, "fetch trash", err)
	}
	if list == nil {
		list = []models.Project{}
	}

	c.apply(gen, func() {
		c.trashed = slices.Clone(list)
		c.lastErr = ""
	})
	return list, nil
}

// RestoreFromTrash restores a project server-side and drops it from the
// trash listing. The project list is not touched; FetchAll shows it again.
func (c *WorkspaceCache) RestoreFromTrash(ctx context.Context, id string) error {
	gen := c.generation()

	if _, err := WithAuthRetry(ctx, c.session, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.api.RestoreProject(ctx, id)
	}); err != nil {
		return c.fail(ctx, "restore project", err)
	}

	c.apply(gen, func() {
		c.trashed = removeByID(c.trashed, id)
		c.lastErr = ""
	})
	c.succeeded("restore", id, nil)
	return nil
}

// Get fetches one project and refreshes its cached copy, if any.
func (c *WorkspaceCache) Get(ctx context.Context, id string) (*models.Project, error) {
	gen := c.generation()

	p, err := WithAuthRetry(ctx, c.session, func(ctx context.Context) (*models.Project, error) {
		return c.api.GetProject(ctx, id)
	})
	if err != nil {
		return nil, c.fail(ctx, "get project", err)
	}

	c.apply(gen, func() { replaceByID(c.projects, *p) })
	return p, nil
}

// Export streams the project rendered as format (pdf when empty) into w.
func (c *WorkspaceCache) Export(ctx context.Context, id, format string, w io.Writer) (int64, error) {
	n, err := WithAuthRetry(ctx, c.session, func(ctx context.Context) (int64, error) {
		return c.api.ExportProject(ctx, id, format, w)
	})
	if err != nil {
		return n, c.fail(ctx, "export project", err)
	}
	return n, nil
}

// Projects returns a copy of the project list; ok is false while absent.
func (c *WorkspaceCache) Projects() ([]models.Project, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.projects), c.projects != nil
}

func (c *WorkspaceCache) SearchResults() ([]models.SearchResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.searchResults), c.searchResults != nil
}

func (c *WorkspaceCache) TrashedProjects() ([]models.Project, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.trashed), c.trashed != nil
}

// Visible is what a listing should show: the search results while a search
// is active, otherwise the projects. searching reports which one it is.
func (c *WorkspaceCache) Visible() (items []models.SearchResult, searching bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.searchResults != nil {
		return slices.Clone(c.searchResults), true
	}

	items = make([]models.SearchResult, 0, len(c.projects))
	for _, p := range c.projects {
		items = append(items, models.SearchResult{
			ID:        p.ID,
			Title:     p.Title,
			Category:  p.Category,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return items, false
}

func (c *WorkspaceCache) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Reset forgets everything, e.g. after logout.
func (c *WorkspaceCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.projects = nil
	c.searchResults = nil
	c.trashed = nil
	c.lastErr = ""
}

func (c *WorkspaceCache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// apply runs fn under the lock unless the cache was reset since gen.
func (c *WorkspaceCache) apply(gen uint64, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	fn()
}

func (c *WorkspaceCache) fail(ctx context.Context, op string, err error) error {
	msg := client.UserMessage(err)

	c.mu.Lock()
	c.lastErr = msg
	c.mu.Unlock()

	c.log.Warn(ctx, op+" failed", "error", err)
	c.bus.Publish(events.CacheError{Op: op, Message: msg})
	return fmt.Errorf("%s: %w", op, err)
}

func (c *WorkspaceCache) succeeded(op, id string, p *models.Project) {
	var cp *models.Project
	if p != nil {
		v := *p
		cp = &v
	}
	c.bus.Publish(events.MutationSucceeded{Op: op, ID: id, Project: cp})
}

// replaceByID swaps in p unless the cached copy is newer.
func replaceByID(list []models.Project, p models.Project) {
	for i := range list {
		if list[i].ID == p.ID {
			if !p.UpdatedAt.Before(list[i].UpdatedAt) {
				list[i] = p
			}
			return
		}
	}
}

// removeByID keeps nil (absent) as nil.
func removeByID(list []models.Project, id string) []models.Project {
	if list == nil {
		return nil
	}
	return slices.DeleteFunc(list, func(p models.Project) bool { return p.ID == id })
}
