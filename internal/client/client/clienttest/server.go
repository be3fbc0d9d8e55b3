// Package clienttest provides an in-process fake of the WriteDesk API for
// tests: token issuance and rotation, profile and workspace endpoints, with
// one-shot failure injection.
package clienttest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/writedesk/internal/client/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	DefaultEmail    = "writer@example.com"
	DefaultPassword = "correct horse"
	DefaultOTP      = "123456"
	Default2FACode  = "654321"
)

var signingKey = []byte("clienttest-secret")

type failure struct {
	status  int
	message string
}

// Server is a fake API backed by httptest.Server.
type Server struct {
	*httptest.Server

	mu sync.Mutex

	Require2FA bool
	AccessTTL  time.Duration

	profile  models.Profile
	access   map[string]bool
	refresh  map[string]bool
	projects []models.Project
	trash    []models.Project
	calls    map[string]int
	failures map[string]failure
	clock    time.Time
}

// New starts a server that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		AccessTTL: time.Hour,
		profile: models.Profile{
			UserID:    "user-1",
			Email:     DefaultEmail,
			Role:      "student",
			FirstName: "Ada",
		},
		access:   map[string]bool{},
		refresh:  map[string]bool{},
		calls:    map[string]int{},
		failures: map[string]failure{},
		clock:    time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/auth/login", s.handle("auth.login", false, s.login)).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/verify-otp", s.handle("auth.verify_otp", false, s.verifyOTP)).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/verify-2fa", s.handle("auth.verify_2fa", false, s.verify2FA)).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/refresh", s.handle("auth.refresh", false, s.refreshTokens)).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout", s.handle("auth.logout", true, s.logout)).Methods(http.MethodPost)
	r.HandleFunc("/api/users/profile", s.handle("users.profile", true, s.getProfile)).Methods(http.MethodGet)
	r.HandleFunc("/api/users/profile", s.handle("users.update_profile", true, s.updateProfile)).Methods(http.MethodPut)
	r.HandleFunc("/api/dms/workspaces", s.handle("projects.list", true, s.listProjects)).Methods(http.MethodGet)
	r.HandleFunc("/api/dms/workspaces", s.handle("projects.create", true, s.createProject)).Methods(http.MethodPost)
	r.HandleFunc("/api/dms/workspaces/search", s.handle("projects.search", true, s.searchProjects)).Methods(http.MethodPost)
	r.HandleFunc("/api/dms/workspaces/trash/user", s.handle("projects.trash", true, s.listTrash)).Methods(http.MethodGet)
	r.HandleFunc("/api/dms/workspaces/restore/{id}", s.handle("projects.restore", true, s.restoreProject)).Methods(http.MethodPost)
	r.HandleFunc("/api/dms/workspaces/{id}", s.handle("projects.get", true, s.getProject)).Methods(http.MethodGet)
	r.HandleFunc("/api/dms/workspaces/{id}", s.handle("projects.update", true, s.updateProject)).Methods(http.MethodPut)
	r.HandleFunc("/api/dms/workspaces/{id}", s.handle("projects.delete", true, s.deleteProject)).Methods(http.MethodDelete)
	r.HandleFunc("/api/dms/workspaces/{id}/permanent", s.handle("projects.purge", true, s.purgeProject)).Methods(http.MethodDelete)
	r.HandleFunc("/api/dms/documents/export/{id}", s.handle("projects.export", true, s.exportProject)).Methods(http.MethodGet)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Calls returns how many times op was hit (including rejected calls).
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// FailNext makes the next call of op answer with status and message.
func (s *Server) FailNext(op string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = failure{status: status, message: message}
}

// IssueTokens mints a valid token pair as if the user had logged in.
func (s *Server) IssueTokens() models.Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked()
}

// ExpireAccessTokens invalidates every issued access token.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = map[string]bool{}
}

// RevokeRefreshTokens invalidates every issued refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = map[string]bool{}
}

// AddProject seeds a project and returns it with server-assigned fields.
func (s *Server) AddProject(title string, category models.Category) models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.newProjectLocked(models.ProjectDraft{Title: title, Category: category, AccessType: models.AccessPrivate})
	s.projects = append(s.projects, p)
	return p
}

// Projects returns a copy of the live (non-trashed) projects.
func (s *Server) Projects() []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Project(nil), s.projects...)
}

// Trash returns a copy of the trashed projects.
func (s *Server) Trash() []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Project(nil), s.trash...)
}

// MintAccessToken signs a JWT with the given expiry without registering it.
func MintAccessToken(exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return signed
}

type handlerFunc func(w http.ResponseWriter, r *http.Request)

func (s *Server) handle(op string, auth bool, next handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[op]++
		f, failing := s.failures[op]
		delete(s.failures, op)
		authorized := !auth || s.access[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		s.mu.Unlock()

		if failing {
			writeJSON(w, f.status, map[string]any{"success": false, "message": f.message})
			return
		}
		if !authorized {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Could not validate credentials"})
			return
		}
		next(w, r)
	}
}

func (s *Server) issueLocked() models.Tokens {
	access := MintAccessToken(time.Now().Add(s.AccessTTL))
	refresh := uuid.NewString()
	s.access[access] = true
	s.refresh[refresh] = true
	return models.Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.AccessTTL / time.Second),
	}
}

func (s *Server) sessionResponse(w http.ResponseWriter) {
	s.mu.Lock()
	tokens := s.issueLocked()
	user := s.profile.Identity()
	s.mu.Unlock()

	ok(w, models.LoginResult{Tokens: tokens, User: &user})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email != DefaultEmail || req.Password != DefaultPassword {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid email or password"})
		return
	}

	s.mu.Lock()
	require2FA := s.Require2FA
	s.mu.Unlock()
	if require2FA {
		ok(w, models.LoginResult{Requires2FA: true})
		return
	}
	s.sessionResponse(w)
}

func (s *Server) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}
	if req.OTP != DefaultOTP {
		fail(w, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}
	s.sessionResponse(w)
}

func (s *Server) verify2FA(w http.ResponseWriter, r *http.Request) {
	var req models.Verify2FARequest
	if !decode(w, r, &req) {
		return
	}
	if req.Code != Default2FACode {
		fail(w, http.StatusBadRequest, "Invalid 2FA code")
		return
	}
	s.sessionResponse(w)
}

func (s *Server) refreshTokens(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	valid := s.refresh[req.RefreshToken]
	var tokens models.Tokens
	if valid {
		delete(s.refresh, req.RefreshToken)
		tokens = s.issueLocked()
	}
	s.mu.Unlock()

	if !valid {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid refresh token"})
		return
	}
	ok(w, tokens)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	delete(s.access, token)
	s.mu.Unlock()
	ok(w, nil)
}

func (s *Server) getProfile(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	p := s.profile
	s.mu.Unlock()
	ok(w, map[string]any{"profile": p})
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var upd models.ProfileUpdate
	if !decode(w, r, &upd) {
		return
	}

	s.mu.Lock()
	if upd.FirstName != nil {
		s.profile.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		s.profile.LastName = *upd.LastName
	}
	if upd.Bio != nil {
		s.profile.Bio = *upd.Bio
	}
	if upd.AvatarURL != nil {
		s.profile.AvatarURL = *upd.AvatarURL
	}
	if upd.Institution != nil {
		s.profile.Institution = *upd.Institution
	}
	if upd.Interests != nil {
		s.profile.Interests = upd.Interests
	}
	if upd.SettingsMetadata != nil {
		s.profile.SettingsMetadata = upd.SettingsMetadata
	}
	s.mu.Unlock()
	ok(w, map[string]any{"message": "Profile updated"})
}

func (s *Server) listProjects(w http.ResponseWriter, _ *http.Request) {
	ok(w, map[string]any{"workspaces": s.Projects()})
}

func (s *Server) listTrash(w http.ResponseWriter, _ *http.Request) {
	ok(w, map[string]any{"workspaces": s.Trash()})
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var draft models.ProjectDraft
	if !decode(w, r, &draft) {
		return
	}
	if err := draft.Validate(); err != nil {
		fail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.mu.Lock()
	p := s.newProjectLocked(draft)
	s.projects = append(s.projects, p)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{"workspace": p}})
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	i := indexOf(s.projects, id)
	var p models.Project
	if i >= 0 {
		p = s.projects[i]
	}
	s.mu.Unlock()

	if i < 0 {
		fail(w, http.StatusNotFound, "Workspace not found")
		return
	}
	ok(w, p)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var patch models.ProjectPatch
	if !decode(w, r, &patch) {
		return
	}

	s.mu.Lock()
	i := indexOf(s.projects, id)
	var p models.Project
	if i >= 0 {
		p = s.projects[i]
		if patch.Title != nil {
			p.Title = *patch.Title
		}
		if patch.Category != nil {
			p.Category = *patch.Category
		}
		if patch.AccessType != nil {
			p.AccessType = *patch.AccessType
		}
		if patch.TemplateData != nil {
			p.Metadata = patch.TemplateData
		}
		p.UpdatedAt = s.tickLocked()
		s.projects[i] = p
	}
	s.mu.Unlock()

	if i < 0 {
		fail(w, http.StatusNotFound, "Workspace not found")
		return
	}
	ok(w, p)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	i := indexOf(s.projects, id)
	if i >= 0 {
		s.trash = append(s.trash, s.projects[i])
		s.projects = append(s.projects[:i], s.projects[i+1:]...)
	}
	s.mu.Unlock()

	if i < 0 {
		fail(w, http.StatusNotFound, "Workspace not found")
		return
	}
	ok(w, map[string]any{})
}

func (s *Server) purgeProject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	found := false
	if i := indexOf(s.projects, id); i >= 0 {
		s.projects = append(s.projects[:i], s.projects[i+1:]...)
		found = true
	}
	if i := indexOf(s.trash, id); i >= 0 {
		s.trash = append(s.trash[:i], s.trash[i+1:]...)
		found = true
	}
	s.mu.Unlock()

	if !found {
		fail(w, http.StatusNotFound, "Workspace not found")
		return
	}
	ok(w, map[string]any{})
}

func (s *Server) restoreProject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	i := indexOf(s.trash, id)
	if i >= 0 {
		s.projects = append(s.projects, s.trash[i])
		s.trash = append(s.trash[:i], s.trash[i+1:]...)
	}
	s.mu.Unlock()

	if i < 0 {
		fail(w, http.StatusNotFound, "Workspace not found in trash")
		return
	}
	ok(w, map[string]any{})
}

func (s *Server) searchProjects(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if !decode(w, r, &req) {
		return
	}
	q := strings.ToLower(strings.TrimSpace(req.Query))

	var hits []models.SearchResult
	for _, p := range s.Projects() {
		title := strings.ToLower(p.Title)
		if q == "" || !strings.Contains(title, q) {
			continue
		}
		hits = append(hits, models.SearchResult{
			ID:             p.ID,
			Title:          p.Title,
			Category:       p.Category,
			UpdatedAt:      p.UpdatedAt,
			RelevanceScore: float64(len(q)) / float64(len(title)),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].RelevanceScore > hits[j].RelevanceScore })
	if req.Limit > 0 && len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}
	if hits == nil {
		hits = []models.SearchResult{}
	}
	ok(w, map[string]any{"workspaces": hits})
}

func (s *Server) exportProject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	i := indexOf(s.projects, id)
	var title string
	if i >= 0 {
		title = s.projects[i].Title
	}
	s.mu.Unlock()

	if i < 0 {
		fail(w, http.StatusNotFound, "Workspace not found")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	fmt.Fprintf(w, "%s:%s", r.URL.Query().Get("format"), title)
}

func (s *Server) newProjectLocked(d models.ProjectDraft) models.Project {
	now := s.tickLocked()
	meta := d.TemplateData
	if meta == nil {
		meta = json.RawMessage(`{"data":{}}`)
	}
	return models.Project{
		ID:         uuid.NewString(),
		UserID:     s.profile.UserID,
		Title:      d.Title,
		Category:   d.Category,
		AccessType: d.AccessType,
		Metadata:   meta,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// tickLocked advances the fake clock so every mutation gets a strictly
// later timestamp.
func (s *Server) tickLocked() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func indexOf(list []models.Project, id string) int {
	for i, p := range list {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		fail(w, http.StatusBadRequest, "malformed body")
		return false
	}
	return true
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
