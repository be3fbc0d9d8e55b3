package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestProjectDraft_Validate(t *testing.T) {
	tests := []struct {
		name    string
		draft   ProjectDraft
		wantErr error
		want    ProjectDraft
	}{
		{
			name:  "defaults access type and trims title",
			draft: ProjectDraft{Title: "  Thesis  ", Category: CategoryResearchPaper},
			want:  ProjectDraft{Title: "Thesis", Category: CategoryResearchPaper, AccessType: AccessPrivate},
		},
		{
			name:    "empty title",
			draft:   ProjectDraft{Title: "   ", Category: CategoryArticle},
			wantErr: ErrEmptyTitle,
		},
		{
			name:    "unknown category",
			draft:   ProjectDraft{Title: "x", Category: "scratch"},
			wantErr: ErrInvalidCategory,
		},
		{
			name:    "unknown access type",
			draft:   ProjectDraft{Title: "x", Category: CategoryIdeation, AccessType: "shared"},
			wantErr: ErrInvalidAccessType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.draft
			err := d.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestProjectPatch_Validate(t *testing.T) {
	require.NoError(t, ProjectPatch{}.Validate())
	require.NoError(t, ProjectPatch{Title: ptr("New")}.Validate())
	require.ErrorIs(t, ProjectPatch{Title: ptr(" ")}.Validate(), ErrEmptyTitle)
	require.ErrorIs(t, ProjectPatch{Category: ptr(Category("nope"))}.Validate(), ErrInvalidCategory)
	require.ErrorIs(t, ProjectPatch{AccessType: ptr(AccessType("team"))}.Validate(), ErrInvalidAccessType)
}

func TestProjectPatch_OmitsUnsetFields(t *testing.T) {
	b, err := json.Marshal(ProjectPatch{Title: ptr("Renamed")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Renamed"}`, string(b))
}

func TestProject_DecodesServerShape(t *testing.T) {
	raw := `{
		"id": "p1",
		"user_id": "u1",
		"title": "Essay",
		"category": "assignment",
		"access_type": "public",
		"metadata": {"data": {"templateData": {"authorNames": ["A"]}}},
		"created_at": "2026-01-02T03:04:05Z",
		"updated_at": "2026-01-03T03:04:05Z"
	}`
	var p Project
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, CategoryAssignment, p.Category)
	assert.Equal(t, AccessPublic, p.AccessType)
	assert.Equal(t, time.Date(2026, 1, 3, 3, 4, 5, 0, time.UTC), p.UpdatedAt)
	assert.JSONEq(t, `{"data": {"templateData": {"authorNames": ["A"]}}}`, string(p.Metadata))
}

func TestSession_ExpiresAt(t *testing.T) {
	issued := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := Session{Tokens: Tokens{ExpiresIn: 600}, IssuedAt: issued}
	assert.Equal(t, issued.Add(10*time.Minute), s.ExpiresAt())

	assert.True(t, Session{IssuedAt: issued}.ExpiresAt().IsZero())
}

func TestProfile_IdentityAndDisplayName(t *testing.T) {
	p := Profile{UserID: "u1", Email: "a@b.c", Role: "student", TwoFactorEnabled: true, FirstName: "Ann"}
	assert.Equal(t, User{Email: "a@b.c", UserID: "u1", Role: "student", TwoFactorEnabled: true}, p.Identity())
	assert.Equal(t, "Ann", p.DisplayName())

	p.LastName = "Lee"
	assert.Equal(t, "Ann Lee", p.DisplayName())

	assert.Equal(t, "a@b.c", Profile{Email: "a@b.c"}.DisplayName())
}
