package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Category is the document kind a project was created as.
type Category string

const (
	CategoryIdeation      Category = "ideation"
	CategoryResearchPaper Category = "research_paper"
	CategoryAssignment    Category = "assignment"
	CategoryArticle       Category = "article"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryIdeation, CategoryResearchPaper, CategoryAssignment, CategoryArticle:
		return true
	}
	return false
}

// AccessType controls project visibility.
type AccessType string

const (
	AccessPrivate AccessType = "private"
	AccessPublic  AccessType = "public"
)

func (a AccessType) Valid() bool {
	return a == AccessPrivate || a == AccessPublic
}

var (
	ErrEmptyTitle        = errors.New("title must not be empty")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrInvalidAccessType = errors.New("invalid access type")
)

// Project is a workspace project as returned by the server.
type Project struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Title      string          `json:"title"`
	Category   Category        `json:"category"`
	AccessType AccessType      `json:"access_type"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ProjectDraft is the body of a create call. The server assigns ID and
// timestamps.
type ProjectDraft struct {
	Title        string          `json:"title"`
	Category     Category        `json:"category"`
	AccessType   AccessType      `json:"access_type,omitempty"`
	TemplateData json.RawMessage `json:"template_data,omitempty"`
}

// Validate trims the title, defaults AccessType to private and checks enums.
func (d *ProjectDraft) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return ErrEmptyTitle
	}
	if !d.Category.Valid() {
		return ErrInvalidCategory
	}
	if d.AccessType == "" {
		d.AccessType = AccessPrivate
	}
	if !d.AccessType.Valid() {
		return ErrInvalidAccessType
	}
	return nil
}

// ProjectPatch is a partial update; only non-nil fields are sent.
type ProjectPatch struct {
	Title        *string         `json:"title,omitempty"`
	Category     *Category       `json:"category,omitempty"`
	AccessType   *AccessType     `json:"access_type,omitempty"`
	TemplateData json.RawMessage `json:"template_data,omitempty"`
}

// Validate checks the fields that are set.
func (p ProjectPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrEmptyTitle
	}
	if p.Category != nil && !p.Category.Valid() {
		return ErrInvalidCategory
	}
	if p.AccessType != nil && !p.AccessType.Valid() {
		return ErrInvalidAccessType
	}
	return nil
}

// SearchResult is one ranked hit of a project search.
type SearchResult struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Category       Category  `json:"category"`
	UpdatedAt      time.Time `json:"updated_at"`
	RelevanceScore float64   `json:"relevance_score,omitempty"`
}

// SearchRequest is the body of a search call.
type SearchRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}
