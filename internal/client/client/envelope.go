package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/writedesk/internal/client/models"
)

// Envelope is the uniform {success, message, data} wrapper of every API
// response.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

type rawEnvelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// decodeResponse validates a response body at the boundary and returns the
// typed payload, or an *APIError / ErrUnavailable. Bodies without a boolean
// "success" field are treated as bare data.
func decodeResponse[T any](status int, body []byte) (T, error) {
	var zero T

	if status < 200 || status > 299 {
		return zero, &APIError{Status: status, Message: errorMessage(status, body)}
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return zero, nil
	}

	var env rawEnvelope
	if body[0] == '{' {
		if err := json.Unmarshal(body, &env); err != nil {
			return zero, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
		}
	}

	data := env.Data
	if env.Success == nil {
		data = body
	} else if !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return zero, &APIError{Status: status, Message: msg}
	}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return zero, nil
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("%w: decode data: %v", ErrUnavailable, err)
	}
	return out, nil
}

// errorMessage extracts a human-readable message from an error body:
// detail, then message, then error, then the raw text.
func errorMessage(status int, body []byte) string {
	var fields struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &fields); err == nil {
		if msg := detailText(fields.Detail); msg != "" {
			return msg
		}
		if fields.Message != "" {
			return fields.Message
		}
		if fields.Error != "" {
			return fields.Error
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") {
		return text
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "request failed"
}

// detailText handles both {"detail": "msg"} and validation-style
// {"detail": [{"msg": "..."}]} bodies.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return string(raw)
}

// projectPayload accepts {"workspace": {...}}, {"project": {...}} or a bare
// project object.
type projectPayload struct {
	models.Project
}

func (p *projectPayload) UnmarshalJSON(b []byte) error {
	var wrapped struct {
		Workspace *models.Project `json:"workspace"`
		Project   *models.Project `json:"project"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	switch {
	case wrapped.Workspace != nil:
		p.Project = *wrapped.Workspace
	case wrapped.Project != nil:
		p.Project = *wrapped.Project
	default:
		return json.Unmarshal(b, &p.Project)
	}
	return nil
}

type projectList struct {
	Workspaces []models.Project `json:"workspaces"`
	Projects   []models.Project `json:"projects"`
}

func (l projectList) items() []models.Project {
	if l.Workspaces != nil {
		return l.Workspaces
	}
	if l.Projects != nil {
		return l.Projects
	}
	return []models.Project{}
}

type searchList struct {
	Workspaces []models.SearchResult `json:"workspaces"`
	Results    []models.SearchResult `json:"results"`
}

func (l searchList) items() []models.SearchResult {
	if l.Workspaces != nil {
		return l.Workspaces
	}
	if l.Results != nil {
		return l.Results
	}
	return []models.SearchResult{}
}

type profilePayload struct {
	Profile *models.Profile `json:"profile"`
}
