package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/salesflow/salesflow-api/internal/domain"
)

type pagedEnvelope[T any] struct {
	Items           []T  `json:"items"`
	PageNumber      int  `json:"pageNumber"`
	PageSize        int  `json:"pageSize"`
	TotalCount      int  `json:"totalCount"`
	TotalPages      int  `json:"totalPages"`
	HasPreviousPage bool `json:"hasPreviousPage"`
	HasNextPage     bool `json:"hasNextPage"`
}

// DecodeList normalizes the two list shapes the backend returns: a paged
// envelope or a bare array. Any other JSON value yields an empty page.
func DecodeList[T any](data []byte) (*domain.Page[T], error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &domain.Page[T]{Items: []T{}}, nil
	}

	switch data[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("failed to decode list: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		return &domain.Page[T]{
			Items:      items,
			PageNumber: 1,
			PageSize:   len(items),
			TotalCount: len(items),
			TotalPages: 1,
		}, nil

	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("failed to decode envelope: %w", err)
		}
		raw, ok := probe["items"]
		if !ok || !isJSONArray(raw) {
			return &domain.Page[T]{Items: []T{}}, nil
		}
		var env pagedEnvelope[T]
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("failed to decode envelope: %w", err)
		}
		if env.Items == nil {
			env.Items = []T{}
		}
		return &domain.Page[T]{
			Items:           env.Items,
			PageNumber:      env.PageNumber,
			PageSize:        env.PageSize,
			TotalCount:      env.TotalCount,
			TotalPages:      env.TotalPages,
			HasPreviousPage: env.HasPreviousPage,
			HasNextPage:     env.HasNextPage,
		}, nil

	default:
		return &domain.Page[T]{Items: []T{}}, nil
	}
}

func isJSONArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

type errorBody struct {
	Detail  string `json:"detail"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

const maxPlainErrorLen = 300

// ExtractErrorMessage picks a user-facing message from an error response:
// detail, then title, then message, then a short plain-text body, then "HTTP <status>".
func ExtractErrorMessage(body []byte, status int) string {
	body = bytes.TrimSpace(body)
	fallback := fmt.Sprintf("HTTP %d", status)
	if len(body) == 0 {
		return fallback
	}

	if body[0] == '{' {
		var eb errorBody
		if err := json.Unmarshal(body, &eb); err == nil {
			switch {
			case eb.Detail != "":
				return eb.Detail
			case eb.Title != "":
				return eb.Title
			case eb.Message != "":
				return eb.Message
			}
		}
		return fallback
	}

	text := string(body)
	if len(text) > maxPlainErrorLen || strings.HasPrefix(text, "<") {
		return fallback
	}
	return text
}
