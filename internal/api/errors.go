package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Category classifies a failed backend call. The client never acts on it; callers decide.
type Category string

const (
	CategoryUnauthorized Category = "unauthorized"
	CategoryForbidden    Category = "forbidden"
	CategoryNotFound     Category = "not_found"
	CategoryServer       Category = "server"
	CategoryNetwork      Category = "network"
	CategoryRequest      Category = "request"
)

type Error struct {
	Category Category
	// Status is zero when no response arrived.
	Status  int
	Message string
	Timeout bool
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s (%d): %s", e.Category, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s (%d)", e.Category, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Category, e.Err)
	}
	return string(e.Category)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CategoryOf returns the category of an *Error anywhere in err's chain, or "" if there is none.
func CategoryOf(err error) Category {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Category
	}
	return ""
}

func categoryForStatus(status int) Category {
	switch {
	case status == http.StatusUnauthorized:
		return CategoryUnauthorized
	case status == http.StatusForbidden:
		return CategoryForbidden
	case status == http.StatusNotFound:
		return CategoryNotFound
	case status >= http.StatusInternalServerError:
		return CategoryServer
	default:
		return CategoryRequest
	}
}

func statusError(status int, body []byte) *Error {
	return &Error{
		Category: categoryForStatus(status),
		Status:   status,
		Message:  backendMessage(body),
	}
}

func networkError(err error) *Error {
	var netErr net.Error
	timeout := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
	return &Error{Category: CategoryNetwork, Timeout: timeout, Err: err}
}

// backendMessage pulls the human message out of an error body. The backend uses either
// {"message": ...} or {"error": ...}.
func backendMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}
	if payload.Message != "" {
		return payload.Message
	}
	switch v := payload.Error.(type) {
	case string:
		return v
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	}
	return ""
}
