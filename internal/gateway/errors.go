package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrSessionExpired is wrapped by the error returned when a 401 could not be
// recovered by refreshing the access token. The session has been cleared.
var ErrSessionExpired = errors.New("session expired")

// Kind classifies a failed backend call
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindServer     Kind = "server"
)

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	default:
		return KindServer
	}
}

// APIError is a non-2xx response from the backend. Message is already
// flattened into a single human-readable sentence.
type APIError struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Method  string
	Path    string
	Body    []byte
	Err     error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s failed with status %d", e.Method, e.Path, e.Status)
}

// Unwrap exposes ErrSessionExpired for errors.Is
func (e *APIError) Unwrap() error {
	return e.Err
}

// NetworkError is a transport failure; no response was received
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error calling %s %s: %v", e.Method, e.Path, e.Err)
}

// Unwrap returns the transport error
func (e *NetworkError) Unwrap() error {
	return e.Err
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{
		Kind:    kindForStatus(status),
		Status:  status,
		Method:  method,
		Path:    path,
		Body:    body,
		Message: FlattenMessage(body),
	}

	var envelope struct {
		Code      string `json:"code"`
		ErrorCode string `json:"errorCode"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Code = envelope.Code
		if apiErr.Code == "" {
			apiErr.Code = envelope.ErrorCode
		}
	}

	return apiErr
}

// FlattenMessage reduces an error body to one sentence. Validation errors may
// arrive as a list (first element's message, or the element if it is a
// string), as an object (field messages joined with ", "), or not at all, in
// which case the top-level message is used. Returns "" when nothing fits.
func FlattenMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ""
	}

	obj, ok := decoded.(map[string]interface{})
	if !ok {
		if s, isString := decoded.(string); isString {
			return strings.TrimSpace(s)
		}
		return ""
	}

	switch errs := obj["errors"].(type) {
	case []interface{}:
		if len(errs) > 0 {
			if msg := elementMessage(errs[0]); msg != "" {
				return msg
			}
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(errs))
		for k := range errs {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if msg := elementMessage(errs[k]); msg != "" {
				parts = append(parts, msg)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	case string:
		if s := strings.TrimSpace(errs); s != "" {
			return s
		}
	}

	if msg, ok := obj["message"].(string); ok && strings.TrimSpace(msg) != "" {
		return strings.TrimSpace(msg)
	}

	return ""
}

func elementMessage(v interface{}) string {
	switch e := v.(type) {
	case string:
		return strings.TrimSpace(e)
	case map[string]interface{}:
		if msg, ok := e["message"].(string); ok && msg != "" {
			return msg
		}
		if data, err := json.Marshal(e); err == nil {
			return string(data)
		}
	case nil:
		return ""
	default:
		if data, err := json.Marshal(e); err == nil {
			return string(data)
		}
	}
	return ""
}

// UserMessage returns the flattened backend message of err, or fallback
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsStatus reports whether err is an APIError with one of the statuses
func IsStatus(err error, statuses ...int) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, s := range statuses {
		if apiErr.Status == s {
			return true
		}
	}
	return false
}

// IsKind reports whether err is an APIError of the given kind
func IsKind(err error, kind Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// CodeOf returns the backend error code of err, "" when absent
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// MessageContains reports whether the flattened message of err contains any
// of the fragments, case-insensitively
func MessageContains(err error, fragments ...string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	msg := strings.ToLower(apiErr.Message + " " + string(apiErr.Body))
	for _, f := range fragments {
		if strings.Contains(msg, strings.ToLower(f)) {
			return true
		}
	}
	return false
}

// IsNetwork reports a transport failure
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
