package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
)

// ErrUnauthorized is matched by every 401 the client gives up on
var ErrUnauthorized = errors.New("unauthorized")

// Error is a non-2xx API response. Fields carries per-field validation messages
// keyed by JSON field name.
type Error struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("api: %d %s", e.Status, e.Message)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return fmt.Sprintf("api: %d %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
}

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// IsValidation reports whether err is a 400 response carrying field errors
func IsValidation(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest && len(apiErr.Fields) > 0
}

// FieldErrors returns the field errors of an API error, or nil
func FieldErrors(err error) map[string][]string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Fields
	}
	return nil
}

// parseError reads the common error envelopes: {"detail": ...}, {"error": ...},
// {"message": ...} and DRF-style {"field": ["msg", ...]}.
func parseError(resp *resty.Response) *Error {
	e := &Error{Status: resp.StatusCode()}

	var body map[string]any
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		e.Message = strings.TrimSpace(string(resp.Body()))
	}

	for key, raw := range body {
		switch key {
		case "detail", "error", "message":
			if s, ok := raw.(string); ok && e.Message == "" {
				e.Message = s
			}
			continue
		case "fields", "errors":
			if nested, ok := raw.(map[string]any); ok {
				for k, v := range nested {
					e.addField(k, v, true)
				}
			}
			continue
		}
		e.addField(key, raw, false)
	}

	if e.Message == "" {
		e.Message = http.StatusText(e.Status)
	}
	return e
}

// addField records a field error. Top-level strings are ignored since servers
// put codes and hints there.
func (e *Error) addField(key string, raw any, allowString bool) {
	var msgs []string
	switch v := raw.(type) {
	case string:
		if allowString {
			msgs = []string{v}
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				msgs = append(msgs, s)
			}
		}
	}
	if len(msgs) == 0 {
		return
	}
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[key] = append(e.Fields[key], msgs...)
}
