// Package api implements the authenticated HTTP transport to the Drivelink
// storage service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
)

// Sentinel errors classifying remote failures. Callers test with errors.Is.
var (
	// ErrNetwork - the request never produced an HTTP response.
	ErrNetwork = errors.New("network failure")

	// ErrUnauthorized - 401, expired or missing credentials.
	ErrUnauthorized = errors.New("authentication failure")

	// ErrValidation - 400/422, the server rejected the input.
	ErrValidation = errors.New("validation failure")

	// ErrNotFound - 404.
	ErrNotFound = errors.New("not found")

	// ErrServer - 5xx or anything else unexpected.
	ErrServer = errors.New("server failure")
)

// APIError carries the HTTP status and the human-readable message the
// server returned. It unwraps to the matching sentinel so callers can
// classify without inspecting status codes.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Status == nethttp.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == nethttp.StatusBadRequest || e.Status == nethttp.StatusUnprocessableEntity:
		return ErrValidation
	case e.Status == nethttp.StatusNotFound:
		return ErrNotFound
	default:
		return ErrServer
	}
}

// errorFromResponse drains the body and builds an *APIError. The server's
// JSON `message` field becomes the user-facing text when present; otherwise
// a generic fallback is used, never a raw payload dump.
func errorFromResponse(resp *nethttp.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		apiErr.Message = genericMessage(resp.StatusCode)
		return apiErr
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			apiErr.Message = payload.Message
			return apiErr
		}
		if payload.Error != "" {
			apiErr.Message = payload.Error
			return apiErr
		}
	}

	apiErr.Message = genericMessage(resp.StatusCode)
	return apiErr
}

func genericMessage(status int) string {
	switch {
	case status == nethttp.StatusUnauthorized:
		return "authentication required"
	case status == nethttp.StatusNotFound:
		return "resource not found"
	case status == nethttp.StatusBadRequest || status == nethttp.StatusUnprocessableEntity:
		return "the server rejected the request"
	case status >= 500:
		return "the server encountered an error"
	default:
		return fmt.Sprintf("unexpected response status %d", status)
	}
}
