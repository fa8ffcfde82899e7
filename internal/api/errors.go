package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/arbitroy/stockflow/backend/internal/errors"
)

// HTTPError is a non-2xx answer from the remote API.
type HTTPError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// codeForStatus maps an HTTP status onto the application error taxonomy.
func codeForStatus(status int) apperrors.ErrorCode {
	switch status {
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return apperrors.ErrValidation
	default:
		return apperrors.ErrRemote
	}
}

func httpError(method, path string, status int, message string) error {
	he := &HTTPError{StatusCode: status, Method: method, Path: path, Message: message}
	msg := message
	if msg == "" {
		msg = http.StatusText(status)
	}
	return apperrors.Wrap(codeForStatus(status), msg, he)
}

func transportError(method, path string, err error) error {
	msg := fmt.Sprintf("%s %s: remote API unreachable", method, path)
	if errors.Is(err, context.DeadlineExceeded) {
		msg = fmt.Sprintf("%s %s: request timed out", method, path)
	}
	return apperrors.Wrap(apperrors.ErrConnectivity, msg, err)
}

// StatusCode extracts the HTTP status from err, or 0 when err did not come
// from an HTTP answer.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}
