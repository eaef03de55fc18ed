package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// FallbackReason is reported when a failed response carries no readable reason.
const FallbackReason = "request failed"

// ErrNotFound matches any error that means "no such remote record".
// A *RemoteError with HTTP 404 satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("not found")

// RemoteError is the single error type returned by Client operations.
// A zero status code means the request never produced an HTTP response.
type RemoteError struct {
	operation  string
	statusCode int
	reason     string
	cause      error
}

func newRemoteError(operation string, statusCode int, reason string, cause error) *RemoteError {
	if strings.TrimSpace(reason) == "" {
		reason = FallbackReason
	}
	return &RemoteError{
		operation:  operation,
		statusCode: statusCode,
		reason:     reason,
		cause:      cause,
	}
}

func (e *RemoteError) Error() string {
	if e.statusCode == 0 {
		return fmt.Sprintf("%s: %s", e.operation, e.reason)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.operation, e.statusCode, e.reason)
}

// Unwrap exposes the transport or decode failure, if any.
func (e *RemoteError) Unwrap() error { return e.cause }

// Is reports 404 responses as ErrNotFound.
func (e *RemoteError) Is(target error) bool {
	return target == ErrNotFound && e.statusCode == http.StatusNotFound
}

// StatusCode returns the HTTP status, or 0 for transport failures.
func (e *RemoteError) StatusCode() int { return e.statusCode }

// Reason returns the human-readable reason extracted from the response.
func (e *RemoteError) Reason() string { return e.reason }

// Operation names the client call that failed.
func (e *RemoteError) Operation() string { return e.operation }

// IsNotFound reports whether err means the identifier or name has no remote record.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// HasStatusCode reports whether err is a RemoteError with the given HTTP status.
func HasStatusCode(err error, code int) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr) && remoteErr.statusCode == code
}

// Reason returns the text a state holder should surface for err.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.reason
	}
	return err.Error()
}

// parseDetail extracts the service's {"detail": ...} reason. FastAPI sends
// either a string or a list of validation issues.
func parseDetail(body []byte) (string, bool) {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return "", false
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		text = strings.TrimSpace(text)
		return text, text != ""
	}

	var issues []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &issues); err != nil || len(issues) == 0 {
		return "", false
	}
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		if issue.Msg == "" {
			continue
		}
		if field := issueField(issue.Loc); field != "" {
			parts = append(parts, field+": "+issue.Msg)
			continue
		}
		parts = append(parts, issue.Msg)
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "; "), true
}

func issueField(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	last, ok := loc[len(loc)-1].(string)
	if !ok {
		return ""
	}
	return last
}
