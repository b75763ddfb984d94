package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/pvault/internal/netx"
)

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrUnavailable      = errors.New("server unavailable")
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// maxMessageLen bounds raw error bodies that are shown verbatim.
const maxMessageLen = 512

// Error is a failed RemoteAPI call. Status is 0 for transport failures and
// local validation.
type Error struct {
	Op      string
	Status  int
	Message string

	kind  error
	cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	b.WriteString(": ")
	b.WriteString(e.sentinel().Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.sentinel()}
	}
	return []error{e.sentinel(), e.cause}
}

func (e *Error) sentinel() error {
	switch {
	case e.kind != nil:
		return e.kind
	case e.Status != 0:
		return kindOf(e.Status)
	default:
		return ErrUnavailable
	}
}

func statusError(op string, status int, body []byte) *Error {
	return &Error{Op: op, Status: status, Message: extractMessage(body), kind: kindOf(status)}
}

func transportError(op string, cause error) *Error {
	return &Error{Op: op, kind: ErrUnavailable, cause: cause}
}

func kindOf(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthenticated
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status >= 500:
		return ErrUnavailable
	default:
		return ErrUnexpectedStatus
	}
}

// extractMessage applies the single message policy for error bodies: a JSON
// "message" field, then a JSON "error" field, then the trimmed raw body when
// it is short and not an HTML page.
func extractMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if body[0] == '{' && json.Unmarshal(body, &payload) == nil {
		if s := rawString(payload.Message); s != "" {
			return s
		}
		if s := rawString(payload.Error); s != "" {
			return s
		}
		return ""
	}

	if len(body) >= maxMessageLen || netx.LooksLikeHTML(body) {
		return ""
	}
	return string(body)
}

func rawString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// Message returns the server-provided text carried by err, or fallback when
// there is none.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Invalid reports a locally detected validation failure in the same shape
// as a server-side 400.
func Invalid(op, message string) error {
	return &Error{Op: op, Message: message, kind: ErrValidation}
}
