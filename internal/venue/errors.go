// Package venue holds the error taxonomy shared by the exchange clients and the feed.
package venue

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConnectionLost marks a dropped streaming connection. The feed supervisor
// reconnects on it; it never reaches a cycle.
var ErrConnectionLost = errors.New("connection lost")

// TransientError covers timeouts, transport failures and 5xx responses.
// Callers may retry; the hedge cycle does not.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) Retryable() bool { return true }

// RejectionError is a structured refusal from a venue (4xx, status != ok,
// non-zero error code): insufficient funds, invalid price and similar.
type RejectionError struct {
	Op      string
	Status  int
	Code    string
	Message string
}

func (e *RejectionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": rejected")
	if e.Status > 0 {
		fmt.Fprintf(&b, " http %d", e.Status)
	}
	if e.Code != "" {
		b.WriteString(" code=")
		b.WriteString(e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *RejectionError) Retryable() bool { return false }

// ProtocolError is a frame or payload that could not be decoded.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return e.Op + ": malformed payload: " + e.Err.Error()
}

func (e *ProtocolError) Unwrap() error { return e.Err }

type retryable interface {
	Retryable() bool
}

func IsTransient(err error) bool {
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}

func IsProtocol(err error) bool {
	var perr *ProtocolError
	return errors.As(err, &perr)
}

// FromStatus classifies a non-2xx HTTP response.
func FromStatus(op string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if status >= 500 || status == 429 {
		return &TransientError{Op: op, Err: fmt.Errorf("http %d: %s", status, msg)}
	}
	return &RejectionError{Op: op, Status: status, Message: msg}
}
