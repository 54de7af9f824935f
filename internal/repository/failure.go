package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/lib/pq"
)

// FailureClass groups remote store errors by what they say about the backend.
type FailureClass string

const (
	FailureNone            FailureClass = ""
	FailureMissingRelation FailureClass = "missing_relation"
	FailureAuthorization   FailureClass = "authorization"
	FailureNetwork         FailureClass = "network"
	FailureCanceled        FailureClass = "canceled"
	FailureRejected        FailureClass = "rejected"
)

// TripsBreaker reports whether the class means the backend is down or unusable
// rather than reachable but refusing this particular statement.
func (c FailureClass) TripsBreaker() bool {
	switch c {
	case FailureMissingRelation, FailureAuthorization, FailureNetwork:
		return true
	default:
		return false
	}
}

// Retryable reports whether a second attempt could plausibly succeed.
func (c FailureClass) Retryable() bool {
	return c == FailureNetwork
}

// ClassifyRemoteError maps an error from the remote store onto a FailureClass.
func ClassifyRemoteError(err error) FailureClass {
	if err == nil {
		return FailureNone
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "42P01", "3F000":
			return FailureMissingRelation
		case "28000", "28P01", "42501":
			return FailureAuthorization
		case "57P01", "57P02", "57P03", "53300":
			return FailureNetwork
		}
		if pqErr.Code.Class() == "08" {
			return FailureNetwork
		}
		return FailureRejected
	}

	if errors.Is(err, context.Canceled) {
		return FailureCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return FailureNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureNetwork
	}

	return FailureRejected
}
