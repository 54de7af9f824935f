package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyRemoteError(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		class FailureClass
		trips bool
	}{
		{"nil", nil, FailureNone, false},
		{"missing relation", fmt.Errorf("select students: %w", &pq.Error{Code: "42P01"}), FailureMissingRelation, true},
		{"bad password", &pq.Error{Code: "28P01"}, FailureAuthorization, true},
		{"insufficient privilege", &pq.Error{Code: "42501"}, FailureAuthorization, true},
		{"connection exception class", &pq.Error{Code: "08006"}, FailureNetwork, true},
		{"admin shutdown", &pq.Error{Code: "57P01"}, FailureNetwork, true},
		{"unique violation", &pq.Error{Code: "23505"}, FailureRejected, false},
		{"bad conn", driver.ErrBadConn, FailureNetwork, true},
		{"dns lookup", &net.DNSError{Err: "no such host", Name: "db.internal"}, FailureNetwork, true},
		{"deadline", context.DeadlineExceeded, FailureNetwork, true},
		{"caller canceled", context.Canceled, FailureCanceled, false},
		{"anything else", errors.New("boom"), FailureRejected, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			class := ClassifyRemoteError(tc.err)
			assert.Equal(t, tc.class, class)
			assert.Equal(t, tc.trips, class.TripsBreaker())
		})
	}
}
