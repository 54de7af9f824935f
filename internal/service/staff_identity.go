package service

import (
	"strings"

	"github.com/google/uuid"
)

const (
	hodIDPrefix   = "HOD-"
	staffIDPrefix = "STF-"
)

// newStaffSuffix yields the random part of a regular staff id.
var newStaffSuffix = func() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// StaffID derives a staff id from the HOD flag. Becoming HOD yields HOD-<DEPT>;
// leaving it yields a fresh STF-<8 hex> id; an unchanged flag keeps currentID.
// Roles are only ever read from the flag, never parsed back out of an id.
func StaffID(department string, isHod bool, currentID string, wasHod bool) string {
	switch {
	case currentID == "" && isHod, isHod && !wasHod:
		return hodIDPrefix + strings.ToUpper(strings.TrimSpace(department))
	case currentID == "", !isHod && wasHod:
		return staffIDPrefix + newStaffSuffix()
	default:
		return currentID
	}
}
