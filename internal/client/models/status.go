package models

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the lifecycle state of an issue. The zero value is not a valid
// status; use ParseStatus at every boundary where a status arrives as text.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
)

// ErrInvalidStatus is returned when a status value is not one of the known
// statuses.
var ErrInvalidStatus = errors.New("invalid status")

// Statuses lists every valid status in workflow order.
func Statuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusResolved}
}

// ParseStatus validates s case-insensitively and returns its canonical
// upper-case form.
func ParseStatus(s string) (Status, error) {
	candidate := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range Statuses() {
		if candidate == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %s. Valid statuses are: PENDING, IN_PROGRESS, RESOLVED", ErrInvalidStatus, s)
}

// NormalizeStatus is the lenient form used when decoding backend payloads:
// it also accepts display spellings such as "In Progress". Missing and
// unknown values fall back to StatusPending, so a decoded issue always
// carries one of the known statuses.
func NormalizeStatus(s string) Status {
	if st, ok := LookupStatus(s); ok {
		return st
	}
	return StatusPending
}

// LookupStatus is NormalizeStatus without the fallback.
func LookupStatus(s string) (Status, bool) {
	up := strings.ToUpper(strings.TrimSpace(s))
	st := Status(strings.ReplaceAll(up, " ", "_"))
	return st, st.Valid()
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// DisplayText returns the human label for s.
func (s Status) DisplayText() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusResolved:
		return "Resolved"
	default:
		return string(s)
	}
}
