// Package pricing holds the course price table and the promo-code rule. Both are pure and are
// shared by the submission path and the preview endpoint so the two can never disagree.
package pricing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownUserType = errors.New("unknown user type")
	ErrUnknownPlan     = errors.New("unknown plan")
)

// UserType distinguishes first-time students from returning ones.
type UserType string

const (
	UserNew       UserType = "new"
	UserReturning UserType = "returning"
)

// Plan is the course package a registration buys.
type Plan string

const (
	PlanSingle Plan = "single"
	PlanFull   Plan = "full"
	PlanDouble Plan = "double"
	PlanTest   Plan = "test"
)

// UserTypes lists every user type in display order.
var UserTypes = []UserType{UserNew, UserReturning}

// Plans lists every plan in display order.
var Plans = []Plan{PlanSingle, PlanFull, PlanDouble, PlanTest}

// ParseUserType converts a request string into a UserType.
func ParseUserType(s string) (UserType, error) {
	switch u := UserType(strings.ToLower(strings.TrimSpace(s))); u {
	case UserNew, UserReturning:
		return u, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownUserType, s)
}

// ParsePlan converts a request string into a Plan.
func ParsePlan(s string) (Plan, error) {
	switch p := Plan(strings.ToLower(strings.TrimSpace(s))); p {
	case PlanSingle, PlanFull, PlanDouble, PlanTest:
		return p, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownPlan, s)
}

// SessionCount is the number of sessions a plan must select.
func (p Plan) SessionCount() int {
	switch p {
	case PlanSingle, PlanTest:
		return 1
	case PlanFull, PlanDouble:
		return 4
	}
	panic("pricing: unhandled plan " + string(p))
}

// Attendees is the number of attendee records a plan carries.
func (p Plan) Attendees() int {
	switch p {
	case PlanDouble:
		return 2
	case PlanSingle, PlanFull, PlanTest:
		return 1
	}
	panic("pricing: unhandled plan " + string(p))
}

// ReplacesSelection reports whether picking a session replaces the current one
// instead of toggling it in a set.
func (p Plan) ReplacesSelection() bool {
	return p.SessionCount() == 1
}
