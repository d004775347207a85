package registrations

import (
	"errors"
	"strings"

	"github.com/stride-coaching/backend/internal/pricing"
)

var (
	errSelectOne  = errors.New("please select exactly one session")
	errSelectFour = errors.New("please select exactly 4 sessions")
)

// Selection is the set of chosen session ids for one plan. Single and test plans hold at most
// one id and a new pick replaces it; full and double plans toggle ids in and out of a set.
type Selection struct {
	plan pricing.Plan
	ids  []string
}

// NewSelection builds a selection from submitted ids. Blank and repeated ids are dropped but
// nothing is replaced, so an over-long submission still fails Validate.
func NewSelection(plan pricing.Plan, ids []string) *Selection {
	s := &Selection{plan: plan}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || s.Contains(id) {
			continue
		}
		s.ids = append(s.ids, id)
	}
	return s
}

// Toggle applies one click on a session.
func (s *Selection) Toggle(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	if s.plan.ReplacesSelection() {
		s.ids = []string{id}
		return
	}
	for i, cur := range s.ids {
		if cur == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return
		}
	}
	s.ids = append(s.ids, id)
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id string) bool {
	for _, cur := range s.ids {
		if cur == id {
			return true
		}
	}
	return false
}

// Len returns the number of selected sessions.
func (s *Selection) Len() int { return len(s.ids) }

// IDs returns a copy of the selected ids in selection order.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Validate checks the plan's session count. It runs at submit time, not on every toggle.
func (s *Selection) Validate() error {
	if s.Len() == s.plan.SessionCount() {
		return nil
	}
	if s.plan.ReplacesSelection() {
		return errSelectOne
	}
	return errSelectFour
}
