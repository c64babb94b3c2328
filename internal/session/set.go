package session

import (
	"context"
	"errors"
	"sort"

	"github.com/lildude/fitdash/internal/activity"
)

// Set holds one session per provider.
type Set struct {
	order    []string
	sessions map[string]*Session
}

func NewSet(sessions ...*Session) *Set {
	s := &Set{sessions: make(map[string]*Session)}
	for _, ss := range sessions {
		if _, ok := s.sessions[ss.Name()]; !ok {
			s.order = append(s.order, ss.Name())
		}
		s.sessions[ss.Name()] = ss
	}
	return s
}

func (s *Set) Get(provider string) (*Session, bool) {
	ss, ok := s.sessions[provider]
	return ss, ok
}

// All returns the sessions in registration order.
func (s *Set) All() []*Session {
	out := make([]*Session, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.sessions[name])
	}
	return out
}

// Init restores every session, returning the first error.
func (s *Set) Init(ctx context.Context) error {
	var first error
	for _, ss := range s.All() {
		if err := ss.Init(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Activities merges the activities of every session, most recent first.
func (s *Set) Activities() []activity.Activity {
	var out []activity.Activity
	for _, ss := range s.All() {
		out = append(out, ss.Activities()...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate.After(out[j].StartDate)
	})
	return out
}

// Activity finds the activity with the given id in any session.
func (s *Set) Activity(ctx context.Context, id int64) (activity.Activity, error) {
	for _, ss := range s.All() {
		a, err := ss.Activity(ctx, id)
		if errors.Is(err, ErrActivityNotFound) {
			continue
		}
		return a, err
	}
	return activity.Activity{}, ErrActivityNotFound
}

func (s *Set) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(s.order))
	for _, ss := range s.All() {
		out = append(out, ss.Snapshot())
	}
	return out
}
