// Package goals stores user training goals and tracks their progress.
package goals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lildude/fitdash/internal/cache"
	"github.com/sirupsen/logrus"
)

// Key is the store key holding the goal list.
const Key = "user_goals"

var (
	ErrNotFound = errors.New("goal not found")
	ErrInvalid  = errors.New("invalid goal")
)

// Type selects what a goal measures.
type Type string

const (
	Distance   Type = "distance"
	Time       Type = "time"
	Activities Type = "activities"
	Elevation  Type = "elevation"
)

func (t Type) valid() bool {
	switch t {
	case Distance, Time, Activities, Elevation:
		return true
	}
	return false
}

// DefaultUnit is the unit progress is measured in for the type.
func (t Type) DefaultUnit() string {
	switch t {
	case Distance:
		return "km"
	case Time:
		return "h"
	case Elevation:
		return "m"
	default:
		return "activities"
	}
}

type Goal struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Target      float64    `json:"target"`
	Current     float64    `json:"current"`
	Unit        string     `json:"unit"`
	Type        Type       `json:"type"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Achieved    bool       `json:"achieved"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Input holds the user supplied fields of a new goal.
type Input struct {
	Name        string     `json:"name"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Target      float64    `json:"target"`
	Unit        string     `json:"unit"`
	Type        Type       `json:"type"`
	Deadline    *time.Time `json:"deadline"`
}

func (in Input) Validate() error {
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if in.Target <= 0 {
		return fmt.Errorf("%w: target must be positive", ErrInvalid)
	}
	if !in.Type.valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, in.Type)
	}
	return nil
}

// Deadline is a patchable deadline. A JSON null clears the deadline; an
// absent field leaves it unchanged.
type Deadline struct {
	Set  bool
	Time *time.Time
}

// ClearDeadline is a patch value that removes the deadline.
var ClearDeadline = Deadline{Set: true}

// NewDeadline is a patch value that sets the deadline to t.
func NewDeadline(t time.Time) Deadline {
	return Deadline{Set: true, Time: &t}
}

func (d *Deadline) UnmarshalJSON(b []byte) error {
	d.Set = true
	if string(b) == "null" {
		d.Time = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(b, &t); err != nil {
		return fmt.Errorf("%w: deadline: %v", ErrInvalid, err)
	}
	d.Time = &t
	return nil
}

// Patch updates the non-nil fields of a goal and the deadline when set.
type Patch struct {
	Name        *string  `json:"name"`
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Target      *float64 `json:"target"`
	Current     *float64 `json:"current"`
	Unit        *string  `json:"unit"`
	Type        *Type    `json:"type"`
	Deadline    Deadline `json:"deadline"`
	Achieved    *bool    `json:"achieved"`
}

func (p Patch) apply(g *Goal) error {
	if p.Type != nil && !p.Type.valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, *p.Type)
	}
	if p.Target != nil && *p.Target <= 0 {
		return fmt.Errorf("%w: target must be positive", ErrInvalid)
	}
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.Title != nil {
		g.Title = *p.Title
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Target != nil {
		g.Target = *p.Target
	}
	if p.Current != nil {
		g.Current = *p.Current
	}
	if p.Unit != nil {
		g.Unit = *p.Unit
	}
	if p.Type != nil {
		g.Type = *p.Type
	}
	if p.Deadline.Set {
		g.Deadline = p.Deadline.Time
	}
	if p.Achieved != nil {
		g.Achieved = *p.Achieved
	}
	return nil
}

// Store persists the goal list as a single JSON array.
type Store struct {
	cache cache.Cache
	log   logrus.FieldLogger
	now   func() time.Time
	newID func() string

	mu sync.Mutex
}

func NewStore(c cache.Cache, log logrus.FieldLogger) *Store {
	return &Store{
		cache: c,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// List returns every goal in creation order. An unreadable stored list is
// logged and treated as empty.
func (s *Store) List(ctx context.Context) ([]Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) ([]Goal, error) {
	var goals []Goal
	err := s.cache.GetJSON(ctx, Key, &goals)
	switch {
	case err == nil:
		return goals, nil
	case errors.Is(err, cache.ErrNotFound):
		return []Goal{}, nil
	case errors.Is(err, cache.ErrCorrupt):
		s.log.WithError(err).Warn("discarding unreadable goals")
		return []Goal{}, nil
	default:
		return nil, fmt.Errorf("loading goals: %w", err)
	}
}

func (s *Store) save(ctx context.Context, goals []Goal) error {
	if err := s.cache.SetJSON(ctx, Key, goals); err != nil {
		return fmt.Errorf("saving goals: %w", err)
	}
	return nil
}

// Add creates a goal with no progress.
func (s *Store) Add(ctx context.Context, in Input) (*Goal, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	goals, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	g := Goal{
		ID:          s.newID(),
		Name:        in.Name,
		Title:       in.Title,
		Description: in.Description,
		Target:      in.Target,
		Unit:        in.Unit,
		Type:        in.Type,
		Deadline:    in.Deadline,
		CreatedAt:   s.now().UTC(),
	}
	if g.Unit == "" {
		g.Unit = g.Type.DefaultUnit()
	}

	if err := s.save(ctx, append(goals, g)); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"goal": g.ID, "type": g.Type}).Info("goal added")
	return &g, nil
}

func (s *Store) modify(ctx context.Context, id string, fn func(*Goal) error) (*Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	goals, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range goals {
		if goals[i].ID != id {
			continue
		}
		if err := fn(&goals[i]); err != nil {
			return nil, err
		}
		if err := s.save(ctx, goals); err != nil {
			return nil, err
		}
		g := goals[i]
		return &g, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Update applies p to the goal with the given id.
func (s *Store) Update(ctx context.Context, id string, p Patch) (*Goal, error) {
	return s.modify(ctx, id, p.apply)
}

// MarkAchieved flags the goal as achieved.
func (s *Store) MarkAchieved(ctx context.Context, id string) (*Goal, error) {
	return s.modify(ctx, id, func(g *Goal) error {
		g.Achieved = true
		return nil
	})
}

// Delete removes the goal with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	goals, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range goals {
		if goals[i].ID == id {
			return s.save(ctx, append(goals[:i], goals[i+1:]...))
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
