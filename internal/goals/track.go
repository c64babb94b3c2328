package goals

import (
	"context"

	"github.com/lildude/fitdash/internal/activity"
	"github.com/lildude/fitdash/internal/metrics"
)

// Progress measures g against the activities started between its creation
// and its deadline.
func Progress(g *Goal, acts []activity.Activity) float64 {
	var total float64
	for i := range acts {
		a := &acts[i]
		if a.StartDate.Before(g.CreatedAt) {
			continue
		}
		if g.Deadline != nil && a.StartDate.After(*g.Deadline) {
			continue
		}
		switch g.Type {
		case Distance:
			total += metrics.Km(a)
		case Time:
			total += metrics.Hours(a)
		case Activities:
			total++
		case Elevation:
			total += a.TotalElevationGain
		}
	}
	return total
}

// Track recomputes the progress of every goal from acts and marks goals
// that reached their target as achieved. Achieved goals stay achieved.
func (s *Store) Track(ctx context.Context, acts []activity.Activity) ([]Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	goals, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(goals) == 0 {
		return goals, nil
	}

	for i := range goals {
		g := &goals[i]
		g.Current = Progress(g, acts)
		if !g.Achieved && g.Current >= g.Target {
			g.Achieved = true
			s.log.WithField("goal", g.ID).Info("goal achieved")
		}
	}

	if err := s.save(ctx, goals); err != nil {
		return nil, err
	}
	return goals, nil
}
