package googlefit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lildude/fitdash/internal/activity"
	"golang.org/x/text/language"
	"google.golang.org/api/fitness/v1"
)

const (
	segmentSource = "derived:com.google.activity.segment:com.google.android.gms:merge_activity_segments"

	distanceType  = "com.google.distance.delta"
	heartRateType = "com.google.heart_rate.bpm"
	caloriesType  = "com.google.calories.expended"
	speedType     = "com.google.speed"

	heartRateSummary = "com.google.heart_rate.summary"
	speedSummary     = "com.google.speed.summary"

	minSegment = time.Minute
)

// ListActivities aggregates the user's activity segments in the window
// [After, Before). Each segment becomes one activity; segments whose
// activity code has no known type are dropped.
func (c *Client) ListActivities(ctx context.Context, accessToken string, opts activity.ListOptions) ([]activity.Raw, error) {
	now := c.now()
	start, end := opts.WindowStart(now), opts.WindowEnd(now)
	if !start.Before(end) {
		return []activity.Raw{}, nil
	}

	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	req := &fitness.AggregateRequest{
		AggregateBy: []*fitness.AggregateBy{
			{DataTypeName: distanceType},
			{DataTypeName: heartRateType},
			{DataTypeName: caloriesType},
			{DataTypeName: speedType},
		},
		BucketByActivitySegment: &fitness.BucketByActivity{
			ActivityDataSourceId: segmentSource,
			MinDurationMillis:    minSegment.Milliseconds(),
		},
		StartTimeMillis: start.UnixMilli(),
		EndTimeMillis:   end.UnixMilli(),
	}

	resp, err := svc.Users.Dataset.Aggregate("me", req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("aggregating google fit activities: %w", requestError(err))
	}

	out := make([]activity.Raw, 0, len(resp.Bucket))
	for _, b := range resp.Bucket {
		r, ok := fromBucket(b)
		if !ok {
			continue
		}
		if r.StartDate.Before(start) || !r.StartDate.Before(end) {
			continue
		}
		if opts.Type != "" && r.Type != opts.Type {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate.After(out[j].StartDate)
	})
	if opts.PerPage > 0 && len(out) > opts.PerPage {
		out = out[:opts.PerPage]
	}
	return out, nil
}

func fromBucket(b *fitness.AggregateBucket) (activity.Raw, bool) {
	typ, ok := ActivityType(b.Activity)
	if !ok {
		return activity.Raw{}, false
	}

	started := time.UnixMilli(b.StartTimeMillis)
	seconds := (b.EndTimeMillis - b.StartTimeMillis) / 1000

	r := activity.Raw{
		ID:             b.StartTimeMillis,
		Name:           activity.DisplayName(typ, language.English),
		Type:           typ,
		MovingTime:     seconds,
		ElapsedTime:    seconds,
		StartDate:      started.UTC(),
		StartDateLocal: started.Local(),
		Source:         Name,
	}

	for _, ds := range b.Dataset {
		for _, p := range ds.Point {
			switch p.DataTypeName {
			case distanceType:
				r.Distance += fpValue(p, 0)
			case caloriesType:
				r.Calories += fpValue(p, 0)
			case heartRateSummary:
				r.AverageHeartrate = fpValue(p, 0)
				r.MaxHeartrate = fpValue(p, 1)
			case speedSummary:
				r.MaxSpeed = fpValue(p, 1)
			}
		}
	}

	if seconds > 0 {
		r.AverageSpeed = r.Distance / float64(seconds)
	}
	return r, true
}

func fpValue(p *fitness.DataPoint, i int) float64 {
	if i >= len(p.Value) || p.Value[i] == nil {
		return 0
	}
	v := p.Value[i]
	if v.FpVal != 0 {
		return v.FpVal
	}
	return float64(v.IntVal)
}
