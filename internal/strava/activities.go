package strava

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/lildude/fitdash/internal/activity"
)

// ListActivities fetches one page of the athlete's activities started
// within the options window. Activities dated in the future are dropped and
// the rest are returned most recent first.
func (c *Client) ListActivities(ctx context.Context, accessToken string, opts activity.ListOptions) ([]activity.Raw, error) {
	now := c.now()

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("after", strconv.FormatInt(opts.WindowStart(now).Unix(), 10))
	if !opts.Before.IsZero() {
		params.Set("before", strconv.FormatInt(opts.Before.Unix(), 10))
	}
	if opts.Type != "" {
		params.Set("activity_type", opts.Type)
	}

	rc := c.api(ctx, accessToken)
	req, err := rc.NewRequest(ctx, http.MethodGet, "athlete/activities", params)
	if err != nil {
		return nil, err
	}

	var raws []activity.Raw
	resp, err := rc.Do(req, &raws)
	if err != nil {
		return nil, fmt.Errorf("listing strava activities: %w", err)
	}
	defer resp.Body.Close()

	out := make([]activity.Raw, 0, len(raws))
	for _, r := range raws {
		if r.StartDate.After(now) {
			continue
		}
		if opts.Type != "" && r.Type != opts.Type {
			continue
		}
		r.Source = Name
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate.After(out[j].StartDate)
	})
	return out, nil
}

// GetActivity fetches a single activity by id.
func (c *Client) GetActivity(ctx context.Context, accessToken string, id int64) (*activity.Raw, error) {
	rc := c.api(ctx, accessToken)
	req, err := rc.NewRequest(ctx, http.MethodGet, fmt.Sprintf("activities/%d", id), nil)
	if err != nil {
		return nil, err
	}

	var r activity.Raw
	resp, err := rc.Do(req, &r)
	if err != nil {
		return nil, fmt.Errorf("getting activity %d: %w", id, err)
	}
	defer resp.Body.Close()

	r.Source = Name
	return &r, nil
}
