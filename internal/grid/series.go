package grid

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	lolTitleID = "3"
	pageSize   = 50
	maxPages   = 100
)

const allSeriesQuery = `query ScrimSeries($after: Cursor, $first: Int, $gte: String, $lte: String) {
  allSeries(
    first: $first
    after: $after
    filter: {titleId: ` + lolTitleID + `, types: SCRIM, startTimeScheduled: {gte: $gte, lte: $lte}}
    orderBy: StartTimeScheduled
    orderDirection: DESC
  ) {
    totalCount
    pageInfo { hasNextPage endCursor }
    edges { node { id startTimeScheduled teams { baseInfo { name } } } }
  }
}`

// Series is a scrim series as GRID reports it.
type Series struct {
	ID          string
	ScheduledAt time.Time
	Teams       []string
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type allSeriesResponse struct {
	Data struct {
		AllSeries struct {
			TotalCount int `json:"totalCount"`
			PageInfo   struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Edges []struct {
				Node seriesNode `json:"node"`
			} `json:"edges"`
		} `json:"allSeries"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type seriesNode struct {
	ID                 string `json:"id"`
	StartTimeScheduled string `json:"startTimeScheduled"`
	Teams              []struct {
		BaseInfo struct {
			Name string `json:"name"`
		} `json:"baseInfo"`
	} `json:"teams"`
}

func (n seriesNode) series() Series {
	s := Series{ID: n.ID}
	if t, err := time.Parse(time.RFC3339, n.StartTimeScheduled); err == nil {
		s.ScheduledAt = t
	}
	for _, team := range n.Teams {
		s.Teams = append(s.Teams, team.BaseInfo.Name)
	}
	return s
}

// Discover lists League scrim series scheduled in [now-lookback, now],
// newest first, following pagination.
func (c *Client) Discover(ctx context.Context, now time.Time, lookback time.Duration) ([]Series, error) {
	vars := map[string]any{
		"first": pageSize,
		"gte":   now.Add(-lookback).UTC().Format(time.RFC3339),
		"lte":   now.UTC().Format(time.RFC3339),
	}

	var out []Series
	for page := 0; page < maxPages; page++ {
		var resp allSeriesResponse
		if err := c.postJSON(ctx, c.centralURL, graphQLRequest{Query: allSeriesQuery, Variables: vars}, &resp); err != nil {
			return nil, fmt.Errorf("discover series: %w", err)
		}
		if len(resp.Errors) > 0 {
			msgs := make([]string, len(resp.Errors))
			for i, e := range resp.Errors {
				msgs[i] = e.Message
			}
			return nil, fmt.Errorf("%w: %s", ErrGraphQL, strings.Join(msgs, "; "))
		}

		conn := resp.Data.AllSeries
		for _, edge := range conn.Edges {
			out = append(out, edge.Node.series())
		}
		if !conn.PageInfo.HasNextPage || conn.PageInfo.EndCursor == "" {
			break
		}
		vars["after"] = conn.PageInfo.EndCursor
	}

	c.logger.Info("discovered scrim series", zap.Int("count", len(out)))
	return out, nil
}

// MonthsBack converts a lookback in calendar months to a duration ending at now.
func MonthsBack(now time.Time, months int) time.Duration {
	return now.Sub(now.AddDate(0, -months, 0))
}
