package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type strategiesEnvelope[T any] struct {
	Strategies []T `json:"strategies"`
}

// ListStrategies returns every audited strategy with its latest score.
func (c *Client) ListStrategies(ctx context.Context) ([]StrategySummary, error) {
	var env strategiesEnvelope[StrategySummary]
	if err := c.doJSON(ctx, http.MethodGet, "/strategies", "list strategies", nil, &env); err != nil {
		return nil, err
	}
	return env.Strategies, nil
}

// AvailableStrategies returns the template catalog a submission can start from.
func (c *Client) AvailableStrategies(ctx context.Context) ([]Template, error) {
	var env strategiesEnvelope[Template]
	if err := c.doJSON(ctx, http.MethodGet, "/strategies/available", "fetch template catalog", nil, &env); err != nil {
		return nil, err
	}
	return env.Strategies, nil
}

// GetStrategy fetches one full template record by name.
func (c *Client) GetStrategy(ctx context.Context, name string) (*Strategy, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newRemoteError("get strategy", 0, "strategy name is required", ErrNotFound)
	}
	var s Strategy
	if err := c.doJSON(ctx, http.MethodGet, "/strategies/"+url.PathEscape(name), "get strategy", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Leaderboard returns the top audits by edge score. A non-positive limit
// leaves the service default in place.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]AuditSummary, error) {
	path := "/strategies/leaderboard"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var env strategiesEnvelope[AuditSummary]
	if err := c.doJSON(ctx, http.MethodGet, path, "fetch leaderboard", nil, &env); err != nil {
		return nil, err
	}
	return env.Strategies, nil
}

// StrategyHistory returns the most recent audits of one strategy.
func (c *Client) StrategyHistory(ctx context.Context, name string, limit int) (*StrategyHistory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newRemoteError("strategy history", 0, "strategy name is required", ErrNotFound)
	}
	path := "/strategies/" + url.PathEscape(name) + "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var h StrategyHistory
	if err := c.doJSON(ctx, http.MethodGet, path, "strategy history", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

type compareRequest struct {
	StrategyNames []string `json:"strategy_names"`
}

type compareEnvelope struct {
	Comparison []*AuditDetail `json:"comparison"`
}

// CompareStrategies returns the latest audit of each named strategy, in
// order. A strategy with no audits yields a nil entry. The service compares
// at most two strategies and ignores the rest.
func (c *Client) CompareStrategies(ctx context.Context, names []string) ([]*AuditDetail, error) {
	req := compareRequest{StrategyNames: make([]string, 0, len(names))}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			req.StrategyNames = append(req.StrategyNames, n)
		}
	}
	if len(req.StrategyNames) == 0 {
		return nil, newRemoteError("compare strategies", 0, "at least one strategy name is required", nil)
	}
	var env compareEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/strategies/compare", "compare strategies", req, &env); err != nil {
		return nil, err
	}
	return env.Comparison, nil
}
