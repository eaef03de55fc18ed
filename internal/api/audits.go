package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Health returns the service liveness report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.doJSON(ctx, http.MethodGet, "/health", "fetch health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Summary returns aggregate counts and averages across all audits.
func (c *Client) Summary(ctx context.Context) (*Summary, error) {
	var s Summary
	if err := c.doJSON(ctx, http.MethodGet, "/audits/summary", "fetch summary", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListAudits fetches one page of the audit collection described by q.
func (c *Client) ListAudits(ctx context.Context, q CollectionQuery) (*Page, error) {
	path := "/audits"
	if enc := q.Values().Encode(); enc != "" {
		path += "?" + enc
	}
	var page Page
	if err := c.doJSON(ctx, http.MethodGet, path, "list audits", nil, &page); err != nil {
		return nil, err
	}
	if page.Audits == nil {
		page.Audits = []AuditSummary{}
	}
	return &page, nil
}

// GetAudit fetches the full record for one audit id.
func (c *Client) GetAudit(ctx context.Context, id string) (*AuditDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, newRemoteError("get audit", 0, "audit id is required", ErrNotFound)
	}
	var detail AuditDetail
	if err := c.doJSON(ctx, http.MethodGet, "/audit/"+url.PathEscape(id), "get audit", nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// SubmitAudit runs an audit and returns the created record.
func (c *Client) SubmitAudit(ctx context.Context, req SubmitRequest) (*AuditDetail, error) {
	var detail AuditDetail
	if err := c.doJSON(ctx, http.MethodPost, "/audit", "submit audit", req, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}
