package tui

import (
	"net/url"
	"strings"
)

// RouteKind selects the screen the app starts on.
type RouteKind int

const (
	RouteAudits RouteKind = iota
	RouteDetail
	RouteSubmit
	RouteNotFound
)

// Route is a parsed navigation path.
type Route struct {
	Kind    RouteKind
	AuditID string
}

// ParseRoute understands "/", "/audits", "/submit" and "/audit/{id}".
// Anything else, including "/audit/" without an id, is RouteNotFound.
func ParseRoute(path string) Route {
	path = strings.TrimSpace(path)
	if u, err := url.Parse(path); err == nil {
		path = u.EscapedPath()
	}
	trimmed := strings.Trim(path, "/")
	switch trimmed {
	case "", "audits":
		return Route{Kind: RouteAudits}
	case "submit", "audits/new":
		return Route{Kind: RouteSubmit}
	}
	if rest, ok := strings.CutPrefix(trimmed, "audit/"); ok && !strings.Contains(rest, "/") {
		id, err := url.PathUnescape(rest)
		if err == nil && strings.TrimSpace(id) != "" {
			return Route{Kind: RouteDetail, AuditID: id}
		}
	}
	return Route{Kind: RouteNotFound}
}

func (r Route) String() string {
	switch r.Kind {
	case RouteDetail:
		return "/audit/" + url.PathEscape(r.AuditID)
	case RouteSubmit:
		return "/submit"
	case RouteNotFound:
		return "/not-found"
	}
	return "/audits"
}
