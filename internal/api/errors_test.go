package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDetail(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		reason string
		ok     bool
	}{
		{name: "string detail", body: `{"detail":"asset not in universe"}`, reason: "asset not in universe", ok: true},
		{name: "validation list", body: `{"detail":[{"loc":["body","backtest_sharpe"],"msg":"field required"},{"loc":["body"],"msg":"bad"}]}`, reason: "backtest_sharpe: field required; body: bad", ok: true},
		{name: "blank detail", body: `{"detail":"  "}`, ok: false},
		{name: "no detail", body: `{"message":"nope"}`, ok: false},
		{name: "html", body: `<html>502 Bad Gateway</html>`, ok: false},
		{name: "empty", body: ``, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reason, ok := parseDetail([]byte(tc.body))
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.reason, reason)
		})
	}
}

func TestRemoteErrorPredicates(t *testing.T) {
	notFound := newRemoteError("get audit", http.StatusNotFound, "Audit not found", nil)
	unavailable := newRemoteError("list audits", http.StatusServiceUnavailable, "", nil)
	transport := newRemoteError("fetch health", 0, transportReason(context.Canceled), context.Canceled)

	require.True(t, IsNotFound(notFound))
	require.True(t, IsNotFound(fmt.Errorf("wrapped: %w", notFound)))
	require.False(t, IsNotFound(unavailable))
	require.True(t, HasStatusCode(unavailable, http.StatusServiceUnavailable))

	require.Equal(t, FallbackReason, unavailable.Reason())
	require.Equal(t, "Audit not found", Reason(notFound))
	require.Equal(t, "request cancelled", Reason(transport))
	require.True(t, errors.Is(transport, context.Canceled))
	require.Equal(t, "fetch health: request cancelled", transport.Error())
	require.Equal(t, "get audit: HTTP 404: Audit not found", notFound.Error())

	require.Equal(t, "plain", Reason(errors.New("plain")))
	require.Empty(t, Reason(nil))
}
