package loader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jask/edgeaudit/internal/api"
)

// ErrMissingID is the terminal state of a detail load with no identifier.
// It is NotFound-classified.
var ErrMissingID = fmt.Errorf("audit id missing: %w", api.ErrNotFound)

// IsNotFound reports whether err means the requested record does not exist.
func IsNotFound(err error) bool { return api.IsNotFound(err) }

// Collection is the paginated audit list loader.
type Collection = Loader[api.CollectionQuery, *api.Page]

// Detail is the single-audit loader.
type Detail = Loader[string, *api.AuditDetail]

// NewCollection builds the collection loader, typically over Client.ListAudits.
func NewCollection(ctx context.Context, fetch FetchFunc[api.CollectionQuery, *api.Page], opts ...Option[api.CollectionQuery, *api.Page]) *Collection {
	return New(ctx, "collection", fetch, opts...)
}

// NewDetail builds the detail loader, typically over Client.GetAudit. Blank
// ids fail with ErrMissingID without a request.
func NewDetail(ctx context.Context, fetch FetchFunc[string, *api.AuditDetail], opts ...Option[string, *api.AuditDetail]) *Detail {
	opts = append([]Option[string, *api.AuditDetail]{WithPrecheck[string, *api.AuditDetail](requireID)}, opts...)
	return New(ctx, "detail", fetch, opts...)
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingID
	}
	return nil
}

// Bounded wraps fn so each call gets its own deadline. Loaders never impose a
// timeout themselves; callers opt in here. A non-positive d returns fn as is.
func Bounded[K comparable, T any](fn FetchFunc[K, T], d time.Duration) FetchFunc[K, T] {
	if d <= 0 {
		return fn
	}
	return func(ctx context.Context, key K) (T, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return fn(ctx, key)
	}
}
