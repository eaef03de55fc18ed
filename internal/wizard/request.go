package wizard

import (
	"fmt"
	"time"

	"github.com/jask/edgeaudit/internal/api"
)

// Request is a candidate submission: a template and at most one qualifier.
// An empty Qualifier means the whole template is audited.
type Request struct {
	Template  api.Template
	Qualifier string
}

// NewRequest validates qualifier against the template's declared set and
// captures the template by value.
func NewRequest(t api.Template, qualifier string) (Request, error) {
	if qualifier != "" && !t.HasAsset(qualifier) {
		return Request{}, fmt.Errorf("%w: %q is not offered by %s", ErrUnknownQualifier, qualifier, t.Name)
	}
	return Request{Template: t.Clone(), Qualifier: qualifier}, nil
}

// WholeTemplate reports whether no qualifier narrows the request.
func (r Request) WholeTemplate() bool { return r.Qualifier == "" }

// Payload merges the qualifier into the full template record fetched at
// submit time.
func (r Request) Payload(full api.Strategy) api.SubmitRequest {
	full.TickerUniverse = append([]string(nil), full.TickerUniverse...)
	full.RawReturns = append([]float64(nil), full.RawReturns...)
	return api.SubmitRequest{Strategy: full, SelectedAsset: r.Qualifier}
}

func (r Request) String() string {
	if r.WholeTemplate() {
		return r.Template.Name + " (entire strategy)"
	}
	return r.Template.Name + " / " + r.Qualifier
}

// Outcome is produced once per submit attempt.
type Outcome struct {
	Request Request
	AuditID string
	Score   float64
	Reason  string
	Err     error
	At      time.Time
}

// Succeeded reports whether the attempt created an audit.
func (o Outcome) Succeeded() bool { return o.Err == nil }
