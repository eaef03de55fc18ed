package wizard

import "github.com/jask/edgeaudit/internal/api"

// Step is one state of the submission wizard. Each variant carries only the
// data that is valid at that step.
type Step interface {
	Name() string
	step()
}

// ChoosingMode is the initial step. Notice holds the error that returned the
// wizard here, if any.
type ChoosingMode struct {
	Notice error
}

// SelectingTemplate lists the catalog. Loading is true until the fetch
// issued on entry completes. Previous names the template chosen before the
// user stepped back, so the picker can restore its cursor.
type SelectingTemplate struct {
	Catalog  []api.Template
	Loading  bool
	Previous string
}

// SelectingQualifier holds the chosen template.
type SelectingQualifier struct {
	Catalog  []api.Template
	Template api.Template
}

// Confirming holds the complete request awaiting submit.
type Confirming struct {
	Catalog []api.Template
	Request Request
}

// Submitting is the in-flight step; no second submit is accepted.
type Submitting struct {
	Catalog []api.Template
	Request Request
}

// Succeeded is terminal for the flow; the consumer navigates to AuditID.
type Succeeded struct {
	Request Request
	AuditID string
	Score   float64
}

// Failed keeps the request so the user can go back to Confirming and resubmit.
type Failed struct {
	Catalog []api.Template
	Request Request
	Reason  string
	Err     error
}

func (ChoosingMode) Name() string       { return "choosing-mode" }
func (SelectingTemplate) Name() string  { return "selecting-template" }
func (SelectingQualifier) Name() string { return "selecting-qualifier" }
func (Confirming) Name() string         { return "confirming" }
func (Submitting) Name() string         { return "submitting" }
func (Succeeded) Name() string          { return "succeeded" }
func (Failed) Name() string             { return "failed" }

func (ChoosingMode) step()       {}
func (SelectingTemplate) step()  {}
func (SelectingQualifier) step() {}
func (Confirming) step()         {}
func (Submitting) step()         {}
func (Succeeded) step()          {}
func (Failed) step()             {}

func cloneCatalog(in []api.Template) []api.Template {
	if in == nil {
		return nil
	}
	out := make([]api.Template, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
