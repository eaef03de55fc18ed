// Package wizard drives the multi-step audit submission flow:
//
//	ChoosingMode -> SelectingTemplate -> SelectingQualifier -> Confirming
//	  -> Submitting -> Succeeded | Failed
//
// All transitions happen on the caller's event loop. Remote calls are returned
// as tea.Cmds whose results come back through Update and are applied only if
// the wizard has not moved on since they were issued.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jask/edgeaudit/internal/api"
	"github.com/jask/edgeaudit/internal/metrics"
)

// DefaultSuccessDelay is how long Succeeded is shown before NavigateMsg.
const DefaultSuccessDelay = 1500 * time.Millisecond

var (
	// ErrManualEntryUnavailable is the permanent capability gap for manual entry.
	ErrManualEntryUnavailable = errors.New("manual entry is not available yet")
	// ErrSubmitInFlight rejects a second submit while one is running.
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	// ErrInvalidTransition rejects an event the current step does not accept.
	ErrInvalidTransition = errors.New("invalid wizard transition")
	// ErrUnknownQualifier rejects a qualifier outside the template's set.
	ErrUnknownQualifier = errors.New("qualifier not offered by template")
	// ErrUnknownTemplate rejects a pick that is not in the fetched catalog.
	ErrUnknownTemplate = errors.New("template not in catalog")
	// ErrMissingAuditID is reported when the service accepts a submission
	// but returns no identifier to navigate to.
	ErrMissingAuditID = errors.New("service returned no audit id")
)

// Service is the remote surface the wizard needs.
type Service interface {
	AvailableStrategies(ctx context.Context) ([]api.Template, error)
	GetStrategy(ctx context.Context, name string) (*api.Strategy, error)
	SubmitAudit(ctx context.Context, req api.SubmitRequest) (*api.AuditDetail, error)
}

// NavigateMsg asks the consumer to open the detail view for AuditID.
type NavigateMsg struct {
	AuditID string
}

type catalogMsg struct {
	machine   uint64
	epoch     uint64
	templates []api.Template
	err       error
}

type submitMsg struct {
	machine uint64
	epoch   uint64
	detail  *api.AuditDetail
	err     error
}

type navigateTick struct {
	machine uint64
	epoch   uint64
	auditID string
}

var nextMachineID atomic.Uint64

// Machine is one wizard instance.
type Machine struct {
	id           uint64
	ctx          context.Context
	svc          Service
	logger       *zap.Logger
	successDelay time.Duration
	onOutcome    []func(Outcome)
	now          func() time.Time

	step  Step
	epoch uint64
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the transition logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithSuccessDelay overrides how long Succeeded is displayed before
// navigation. Zero navigates on the next tick.
func WithSuccessDelay(d time.Duration) Option {
	return func(m *Machine) {
		if d >= 0 {
			m.successDelay = d
		}
	}
}

// OnOutcome registers fn to receive every submit outcome.
func OnOutcome(fn func(Outcome)) Option {
	return func(m *Machine) {
		if fn != nil {
			m.onOutcome = append(m.onOutcome, fn)
		}
	}
}

// New returns a wizard in ChoosingMode.
func New(ctx context.Context, svc Service, opts ...Option) *Machine {
	if ctx == nil {
		ctx = context.Background()
	}
	m := &Machine{
		id:           nextMachineID.Add(1),
		ctx:          ctx,
		svc:          svc,
		logger:       zap.NewNop(),
		successDelay: DefaultSuccessDelay,
		now:          time.Now,
		step:         ChoosingMode{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Step returns the current step.
func (m *Machine) Step() Step { return m.step }

// Busy reports whether a submission is in flight; the UI disables the
// submit trigger while it is.
func (m *Machine) Busy() bool {
	_, ok := m.step.(Submitting)
	return ok
}

// Reset discards all selections and returns to ChoosingMode. Results of
// calls issued before the reset are ignored.
func (m *Machine) Reset() {
	m.epoch++
	m.transition(ChoosingMode{})
}

// SelectCatalogMode enters SelectingTemplate and fetches a fresh catalog.
func (m *Machine) SelectCatalogMode() (tea.Cmd, error) {
	if _, ok := m.step.(ChoosingMode); !ok {
		return nil, m.reject("select catalog mode")
	}
	m.epoch++
	m.transition(SelectingTemplate{Loading: true})

	id, epoch, ctx, svc := m.id, m.epoch, m.ctx, m.svc
	return func() tea.Msg {
		templates, err := svc.AvailableStrategies(ctx)
		return catalogMsg{machine: id, epoch: epoch, templates: templates, err: err}
	}, nil
}

// SelectManualEntry surfaces ErrManualEntryUnavailable and leaves the wizard
// in a clean ChoosingMode.
func (m *Machine) SelectManualEntry() error {
	if _, ok := m.step.(ChoosingMode); !ok {
		return m.reject("select manual entry")
	}
	m.transition(ChoosingMode{Notice: ErrManualEntryUnavailable})
	return ErrManualEntryUnavailable
}

// PickTemplate captures t by value and moves to SelectingQualifier. t must
// be in the fetched catalog.
func (m *Machine) PickTemplate(t api.Template) error {
	s, ok := m.step.(SelectingTemplate)
	if !ok || s.Loading {
		return m.reject("pick template")
	}
	found := false
	for _, entry := range s.Catalog {
		if entry.Name == t.Name {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, t.Name)
	}
	m.transition(SelectingQualifier{Catalog: s.Catalog, Template: t.Clone()})
	return nil
}

// PickQualifier narrows the request to one qualifier and moves to Confirming.
func (m *Machine) PickQualifier(q string) error {
	s, ok := m.step.(SelectingQualifier)
	if !ok {
		return m.reject("pick qualifier")
	}
	if q == "" {
		return m.SkipQualifier()
	}
	req, err := NewRequest(s.Template, q)
	if err != nil {
		return err
	}
	m.transition(Confirming{Catalog: s.Catalog, Request: req})
	return nil
}

// SkipQualifier moves to Confirming for the whole template.
func (m *Machine) SkipQualifier() error {
	s, ok := m.step.(SelectingQualifier)
	if !ok {
		return m.reject("skip qualifier")
	}
	req, _ := NewRequest(s.Template, "")
	m.transition(Confirming{Catalog: s.Catalog, Request: req})
	return nil
}

// Back steps one level backward, clearing only what the left step introduced.
// From Failed it returns to Confirming with the request intact.
func (m *Machine) Back() error {
	switch s := m.step.(type) {
	case SelectingTemplate:
		m.epoch++
		m.transition(ChoosingMode{})
	case SelectingQualifier:
		m.transition(SelectingTemplate{Catalog: s.Catalog, Previous: s.Template.Name})
	case Confirming:
		m.transition(SelectingQualifier{Catalog: s.Catalog, Template: s.Request.Template})
	case Failed:
		m.transition(Confirming{Catalog: s.Catalog, Request: s.Request})
	case Submitting:
		return ErrSubmitInFlight
	default:
		return m.reject("back")
	}
	return nil
}

// Submit moves Confirming to Submitting. The returned command re-fetches the
// full template by name, merges the qualifier and posts the audit.
func (m *Machine) Submit() (tea.Cmd, error) {
	var s Confirming
	switch cur := m.step.(type) {
	case Confirming:
		s = cur
	case Submitting:
		return nil, ErrSubmitInFlight
	default:
		return nil, m.reject("submit")
	}

	m.epoch++
	m.transition(Submitting{Catalog: s.Catalog, Request: s.Request})

	id, epoch, ctx, svc, req := m.id, m.epoch, m.ctx, m.svc, s.Request
	return func() tea.Msg {
		full, err := svc.GetStrategy(ctx, req.Template.Name)
		if err != nil {
			return submitMsg{machine: id, epoch: epoch, err: err}
		}
		detail, err := svc.SubmitAudit(ctx, req.Payload(*full))
		return submitMsg{machine: id, epoch: epoch, detail: detail, err: err}
	}, nil
}

// Update applies results of commands this machine issued. It reports whether
// msg belonged to the machine.
func (m *Machine) Update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case catalogMsg:
		if msg.machine != m.id {
			return nil, false
		}
		m.applyCatalog(msg)
		return nil, true
	case submitMsg:
		if msg.machine != m.id {
			return nil, false
		}
		return m.applySubmit(msg), true
	case navigateTick:
		if msg.machine != m.id {
			return nil, false
		}
		s, ok := m.step.(Succeeded)
		if !ok || msg.epoch != m.epoch || s.AuditID != msg.auditID {
			return nil, true
		}
		auditID := s.AuditID
		return func() tea.Msg { return NavigateMsg{AuditID: auditID} }, true
	}
	return nil, false
}

func (m *Machine) applyCatalog(msg catalogMsg) {
	s, ok := m.step.(SelectingTemplate)
	if !ok || !s.Loading || msg.epoch != m.epoch {
		m.logger.Debug("discarding stale catalog", zap.Uint64("epoch", msg.epoch), zap.Uint64("current", m.epoch))
		return
	}
	if msg.err != nil {
		m.logger.Warn("catalog fetch failed", zap.Error(msg.err))
		m.transition(ChoosingMode{Notice: msg.err})
		return
	}
	m.transition(SelectingTemplate{Catalog: cloneCatalog(msg.templates)})
}

func (m *Machine) applySubmit(msg submitMsg) tea.Cmd {
	s, ok := m.step.(Submitting)
	if !ok || msg.epoch != m.epoch {
		m.logger.Debug("discarding stale submission result", zap.Uint64("epoch", msg.epoch), zap.Uint64("current", m.epoch))
		return nil
	}

	err := msg.err
	if err == nil && (msg.detail == nil || msg.detail.AuditID == "") {
		err = ErrMissingAuditID
	}
	if err != nil {
		outcome := Outcome{Request: s.Request, Reason: api.Reason(err), Err: err, At: m.now()}
		m.logger.Warn("submission failed", zap.String("request", s.Request.String()), zap.String("reason", outcome.Reason))
		m.transition(Failed{Catalog: s.Catalog, Request: s.Request, Reason: outcome.Reason, Err: err})
		m.emit(outcome)
		return nil
	}

	outcome := Outcome{
		Request: s.Request,
		AuditID: msg.detail.AuditID,
		Score:   msg.detail.EdgeScore.EdgeScore,
		At:      m.now(),
	}
	m.logger.Info("submission succeeded",
		zap.String("request", s.Request.String()),
		zap.String("audit_id", outcome.AuditID),
		zap.Float64("edge_score", outcome.Score))
	m.transition(Succeeded{Request: s.Request, AuditID: outcome.AuditID, Score: outcome.Score})
	m.emit(outcome)

	id, epoch, auditID := m.id, m.epoch, outcome.AuditID
	return tea.Tick(m.successDelay, func(time.Time) tea.Msg {
		return navigateTick{machine: id, epoch: epoch, auditID: auditID}
	})
}

func (m *Machine) emit(o Outcome) {
	metrics.ObserveSubmission(o.Succeeded())
	for _, fn := range m.onOutcome {
		fn(o)
	}
}

func (m *Machine) transition(next Step) {
	m.logger.Debug("wizard transition", zap.String("from", m.step.Name()), zap.String("to", next.Name()))
	m.step = next
}

func (m *Machine) reject(event string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, m.step.Name())
}
