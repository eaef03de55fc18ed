// Package tui is the interactive terminal client: an audit list with
// debounced filtering, an audit detail view and the submission wizard,
// stacked as screens over a shared header and status line.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/jask/edgeaudit/internal/api"
	"github.com/jask/edgeaudit/internal/loader"
	"github.com/jask/edgeaudit/internal/wizard"
)

// Service is the remote surface the UI uses.
type Service interface {
	wizard.Service
	Health(ctx context.Context) (*api.Health, error)
	Summary(ctx context.Context) (*api.Summary, error)
	ListAudits(ctx context.Context, q api.CollectionQuery) (*api.Page, error)
	GetAudit(ctx context.Context, id string) (*api.AuditDetail, error)
}

// Options configures the App. Zero values fall back to the defaults used
// by the config package.
type Options struct {
	PageSize       int
	DefaultSort    api.SortKey
	FilterDebounce time.Duration
	SuccessDelay   time.Duration
	// RequestTimeout bounds each remote call made by the list, detail and
	// wizard screens. Zero leaves calls unbounded.
	RequestTimeout time.Duration
	Route          Route
	Keys           []KeyBinding
	Logger         *zap.Logger
	OnOutcome      func(wizard.Outcome)
}

// App is the root bubbletea model.
type App struct {
	ctx     context.Context
	svc     Service
	opts    Options
	logger  *zap.Logger
	keys    *KeyRegistry
	screens ScreenStack

	width     int
	height    int
	health    *api.Health
	summary   *api.Summary
	status    string
	statusErr bool
	quitting  bool
}

func New(ctx context.Context, svc Service, opts Options) *App {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	if opts.DefaultSort == "" {
		opts.DefaultSort = api.SortSubmittedAt
	}
	if opts.SuccessDelay <= 0 {
		opts.SuccessDelay = wizard.DefaultSuccessDelay
	}
	if opts.Keys == nil {
		opts.Keys = DefaultKeyBindings()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		ctx:    ctx,
		svc:    svc,
		opts:   opts,
		logger: logger,
		keys:   NewKeyRegistry(opts.Keys),
		status: "Ready",
		width:  100,
		height: 32,
	}
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.loadHealth(), a.loadSummary()}
	a.screens.Push(a.newListScreen())
	switch a.opts.Route.Kind {
	case RouteDetail, RouteNotFound:
		a.screens.Push(a.newDetailScreen(a.opts.Route.AuditID))
	case RouteSubmit:
		a.screens.Push(a.newSubmitScreen())
	}
	a.screens.each(func(s Screen) Screen {
		cmds = append(cmds, s.Init())
		return s
	})
	return tea.Batch(cmds...)
}

// Close tears down every screen. Results still in flight are dropped.
func (a *App) Close() {
	a.screens.CloseAll()
}

func (a *App) newListScreen() *listScreen {
	q := api.DefaultQuery(a.opts.PageSize)
	q.SortKey = a.opts.DefaultSort
	fetch := loader.FetchFunc[api.CollectionQuery, *api.Page](a.svc.ListAudits)
	if a.opts.RequestTimeout > 0 {
		fetch = loader.Bounded(fetch, a.opts.RequestTimeout)
	}
	return newListScreen(a.ctx, fetch, q, a.opts.FilterDebounce, a.keys, a.logger.Named("audits"))
}

func (a *App) newDetailScreen(id string) *detailScreen {
	fetch := loader.FetchFunc[string, *api.AuditDetail](a.svc.GetAudit)
	if a.opts.RequestTimeout > 0 {
		fetch = loader.Bounded(fetch, a.opts.RequestTimeout)
	}
	return newDetailScreen(a.ctx, id, fetch, a.keys, a.logger.Named("detail"), a.width, a.bodyHeight())
}

func (a *App) newSubmitScreen() *submitScreen {
	opts := []wizard.Option{
		wizard.WithLogger(a.logger.Named("wizard")),
		wizard.WithSuccessDelay(a.opts.SuccessDelay),
	}
	if a.opts.OnOutcome != nil {
		opts = append(opts, wizard.OnOutcome(a.opts.OnOutcome))
	}
	svc := boundWizard(a.svc, a.opts.RequestTimeout)
	return newSubmitScreen(wizard.New(a.ctx, svc, opts...), a.keys)
}

// boundWizard gives each wizard call its own deadline. A non-positive d
// returns svc unchanged.
func boundWizard(svc wizard.Service, d time.Duration) wizard.Service {
	if d <= 0 {
		return svc
	}
	return boundedWizardService{svc: svc, timeout: d}
}

type boundedWizardService struct {
	svc     wizard.Service
	timeout time.Duration
}

func (b boundedWizardService) AvailableStrategies(ctx context.Context) ([]api.Template, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.svc.AvailableStrategies(ctx)
}

func (b boundedWizardService) GetStrategy(ctx context.Context, name string) (*api.Strategy, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.svc.GetStrategy(ctx, name)
}

func (b boundedWizardService) SubmitAudit(ctx context.Context, req api.SubmitRequest) (*api.AuditDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.svc.SubmitAudit(ctx, req)
}

func (a *App) loadHealth() tea.Cmd {
	ctx, svc := a.ctx, a.svc
	return func() tea.Msg {
		h, err := svc.Health(ctx)
		return healthMsg{health: h, err: err}
	}
}

func (a *App) loadSummary() tea.Cmd {
	ctx, svc := a.ctx, a.svc
	return func() tea.Msg {
		s, err := svc.Summary(ctx)
		return summaryMsg{summary: s, err: err}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		return a, a.broadcast(tea.WindowSizeMsg{Width: msg.Width, Height: a.bodyHeight()})
	case tea.KeyMsg:
		return a, a.handleKey(msg)
	case StatusMsg:
		a.status, a.statusErr = msg.Text, msg.IsErr
		return a, nil
	case healthMsg:
		if msg.err != nil {
			a.health = nil
			a.logger.Warn("health check failed", zap.Error(msg.err))
			return a, nil
		}
		a.health = msg.health
		return a, nil
	case summaryMsg:
		if msg.err != nil {
			a.logger.Warn("summary fetch failed", zap.Error(msg.err))
			return a, nil
		}
		a.summary = msg.summary
		return a, nil
	case openAuditMsg:
		return a, a.push(a.newDetailScreen(msg.ID))
	case openWizardMsg:
		return a, a.push(a.newSubmitScreen())
	case wizard.NavigateMsg:
		detail := a.newDetailScreen(msg.AuditID)
		if _, ok := a.screens.Top().(*submitScreen); ok {
			a.screens.Replace(detail)
		} else {
			a.screens.Push(detail)
		}
		return a, tea.Batch(detail.Init(), a.loadSummary())
	}
	return a, a.broadcast(msg)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	scope := a.ActiveScope()
	if a.keys.IsAction(msg, "quit", scope) {
		a.quitting = true
		a.Close()
		return tea.Quit
	}
	if a.statusErr {
		a.status, a.statusErr = "", false
	}
	top := a.screens.Top()
	if top == nil {
		return nil
	}
	next, cmd, pop := top.Update(msg)
	if pop {
		if a.screens.Len() == 1 {
			return cmd
		}
		a.screens.Pop()
		return tea.Batch(cmd, a.refreshTop())
	}
	a.screens.items[a.screens.Len()-1] = next
	if a.keys.IsAction(msg, "refresh", scope) {
		cmd = tea.Batch(cmd, a.loadHealth(), a.loadSummary())
	}
	return cmd
}

// refreshTop re-issues the revealed screen's load so it reflects audits
// submitted while it was covered.
func (a *App) refreshTop() tea.Cmd {
	if l, ok := a.screens.Top().(*listScreen); ok {
		return l.refetch()
	}
	return nil
}

func (a *App) push(s Screen) tea.Cmd {
	a.screens.Push(s)
	return s.Init()
}

// broadcast delivers non-key messages to every screen; each ignores
// results it did not issue.
func (a *App) broadcast(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	a.screens.each(func(s Screen) Screen {
		next, cmd, _ := s.Update(msg)
		cmds = append(cmds, cmd)
		return next
	})
	return tea.Batch(cmds...)
}

func (a *App) ActiveScope() string {
	if top := a.screens.Top(); top != nil {
		return top.Scope()
	}
	return "app"
}

func (a *App) bodyHeight() int {
	return max(1, a.height-3)
}

func (a *App) View() string {
	if a.quitting {
		return ""
	}
	body := ""
	if top := a.screens.Top(); top != nil {
		body = top.View(a.width, a.bodyHeight())
	}
	body = ClipHeight(body, a.bodyHeight())
	if gap := a.bodyHeight() - lipgloss.Height(body); gap > 0 {
		body += strings.Repeat("\n", gap)
	}
	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		a.renderHeader(),
		body,
		a.renderStatusBar(),
		a.renderFooter(),
	))
}

func (a *App) renderHeader() string {
	parts := []string{headerAppStyle.Render("edgeaudit")}
	if top := a.screens.Top(); top != nil {
		parts = append(parts, top.Title())
	}
	switch {
	case a.health == nil:
		parts = append(parts, errorStyle.Render("service unreachable"))
	case a.health.OK():
		parts = append(parts, successStyle.Render("service ok"))
	default:
		parts = append(parts, warningStyle.Render("service "+a.health.Status))
	}
	if s := a.summary; s != nil {
		parts = append(parts, fmt.Sprintf("%d audits · %d strategies · avg score %.1f · %d high risk",
			s.TotalAudits, s.UniqueStrategies, s.AverageEdgeScore, s.HighRiskCount))
	}
	return renderBar(headerBarStyle, a.width, strings.Join(parts, "  "), colorMantle)
}
