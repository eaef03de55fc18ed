// Package apitest provides an in-memory edgeaudit service for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jask/edgeaudit/internal/api"
)

// Server is an httptest server that implements the edgeaudit routes over
// in-memory data.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	templates   []api.Template
	strategies  map[string]api.Strategy
	audits      []api.AuditDetail
	submitFails string
	requests    []string
	submits     [][]byte
	seq         int
	clock       time.Time
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		strategies: map[string]api.Strategy{},
		clock:      time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// Client returns an api.Client pointed at the server.
func (s *Server) Client(t testing.TB, opts ...api.Option) *api.Client {
	t.Helper()
	opts = append([]api.Option{api.WithHTTPClient(s.Server.Client())}, opts...)
	c, err := api.New(s.URL, opts...)
	if err != nil {
		t.Fatalf("api client: %v", err)
	}
	return c
}

// AddTemplate registers a catalog entry and its full record.
func (s *Server) AddTemplate(name, description string, sharpe float64, assets ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates = append(s.templates, api.Template{
		Name:           name,
		Description:    description,
		Assets:         append([]string(nil), assets...),
		BacktestSharpe: sharpe,
	})
	s.strategies[name] = api.Strategy{
		Name:                name,
		Description:         description,
		TickerUniverse:      append([]string(nil), assets...),
		BacktestSharpe:      sharpe,
		BacktestMaxDrawdown: -0.12,
		BacktestStartDate:   "2019-01-01",
		BacktestEndDate:     "2023-12-31",
		NumParameters:       8,
		TrainTestSplitRatio: 0.7,
		RebalanceFrequency:  "monthly",
		RawReturns:          []float64{0.01, -0.02, 0.03},
	}
}

// AddAudit stores a completed audit. Missing ids and times are filled in.
func (s *Server) AddAudit(a api.AuditDetail) api.AuditDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeLocked(a)
}

// FailSubmits makes every POST /audit fail with a 422 carrying reason.
// An empty reason restores normal behaviour.
func (s *Server) FailSubmits(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitFails = reason
}

// Requests returns every request line seen so far as "METHOD path?query".
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// SubmitBodies returns the raw JSON bodies of every POST /audit.
func (s *Server) SubmitBodies() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.submits...)
}

func (s *Server) storeLocked(a api.AuditDetail) api.AuditDetail {
	s.seq++
	if a.AuditID == "" {
		a.AuditID = fmt.Sprintf("aud-%04d", s.seq)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = api.At(s.clock.Add(time.Duration(s.seq) * time.Minute))
	}
	s.audits = append(s.audits, a)
	return a
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.Health{Status: "ok", GeminiConfigured: true})
	})
	mux.HandleFunc("GET /audits/summary", s.handleSummary)
	mux.HandleFunc("GET /audits", s.handleList)
	mux.HandleFunc("GET /audit/{id}", s.handleGet)
	mux.HandleFunc("POST /audit", s.handleSubmit)
	mux.HandleFunc("GET /strategies", s.handleStrategies)
	mux.HandleFunc("GET /strategies/available", s.handleAvailable)
	mux.HandleFunc("GET /strategies/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("POST /strategies/compare", s.handleCompare)
	mux.HandleFunc("GET /strategies/{name}", s.handleStrategy)
	mux.HandleFunc("GET /strategies/{name}/history", s.handleHistory)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		line := r.Method + " " + r.URL.Path
		if r.URL.RawQuery != "" {
			line += "?" + r.URL.RawQuery
		}
		s.mu.Lock()
		s.requests = append(s.requests, line)
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum api.Summary
	names := map[string]bool{}
	for _, a := range s.audits {
		sum.TotalAudits++
		sum.AverageEdgeScore += a.EdgeScore.EdgeScore
		sum.AverageOverfitProbability += a.OverfitScore.Probability
		if a.OverfitScore.Probability >= 0.7 {
			sum.HighRiskCount++
		}
		names[a.StrategyName] = true
	}
	if sum.TotalAudits > 0 {
		sum.AverageEdgeScore /= float64(sum.TotalAudits)
		sum.AverageOverfitProbability /= float64(sum.TotalAudits)
	}
	sum.UniqueStrategies = len(names)
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	size := atoiDefault(q.Get("page_size"), 20)
	filter := strings.ToLower(q.Get("strategy_name"))

	s.mu.Lock()
	rows := make([]api.AuditSummary, 0, len(s.audits))
	for _, a := range s.audits {
		if filter != "" && !strings.Contains(strings.ToLower(a.StrategyName), filter) {
			continue
		}
		rows = append(rows, summarize(a))
	}
	s.mu.Unlock()

	sortRows(rows, api.SortKey(q.Get("sort_by")), api.SortOrder(q.Get("sort_order")))

	total := len(rows)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	writeJSON(w, http.StatusOK, api.Page{
		Audits:   rows[start:end],
		Total:    total,
		Page:     page,
		PageSize: size,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.audits {
		if a.AuditID == id {
			writeJSON(w, http.StatusOK, a)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Audit not found")
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "unreadable body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits = append(s.submits, raw)

	var req api.SubmitRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid payload")
		return
	}
	if s.submitFails != "" {
		writeDetail(w, http.StatusUnprocessableEntity, s.submitFails)
		return
	}
	full, ok := s.strategies[req.Name]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Strategy not found")
		return
	}
	if req.SelectedAsset != "" && !contains(full.TickerUniverse, req.SelectedAsset) {
		writeDetail(w, http.StatusUnprocessableEntity, "asset not in universe")
		return
	}

	score := 50 + req.BacktestSharpe*10
	if score > 100 {
		score = 100
	}
	detail := s.storeLocked(api.AuditDetail{
		StrategyName:  req.Name,
		SelectedAsset: req.SelectedAsset,
		EdgeScore:     api.EdgeScore{EdgeScore: score},
		OverfitScore:  api.OverfitScore{Probability: 0.3, Confidence: 0.8, Label: "low"},
		Narrative:     "synthetic audit",
	})
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := map[string]api.StrategySummary{}
	for _, a := range s.audits {
		cur := latest[a.StrategyName]
		cur.Name = a.StrategyName
		cur.AuditCount++
		if !a.CreatedAt.Before(cur.LastAuditedAt.Time) {
			cur.LastAuditedAt = a.CreatedAt
			cur.LatestScore = a.EdgeScore.EdgeScore
		}
		latest[a.StrategyName] = cur
	}
	out := make([]api.StrategySummary, 0, len(latest))
	for _, v := range latest {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, http.StatusOK, map[string]any{"strategies": out})
}

func (s *Server) handleAvailable(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"strategies": s.templates})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := atoiDefault(r.URL.Query().Get("limit"), 20)
	s.mu.Lock()
	rows := make([]api.AuditSummary, 0, len(s.audits))
	for _, a := range s.audits {
		rows = append(rows, summarize(a))
	}
	s.mu.Unlock()
	sortRows(rows, api.SortScore, api.Descending)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"strategies": rows})
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	full, ok := s.strategies[r.PathValue("name")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Strategy not found")
		return
	}
	writeJSON(w, http.StatusOK, full)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	limit := atoiDefault(r.URL.Query().Get("limit"), 10)
	s.mu.Lock()
	rows := []api.AuditSummary{}
	for _, a := range s.audits {
		if a.StrategyName == name {
			rows = append(rows, summarize(a))
		}
	}
	s.mu.Unlock()
	sortRows(rows, api.SortSubmittedAt, api.Descending)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	writeJSON(w, http.StatusOK, api.StrategyHistory{StrategyName: name, Audits: rows})
}

// handleCompare answers with the latest audit of each of the first two
// names, or null for a name with no audits.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StrategyNames []string `json:"strategy_names"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid payload")
		return
	}
	names := req.StrategyNames
	if len(names) > 2 {
		names = names[:2]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*api.AuditDetail, 0, len(names))
	for _, name := range names {
		var latest *api.AuditDetail
		for i := range s.audits {
			a := &s.audits[i]
			if a.StrategyName != name {
				continue
			}
			if latest == nil || !a.CreatedAt.Before(latest.CreatedAt.Time) {
				cp := *a
				latest = &cp
			}
		}
		out = append(out, latest)
	}
	writeJSON(w, http.StatusOK, map[string]any{"comparison": out})
}

func summarize(a api.AuditDetail) api.AuditSummary {
	return api.AuditSummary{
		AuditID:            a.AuditID,
		StrategyName:       a.StrategyName,
		SelectedAsset:      a.SelectedAsset,
		EdgeScore:          a.EdgeScore.EdgeScore,
		OverfitProbability: a.OverfitScore.Probability,
		CreatedAt:          a.CreatedAt,
	}
}

func sortRows(rows []api.AuditSummary, key api.SortKey, order api.SortOrder) {
	less := func(i, j int) bool {
		switch key {
		case api.SortScore:
			return rows[i].EdgeScore < rows[j].EdgeScore
		case api.SortRisk:
			return rows[i].OverfitProbability < rows[j].OverfitProbability
		default:
			return rows[i].CreatedAt.Before(rows[j].CreatedAt.Time)
		}
	}
	if order == api.Descending {
		sort.SliceStable(rows, func(i, j int) bool { return less(j, i) })
		return
	}
	sort.SliceStable(rows, less)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, map[string]string{"detail": reason})
}
