package api

import "slices"

// Health is the service liveness report.
type Health struct {
	Status              string `json:"status"`
	SnowflakeConnected  bool   `json:"snowflake_connected"`
	GeminiConfigured    bool   `json:"gemini_configured"`
	BackboardConfigured bool   `json:"backboard_configured"`
}

// OK reports whether the service considers itself healthy.
func (h Health) OK() bool { return h.Status == "ok" }

// Summary aggregates counts and averages across all stored audits.
type Summary struct {
	TotalAudits               int     `json:"total_audits"`
	UniqueStrategies          int     `json:"unique_strategies"`
	AverageEdgeScore          float64 `json:"avg_edge_score"`
	AverageOverfitProbability float64 `json:"avg_overfit_probability"`
	HighRiskCount             int     `json:"high_risk_count"`
}

// AuditSummary is one row of a collection page.
type AuditSummary struct {
	AuditID            string    `json:"audit_id"`
	StrategyName       string    `json:"strategy_name"`
	SelectedAsset      string    `json:"selected_asset,omitempty"`
	EdgeScore          float64   `json:"edge_score"`
	OverfitProbability float64   `json:"overfit_probability"`
	CreatedAt          Timestamp `json:"created_at"`
}

// Page is one page of a filtered, sorted audit collection.
type Page struct {
	Audits   []AuditSummary `json:"audits"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// TotalPages is at least 1 so an empty collection still renders "page 1 of 1".
func (p Page) TotalPages() int {
	if p.PageSize <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// IsLast reports whether no further page exists.
func (p Page) IsLast() bool {
	return p.Page*p.PageSize >= p.Total
}

// EdgeScore is the composite score and its weighted parts.
type EdgeScore struct {
	EdgeScore              float64 `json:"edge_score"`
	OverfitSubScore        float64 `json:"overfit_sub_score"`
	RegimeSubScore         float64 `json:"regime_sub_score"`
	StatSigSubScore        float64 `json:"stat_sig_sub_score"`
	DataLeakageSubScore    float64 `json:"data_leakage_sub_score"`
	ExplainabilitySubScore float64 `json:"explainability_sub_score"`
}

// OverfitScore is the classifier's risk estimate.
type OverfitScore struct {
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`
	Label       string  `json:"label"`
}

// RegimeAnalysis summarises behaviour across market regimes.
type RegimeAnalysis struct {
	CurrentRegime     string   `json:"current_regime"`
	RegimeSensitivity float64  `json:"regime_sensitivity"`
	RegimesTested     []string `json:"regimes_tested"`
}

// MonteCarloResult is the bootstrap significance test outcome.
type MonteCarloResult struct {
	SimulatedSharpeMean float64 `json:"simulated_sharpe_mean"`
	SimulatedSharpeStd  float64 `json:"simulated_sharpe_std"`
	PValue              float64 `json:"p_value"`
	NumSimulations      int     `json:"num_simulations"`
}

// AuditDetail is the full record returned by GET /audit/{id} and POST /audit.
type AuditDetail struct {
	AuditID         string           `json:"audit_id"`
	StrategyName    string           `json:"strategy_name"`
	SelectedAsset   string           `json:"selected_asset,omitempty"`
	CreatedAt       Timestamp        `json:"created_at"`
	EdgeScore       EdgeScore        `json:"edge_score"`
	OverfitScore    OverfitScore     `json:"overfit_score"`
	RegimeAnalysis  RegimeAnalysis   `json:"regime_analysis"`
	MonteCarlo      MonteCarloResult `json:"monte_carlo"`
	Narrative       string           `json:"narrative"`
	Recommendations []string         `json:"recommendations"`
}

// Template is a catalog entry a submission is built from. Assets is the
// declared qualifier set.
type Template struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Assets         []string `json:"assets"`
	BacktestSharpe float64  `json:"backtest_sharpe"`
}

// Clone returns a copy that shares no slices with t.
func (t Template) Clone() Template {
	t.Assets = slices.Clone(t.Assets)
	return t
}

// HasAsset reports whether asset is in the template's qualifier set.
func (t Template) HasAsset(asset string) bool {
	return slices.Contains(t.Assets, asset)
}

// StrategySummary is the GET /strategies row: a strategy with its latest score.
type StrategySummary struct {
	Name          string    `json:"strategy_name"`
	LatestScore   float64   `json:"latest_edge_score"`
	AuditCount    int       `json:"audit_count"`
	LastAuditedAt Timestamp `json:"last_audited_at"`
}

// Strategy is the full template record required by the submit payload.
type Strategy struct {
	Name                string    `json:"name"`
	Description         string    `json:"description,omitempty"`
	TickerUniverse      []string  `json:"ticker_universe"`
	BacktestSharpe      float64   `json:"backtest_sharpe"`
	BacktestMaxDrawdown float64   `json:"backtest_max_drawdown"`
	BacktestStartDate   string    `json:"backtest_start_date"`
	BacktestEndDate     string    `json:"backtest_end_date"`
	NumParameters       int       `json:"num_parameters"`
	TrainTestSplitRatio float64   `json:"train_test_split_ratio"`
	RebalanceFrequency  string    `json:"rebalance_frequency"`
	RawReturns          []float64 `json:"raw_returns"`
}

// SubmitRequest is the POST /audit payload. SelectedAsset is omitted from the
// JSON body when empty, which the service reads as "audit the whole strategy".
type SubmitRequest struct {
	Strategy
	SelectedAsset string `json:"selected_asset,omitempty"`
}

// StrategyHistory lists recent audits of one strategy.
type StrategyHistory struct {
	StrategyName string         `json:"strategy_name"`
	Audits       []AuditSummary `json:"audits"`
}
