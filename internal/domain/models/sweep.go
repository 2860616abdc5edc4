package models

import "fmt"

// IndicatorParams holds the per-family window settings for one parameter
// variant. The engine evaluates three named variants (param1..param3) whose
// outputs land in the suffixed registry columns.
type IndicatorParams struct {
	BollingerPeriod      int `yaml:"bollinger_timeperiod"`
	RSIPeriod            int `yaml:"rsi_timeperiod"`
	MACDFast             int `yaml:"macd_fastperiod"`
	MACDSlow             int `yaml:"macd_slowperiod"`
	MACDSignal           int `yaml:"macd_signalperiod"`
	StochasticK          int `yaml:"stochastic_fastk_period"`
	StochasticD          int `yaml:"stochastic_d_period"`
	ADXPeriod            int `yaml:"adx_timeperiod"`
	EMAShort             int `yaml:"ema_short_period"`
	EMALong              int `yaml:"ema_long_period"`
	ATRPeriod            int `yaml:"atr_timeperiod"`
	CCIPeriod            int `yaml:"cci_timeperiod"`
	IchimokuConversion   int `yaml:"ichimoku_conversion_line_period"`
	IchimokuBase         int `yaml:"ichimoku_base_line_periods"`
	IchimokuSpanB        int `yaml:"ichimoku_lagging_span2_periods"`
	IchimokuDisplacement int `yaml:"ichimoku_displacement"`
	FibonacciWindow      int `yaml:"fibonacci_window"`
}

// VariantCount is the number of suffixed parameter variants per family.
const VariantCount = 3

// IndicatorParameterSet is one complete assignment of the three variants,
// enumerated as a unit by the sweep driver. Indicator outputs depend only on
// this set, which makes it the feature-table cache key.
type IndicatorParameterSet struct {
	Name     string
	Variants [VariantCount]IndicatorParams
}

// Key returns a canonical string covering every window value. Two sets with
// identical windows share a key regardless of Name.
func (s IndicatorParameterSet) Key() string {
	k := ""
	for _, v := range s.Variants {
		k += fmt.Sprintf("|bb%d/rsi%d/macd%d-%d-%d/st%d-%d/adx%d/ema%d-%d/atr%d/cci%d/ich%d-%d-%d-%d/fib%d",
			v.BollingerPeriod, v.RSIPeriod,
			v.MACDFast, v.MACDSlow, v.MACDSignal,
			v.StochasticK, v.StochasticD,
			v.ADXPeriod, v.EMAShort, v.EMALong,
			v.ATRPeriod, v.CCIPeriod,
			v.IchimokuConversion, v.IchimokuBase, v.IchimokuSpanB, v.IchimokuDisplacement,
			v.FibonacciWindow)
	}
	return k
}

// ModelParameterSet is one point of the model-fit grid.
// NFeatures == 0 means no feature-selection step (the grid's "None" option).
type ModelParameterSet struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	NFeatures       int
}

// Key returns a canonical string ordered by parameter name; it doubles as
// the lexicographic tie-break when ranking equal-metric results.
func (m ModelParameterSet) Key() string {
	return fmt.Sprintf("max_depth=%d,min_samples_leaf=%d,min_samples_split=%d,n_estimators=%d,n_features=%d",
		m.MaxDepth, m.MinSamplesLeaf, m.MinSamplesSplit, m.NEstimators, m.NFeatures)
}

// CellState tracks a grid cell through the sweep state machine.
type CellState string

const (
	CellPending         CellState = "pending"
	CellFeatureBuilding CellState = "feature_building"
	CellModelFitting    CellState = "model_fitting"
	CellScored          CellState = "scored"
	CellDone            CellState = "done"
	CellFailed          CellState = "failed"
)

// SweepResult is the immutable outcome of one grid cell.
type SweepResult struct {
	Indicator IndicatorParameterSet
	Model     ModelParameterSet
	State     CellState
	Metric    float64
	ModelRef  string
	Cause     string // populated only for failed cells
}

// Cell identifies the originating parameter pair.
func (r SweepResult) Cell() string {
	return r.Indicator.Name + "/" + r.Model.Key()
}
