package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FeatureMill/internal/domain/models"
	"FeatureMill/internal/domain/repository"
	"FeatureMill/internal/schema"
	"FeatureMill/internal/services/book"
	"FeatureMill/internal/services/candles"
	"FeatureMill/internal/services/indicators"
	"FeatureMill/pkg/logger"
)

// ErrIngestionGap marks a time range with no bar data. Callers get an empty
// row slice alongside it and decide whether to treat the gap as fatal.
var ErrIngestionGap = errors.New("no bar data in requested range")

// Assembler joins indicator, order book and candlestick outputs into
// row-aligned feature tables. Row count is driven by the bar series; a bar
// epoch with no matching snapshot keeps its row with unavailable book
// columns.
type Assembler struct {
	registry *schema.Registry
	source   repository.MarketSource
	cfg      indicators.Config
	log      *logger.Logger
	metrics  repository.Metrics
}

type AssemblerOption func(*Assembler)

func WithIndicatorConfig(cfg indicators.Config) AssemblerOption {
	return func(a *Assembler) { a.cfg = cfg }
}

func WithAssemblerMetrics(m repository.Metrics) AssemblerOption {
	return func(a *Assembler) { a.metrics = m }
}

func NewAssembler(reg *schema.Registry, source repository.MarketSource, log *logger.Logger, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		registry: reg,
		source:   source,
		log:      log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds the feature table for one symbol and range under one
// indicator parameter set. The output is deterministic for identical inputs.
func (a *Assembler) Assemble(ctx context.Context, symbol string, from, to time.Time, set models.IndicatorParameterSet) ([]models.FeatureRow, error) {
	bars, err := a.source.Bars(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("load bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		a.log.Warn("no bars in requested range",
			logger.String("symbol", symbol),
			logger.Int64("from", from.Unix()),
			logger.Int64("to", to.Unix()))
		return []models.FeatureRow{}, fmt.Errorf("%s [%d,%d]: %w", symbol, from.Unix(), to.Unix(), ErrIngestionGap)
	}

	snaps, err := a.source.Snapshots(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("load snapshots for %s: %w", symbol, err)
	}
	snapByEpoch := make(map[int64]models.OrderBookSnapshot, len(snaps))
	for _, s := range snaps {
		snapByEpoch[s.EpochTime] = s
	}

	engine := indicators.NewEngine(set, a.cfg)
	columns, err := engine.Compute(ctx, indicators.NewSeries(bars))
	if err != nil {
		return nil, fmt.Errorf("compute indicators for %s: %w", symbol, err)
	}
	for name, vals := range candles.Shapes(bars) {
		columns[name] = vals
	}
	for name, vals := range candles.Patterns(bars) {
		columns[name] = vals
	}
	for name, vals := range baseColumns(bars) {
		columns[name] = vals
	}

	rows := make([]models.FeatureRow, len(bars))
	for i, bar := range bars {
		row := models.FeatureRow{
			Symbol:    symbol,
			EpochTime: bar.EpochTime,
			Values:    make(map[string]float64, a.registry.Len()),
		}

		for name, vals := range columns {
			col, err := a.registry.Resolve(name)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", name, err)
			}
			row.Values[col] = vals[i]
		}

		bookVals := book.Absent(bar)
		if snap, ok := snapByEpoch[bar.EpochTime]; ok {
			bookVals = book.Extract(snap, bar)
		}
		for name, v := range bookVals {
			col, err := a.registry.Resolve(name)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", name, err)
			}
			row.Values[col] = v
		}

		// Registered columns no producer fills stay in the row as
		// unavailable so every row carries the full schema.
		for _, col := range a.registry.Columns() {
			if _, ok := row.Values[col]; !ok {
				row.Values[col] = models.Unavailable()
			}
		}
		rows[i] = row
	}

	if a.metrics != nil {
		a.metrics.RecordFeatureRows(symbol, len(rows))
	}
	a.log.Debug("feature table assembled",
		logger.String("symbol", symbol),
		logger.String("params", set.Name),
		logger.Int("rows", len(rows)),
		logger.Int("columns", a.registry.Len()))
	return rows, nil
}

// baseColumns exposes the raw bar fields under their registered names.
func baseColumns(bars []models.Bar) map[string][]float64 {
	out := map[string][]float64{
		"open":   make([]float64, len(bars)),
		"high":   make([]float64, len(bars)),
		"low":    make([]float64, len(bars)),
		"close":  make([]float64, len(bars)),
		"volume": make([]float64, len(bars)),
	}
	for i, b := range bars {
		out["open"][i] = b.Open
		out["high"][i] = b.High
		out["low"][i] = b.Low
		out["close"][i] = b.Close
		out["volume"][i] = b.Volume
	}
	return out
}
