package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FeatureMill/internal/domain/models"
	"FeatureMill/internal/domain/repository"
	pkgkafka "FeatureMill/pkg/kafka"
)

// ClickHouseStorage implements Storage and MarketSource for ClickHouse.
type ClickHouseStorage struct {
	db            *sql.DB
	barTable      string
	snapshotTable string
	featureTable  string
	resultTable   string
}

// NewClickHouseStorage creates ClickHouse storage over the named tables.
func NewClickHouseStorage(db *sql.DB, barTable, snapshotTable, featureTable, resultTable string) *ClickHouseStorage {
	return &ClickHouseStorage{
		db:            db,
		barTable:      barTable,
		snapshotTable: snapshotTable,
		featureTable:  featureTable,
		resultTable:   resultTable,
	}
}

func (s *ClickHouseStorage) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseStorage) StoreBar(ctx context.Context, b *models.Bar) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, open, high, low, close, volume, tick_size, change, change_percent, open_interest) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.barTable)
	_, err := s.db.ExecContext(ctx, q,
		time.Unix(b.EpochTime, 0),
		b.Symbol,
		b.Open,
		b.High,
		b.Low,
		b.Close,
		b.Volume,
		b.TickSize,
		b.Change,
		b.ChangePercent,
		b.OpenInterest,
	)
	return err
}

func (s *ClickHouseStorage) StoreBarBatch(ctx context.Context, bars []*models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	// Chunk size tuned to 2000 rows per batch.
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*11)
		for _, b := range bars[start:end] {
			if b == nil || b.Symbol == "" || b.EpochTime == 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				time.Unix(b.EpochTime, 0),
				b.Symbol,
				b.Open,
				b.High,
				b.Low,
				b.Close,
				b.Volume,
				b.TickSize,
				b.Change,
				b.ChangePercent,
				b.OpenInterest,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, open, high, low, close, volume, tick_size, change, change_percent, open_interest) VALUES %s", s.barTable, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// Bars reads the time-ordered bar series for one symbol.
func (s *ClickHouseStorage) Bars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	q := fmt.Sprintf("SELECT symbol, ts, open, high, low, close, volume, tick_size, change, change_percent, open_interest FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts ASC", s.barTable)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var out []models.Bar
	for rows.Next() {
		var b models.Bar
		var ts time.Time
		if err := rows.Scan(&b.Symbol, &ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.TickSize, &b.Change, &b.ChangePercent, &b.OpenInterest); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.EpochTime = ts.Unix()
		out = append(out, b)
	}
	return out, rows.Err()
}

// Snapshots reads the time-ordered order book snapshots for one symbol.
// Depth levels are stored best-first as parallel price/quantity arrays.
func (s *ClickHouseStorage) Snapshots(ctx context.Context, symbol string, from, to time.Time) ([]models.OrderBookSnapshot, error) {
	q := fmt.Sprintf("SELECT symbol, ts, bid_prices, bid_qtys, ask_prices, ask_qtys, last_traded_price, last_traded_qty, total_buy_qty, total_sell_qty FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts ASC", s.snapshotTable)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.OrderBookSnapshot
	for rows.Next() {
		var (
			snap               models.OrderBookSnapshot
			ts                 time.Time
			bidPrices, bidQtys []float64
			askPrices, askQtys []float64
		)
		if err := rows.Scan(&snap.Symbol, &ts, &bidPrices, &bidQtys, &askPrices, &askQtys,
			&snap.LastTradedPrice, &snap.LastTradedQty, &snap.TotalBuyQty, &snap.TotalSellQty); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.EpochTime = ts.Unix()
		snap.Bids = zipLevels(bidPrices, bidQtys)
		snap.Asks = zipLevels(askPrices, askQtys)
		out = append(out, snap)
	}
	return out, rows.Err()
}

func zipLevels(prices, qtys []float64) []models.BookLevel {
	n := len(prices)
	if len(qtys) < n {
		n = len(qtys)
	}
	levels := make([]models.BookLevel, n)
	for i := 0; i < n; i++ {
		levels[i] = models.BookLevel{Price: prices[i], Qty: qtys[i]}
	}
	return levels
}

// StoreFeatureRows persists one assembled table. The column set varies with
// the schema, so rows land in a Map(String, Float64) column.
func (s *ClickHouseStorage) StoreFeatureRows(ctx context.Context, table string, rows []models.FeatureRow) error {
	if table == "" {
		table = s.featureTable
	}
	if len(rows) == 0 {
		return nil
	}
	const chunkSize = 500
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*3)
		for _, r := range rows[start:end] {
			values = append(values, "(?, ?, ?)")
			args = append(args, time.Unix(r.EpochTime, 0), r.Symbol, r.Values)
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, features) VALUES %s", table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseStorage) StoreSweepResults(ctx context.Context, results []models.SweepResult) error {
	if len(results) == 0 {
		return nil
	}
	values := make([]string, 0, len(results))
	args := make([]interface{}, 0, len(results)*7)
	now := time.Now()
	for _, r := range results {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, now, r.Indicator.Name, r.Model.Key(), string(r.State), r.Metric, r.ModelRef, r.Cause)
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, indicator_set, model_params, state, metric, model_ref, cause) VALUES %s", s.resultTable, strings.Join(values, ","))
	_, err := s.db.ExecContext(ctx, q, args...)
	return err
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // Managed by pkg
}

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer    *pkgkafka.Producer
	barTopic    string
	resultTopic string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, barTopic, resultTopic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, barTopic: barTopic, resultTopic: resultTopic}
}

func barPayload(b *models.Bar) map[string]interface{} {
	return map[string]interface{}{
		"symbol": b.Symbol,
		"t":      b.EpochTime,
		"o":      b.Open,
		"h":      b.High,
		"l":      b.Low,
		"c":      b.Close,
		"v":      b.Volume,
	}
}

func (p *KafkaPublisher) PublishBar(ctx context.Context, b *models.Bar) error {
	return p.producer.Publish(ctx, p.barTopic, []byte(b.Symbol), barPayload(b))
}

func (p *KafkaPublisher) PublishBarBatch(ctx context.Context, bars []*models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(bars))
	for i, b := range bars {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(b.Symbol),
			Value: barPayload(b),
		}
	}
	return p.producer.PublishBatch(ctx, p.barTopic, msgs)
}

func (p *KafkaPublisher) PublishResult(ctx context.Context, r *models.SweepResult) error {
	return p.producer.Publish(ctx, p.resultTopic, []byte(r.Indicator.Name), map[string]interface{}{
		"cell":      r.Cell(),
		"state":     string(r.State),
		"metric":    r.Metric,
		"model_ref": r.ModelRef,
		"cause":     r.Cause,
	})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
