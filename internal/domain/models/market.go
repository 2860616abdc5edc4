package models

import "time"

// Bar is one OHLCV candle for a symbol. Bars are ordered by EpochTime per
// symbol and immutable once ingested.
type Bar struct {
	Symbol        string
	EpochTime     int64 // unix seconds
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        float64
	TickSize      float64
	Change        float64
	ChangePercent float64
	OpenInterest  float64
}

// Time returns the bar timestamp as time.Time (UTC).
func (b Bar) Time() time.Time { return time.Unix(b.EpochTime, 0).UTC() }

// BookLevel is one price level of an order book side.
type BookLevel struct {
	Price float64
	Qty   float64
}

// OrderBookSnapshot is one observed depth update for a symbol.
// Bids are ordered best-first (descending price), asks best-first (ascending).
type OrderBookSnapshot struct {
	Symbol          string
	EpochTime       int64
	Bids            []BookLevel
	Asks            []BookLevel
	LastTradedPrice float64
	LastTradedQty   float64
	TotalBuyQty     float64
	TotalSellQty    float64
}
