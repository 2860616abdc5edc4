package book

import "FeatureMill/internal/domain/models"

// ColumnNames lists the emitted order book columns.
var ColumnNames = []string{
	"weighted_bid_price",
	"weighted_ask_price",
	"total_bid_volume",
	"total_ask_volume",
	"spread",
	"buy_sell_pressure_ratio",
	"intraday_price_range",
	"price_movement_open_close",
}

// Extract derives depth features from one snapshot paired with the bar that
// closed at the same epoch. Empty or one-sided books degrade the dependent
// columns to the unavailable marker, never to an error.
func Extract(snap models.OrderBookSnapshot, bar models.Bar) map[string]float64 {
	out := make(map[string]float64, len(ColumnNames))

	wBid, bidVol := weightedPrice(snap.Bids)
	wAsk, askVol := weightedPrice(snap.Asks)

	out["weighted_bid_price"] = wBid
	out["weighted_ask_price"] = wAsk
	out["total_bid_volume"] = bidVol
	out["total_ask_volume"] = askVol

	out["spread"] = models.Unavailable()
	if len(snap.Bids) > 0 && len(snap.Asks) > 0 {
		out["spread"] = snap.Asks[0].Price - snap.Bids[0].Price
	}

	out["buy_sell_pressure_ratio"] = models.Unavailable()
	if askVol > 0 && !models.IsUnavailable(bidVol) {
		out["buy_sell_pressure_ratio"] = bidVol / askVol
	}

	out["intraday_price_range"] = bar.High - bar.Low
	out["price_movement_open_close"] = bar.Close - bar.Open

	return out
}

// weightedPrice returns the quantity-weighted average price of one book side
// and its total quantity. An empty side yields the unavailable marker and a
// zero volume.
func weightedPrice(levels []models.BookLevel) (price, volume float64) {
	if len(levels) == 0 {
		return models.Unavailable(), 0
	}
	var notional, qty float64
	for _, l := range levels {
		notional += l.Price * l.Qty
		qty += l.Qty
	}
	if qty == 0 {
		return models.Unavailable(), 0
	}
	return notional / qty, qty
}

// Absent produces the row values for a bar epoch with no snapshot at all:
// every book-derived column is unavailable, only the bar-derived ones are
// computed.
func Absent(bar models.Bar) map[string]float64 {
	out := make(map[string]float64, len(ColumnNames))
	for _, name := range ColumnNames {
		out[name] = models.Unavailable()
	}
	out["intraday_price_range"] = bar.High - bar.Low
	out["price_movement_open_close"] = bar.Close - bar.Open
	return out
}

// Empty reports whether a snapshot carries no resting liquidity on either
// side.
func Empty(snap models.OrderBookSnapshot) bool {
	return len(snap.Bids) == 0 && len(snap.Asks) == 0
}
