package book

import (
	"testing"

	"FeatureMill/internal/domain/models"
)

func TestExtractOneSidedBook(t *testing.T) {
	snap := models.OrderBookSnapshot{
		Symbol:    "TEST",
		EpochTime: 1700000000,
		Bids:      []models.BookLevel{{Price: 99, Qty: 10}},
		Asks:      nil,
	}
	bar := models.Bar{Symbol: "TEST", EpochTime: 1700000000, Open: 99, High: 100, Low: 98, Close: 99.5}

	out := Extract(snap, bar)

	if out["weighted_bid_price"] != 99 {
		t.Fatalf("weighted bid price: got %v", out["weighted_bid_price"])
	}
	if out["total_bid_volume"] != 10 {
		t.Fatalf("total bid volume: got %v", out["total_bid_volume"])
	}
	if !models.IsUnavailable(out["weighted_ask_price"]) {
		t.Fatalf("empty ask side must yield unavailable weighted price")
	}
	if out["total_ask_volume"] != 0 {
		t.Fatalf("empty ask side must yield zero volume, got %v", out["total_ask_volume"])
	}
	if !models.IsUnavailable(out["spread"]) {
		t.Fatalf("spread needs both sides, got %v", out["spread"])
	}
	if !models.IsUnavailable(out["buy_sell_pressure_ratio"]) {
		t.Fatalf("pressure ratio with zero ask volume must be unavailable, got %v", out["buy_sell_pressure_ratio"])
	}
	if out["intraday_price_range"] != 2 {
		t.Fatalf("intraday range: got %v", out["intraday_price_range"])
	}
	if out["price_movement_open_close"] != 0.5 {
		t.Fatalf("open-close movement: got %v", out["price_movement_open_close"])
	}
}

func TestExtractWeightedPrices(t *testing.T) {
	snap := models.OrderBookSnapshot{
		Bids: []models.BookLevel{{Price: 100, Qty: 1}, {Price: 98, Qty: 3}},
		Asks: []models.BookLevel{{Price: 101, Qty: 2}, {Price: 103, Qty: 2}},
	}
	bar := models.Bar{Open: 100, High: 102, Low: 97, Close: 101}
	out := Extract(snap, bar)

	if out["weighted_bid_price"] != 98.5 {
		t.Fatalf("weighted bid: got %v", out["weighted_bid_price"])
	}
	if out["weighted_ask_price"] != 102 {
		t.Fatalf("weighted ask: got %v", out["weighted_ask_price"])
	}
	if out["spread"] != 1 {
		t.Fatalf("spread: got %v", out["spread"])
	}
	if out["buy_sell_pressure_ratio"] != 1 {
		t.Fatalf("pressure ratio: got %v", out["buy_sell_pressure_ratio"])
	}
}

func TestAbsentSnapshot(t *testing.T) {
	bar := models.Bar{Open: 10, High: 12, Low: 9, Close: 11}
	out := Absent(bar)
	for _, name := range []string{
		"weighted_bid_price", "weighted_ask_price",
		"total_bid_volume", "total_ask_volume",
		"spread", "buy_sell_pressure_ratio",
	} {
		if !models.IsUnavailable(out[name]) {
			t.Fatalf("%s must be unavailable without a snapshot", name)
		}
	}
	if out["intraday_price_range"] != 3 {
		t.Fatalf("intraday range: got %v", out["intraday_price_range"])
	}
	if out["price_movement_open_close"] != 1 {
		t.Fatalf("open-close movement: got %v", out["price_movement_open_close"])
	}
}
