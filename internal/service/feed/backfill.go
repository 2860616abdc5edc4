package feed

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"FeatureMill/internal/domain/models"
	xhttp "FeatureMill/pkg/http"
)

// Backfill fetches historical bars over the exchange REST API, used to fill
// the range between the last stored bar and the live stream.
type Backfill struct {
	client  *xhttp.Client
	baseURL string
	apiKey  string
}

func NewBackfill(client *xhttp.Client, baseURL, apiKey string) *Backfill {
	return &Backfill{client: client, baseURL: baseURL, apiKey: apiKey}
}

type restBarsResponse struct {
	Status string    `json:"s"`
	T      []int64   `json:"t"`
	O      []float64 `json:"o"`
	H      []float64 `json:"h"`
	L      []float64 `json:"l"`
	C      []float64 `json:"c"`
	V      []float64 `json:"v"`
}

// Bars pulls the bar history for one symbol, oldest first.
func (b *Backfill) Bars(ctx context.Context, symbol, resolution string, from, to time.Time) ([]*models.Bar, error) {
	var resp restBarsResponse
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: http.MethodGet,
		URL:    b.baseURL + "/candle",
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"resolution": {resolution},
			"from":       {strconv.FormatInt(from.Unix(), 10)},
			"to":         {strconv.FormatInt(to.Unix(), 10)},
			"token":      {b.apiKey},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("backfill %s: %w", symbol, err)
	}
	if resp.Status == "no_data" {
		return nil, nil
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("backfill %s: status %q", symbol, resp.Status)
	}
	n := len(resp.T)
	if len(resp.O) != n || len(resp.H) != n || len(resp.L) != n || len(resp.C) != n || len(resp.V) != n {
		return nil, fmt.Errorf("backfill %s: ragged response (%d ts, %d/%d/%d/%d/%d ohlcv)",
			symbol, n, len(resp.O), len(resp.H), len(resp.L), len(resp.C), len(resp.V))
	}

	bars := make([]*models.Bar, len(resp.T))
	for i := range resp.T {
		bars[i] = &models.Bar{
			Symbol:    symbol,
			EpochTime: resp.T[i],
			Open:      resp.O[i],
			High:      resp.H[i],
			Low:       resp.L[i],
			Close:     resp.C[i],
			Volume:    resp.V[i],
		}
	}
	return bars, nil
}
