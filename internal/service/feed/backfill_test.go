package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	xhttp "FeatureMill/pkg/http"
)

func backfillServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/candle") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("symbol") == "" || r.URL.Query().Get("token") == "" {
			t.Errorf("missing query params: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func testWindow() (time.Time, time.Time) {
	to := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	return to.Add(-time.Hour), to
}

func TestBackfillBars(t *testing.T) {
	ts := backfillServer(t, `{"s":"ok","t":[100,400,700],"o":[1,2,3],"h":[2,3,4],"l":[0.5,1.5,2.5],"c":[1.5,2.5,3.5],"v":[10,20,30]}`)
	b := NewBackfill(xhttp.NewClient(), ts.URL, "test-key")

	from, to := testWindow()
	bars, err := b.Bars(context.Background(), "AAPL", "5", from, to)
	if err != nil {
		t.Fatalf("bars: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	if bars[0].Symbol != "AAPL" || bars[0].EpochTime != 100 {
		t.Fatalf("unexpected first bar %+v", bars[0])
	}
	if bars[2].Close != 3.5 || bars[2].Volume != 30 {
		t.Fatalf("unexpected last bar %+v", bars[2])
	}
}

func TestBackfillNoData(t *testing.T) {
	ts := backfillServer(t, `{"s":"no_data"}`)
	b := NewBackfill(xhttp.NewClient(), ts.URL, "test-key")

	from, to := testWindow()
	bars, err := b.Bars(context.Background(), "AAPL", "5", from, to)
	if err != nil {
		t.Fatalf("no_data must not be an error: %v", err)
	}
	if len(bars) != 0 {
		t.Fatalf("expected no bars, got %d", len(bars))
	}
}

func TestBackfillBadStatus(t *testing.T) {
	ts := backfillServer(t, `{"s":"error"}`)
	b := NewBackfill(xhttp.NewClient(), ts.URL, "test-key")

	from, to := testWindow()
	if _, err := b.Bars(context.Background(), "AAPL", "5", from, to); err == nil {
		t.Fatalf("error status must be surfaced")
	}
}

func TestBackfillRaggedResponse(t *testing.T) {
	// Arrays shorter than the timestamp column must be rejected before the
	// copy loop, not blow up inside it.
	cases := []struct {
		name string
		body string
	}{
		{"short_open", `{"s":"ok","t":[1,2,3],"o":[1],"h":[2,3,4],"l":[0,1,2],"c":[1,2,3],"v":[1,1,1]}`},
		{"short_high", `{"s":"ok","t":[1,2,3],"o":[1,2,3],"h":[2],"l":[0,1,2],"c":[1,2,3],"v":[1,1,1]}`},
		{"short_low", `{"s":"ok","t":[1,2,3],"o":[1,2,3],"h":[2,3,4],"l":[0],"c":[1,2,3],"v":[1,1,1]}`},
		{"short_close", `{"s":"ok","t":[1,2,3],"o":[1,2,3],"h":[2,3,4],"l":[0,1,2],"c":[1],"v":[1,1,1]}`},
		{"short_volume", `{"s":"ok","t":[1,2,3],"o":[1,2,3],"h":[2,3,4],"l":[0,1,2],"c":[1,2,3],"v":[1]}`},
		{"missing_ohlv", `{"s":"ok","t":[1,2,3],"c":[1,2,3]}`},
	}
	from, to := testWindow()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := backfillServer(t, tc.body)
			b := NewBackfill(xhttp.NewClient(), ts.URL, "test-key")
			if _, err := b.Bars(context.Background(), "AAPL", "5", from, to); err == nil {
				t.Fatalf("ragged response must be rejected")
			}
		})
	}
}
