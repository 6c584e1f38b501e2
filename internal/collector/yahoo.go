package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"StockFeatures/internal/model"
)

// DefaultYahooURL is the Yahoo Finance chart endpoint root.
const DefaultYahooURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(baseURL, proxyURL string) *YahooFetcher {
	if baseURL == "" {
		baseURL = DefaultYahooURL
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

func (f *YahooFetcher) chartURL(symbol string, q Query) string {
	params := url.Values{}
	params.Set("interval", q.Interval)
	if !q.Start.IsZero() {
		end := q.End
		if end.IsZero() {
			end = time.Now()
		}
		params.Set("period1", strconv.FormatInt(q.Start.Unix(), 10))
		params.Set("period2", strconv.FormatInt(end.Unix(), 10))
	} else {
		params.Set("range", q.Period)
	}
	params.Set("events", "div,splits")
	return fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), params.Encode())
}

// Fetch downloads the chart for symbol. Bars where every price is null
// (holidays and halted sessions) are skipped.
func (f *YahooFetcher) Fetch(ctx context.Context, symbol string, q Query) ([]model.OHLCV, error) {
	q = q.WithDefaults()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.chartURL(symbol, q), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %v: %w", symbol, err, model.ErrDataSourceUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %v: %w", err, model.ErrDataSourceUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		desc := gjson.GetBytes(body, "chart.error.description").String()
		if desc == "" {
			desc = string(body)
		}
		return nil, fmt.Errorf("yahoo %s: status %d, %s: %w", symbol, resp.StatusCode, desc, model.ErrDataSourceUnavailable)
	}
	return parseChart(body, symbol, q.Interval)
}

// parseChart reads bar times in the exchange's UTC offset. Daily and longer
// bars are keyed by their exchange-local session date at UTC midnight, so a
// session opening before midnight UTC keeps its own weekday.
func parseChart(body []byte, symbol, interval string) ([]model.OHLCV, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("yahoo %s: malformed response: %w", symbol, model.ErrDataSourceUnavailable)
	}
	if e := gjson.GetBytes(body, "chart.error"); e.Exists() && e.Type != gjson.Null {
		return nil, fmt.Errorf("yahoo api error: %s: %w", e.Get("description").String(), model.ErrDataSourceUnavailable)
	}
	result := gjson.GetBytes(body, "chart.result.0")
	stamps := result.Get("timestamp").Array()
	if len(stamps) == 0 {
		return nil, fmt.Errorf("yahoo %s: no data returned: %w", symbol, model.ErrDataSourceUnavailable)
	}

	quote := result.Get("indicators.quote.0")
	open := quote.Get("open").Array()
	high := quote.Get("high").Array()
	low := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volume := quote.Get("volume").Array()
	adj := result.Get("indicators.adjclose.0.adjclose").Array()

	loc := time.UTC
	if off := result.Get("meta.gmtoffset"); off.Exists() {
		loc = time.FixedZone(result.Get("meta.exchangeTimezoneName").String(), int(off.Int()))
	}
	daily := sessionInterval(interval)

	bars := make([]model.OHLCV, 0, len(stamps))
	for i, ts := range stamps {
		o, h, l, c := at(open, i), at(high, i), at(low, i), at(closes, i)
		if o.Type == gjson.Null && h.Type == gjson.Null && l.Type == gjson.Null && c.Type == gjson.Null {
			continue
		}
		when := time.Unix(ts.Int(), 0).In(loc)
		if daily {
			when = time.Date(when.Year(), when.Month(), when.Day(), 0, 0, 0, 0, time.UTC)
		}
		bar := model.OHLCV{
			Time:   when,
			Open:   o.Float(),
			High:   h.Float(),
			Low:    l.Float(),
			Close:  c.Float(),
			Volume: at(volume, i).Float(),
		}
		if a := at(adj, i); a.Type == gjson.Number {
			bar.AdjClose = a.Float()
		} else {
			bar.AdjClose = bar.Close
		}
		bars = append(bars, bar)
	}

	model.SortBars(bars)
	return bars, nil
}

// at returns a null result past the end of a short array.
func at(arr []gjson.Result, i int) gjson.Result {
	if i < len(arr) {
		return arr[i]
	}
	return gjson.Result{Type: gjson.Null}
}

// sessionInterval reports whether bars span at least one trading session.
func sessionInterval(interval string) bool {
	switch interval {
	case "1d", "5d", "1wk", "1mo", "3mo":
		return true
	}
	return false
}
