package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"StockFeatures/internal/model"
)

// RESTFetcher implements Fetcher against a plain JSON bars endpoint
// (GET {BaseURL}/api/v1/bars?symbol=..&interval=..).
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string) *RESTFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bars endpoint.
type restBar struct {
	Timestamp int64    `json:"timestamp"`
	Open      float64  `json:"open"`
	High      float64  `json:"high"`
	Low       float64  `json:"low"`
	Close     float64  `json:"close"`
	AdjClose  *float64 `json:"adj_close"`
	Volume    float64  `json:"volume"`
}

func (f *RESTFetcher) endpoint(symbol string, q Query) string {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", q.Interval)
	if !q.Start.IsZero() {
		params.Set("start", q.Start.Format(time.DateOnly))
		if !q.End.IsZero() {
			params.Set("end", q.End.Format(time.DateOnly))
		}
	} else {
		params.Set("period", q.Period)
	}
	return fmt.Sprintf("%s/api/v1/bars?%s", f.BaseURL, params.Encode())
}

func (f *RESTFetcher) Fetch(ctx context.Context, symbol string, q Query) ([]model.OHLCV, error) {
	q = q.WithDefaults()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint(symbol, q), nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %v: %w", err, model.ErrDataSourceUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s: %w", resp.StatusCode, string(body), model.ErrDataSourceUnavailable)
	}
	var raw []restBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bars: %v: %w", err, model.ErrDataSourceUnavailable)
	}
	bars := make([]model.OHLCV, len(raw))
	for i, rb := range raw {
		bars[i] = model.OHLCV{
			Time:     time.Unix(rb.Timestamp, 0).UTC(),
			Open:     rb.Open,
			High:     rb.High,
			Low:      rb.Low,
			Close:    rb.Close,
			AdjClose: rb.Close,
			Volume:   rb.Volume,
		}
		if rb.AdjClose != nil {
			bars[i].AdjClose = *rb.AdjClose
		}
	}
	model.SortBars(bars)
	return bars, nil
}
