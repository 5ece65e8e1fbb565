package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/guregu/null/v6"

	"QuantDash/internal/model"
)

// RESTFetcher implements Fetcher against a generic JSON market-data REST API:
//
//	GET {base}/api/v1/bars/daily?symbol=S&start=YYYY-MM-DD&end=YYYY-MM-DD -> [bar, ...]
//	GET {base}/api/v1/profile?symbol=S                                    -> profile
//
// A 404 from either endpoint means the symbol is unknown.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration) *RESTFetcher {
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
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape of a daily bar. Date wins over Timestamp
// when both are present.
type restBar struct {
	Date      string  `json:"date"`
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

type restProfile struct {
	Name      string `json:"name"`
	Sector    string `json:"sector"`
	Industry  string `json:"industry"`
	Country   string `json:"country"`
	Website   string `json:"website"`
	MarketCap *int64 `json:"market_cap"`
	Summary   string `json:"summary"`
}

func (f *RESTFetcher) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("start", start.Format(model.DateLayout))
	q.Set("end", end.Format(model.DateLayout))

	var raw []restBar
	found, err := f.getJSON(ctx, "/api/v1/bars/daily?"+q.Encode(), &raw)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	if !found {
		return nil, nil
	}

	bars := make([]model.PriceBar, 0, len(raw))
	for _, rb := range raw {
		var date time.Time
		if rb.Date != "" {
			d, err := time.Parse(model.DateLayout, rb.Date)
			if err != nil {
				return nil, fmt.Errorf("decode bars: bad date %q: %w", rb.Date, err)
			}
			date = d
		} else {
			date = model.TruncateDay(time.Unix(rb.Timestamp, 0).UTC())
		}
		bars = append(bars, model.PriceBar{
			Date:   date,
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		})
	}
	return normalizeBars(bars, start, end), nil
}

func (f *RESTFetcher) FetchInfo(ctx context.Context, symbol string) (*model.CompanyInfo, error) {
	var p restProfile
	found, err := f.getJSON(ctx, "/api/v1/profile?symbol="+url.QueryEscape(symbol), &p)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	if !found {
		return &model.CompanyInfo{}, nil
	}
	info := &model.CompanyInfo{
		Name:     p.Name,
		Sector:   model.OptionalString(p.Sector),
		Industry: model.OptionalString(p.Industry),
		Country:  model.OptionalString(p.Country),
		Website:  model.OptionalString(p.Website),
		Summary:  model.OptionalString(p.Summary),
	}
	if p.MarketCap != nil {
		info.MarketCap = null.IntFrom(*p.MarketCap)
	}
	return info, nil
}

// getJSON decodes the response of path into v. It reports false without an
// error when the API answers 404.
func (f *RESTFetcher) getJSON(ctx context.Context, path string, v any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+path, nil)
	if err != nil {
		return false, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return false, fmt.Errorf("decode: %w", err)
	}
	return true, nil
}
