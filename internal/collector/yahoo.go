package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/guregu/null/v6"

	"QuantDash/internal/model"
)

const (
	yahooUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxBodyBytes   = 8 << 20
)

// YahooFetcher implements Fetcher using Yahoo Finance public API.
// Price history comes from the v8 chart endpoint; company profiles come from
// the v10 quoteSummary endpoint, which needs a session cookie and crumb.
type YahooFetcher struct {
	Client     *http.Client
	ChartURL   string // host serving /v8/finance/chart and /v1/test/getcrumb
	SummaryURL string // host serving /v10/finance/quoteSummary
	CookieURL  string // page that sets the session cookie
	UserAgent  string
	SymbolMap  map[string]string // maps internal symbol to Yahoo ticker

	mu    sync.Mutex
	crumb string
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string, timeout time.Duration) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	jar, _ := cookiejar.New(nil)
	return &YahooFetcher{
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			Jar:       jar,
		},
		ChartURL:   "https://query1.finance.yahoo.com",
		SummaryURL: "https://query2.finance.yahoo.com",
		CookieURL:  "https://finance.yahoo.com",
		UserAgent:  yahooUserAgent,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[strings.ToUpper(symbol)]; ok {
		return mapped
	}
	return symbol
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *yahooError) notFound() bool {
	return strings.EqualFold(e.Code, "Not Found") || strings.Contains(e.Description, "No data found")
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GMTOffset int64 `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

// yahooSummary is the response structure from Yahoo Finance quoteSummary API.
type yahooSummary struct {
	QuoteSummary struct {
		Result []struct {
			Price *struct {
				LongName  string `json:"longName"`
				MarketCap struct {
					Raw *float64 `json:"raw"`
				} `json:"marketCap"`
			} `json:"price"`
			AssetProfile *struct {
				Sector              string `json:"sector"`
				Industry            string `json:"industry"`
				Country             string `json:"country"`
				Website             string `json:"website"`
				LongBusinessSummary string `json:"longBusinessSummary"`
			} `json:"assetProfile"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

func (f *YahooFetcher) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "history")
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.ChartURL, url.PathEscape(f.yahooSymbol(symbol)), q.Encode())

	body, status, err := f.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		if status != http.StatusOK {
			return nil, fmt.Errorf("yahoo: status %d, body: %s", status, snippet(body))
		}
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if e := chart.Chart.Error; e != nil {
		if e.notFound() {
			return nil, nil
		}
		return nil, fmt.Errorf("yahoo api error: %s", e.Description)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", status, snippet(body))
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	offset := time.Duration(result.Meta.GMTOffset) * time.Second
	bars := make([]model.PriceBar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		c := at(quote.Close, i)
		if c == nil {
			continue // skip null bars (holidays etc.)
		}
		bars = append(bars, model.PriceBar{
			Date:   model.TruncateDay(time.Unix(ts, 0).UTC().Add(offset)),
			Open:   valueOr(at(quote.Open, i), *c),
			High:   valueOr(at(quote.High, i), *c),
			Low:    valueOr(at(quote.Low, i), *c),
			Close:  *c,
			Volume: int64(valueOr(at(quote.Volume, i), 0)),
		})
	}
	return normalizeBars(bars, start, end), nil
}

func (f *YahooFetcher) FetchInfo(ctx context.Context, symbol string) (*model.CompanyInfo, error) {
	crumb, err := f.getCrumb(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("modules", "price,assetProfile")
	q.Set("crumb", crumb)
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", f.SummaryURL, url.PathEscape(f.yahooSymbol(symbol)), q.Encode())

	body, status, err := f.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	if status == http.StatusUnauthorized {
		f.resetCrumb()
		return nil, fmt.Errorf("yahoo: crumb rejected, status %d", status)
	}

	var summary yahooSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		if status != http.StatusOK {
			return nil, fmt.Errorf("yahoo: status %d, body: %s", status, snippet(body))
		}
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if e := summary.QuoteSummary.Error; e != nil {
		if e.notFound() {
			return &model.CompanyInfo{}, nil
		}
		return nil, fmt.Errorf("yahoo api error: %s", e.Description)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", status, snippet(body))
	}

	info := &model.CompanyInfo{}
	if len(summary.QuoteSummary.Result) == 0 {
		return info, nil
	}
	r := summary.QuoteSummary.Result[0]
	if p := r.Price; p != nil {
		info.Name = p.LongName
		if p.MarketCap.Raw != nil {
			info.MarketCap = null.IntFrom(int64(*p.MarketCap.Raw))
		}
	}
	if a := r.AssetProfile; a != nil {
		info.Sector = model.OptionalString(a.Sector)
		info.Industry = model.OptionalString(a.Industry)
		info.Country = model.OptionalString(a.Country)
		info.Website = model.OptionalString(a.Website)
		info.Summary = model.OptionalString(a.LongBusinessSummary)
	}
	return info, nil
}

// getCrumb performs the cookie + crumb handshake once and reuses the crumb
// until Yahoo rejects it.
func (f *YahooFetcher) getCrumb(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.crumb != "" {
		return f.crumb, nil
	}

	// The cookie page may answer with an error status but still sets the cookie.
	if _, _, err := f.get(ctx, f.CookieURL); err != nil {
		return "", fmt.Errorf("yahoo cookie: %w", err)
	}
	body, status, err := f.get(ctx, f.ChartURL+"/v1/test/getcrumb")
	if err != nil {
		return "", fmt.Errorf("yahoo crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if status != http.StatusOK || crumb == "" || strings.Contains(crumb, "<") {
		return "", fmt.Errorf("yahoo crumb: invalid response, status %d", status)
	}
	f.crumb = crumb
	return crumb, nil
}

func (f *YahooFetcher) resetCrumb() {
	f.mu.Lock()
	f.crumb = ""
	f.mu.Unlock()
}

func (f *YahooFetcher) get(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", f.UserAgent)

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func at(xs []*float64, i int) *float64 {
	if i < len(xs) {
		return xs[i]
	}
	return nil
}

func valueOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

func snippet(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
