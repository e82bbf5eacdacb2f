package adapters

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	FinnhubName       = "finnhub"
	finnhubDefaultURL = "https://finnhub.io/api/v1"
)

// FinnhubAdapter serves search, quote and candles from Finnhub.
type FinnhubAdapter struct {
	client *Client
}

func NewFinnhubAdapter(cfg ProviderConfig) *FinnhubAdapter {
	return &FinnhubAdapter{client: NewClient(FinnhubName, "token", finnhubDefaultURL, cfg)}
}

func (f *FinnhubAdapter) Name() string     { return FinnhubName }
func (f *FinnhubAdapter) Configured() bool { return f.client.HasKey() }

// BudgetStatus reports the client's daily request usage.
func (f *FinnhubAdapter) BudgetStatus() (used, total int, resetTime time.Time) {
	return f.client.BudgetStatus()
}

type finnhubSearchResponse struct {
	Count  int `json:"count"`
	Result []struct {
		Description   string `json:"description"`
		DisplaySymbol string `json:"displaySymbol"`
		Symbol        string `json:"symbol"`
		Type          string `json:"type"`
	} `json:"result"`
	Error string `json:"error"`
}

func (f *FinnhubAdapter) Search(ctx context.Context, query string, limit int) ([]SearchCandidate, error) {
	var resp finnhubSearchResponse
	if err := f.client.GetJSON(ctx, "", "/search", url.Values{"q": {query}}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, NewSemanticError(FinnhubName, "", resp.Error)
	}
	out := make([]SearchCandidate, 0, len(resp.Result))
	for _, r := range resp.Result {
		if r.Symbol == "" {
			continue
		}
		out = append(out, SearchCandidate{
			Symbol:        r.Symbol,
			DisplaySymbol: r.DisplaySymbol,
			Description:   r.Description,
			Type:          r.Type,
			Provider:      FinnhubName,
		})
	}
	return out, nil
}

// finnhub returns nulls for change fields on some symbols
type finnhubQuote struct {
	C  *float64 `json:"c"`
	D  *float64 `json:"d"`
	DP *float64 `json:"dp"`
	H  *float64 `json:"h"`
	L  *float64 `json:"l"`
	O  *float64 `json:"o"`
	PC *float64 `json:"pc"`
	T  int64    `json:"t"`
}

type finnhubProfile struct {
	Country              string  `json:"country"`
	Currency             string  `json:"currency"`
	Exchange             string  `json:"exchange"`
	FinnhubIndustry      string  `json:"finnhubIndustry"`
	IPO                  string  `json:"ipo"`
	Logo                 string  `json:"logo"`
	MarketCapitalization float64 `json:"marketCapitalization"`
	Name                 string  `json:"name"`
	Ticker               string  `json:"ticker"`
	WebURL               string  `json:"weburl"`
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func (f *FinnhubAdapter) Quote(ctx context.Context, symbol string) (*QuoteResult, error) {
	var raw finnhubQuote
	if err := f.client.GetJSON(ctx, symbol, "/quote", url.Values{"symbol": {symbol}}, &raw); err != nil {
		return nil, err
	}
	q := Quote{
		C: deref(raw.C), D: deref(raw.D), DP: deref(raw.DP),
		H: deref(raw.H), L: deref(raw.L), O: deref(raw.O),
		PC: deref(raw.PC), T: raw.T,
	}
	if err := ValidateQuote(FinnhubName, symbol, &q); err != nil {
		return nil, err
	}

	res := &QuoteResult{Quote: q, Profile: Profile{Ticker: symbol}}
	var p finnhubProfile
	if err := f.client.GetJSON(ctx, symbol, "/stock/profile2", url.Values{"symbol": {symbol}}, &p); err == nil {
		res.Profile = Profile{
			Ticker:               firstNonEmpty(p.Ticker, symbol),
			Name:                 p.Name,
			Exchange:             p.Exchange,
			Currency:             p.Currency,
			Country:              p.Country,
			Industry:             p.FinnhubIndustry,
			Logo:                 p.Logo,
			WebURL:               p.WebURL,
			MarketCapitalization: p.MarketCapitalization,
			IPO:                  p.IPO,
		}
	}
	return res, nil
}

type finnhubCandles struct {
	S     string    `json:"s"`
	T     []int64   `json:"t"`
	O     []float64 `json:"o"`
	H     []float64 `json:"h"`
	L     []float64 `json:"l"`
	C     []float64 `json:"c"`
	V     []float64 `json:"v"`
	Error string    `json:"error"`
}

func finnhubResolution(r Resolution) string {
	switch r {
	case Res5Min, Res30Min, Res60Min, ResDaily, ResWeekly:
		return string(r)
	default:
		return string(ResDaily)
	}
}

func (f *FinnhubAdapter) Candles(ctx context.Context, req CandleRequest) (*CandleSeries, error) {
	params := url.Values{
		"symbol":     {req.Symbol},
		"resolution": {finnhubResolution(req.Resolution)},
		"from":       {strconv.FormatInt(req.From.Unix(), 10)},
		"to":         {strconv.FormatInt(req.To.Unix(), 10)},
	}
	var raw finnhubCandles
	if err := f.client.GetJSON(ctx, req.Symbol, "/stock/candle", params, &raw); err != nil {
		return nil, err
	}
	if raw.Error != "" {
		return nil, NewSemanticError(FinnhubName, req.Symbol, raw.Error)
	}
	switch strings.ToLower(raw.S) {
	case "ok":
	case "no_data":
		return nil, NewSemanticError(FinnhubName, req.Symbol, "no_data")
	default:
		return nil, NewSemanticError(FinnhubName, req.Symbol, "unexpected status "+strconv.Quote(raw.S))
	}

	n := len(raw.T)
	if len(raw.O) != n || len(raw.H) != n || len(raw.L) != n || len(raw.C) != n {
		return nil, NewSemanticError(FinnhubName, req.Symbol, "candle arrays have different lengths")
	}
	bars := make([]Bar, n)
	for i := range raw.T {
		bars[i] = Bar{T: raw.T[i], O: raw.O[i], H: raw.H[i], L: raw.L[i], C: raw.C[i]}
		if i < len(raw.V) {
			bars[i].V = raw.V[i]
		}
	}
	return BuildSeries(FinnhubName, req.Symbol, bars, req.From, req.To)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
