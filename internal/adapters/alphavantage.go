package adapters

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // series time zones such as US/Eastern
)

const (
	AlphaVantageName       = "alphavantage"
	alphaVantageDefaultURL = "https://www.alphavantage.co"
)

// AlphaVantageAdapter serves search, quote and candles from Alpha Vantage.
type AlphaVantageAdapter struct {
	client *Client
}

func NewAlphaVantageAdapter(cfg ProviderConfig) *AlphaVantageAdapter {
	return &AlphaVantageAdapter{client: NewClient(AlphaVantageName, "apikey", alphaVantageDefaultURL, cfg)}
}

func (av *AlphaVantageAdapter) Name() string     { return AlphaVantageName }
func (av *AlphaVantageAdapter) Configured() bool { return av.client.HasKey() }

// BudgetStatus reports the client's daily request usage.
func (av *AlphaVantageAdapter) BudgetStatus() (used, total int, resetTime time.Time) {
	return av.client.BudgetStatus()
}

// avNotice holds the fields Alpha Vantage uses to report failures with a 200.
type avNotice struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (n avNotice) failure(symbol string) error {
	switch {
	case n.ErrorMessage != "":
		return NewSemanticError(AlphaVantageName, symbol, n.ErrorMessage)
	case n.Note != "":
		// usually the call frequency message
		return NewSemanticError(AlphaVantageName, symbol, "rate limited: "+n.Note)
	case n.Information != "":
		return NewSemanticError(AlphaVantageName, symbol, n.Information)
	}
	return nil
}

// avSymbol converts dotted class shares to the dash form Alpha Vantage uses.
func avSymbol(symbol string) string {
	if i := strings.LastIndexByte(symbol, '.'); i > 0 && len(symbol)-i == 2 {
		return symbol[:i] + "-" + symbol[i+1:]
	}
	return symbol
}

type avSearchResponse struct {
	avNotice
	BestMatches []map[string]string `json:"bestMatches"`
}

func avRegionExchange(region string) string {
	if strings.EqualFold(region, "United States") {
		return "US"
	}
	return region
}

func (av *AlphaVantageAdapter) Search(ctx context.Context, query string, limit int) ([]SearchCandidate, error) {
	params := url.Values{"function": {"SYMBOL_SEARCH"}, "keywords": {query}}
	var resp avSearchResponse
	if err := av.client.GetJSON(ctx, "", "/query", params, &resp); err != nil {
		return nil, err
	}
	if err := resp.failure(""); err != nil {
		return nil, err
	}
	out := make([]SearchCandidate, 0, len(resp.BestMatches))
	for _, m := range resp.BestMatches {
		symbol := m["1. symbol"]
		if symbol == "" {
			continue
		}
		out = append(out, SearchCandidate{
			Symbol:        symbol,
			DisplaySymbol: symbol,
			Description:   m["2. name"],
			Type:          m["3. type"],
			Exchange:      avRegionExchange(m["4. region"]),
			Provider:      AlphaVantageName,
		})
	}
	return out, nil
}

type avGlobalQuote struct {
	avNotice
	GlobalQuote map[string]string `json:"Global Quote"`
}

type avOverview struct {
	avNotice
	Symbol               string `json:"Symbol"`
	Name                 string `json:"Name"`
	Exchange             string `json:"Exchange"`
	Currency             string `json:"Currency"`
	Country              string `json:"Country"`
	Industry             string `json:"Industry"`
	MarketCapitalization string `json:"MarketCapitalization"`
}

func parseNumber(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func (av *AlphaVantageAdapter) Quote(ctx context.Context, symbol string) (*QuoteResult, error) {
	params := url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {avSymbol(symbol)}}
	var resp avGlobalQuote
	if err := av.client.GetJSON(ctx, symbol, "/query", params, &resp); err != nil {
		return nil, err
	}
	if err := resp.failure(symbol); err != nil {
		return nil, err
	}
	g := resp.GlobalQuote
	if len(g) == 0 {
		return nil, NewSemanticError(AlphaVantageName, symbol, "no quote data returned")
	}

	q := Quote{
		C:  parseNumber(g["05. price"]),
		D:  parseNumber(g["09. change"]),
		DP: parseNumber(g["10. change percent"]),
		H:  parseNumber(g["03. high"]),
		L:  parseNumber(g["04. low"]),
		O:  parseNumber(g["02. open"]),
		PC: parseNumber(g["08. previous close"]),
	}
	if day, err := time.Parse("2006-01-02", g["07. latest trading day"]); err == nil {
		q.T = day.Unix()
	}
	if err := ValidateQuote(AlphaVantageName, symbol, &q); err != nil {
		return nil, err
	}

	res := &QuoteResult{Quote: q, Profile: Profile{Ticker: symbol}}
	var o avOverview
	oparams := url.Values{"function": {"OVERVIEW"}, "symbol": {avSymbol(symbol)}}
	if err := av.client.GetJSON(ctx, symbol, "/query", oparams, &o); err == nil && o.failure(symbol) == nil && o.Name != "" {
		res.Profile = Profile{
			Ticker:               firstNonEmpty(o.Symbol, symbol),
			Name:                 o.Name,
			Exchange:             o.Exchange,
			Currency:             o.Currency,
			Country:              o.Country,
			Industry:             o.Industry,
			MarketCapitalization: parseNumber(o.MarketCapitalization) / 1e6,
		}
	}
	return res, nil
}

// avSeriesParams picks the time-series function for a resolution.
func avSeriesParams(r Resolution) url.Values {
	switch {
	case r.IsIntraday():
		return url.Values{"function": {"TIME_SERIES_INTRADAY"}, "interval": {string(r) + "min"}, "outputsize": {"full"}}
	case r == ResWeekly:
		return url.Values{"function": {"TIME_SERIES_WEEKLY"}}
	default:
		return url.Values{"function": {"TIME_SERIES_DAILY"}, "outputsize": {"full"}}
	}
}

// avSeriesResponse is decoded by hand because the series key embeds the
// interval, e.g. "Time Series (5min)" or "Weekly Time Series".
type avSeriesResponse struct {
	avNotice
	Meta   map[string]string
	Series map[string]map[string]string
}

func (r *avSeriesResponse) UnmarshalJSON(b []byte) error {
	var head struct {
		avNotice
		Meta map[string]string `json:"Meta Data"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	r.avNotice, r.Meta = head.avNotice, head.Meta

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if strings.Contains(k, "Time Series") {
			return json.Unmarshal(v, &r.Series)
		}
	}
	return nil
}

func avLocation(meta map[string]string) *time.Location {
	for k, v := range meta {
		if strings.HasSuffix(k, "Time Zone") {
			if loc, err := time.LoadLocation(v); err == nil {
				return loc
			}
		}
	}
	return time.UTC
}

func (av *AlphaVantageAdapter) Candles(ctx context.Context, req CandleRequest) (*CandleSeries, error) {
	params := avSeriesParams(req.Resolution)
	params.Set("symbol", avSymbol(req.Symbol))

	var resp avSeriesResponse
	if err := av.client.GetJSON(ctx, req.Symbol, "/query", params, &resp); err != nil {
		return nil, err
	}
	if err := resp.failure(req.Symbol); err != nil {
		return nil, err
	}
	if len(resp.Series) == 0 {
		return nil, NewSemanticError(AlphaVantageName, req.Symbol, "no time series in response")
	}

	loc := avLocation(resp.Meta)
	bars := make([]Bar, 0, len(resp.Series))
	for stamp, row := range resp.Series {
		t, err := parseAVTime(stamp, loc)
		if err != nil {
			continue
		}
		bars = append(bars, Bar{
			T: t.Unix(),
			O: parseStrict(row["1. open"]),
			H: parseStrict(row["2. high"]),
			L: parseStrict(row["3. low"]),
			C: parseStrict(row["4. close"]),
			V: parseNumber(row["5. volume"]),
		})
	}
	return BuildSeries(AlphaVantageName, req.Symbol, bars, req.From, req.To)
}

// parseAVTime accepts intraday stamps in the series time zone and dates,
// which are taken as UTC midnight.
func parseAVTime(s string, loc *time.Location) (time.Time, error) {
	if len(s) > len("2006-01-02") {
		return time.ParseInLocation("2006-01-02 15:04:05", s, loc)
	}
	return time.Parse("2006-01-02", s)
}

// parseStrict maps unparsable prices to NaN so the row is filtered out.
func parseStrict(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nan
	}
	return v
}
