package adapters

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	PolygonName       = "polygon"
	polygonDefaultURL = "https://api.polygon.io"
)

// PolygonAdapter serves search, quote and candles from Polygon.io.
type PolygonAdapter struct {
	client *Client
}

func NewPolygonAdapter(cfg ProviderConfig) *PolygonAdapter {
	return &PolygonAdapter{client: NewClient(PolygonName, "apiKey", polygonDefaultURL, cfg)}
}

func (p *PolygonAdapter) Name() string     { return PolygonName }
func (p *PolygonAdapter) Configured() bool { return p.client.HasKey() }

// BudgetStatus reports the client's daily request usage.
func (p *PolygonAdapter) BudgetStatus() (used, total int, resetTime time.Time) {
	return p.client.BudgetStatus()
}

// polygonEnvelope carries the status fields shared by every v2/v3 response.
type polygonEnvelope struct {
	Status    string `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func (e polygonEnvelope) failure(symbol string) error {
	switch strings.ToUpper(e.Status) {
	case "OK", "DELAYED", "":
		if e.Error == "" {
			return nil
		}
	}
	msg := firstNonEmpty(e.Error, e.Message, "status "+e.Status)
	return NewSemanticError(PolygonName, symbol, msg)
}

type polygonTickerSearch struct {
	polygonEnvelope
	Results []struct {
		Ticker          string `json:"ticker"`
		Name            string `json:"name"`
		Market          string `json:"market"`
		Locale          string `json:"locale"`
		PrimaryExchange string `json:"primary_exchange"`
		Type            string `json:"type"`
		Active          bool   `json:"active"`
	} `json:"results"`
}

// polygonTypes maps Polygon security type codes to readable names.
var polygonTypes = map[string]string{
	"CS":      "Common Stock",
	"OS":      "Ordinary Shares",
	"ADRC":    "ADR",
	"ADRP":    "ADR",
	"ADRR":    "ADR",
	"ADRW":    "ADR Warrant",
	"PFD":     "Preferred Stock",
	"ETF":     "ETF",
	"ETN":     "ETN",
	"ETV":     "ETV",
	"ETS":     "ETS",
	"FUND":    "Fund",
	"UNIT":    "Unit",
	"RIGHT":   "Right",
	"WARRANT": "Warrant",
	"INDEX":   "Index",
	"SP":      "Structured Product",
	"BOND":    "Bond",
}

func polygonType(code string) string {
	if t, ok := polygonTypes[strings.ToUpper(code)]; ok {
		return t
	}
	return code
}

func (p *PolygonAdapter) Search(ctx context.Context, query string, limit int) ([]SearchCandidate, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{
		"search": {query},
		"active": {"true"},
		"market": {"stocks"},
		"limit":  {strconv.Itoa(limit * 2)},
	}
	var resp polygonTickerSearch
	if err := p.client.GetJSON(ctx, "", "/v3/reference/tickers", params, &resp); err != nil {
		return nil, err
	}
	if err := resp.failure(""); err != nil {
		return nil, err
	}
	out := make([]SearchCandidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Ticker == "" {
			continue
		}
		out = append(out, SearchCandidate{
			Symbol:        r.Ticker,
			DisplaySymbol: r.Ticker,
			Description:   r.Name,
			Type:          polygonType(r.Type),
			Exchange:      r.PrimaryExchange,
			Provider:      PolygonName,
		})
	}
	return out, nil
}

type polygonBar struct {
	T int64   `json:"t"` // ms
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

type polygonSnapshot struct {
	polygonEnvelope
	Ticker struct {
		Ticker           string     `json:"ticker"`
		TodaysChange     float64    `json:"todaysChange"`
		TodaysChangePerc float64    `json:"todaysChangePerc"`
		Updated          int64      `json:"updated"` // ns
		Day              polygonBar `json:"day"`
		Min              polygonBar `json:"min"`
		PrevDay          polygonBar `json:"prevDay"`
		LastTrade        struct {
			P float64 `json:"p"`
			T int64   `json:"t"` // ns
		} `json:"lastTrade"`
	} `json:"ticker"`
}

type polygonTickerDetails struct {
	polygonEnvelope
	Results struct {
		Ticker          string  `json:"ticker"`
		Name            string  `json:"name"`
		PrimaryExchange string  `json:"primary_exchange"`
		CurrencyName    string  `json:"currency_name"`
		Locale          string  `json:"locale"`
		MarketCap       float64 `json:"market_cap"`
		HomepageURL     string  `json:"homepage_url"`
		ListDate        string  `json:"list_date"`
		SICDescription  string  `json:"sic_description"`
		Branding        struct {
			LogoURL string `json:"logo_url"`
		} `json:"branding"`
	} `json:"results"`
}

func (p *PolygonAdapter) Quote(ctx context.Context, symbol string) (*QuoteResult, error) {
	var snap polygonSnapshot
	path := "/v2/snapshot/locale/us/markets/stocks/tickers/" + url.PathEscape(symbol)
	if err := p.client.GetJSON(ctx, symbol, path, nil, &snap); err != nil {
		return nil, err
	}
	if err := snap.failure(symbol); err != nil {
		return nil, err
	}

	t := snap.Ticker
	price := t.LastTrade.P
	if price <= 0 {
		price = t.Min.C
	}
	if price <= 0 {
		price = t.Day.C
	}
	ts := t.Updated
	if ts == 0 {
		ts = t.LastTrade.T
	}
	q := Quote{
		C:  price,
		D:  t.TodaysChange,
		DP: t.TodaysChangePerc,
		H:  t.Day.H,
		L:  t.Day.L,
		O:  t.Day.O,
		PC: t.PrevDay.C,
		T:  ts / 1e9,
	}
	if err := ValidateQuote(PolygonName, symbol, &q); err != nil {
		return nil, err
	}

	res := &QuoteResult{Quote: q, Profile: Profile{Ticker: symbol}}
	var d polygonTickerDetails
	dpath := "/v3/reference/tickers/" + url.PathEscape(symbol)
	if err := p.client.GetJSON(ctx, symbol, dpath, nil, &d); err == nil && d.failure(symbol) == nil {
		country := ""
		if strings.EqualFold(d.Results.Locale, "us") {
			country = "US"
		}
		res.Profile = Profile{
			Ticker:               firstNonEmpty(d.Results.Ticker, symbol),
			Name:                 d.Results.Name,
			Exchange:             d.Results.PrimaryExchange,
			Currency:             strings.ToUpper(d.Results.CurrencyName),
			Country:              country,
			Industry:             d.Results.SICDescription,
			Logo:                 d.Results.Branding.LogoURL,
			WebURL:               d.Results.HomepageURL,
			MarketCapitalization: d.Results.MarketCap / 1e6,
			IPO:                  d.Results.ListDate,
		}
	}
	return res, nil
}

type polygonAggs struct {
	polygonEnvelope
	ResultsCount int          `json:"resultsCount"`
	Results      []polygonBar `json:"results"`
}

func polygonSpan(r Resolution) (multiplier int, timespan string) {
	switch r {
	case Res5Min:
		return 5, "minute"
	case Res30Min:
		return 30, "minute"
	case Res60Min:
		return 1, "hour"
	case ResWeekly:
		return 1, "week"
	default:
		return 1, "day"
	}
}

func (p *PolygonAdapter) Candles(ctx context.Context, req CandleRequest) (*CandleSeries, error) {
	mult, span := polygonSpan(req.Resolution)
	path := "/v2/aggs/ticker/" + url.PathEscape(req.Symbol) + "/range/" +
		strconv.Itoa(mult) + "/" + span + "/" +
		strconv.FormatInt(req.From.UnixMilli(), 10) + "/" +
		strconv.FormatInt(req.To.UnixMilli(), 10)
	params := url.Values{
		"adjusted": {"true"},
		"sort":     {"asc"},
		"limit":    {"50000"},
	}
	var raw polygonAggs
	if err := p.client.GetJSON(ctx, req.Symbol, path, params, &raw); err != nil {
		return nil, err
	}
	if err := raw.failure(req.Symbol); err != nil {
		return nil, err
	}
	if len(raw.Results) == 0 {
		return nil, NewSemanticError(PolygonName, req.Symbol, "no results")
	}
	bars := make([]Bar, 0, len(raw.Results))
	for _, b := range raw.Results {
		bars = append(bars, Bar{T: b.T / 1000, O: b.O, H: b.H, L: b.L, C: b.C, V: b.V})
	}
	return BuildSeries(PolygonName, req.Symbol, bars, req.From, req.To)
}
