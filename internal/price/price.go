// Package price fetches cryptocurrency prices from the CoinGecko API.
//
// Results are cached with a TTL and requests are retried with exponential
// backoff when CoinGecko rate-limits us. In dry-run mode no network calls
// are made and canned prices are returned instead.
package price

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/armcalc/armcalc/internal/cache"
	"github.com/armcalc/armcalc/internal/request"

	"github.com/leekchan/accounting"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// ErrNotFound is returned when CoinGecko doesn't know the requested coin.
var ErrNotFound = errors.New("coin not found")

// Price is a cryptocurrency quote.
type Price struct {
	Symbol    string
	Name      string
	USD       float64
	AMD       float64 // 0 when CoinGecko has no AMD quote
	Change24h float64
	HasChange bool
	FetchedAt time.Time
}

// FormattedUSD renders the USD price: two decimal places above a dollar,
// six below (so sub-cent coins don't show as $0.00).
func (p Price) FormattedUSD() string {
	precision := 2
	if p.USD < 1 {
		precision = 6
	}
	ac := accounting.Accounting{Symbol: "$", Precision: precision}
	return ac.FormatMoney(p.USD)
}

// FormattedAMD renders the AMD price, or "N/A" when there is none.
func (p Price) FormattedAMD() string {
	if p.AMD == 0 {
		return "N/A"
	}
	ac := accounting.Accounting{Symbol: "", Precision: 0}
	return strings.TrimSpace(ac.FormatMoney(p.AMD)) + " AMD"
}

// Ticker symbol to CoinGecko coin ID. Symbols not listed here are passed
// through as coin IDs, so "bitcoin" works as well as "btc".
var symbolToID = map[string]string{
	"btc":   "bitcoin",
	"eth":   "ethereum",
	"sol":   "solana",
	"bnb":   "binancecoin",
	"xrp":   "ripple",
	"ada":   "cardano",
	"doge":  "dogecoin",
	"dot":   "polkadot",
	"matic": "matic-network",
	"shib":  "shiba-inu",
	"ltc":   "litecoin",
	"link":  "chainlink",
	"uni":   "uniswap",
	"avax":  "avalanche-2",
	"atom":  "cosmos",
	"xlm":   "stellar",
	"etc":   "ethereum-classic",
	"xmr":   "monero",
	"trx":   "tron",
	"usdt":  "tether",
	"usdc":  "usd-coin",
}

// Options configures a [Client]. The zero value is usable and talks to the
// real CoinGecko API.
type Options struct {
	BaseURL    string        // defaults to the CoinGecko API
	HTTPClient *http.Client  // defaults to request.DefaultClient
	TTL        time.Duration // cache TTL, defaults to a minute
	MaxRetries int           // retries on 429, defaults to 3
	Backoff    time.Duration // initial backoff, defaults to a second
	DryRun     bool
	Logger     *slog.Logger
}

// Client looks up cryptocurrency prices.
type Client struct {
	baseURL    string
	httpc      *http.Client
	cache      *cache.Cache[string, Price]
	maxRetries int
	backoff    time.Duration
	dryRun     bool
	slog       *slog.Logger
}

// New creates a [Client].
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.TTL == 0 {
		opts.TTL = time.Minute
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff == 0 {
		opts.Backoff = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		httpc:      opts.HTTPClient,
		cache:      cache.New[string, Price](opts.TTL),
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		dryRun:     opts.DryRun,
		slog:       opts.Logger,
	}
}

// Symbols returns the ticker symbols with a known CoinGecko ID, sorted.
func Symbols() []string {
	symbols := make([]string, 0, len(symbolToID))
	for s := range symbolToID {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// CacheInfo reports the state of the price cache.
func (c *Client) CacheInfo() cache.Info { return c.cache.Info() }

func coinID(symbol string) string {
	s := strings.ToLower(strings.TrimSpace(symbol))
	if id, ok := symbolToID[s]; ok {
		return id
	}
	return s
}

// Lookup returns the price for a ticker symbol or CoinGecko coin ID.
func (c *Client) Lookup(ctx context.Context, symbol string) (Price, error) {
	id := coinID(symbol)
	if id == "" {
		return Price{}, ErrNotFound
	}

	if p, ok := c.cache.Get(id); ok {
		return p, nil
	}

	p, err := c.fetch(ctx, id)
	if err != nil {
		return Price{}, err
	}
	c.cache.Set(id, p)
	return p, nil
}

func (c *Client) fetch(ctx context.Context, id string) (Price, error) {
	if c.dryRun {
		c.slog.Info("dry run, returning mock price", "coin", id)
		return mockPrice(id), nil
	}

	u := fmt.Sprintf("%s/simple/price?%s", c.baseURL, url.Values{
		"ids":                 {id},
		"vs_currencies":       {"usd,amd"},
		"include_24hr_change": {"true"},
	}.Encode())

	var last error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		quotes, err := request.MakeJSON[map[string]map[string]float64](ctx, request.Params{
			Method:     http.MethodGet,
			URL:        u,
			HTTPClient: c.httpc,
		})
		if err != nil {
			var se *request.StatusError
			if errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests {
				wait := c.backoff << attempt
				c.slog.Warn("rate limited by CoinGecko", "wait", wait)
				last = err
				select {
				case <-time.After(wait):
					continue
				case <-ctx.Done():
					return Price{}, ctx.Err()
				}
			}
			return Price{}, err
		}

		quote, ok := quotes[id]
		if !ok {
			return Price{}, fmt.Errorf("%w: %q", ErrNotFound, id)
		}

		p := Price{
			Symbol:    displaySymbol(id),
			Name:      displayName(id),
			USD:       quote["usd"],
			AMD:       quote["amd"],
			FetchedAt: time.Now(),
		}
		if change, ok := quote["usd_24h_change"]; ok {
			p.Change24h = change
			p.HasChange = true
		}
		return p, nil
	}
	return Price{}, last
}

func displaySymbol(id string) string {
	for sym, coinID := range symbolToID {
		if coinID == id {
			return strings.ToUpper(sym)
		}
	}
	if len(id) > 5 {
		id = id[:5]
	}
	return strings.ToUpper(id)
}

func displayName(id string) string {
	words := strings.Split(id, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Canned prices served in dry-run mode.
var mockPrices = map[string]Price{
	"bitcoin":  {Symbol: "BTC", Name: "Bitcoin", USD: 43250, AMD: 17300000, Change24h: -1.2, HasChange: true},
	"ethereum": {Symbol: "ETH", Name: "Ethereum", USD: 2650, AMD: 1060000, Change24h: 2.5, HasChange: true},
	"solana":   {Symbol: "SOL", Name: "Solana", USD: 98.50, AMD: 39400, Change24h: 5.1, HasChange: true},
	"dogecoin": {Symbol: "DOGE", Name: "Dogecoin", USD: 0.085, AMD: 34, Change24h: -0.8, HasChange: true},
}

func mockPrice(id string) Price {
	if p, ok := mockPrices[id]; ok {
		p.FetchedAt = time.Now()
		return p
	}
	return Price{
		Symbol:    displaySymbol(id),
		Name:      displayName(id),
		USD:       100,
		AMD:       40000,
		HasChange: true,
		FetchedAt: time.Now(),
	}
}
