// Package fx converts fiat currencies using free exchange-rate APIs.
//
// exchangerate.host is the primary provider with open.er-api.com as a
// fallback; the two return the rate table under different keys. Rate tables
// are cached per base currency. Stablecoins (USDT, USDC, BUSD, DAI) are
// treated as USD.
package fx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/armcalc/armcalc/internal/cache"
	"github.com/armcalc/armcalc/internal/request"
)

const (
	defaultPrimaryURL  = "https://api.exchangerate.host/latest"
	defaultFallbackURL = "https://open.er-api.com/v6/latest"
)

// ErrUnknownCurrency is returned when no provider knows the requested
// currency.
var ErrUnknownCurrency = errors.New("unknown currency")

// Result is a completed currency conversion.
type Result struct {
	Amount float64
	From   string
	To     string
	Value  float64
	Rate   float64
}

// Zero-decimal display currencies.
var wholeCurrencies = map[string]bool{
	"AMD": true, "RUB": true, "JPY": true, "KRW": true,
}

// String renders the conversion, dropping decimal places for currencies
// that aren't usually written with them.
func (r Result) String() string {
	return fmt.Sprintf("%s %s = %s %s",
		formatMoney(r.Amount, r.From), strings.ToUpper(r.From),
		formatMoney(r.Value, r.To), strings.ToUpper(r.To))
}

func formatMoney(v float64, currency string) string {
	if wholeCurrencies[strings.ToUpper(currency)] {
		return humanize(fmt.Sprintf("%.0f", v))
	}
	return humanize(fmt.Sprintf("%.2f", v))
}

// humanize inserts thousands separators into a formatted number.
func humanize(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := b.String()
	if hasFrac {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

var stablecoins = map[string]string{
	"USDT": "USD",
	"USDC": "USD",
	"BUSD": "USD",
	"DAI":  "USD",
}

var supported = []string{
	"USD", "EUR", "GBP", "RUB", "AMD", "AED", "TRY", "GEL",
	"JPY", "CNY", "KRW", "INR", "CAD", "AUD", "CHF", "PLN",
}

// Mock rates relative to USD, used in dry-run mode.
var mockRates = map[string]float64{
	"USD": 1, "EUR": 0.92, "GBP": 0.79, "RUB": 89.5,
	"AMD": 405, "AED": 3.67, "TRY": 30.5, "GEL": 2.65,
	"JPY": 148.5, "CNY": 7.24, "KRW": 1320, "INR": 83.1,
	"CAD": 1.35, "AUD": 1.53, "CHF": 0.88, "PLN": 4.02,
}

// Options configures a [Client]. The zero value talks to the real providers.
type Options struct {
	PrimaryURL  string
	FallbackURL string
	HTTPClient  *http.Client
	TTL         time.Duration // per-base cache TTL, defaults to 15 minutes
	DryRun      bool
	Logger      *slog.Logger
}

// Client converts between currencies.
type Client struct {
	primaryURL  string
	fallbackURL string
	httpc       *http.Client
	cache       *cache.Cache[string, map[string]float64]
	dryRun      bool
	slog        *slog.Logger
}

// New creates a [Client].
func New(opts Options) *Client {
	if opts.PrimaryURL == "" {
		opts.PrimaryURL = defaultPrimaryURL
	}
	if opts.FallbackURL == "" {
		opts.FallbackURL = defaultFallbackURL
	}
	if opts.TTL == 0 {
		opts.TTL = 15 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		primaryURL:  strings.TrimSuffix(opts.PrimaryURL, "/"),
		fallbackURL: strings.TrimSuffix(opts.FallbackURL, "/"),
		httpc:       opts.HTTPClient,
		cache:       cache.New[string, map[string]float64](opts.TTL),
		dryRun:      opts.DryRun,
		slog:        opts.Logger,
	}
}

// Supported returns the supported currency codes, stablecoins included.
func Supported() []string {
	all := make([]string, 0, len(supported)+len(stablecoins))
	all = append(all, supported...)
	for coin := range stablecoins {
		all = append(all, coin)
	}
	sort.Strings(all)
	return all
}

// CacheInfo reports the state of the rates cache.
func (c *Client) CacheInfo() cache.Info { return c.cache.Info() }

func normalize(currency string) string {
	upper := strings.ToUpper(strings.TrimSpace(currency))
	if base, ok := stablecoins[upper]; ok {
		return base
	}
	return upper
}

// Convert converts amount from one currency to another.
func (c *Client) Convert(ctx context.Context, amount float64, from, to string) (Result, error) {
	fromCurr, toCurr := normalize(from), normalize(to)

	if fromCurr == toCurr {
		return Result{Amount: amount, From: from, To: to, Value: amount, Rate: 1}, nil
	}

	rates, err := c.rates(ctx, fromCurr)
	if err != nil {
		return Result{}, err
	}
	rate, ok := rates[toCurr]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, to)
	}

	return Result{
		Amount: amount,
		From:   from,
		To:     to,
		Value:  amount * rate,
		Rate:   rate,
	}, nil
}

// Rate returns the exchange rate between two currencies.
func (c *Client) Rate(ctx context.Context, from, to string) (float64, error) {
	r, err := c.Convert(ctx, 1, from, to)
	if err != nil {
		return 0, err
	}
	return r.Rate, nil
}

func (c *Client) rates(ctx context.Context, base string) (map[string]float64, error) {
	if rates, ok := c.cache.Get(base); ok {
		return rates, nil
	}

	rates, err := c.fetch(ctx, base)
	if err != nil {
		return nil, err
	}
	c.cache.Set(base, rates)
	return rates, nil
}

// Providers return the rate table under different keys.
type ratesResponse struct {
	Rates           map[string]float64 `json:"rates"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

func (c *Client) fetch(ctx context.Context, base string) (map[string]float64, error) {
	if c.dryRun {
		c.slog.Info("dry run, returning mock rates", "base", base)
		baseRate, ok := mockRates[base]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCurrency, base)
		}
		rates := make(map[string]float64, len(mockRates))
		for cur, rate := range mockRates {
			rates[cur] = rate / baseRate
		}
		return rates, nil
	}

	urls := []string{
		c.primaryURL + "?base=" + base,
		c.fallbackURL + "/" + base,
	}

	var last error
	for _, u := range urls {
		resp, err := request.MakeJSON[ratesResponse](ctx, request.Params{
			Method:     http.MethodGet,
			URL:        u,
			HTTPClient: c.httpc,
		})
		if err != nil {
			c.slog.Warn("rates provider failed", "url", u, "err", err)
			last = err
			continue
		}
		if len(resp.Rates) > 0 {
			return resp.Rates, nil
		}
		if len(resp.ConversionRates) > 0 {
			return resp.ConversionRates, nil
		}
		last = fmt.Errorf("unexpected response format from %q", u)
	}
	return nil, last
}
