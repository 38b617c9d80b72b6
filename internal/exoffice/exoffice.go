// Package exoffice fetches exchange-office rates from an XML feed.
//
// The feed lists exchange directions as <rates><item> elements with from/to
// codes, an in/out amount pair (rate = out/in) and an optional payment
// method for RUB directions. Codes are exchange-office units, not plain
// currencies: USDT comes in networks (USDTTRC20, USDTBEP20, USDTERC20) and
// AMD in cash/card variants (CASHAMD, CARDAMD), so user-friendly codes are
// resolved through alias tables.
package exoffice

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/armcalc/armcalc/internal/request"

	"github.com/shopspring/decimal"
)

// ErrNoDirection is returned when the feed has no direction for a pair. The
// caller is expected to fall back to plain FX rates.
var ErrNoDirection = errors.New("no exchange direction")

// Direction is a single exchange direction from the feed.
type Direction struct {
	From     string
	To       string
	FromName string
	ToName   string
	In       decimal.Decimal
	Out      decimal.Decimal
	Method   string // payment method for RUB directions
	Min      decimal.Decimal
	Max      decimal.Decimal
}

// Rate is how much To you get per one From.
func (d Direction) Rate() decimal.Decimal {
	if d.In.IsZero() {
		return decimal.Zero
	}
	return d.Out.Div(d.In)
}

// NormalizedTo collapses method codes like SBERRUB to the RUB currency.
func (d Direction) NormalizedTo() string {
	if strings.HasSuffix(d.To, "RUB") && len(d.To) > 3 {
		return "RUB"
	}
	return d.To
}

// Quote is a rate looked up for a pair.
type Quote struct {
	From      string // feed unit, e.g. USDTTRC20
	To        string // feed unit, e.g. CASHAMD
	Rate      decimal.Decimal
	Method    string
	FetchedAt time.Time
}

// Convert applies the rate to an amount, rounding to two decimal places.
func (q Quote) Convert(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(q.Rate).Round(2)
}

// FromDisplay is the user-friendly name of the source unit.
func (q Quote) FromDisplay() string { return DisplayName(q.From, "") }

// ToDisplay is the user-friendly name of the target unit.
func (q Quote) ToDisplay() string { return DisplayName(q.To, q.Method) }

// Payment method aliases users may type, mapped to canonical names.
var methodAliases = map[string]string{
	"sber": "sberbank", "sberbank": "sberbank",
	"tink": "tinkoff", "tinkoff": "tinkoff",
	"alfa": "alfabank", "alfabank": "alfabank", "alpha": "alfabank",
	"vtb":  "vtb",
	"raif": "raiffeisen", "raiffeisen": "raiffeisen",
	"qiwi":     "qiwi",
	"yoomoney": "yoomoney", "yandex": "yoomoney",
}

// Canonical method to the feed's to_code.
var methodToCode = map[string]string{
	"sberbank":   "SBERRUB",
	"tinkoff":    "TCSBRUB",
	"alfabank":   "ACRUB",
	"vtb":        "VTBRUB",
	"raiffeisen": "RFRUB",
	"qiwi":       "QWRUB",
	"yoomoney":   "YAMRUB",
}

// User-friendly codes to feed units, in preference order.
var codeAliases = map[string][]string{
	"USDT": {"USDTTRC20", "USDTBEP20", "USDTERC20", "USDT"},
	"AMD":  {"CASHAMD", "CARDAMD", "AMD"},
	"USD":  {"CASHUSD", "USD"},
	"RUB":  {"SBERRUB", "TCSBRUB", "ACRUB", "VTBRUB", "RUB"},
}

const defaultRUBMethod = "sberbank"

// NormalizeMethod resolves a payment method alias to its canonical name,
// or returns an empty string when the alias is unknown.
func NormalizeMethod(method string) string {
	return methodAliases[strings.ToLower(strings.TrimSpace(method))]
}

// DetectRUBMethod finds a RUB payment method in target tokens of a
// conversion request. It understands separate tokens ("sberbank rub",
// "rub tinkoff") and combined ones ("sberbank_rub", "sberrub"). When no
// method is present the first token is returned as a plain currency.
func DetectRUBMethod(tokens []string) (currency, method string) {
	if len(tokens) == 0 {
		return "", ""
	}

	combined := strings.ToLower(strings.Join(tokens, "_"))
	for alias, m := range methodAliases {
		if strings.Contains(combined, alias+"_rub") ||
			strings.Contains(combined, "rub_"+alias) ||
			strings.Contains(combined, alias+"rub") {
			return "RUB", m
		}
	}

	var (
		hasRUB bool
		found  string
	)
	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		if lower == "rub" {
			hasRUB = true
		} else if m, ok := methodAliases[lower]; ok {
			found = m
			hasRUB = true // a method implies RUB
		}
	}
	if hasRUB {
		return "RUB", found
	}
	return strings.ToUpper(tokens[0]), ""
}

// DisplayName renders a feed unit for users: USDTTRC20 becomes
// "USDT (TRC20)", CASHAMD becomes "AMD (Cash)", SBERRUB becomes
// "RUB (Sberbank)".
func DisplayName(code, method string) string {
	upper := strings.ToUpper(code)

	if method != "" {
		return "RUB (" + title(method) + ")"
	}
	if strings.HasSuffix(upper, "RUB") && len(upper) > 3 {
		for m, c := range methodToCode {
			if upper == c {
				return "RUB (" + title(m) + ")"
			}
		}
		return "RUB"
	}
	if strings.HasPrefix(upper, "USDT") {
		if network := upper[4:]; network != "" {
			return "USDT (" + network + ")"
		}
		return "USDT"
	}
	if strings.HasSuffix(upper, "AMD") && len(upper) > 3 {
		return "AMD (" + title(upper[:len(upper)-3]) + ")"
	}
	if strings.HasSuffix(upper, "USD") && len(upper) > 3 {
		return "USD (" + title(upper[:len(upper)-3]) + ")"
	}
	return upper
}

func title(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}

// IsOfficePair reports whether a pair should be quoted from the feed rather
// than plain FX rates: AMD<->USDT, USD<->USDT and anything involving RUB.
func IsOfficePair(from, to string) bool {
	f, t := strings.ToUpper(from), strings.ToUpper(to)

	switch {
	case f == "AMD" && t == "USDT", f == "USDT" && t == "AMD":
		return true
	case f == "USD" && t == "USDT", f == "USDT" && t == "USD":
		return true
	case f == "RUB" || t == "RUB":
		return true
	}
	for _, code := range methodToCode {
		if f == code || t == code {
			return true
		}
	}
	return false
}

// CacheInfo describes the feed cache for diagnostics.
type CacheInfo struct {
	Directions int
	Age        time.Duration
	Valid      bool
	LastError  string
}

// Options configures a [Client].
type Options struct {
	FeedURL    string
	HTTPClient *http.Client
	TTL        time.Duration // defaults to 5 minutes
	DryRun     bool          // serve the embedded fixture instead of fetching
	Logger     *slog.Logger
}

type indexKey struct {
	from, to, method string
}

// Client caches and indexes the exchange-office feed.
type Client struct {
	feedURL string
	httpc   *http.Client
	ttl     time.Duration
	dryRun  bool
	slog    *slog.Logger

	mu         sync.Mutex
	directions []Direction
	index      map[indexKey]Direction
	fetchedAt  time.Time
	lastErr    string
}

// New creates a [Client].
func New(opts Options) *Client {
	if opts.TTL == 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		feedURL: opts.FeedURL,
		httpc:   opts.HTTPClient,
		ttl:     opts.TTL,
		dryRun:  opts.DryRun,
		slog:    opts.Logger,
	}
}

// Feed wire format.
type feed struct {
	XMLName xml.Name `xml:"rates"`
	Items   []item   `xml:"item"`
}

type item struct {
	From     string `xml:"from"`
	To       string `xml:"to"`
	In       string `xml:"in"`
	Out      string `xml:"out"`
	FromName string `xml:"fromname"`
	ToName   string `xml:"toname"`
	Method   string `xml:"method"`
	Min      string `xml:"minamount"`
	Max      string `xml:"maxamount"`
}

func parseFeed(data []byte) ([]Direction, error) {
	var f feed
	if err := xml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	var directions []Direction
	for _, it := range f.Items {
		from := strings.ToUpper(strings.TrimSpace(it.From))
		to := strings.ToUpper(strings.TrimSpace(it.To))
		if from == "" || to == "" {
			continue
		}

		d := Direction{
			From:     from,
			To:       to,
			FromName: strings.TrimSpace(it.FromName),
			ToName:   strings.TrimSpace(it.ToName),
			In:       parseAmount(it.In, decimal.NewFromInt(1)),
			Out:      parseAmount(it.Out, decimal.NewFromInt(1)),
			Method:   NormalizeMethod(it.Method),
			Min:      parseAmount(it.Min, decimal.Zero),
			Max:      parseAmount(it.Max, decimal.Zero),
		}
		if d.FromName == "" {
			d.FromName = from
		}
		if d.ToName == "" {
			d.ToName = to
		}
		// Directions like SBERRUB carry their method in the code.
		if d.Method == "" {
			for m, code := range methodToCode {
				if to == code || strings.HasSuffix(to, code) {
					d.Method = m
					break
				}
			}
		}
		directions = append(directions, d)
	}
	return directions, nil
}

func parseAmount(s string, fallback decimal.Decimal) decimal.Decimal {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return fallback
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fallback
	}
	return d
}

func (c *Client) ensure(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.directions) > 0 && time.Since(c.fetchedAt) < c.ttl {
		return nil
	}

	data, err := c.fetchFeed(ctx)
	if err != nil {
		c.lastErr = err.Error()
		// Serve stale data over no data.
		if len(c.directions) > 0 {
			c.slog.Warn("feed refresh failed, serving stale rates", "err", err)
			return nil
		}
		return err
	}

	directions, err := parseFeed(data)
	if err != nil {
		c.lastErr = err.Error()
		if len(c.directions) > 0 {
			return nil
		}
		return err
	}

	c.directions = directions
	c.fetchedAt = time.Now()
	c.lastErr = ""
	c.rebuildIndex()
	return nil
}

func (c *Client) fetchFeed(ctx context.Context) ([]byte, error) {
	if c.dryRun {
		c.slog.Info("dry run, using embedded feed fixture")
		return []byte(fixtureFeed), nil
	}
	return request.MakeBytes(ctx, request.Params{
		Method: http.MethodGet,
		URL:    c.feedURL,
		Headers: map[string]string{
			"Accept": "application/xml, text/xml, */*",
		},
		HTTPClient: c.httpc,
	})
}

func (c *Client) rebuildIndex() {
	c.index = make(map[indexKey]Direction, len(c.directions)*2)
	add := func(key indexKey, d Direction) {
		if _, ok := c.index[key]; !ok {
			c.index[key] = d
		}
	}
	for _, d := range c.directions {
		c.index[indexKey{d.From, d.To, d.Method}] = d

		// A method-less lookup still finds the direction; feed units like
		// SBERRUB carry their method in the code.
		if d.Method != "" {
			add(indexKey{d.From, d.To, ""}, d)
		}

		// Also index RUB method codes under the plain currency.
		if norm := d.NormalizedTo(); norm != d.To {
			add(indexKey{d.From, norm, d.Method}, d)
			if d.Method != "" {
				add(indexKey{d.From, norm, ""}, d)
			}
		}
	}
}

// Rate looks up a quote for a pair. from and to accept user-friendly codes
// (usdt, amd, rub) as well as feed units (USDTTRC20, CASHAMD, SBERRUB).
// method names a RUB payment method; RUB without a method defaults to
// Sberbank.
func (c *Client) Rate(ctx context.Context, from, to, method string) (Quote, error) {
	if err := c.ensure(ctx); err != nil {
		return Quote{}, err
	}

	fromUpper := strings.ToUpper(strings.TrimSpace(from))
	toUpper := strings.ToUpper(strings.TrimSpace(to))
	normMethod := NormalizeMethod(method)

	fromVariants, ok := codeAliases[fromUpper]
	if !ok {
		fromVariants = []string{fromUpper}
	}
	toVariants, ok := codeAliases[toUpper]
	if !ok {
		toVariants = []string{toUpper}
	}

	// RUB with an explicit method narrows to that method's code.
	if toUpper == "RUB" {
		m := normMethod
		if m == "" {
			m = defaultRUBMethod
		}
		if code, ok := methodToCode[m]; ok {
			toVariants = []string{code}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, fv := range fromVariants {
		for _, tv := range toVariants {
			for _, m := range []string{normMethod, ""} {
				if d, ok := c.index[indexKey{fv, tv, m}]; ok {
					qm := d.Method
					if qm == "" {
						qm = normMethod
					}
					return Quote{
						From:      fv,
						To:        tv,
						Rate:      d.Rate(),
						Method:    qm,
						FetchedAt: c.fetchedAt,
					}, nil
				}
			}
		}
	}
	return Quote{}, fmt.Errorf("%w: %s to %s", ErrNoDirection, from, to)
}

// Directions lists the feed's directions, optionally filtered by source
// and/or target code.
func (c *Client) Directions(ctx context.Context, filterFrom, filterTo string) ([]Direction, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fromUpper := strings.ToUpper(filterFrom)
	toUpper := strings.ToUpper(filterTo)

	var out []Direction
	for _, d := range c.directions {
		if fromUpper != "" && d.From != fromUpper {
			continue
		}
		if toUpper != "" && d.To != toUpper && d.NormalizedTo() != toUpper {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// Info reports the cache state for diagnostics.
func (c *Client) Info() CacheInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := CacheInfo{
		Directions: len(c.directions),
		LastError:  c.lastErr,
	}
	if !c.fetchedAt.IsZero() {
		info.Age = time.Since(c.fetchedAt)
		info.Valid = info.Age < c.ttl && len(c.directions) > 0
	}
	return info
}

// Fixture served in dry-run mode.
const fixtureFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rates>
  <item>
    <from>USDTTRC20</from>
    <to>CASHAMD</to>
    <in>1</in>
    <out>402.50</out>
    <fromname>Tether TRC20</fromname>
    <toname>Armenian Dram Cash</toname>
  </item>
  <item>
    <from>CASHAMD</from>
    <to>USDTTRC20</to>
    <in>405</in>
    <out>1</out>
    <fromname>Armenian Dram Cash</fromname>
    <toname>Tether TRC20</toname>
  </item>
  <item>
    <from>CASHUSD</from>
    <to>USDTTRC20</to>
    <in>1</in>
    <out>0.998</out>
    <fromname>US Dollar Cash</fromname>
    <toname>Tether TRC20</toname>
  </item>
  <item>
    <from>USDTTRC20</from>
    <to>CASHUSD</to>
    <in>1</in>
    <out>0.995</out>
    <fromname>Tether TRC20</fromname>
    <toname>US Dollar Cash</toname>
  </item>
  <item>
    <from>USDTTRC20</from>
    <to>SBERRUB</to>
    <in>1</in>
    <out>96.50</out>
    <fromname>Tether TRC20</fromname>
    <toname>Sberbank RUB</toname>
    <method>sberbank</method>
  </item>
  <item>
    <from>USDTTRC20</from>
    <to>TCSBRUB</to>
    <in>1</in>
    <out>96.00</out>
    <fromname>Tether TRC20</fromname>
    <toname>Tinkoff RUB</toname>
    <method>tinkoff</method>
  </item>
</rates>`
