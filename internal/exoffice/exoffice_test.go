package exoffice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/armcalc/armcalc/internal/testutil"

	"github.com/shopspring/decimal"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	return New(Options{DryRun: true})
}

func TestRate(t *testing.T) {
	ctx := context.Background()
	c := testClient(t)

	t.Run("friendly codes resolve to feed units", func(t *testing.T) {
		q, err := c.Rate(ctx, "usdt", "amd", "")
		if err != nil {
			t.Fatal(err)
		}
		testutil.AssertEqual(t, q.From, "USDTTRC20")
		testutil.AssertEqual(t, q.To, "CASHAMD")
		testutil.AssertEqual(t, q.Rate.String(), "402.5")
	})

	t.Run("exact feed units", func(t *testing.T) {
		q, err := c.Rate(ctx, "USDTTRC20", "CASHUSD", "")
		if err != nil {
			t.Fatal(err)
		}
		testutil.AssertEqual(t, q.Rate.String(), "0.995")
	})

	t.Run("reverse direction has its own rate", func(t *testing.T) {
		q, err := c.Rate(ctx, "amd", "usdt", "")
		if err != nil {
			t.Fatal(err)
		}
		// 405 AMD in, 1 USDT out.
		want := decimal.NewFromInt(1).Div(decimal.NewFromInt(405))
		testutil.AssertEqual(t, q.Rate.String(), want.String())
	})

	t.Run("rub method", func(t *testing.T) {
		q, err := c.Rate(ctx, "usdt", "rub", "tinkoff")
		if err != nil {
			t.Fatal(err)
		}
		testutil.AssertEqual(t, q.To, "TCSBRUB")
		testutil.AssertEqual(t, q.Rate.String(), "96")
		testutil.AssertEqual(t, q.Method, "tinkoff")
	})

	t.Run("rub method alias", func(t *testing.T) {
		q, err := c.Rate(ctx, "usdt", "rub", "tink")
		if err != nil {
			t.Fatal(err)
		}
		testutil.AssertEqual(t, q.To, "TCSBRUB")
	})

	t.Run("rub defaults to sberbank", func(t *testing.T) {
		q, err := c.Rate(ctx, "usdt", "rub", "")
		if err != nil {
			t.Fatal(err)
		}
		testutil.AssertEqual(t, q.To, "SBERRUB")
		testutil.AssertEqual(t, q.Rate.String(), "96.5")
	})

	t.Run("missing direction", func(t *testing.T) {
		_, err := c.Rate(ctx, "usdt", "gel", "")
		if !errors.Is(err, ErrNoDirection) {
			t.Fatalf("want ErrNoDirection, got %v", err)
		}
	})
}

func TestQuoteConvert(t *testing.T) {
	q := Quote{Rate: decimal.RequireFromString("402.50")}
	got := q.Convert(decimal.NewFromInt(100))
	testutil.AssertEqual(t, got.String(), "40250")

	frac := Quote{Rate: decimal.RequireFromString("0.998")}
	testutil.AssertEqual(t, frac.Convert(decimal.RequireFromString("33.333")).String(), "33.27")
}

func TestDirections(t *testing.T) {
	ctx := context.Background()
	c := testClient(t)

	all, err := c.Directions(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(all), 6)

	fromUSDT, err := c.Directions(ctx, "USDTTRC20", "")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(fromUSDT), 4)

	// RUB filter matches method codes through normalization.
	toRUB, err := c.Directions(ctx, "", "RUB")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(toRUB), 2)
}

func TestFeedFetchingAndCache(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, fixtureFeed)
	}))
	defer ts.Close()

	c := New(Options{FeedURL: ts.URL, TTL: time.Minute})
	ctx := context.Background()

	if _, err := c.Rate(ctx, "usdt", "amd", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Rate(ctx, "usdt", "usd", ""); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, calls.Load(), int64(1))

	info := c.Info()
	testutil.AssertEqual(t, info.Directions, 6)
	testutil.AssertEqual(t, info.Valid, true)
	testutil.AssertEqual(t, info.LastError, "")
}

func TestStaleFeedServedOnError(t *testing.T) {
	var fail atomic.Bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, fixtureFeed)
	}))
	defer ts.Close()

	// Zero-ish TTL forces a refresh on every call.
	c := New(Options{FeedURL: ts.URL, TTL: time.Nanosecond})
	ctx := context.Background()

	if _, err := c.Rate(ctx, "usdt", "amd", ""); err != nil {
		t.Fatal(err)
	}

	fail.Store(true)
	q, err := c.Rate(ctx, "usdt", "amd", "")
	if err != nil {
		t.Fatalf("stale rates must still be served: %v", err)
	}
	testutil.AssertEqual(t, q.Rate.String(), "402.5")
	if c.Info().LastError == "" {
		t.Fatal("last error must be recorded")
	}
}

func TestParseFeedTolerance(t *testing.T) {
	directions, err := parseFeed([]byte(`<?xml version="1.0"?>
<rates>
  <item><from>A</from><to>B</to><in>2</in><out>5</out></item>
  <item><from></from><to>B</to></item>
  <item><from>C</from><to>D</to><in>1,5</in><out>3</out><minamount>10</minamount></item>
</rates>`))
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(directions), 2)
	testutil.AssertEqual(t, directions[0].Rate().String(), "2.5")
	testutil.AssertEqual(t, directions[1].Rate().String(), "2")
	testutil.AssertEqual(t, directions[1].Min.String(), "10")
}

func TestParseFeedMalformed(t *testing.T) {
	if _, err := parseFeed([]byte("not xml at all")); err == nil {
		t.Fatal("want parse error")
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]struct {
		code, method string
		want         string
	}{
		"usdt network":  {"USDTTRC20", "", "USDT (TRC20)"},
		"plain usdt":    {"USDT", "", "USDT"},
		"cash amd":      {"CASHAMD", "", "AMD (Cash)"},
		"card amd":      {"CARDAMD", "", "AMD (Card)"},
		"cash usd":      {"CASHUSD", "", "USD (Cash)"},
		"rub by method": {"SBERRUB", "sberbank", "RUB (Sberbank)"},
		"rub by code":   {"TCSBRUB", "", "RUB (Tinkoff)"},
		"passthrough":   {"GEL", "", "GEL"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, DisplayName(tc.code, tc.method), tc.want)
		})
	}
}

func TestDetectRUBMethod(t *testing.T) {
	cases := map[string]struct {
		tokens   []string
		currency string
		method   string
	}{
		"method then rub":  {[]string{"sberbank", "rub"}, "RUB", "sberbank"},
		"rub then method":  {[]string{"rub", "tinkoff"}, "RUB", "tinkoff"},
		"combined token":   {[]string{"sberbank_rub"}, "RUB", "sberbank"},
		"squashed token":   {[]string{"sberrub"}, "RUB", "sberbank"},
		"alias":            {[]string{"rub", "tink"}, "RUB", "tinkoff"},
		"bare rub":         {[]string{"rub"}, "RUB", ""},
		"not rub":          {[]string{"amd"}, "AMD", ""},
		"method alone":     {[]string{"vtb"}, "RUB", "vtb"},
		"multi-word other": {[]string{"usd", "cash"}, "USD", ""},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			currency, method := DetectRUBMethod(tc.tokens)
			testutil.AssertEqual(t, currency, tc.currency)
			testutil.AssertEqual(t, method, tc.method)
		})
	}
}

func TestIsOfficePair(t *testing.T) {
	testutil.AssertEqual(t, IsOfficePair("usdt", "amd"), true)
	testutil.AssertEqual(t, IsOfficePair("AMD", "USDT"), true)
	testutil.AssertEqual(t, IsOfficePair("usd", "usdt"), true)
	testutil.AssertEqual(t, IsOfficePair("usdt", "rub"), true)
	testutil.AssertEqual(t, IsOfficePair("usdt", "SBERRUB"), true)
	testutil.AssertEqual(t, IsOfficePair("usd", "eur"), false)
	testutil.AssertEqual(t, IsOfficePair("usd", "amd"), false)
}
