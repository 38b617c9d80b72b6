package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/armcalc/armcalc/internal/testutil"
)

func TestPanelStateAmount(t *testing.T) {
	s := newPanelState()

	if err := s.setAmount("1,500"); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, s.view().amount.String(), "1500")

	if err := s.setAmount("-5"); err == nil {
		t.Fatal("negative amount must be rejected")
	}
	if err := s.setAmount("9999999999999"); err == nil {
		t.Fatal("huge amount must be rejected")
	}
	if err := s.setAmount("lots"); err == nil {
		t.Fatal("non-numeric amount must be rejected")
	}
	// Failed updates keep the previous amount.
	testutil.AssertEqual(t, s.view().amount.String(), "1500")
}

func TestPanelStateSelection(t *testing.T) {
	s := newPanelState() // usdt -> amd

	// Selecting the other side's currency swaps instead of duplicating.
	s.setFrom("amd")
	testutil.AssertEqual(t, s.view().from, "amd")
	testutil.AssertEqual(t, s.view().to, "usdt")

	s.setTo("rub")
	testutil.AssertEqual(t, s.view().to, "rub")

	s.swap()
	testutil.AssertEqual(t, s.view().from, "rub")
	testutil.AssertEqual(t, s.view().to, "amd")

	// Unknown currencies are ignored.
	s.setFrom("xyz")
	testutil.AssertEqual(t, s.view().from, "rub")
}

func TestPanelFeedCodes(t *testing.T) {
	s := newPanelState()

	from, to, method := s.view().feedCodes()
	testutil.AssertEqual(t, from, "USDTTRC20")
	testutil.AssertEqual(t, to, "CASHAMD")
	testutil.AssertEqual(t, method, "")

	s.setNetwork("bep20")
	s.setAMDUnit("card")
	from, to, _ = s.view().feedCodes()
	testutil.AssertEqual(t, from, "USDTBEP20")
	testutil.AssertEqual(t, to, "CARDAMD")

	s.setTo("rub")
	s.setRUBMethod("tinkoff")
	_, to, method = s.view().feedCodes()
	testutil.AssertEqual(t, to, "RUB")
	testutil.AssertEqual(t, method, "tinkoff")

	s.setFrom("usd")
	from, _, _ = s.view().feedCodes()
	testutil.AssertEqual(t, from, "CASHUSD")

	// Off-list selector values are ignored.
	s.setNetwork("lightning")
	testutil.AssertEqual(t, s.view().network, "bep20")
}

func TestPanelExpiry(t *testing.T) {
	b, _ := newTestBot(t)

	s := b.getPanel(7)
	s.mu.Lock()
	s.v.touched = time.Now().Add(-panelTTL - time.Minute)
	s.mu.Unlock()
	testutil.AssertEqual(t, b.hasPanel(7), false)

	// An expired panel is replaced by a fresh one.
	fresh := b.getPanel(7)
	if fresh == s {
		t.Fatal("expired state must be discarded")
	}
}

func TestPanelOpens(t *testing.T) {
	b, rec := newTestBot(t)
	b.handleMessage(context.Background(), message("/convert"))

	got := rec.lastText(t)
	testutil.AssertInString(t, got, "Currency Converter")
	testutil.AssertInString(t, got, "100 USDT TRC20")
	testutil.AssertEqual(t, b.hasPanel(7), true)
}

func TestPanelConvert(t *testing.T) {
	ctx := context.Background()
	b, rec := newTestBot(t)

	b.handleMessage(ctx, message("/convert"))
	b.handleCallback(ctx, callback("cvt:go:"))

	got := rec.lastText(t)
	testutil.AssertInString(t, got, "Result: 100 USDT TRC20 → 40,250 AMD Cash")
	testutil.AssertInString(t, got, "1 USDT TRC20 = 402.5 AMD Cash")

	entries, err := b.history.List(ctx, 7, 10, "convert")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(entries), 1)
}

func TestPanelQuickAmount(t *testing.T) {
	ctx := context.Background()
	b, rec := newTestBot(t)

	b.handleMessage(ctx, message("/convert"))
	b.handleCallback(ctx, callback("cvt:quick:500"))

	testutil.AssertEqual(t, b.getPanel(7).view().amount.String(), "500")
	testutil.AssertInString(t, rec.lastText(t), "500 USDT")
}

func TestPanelFxFallback(t *testing.T) {
	ctx := context.Background()
	b, rec := newTestBot(t)

	b.handleMessage(ctx, message("/convert"))
	// USD -> AMD has no office direction for cash USD in the fixture beyond
	// USDT pairs, so the panel falls back to FX rates.
	b.handleCallback(ctx, callback("cvt:from:usd"))
	b.handleCallback(ctx, callback("cvt:to:amd"))
	b.handleCallback(ctx, callback("cvt:go:"))

	testutil.AssertInString(t, rec.lastText(t), "100.00 USD = 40,500 AMD")
}

func TestPanelTypedAmount(t *testing.T) {
	ctx := context.Background()
	b, rec := newTestBot(t)

	b.handleMessage(ctx, message("/convert"))
	b.handleMessage(ctx, message("2,500"))

	got := rec.lastText(t)
	testutil.AssertInString(t, got, "2,500 USDT")
	if strings.Contains(got, "Artyunq") {
		t.Fatalf("typed amount must feed the panel, not the calculator: %q", got)
	}
	testutil.AssertEqual(t, b.getPanel(7).view().amount.String(), "2500")
}

func TestPanelAmountWithoutPanel(t *testing.T) {
	b, rec := newTestBot(t)

	// No open panel: a bare number is just a calculation.
	b.handleMessage(context.Background(), message("250"))
	testutil.AssertEqual(t, rec.lastText(t), "Artyunq: 250")
}

func TestPanelClose(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBot(t)

	b.handleMessage(ctx, message("/convert"))
	b.handleCallback(ctx, callback("cvt:close:"))
	testutil.AssertEqual(t, b.hasPanel(7), false)
}

// Updates are handled in separate goroutines, so callbacks for the same
// panel can race. Run with -race to verify.
func TestPanelConcurrentCallbacks(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBot(t)

	b.handleMessage(ctx, message("/convert"))

	var wg sync.WaitGroup
	for _, data := range []string{
		"cvt:swap:", "cvt:go:", "cvt:quick:500", "cvt:from:rub",
		"cvt:net:bep20", "cvt:to:usd", "cvt:swap:", "cvt:go:",
	} {
		data := data
		for j := 0; j < 10; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleCallback(ctx, callback(data))
			}()
		}
	}
	wg.Wait()

	v := b.getPanel(7).view()
	if v.from == v.to {
		t.Fatalf("panel ended with from == to: %q", v.from)
	}
	testutil.AssertContains(t, panelCurrencies, v.from)
	testutil.AssertContains(t, panelCurrencies, v.to)
}

func TestNumberLike(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"250", true},
		{"2,500", true},
		{"0.5", true},
		{".5", true},
		{"2+2", false},
		{"abc", false},
		{"", false},
		{"-5", false},
		{"100000000000000", false},
	}
	for _, tc := range cases {
		if got := numberLike(tc.text); got != tc.want {
			t.Errorf("numberLike(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
