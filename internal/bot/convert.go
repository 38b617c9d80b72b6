package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/armcalc/armcalc/internal/exoffice"
	"github.com/armcalc/armcalc/internal/fx"
	"github.com/armcalc/armcalc/internal/price"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"
)

func (b *Bot) cmdPrice(ctx context.Context, msg *tgbotapi.Message, args string) {
	symbol := strings.ToLower(strings.TrimSpace(args))
	if symbol == "" {
		symbols := price.Symbols()
		if len(symbols) > 15 {
			symbols = symbols[:15]
		}
		b.replyHTML(msg.Chat.ID, fmt.Sprintf(
			"Usage: <code>/price btc</code>\n\nSupported: %s...",
			strings.Join(symbols, ", ")))
		return
	}

	b.typing(msg.Chat.ID)

	p, err := b.prices.Lookup(ctx, symbol)
	if err != nil {
		b.slog.Warn("price lookup failed", "symbol", symbol, "err", err)
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"Could not get price for %q.\nTry: btc, eth, sol, bnb, xrp, ada, doge, ltc", symbol))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💰 <b>%s</b> (%s)\n\n", p.Name, p.Symbol)
	fmt.Fprintf(&sb, "USD: %s", p.FormattedUSD())
	if p.AMD != 0 {
		fmt.Fprintf(&sb, "\nAMD: %s", p.FormattedAMD())
	}
	if p.HasChange {
		direction := "📈"
		if p.Change24h < 0 {
			direction = "📉"
		}
		fmt.Fprintf(&sb, "\n24h Change: %s %+.2f%%", direction, p.Change24h)
	}

	b.record(ctx, userID(msg), "price "+symbol, p.FormattedUSD(), "price")
	b.replyHTML(msg.Chat.ID, sb.String())
}

const convertUsage = `💱 <b>Convert Currency</b>

<b>Examples:</b>
<code>/convert 100 usdt amd</code>
<code>/convert 50000 amd usdt</code>
<code>/convert 100 usdt sberbank rub</code>

<b>Defaults:</b> USDT=TRC20, AMD=Cash, RUB=Sberbank
<i>Or use /convert for interactive panel</i>`

func (b *Bot) cmdConvert(ctx context.Context, msg *tgbotapi.Message, args string) {
	if args == "" {
		b.sendPanel(ctx, msg.Chat.ID, userID(msg))
		return
	}

	amount, from, to, method, ok := parseConvertArgs(args)
	if !ok {
		b.replyHTML(msg.Chat.ID, convertUsage)
		return
	}
	if amount.Sign() <= 0 {
		b.reply(msg.Chat.ID, "Amount must be positive.")
		return
	}

	b.typing(msg.Chat.ID)

	if method != "" || exoffice.IsOfficePair(from, to) {
		q, err := b.office.Rate(ctx, from, to, method)
		if err == nil {
			b.replyOfficeResult(ctx, msg, amount, from, to, method, q)
			return
		}
		b.slog.Info("no office direction, falling back to fx",
			"from", from, "to", to, "method", method, "err", err)
	}

	r, err := b.rates.Convert(ctx, amount.InexactFloat64(), from, to)
	if err != nil {
		if strings.EqualFold(to, "RUB") && method == "" {
			b.replyHTML(msg.Chat.ID, fmt.Sprintf(
				"Could not convert %s to %s.\n\nFor RUB, try specifying a method:\n<code>/convert %s %s sberbank rub</code>",
				from, to, amount, strings.ToLower(from)))
			return
		}
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"Could not convert %s to %s.\nSupported: %s", from, to,
			strings.Join(fx.Supported(), ", ")))
		return
	}

	text := fmt.Sprintf("💱 <b>Conversion</b>\n\n%s\nRate: 1 %s = %.4f %s",
		r, strings.ToUpper(from), r.Rate, strings.ToUpper(to))
	b.record(ctx, userID(msg), fmt.Sprintf("%s %s -> %s", amount, from, to), r.String(), "convert")
	b.replyHTML(msg.Chat.ID, text)
}

func (b *Bot) replyOfficeResult(ctx context.Context, msg *tgbotapi.Message, amount decimal.Decimal, from, to, method string, q exoffice.Quote) {
	result := q.Convert(amount)

	amountStr := formatUnits(amount, q.From)
	resultStr := formatUnits(result, q.To)
	fromDisplay := q.FromDisplay()
	toDisplay := q.ToDisplay()

	text := fmt.Sprintf("💱 <b>Conversion</b>\n\n%s %s → %s %s\nRate: 1 %s = %s %s",
		amountStr, fromDisplay, resultStr, toDisplay,
		fromDisplay, q.Rate.Round(4), toDisplay)

	// Tell the user which defaults filled in the blanks they left.
	var disclosures []string
	if d := defaultDisclosure(from, q.From); d != "" {
		disclosures = append(disclosures, d)
	}
	if d := defaultDisclosure(to, q.To); d != "" {
		disclosures = append(disclosures, d)
	}
	if strings.EqualFold(to, "RUB") && method == "" && q.Method != "" {
		disclosures = append(disclosures, "RUB "+titleCase(q.Method))
	}
	if len(disclosures) > 0 {
		text += fmt.Sprintf("\n\n<i>Using: %s (default)</i>\n<i>See /pairs for other options</i>",
			strings.Join(disclosures, ", "))
	}

	b.record(ctx, userID(msg),
		fmt.Sprintf("%s %s -> %s", amount, fromDisplay, toDisplay),
		resultStr+" "+toDisplay, "convert")
	b.replyHTML(msg.Chat.ID, text)
}

// parseConvertArgs parses the argument part of "/convert 100 usdt amd".
// Arrows, "to", "in" and "/" work as separators; a RUB payment method may
// appear before or after the currency, separate or combined ("sberbank_rub").
func parseConvertArgs(args string) (amount decimal.Decimal, from, to, method string, ok bool) {
	r := strings.NewReplacer("->", " ", "→", " ", "/", " ", "=", " ")
	var tokens []string
	for _, tok := range strings.Fields(r.Replace(args)) {
		tok = strings.ToLower(tok)
		if tok == "to" || tok == "in" {
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) < 3 {
		return decimal.Decimal{}, "", "", "", false
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(tokens[0], ",", ""))
	if err != nil {
		return decimal.Decimal{}, "", "", "", false
	}

	from = strings.ToUpper(tokens[1])
	to, method = exoffice.DetectRUBMethod(tokens[2:])
	return amount, from, to, method, true
}

// defaultDisclosure describes the default unit picked when the user typed a
// generic currency code: "usdt" resolved to USDTTRC20 yields "USDT TRC20
// network".
func defaultDisclosure(userCode, feedCode string) string {
	user := strings.ToUpper(strings.TrimSpace(userCode))
	feed := strings.ToUpper(feedCode)
	if user == feed {
		return ""
	}
	switch user {
	case "USDT":
		return "USDT " + strings.TrimPrefix(feed, "USDT") + " network"
	case "AMD":
		return "AMD " + titleCase(strings.TrimSuffix(feed, "AMD"))
	case "USD":
		return "USD " + titleCase(strings.TrimSuffix(feed, "USD"))
	}
	return ""
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatUnits renders a feed amount: whole numbers for AMD and RUB units,
// two decimal places otherwise.
func formatUnits(v decimal.Decimal, feedCode string) string {
	upper := strings.ToUpper(feedCode)
	precision := 2
	if strings.Contains(upper, "AMD") || strings.Contains(upper, "RUB") {
		precision = 0
	}
	return accounting.FormatNumber(v.InexactFloat64(), precision, ",", ".")
}

func (b *Bot) cmdRates(ctx context.Context, msg *tgbotapi.Message) {
	b.typing(msg.Chat.ID)

	lines := []string{"📊 <b>Exchange Rates</b>\n"}

	lines = append(lines, "<b>USDT ↔ AMD</b>")
	if q, err := b.office.Rate(ctx, "USDT", "AMD", ""); err == nil {
		lines = append(lines, fmt.Sprintf("  Buy AMD: 1 USDT = %s AMD", q.Rate.Round(2)))
	}
	if q, err := b.office.Rate(ctx, "AMD", "USDT", ""); err == nil && !q.Rate.IsZero() {
		inverse := decimal.NewFromInt(1).Div(q.Rate)
		lines = append(lines, fmt.Sprintf("  Sell AMD: %s AMD = 1 USDT", inverse.Round(2)))
	}

	lines = append(lines, "", "<b>USDT → RUB</b>")
	for _, method := range []string{"sberbank", "tinkoff", "alfabank"} {
		if q, err := b.office.Rate(ctx, "USDT", "RUB", method); err == nil {
			lines = append(lines, fmt.Sprintf("  %s: 1 USDT = %s RUB", titleCase(method), q.Rate.Round(2)))
		}
	}

	lines = append(lines, "", "<b>Crypto → USDT</b>")
	for _, crypto := range []string{"BTC", "ETH", "TON", "SOL", "XRP", "LTC", "DOGE"} {
		directions, err := b.office.Directions(ctx, crypto, "")
		if err != nil {
			continue
		}
		for _, d := range directions {
			if strings.Contains(strings.ToUpper(d.To), "USDT") {
				lines = append(lines, fmt.Sprintf("  %s: %s USDT", crypto, d.Rate().Round(2)))
				break
			}
		}
	}

	b.replyHTML(msg.Chat.ID, strings.Join(lines, "\n"))
}

const pairsOverview = `📊 <b>Available Pairs</b>

<b>USDT networks:</b>
• TRC20 (default), BEP20, ERC20
• Specify: <code>/convert 100 usdttrc20 amd</code>

<b>AMD options:</b>
• Cash (default), Card
• Specify: <code>/convert 100 usdt cardamd</code>

<b>RUB methods:</b>
• sberbank (default), tinkoff, alfa, vtb
• Specify: <code>/convert 100 usdt sberbank rub</code>

<b>Crypto:</b>
• BTC, ETH, TON, SOL, XRP, LTC, DOGE

Use <code>/pairs usdt</code> for detailed rates.`

func (b *Bot) cmdPairs(ctx context.Context, msg *tgbotapi.Message, args string) {
	currency := strings.ToUpper(strings.TrimSpace(args))

	if currency == "" {
		b.replyHTML(msg.Chat.ID, pairsOverview)
		return
	}

	b.typing(msg.Chat.ID)

	switch {
	case strings.HasPrefix(currency, "USDT"):
		lines := []string{"📊 <b>USDT Pairs</b>\n"}
		lines = append(lines,
			"<b>Networks:</b>",
			"• TRC20 (default) - lowest fees",
			"• BEP20 - Binance Smart Chain",
			"• ERC20 - Ethereum (higher fees)",
			"",
			"<b>Convert to:</b>")
		if q, err := b.office.Rate(ctx, "USDT", "AMD", ""); err == nil {
			lines = append(lines, fmt.Sprintf("• AMD (Cash): 1 USDT = %s AMD", q.Rate.Round(2)))
		}
		if q, err := b.office.Rate(ctx, "USDT", "CARDAMD", ""); err == nil {
			lines = append(lines, fmt.Sprintf("• AMD (Card): 1 USDT = %s AMD", q.Rate.Round(2)))
		}
		for _, method := range []string{"sberbank", "tinkoff", "alfabank"} {
			if q, err := b.office.Rate(ctx, "USDT", "RUB", method); err == nil {
				lines = append(lines, fmt.Sprintf("• RUB (%s): 1 USDT = %s RUB", titleCase(method), q.Rate.Round(2)))
			}
		}
		lines = append(lines, "",
			"<b>Examples:</b>",
			"<code>/convert 100 usdt amd</code>",
			"<code>/convert 100 usdt sberbank rub</code>")
		b.replyHTML(msg.Chat.ID, strings.Join(lines, "\n"))

	case strings.HasSuffix(currency, "AMD"):
		lines := []string{"📊 <b>AMD Pairs</b>\n",
			"<b>Options:</b>",
			"• Cash (default)",
			"• Card",
			"",
			"<b>Convert to:</b>"}
		if q, err := b.office.Rate(ctx, "AMD", "USDT", ""); err == nil && !q.Rate.IsZero() {
			inverse := decimal.NewFromInt(1).Div(q.Rate)
			lines = append(lines, fmt.Sprintf("• USDT: %s AMD = 1 USDT", inverse.Round(2)))
		}
		lines = append(lines, "",
			"<b>Examples:</b>",
			"<code>/convert 50000 amd usdt</code>",
			"<code>/convert 50000 cardamd usdt</code>")
		b.replyHTML(msg.Chat.ID, strings.Join(lines, "\n"))

	case currency == "RUB":
		lines := []string{"📊 <b>RUB Payment Methods</b>\n",
			"<b>Default:</b> sberbank",
			"",
			"<b>Available:</b>"}
		for _, method := range []string{"sberbank", "tinkoff", "alfabank", "vtb"} {
			if q, err := b.office.Rate(ctx, "USDT", "RUB", method); err == nil {
				lines = append(lines, fmt.Sprintf("• %s: 1 USDT = %s RUB", titleCase(method), q.Rate.Round(2)))
			}
		}
		lines = append(lines, "",
			"<b>Examples:</b>",
			"<code>/convert 100 usdt sberbank rub</code>",
			"<code>/convert 100 usdt tinkoff rub</code>")
		b.replyHTML(msg.Chat.ID, strings.Join(lines, "\n"))

	default:
		directions, err := b.office.Directions(ctx, currency, "")
		if err != nil || len(directions) == 0 {
			b.replyHTML(msg.Chat.ID, fmt.Sprintf(
				"No pairs found for %s.\n\nTry: <code>/pairs usdt</code>, <code>/pairs amd</code>, <code>/pairs rub</code>",
				currency))
			return
		}
		lines := []string{fmt.Sprintf("📊 <b>%s Pairs</b>\n", currency)}
		for _, d := range directions {
			if strings.Contains(strings.ToUpper(d.To), "USDT") {
				lines = append(lines, fmt.Sprintf("• %s → USDT: %s", currency, d.Rate().Round(2)))
				break
			}
		}
		lines = append(lines, "",
			"<b>Example:</b>",
			fmt.Sprintf("<code>/convert 1 %s usdt</code>", strings.ToLower(currency)))
		b.replyHTML(msg.Chat.ID, strings.Join(lines, "\n"))
	}
}
