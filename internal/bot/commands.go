package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/armcalc/armcalc/internal/calc"
	"github.com/armcalc/armcalc/internal/version"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) cmdStart(msg *tgbotapi.Message) {
	name := "there"
	if msg.From != nil && msg.From.FirstName != "" {
		name = msg.From.FirstName
	}

	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Barev %s! 🤖\n\n"+
			"I'm Armcalc - your calculator bot!\n\n"+
			"• Math: 2+2, 100+10%%\n"+
			"• Scientific: sqrt(16), sin(90)\n"+
			"• Crypto: /price btc\n"+
			"• Currency: /convert 100 usd amd\n"+
			"• Units: /unit 10 km miles\n\n"+
			"Use /help for all commands.", name))
}

const helpText = `<b>📚 ARMCALC — FULL GUIDE</b>

<b>🧮 Calculator</b>
Just type any math expression:
• <code>2+2</code> → 4
• <code>100+10%</code> → 110
• <code>2^10</code> → 1024
• <code>sqrt(144)</code>, <code>pow(2,8)</code>, <code>sin(90)</code>, <code>log(100)</code>
• Constants: <code>pi</code>, <code>e</code>

<b>💱 Currency exchange</b>
<b>/convert</b> — interactive panel
<b>/convert [amount] [from] [to]</b> — text conversion:
• <code>/convert 100 usdt amd</code>
• <code>/convert 50000 amd usdt</code>
• <code>/convert 100 usdt sberbank rub</code>
Defaults: USDT=TRC20, AMD=Cash, RUB=Sberbank

<b>📊 Rates</b>
<b>/rates</b> — all current rates
<b>/pairs</b> — overview of options
<b>/pairs usdt</b>, <b>/pairs amd</b>, <b>/pairs rub</b>

<b>💰 Crypto prices</b>
<b>/price btc</b>, <b>/price eth</b>, <b>/price sol</b>, <b>/price ton</b>

<b>📐 Units &amp; finance</b>
<b>/unit 10 km miles</b>
<b>/loan &lt;amount&gt; &lt;rate%&gt; &lt;months&gt;</b>
<b>/tip &lt;bill&gt; &lt;percent&gt;</b>
<b>/split &lt;bill&gt; &lt;people&gt; [tip%]</b>
<b>/days &lt;date1&gt; &lt;date2&gt;</b>

<b>📋 Other</b>
<b>/keyboard</b> — calculator buttons
<b>/history</b> — your recent history
<b>/debug</b> — bot status`

func (b *Bot) cmdHelp(msg *tgbotapi.Message) {
	b.replyHTML(msg.Chat.ID, helpText)
}

// handleExpression is the catch-all handler: any non-command text is treated
// as a math expression if it plausibly is one.
func (b *Bot) handleExpression(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" || len(text) > 500 {
		return
	}
	if !plausibleExpression(text) {
		return
	}

	value, err := calc.Evaluate(text)
	if err != nil {
		// Reply with the error only when the text was clearly an attempt
		// at math, so chatter doesn't get error messages.
		if strings.ContainsAny(text, "+-*/^%().") {
			b.reply(msg.Chat.ID, "Skhal: "+userError(err))
		}
		return
	}

	formatted := calc.Format(value)
	b.record(ctx, userID(msg), text, formatted, "calc")
	b.reply(msg.Chat.ID, "Artyunq: "+formatted)
}

// plausibleExpression reports whether text is worth evaluating: it must
// contain a digit or a math constant and nothing but expression characters.
func plausibleExpression(text string) bool {
	return calc.Looks(text) || strings.EqualFold(strings.TrimSpace(text), "e")
}

// userError maps the closed calc error kinds to user-facing messages.
func userError(err error) string {
	var ce *calc.Error
	if !errors.As(err, &ce) {
		return "Calculation error"
	}
	switch ce.Kind {
	case calc.DivisionByZero:
		return "Cannot divide by zero"
	case calc.UnknownFunction:
		return "Unknown function"
	case calc.DomainError:
		return "Math error (outside function domain)"
	default:
		return "Invalid syntax"
	}
}

func (b *Bot) cmdHistory(ctx context.Context, msg *tgbotapi.Message) {
	entries, err := b.history.List(ctx, userID(msg), 10, "")
	if err != nil {
		b.slog.Error("listing history failed", "err", err)
		b.reply(msg.Chat.ID, "Failed to load history.")
		return
	}
	if len(entries) == 0 {
		b.reply(msg.Chat.ID, "No history yet. Start calculating!")
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 <b>Your Last Calculations:</b>\n\n")
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. <code>%s</code> = %s\n", i+1, htmlEscape(e.Expression), htmlEscape(e.Result))
		fmt.Fprintf(&sb, "   <i>%s</i>\n\n", e.Time.Format("2006-01-02 15:04"))
	}
	b.replyHTML(msg.Chat.ID, sb.String())
}

func (b *Bot) cmdClearHistory(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := b.history.Clear(ctx, userID(msg)); err != nil {
		b.slog.Error("clearing history failed", "err", err)
		b.reply(msg.Chat.ID, "Failed to clear history.")
		return
	}
	b.reply(msg.Chat.ID, "History cleared!")
}

func (b *Bot) cmdDebug(msg *tgbotapi.Message) {
	mode := "LIVE"
	if b.dryRun {
		mode = "DRY_RUN"
	}

	info := version.Version()
	office := b.office.Info()
	priceCache := b.prices.CacheInfo()
	fxCache := b.rates.CacheInfo()

	var sb strings.Builder
	sb.WriteString("🔧 <b>Armcalc Debug Info</b>\n\n")
	fmt.Fprintf(&sb, "Version: %s\n", info.Version)
	fmt.Fprintf(&sb, "Go: %s\n", info.Go)
	fmt.Fprintf(&sb, "Mode: %s\n\n", mode)

	sb.WriteString("<b>Caches:</b>\n")
	fmt.Fprintf(&sb, "  Price: %d entries, TTL %s\n", priceCache.Len, priceCache.TTL)
	fmt.Fprintf(&sb, "  FX: %d bases, TTL %s\n", fxCache.Len, fxCache.TTL)
	fmt.Fprintf(&sb, "  Office: %d directions, valid=%v, age %s\n",
		office.Directions, office.Valid, office.Age.Round(time.Second))
	if office.LastError != "" {
		fmt.Fprintf(&sb, "  Office last error: %s\n", htmlEscape(office.LastError))
	}

	fmt.Fprintf(&sb, "\nToken: %s (masked)", b.token)
	b.replyHTML(msg.Chat.ID, sb.String())
}

// MaskToken hides the middle of a bot token for display.
func MaskToken(token string) string {
	if len(token) <= 10 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func htmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
