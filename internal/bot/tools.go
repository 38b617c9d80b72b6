package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/armcalc/armcalc/internal/finance"
	"github.com/armcalc/armcalc/internal/units"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/leekchan/accounting"
)

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
}

func money(v float64) string {
	return accounting.FormatNumber(v, 2, ",", ".")
}

func (b *Bot) cmdUnit(ctx context.Context, msg *tgbotapi.Message, args string) {
	parts := strings.Fields(args)
	if len(parts) != 3 {
		cats := make([]string, 0, len(units.Supported()))
		for cat := range units.Supported() {
			cats = append(cats, cat)
		}
		sort.Strings(cats)
		b.replyHTML(msg.Chat.ID,
			"Usage: <code>/unit &lt;amount&gt; &lt;from&gt; &lt;to&gt;</code>\n"+
				"Example: <code>/unit 10 km miles</code>\n\n"+
				"Supported: "+strings.Join(cats, ", "))
		return
	}

	amount, err := parseNumber(parts[0])
	if err != nil {
		b.reply(msg.Chat.ID, "Invalid amount.")
		return
	}

	r, err := units.Convert(amount, parts[1], parts[2])
	if err != nil {
		b.reply(msg.Chat.ID, "Cannot convert: "+err.Error())
		return
	}

	b.record(ctx, userID(msg), fmt.Sprintf("%s %s -> %s", parts[0], parts[1], parts[2]), r.String(), "unit")
	b.reply(msg.Chat.ID, "📐 "+r.String())
}

func (b *Bot) cmdLoan(ctx context.Context, msg *tgbotapi.Message, args string) {
	parts := strings.Fields(args)
	if len(parts) != 3 {
		b.replyHTML(msg.Chat.ID,
			"Usage: <code>/loan &lt;amount&gt; &lt;annual_rate%&gt; &lt;months&gt;</code>\n"+
				"Example: <code>/loan 1000000 12 24</code>\n\n"+
				"Calculates monthly payment for a loan.")
		return
	}

	principal, err1 := parseNumber(parts[0])
	rate, err2 := parseNumber(strings.TrimSuffix(parts[1], "%"))
	months, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		b.reply(msg.Chat.ID, "Invalid numbers.")
		return
	}

	r, err := finance.Loan(principal, rate, months)
	if err != nil {
		b.reply(msg.Chat.ID, titleCase(err.Error())+".")
		return
	}

	text := fmt.Sprintf("🏦 <b>Loan Calculator</b>\n\n"+
		"Principal: %s\n"+
		"Annual Rate: %g%%\n"+
		"Term: %d months\n\n"+
		"<b>Monthly Payment: %s</b>\n"+
		"Total Paid: %s\n"+
		"Total Interest: %s",
		accounting.FormatNumber(r.Principal, 0, ",", "."),
		r.AnnualRate, r.Months,
		money(r.Monthly), money(r.TotalPaid), money(r.TotalInterest))

	b.record(ctx, userID(msg),
		fmt.Sprintf("loan %s @ %g%% x %dmo", accounting.FormatNumber(r.Principal, 0, ",", "."), r.AnnualRate, r.Months),
		money(r.Monthly)+"/mo", "loan")
	b.replyHTML(msg.Chat.ID, text)
}

func (b *Bot) cmdTip(ctx context.Context, msg *tgbotapi.Message, args string) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		b.replyHTML(msg.Chat.ID,
			"Usage: <code>/tip &lt;bill&gt; &lt;percent&gt;</code>\n"+
				"Example: <code>/tip 25000 10</code>")
		return
	}

	bill, err1 := parseNumber(parts[0])
	percent, err2 := parseNumber(strings.TrimSuffix(parts[1], "%"))
	if err1 != nil || err2 != nil {
		b.reply(msg.Chat.ID, "Invalid numbers.")
		return
	}

	r, err := finance.Tip(bill, percent)
	if err != nil {
		b.reply(msg.Chat.ID, titleCase(err.Error())+".")
		return
	}

	text := fmt.Sprintf("💵 <b>Tip Calculator</b>\n\n"+
		"Bill: %s\nTip (%g%%): %s\n\n<b>Total: %s</b>",
		money(r.Bill), r.Percent, money(r.Tip), money(r.Total))

	b.record(ctx, userID(msg),
		fmt.Sprintf("tip %g%% on %s", r.Percent, money(r.Bill)),
		money(r.Total), "tip")
	b.replyHTML(msg.Chat.ID, text)
}

func (b *Bot) cmdSplit(ctx context.Context, msg *tgbotapi.Message, args string) {
	parts := strings.Fields(args)
	if len(parts) != 2 && len(parts) != 3 {
		b.replyHTML(msg.Chat.ID,
			"Usage: <code>/split &lt;bill&gt; &lt;people&gt; [tip%]</code>\n"+
				"Example: <code>/split 48000 4 10</code>")
		return
	}

	bill, err1 := parseNumber(parts[0])
	people, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		b.reply(msg.Chat.ID, "Invalid numbers.")
		return
	}
	var tipPercent float64
	if len(parts) == 3 {
		var err error
		tipPercent, err = parseNumber(strings.TrimSuffix(parts[2], "%"))
		if err != nil {
			b.reply(msg.Chat.ID, "Invalid numbers.")
			return
		}
	}

	r, err := finance.Split(bill, people, tipPercent)
	if err != nil {
		b.reply(msg.Chat.ID, titleCase(err.Error())+".")
		return
	}

	var sb strings.Builder
	sb.WriteString("🧾 <b>Bill Split</b>\n\n")
	fmt.Fprintf(&sb, "Bill: %s\n", money(r.Bill))
	if r.TipPercent > 0 {
		fmt.Fprintf(&sb, "With %g%% tip: %s\n", r.TipPercent, money(r.Total))
	}
	fmt.Fprintf(&sb, "People: %d\n\n<b>Per person: %s</b>", r.People, money(r.PerPerson))

	b.record(ctx, userID(msg),
		fmt.Sprintf("split %s / %d", money(r.Bill), r.People),
		money(r.PerPerson)+"/person", "split")
	b.replyHTML(msg.Chat.ID, sb.String())
}

func (b *Bot) cmdDays(ctx context.Context, msg *tgbotapi.Message, args string) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		b.replyHTML(msg.Chat.ID,
			"Usage: <code>/days &lt;date1&gt; &lt;date2&gt;</code>\n"+
				"Example: <code>/days 2026-01-01 2026-08-23</code>\n\n"+
				"Accepted formats: YYYY-MM-DD, DD.MM.YYYY, DD/MM/YYYY")
		return
	}

	r, err := finance.DaysBetween(parts[0], parts[1])
	if err != nil {
		b.reply(msg.Chat.ID, "Could not parse dates: "+err.Error())
		return
	}

	text := fmt.Sprintf("📅 <b>Days Between</b>\n\n"+
		"From: %s\nTo: %s\n\n<b>%d days</b> (%d weeks and %d days)",
		r.From.Format("2006-01-02"), r.To.Format("2006-01-02"),
		r.Days, r.Weeks, r.Rem)

	b.record(ctx, userID(msg),
		fmt.Sprintf("days %s .. %s", parts[0], parts[1]),
		fmt.Sprintf("%d days", r.Days), "days")
	b.replyHTML(msg.Chat.ID, text)
}
