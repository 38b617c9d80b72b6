package bot

import (
	"context"
	"fmt"

	"github.com/armcalc/armcalc/internal/calc"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data prefixes. Data is "prefix:action:value".
const (
	calcPrefix  = "calc"
	panelPrefix = "cvt"
)

func calcData(action, value string) string {
	return calcPrefix + ":" + action + ":" + value
}

// calcKeyboard is the inline calculator layout:
//
//	7 8 9 /
//	4 5 6 *
//	1 2 3 -
//	0 . = +
//	( ) ^ %
//	sqrt sin cos C
//	<< Back | Close
func calcKeyboard() tgbotapi.InlineKeyboardMarkup {
	digit := func(d string) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(d, calcData("digit", d))
	}
	op := func(o string) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(o, calcData("op", o))
	}
	fn := func(name string) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(name, calcData("func", name+"("))
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(digit("7"), digit("8"), digit("9"), op("/")),
		tgbotapi.NewInlineKeyboardRow(digit("4"), digit("5"), digit("6"), op("*")),
		tgbotapi.NewInlineKeyboardRow(digit("1"), digit("2"), digit("3"), op("-")),
		tgbotapi.NewInlineKeyboardRow(
			digit("0"), digit("."),
			tgbotapi.NewInlineKeyboardButtonData("=", calcData("eval", "")),
			op("+"),
		),
		tgbotapi.NewInlineKeyboardRow(op("("), op(")"), op("^"), op("%")),
		tgbotapi.NewInlineKeyboardRow(
			fn("sqrt"), fn("sin"), fn("cos"),
			tgbotapi.NewInlineKeyboardButtonData("C", calcData("clear", "")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("<< Back", calcData("back", "")),
			tgbotapi.NewInlineKeyboardButtonData("Close", calcData("close", "")),
		),
	)
}

func calcText(expr string) string {
	if expr == "" {
		expr = "_"
	}
	return fmt.Sprintf("🧮 <b>Calculator</b>\n\nExpression: <code>%s</code>\n\nTap buttons to build expression:", htmlEscape(expr))
}

func (b *Bot) cmdKeyboard(msg *tgbotapi.Message) {
	b.setExpr(userID(msg), "")

	m := tgbotapi.NewMessage(msg.Chat.ID, calcText(""))
	m.ParseMode = tgbotapi.ModeHTML
	m.ReplyMarkup = calcKeyboard()
	if _, err := b.tg.Send(m); err != nil {
		b.slog.Error("sending keyboard failed", "err", err)
	}
}

func (b *Bot) getExpr(userID int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exprs[userID]
}

func (b *Bot) setExpr(userID int64, expr string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exprs[userID] = expr
}

func (b *Bot) handleCalcCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, action, value string) {
	uid := callbackUserID(cb)
	expr := b.getExpr(uid)

	chatID, messageID, ok := chatOf(cb)
	if !ok {
		b.answerCallback(cb.ID, "")
		return
	}

	switch action {
	case "close":
		b.mu.Lock()
		delete(b.exprs, uid)
		b.mu.Unlock()
		if _, err := b.tg.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
			b.slog.Debug("deleting keyboard failed", "err", err)
		}
		b.answerCallback(cb.ID, "Closed")
		return

	case "clear":
		expr = ""
		b.answerCallback(cb.ID, "Cleared")

	case "back":
		if expr != "" {
			expr = expr[:len(expr)-1]
		}
		b.answerCallback(cb.ID, "⌫")

	case "digit", "op", "func":
		expr += value
		b.answerCallback(cb.ID, "")

	case "eval":
		if expr == "" {
			b.answerCallback(cb.ID, "Enter an expression first")
			return
		}
		value, err := calc.Evaluate(expr)
		if err != nil {
			b.alertCallback(cb.ID, "Error: "+userError(err))
			return
		}
		formatted := calc.Format(value)
		b.record(ctx, uid, expr, formatted, "calc")
		b.setExpr(uid, "")
		b.answerCallback(cb.ID, "")
		b.editKeyboard(chatID, messageID, fmt.Sprintf(
			"🧮 <b>Calculator</b>\n\n<code>%s</code> = <b>%s</b>\n\nExpression: <code>_</code>",
			htmlEscape(expr), formatted))
		return

	default:
		b.answerCallback(cb.ID, "")
		return
	}

	b.setExpr(uid, expr)
	b.editKeyboard(chatID, messageID, calcText(expr))
}

func (b *Bot) editKeyboard(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, calcKeyboard())
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.tg.Send(edit); err != nil {
		// "message is not modified" is expected when nothing changed.
		b.slog.Debug("editing keyboard failed", "err", err)
	}
}
