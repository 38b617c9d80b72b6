package bot

import (
	"context"
	"strings"

	"github.com/armcalc/armcalc/internal/calc"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleInline answers inline queries: the query text is evaluated as a math
// expression and the result is offered as articles to send.
func (b *Bot) handleInline(ctx context.Context, q *tgbotapi.InlineQuery) {
	results := inlineResults(q.Query)

	if _, err := b.tg.Request(tgbotapi.InlineConfig{
		InlineQueryID: q.ID,
		Results:       results,
		CacheTime:     0,
		IsPersonal:    true,
	}); err != nil {
		b.slog.Error("answering inline query failed", "err", err)
	}
}

func inlineResults(query string) []any {
	query = strings.TrimSpace(query)

	if query == "" {
		help := tgbotapi.NewInlineQueryResultArticle(
			"help", "Type a math expression",
			"Type an expression after the bot name to calculate!")
		help.Description = "Example: 2+2, 100+10%, sqrt(16), sin(90)"
		return []any{help}
	}

	value, err := calc.Evaluate(query)
	if err != nil {
		article := tgbotapi.NewInlineQueryResultArticle(
			"error", "Error: "+userError(err),
			"❌ Could not calculate: "+query)
		article.Description = "Expression: " + query
		return []any{article}
	}

	formatted := calc.Format(value)

	full := tgbotapi.NewInlineQueryResultArticle(
		"result", query+" = "+formatted,
		"🧮 "+query+" = "+formatted)
	full.Description = "Tap to send result"

	bare := tgbotapi.NewInlineQueryResultArticle(
		"number", "Just the result: "+formatted, formatted)
	bare.Description = "Send only the number"

	return []any{full, bare}
}
