// Package bot wires the calculator, price, FX, exchange-office and history
// services into a Telegram bot.
//
// The bot long-polls for updates and handles each one in its own goroutine.
// Every outgoing call goes through the tg interface so tests can swap in a
// recorder instead of the real API.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/armcalc/armcalc/internal/exoffice"
	"github.com/armcalc/armcalc/internal/fx"
	"github.com/armcalc/armcalc/internal/history"
	"github.com/armcalc/armcalc/internal/price"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// tg is the slice of the Telegram API the bot uses. *tgbotapi.BotAPI
// implements it.
type tg interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Options configures a [Bot]. API, Prices, Rates, Office and History are all
// required.
type Options struct {
	API     *tgbotapi.BotAPI
	Prices  *price.Client
	Rates   *fx.Client
	Office  *exoffice.Client
	History *history.Store
	DryRun  bool
	Logger  *slog.Logger

	// MaskedToken is shown by /debug. Pass the output of MaskToken, never
	// the raw token.
	MaskedToken string
}

// Bot handles Telegram updates.
type Bot struct {
	api     *tgbotapi.BotAPI // nil in tests
	tg      tg
	prices  *price.Client
	rates   *fx.Client
	office  *exoffice.Client
	history *history.Store
	dryRun  bool
	slog    *slog.Logger
	token   string // masked

	mu     sync.Mutex
	exprs  map[int64]string      // calculator keyboard expressions, per user
	panels map[int64]*panelState // convert panel state, per user
}

// New creates a [Bot].
func New(opts Options) *Bot {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Bot{
		api:     opts.API,
		tg:      opts.API,
		prices:  opts.Prices,
		rates:   opts.Rates,
		office:  opts.Office,
		history: opts.History,
		dryRun:  opts.DryRun,
		slog:    opts.Logger,
		token:   opts.MaskedToken,
		exprs:   make(map[int64]string),
		panels:  make(map[int64]*panelState),
	}
}

// Run polls for updates until ctx is canceled. Each update is handled in its
// own goroutine.
func (b *Bot) Run(ctx context.Context) error {
	b.slog.Info("bot started",
		"username", b.api.Self.UserName,
		"id", b.api.Self.ID,
		"dry_run", b.dryRun,
	)

	if err := b.registerCommands(); err != nil {
		b.slog.Warn("setting bot commands failed", "err", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handle(ctx, upd)
		}
	}
}

func (b *Bot) registerCommands() error {
	_, err := b.tg.Request(tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "convert", Description: "Convert currencies"},
		tgbotapi.BotCommand{Command: "price", Description: "Crypto price"},
		tgbotapi.BotCommand{Command: "rates", Description: "Exchange rates"},
		tgbotapi.BotCommand{Command: "pairs", Description: "Available pairs"},
		tgbotapi.BotCommand{Command: "keyboard", Description: "Calculator keyboard"},
		tgbotapi.BotCommand{Command: "unit", Description: "Unit conversion"},
		tgbotapi.BotCommand{Command: "history", Description: "Recent history"},
		tgbotapi.BotCommand{Command: "help", Description: "Full guide"},
	))
	return err
}

func (b *Bot) handle(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.slog.Error("panic in update handler", "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	switch {
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.InlineQuery != nil:
		b.handleInline(ctx, upd.InlineQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Text == "" {
		return
	}

	if cmd, args, ok := command(msg.Text); ok {
		b.handleCommand(ctx, msg, cmd, args)
		return
	}

	// Numeric input updates an active convert panel.
	if b.handlePanelAmount(ctx, msg) {
		return
	}

	b.handleExpression(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, cmd, args string) {
	b.slog.Info("command", "cmd", cmd, "user", userID(msg))

	switch cmd {
	case "start":
		b.cmdStart(msg)
	case "help":
		b.cmdHelp(msg)
	case "keyboard", "calc", "k":
		b.cmdKeyboard(msg)
	case "price", "p":
		b.cmdPrice(ctx, msg, args)
	case "convert", "conv", "c":
		b.cmdConvert(ctx, msg, args)
	case "rates":
		b.cmdRates(ctx, msg)
	case "pairs":
		b.cmdPairs(ctx, msg, args)
	case "unit":
		b.cmdUnit(ctx, msg, args)
	case "loan":
		b.cmdLoan(ctx, msg, args)
	case "tip":
		b.cmdTip(ctx, msg, args)
	case "split":
		b.cmdSplit(ctx, msg, args)
	case "days":
		b.cmdDays(ctx, msg, args)
	case "history":
		b.cmdHistory(ctx, msg)
	case "clear_history":
		b.cmdClearHistory(ctx, msg)
	case "debug", "status":
		b.cmdDebug(msg)
	}
}

// command splits a "/cmd@bot args" message. The @bot suffix is how groups
// address commands to a specific bot.
func command(text string) (cmd, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	cmd, args, _ = strings.Cut(text[1:], " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	if cmd == "" {
		return "", "", false
	}
	return strings.ToLower(cmd), strings.TrimSpace(args), true
}

func userID(msg *tgbotapi.Message) int64 {
	if msg.From == nil {
		return 0
	}
	return msg.From.ID
}

// reply sends a plain text message to the chat.
func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.tg.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.slog.Error("sending message failed", "chat", chatID, "err", err)
	}
}

// replyHTML sends an HTML-formatted message to the chat.
func (b *Bot) replyHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.tg.Send(msg); err != nil {
		b.slog.Error("sending message failed", "chat", chatID, "err", err)
	}
}

// typing shows the "typing…" indicator before a slow API call.
func (b *Bot) typing(chatID int64) {
	if _, err := b.tg.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.slog.Debug("chat action failed", "err", err)
	}
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.tg.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.slog.Debug("callback answer failed", "err", err)
	}
}

func (b *Bot) alertCallback(id, text string) {
	if _, err := b.tg.Request(tgbotapi.NewCallbackWithAlert(id, text)); err != nil {
		b.slog.Debug("callback alert failed", "err", err)
	}
}

func (b *Bot) record(ctx context.Context, userID int64, expression, result, entryType string) {
	if _, err := b.history.Add(ctx, userID, expression, result, entryType); err != nil {
		b.slog.Error("recording history failed", "err", err)
	}
}

// handleCallback routes inline keyboard presses by their data prefix.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	prefix, rest, _ := strings.Cut(cb.Data, ":")
	action, value, _ := strings.Cut(rest, ":")

	switch prefix {
	case calcPrefix:
		b.handleCalcCallback(ctx, cb, action, value)
	case panelPrefix:
		b.handlePanelCallback(ctx, cb, action, value)
	default:
		b.answerCallback(cb.ID, "")
	}
}

func callbackUserID(cb *tgbotapi.CallbackQuery) int64 {
	if cb.From == nil {
		return 0
	}
	return cb.From.ID
}

func chatOf(cb *tgbotapi.CallbackQuery) (chatID int64, messageID int, ok bool) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return 0, 0, false
	}
	return cb.Message.Chat.ID, cb.Message.MessageID, true
}
