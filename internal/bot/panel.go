package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"
)

// How long an idle convert panel keeps its state.
const panelTTL = 30 * time.Minute

var (
	panelCurrencies = []string{"usdt", "amd", "usd", "rub"}
	usdtNetworks    = []string{"trc20", "bep20", "erc20"}
	amdUnits        = []string{"cash", "card"}
	rubMethods      = []string{"sberbank", "tinkoff", "alfabank", "vtb"}

	maxPanelAmount = decimal.NewFromInt(1_000_000_000)
)

// panelView is the data of one convert panel. Handlers take a copy via
// panelState.view so rendering and conversion see a consistent state.
type panelView struct {
	amount     decimal.Decimal
	from       string // usdt, amd, usd, rub
	to         string
	network    string // usdt network
	amdUnit    string
	rubMethod  string
	lastResult string
	lastRate   string
	touched    time.Time
}

// panelState is one user's interactive conversion panel. Updates are
// handled in separate goroutines, so all access goes through the mutex.
type panelState struct {
	mu sync.Mutex
	v  panelView
}

func newPanelState() *panelState {
	return &panelState{v: panelView{
		amount:    decimal.NewFromInt(100),
		from:      "usdt",
		to:        "amd",
		network:   "trc20",
		amdUnit:   "cash",
		rubMethod: "sberbank",
		touched:   time.Now(),
	}}
}

// view returns a copy of the panel data.
func (s *panelState) view() panelView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v
}

func (s *panelState) expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.v.touched) > panelTTL
}

func (s *panelState) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.touched = time.Now()
}

func (s *panelState) setAmount(text string) error {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(text, ",", ""), " ", "")
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return fmt.Errorf("invalid number format")
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if amount.GreaterThan(maxPanelAmount) {
		return fmt.Errorf("amount too large")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.amount = amount
	s.changedLocked()
	return nil
}

// changedLocked marks a selection change: the last result no longer matches
// the state. Callers must hold s.mu.
func (s *panelState) changedLocked() {
	s.v.lastResult = ""
	s.v.lastRate = ""
	s.v.touched = time.Now()
}

// setFrom picks a source currency, swapping when it collides with the target.
func (s *panelState) setFrom(code string) {
	if !contains(panelCurrencies, code) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == s.v.to {
		s.v.to = s.v.from
	}
	s.v.from = code
	s.changedLocked()
}

func (s *panelState) setTo(code string) {
	if !contains(panelCurrencies, code) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == s.v.from {
		s.v.from = s.v.to
	}
	s.v.to = code
	s.changedLocked()
}

func (s *panelState) swap() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.from, s.v.to = s.v.to, s.v.from
	s.changedLocked()
}

func (s *panelState) setNetwork(v string) {
	if !contains(usdtNetworks, v) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.network = v
	s.changedLocked()
}

func (s *panelState) setAMDUnit(v string) {
	if !contains(amdUnits, v) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.amdUnit = v
	s.changedLocked()
}

func (s *panelState) setRUBMethod(v string) {
	if !contains(rubMethods, v) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.rubMethod = v
	s.changedLocked()
}

func (s *panelState) setResult(result, rate string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.lastResult = result
	s.v.lastRate = rate
	s.v.touched = time.Now()
}

func (v panelView) involves(code string) bool { return v.from == code || v.to == code }

// feedCodes resolves the panel selection to exchange-office feed units.
func (v panelView) feedCodes() (from, to, method string) {
	resolve := func(code string) string {
		switch code {
		case "usdt":
			return "USDT" + strings.ToUpper(v.network)
		case "amd":
			if v.amdUnit == "card" {
				return "CARDAMD"
			}
			return "CASHAMD"
		case "usd":
			return "CASHUSD"
		default:
			return strings.ToUpper(code)
		}
	}
	from, to = resolve(v.from), resolve(v.to)
	if v.involves("rub") {
		method = v.rubMethod
	}
	return from, to, method
}

func (v panelView) display(code string) string {
	upper := strings.ToUpper(code)
	switch code {
	case "usdt":
		return upper + " " + strings.ToUpper(v.network)
	case "amd":
		return upper + " " + titleCase(v.amdUnit)
	case "rub":
		return upper + " " + titleCase(v.rubMethod)
	default:
		return upper
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// getPanel returns the user's panel state, creating a fresh one when there
// is none or the old one expired.
func (b *Bot) getPanel(userID int64) *panelState {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.panels[userID]
	if s == nil || s.expired() {
		s = newPanelState()
		b.panels[userID] = s
	}
	return s
}

func (b *Bot) hasPanel(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.panels[userID]
	return s != nil && !s.expired()
}

func (b *Bot) dropPanel(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.panels, userID)
}

func panelData(action, value string) string {
	return panelPrefix + ":" + action + ":" + value
}

// panelAmount renders the panel's amount: whole numbers without decimals.
func panelAmount(d decimal.Decimal) string {
	precision := 2
	if d.IsInteger() {
		precision = 0
	}
	return accounting.FormatNumber(d.InexactFloat64(), precision, ",", ".")
}

func panelText(v panelView) string {
	var sb strings.Builder
	sb.WriteString("💱 <b>Currency Converter</b>\n\n")
	fmt.Fprintf(&sb, "Amount: <b>%s %s</b>\n", panelAmount(v.amount), v.display(v.from))
	fmt.Fprintf(&sb, "To: <b>%s</b>\n", v.display(v.to))
	sb.WriteString("\n<i>Pick options below, then Convert.</i>")
	if v.lastResult != "" {
		sb.WriteString("\n\n━━━━━━━━━━━━━━━━\n")
		fmt.Fprintf(&sb, "<b>Result: %s</b>", v.lastResult)
		if v.lastRate != "" {
			fmt.Fprintf(&sb, "\n<i>%s</i>", v.lastRate)
		}
	}
	return sb.String()
}

func panelKeyboard(v panelView) tgbotapi.InlineKeyboardMarkup {
	btn := tgbotapi.NewInlineKeyboardButtonData

	pick := func(label, action, value string, selected bool) tgbotapi.InlineKeyboardButton {
		if selected {
			label = "· " + label + " ·"
		}
		return btn(label, panelData(action, value))
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			btn("💵 "+panelAmount(v.amount), panelData("noop", "")),
			btn("✏️ Edit", panelData("amount", "")),
		},
		{
			btn("100", panelData("quick", "100")),
			btn("500", panelData("quick", "500")),
			btn("1K", panelData("quick", "1000")),
			btn("5K", panelData("quick", "5000")),
			btn("10K", panelData("quick", "10000")),
		},
	}

	fromRow := []tgbotapi.InlineKeyboardButton{btn("From:", panelData("noop", ""))}
	toRow := []tgbotapi.InlineKeyboardButton{btn("To:", panelData("noop", ""))}
	for _, cur := range panelCurrencies {
		fromRow = append(fromRow, pick(strings.ToUpper(cur), "from", cur, v.from == cur))
		toRow = append(toRow, pick(strings.ToUpper(cur), "to", cur, v.to == cur))
	}
	rows = append(rows, fromRow, toRow)

	if v.involves("usdt") {
		row := []tgbotapi.InlineKeyboardButton{btn("Net:", panelData("noop", ""))}
		for _, net := range usdtNetworks {
			row = append(row, pick(strings.ToUpper(net), "net", net, v.network == net))
		}
		rows = append(rows, row)
	}
	if v.involves("amd") {
		row := []tgbotapi.InlineKeyboardButton{btn("AMD:", panelData("noop", ""))}
		for _, unit := range amdUnits {
			row = append(row, pick(titleCase(unit), "unit", unit, v.amdUnit == unit))
		}
		rows = append(rows, row)
	}
	if v.involves("rub") {
		row := []tgbotapi.InlineKeyboardButton{btn("RUB:", panelData("noop", ""))}
		for _, method := range rubMethods {
			row = append(row, pick(titleCase(method), "method", method, v.rubMethod == method))
		}
		rows = append(rows, row)
	}

	rows = append(rows,
		[]tgbotapi.InlineKeyboardButton{
			btn("🔄 Swap", panelData("swap", "")),
			btn("✅ Convert", panelData("go", "")),
		},
		[]tgbotapi.InlineKeyboardButton{
			btn("❌ Close", panelData("close", "")),
		},
	)

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) sendPanel(ctx context.Context, chatID, userID int64) {
	s := b.getPanel(userID)
	s.touch()

	v := s.view()
	m := tgbotapi.NewMessage(chatID, panelText(v))
	m.ParseMode = tgbotapi.ModeHTML
	m.ReplyMarkup = panelKeyboard(v)
	if _, err := b.tg.Send(m); err != nil {
		b.slog.Error("sending panel failed", "err", err)
	}
}

func (b *Bot) editPanel(s *panelState, chatID int64, messageID int) {
	v := s.view()
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, panelText(v), panelKeyboard(v))
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.tg.Send(edit); err != nil {
		b.slog.Debug("editing panel failed", "err", err)
	}
}

func (b *Bot) handlePanelCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, action, value string) {
	uid := callbackUserID(cb)
	chatID, messageID, ok := chatOf(cb)
	if !ok {
		b.answerCallback(cb.ID, "")
		return
	}

	s := b.getPanel(uid)

	switch action {
	case "noop":
		b.answerCallback(cb.ID, "")
		return

	case "close":
		b.dropPanel(uid)
		if _, err := b.tg.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
			b.slog.Debug("deleting panel failed", "err", err)
		}
		b.answerCallback(cb.ID, "Closed")
		return

	case "amount":
		b.answerCallback(cb.ID, "Type amount in chat")
		return

	case "quick":
		if err := s.setAmount(value); err != nil {
			b.alertCallback(cb.ID, titleCase(err.Error()))
			return
		}
		b.answerCallback(cb.ID, value+" "+strings.ToUpper(s.view().from))

	case "from":
		s.setFrom(value)
		b.answerCallback(cb.ID, "")
	case "to":
		s.setTo(value)
		b.answerCallback(cb.ID, "")
	case "net":
		s.setNetwork(value)
		b.answerCallback(cb.ID, "")
	case "unit":
		s.setAMDUnit(value)
		b.answerCallback(cb.ID, "")
	case "method":
		s.setRUBMethod(value)
		b.answerCallback(cb.ID, "")

	case "swap":
		s.swap()
		b.answerCallback(cb.ID, "Swapped")

	case "go":
		b.answerCallback(cb.ID, "Converting...")
		b.convertPanel(ctx, uid, s)

	default:
		b.answerCallback(cb.ID, "")
		return
	}

	b.editPanel(s, chatID, messageID)
}

// convertPanel runs the conversion for a snapshot of the panel selection and
// stores the result on the state. The office feed is tried first; plain FX
// rates are the fallback.
func (b *Bot) convertPanel(ctx context.Context, userID int64, s *panelState) {
	v := s.view()
	from, to, method := v.feedCodes()
	fromDisplay, toDisplay := v.display(v.from), v.display(v.to)

	if q, err := b.office.Rate(ctx, from, to, method); err == nil {
		result := q.Convert(v.amount)
		s.setResult(
			fmt.Sprintf("%s %s → %s %s",
				panelAmount(v.amount), fromDisplay,
				formatUnits(result, to), toDisplay),
			fmt.Sprintf("1 %s = %s %s", fromDisplay, q.Rate.Round(4), toDisplay))
		b.record(ctx, userID,
			fmt.Sprintf("%s %s -> %s", v.amount, fromDisplay, toDisplay),
			formatUnits(result, to)+" "+toDisplay, "convert")
		return
	}

	r, err := b.rates.Convert(ctx, v.amount.InexactFloat64(), v.from, v.to)
	if err != nil {
		b.slog.Warn("panel conversion failed", "from", v.from, "to", v.to, "err", err)
		s.setResult(fmt.Sprintf("%s → %s - not available", fromDisplay, toDisplay), "")
		return
	}
	s.setResult(r.String(),
		fmt.Sprintf("1 %s = %.4f %s", strings.ToUpper(v.from), r.Rate, strings.ToUpper(v.to)))
	b.record(ctx, userID,
		fmt.Sprintf("%s %s -> %s", v.amount, strings.ToUpper(v.from), strings.ToUpper(v.to)),
		r.String(), "convert")
}

// handlePanelAmount lets users type an amount while a panel is open. It
// reports whether the message was consumed.
func (b *Bot) handlePanelAmount(ctx context.Context, msg *tgbotapi.Message) bool {
	uid := userID(msg)
	if !b.hasPanel(uid) || !numberLike(msg.Text) {
		return false
	}

	s := b.getPanel(uid)
	if err := s.setAmount(msg.Text); err != nil {
		b.reply(msg.Chat.ID, "❌ "+titleCase(err.Error()))
		return true
	}

	b.sendPanel(ctx, msg.Chat.ID, uid)
	return true
}

// numberLike reports whether text is a plain positive number, possibly with
// thousands separators.
func numberLike(text string) bool {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(text, ",", ""), " ", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return false
	}
	if c := cleaned[0]; c != '.' && (c < '0' || c > '9') {
		return false
	}
	v, err := decimal.NewFromString(cleaned)
	return err == nil && v.Sign() > 0 && v.LessThan(maxPanelAmount)
}
