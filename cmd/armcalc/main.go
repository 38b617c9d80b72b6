package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/armcalc/armcalc/internal/bot"
	"github.com/armcalc/armcalc/internal/cli"
	"github.com/armcalc/armcalc/internal/cli/envflag"
	"github.com/armcalc/armcalc/internal/exoffice"
	"github.com/armcalc/armcalc/internal/fx"
	"github.com/armcalc/armcalc/internal/history"
	"github.com/armcalc/armcalc/internal/price"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; everything can come from the real environment. Load
	// it before flag parsing so env-backed flags see its values.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "loading .env:", err)
		os.Exit(1)
	}
	cli.Main(new(app))
}

var errNoToken = errors.New("missing environment variable TELEGRAM_TOKEN")

type app struct {
	dry          *bool
	dbPath       *string
	historyLimit *int
	priceTTL     *int
	fxTTL        *int
	officeTTL    *int
	feedURL      *string
	logLevel     *string
}

func (a *app) Flags(fs *flag.FlagSet) {
	a.dry = envflag.Value("dry", "DRY_RUN", false, "Use mock prices and rates instead of live APIs.", fs, os.Getenv)
	a.dbPath = envflag.Value("db", "HISTORY_DB", "./data/history.sqlite3", "Path to the SQLite history database.", fs, os.Getenv)
	a.historyLimit = envflag.Value("history-limit", "HISTORY_LIMIT", 10, "History entries kept per user.", fs, os.Getenv)
	a.priceTTL = envflag.Value("price-ttl", "PRICE_CACHE_TTL_SEC", 60, "Crypto price cache TTL, in seconds.", fs, os.Getenv)
	a.fxTTL = envflag.Value("fx-ttl", "FX_CACHE_TTL_SEC", 900, "FX rate cache TTL, in seconds.", fs, os.Getenv)
	a.officeTTL = envflag.Value("office-ttl", "EXOFFICE_TTL_SEC", 300, "Exchange-office feed cache TTL, in seconds.", fs, os.Getenv)
	a.feedURL = envflag.Value("feed-url", "EXOFFICE_FEED_URL", "", "Override the exchange-office feed URL.", fs, os.Getenv)
	a.logLevel = envflag.Value("log-level", "LOG_LEVEL", "info", "Log level, info or debug.", fs, os.Getenv)
}

func (a *app) Run(ctx context.Context, env *cli.Env) error {
	token := env.Getenv("TELEGRAM_TOKEN")
	if token == "" {
		return errNoToken
	}

	level := slog.LevelInfo
	if *a.dry || strings.EqualFold(*a.logLevel, "debug") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(env.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	store, err := history.Open(ctx, *a.dbPath, *a.historyLimit)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer store.Close()

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("connecting to Telegram: %w", scrub(err, token))
	}

	b := bot.New(bot.Options{
		API:         api,
		Prices:      price.New(price.Options{TTL: seconds(*a.priceTTL), DryRun: *a.dry, Logger: logger}),
		Rates:       fx.New(fx.Options{TTL: seconds(*a.fxTTL), DryRun: *a.dry, Logger: logger}),
		Office:      exoffice.New(exoffice.Options{FeedURL: *a.feedURL, TTL: seconds(*a.officeTTL), DryRun: *a.dry, Logger: logger}),
		History:     store,
		DryRun:      *a.dry,
		Logger:      logger,
		MaskedToken: bot.MaskToken(token),
	})

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return scrub(err, token)
	}
	return nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// scrub keeps the bot token out of error messages; Telegram API URLs
// contain it.
func scrub(err error, token string) error {
	return errors.New(strings.ReplaceAll(err.Error(), token, "[EXPUNGED]"))
}
