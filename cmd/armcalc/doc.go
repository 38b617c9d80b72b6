/*
Armcalc is a Telegram calculator bot.

It evaluates math expressions sent in chat, quotes cryptocurrency prices,
converts currencies through an exchange-office feed with plain FX rates as
fallback, converts units and runs small financial calculators. Per-user
history is kept in SQLite.

# Usage

	$ TELEGRAM_TOKEN=... armcalc [flags...]

TELEGRAM_TOKEN is the only required setting. Every flag below can also be
set through its environment variable, and a .env file in the working
directory is loaded when present.
*/
package main

import (
	_ "embed"

	"github.com/armcalc/armcalc/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
