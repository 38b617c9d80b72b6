package envflag

import (
	"flag"
	"testing"
)

func TestValue(t *testing.T) {
	getenv := func(env map[string]string) func(string) string {
		return func(name string) string { return env[name] }
	}

	t.Run("default", func(t *testing.T) {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		v := Value(
			"token", "TOKEN", "fallback", "Bot token.",
			fs, getenv(nil),
		)
		if err := fs.Parse(nil); err != nil {
			t.Fatal(err)
		}
		if *v != "fallback" {
			t.Fatalf("got %q, want fallback", *v)
		}
	})

	t.Run("env overrides default", func(t *testing.T) {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		v := Value(
			"token", "TOKEN", "fallback", "Bot token.",
			fs, getenv(map[string]string{"TOKEN": "from-env"}),
		)
		if err := fs.Parse(nil); err != nil {
			t.Fatal(err)
		}
		if *v != "from-env" {
			t.Fatalf("got %q, want from-env", *v)
		}
	})

	t.Run("flag overrides env", func(t *testing.T) {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		v := Value(
			"token", "TOKEN", "fallback", "Bot token.",
			fs, getenv(map[string]string{"TOKEN": "from-env"}),
		)
		if err := fs.Parse([]string{"-token", "from-flag"}); err != nil {
			t.Fatal(err)
		}
		if *v != "from-flag" {
			t.Fatalf("got %q, want from-flag", *v)
		}
	})

	t.Run("bool from env", func(t *testing.T) {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		v := Value(
			"dry", "DRY_RUN", false, "Dry-run mode.",
			fs, getenv(map[string]string{"DRY_RUN": "true"}),
		)
		if err := fs.Parse(nil); err != nil {
			t.Fatal(err)
		}
		if !*v {
			t.Fatal("got false, want true")
		}
	})

	t.Run("bare bool flag", func(t *testing.T) {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		v := Value(
			"dry", "DRY_RUN", false, "Dry-run mode.",
			fs, getenv(nil),
		)
		if err := fs.Parse([]string{"-dry"}); err != nil {
			t.Fatal(err)
		}
		if !*v {
			t.Fatal("got false, want true")
		}
	})

	t.Run("malformed env keeps default", func(t *testing.T) {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		v := Value(
			"limit", "LIMIT", 10, "History limit.",
			fs, getenv(map[string]string{"LIMIT": "many"}),
		)
		if err := fs.Parse(nil); err != nil {
			t.Fatal(err)
		}
		if *v != 10 {
			t.Fatalf("got %d, want 10", *v)
		}
	})
}
