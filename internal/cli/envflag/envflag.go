// Package envflag defines flags whose defaults come from environment
// variables, so every setting can be given either way.
package envflag

import (
	"flag"
	"fmt"
	"strconv"
)

// Type lists the flag types the bot's configuration uses.
type Type interface {
	int | bool | string
}

// Value registers a flag on fs. Precedence, lowest to highest: the value
// argument, the envName environment variable, the flag itself. A malformed
// environment value is ignored and the default kept.
func Value[T Type](
	name, envName string, value T, usage string,
	fs *flag.FlagSet, getenv func(string) string,
) *T {
	if env := getenv(envName); env != "" {
		if parsed, err := parse[T](env); err == nil {
			value = parsed
		}
	}

	v := &flagValue[T]{value: value}
	fs.Var(v, name, usage+" Can be overridden by "+envName+" environment variable.")
	return &v.value
}

func parse[T Type](s string) (T, error) {
	var v T
	switch p := any(&v).(type) {
	case *int:
		n, err := strconv.Atoi(s)
		if err != nil {
			return v, err
		}
		*p = n
	case *bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return v, err
		}
		*p = b
	case *string:
		*p = s
	}
	return v, nil
}

type flagValue[T Type] struct {
	value T
}

func (f *flagValue[T]) String() string {
	if f == nil {
		return ""
	}
	return fmt.Sprint(f.value)
}

func (f *flagValue[T]) Set(s string) error {
	v, err := parse[T](s)
	if err != nil {
		return err
	}
	f.value = v
	return nil
}

// IsBoolFlag lets bool flags be passed without a value, like -dry.
func (f *flagValue[T]) IsBoolFlag() bool {
	_, ok := any(f.value).(bool)
	return ok
}
