// Package units converts amounts between measurement units.
//
// Conversions within a category go through a base unit (meters, grams,
// liters, square meters, meters per second, bytes) using factor tables.
// Temperature is special-cased because Celsius, Fahrenheit and Kelvin are
// offset scales, not ratios.
package units

import (
	"fmt"
	"sort"
	"strings"
)

// Result is a completed conversion.
type Result struct {
	Amount   float64
	From     string
	To       string
	Value    float64
	Category string
}

// String renders the conversion like a calculator would: big values get two
// decimal places, small ones keep more precision with trailing zeros trimmed.
func (r Result) String() string {
	return fmt.Sprintf("%s %s = %s %s", formatAmount(r.Amount), r.From, formatAmount(r.Value), r.To)
}

func formatAmount(v float64) string {
	var s string
	switch {
	case v >= 100 || v <= -100:
		return fmt.Sprintf("%.2f", v)
	case v >= 1 || v <= -1:
		s = fmt.Sprintf("%.4f", v)
	default:
		s = fmt.Sprintf("%.6f", v)
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// Factor tables, keyed by normalized unit name, with the value being the
// multiplier to the category's base unit.
var categories = map[string]map[string]float64{
	"distance": { // base: meters
		"km": 1000, "m": 1, "cm": 0.01, "mm": 0.001,
		"mi": 1609.344, "mile": 1609.344, "miles": 1609.344,
		"ft": 0.3048, "feet": 0.3048, "foot": 0.3048,
		"in": 0.0254, "inch": 0.0254, "inches": 0.0254,
		"yd": 0.9144, "yard": 0.9144, "yards": 0.9144,
		"nm": 1852, // nautical mile
	},
	"weight": { // base: grams
		"kg": 1000, "g": 1, "mg": 0.001,
		"lb": 453.592, "lbs": 453.592, "pound": 453.592, "pounds": 453.592,
		"oz": 28.3495, "ounce": 28.3495, "ounces": 28.3495,
		"ton": 1e6, "tonne": 1e6,
		"st": 6350.29, "stone": 6350.29,
	},
	"volume": { // base: liters
		"l": 1, "liter": 1, "litre": 1, "ml": 0.001,
		"gal": 3.78541, "gallon": 3.78541,
		"qt": 0.946353, "quart": 0.946353,
		"pt": 0.473176, "pint": 0.473176,
		"cup": 0.236588,
		"fl_oz": 0.0295735, "floz": 0.0295735,
	},
	"area": { // base: square meters
		"sqm": 1, "m2": 1,
		"sqkm": 1e6, "km2": 1e6,
		"sqft": 0.092903, "ft2": 0.092903,
		"sqmi": 2589988, "mi2": 2589988,
		"acre": 4046.86,
		"hectare": 10000, "ha": 10000,
	},
	"speed": { // base: meters per second
		"ms": 1, "m/s": 1,
		"kmh": 0.277778, "km/h": 0.277778, "kph": 0.277778,
		"mph": 0.44704, "mi/h": 0.44704,
		"knot": 0.514444, "knots": 0.514444, "kt": 0.514444,
	},
	"data": { // base: bytes
		"b": 1, "byte": 1, "bytes": 1,
		"kb": 1 << 10, "kilobyte": 1 << 10,
		"mb": 1 << 20, "megabyte": 1 << 20,
		"gb": 1 << 30, "gigabyte": 1 << 30,
		"tb": 1 << 40, "terabyte": 1 << 40,
		"pb": 1 << 50, "petabyte": 1 << 50,
	},
}

var unitToCategory = func() map[string]string {
	m := make(map[string]string)
	for cat, units := range categories {
		for u := range units {
			m[u] = cat
		}
	}
	return m
}()

var tempAliases = map[string]string{
	"c": "c", "celsius": "c",
	"f": "f", "fahrenheit": "f",
	"k": "k", "kelvin": "k",
}

func normalize(unit string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(unit)), " ", "_")
}

// Convert converts amount between two units of the same category.
func Convert(amount float64, from, to string) (Result, error) {
	fromNorm, toNorm := normalize(from), normalize(to)

	// Temperature wins over factor tables: "c" could plausibly collide with
	// future additions, and both ends must be temperatures.
	_, fromTemp := tempAliases[fromNorm]
	_, toTemp := tempAliases[toNorm]
	if fromTemp || toTemp {
		return convertTemperature(amount, from, to)
	}

	fromCat, ok := unitToCategory[fromNorm]
	if !ok {
		return Result{}, fmt.Errorf("unknown unit %q", from)
	}
	toCat, ok := unitToCategory[toNorm]
	if !ok {
		return Result{}, fmt.Errorf("unknown unit %q", to)
	}
	if fromCat != toCat {
		return Result{}, fmt.Errorf("cannot convert %s (%s) to %s (%s)", from, fromCat, to, toCat)
	}

	value := amount * categories[fromCat][fromNorm] / categories[toCat][toNorm]
	return Result{
		Amount:   amount,
		From:     from,
		To:       to,
		Value:    value,
		Category: fromCat,
	}, nil
}

func convertTemperature(amount float64, from, to string) (Result, error) {
	fromU, ok := tempAliases[normalize(from)]
	if !ok {
		return Result{}, fmt.Errorf("unknown temperature unit %q", from)
	}
	toU, ok := tempAliases[normalize(to)]
	if !ok {
		return Result{}, fmt.Errorf("unknown temperature unit %q", to)
	}

	// Go through Celsius.
	var celsius float64
	switch fromU {
	case "c":
		celsius = amount
	case "f":
		celsius = (amount - 32) * 5 / 9
	case "k":
		celsius = amount - 273.15
	}

	var value float64
	switch toU {
	case "c":
		value = celsius
	case "f":
		value = celsius*9/5 + 32
	case "k":
		value = celsius + 273.15
	}

	return Result{
		Amount:   amount,
		From:     strings.ToUpper(fromU),
		To:       strings.ToUpper(toU),
		Value:    value,
		Category: "temperature",
	}, nil
}

// Supported returns the supported unit names grouped by category, sorted for
// stable help output.
func Supported() map[string][]string {
	out := make(map[string][]string, len(categories)+1)
	for cat, units := range categories {
		names := make([]string, 0, len(units))
		for u := range units {
			names = append(names, u)
		}
		sort.Strings(names)
		out[cat] = names
	}
	out["temperature"] = []string{"c", "f", "k"}
	return out
}
