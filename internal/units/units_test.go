package units

import (
	"math"
	"testing"

	"github.com/armcalc/armcalc/internal/testutil"
)

func TestConvert(t *testing.T) {
	cases := map[string]struct {
		amount   float64
		from, to string
		want     float64
		category string
	}{
		"km to miles":        {10, "km", "mi", 6.21371, "distance"},
		"miles to km":        {1, "mile", "km", 1.609344, "distance"},
		"feet to meters":     {100, "ft", "m", 30.48, "distance"},
		"inches to cm":       {1, "in", "cm", 2.54, "distance"},
		"kg to lbs":          {1, "kg", "lb", 2.20462, "weight"},
		"oz to grams":        {1, "oz", "g", 28.3495, "weight"},
		"tonne to kg":        {1, "tonne", "kg", 1000, "weight"},
		"gallons to liters":  {1, "gal", "l", 3.78541, "volume"},
		"cups to ml":         {1, "cup", "ml", 236.588, "volume"},
		"hectares to acres":  {1, "ha", "acre", 2.47105, "area"},
		"sqkm to sqm":        {1, "km2", "m2", 1e6, "area"},
		"kmh to mph":         {100, "kmh", "mph", 62.1371, "speed"},
		"knots to kmh":       {1, "knot", "km/h", 1.852, "speed"},
		"gb to mb":           {1, "gb", "mb", 1024, "data"},
		"bytes to kb":        {2048, "b", "kb", 2, "data"},
		"same unit":          {42, "m", "m", 42, "distance"},
		"celsius to f":       {100, "c", "f", 212, "temperature"},
		"f to celsius":       {32, "f", "c", 0, "temperature"},
		"celsius to kelvin":  {0, "c", "k", 273.15, "temperature"},
		"kelvin to celsius":  {273.15, "kelvin", "celsius", 0, "temperature"},
		"temperature alias":  {451, "fahrenheit", "c", 232.7777777778, "temperature"},
		"case insensitivity": {1, "KM", "M", 1000, "distance"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Convert(tc.amount, tc.from, tc.to)
			if err != nil {
				t.Fatalf("Convert(%v, %q, %q): %v", tc.amount, tc.from, tc.to, err)
			}
			if math.Abs(got.Value-tc.want)/math.Max(math.Abs(tc.want), 1) > 1e-4 {
				t.Fatalf("Convert(%v, %q, %q) = %v, want %v", tc.amount, tc.from, tc.to, got.Value, tc.want)
			}
			testutil.AssertEqual(t, got.Category, tc.category)
		})
	}
}

func TestConvertErrors(t *testing.T) {
	cases := map[string]struct {
		from, to string
	}{
		"unknown source":      {"furlong", "m"},
		"unknown target":      {"m", "furlong"},
		"category mismatch":   {"kg", "km"},
		"temp with non-temp":  {"c", "km"},
		"unknown temperature": {"c", "rankine"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Convert(1, tc.from, tc.to); err == nil {
				t.Fatalf("Convert(1, %q, %q) succeeded, want error", tc.from, tc.to)
			}
		})
	}
}

func TestResultString(t *testing.T) {
	r := Result{Amount: 10, From: "km", To: "mi", Value: 6.21371, Category: "distance"}
	testutil.AssertEqual(t, r.String(), "10 km = 6.2137 mi")

	big := Result{Amount: 1000, From: "m", To: "km", Value: 1, Category: "distance"}
	testutil.AssertEqual(t, big.String(), "1000.00 m = 1 km")
}

func TestSupported(t *testing.T) {
	got := Supported()
	for _, cat := range []string{"distance", "weight", "volume", "area", "speed", "data", "temperature"} {
		if len(got[cat]) == 0 {
			t.Fatalf("category %q has no units", cat)
		}
	}
	testutil.AssertContains(t, got["distance"], "km")
	testutil.AssertContains(t, got["data"], "gb")
}
