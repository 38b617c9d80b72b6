// Package finance implements the bot's small financial calculators: loan
// payments, tips, bill splitting and day counting.
package finance

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// LoanResult describes an annuity loan.
type LoanResult struct {
	Principal     float64
	AnnualRate    float64 // percent
	Months        int
	Monthly       float64
	TotalPaid     float64
	TotalInterest float64
}

// Loan computes the monthly payment for an annuity loan:
//
//	M = P * r(1+r)^n / ((1+r)^n - 1)
//
// where r is the monthly rate and n the number of months. A zero rate is the
// interest-free special case.
func Loan(principal, annualRate float64, months int) (LoanResult, error) {
	if principal <= 0 {
		return LoanResult{}, errors.New("loan amount must be positive")
	}
	if months <= 0 {
		return LoanResult{}, errors.New("loan term must be positive")
	}
	if annualRate < 0 {
		return LoanResult{}, errors.New("interest rate cannot be negative")
	}

	r := LoanResult{
		Principal:  principal,
		AnnualRate: annualRate,
		Months:     months,
	}

	if annualRate == 0 {
		r.Monthly = principal / float64(months)
		r.TotalPaid = principal
		return r, nil
	}

	monthly := annualRate / 100 / 12
	pow := math.Pow(1+monthly, float64(months))
	r.Monthly = principal * monthly * pow / (pow - 1)
	r.TotalPaid = r.Monthly * float64(months)
	r.TotalInterest = r.TotalPaid - principal
	return r, nil
}

// TipResult describes a computed tip.
type TipResult struct {
	Bill    float64
	Percent float64
	Tip     float64
	Total   float64
}

// Tip computes the tip amount and the total for a bill.
func Tip(bill, percent float64) (TipResult, error) {
	if bill <= 0 {
		return TipResult{}, errors.New("bill must be positive")
	}
	if percent < 0 {
		return TipResult{}, errors.New("tip percent cannot be negative")
	}
	tip := bill * percent / 100
	return TipResult{
		Bill:    bill,
		Percent: percent,
		Tip:     tip,
		Total:   bill + tip,
	}, nil
}

// SplitResult describes a bill split between several people.
type SplitResult struct {
	Bill       float64
	People     int
	TipPercent float64
	Total      float64 // bill including tip
	PerPerson  float64
}

// Split divides a bill (optionally with a tip) evenly between people.
func Split(bill float64, people int, tipPercent float64) (SplitResult, error) {
	if bill <= 0 {
		return SplitResult{}, errors.New("bill must be positive")
	}
	if people <= 0 {
		return SplitResult{}, errors.New("number of people must be positive")
	}
	if tipPercent < 0 {
		return SplitResult{}, errors.New("tip percent cannot be negative")
	}
	total := bill * (1 + tipPercent/100)
	return SplitResult{
		Bill:       bill,
		People:     people,
		TipPercent: tipPercent,
		Total:      total,
		PerPerson:  total / float64(people),
	}, nil
}

// DaysResult is the distance between two dates.
type DaysResult struct {
	From  time.Time
	To    time.Time
	Days  int // absolute
	Weeks int
	Rem   int // days left over after full weeks
}

// Accepted date layouts, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"01/02/2006",
}

// ParseDate parses a date in one of the accepted layouts: YYYY-MM-DD,
// DD.MM.YYYY, DD/MM/YYYY or MM/DD/YYYY.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
}

// DaysBetween counts the days between two dates, in either order.
func DaysBetween(from, to string) (DaysResult, error) {
	d1, err := ParseDate(from)
	if err != nil {
		return DaysResult{}, err
	}
	d2, err := ParseDate(to)
	if err != nil {
		return DaysResult{}, err
	}

	days := int(math.Abs(d2.Sub(d1).Hours() / 24))
	return DaysResult{
		From:  d1,
		To:    d2,
		Days:  days,
		Weeks: days / 7,
		Rem:   days % 7,
	}, nil
}
