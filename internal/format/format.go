// Package format renders amounts, dates and periods the way Dutch bookkeeping
// documents show them, and checks Dutch business identifiers.
package format

import (
	"fmt"
	"regexp"
	"time"

	"btw-buddy/internal/timeutil"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Dutch)

// Currency formats d as euros in Dutch notation: € 1.234,56
func Currency(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return "€ " + printer.Sprintf("%.2f", f)
}

// Percent formats a VAT rate: 21%, 5,5%
func Percent(rate decimal.Decimal) string {
	if rate.IsInteger() {
		return rate.String() + "%"
	}
	f, _ := rate.Float64()
	return printer.Sprintf("%v", f) + "%"
}

// Date formats t as dd-mm-yyyy in Amsterdam time
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return timeutil.ToLocal(t).Format(timeutil.DisplayDateLayout)
}

// VAT return filing frequencies
const (
	PeriodMonth   = "month"
	PeriodQuarter = "quarter"
	PeriodYear    = "year"
)

// Period labels the VAT period containing t for the given frequency:
// 2024-07, 2024-Q3 or 2024. Unknown frequencies fall back to quarters,
// the Belastingdienst default.
func Period(t time.Time, frequency string) string {
	local := timeutil.ToLocal(t)
	switch frequency {
	case PeriodMonth:
		return local.Format("2006-01")
	case PeriodYear:
		return fmt.Sprintf("%d", local.Year())
	default:
		return timeutil.QuarterLabel(local)
	}
}

var (
	monthLabel   = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
	quarterLabel = regexp.MustCompile(`^\d{4}-Q[1-4]$`)
	yearLabel    = regexp.MustCompile(`^\d{4}$`)
)

// PeriodFrequency reports which frequency produced a label from Period
func PeriodFrequency(label string) (string, bool) {
	switch {
	case monthLabel.MatchString(label):
		return PeriodMonth, true
	case quarterLabel.MatchString(label):
		return PeriodQuarter, true
	case yearLabel.MatchString(label):
		return PeriodYear, true
	}
	return "", false
}
