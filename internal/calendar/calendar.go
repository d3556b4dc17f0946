// Package calendar generates the ordered day sequence of a Bikram Sambat
// fiscal year from an injected month-length table.
//
// A fiscal year runs Magh through Poush: the twelve civil months are
// visited starting at the 10th month of the start year and wrapping into
// the nine leading months of the end year. Generation is a pure function
// of the table, so the same fiscal year always yields the same sequence.
package calendar

import (
	"fmt"

	"bachat/internal/core"
)

// Day is one generated calendar day. Key is the zero-padded BS date,
// Quarter the 1..4 accounting quarter, and Ordinal the 1-based position
// within the fiscal year.
type Day struct {
	Key     string `json:"date"`
	Quarter int    `json:"quarter"`
	Ordinal int    `json:"ordinal"`
}

// visitOrder is the civil-month sequence of a fiscal year: Magh (10)
// through Chaitra (12) of the start year, then Baisakh (1) through
// Poush (9) of the end year.
var visitOrder = [12]int{10, 11, 12, 1, 2, 3, 4, 5, 6, 7, 8, 9}

// Generate returns every day of the fiscal year in calendar order. It
// never fails: a malformed fiscal-year string produces a degenerate
// sequence, per the caller contract that fiscal years come from the
// enumerated list.
func Generate(table Table, fy core.FiscalYear) []Day {
	startYear, endYear := fy.Split()

	var days []Day
	ordinal := 1
	for i, month := range visitOrder {
		yearForDays := startYear
		if i >= 3 {
			yearForDays = endYear
		}
		daysInMonth := table.DaysInMonth(yearForDays, month)

		for day := 1; day <= daysInMonth; day++ {
			days = append(days, Day{
				Key:     fmt.Sprintf("%04d-%02d-%02d", yearForDays, month, day),
				Quarter: quarterOf(i, day),
				Ordinal: ordinal,
			})
			ordinal++
		}
	}
	return days
}

// quarterOf computes the accounting quarter for a day. Quarters span
// three visited months, but the first two days of a quarter-start month
// still belong to the prior quarter, wrapping Q1 back to Q4. This is the
// civil convention where a quarter's last two days spill into the first
// civil month of the next one.
func quarterOf(monthIndex, day int) int {
	quarter := monthIndex/3 + 1
	if monthIndex%3 == 0 && day < 3 {
		if quarter == 1 {
			return 4
		}
		return quarter - 1
	}
	return quarter
}

// YearLength is the number of days Generate would produce for the fiscal
// year: the sum of the twelve resolved month lengths.
func YearLength(table Table, fy core.FiscalYear) int {
	startYear, endYear := fy.Split()
	total := 0
	for i, month := range visitOrder {
		yearForDays := startYear
		if i >= 3 {
			yearForDays = endYear
		}
		total += table.DaysInMonth(yearForDays, month)
	}
	return total
}
