package calendar

// Table maps a Bikram Sambat year to its twelve month lengths. The table
// is injected configuration: years missing from it fall back to
// fallbackMonths, and a zero entry falls back to 30 days.
type Table map[int][12]int

// fallbackMonths approximates a BS year when the real month lengths are
// unknown: five 31-day months followed by seven 30-day months.
var fallbackMonths = [12]int{31, 31, 31, 31, 31, 30, 30, 30, 30, 30, 30, 30}

// DefaultTable returns the bundled month-length table, sourced from the
// Hamro Patro calendar for BS 2081 through 2090.
func DefaultTable() Table {
	return Table{
		2081: {31, 32, 31, 32, 31, 30, 30, 30, 29, 30, 30, 31},
		2082: {31, 31, 32, 31, 31, 31, 30, 30, 30, 29, 30, 30},
		2083: {31, 31, 32, 31, 31, 31, 30, 29, 30, 29, 30, 30},
		2084: {31, 31, 32, 31, 31, 30, 30, 30, 29, 30, 30, 30},
		2085: {31, 32, 31, 32, 30, 31, 30, 30, 29, 30, 30, 30},
		2086: {30, 32, 31, 32, 31, 30, 30, 30, 29, 30, 30, 30},
		2087: {31, 31, 32, 31, 31, 31, 30, 30, 29, 30, 30, 30},
		2088: {30, 31, 32, 32, 30, 31, 30, 30, 29, 30, 30, 30},
		2089: {30, 32, 31, 32, 31, 30, 30, 30, 29, 30, 30, 30},
		2090: {30, 32, 31, 32, 31, 30, 30, 30, 29, 30, 30, 30},
	}
}

// DaysInMonth resolves the day count for a civil month (1-12) of a BS
// year. Years absent from the table use the fallback sequence, and a
// zero entry defaults to 30.
func (t Table) DaysInMonth(year, month int) int {
	if month < 1 || month > 12 {
		return 30
	}
	months, ok := t[year]
	if !ok {
		months = fallbackMonths
	}
	if d := months[month-1]; d > 0 {
		return d
	}
	return 30
}
