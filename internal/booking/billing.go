package booking

import "time"

// NextBillingDate returns startDate plus N months for the smallest N putting
// the result on or after today, along with N itself. N is zero when today is
// the start date, the cycle already paid at checkout. The reminder scanner
// and the admin payment-reminder command both derive the date here, so the
// two can never disagree on what the next cycle is.
func NextBillingDate(startDate, today time.Time) (time.Time, int) {
	candidate := TruncateToDay(startDate)
	day := TruncateToDay(today)
	months := 0
	for candidate.Before(day) {
		candidate = candidate.AddDate(0, 1, 0)
		months++
	}
	return candidate, months
}

// TruncateToDay drops the time of day while keeping the location, so day
// comparisons follow the local calendar rather than UTC epoch days.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
