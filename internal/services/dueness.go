package services

import "time"

// isDueMonthly reports whether a monthly recurring template should post again.
// A template is due once per calendar month, on or after its day-of-month.
// When the target day does not exist in the current month (e.g. the 31st in
// February) the last day of the month is used instead.
func isDueMonthly(lastOccurrence, now time.Time, targetDay int) bool {
	// Already posted this month?
	if lastOccurrence.Year() == now.Year() && lastOccurrence.Month() == now.Month() {
		return false
	}

	lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	targetDayThisMonth := targetDay
	if targetDay > lastDayOfMonth {
		targetDayThisMonth = lastDayOfMonth
	}

	return now.Day() >= targetDayThisMonth
}
