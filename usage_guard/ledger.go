package usage_guard

import "time"

// ledger tracks call counts and spend. All access happens under the guard
// mutex.
type ledger struct {
	day  string
	hour time.Time

	dailyCalls  int
	hourlyCalls int

	sessionCost  float64
	reservedCost float64
}

// rollover resets the daily counter on a UTC day change and the hourly
// counter on an hour change. Warning latches for the expired windows are
// reset by the caller.
func (l *ledger) rollover(now time.Time) (newDay, newHour bool) {
	utc := now.UTC()

	day := utc.Format("2006-01-02")
	if day != l.day {
		l.day = day
		l.dailyCalls = 0
		newDay = true
	}

	hour := utc.Truncate(time.Hour)
	if !hour.Equal(l.hour) {
		l.hour = hour
		l.hourlyCalls = 0
		newHour = true
	}

	return newDay, newHour
}
