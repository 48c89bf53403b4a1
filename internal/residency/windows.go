package residency

import "time"

const day = 24 * time.Hour

// OverlapDays sums the overlap of each trip with [windowStart, windowEnd] and
// returns it in days. Open trips run until now. The result is never rounded;
// display precision is the caller's concern.
func OverlapDays(trips []Trip, windowStart, windowEnd, now time.Time) float64 {
	var total time.Duration
	for _, t := range trips {
		start := t.Start.OccurredAt
		end := t.EffectiveEnd(now)

		if start.Before(windowStart) {
			start = windowStart
		}
		if end.After(windowEnd) {
			end = windowEnd
		}
		if end.After(start) {
			total += end.Sub(start)
		}
	}
	return float64(total) / float64(day)
}

// RollingWindowDays counts presence days in the trailing n-day window ending
// at asOf.
func RollingWindowDays(trips []Trip, n int, asOf time.Time) float64 {
	return OverlapDays(trips, asOf.Add(-time.Duration(n)*day), asOf, asOf)
}

// FiscalYearWindow returns the April 1 – March 31 accounting period that
// starts in the given calendar year, in UTC.
func FiscalYearWindow(year int) (start, end time.Time) {
	start = time.Date(year, time.April, 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(year+1, time.March, 31, 23, 59, 59, 999_000_000, time.UTC)
	return start, end
}

// FiscalYearDays counts presence days in the fiscal year starting in the
// given calendar year, truncated at asOf.
func FiscalYearDays(trips []Trip, year int, asOf time.Time) float64 {
	start, end := FiscalYearWindow(year)
	if asOf.Before(end) {
		end = asOf
	}
	return OverlapDays(trips, start, end, asOf)
}

// FiscalYearFor returns the starting calendar year of the fiscal year that
// contains t.
func FiscalYearFor(t time.Time) int {
	t = t.UTC()
	if t.Month() >= time.April {
		return t.Year()
	}
	return t.Year() - 1
}

// Forecast returns how many presence days remain before thresholdDays is
// reached in the trailing 365-day window ending at targetDate, based on data
// up to asOf. The result is capped at the calendar days left between asOf and
// targetDate: one cannot spend more days than exist.
func Forecast(trips []Trip, targetDate time.Time, thresholdDays float64, asOf time.Time) float64 {
	windowStart := targetDate.Add(-365 * day)
	dataEnd := targetDate
	if asOf.Before(dataEnd) {
		dataEnd = asOf
	}

	consumed := OverlapDays(trips, windowStart, dataEnd, asOf)

	remaining := thresholdDays - consumed
	if remaining < 0 {
		return 0
	}

	calendarLeft := float64(targetDate.Sub(asOf)) / float64(day)
	if calendarLeft < 0 {
		calendarLeft = 0
	}
	if remaining > calendarLeft {
		return calendarLeft
	}
	return remaining
}
