package cost

import "time"

const (
	DateLayout  = "2006-01-02"
	HistoryDays = 14
)

// Period holds the date boundaries shared by every adapter. All values are
// UTC midnights; End values are exclusive.
type Period struct {
	Today          time.Time
	MonthStart     time.Time
	Tomorrow       time.Time
	NextMonthStart time.Time
	HistoryStart   time.Time
}

func NewPeriod(now time.Time) Period {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	return Period{
		Today:          today,
		MonthStart:     monthStart,
		Tomorrow:       today.AddDate(0, 0, 1),
		NextMonthStart: monthStart.AddDate(0, 1, 0),
		HistoryStart:   today.AddDate(0, 0, -HistoryDays),
	}
}

// ForecastOpen reports whether any day of the period is left after today.
func (p Period) ForecastOpen() bool {
	return p.Tomorrow.Before(p.NextMonthStart)
}

// ElapsedDays counts the days from the start of the month through today.
func (p Period) ElapsedDays() int {
	return int(p.Tomorrow.Sub(p.MonthStart).Hours() / 24)
}

// RemainingDays counts the days after today until the end of the month.
func (p Period) RemainingDays() int {
	return int(p.NextMonthStart.Sub(p.Tomorrow).Hours() / 24)
}
