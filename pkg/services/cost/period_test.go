package cost

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewPeriod(t *testing.T) {
	p := NewPeriod(time.Date(2026, 10, 15, 17, 30, 0, 0, time.UTC))

	assert.Equal(t, "2026-10-15", p.Today.Format(DateLayout))
	assert.Equal(t, "2026-10-01", p.MonthStart.Format(DateLayout))
	assert.Equal(t, "2026-10-16", p.Tomorrow.Format(DateLayout))
	assert.Equal(t, "2026-11-01", p.NextMonthStart.Format(DateLayout))
	assert.Equal(t, "2026-10-01", p.HistoryStart.Format(DateLayout))
	assert.True(t, p.ForecastOpen())
	assert.Equal(t, 15, p.ElapsedDays())
	assert.Equal(t, 16, p.RemainingDays())
}

func TestNewPeriod_LastDayOfMonth(t *testing.T) {
	p := NewPeriod(time.Date(2026, 12, 31, 8, 0, 0, 0, time.UTC))

	assert.Equal(t, "2027-01-01", p.Tomorrow.Format(DateLayout))
	assert.Equal(t, "2027-01-01", p.NextMonthStart.Format(DateLayout))
	assert.False(t, p.ForecastOpen())
	assert.Equal(t, 0, p.RemainingDays())
}

func TestNewPeriod_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	p := NewPeriod(time.Date(2026, 11, 1, 5, 0, 0, 0, loc))

	assert.Equal(t, "2026-10-31", p.Today.Format(DateLayout))
	assert.Equal(t, "2026-10-01", p.MonthStart.Format(DateLayout))
}
