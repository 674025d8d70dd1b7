package anomaly

import (
	"sort"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/shopspring/decimal"
)

const minHistory = 3

var (
	DefaultMultiplier = decimal.NewFromInt(3)
	DefaultFloor      = decimal.NewFromInt(1)
)

// Detector flags the latest day of a cost history when it is more than
// Multiplier times the average of the preceding days and above Floor.
type Detector struct {
	Multiplier decimal.Decimal
	Floor      decimal.Decimal
}

func NewDetector() Detector {
	return Detector{Multiplier: DefaultMultiplier, Floor: DefaultFloor}
}

// Detect returns nil when the history is too short or the latest value is not anomalous.
func (d Detector) Detect(history []domain.DailyCost) *domain.AnomalyFlag {
	if len(history) < minHistory {
		return nil
	}

	latest := history[len(history)-1]
	prior := history[:len(history)-1]

	sum := decimal.Zero
	for _, day := range prior {
		sum = sum.Add(day.Cost)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(prior))))

	if latest.Cost.GreaterThan(avg.Mul(d.Multiplier)) && latest.Cost.GreaterThan(d.Floor) {
		return &domain.AnomalyFlag{
			IsAnomaly: true,
			Date:      latest.Date,
			Today:     latest.Cost,
			Average:   avg,
		}
	}
	return nil
}

// SortHistory orders a cost history chronologically in place.
func SortHistory(history []domain.DailyCost) {
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Date.Before(history[j].Date)
	})
}
