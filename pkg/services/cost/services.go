package cost

import (
	"sort"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const TopServicesLimit = 5

// MergeServices sums amounts of services reported more than once.
func MergeServices(services []domain.ServiceCost) []domain.ServiceCost {
	totals := make(map[string]decimal.Decimal)
	order := make([]string, 0, len(services))
	for _, s := range services {
		if _, seen := totals[s.Name]; !seen {
			order = append(order, s.Name)
			totals[s.Name] = decimal.Zero
		}
		totals[s.Name] = totals[s.Name].Add(s.Amount)
	}

	return lo.Map(order, func(name string, _ int) domain.ServiceCost {
		return domain.ServiceCost{Name: name, Amount: totals[name]}
	})
}

// SumServices returns the total of all service amounts.
func SumServices(services []domain.ServiceCost) decimal.Decimal {
	return lo.Reduce(services, func(acc decimal.Decimal, s domain.ServiceCost, _ int) decimal.Decimal {
		return acc.Add(s.Amount)
	}, decimal.Zero)
}

// TopServices keeps positive amounts, sorted descending, at most TopServicesLimit entries.
func TopServices(services []domain.ServiceCost) []domain.ServiceCost {
	positive := lo.Filter(services, func(s domain.ServiceCost, _ int) bool {
		return s.Amount.IsPositive()
	})

	sort.SliceStable(positive, func(i, j int) bool {
		return positive[i].Amount.GreaterThan(positive[j].Amount)
	})

	if len(positive) > TopServicesLimit {
		positive = positive[:TopServicesLimit]
	}
	return positive
}
