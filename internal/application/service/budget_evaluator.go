package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/damon-houk/fintrack/internal/domain/entity"
)

// Tier thresholds as percentages of the monthly budget, inclusive lower bounds
var (
	warningThreshold = decimal.NewFromInt(80)
	dangerThreshold  = decimal.NewFromInt(90)
	overThreshold    = decimal.NewFromInt(100)
	hundred          = decimal.NewFromInt(100)
)

// BudgetEvaluator computes the watchlist of categories near or over budget.
// It is pure: no I/O, no clock, no errors.
type BudgetEvaluator struct{}

// NewBudgetEvaluator creates a new budget evaluator
func NewBudgetEvaluator() *BudgetEvaluator {
	return &BudgetEvaluator{}
}

// MonthWindow returns [first of t's month, first of the next month) in t's location
func MonthWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

// Evaluate sums expense transactions in [periodStart, periodEnd) per budgeted category
// and returns the categories at 80% of budget or more, worst first. Ties are broken
// by category name, then ID. An empty or inverted period yields an empty result.
func (e *BudgetEvaluator) Evaluate(categories []entity.Category, transactions []entity.Transaction, periodStart, periodEnd time.Time) []entity.BudgetStatus {
	watchlist := []entity.BudgetStatus{}
	if !periodEnd.After(periodStart) {
		return watchlist
	}

	spentByCategory := make(map[string]int64)
	for i := range transactions {
		tx := &transactions[i]
		if tx.Type != entity.TransactionExpense || tx.CategoryID == nil {
			continue
		}
		if tx.Date.Before(periodStart) || !tx.Date.Before(periodEnd) {
			continue
		}
		spentByCategory[*tx.CategoryID] += tx.Amount
	}

	for i := range categories {
		category := &categories[i]
		if !category.Budgeted() {
			continue
		}

		budget := *category.MonthlyBudget
		spent := spentByCategory[category.ID]

		tier, ok := classify(spent, budget)
		if !ok {
			continue
		}

		watchlist = append(watchlist, entity.BudgetStatus{
			CategoryID:    category.ID,
			CategoryName:  category.Name,
			CategoryIcon:  category.Icon,
			Spent:         spent,
			MonthlyBudget: budget,
			Percentage:    percentage(spent, budget),
			Remaining:     budget - spent,
			Status:        tier,
		})
	}

	sort.SliceStable(watchlist, func(i, j int) bool {
		a, b := watchlist[i], watchlist[j]
		// spentA/budgetA vs spentB/budgetB without division
		lhs := decimal.NewFromInt(a.Spent).Mul(decimal.NewFromInt(b.MonthlyBudget))
		rhs := decimal.NewFromInt(b.Spent).Mul(decimal.NewFromInt(a.MonthlyBudget))
		if c := lhs.Cmp(rhs); c != 0 {
			return c > 0
		}
		if a.CategoryName != b.CategoryName {
			return a.CategoryName < b.CategoryName
		}
		return a.CategoryID < b.CategoryID
	})

	return watchlist
}

// classify compares spent*100 against threshold*budget exactly. ok is false for
// categories under the warning threshold.
func classify(spent, budget int64) (entity.Tier, bool) {
	scaledSpent := decimal.NewFromInt(spent).Mul(hundred)
	b := decimal.NewFromInt(budget)

	switch {
	case scaledSpent.GreaterThanOrEqual(overThreshold.Mul(b)):
		return entity.TierOver, true
	case scaledSpent.GreaterThanOrEqual(dangerThreshold.Mul(b)):
		return entity.TierDanger, true
	case scaledSpent.GreaterThanOrEqual(warningThreshold.Mul(b)):
		return entity.TierWarning, true
	default:
		return entity.TierOK, false
	}
}

func percentage(spent, budget int64) float64 {
	return decimal.NewFromInt(spent).Mul(hundred).DivRound(decimal.NewFromInt(budget), 4).InexactFloat64()
}
