package entity

import "errors"

// CategoryType is income or expense
type CategoryType string

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

// Category groups transactions for a user. MonthlyBudget is in minor units;
// nil means the category has no budget.
type Category struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id"`
	Name          string       `json:"name"`
	Type          CategoryType `json:"type"`
	MonthlyBudget *int64       `json:"monthly_budget,omitempty"`
	Color         string       `json:"color,omitempty"`
	Icon          string       `json:"icon,omitempty"`
}

// Validate ensures the category meets all requirements
func (c *Category) Validate() error {
	if c.UserID == "" {
		return errors.New("user id is required")
	}

	if c.Name == "" {
		return errors.New("name is required")
	}

	if len(c.Name) > 50 {
		return errors.New("name must not exceed 50 characters")
	}

	if c.Type != CategoryIncome && c.Type != CategoryExpense {
		return errors.New("type must be income or expense")
	}

	if c.MonthlyBudget != nil && *c.MonthlyBudget < 0 {
		return errors.New("monthly budget must not be negative")
	}

	return nil
}

// Budgeted reports whether the category takes part in budget evaluation
func (c *Category) Budgeted() bool {
	return c.MonthlyBudget != nil && *c.MonthlyBudget > 0
}
