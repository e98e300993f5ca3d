package entity

// Tier is the watchlist severity of a budget
type Tier string

const (
	TierOK      Tier = "ok"
	TierWarning Tier = "warning"
	TierDanger  Tier = "danger"
	TierOver    Tier = "over"
)

// BudgetStatus is derived on every read and never persisted
type BudgetStatus struct {
	CategoryID    string  `json:"category_id"`
	CategoryName  string  `json:"category_name"`
	CategoryIcon  string  `json:"category_icon,omitempty"`
	Spent         int64   `json:"spent"`
	MonthlyBudget int64   `json:"monthly_budget"`
	Percentage    float64 `json:"percentage"`
	Remaining     int64   `json:"remaining"`
	Status        Tier    `json:"status"`
}
