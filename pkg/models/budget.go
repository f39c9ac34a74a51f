package models

// BudgetPeriod defines the time window for a budget policy.
type BudgetPeriod string

const (
	BudgetDaily   BudgetPeriod = "daily"
	BudgetMonthly BudgetPeriod = "monthly"
)

// BudgetPolicy caps live API spend per period. An empty Model applies the
// policy to all models combined. A zero limit is not enforced.
type BudgetPolicy struct {
	Model      string       `json:"model,omitempty" yaml:"model,omitempty"`
	MaxTokens  int          `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	MaxCostUSD float64      `json:"max_cost_usd,omitempty" yaml:"max_cost_usd,omitempty"`
	Period     BudgetPeriod `json:"period" yaml:"period"`
}

// BudgetStatus shows current usage against a policy.
type BudgetStatus struct {
	Policy     BudgetPolicy `json:"policy"`
	UsedTokens int          `json:"used_tokens"`
	UsedUSD    float64      `json:"used_usd"`
	// Remaining is the token headroom, or -1 when tokens are not capped.
	Remaining int `json:"remaining"`
}
