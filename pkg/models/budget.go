package models

// BudgetPeriod defines the time window for a budget policy.
type BudgetPeriod string

const (
	BudgetDaily   BudgetPeriod = "daily"
	BudgetMonthly BudgetPeriod = "monthly"
)

// BudgetPolicy caps token spend per user per period. UserID "*" applies to
// everyone; an empty RequestType covers all task types.
type BudgetPolicy struct {
	UserID      string       `json:"user_id" yaml:"user_id"`
	RequestType RequestType  `json:"request_type,omitempty" yaml:"request_type,omitempty"`
	MaxTokens   int64        `json:"max_tokens" yaml:"max_tokens"`
	Period      BudgetPeriod `json:"period" yaml:"period"`
}

// BudgetStatus shows current usage against a policy.
type BudgetStatus struct {
	Policy    BudgetPolicy `json:"policy"`
	Used      int64        `json:"used"`
	Remaining int64        `json:"remaining"`
}
