package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Contribution is an immutable record of one payment into a project.
// UserID is nil once the contributing account has been deleted.
type Contribution struct {
	ID        int64           `json:"id"`
	UserID    *int64          `json:"userId"`
	ProjectID int64           `json:"projectId"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
}

// FundedProject is the project side of a receipt, as it was right after the
// increment.
type FundedProject struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	GoalAmount    decimal.Decimal `json:"goalAmount"`
}

// ContributionReceipt is returned by a successful contribution.
type ContributionReceipt struct {
	Contribution Contribution  `json:"contribution"`
	Project      FundedProject `json:"project"`
}

// UserContribution is a contribution listed for its contributor.
type UserContribution struct {
	Contribution
	ProjectTitle  string        `json:"projectTitle"`
	ProjectStatus ProjectStatus `json:"projectStatus"`
}

// ContributionDetail is a contribution listed for administrators.
type ContributionDetail struct {
	Contribution
	ProjectTitle string `json:"projectTitle"`
	UserName     string `json:"userName,omitempty"`
	UserEmail    string `json:"userEmail,omitempty"`
}
