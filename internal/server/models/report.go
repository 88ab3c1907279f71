package models

import "github.com/shopspring/decimal"

// Stats is the admin dashboard summary.
type Stats struct {
	TotalUsers         int64           `json:"totalUsers"`
	TotalProjects      int64           `json:"totalProjects"`
	ActiveProjects     int64           `json:"activeProjects"`
	TotalContributions int64           `json:"totalContributions"`
	TotalFunding       decimal.Decimal `json:"totalFunding"`
}

// ReconciliationRow reports a project whose running total disagrees with
// the sum of its contributions.
type ReconciliationRow struct {
	ProjectID         int64           `json:"projectId"`
	Title             string          `json:"title"`
	CurrentAmount     decimal.Decimal `json:"currentAmount"`
	ContributionTotal decimal.Decimal `json:"contributionTotal"`
	Difference        decimal.Decimal `json:"difference"`
}
