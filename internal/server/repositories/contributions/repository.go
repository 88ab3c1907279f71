package contributions

import (
	"context"

	"github.com/dmitrijs2005/fundkeeper/internal/server/models"
	"github.com/shopspring/decimal"
)

// Repository stores contributions. Rows are never updated once written.
type Repository interface {
	Create(ctx context.Context, c *models.Contribution) (*models.Contribution, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.UserContribution, error)
	ListAll(ctx context.Context) ([]*models.ContributionDetail, error)
	Totals(ctx context.Context) (int64, decimal.Decimal, error)
	Mismatches(ctx context.Context) ([]*models.ReconciliationRow, error)
}
