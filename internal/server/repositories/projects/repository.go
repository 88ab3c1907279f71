package projects

import (
	"context"

	"github.com/dmitrijs2005/fundkeeper/internal/server/models"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, p *models.Project) (*models.Project, error)
	GetByID(ctx context.Context, id int64) (*models.Project, error)
	List(ctx context.Context, filter models.ProjectFilter) ([]*models.Project, error)
	UpdateContent(ctx context.Context, p *models.Project) (*models.Project, error)
	Update(ctx context.Context, p *models.Project) (*models.Project, error)
	SetImage(ctx context.Context, id int64, ref string) error
	TransitionStatus(ctx context.Context, id int64, from, to models.ProjectStatus) (*models.Project, error)
	SetStatus(ctx context.Context, id int64, status models.ProjectStatus) (*models.Project, error)
	AddFunds(ctx context.Context, id int64, amount decimal.Decimal) (*models.FundedProject, error)
	Delete(ctx context.Context, id int64) error
	DeleteByOwner(ctx context.Context, userID int64) (int64, error)
	CountByStatus(ctx context.Context) (map[models.ProjectStatus]int64, error)
}
