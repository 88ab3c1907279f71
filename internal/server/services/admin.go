package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fundkeeper/internal/server/models"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/repomanager"
)

// AdminService builds the admin dashboard figures.
type AdminService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAdminService(db *sql.DB, m repomanager.RepositoryManager) *AdminService {
	return &AdminService{db: db, repomanager: m}
}

func (s *AdminService) Stats(ctx context.Context) (*models.Stats, error) {
	users, err := s.repomanager.Users(s.db).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting users: %w", err)
	}

	byStatus, err := s.repomanager.Projects(s.db).CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting projects: %w", err)
	}
	var projects int64
	for _, n := range byStatus {
		projects += n
	}

	count, total, err := s.repomanager.Contributions(s.db).Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("error summing contributions: %w", err)
	}

	return &models.Stats{
		TotalUsers:         users,
		TotalProjects:      projects,
		ActiveProjects:     byStatus[models.StatusActive],
		TotalContributions: count,
		TotalFunding:       total,
	}, nil
}
