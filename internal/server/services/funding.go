package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fundkeeper/internal/common"
	"github.com/dmitrijs2005/fundkeeper/internal/dbx"
	"github.com/dmitrijs2005/fundkeeper/internal/server/access"
	"github.com/dmitrijs2005/fundkeeper/internal/server/models"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/repomanager"
	"github.com/shopspring/decimal"
)

// FundingService runs the contribution transaction and the ledger reports.
type FundingService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	settings    *SettingsService
}

func NewFundingService(db *sql.DB, m repomanager.RepositoryManager, settings *SettingsService) *FundingService {
	return &FundingService{db: db, repomanager: m, settings: settings}
}

// Contribute records a contribution of amount by callerID to projectID and
// increments the project's running total in the same transaction.
//
// Checks, in order: amount, caller account still exists, payment switch
// (read from the database on every call), project exists and is active,
// caller is not the owner. The
// increment is a single conditional UPDATE, so a project that leaves the
// active status between the check and the write still rejects the
// contribution and the insert is rolled back.
func (s *FundingService) Contribute(ctx context.Context, callerID, projectID int64, amount decimal.Decimal) (*models.ContributionReceipt, error) {
	if err := ValidateMoney(amount); err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Users(s.db).GetByID(ctx, callerID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", common.ErrorUnauthorized)
		}
		return nil, err
	}

	enabled, err := s.settings.PaymentEnabled(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("error reading payment setting: %w", err)
	}
	if !enabled {
		return nil, common.ErrPaymentDisabled
	}

	project, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != models.StatusActive {
		return nil, fmt.Errorf("%w: project is %s", common.ErrProjectNotActive, project.Status)
	}
	if err := access.ForbidSelfContribution(callerID, project.UserID); err != nil {
		return nil, err
	}

	receipt := &models.ContributionReceipt{}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		uid := callerID
		c, err := s.repomanager.Contributions(tx).Create(ctx, &models.Contribution{
			UserID:    &uid,
			ProjectID: projectID,
			Amount:    amount,
		})
		if err != nil {
			return fmt.Errorf("error inserting contribution: %w", err)
		}

		funded, err := s.repomanager.Projects(tx).AddFunds(ctx, projectID, amount)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrProjectNotActive
			}
			return fmt.Errorf("error updating project total: %w", err)
		}

		receipt.Contribution = *c
		receipt.Project = *funded
		return nil
	})
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// ListForUser returns the caller's contributions, newest first.
func (s *FundingService) ListForUser(ctx context.Context, userID int64) ([]*models.UserContribution, error) {
	return s.repomanager.Contributions(s.db).ListByUser(ctx, userID)
}

// ListAll returns every contribution with project and contributor details.
func (s *FundingService) ListAll(ctx context.Context) ([]*models.ContributionDetail, error) {
	return s.repomanager.Contributions(s.db).ListAll(ctx)
}

// Reconcile lists projects whose running total disagrees with the ledger.
// An empty result means the ledger is consistent.
func (s *FundingService) Reconcile(ctx context.Context) ([]*models.ReconciliationRow, error) {
	return s.repomanager.Contributions(s.db).Mismatches(ctx)
}
