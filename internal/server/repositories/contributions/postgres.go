package contributions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fundkeeper/internal/common"
	"github.com/dmitrijs2005/fundkeeper/internal/dbx"
	"github.com/dmitrijs2005/fundkeeper/internal/server/models"
	"github.com/shopspring/decimal"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Default names of the contributions foreign keys in 00001_init.sql.
const (
	userFK    = "contributions_user_id_fkey"
	projectFK = "contributions_project_id_fkey"
)

// Create inserts a contribution. A contributor whose account is gone yields
// common.ErrorUnauthorized; a missing project yields common.ErrorNotFound.
func (r *PostgresRepository) Create(ctx context.Context, c *models.Contribution) (*models.Contribution, error) {
	query :=
		`INSERT INTO contributions (user_id, project_id, amount)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	var userID sql.NullInt64
	if c.UserID != nil {
		userID = sql.NullInt64{Int64: *c.UserID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query, userID, c.ProjectID, c.Amount).Scan(&c.ID, &c.CreatedAt)
	switch {
	case err == nil:
	case dbx.IsForeignKeyViolation(err, userFK):
		return nil, fmt.Errorf("%w: contributor no longer exists", common.ErrorUnauthorized)
	case dbx.IsForeignKeyViolation(err, projectFK):
		return nil, common.ErrorNotFound
	default:
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.UserContribution, error) {
	query :=
		`SELECT c.id, c.user_id, c.project_id, c.amount, c.created_at, p.title, p.status
		 FROM contributions c
		 JOIN projects p ON p.id = c.project_id
		 WHERE c.user_id = $1
		 ORDER BY c.created_at DESC, c.id DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.UserContribution
	for rows.Next() {
		var (
			uc  models.UserContribution
			uid sql.NullInt64
		)
		if err := rows.Scan(&uc.ID, &uid, &uc.ProjectID, &uc.Amount, &uc.CreatedAt, &uc.ProjectTitle, &uc.ProjectStatus); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		uc.UserID = nullableID(uid)
		result = append(result, &uc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.ContributionDetail, error) {
	query :=
		`SELECT c.id, c.user_id, c.project_id, c.amount, c.created_at, p.title,
		        COALESCE(u.name, ''), COALESCE(u.email, '')
		 FROM contributions c
		 JOIN projects p ON p.id = c.project_id
		 LEFT JOIN users u ON u.id = c.user_id
		 ORDER BY c.created_at DESC, c.id DESC
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.ContributionDetail
	for rows.Next() {
		var (
			d   models.ContributionDetail
			uid sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &uid, &d.ProjectID, &d.Amount, &d.CreatedAt, &d.ProjectTitle, &d.UserName, &d.UserEmail); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		d.UserID = nullableID(uid)
		result = append(result, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Totals returns the number of contributions and their sum.
func (r *PostgresRepository) Totals(ctx context.Context) (int64, decimal.Decimal, error) {
	var (
		n   int64
		sum decimal.Decimal
	)
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM contributions`).Scan(&n, &sum)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("db error: %w", err)
	}
	return n, sum, nil
}

// Mismatches lists projects whose current_amount differs from the sum of
// their contributions.
func (r *PostgresRepository) Mismatches(ctx context.Context) ([]*models.ReconciliationRow, error) {
	query :=
		`SELECT p.id, p.title, p.current_amount, COALESCE(SUM(c.amount), 0) AS total
		 FROM projects p
		 LEFT JOIN contributions c ON c.project_id = p.id
		 GROUP BY p.id, p.title, p.current_amount
		 HAVING p.current_amount <> COALESCE(SUM(c.amount), 0)
		 ORDER BY p.id
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.ReconciliationRow
	for rows.Next() {
		var row models.ReconciliationRow
		if err := rows.Scan(&row.ProjectID, &row.Title, &row.CurrentAmount, &row.ContributionTotal); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		row.Difference = row.CurrentAmount.Sub(row.ContributionTotal)
		result = append(result, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
