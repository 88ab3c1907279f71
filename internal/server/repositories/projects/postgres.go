package projects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

const projectColumns = `p.id, p.title, p.description, p.goal_amount, p.current_amount, p.image_url,
	p.user_id, COALESCE(u.name, ''), p.status, p.created_at, p.updated_at`

const selectProjects = `SELECT ` + projectColumns + `
	FROM projects p LEFT JOIN users u ON u.id = p.user_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var (
		p     models.Project
		image sql.NullString
	)
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.GoalAmount, &p.CurrentAmount, &image,
		&p.UserID, &p.OwnerName, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ImageURL = image.String
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Project) (*models.Project, error) {
	query :=
		`INSERT INTO projects (title, description, goal_amount, image_url, user_id, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, current_amount, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		p.Title, p.Description, p.GoalAmount, nullString(p.ImageURL), p.UserID, p.Status,
	).Scan(&p.ID, &p.CurrentAmount, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx, selectProjects+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter models.ProjectFilter) ([]*models.Project, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("p.user_id = $%d", len(args)))
	}

	query := selectProjects
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// UpdateContent writes the owner-editable fields only. status and
// current_amount are left to their own conditional statements.
func (r *PostgresRepository) UpdateContent(ctx context.Context, p *models.Project) (*models.Project, error) {
	query :=
		`UPDATE projects
		 SET title = $1, description = $2, goal_amount = $3, image_url = $4, updated_at = now()
		 WHERE id = $5
		 `

	res, err := r.db.ExecContext(ctx, query, p.Title, p.Description, p.GoalAmount, nullString(p.ImageURL), p.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, p.ID)
}

// Update writes the editable fields and the status. current_amount is never
// written here.
func (r *PostgresRepository) Update(ctx context.Context, p *models.Project) (*models.Project, error) {
	query :=
		`UPDATE projects
		 SET title = $1, description = $2, goal_amount = $3, image_url = $4, status = $5, updated_at = now()
		 WHERE id = $6
		 `

	res, err := r.db.ExecContext(ctx, query, p.Title, p.Description, p.GoalAmount, nullString(p.ImageURL), p.Status, p.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, p.ID)
}

func (r *PostgresRepository) SetImage(ctx context.Context, id int64, ref string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET image_url = $1, updated_at = now() WHERE id = $2`, ref, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

// TransitionStatus moves the project from one status to another in a single
// conditional statement. It returns common.ErrInvalidTransition when the
// project exists but is not in status from.
func (r *PostgresRepository) TransitionStatus(ctx context.Context, id int64, from, to models.ProjectStatus) (*models.Project, error) {
	query :=
		`UPDATE projects SET status = $1, updated_at = now()
		 WHERE id = $2 AND status = $3
		 `

	res, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return p, common.ErrInvalidTransition
	}
	return p, nil
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id int64, status models.ProjectStatus) (*models.Project, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// AddFunds atomically increments current_amount of an active project.
// It returns common.ErrorNotFound when no active project with that id exists
// and common.ErrInvalidAmount when the new total overflows the column.
func (r *PostgresRepository) AddFunds(ctx context.Context, id int64, amount decimal.Decimal) (*models.FundedProject, error) {
	query :=
		`UPDATE projects
		 SET current_amount = current_amount + $1, updated_at = now()
		 WHERE id = $2 AND status = 'active'
		 RETURNING id, title, current_amount, goal_amount
		 `

	var p models.FundedProject
	err := r.db.QueryRowContext(ctx, query, amount, id).Scan(&p.ID, &p.Title, &p.CurrentAmount, &p.GoalAmount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		if dbx.IsNumericOutOfRange(err) {
			return nil, fmt.Errorf("%w: project total would exceed the maximum", common.ErrInvalidAmount)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) DeleteByOwner(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountByStatus(ctx context.Context) (map[models.ProjectStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM projects GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ProjectStatus]int64)
	for rows.Next() {
		var (
			status models.ProjectStatus
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return counts, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
