package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fundkeeper/internal/common"
	"github.com/dmitrijs2005/fundkeeper/internal/server/access"
	"github.com/dmitrijs2005/fundkeeper/internal/server/models"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/repomanager"
	"github.com/shopspring/decimal"
)

// maxMoney is the exclusive upper bound of NUMERIC(12,2).
var maxMoney = decimal.New(1, 10)

// ValidateMoney checks that d is positive, has at most two fractional digits
// and fits the amount columns.
func ValidateMoney(d decimal.Decimal) error {
	if !d.IsPositive() || !d.Equal(d.Truncate(2)) || d.GreaterThanOrEqual(maxMoney) {
		return common.ErrInvalidAmount
	}
	return nil
}

// ProjectInput carries the user-editable project fields.
type ProjectInput struct {
	Title       string
	Description string
	GoalAmount  decimal.Decimal
	ImageURL    string
}

func (in *ProjectInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", common.ErrorValidation)
	}
	if err := ValidateMoney(in.GoalAmount); err != nil {
		return fmt.Errorf("%w: goal amount must be a positive amount with at most two decimals", common.ErrorValidation)
	}
	return nil
}

// ProjectService manages the project lifecycle outside of funding.
type ProjectService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	gate        *access.Gate
}

func NewProjectService(db *sql.DB, m repomanager.RepositoryManager, gate *access.Gate) *ProjectService {
	return &ProjectService{db: db, repomanager: m, gate: gate}
}

// Create stores a new draft project owned by ownerID.
func (s *ProjectService) Create(ctx context.Context, ownerID int64, in ProjectInput) (*models.Project, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	p, err := s.repomanager.Projects(s.db).Create(ctx, &models.Project{
		Title:       in.Title,
		Description: in.Description,
		GoalAmount:  in.GoalAmount,
		ImageURL:    in.ImageURL,
		UserID:      ownerID,
		Status:      models.StatusDraft,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating project: %w", err)
	}
	return p, nil
}

func (s *ProjectService) List(ctx context.Context, filter models.ProjectFilter) ([]*models.Project, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidStatus, filter.Status)
	}
	return s.repomanager.Projects(s.db).List(ctx, filter)
}

func (s *ProjectService) Get(ctx context.Context, id int64) (*models.Project, error) {
	return s.repomanager.Projects(s.db).GetByID(ctx, id)
}

// Authorize loads the project and checks that the caller owns it or is an
// admin.
func (s *ProjectService) Authorize(ctx context.Context, id int64) (*models.Project, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireOwnerOrAdmin(ctx, p.UserID); err != nil {
		return nil, err
	}
	return p, nil
}

// Update edits content fields. The status column is not written, so a
// concurrent Start or admin status change is never reverted.
func (s *ProjectService) Update(ctx context.Context, id int64, in ProjectInput) (*models.Project, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	p, err := s.Authorize(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Title, p.Description, p.GoalAmount, p.ImageURL = in.Title, in.Description, in.GoalAmount, in.ImageURL
	return s.repomanager.Projects(s.db).UpdateContent(ctx, p)
}

// Start moves a draft project to active. Any other current status fails
// with common.ErrInvalidTransition naming that status.
func (s *ProjectService) Start(ctx context.Context, id int64) (*models.Project, error) {
	if _, err := s.Authorize(ctx, id); err != nil {
		return nil, err
	}

	p, err := s.repomanager.Projects(s.db).TransitionStatus(ctx, id, models.StatusDraft, models.StatusActive)
	if err != nil {
		if errors.Is(err, common.ErrInvalidTransition) && p != nil {
			return nil, fmt.Errorf("%w: project is %s, only draft projects can be started", common.ErrInvalidTransition, p.Status)
		}
		return nil, err
	}
	return p, nil
}

// AdminUpdate edits content fields and the status in one write.
func (s *ProjectService) AdminUpdate(ctx context.Context, id int64, in ProjectInput, status models.ProjectStatus) (*models.Project, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidStatus, status)
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Title, p.Description, p.GoalAmount, p.ImageURL, p.Status = in.Title, in.Description, in.GoalAmount, in.ImageURL, status
	return s.repomanager.Projects(s.db).Update(ctx, p)
}

// SetStatus overrides the status with any of the four known values.
func (s *ProjectService) SetStatus(ctx context.Context, id int64, status models.ProjectStatus) (*models.Project, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidStatus, status)
	}
	return s.repomanager.Projects(s.db).SetStatus(ctx, id, status)
}

// Delete removes a project; its contributions go with it.
func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	return s.repomanager.Projects(s.db).Delete(ctx, id)
}

// SetImage records the image reference of a project.
func (s *ProjectService) SetImage(ctx context.Context, id int64, ref string) error {
	return s.repomanager.Projects(s.db).SetImage(ctx, id, ref)
}
