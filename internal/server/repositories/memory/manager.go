// Package memory is an in-memory RepositoryManager for tests and local
// experiments. It mirrors the error behaviour of the Postgres repositories:
// common.ErrorNotFound for missing rows, common.ErrorAlreadyExists for a
// duplicate email, common.ErrorNotFound from AddFunds when the project
// is not active, and the foreign key mapping of contributions.Create.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/fundkeeper/internal/common"
	"github.com/dmitrijs2005/fundkeeper/internal/dbx"
	"github.com/dmitrijs2005/fundkeeper/internal/server/models"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/contributions"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/projects"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/settings"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/users"
	"github.com/shopspring/decimal"
)

// Store holds the rows shared by the in-memory repositories. Tests may read
// and seed the maps directly.
type Store struct {
	mu            sync.Mutex
	nextID        int64
	Users         map[int64]*models.User
	Projects      map[int64]*models.Project
	Contributions []*models.Contribution
	Settings      map[string]*models.Setting

	// Fail injects an error per operation, keyed "users.Create",
	// "projects.AddFunds" and so on.
	Fail map[string]error

	// OnAddFunds, when set, runs against the stored project right before
	// the increment checks its status.
	OnAddFunds func(p *models.Project)
}

func NewStore() *Store {
	return &Store{
		Users:    map[int64]*models.User{},
		Projects: map[int64]*models.Project{},
		Settings: map[string]*models.Setting{},
		Fail:     map[string]error{},
	}
}

func (m *Store) id() int64 {
	m.nextID++
	return m.nextID
}

// deleteProject removes a project and its contributions. Callers hold mu.
func (m *Store) deleteProject(id int64) {
	delete(m.Projects, id)
	kept := m.Contributions[:0]
	for _, c := range m.Contributions {
		if c.ProjectID != id {
			kept = append(kept, c)
		}
	}
	m.Contributions = kept
}

func (m *Store) AddUser(u models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.id()
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.Provider == "" {
		u.Provider = common.ProviderEmail
	}
	m.Users[u.ID] = &u
	cp := u
	return &cp
}

func (m *Store) AddProject(p models.Project) *models.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	m.Projects[p.ID] = &p
	cp := p
	return &cp
}

func (m *Store) SetSetting(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Settings[key] = &models.Setting{Key: key, Value: value, UpdatedAt: time.Now()}
}

// RepositoryManager implements repomanager.RepositoryManager on a Store.
// The DBTX arguments are ignored, so transactions are not isolated.
type RepositoryManager struct{ s *Store }

var _ repomanager.RepositoryManager = (*RepositoryManager)(nil)

func NewRepositoryManager(s *Store) *RepositoryManager {
	return &RepositoryManager{s: s}
}

func (m *RepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *RepositoryManager) Users(dbx.DBTX) users.Repository {
	return &userRepository{m.s}
}

func (m *RepositoryManager) Projects(dbx.DBTX) projects.Repository {
	return &projectRepository{m.s}
}

func (m *RepositoryManager) Contributions(dbx.DBTX) contributions.Repository {
	return &contributionRepository{m.s}
}

func (m *RepositoryManager) Settings(dbx.DBTX) settings.Repository {
	return &settingRepository{m.s}
}

type userRepository struct{ s *Store }

func (r *userRepository) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.Fail["users.Create"]; err != nil {
		return nil, err
	}
	for _, existing := range r.s.Users {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	cp.ID = r.s.id()
	cp.CreatedAt, cp.UpdatedAt = time.Now(), time.Now()
	r.s.Users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *userRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.Fail["users.GetByID"]; err != nil {
		return nil, err
	}
	u, ok := r.s.Users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.Fail["users.GetByEmail"]; err != nil {
		return nil, err
	}
	for _, u := range r.s.Users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *userRepository) List(context.Context) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.User
	for _, u := range r.s.Users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *userRepository) Update(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.Users[u.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	for _, other := range r.s.Users {
		if other.ID != u.ID && other.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	existing.Name, existing.Email, existing.Role = u.Name, u.Email, u.Role
	existing.UpdatedAt = time.Now()
	cp := *existing
	return &cp, nil
}

func (r *userRepository) UpdateGoogleProfile(_ context.Context, id int64, name, googleID, picture string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.Users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Name, u.GoogleID, u.ProfilePicture = name, googleID, picture
	return nil
}

func (r *userRepository) SetPasswordHash(_ context.Context, id int64, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.Users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *userRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.Fail["users.Delete"]; err != nil {
		return err
	}
	if _, ok := r.s.Users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.Users, id)
	for _, c := range r.s.Contributions {
		if c.UserID != nil && *c.UserID == id {
			c.UserID = nil
		}
	}
	return nil
}

func (r *userRepository) Count(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.Users)), nil
}

// maxTotal mirrors the NUMERIC(12,2) bound of projects.current_amount.
var maxTotal = decimal.New(1, 10)

type projectRepository struct{ s *Store }

func (r *projectRepository) Create(_ context.Context, p *models.Project) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	cp.ID = r.s.id()
	cp.CreatedAt, cp.UpdatedAt = time.Now(), time.Now()
	if owner, ok := r.s.Users[cp.UserID]; ok {
		cp.OwnerName = owner.Name
	}
	r.s.Projects[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *projectRepository) GetByID(_ context.Context, id int64) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.Projects[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *projectRepository) List(_ context.Context, filter models.ProjectFilter) ([]*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Project
	for _, p := range r.s.Projects {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.UserID != 0 && p.UserID != filter.UserID {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *projectRepository) UpdateContent(_ context.Context, p *models.Project) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.Projects[p.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	existing.Title, existing.Description, existing.GoalAmount, existing.ImageURL =
		p.Title, p.Description, p.GoalAmount, p.ImageURL
	existing.UpdatedAt = time.Now()
	cp := *existing
	return &cp, nil
}

func (r *projectRepository) Update(_ context.Context, p *models.Project) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.Projects[p.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	existing.Title, existing.Description, existing.GoalAmount, existing.ImageURL, existing.Status =
		p.Title, p.Description, p.GoalAmount, p.ImageURL, p.Status
	cp := *existing
	return &cp, nil
}

func (r *projectRepository) SetImage(_ context.Context, id int64, ref string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.Projects[id]
	if !ok {
		return common.ErrorNotFound
	}
	p.ImageURL = ref
	return nil
}

func (r *projectRepository) TransitionStatus(_ context.Context, id int64, from, to models.ProjectStatus) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.Projects[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if p.Status != from {
		cp := *p
		return &cp, common.ErrInvalidTransition
	}
	p.Status = to
	cp := *p
	return &cp, nil
}

func (r *projectRepository) SetStatus(_ context.Context, id int64, status models.ProjectStatus) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.Projects[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	p.Status = status
	cp := *p
	return &cp, nil
}

func (r *projectRepository) AddFunds(_ context.Context, id int64, amount decimal.Decimal) (*models.FundedProject, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.Fail["projects.AddFunds"]; err != nil {
		return nil, err
	}
	p, ok := r.s.Projects[id]
	if ok && r.s.OnAddFunds != nil {
		r.s.OnAddFunds(p)
	}
	if !ok || p.Status != models.StatusActive {
		return nil, common.ErrorNotFound
	}
	if p.CurrentAmount.Add(amount).GreaterThanOrEqual(maxTotal) {
		return nil, fmt.Errorf("%w: project total would exceed the maximum", common.ErrInvalidAmount)
	}
	p.CurrentAmount = p.CurrentAmount.Add(amount)
	return &models.FundedProject{ID: p.ID, Title: p.Title, CurrentAmount: p.CurrentAmount, GoalAmount: p.GoalAmount}, nil
}

func (r *projectRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.Projects[id]; !ok {
		return common.ErrorNotFound
	}
	r.s.deleteProject(id)
	return nil
}

func (r *projectRepository) DeleteByOwner(_ context.Context, userID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, p := range r.s.Projects {
		if p.UserID == userID {
			r.s.deleteProject(id)
			n++
		}
	}
	return n, nil
}

func (r *projectRepository) CountByStatus(context.Context) (map[models.ProjectStatus]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[models.ProjectStatus]int64{}
	for _, p := range r.s.Projects {
		out[p.Status]++
	}
	return out, nil
}

type contributionRepository struct{ s *Store }

func (r *contributionRepository) Create(_ context.Context, c *models.Contribution) (*models.Contribution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.Fail["contributions.Create"]; err != nil {
		return nil, err
	}
	if c.UserID != nil {
		if _, ok := r.s.Users[*c.UserID]; !ok {
			return nil, fmt.Errorf("%w: contributor no longer exists", common.ErrorUnauthorized)
		}
	}
	if _, ok := r.s.Projects[c.ProjectID]; !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	cp.ID = r.s.id()
	cp.CreatedAt = time.Now()
	r.s.Contributions = append(r.s.Contributions, &cp)
	return &cp, nil
}

func (r *contributionRepository) ListByUser(_ context.Context, userID int64) ([]*models.UserContribution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.UserContribution
	for _, c := range r.s.Contributions {
		if c.UserID != nil && *c.UserID == userID {
			uc := &models.UserContribution{Contribution: *c}
			if p, ok := r.s.Projects[c.ProjectID]; ok {
				uc.ProjectTitle, uc.ProjectStatus = p.Title, p.Status
			}
			out = append(out, uc)
		}
	}
	return out, nil
}

func (r *contributionRepository) ListAll(context.Context) ([]*models.ContributionDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ContributionDetail
	for _, c := range r.s.Contributions {
		d := &models.ContributionDetail{Contribution: *c}
		if p, ok := r.s.Projects[c.ProjectID]; ok {
			d.ProjectTitle = p.Title
		}
		if c.UserID != nil {
			if u, ok := r.s.Users[*c.UserID]; ok {
				d.UserName, d.UserEmail = u.Name, u.Email
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *contributionRepository) Totals(context.Context) (int64, decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sum := decimal.Zero
	for _, c := range r.s.Contributions {
		sum = sum.Add(c.Amount)
	}
	return int64(len(r.s.Contributions)), sum, nil
}

func (r *contributionRepository) Mismatches(context.Context) ([]*models.ReconciliationRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ReconciliationRow
	for _, p := range r.s.Projects {
		total := decimal.Zero
		for _, c := range r.s.Contributions {
			if c.ProjectID == p.ID {
				total = total.Add(c.Amount)
			}
		}
		if !total.Equal(p.CurrentAmount) {
			out = append(out, &models.ReconciliationRow{
				ProjectID: p.ID, Title: p.Title, CurrentAmount: p.CurrentAmount,
				ContributionTotal: total, Difference: p.CurrentAmount.Sub(total),
			})
		}
	}
	return out, nil
}

type settingRepository struct{ s *Store }

func (r *settingRepository) Get(_ context.Context, key string) (*models.Setting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.Fail["settings.Get"]; err != nil {
		return nil, err
	}
	s, ok := r.s.Settings[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *settingRepository) Upsert(_ context.Context, key, value string) (*models.Setting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s := &models.Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	r.s.Settings[key] = s
	cp := *s
	return &cp, nil
}

func (r *settingRepository) List(context.Context) ([]*models.Setting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Setting
	for _, s := range r.s.Settings {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

