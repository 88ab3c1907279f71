package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/fundkeeper/internal/common"
	"github.com/dmitrijs2005/fundkeeper/internal/dbx"
	"github.com/dmitrijs2005/fundkeeper/internal/server/models"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/contributions"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/memory"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/repomanager"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type fundingFixture struct {
	store   *memory.Store
	mock    sqlmock.Sqlmock
	svc     *FundingService
	owner   *models.User
	backer  *models.User
	project *models.Project
}

func newFundingFixture(t *testing.T) *fundingFixture {
	t.Helper()
	db, mock := newSQLMockDB(t)
	store := memory.NewStore()
	f := seedFunding(store)
	f.mock = mock
	rm := memory.NewRepositoryManager(store)
	f.svc = NewFundingService(db, rm, NewSettingsService(db, rm))
	return f
}

func seedFunding(store *memory.Store) *fundingFixture {
	owner := store.AddUser(models.User{Email: "owner@example.com", Name: "Owner"})
	backer := store.AddUser(models.User{Email: "backer@example.com", Name: "Backer"})
	project := store.AddProject(models.Project{
		Title:         "Solar roof",
		GoalAmount:    decimal.NewFromInt(1000),
		CurrentAmount: decimal.NewFromInt(200),
		UserID:        owner.ID,
		Status:        models.StatusActive,
	})
	store.SetSetting(common.SettingPaymentEnabled, "true")

	return &fundingFixture{
		store:   store,
		owner:   owner,
		backer:  backer,
		project: project,
	}
}

func (f *fundingFixture) current(t *testing.T) decimal.Decimal {
	t.Helper()
	p, err := memory.NewRepositoryManager(f.store).Projects(nil).GetByID(context.Background(), f.project.ID)
	require.NoError(t, err)
	return p.CurrentAmount
}

func TestContribute_Success(t *testing.T) {
	f := newFundingFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	receipt, err := f.svc.Contribute(context.Background(), f.backer.ID, f.project.ID, decimal.RequireFromString("50"))
	require.NoError(t, err)

	assert.True(t, receipt.Project.CurrentAmount.Equal(decimal.NewFromInt(250)), receipt.Project.CurrentAmount.String())
	assert.True(t, receipt.Contribution.Amount.Equal(decimal.NewFromInt(50)))
	require.NotNil(t, receipt.Contribution.UserID)
	assert.Equal(t, f.backer.ID, *receipt.Contribution.UserID)
	assert.Equal(t, f.project.ID, receipt.Contribution.ProjectID)
	require.Len(t, f.store.Contributions, 1)
	assert.True(t, f.current(t).Equal(decimal.NewFromInt(250)))
}

func TestContribute_RejectedBeforeTransaction(t *testing.T) {
	cases := []struct {
		name    string
		prepare func(f *fundingFixture)
		caller  func(f *fundingFixture) int64
		amount  string
		want    error
	}{
		{name: "zero amount", amount: "0", want: common.ErrInvalidAmount},
		{name: "negative amount", amount: "-5", want: common.ErrInvalidAmount},
		{name: "three decimals", amount: "1.005", want: common.ErrInvalidAmount},
		{name: "too large", amount: "10000000000", want: common.ErrInvalidAmount},
		{
			name:    "payments disabled",
			amount:  "10",
			prepare: func(f *fundingFixture) { f.store.SetSetting(common.SettingPaymentEnabled, "false") },
			want:    common.ErrPaymentDisabled,
		},
		{
			name:    "setting missing",
			amount:  "10",
			prepare: func(f *fundingFixture) { delete(f.store.Settings, common.SettingPaymentEnabled) },
			want:    common.ErrPaymentDisabled,
		},
		{
			name:    "draft project",
			amount:  "10",
			prepare: func(f *fundingFixture) { f.store.Projects[f.project.ID].Status = models.StatusDraft },
			want:    common.ErrProjectNotActive,
		},
		{
			name:    "completed project",
			amount:  "10",
			prepare: func(f *fundingFixture) { f.store.Projects[f.project.ID].Status = models.StatusCompleted },
			want:    common.ErrProjectNotActive,
		},
		{
			name:    "rejected project",
			amount:  "10",
			prepare: func(f *fundingFixture) { f.store.Projects[f.project.ID].Status = models.StatusRejected },
			want:    common.ErrProjectNotActive,
		},
		{
			name:   "own project",
			amount: "10",
			caller: func(f *fundingFixture) int64 { return f.owner.ID },
			want:   common.ErrSelfContribution,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFundingFixture(t)
			if tc.prepare != nil {
				tc.prepare(f)
			}
			caller := f.backer.ID
			if tc.caller != nil {
				caller = tc.caller(f)
			}

			_, err := f.svc.Contribute(context.Background(), caller, f.project.ID, decimal.RequireFromString(tc.amount))
			require.ErrorIs(t, err, tc.want)
			assert.Empty(t, f.store.Contributions)
			assert.True(t, f.current(t).Equal(decimal.NewFromInt(200)))
		})
	}
}

func TestContribute_ProjectMissing(t *testing.T) {
	f := newFundingFixture(t)

	_, err := f.svc.Contribute(context.Background(), f.backer.ID, 999, decimal.NewFromInt(5))
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestContribute_SettingReadPerCall(t *testing.T) {
	f := newFundingFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.svc.Contribute(context.Background(), f.backer.ID, f.project.ID, decimal.NewFromInt(1))
	require.NoError(t, err)

	f.store.SetSetting(common.SettingPaymentEnabled, "false")
	_, err = f.svc.Contribute(context.Background(), f.backer.ID, f.project.ID, decimal.NewFromInt(1))
	require.ErrorIs(t, err, common.ErrPaymentDisabled)
}

func TestContribute_RollsBackWhenIncrementFails(t *testing.T) {
	f := newFundingFixture(t)
	f.store.Fail["projects.AddFunds"] = errors.New("connection reset")
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Contribute(context.Background(), f.backer.ID, f.project.ID, decimal.NewFromInt(50))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestContribute_RollsBackWhenInsertFails(t *testing.T) {
	f := newFundingFixture(t)
	f.store.Fail["contributions.Create"] = errors.New("check violation")
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Contribute(context.Background(), f.backer.ID, f.project.ID, decimal.NewFromInt(50))
	require.Error(t, err)
	assert.True(t, f.current(t).Equal(decimal.NewFromInt(200)))
}

func TestContribute_ProjectClosedDuringTransaction(t *testing.T) {
	f := newFundingFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	// a concurrent admin status change lands between the check and the increment
	f.store.OnAddFunds = func(p *models.Project) { p.Status = models.StatusCompleted }

	_, err := f.svc.Contribute(context.Background(), f.backer.ID, f.project.ID, decimal.NewFromInt(50))
	require.ErrorIs(t, err, common.ErrProjectNotActive)
}

func TestContribute_SettingReadError(t *testing.T) {
	f := newFundingFixture(t)
	f.store.Fail["settings.Get"] = errors.New("db down")

	_, err := f.svc.Contribute(context.Background(), f.backer.ID, f.project.ID, decimal.NewFromInt(5))
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrPaymentDisabled)
}

func TestReconcile(t *testing.T) {
	f := newFundingFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.svc.Contribute(context.Background(), f.backer.ID, f.project.ID, decimal.NewFromInt(50))
	require.NoError(t, err)

	rows, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1, "seeded 200 has no ledger entries behind it")
	assert.Equal(t, "200", rows[0].Difference.String())

	mine, err := f.svc.ListForUser(context.Background(), f.backer.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Solar roof", mine[0].ProjectTitle)
}

func TestContribute_CallerDeleted(t *testing.T) {
	f := newFundingFixture(t)
	delete(f.store.Users, f.backer.ID)

	_, err := f.svc.Contribute(context.Background(), f.backer.ID, f.project.ID, decimal.NewFromInt(5))
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Empty(t, f.store.Contributions)
	assert.True(t, f.current(t).Equal(decimal.NewFromInt(200)))
}

func TestContribute_TotalOverflow(t *testing.T) {
	f := newFundingFixture(t)
	f.store.Projects[f.project.ID].CurrentAmount = decimal.RequireFromString("9999999990.00")
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Contribute(context.Background(), f.backer.ID, f.project.ID, decimal.NewFromInt(20))
	require.ErrorIs(t, err, common.ErrInvalidAmount)
	assert.Equal(t, "9999999990", f.current(t).String())
}

// ledgerManager stores contributions in a real sqlite table so a rolled back
// transaction leaves no row behind.
type ledgerManager struct {
	*memory.RepositoryManager
}

var _ repomanager.RepositoryManager = ledgerManager{}

func (m ledgerManager) Contributions(db dbx.DBTX) contributions.Repository {
	return &ledgerRepository{Repository: m.RepositoryManager.Contributions(db), db: db}
}

type ledgerRepository struct {
	contributions.Repository
	db dbx.DBTX
}

func (r *ledgerRepository) Create(ctx context.Context, c *models.Contribution) (*models.Contribution, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO contributions (user_id, project_id, amount) VALUES (?, ?, ?)`,
		c.UserID, c.ProjectID, c.Amount.String())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	cp := *c
	cp.ID = id
	return &cp, nil
}

func newLedgerFixture(t *testing.T) (*fundingFixture, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE contributions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		project_id INTEGER NOT NULL,
		amount TEXT NOT NULL
	)`)
	require.NoError(t, err)

	store := memory.NewStore()
	f := seedFunding(store)
	rm := ledgerManager{memory.NewRepositoryManager(store)}
	f.svc = NewFundingService(db, rm, NewSettingsService(db, rm))
	return f, db
}

func ledgerRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM contributions`).Scan(&n))
	return n
}

func TestContribute_RollbackLeavesNoLedgerRow(t *testing.T) {
	f, db := newLedgerFixture(t)
	f.store.Fail["projects.AddFunds"] = errors.New("connection reset")

	_, err := f.svc.Contribute(context.Background(), f.backer.ID, f.project.ID, decimal.NewFromInt(50))
	require.Error(t, err)

	assert.Zero(t, ledgerRows(t, db))
	assert.True(t, f.current(t).Equal(decimal.NewFromInt(200)))
}

func TestContribute_OverflowLeavesNoLedgerRow(t *testing.T) {
	f, db := newLedgerFixture(t)
	f.store.Projects[f.project.ID].CurrentAmount = decimal.RequireFromString("9999999990.00")

	_, err := f.svc.Contribute(context.Background(), f.backer.ID, f.project.ID, decimal.NewFromInt(20))
	require.ErrorIs(t, err, common.ErrInvalidAmount)

	assert.Zero(t, ledgerRows(t, db))
}

func TestContribute_Concurrent(t *testing.T) {
	f, db := newLedgerFixture(t)
	const n = 20

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Contribute(context.Background(), f.backer.ID, f.project.ID, decimal.RequireFromString("2.50"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, n, ledgerRows(t, db))
	assert.Equal(t, "250", f.current(t).String())
}
