package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/fundkeeper/internal/common"
	"github.com/dmitrijs2005/fundkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

var userCols = []string{"id", "email", "password_hash", "name", "role", "provider", "google_id", "profile_picture", "created_at", "updated_at"}

const insertUserQ = `(?s)^INSERT\s+INTO\s+users\s*\(email,\s*password_hash,\s*name,\s*role,\s*provider,\s*google_id,\s*profile_picture\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7\)\s*RETURNING\s+id,\s*created_at,\s*updated_at\s*$`

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(insertUserQ).
		WithArgs("alice@example.com", sql.NullString{String: "$argon2id$h", Valid: true}, "Alice", models.RoleUser, common.ProviderEmail,
			sql.NullString{}, sql.NullString{}).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(42), now, now))

	u := &models.User{Email: "alice@example.com", PasswordHash: "$argon2id$h", Name: "Alice", Role: models.RoleUser, Provider: common.ProviderEmail}
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, now, got.CreatedAt)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(insertUserQ).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), &models.User{Email: "dup@example.com", Name: "D", Role: models.RoleUser})
	require.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(insertUserQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Email: "a@example.com"})
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestGetByEmail(t *testing.T) {
	q := `(?s)^SELECT\s+id,\s*email,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`

	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		now := time.Now()
		mock.ExpectQuery(q).WithArgs("alice@example.com").
			WillReturnRows(sqlmock.NewRows(userCols).
				AddRow(int64(1), "alice@example.com", "$argon2id$h", "Alice", "admin", "email", nil, nil, now, now))

		got, err := repo.GetByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.ID)
		assert.Equal(t, models.RoleAdmin, got.Role)
		assert.Equal(t, "$argon2id$h", got.PasswordHash)
		assert.Empty(t, got.GoogleID)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("ghost@example.com").WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
		require.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestGetByID_NullPassword(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(5), "g@example.com", nil, "G", "user", "google", "gid-1", "https://pic", now, now))

	got, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, got.PasswordHash)
	assert.Equal(t, "gid-1", got.GoogleID)
	assert.Equal(t, "https://pic", got.ProfilePicture)
}

func TestList(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)^SELECT\s+.*FROM\s+users\s+ORDER\s+BY\s+created_at\s+DESC`).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(2), "b@example.com", "h", "B", "user", "email", nil, nil, now, now).
			AddRow(int64(1), "a@example.com", "h", "A", "admin", "email", nil, nil, now, now))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestUpdate(t *testing.T) {
	q := `(?s)^UPDATE\s+users\s+SET\s+name\s*=\s*\$1,\s*email\s*=\s*\$2,\s*role\s*=\s*\$3.*WHERE\s+id\s*=\s*\$4\s+RETURNING`

	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		now := time.Now()
		mock.ExpectQuery(q).WithArgs("New", "n@example.com", models.RoleAdmin, int64(3)).
			WillReturnRows(sqlmock.NewRows(userCols).
				AddRow(int64(3), "n@example.com", "h", "New", "admin", "email", nil, nil, now, now))

		got, err := repo.Update(context.Background(), &models.User{ID: 3, Name: "New", Email: "n@example.com", Role: models.RoleAdmin})
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, got.Role)
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WillReturnError(sql.ErrNoRows)

		_, err := repo.Update(context.Background(), &models.User{ID: 404})
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("email taken", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := repo.Update(context.Background(), &models.User{ID: 3})
		require.ErrorIs(t, err, common.ErrorAlreadyExists)
	})
}

func TestUpdateGoogleProfile(t *testing.T) {
	q := `(?s)^UPDATE\s+users\s+SET\s+name\s*=\s*\$1,\s*google_id\s*=\s*\$2,\s*profile_picture\s*=\s*\$3`

	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).
			WithArgs("Gina", sql.NullString{String: "gid", Valid: true}, sql.NullString{String: "https://pic", Valid: true}, int64(9)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateGoogleProfile(context.Background(), 9, "Gina", "gid", "https://pic"))
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateGoogleProfile(context.Background(), 9, "Gina", "gid", "")
		require.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestSetPasswordHash(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`UPDATE users SET password_hash = \$1, updated_at = now\(\) WHERE id = \$2`).
		WithArgs("$argon2id$new", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetPasswordHash(context.Background(), 1, "$argon2id$new"))
}

func TestDelete(t *testing.T) {
	q := `(?s)^DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`

	t.Run("deleted", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.Delete(context.Background(), 7))
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 0))
		require.ErrorIs(t, repo.Delete(context.Background(), 7), common.ErrorNotFound)
	})
}

func TestCount(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
