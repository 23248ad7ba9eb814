package userrepository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/fcv-2025.net/assessment/internal/adapter/logging"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
)

func newRepo(t *testing.T) (*userRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := New(sqlx.NewDb(db, "postgres"), logging.NewNopLogger(), "public").(*userRepo)
	return repo, mock
}

const selectUser = "SELECT id, user_name, password_hash, student_code, email, auth_provider, google_id, role FROM public.users WHERE "

func TestGetByUserName(t *testing.T) {
	repo, mock := newRepo(t)
	id := uuid.New()
	hash := "$2a$10$hash"

	mock.ExpectQuery(regexp.QuoteMeta(selectUser + "user_name = $1")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_name", "password_hash", "student_code", "email", "auth_provider", "google_id", "role"}).
			AddRow(id.String(), "alice", hash, "SE001", nil, "local", nil, "teacher"))

	user, err := repo.GetByUserName(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, domain.RoleTeacher, user.Role)
	assert.Equal(t, hash, *user.PasswordHash)
	assert.Nil(t, user.Email)
}

func TestGetByLogin_MatchesNameOrEmail(t *testing.T) {
	repo, mock := newRepo(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(selectUser + "user_name = $1 OR email = $2 LIMIT 1")).
		WithArgs("bob@fpt.edu.vn", "bob@fpt.edu.vn").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_name", "password_hash", "student_code", "email", "auth_provider", "google_id", "role"}).
			AddRow(id.String(), "bob", nil, "SE002", "bob@fpt.edu.vn", "local", nil, "student"))

	user, err := repo.GetByLogin(context.Background(), "bob@fpt.edu.vn")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "bob", user.UserName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByGoogleID_NotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectUser + "google_id = $1")).
		WithArgs("g-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	user, err := repo.GetByGoogleID(context.Background(), "g-1")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestCreate_DefaultsIDAndRole(t *testing.T) {
	repo, mock := newRepo(t)
	email := "bob@fpt.edu.vn"
	user := &domain.Users{UserName: "bob", Email: &email, AuthProvider: "google"}

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO public.users (id, user_name, password_hash, student_code, email, auth_provider, google_id, role) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
	)).
		WithArgs(sqlmock.AnyArg(), "bob", nil, "", email, "google", nil, "student").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, domain.RoleStudent, user.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}
