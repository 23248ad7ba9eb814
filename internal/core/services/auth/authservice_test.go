package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gitlab.com/fcv-2025.net/assessment/internal/adapter/crypto"
	"gitlab.com/fcv-2025.net/assessment/internal/config"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
	"gitlab.com/fcv-2025.net/assessment/internal/static/errs"
)

type memUsers struct {
	byName   map[string]*domain.Users
	byGoogle map[string]*domain.Users
	failNext bool
}

func newMemUsers() *memUsers {
	return &memUsers{byName: map[string]*domain.Users{}, byGoogle: map[string]*domain.Users{}}
}

func (m *memUsers) Create(ctx context.Context, user *domain.Users) error {
	if m.failNext {
		return errors.New("duplicate key")
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.byName[user.UserName] = user
	if user.GoogleID != nil {
		m.byGoogle[*user.GoogleID] = user
	}
	return nil
}

func (m *memUsers) Save(ctx context.Context, user *domain.Users) error { return m.Create(ctx, user) }
func (m *memUsers) Delete(ctx context.Context, id string) error       { return nil }
func (m *memUsers) Get(ctx context.Context, id string) (*domain.Users, error) {
	return nil, nil
}
func (m *memUsers) GetByEmail(ctx context.Context, email string) (*domain.Users, error) {
	return nil, nil
}
func (m *memUsers) GetByGoogleID(ctx context.Context, googleID string) (*domain.Users, error) {
	return m.byGoogle[googleID], nil
}
func (m *memUsers) GetByUserName(ctx context.Context, userName string) (*domain.Users, error) {
	return m.byName[userName], nil
}
func (m *memUsers) GetByLogin(ctx context.Context, login string) (*domain.Users, error) {
	if user, ok := m.byName[login]; ok {
		return user, nil
	}
	for _, user := range m.byName {
		if user.Email != nil && *user.Email == login {
			return user, nil
		}
	}
	return nil, nil
}

func newJWT() *crypto.JWTServiceImpl {
	return crypto.NewJWTService(&config.JwtConfig{Secret: "test-secret", TokenTTL: time.Hour})
}

func TestLocalLogin(t *testing.T) {
	users := newMemUsers()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	hashStr := string(hash)
	teacherEmail := "mr.t@fpt.edu.vn"
	teacher := &domain.Users{ID: uuid.New(), UserName: "mr.t", Email: &teacherEmail, PasswordHash: &hashStr, Role: domain.RoleTeacher}
	users.byName["mr.t"] = teacher

	jwtSvc := newJWT()
	svc := NewLocalAuthService(users, jwtSvc)

	resp, err := svc.Login(context.Background(), &domain.Users{UserName: "mr.t"}, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTeacher, resp.Role)

	identity, err := jwtSvc.VerifyTokenHMAC(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, teacher.ID.String(), identity.UserID)
	assert.Equal(t, domain.RoleTeacher, identity.Role)

	byEmail, err := svc.Login(context.Background(), &domain.Users{UserName: teacherEmail}, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTeacher, byEmail.Role)

	_, err = svc.Login(context.Background(), &domain.Users{UserName: "mr.t"}, "wrong")
	assert.ErrorIs(t, err, errs.InvalidCredentials)

	_, err = svc.Login(context.Background(), &domain.Users{UserName: "nobody"}, "x")
	assert.ErrorIs(t, err, errs.InvalidCredentials)
}

func TestGoogleLogin(t *testing.T) {
	users := newMemUsers()
	svc := NewGoogleAuthService(users, newJWT(), &config.GGAuthConfig{ForceFPTDomain: true})
	ctx := context.Background()
	googleID := "g-42"

	t.Run("non fpt email refused", func(t *testing.T) {
		email := "someone@gmail.com"
		_, err := svc.Login(ctx, &domain.Users{GoogleID: &googleID, Email: &email, AuthProvider: "google"}, "")
		assert.ErrorIs(t, err, errs.ShouldUseFPTEmail)
	})

	t.Run("first login creates a student", func(t *testing.T) {
		email := "se1234@fpt.edu.vn"
		resp, err := svc.Login(ctx, &domain.Users{GoogleID: &googleID, Email: &email, AuthProvider: "google"}, "")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleStudent, resp.Role)
		require.Contains(t, users.byGoogle, googleID)
		assert.Equal(t, "se1234", users.byGoogle[googleID].StudentCode)
	})

	t.Run("missing email", func(t *testing.T) {
		_, err := svc.Login(ctx, &domain.Users{GoogleID: &googleID, AuthProvider: "google"}, "")
		assert.ErrorIs(t, err, errs.EmailRequired)
	})
}
