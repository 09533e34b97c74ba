package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
	appErrors "github.com/GeorgePierce1984/teachlink-api/pkg/errors"
)

type stubUserReader struct {
	users map[string]*models.User
}

func (s *stubUserReader) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserReader) GetByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func newAuthFixture(t *testing.T) (*AuthService, *models.User) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret!"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		ID:           "user-1",
		Email:        "school@example.com",
		PasswordHash: string(hash),
		FullName:     "Springfield High",
		Role:         models.RoleSchool,
		ActorID:      "school-1",
		Active:       true,
	}
	repo := &stubUserReader{users: map[string]*models.User{"user-1": user}}
	svc := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		Secret: "test-secret",
		Expiry: time.Hour,
		Issuer: "teachlink",
	})
	return svc, user
}

func TestLoginIssuesToken(t *testing.T) {
	svc, user := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "s3cret!"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.Equal(t, models.RoleSchool, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "school-1", claims.ActorID)
	assert.Equal(t, models.RoleSchool, claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, user := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "s3cret!"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	svc, user := newAuthFixture(t)
	user.Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "s3cret!"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc, user := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "s3cret!"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
