package auth

import (
	"context"
	"strings"

	"gitlab.com/fcv-2025.net/assessment/internal/config"
	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
	"gitlab.com/fcv-2025.net/assessment/internal/static/errs"
)

var _ IAuthService = &googleAuthService{}

type googleAuthService struct {
	userPort    secondary.UserPort
	jwtProvider primary.JWTService
	Config      *config.GGAuthConfig
}

func NewGoogleAuthService(userPort secondary.UserPort, jwtProvider primary.JWTService, Config *config.GGAuthConfig) IAuthService {
	return &googleAuthService{
		userPort:    userPort,
		jwtProvider: jwtProvider,
		Config:      Config,
	}
}

func (g googleAuthService) ProviderName() domain.Provider {
	return domain.ProviderGoogle
}

// Login signs in a Google account, creating a student on first login
func (g googleAuthService) Login(ctx context.Context, users *domain.Users, _ string) (*domain.LoginResponse, error) {
	if users.GoogleID == nil {
		return nil, errs.InvalidCredentials
	}

	if users.AuthProvider != string(domain.ProviderGoogle) {
		return nil, errs.InvalidCredentials
	}

	if users.Email == nil || *users.Email == "" {
		return nil, errs.EmailRequired
	}

	if g.Config.ForceFPTDomain && !strings.HasSuffix(*users.Email, "@fpt.edu.vn") {
		return nil, errs.ShouldUseFPTEmail
	}

	usr, err := g.userPort.GetByGoogleID(ctx, *users.GoogleID)
	if err != nil {
		return nil, err
	}
	if usr != nil {
		return generateToken(ctx, g.jwtProvider, usr)
	}

	localPart := strings.Split(*users.Email, "@")[0]
	users.PasswordHash = nil
	users.UserName = localPart
	users.StudentCode = localPart
	users.AuthProvider = string(domain.ProviderGoogle)
	users.Role = domain.RoleStudent
	if err := g.userPort.Create(ctx, users); err != nil {
		return nil, errs.FailedToCreateUser
	}

	return generateToken(ctx, g.jwtProvider, users)
}
