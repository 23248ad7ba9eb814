package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
	"gitlab.com/fcv-2025.net/assessment/internal/global/logger"
	"gitlab.com/fcv-2025.net/assessment/internal/static/errs"
)

func generateToken(ctx context.Context, jwtProvider primary.JWTService, user *domain.Users) (*domain.LoginResponse, error) {
	role := user.Role
	if !role.Valid() {
		role = domain.RoleStudent
	}
	token, err := jwtProvider.GenerateTokenHMAC(ctx, jwt.SigningMethodHS256.Name, domain.AuthPayload{
		UserID:   user.ID.String(),
		Username: user.UserName,
		Role:     role,
	})
	if err != nil {
		logger.Error("Failed to generate token", "userName", user.UserName, "error", err)
		return nil, errs.GeneratingToken
	}
	return &domain.LoginResponse{Token: token, Role: role}, nil
}
