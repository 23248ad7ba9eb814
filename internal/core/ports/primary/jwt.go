package primary

import (
	"context"

	"gitlab.com/fcv-2025.net/assessment/internal/domain"
)

type JWTService interface {
	GenerateTokenHMAC(ctx context.Context, method string, payload domain.AuthPayload) (string, error)
	// VerifyTokenHMAC checks signature and expiry and returns the carried identity
	VerifyTokenHMAC(ctx context.Context, token string) (domain.AuthPayload, error)
	DecodeTokenPayload(ctx context.Context, token string) (domain.AuthPayload, error)
	EncryptPassword(ctx context.Context, password string) (string, error)
	VerifyPassword(ctx context.Context, passwordHash string, pwd string) (bool, error)
}
