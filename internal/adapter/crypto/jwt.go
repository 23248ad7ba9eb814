package crypto

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"gitlab.com/fcv-2025.net/assessment/internal/config"
	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
	"gitlab.com/fcv-2025.net/assessment/internal/static/errs"
)

var _ primary.JWTService = (*JWTServiceImpl)(nil)

type claims struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type JWTServiceImpl struct {
	HMACSecretKey string
	TokenTTL      time.Duration
	now           func() time.Time
}

func NewJWTService(jwtConfig *config.JwtConfig) *JWTServiceImpl {
	ttl := jwtConfig.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWTServiceImpl{
		HMACSecretKey: jwtConfig.Secret,
		TokenTTL:      ttl,
		now:           time.Now,
	}
}

func (J *JWTServiceImpl) GenerateTokenHMAC(ctx context.Context, method string, payload domain.AuthPayload) (string, error) {
	signingMethod := jwt.GetSigningMethod(method)
	if signingMethod == nil {
		return "", fmt.Errorf("unsupported signing method: %s", method)
	}
	if _, ok := signingMethod.(*jwt.SigningMethodHMAC); !ok {
		return "", fmt.Errorf("signing method %s is not HMAC", method)
	}

	now := J.now()
	tok := jwt.NewWithClaims(signingMethod, claims{
		Username: payload.Username,
		Role:     payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(J.TokenTTL)),
		},
	})
	return tok.SignedString([]byte(J.HMACSecretKey))
}

func (J *JWTServiceImpl) VerifyTokenHMAC(ctx context.Context, token string) (domain.AuthPayload, error) {
	var c claims
	parsedToken, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(J.HMACSecretKey), nil
	}, jwt.WithTimeFunc(J.now))
	if err != nil {
		return domain.AuthPayload{}, fmt.Errorf("%w: %v", errs.InvalidToken, err)
	}
	if !parsedToken.Valid || c.Subject == "" {
		return domain.AuthPayload{}, errs.InvalidToken
	}

	role := c.Role
	if !role.Valid() {
		role = domain.RoleStudent
	}
	return domain.AuthPayload{
		UserID:   c.Subject,
		Username: c.Username,
		Role:     role,
	}, nil
}

func (JWTServiceImpl) VerifyPassword(ctx context.Context, passwordHash string, pwd string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(pwd))
	if err != nil {
		return false, err
	}
	return true, nil
}

func (J JWTServiceImpl) EncryptPassword(ctx context.Context, password string) (string, error) {
	pwd, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func decodeSeg(signature string) ([]byte, error) {
	return jwt.NewParser().DecodeSegment(signature)
}

// DecodeTokenPayload reads the claims without verifying the signature
func (J *JWTServiceImpl) DecodeTokenPayload(ctx context.Context, token string) (domain.AuthPayload, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return domain.AuthPayload{}, fmt.Errorf("invalid token format")
	}

	payloadData, err := decodeSeg(parts[1])
	if err != nil {
		return domain.AuthPayload{}, fmt.Errorf("failed to decode token payload: %w", err)
	}

	var authPayload domain.AuthPayload
	if err := json.Unmarshal(payloadData, &authPayload); err != nil {
		return domain.AuthPayload{}, fmt.Errorf("failed to parse AuthPayload: %w", err)
	}
	return authPayload, nil
}
