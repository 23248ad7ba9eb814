package secondary

import (
	"context"

	"gitlab.com/fcv-2025.net/assessment/internal/domain"
)

type UserPort interface {
	Create(ctx context.Context, user *domain.Users) error
	Save(ctx context.Context, user *domain.Users) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.Users, error)
	GetByEmail(ctx context.Context, email string) (*domain.Users, error)
	GetByGoogleID(ctx context.Context, googleID string) (*domain.Users, error)
	GetByUserName(ctx context.Context, userName string) (*domain.Users, error)

	// GetByLogin matches either the user name or the email
	GetByLogin(ctx context.Context, login string) (*domain.Users, error)
}
