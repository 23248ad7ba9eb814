package userrepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
	querybuilder "gitlab.com/fcv-2025.net/assessment/internal/utils"
)

var _ secondary.UserPort = &userRepo{}

type userRepo struct {
	db     *sqlx.DB
	logger primary.Logger
	schema string
}

func New(db *sqlx.DB, logger primary.Logger, schema string) secondary.UserPort {
	return &userRepo{
		db:     db,
		logger: logger,
		schema: schema,
	}
}

func (u userRepo) Create(ctx context.Context, user *domain.Users) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if !user.Role.Valid() {
		user.Role = domain.RoleStudent
	}

	userTbl := domain.GetUserTable()
	query, args := querybuilder.NewQueryBuilder(u.schema).
		Insert(userTbl.Columns()...).
		Into(userTbl.GetTableName()).
		Values(
			user.ID, user.UserName, user.PasswordHash,
			user.StudentCode, user.Email,
			user.AuthProvider, user.GoogleID, user.Role,
		).
		Build()

	if _, err := u.db.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		u.logger.Error("Failed to create user", "userName", user.UserName, "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (u userRepo) Save(ctx context.Context, user *domain.Users) error {
	userTbl := domain.GetUserTable()
	query, args := querybuilder.NewQueryBuilder(u.schema).
		Insert(userTbl.Columns()...).
		Into(userTbl.GetTableName()).
		Values(
			user.ID, user.UserName, user.PasswordHash,
			user.StudentCode, user.Email,
			user.AuthProvider, user.GoogleID, user.Role,
		).
		OnConflict(userTbl.ID).
		SetExclude(
			userTbl.UserName, userTbl.PasswordHash, userTbl.StudentCode,
			userTbl.Email, userTbl.AuthProvider, userTbl.GoogleID, userTbl.Role,
		).
		Build()

	if _, err := u.db.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (u userRepo) Delete(ctx context.Context, id string) error {
	userTbl := domain.GetUserTable()
	query, args := querybuilder.NewQueryBuilder(u.schema).
		Delete(userTbl.GetTableName()).
		Where(fmt.Sprintf("%s = ?", userTbl.ID), id).
		Build()

	if _, err := u.db.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (u userRepo) Get(ctx context.Context, id string) (*domain.Users, error) {
	return u.getBy(ctx, domain.GetUserTable().ID, id)
}

func (u userRepo) GetByEmail(ctx context.Context, email string) (*domain.Users, error) {
	return u.getBy(ctx, domain.GetUserTable().Email, email)
}

func (u userRepo) GetByUserName(ctx context.Context, userName string) (*domain.Users, error) {
	return u.getBy(ctx, domain.GetUserTable().UserName, userName)
}

func (u userRepo) GetByGoogleID(ctx context.Context, googleID string) (*domain.Users, error) {
	return u.getBy(ctx, domain.GetUserTable().GoogleID, googleID)
}

func (u userRepo) GetByLogin(ctx context.Context, login string) (*domain.Users, error) {
	userTbl := domain.GetUserTable()
	query, args := querybuilder.NewQueryBuilder(u.schema).
		Select(userTbl.Columns()...).
		From(userTbl.GetTableName()).
		Where(fmt.Sprintf("%s = ?", userTbl.UserName), login).
		Or(fmt.Sprintf("%s = ?", userTbl.Email), login).
		Limit(1).
		Build()
	return u.getOne(ctx, query, args)
}

// getBy returns nil, nil when no row matches
func (u userRepo) getBy(ctx context.Context, col string, value interface{}) (*domain.Users, error) {
	userTbl := domain.GetUserTable()
	query, args := querybuilder.NewQueryBuilder(u.schema).
		Select(userTbl.Columns()...).
		From(userTbl.GetTableName()).
		Where(fmt.Sprintf("%s = ?", col), value).
		Build()
	return u.getOne(ctx, query, args)
}

func (u userRepo) getOne(ctx context.Context, query string, args []interface{}) (*domain.Users, error) {
	var user domain.Users
	err := u.db.GetContext(ctx, &user, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
