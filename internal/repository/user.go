package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/order-intake/internal/common"
	"github.com/joseph-ayodele/order-intake/internal/entity"
)

type UserRepository interface {
	Create(ctx context.Context, username, email, hashedPassword string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

type userRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewUserRepository(db *DB, logger *slog.Logger) UserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &userRepository{db: db, logger: logger, now: time.Now}
}

var userColumns = []string{"id", "username", "email", "hashed_password", "is_active", "created_at"}

func (r *userRepository) Create(ctx context.Context, username, email, hashedPassword string) (*entity.User, error) {
	now := r.now().UTC()
	ins := r.db.builder().Insert(UsersTable.Name).
		Columns("username", "email", "hashed_password", "is_active", "created_at").
		Values(username, email, hashedPassword, true, now)

	id, err := r.db.insert(ctx, ins)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.Conflictf("Username or email already registered")
		}
		r.logger.Error("failed to create user", "username", username, "error", err)
		return nil, common.WrapError(errors.Join(common.ErrDatabase, err), "create user")
	}
	return &entity.User{
		ID:             id,
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
		IsActive:       true,
		CreatedAt:      now,
	}, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.getOne(ctx, entsql.EQ("username", username))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, entsql.EQ("email", email))
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.getOne(ctx, entsql.EQ("id", id))
}

func (r *userRepository) getOne(ctx context.Context, where *entsql.Predicate) (*entity.User, error) {
	sel := r.db.builder().Select(userColumns...).
		From(entsql.Table(UsersTable.Name)).
		Where(where).
		Limit(1)

	var found *entity.User
	err := r.db.query(ctx, sel, func(rows *entsql.Rows) error {
		var u entity.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword, &u.IsActive, &u.CreatedAt); err != nil {
			return err
		}
		found = &u
		return nil
	})
	if err != nil {
		r.logger.Error("failed to load user", "error", err)
		return nil, common.WrapError(errors.Join(common.ErrDatabase, err), "get user")
	}
	if found == nil {
		return nil, common.NotFoundf("user not found")
	}
	return found, nil
}

// isUniqueViolation matches both the sqlite and the postgres wording.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
