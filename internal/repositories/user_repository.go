package repositories

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"crm-system/internal/entities"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/types"
)

const userSelectFields = "u.id, u.client_id, u.manager_id, u.fio, u.email, u.password, u.role, u.is_active, u.created_at, u.updated_at, u.deleted_at"

var userAllowedFilterFields = map[string]filterSpec{
	"role":       {column: "u.role"},
	"manager_id": {column: "u.manager_id", numeric: true},
}

var userAllowedSortFields = map[string]string{
	"id":         "u.id",
	"fio":        "u.fio",
	"email":      "u.email",
	"created_at": "u.created_at",
}

type UserRepositoryInterface interface {
	GetUsers(ctx context.Context, clientID uint64, filter types.Filter) ([]entities.User, uint64, error)
	FindUser(ctx context.Context, id uint64) (*entities.User, error)
	FindByEmail(ctx context.Context, email string) (*entities.User, error)
	CreateUser(ctx context.Context, user *entities.User) (*entities.User, error)
	UpdateUser(ctx context.Context, user *entities.User) (*entities.User, error)
	UpdatePassword(ctx context.Context, userID uint64, passwordHash string) error
	DeleteUser(ctx context.Context, id uint64) error
	CountUsers(ctx context.Context) (uint64, error)
}

type UserRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewUserRepository(storage *pgxpool.Pool, logger *zap.Logger) UserRepositoryInterface {
	return &UserRepository{storage: storage, logger: logger}
}

func scanUser(row pgx.Row) (*entities.User, error) {
	var user entities.User
	var role string
	err := row.Scan(
		&user.ID, &user.ClientID, &user.ManagerID, &user.Fio, &user.Email, &user.Password,
		&role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	user.Role = entities.Role(role)
	return &user, nil
}

func (r *UserRepository) GetUsers(ctx context.Context, clientID uint64, filter types.Filter) ([]entities.User, uint64, error) {
	where := psql.Select().From("users u").
		Where(sq.Eq{"u.client_id": clientID}).
		Where("u.deleted_at IS NULL")
	where = applyFilters(where, filter, userAllowedFilterFields)
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		where = where.Where(sq.Or{sq.ILike{"u.fio": like}, sq.ILike{"u.email": like}})
	}

	total, err := count(ctx, r.storage, where.Column("COUNT(u.id)"))
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	if total == 0 {
		return []entities.User{}, 0, nil
	}

	q := applyPage(applySort(where.Column(userSelectFields), filter, userAllowedSortFields, "u.id DESC"), filter)
	query, args, err := q.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]entities.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}
	return users, total, rows.Err()
}

// FindUser excludes soft-deleted users; they behave as missing.
func (r *UserRepository) FindUser(ctx context.Context, id uint64) (*entities.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users u WHERE u.id = $1 AND u.deleted_at IS NULL", userSelectFields)
	return scanUser(r.storage.QueryRow(ctx, query, id))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users u WHERE LOWER(u.email) = $1 AND u.deleted_at IS NULL", userSelectFields)
	return scanUser(r.storage.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

func (r *UserRepository) CreateUser(ctx context.Context, user *entities.User) (*entities.User, error) {
	query := `
		INSERT INTO users (client_id, manager_id, fio, email, password, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var id uint64
	err := r.storage.QueryRow(ctx, query,
		user.ClientID, user.ManagerID, user.Fio, user.Email, user.Password, string(user.Role), user.IsActive,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflictError("a user with this email already exists", err)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return r.FindUser(ctx, id)
}

func (r *UserRepository) UpdateUser(ctx context.Context, user *entities.User) (*entities.User, error) {
	query := `
		UPDATE users SET manager_id = $1, fio = $2, email = $3, role = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6 AND deleted_at IS NULL`
	tag, err := r.storage.Exec(ctx, query,
		user.ManagerID, user.Fio, user.Email, string(user.Role), user.IsActive, user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflictError("a user with this email already exists", err)
		}
		return nil, fmt.Errorf("update user %d: %w", user.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.ErrNotFound
	}
	return r.FindUser(ctx, user.ID)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID uint64, passwordHash string) error {
	tag, err := r.storage.Exec(ctx,
		"UPDATE users SET password = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL", passwordHash, userID)
	if err != nil {
		return fmt.Errorf("update password %d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *UserRepository) DeleteUser(ctx context.Context, id uint64) error {
	tag, err := r.storage.Exec(ctx,
		"UPDATE users SET deleted_at = NOW(), is_active = FALSE WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *UserRepository) CountUsers(ctx context.Context) (uint64, error) {
	var n uint64
	err := r.storage.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE deleted_at IS NULL").Scan(&n)
	return n, err
}
