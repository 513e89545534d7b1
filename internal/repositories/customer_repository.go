package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"crm-system/internal/entities"
	"crm-system/pkg/types"
)

const customerSelectFields = "c.id, c.client_id, c.name, c.phone, c.email, c.notes, c.created_by, c.created_at, c.updated_at"

var customerAllowedSortFields = map[string]string{
	"id":         "c.id",
	"name":       "c.name",
	"created_at": "c.created_at",
}

type CustomerRepositoryInterface interface {
	GetCustomers(ctx context.Context, clientID uint64, filter types.Filter) ([]entities.Customer, uint64, error)
	FindCustomer(ctx context.Context, id uint64) (*entities.Customer, error)
	CreateCustomer(ctx context.Context, tx pgx.Tx, customer *entities.Customer) (*entities.Customer, error)
}

type CustomerRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewCustomerRepository(storage *pgxpool.Pool, logger *zap.Logger) CustomerRepositoryInterface {
	return &CustomerRepository{storage: storage, logger: logger}
}

func scanCustomer(row pgx.Row) (*entities.Customer, error) {
	var c entities.Customer
	err := row.Scan(&c.ID, &c.ClientID, &c.Name, &c.Phone, &c.Email, &c.Notes, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *CustomerRepository) GetCustomers(ctx context.Context, clientID uint64, filter types.Filter) ([]entities.Customer, uint64, error) {
	where := psql.Select().From("customers c").Where(sq.Eq{"c.client_id": clientID})
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		where = where.Where(sq.Or{sq.ILike{"c.name": like}, sq.ILike{"c.phone": like}, sq.ILike{"c.email": like}})
	}

	total, err := count(ctx, r.storage, where.Column("COUNT(c.id)"))
	if err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}
	if total == 0 {
		return []entities.Customer{}, 0, nil
	}

	q := applyPage(applySort(where.Column(customerSelectFields), filter, customerAllowedSortFields, "c.id DESC"), filter)
	query, args, err := q.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	customers := make([]entities.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, *c)
	}
	return customers, total, rows.Err()
}

func (r *CustomerRepository) FindCustomer(ctx context.Context, id uint64) (*entities.Customer, error) {
	query := fmt.Sprintf("SELECT %s FROM customers c WHERE c.id = $1", customerSelectFields)
	return scanCustomer(r.storage.QueryRow(ctx, query, id))
}

func (r *CustomerRepository) CreateCustomer(ctx context.Context, tx pgx.Tx, customer *entities.Customer) (*entities.Customer, error) {
	query := fmt.Sprintf(`
		INSERT INTO customers AS c (client_id, name, phone, email, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, customerSelectFields)
	created, err := scanCustomer(pick(r.storage, tx).QueryRow(ctx, query,
		customer.ClientID, customer.Name, customer.Phone, customer.Email, customer.Notes, customer.CreatedBy))
	if err != nil {
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	return created, nil
}
