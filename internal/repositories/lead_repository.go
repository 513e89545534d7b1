package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"crm-system/internal/entities"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/types"
)

const leadSelectFields = "l.id, l.client_id, l.customer_id, l.name, l.phone, l.email, l.status, l.source, l.notes, " +
	"to_char(l.callback_date, 'YYYY-MM-DD'), l.callback_time, l.assigned_to, l.created_by, u.fio, l.created_at, l.updated_at"

const leadFrom = "leads l LEFT JOIN users u ON u.id = l.assigned_to"

var leadAllowedFilterFields = map[string]filterSpec{
	"status":      {column: "l.status"},
	"source":      {column: "l.source"},
	"assigned_to": {column: "l.assigned_to", numeric: true},
	"created_by":  {column: "l.created_by", numeric: true},
	"customer_id": {column: "l.customer_id", numeric: true},
}

var leadAllowedSortFields = map[string]string{
	"id":            "l.id",
	"name":          "l.name",
	"status":        "l.status",
	"callback_date": "l.callback_date",
	"created_at":    "l.created_at",
	"updated_at":    "l.updated_at",
}

type LeadRepositoryInterface interface {
	GetLeads(ctx context.Context, scope sq.Sqlizer, filter types.Filter) ([]entities.Lead, uint64, error)
	FindLead(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Lead, error)
	CreateLead(ctx context.Context, tx pgx.Tx, lead *entities.Lead) (*entities.Lead, error)
	UpdateLead(ctx context.Context, tx pgx.Tx, lead *entities.Lead) (*entities.Lead, error)
	UpdateStatus(ctx context.Context, id uint64, status string) error
	DeleteLead(ctx context.Context, tx pgx.Tx, id uint64) error
}

type LeadRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewLeadRepository(storage *pgxpool.Pool, logger *zap.Logger) LeadRepositoryInterface {
	return &LeadRepository{storage: storage, logger: logger}
}

func scanLead(row pgx.Row) (*entities.Lead, error) {
	var lead entities.Lead
	err := row.Scan(
		&lead.ID, &lead.ClientID, &lead.CustomerID, &lead.Name, &lead.Phone, &lead.Email,
		&lead.Status, &lead.Source, &lead.Notes,
		&lead.CallbackDate, &lead.CallbackTime, &lead.AssignedTo, &lead.CreatedBy, &lead.AssignedToName,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &lead, nil
}

func (r *LeadRepository) GetLeads(ctx context.Context, scope sq.Sqlizer, filter types.Filter) ([]entities.Lead, uint64, error) {
	where := psql.Select().From(leadFrom).Where(scope)
	where = applyFilters(where, filter, leadAllowedFilterFields)
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		where = where.Where(sq.Or{
			sq.ILike{"l.name": like},
			sq.ILike{"l.phone": like},
			sq.ILike{"l.email": like},
		})
	}

	total, err := count(ctx, r.storage, where.Column("COUNT(l.id)"))
	if err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}
	if total == 0 {
		return []entities.Lead{}, 0, nil
	}

	q := applySort(where.Column(leadSelectFields), filter, leadAllowedSortFields, "l.id DESC")
	q = applyPage(q, filter)
	query, args, err := q.ToSql()
	if err != nil {
		return nil, 0, err
	}
	r.logger.Debug("GetLeads", zap.String("query", query), zap.Any("args", args))

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	leads := make([]entities.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, *lead)
	}
	return leads, total, rows.Err()
}

func (r *LeadRepository) FindLead(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Lead, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE l.id = $1", leadSelectFields, leadFrom)
	return scanLead(pick(r.storage, tx).QueryRow(ctx, query, id))
}

func (r *LeadRepository) CreateLead(ctx context.Context, tx pgx.Tx, lead *entities.Lead) (*entities.Lead, error) {
	query := `
		INSERT INTO leads (client_id, customer_id, name, phone, email, status, source, notes,
			callback_date, callback_time, assigned_to, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::date, $10, $11, $12)
		RETURNING id`
	var id uint64
	err := pick(r.storage, tx).QueryRow(ctx, query,
		lead.ClientID, lead.CustomerID, lead.Name, lead.Phone, lead.Email, lead.Status, lead.Source, lead.Notes,
		lead.CallbackDate, lead.CallbackTime, lead.AssignedTo, lead.CreatedBy,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert lead: %w", err)
	}
	return r.FindLead(ctx, tx, id)
}

func (r *LeadRepository) UpdateLead(ctx context.Context, tx pgx.Tx, lead *entities.Lead) (*entities.Lead, error) {
	query := `
		UPDATE leads SET customer_id = $1, name = $2, phone = $3, email = $4, status = $5, source = $6,
			notes = $7, callback_date = $8::date, callback_time = $9, assigned_to = $10, updated_at = NOW()
		WHERE id = $11`
	tag, err := pick(r.storage, tx).Exec(ctx, query,
		lead.CustomerID, lead.Name, lead.Phone, lead.Email, lead.Status, lead.Source,
		lead.Notes, lead.CallbackDate, lead.CallbackTime, lead.AssignedTo, lead.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update lead %d: %w", lead.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.ErrNotFound
	}
	return r.FindLead(ctx, tx, lead.ID)
}

func (r *LeadRepository) UpdateStatus(ctx context.Context, id uint64, status string) error {
	tag, err := r.storage.Exec(ctx, "UPDATE leads SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	if err != nil {
		return fmt.Errorf("update lead status %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *LeadRepository) DeleteLead(ctx context.Context, tx pgx.Tx, id uint64) error {
	tag, err := pick(r.storage, tx).Exec(ctx, "DELETE FROM leads WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete lead %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
