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

const taskSelectFields = "t.id, t.client_id, t.title, t.description, t.status, t.due_date, t.lead_id, t.assigned_to, t.created_by, t.created_at, t.updated_at"

var taskAllowedFilterFields = map[string]filterSpec{
	"status":      {column: "t.status"},
	"lead_id":     {column: "t.lead_id", numeric: true},
	"assigned_to": {column: "t.assigned_to", numeric: true},
}

var taskAllowedSortFields = map[string]string{
	"id":         "t.id",
	"due_date":   "t.due_date",
	"status":     "t.status",
	"created_at": "t.created_at",
}

type TaskRepositoryInterface interface {
	GetTasks(ctx context.Context, scope sq.Sqlizer, filter types.Filter) ([]entities.Task, uint64, error)
	FindTask(ctx context.Context, id uint64) (*entities.Task, error)
	CreateTask(ctx context.Context, task *entities.Task) (*entities.Task, error)
	UpdateTask(ctx context.Context, task *entities.Task) (*entities.Task, error)
	DeleteTask(ctx context.Context, id uint64) error
}

type TaskRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewTaskRepository(storage *pgxpool.Pool, logger *zap.Logger) TaskRepositoryInterface {
	return &TaskRepository{storage: storage, logger: logger}
}

func scanTask(row pgx.Row) (*entities.Task, error) {
	var t entities.Task
	err := row.Scan(&t.ID, &t.ClientID, &t.Title, &t.Description, &t.Status, &t.DueDate,
		&t.LeadID, &t.AssignedTo, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *TaskRepository) GetTasks(ctx context.Context, scope sq.Sqlizer, filter types.Filter) ([]entities.Task, uint64, error) {
	where := applyFilters(psql.Select().From("tasks t").Where(scope), filter, taskAllowedFilterFields)
	if filter.Search != "" {
		where = where.Where(sq.ILike{"t.title": "%" + filter.Search + "%"})
	}

	total, err := count(ctx, r.storage, where.Column("COUNT(t.id)"))
	if err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}
	if total == 0 {
		return []entities.Task{}, 0, nil
	}

	q := applyPage(applySort(where.Column(taskSelectFields), filter, taskAllowedSortFields, "t.id DESC"), filter)
	query, args, err := q.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]entities.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, total, rows.Err()
}

func (r *TaskRepository) FindTask(ctx context.Context, id uint64) (*entities.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM tasks t WHERE t.id = $1", taskSelectFields)
	return scanTask(r.storage.QueryRow(ctx, query, id))
}

func (r *TaskRepository) CreateTask(ctx context.Context, task *entities.Task) (*entities.Task, error) {
	query := fmt.Sprintf(`
		INSERT INTO tasks AS t (client_id, title, description, status, due_date, lead_id, assigned_to, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s`, taskSelectFields)
	created, err := scanTask(r.storage.QueryRow(ctx, query,
		task.ClientID, task.Title, task.Description, task.Status, task.DueDate, task.LeadID, task.AssignedTo, task.CreatedBy))
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return created, nil
}

func (r *TaskRepository) UpdateTask(ctx context.Context, task *entities.Task) (*entities.Task, error) {
	query := fmt.Sprintf(`
		UPDATE tasks AS t SET title = $1, description = $2, status = $3, due_date = $4, lead_id = $5,
			assigned_to = $6, updated_at = NOW()
		WHERE t.id = $7
		RETURNING %s`, taskSelectFields)
	return scanTask(r.storage.QueryRow(ctx, query,
		task.Title, task.Description, task.Status, task.DueDate, task.LeadID, task.AssignedTo, task.ID))
}

func (r *TaskRepository) DeleteTask(ctx context.Context, id uint64) error {
	tag, err := r.storage.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
