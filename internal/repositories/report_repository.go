package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"crm-system/internal/entities"
)

type ReportRepositoryInterface interface {
	LeadReport(ctx context.Context, scope sq.Sqlizer) (*entities.LeadReport, error)
}

type ReportRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewReportRepository(storage *pgxpool.Pool, logger *zap.Logger) ReportRepositoryInterface {
	return &ReportRepository{storage: storage, logger: logger}
}

func (r *ReportRepository) LeadReport(ctx context.Context, scope sq.Sqlizer) (*entities.LeadReport, error) {
	report := &entities.LeadReport{}

	var err error
	if report.ByStatus, err = r.groupCount(ctx, scope, "status"); err != nil {
		return nil, err
	}
	if report.BySource, err = r.groupCount(ctx, scope, "source"); err != nil {
		return nil, err
	}
	for _, g := range report.ByStatus {
		report.Total += g.Count
	}
	return report, nil
}

// groupCount counts leads per distinct value of column. column comes from code, never from input.
func (r *ReportRepository) groupCount(ctx context.Context, scope sq.Sqlizer, column string) ([]entities.LeadGroupCount, error) {
	query, args, err := psql.Select(column, "COUNT(*)").
		From("leads").
		Where(scope).
		GroupBy(column).
		OrderBy("COUNT(*) DESC", column).
		ToSql()
	if err != nil {
		return nil, err
	}
	r.logger.Debug("LeadReport", zap.String("query", query), zap.Any("args", args))

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lead report by %s: %w", column, err)
	}
	defer rows.Close()

	out := make([]entities.LeadGroupCount, 0)
	for rows.Next() {
		var g entities.LeadGroupCount
		if err := rows.Scan(&g.Key, &g.Count); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
