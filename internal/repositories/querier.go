package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/types"
)

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// pick returns tx when the caller is inside a transaction, the pool otherwise.
func pick(pool *pgxpool.Pool, tx pgx.Tx) querier {
	if tx != nil {
		return tx
	}
	return pool
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	return err
}

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// filterSpec describes how a filter[key] query value maps to a column.
type filterSpec struct {
	column  string
	numeric bool
}

// applyFilters adds equality (or IN, for comma lists) conditions for allowed keys.
// Unknown keys and unparsable numeric values are ignored.
func applyFilters(b sq.SelectBuilder, filter types.Filter, allowed map[string]filterSpec) sq.SelectBuilder {
	for key, value := range filter.Filter {
		spec, ok := allowed[key]
		if !ok {
			continue
		}
		parts := strings.Split(fmt.Sprint(value), ",")
		vals := make([]interface{}, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if spec.numeric {
				n, err := strconv.ParseUint(p, 10, 64)
				if err != nil {
					continue
				}
				vals = append(vals, n)
			} else {
				vals = append(vals, p)
			}
		}
		switch len(vals) {
		case 0:
		case 1:
			b = b.Where(sq.Eq{spec.column: vals[0]})
		default:
			b = b.Where(sq.Eq{spec.column: vals})
		}
	}
	return b
}

func applySort(b sq.SelectBuilder, filter types.Filter, allowed map[string]string, fallback string) sq.SelectBuilder {
	fields := make([]string, 0, len(filter.Sort))
	for field := range filter.Sort {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	applied := false
	for _, field := range fields {
		dir := filter.Sort[field]
		column, ok := allowed[field]
		if !ok {
			continue
		}
		b = b.OrderBy(column + " " + strings.ToUpper(dir))
		applied = true
	}
	if !applied {
		b = b.OrderBy(fallback)
	}
	return b
}

func applyPage(b sq.SelectBuilder, filter types.Filter) sq.SelectBuilder {
	if !filter.WithPagination || filter.Limit <= 0 {
		return b
	}
	return b.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
}

func count(ctx context.Context, q querier, b sq.SelectBuilder) (uint64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	var total uint64
	if err := q.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
