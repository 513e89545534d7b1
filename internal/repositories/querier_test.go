package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-system/pkg/types"
)

func filterOf(f map[string]interface{}) types.Filter {
	return types.Filter{Filter: f, Sort: map[string]string{}}
}

func TestApplySortAndPage(t *testing.T) {
	filter := types.Filter{
		Sort:           map[string]string{"created_at": "asc", "secret": "desc"},
		Limit:          10,
		Offset:         20,
		WithPagination: true,
	}
	q := applyPage(applySort(psql.Select("l.id").From("leads l"), filter, leadAllowedSortFields, "l.id DESC"), filter)

	sql, _, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT l.id FROM leads l ORDER BY l.created_at ASC LIMIT 10 OFFSET 20", sql)
}

func TestApplySort_Fallback(t *testing.T) {
	q := applySort(psql.Select("id").From("tasks t"), types.Filter{}, taskAllowedSortFields, "t.id DESC")
	sql, _, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM tasks t ORDER BY t.id DESC", sql)
}
