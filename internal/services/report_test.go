package services

import (
	"context"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-system/internal/entities"
)

type fakeReportRepo struct {
	lastScope sq.Sqlizer
}

func (r *fakeReportRepo) LeadReport(_ context.Context, scope sq.Sqlizer) (*entities.LeadReport, error) {
	r.lastScope = scope
	return &entities.LeadReport{Total: 3}, nil
}

func reportSQL(t *testing.T, scope sq.Sqlizer) string {
	t.Helper()
	sql, _, err := sq.Select("status").From("leads").Where(scope).ToSql()
	require.NoError(t, err)
	return sql
}

func TestReportService_ScopesByRole(t *testing.T) {
	repo := &fakeReportRepo{}
	svc := NewReportService(repo, nopLogger())

	_, err := svc.LeadReport(asUser(&entities.User{ID: 1, ClientID: 1, Role: entities.RoleAdmin}))
	require.NoError(t, err)
	adminSQL := reportSQL(t, repo.lastScope)
	assert.Contains(t, adminSQL, "client_id = ?")
	assert.NotContains(t, adminSQL, "assigned_to")

	report, err := svc.LeadReport(asUser(&entities.User{ID: 2, ClientID: 1, Role: entities.RoleManager}))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), report.Total)
	// Unaliased: the report query reads FROM leads directly.
	managerSQL := reportSQL(t, repo.lastScope)
	assert.Contains(t, managerSQL, "assigned_to = ?")
	assert.NotContains(t, managerSQL, "l.")
}
