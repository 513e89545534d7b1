package services

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"crm-system/internal/dto"
	"crm-system/internal/entities"
	apperrors "crm-system/pkg/errors"
)

type attendanceFixture struct {
	svc     AttendanceServiceInterface
	repo    *fakeAttendanceRepo
	now     time.Time
	agent   *entities.User
	manager *entities.User
}

func newAttendanceFixture() *attendanceFixture {
	f := &attendanceFixture{
		repo:    &fakeAttendanceRepo{},
		now:     time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		manager: &entities.User{ID: 2, ClientID: 1, Role: entities.RoleManager, IsActive: true},
	}
	f.agent = &entities.User{ID: 7, ClientID: 1, Role: entities.RoleAgent, ManagerID: u64Ptr(2), IsActive: true}
	users := newFakeUserRepo(f.agent, f.manager,
		&entities.User{ID: 8, ClientID: 1, Role: entities.RoleAgent, ManagerID: u64Ptr(3), IsActive: true},
		&entities.User{ID: 60, ClientID: 2, Role: entities.RoleAgent, IsActive: true},
	)
	f.svc = NewAttendanceService(f.repo, users, &fakeTxManager{}, nil, func() time.Time { return f.now }, nopLogger())
	return f
}

func TestClockIn_TwiceIsConflictAndWritesNothing(t *testing.T) {
	f := newAttendanceFixture()
	ctx := asUser(f.agent)

	first, err := f.svc.ClockIn(ctx, "morning")
	require.NoError(t, err)
	assert.True(t, first.IsOpen())

	f.now = f.now.Add(time.Hour)
	_, err = f.svc.ClockIn(ctx, "again")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyClockedIn)
	assert.Equal(t, 400, apperrors.StatusCode(err))

	assert.Len(t, f.repo.records, 1)
	assert.Equal(t, 2, f.repo.locks)
}

func TestClockOut_ComputesRoundedHours(t *testing.T) {
	f := newAttendanceFixture()
	ctx := asUser(f.agent)

	_, err := f.svc.ClockIn(ctx, "")
	require.NoError(t, err)
	f.now = f.now.Add(8*time.Hour + 20*time.Minute)

	rec, err := f.svc.ClockOut(ctx, "done")
	require.NoError(t, err)
	require.NotNil(t, rec.ClockOut)
	assert.Equal(t, 8.33, *rec.TotalHours)
	assert.Equal(t, "done", rec.Notes)

	status, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestClockOut_WithoutSession(t *testing.T) {
	f := newAttendanceFixture()
	_, err := f.svc.ClockOut(asUser(f.agent), "")
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)
	assert.Equal(t, 400, apperrors.StatusCode(err))
}

func TestClockIn_AllowedAgainAfterClockOut(t *testing.T) {
	f := newAttendanceFixture()
	ctx := asUser(f.agent)

	_, err := f.svc.ClockIn(ctx, "")
	require.NoError(t, err)
	f.now = f.now.Add(4 * time.Hour)
	_, err = f.svc.ClockOut(ctx, "")
	require.NoError(t, err)
	f.now = f.now.Add(time.Hour)

	second, err := f.svc.ClockIn(ctx, "afternoon")
	require.NoError(t, err)
	assert.Len(t, f.repo.records, 2)

	status, err := f.svc.Status(ctx)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, second.ID, status.ID)
}

func TestClockIn_ClosesSessionLeftOpenOnEarlierDay(t *testing.T) {
	f := newAttendanceFixture()
	ctx := asUser(f.agent)

	_, err := f.svc.ClockIn(ctx, "forgot to clock out")
	require.NoError(t, err)

	f.now = time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	today, err := f.svc.ClockIn(ctx, "")
	require.NoError(t, err)
	require.Len(t, f.repo.records, 2)

	stale := f.repo.records[0]
	require.NotNil(t, stale.ClockOut)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), *stale.ClockOut)
	assert.Equal(t, 15.0, *stale.TotalHours)
	assert.Equal(t, staleSessionNote, stale.Notes)

	status, err := f.svc.Status(ctx)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, today.ID, status.ID)

	open := 0
	for _, rec := range f.repo.records {
		if rec.IsOpen() {
			open++
		}
	}
	assert.Equal(t, 1, open)
}

func TestHistory_SubjectRules(t *testing.T) {
	f := newAttendanceFixture()
	_, err := f.svc.ClockIn(asUser(f.agent), "")
	require.NoError(t, err)

	records, err := f.svc.History(asUser(f.agent), dto.AttendanceQuery{})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = f.svc.History(asUser(f.agent), dto.AttendanceQuery{UserID: u64Ptr(8)})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	records, err = f.svc.History(asUser(f.manager), dto.AttendanceQuery{UserID: u64Ptr(7)})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = f.svc.History(asUser(f.manager), dto.AttendanceQuery{UserID: u64Ptr(8)})
	assert.ErrorIs(t, err, apperrors.ErrForbidden, "agent of another manager")

	_, err = f.svc.History(asUser(f.manager), dto.AttendanceQuery{UserID: u64Ptr(60)})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestHistory_DefaultPeriodEndsToday(t *testing.T) {
	f := newAttendanceFixture()
	f.repo.records = []*entities.AttendanceRecord{
		{ID: 1, UserID: 7, Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), ClockIn: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)},
		{ID: 2, UserID: 7, Date: time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC), ClockIn: time.Date(2024, 4, 20, 8, 0, 0, 0, time.UTC)},
	}
	records, err := f.svc.History(asUser(f.agent), dto.AttendanceQuery{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(2), records[0].ID)
}

func TestReport_Formats(t *testing.T) {
	f := newAttendanceFixture()
	ctx := asUser(f.agent)
	_, err := f.svc.ClockIn(ctx, "")
	require.NoError(t, err)
	f.now = f.now.Add(7*time.Hour + 30*time.Minute)
	_, err = f.svc.ClockOut(ctx, "")
	require.NoError(t, err)

	report, err := f.svc.Report(ctx, dto.AttendanceQuery{Format: ReportFormatXLSX})
	require.NoError(t, err)
	assert.Equal(t, "attendance_2024-04-01_2024-05-01.xlsx", report.FileName)

	wb, err := excelize.OpenReader(bytes.NewReader(report.Content.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-05-01", rows[1][0])
	assert.Equal(t, "Total", rows[2][0])
	assert.Equal(t, "7.5", rows[2][3])

	report, err = f.svc.Report(ctx, dto.AttendanceQuery{Format: ReportFormatPDF})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", report.ContentType)
	assert.True(t, bytes.HasPrefix(report.Content.Bytes(), []byte("%PDF")))
}

func TestWorkedHours(t *testing.T) {
	in := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 1.33, WorkedHours(in, in.Add(80*time.Minute)))
	assert.Equal(t, 0.0, WorkedHours(in, in))
	assert.Equal(t, 0.02, WorkedHours(in, in.Add(time.Minute)))
}
