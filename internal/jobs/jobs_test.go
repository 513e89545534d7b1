package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/mailer"
	"crm-system/pkg/metrics"
)

// Only the methods the jobs call are implemented; the embedded interface is nil.
type fakeEvents struct {
	repositories.CalendarEventRepositoryInterface
	due     []entities.CalendarEvent
	marked  []uint64
	orphans int64
}

func (f *fakeEvents) DueReminders(_ context.Context, _ time.Time, limit int) ([]entities.CalendarEvent, error) {
	if len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeEvents) MarkNotified(_ context.Context, id uint64) error {
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeEvents) DeleteOrphanReminders(_ context.Context) (int64, error) {
	return f.orphans, nil
}

type fakeUsers struct {
	repositories.UserRepositoryInterface
	users map[uint64]*entities.User
}

func (f *fakeUsers) FindUser(_ context.Context, id uint64) (*entities.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return u, nil
}

type fakeMailer struct {
	enabled bool
	failTo  string
	sent    []mailer.Message
}

func (m *fakeMailer) Enabled() bool { return m.enabled }

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	if msg.To == m.failTo {
		return errors.New("smtp: 451 try again later")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func reminder(id, userID uint64, start time.Time) entities.CalendarEvent {
	lead := id * 10
	return entities.CalendarEvent{
		ID: id, ClientID: 1, UserID: userID, LeadID: &lead, EventType: entities.EventTypeReminder,
		Title: "Callback — Dana", StartTime: start, EndTime: start.Add(30 * time.Minute), AdvanceNotice: 15, IsActive: true,
	}
}

func TestReminderNotifier_SendsAndMarks(t *testing.T) {
	start := time.Date(2025, 9, 28, 18, 3, 0, 0, time.UTC)
	events := &fakeEvents{due: []entities.CalendarEvent{
		reminder(1, 9, start),
		reminder(2, 10, start),
		reminder(3, 404, start),
	}}
	users := &fakeUsers{users: map[uint64]*entities.User{
		9:  {ID: 9, Fio: "Agent Nine", Email: "nine@crm.local"},
		10: {ID: 10, Fio: "Agent Ten", Email: "ten@crm.local"},
	}}
	mail := &fakeMailer{enabled: true, failTo: "ten@crm.local"}
	met := metrics.NewWithRegistry(prometheus.NewRegistry())

	n := NewReminderNotifier(events, users, mail, met, func() time.Time { return start }, zap.NewNop())
	sent, err := n.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sent)
	assert.Equal(t, []uint64{1, 3}, events.marked, "failed delivery stays pending for the next tick")
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "nine@crm.local", mail.sent[0].To)
	assert.Equal(t, "Reminder: Callback — Dana at 21:03", mail.sent[0].Subject)
	assert.Contains(t, mail.sent[0].Body, "2025-09-28 21:03")

	assert.Equal(t, 1.0, testutil.ToFloat64(met.RemindersNotified.WithLabelValues("email")))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.RemindersNotified.WithLabelValues("log")))
}

func TestReminderNotifier_LogOnlyWhenMailDisabled(t *testing.T) {
	start := time.Now()
	events := &fakeEvents{due: []entities.CalendarEvent{reminder(1, 9, start)}}
	users := &fakeUsers{users: map[uint64]*entities.User{9: {ID: 9, Email: "nine@crm.local"}}}
	mail := &fakeMailer{enabled: false}

	sent, err := NewReminderNotifier(events, users, mail, nil, nil, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Empty(t, mail.sent)
	assert.Equal(t, []uint64{1}, events.marked)
}

func TestOrphanSweeper(t *testing.T) {
	met := metrics.NewWithRegistry(prometheus.NewRegistry())
	n, err := NewOrphanSweeper(&fakeEvents{orphans: 4}, met, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4.0, testutil.ToFloat64(met.OrphansSwept))
}

type countingJob struct{ runs chan struct{} }

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(context.Context) (int, error) {
	j.runs <- struct{}{}
	return 1, nil
}

func TestCronManager_RunsScheduledJobs(t *testing.T) {
	cm := NewCronManager(zap.NewNop())
	job := &countingJob{runs: make(chan struct{}, 10)}
	require.NoError(t, cm.Schedule("@every 1s", job))
	assert.Error(t, cm.Schedule("not a spec", job))

	cm.Start()
	defer cm.Stop(context.Background())

	select {
	case <-job.runs:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}
