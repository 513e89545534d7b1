package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"crm-system/internal/entities"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/types"
	"crm-system/pkg/utils"
)

var errDBDown = errors.New("db down")

func asUser(user *entities.User) context.Context {
	return utils.WithUser(context.Background(), user)
}

func strPtr(s string) *string { return &s }

func u64Ptr(v uint64) *uint64 { return &v }

func nopLogger() *zap.Logger { return zap.NewNop() }

// fakeTxManager runs fn without a real transaction; repositories accept a nil tx.
type fakeTxManager struct {
	transactions int
	savepoints   int
}

func (m *fakeTxManager) RunInTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	m.transactions++
	return fn(nil)
}

func (m *fakeTxManager) RunInSavepoint(_ context.Context, tx pgx.Tx, fn func(tx pgx.Tx) error) error {
	m.savepoints++
	return fn(tx)
}

type fakeLeadRepo struct {
	mu        sync.Mutex
	leads     map[uint64]*entities.Lead
	nextID    uint64
	failPhone string
}

func newFakeLeadRepo(leads ...*entities.Lead) *fakeLeadRepo {
	r := &fakeLeadRepo{leads: map[uint64]*entities.Lead{}, nextID: 100}
	for _, l := range leads {
		cp := *l
		r.leads[l.ID] = &cp
	}
	return r
}

func (r *fakeLeadRepo) GetLeads(_ context.Context, _ sq.Sqlizer, _ types.Filter) ([]entities.Lead, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.Lead, 0, len(r.leads))
	for _, l := range r.leads {
		out = append(out, *l)
	}
	return out, uint64(len(out)), nil
}

func (r *fakeLeadRepo) FindLead(_ context.Context, _ pgx.Tx, id uint64) (*entities.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *fakeLeadRepo) CreateLead(_ context.Context, _ pgx.Tx, lead *entities.Lead) (*entities.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failPhone != "" && lead.Phone == r.failPhone {
		return nil, errDBDown
	}
	r.nextID++
	cp := *lead
	cp.ID = r.nextID
	r.leads[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeLeadRepo) UpdateLead(_ context.Context, _ pgx.Tx, lead *entities.Lead) (*entities.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leads[lead.ID]; !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *lead
	r.leads[lead.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeLeadRepo) UpdateStatus(_ context.Context, id uint64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	l.Status = status
	return nil
}

func (r *fakeLeadRepo) DeleteLead(_ context.Context, _ pgx.Tx, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leads[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.leads, id)
	return nil
}

type fakeCustomerRepo struct {
	customers []entities.Customer
}

func (r *fakeCustomerRepo) GetCustomers(_ context.Context, clientID uint64, _ types.Filter) ([]entities.Customer, uint64, error) {
	out := make([]entities.Customer, 0)
	for _, c := range r.customers {
		if c.ClientID == clientID {
			out = append(out, c)
		}
	}
	return out, uint64(len(out)), nil
}

func (r *fakeCustomerRepo) FindCustomer(_ context.Context, id uint64) (*entities.Customer, error) {
	for _, c := range r.customers {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeCustomerRepo) CreateCustomer(_ context.Context, _ pgx.Tx, c *entities.Customer) (*entities.Customer, error) {
	cp := *c
	cp.ID = uint64(len(r.customers) + 1)
	r.customers = append(r.customers, cp)
	return &cp, nil
}

// fakeEventRepo mirrors the partial unique index: one reminder per lead.
type fakeEventRepo struct {
	mu        sync.Mutex
	events    map[uint64]*entities.CalendarEvent
	nextID    uint64
	failWrite bool
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: map[uint64]*entities.CalendarEvent{}}
}

func (r *fakeEventRepo) remindersFor(leadID uint64) []entities.CalendarEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.CalendarEvent, 0)
	for _, e := range r.events {
		if e.IsReminder() && e.LeadID != nil && *e.LeadID == leadID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeEventRepo) GetEvents(_ context.Context, _ sq.Sqlizer, _, _ *time.Time) ([]entities.CalendarEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.CalendarEvent, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, *e)
	}
	return out, nil
}

func (r *fakeEventRepo) FindEvent(_ context.Context, id uint64) (*entities.CalendarEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *fakeEventRepo) FindReminderByLead(_ context.Context, _ pgx.Tx, leadID uint64) (*entities.CalendarEvent, error) {
	reminders := r.remindersFor(leadID)
	if len(reminders) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &reminders[0], nil
}

func (r *fakeEventRepo) CreateEvent(_ context.Context, _ pgx.Tx, event *entities.CalendarEvent) (*entities.CalendarEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite {
		return nil, errDBDown
	}
	r.nextID++
	cp := *event
	cp.ID = r.nextID
	r.events[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeEventRepo) UpsertReminder(ctx context.Context, tx pgx.Tx, event *entities.CalendarEvent) (*entities.CalendarEvent, error) {
	if existing, err := r.FindReminderByLead(ctx, tx, *event.LeadID); err == nil {
		event.ID = existing.ID
		return r.UpdateEvent(ctx, tx, event)
	}
	return r.CreateEvent(ctx, tx, event)
}

func (r *fakeEventRepo) UpdateEvent(_ context.Context, _ pgx.Tx, event *entities.CalendarEvent) (*entities.CalendarEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite {
		return nil, errDBDown
	}
	if _, ok := r.events[event.ID]; !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *event
	r.events[event.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeEventRepo) DeleteEvent(_ context.Context, _ pgx.Tx, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *fakeEventRepo) DeleteReminderByLead(_ context.Context, _ pgx.Tx, leadID uint64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, e := range r.events {
		if e.IsReminder() && e.LeadID != nil && *e.LeadID == leadID {
			delete(r.events, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeEventRepo) DueReminders(_ context.Context, now time.Time, limit int) ([]entities.CalendarEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.CalendarEvent, 0)
	for _, e := range r.events {
		if e.IsReminder() && e.IsActive && !e.Notified && !e.NotifyAt().After(now) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeEventRepo) MarkNotified(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	e.Notified = true
	return nil
}

func (r *fakeEventRepo) DeleteOrphanReminders(_ context.Context) (int64, error) {
	return 0, nil
}

type fakeUserRepo struct {
	users map[uint64]*entities.User
}

func newFakeUserRepo(users ...*entities.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[uint64]*entities.User{}}
	for _, u := range users {
		cp := *u
		r.users[u.ID] = &cp
	}
	return r
}

func (r *fakeUserRepo) GetUsers(_ context.Context, clientID uint64, _ types.Filter) ([]entities.User, uint64, error) {
	out := make([]entities.User, 0)
	for _, u := range r.users {
		if u.ClientID == clientID {
			out = append(out, *u)
		}
	}
	return out, uint64(len(out)), nil
}

func (r *fakeUserRepo) FindUser(_ context.Context, id uint64) (*entities.User, error) {
	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entities.User, error) {
	for _, u := range r.users {
		if u.Email == email && u.DeletedAt == nil {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeUserRepo) CreateUser(_ context.Context, user *entities.User) (*entities.User, error) {
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, apperrors.NewConflictError("a user with this email already exists", nil)
		}
	}
	cp := *user
	cp.ID = uint64(len(r.users) + 1000)
	r.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeUserRepo) UpdateUser(_ context.Context, user *entities.User) (*entities.User, error) {
	if _, ok := r.users[user.ID]; !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, userID uint64, hash string) error {
	u, ok := r.users[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.Password = hash
	return nil
}

func (r *fakeUserRepo) DeleteUser(_ context.Context, id uint64) error {
	u, ok := r.users[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	now := time.Now()
	u.DeletedAt = &now
	u.IsActive = false
	return nil
}

func (r *fakeUserRepo) CountUsers(_ context.Context) (uint64, error) {
	return uint64(len(r.users)), nil
}

type fakeAttendanceRepo struct {
	records []*entities.AttendanceRecord
	locks   int
}

func (r *fakeAttendanceRepo) LockUser(_ context.Context, _ pgx.Tx, _ uint64) error {
	r.locks++
	return nil
}

func (r *fakeAttendanceRepo) FindLatestOpen(_ context.Context, _ pgx.Tx, userID uint64) (*entities.AttendanceRecord, error) {
	for i := len(r.records) - 1; i >= 0; i-- {
		if rec := r.records[i]; rec.UserID == userID && rec.IsOpen() {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeAttendanceRepo) Create(_ context.Context, _ pgx.Tx, rec *entities.AttendanceRecord, day string) (*entities.AttendanceRecord, error) {
	date, err := time.Parse(dayLayout, day)
	if err != nil {
		return nil, err
	}
	cp := *rec
	cp.ID = uint64(len(r.records) + 1)
	cp.Date = date
	r.records = append(r.records, &cp)
	out := cp
	return &out, nil
}

func (r *fakeAttendanceRepo) Close(_ context.Context, _ pgx.Tx, id uint64, clockOut time.Time, totalHours float64, notes string) (*entities.AttendanceRecord, error) {
	for _, rec := range r.records {
		if rec.ID == id && rec.IsOpen() {
			rec.ClockOut = &clockOut
			rec.TotalHours = &totalHours
			if notes != "" {
				rec.Notes = notes
			}
			cp := *rec
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNoActiveSession
}

func (r *fakeAttendanceRepo) History(_ context.Context, userID uint64, from, to string) ([]entities.AttendanceRecord, error) {
	out := make([]entities.AttendanceRecord, 0)
	for _, rec := range r.records {
		day := rec.Date.Format(dayLayout)
		if rec.UserID == userID && day >= from && day <= to {
			out = append(out, *rec)
		}
	}
	return out, nil
}
