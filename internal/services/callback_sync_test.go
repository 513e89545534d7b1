package services

import (
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"crm-system/internal/dto"
	"crm-system/internal/entities"
)

func TestCallbackToUTC_FixedOffset(t *testing.T) {
	start, end, err := CallbackToUTC("2025-09-28", "21:03")
	require.NoError(t, err)
	assert.Equal(t, "2025-09-28T18:03:00Z", start.Format(time.RFC3339))
	assert.Equal(t, "2025-09-28T18:33:00Z", end.Format(time.RFC3339))

	start, end, err = CallbackToUTC("2024-03-10", "14:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 11, 30, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), end)

	// 01:15 local lands on the previous UTC day.
	start, _, err = CallbackToUTC("2024-01-01", "01:15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 31, 22, 15, 0, 0, time.UTC), start)

	// Summer dates use the same offset.
	start, _, err = CallbackToUTC("2024-07-15", "09:00")
	require.NoError(t, err)
	assert.Equal(t, 6, start.Hour())
}

func TestCallbackToUTC_RejectsMalformed(t *testing.T) {
	for _, tc := range [][2]string{
		{"2024-13-01", "10:00"},
		{"10/03/2024", "10:00"},
		{"2024-03-10", "24:00"},
		{"2024-03-10", "9:5"},
		{"", "10:00"},
	} {
		_, _, err := CallbackToUTC(tc[0], tc[1])
		assert.Error(t, err, "%s %s", tc[0], tc[1])
	}
}

type ReminderSyncSuite struct {
	suite.Suite
	events *fakeEventRepo
	leads  *fakeLeadRepo
	users  *fakeUserRepo
	svc    LeadServiceInterface
	admin  *entities.User
	agent  *entities.User
}

func (s *ReminderSyncSuite) SetupTest() {
	s.admin = &entities.User{ID: 1, ClientID: 1, Role: entities.RoleAdmin, IsActive: true}
	s.agent = &entities.User{ID: 9, ClientID: 1, Role: entities.RoleAgent, IsActive: true}
	s.events = newFakeEventRepo()
	s.leads = newFakeLeadRepo()
	s.users = newFakeUserRepo(s.admin, s.agent)
	s.svc = NewLeadService(s.leads, s.users, NewReminderSync(s.events, nil, nopLogger()), &fakeTxManager{}, nopLogger())
}

func (s *ReminderSyncSuite) create(date, hhmm *string) *entities.Lead {
	lead, err := s.svc.CreateLead(asUser(s.admin), dto.CreateLeadDTO{
		Name:         "Dana Levi",
		Phone:        "+972501234567",
		CallbackDate: date,
		CallbackTime: hhmm,
		AssignedTo:   &s.agent.ID,
	})
	s.Require().NoError(err)
	return lead
}

func (s *ReminderSyncSuite) update(id uint64, body string, d dto.UpdateLeadDTO) *entities.Lead {
	lead, err := s.svc.UpdateLead(asUser(s.admin), id, d, []byte(body))
	s.Require().NoError(err)
	return lead
}

func (s *ReminderSyncSuite) TestCreateWithoutCallbackCreatesNothing() {
	lead := s.create(nil, nil)
	s.Empty(s.events.remindersFor(lead.ID))

	lead = s.create(strPtr("2024-03-10"), nil)
	s.Empty(s.events.remindersFor(lead.ID))
}

func (s *ReminderSyncSuite) TestCreateWithCallbackCreatesOwnedReminder() {
	lead := s.create(strPtr("2024-03-10"), strPtr("14:30"))

	reminders := s.events.remindersFor(lead.ID)
	s.Require().Len(reminders, 1)
	r := reminders[0]
	s.Equal(s.agent.ID, r.UserID, "owner is the assignee, not the writer")
	s.Equal(time.Date(2024, 3, 10, 11, 30, 0, 0, time.UTC), r.StartTime)
	s.Equal(ReminderAdvanceNotice, r.AdvanceNotice)
	s.Equal("Callback — Dana Levi", r.Title)
	s.Contains(r.Description, "+972501234567")
	s.True(r.IsActive)
}

func (s *ReminderSyncSuite) TestUpdateIsIdempotent() {
	lead := s.create(strPtr("2024-03-10"), strPtr("14:30"))
	first := s.events.remindersFor(lead.ID)[0]

	body := `{"callback_date":"2024-03-11","callback_time":"09:00"}`
	d := dto.UpdateLeadDTO{CallbackDate: null.StringFrom("2024-03-11"), CallbackTime: null.StringFrom("09:00")}
	s.update(lead.ID, body, d)
	s.update(lead.ID, body, d)

	reminders := s.events.remindersFor(lead.ID)
	s.Require().Len(reminders, 1)
	s.Equal(first.ID, reminders[0].ID, "updated in place")
	s.Equal(time.Date(2024, 3, 11, 6, 0, 0, 0, time.UTC), reminders[0].StartTime)
}

func (s *ReminderSyncSuite) TestRepeatedUpdateFromNoEventCreatesOne() {
	lead := s.create(nil, nil)
	s.Require().Empty(s.events.remindersFor(lead.ID))

	body := `{"callback_date":"2025-09-28","callback_time":"21:03"}`
	d := dto.UpdateLeadDTO{CallbackDate: null.StringFrom("2025-09-28"), CallbackTime: null.StringFrom("21:03")}
	s.update(lead.ID, body, d)
	s.update(lead.ID, body, d)

	reminders := s.events.remindersFor(lead.ID)
	s.Require().Len(reminders, 1)
	s.Equal(time.Date(2025, 9, 28, 18, 3, 0, 0, time.UTC), reminders[0].StartTime)
	s.Equal(time.Date(2025, 9, 28, 18, 33, 0, 0, time.UTC), reminders[0].EndTime)
}

func (s *ReminderSyncSuite) TestClearingCallbackDeletesAndSettingRecreates() {
	lead := s.create(strPtr("2024-03-10"), strPtr("14:30"))
	s.Require().Len(s.events.remindersFor(lead.ID), 1)

	updated := s.update(lead.ID, `{"callback_date":""}`, dto.UpdateLeadDTO{CallbackDate: null.StringFrom("")})
	s.Nil(updated.CallbackDate)
	s.Equal("14:30", *updated.CallbackTime)
	s.Empty(s.events.remindersFor(lead.ID))

	s.update(lead.ID, `{"callback_date":"2024-04-01"}`, dto.UpdateLeadDTO{CallbackDate: null.StringFrom("2024-04-01")})
	reminders := s.events.remindersFor(lead.ID)
	s.Require().Len(reminders, 1)
	s.Equal(time.Date(2024, 4, 1, 11, 30, 0, 0, time.UTC), reminders[0].StartTime)
}

func (s *ReminderSyncSuite) TestNullClearsLikeEmptyString() {
	lead := s.create(strPtr("2024-03-10"), strPtr("14:30"))
	s.update(lead.ID, `{"callback_time":null}`, dto.UpdateLeadDTO{})
	s.Empty(s.events.remindersFor(lead.ID))
}

func (s *ReminderSyncSuite) TestUpdateWithoutCallbackKeysLeavesReminderAlone() {
	lead := s.create(strPtr("2024-03-10"), strPtr("14:30"))
	before := s.events.remindersFor(lead.ID)[0]

	s.update(lead.ID, `{"notes":"call after lunch"}`, dto.UpdateLeadDTO{Notes: null.StringFrom("call after lunch")})

	after := s.events.remindersFor(lead.ID)
	s.Require().Len(after, 1)
	s.Equal(before, after[0])
}

func (s *ReminderSyncSuite) TestReassignmentMovesOwnershipOnNextSync() {
	other := &entities.User{ID: 12, ClientID: 1, Role: entities.RoleAgent, IsActive: true}
	s.users.users[other.ID] = other
	lead := s.create(strPtr("2024-03-10"), strPtr("14:30"))

	s.update(lead.ID, `{"assigned_to":12,"callback_time":"15:00"}`,
		dto.UpdateLeadDTO{AssignedTo: null.Uint64From(12), CallbackTime: null.StringFrom("15:00")})

	reminders := s.events.remindersFor(lead.ID)
	s.Require().Len(reminders, 1)
	s.Equal(other.ID, reminders[0].UserID)
}

func (s *ReminderSyncSuite) TestReminderFailureDoesNotFailLeadWrite() {
	s.events.failWrite = true
	lead := s.create(strPtr("2024-03-10"), strPtr("14:30"))
	s.NotZero(lead.ID)
	s.Empty(s.events.remindersFor(lead.ID))
}

func (s *ReminderSyncSuite) TestDeleteLeadRemovesReminder() {
	lead := s.create(strPtr("2024-03-10"), strPtr("14:30"))
	s.Require().NoError(s.svc.DeleteLead(asUser(s.admin), lead.ID))
	s.Empty(s.events.remindersFor(lead.ID))
	_, err := s.leads.FindLead(asUser(s.admin), nil, lead.ID)
	s.Error(err)
}

func TestReminderSyncSuite(t *testing.T) {
	suite.Run(t, new(ReminderSyncSuite))
}

func TestOnBulkImport_CountsAndAdvanceNotice(t *testing.T) {
	events := newFakeEventRepo()
	rs := NewReminderSync(events, nil, nopLogger())
	actor := &entities.User{ID: 1, ClientID: 1, Role: entities.RoleAdmin}

	leads := []entities.Lead{
		{ID: 1, ClientID: 1, Name: "A", CallbackDate: strPtr("2024-05-01"), CallbackTime: strPtr("10:00")},
		{ID: 2, ClientID: 1, Name: "B"},
		{ID: 3, ClientID: 1, Name: "C", CallbackDate: strPtr("2024-05-01"), CallbackTime: strPtr("99:99")},
	}
	res := rs.OnBulkImport(asUser(actor), actor, leads)

	assert.Equal(t, BulkReminderResult{Created: 1, Skipped: 1, Failed: 1}, res)
	reminders := events.remindersFor(1)
	require.Len(t, reminders, 1)
	assert.Equal(t, ImportAdvanceNotice, reminders[0].AdvanceNotice)
	assert.Equal(t, actor.ID, reminders[0].UserID)
}
