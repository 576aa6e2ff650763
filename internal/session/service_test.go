package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orbitd/internal/models"
	"orbitd/internal/store"
)

type capturedEvent struct {
	Subject string
	Payload any
}

type fakeBus struct {
	events []capturedEvent
	err    error
}

func (b *fakeBus) Publish(_ context.Context, subject string, v any) error {
	b.events = append(b.events, capturedEvent{Subject: subject, Payload: v})
	return b.err
}

type serviceFixture struct {
	svc    *Service
	store  *store.Memory
	bus    *fakeBus
	typeID uuid.UUID
	now    time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	st := store.NewMemory()
	st.AddWorkspace(models.Workspace{ID: 1, Name: "Orbit"})
	for _, id := range []int64{100, 200, 300} {
		st.AddUser(models.User{UserID: id, Username: "user"})
	}
	st.AddMember(1, 100)
	st.AddMember(1, 200)

	typeID := uuid.New()
	st.AddSessionType(models.SessionType{
		ID:          typeID,
		WorkspaceID: 1,
		Name:        "Patrol",
		Category:    "training",
		Statuses: []models.SessionStatus{
			{ID: uuid.New(), SessionTypeID: typeID, Name: "Started", MinutesAfterStart: 0, Position: 0},
			{ID: uuid.New(), SessionTypeID: typeID, Name: "Ended", MinutesAfterStart: 60, Position: 1},
		},
		Slots: []models.SessionSlot{
			{ID: uuid.New(), SessionTypeID: typeID, Name: "Host", Capacity: 1, Position: 0},
			{ID: uuid.New(), SessionTypeID: typeID, Name: "Co-Host", Capacity: 2, Position: 1},
		},
	})

	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	bus := &fakeBus{}
	svc := New(st,
		WithClock(func() time.Time { return now }),
		WithPublisher(bus),
	)
	return &serviceFixture{svc: svc, store: st, bus: bus, typeID: typeID, now: now}
}

func (f *serviceFixture) addSession(date time.Time) uuid.UUID {
	id := uuid.New()
	f.store.AddSession(models.Session{ID: id, SessionTypeID: f.typeID, Date: date})
	return id
}

func TestGetResolvesStatus(t *testing.T) {
	f := newServiceFixture(t)
	id := f.addSession(f.now.Add(-30 * time.Minute))

	got, err := f.svc.Get(context.Background(), 1, id)
	require.NoError(t, err)
	assert.Equal(t, "started", got.Status)

	future := f.addSession(f.now.Add(2 * time.Hour))
	got, err = f.svc.Get(context.Background(), 1, future)
	require.NoError(t, err)
	assert.Equal(t, "scheduled", got.Status)
}

func TestGetTenantIsolation(t *testing.T) {
	f := newServiceFixture(t)
	id := f.addSession(f.now)

	_, err := f.svc.Get(context.Background(), 2, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateEmptyInput(t *testing.T) {
	f := newServiceFixture(t)
	id := f.addSession(f.now)

	_, err := f.svc.Update(context.Background(), 1, id, UpdateInput{})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestUpdateDate(t *testing.T) {
	f := newServiceFixture(t)
	id := f.addSession(f.now)

	next := f.now.Add(48 * time.Hour)
	got, err := f.svc.Update(context.Background(), 1, id, UpdateInput{Date: &next})
	require.NoError(t, err)
	assert.True(t, got.Session.Date.Equal(next))
	assert.Equal(t, "scheduled", got.Status)
}

func TestUpdateHostStrictPolicy(t *testing.T) {
	f := newServiceFixture(t)
	id := f.addSession(f.now)

	// A non-member host is rejected outright, unlike participant entries.
	outsider := int64(300)
	_, err := f.svc.Update(context.Background(), 1, id, UpdateInput{SetHost: true, HostUserID: &outsider})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	member := int64(100)
	got, err := f.svc.Update(context.Background(), 1, id, UpdateInput{SetHost: true, HostUserID: &member})
	require.NoError(t, err)
	require.NotNil(t, got.Session.OwnerID)
	assert.Equal(t, member, *got.Session.OwnerID)

	// Explicit null clears the host.
	got, err = f.svc.Update(context.Background(), 1, id, UpdateInput{SetHost: true})
	require.NoError(t, err)
	assert.Nil(t, got.Session.OwnerID)
}

func TestUpdateParticipantsFullReplace(t *testing.T) {
	f := newServiceFixture(t)
	id := f.addSession(f.now)

	first := UpdateInput{SetParticipants: true, Participants: []ParticipantInput{
		{UserID: ptr(int64(100)), RoleID: ptr("trainer"), Slot: ptr(0)},
		{UserID: ptr(int64(200)), RoleID: ptr("helper"), Slot: ptr(1)},
	}}
	got, err := f.svc.Update(context.Background(), 1, id, first)
	require.NoError(t, err)
	require.Len(t, got.Session.Participants, 2)

	second := UpdateInput{SetParticipants: true, Participants: []ParticipantInput{
		{UserID: ptr(int64(200)), RoleID: ptr("trainer"), Slot: ptr(0)},
	}}
	got, err = f.svc.Update(context.Background(), 1, id, second)
	require.NoError(t, err)
	require.Len(t, got.Session.Participants, 1)
	assert.Equal(t, int64(200), got.Session.Participants[0].UserID)

	// Empty list is a valid clear, not a no-op.
	got, err = f.svc.Update(context.Background(), 1, id, UpdateInput{SetParticipants: true, Participants: []ParticipantInput{}})
	require.NoError(t, err)
	assert.Empty(t, got.Session.Participants)
}

func TestUpdatePublishesEvent(t *testing.T) {
	f := newServiceFixture(t)
	id := f.addSession(f.now)

	next := f.now.Add(time.Hour)
	_, err := f.svc.Update(context.Background(), 1, id, UpdateInput{Date: &next})
	require.NoError(t, err)

	require.Len(t, f.bus.events, 1)
	assert.Equal(t, SubjectUpdated, f.bus.events[0].Subject)
}

func TestPublishFailureDoesNotFailUpdate(t *testing.T) {
	f := newServiceFixture(t)
	f.bus.err = errors.New("nats down")
	id := f.addSession(f.now)

	next := f.now.Add(time.Hour)
	_, err := f.svc.Update(context.Background(), 1, id, UpdateInput{Date: &next})
	assert.NoError(t, err)
}

func TestDelete(t *testing.T) {
	f := newServiceFixture(t)
	id := f.addSession(f.now)

	require.NoError(t, f.svc.Delete(context.Background(), 1, id))

	_, err := f.svc.Get(context.Background(), 1, id)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.Len(t, f.bus.events, 1)
	assert.Equal(t, SubjectDeleted, f.bus.events[0].Subject)

	assert.ErrorIs(t, f.svc.Delete(context.Background(), 1, id), store.ErrNotFound)
}

func TestDeleteTenantIsolation(t *testing.T) {
	f := newServiceFixture(t)
	id := f.addSession(f.now)

	assert.ErrorIs(t, f.svc.Delete(context.Background(), 2, id), store.ErrNotFound)

	// The session survives the cross-workspace attempt.
	_, err := f.svc.Get(context.Background(), 1, id)
	assert.NoError(t, err)
}

func TestCalendarGroupsByUTCDate(t *testing.T) {
	f := newServiceFixture(t)
	day1 := time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC)
	f.addSession(day1)
	f.addSession(day1.Add(8 * time.Hour))
	f.addSession(day1.Add(26 * time.Hour))

	start := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)
	got, err := f.svc.Calendar(context.Background(), 1, start, end, "")
	require.NoError(t, err)

	assert.Len(t, got.Sessions, 3)
	require.Len(t, got.ByDate, 2)
	assert.Len(t, got.ByDate["2024-06-14"], 2)
	assert.Len(t, got.ByDate["2024-06-15"], 1)

	// Ascending by scheduled start.
	for i := 1; i < len(got.Sessions); i++ {
		assert.False(t, got.Sessions[i].Session.Date.Before(got.Sessions[i-1].Session.Date))
	}
}

func TestCalendarSharedClock(t *testing.T) {
	f := newServiceFixture(t)
	f.addSession(f.now.Add(-90 * time.Minute)) // past the 60-minute threshold
	f.addSession(f.now.Add(-10 * time.Minute))
	f.addSession(f.now.Add(3 * time.Hour))

	got, err := f.svc.Calendar(context.Background(), 1, f.now.Add(-24*time.Hour), f.now.Add(24*time.Hour), "")
	require.NoError(t, err)
	require.Len(t, got.Sessions, 3)

	assert.Equal(t, "ended", got.Sessions[0].Status)
	assert.Equal(t, "started", got.Sessions[1].Status)
	assert.Equal(t, "scheduled", got.Sessions[2].Status)
}

func TestCalendarRangeValidation(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Calendar(context.Background(), 1, f.now, f.now.Add(-time.Hour), "")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCalendarCategoryFilter(t *testing.T) {
	f := newServiceFixture(t)
	f.store.AddSession(models.Session{ID: uuid.New(), SessionTypeID: f.typeID, Date: f.now, Category: "training"})
	f.store.AddSession(models.Session{ID: uuid.New(), SessionTypeID: f.typeID, Date: f.now, Category: "shift"})

	got, err := f.svc.Calendar(context.Background(), 1, f.now.Add(-time.Hour), f.now.Add(time.Hour), "shift")
	require.NoError(t, err)
	require.Len(t, got.Sessions, 1)
	assert.Equal(t, "shift", got.Sessions[0].Session.Category)
}

func TestSetJobID(t *testing.T) {
	f := newServiceFixture(t)
	id := f.addSession(f.now)

	got, err := f.svc.SetJobID(context.Background(), 1, id, "774421")
	require.NoError(t, err)
	require.NotNil(t, got.JobID)
	assert.Equal(t, "774421", *got.JobID)

	require.Len(t, f.bus.events, 1)
	assert.Equal(t, SubjectJobID, f.bus.events[0].Subject)

	_, err = f.svc.SetJobID(context.Background(), 1, uuid.New(), "774421")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.svc.SetJobID(context.Background(), 2, id, "774421")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHostSessionsToday(t *testing.T) {
	f := newServiceFixture(t)
	host := int64(100)

	today := uuid.New()
	f.store.AddSession(models.Session{ID: today, SessionTypeID: f.typeID, Date: f.now.Add(-2 * time.Hour), OwnerID: &host})

	other := int64(200)
	f.store.AddSession(models.Session{ID: uuid.New(), SessionTypeID: f.typeID, Date: f.now, OwnerID: &other})
	f.store.AddSession(models.Session{ID: uuid.New(), SessionTypeID: f.typeID, Date: f.now.Add(24 * time.Hour), OwnerID: &host})
	f.store.AddSession(models.Session{ID: uuid.New(), SessionTypeID: f.typeID, Date: f.now})

	got, err := f.svc.HostSessionsToday(context.Background(), 1, host)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, today, got[0].Session.ID)
	assert.Equal(t, "ended", got[0].Status)
}
