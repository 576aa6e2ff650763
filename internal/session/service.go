// Package session implements the command service over session aggregates:
// status resolution at read time, strict host reassignment, best-effort
// participant reconciliation, and range listings.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"orbitd/internal/models"
	"orbitd/internal/status"
	"orbitd/internal/store"
)

// Event subjects emitted on session mutations.
const (
	SubjectUpdated = "orbit.sessions.updated"
	SubjectDeleted = "orbit.sessions.deleted"
	SubjectJobID   = "orbit.sessions.jobid"
)

// ValidationError marks caller input problems; the HTTP edge maps it to 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Publisher emits session lifecycle events. A nil publisher disables
// publishing; publish failures are logged, never surfaced to callers.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// Service composes the store adapter, resolver, and reconciler into the
// session command API. It is stateless between calls; the clock is injected
// for deterministic resolution.
type Service struct {
	store      store.Store
	reconciler *Reconciler
	bus        Publisher
	log        zerolog.Logger
	now        func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPublisher attaches an event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.bus = p }
}

// WithLogger attaches a contextual logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// New builds a Service over the given store.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store: st,
		log:   zerolog.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reconciler = NewReconciler(st, s.log)
	return s
}

// Resolved pairs a session aggregate with its status label at resolution
// time. The label is derived, never persisted.
type Resolved struct {
	Session *models.Session
	Status  string
}

func snapshotOf(sess *models.Session) status.Snapshot {
	catalog := make(status.Catalog, 0, len(sess.SessionType.Statuses))
	for _, st := range sess.SessionType.Statuses {
		catalog = append(catalog, status.Threshold{Name: st.Name, Minutes: st.MinutesAfterStart})
	}
	return status.Snapshot{
		ScheduledStart: sess.Date,
		StartedAt:      sess.StartedAt,
		Ended:          sess.Ended,
		Catalog:        catalog,
	}
}

func (s *Service) resolve(sess *models.Session, now time.Time) *Resolved {
	return &Resolved{Session: sess, Status: status.Resolve(snapshotOf(sess), now)}
}

func (s *Service) publish(ctx context.Context, subject string, payload any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, subject, payload); err != nil {
		s.log.Warn().Err(err).Str("subject", subject).Msg("event publish failed")
	}
}

// Get loads one session and resolves its status at call time.
func (s *Service) Get(ctx context.Context, workspaceID int64, sessionID uuid.UUID) (*Resolved, error) {
	sess, err := s.store.GetSession(ctx, workspaceID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.resolve(sess, s.now().UTC()), nil
}

// UpdateInput carries the mutable session fields. Set flags distinguish
// "field absent" from "field explicitly null" for tri-state host handling.
type UpdateInput struct {
	Date *time.Time

	SetHost    bool
	HostUserID *int64 // nil with SetHost clears the host

	SetParticipants bool
	Participants    []ParticipantInput
}

func (in UpdateInput) empty() bool {
	return in.Date == nil && !in.SetHost && !in.SetParticipants
}

// Update applies date/host changes and, when supplied, a full participant
// replace. Host reassignment is strict: a target outside the workspace is a
// validation error, unlike the best-effort participant policy.
func (s *Service) Update(ctx context.Context, workspaceID int64, sessionID uuid.UUID, in UpdateInput) (*Resolved, error) {
	if in.empty() {
		return nil, validationf("no update data provided")
	}

	sess, err := s.store.GetSession(ctx, workspaceID, sessionID)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any, 2)
	if in.Date != nil {
		fields["date"] = in.Date.UTC()
	}
	if in.SetHost {
		if in.HostUserID == nil {
			fields["owner_id"] = nil
		} else {
			member, err := s.store.IsMember(ctx, workspaceID, *in.HostUserID)
			if err != nil {
				return nil, err
			}
			if !member {
				return nil, validationf("Host not found in workspace")
			}
			fields["owner_id"] = *in.HostUserID
		}
	}

	if len(fields) > 0 {
		if err := s.store.UpdateSession(ctx, sessionID, fields); err != nil {
			return nil, err
		}
	}

	if in.SetParticipants {
		if _, err := s.reconciler.Reconcile(ctx, sess, workspaceID, in.Participants); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.GetSession(ctx, workspaceID, sessionID)
	if err != nil {
		return nil, err
	}
	resolved := s.resolve(updated, s.now().UTC())

	s.publish(ctx, SubjectUpdated, map[string]any{
		"workspace_id": workspaceID,
		"session_id":   sessionID.String(),
		"status":       resolved.Status,
	})
	return resolved, nil
}

// Delete removes the session and its participant rows.
func (s *Service) Delete(ctx context.Context, workspaceID int64, sessionID uuid.UUID) error {
	if _, err := s.store.GetSession(ctx, workspaceID, sessionID); err != nil {
		return err
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	s.publish(ctx, SubjectDeleted, map[string]any{
		"workspace_id": workspaceID,
		"session_id":   sessionID.String(),
	})
	return nil
}

// CalendarResult is a range listing resolved against one shared clock value
// and grouped by the UTC date of each session's scheduled start.
type CalendarResult struct {
	Sessions []*Resolved
	ByDate   map[string][]*Resolved
	Start    time.Time
	End      time.Time
}

// DateKey is the grouping key format for calendar results.
const DateKey = "2006-01-02"

// Calendar lists sessions scheduled within [start, end], optionally filtered
// by category. Every entry is resolved with a single now captured once so a
// batch is internally consistent.
func (s *Service) Calendar(ctx context.Context, workspaceID int64, start, end time.Time, category string) (*CalendarResult, error) {
	if start.After(end) {
		return nil, validationf("start date must not be after end date")
	}

	sessions, err := s.store.ListSessions(ctx, store.RangeQuery{
		WorkspaceID: workspaceID,
		Start:       start,
		End:         end,
		Category:    category,
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	result := &CalendarResult{
		Sessions: make([]*Resolved, 0, len(sessions)),
		ByDate:   make(map[string][]*Resolved),
		Start:    start,
		End:      end,
	}
	for i := range sessions {
		resolved := s.resolve(&sessions[i], now)
		result.Sessions = append(result.Sessions, resolved)
		key := sessions[i].Date.UTC().Format(DateKey)
		result.ByDate[key] = append(result.ByDate[key], resolved)
	}
	return result, nil
}

// SetJobID stores the session's external job identifier and returns the
// updated aggregate. Status is not part of this response.
func (s *Service) SetJobID(ctx context.Context, workspaceID int64, sessionID uuid.UUID, jobID string) (*models.Session, error) {
	if err := s.store.SetJobID(ctx, workspaceID, sessionID, jobID); err != nil {
		return nil, err
	}
	sess, err := s.store.GetSession(ctx, workspaceID, sessionID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, SubjectJobID, map[string]any{
		"workspace_id": workspaceID,
		"session_id":   sessionID.String(),
		"job_id":       jobID,
	})
	return sess, nil
}

// HostSessionsToday lists today's sessions (UTC day window) hosted by the
// given user, date ascending, each with its resolved status.
func (s *Service) HostSessionsToday(ctx context.Context, workspaceID, hostUserID int64) ([]*Resolved, error) {
	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)

	sessions, err := s.store.ListSessions(ctx, store.RangeQuery{
		WorkspaceID: workspaceID,
		Start:       dayStart,
		End:         dayEnd,
		HostID:      &hostUserID,
	})
	if err != nil {
		return nil, err
	}

	out := make([]*Resolved, 0, len(sessions))
	for i := range sessions {
		out = append(out, s.resolve(&sessions[i], now))
	}
	return out, nil
}
