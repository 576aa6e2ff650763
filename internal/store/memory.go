package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"orbitd/internal/models"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store used by the unit suites. It mirrors the
// Postgres semantics, including tenant isolation and participant replace
// atomicity (guaranteed here by the mutex).
type Memory struct {
	mu           sync.RWMutex
	workspaces   map[int64]models.Workspace
	users        map[int64]models.User
	members      map[int64]map[int64]bool
	types        map[uuid.UUID]models.SessionType
	sessions     map[uuid.UUID]models.Session
	participants map[uuid.UUID][]models.SessionParticipant
	keys         map[string]models.APIKey // keyed by token digest
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		workspaces:   make(map[int64]models.Workspace),
		users:        make(map[int64]models.User),
		members:      make(map[int64]map[int64]bool),
		types:        make(map[uuid.UUID]models.SessionType),
		sessions:     make(map[uuid.UUID]models.Session),
		participants: make(map[uuid.UUID][]models.SessionParticipant),
		keys:         make(map[string]models.APIKey),
	}
}

// Fixture helpers.

func (m *Memory) AddWorkspace(ws models.Workspace) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workspaces[ws.ID] = ws
}

func (m *Memory) AddUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.UserID] = u
}

func (m *Memory) AddMember(workspaceID, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[workspaceID] == nil {
		m.members[workspaceID] = make(map[int64]bool)
	}
	m.members[workspaceID][userID] = true
}

func (m *Memory) RemoveMember(workspaceID, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members[workspaceID], userID)
}

func (m *Memory) AddSessionType(t models.SessionType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types[t.ID] = t
}

func (m *Memory) AddSession(s models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	parts := s.Participants
	s.Participants = nil
	m.sessions[s.ID] = s
	m.participants[s.ID] = append([]models.SessionParticipant(nil), parts...)
}

func (m *Memory) AddKey(token string, key models.APIKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key.TokenDigest = HashToken(token)
	m.keys[key.TokenDigest] = key
}

func (m *Memory) assemble(s models.Session) models.Session {
	t := m.types[s.SessionTypeID]
	s.SessionType = t
	if s.OwnerID != nil {
		if owner, ok := m.users[*s.OwnerID]; ok {
			o := owner
			s.Owner = &o
		}
	}
	parts := append([]models.SessionParticipant(nil), m.participants[s.ID]...)
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Slot < parts[j].Slot })
	for i := range parts {
		parts[i].User = m.users[parts[i].UserID]
	}
	s.Participants = parts
	return s
}

func (m *Memory) GetSession(_ context.Context, workspaceID int64, sessionID uuid.UUID) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if t, ok := m.types[s.SessionTypeID]; !ok || t.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	out := m.assemble(s)
	return &out, nil
}

func (m *Memory) UpdateSession(_ context.Context, sessionID uuid.UUID, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	for col, v := range fields {
		switch col {
		case "date":
			s.Date = v.(time.Time)
		case "owner_id":
			if v == nil {
				s.OwnerID = nil
			} else {
				id := v.(int64)
				s.OwnerID = &id
			}
		case "job_id":
			id := v.(string)
			s.JobID = &id
		case "started_at":
			if v == nil {
				s.StartedAt = nil
			} else {
				at := v.(time.Time)
				s.StartedAt = &at
			}
		case "ended":
			s.Ended = v.(bool)
		}
	}
	m.sessions[sessionID] = s
	return nil
}

func (m *Memory) DeleteSession(_ context.Context, sessionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, sessionID)
	delete(m.participants, sessionID)
	return nil
}

func (m *Memory) ReplaceParticipants(_ context.Context, sessionID uuid.UUID, rows []models.SessionParticipant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.participants[sessionID] = append([]models.SessionParticipant(nil), rows...)
	return nil
}

func (m *Memory) ListSessions(_ context.Context, q RangeQuery) ([]models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Session
	for _, s := range m.sessions {
		t, ok := m.types[s.SessionTypeID]
		if !ok || t.WorkspaceID != q.WorkspaceID {
			continue
		}
		if s.Date.Before(q.Start) || s.Date.After(q.End) {
			continue
		}
		if q.Category != "" && s.Category != q.Category {
			continue
		}
		if q.HostID != nil && (s.OwnerID == nil || *s.OwnerID != *q.HostID) {
			continue
		}
		out = append(out, m.assemble(s))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	if out == nil {
		out = []models.Session{}
	}
	return out, nil
}

func (m *Memory) SetJobID(_ context.Context, workspaceID int64, sessionID uuid.UUID, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if t, ok := m.types[s.SessionTypeID]; !ok || t.WorkspaceID != workspaceID {
		return ErrNotFound
	}
	s.JobID = &jobID
	m.sessions[sessionID] = s
	return nil
}

func (m *Memory) IsMember(_ context.Context, workspaceID, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.members[workspaceID][userID], nil
}

func (m *Memory) ValidateKey(_ context.Context, token string, workspaceID int64) (*models.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key, ok := m.keys[HashToken(token)]
	if !ok || key.WorkspaceID != workspaceID {
		return nil, ErrUnauthorized
	}
	out := key
	return &out, nil
}

func (m *Memory) ClearSessions(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := int64(len(m.sessions))
	m.sessions = make(map[uuid.UUID]models.Session)
	m.participants = make(map[uuid.UUID][]models.SessionParticipant)
	return removed, nil
}

// Participants returns the current participant rows for a session, slot
// ordered. Test helper.
func (m *Memory) ParticipantRows(sessionID uuid.UUID) []models.SessionParticipant {
	m.mu.RLock()
	defer m.mu.RUnlock()

	parts := append([]models.SessionParticipant(nil), m.participants[sessionID]...)
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Slot < parts[j].Slot })
	return parts
}
