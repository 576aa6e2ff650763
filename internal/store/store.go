// Package store defines the persistence contract for session aggregates and
// the lookups the session core depends on.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"orbitd/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist in the addressed
	// workspace. Tenant mismatches are indistinguishable from absence.
	ErrNotFound = errors.New("store: not found")
	// ErrUnauthorized is returned when an API key fails validation.
	ErrUnauthorized = errors.New("store: unauthorized")
)

// RangeQuery selects sessions by scheduled start within [Start, End] for one
// workspace, optionally narrowed by category or host.
type RangeQuery struct {
	WorkspaceID int64
	Start       time.Time
	End         time.Time
	Category    string
	HostID      *int64
}

// Store is the adapter the session core drives. Implementations must make
// ReplaceParticipants atomic: a concurrent reader never observes the deleted
// but not yet re-inserted state.
type Store interface {
	// GetSession loads the full aggregate (type with slots and catalog, host,
	// participants with users). ErrNotFound when the session's type does not
	// belong to workspaceID.
	GetSession(ctx context.Context, workspaceID int64, sessionID uuid.UUID) (*models.Session, error)

	// UpdateSession applies column updates to one session row.
	UpdateSession(ctx context.Context, sessionID uuid.UUID, fields map[string]any) error

	// DeleteSession removes the session and its participant rows.
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error

	// ReplaceParticipants swaps the session's participant set for rows in a
	// single transaction.
	ReplaceParticipants(ctx context.Context, sessionID uuid.UUID, rows []models.SessionParticipant) error

	// ListSessions returns aggregates matching q ordered by date ascending.
	ListSessions(ctx context.Context, q RangeQuery) ([]models.Session, error)

	// SetJobID sets the session's external job identifier. ErrNotFound when
	// the session is absent from the workspace.
	SetJobID(ctx context.Context, workspaceID int64, sessionID uuid.UUID, jobID string) error

	// IsMember reports whether the user currently belongs to the workspace.
	IsMember(ctx context.Context, workspaceID, userID int64) (bool, error)

	// ValidateKey resolves an API key token against a workspace.
	// ErrUnauthorized when the token is unknown or scoped elsewhere.
	ValidateKey(ctx context.Context, token string, workspaceID int64) (*models.APIKey, error)

	// ClearSessions deletes every session across all workspaces and reports
	// how many were removed. Maintenance use only.
	ClearSessions(ctx context.Context) (int64, error)
}
