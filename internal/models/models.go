package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Workspace is the tenant boundary. Every session type, member, and API key
// hangs off exactly one workspace.
type Workspace struct {
	ID        int64             `gorm:"type:bigint;primaryKey"`
	Name      string            `gorm:"type:text;not null"`
	Settings  datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt time.Time         `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

// APIKey authorizes public API access to a single workspace. Only the SHA-256
// digest of the token is stored.
type APIKey struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	WorkspaceID int64      `gorm:"type:bigint;not null;index"`
	Name        string     `gorm:"type:text;not null"`
	TokenDigest string     `gorm:"type:text;uniqueIndex;not null"`
	CreatedAt   time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	LastUsedAt  *time.Time `gorm:"type:timestamptz"`

	Workspace Workspace `gorm:"foreignKey:WorkspaceID;references:ID;constraint:OnDelete:CASCADE"`
}

// User mirrors an external account. User IDs live in an external id space that
// can exceed 2^53, so they cross the wire as decimal strings.
type User struct {
	UserID   int64   `gorm:"type:bigint;primaryKey;column:user_id"`
	Username string  `gorm:"type:text;not null"`
	Picture  *string `gorm:"type:text"`
}

// WorkspaceMember links a user to a workspace. Membership is the only fact the
// session core ever asks about a user.
type WorkspaceMember struct {
	ID          int64 `gorm:"type:bigserial;primaryKey"`
	WorkspaceID int64 `gorm:"type:bigint;not null;uniqueIndex:idx_workspace_user"`
	UserID      int64 `gorm:"type:bigint;not null;uniqueIndex:idx_workspace_user"`

	Workspace Workspace `gorm:"foreignKey:WorkspaceID;references:ID;constraint:OnDelete:CASCADE"`
	User      User      `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE"`
}

// SessionType is the reusable template for recurring sessions: its slot
// templates and status catalog are owned rows keyed by stable UUIDs so
// reordering in a UI never orphans a reference.
type SessionType struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	WorkspaceID int64     `gorm:"type:bigint;not null;index"`
	Name        string    `gorm:"type:text;not null"`
	Description string    `gorm:"type:text"`
	GameID      *int64    `gorm:"type:bigint"`
	Category    string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`

	Workspace Workspace       `gorm:"foreignKey:WorkspaceID;references:ID;constraint:OnDelete:CASCADE"`
	Slots     []SessionSlot   `gorm:"foreignKey:SessionTypeID;references:ID;constraint:OnDelete:CASCADE"`
	Statuses  []SessionStatus `gorm:"foreignKey:SessionTypeID;references:ID;constraint:OnDelete:CASCADE"`
}

// SessionSlot is a named capacity bucket (e.g. "Co-Host") participants claim
// by index. Position is the slot's index within the template list.
type SessionSlot struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionTypeID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name          string    `gorm:"type:text;not null"`
	Capacity      int       `gorm:"type:int;not null;default:1"`
	Position      int       `gorm:"type:int;not null"`
}

// SessionStatus is one threshold of a session type's status catalog: the
// session earns the label once MinutesAfterStart have elapsed since its
// scheduled start. Position preserves declaration order for tie-breaks.
type SessionStatus struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionTypeID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Name              string    `gorm:"type:text;not null"`
	MinutesAfterStart int       `gorm:"type:int;not null"`
	ColorTag          string    `gorm:"type:text"`
	Position          int       `gorm:"type:int;not null"`
}

// Session is one concrete occurrence of a session type. Its displayed status
// is never stored; it is recomputed from Date, StartedAt, Ended, and the
// type's status catalog at read time.
type Session struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SessionTypeID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Name          *string    `gorm:"type:text"`
	Date          time.Time  `gorm:"type:timestamptz;not null;index"`
	StartedAt     *time.Time `gorm:"type:timestamptz"`
	Ended         bool       `gorm:"type:boolean;not null;default:false"`
	IsOpen        bool       `gorm:"type:boolean;not null;default:false"`
	JobID         *string    `gorm:"type:text;column:job_id"`
	Duration      *int       `gorm:"type:int"`
	OwnerID       *int64     `gorm:"type:bigint;index"`
	Category      string     `gorm:"type:text"`
	CreatedAt     time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`

	SessionType  SessionType          `gorm:"foreignKey:SessionTypeID;references:ID"`
	Owner        *User                `gorm:"foreignKey:OwnerID;references:UserID"`
	Participants []SessionParticipant `gorm:"foreignKey:SessionID;references:ID;constraint:OnDelete:CASCADE"`
}

// SessionParticipant is one member claiming one slot of a session. A member
// holds at most one row per session.
type SessionParticipant struct {
	ID        int64     `gorm:"type:bigserial;primaryKey"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_session_user"`
	UserID    int64     `gorm:"type:bigint;not null;uniqueIndex:idx_session_user"`
	RoleID    string    `gorm:"type:text;not null"`
	Slot      int       `gorm:"type:int;not null"`

	User User `gorm:"foreignKey:UserID;references:UserID"`
}
