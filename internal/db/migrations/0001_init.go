// Package migrations registers the schema migrations. Each migration carries
// a frozen copy of the models it creates so later model changes never rewrite
// history.
package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

type Workspace struct {
	ID        int64             `gorm:"type:bigint;primaryKey"`
	Name      string            `gorm:"type:text;not null"`
	Settings  datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt time.Time         `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

type APIKey struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	WorkspaceID int64      `gorm:"type:bigint;not null;index"`
	Name        string     `gorm:"type:text;not null"`
	TokenDigest string     `gorm:"type:text;uniqueIndex;not null"`
	CreatedAt   time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	LastUsedAt  *time.Time `gorm:"type:timestamptz"`
	Workspace   Workspace  `gorm:"foreignKey:WorkspaceID;references:ID;constraint:OnDelete:CASCADE"`
}

type User struct {
	UserID   int64   `gorm:"type:bigint;primaryKey;column:user_id"`
	Username string  `gorm:"type:text;not null"`
	Picture  *string `gorm:"type:text"`
}

type WorkspaceMember struct {
	ID          int64     `gorm:"type:bigserial;primaryKey"`
	WorkspaceID int64     `gorm:"type:bigint;not null;uniqueIndex:idx_workspace_user"`
	UserID      int64     `gorm:"type:bigint;not null;uniqueIndex:idx_workspace_user"`
	Workspace   Workspace `gorm:"foreignKey:WorkspaceID;references:ID;constraint:OnDelete:CASCADE"`
	User        User      `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE"`
}

type SessionType struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	WorkspaceID int64     `gorm:"type:bigint;not null;index"`
	Name        string    `gorm:"type:text;not null"`
	Description string    `gorm:"type:text"`
	GameID      *int64    `gorm:"type:bigint"`
	Category    string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	Workspace   Workspace `gorm:"foreignKey:WorkspaceID;references:ID;constraint:OnDelete:CASCADE"`
}

type SessionSlot struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey"`
	SessionTypeID uuid.UUID   `gorm:"type:uuid;not null;index"`
	Name          string      `gorm:"type:text;not null"`
	Capacity      int         `gorm:"type:int;not null;default:1"`
	Position      int         `gorm:"type:int;not null"`
	SessionType   SessionType `gorm:"foreignKey:SessionTypeID;references:ID;constraint:OnDelete:CASCADE"`
}

type SessionStatus struct {
	ID                uuid.UUID   `gorm:"type:uuid;primaryKey"`
	SessionTypeID     uuid.UUID   `gorm:"type:uuid;not null;index"`
	Name              string      `gorm:"type:text;not null"`
	MinutesAfterStart int         `gorm:"type:int;not null"`
	ColorTag          string      `gorm:"type:text"`
	Position          int         `gorm:"type:int;not null"`
	SessionType       SessionType `gorm:"foreignKey:SessionTypeID;references:ID;constraint:OnDelete:CASCADE"`
}

type Session struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey"`
	SessionTypeID uuid.UUID   `gorm:"type:uuid;not null;index"`
	Name          *string     `gorm:"type:text"`
	Date          time.Time   `gorm:"type:timestamptz;not null;index"`
	StartedAt     *time.Time  `gorm:"type:timestamptz"`
	Ended         bool        `gorm:"type:boolean;not null;default:false"`
	IsOpen        bool        `gorm:"type:boolean;not null;default:false"`
	JobID         *string     `gorm:"type:text;column:job_id"`
	Duration      *int        `gorm:"type:int"`
	OwnerID       *int64      `gorm:"type:bigint;index"`
	Category      string      `gorm:"type:text"`
	CreatedAt     time.Time   `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt     time.Time   `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	SessionType   SessionType `gorm:"foreignKey:SessionTypeID;references:ID"`
	Owner         *User       `gorm:"foreignKey:OwnerID;references:UserID"`
}

type SessionParticipant struct {
	ID        int64     `gorm:"type:bigserial;primaryKey"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_session_user"`
	UserID    int64     `gorm:"type:bigint;not null;uniqueIndex:idx_session_user"`
	RoleID    string    `gorm:"type:text;not null"`
	Slot      int       `gorm:"type:int;not null"`
	Session   Session   `gorm:"foreignKey:SessionID;references:ID;constraint:OnDelete:CASCADE"`
	User      User      `gorm:"foreignKey:UserID;references:UserID"`
}

func open(tx *sql.Tx) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
}

func upInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := open(tx)
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).AutoMigrate(
		&Workspace{},
		&APIKey{},
		&User{},
		&WorkspaceMember{},
		&SessionType{},
		&SessionSlot{},
		&SessionStatus{},
		&Session{},
		&SessionParticipant{},
	)
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := open(tx)
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().DropTable(
		&SessionParticipant{},
		&Session{},
		&SessionStatus{},
		&SessionSlot{},
		&SessionType{},
		&WorkspaceMember{},
		&User{},
		&APIKey{},
		&Workspace{},
	)
}
