package db

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"orbitd/internal/models"
	"orbitd/internal/store"
)

// Fixture is the YAML shape consumed by `orbitd seed`: one workspace with its
// keys, members, session types, and optional sample sessions.
type Fixture struct {
	Workspace struct {
		ID   int64  `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"workspace"`

	APIKeys []struct {
		Name  string `yaml:"name"`
		Token string `yaml:"token"`
	} `yaml:"api_keys"`

	Users []struct {
		UserID   int64   `yaml:"userId"`
		Username string  `yaml:"username"`
		Picture  *string `yaml:"picture"`
	} `yaml:"users"`

	Members []int64 `yaml:"members"`

	SessionTypes []FixtureSessionType `yaml:"session_types"`

	Sessions []struct {
		Type       string    `yaml:"type"`
		Name       *string   `yaml:"name"`
		Date       time.Time `yaml:"date"`
		HostUserID *int64    `yaml:"hostUserId"`
		Category   string    `yaml:"category"`
		IsOpen     bool      `yaml:"isOpen"`
	} `yaml:"sessions"`
}

// FixtureSessionType declares one template with its ordered slot and status
// lists; positions come from declaration order.
type FixtureSessionType struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	GameID      *int64 `yaml:"gameId"`

	Slots []struct {
		Name     string `yaml:"name"`
		Capacity int    `yaml:"capacity"`
	} `yaml:"slots"`

	Statuses []struct {
		Name              string `yaml:"name"`
		MinutesAfterStart int    `yaml:"minutesAfterStart"`
		ColorTag          string `yaml:"colorTag"`
	} `yaml:"statuses"`
}

// LoadFixture reads and parses a seed fixture file.
func LoadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if f.Workspace.ID == 0 {
		return nil, fmt.Errorf("fixture: workspace.id is required")
	}
	return &f, nil
}

// Seed inserts the fixture's records, skipping rows that already exist.
func Seed(ctx context.Context, database *gorm.DB, f *Fixture) error {
	tx := database.WithContext(ctx)

	ws := models.Workspace{ID: f.Workspace.ID, Name: f.Workspace.Name}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ws).Error; err != nil {
		return err
	}

	for _, k := range f.APIKeys {
		key := models.APIKey{
			ID:          uuid.New(),
			WorkspaceID: f.Workspace.ID,
			Name:        k.Name,
			TokenDigest: store.HashToken(k.Token),
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&key).Error; err != nil {
			return err
		}
	}

	for _, u := range f.Users {
		user := models.User{UserID: u.UserID, Username: u.Username, Picture: u.Picture}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error; err != nil {
			return err
		}
	}

	for _, userID := range f.Members {
		member := models.WorkspaceMember{WorkspaceID: f.Workspace.ID, UserID: userID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error; err != nil {
			return err
		}
	}

	typeIDs := make(map[string]uuid.UUID, len(f.SessionTypes))
	for _, t := range f.SessionTypes {
		var existing models.SessionType
		err := tx.Where("workspace_id = ? AND name = ?", f.Workspace.ID, t.Name).First(&existing).Error
		if err == nil {
			typeIDs[t.Name] = existing.ID
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		st := models.SessionType{
			ID:          uuid.New(),
			WorkspaceID: f.Workspace.ID,
			Name:        t.Name,
			Description: t.Description,
			Category:    t.Category,
			GameID:      t.GameID,
		}
		for i, slot := range t.Slots {
			st.Slots = append(st.Slots, models.SessionSlot{
				ID:       uuid.New(),
				Name:     slot.Name,
				Capacity: slot.Capacity,
				Position: i,
			})
		}
		for i, status := range t.Statuses {
			st.Statuses = append(st.Statuses, models.SessionStatus{
				ID:                uuid.New(),
				Name:              status.Name,
				MinutesAfterStart: status.MinutesAfterStart,
				ColorTag:          status.ColorTag,
				Position:          i,
			})
		}
		if err := tx.Create(&st).Error; err != nil {
			return err
		}
		typeIDs[t.Name] = st.ID
	}

	for _, s := range f.Sessions {
		typeID, ok := typeIDs[s.Type]
		if !ok {
			return fmt.Errorf("fixture: session references unknown type %q", s.Type)
		}
		sess := models.Session{
			ID:            uuid.New(),
			SessionTypeID: typeID,
			Name:          s.Name,
			Date:          s.Date.UTC(),
			OwnerID:       s.HostUserID,
			Category:      s.Category,
			IsOpen:        s.IsOpen,
		}
		if err := tx.Create(&sess).Error; err != nil {
			return err
		}
	}

	return nil
}
