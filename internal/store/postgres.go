package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"orbitd/internal/models"
)

const queryTimeout = 5 * time.Second

var _ Store = (*Postgres)(nil)

// Postgres implements Store on PostgreSQL. Aggregate CRUD goes through GORM;
// the calendar listing path uses pgx directly for its flat range scans.
type Postgres struct {
	orm  *gorm.DB
	pool *pgxpool.Pool
}

// NewPostgres wires a Postgres store from an open GORM handle and pgx pool.
func NewPostgres(orm *gorm.DB, pool *pgxpool.Pool) (*Postgres, error) {
	if orm == nil {
		return nil, errors.New("store: gorm handle is required")
	}
	if pool == nil {
		return nil, errors.New("store: pgx pool is required")
	}
	return &Postgres{orm: orm, pool: pool}, nil
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

func (p *Postgres) GetSession(ctx context.Context, workspaceID int64, sessionID uuid.UUID) (*models.Session, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var sess models.Session
	err := p.orm.WithContext(ctx).
		Joins("JOIN session_types ON session_types.id = sessions.session_type_id").
		Where("sessions.id = ? AND session_types.workspace_id = ?", sessionID, workspaceID).
		Preload("SessionType").
		Preload("SessionType.Slots", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("SessionType.Statuses", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Owner").
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("slot ASC") }).
		Preload("Participants.User").
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

func (p *Postgres) UpdateSession(ctx context.Context, sessionID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res := p.orm.WithContext(ctx).Model(&models.Session{}).Where("id = ?", sessionID).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return p.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.SessionParticipant{}).Error; err != nil {
			return fmt.Errorf("delete participants: %w", err)
		}
		res := tx.Where("id = ?", sessionID).Delete(&models.Session{})
		if res.Error != nil {
			return fmt.Errorf("delete session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (p *Postgres) ReplaceParticipants(ctx context.Context, sessionID uuid.UUID, rows []models.SessionParticipant) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return p.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.SessionParticipant{}).Error; err != nil {
			return fmt.Errorf("clear participants: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert participants: %w", err)
		}
		return nil
	})
}

func (p *Postgres) SetJobID(ctx context.Context, workspaceID int64, sessionID uuid.UUID, jobID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res := p.orm.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND session_type_id IN (?)",
			sessionID,
			p.orm.Model(&models.SessionType{}).Select("id").Where("workspace_id = ?", workspaceID),
		).
		Update("job_id", jobID)
	if res.Error != nil {
		return fmt.Errorf("set job id: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) IsMember(ctx context.Context, workspaceID, userID int64) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var count int64
	err := p.orm.WithContext(ctx).Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("membership lookup: %w", err)
	}
	return count > 0, nil
}

// HashToken returns the stored digest form of an API key token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (p *Postgres) ValidateKey(ctx context.Context, token string, workspaceID int64) (*models.APIKey, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var key models.APIKey
	err := p.orm.WithContext(ctx).
		Where("token_digest = ? AND workspace_id = ?", HashToken(token), workspaceID).
		First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("validate key: %w", err)
	}

	now := time.Now().UTC()
	_ = p.orm.WithContext(ctx).Model(&key).Update("last_used_at", now).Error
	return &key, nil
}

func (p *Postgres) ClearSessions(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var removed int64
	err := p.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.SessionParticipant{}).Error; err != nil {
			return err
		}
		res := tx.Where("1 = 1").Delete(&models.Session{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clear sessions: %w", err)
	}
	return removed, nil
}

// Row shapes for the pgx listing path.

type sessionRow struct {
	ID            uuid.UUID  `db:"id"`
	SessionTypeID uuid.UUID  `db:"session_type_id"`
	Name          *string    `db:"name"`
	Date          time.Time  `db:"date"`
	StartedAt     *time.Time `db:"started_at"`
	Ended         bool       `db:"ended"`
	IsOpen        bool       `db:"is_open"`
	JobID         *string    `db:"job_id"`
	Duration      *int       `db:"duration"`
	OwnerID       *int64     `db:"owner_id"`
	Category      string     `db:"category"`
}

type typeRow struct {
	ID          uuid.UUID `db:"id"`
	WorkspaceID int64     `db:"workspace_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	GameID      *int64    `db:"game_id"`
	Category    string    `db:"category"`
}

type statusRow struct {
	ID                uuid.UUID `db:"id"`
	SessionTypeID     uuid.UUID `db:"session_type_id"`
	Name              string    `db:"name"`
	MinutesAfterStart int       `db:"minutes_after_start"`
	ColorTag          string    `db:"color_tag"`
	Position          int       `db:"position"`
}

type slotRow struct {
	ID            uuid.UUID `db:"id"`
	SessionTypeID uuid.UUID `db:"session_type_id"`
	Name          string    `db:"name"`
	Capacity      int       `db:"capacity"`
	Position      int       `db:"position"`
}

type participantRow struct {
	SessionID uuid.UUID `db:"session_id"`
	UserID    int64     `db:"user_id"`
	RoleID    string    `db:"role_id"`
	Slot      int       `db:"slot"`
	Username  string    `db:"username"`
	Picture   *string   `db:"picture"`
}

type userRow struct {
	UserID   int64   `db:"user_id"`
	Username string  `db:"username"`
	Picture  *string `db:"picture"`
}

// ListSessions runs the read-optimized calendar path: one flat range scan
// plus batched association fetches, assembled in memory.
func (p *Postgres) ListSessions(ctx context.Context, q RangeQuery) ([]models.Session, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
        SELECT s.id, s.session_type_id, s.name, s.date, s.started_at, s.ended,
               s.is_open, s.job_id, s.duration, s.owner_id, s.category
        FROM sessions s
        JOIN session_types st ON st.id = s.session_type_id
        WHERE st.workspace_id = $1 AND s.date >= $2 AND s.date <= $3`
	args := []any{q.WorkspaceID, q.Start, q.End}

	if q.Category != "" {
		args = append(args, q.Category)
		query += fmt.Sprintf(" AND s.category = $%d", len(args))
	}
	if q.HostID != nil {
		args = append(args, *q.HostID)
		query += fmt.Sprintf(" AND s.owner_id = $%d", len(args))
	}
	query += " ORDER BY s.date ASC"

	var rows []sessionRow
	if err := pgxscan.Select(ctx, p.pool, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(rows) == 0 {
		return []models.Session{}, nil
	}

	typeIDs := make([]string, 0, len(rows))
	seenTypes := make(map[uuid.UUID]struct{}, len(rows))
	sessionIDs := make([]string, 0, len(rows))
	ownerIDs := make([]int64, 0, len(rows))
	seenOwners := make(map[int64]struct{}, len(rows))
	for _, r := range rows {
		sessionIDs = append(sessionIDs, r.ID.String())
		if _, ok := seenTypes[r.SessionTypeID]; !ok {
			seenTypes[r.SessionTypeID] = struct{}{}
			typeIDs = append(typeIDs, r.SessionTypeID.String())
		}
		if r.OwnerID != nil {
			if _, ok := seenOwners[*r.OwnerID]; !ok {
				seenOwners[*r.OwnerID] = struct{}{}
				ownerIDs = append(ownerIDs, *r.OwnerID)
			}
		}
	}

	var typeRows []typeRow
	if err := pgxscan.Select(ctx, p.pool, &typeRows, `
        SELECT id, workspace_id, name, description, game_id, category
        FROM session_types WHERE id = ANY($1::uuid[])`, typeIDs); err != nil {
		return nil, fmt.Errorf("list session types: %w", err)
	}

	var statusRows []statusRow
	if err := pgxscan.Select(ctx, p.pool, &statusRows, `
        SELECT id, session_type_id, name, minutes_after_start, color_tag, position
        FROM session_statuses WHERE session_type_id = ANY($1::uuid[])
        ORDER BY position ASC`, typeIDs); err != nil {
		return nil, fmt.Errorf("list status catalog: %w", err)
	}

	var slotRows []slotRow
	if err := pgxscan.Select(ctx, p.pool, &slotRows, `
        SELECT id, session_type_id, name, capacity, position
        FROM session_slots WHERE session_type_id = ANY($1::uuid[])
        ORDER BY position ASC`, typeIDs); err != nil {
		return nil, fmt.Errorf("list slot templates: %w", err)
	}

	var partRows []participantRow
	if err := pgxscan.Select(ctx, p.pool, &partRows, `
        SELECT p.session_id, p.user_id, p.role_id, p.slot, u.username, u.picture
        FROM session_participants p
        JOIN users u ON u.user_id = p.user_id
        WHERE p.session_id = ANY($1::uuid[])
        ORDER BY p.slot ASC`, sessionIDs); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	owners := make(map[int64]models.User, len(ownerIDs))
	if len(ownerIDs) > 0 {
		var userRows []userRow
		if err := pgxscan.Select(ctx, p.pool, &userRows, `
            SELECT user_id, username, picture FROM users WHERE user_id = ANY($1)`, ownerIDs); err != nil {
			return nil, fmt.Errorf("list hosts: %w", err)
		}
		for _, u := range userRows {
			owners[u.UserID] = models.User{UserID: u.UserID, Username: u.Username, Picture: u.Picture}
		}
	}

	types := make(map[uuid.UUID]models.SessionType, len(typeRows))
	for _, t := range typeRows {
		types[t.ID] = models.SessionType{
			ID:          t.ID,
			WorkspaceID: t.WorkspaceID,
			Name:        t.Name,
			Description: t.Description,
			GameID:      t.GameID,
			Category:    t.Category,
		}
	}
	for _, s := range statusRows {
		t := types[s.SessionTypeID]
		t.Statuses = append(t.Statuses, models.SessionStatus{
			ID:                s.ID,
			SessionTypeID:     s.SessionTypeID,
			Name:              s.Name,
			MinutesAfterStart: s.MinutesAfterStart,
			ColorTag:          s.ColorTag,
			Position:          s.Position,
		})
		types[s.SessionTypeID] = t
	}
	for _, s := range slotRows {
		t := types[s.SessionTypeID]
		t.Slots = append(t.Slots, models.SessionSlot{
			ID:            s.ID,
			SessionTypeID: s.SessionTypeID,
			Name:          s.Name,
			Capacity:      s.Capacity,
			Position:      s.Position,
		})
		types[s.SessionTypeID] = t
	}

	participants := make(map[uuid.UUID][]models.SessionParticipant, len(rows))
	for _, pr := range partRows {
		participants[pr.SessionID] = append(participants[pr.SessionID], models.SessionParticipant{
			SessionID: pr.SessionID,
			UserID:    pr.UserID,
			RoleID:    pr.RoleID,
			Slot:      pr.Slot,
			User:      models.User{UserID: pr.UserID, Username: pr.Username, Picture: pr.Picture},
		})
	}

	sessions := make([]models.Session, 0, len(rows))
	for _, r := range rows {
		sess := models.Session{
			ID:            r.ID,
			SessionTypeID: r.SessionTypeID,
			Name:          r.Name,
			Date:          r.Date,
			StartedAt:     r.StartedAt,
			Ended:         r.Ended,
			IsOpen:        r.IsOpen,
			JobID:         r.JobID,
			Duration:      r.Duration,
			OwnerID:       r.OwnerID,
			Category:      r.Category,
			SessionType:   types[r.SessionTypeID],
			Participants:  participants[r.ID],
		}
		if r.OwnerID != nil {
			if owner, ok := owners[*r.OwnerID]; ok {
				sess.Owner = &owner
			}
		}
		sessions = append(sessions, sess)
	}

	return sessions, nil
}
