package api

import (
	"strconv"
	"time"

	"orbitd/internal/models"
	"orbitd/internal/session"
)

// Wire shapes. Member and game identifiers serialize as decimal strings:
// they live in an id space that overflows double-precision consumers.

type userView struct {
	UserID    string  `json:"userId"`
	Username  string  `json:"username"`
	Thumbnail *string `json:"thumbnail"`
}

type participantView struct {
	UserID    string  `json:"userId"`
	Username  string  `json:"username"`
	Thumbnail *string `json:"thumbnail"`
	Slot      int     `json:"slot"`
	Role      string  `json:"role"`
}

type slotView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

type typeView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	GameID      *string    `json:"gameId"`
	Slots       []slotView `json:"slots"`
}

type sessionView struct {
	ID           string            `json:"id"`
	Name         *string           `json:"name,omitempty"`
	Date         time.Time         `json:"date"`
	StartedAt    *time.Time        `json:"startedAt"`
	Ended        bool              `json:"ended"`
	IsOpen       bool              `json:"isOpen"`
	JobID        *string           `json:"jobId,omitempty"`
	Duration     *int              `json:"duration,omitempty"`
	Type         typeView          `json:"type"`
	Host         *userView         `json:"host"`
	Participants []participantView `json:"participants"`
	Status       string            `json:"status"`
}

// jobIDView is the slim session shape returned by update-job-id. No status:
// that operation leaves resolution untouched.
type jobIDView struct {
	ID        string     `json:"id"`
	Date      time.Time  `json:"date"`
	StartedAt *time.Time `json:"startedAt"`
	Ended     bool       `json:"ended"`
	JobID     *string    `json:"jobId"`
	Duration  *int       `json:"duration,omitempty"`
	OwnerID   *string    `json:"ownerId"`
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

func formatIDPtr(id *int64) *string {
	if id == nil {
		return nil
	}
	s := formatID(*id)
	return &s
}

func typeViewOf(sess *models.Session) typeView {
	t := sess.SessionType
	category := sess.Category
	if category == "" {
		category = t.Category
	}

	slots := make([]slotView, 0, len(t.Slots))
	for _, s := range t.Slots {
		slots = append(slots, slotView{ID: s.ID.String(), Name: s.Name, Capacity: s.Capacity})
	}

	return typeView{
		ID:          t.ID.String(),
		Name:        t.Name,
		Description: t.Description,
		Category:    category,
		GameID:      formatIDPtr(t.GameID),
		Slots:       slots,
	}
}

func sessionViewOf(res *session.Resolved) sessionView {
	sess := res.Session

	var host *userView
	if sess.Owner != nil {
		host = &userView{
			UserID:    formatID(sess.Owner.UserID),
			Username:  sess.Owner.Username,
			Thumbnail: sess.Owner.Picture,
		}
	}

	participants := make([]participantView, 0, len(sess.Participants))
	for _, p := range sess.Participants {
		participants = append(participants, participantView{
			UserID:    formatID(p.UserID),
			Username:  p.User.Username,
			Thumbnail: p.User.Picture,
			Slot:      p.Slot,
			Role:      p.RoleID,
		})
	}

	return sessionView{
		ID:           sess.ID.String(),
		Name:         sess.Name,
		Date:         sess.Date,
		StartedAt:    sess.StartedAt,
		Ended:        sess.Ended,
		IsOpen:       sess.IsOpen,
		JobID:        sess.JobID,
		Duration:     sess.Duration,
		Type:         typeViewOf(sess),
		Host:         host,
		Participants: participants,
		Status:       res.Status,
	}
}

func jobIDViewOf(sess *models.Session) jobIDView {
	return jobIDView{
		ID:        sess.ID.String(),
		Date:      sess.Date,
		StartedAt: sess.StartedAt,
		Ended:     sess.Ended,
		JobID:     sess.JobID,
		Duration:  sess.Duration,
		OwnerID:   formatIDPtr(sess.OwnerID),
	}
}
