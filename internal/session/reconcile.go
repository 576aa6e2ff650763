package session

import (
	"context"

	"github.com/rs/zerolog"

	"orbitd/internal/models"
	"orbitd/internal/store"
)

// ParticipantInput is one desired participant as submitted by a caller.
// Fields are pointers so a missing field is distinguishable from a zero.
type ParticipantInput struct {
	UserID *int64
	RoleID *string
	Slot   *int
}

// Reconciler replaces a session's participant set with the validated subset
// of a caller-submitted desired list.
//
// It applies the best-effort policy: malformed entries, non-members, out of
// range slots, and duplicate members are dropped, never errors. Callers that
// submit partially-edited forms still get every valid row applied. This is
// deliberately looser than the strict host policy in Service.Update.
type Reconciler struct {
	store store.Store
	log   zerolog.Logger
}

// NewReconciler builds a Reconciler over the given store.
func NewReconciler(st store.Store, log zerolog.Logger) *Reconciler {
	return &Reconciler{store: st, log: log}
}

// Reconcile validates desired and swaps the session's participant rows for
// the result in one store transaction. The returned rows are exactly what was
// written. An empty desired list clears the set; that is a real replace, not
// a no-op. Only store failures are returned.
func (r *Reconciler) Reconcile(ctx context.Context, sess *models.Session, workspaceID int64, desired []ParticipantInput) ([]models.SessionParticipant, error) {
	slotCount := len(sess.SessionType.Slots)
	kept := make([]models.SessionParticipant, 0, len(desired))
	seen := make(map[int64]struct{}, len(desired))

	for _, cand := range desired {
		if cand.UserID == nil || *cand.UserID == 0 || cand.RoleID == nil || *cand.RoleID == "" || cand.Slot == nil {
			continue
		}
		if *cand.Slot < 0 {
			continue
		}
		// Slot indexes are only bounded when the type declares templates.
		if slotCount > 0 && *cand.Slot >= slotCount {
			continue
		}
		if _, dup := seen[*cand.UserID]; dup {
			continue
		}

		member, err := r.store.IsMember(ctx, workspaceID, *cand.UserID)
		if err != nil {
			return nil, err
		}
		if !member {
			r.log.Debug().
				Int64("user_id", *cand.UserID).
				Int64("workspace_id", workspaceID).
				Str("session_id", sess.ID.String()).
				Msg("dropping participant: not a workspace member")
			continue
		}

		seen[*cand.UserID] = struct{}{}
		kept = append(kept, models.SessionParticipant{
			SessionID: sess.ID,
			UserID:    *cand.UserID,
			RoleID:    *cand.RoleID,
			Slot:      *cand.Slot,
		})
	}

	if err := r.store.ReplaceParticipants(ctx, sess.ID, kept); err != nil {
		return nil, err
	}
	return kept, nil
}
