package audit

import (
	"context"

	"github.com/weiawesome/wes-io-live/notify-service/internal/domain"
	"github.com/weiawesome/wes-io-live/pkg/log"
)

// Audit actions for notify-service.
const (
	ActionNotifyJoin    = "notify.join"
	ActionBroadcastJoin = "notify.broadcast"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// LogOutcome emits a structured audit entry for a join notification.
func LogOutcome(ctx context.Context, roomID string, outcome domain.Outcome) {
	l := log.Ctx(ctx)
	evt := l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, ActionNotifyJoin).
		Str(log.FieldRoomID, roomID).
		Str(log.FieldActorKind, string(outcome.Actor.Kind)).
		Str(log.FieldOutcome, outcome.Label())

	if id := outcome.Actor.ID(); id != "" {
		evt = evt.Str(log.FieldUserID, id)
	}
	if outcome.ThreadID != "" {
		evt = evt.Str(log.FieldThreadID, outcome.ThreadID).Str(log.FieldPostID, outcome.PostID)
	}
	if outcome.Reason != "" {
		evt = evt.Str(FieldDetail, outcome.Reason)
	}
	evt.Msg("join notification handled")
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action, roomID, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldRoomID, roomID).
		Str(FieldDetail, detail).
		Msg(msg)
}
