package audit

import (
	"context"

	"github.com/hearthshare/stay-service/internal/domain"
	appctx "github.com/hearthshare/stay-service/internal/pkg/context"
	"github.com/rs/zerolog"
)

// Logger provides structured audit logging for business events
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// StayCreated logs a newly persisted reservation.
func (l *Logger) StayCreated(ctx context.Context, stay domain.Stay) {
	ev := l.log.Info().
		Str("action", "stay_created").
		Int("stay_date", int(stay.StayDate)).
		Str("user_id", stay.UserID).
		Bool("is_host", stay.IsHost).
		Str("request_id", appctx.GetRequestID(ctx))
	if stay.HostID != nil {
		ev = ev.Str("host_id", *stay.HostID)
	}
	ev.Msg("Stay created")
}

// StayRejected logs a reservation attempt turned away by a business rule.
func (l *Logger) StayRejected(ctx context.Context, requesterID string, reason string) {
	l.log.Warn().
		Str("action", "stay_rejected").
		Str("requester_id", requesterID).
		Str("reason", reason).
		Str("request_id", appctx.GetRequestID(ctx)).
		Msg("Stay rejected")
}
