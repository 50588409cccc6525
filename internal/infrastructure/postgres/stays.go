package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hearthshare/stay-service/internal/contracts/event"
	"github.com/hearthshare/stay-service/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StayRepository persists reservations keyed on the integer YYYYMMDD date.
// No uniqueness constraint exists on (stay_date, user_id): duplicate creation
// is permitted and reads return the oldest row first.
type StayRepository struct {
	pool *pgxpool.Pool
}

func NewStayRepository(pool *pgxpool.Pool) *StayRepository {
	return &StayRepository{pool: pool}
}

// CreateStay writes the reservation and a stay.created outbox row in one
// transaction. The outbox worker publishes the row later.
func (r *StayRepository) CreateStay(ctx context.Context, traceID string, date domain.Date, stay domain.NewStay) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO stays (stay_date, user_id, host_id, is_host, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`, int(date.Int()), stay.UserID, stay.HostID, stay.IsHost)
	if err != nil {
		return err
	}

	messageID := uuid.New()
	payload, err := json.Marshal(event.Envelope[event.StayCreatedPayload]{
		Version:    1,
		Producer:   "stay-service",
		TraceID:    traceID,
		MessageID:  messageID.String(),
		OccurredAt: time.Now().UTC(),
		Payload: event.StayCreatedPayload{
			StayDate: int(date.Int()),
			UserID:   stay.UserID,
			HostID:   stay.HostID,
			IsHost:   stay.IsHost,
		},
	})
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (message_id, trace_id, routing_key, payload, occurred_at, status)
		VALUES ($1, $2, 'stay.created', $3, NOW(), 'pending')
	`, messageID, traceID, payload)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetStays looks up stays by date and/or user. A full date is an exact key
// match; year or year+month become half-open ranges over the date key.
func (r *StayRepository) GetStays(ctx context.Context, q domain.StayQuery) ([]domain.Stay, error) {
	where, args, err := buildStayFilter(q)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT stay_date, user_id, host_id, is_host, created_at, updated_at
		FROM stays
		`+where+`
		ORDER BY stay_date ASC, id ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Stay
	for rows.Next() {
		var s domain.Stay
		var dateKey int
		if err := rows.Scan(&dateKey, &s.UserID, &s.HostID, &s.IsHost, &s.DateCreated, &s.DateUpdated); err != nil {
			return nil, err
		}
		s.StayDate = domain.DateInt(dateKey)
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountHostGuestNights counts a host's sponsored guest-nights strictly before
// the given date. The night being ranked never counts toward itself.
func (r *StayRepository) CountHostGuestNights(ctx context.Context, hostID string, before domain.Date) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM stays
		WHERE host_id = $1 AND stay_date < $2
	`, hostID, int(before.Int())).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func buildStayFilter(q domain.StayQuery) (string, []any, error) {
	var conds []string
	var args []any

	if q.UserID != "" {
		args = append(args, q.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}

	switch {
	case q.Y != 0 && q.M != 0 && q.D != 0:
		args = append(args, int(domain.Date{Y: q.Y, M: q.M, D: q.D}.Int()))
		conds = append(conds, fmt.Sprintf("stay_date = $%d", len(args)))
	case q.Y != 0 && q.M != 0:
		start := q.Y*10000 + q.M*100
		endY, endM := q.Y, q.M+1
		if endM > 12 {
			endY, endM = q.Y+1, 1
		}
		args = append(args, start)
		conds = append(conds, fmt.Sprintf("stay_date >= $%d", len(args)))
		args = append(args, endY*10000+endM*100)
		conds = append(conds, fmt.Sprintf("stay_date < $%d", len(args)))
	case q.Y != 0:
		args = append(args, q.Y*10000)
		conds = append(conds, fmt.Sprintf("stay_date >= $%d", len(args)))
		args = append(args, (q.Y+1)*10000)
		conds = append(conds, fmt.Sprintf("stay_date < $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil, errors.New("stay query needs a date or user filter")
	}

	where := "WHERE " + conds[0]
	for _, c := range conds[1:] {
		where += " AND " + c
	}
	return where, args, nil
}
