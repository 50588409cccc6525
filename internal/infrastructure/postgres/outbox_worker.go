package postgres

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/hearthshare/stay-service/internal/infrastructure/rabbitmq"
	"github.com/hearthshare/stay-service/internal/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	outboxBatchSize   = 20
	outboxMaxAttempts = 12
	outboxPollEvery   = 500 * time.Millisecond
	// Claimed rows get their next_retry_at pushed this far ahead so a second
	// worker will not re-claim them while the publish is in flight.
	outboxClaimLease = 15 * time.Second
)

type outboxMessage struct {
	ID         int64
	MessageID  uuid.UUID
	TraceID    string
	RoutingKey string
	Payload    []byte
	Attempt    int
}

// OutboxWorker drains pending outbox rows into the message broker. Rows that
// keep failing are moved to dead after a bounded number of attempts.
type OutboxWorker struct {
	pool *pgxpool.Pool
	pub  *rabbitmq.Publisher
}

func NewOutboxWorker(pool *pgxpool.Pool, pub *rabbitmq.Publisher) *OutboxWorker {
	return &OutboxWorker{pool: pool, pub: pub}
}

func (w *OutboxWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *OutboxWorker) run(ctx context.Context) {
	log := logger.Logger.With().Str("component", "outbox_worker").Logger()

	ticker := time.NewTicker(outboxPollEvery)
	defer ticker.Stop()

	var lastErr string
	var lastAt time.Time

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopped")
			return
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				// Log repeated failures at most once per window.
				if err.Error() != lastErr || time.Since(lastAt) > 10*time.Second {
					log.Warn().Err(err).Msg("outbox batch failed")
					lastErr = err.Error()
					lastAt = time.Now()
				}
			} else {
				lastErr = ""
			}
		}
	}
}

func (w *OutboxWorker) processBatch(ctx context.Context) error {
	messages, err := w.claimBatch(ctx)
	if err != nil || len(messages) == 0 {
		return err
	}

	log := logger.Logger.With().Str("component", "outbox_worker").Logger()

	for _, m := range messages {
		err := w.pub.Publish(ctx, m.RoutingKey, rabbitmq.Message{
			MessageID: m.MessageID.String(),
			TraceID:   m.TraceID,
			Body:      m.Payload,
		})
		if err != nil {
			w.fail(ctx, m, err.Error())
			continue
		}

		_, _ = w.pool.Exec(ctx, `
			UPDATE outbox SET status = 'sent', last_error = NULL WHERE id = $1
		`, m.ID)

		log.Info().
			Str("message_id", m.MessageID.String()).
			Str("routing_key", m.RoutingKey).
			Msg("published")
	}
	return nil
}

// claimBatch locks a batch of due rows and leases them by pushing
// next_retry_at forward, keeping the transaction short: the actual network
// publish happens after commit.
func (w *OutboxWorker) claimBatch(ctx context.Context) ([]outboxMessage, error) {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, message_id, trace_id, routing_key, payload, attempt
		FROM outbox
		WHERE status = 'pending' AND next_retry_at <= NOW()
		ORDER BY next_retry_at ASC, occurred_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, outboxBatchSize)
	if err != nil {
		return nil, err
	}

	var messages []outboxMessage
	for rows.Next() {
		var m outboxMessage
		if err := rows.Scan(&m.ID, &m.MessageID, &m.TraceID, &m.RoutingKey, &m.Payload, &m.Attempt); err != nil {
			rows.Close()
			return nil, err
		}
		messages = append(messages, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lease := time.Now().Add(outboxClaimLease)
	for _, m := range messages {
		_, _ = tx.Exec(ctx, `UPDATE outbox SET next_retry_at = $2 WHERE id = $1`, m.ID, lease)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return messages, nil
}

func (w *OutboxWorker) fail(ctx context.Context, m outboxMessage, errMsg string) {
	log := logger.Logger.With().Str("component", "outbox_worker").Logger()

	attempt := m.Attempt + 1
	if attempt >= outboxMaxAttempts {
		_, _ = w.pool.Exec(ctx, `
			UPDATE outbox SET status = 'dead', attempt = $2, last_error = $3 WHERE id = $1
		`, m.ID, attempt, errMsg)

		log.Error().
			Str("message_id", m.MessageID.String()).
			Str("routing_key", m.RoutingKey).
			Int("attempt", attempt).
			Msg("outbox moved to DEAD")
		return
	}

	delay := retryBackoff(attempt)
	_, _ = w.pool.Exec(ctx, `
		UPDATE outbox
		SET attempt = $2, next_retry_at = NOW() + $3::interval, last_error = $4
		WHERE id = $1
	`, m.ID, attempt, fmt.Sprintf("%f seconds", delay.Seconds()), errMsg)

	log.Warn().
		Str("message_id", m.MessageID.String()).
		Str("routing_key", m.RoutingKey).
		Int("attempt", attempt).
		Dur("retry_in", delay).
		Msg("outbox publish failed, scheduled retry")
}

// retryBackoff: exponential with jitter, bounded between 5s and 30m.
func retryBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	sec := math.Pow(2, float64(attempt))
	if sec < 5 {
		sec = 5
	}
	if sec > 1800 {
		sec = 1800
	}
	d := time.Duration(sec) * time.Second

	// jitter +/-10%
	j := time.Duration(rand.Int63n(int64(d/5))) - d/10
	return d + j
}
