package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const confirmWait = 600 * time.Millisecond

type Message struct {
	MessageID string
	TraceID   string
	Body      []byte
}

// Publisher sends messages to a topic exchange with publisher confirms and
// mandatory routing, so unroutable or nacked messages surface as errors
// instead of vanishing.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string

	confirms <-chan amqp.Confirmation
	returns  <-chan amqp.Return
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("exchange declare %q: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	return &Publisher{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 100)),
		returns:  ch.NotifyReturn(make(chan amqp.Return, 100)),
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, msg Message) error {
	p.drainStale()

	pub := amqp.Publishing{
		ContentType:   "application/json",
		Body:          msg.Body,
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now().UTC(),
		MessageId:     msg.MessageID,
		CorrelationId: msg.TraceID,
		AppId:         "stay-service",
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, true, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	// A Return (unroutable) usually arrives before the Confirm.
	deadline := time.After(confirmWait)
	for {
		select {
		case ret := <-p.returns:
			return fmt.Errorf("unroutable: code=%d text=%s rk=%s", ret.ReplyCode, ret.ReplyText, ret.RoutingKey)
		case conf := <-p.confirms:
			if !conf.Ack {
				return fmt.Errorf("nacked: delivery_tag=%d", conf.DeliveryTag)
			}
			return nil
		case <-deadline:
			return fmt.Errorf("confirm timeout after %s", confirmWait)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// drainStale discards notifications left over from earlier publishes.
func (p *Publisher) drainStale() {
	for {
		select {
		case <-p.returns:
		case <-p.confirms:
		default:
			return
		}
	}
}

func (p *Publisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
