// Package notify delivers booking events to holders through pluggable sinks.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/saurabh97858/myshow-sub000/internal/domain"
)

const DefaultQueue = "booking.events"

type message struct {
	HolderID string `json:"holderId"`
	domain.Event
}

// AMQPNotifier publishes events to a durable queue on the default exchange.
// The connection is opened on first use and reopened after a failed publish.
type AMQPNotifier struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPNotifier(url, queue string) *AMQPNotifier {
	if queue == "" {
		queue = DefaultQueue
	}

	return &AMQPNotifier{
		url:   url,
		queue: queue,
	}
}

func (n *AMQPNotifier) Notify(ctx context.Context, holderID string, event domain.Event) error {
	pub, err := newPublishing(holderID, event)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	ch, err := n.channel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, "", n.queue, false, false, pub)
	if err != nil {
		n.reset()
		return fmt.Errorf("amqp: publish %s: %w", event.Type, err)
	}

	return nil
}

func newPublishing(holderID string, event domain.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(message{HolderID: holderID, Event: event})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("amqp: marshal event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         string(event.Type),
		Timestamp:    time.Now().UTC(),
		Headers:      amqp.Table{"holder_id": holderID},
		Body:         body,
	}, nil
}

// channel must be called with n.mu held.
func (n *AMQPNotifier) channel() (*amqp.Channel, error) {
	if n.ch != nil && !n.ch.IsClosed() {
		return n.ch, nil
	}

	if n.conn == nil || n.conn.IsClosed() {
		conn, err := amqp.Dial(n.url)
		if err != nil {
			return nil, fmt.Errorf("amqp: dial: %w", err)
		}
		n.conn = conn
	}

	ch, err := n.conn.Channel()
	if err != nil {
		n.reset()
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}

	_, err = ch.QueueDeclare(n.queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		n.reset()
		return nil, fmt.Errorf("amqp: declare queue %s: %w", n.queue, err)
	}

	n.ch = ch

	return ch, nil
}

// reset must be called with n.mu held.
func (n *AMQPNotifier) reset() {
	if n.ch != nil {
		_ = n.ch.Close()
		n.ch = nil
	}

	if n.conn != nil {
		_ = n.conn.Close()
		n.conn = nil
	}
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.reset()

	return nil
}
