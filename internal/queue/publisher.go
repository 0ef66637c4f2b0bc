package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher delivers ledger events.  Implementations must be safe for
// concurrent use.  Callers treat failures as non-fatal: the ledger row is
// already committed when an event is published.
type Publisher interface {
	Publish(ctx context.Context, ev LedgerEvent) error
}

// AMQPPublisher publishes events to a durable RabbitMQ queue, dialling a
// fresh connection per publish.
type AMQPPublisher struct {
	URL   string
	Queue string
	Log   *logrus.Logger
}

func NewAMQPPublisher(url string, log *logrus.Logger) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Queue: LedgerQueueName, Log: log}
}

// Publish marshals ev and sends it as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, ev LedgerEvent) error {
	log := p.Log.WithFields(logrus.Fields{"event_id": ev.EventID, "event_type": ev.Type})

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         string(ev.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}

// NopPublisher drops every event.  It is used when EVENTS_ENABLED is off.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, LedgerEvent) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []LedgerEvent
}

func (r *Recorder) Publish(_ context.Context, ev LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []LedgerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LedgerEvent(nil), r.events...)
}

// Types returns the types of the published events in order.
func (r *Recorder) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}
