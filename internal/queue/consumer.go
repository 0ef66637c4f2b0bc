package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Consumer drains the ledger queue and appends one line per event to an
// audit file.
type Consumer struct {
	URL     string
	Queue   string
	LogPath string
	Log     *logrus.Logger
}

func NewConsumer(url, logPath string, log *logrus.Logger) *Consumer {
	return &Consumer{URL: url, Queue: LedgerQueueName, LogPath: logPath, Log: log}
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with exponential backoff whenever the connection drops.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.WithError(err).WithField("retry_in", backoff.String()).Warn("ledger-consumer: dial failed")
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.Log.WithError(err).Warn("ledger-consumer: consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.WithError(err).Warn("ledger-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.Body); err != nil {
				c.Log.WithError(err).Warn("ledger-consumer: handle message failed")
				_ = d.Nack(false, false) // do not requeue poison messages
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(body []byte) error {
	var ev LedgerEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders an event as a single audit-log line.
func FormatLine(ev LedgerEvent) string {
	parts := []string{
		fmt.Sprintf("[%s] %s", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type),
		"event_id=" + ev.EventID,
		fmt.Sprintf("user_id=%d", ev.UserID),
	}
	if ev.AdvanceID != 0 {
		parts = append(parts, fmt.Sprintf("advance_id=%d", ev.AdvanceID))
	}
	if ev.BucketID != 0 {
		parts = append(parts, fmt.Sprintf("bucket_id=%d", ev.BucketID))
	}
	if ev.Status != "" {
		parts = append(parts, "status="+ev.Status)
	}
	if ev.Amount != nil {
		parts = append(parts, "amount="+ev.Amount.StringFixed(2))
	}
	if ev.Remaining != nil {
		parts = append(parts, fmt.Sprintf("remaining=%d", *ev.Remaining))
	}
	return strings.Join(parts, " | ") + "\n"
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
