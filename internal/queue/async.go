package queue

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Async hands events to a background goroutine so request handlers never
// wait on the broker.  When the buffer is full the event is dropped and
// logged.
type Async struct {
	next    Publisher
	log     *logrus.Logger
	ch      chan LedgerEvent
	timeout time.Duration
	wg      sync.WaitGroup
	once    sync.Once
}

func NewAsync(next Publisher, buffer int, log *logrus.Logger) *Async {
	a := &Async{next: next, log: log, ch: make(chan LedgerEvent, buffer), timeout: 5 * time.Second}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *Async) Publish(_ context.Context, ev LedgerEvent) error {
	select {
	case a.ch <- ev:
	default:
		a.log.WithFields(logrus.Fields{"event_id": ev.EventID, "event_type": ev.Type}).
			Warn("event buffer full, dropping event")
	}
	return nil
}

func (a *Async) loop() {
	defer a.wg.Done()
	for ev := range a.ch {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Publish(ctx, ev); err != nil {
			a.log.WithError(err).WithField("event_id", ev.EventID).Error("publish ledger event")
		}
		cancel()
	}
}

// Close stops accepting events and waits for the buffer to drain.
func (a *Async) Close() {
	a.once.Do(func() { close(a.ch) })
	a.wg.Wait()
}
