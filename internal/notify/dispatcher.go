package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"busyatri/internal/utils"

	"github.com/google/uuid"
)

// Sender delivers one message to an external channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

var ErrQueueClosed = errors.New("notification queue closed")

// Dispatcher decouples notification delivery from the booking path: Enqueue
// never blocks and workers drain the queue in the background.
type Dispatcher struct {
	sender      Sender
	queue       chan Message
	sendTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts workers goroutines reading from a buffer-sized queue.
func NewDispatcher(sender Sender, workers, buffer int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	d := &Dispatcher{
		sender:      sender,
		queue:       make(chan Message, buffer),
		sendTimeout: 10 * time.Second,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Enqueue stamps msg with a reference id and queues it. A full or closed
// queue drops the message; the returned error is informational only.
func (d *Dispatcher) Enqueue(msg Message) (string, error) {
	if msg.Ref == "" {
		msg.Ref = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = utils.NowUTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return "", ErrQueueClosed
	}
	select {
	case d.queue <- msg:
		return msg.Ref, nil
	default:
		utils.Event(msg.RequestID, "notify", "enqueue").
			Warnf("queue full, dropping %s for booking %s", msg.Kind, msg.BookingID)
		return "", errors.New("notification queue full")
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	defer func() {
		if r := recover(); r != nil {
			utils.Event(msg.RequestID, "notify", "send").Errorf("sender panic for %s: %v", msg.Ref, r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()
	if err := d.sender.Send(ctx, msg); err != nil {
		utils.Event(msg.RequestID, "notify", "send").WithError(err).
			Warnf("delivery failed for %s (booking %s)", msg.Ref, msg.BookingID)
		return
	}
	utils.LogEvent(msg.RequestID, "notify", "send", "delivered "+msg.Kind+" ref="+msg.Ref)
}

// Close stops accepting messages and waits for queued ones to drain or for
// ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
