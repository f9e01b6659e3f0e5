package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestDispatcherDeliversQueuedMessages(t *testing.T) {
	rec := &recordingSender{}
	d := NewDispatcher(rec, 2, 8)

	ref, err := d.Enqueue(Message{Kind: KindBookingConfirmed, BookingID: "b-1", Seats: "S1, S2"})
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if ref == "" {
		t.Fatalf("expected a reference id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected 1 delivered message, got %d", rec.count())
	}
	if rec.msgs[0].Ref != ref {
		t.Fatalf("delivered ref %q, want %q", rec.msgs[0].Ref, ref)
	}
}

func TestDispatcherSenderFailureIsSwallowed(t *testing.T) {
	rec := &recordingSender{err: errors.New("smtp down")}
	d := NewDispatcher(rec, 1, 1)
	if _, err := d.Enqueue(Message{Kind: KindBookingConfirmed, BookingID: "b-2"}); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("sender should still have been called once")
	}
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, 1, 1)
	_ = d.Close(context.Background())
	if _, err := d.Enqueue(Message{BookingID: "b-3"}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sender := SenderFunc(func(ctx context.Context, msg Message) error {
		<-block
		return nil
	})
	d := NewDispatcher(sender, 1, 0)
	defer func() {
		close(block)
		_ = d.Close(context.Background())
	}()

	// Unbuffered queue: the first message is accepted only once the worker
	// is ready, the second has nowhere to go while the worker is blocked.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := d.Enqueue(Message{BookingID: "first"}); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("worker never picked up the first message")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := d.Enqueue(Message{BookingID: "second"}); err == nil {
		t.Fatalf("expected second message to be dropped")
	}
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestKafkaSenderPublishesJSONKeyedByBooking(t *testing.T) {
	w := &fakeWriter{}
	msg := Message{Ref: "r-1", Kind: KindBookingConfirmed, BookingID: "b-9", PassengerName: "Bob", Seats: "S1, S2", TotalPrice: 1000}
	if err := (KafkaSender{Writer: w}).Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "b-9" {
		t.Fatalf("unexpected kafka messages: %+v", w.msgs)
	}
	var got Message
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Seats != "S1, S2" || got.TotalPrice != 1000 {
		t.Fatalf("payload = %+v", got)
	}
}

func TestMessageText(t *testing.T) {
	msg := Message{Kind: KindBookingConfirmed, PassengerName: "Bob", Source: "Delhi", Destination: "Manali", Seats: "S1, S2", TotalPrice: 1000}
	if !strings.Contains(msg.Subject(), "Delhi to Manali") {
		t.Fatalf("subject = %q", msg.Subject())
	}
	if !strings.Contains(msg.Text(), "₹1,000") {
		t.Fatalf("text = %q", msg.Text())
	}
}
