package publishers

import (
	"context"
	"errors"
	"testing"

	"github.com/pulsefeed-hq/pulse-news-radar/internal/domain"
)

// fakePublisher records events and optionally fails.
type fakePublisher struct {
	id     string
	err    error
	events []Event
}

func (f *fakePublisher) ID() string   { return f.id }
func (f *fakePublisher) Type() string { return "fake" }

func (f *fakePublisher) Publish(_ context.Context, evt Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, evt)
	return nil
}

func TestFanoutDeliversToAllPublishers(t *testing.T) {
	a := &fakePublisher{id: "a"}
	b := &fakePublisher{id: "b"}
	fanout := NewFanout([]Publisher{a, b, nil})

	if fanout.Size() != 2 {
		t.Fatalf("expected nil publishers filtered, size=%d", fanout.Size())
	}

	evt := NewEvent("iran", domain.Item{URL: "https://example.com/a"})
	delivered, err := fanout.Publish(context.Background(), evt)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if delivered != 2 {
		t.Fatalf("expected 2 deliveries, got %d", delivered)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected event on both publishers")
	}
	if a.events[0].TopicID != "iran" {
		t.Fatalf("unexpected topic id %q", a.events[0].TopicID)
	}
}

func TestFanoutAggregatesFailures(t *testing.T) {
	boom := errors.New("boom")
	a := &fakePublisher{id: "a", err: boom}
	b := &fakePublisher{id: "b"}
	fanout := NewFanout([]Publisher{a, b})

	delivered, err := fanout.Publish(context.Background(), NewEvent("t", domain.Item{}))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}
	if delivered != 1 {
		t.Fatalf("expected partial delivery count 1, got %d", delivered)
	}
	if len(b.events) != 1 {
		t.Fatalf("healthy publisher must still receive the event")
	}
}

func TestFanoutEmpty(t *testing.T) {
	fanout := NewFanout(nil)
	delivered, err := fanout.Publish(context.Background(), NewEvent("t", domain.Item{}))
	if err != nil || delivered != 0 {
		t.Fatalf("empty fanout must be a no-op, delivered=%d err=%v", delivered, err)
	}
}
