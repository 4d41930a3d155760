package strategy

import (
	"sync"
	"testing"
	"time"

	"soltrader/internal/events"
)

// recordingStrategy captures every dispatched event for assertions.
type recordingStrategy struct {
	Base
	mu       sync.Mutex
	seqs     []uint64
	events   []any
	received chan struct{}
	panicOn  any
	complete bool
}

func newRecordingStrategy(topics ...events.Topic) *recordingStrategy {
	return &recordingStrategy{
		Base:     NewBase("recording", topics, nil),
		received: make(chan struct{}, 64),
	}
}

func (s *recordingStrategy) ProcessEvent(seq uint64, event any) {
	if s.panicOn != nil && event == s.panicOn {
		s.received <- struct{}{}
		panic("boom")
	}
	s.mu.Lock()
	s.seqs = append(s.seqs, seq)
	s.events = append(s.events, event)
	s.mu.Unlock()
	if s.complete {
		s.MarkComplete()
	}
	s.received <- struct{}{}
}

func (s *recordingStrategy) Status() string { return "recording" }

func (s *recordingStrategy) waitEvents(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.received:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d of %d", i+1, n)
		}
	}
}

func (s *recordingStrategy) snapshot() ([]uint64, []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seqs := append([]uint64(nil), s.seqs...)
	evs := append([]any(nil), s.events...)
	return seqs, evs
}

func TestRunnerDispatchesSubscribedTopics(t *testing.T) {
	bus := events.NewBus()
	r := NewRunner(bus, 2)
	defer r.Stop()

	s := newRecordingStrategy(events.TopicPriceTick)
	id := r.Execute(s)
	if id == "" {
		t.Fatal("Execute returned empty id")
	}
	if got := r.Get(id); got == nil {
		t.Fatal("registered strategy not found")
	}
	if s.State() != StateRunning {
		t.Fatalf("state = %v, want RUNNING", s.State())
	}

	bus.Publish(events.TopicPriceTick, events.PriceTick{TokenAddress: "tok", PriceUI: 1})
	bus.Publish(events.TopicTradeEvent, "ignored topic")
	s.waitEvents(t, 1)

	_, evs := s.snapshot()
	if len(evs) != 1 {
		t.Fatalf("dispatched %d events, want 1", len(evs))
	}
	if tick, ok := evs[0].(events.PriceTick); !ok || tick.TokenAddress != "tok" {
		t.Errorf("event = %#v, want the published tick", evs[0])
	}
}

func TestRunnerSequenceNumbersAreOrdered(t *testing.T) {
	bus := events.NewBus()
	r := NewRunner(bus, 4)
	defer r.Stop()

	s := newRecordingStrategy(events.TopicPriceTick)
	r.Execute(s)

	const n = 20
	for i := 0; i < n; i++ {
		bus.Publish(events.TopicPriceTick, events.PriceTick{TokenAddress: "tok", PriceUI: float64(i)})
	}
	s.waitEvents(t, n)

	seqs, _ := s.snapshot()
	seen := make(map[uint64]bool, n)
	var max uint64
	for _, seq := range seqs {
		if seen[seq] {
			t.Fatalf("sequence %d dispatched twice", seq)
		}
		seen[seq] = true
		if seq > max {
			max = seq
		}
	}
	if len(seen) != n || max != n-1 {
		t.Errorf("sequences cover %d values up to %d, want %d up to %d", len(seen), max, n, n-1)
	}
}

func TestRunnerToggleSuspendsAndResumes(t *testing.T) {
	bus := events.NewBus()
	r := NewRunner(bus, 2)
	defer r.Stop()

	s := newRecordingStrategy(events.TopicPriceTick)
	id := r.Execute(s)

	r.Toggle(id)
	if s.State() != StateOff {
		t.Fatalf("state after toggle = %v, want OFF", s.State())
	}
	bus.Publish(events.TopicPriceTick, events.PriceTick{TokenAddress: "tok"})
	select {
	case <-s.received:
		t.Fatal("paused strategy received an event")
	case <-time.After(100 * time.Millisecond):
	}

	r.Toggle(id)
	if s.State() != StateRunning {
		t.Fatalf("state after second toggle = %v, want RUNNING", s.State())
	}
	bus.Publish(events.TopicPriceTick, events.PriceTick{TokenAddress: "tok"})
	s.waitEvents(t, 1)

	if got := r.Get(id); got == nil {
		t.Error("toggling deregistered the strategy")
	}
}

func TestRunnerCompleteUnsubscribesButStaysRegistered(t *testing.T) {
	bus := events.NewBus()
	r := NewRunner(bus, 2)
	defer r.Stop()

	s := newRecordingStrategy(events.TopicPriceTick)
	s.complete = true
	id := r.Execute(s)

	bus.Publish(events.TopicPriceTick, events.PriceTick{TokenAddress: "tok"})
	s.waitEvents(t, 1)

	deadline := time.Now().Add(2 * time.Second)
	for s.State() != StateComplete && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.State() != StateComplete {
		t.Fatalf("state = %v, want COMPLETE", s.State())
	}

	// Toggling a complete strategy must not revive it.
	r.Toggle(id)
	if s.State() != StateComplete {
		t.Fatalf("state after toggle = %v, COMPLETE is terminal", s.State())
	}
	if r.Get(id) == nil {
		t.Error("completed strategy dropped from registry")
	}
}

func TestRunnerContainsHandlerPanics(t *testing.T) {
	bus := events.NewBus()
	r := NewRunner(bus, 2)
	defer r.Stop()

	s := newRecordingStrategy(events.TopicPriceTick)
	s.panicOn = "bad"
	r.Execute(s)

	bus.Publish(events.TopicPriceTick, "bad")
	s.waitEvents(t, 1)
	bus.Publish(events.TopicPriceTick, "good")
	s.waitEvents(t, 1)

	_, evs := s.snapshot()
	if len(evs) != 1 || evs[0] != "good" {
		t.Errorf("events after panic = %#v, want just the good one", evs)
	}
}

func TestRunnerDelete(t *testing.T) {
	bus := events.NewBus()
	r := NewRunner(bus, 2)
	defer r.Stop()

	s := newRecordingStrategy(events.TopicPriceTick)
	id := r.Execute(s)
	r.Delete(id)

	if r.Get(id) != nil {
		t.Error("deleted strategy still registered")
	}
	if s.State() != StateOff {
		t.Errorf("state = %v, want OFF", s.State())
	}
	if got := len(r.List()); got != 0 {
		t.Errorf("registry size = %d, want 0", got)
	}
}

// busyStrategy burns a little time per event so tasks are still in flight
// when the runner shuts down.
type busyStrategy struct {
	Base
}

func (s *busyStrategy) ProcessEvent(uint64, any) { time.Sleep(100 * time.Microsecond) }
func (s *busyStrategy) Status() string           { return "busy" }

func TestRunnerStopWithEventsInFlight(t *testing.T) {
	bus := events.NewBus()
	r := NewRunner(bus, 2)

	s := &busyStrategy{Base: NewBase("busy", []events.Topic{events.TopicPriceTick}, nil)}
	r.Execute(s)

	for i := 0; i < 500; i++ {
		bus.Publish(events.TopicPriceTick, events.PriceTick{TokenAddress: "tok", PriceUI: float64(i)})
	}

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return with events still queued")
	}
}
