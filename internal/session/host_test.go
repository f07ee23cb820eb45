package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/gesture_engine/internal/driver"
	"github.com/relabs-tech/gesture_engine/internal/gesture"
	"github.com/relabs-tech/gesture_engine/internal/profile"
)

func TestHost_SingleLiveSession(t *testing.T) {
	rec := &recorder{}
	clock := &fakeClock{now: time.Unix(20_000, 0)}
	h := NewHost(Deps{
		Sensors: &fakeSensor{rec: rec},
		Audio:   &fakeAudio{rec: rec},
		Haptics: fakeFeedback{rec: rec},
		Sounds:  fakeFeedback{rec: rec},
		Now:     clock.Now,
	})
	var events []gesture.Event
	h.OnEvent(func(ev gesture.Event) { events = append(events, ev) })
	h.Observe(func(Snapshot) {})

	p := mustProfile(t, profile.ModeShake)
	first, err := h.Enter(context.Background(), p)
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	second, err := h.Enter(context.Background(), p)
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}

	if first.Active() {
		t.Error("Expected the first session to be stopped")
	}
	if h.Current() != second {
		t.Error("Expected the second session to be current")
	}
	if first.ID() == second.ID() {
		t.Error("Expected fresh session IDs")
	}
	if len(second.observers) != 1 {
		t.Errorf("Expected host observers to be attached, got %d", len(second.observers))
	}

	second.HandleMotion(jolt(35))
	if len(events) != 1 || events[0].Kind != gesture.KindShake {
		t.Errorf("Expected host event sink to see the shake, got %+v", events)
	}

	h.Leave()
	h.Leave()
	if h.Current() != nil {
		t.Error("Expected no current session after Leave")
	}
	if got, want := rec.count("subscribe"), 2; got != want {
		t.Errorf("subscribe calls = %d, want %d", got, want)
	}
	if got, want := rec.count("unsubscribe"), 2; got != want {
		t.Errorf("unsubscribe calls = %d, want %d", got, want)
	}
}

// sharedMic models a driver with a single level callback that any
// recording's Stop clears, and whose first StartMetering is held on gate.
type sharedMic struct {
	mu      sync.Mutex
	calls   int
	onLevel func(float64)
	started chan struct{}
	gate    chan struct{}
}

func (m *sharedMic) RequestPermission(context.Context) error { return nil }

func (m *sharedMic) StartMetering(_ context.Context, _ driver.MeteringConfig, cb func(float64)) (driver.Recording, error) {
	m.mu.Lock()
	m.calls++
	first := m.calls == 1
	m.mu.Unlock()
	if first {
		close(m.started)
		<-m.gate
	}
	m.mu.Lock()
	m.onLevel = cb
	m.mu.Unlock()
	return sharedRecording{m}, nil
}

type sharedRecording struct{ m *sharedMic }

func (r sharedRecording) Stop() error {
	r.m.mu.Lock()
	r.m.onLevel = nil
	r.m.mu.Unlock()
	return nil
}

func (m *sharedMic) emit(dbfs float64) {
	m.mu.Lock()
	cb := m.onLevel
	m.mu.Unlock()
	if cb != nil {
		cb(dbfs)
	}
}

func TestHost_ReenterDuringMicAcquireKeepsNewMic(t *testing.T) {
	mic := &sharedMic{started: make(chan struct{}), gate: make(chan struct{})}
	clock := &fakeClock{now: time.Unix(30_000, 0)}
	h := NewHost(Deps{Audio: mic, Now: clock.Now})
	p := mustProfile(t, profile.ModeBlow)

	first, err := h.Enter(context.Background(), p)
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	<-mic.started

	type entered struct {
		s   *Session
		err error
	}
	done := make(chan entered, 1)
	go func() {
		s, err := h.Enter(context.Background(), p)
		done <- entered{s, err}
	}()

	select {
	case <-done:
		t.Fatal("Expected Enter to wait for the previous microphone acquire")
	case <-time.After(50 * time.Millisecond):
	}
	close(mic.gate)

	res := <-done
	if res.err != nil {
		t.Fatalf("Enter: %v", res.err)
	}
	second := res.s
	defer h.Leave()
	second.Wait()

	if first.Active() || !second.Active() {
		t.Fatalf("active: first=%v second=%v", first.Active(), second.Active())
	}
	for i := 0; i < 5; i++ {
		mic.emit(-10)
	}
	if second.Progress() == 0 {
		t.Error("Expected blow to reach the new session after re-entry")
	}
}
