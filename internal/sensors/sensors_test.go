package sensors

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/relabs-tech/gesture_engine/internal/driver"
	"github.com/relabs-tech/gesture_engine/internal/gesture"
	"github.com/relabs-tech/gesture_engine/internal/imu"
	"github.com/relabs-tech/gesture_engine/internal/motion"
	"github.com/relabs-tech/gesture_engine/internal/profile"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestParseScript(t *testing.T) {
	sc, err := ParseScript("shake:2s, idle:500ms,BLOW:1s")
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	if len(sc.Steps) != 3 || sc.Steps[2].Action != ActionBlow {
		t.Fatalf("steps = %+v", sc.Steps)
	}
	if sc.Total() != 3500*time.Millisecond {
		t.Errorf("Total = %v", sc.Total())
	}

	for _, bad := range []string{"", "shake", "dance:1s", "shake:0s", "shake:soon"} {
		if _, err := ParseScript(bad); err == nil {
			t.Errorf("ParseScript(%q): expected error", bad)
		}
	}
}

func TestScriptAt(t *testing.T) {
	sc := Script{Steps: []Step{{ActionShake, time.Second}, {ActionBlow, time.Second}}}

	tests := []struct {
		elapsed time.Duration
		loop    bool
		want    Action
		into    time.Duration
	}{
		{0, false, ActionShake, 0},
		{1500 * time.Millisecond, false, ActionBlow, 500 * time.Millisecond},
		{2500 * time.Millisecond, false, ActionIdle, 0},
		{2500 * time.Millisecond, true, ActionShake, 500 * time.Millisecond},
		{-time.Second, true, ActionIdle, 0},
	}
	for _, tt := range tests {
		sc.Loop = tt.loop
		a, into := sc.At(tt.elapsed)
		if a != tt.want || into != tt.into {
			t.Errorf("At(%v, loop=%v) = %s,%v want %s,%v", tt.elapsed, tt.loop, a, into, tt.want, tt.into)
		}
	}
}

// feed plays an action through a mode's classifiers at a fixed rate and
// counts accepted events per kind.
func feed(t *testing.T, mode profile.Mode, a Action, d time.Duration) map[gesture.Kind]int {
	t.Helper()
	p, err := profile.ForMode(mode)
	if err != nil {
		t.Fatal(err)
	}
	set := p.NewSet()
	t0 := time.Unix(0, 0)
	counts := map[gesture.Kind]int{}
	for into := time.Duration(0); into < d; into += 10 * time.Millisecond {
		var r motion.Reading
		if p.UsesAudio() {
			r = motion.Metering(t0.Add(into), LevelAt(a, into))
		} else {
			r = motion.Ingest(t0.Add(into), MotionAt(a, into))
		}
		for _, ev := range set.Evaluate(r) {
			counts[ev.Kind]++
		}
	}
	return counts
}

func TestSyntheticGesturesFireTheirClassifier(t *testing.T) {
	tests := []struct {
		mode profile.Mode
		act  Action
		kind gesture.Kind
	}{
		{profile.ModeShake, ActionShake, gesture.KindShake},
		{profile.ModeShakeChallenge, ActionShake, gesture.KindShake},
		{profile.ModeGrab, ActionFlick, gesture.KindFlick},
		{profile.ModeBlow, ActionBlow, gesture.KindBlow},
		{profile.ModeBlowChallenge, ActionBlow, gesture.KindBlow},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			if n := feed(t, tt.mode, tt.act, 3*time.Second)[tt.kind]; n == 0 {
				t.Errorf("Expected %s to fire on %s", tt.kind, tt.act)
			}
			if n := feed(t, tt.mode, ActionIdle, 3*time.Second)[tt.kind]; n != 0 {
				t.Errorf("Expected no %s while idle, got %d", tt.kind, n)
			}
		})
	}
}

func TestShakeDoesNotLookLikeFlick(t *testing.T) {
	if n := feed(t, profile.ModeGrab, ActionShake, 3*time.Second)[gesture.KindFlick]; n != 0 {
		t.Errorf("Expected shake not to trigger flick, got %d", n)
	}
}

func TestScripted_DeliversAndStops(t *testing.T) {
	s := NewScripted(Script{Steps: []Step{{ActionBlow, time.Hour}}})

	var motions, levels atomic.Int32
	if err := s.Subscribe(func(motion.Payload) { motions.Add(1) }, 5*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	rec, err := s.StartMetering(context.Background(), driver.MeteringConfig{Interval: 5 * time.Millisecond}, func(v float64) {
		if v > -20 {
			levels.Add(1)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for (motions.Load() < 3 || levels.Load() < 3) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if motions.Load() < 3 || levels.Load() < 3 {
		t.Fatalf("motions=%d levels=%d", motions.Load(), levels.Load())
	}

	s.UnsubscribeAll()
	_ = rec.Stop()
	time.Sleep(20 * time.Millisecond)
	m, l := motions.Load(), levels.Load()
	time.Sleep(50 * time.Millisecond)
	if motions.Load() != m || levels.Load() != l {
		t.Error("Expected no deliveries after stop")
	}
}

type fakeReader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeReader) ReadRaw() (imu.IMURaw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return imu.IMURaw{}, f.err
	}
	return imu.IMURaw{Az: 16384, Gy: int16(f.calls)}, nil
}

func TestPoller(t *testing.T) {
	r := &fakeReader{}
	p := NewPoller(r, imu.Scale{}, imu.Bias{}, 0.95, quiet)

	got := make(chan motion.Payload, 100)
	if err := p.Subscribe(func(m motion.Payload) {
		select {
		case got <- m:
		default:
		}
	}, 2*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	first := <-got
	if first.Acceleration.Z != 0 {
		t.Errorf("Expected filter to prime at zero, got %v", first.Acceleration.Z)
	}
	if first.RotationRate.Gamma <= 0 {
		t.Errorf("Expected gyro Y mapped to gamma, got %+v", *first.RotationRate)
	}

	p.UnsubscribeAll()
	p.UnsubscribeAll()
	time.Sleep(20 * time.Millisecond)
	r.mu.Lock()
	n := r.calls
	r.mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls != n {
		t.Errorf("Expected sampling to stop, calls went %d -> %d", n, r.calls)
	}
}

func TestPoller_ReadErrorsAreSkipped(t *testing.T) {
	r := &fakeReader{err: errors.New("spi")}
	p := NewPoller(r, imu.Scale{}, imu.Bias{}, 0.95, quiet)

	var n atomic.Int32
	_ = p.Subscribe(func(motion.Payload) { n.Add(1) }, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	p.UnsubscribeAll()
	if n.Load() != 0 {
		t.Errorf("Expected no samples on read errors, got %d", n.Load())
	}
}
