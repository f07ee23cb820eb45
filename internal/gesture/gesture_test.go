package gesture

import (
	"testing"
	"time"

	"github.com/relabs-tech/gesture_engine/internal/motion"
)

var t0 = time.Unix(5000, 0)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func accelReading(ms int, mag float64) motion.Reading {
	return motion.Ingest(at(ms), motion.Payload{Acceleration: &motion.Vec3{X: mag}})
}

func swingReading(ms int, gamma, mag float64) motion.Reading {
	return motion.Ingest(at(ms), motion.Payload{
		Acceleration: &motion.Vec3{Y: mag},
		RotationRate: &motion.RotationRate{Gamma: gamma},
	})
}

func defaultFlick() FlickParams {
	return FlickParams{
		RotationMin: 4.0,
		MovementMin: 12,
		Rejection:   2.0,
		Window:      200 * time.Millisecond,
		Cooldown:    100 * time.Millisecond,
		Axis:        motion.AxisGamma,
	}
}

func TestCooldowns(t *testing.T) {
	c := NewCooldowns()
	if !c.Ready(KindShake, at(0), time.Second) {
		t.Fatal("Expected a kind that never fired to be ready")
	}
	if !c.TryFire(KindShake, at(0), 500*time.Millisecond) {
		t.Fatal("Expected first fire to pass")
	}
	if c.TryFire(KindShake, at(499), 500*time.Millisecond) {
		t.Error("Expected fire inside the cooldown to be rejected")
	}
	if !c.TryFire(KindBlow, at(10), 500*time.Millisecond) {
		t.Error("Expected cooldowns to be independent per kind")
	}
	if !c.TryFire(KindShake, at(500), 500*time.Millisecond) {
		t.Error("Expected fire exactly at the cooldown boundary to pass")
	}

	c.Reset()
	if _, ok := c.LastFired(KindShake); ok {
		t.Error("Expected Reset to forget fires")
	}
}

// A 35 m/s² jolt fires once; a second one 50ms later is inside the cooldown.
func TestShake_FiresOnceWithinCooldown(t *testing.T) {
	set := NewSet(NewShake(ShakeParams{Force: 15, Cooldown: 500 * time.Millisecond}))

	events := set.Evaluate(accelReading(0, 35))
	if len(events) != 1 || events[0].Kind != KindShake {
		t.Fatalf("Expected one shake event, got %+v", events)
	}
	if events[0].Intensity <= 0 || events[0].Intensity > 1 {
		t.Errorf("Expected intensity in (0,1], got %v", events[0].Intensity)
	}

	if events := set.Evaluate(accelReading(50, 35)); len(events) != 0 {
		t.Errorf("Expected no event inside cooldown, got %+v", events)
	}
	if events := set.Evaluate(accelReading(600, 35)); len(events) != 1 {
		t.Errorf("Expected a fire after the cooldown, got %+v", events)
	}
}

func TestShake_BelowThreshold(t *testing.T) {
	s := NewShake(ShakeParams{Force: 15})
	if fired, _ := s.Evaluate(accelReading(0, 15)); fired {
		t.Error("Expected magnitude equal to the threshold not to fire")
	}
}

// +5 rad/s swing fires; a -3 rad/s sample follows; the next +5 spike is
// vetoed by the reversal even though the cooldown has elapsed.
func TestFlick_ReversalRejectsSecondSpike(t *testing.T) {
	set := NewSet(NewFlick(defaultFlick()))

	if events := set.Evaluate(swingReading(0, 5, 20)); len(events) != 1 {
		t.Fatalf("Expected first swing to fire, got %+v", events)
	}
	if events := set.Evaluate(swingReading(50, -3, 5)); len(events) != 0 {
		t.Fatalf("Expected the counter-rotation itself not to fire, got %+v", events)
	}
	if events := set.Evaluate(swingReading(120, 5, 20)); len(events) != 0 {
		t.Errorf("Expected reversal to veto the second spike, got %+v", events)
	}
}

func TestFlick_SecondSpikeWithoutReversalFires(t *testing.T) {
	set := NewSet(NewFlick(defaultFlick()))

	set.Evaluate(swingReading(0, 5, 20))
	set.Evaluate(swingReading(50, 1, 5))
	if events := set.Evaluate(swingReading(120, 5, 20)); len(events) != 1 {
		t.Errorf("Expected the control spike to fire, got %+v", events)
	}
}

func TestFlick_NeverFiresWithReversalInWindow(t *testing.T) {
	peaks := []float64{4.5, 8, 20, 100}
	for _, peak := range peaks {
		f := NewFlick(defaultFlick())
		f.Evaluate(swingReading(0, -2.5, 0))
		if fired, _ := f.Evaluate(swingReading(100, peak, 200)); fired {
			t.Errorf("peak %v: expected reversal to veto regardless of magnitude", peak)
		}

		g := NewFlick(defaultFlick())
		g.Evaluate(swingReading(0, 2.5, 0))
		if fired, _ := g.Evaluate(swingReading(100, -peak, 200)); fired {
			t.Errorf("peak -%v: expected reversal to veto negative swings too", peak)
		}
	}
}

func TestFlick_SubConditions(t *testing.T) {
	tests := []struct {
		name  string
		gamma float64
		mag   float64
		want  bool
	}{
		{"spin and force", 5, 20, true},
		{"spin without force", 5, 5, false},
		{"force without spin", 2, 20, false},
		{"negative swing", -6, 20, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFlick(defaultFlick())
			if fired, _ := f.Evaluate(swingReading(0, tc.gamma, tc.mag)); fired != tc.want {
				t.Errorf("Evaluate(gamma=%v, mag=%v) = %v, want %v", tc.gamma, tc.mag, fired, tc.want)
			}
		})
	}
}

func TestFlick_CandidateClearsHistory(t *testing.T) {
	f := NewFlick(defaultFlick())
	f.Evaluate(swingReading(0, 5, 5))
	if f.HistoryLen() == 0 {
		t.Fatal("Expected history to hold the reading")
	}
	if fired, _ := f.Evaluate(swingReading(10, 5, 20)); !fired {
		t.Fatal("Expected the swing to pass")
	}
	if f.HistoryLen() != 0 {
		t.Errorf("Expected empty history after a passing candidate, got %d", f.HistoryLen())
	}
}

// A counter-swing swallowed by the cooldown still clears the history, so
// it cannot veto the next forward swing.
func TestFlick_DebouncedCandidateClearsHistory(t *testing.T) {
	set := NewSet(NewFlick(defaultFlick()))

	if events := set.Evaluate(swingReading(0, 5, 20)); len(events) != 1 {
		t.Fatalf("Expected first swing to fire, got %+v", events)
	}
	if events := set.Evaluate(swingReading(20, -6, 20)); len(events) != 0 {
		t.Fatalf("Expected the cooldown to swallow the counter-swing, got %+v", events)
	}
	if events := set.Evaluate(swingReading(130, 5, 20)); len(events) != 1 {
		t.Errorf("Expected the next swing to fire, got %+v", events)
	}
}

func TestBlow_IntensityIndependentOfFire(t *testing.T) {
	b := NewBlow(BlowParams{MeteringMin: -25, MeteringFloor: -50})

	fired, intensity := b.Evaluate(motion.Metering(at(0), -37.5))
	if fired {
		t.Error("Expected quiet level not to fire")
	}
	if intensity != 0.5 {
		t.Errorf("Expected intensity 0.5 halfway between floor and threshold, got %v", intensity)
	}

	fired, intensity = b.Evaluate(motion.Metering(at(100), -10))
	if !fired || intensity != 1 {
		t.Errorf("Expected loud level to fire at full intensity, got fired=%v intensity=%v", fired, intensity)
	}

	_, intensity = b.Evaluate(motion.Metering(at(200), -80))
	if intensity != 0 {
		t.Errorf("Expected zero intensity below the floor, got %v", intensity)
	}
}

func TestBlow_SustainFrames(t *testing.T) {
	b := NewBlow(BlowParams{MeteringMin: -20, MeteringFloor: -50, SustainFrames: 3})

	for i := 0; i < 3; i++ {
		if fired, _ := b.Evaluate(motion.Metering(at(i*100), -10)); fired {
			t.Fatalf("frame %d: expected no fire before the sustain count", i)
		}
	}
	if fired, _ := b.Evaluate(motion.Metering(at(300), -10)); !fired {
		t.Error("Expected fire on the fourth consecutive loud frame")
	}

	b.Evaluate(motion.Metering(at(400), -60))
	if fired, _ := b.Evaluate(motion.Metering(at(500), -10)); fired {
		t.Error("Expected a quiet frame to reset the streak")
	}
}

func TestBlow_Smoothing(t *testing.T) {
	b := NewBlow(BlowParams{MeteringMin: -25, MeteringFloor: -50, Smoothing: 0.5})
	b.Evaluate(motion.Metering(at(0), -60))
	if fired, _ := b.Evaluate(motion.Metering(at(100), -10)); fired {
		t.Error("Expected a single loud frame to be smoothed below the threshold")
	}
	if got := b.Level(); got != -35 {
		t.Errorf("Expected smoothed level -35, got %v", got)
	}
}

func TestSet_RoutesInputs(t *testing.T) {
	set := NewSet(
		NewShake(ShakeParams{Force: 15, Cooldown: 500 * time.Millisecond}),
		NewBlow(BlowParams{MeteringMin: -25, MeteringFloor: -50, Cooldown: 100 * time.Millisecond}),
	)

	// Audio-only readings carry zero acceleration and must not reach shake
	if events := set.Evaluate(motion.Metering(at(0), -10)); len(events) != 1 || events[0].Kind != KindBlow {
		t.Errorf("Expected one blow event, got %+v", events)
	}
	if events := set.Evaluate(accelReading(10, 40)); len(events) != 1 || events[0].Kind != KindShake {
		t.Errorf("Expected one shake event, got %+v", events)
	}
}

func TestSet_DisableIsFailOpen(t *testing.T) {
	set := NewSet(
		NewShake(ShakeParams{Force: 15}),
		NewBlow(BlowParams{MeteringMin: -25, MeteringFloor: -50}),
	)
	set.DisableInput(InputAudio)

	if set.Enabled(KindBlow) || !set.Enabled(KindShake) {
		t.Fatalf("Expected only blow disabled, active=%v", set.Active())
	}
	if events := set.Evaluate(motion.Metering(at(0), 0)); len(events) != 0 {
		t.Errorf("Expected disabled blow to stay silent, got %+v", events)
	}
	if events := set.Evaluate(accelReading(0, 40)); len(events) != 1 {
		t.Errorf("Expected shake to keep working, got %+v", events)
	}
	if set.Uses(InputAudio) {
		t.Error("Expected no audio consumer after DisableInput")
	}

	set.Reset()
	if !set.Enabled(KindBlow) {
		t.Error("Expected Reset to re-enable classifiers")
	}
}

func TestSet_MultipleFiresSameReading(t *testing.T) {
	set := NewSet(
		NewShake(ShakeParams{Force: 15, Cooldown: 500 * time.Millisecond}),
		NewFlick(defaultFlick()),
	)
	events := set.Evaluate(swingReading(0, 6, 30))
	if len(events) != 2 {
		t.Fatalf("Expected shake and flick in the same evaluation, got %+v", events)
	}
	if events[0].Kind != KindShake || events[1].Kind != KindFlick {
		t.Errorf("Expected classifier order, got %v then %v", events[0].Kind, events[1].Kind)
	}
}
