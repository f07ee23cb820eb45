package feedback

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/relabs-tech/gesture_engine/internal/driver"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func drain(t *testing.T, s beep.Streamer) (n int, peak float64, last float64) {
	t.Helper()
	buf := make([][2]float64, 333)
	for i := 0; i < 10000; i++ {
		k, ok := s.Stream(buf)
		for _, smp := range buf[:k] {
			peak = math.Max(peak, math.Abs(smp[0]))
			last = smp[0]
		}
		n += k
		if !ok {
			return n, peak, last
		}
	}
	t.Fatal("stream never ended")
	return
}

func TestStreamer_CuesAreFinite(t *testing.T) {
	rate := beep.SampleRate(8000)
	for cue, tn := range tones {
		t.Run(string(cue), func(t *testing.T) {
			var want int
			for _, n := range tn.notes {
				want += rate.N(n.duration)
			}
			n, peak, last := drain(t, Streamer(cue, rate))
			if n != want {
				t.Errorf("samples = %d, want %d", n, want)
			}
			if peak == 0 || peak > tn.volume+1e-9 {
				t.Errorf("peak = %v, volume %v", peak, tn.volume)
			}
			if math.Abs(last) > 0.05 {
				t.Errorf("Expected release tail to fade out, last = %v", last)
			}
		})
	}
}

func TestStreamer_UnknownCue(t *testing.T) {
	if Streamer(driver.Cue("nope"), 8000) != nil {
		t.Error("Expected nil for unknown cue")
	}
}

func TestSoundPlayer_PlayBeforeInitIsNoop(t *testing.T) {
	p := NewSoundPlayer(8000)
	p.Play(driver.CueWin)
	p.Close()
}

func TestPulseDuration(t *testing.T) {
	tests := []struct {
		in   float64
		want time.Duration
	}{
		{0, 0},
		{-1, 0},
		{1, maxPulse},
		{2, maxPulse},
		{0.5, minPulse + (maxPulse-minPulse)/2},
	}
	for _, tt := range tests {
		if got := PulseDuration(tt.in); got != tt.want {
			t.Errorf("PulseDuration(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGPIOHaptics_Pulse(t *testing.T) {
	pin := &gpiotest.Pin{N: "MOTOR"}
	h, err := NewGPIOHaptics(pin, quiet)
	if err != nil {
		t.Fatal(err)
	}

	h.Pulse(0)
	if pin.Read() != gpio.Low {
		t.Fatal("Expected zero intensity to leave motor off")
	}

	h.Pulse(0.1)
	if pin.Read() != gpio.High {
		t.Fatal("Expected motor on")
	}
	// a longer pulse must not be cut by the first timer
	h.Pulse(1)
	time.Sleep(minPulse + 20*time.Millisecond)
	if pin.Read() != gpio.High {
		t.Error("Expected later pulse to keep motor on")
	}

	deadline := time.Now().Add(time.Second)
	for pin.Read() == gpio.High && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if pin.Read() != gpio.Low {
		t.Error("Expected motor off after pulse")
	}

	h.Pulse(1)
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if pin.Read() != gpio.Low {
		t.Error("Expected Close to switch motor off")
	}
}
