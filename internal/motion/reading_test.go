package motion

import (
	"math"
	"testing"
	"time"
)

func TestIngest_DefaultsMissingAxes(t *testing.T) {
	at := time.Unix(100, 0)

	r := Ingest(at, Payload{})
	if r.Accel != (Vec3{}) || r.Rotation != (RotationRate{}) {
		t.Errorf("Expected zero axes for empty payload, got %+v", r)
	}
	if !r.HasMotion || r.HasAudio {
		t.Errorf("Expected motion-only reading, got HasMotion=%v HasAudio=%v", r.HasMotion, r.HasAudio)
	}
	if !r.Timestamp.Equal(at) {
		t.Errorf("Expected timestamp %v, got %v", at, r.Timestamp)
	}

	r = Ingest(at, Payload{RotationRate: &RotationRate{Gamma: 3}})
	if r.Rotation.Gamma != 3 || r.Magnitude() != 0 {
		t.Errorf("Expected gamma=3 and zero accel, got %+v", r)
	}
}

func TestReading_Magnitude(t *testing.T) {
	r := Ingest(time.Now(), Payload{Acceleration: &Vec3{X: 3, Y: 4, Z: 12}})
	if got := r.Magnitude(); got != 13 {
		t.Errorf("Expected magnitude 13, got %v", got)
	}
}

func TestReading_DominantAxis(t *testing.T) {
	tests := []struct {
		rot  RotationRate
		want Axis
	}{
		{RotationRate{Alpha: 1, Beta: 0.5, Gamma: 0.2}, AxisAlpha},
		{RotationRate{Alpha: 1, Beta: -2, Gamma: 0.2}, AxisBeta},
		{RotationRate{Alpha: 1, Beta: 2, Gamma: -5}, AxisGamma},
		{RotationRate{}, AxisAlpha},
	}
	for _, tc := range tests {
		r := Reading{Rotation: tc.rot}
		if got := r.DominantAxis(); got != tc.want {
			t.Errorf("DominantAxis(%+v) = %v, want %v", tc.rot, got, tc.want)
		}
	}
}

func TestMetering_NaNIsSilence(t *testing.T) {
	r := Metering(time.Now(), math.NaN())
	if r.AudioLevel != SilentDBFS || !r.HasAudio || r.HasMotion {
		t.Errorf("Expected silent audio-only reading, got %+v", r)
	}
}

func TestHighPass_RemovesConstantGravity(t *testing.T) {
	hp := NewHighPass(0.95)
	gravity := Vec3{Z: 9.81}

	var out Vec3
	for i := 0; i < 200; i++ {
		out = hp.Filter(gravity)
	}
	if math.Abs(out.Z) > 1e-6 {
		t.Errorf("Expected gravity to be filtered out, got Z=%v", out.Z)
	}

	// A sudden jolt passes through
	out = hp.Filter(Vec3{X: 20, Z: 9.81})
	if out.X < 15 {
		t.Errorf("Expected jolt to pass the filter, got X=%v", out.X)
	}
}
