package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/relabs-tech/gesture_engine/internal/gesture"
)

func TestForMode_Catalogue(t *testing.T) {
	tests := []struct {
		mode     Mode
		kinds    []gesture.Kind
		interval time.Duration
		audio    bool
	}{
		{ModeShake, []gesture.Kind{gesture.KindShake}, DefaultSampleInterval, false},
		{ModeBlow, []gesture.Kind{gesture.KindBlow}, DefaultSampleInterval, true},
		{ModeGrab, []gesture.Kind{gesture.KindFlick}, FastSampleInterval, false},
		{ModeBoth, []gesture.Kind{gesture.KindShake, gesture.KindBlow}, DefaultSampleInterval, true},
		{ModeShakeChallenge, []gesture.Kind{gesture.KindShake}, DefaultSampleInterval, false},
		{ModeSlapChallenge, []gesture.Kind{gesture.KindFlick}, FastSampleInterval, false},
		{ModeBlowChallenge, []gesture.Kind{gesture.KindBlow}, DefaultSampleInterval, true},
	}
	for _, tc := range tests {
		t.Run(string(tc.mode), func(t *testing.T) {
			p, err := ForMode(tc.mode)
			if err != nil {
				t.Fatalf("ForMode: %v", err)
			}
			if len(p.Kinds) != len(tc.kinds) {
				t.Fatalf("kinds = %v, want %v", p.Kinds, tc.kinds)
			}
			for i := range tc.kinds {
				if p.Kinds[i] != tc.kinds[i] {
					t.Errorf("kind %d = %s, want %s", i, p.Kinds[i], tc.kinds[i])
				}
			}
			if p.SampleInterval != tc.interval {
				t.Errorf("SampleInterval = %v, want %v", p.SampleInterval, tc.interval)
			}
			if p.UsesAudio() != tc.audio {
				t.Errorf("UsesAudio = %v, want %v", p.UsesAudio(), tc.audio)
			}

			set := p.NewSet()
			for _, k := range tc.kinds {
				if !set.Enabled(k) {
					t.Errorf("Expected set to enable %s", k)
				}
			}
		})
	}
}

func TestForMode_Challenges(t *testing.T) {
	shake, _ := ForMode(ModeShakeChallenge)
	if shake.Shake.Force != 30 || shake.Increments[gesture.KindShake] != 100 {
		t.Errorf("shake challenge: force=%v inc=%v", shake.Shake.Force, shake.Increments[gesture.KindShake])
	}
	blow, _ := ForMode(ModeBlowChallenge)
	if blow.Blow.MeteringMin != -20 || blow.Blow.SustainFrames != 3 {
		t.Errorf("blow challenge: min=%v sustain=%d", blow.Blow.MeteringMin, blow.Blow.SustainFrames)
	}

	// catalogue entries must not share state between calls
	plain, _ := ForMode(ModeShake)
	if plain.Increments[gesture.KindShake] != ShakeIncrement {
		t.Errorf("Expected challenge tweak not to leak, got %v", plain.Increments[gesture.KindShake])
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(" Blow-Challenge "); err != nil || m != ModeBlowChallenge {
		t.Errorf("ParseMode = %q, %v", m, err)
	}
	if _, err := ParseMode("juggle"); err == nil {
		t.Error("Expected error for unknown mode")
	}
	if _, err := ForMode("juggle"); err == nil {
		t.Error("Expected ForMode error for unknown mode")
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.toml")
	content := `
[mode.shake]
shake-force = 18.5
shake-increment = 20.0
decay-delay-ms = 3000

[mode.blow-challenge]
sustain-frames = 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	o, err := LoadOverrides(path)
	if err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}

	base, _ := ForMode(ModeShake)
	p := o.Apply(base)
	if p.Shake.Force != 18.5 {
		t.Errorf("Shake.Force = %v, want 18.5", p.Shake.Force)
	}
	if p.Increments[gesture.KindShake] != 20 {
		t.Errorf("shake increment = %v, want 20", p.Increments[gesture.KindShake])
	}
	if p.Progress.DecayDelay != 3*time.Second {
		t.Errorf("DecayDelay = %v, want 3s", p.Progress.DecayDelay)
	}
	if base.Increments[gesture.KindShake] != ShakeIncrement {
		t.Error("Expected Apply not to mutate the input profile's increments")
	}
	if p.Shake.Cooldown != 500*time.Millisecond {
		t.Errorf("Expected unset fields to keep defaults, cooldown = %v", p.Shake.Cooldown)
	}

	grab, _ := ForMode(ModeGrab)
	if got := o.Apply(grab); got.Flick != grab.Flick {
		t.Error("Expected modes without a table to pass through unchanged")
	}
}

func TestLoadOverrides_Errors(t *testing.T) {
	dir := t.TempDir()

	if o, err := LoadOverrides(filepath.Join(dir, "missing.toml")); err != nil || len(o.Modes) != 0 {
		t.Errorf("Expected missing file to be empty, got %+v, %v", o, err)
	}

	tests := map[string]string{
		"unknown mode": "[mode.juggle]\nshake-force = 1.0\n",
		"unknown key":  "[mode.shake]\nshake-forse = 1.0\n",
		"bad syntax":   "[mode.shake\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".toml")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadOverrides(path); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}
