package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/relabs-tech/gesture_engine/internal/config"
	"github.com/relabs-tech/gesture_engine/internal/driver"
	"github.com/relabs-tech/gesture_engine/internal/profile"
	"github.com/relabs-tech/gesture_engine/internal/sensors"
)

func TestProfiles_AppliesIdleAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.toml")
	body := "[mode.shake]\nshake-force = 22.5\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.ProfileFile = path
	cfg.IdleTimeout = 30_000

	resolve, err := profiles(cfg)
	if err != nil {
		t.Fatal(err)
	}
	p, err := resolve(profile.ModeShake)
	if err != nil {
		t.Fatal(err)
	}
	if p.Shake.Force != 22.5 {
		t.Errorf("shake force = %v, want override 22.5", p.Shake.Force)
	}
	if p.IdleTimeout != 30*time.Second {
		t.Errorf("idle timeout = %v", p.IdleTimeout)
	}

	if _, err := resolve(profile.Mode("juggle")); err == nil {
		t.Error("Expected unknown mode error")
	}
}

func TestProfiles_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.toml")
	_ = os.WriteFile(path, []byte("[mode.juggle]\n"), 0o644)
	cfg := config.Default()
	cfg.ProfileFile = path
	if _, err := profiles(cfg); err == nil {
		t.Error("Expected error for unknown mode in overrides")
	}
}

type countingInventory struct{ total int }

func (c *countingInventory) AddPack(_ context.Context, n int) (int, error) {
	c.total += n
	return c.total, nil
}

type failingInventory struct{}

func (failingInventory) AddPack(context.Context, int) (int, error) {
	return 0, errors.New("disk full")
}

func TestPackCounter(t *testing.T) {
	var seen []int
	c := packCounter{Inventory: &countingInventory{}, onTotal: func(n int) { seen = append(seen, n) }}
	for i := 0; i < 2; i++ {
		if _, err := c.AddPack(context.Background(), 1); err != nil {
			t.Fatal(err)
		}
	}
	if len(seen) != 2 || seen[1] != 2 {
		t.Errorf("totals = %v", seen)
	}

	f := packCounter{Inventory: failingInventory{}, onTotal: func(int) { t.Error("onTotal called on failure") }}
	if _, err := f.AddPack(context.Background(), 1); err == nil {
		t.Error("Expected error")
	}
}

var _ driver.Inventory = packCounter{}

func TestBuildRig_Scripted(t *testing.T) {
	cfg := config.Default()
	cfg.SensorSource = config.SourceScripted
	cfg.AudioSource = config.SourceScripted
	cfg.SoundEnabled = false
	cfg.InventoryDB = filepath.Join(t.TempDir(), "packs.db")

	r, err := buildRig(context.Background(), cfg, "shake:1s")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if r.client != nil {
		t.Error("Expected no MQTT client without a broker")
	}
	if _, ok := r.deps.Sensors.(*sensors.Scripted); !ok {
		t.Errorf("sensors = %T", r.deps.Sensors)
	}
	if any(r.deps.Sensors) != any(r.deps.Audio) {
		t.Error("Expected the scripted driver to serve both motion and audio")
	}
	if r.deps.Haptics != nil || r.deps.Sounds != nil {
		t.Error("Expected feedback devices left to the session defaults")
	}
	if n, err := r.store.Count(context.Background()); err != nil || n != 0 {
		t.Errorf("Count() = %d, %v", n, err)
	}
}

func TestBuildRig_BadScript(t *testing.T) {
	cfg := config.Default()
	cfg.SensorSource = config.SourceScripted
	cfg.AudioSource = config.SourceNone
	cfg.SoundEnabled = false
	cfg.InventoryDB = filepath.Join(t.TempDir(), "packs.db")

	if _, err := buildRig(context.Background(), cfg, "wiggle:1s"); err == nil {
		t.Error("Expected script parse error")
	}
}
