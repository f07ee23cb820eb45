package display

import (
	"context"
	"image"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/gesture_engine/internal/phase"
	"github.com/relabs-tech/gesture_engine/internal/profile"
	"github.com/relabs-tech/gesture_engine/internal/session"
)

type fakePanel struct {
	mu    sync.Mutex
	draws int
	last  image.Image
}

func (p *fakePanel) Bounds() image.Rectangle { return image.Rect(0, 0, width, height) }

func (p *fakePanel) Draw(_ image.Rectangle, src image.Image, _ image.Point) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draws++
	p.last = src
	return nil
}

func (p *fakePanel) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draws
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestFillWidth(t *testing.T) {
	tests := []struct{ in, want int }{
		{-5, 0}, {0, 0}, {50, 62}, {100, 124}, {150, 124},
	}
	for _, tt := range tests {
		if got := FillWidth(tt.in); got != tt.want {
			t.Errorf("FillWidth(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRender_ProgressBar(t *testing.T) {
	img := Render(session.Snapshot{Mode: profile.ModeShake, Phase: phase.Interacting, Progress: 50})

	mid := (barTop + barBottom) / 2
	if img.BitAt(10, mid) != image1bit.On {
		t.Error("Expected bar filled near the left")
	}
	if img.BitAt(2+FillWidth(50)+5, mid) != image1bit.Off {
		t.Error("Expected bar empty past the fill")
	}
	if img.BitAt(0, mid) != image1bit.On || img.BitAt(width-1, mid) != image1bit.On {
		t.Error("Expected bar outline")
	}
}

func TestScreen_RedrawsOnlyOnChange(t *testing.T) {
	panel := &fakePanel{}
	s := New(panel, quiet)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 2*time.Millisecond)
		close(done)
	}()

	waitFor := func(n int) {
		t.Helper()
		deadline := time.Now().Add(time.Second)
		for panel.count() < n && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		if panel.count() < n {
			t.Fatalf("Expected %d draws, got %d", n, panel.count())
		}
	}

	waitFor(1) // splash
	snap := session.Snapshot{Mode: profile.ModeBlow, Progress: 10}
	s.Update(snap)
	waitFor(2)
	s.Update(snap)
	time.Sleep(20 * time.Millisecond)
	if n := panel.count(); n != 2 {
		t.Errorf("Expected identical snapshot not to redraw, draws = %d", n)
	}
	s.SetPacks(3)
	waitFor(3)

	cancel()
	<-done
}
