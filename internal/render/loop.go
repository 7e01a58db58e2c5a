package render

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fogleman/gg"

	"github.com/satindergrewal/promoreel/internal/style"
)

// SnapshotSource supplies the current frequency snapshot, or nil when no
// audio is routed.
type SnapshotSource interface {
	Snapshot() []uint8
}

// Loop redraws the surface at a fixed rate from the latest state.
type Loop struct {
	surface  *Surface
	composer *Composer
	state    func() style.State
	audio    SnapshotSource
	interval time.Duration

	mu    sync.Mutex
	start time.Time
}

// NewLoop creates a render loop ticking fps times per second. audio may be nil.
func NewLoop(surface *Surface, composer *Composer, state func() style.State, audio SnapshotSource, fps int) *Loop {
	if fps <= 0 {
		fps = 30
	}
	return &Loop{
		surface:  surface,
		composer: composer,
		state:    state,
		audio:    audio,
		interval: time.Second / time.Duration(fps),
		start:    time.Now(),
	}
}

// Run draws frames until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	log.Printf("Render loop: started (%v per frame)", l.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("Render loop: stopped after %d frames", l.surface.Frames())
			return
		case <-ticker.C:
			l.Tick()
		}
	}
}

// Tick composes and publishes one frame.
func (l *Loop) Tick() {
	st := l.state()
	var bins []uint8
	if l.audio != nil {
		bins = l.audio.Snapshot()
	}
	elapsed := l.Elapsed()
	l.surface.Draw(func(dc *gg.Context) {
		l.composer.Compose(dc, st, elapsed, bins)
	})
}

// Elapsed returns seconds since the loop's session start.
func (l *Loop) Elapsed() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Since(l.start).Seconds()
}

// ResetClock restarts every animation cycle from zero.
func (l *Loop) ResetClock() {
	l.mu.Lock()
	l.start = time.Now()
	l.mu.Unlock()
}
