package audio

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/satindergrewal/promoreel/internal/apperr"
)

// Player plays one decoded asset as a stream of 20ms PCM frames, paced by a
// ticker. With analysis attached, every played frame also feeds the Analyser.
type Player struct {
	frameCh  chan []int16
	pace     time.Duration
	analyser *Analyser

	mu       sync.Mutex
	asset    *Asset
	routed   bool
	playing  bool
	pos      int // next frame index
	fadeNext bool
	ended    chan struct{}
	endedSet bool // ended has been closed
	cancel   context.CancelFunc
	done     chan struct{}
}

// PlayerOption adjusts a Player.
type PlayerOption func(*Player)

// WithPace overrides the wall-clock time spent per frame. Playback position
// still advances by FrameDuration per frame.
func WithPace(d time.Duration) PlayerOption {
	return func(p *Player) { p.pace = d }
}

func NewPlayer(opts ...PlayerOption) *Player {
	p := &Player{
		frameCh:  make(chan []int16, 100),
		pace:     FrameDuration,
		analyser: NewAnalyser(),
		ended:    make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Frames returns the channel of outgoing PCM frames (20ms each). Frames are
// dropped when nobody keeps up with it.
func (p *Player) Frames() <-chan []int16 {
	return p.frameCh
}

// Load replaces the asset, stopping playback and rewinding. A nil asset
// leaves the player empty.
func (p *Player) Load(a *Asset) {
	p.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asset = a
	p.pos = 0
	p.renewEnded()
	p.analyser.Reset()
}

func (p *Player) HasAsset() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.asset != nil
}

// Attach routes playback through the analyser. It reports whether a new
// route was created; attaching twice keeps the single existing route.
func (p *Player) Attach() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.routed {
		return false
	}
	p.routed = true
	return true
}

// Detach removes the analysis route.
func (p *Player) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routed = false
	p.analyser.Reset()
}

// Routes returns the number of active analysis routes (0 or 1).
func (p *Player) Routes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.routed {
		return 1
	}
	return 0
}

// SeekToStart rewinds to frame zero. Playback, if running, continues from
// there after a short fade-in.
func (p *Player) SeekToStart() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = 0
	p.fadeNext = p.playing
	p.renewEnded()
}

// renewEnded gives the next play-through a fresh end signal. Callers hold mu.
func (p *Player) renewEnded() {
	if p.endedSet {
		p.ended = make(chan struct{})
		p.endedSet = false
	}
}

// Ended returns a channel closed when the current play-through reaches the
// end of the asset.
func (p *Player) Ended() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ended
}

// Start begins or resumes playback. It is a no-op while already playing.
// Resuming mid-asset fades the first frame in; starting at frame zero plays
// the asset's samples unchanged.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.asset == nil {
		return apperr.ErrAssetUnavailable
	}
	if p.playing {
		return nil
	}
	if p.pos >= p.asset.Frames() {
		p.pos = 0
		p.renewEnded()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.playing = true
	p.fadeNext = p.pos > 0
	go p.run(ctx, p.done)
	log.Printf("Playback: started at %v", time.Duration(p.pos)*FrameDuration)
	return nil
}

// Stop pauses playback. It is idempotent.
func (p *Player) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.playing = false
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Position returns how far into the asset playback is.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Duration(p.pos) * FrameDuration
}

func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.asset == nil {
		return 0
	}
	return p.asset.Duration()
}

// Snapshot returns the current frequency snapshot, or nil unless audio is
// playing through an attached analysis route.
func (p *Player) Snapshot() []uint8 {
	p.mu.Lock()
	active := p.playing && p.routed
	p.mu.Unlock()
	if !active {
		return nil
	}
	return p.analyser.Snapshot()
}

func (p *Player) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.pace)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		if ctx.Err() != nil {
			p.mu.Unlock()
			return
		}
		if p.pos >= p.asset.Frames() {
			p.playing = false
			if p.cancel != nil {
				p.cancel()
			}
			p.cancel, p.done = nil, nil
			if !p.endedSet {
				close(p.ended)
				p.endedSet = true
			}
			length := p.asset.Duration()
			p.mu.Unlock()
			log.Printf("Playback: reached end (%v)", length)
			return
		}
		frame := p.asset.Frame(p.pos)
		if p.fadeNext {
			frame = FadeIn(frame)
			p.fadeNext = false
		}
		routed := p.routed
		p.pos++
		p.mu.Unlock()

		if routed {
			p.analyser.Push(frame)
		}
		select {
		case p.frameCh <- frame:
		default:
		}
	}
}
