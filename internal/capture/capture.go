// Package capture records the rendered surface and the soundtrack into a
// single video file. One Pipeline runs at most one Session at a time.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satindergrewal/promoreel/internal/apperr"
	"github.com/satindergrewal/promoreel/internal/audio"
	"github.com/satindergrewal/promoreel/internal/stream"
)

type State int

const (
	Idle State = iota
	Armed
	Recording
	Finalizing
	Done
	Failed
)

var stateNames = [...]string{"idle", "armed", "recording", "finalizing", "done", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Active reports whether a session in this state blocks a new export.
func (s State) Active() bool {
	return s == Armed || s == Recording || s == Finalizing
}

// Playback is the audio side of an export. *audio.Player implements it.
type Playback interface {
	HasAsset() bool
	Attach() bool
	Detach()
	SeekToStart()
	Start() error
	Stop()
	Ended() <-chan struct{}
	Position() time.Duration
	Duration() time.Duration
}

// FrameSource is the rendered surface. *render.Surface implements it.
type FrameSource interface {
	Bounds() image.Rectangle
	CopyTo(dst *image.RGBA)
}

// AudioTap delivers the PCM the player emits. *stream.Broadcaster implements it.
type AudioTap interface {
	SubscribeBuffered(n int) *stream.Listener
	Unsubscribe(l *stream.Listener)
}

type Config struct {
	FPS          int
	FFmpeg       string
	VideoBitrate int
	NewEncoder   EncoderFactory
	// BeforePlayback runs after the encoder is up and just before audio
	// starts, e.g. to restart the animation clock.
	BeforePlayback func()
}

type Pipeline struct {
	playback Playback
	frames   FrameSource
	tap      AudioTap
	cfg      Config

	mu      sync.Mutex
	current *Session
}

func NewPipeline(playback Playback, frames FrameSource, tap AudioTap, cfg Config) *Pipeline {
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.NewEncoder == nil {
		cfg.NewEncoder = NewFFmpegEncoder
	}
	return &Pipeline{playback: playback, frames: frames, tap: tap, cfg: cfg}
}

// State is the state of the latest session, or Idle before the first export.
func (p *Pipeline) State() State {
	p.mu.Lock()
	s := p.current
	p.mu.Unlock()
	if s == nil {
		return Idle
	}
	return s.State()
}

// Current returns the latest session, finished or not. Nil before the first
// export.
func (p *Pipeline) Current() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Stop ends the in-flight recording early. It reports whether there was one.
func (p *Pipeline) Stop() bool {
	s := p.Current()
	if s == nil || !s.State().Active() {
		return false
	}
	s.Stop()
	return true
}

// Export starts a new recording. It returns once the session is Recording;
// the session then finishes on its own at end of playback or on Stop. ctx
// only bounds setup.
func (p *Pipeline) Export(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	if p.current != nil && p.current.State().Active() {
		p.mu.Unlock()
		return nil, apperr.ErrConcurrentExport
	}
	if !p.playback.HasAsset() {
		p.mu.Unlock()
		return nil, apperr.ErrAssetUnavailable
	}
	s := newSession(p)
	p.current = s
	p.mu.Unlock()

	log.Printf("Capture %s: armed", s.ID)
	if err := s.arm(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Blob is a finished recording.
type Blob struct {
	Data     []byte
	Filename string
	MIMEType string
}

// Status is a JSON-friendly view of a session.
type Status struct {
	ID       string        `json:"id"`
	State    State         `json:"state"`
	Frames   int           `json:"frames"`
	Position time.Duration `json:"position_ns"`
	Duration time.Duration `json:"duration_ns"`
	Filename string        `json:"filename,omitempty"`
	Size     int           `json:"size,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type Session struct {
	ID      string
	Started time.Time

	p        *Pipeline
	enc      Encoder
	listener *stream.Listener
	attached bool

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu       sync.Mutex
	state    State
	frames   int
	blob     *Blob
	err      error
	finished time.Time
}

func newSession(p *Pipeline) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Started: time.Now(),
		p:       p,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		state:   Armed,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	log.Printf("Capture %s: %s", s.ID, st)
}

// Stop requests Finalizing. It is idempotent and has no effect once the
// session has finished.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Done is closed when the session reaches Done or Failed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Result returns the blob or the failure. Both are nil while in flight.
func (s *Session) Result() (*Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blob, s.err
}

// Wait blocks until the session finishes or ctx ends.
func (s *Session) Wait(ctx context.Context) (*Blob, error) {
	select {
	case <-s.done:
		return s.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		ID:       s.ID,
		State:    s.state,
		Frames:   s.frames,
		Position: s.p.playback.Position(),
		Duration: s.p.playback.Duration(),
	}
	if s.blob != nil {
		st.Filename = s.blob.Filename
		st.Size = len(s.blob.Data)
	}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	return st
}

// Save writes the finished blob into dir and returns its path.
func (s *Session) Save(dir string) (string, error) {
	blob, err := s.Result()
	if err != nil {
		return "", err
	}
	if blob == nil {
		return "", fmt.Errorf("capture %s: not finished", s.ID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, blob.Filename)
	if err := os.WriteFile(path, blob.Data, 0o644); err != nil {
		return "", err
	}
	log.Printf("Capture %s: saved %s (%d bytes)", s.ID, path, len(blob.Data))
	return path, nil
}

// arm performs Armed -> Recording. The encoder is running before playback
// starts so the first frames are not lost.
func (s *Session) arm(ctx context.Context) error {
	p := s.p
	if err := ctx.Err(); err != nil {
		return s.fail(err)
	}

	s.attached = p.playback.Attach()
	p.playback.Stop()
	p.playback.SeekToStart()

	frames := int(p.playback.Duration()/audio.FrameDuration) + stream.DefaultBuffer
	s.listener = p.tap.SubscribeBuffered(frames)

	b := p.frames.Bounds()
	s.enc = p.cfg.NewEncoder(EncoderConfig{
		FFmpeg:       p.cfg.FFmpeg,
		Width:        b.Dx(),
		Height:       b.Dy(),
		FPS:          p.cfg.FPS,
		VideoBitrate: p.cfg.VideoBitrate,
	})
	if err := s.enc.Start(); err != nil {
		s.enc = nil
		return s.fail(fmt.Errorf("%w: encoder: %v", apperr.ErrCaptureDevice, err))
	}
	if err := ctx.Err(); err != nil {
		return s.fail(err)
	}

	ended := p.playback.Ended()
	if p.cfg.BeforePlayback != nil {
		p.cfg.BeforePlayback()
	}
	if err := p.playback.Start(); err != nil {
		return s.fail(err)
	}
	s.setState(Recording)
	go s.record(ended)
	return nil
}

// fail releases everything the session acquired and moves it to Failed.
func (s *Session) fail(err error) error {
	p := s.p
	p.playback.Stop()
	if s.enc != nil {
		s.enc.Abort()
	}
	if s.listener != nil {
		p.tap.Unsubscribe(s.listener)
	}
	if s.attached {
		p.playback.Detach()
	}

	s.mu.Lock()
	s.state = Failed
	s.err = err
	s.finished = time.Now()
	s.mu.Unlock()
	close(s.done)
	log.Printf("Capture %s: failed: %v", s.ID, err)
	return err
}

func (s *Session) record(ended <-chan struct{}) {
	p := s.p
	frame := image.NewRGBA(p.frames.Bounds())
	perFrame := time.Second / time.Duration(p.cfg.FPS)

	ticker := time.NewTicker(perFrame)
	defer ticker.Stop()

	audioErr := make(chan error, 1)
	audioStop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.pumpAudio(audioStop, audioErr)
	}()
	stopAudio := func() {
		close(audioStop)
		wg.Wait()
	}

	// Video follows the audio clock: after each sample the frame count
	// catches up with position*fps, repeating the latest frame if needed.
	catchUp := func() error {
		p.frames.CopyTo(frame)
		want := int(p.playback.Position()/perFrame) + 1
		for s.Frames() < want {
			if err := s.enc.WriteFrame(frame); err != nil {
				return err
			}
			s.mu.Lock()
			s.frames++
			s.mu.Unlock()
		}
		return nil
	}

	reason := ""
loop:
	for {
		if err := catchUp(); err != nil {
			stopAudio()
			s.fail(fmt.Errorf("%w: video: %v", apperr.ErrCaptureDevice, err))
			return
		}
		select {
		case <-ended:
			reason = "end of playback"
			break loop
		case <-s.stop:
			reason = "stop requested"
			break loop
		case err := <-audioErr:
			stopAudio()
			s.fail(fmt.Errorf("%w: audio: %v", apperr.ErrCaptureDevice, err))
			return
		case <-ticker.C:
		}
	}

	s.setState(Finalizing)
	log.Printf("Capture %s: %s at %v", s.ID, reason, p.playback.Position())
	p.playback.Stop()
	if err := catchUp(); err != nil {
		stopAudio()
		s.fail(fmt.Errorf("%w: video: %v", apperr.ErrCaptureDevice, err))
		return
	}
	stopAudio()
	select {
	case err := <-audioErr:
		s.fail(fmt.Errorf("%w: audio: %v", apperr.ErrCaptureDevice, err))
		return
	default:
	}
	p.tap.Unsubscribe(s.listener)
	s.listener = nil

	if err := s.enc.Close(); err != nil {
		s.fail(fmt.Errorf("%w: finalize: %v", apperr.ErrCaptureDevice, err))
		return
	}
	data := bytes.Join(s.enc.Chunks(), nil)
	s.enc = nil
	if len(data) == 0 {
		s.fail(fmt.Errorf("%w: encoder produced no output", apperr.ErrCaptureDevice))
		return
	}

	s.mu.Lock()
	s.blob = &Blob{
		Data:     data,
		Filename: "promo-" + s.ID + containerExt,
		MIMEType: ContainerMIME,
	}
	s.state = Done
	s.finished = time.Now()
	frames := s.frames
	s.mu.Unlock()
	close(s.done)
	log.Printf("Capture %s: done (%d frames, %d bytes, %v)", s.ID, frames, len(data), s.finished.Sub(s.Started).Round(time.Millisecond))
}

// Frames returns how many video frames have been handed to the encoder.
func (s *Session) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// pumpAudio feeds PCM to the encoder until stop, then drains what is still
// in flight: it keeps reading until the tap has been quiet for two frames.
func (s *Session) pumpAudio(stop <-chan struct{}, errc chan<- error) {
	l := s.listener
	write := func(pcm []int16) bool {
		if err := s.enc.WriteAudio(pcm); err != nil {
			errc <- err
			return false
		}
		return true
	}
	for {
		select {
		case pcm := <-l.C:
			if !write(pcm) {
				return
			}
		case <-stop:
			quiet := time.NewTimer(2 * audio.FrameDuration)
			defer quiet.Stop()
			for {
				select {
				case pcm := <-l.C:
					if !write(pcm) {
						return
					}
					quiet.Reset(2 * audio.FrameDuration)
				case <-quiet.C:
					return
				}
			}
		}
	}
}

// IsRejection reports whether err is a precondition rejection that left the
// pipeline unchanged.
func IsRejection(err error) bool {
	return errors.Is(err, apperr.ErrAssetUnavailable) || errors.Is(err, apperr.ErrConcurrentExport)
}
