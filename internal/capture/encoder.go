package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/satindergrewal/promoreel/internal/audio"
)

const (
	DefaultVideoBitrate = 8000000
	DefaultFFmpeg       = "ffmpeg"

	ContainerMIME = "video/webm"
	containerExt  = ".webm"

	chunkSize = 64 * 1024
)

// Encoder turns raw frames and PCM into one muxed container. WriteFrame and
// WriteAudio may be called from different goroutines.
type Encoder interface {
	Start() error
	WriteFrame(img *image.RGBA) error
	WriteAudio(pcm []int16) error
	// Close ends both inputs and waits until every output chunk is collected.
	Close() error
	// Abort kills the encoder and discards its output.
	Abort()
	Chunks() [][]byte
}

type EncoderConfig struct {
	FFmpeg       string
	Width        int
	Height       int
	FPS          int
	VideoBitrate int
}

// EncoderFactory builds the encoder for one session.
type EncoderFactory func(EncoderConfig) Encoder

// NewFFmpegEncoder is the default EncoderFactory.
func NewFFmpegEncoder(cfg EncoderConfig) Encoder {
	if cfg.FFmpeg == "" {
		cfg.FFmpeg = DefaultFFmpeg
	}
	if cfg.VideoBitrate <= 0 {
		cfg.VideoBitrate = DefaultVideoBitrate
	}
	return &FFmpegEncoder{cfg: cfg}
}

// FFmpegEncoder reads rawvideo RGBA on stdin and s16le PCM on fd 3, and
// writes WebM (VP9 + Opus) to stdout. Every read from stdout is kept as a
// chunk, in order.
type FFmpegEncoder struct {
	cfg EncoderConfig

	cmd    *exec.Cmd
	video  io.WriteCloser
	audio  *os.File
	stderr bytes.Buffer
	read   chan struct{}

	mu      sync.Mutex
	chunks  [][]byte
	readErr error
	closed  bool
}

func (e *FFmpegEncoder) args() []string {
	c := e.cfg
	return []string{
		"-loglevel", "error",
		"-thread_queue_size", "512",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", c.Width, c.Height),
		"-r", strconv.Itoa(c.FPS),
		"-i", "pipe:0",
		"-thread_queue_size", "512",
		"-f", "s16le",
		"-ar", strconv.Itoa(audio.SampleRate),
		"-ac", strconv.Itoa(audio.Channels),
		"-i", "pipe:3",
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "libvpx-vp9",
		"-b:v", strconv.Itoa(c.VideoBitrate),
		"-deadline", "realtime",
		"-cpu-used", "8",
		"-row-mt", "1",
		"-pix_fmt", "yuv420p",
		"-c:a", "libopus",
		"-b:a", "128k",
		"-f", "webm",
		"pipe:1",
	}
}

func (e *FFmpegEncoder) Start() error {
	ar, aw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("audio pipe: %w", err)
	}

	// Not tied to any request context; the session owns the process lifetime.
	cmd := exec.Command(e.cfg.FFmpeg, e.args()...)
	cmd.ExtraFiles = []*os.File{ar}
	cmd.Stderr = &e.stderr

	video, err := cmd.StdinPipe()
	if err != nil {
		ar.Close()
		aw.Close()
		return fmt.Errorf("stdin pipe: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		ar.Close()
		aw.Close()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		ar.Close()
		aw.Close()
		return fmt.Errorf("start %s: %w", e.cfg.FFmpeg, err)
	}
	ar.Close()

	e.cmd, e.video, e.audio = cmd, video, aw
	e.read = make(chan struct{})
	go e.collect(out)
	return nil
}

func (e *FFmpegEncoder) collect(out io.Reader) {
	defer close(e.read)
	buf := make([]byte, chunkSize)
	for {
		n, err := out.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			e.mu.Lock()
			e.chunks = append(e.chunks, chunk)
			e.mu.Unlock()
		}
		if err != nil {
			if err != io.EOF {
				e.mu.Lock()
				e.readErr = err
				e.mu.Unlock()
			}
			return
		}
	}
}

func (e *FFmpegEncoder) WriteFrame(img *image.RGBA) error {
	_, err := e.video.Write(img.Pix)
	return err
}

func (e *FFmpegEncoder) WriteAudio(pcm []int16) error {
	_, err := e.audio.Write(audio.SamplesToBytes(pcm))
	return err
}

func (e *FFmpegEncoder) markClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.cmd == nil {
		return false
	}
	e.closed = true
	return true
}

func (e *FFmpegEncoder) Close() error {
	if !e.markClosed() {
		return errors.New("encoder not running")
	}
	e.video.Close()
	e.audio.Close()
	<-e.read
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(e.stderr.String()))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.readErr
}

func (e *FFmpegEncoder) Abort() {
	if !e.markClosed() {
		return
	}
	e.cmd.Process.Kill()
	e.video.Close()
	e.audio.Close()
	<-e.read
	e.cmd.Wait()
	e.mu.Lock()
	e.chunks = nil
	e.mu.Unlock()
}

func (e *FFmpegEncoder) Chunks() [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]byte, len(e.chunks))
	copy(out, e.chunks)
	return out
}
