package audio

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	FFTSize  = 256
	BinCount = FFTSize / 2

	smoothing   = 0.8
	minDecibels = -100.0
	maxDecibels = -30.0
)

// Analyser keeps the most recent FFTSize mono samples and maintains a
// smoothed byte-magnitude spectrum over them, one refresh per pushed frame.
type Analyser struct {
	window []float64

	mu       sync.Mutex
	ring     [FFTSize]float64
	pos      int
	smoothed [BinCount]float64
	bins     [BinCount]uint8
}

func NewAnalyser() *Analyser {
	return &Analyser{window: window.Blackman(FFTSize)}
}

// Push downmixes an interleaved stereo frame into the analysis window and
// refreshes the spectrum.
func (a *Analyser) Push(frame []int16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := 0; i+1 < len(frame); i += Channels {
		a.ring[a.pos] = (float64(frame[i]) + float64(frame[i+1])) / 2 / 32768
		a.pos = (a.pos + 1) % FFTSize
	}
	a.refresh()
}

func (a *Analyser) refresh() {
	x := make([]float64, FFTSize)
	for i := range x {
		x[i] = a.ring[(a.pos+i)%FFTSize] * a.window[i]
	}
	spectrum := fft.FFTReal(x)

	for k := 0; k < BinCount; k++ {
		mag := cmplx.Abs(spectrum[k]) / FFTSize
		a.smoothed[k] = smoothing*a.smoothed[k] + (1-smoothing)*mag
		a.bins[k] = toByte(a.smoothed[k])
	}
}

func toByte(mag float64) uint8 {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	v := math.Floor(255 / (maxDecibels - minDecibels) * (db - minDecibels))
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

// Snapshot returns a copy of the current spectrum. It never blocks on audio.
func (a *Analyser) Snapshot() []uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]uint8, BinCount)
	copy(out, a.bins[:])
	return out
}

// Reset clears the window and the smoothed spectrum.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ring = [FFTSize]float64{}
	a.smoothed = [BinCount]float64{}
	a.bins = [BinCount]uint8{}
	a.pos = 0
}
