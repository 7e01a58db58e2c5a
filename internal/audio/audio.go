package audio

import "time"

const (
	SampleRate    = 48000
	Channels      = 2
	BitDepth      = 16
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // total interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // bytes per frame (int16 = 2 bytes)
)

// Asset is a fully decoded audio file: interleaved stereo int16 at 48kHz.
type Asset struct {
	Path    string
	Samples []int16
}

// NewAsset wraps already decoded samples.
func NewAsset(path string, samples []int16) *Asset {
	return &Asset{Path: path, Samples: samples}
}

// Frames returns the number of 20ms frames, counting a trailing partial frame.
func (a *Asset) Frames() int {
	return (len(a.Samples) + FrameSamples - 1) / FrameSamples
}

// Duration returns the playback length of the asset.
func (a *Asset) Duration() time.Duration {
	return time.Duration(len(a.Samples)/Channels) * time.Second / SampleRate
}

// Frame returns frame i, zero-padded when it is the trailing partial frame.
func (a *Asset) Frame(i int) []int16 {
	start := i * FrameSamples
	end := start + FrameSamples
	if end <= len(a.Samples) {
		return a.Samples[start:end]
	}
	frame := make([]int16, FrameSamples)
	if start < len(a.Samples) {
		copy(frame, a.Samples[start:])
	}
	return frame
}
