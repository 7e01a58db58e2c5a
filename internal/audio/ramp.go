package audio

// Smoothstep returns the smoothstep interpolation for t in [0,1].
// Formula: 3t^2 - 2t^3.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// FadeIn returns a copy of an interleaved stereo frame with a smoothstep gain
// ramp from silence to full level. The player applies it to the first frame
// after a start or seek so playback never begins on a click.
func FadeIn(frame []int16) []int16 {
	out := make([]int16, len(frame))
	pairs := len(frame) / Channels
	for i := 0; i < pairs; i++ {
		gain := Smoothstep(float64(i) / float64(pairs))
		for c := 0; c < Channels; c++ {
			j := i*Channels + c
			out[j] = int16(float64(frame[j]) * gain)
		}
	}
	copy(out[pairs*Channels:], frame[pairs*Channels:])
	return out
}
