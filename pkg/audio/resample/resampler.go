// ABOUTME: Streaming linear resampler with an adjustable rate
// ABOUTME: Keeps interpolation state across calls for rate-matched playback
package resample

import "math"

const historyFrames = 2

// Resampler performs linear interpolation between two input frames per
// output frame. It keeps the last two input frames and the fractional read
// position between calls, so output is continuous across chunk boundaries.
// Output lags input by two frames.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int

	baseRatio float64 // input frames per output frame at rate 1
	rate      float64
	step      float64

	position float64
	hist0    []int32
	hist1    []int32
}

// New creates a resampler from inputRate to outputRate
func New(inputRate, outputRate, channels int) *Resampler {
	if inputRate <= 0 || outputRate <= 0 || channels <= 0 {
		panic("resample: rates and channels must be positive")
	}

	r := &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		baseRatio:  float64(inputRate) / float64(outputRate),
		hist0:      make([]int32, channels),
		hist1:      make([]int32, channels),
	}
	r.SetRate(1)
	return r
}

// SetRate scales the output/input frame ratio. A rate below 1 consumes
// input faster than nominal.
func (r *Resampler) SetRate(rate float64) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return
	}
	r.rate = rate
	r.step = r.baseRatio / rate
}

// Rate returns the current rate adjustment
func (r *Resampler) Rate() float64 {
	return r.rate
}

// Channels returns the interleaved channel count
func (r *Resampler) Channels() int {
	return r.channels
}

// InputFramesNeeded returns how many input frames the next Process call
// consumes to produce outputFrames frames
func (r *Resampler) InputFramesNeeded(outputFrames int) int {
	return int(r.position + float64(outputFrames)*r.step)
}

// Process fills output with interleaved frames interpolated from input.
// input must hold at least InputFramesNeeded(len(output)/channels) frames.
// It returns the number of input frames consumed.
func (r *Resampler) Process(input, output []int32) int {
	ch := r.channels
	outputFrames := len(output) / ch
	consumed := r.InputFramesNeeded(outputFrames)
	if len(input) < consumed*ch {
		panic("resample: not enough input frames")
	}

	for j := 0; j < outputFrames; j++ {
		pos := r.position + float64(j)*r.step
		idx := int(pos)
		frac := pos - float64(idx)
		a := r.frame(input, idx)
		b := r.frame(input, idx+1)

		for c := 0; c < ch; c++ {
			interpolated := float64(a[c])*(1.0-frac) + float64(b[c])*frac
			output[j*ch+c] = int32(math.Round(interpolated))
		}
	}

	switch consumed {
	case 0:
	case 1:
		copy(r.hist0, r.hist1)
		copy(r.hist1, input[:ch])
	default:
		copy(r.hist0, input[(consumed-2)*ch:(consumed-1)*ch])
		copy(r.hist1, input[(consumed-1)*ch:consumed*ch])
	}
	r.position = r.position + float64(outputFrames)*r.step - float64(consumed)

	return consumed
}

// frame returns frame k of the history followed by input
func (r *Resampler) frame(input []int32, k int) []int32 {
	switch k {
	case 0:
		return r.hist0
	case 1:
		return r.hist1
	}
	return input[(k-2)*r.channels : (k-1)*r.channels]
}

// Delay returns how many input frames the output lags behind the input
func (r *Resampler) Delay() int {
	return historyFrames
}

// Reset clears the history and read position, keeping the rate
func (r *Resampler) Reset() {
	r.position = 0
	for i := range r.hist0 {
		r.hist0[i] = 0
		r.hist1[i] = 0
	}
}

// OutputFramesAvailable returns how many output frames inputFrames frames
// can produce at the current rate
func (r *Resampler) OutputFramesAvailable(inputFrames int) int {
	return int((float64(inputFrames) - r.position) / r.step)
}
