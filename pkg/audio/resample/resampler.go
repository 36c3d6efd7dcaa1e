// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Streams interleaved int16 chunks at one rate out at another
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64 // relative to prev, which is frame 0
	prev       []int16 // last input frame of the previous chunk
	primed     bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		prev:       make([]int16, channels),
	}
}

// Resample converts input samples to output sample rate using linear interpolation.
// input and output are interleaved; output should hold OutputCapacity(len(input))
// samples, anything beyond its length is dropped. Returns samples written.
func (r *Resampler) Resample(input []int16, output []int16) int {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return 0
	}
	outputFrames := len(output) / r.channels

	if !r.primed {
		// Start exactly on the first input frame
		r.position = 1
		r.primed = true
	}

	frame := func(k int) []int16 {
		if k == 0 {
			return r.prev
		}
		return input[(k-1)*r.channels : k*r.channels]
	}

	outIdx := 0
	for outIdx < outputFrames && r.position <= float64(inputFrames) {
		idx := int(r.position)
		frac := r.position - float64(idx)
		a, b := frame(idx), frame(idx)
		if idx < inputFrames {
			b = frame(idx + 1)
		}

		for ch := 0; ch < r.channels; ch++ {
			interpolated := float64(a[ch])*(1.0-frac) + float64(b[ch])*frac
			output[outIdx*r.channels+ch] = int16(interpolated)
		}

		outIdx++
		r.position += r.ratio
	}

	// Keep the position relative to the new prev frame
	r.position -= float64(inputFrames)
	if r.position < 0 {
		// output was full; the rest of this chunk is dropped
		r.position = 0
	}
	copy(r.prev, input[(inputFrames-1)*r.channels:inputFrames*r.channels])

	return outIdx * r.channels
}

// OutputCapacity returns an output size that always fits the result of
// resampling inputSamples
func (r *Resampler) OutputCapacity(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	return (int(float64(inputFrames)/r.ratio) + 2) * r.channels
}

// InputFramesFor returns how many input frames can be resampled without
// producing more than outputFrames frames
func (r *Resampler) InputFramesFor(outputFrames int) int {
	if outputFrames <= 1 {
		return 0
	}
	return int(float64(outputFrames-1) * r.ratio)
}
