package render

import "math"

// toneAmplitude converts a gain in dB relative to full scale into a peak
// sample value for the given bit depth. Unknown bit depths fall back to
// 16-bit full scale.
func toneAmplitude(bitDepth int, gainDB float64) float64 {
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		bitDepth = 16
	}
	fullScale := float64(int64(1)<<(bitDepth-1)) - 1
	return fullScale * math.Pow(10, gainDB/20)
}

// writeTone overwrites frames [startFrame, endFrame) of the interleaved
// sample slice with a sine wave of the given frequency and peak amplitude.
// The phase is anchored to the absolute frame index so adjacent intervals
// produced from separate matches stay phase-continuous.
func writeTone(data []int, startFrame, endFrame, channels, sampleRate int, freqHz, amp float64) {
	if startFrame >= endFrame || channels <= 0 || sampleRate <= 0 {
		return
	}
	step := 2 * math.Pi * freqHz / float64(sampleRate)
	for frame := startFrame; frame < endFrame; frame++ {
		sample := int(amp * math.Sin(step*float64(frame)))
		base := frame * channels
		for ch := 0; ch < channels; ch++ {
			data[base+ch] = sample
		}
	}
}
