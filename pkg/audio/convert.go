// Package audio provides the PCM format conversions needed to feed decoded
// recordings into transcription backends.
//
// Transcription engines want 16 kHz mono; recordings arrive at whatever rate
// and channel count they were captured with. The conversions here are lossy
// preprocessing for recognition only — the renderer always works on the
// untouched original buffer.
package audio

import (
	"encoding/binary"
	"math"

	gaudio "github.com/go-audio/audio"
)

// STTSampleRate is the sample rate expected by the whisper family of
// transcription engines.
const STTSampleRate = 16000

// DownmixMono averages the channels of an interleaved sample slice into a
// mono slice. Uses int64 arithmetic to prevent overflow. A mono input is
// returned unchanged.
func DownmixMono(data []int, channels int) []int {
	if channels <= 1 {
		return data
	}
	frames := len(data) / channels
	out := make([]int, frames)
	for i := 0; i < frames; i++ {
		var sum int64
		for ch := 0; ch < channels; ch++ {
			sum += int64(data[i*channels+ch])
		}
		out[i] = int(sum / int64(channels))
	}
	return out
}

// ResampleMono resamples mono samples from srcRate to dstRate using linear
// interpolation. If srcRate == dstRate the input is returned unchanged.
func ResampleMono(data []int, srcRate, dstRate int) []int {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(data) < 2 {
		return data
	}
	dstSamples := int(int64(len(data)) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]int, dstSamples)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range out {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := float64(data[srcIdx])
		s1 := s0
		if srcIdx+1 < len(data) {
			s1 = float64(data[srcIdx+1])
		}
		out[i] = int(s0*(1-frac) + s1*frac)
	}
	return out
}

// ForSTT converts a decoded PCM buffer into 16 kHz mono float32 samples in
// [-1, 1], the input format of whisper.cpp inference.
func ForSTT(buf *gaudio.IntBuffer) []float32 {
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil
	}
	mono := DownmixMono(buf.Data, buf.Format.NumChannels)
	mono = ResampleMono(mono, buf.Format.SampleRate, STTSampleRate)

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	out := make([]float32, len(mono))
	for i, s := range mono {
		v := float64(s) / scale
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = float32(v)
	}
	return out
}

// ForSTTPCM16 converts a decoded PCM buffer into 16 kHz mono 16-bit
// little-endian PCM bytes, the wire format of the whisper.cpp HTTP server.
func ForSTTPCM16(buf *gaudio.IntBuffer) []byte {
	samples := ForSTT(buf)
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := math.Round(float64(s) * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

// EncodeWAV wraps raw 16-bit signed little-endian PCM data in a standard
// RIFF/WAV container, suitable for multipart upload to a transcription
// server.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	const bitsPerSample = 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(pcm)

	buf := make([]byte, 44+dataSize)

	// RIFF chunk descriptor
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	// fmt sub-chunk
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)

	// data sub-chunk
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}
