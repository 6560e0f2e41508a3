// Package audio decodes and encodes PCM WAV files and measures signal energy.
package audio

import (
	"errors"
	"fmt"
	"math"
)

// Static errors for buffer operations.
var (
	// ErrFormatMismatch is returned when buffers with different layouts are concatenated.
	ErrFormatMismatch = errors.New("audio format mismatch")
	// ErrInvalidLayout is returned when a buffer's channel layout cannot hold its samples.
	ErrInvalidLayout = errors.New("invalid channel layout")
)

// Buffer is a decoded block of integer PCM audio.
// Samples are interleaved by channel. A Buffer is not modified after creation;
// operations that derive new audio return new Buffers.
type Buffer struct {
	// Data holds interleaved samples as read from the file.
	Data []int
	// SampleRate is the number of frames per second.
	SampleRate int
	// NumChannels is the number of interleaved channels.
	NumChannels int
	// BitDepth is the number of bits per sample (8, 16, 24 or 32).
	BitDepth int
}

// Format describes the layout of a Buffer without its samples.
type Format struct {
	SampleRate  int `json:"sample_rate"`
	NumChannels int `json:"channels"`
	BitDepth    int `json:"bits_per_sample"`
}

// Format returns the layout of the buffer.
func (b *Buffer) Format() Format {
	return Format{SampleRate: b.SampleRate, NumChannels: b.NumChannels, BitDepth: b.BitDepth}
}

// Validate checks that the buffer layout is usable.
func (b *Buffer) Validate() error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidLayout, b.SampleRate)
	}
	if b.NumChannels <= 0 {
		return fmt.Errorf("%w: %d channels", ErrInvalidLayout, b.NumChannels)
	}
	if len(b.Data)%b.NumChannels != 0 {
		return fmt.Errorf("%w: %d samples do not divide into %d channels", ErrInvalidLayout, len(b.Data), b.NumChannels)
	}
	switch b.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidLayout, b.BitDepth)
	}
	return nil
}

// Frames returns the number of sample frames (one sample per channel).
func (b *Buffer) Frames() int {
	if b.NumChannels <= 0 {
		return 0
	}
	return len(b.Data) / b.NumChannels
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// FrameAt converts a time offset in seconds to the nearest frame index,
// clamped to [0, Frames()].
func (b *Buffer) FrameAt(t float64) int {
	f := int(math.Round(t * float64(b.SampleRate)))
	if f < 0 {
		return 0
	}
	if n := b.Frames(); f > n {
		return n
	}
	return f
}

// Slice returns the audio between start and end seconds as a new Buffer.
// Bounds are rounded to frames, so adjacent slices sharing a boundary
// never overlap or leave a gap.
func (b *Buffer) Slice(start, end float64) *Buffer {
	from, to := b.FrameAt(start), b.FrameAt(end)
	if to < from {
		to = from
	}
	data := make([]int, (to-from)*b.NumChannels)
	copy(data, b.Data[from*b.NumChannels:to*b.NumChannels])
	return &Buffer{
		Data:        data,
		SampleRate:  b.SampleRate,
		NumChannels: b.NumChannels,
		BitDepth:    b.BitDepth,
	}
}

// Concat joins buffers in order. All buffers must share the same Format.
func Concat(bufs ...*Buffer) (*Buffer, error) {
	if len(bufs) == 0 {
		return nil, errors.New("concat: no buffers")
	}
	format := bufs[0].Format()
	total := 0
	for i, b := range bufs {
		if b.Format() != format {
			return nil, fmt.Errorf("%w: buffer %d is %+v, want %+v", ErrFormatMismatch, i, b.Format(), format)
		}
		total += len(b.Data)
	}

	data := make([]int, 0, total)
	for _, b := range bufs {
		data = append(data, b.Data...)
	}
	return &Buffer{
		Data:        data,
		SampleRate:  format.SampleRate,
		NumChannels: format.NumChannels,
		BitDepth:    format.BitDepth,
	}, nil
}

// frameEnergy returns the normalized mean-square of frame i over its channels.
func (b *Buffer) frameEnergy(i int) float64 {
	scale := 1 / b.maxAmplitude()
	off := b.offset()
	var sum float64
	for _, v := range b.Data[i*b.NumChannels : (i+1)*b.NumChannels] {
		x := float64(v-off) * scale
		sum += x * x
	}
	return math.Min(sum/float64(b.NumChannels), 1)
}

// maxAmplitude returns the largest representable magnitude for the bit depth.
func (b *Buffer) maxAmplitude() float64 {
	return math.Exp2(float64(b.BitDepth - 1))
}

// offset returns the value that centres samples around zero.
// 8-bit PCM WAV data is unsigned.
func (b *Buffer) offset() int {
	if b.BitDepth == 8 {
		return 128
	}
	return 0
}
