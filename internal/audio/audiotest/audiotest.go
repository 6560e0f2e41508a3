// Package audiotest builds synthetic PCM buffers and WAV fixtures for tests.
package audiotest

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/maauso/wavsegment/internal/audio"
)

// DefaultSampleRate is used by the helpers when no rate is given.
const DefaultSampleRate = 16000

// Tone returns a mono 16-bit cosine wave at 440Hz with the given peak
// amplitude as a fraction of full scale. The first sample is at the peak, so
// a tone following silence starts exactly at its first frame.
func Tone(seconds float64, sampleRate int, amplitude float64) *audio.Buffer {
	n := int(math.Round(seconds * float64(sampleRate)))
	data := make([]int, n)
	peak := amplitude * 32767
	for i := range data {
		data[i] = int(math.Round(peak * math.Cos(2*math.Pi*440*float64(i)/float64(sampleRate))))
	}
	return &audio.Buffer{Data: data, SampleRate: sampleRate, NumChannels: 1, BitDepth: 16}
}

// Silence returns a mono 16-bit buffer of zeros.
func Silence(seconds float64, sampleRate int) *audio.Buffer {
	n := int(math.Round(seconds * float64(sampleRate)))
	return &audio.Buffer{Data: make([]int, n), SampleRate: sampleRate, NumChannels: 1, BitDepth: 16}
}

// Ramp returns a mono 16-bit buffer whose sample i equals i modulo 30000.
// Distinct values make reordering and gaps visible in comparisons.
func Ramp(seconds float64, sampleRate int) *audio.Buffer {
	n := int(math.Round(seconds * float64(sampleRate)))
	data := make([]int, n)
	for i := range data {
		data[i] = i%30000 + 1
	}
	return &audio.Buffer{Data: data, SampleRate: sampleRate, NumChannels: 1, BitDepth: 16}
}

// Join concatenates buffers and fails the test on a format mismatch.
func Join(t testing.TB, bufs ...*audio.Buffer) *audio.Buffer {
	t.Helper()
	out, err := audio.Concat(bufs...)
	if err != nil {
		t.Fatalf("concat fixtures: %v", err)
	}
	return out
}

// WriteFixture writes buf as a WAV file named name under dir and returns its path.
func WriteFixture(t testing.TB, dir, name string, buf *audio.Buffer) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := audio.WriteWAV(path, buf); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}
