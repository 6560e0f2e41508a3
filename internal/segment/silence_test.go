package segment_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/wavsegment/internal/audio"
	"github.com/maauso/wavsegment/internal/audio/audiotest"
	"github.com/maauso/wavsegment/internal/segment"
)

const testRate = 8000

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSegmenter(opts ...segment.Option) *segment.Segmenter {
	return segment.New(append([]segment.Option{segment.WithLogger(quietLogger())}, opts...)...)
}

// readAll decodes files in order and concatenates them.
func readAll(t *testing.T, paths []string) *audio.Buffer {
	t.Helper()
	bufs := make([]*audio.Buffer, 0, len(paths))
	for _, p := range paths {
		buf, err := audio.ReadWAV(p)
		require.NoError(t, err)
		bufs = append(bufs, buf)
	}
	return audiotest.Join(t, bufs...)
}

func TestSplitBySilence_SingleSilentRun(t *testing.T) {
	dir := t.TempDir()
	src := audiotest.Join(t,
		audiotest.Tone(2, testRate, 0.5),
		audiotest.Silence(3, testRate),
		audiotest.Tone(3, testRate, 0.5),
	)
	input := audiotest.WriteFixture(t, dir, "speech.wav", src)

	res, err := newSegmenter().SplitBySilence(input, segment.DefaultSilenceOptions())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, segment.ModeSilence, res.Mode)
	assert.Equal(t, 2, res.SplitCount)
	require.Len(t, res.SplitPoints, 1)
	assert.InDelta(t, 5.0, res.SplitPoints[0], 1e-9)
	assert.InDelta(t, 8.0, res.TotalDuration, 1e-9)
	assert.Equal(t, dir, res.OutputDir)
	assert.Equal(t, []string{
		filepath.Join(dir, "speech_001.wav"),
		filepath.Join(dir, "speech_002.wav"),
	}, res.OutputFiles)

	first, err := audio.ReadWAV(res.OutputFiles[0])
	require.NoError(t, err)
	assert.InDelta(t, 5.0, first.Duration(), 1e-9)

	second, err := audio.ReadWAV(res.OutputFiles[1])
	require.NoError(t, err)
	assert.InDelta(t, 3.0, second.Duration(), 1e-9)
}

func TestSplitBySilence_DefaultOptionsAcrossRates(t *testing.T) {
	// The silence spans [2s, 5s), which no default window boundary matches.
	for _, rate := range []int{8000, 16000, 44100} {
		t.Run(strconv.Itoa(rate), func(t *testing.T) {
			dir := t.TempDir()
			src := audiotest.Join(t,
				audiotest.Tone(2, rate, 0.5),
				audiotest.Silence(3, rate),
				audiotest.Tone(3, rate, 0.5),
			)
			input := audiotest.WriteFixture(t, dir, "call.wav", src)

			opts := segment.DefaultSilenceOptions()
			opts.DryRun = true

			res, err := newSegmenter().SplitBySilence(input, opts)
			require.NoError(t, err)

			require.Len(t, res.SplitPoints, 1)
			assert.InDelta(t, 5.0, res.SplitPoints[0], 1e-9)
			assert.Equal(t, 2, res.SplitCount)
		})
	}
}

func TestSplitBySilence_ShorterThanMinimumAfterRefinement(t *testing.T) {
	dir := t.TempDir()
	src := audiotest.Join(t,
		audiotest.Tone(2, testRate, 0.5),
		audiotest.Silence(2.95, testRate),
		audiotest.Tone(3, testRate, 0.5),
	)
	input := audiotest.WriteFixture(t, dir, "short.wav", src)

	opts := segment.DefaultSilenceOptions()
	opts.DryRun = true

	res, err := newSegmenter().SplitBySilence(input, opts)
	require.NoError(t, err)

	assert.Empty(t, res.SplitPoints)
	assert.Equal(t, 1, res.SplitCount)
}

func TestSplitBySilence_Reconstruction(t *testing.T) {
	dir := t.TempDir()
	src := audiotest.Join(t,
		audiotest.Ramp(1, testRate),
		audiotest.Silence(1.5, testRate),
		audiotest.Ramp(1, testRate),
		audiotest.Silence(1.5, testRate),
		audiotest.Ramp(0.5, testRate),
	)
	input := audiotest.WriteFixture(t, dir, "ramp.wav", src)
	out := filepath.Join(dir, "out")

	res, err := newSegmenter().SplitBySilence(input, segment.SilenceOptions{
		MinSilenceLength: 1,
		SilenceThreshold: 1e-6,
		StepDuration:     0.1,
		OutputDir:        out,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.SplitCount)
	assert.Equal(t, out, res.OutputDir)
	assert.Equal(t, src.Data, readAll(t, res.OutputFiles).Data)
}

func TestSplitBySilence_TrailingSilenceDoesNotSplit(t *testing.T) {
	dir := t.TempDir()
	src := audiotest.Join(t,
		audiotest.Tone(1, testRate, 0.5),
		audiotest.Silence(4, testRate),
	)
	input := audiotest.WriteFixture(t, dir, "tail.wav", src)

	opts := segment.DefaultSilenceOptions()
	opts.DryRun = true

	res, err := newSegmenter().SplitBySilence(input, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, res.SplitCount)
	assert.Empty(t, res.SplitPoints)
}

func TestSplitBySilence_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	src := audiotest.Join(t,
		audiotest.Tone(1, testRate, 0.5),
		audiotest.Silence(3, testRate),
		audiotest.Tone(1, testRate, 0.5),
	)
	input := audiotest.WriteFixture(t, dir, "dry.wav", src)
	out := filepath.Join(dir, "segments")

	opts := segment.DefaultSilenceOptions()
	opts.OutputDir = out
	opts.DryRun = true

	res, err := newSegmenter().SplitBySilence(input, opts)
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, 2, res.SplitCount)
	assert.Len(t, res.OutputFiles, 2)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSplitBySilence_Validation(t *testing.T) {
	tests := []struct {
		name  string
		opts  segment.SilenceOptions
		param string
	}{
		{"zero min silence", segment.SilenceOptions{MinSilenceLength: 0, SilenceThreshold: 0.1}, "min_silence_length"},
		{"negative min silence", segment.SilenceOptions{MinSilenceLength: -1, SilenceThreshold: 0.1}, "min_silence_length"},
		{"threshold above one", segment.SilenceOptions{MinSilenceLength: 1, SilenceThreshold: 1.5}, "silence_threshold"},
		{"negative threshold", segment.SilenceOptions{MinSilenceLength: 1, SilenceThreshold: -0.1}, "silence_threshold"},
		{"negative step", segment.SilenceOptions{MinSilenceLength: 1, StepDuration: -0.1}, "step_duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The input does not exist: validation must fail before any I/O.
			_, err := newSegmenter().SplitBySilence("/nonexistent/input.wav", tt.opts)

			require.Error(t, err)
			assert.ErrorIs(t, err, segment.ErrValidation)
			var serr *segment.Error
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.param, serr.Param)
		})
	}
}

func TestSplitBySilence_MissingFile(t *testing.T) {
	_, err := newSegmenter().SplitBySilence(filepath.Join(t.TempDir(), "missing.wav"), segment.DefaultSilenceOptions())

	require.Error(t, err)
	assert.ErrorIs(t, err, segment.ErrFileAccess)
	assert.ErrorIs(t, err, audio.ErrFileNotFound)
	assert.Equal(t, "file_access", segment.KindOf(err))
}

func TestSplitBySilence_UndecodableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a RIFF file"), 0o600))

	_, err := newSegmenter().SplitBySilence(path, segment.DefaultSilenceOptions())

	assert.ErrorIs(t, err, segment.ErrFileAccess)
}

func TestSplitBySilence_EmptyAudio(t *testing.T) {
	src := &mockSource{}
	src.On("Read", "empty.wav").Return(&audio.Buffer{SampleRate: testRate, NumChannels: 1, BitDepth: 16}, nil)

	_, err := newSegmenter(segment.WithSource(src)).SplitBySilence("empty.wav", segment.DefaultSilenceOptions())

	require.Error(t, err)
	assert.ErrorIs(t, err, segment.ErrProcessing)
	src.AssertExpectations(t)
}
