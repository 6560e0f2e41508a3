package audio

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidStep is returned when the energy window length is not positive.
var ErrInvalidStep = errors.New("step duration must be positive")

// Window is the energy of one analysis window.
type Window struct {
	// Index is the position of the window in the profile.
	Index int `json:"index"`
	// Energy is the normalized mean-square amplitude in [0,1].
	Energy float64 `json:"energy"`
}

// EnergyProfile is a time series of per-window signal energy.
// Windows are contiguous and cover the whole buffer; the last one may be
// shorter than Step.
type EnergyProfile struct {
	Windows []Window `json:"windows"`
	// Step is the requested window length in seconds.
	Step float64 `json:"step_duration"`
	// StepFrames is the window length actually used, in frames.
	StepFrames int `json:"step_frames"`
	// SampleRate of the analysed buffer.
	SampleRate int `json:"sample_rate"`
	// TotalFrames of the analysed buffer.
	TotalFrames int `json:"total_frames"`

	buf *Buffer
}

// HasFrames reports whether the analysed samples are attached, so that
// FrameEnergy can resolve positions finer than a window.
func (p *EnergyProfile) HasFrames() bool {
	return p.buf != nil
}

// FrameEnergy returns the normalized energy of a single frame, averaged over
// its channels. It returns 0 when no samples are attached.
func (p *EnergyProfile) FrameEnergy(frame int) float64 {
	if p.buf == nil {
		return 0
	}
	return p.buf.frameEnergy(frame)
}

// Duration returns the length of the analysed buffer in seconds.
func (p *EnergyProfile) Duration() float64 {
	return float64(p.TotalFrames) / float64(p.SampleRate)
}

// WindowStart returns the start time of window i in seconds.
func (p *EnergyProfile) WindowStart(i int) float64 {
	return float64(i*p.StepFrames) / float64(p.SampleRate)
}

// WindowDuration returns the length of window i in seconds.
func (p *EnergyProfile) WindowDuration(i int) float64 {
	frames := min(p.StepFrames, p.TotalFrames-i*p.StepFrames)
	return float64(frames) / float64(p.SampleRate)
}

// ComputeEnergy splits buf into non-overlapping windows of step seconds and
// returns the normalized mean-square energy of each. Samples of every channel
// contribute to their window. A trailing partial window is kept.
func ComputeEnergy(buf *Buffer, step float64) (*EnergyProfile, error) {
	if !(step > 0) || math.IsInf(step, 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidStep, step)
	}
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	stepFrames := max(int(math.Round(step*float64(buf.SampleRate))), 1)
	frames := buf.Frames()
	ch := buf.NumChannels
	scale := 1 / buf.maxAmplitude()
	off := buf.offset()

	profile := &EnergyProfile{
		Windows:     make([]Window, 0, (frames+stepFrames-1)/stepFrames),
		Step:        step,
		StepFrames:  stepFrames,
		SampleRate:  buf.SampleRate,
		TotalFrames: frames,
		buf:         buf,
	}

	scratch := make([]float64, stepFrames*ch)
	for start, idx := 0, 0; start < frames; start, idx = start+stepFrames, idx+1 {
		end := min(start+stepFrames, frames)
		w := scratch[:(end-start)*ch]
		for i, v := range buf.Data[start*ch : end*ch] {
			w[i] = float64(v-off) * scale
		}
		energy := floats.Dot(w, w) / float64(len(w))
		profile.Windows = append(profile.Windows, Window{Index: idx, Energy: math.Min(energy, 1)})
	}

	return profile, nil
}
