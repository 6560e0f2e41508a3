package segment

import (
	"github.com/maauso/wavsegment/internal/audio"
)

// timeEpsilon absorbs floating point noise when comparing durations.
const timeEpsilon = 1e-9

// Span is a half-open interval [Start, End) in seconds.
type Span struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the length of the span in seconds.
func (s Span) Duration() float64 {
	return s.End - s.Start
}

// SplitPlan is an ordered list of spans over a buffer of length Total.
// Silence plans and time plans without overlap partition [0, Total) exactly.
type SplitPlan struct {
	Spans []Span  `json:"spans"`
	Total float64 `json:"total_duration"`
}

// SplitPoints returns the start of every span but the first.
func (p SplitPlan) SplitPoints() []float64 {
	if len(p.Spans) < 2 {
		return []float64{}
	}
	points := make([]float64, 0, len(p.Spans)-1)
	for _, s := range p.Spans[1:] {
		points = append(points, s.Start)
	}
	return points
}

// planFromEdges partitions [0, total) at the given increasing split points.
func planFromEdges(edges []float64, total float64) SplitPlan {
	if total <= 0 {
		return SplitPlan{Spans: []Span{}, Total: 0}
	}
	spans := make([]Span, 0, len(edges)+1)
	start := 0.0
	for _, e := range edges {
		spans = append(spans, Span{Start: start, End: e})
		start = e
	}
	spans = append(spans, Span{Start: start, End: total})
	return SplitPlan{Spans: spans, Total: total}
}

// PlanSilence places a split point at every rising edge that ends a run of
// silent windows lasting at least minSilence seconds. A window is silent
// when its energy is strictly below threshold. When the profile carries its
// samples, the start of the silence and the rising edge are resolved to the
// exact frame inside the windows bordering the run, so the measured length
// and the split point do not depend on window alignment. A silent run that
// reaches the end of the profile produces no split point.
func PlanSilence(profile *audio.EnergyProfile, threshold, minSilence float64) SplitPlan {
	if profile.TotalFrames == 0 {
		return planFromEdges(nil, 0)
	}

	var edges []float64
	runStart := -1
	for i, w := range profile.Windows {
		if w.Energy < threshold {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 {
			start, edge := silenceBounds(profile, runStart, i, threshold)
			if edge-start >= minSilence-timeEpsilon {
				edges = append(edges, edge)
			}
			runStart = -1
		}
	}

	return planFromEdges(edges, profile.Duration())
}

// silenceBounds returns the start and end in seconds of the silence made of
// windows [first, sound). The window at sound holds at least one frame at or
// above threshold, since its mean energy is.
func silenceBounds(p *audio.EnergyProfile, first, sound int, threshold float64) (float64, float64) {
	startFrame := first * p.StepFrames
	edgeFrame := sound * p.StepFrames
	if p.HasFrames() {
		lower := max((first-1)*p.StepFrames, 0)
		for startFrame > lower && p.FrameEnergy(startFrame-1) < threshold {
			startFrame--
		}
		upper := min((sound+1)*p.StepFrames, p.TotalFrames)
		for edgeFrame < upper && p.FrameEnergy(edgeFrame) < threshold {
			edgeFrame++
		}
	}
	rate := float64(p.SampleRate)
	return float64(startFrame) / rate, float64(edgeFrame) / rate
}

// PlanTime lays fixed windows of chunk seconds every chunk-overlap seconds
// over [0, total), clipping the last one to the end. When the last window is
// clipped and the part of it not already covered by the previous window is
// shorter than tailRatio*chunk, it is folded into the previous window.
// Arguments are assumed valid: chunk > 0 and 0 <= overlap < chunk.
func PlanTime(total, chunk, overlap, tailRatio float64) SplitPlan {
	if total <= 0 {
		return SplitPlan{Spans: []Span{}, Total: 0}
	}

	step := chunk - overlap
	var spans []Span
	for k := 0; ; k++ {
		start := float64(k) * step
		if start >= total-timeEpsilon {
			break
		}
		end := min(start+chunk, total)
		spans = append(spans, Span{Start: start, End: end})
		if end >= total {
			break
		}
	}

	if n := len(spans); n >= 2 {
		last, prev := spans[n-1], spans[n-2]
		clipped := last.Duration() < chunk-timeEpsilon
		if clipped && last.End-prev.End < tailRatio*chunk {
			spans[n-2].End = last.End
			spans = spans[:n-1]
		}
	}

	return SplitPlan{Spans: spans, Total: total}
}
