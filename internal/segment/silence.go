package segment

import (
	"log/slog"

	"github.com/maauso/wavsegment/internal/audio"
)

// SplitBySilence splits the WAV file at input wherever a silent run of at
// least opts.MinSilenceLength seconds gives way to sound. The split point is
// the first frame of sound after the run, so the silence stays with the
// segment before it.
func (s *Segmenter) SplitBySilence(input string, opts SilenceOptions) (*SplitResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	buf, err := s.loadForSplit(input)
	if err != nil {
		return nil, err
	}

	profile, err := audio.ComputeEnergy(buf, opts.Step())
	if err != nil {
		return nil, processingError(input, "compute energy", err)
	}

	plan := PlanSilence(profile, opts.SilenceThreshold, opts.MinSilenceLength)
	outputDir := outputDirFor(input, opts.OutputDir)
	segments := materialize(plan, outputDir, sourceName(input), SilenceSegmentName)

	s.logger.Info("silence split planned",
		slog.String("input", input),
		slog.Float64("duration", plan.Total),
		slog.Int("windows", len(profile.Windows)),
		slog.Int("segments", len(segments)),
	)

	if !opts.DryRun {
		if err := s.writeSegments(buf, segments); err != nil {
			return nil, err
		}
	}

	return newSplitResult(ModeSilence, input, outputDir, plan, segments, opts.DryRun), nil
}
