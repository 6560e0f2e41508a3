package segment

import "log/slog"

// SplitByTime splits the WAV file at input into windows of
// opts.ChunkDuration seconds, consecutive windows sharing opts.Overlap
// seconds. A short clipped tail is merged into the window before it.
func (s *Segmenter) SplitByTime(input string, opts TimeOptions) (*SplitResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	buf, err := s.loadForSplit(input)
	if err != nil {
		return nil, err
	}

	plan := PlanTime(buf.Duration(), opts.ChunkDuration, opts.Overlap, opts.TailRatio())
	outputDir := outputDirFor(input, opts.OutputDir)
	segments := materialize(plan, outputDir, sourceName(input), TimeSegmentName)

	s.logger.Info("time split planned",
		slog.String("input", input),
		slog.Float64("duration", plan.Total),
		slog.Float64("chunk", opts.ChunkDuration),
		slog.Float64("overlap", opts.Overlap),
		slog.Int("segments", len(segments)),
	)

	if !opts.DryRun {
		if err := s.writeSegments(buf, segments); err != nil {
			return nil, err
		}
	}

	res := newSplitResult(ModeTime, input, outputDir, plan, segments, opts.DryRun)
	res.ChunkDuration = opts.ChunkDuration
	res.Overlap = opts.Overlap
	return res, nil
}
