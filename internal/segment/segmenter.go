// Package segment splits recordings into segments, by silence or by fixed
// time windows, and regroups segment files into duration-bounded joined files
// for transcription backends with size or length limits.
//
// Planning is separated from I/O: PlanSilence, PlanTime and PlanJoin are pure
// functions, and Segmenter wires them to a waveform Source and a segment Sink.
package segment

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/maauso/wavsegment/internal/audio"
)

// Source decodes an audio file into a buffer.
type Source interface {
	Read(path string) (*audio.Buffer, error)
}

// Sink persists a buffer as an audio file.
type Sink interface {
	Write(path string, buf *audio.Buffer) error
}

// Segmenter runs the silence, time and join pipelines.
// It holds no state between calls and is safe for concurrent use as long as
// concurrent calls do not write to the same output paths.
type Segmenter struct {
	source Source
	sink   Sink
	logger *slog.Logger
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithSource sets the waveform source. Defaults to audio.WAVCodec.
func WithSource(src Source) Option {
	return func(s *Segmenter) {
		s.source = src
	}
}

// WithSink sets the segment writer. Defaults to audio.WAVCodec.
func WithSink(sink Sink) Option {
	return func(s *Segmenter) {
		s.sink = sink
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Segmenter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Segmenter.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{
		source: audio.WAVCodec{},
		sink:   audio.WAVCodec{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment is one planned piece of a split.
type Segment struct {
	// Index is the 1-based position of the segment in the source.
	Index int `json:"index"`
	Span
	// Path is where the segment is (or would be) written.
	Path string `json:"path"`
}

// loadForSplit decodes the input of a split pipeline and rejects empty audio.
func (s *Segmenter) loadForSplit(input string) (*audio.Buffer, error) {
	buf, err := s.source.Read(input)
	if err != nil {
		return nil, readError(input, err)
	}
	if buf.Frames() == 0 {
		return nil, processingError(input, "decoded audio is empty", nil)
	}
	return buf, nil
}

// materialize attaches output paths to the spans of a plan.
func materialize(plan SplitPlan, outputDir, source string, name func(string, int) string) []Segment {
	segments := make([]Segment, len(plan.Spans))
	for i, span := range plan.Spans {
		segments[i] = Segment{
			Index: i + 1,
			Span:  span,
			Path:  filepath.Join(outputDir, name(source, i+1)),
		}
	}
	return segments
}

// writeSegments writes every segment of buf. If one write fails, segments
// already written by this call are removed.
func (s *Segmenter) writeSegments(buf *audio.Buffer, segments []Segment) error {
	written := make([]string, 0, len(segments))
	for _, seg := range segments {
		if err := s.sink.Write(seg.Path, buf.Slice(seg.Start, seg.End)); err != nil {
			for _, p := range written {
				_ = os.Remove(p)
			}
			return processingError(seg.Path, "write segment", err)
		}
		written = append(written, seg.Path)
		s.logger.Debug("segment written",
			slog.String("path", seg.Path),
			slog.Float64("start", seg.Start),
			slog.Float64("end", seg.End),
		)
	}
	return nil
}

func outputDirFor(input, configured string) string {
	if configured != "" {
		return configured
	}
	return filepath.Dir(input)
}

func paths(segments []Segment) []string {
	out := make([]string, len(segments))
	for i, seg := range segments {
		out[i] = seg.Path
	}
	return out
}
