package segment

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/maauso/wavsegment/internal/audio"
)

// SegmentRef identifies one input of the joiner.
type SegmentRef struct {
	Path string `json:"path"`
	// Key groups refs that come from the same source.
	Key string `json:"key"`
	// Order is the numeric suffix parsed from the file name, or the position
	// in a caller supplied list.
	Order    int          `json:"order"`
	Duration float64      `json:"duration"`
	Format   audio.Format `json:"format"`
}

// JoinGroup is a run of refs sharing a key whose durations are accumulated
// into one output file.
type JoinGroup struct {
	Key string `json:"key"`
	// Index is 1-based within Key.
	Index    int      `json:"index"`
	Members  []string `json:"members"`
	Duration float64  `json:"duration"`
	Output   string   `json:"output"`

	format audio.Format
}

// PlanJoin packs refs into groups whose cumulative duration stays within
// maxDuration. Refs are grouped by key in order of first appearance and keep
// their relative order inside a key. A member is added while the running
// total stays at or below maxDuration; a single member longer than
// maxDuration forms a group on its own. Members of one group must share a
// format.
func PlanJoin(refs []SegmentRef, maxDuration float64) ([]JoinGroup, error) {
	var keys []string
	byKey := make(map[string][]SegmentRef)
	for _, ref := range refs {
		if _, ok := byKey[ref.Key]; !ok {
			keys = append(keys, ref.Key)
		}
		byKey[ref.Key] = append(byKey[ref.Key], ref)
	}

	groups := make([]JoinGroup, 0, len(keys))
	for _, key := range keys {
		var cur *JoinGroup
		index := 0
		for _, ref := range byKey[key] {
			if cur != nil && cur.Duration+ref.Duration > maxDuration+timeEpsilon {
				groups = append(groups, *cur)
				cur = nil
			}
			if cur == nil {
				index++
				cur = &JoinGroup{Key: key, Index: index, format: ref.Format}
			} else if ref.Format != cur.format {
				return nil, processingError(ref.Path, fmt.Sprintf(
					"format %+v does not match group format %+v", ref.Format, cur.format), audio.ErrFormatMismatch)
			}
			cur.Members = append(cur.Members, ref.Path)
			cur.Duration += ref.Duration
		}
		if cur != nil {
			groups = append(groups, *cur)
		}
	}
	return groups, nil
}

// Join regroups segment files into joined files of at most
// opts.MaxDuration seconds each.
//
// With opts.Filenames the files are taken verbatim, in order, as one
// sequence. Otherwise opts.InputDir is scanned for "<key>_<NNN>.wav" files,
// skipping time segments and earlier joiner output. Every input is decoded
// before the first output is written; outputs are then written group by
// group.
func (s *Segmenter) Join(opts JoinOptions) (*JoinResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	prefix := opts.Prefix()
	listMode := len(opts.Filenames) > 0 || opts.InputDir == ""

	var (
		refs []SegmentRef
		err  error
	)
	if listMode {
		refs = listSegments(opts.Filenames)
	} else {
		refs, err = scanSegments(opts.InputDir, prefix)
		if err != nil {
			return nil, err
		}
	}

	outputDir := opts.OutputDir
	switch {
	case outputDir != "":
	case !listMode:
		outputDir = opts.InputDir
	case len(refs) > 0:
		outputDir = filepath.Dir(refs[0].Path)
	}

	if len(refs) == 0 {
		s.logger.Info("nothing to join", slog.String("input_dir", opts.InputDir))
		return &JoinResult{
			Success:     true,
			Message:     "No segments to join",
			OutputFiles: []string{},
			OutputDir:   outputDir,
			MaxDuration: opts.MaxDuration,
			DryRun:      opts.DryRun,
			Groups:      []JoinGroup{},
		}, nil
	}

	if err := s.measure(refs); err != nil {
		return nil, err
	}

	groups, err := PlanJoin(refs, opts.MaxDuration)
	if err != nil {
		return nil, err
	}

	outputs := make([]string, len(groups))
	for i := range groups {
		key := groups[i].Key
		if listMode {
			key = ""
		}
		groups[i].Output = filepath.Join(outputDir, JoinedName(prefix, key, groups[i].Index))
		outputs[i] = groups[i].Output
	}

	s.logger.Info("join planned",
		slog.Int("segments", len(refs)),
		slog.Int("groups", len(groups)),
		slog.Float64("max_duration", opts.MaxDuration),
	)

	if !opts.DryRun {
		for _, g := range groups {
			if err := s.writeGroup(g); err != nil {
				return nil, err
			}
		}
	}

	verb := "Joined"
	if opts.DryRun {
		verb = "Planned"
	}
	return &JoinResult{
		Success:     true,
		Message:     fmt.Sprintf("%s %d segments into %d files", verb, len(refs), len(groups)),
		OutputFiles: outputs,
		JoinCount:   len(groups),
		OutputDir:   outputDir,
		MaxDuration: opts.MaxDuration,
		DryRun:      opts.DryRun,
		Groups:      groups,
	}, nil
}

// measure decodes every ref and records its duration and format.
func (s *Segmenter) measure(refs []SegmentRef) error {
	for i := range refs {
		buf, err := s.source.Read(refs[i].Path)
		if err != nil {
			return readError(refs[i].Path, err)
		}
		refs[i].Duration = buf.Duration()
		refs[i].Format = buf.Format()
	}
	return nil
}

func (s *Segmenter) writeGroup(g JoinGroup) error {
	bufs := make([]*audio.Buffer, 0, len(g.Members))
	for _, p := range g.Members {
		buf, err := s.source.Read(p)
		if err != nil {
			return readError(p, err)
		}
		bufs = append(bufs, buf)
	}

	joined, err := audio.Concat(bufs...)
	if err != nil {
		return processingError(g.Output, "concatenate group", err)
	}
	if err := s.sink.Write(g.Output, joined); err != nil {
		return processingError(g.Output, "write joined file", err)
	}

	s.logger.Debug("joined file written",
		slog.String("path", g.Output),
		slog.Int("members", len(g.Members)),
		slog.Float64("duration", g.Duration),
	)
	return nil
}

// listSegments turns a caller supplied list into refs sharing one key, the
// base name of the first file.
func listSegments(filenames []string) []SegmentRef {
	if len(filenames) == 0 {
		return nil
	}
	key := sourceName(filenames[0])
	if m := segmentPattern.FindStringSubmatch(filepath.Base(filenames[0])); m != nil {
		key = m[1]
	}
	refs := make([]SegmentRef, len(filenames))
	for i, p := range filenames {
		refs[i] = SegmentRef{Path: p, Key: key, Order: i + 1}
	}
	return refs
}

// scanSegments lists the segment files of dir, sorted by key and then by
// file name. Outputs of an earlier join with the same prefix are skipped:
// "<prefix>_<index>.wav" always, and "<prefix>_<key>_<index>.wav" when
// segments of key are present.
func scanSegments(dir, prefix string) ([]SegmentRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Kind: ErrFileAccess, Path: dir, Msg: "input directory not found", Err: err}
		}
		return nil, &Error{Kind: ErrFileAccess, Path: dir, Err: err}
	}

	joined := joinedPattern(prefix)
	var refs []SegmentRef
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".wav") {
			continue
		}
		if timeSegmentPattern.MatchString(name) || joined.MatchString(name) {
			continue
		}
		m := segmentPattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		order, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		refs = append(refs, SegmentRef{
			Path:  filepath.Join(dir, name),
			Key:   m[1],
			Order: order,
		})
	}

	keys := make(map[string]bool, len(refs))
	for _, r := range refs {
		keys[r.Key] = true
	}
	kept := refs[:0]
	for _, r := range refs {
		if !isJoinedKey(r.Key, prefix, keys) {
			kept = append(kept, r)
		}
	}
	refs = kept

	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Key != refs[j].Key {
			return refs[i].Key < refs[j].Key
		}
		return filepath.Base(refs[i].Path) < filepath.Base(refs[j].Path)
	})
	return refs, nil
}
