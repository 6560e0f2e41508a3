package segment

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// File name contracts. Downstream tooling groups files by these patterns.
var (
	// segmentPattern matches "<key>_<index>.wav" and captures the key.
	segmentPattern = regexp.MustCompile(`(?i)^(.+)_(\d+)\.wav$`)
	// timeSegmentPattern matches time splitter output.
	timeSegmentPattern = regexp.MustCompile(`(?i)_time_\d+\.wav$`)
)

// sourceName returns the file name of path without directory or extension.
func sourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SilenceSegmentName returns the name of the index-th (1-based) silence segment.
func SilenceSegmentName(source string, index int) string {
	return fmt.Sprintf("%s_%03d.wav", source, index)
}

// TimeSegmentName returns the name of the index-th (1-based) time segment.
func TimeSegmentName(source string, index int) string {
	return fmt.Sprintf("%s_time_%03d.wav", source, index)
}

// JoinedName returns the name of a joined file. An empty key selects the
// form used for an explicit file list.
func JoinedName(prefix, key string, index int) string {
	if key == "" {
		return fmt.Sprintf("%s_%03d.wav", prefix, index)
	}
	return fmt.Sprintf("%s_%s_%03d.wav", prefix, key, index)
}

// joinedPattern matches files produced by the joiner from an explicit file
// list, "<prefix>_<index>.wav". Keyed outputs are recognised by
// isJoinedKey, since "<prefix>_<key>" is also a valid segment key.
func joinedPattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(prefix) + `_\d+\.wav$`)
}

// isJoinedKey reports whether key is "<prefix>_<k>" for a k in keys, which
// is how the joiner names the output of group k.
func isJoinedKey(key, prefix string, keys map[string]bool) bool {
	head := prefix + "_"
	if len(key) <= len(head) || !strings.EqualFold(key[:len(head)], head) {
		return false
	}
	return keys[key[len(head):]]
}
