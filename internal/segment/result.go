package segment

import "fmt"

// Split modes reported in SplitResult.Mode.
const (
	ModeSilence = "silence"
	ModeTime    = "time"
)

// SplitResult reports the outcome of a split pipeline.
type SplitResult struct {
	Success       bool      `json:"success"`
	Message       string    `json:"message"`
	Mode          string    `json:"mode"`
	Input         string    `json:"input"`
	OutputFiles   []string  `json:"output_files"`
	SplitCount    int       `json:"split_count"`
	OutputDir     string    `json:"output_dir"`
	TotalDuration float64   `json:"total_duration"`
	ChunkDuration float64   `json:"chunk_duration,omitempty"`
	Overlap       float64   `json:"overlap,omitempty"`
	SplitPoints   []float64 `json:"split_points"`
	Segments      []Segment `json:"segments"`
	DryRun        bool      `json:"dry_run"`
}

// JoinResult reports the outcome of a join.
type JoinResult struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message"`
	OutputFiles []string    `json:"output_files"`
	JoinCount   int         `json:"join_count"`
	OutputDir   string      `json:"output_dir"`
	MaxDuration float64     `json:"max_duration"`
	DryRun      bool        `json:"dry_run"`
	Groups      []JoinGroup `json:"groups"`
}

func newSplitResult(mode, input, outputDir string, plan SplitPlan, segments []Segment, dryRun bool) *SplitResult {
	verb := "Split"
	if dryRun {
		verb = "Planned"
	}
	return &SplitResult{
		Success:       true,
		Message:       fmt.Sprintf("%s %s into %d segments", verb, sourceName(input), len(segments)),
		Mode:          mode,
		Input:         input,
		OutputFiles:   paths(segments),
		SplitCount:    len(segments),
		OutputDir:     outputDir,
		TotalDuration: plan.Total,
		SplitPoints:   plan.SplitPoints(),
		Segments:      segments,
		DryRun:        dryRun,
	}
}
