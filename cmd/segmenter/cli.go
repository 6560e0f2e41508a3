package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/maauso/wavsegment/internal/audio"
	"github.com/maauso/wavsegment/internal/bootstrap"
	"github.com/maauso/wavsegment/internal/config"
	"github.com/maauso/wavsegment/internal/job"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// stdinName stands for standard input in the file arguments.
const stdinName = "-"

const usage = `usage:
  segmenter [-config profile.yaml] silence [flags] FILE...
  segmenter [-config profile.yaml] time    [flags] FILE...
  segmenter [-config profile.yaml] join    [flags] [-input-dir DIR | FILE...]
  segmenter [-config profile.yaml] inspect FILE...

Use "-" as FILE to read a WAV stream from standard input.
Run "segmenter COMMAND -h" for the flags of a command.
`

var errUsage = errors.New("usage")

// app carries what every command needs.
type app struct {
	cfg    *config.Config
	deps   *bootstrap.Dependencies
	logger *slog.Logger
	stdin  io.Reader
	out    *json.Encoder
	errOut io.Writer
	staged []string
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("segmenter", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	profile := global.String("config", "", "YAML profile with configuration values")
	if err := global.Parse(args); err != nil {
		return exitUsage
	}
	if global.NArg() == 0 {
		global.Usage()
		return exitUsage
	}

	cfg, err := config.Load(ctx, *profile)
	if err != nil {
		fmt.Fprintf(stderr, "error: load config: %v\n", err)
		return exitFailed
	}

	logger := cfg.NewLogger(stderr)

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: initialize dependencies: %v\n", err)
		return exitFailed
	}

	a := &app{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		stdin:  stdin,
		out:    json.NewEncoder(stdout),
		errOut: stderr,
	}
	defer a.cleanup()

	cmd, rest := global.Arg(0), global.Args()[1:]

	var code int
	switch cmd {
	case "silence":
		code, err = a.splitSilence(ctx, rest)
	case "time":
		code, err = a.splitTime(ctx, rest)
	case "join":
		code, err = a.join(ctx, rest)
	case "inspect":
		code, err = a.inspect(ctx, rest)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		global.Usage()
		return exitUsage
	}

	if code == exitUsage {
		return exitUsage
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailed
	}

	a.writeMetrics()
	return code
}

func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *app) splitSilence(ctx context.Context, args []string) (int, error) {
	opts := a.cfg.SilenceOptions()

	fs := a.newFlagSet("silence")
	fs.Float64Var(&opts.MinSilenceLength, "min-silence-length", opts.MinSilenceLength, "shortest silence in seconds that produces a split")
	fs.Float64Var(&opts.SilenceThreshold, "silence-threshold", opts.SilenceThreshold, "normalized energy below which a window is silent")
	fs.Float64Var(&opts.StepDuration, "step-duration", opts.StepDuration, "energy window in seconds (0 selects min-silence-length/10)")
	fs.StringVar(&opts.OutputDir, "output-dir", opts.OutputDir, "directory for the segments (default: next to the input)")
	fs.BoolVar(&opts.DryRun, "dry-run", opts.DryRun, "plan the split without writing files")
	if err := fs.Parse(args); err != nil {
		return exitUsage, err
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(a.errOut, "silence: at least one FILE is required")
		return exitUsage, errUsage
	}

	tasks := make([]job.Task, 0, fs.NArg())
	for _, arg := range fs.Args() {
		input, outDir, err := a.resolveInput(ctx, arg, opts.OutputDir)
		if err != nil {
			return exitFailed, err
		}
		o := opts
		o.OutputDir = outDir
		tasks = append(tasks, job.Task{Kind: job.KindSilence, Input: input, Silence: o})
	}
	return a.runTasks(ctx, tasks)
}

func (a *app) splitTime(ctx context.Context, args []string) (int, error) {
	opts := a.cfg.TimeOptions()

	fs := a.newFlagSet("time")
	fs.Float64Var(&opts.ChunkDuration, "chunk-duration", opts.ChunkDuration, "window length in seconds")
	fs.Float64Var(&opts.Overlap, "overlap", opts.Overlap, "seconds shared by consecutive windows")
	fs.Float64Var(&opts.TailMergeRatio, "tail-merge-ratio", opts.TailMergeRatio, "fraction of chunk-duration below which the last window is merged")
	fs.StringVar(&opts.OutputDir, "output-dir", opts.OutputDir, "directory for the segments (default: next to the input)")
	fs.BoolVar(&opts.DryRun, "dry-run", opts.DryRun, "plan the split without writing files")
	if err := fs.Parse(args); err != nil {
		return exitUsage, err
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(a.errOut, "time: at least one FILE is required")
		return exitUsage, errUsage
	}

	tasks := make([]job.Task, 0, fs.NArg())
	for _, arg := range fs.Args() {
		input, outDir, err := a.resolveInput(ctx, arg, opts.OutputDir)
		if err != nil {
			return exitFailed, err
		}
		o := opts
		o.OutputDir = outDir
		tasks = append(tasks, job.Task{Kind: job.KindTime, Input: input, Time: o})
	}
	return a.runTasks(ctx, tasks)
}

func (a *app) join(ctx context.Context, args []string) (int, error) {
	opts := a.cfg.JoinOptions()

	fs := a.newFlagSet("join")
	fs.StringVar(&opts.InputDir, "input-dir", "", "directory scanned for segment files")
	fs.Float64Var(&opts.MaxDuration, "max-duration", opts.MaxDuration, "maximum duration of a joined file in seconds")
	fs.StringVar(&opts.OutputPrefix, "output-prefix", opts.OutputPrefix, "prefix of the joined file names")
	fs.StringVar(&opts.OutputDir, "output-dir", opts.OutputDir, "directory for the joined files (default: the input directory)")
	fs.BoolVar(&opts.DryRun, "dry-run", opts.DryRun, "plan the groups without writing files")
	if err := fs.Parse(args); err != nil {
		return exitUsage, err
	}

	for _, name := range fs.Args() {
		if name == stdinName {
			fmt.Fprintln(a.errOut, "join: standard input is not supported")
			return exitUsage, errUsage
		}
	}
	if fs.NArg() > 0 {
		opts.Filenames = fs.Args()
	}

	return a.runTasks(ctx, []job.Task{{Kind: job.KindJoin, Join: opts}})
}

func (a *app) inspect(ctx context.Context, args []string) (int, error) {
	fs := a.newFlagSet("inspect")
	if err := fs.Parse(args); err != nil {
		return exitUsage, err
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(a.errOut, "inspect: at least one FILE is required")
		return exitUsage, errUsage
	}

	code := exitOK
	for _, arg := range fs.Args() {
		path, _, err := a.resolveInput(ctx, arg, "")
		if err != nil {
			return exitFailed, err
		}

		info, err := audio.Inspect(path)
		if err != nil {
			a.logger.Error("inspect failed",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			code = exitFailed
			if encErr := a.out.Encode(inspectError{Path: arg, Error: err.Error()}); encErr != nil {
				return exitFailed, encErr
			}
			continue
		}
		if arg == stdinName {
			info.Path = stdinName
		}
		if err := a.out.Encode(info); err != nil {
			return exitFailed, err
		}
	}
	return code, nil
}

type inspectError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// runTasks runs the tasks on the worker pool, prints one report per line and
// returns exitFailed if any job did not complete.
func (a *app) runTasks(ctx context.Context, tasks []job.Task) (int, error) {
	reports := a.deps.Service.RunBatch(ctx, tasks)

	code := exitOK
	for _, r := range reports {
		if r.Status != job.StatusCompleted {
			code = exitFailed
		}
		if err := a.out.Encode(r); err != nil {
			return exitFailed, fmt.Errorf("write report: %w", err)
		}
	}

	failed, err := a.deps.Jobs.ListByStatus(ctx, job.StatusFailed)
	if err == nil && len(failed) > 0 {
		a.logger.Warn("some jobs failed",
			slog.Int("failed", len(failed)),
			slog.Int("total", len(reports)),
		)
	}
	return code, nil
}

// resolveInput returns the file to read for arg. Standard input is staged as
// stdin.wav in a fresh directory, so its segments are always named
// stdin_NNN.wav or stdin_time_NNN.wav. They go to the working directory
// unless an output directory is configured.
func (a *app) resolveInput(ctx context.Context, arg, outputDir string) (string, string, error) {
	if arg != stdinName {
		return arg, outputDir, nil
	}

	path, err := a.deps.Storage.SaveTemp(ctx, "stdin.wav", a.stdin)
	if err != nil {
		return "", "", fmt.Errorf("stage standard input: %w", err)
	}
	a.staged = append(a.staged, path)

	if outputDir == "" {
		outputDir = "."
	}
	return path, outputDir, nil
}

func (a *app) cleanup() {
	if len(a.staged) == 0 {
		return
	}
	if err := a.deps.Storage.Cleanup(context.Background(), a.staged); err != nil {
		a.logger.Warn("failed to remove staged input", slog.String("error", err.Error()))
	}
}

func (a *app) writeMetrics() {
	if a.cfg.MetricsFile == "" {
		return
	}
	if err := a.deps.Metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
		a.logger.Warn("failed to write metrics",
			slog.String("path", a.cfg.MetricsFile),
			slog.String("error", err.Error()),
		)
	}
}
