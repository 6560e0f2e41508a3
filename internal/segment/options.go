package segment

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Default option values.
const (
	DefaultMinSilenceLength = 3.0
	DefaultSilenceThreshold = 1e-6
	DefaultChunkDuration    = 30.0
	DefaultOverlap          = 0.0
	DefaultTailMergeRatio   = 1.0
	DefaultMaxDuration      = 600.0
	DefaultOutputPrefix     = "joined"

	// stepDivisor derives the energy window from the minimum silence length.
	stepDivisor = 10
)

// SilenceOptions configures splitting at silences.
type SilenceOptions struct {
	// MinSilenceLength is the shortest silent run, in seconds, that produces a split.
	MinSilenceLength float64 `json:"min_silence_length" validate:"gt=0"`
	// SilenceThreshold is the normalized energy below which a window is silent.
	SilenceThreshold float64 `json:"silence_threshold" validate:"gte=0,lte=1"`
	// StepDuration is the energy window length in seconds.
	// Zero selects MinSilenceLength/10.
	StepDuration float64 `json:"step_duration" validate:"gte=0"`
	// OutputDir receives the segments. Empty selects the input file's directory.
	OutputDir string `json:"output_dir"`
	// DryRun plans the split without writing files.
	DryRun bool `json:"dry_run"`
}

// DefaultSilenceOptions returns the default options for silence splitting.
func DefaultSilenceOptions() SilenceOptions {
	return SilenceOptions{
		MinSilenceLength: DefaultMinSilenceLength,
		SilenceThreshold: DefaultSilenceThreshold,
	}
}

// Step returns the energy window length in effect.
func (o SilenceOptions) Step() float64 {
	if o.StepDuration > 0 {
		return o.StepDuration
	}
	return o.MinSilenceLength / stepDivisor
}

// Validate checks the option ranges.
func (o SilenceOptions) Validate() error {
	return validateStruct(o)
}

// TimeOptions configures splitting into fixed windows.
type TimeOptions struct {
	// ChunkDuration is the window length in seconds.
	ChunkDuration float64 `json:"chunk_duration" validate:"gt=0"`
	// Overlap is how much consecutive windows share, in seconds.
	Overlap float64 `json:"overlap" validate:"gte=0,ltfield=ChunkDuration"`
	// TailMergeRatio is the fraction of ChunkDuration below which a trailing
	// remainder is merged into the previous window. Zero selects 1, which merges
	// any clipped remainder.
	TailMergeRatio float64 `json:"tail_merge_ratio" validate:"gte=0,lte=1"`
	// OutputDir receives the segments. Empty selects the input file's directory.
	OutputDir string `json:"output_dir"`
	// DryRun plans the split without writing files.
	DryRun bool `json:"dry_run"`
}

// DefaultTimeOptions returns the default options for time splitting.
func DefaultTimeOptions() TimeOptions {
	return TimeOptions{
		ChunkDuration:  DefaultChunkDuration,
		Overlap:        DefaultOverlap,
		TailMergeRatio: DefaultTailMergeRatio,
	}
}

// TailRatio returns the tail merge ratio in effect.
func (o TimeOptions) TailRatio() float64 {
	if o.TailMergeRatio > 0 {
		return o.TailMergeRatio
	}
	return DefaultTailMergeRatio
}

// Validate checks the option ranges.
func (o TimeOptions) Validate() error {
	return validateStruct(o)
}

// JoinOptions configures regrouping of segment files.
type JoinOptions struct {
	// Filenames is an explicit ordered list of segments. When non-empty it
	// takes precedence over InputDir.
	Filenames []string `json:"filenames"`
	// InputDir is scanned for segment files when Filenames is empty.
	InputDir string `json:"input_dir"`
	// MaxDuration caps the cumulative duration of a group, in seconds.
	MaxDuration float64 `json:"max_duration" validate:"gt=0"`
	// OutputPrefix starts every joined file name. Empty selects "joined".
	OutputPrefix string `json:"output_prefix" validate:"omitempty,excludesall=/"`
	// OutputDir receives the joined files. Empty selects InputDir, or the
	// directory of the first file in Filenames.
	OutputDir string `json:"output_dir"`
	// DryRun plans the groups without writing files.
	DryRun bool `json:"dry_run"`
}

// DefaultJoinOptions returns the default options for joining.
func DefaultJoinOptions() JoinOptions {
	return JoinOptions{
		MaxDuration:  DefaultMaxDuration,
		OutputPrefix: DefaultOutputPrefix,
	}
}

// Prefix returns the output prefix in effect.
func (o JoinOptions) Prefix() string {
	if o.OutputPrefix != "" {
		return o.OutputPrefix
	}
	return DefaultOutputPrefix
}

// Validate checks the option ranges.
func (o JoinOptions) Validate() error {
	return validateStruct(o)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their option names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the validator and converts the first violation into
// an *Error of kind ErrValidation.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &Error{Kind: ErrValidation, Err: err}
	}

	fe := verrs[0]
	return validationError(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("must be greater than %s, got %v", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must be at least %s, got %v", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be at most %s, got %v", fe.Param(), fe.Value())
	case "ltfield":
		return fmt.Sprintf("must be less than %s, got %v", snakeCase(fe.Param()), fe.Value())
	case "excludesall":
		return fmt.Sprintf("must not contain any of %q", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
