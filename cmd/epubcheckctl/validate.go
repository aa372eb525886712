package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/analekt/epubcheck-mcp/internal/engine"
	"github.com/analekt/epubcheck-mcp/internal/log"
	"github.com/analekt/epubcheck-mcp/internal/model"
	"github.com/analekt/epubcheck-mcp/internal/parallel"
	"github.com/analekt/epubcheck-mcp/internal/walk"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// errProblemsFound makes the process exit with 1 without logging an error.
var errProblemsFound = errors.New("problems found")

var (
	flagMode          string
	flagProfile       string
	flagTargetVersion string
	flagOutput        string
	flagParallel      int
)

var validateCmd = &cobra.Command{
	Use:   "validate <path>...",
	Short: "validate checks publications; directories are searched for *.epub files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  doValidate,
}

type validator interface {
	Validate(ctx context.Context, req model.Request) (*model.Report, error)
}

type validateOptions struct {
	mode          model.Mode
	profile       model.Profile
	targetVersion string
	parallel      int
}

type target struct {
	index int
	path  string
	err   error
}

// outcome is the result of one target, exactly one of Report and Error is set.
type outcome struct {
	Path   string        `json:"path"`
	Report *model.Report `json:"report,omitempty"`
	Error  *outcomeError `json:"error,omitempty"`

	index int
}

type outcomeError struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (o outcome) failed() bool {
	return o.Error != nil || o.Report.HasErrors()
}

func doValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	attrs := slog.Group("epubcheckctl",
		slog.String("cmd", "validate"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	if flagOutput != outputText && flagOutput != outputJSON {
		return fmt.Errorf("unsupported output %q: use %s or %s", flagOutput, outputText, outputJSON)
	}

	opts := validateOptions{
		mode:          config.DefaultMode(),
		profile:       config.DefaultProfile(),
		targetVersion: flagTargetVersion,
		parallel:      config.Parallel(),
	}
	if flagMode != "" {
		opts.mode = model.Mode(flagMode)
	}
	if flagProfile != "" {
		opts.profile = model.Profile(flagProfile)
	}
	if flagParallel > 0 {
		opts.parallel = flagParallel
	}
	// fail before any engine starts
	sample := model.Request{Path: ".", Mode: opts.mode, Profile: opts.profile, TargetVersion: opts.targetVersion}
	if err := sample.Validate(); err != nil {
		return err
	}

	outcomes := validateAll(ctx, newInvoker(config), opts, args)

	var err error
	switch flagOutput {
	case outputJSON:
		err = writeJSON(cmd.OutOrStdout(), outcomes)
	default:
		writeText(cmd.OutOrStdout(), outcomes, config.Verbose())
	}
	if err != nil {
		return err
	}

	if slices.ContainsFunc(outcomes, outcome.failed) {
		return errProblemsFound
	}
	return nil
}

// validateAll validates every target concurrently and returns the outcomes
// in the order of the targets. In epub mode directories are searched for
// publications, other modes take the paths as they are.
func validateAll(ctx context.Context, v validator, opts validateOptions, paths []string) []outcome {
	seq := literal(paths)
	if opts.mode == model.ModeEPUB {
		seq = walk.Targets(ctx, ".epub", paths...)
	}
	targets := func(yield func(target, error) bool) {
		i := 0
		for path, err := range seq {
			if !yield(target{index: i, path: path, err: err}, nil) {
				return
			}
			i++
		}
	}

	fn := func(ctx context.Context, t target) (outcome, error) {
		o := outcome{Path: t.path, index: t.index}
		if t.err != nil {
			if errors.Is(t.err, walk.ErrNoTargets) {
				slog.WarnContext(ctx, "directory contains no publications", "path", t.path)
			}
			o.Error = &outcomeError{Reason: "InvalidTarget", Message: t.err.Error()}
			return o, nil
		}
		req := model.Request{
			Path:          t.path,
			Mode:          opts.mode,
			Profile:       opts.profile,
			TargetVersion: opts.targetVersion,
		}
		report, err := v.Validate(ctx, req)
		if err != nil {
			slog.DebugContext(ctx, "validation failed", "path", t.path, "error", err)
			o.Error = toOutcomeError(err)
			return o, nil
		}
		o.Report = report
		return o, nil
	}

	var outcomes []outcome
	for o, err := range parallel.NewMap(ctx, opts.parallel, fn).Iter(targets) {
		if err != nil {
			slog.WarnContext(ctx, "validation interrupted", "error", err)
			continue
		}
		outcomes = append(outcomes, o)
	}
	slices.SortFunc(outcomes, func(a, b outcome) int {
		return cmp.Compare(a.index, b.index)
	})
	return outcomes
}

func literal(paths []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, path := range paths {
			if !yield(path, nil) {
				return
			}
		}
	}
}

func toOutcomeError(err error) *outcomeError {
	var invErr *engine.InvocationError
	switch {
	case errors.As(err, &invErr):
		return &outcomeError{Reason: string(invErr.Reason), Message: err.Error()}
	case errors.Is(err, model.ErrInvalidRequest):
		return &outcomeError{Reason: "InvalidRequest", Message: err.Error()}
	default:
		return &outcomeError{Reason: "Unknown", Message: err.Error()}
	}
}

func writeJSON(w io.Writer, outcomes []outcome) error {
	if outcomes == nil {
		outcomes = []outcome{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcomes); err != nil {
		return fmt.Errorf("encoding outcomes: %w", err)
	}
	return nil
}

// writeText prints a colored summary. INFO and USAGE messages are printed
// only if verbose is true.
func writeText(w io.Writer, outcomes []outcome, verbose bool) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	failed := 0
	for _, o := range outcomes {
		if o.failed() {
			failed++
		}
		switch {
		case o.Error != nil:
			_, _ = fmt.Fprintf(w, "%s %s: %s\n", red.Sprint("✗"), o.Path, o.Error.Message)
			continue
		case o.Report.HasErrors():
			_, _ = fmt.Fprintf(w, "%s %s: %s\n", red.Sprint("✗"), o.Path, counts(o.Report))
		default:
			_, _ = fmt.Fprintf(w, "%s %s: %s\n", green.Sprint("✓"), o.Path, counts(o.Report))
		}

		for _, m := range o.Report.Messages {
			var c *color.Color
			switch {
			case m.Severity.AtLeast(model.SeverityError):
				c = red
			case m.Severity == model.SeverityWarning:
				c = yellow
			case verbose:
				c = bold
			default:
				continue
			}
			_, _ = fmt.Fprintf(w, "    %s %s %s%s\n", c.Sprintf("%-7s", m.Severity), m.ID, where(m.Locations), m.Message)
			if m.Suggestion != nil && *m.Suggestion != "" {
				_, _ = fmt.Fprintf(w, "            %s\n", *m.Suggestion)
			}
		}
	}

	summary := fmt.Sprintf("%d checked, %d with problems", len(outcomes), failed)
	if failed > 0 {
		_, _ = red.Fprintln(w, summary)
		return
	}
	_, _ = green.Fprintln(w, summary)
}

func counts(r *model.Report) string {
	c := r.Checker
	parts := make([]string, 0, 4)
	for _, p := range []struct {
		n    int
		name string
	}{
		{c.NFatal, "fatal"},
		{c.NError, "error"},
		{c.NWarning, "warning"},
		{c.NUsage, "usage"},
	} {
		switch p.n {
		case 0:
		case 1:
			parts = append(parts, "1 "+p.name)
		default:
			parts = append(parts, fmt.Sprintf("%d %ss", p.n, p.name))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "no problems")
	}
	if c.CheckerVersion != "" {
		return fmt.Sprintf("%s (EPUBCheck %s)", strings.Join(parts, ", "), c.CheckerVersion)
	}
	return strings.Join(parts, ", ")
}

func where(locs []model.Location) string {
	if len(locs) == 0 {
		return ""
	}
	l := locs[0]
	switch {
	case l.Line > 0 && l.Column > 0:
		return fmt.Sprintf("%s:%d:%d: ", l.Path, l.Line, l.Column)
	case l.Line > 0:
		return fmt.Sprintf("%s:%d: ", l.Path, l.Line)
	default:
		return l.Path + ": "
	}
}
