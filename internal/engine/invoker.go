package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/analekt/epubcheck-mcp/internal/log"
	"github.com/analekt/epubcheck-mcp/internal/model"
)

// Invoker runs epubcheck. It holds no mutable state, Validate and Version
// can be called from many goroutines at once.
type Invoker struct {
	locator        Locator
	scratchDir     string
	timeout        time.Duration
	versionTimeout time.Duration
	env            []string
}

type Option func(*Invoker)

// WithScratchDir sets the directory of the JSON reports, os.TempDir by default.
func WithScratchDir(dir string) Option {
	return func(i *Invoker) {
		i.scratchDir = dir
	}
}

// WithTimeout bounds a single validation.
func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) {
		i.timeout = d
	}
}

// WithVersionTimeout bounds the --version query.
func WithVersionTimeout(d time.Duration) Option {
	return func(i *Invoker) {
		i.versionTimeout = d
	}
}

// WithEnv replaces the environment of the engine process.
func WithEnv(env []string) Option {
	return func(i *Invoker) {
		i.env = env
	}
}

func NewInvoker(locator Locator, opts ...Option) *Invoker {
	i := &Invoker{
		locator:        locator,
		timeout:        model.DefaultEngineTimeout,
		versionTimeout: model.DefaultVersionTimeout,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Validate checks the file from req. It returns a report whenever the engine
// wrote one, regardless of the exit code: epubcheck exits with 1 as soon as
// it finds an error in the publication. Failures are *InvocationError.
func (i *Invoker) Validate(ctx context.Context, req model.Request) (*model.Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.Normalized()

	// the engine runs in its own directory
	target, err := filepath.Abs(req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidRequest, err)
	}
	req.Path = target

	exe, err := i.locator.Resolve()
	if err != nil {
		return nil, err
	}

	scratch := i.scratchDir
	if scratch != "" {
		if abs, err := filepath.Abs(scratch); err == nil {
			scratch = abs
		}
	}
	artifact := ArtifactPath(scratch)
	program, args := exe.Command(BuildArgs(req, artifact))

	ctx = log.ContextAttrs(ctx,
		slog.String("engine", exe.Path),
		slog.String("target", req.Path),
	)

	var stderr strings.Builder
	collect := func(ctx context.Context, line string) {
		slog.DebugContext(ctx, "epubcheck", "stderr", line)
		stderr.WriteString(line)
		stderr.WriteByte('\n')
	}

	slog.DebugContext(ctx, "validation started", "args", args)
	res, err := Run(ctx, Command{
		Path:    program,
		Args:    args,
		Env:     i.env,
		Dir:     exe.Dir(),
		Timeout: i.timeout,
	}, collect)
	if err != nil {
		return nil, &InvocationError{
			Reason:     ReasonSpawnFailed,
			Diagnostic: err.Error(),
			Err:        err,
		}
	}
	slog.DebugContext(ctx, "validation finished",
		"exit_code", res.ExitCode(),
		"elapsed", res.Stopped.Sub(res.Started).String(),
	)

	return readArtifact(artifact, res, stderr.String())
}

// readArtifact decides the outcome solely on the presence of the artifact.
func readArtifact(artifact string, res Result, stderr string) (*model.Report, error) {
	raw, err := os.ReadFile(artifact)
	if errors.Is(err, fs.ErrNotExist) {
		diag := strings.TrimSpace(stderr)
		if diag == "" {
			diag = fmt.Sprintf("exit code %d", res.ExitCode())
		}
		if res.CtxErr != nil {
			diag = fmt.Sprintf("%s (%v)", diag, res.CtxErr)
		}
		return nil, &InvocationError{
			Reason:     ReasonNoOutputProduced,
			Diagnostic: diag,
			Err:        res.CtxErr,
		}
	}
	// best effort, a leftover file in a temp dir is harmless
	defer func() {
		_ = os.Remove(artifact)
	}()
	if err != nil {
		return nil, &InvocationError{
			Reason:     ReasonNoOutputProduced,
			Diagnostic: err.Error(),
			Err:        err,
		}
	}

	var report model.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, &InvocationError{
			Reason:     ReasonMalformedOutput,
			Diagnostic: err.Error(),
			Err:        err,
		}
	}
	return &report, nil
}

// Version runs the engine with --version only and returns its trimmed
// standard output. It fails only if the engine can't be found or started.
func (i *Invoker) Version(ctx context.Context) (string, error) {
	exe, err := i.locator.Resolve()
	if err != nil {
		return "", err
	}
	program, args := exe.Command([]string{"--version"})
	ctx = log.ContextAttrs(ctx, slog.String("engine", exe.Path))

	res, err := Run(ctx, Command{
		Path:    program,
		Args:    args,
		Env:     i.env,
		Dir:     exe.Dir(),
		Timeout: i.versionTimeout,
	}, func(ctx context.Context, line string) {
		slog.DebugContext(ctx, "epubcheck --version", "stderr", line)
	})
	if err != nil {
		return "", &InvocationError{
			Reason:     ReasonSpawnFailed,
			Diagnostic: err.Error(),
			Err:        err,
		}
	}
	return strings.TrimSpace(res.Stdout.String()), nil
}
