package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

// waitDelay bounds how long Wait keeps copying output after the process
// has been killed, e.g. when a grandchild still holds stderr open.
const waitDelay = 2 * time.Second

// StderrFunc receives stderr of a running command line by line.
type StderrFunc func(ctx context.Context, line string)

type Command struct {
	Path    string
	Args    []string
	Env     []string // nil means the current environment
	Dir     string
	Timeout time.Duration
}

type Result struct {
	Path    string
	Args    []string
	Started time.Time
	Stopped time.Time
	State   *os.ProcessState
	Stdout  *bytes.Buffer
	// Err is returned by Wait, *exec.ExitError for a non zero exit code
	Err error
	// CtxErr is set when the context was done before the process ended
	CtxErr error
}

// ExitCode returns the exit code or -1 if the process did not exit normally.
func (r Result) ExitCode() int {
	if r.State == nil {
		return -1
	}
	return r.State.ExitCode()
}

// Run starts the command and waits until it terminates. Returned error is
// non nil only if the process could not be started at all, everything
// what happened after the start is reported in Result.
// Stdout is buffered, stderr is passed to stderrFunc line by line.
// Run does not share any state, so it is safe to be called concurrently.
func Run(ctx context.Context, proto Command, stderrFunc StderrFunc) (Result, error) {
	result := Result{
		Path: proto.Path,
		Args: append([]string(nil), proto.Args...),
	}

	if proto.Timeout == 0 {
		slog.WarnContext(ctx, "command has no timeout", "path", proto.Path)
	} else {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, proto.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, result.Path, result.Args...)
	cmd.Dir = proto.Dir
	if proto.Env != nil {
		cmd.Env = append([]string(nil), proto.Env...)
	}
	cmd.WaitDelay = waitDelay

	var buf bytes.Buffer
	result.Stdout = &buf
	cmd.Stdout = &buf

	var (
		wg sync.WaitGroup
		pw *io.PipeWriter
	)
	if stderrFunc != nil {
		var pr *io.PipeReader
		pr, pw = io.Pipe()
		cmd.Stderr = pw
		wg.Go(func() {
			processStderr(ctx, pr, stderrFunc)
		})
	}

	result.Started = time.Now().UTC()
	if err := cmd.Start(); err != nil {
		result.Stopped = time.Now().UTC()
		result.Err = err
		if pw != nil {
			_ = pw.Close()
			wg.Wait()
		}
		return result, err
	}

	err := cmd.Wait()
	result.Stopped = time.Now().UTC()
	if pw != nil {
		_ = pw.Close()
		wg.Wait()
	}
	result.State = cmd.ProcessState
	result.Err = err
	result.CtxErr = ctx.Err()
	return result, nil
}

func processStderr(ctx context.Context, stderr io.Reader, stderrFunc StderrFunc) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		stderrFunc(ctx, scanner.Text())
	}
	err := scanner.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		slog.ErrorContext(ctx, "processing stderr", "error", err)
		// drain, so the process is never blocked on a full pipe
		_, _ = io.Copy(io.Discard, stderr)
	}
}
