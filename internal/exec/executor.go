package exec

import (
	"bytes"
	stdctx "context"
	"fmt"
	"io"
	"os"
	stdexec "os/exec"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/axesdev/axes/internal/axerr"
	"github.com/axesdev/axes/internal/obs"
	"github.com/axesdev/axes/internal/script/ast"
)

// Options configures one Run invocation.
type Options struct {
	Context *Context
	Scripts ScriptLookup // may be nil if the task never uses <run::X>

	Stdout io.Writer
	Stderr io.Writer

	// Trace prints the "→ rendered body" line for a non-silent command.
	// Defaults to obs.Trace.
	Trace func(string)
}

func (o Options) normalized() Options {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Trace == nil {
		o.Trace = obs.Trace
	}
	return o
}

// Run walks lines left to right per §4.6: commands marked `parallel`
// accumulate into a batch that runs concurrently; a non-parallel
// command first waits for the pending batch (barrier), then runs on
// its own. A failing command aborts the walk immediately unless it
// carries `ignore_errors`, except that a failing member of a parallel
// batch only surfaces once every member of that batch has finished.
func Run(ctx stdctx.Context, lines []ast.CommandLine, opts Options) error {
	opts = opts.normalized()

	var batch []ast.CommandLine
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := runBatch(ctx, batch, opts)
		batch = nil
		return err
	}

	for _, cl := range lines {
		if ctx.Err() != nil {
			return axerr.New(axerr.Interrupted, "execution canceled")
		}
		if cl.Prefixes.Parallel {
			batch = append(batch, cl)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		if err := runOne(ctx, cl, opts); err != nil {
			return err
		}
	}
	return flush()
}

func runBatch(ctx stdctx.Context, batch []ast.CommandLine, opts Options) error {
	g := &errgroup.Group{}
	for _, cl := range batch {
		cl := cl
		g.Go(func() error {
			err := runOne(ctx, cl, opts)
			if err != nil && cl.Prefixes.IgnoreErrors {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// runOne renders and, unless it's an echo line, executes a single
// command line, applying its own ignore_errors/silent prefixes.
func runOne(ctx stdctx.Context, cl ast.CommandLine, opts Options) error {
	runCmd := func(ctx stdctx.Context, literal string) (string, error) {
		return captureCommand(ctx, literal)
	}
	runRef := func(ctx stdctx.Context, name string) (string, error) {
		if opts.Scripts == nil {
			return "", axerr.New(axerr.BrokenReference, fmt.Sprintf("<run::%s> used but no script lookup was supplied", name))
		}
		sub, err := opts.Scripts.SpecializeScript(name)
		if err != nil {
			return "", err
		}
		return captureLines(ctx, sub, opts)
	}

	body, err := renderLine(ctx, cl, opts.Context, runCmd, runRef)
	if err != nil {
		return err
	}

	if cl.Prefixes.Echo {
		fmt.Fprintln(opts.Stdout, body)
		return nil
	}
	if !cl.Prefixes.Silent {
		opts.Trace(body)
	}

	err = spawn(ctx, body, opts.Stdout, opts.Stderr)
	if err != nil && cl.Prefixes.IgnoreErrors {
		return nil
	}
	return err
}

// captureLines runs a spliced <run::X> script's command lines with
// output captured instead of streamed, combining stdout across all of
// them, and returns the trimmed combined text.
func captureLines(ctx stdctx.Context, lines []ast.CommandLine, opts Options) (string, error) {
	var buf bytes.Buffer
	sub := opts
	sub.Stdout = &buf
	sub.Trace = func(string) {}
	if err := Run(ctx, lines, sub); err != nil {
		return "", err
	}
	return strings.TrimRightFunc(buf.String(), unicode.IsSpace), nil
}

// captureCommand runs a literal <run('...')> command through the
// platform shell, capturing and trimming its stdout. A non-zero exit
// from the inner command still yields whatever stdout it produced —
// §4.5 defines <run> purely as a stdout substitution, with no exit
// status of its own to report.
func captureCommand(ctx stdctx.Context, literal string) (string, error) {
	cmd := shellCommandContext(ctx, literal)
	out, err := cmd.Output()
	if err != nil {
		if _, isExitErr := err.(*stdexec.ExitError); !isExitErr {
			return "", axerr.Wrap(axerr.SubprocessSpawnFailed, "running <run(...)> command failed", err).WithCommand(literal)
		}
	}
	return strings.TrimRightFunc(string(out), unicode.IsSpace), nil
}

// spawn runs body through the platform shell, streaming to out/errOut,
// and honors ctx cancellation by killing the whole process group.
func spawn(ctx stdctx.Context, body string, out, errOut io.Writer) error {
	cmd := shellCommand(body)
	cmd.Stdout = out
	cmd.Stderr = errOut
	setupProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return axerr.Wrap(axerr.SubprocessSpawnFailed, "failed to start command", err).WithCommand(body)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = killProcessGroup(cmd)
		<-done
		return axerr.New(axerr.Interrupted, "command canceled").WithCommand(body)
	case err := <-done:
		if err == nil {
			return nil
		}
		if _, ok := err.(*stdexec.ExitError); ok {
			return axerr.Wrap(axerr.NonZeroExit, "command exited non-zero", err).WithCommand(body)
		}
		return axerr.Wrap(axerr.SubprocessSpawnFailed, "command failed", err).WithCommand(body)
	}
}
