package exec

import (
	"bytes"
	stdctx "context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/axesdev/axes/internal/args"
	"github.com/axesdev/axes/internal/axerr"
	"github.com/axesdev/axes/internal/script/ast"
)

// syncBuffer lets concurrent parallel-batch members write to one
// buffer safely in tests.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func literalLine(body string, prefixes ast.Prefixes) ast.CommandLine {
	return ast.CommandLine{Prefixes: prefixes, Template: ast.Template{{Kind: ast.CLiteral, Literal: body}}}
}

func emptyResolution(t *testing.T) *args.Resolution {
	t.Helper()
	res, err := args.Resolve(nil, nil)
	require.NoError(t, err)
	return res
}

func TestRun_SequentialOrder(t *testing.T) {
	out := &syncBuffer{}
	opts := Options{Context: &Context{Args: emptyResolution(t)}, Stdout: out, Stderr: out, Trace: func(string) {}}
	lines := []ast.CommandLine{
		literalLine("echo one", ast.Prefixes{}),
		literalLine("echo two", ast.Prefixes{}),
	}
	err := Run(stdctx.Background(), lines, opts)
	require.NoError(t, err)
	require.Equal(t, "one\ntwo\n", out.String())
}

func TestRun_ParallelBatchWaitsBeforeSequentialLine(t *testing.T) {
	out := &syncBuffer{}
	opts := Options{Context: &Context{Args: emptyResolution(t)}, Stdout: out, Stderr: out, Trace: func(string) {}}
	lines := []ast.CommandLine{
		literalLine("sleep 0.05 && echo A", ast.Prefixes{Parallel: true}),
		literalLine("sleep 0.05 && echo B", ast.Prefixes{Parallel: true}),
		literalLine("echo C", ast.Prefixes{}),
	}
	err := Run(stdctx.Background(), lines, opts)
	require.NoError(t, err)
	s := out.String()
	require.Contains(t, s, "A\n")
	require.Contains(t, s, "B\n")
	require.True(t, len(s) >= len("A\nB\nC\n"))
	require.Equal(t, "C\n", s[len(s)-len("C\n"):])
}

func TestRun_EchoLinePrintsWithoutExecuting(t *testing.T) {
	out := &syncBuffer{}
	opts := Options{Context: &Context{Args: emptyResolution(t)}, Stdout: out, Stderr: out, Trace: func(string) {}}
	lines := []ast.CommandLine{literalLine("not a real command", ast.Prefixes{Echo: true})}
	err := Run(stdctx.Background(), lines, opts)
	require.NoError(t, err)
	require.Equal(t, "not a real command\n", out.String())
}

func TestRun_IgnoreErrorsSwallowsFailure(t *testing.T) {
	out := &syncBuffer{}
	opts := Options{Context: &Context{Args: emptyResolution(t)}, Stdout: out, Stderr: out, Trace: func(string) {}}
	lines := []ast.CommandLine{
		literalLine("exit 1", ast.Prefixes{IgnoreErrors: true}),
		literalLine("echo survived", ast.Prefixes{}),
	}
	err := Run(stdctx.Background(), lines, opts)
	require.NoError(t, err)
	require.Equal(t, "survived\n", out.String())
}

func TestRun_NonZeroExitFailsTask(t *testing.T) {
	out := &syncBuffer{}
	opts := Options{Context: &Context{Args: emptyResolution(t)}, Stdout: out, Stderr: out, Trace: func(string) {}}
	lines := []ast.CommandLine{literalLine("exit 1", ast.Prefixes{})}
	err := Run(stdctx.Background(), lines, opts)
	require.True(t, axerr.Is(err, axerr.NonZeroExit))
}

func TestRun_ParallelBatchIgnoreErrorsDoesNotFailBatch(t *testing.T) {
	out := &syncBuffer{}
	opts := Options{Context: &Context{Args: emptyResolution(t)}, Stdout: out, Stderr: out, Trace: func(string) {}}
	lines := []ast.CommandLine{
		literalLine("exit 1", ast.Prefixes{Parallel: true, IgnoreErrors: true}),
		literalLine("echo ok", ast.Prefixes{Parallel: true}),
	}
	err := Run(stdctx.Background(), lines, opts)
	require.NoError(t, err)
}

func TestRun_CancellationReturnsInterrupted(t *testing.T) {
	out := &syncBuffer{}
	opts := Options{Context: &Context{Args: emptyResolution(t)}, Stdout: out, Stderr: out, Trace: func(string) {}}
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), 30*time.Millisecond)
	defer cancel()
	lines := []ast.CommandLine{literalLine("sleep 5", ast.Prefixes{})}
	err := Run(ctx, lines, opts)
	require.True(t, axerr.Is(err, axerr.Interrupted))
}
