package frames

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// RunOptions configures an external command.
type RunOptions struct {
	Dir    string
	Env    []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// RunResult captures the output of a finished command.
type RunResult struct {
	Stdout []byte
	Stderr []byte
}

// Process is a running command whose stdout is consumed as a stream.
type Process interface {
	Stdout() io.Reader
	// Wait blocks until the command exits. Its error includes the tail of
	// stderr when the command failed.
	Wait() error
	Kill() error
}

// Runner executes ffmpeg and ffprobe. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error)
	Start(ctx context.Context, command string, args []string, opts RunOptions) (Process, error)
}

// CmdRunner runs real binaries through os/exec.
type CmdRunner struct{}

func (CmdRunner) Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error) {
	cmd := newCommand(ctx, command, args, opts)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = teeWriter(&stdoutBuf, opts.Stdout)
	cmd.Stderr = teeWriter(&stderrBuf, opts.Stderr)

	err := cmd.Run()
	return RunResult{Stdout: stdoutBuf.Bytes(), Stderr: stderrBuf.Bytes()}, err
}

func (CmdRunner) Start(ctx context.Context, command string, args []string, opts RunOptions) (Process, error) {
	cmd := newCommand(ctx, command, args, opts)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	proc := &cmdProcess{cmd: cmd, stdout: stdout}
	cmd.Stderr = teeWriter(&proc.stderr, opts.Stderr)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return proc, nil
}

func newCommand(ctx context.Context, command string, args []string, opts RunOptions) *exec.Cmd {
	cmd := exec.CommandContext(ctx, command, args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	}
	return cmd
}

func teeWriter(buf *bytes.Buffer, extra io.Writer) io.Writer {
	if extra == nil {
		return buf
	}
	return io.MultiWriter(buf, extra)
}

type cmdProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr bytes.Buffer

	waitOnce sync.Once
	waitErr  error
}

func (p *cmdProcess) Stdout() io.Reader { return p.stdout }

func (p *cmdProcess) Wait() error {
	p.waitOnce.Do(func() {
		if err := p.cmd.Wait(); err != nil {
			if tail := stderrTail(p.stderr.String()); tail != "" {
				err = fmt.Errorf("%w: %s", err, tail)
			}
			p.waitErr = err
		}
	})
	return p.waitErr
}

func (p *cmdProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

func stderrTail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.TrimSpace(strings.Join(lines, " | "))
}

var _ Runner = CmdRunner{}
