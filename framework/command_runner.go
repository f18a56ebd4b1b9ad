package framework

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"runtime"
	"strings"
)

// LineSink receives streamed output one line at a time.
type LineSink interface {
	Push(line string)
}

// Execution tracks a command started by SafeExecutor.
type Execution struct {
	Command string

	done     chan struct{}
	err      error
	exitCode int
}

// Done is closed once the process exited and all of its output was pushed.
func (e *Execution) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the process finished and returns its exit error.
func (e *Execution) Wait() error {
	<-e.done
	return e.err
}

// ExitCode is valid after Done is closed. -1 means the process did not
// report a status (killed or never waited).
func (e *Execution) ExitCode() int {
	<-e.done
	return e.exitCode
}

// SafeExecutor runs shell command lines screened by a CommandGate and
// streams their merged stdout/stderr into a sink.
type SafeExecutor struct {
	Gate    *CommandGate
	Shell   []string
	Workdir string
	Env     []string
	Logger  *log.Logger
}

// NewSafeExecutor wires a gate and logger into an executor using the
// platform shell.
func NewSafeExecutor(gate *CommandGate, logger *log.Logger) *SafeExecutor {
	if gate == nil {
		gate = NewCommandGate()
	}
	return &SafeExecutor{Gate: gate, Logger: logger}
}

// Run validates command, pushes "$ <command>" and starts it. Output lines
// are pushed from a background goroutine in arrival order; Run itself
// returns as soon as the process has started. There is no implicit
// timeout; cancelling ctx kills the process.
func (x *SafeExecutor) Run(ctx context.Context, command string, sink LineSink) (*Execution, error) {
	if x == nil {
		return nil, errors.New("safe executor missing")
	}
	if sink == nil {
		return nil, errors.New("output sink required")
	}
	if strings.TrimSpace(command) == "" {
		return nil, errors.New("command required")
	}
	if err := x.Gate.Validate(command); err != nil {
		x.logf("rejected command %q: %v", command, err)
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	sink.Push("$ " + command)

	cmd := x.command(ctx, command)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return nil, fmt.Errorf("start %q: %w", command, err)
	}
	x.logf("started %q pid=%d", command, cmd.Process.Pid)

	exe := &Execution{Command: command, done: make(chan struct{}), exitCode: -1}
	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitErr <- err
	}()
	go func() {
		defer close(exe.done)
		streamLines(pr, sink)
		exe.err = <-waitErr
		if cmd.ProcessState != nil {
			exe.exitCode = cmd.ProcessState.ExitCode()
		}
		x.logf("command %q exited code=%d err=%v", command, exe.exitCode, exe.err)
	}()
	return exe, nil
}

// Launch validates command and starts it detached without capturing output.
// It is used for commands that open their own terminal window.
func (x *SafeExecutor) Launch(command string) error {
	if x == nil {
		return errors.New("safe executor missing")
	}
	if err := x.Gate.Validate(command); err != nil {
		x.logf("rejected launch %q: %v", command, err)
		return err
	}
	cmd := x.command(context.Background(), command)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %q: %w", command, err)
	}
	go func() {
		_ = cmd.Wait()
	}()
	x.logf("launched %q pid=%d", command, cmd.Process.Pid)
	return nil
}

func (x *SafeExecutor) command(ctx context.Context, command string) *exec.Cmd {
	shell := x.Shell
	if len(shell) == 0 {
		shell = defaultShell()
	}
	args := append(append([]string(nil), shell[1:]...), command)
	cmd := exec.CommandContext(ctx, shell[0], args...)
	if x.Workdir != "" {
		cmd.Dir = x.Workdir
	}
	if len(x.Env) > 0 {
		cmd.Env = append(cmd.Environ(), x.Env...)
	}
	return cmd
}

func (x *SafeExecutor) logf(format string, args ...interface{}) {
	logger := x.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("[exec] "+format, args...)
}

func defaultShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"sh", "-c"}
}

// streamLines pushes every line read from r, however long. Trailing
// whitespace (including carriage returns) is stripped. The reader is always
// drained to EOF so the writing process never blocks on a full pipe.
func streamLines(r io.Reader, sink LineSink) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			sink.Push(strings.TrimRight(line, " \t\r\n"))
		}
		if err != nil {
			if err != io.EOF {
				_, _ = io.Copy(io.Discard, r)
			}
			return
		}
	}
}

// ExternalLaunchCommand returns the shell command that opens a new terminal
// window running the python file at path.
func ExternalLaunchCommand(goos, path string) (string, error) {
	switch {
	case strings.HasPrefix(goos, "windows"):
		return fmt.Sprintf(`start cmd /k python "%s"`, path), nil
	case strings.HasPrefix(goos, "linux"):
		return fmt.Sprintf(`xterm -hold -e python3 "%s"`, path), nil
	case strings.HasPrefix(goos, "darwin"):
		return fmt.Sprintf(`osascript -e 'tell application "Terminal" to do script "python3 \"%s\""'`, path), nil
	default:
		return "", fmt.Errorf("external execution is not supported on %s", goos)
	}
}
