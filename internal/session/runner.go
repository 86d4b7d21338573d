package session

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
)

// defaultTailLines is how many trailing diagnostic lines are retained for
// lastError on crash.
const defaultTailLines = 20

// runner owns the mechanics of one encoder subprocess: spawning, draining
// its output, signalling, and exit-code extraction. The state machine on
// top of it lives in Session.
type runner struct {
	binary string
	args   []string

	logger        *slog.Logger
	encoderLogger *slog.Logger

	cmd        *exec.Cmd
	tail       *tailBuffer
	waitCh     chan error
	outputDone chan struct{}
}

func newRunner(binary string, args []string, tailLines int, logger, encoderLogger *slog.Logger) *runner {
	if tailLines <= 0 {
		tailLines = defaultTailLines
	}
	return &runner{
		binary:        binary,
		args:          args,
		logger:        logger,
		encoderLogger: encoderLogger,
		tail:          newTailBuffer(tailLines),
	}
}

// start spawns the subprocess and begins draining its output. The process
// gets its own group so a kill cannot take the supervisor down with it.
func (r *runner) start() error {
	r.cmd = exec.Command(r.binary, r.args...)
	r.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := r.cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := r.cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := r.cmd.Start(); err != nil {
		return err
	}

	r.logger.Info("Encoder started", "pid", r.cmd.Process.Pid, "binary", r.binary)

	// Drain both streams continuously so the subprocess never blocks on a
	// full pipe. Stderr feeds the crash tail.
	r.outputDone = make(chan struct{}, 2)
	go func() {
		r.drain(stdout, false)
		r.outputDone <- struct{}{}
	}()
	go func() {
		r.drain(stderr, true)
		r.outputDone <- struct{}{}
	}()

	r.waitCh = make(chan error, 1)
	go func() {
		err := r.cmd.Wait()
		// Both drains finish at pipe EOF; collect them before reporting
		// the exit so the tail is complete when the state machine reads it.
		<-r.outputDone
		<-r.outputDone
		r.waitCh <- err
	}()

	return nil
}

// wait returns the channel that receives the subprocess exit error.
func (r *runner) wait() <-chan error {
	return r.waitCh
}

// pid returns the subprocess pid, or 0 before start.
func (r *runner) pid() int {
	if r.cmd == nil || r.cmd.Process == nil {
		return 0
	}
	return r.cmd.Process.Pid
}

// signalStop sends SIGINT without waiting.
func (r *runner) signalStop() {
	if r.cmd == nil || r.cmd.Process == nil {
		return
	}
	r.logger.Info("Sending SIGINT to encoder", "pid", r.cmd.Process.Pid)
	if err := r.cmd.Process.Signal(syscall.SIGINT); err != nil {
		r.logger.Warn("Failed to send SIGINT", "error", err)
	}
}

// kill force-terminates the subprocess.
func (r *runner) kill() {
	if r.cmd == nil || r.cmd.Process == nil {
		return
	}
	if err := r.cmd.Process.Kill(); err != nil {
		// "process already finished" is fine - it exited between the
		// timeout and the kill.
		if !errors.Is(err, os.ErrProcessDone) {
			r.logger.Error("Failed to kill encoder", "error", err)
		}
	}
}

// lastLines returns the retained stderr tail, verbatim.
func (r *runner) lastLines() string {
	return r.tail.String()
}

// drain relogs subprocess output through the encoder logger at the level
// the line itself declares. The text is never parsed for control flow;
// stderr additionally feeds the crash tail.
func (r *runner) drain(reader io.Reader, isStderr bool) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()

		if isStderr {
			r.tail.Add(line)
		}

		level, msg := ParseLogLevel(line)
		switch level {
		case "fatal", "panic", "error":
			r.encoderLogger.Error(msg)
		case "warning":
			r.encoderLogger.Warn(msg)
		case "debug", "verbose", "trace":
			r.encoderLogger.Debug(msg)
		default:
			r.encoderLogger.Info(msg)
		}
	}

	if err := scanner.Err(); err != nil {
		r.logger.Warn("Error reading encoder output", "error", err)
	}
}

// exitCodeFromError extracts the exit code from a Wait error.
// Returns 0 for nil, the exit code for ExitError, or 1 otherwise.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// tailBuffer retains the last n lines written to it.
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}
