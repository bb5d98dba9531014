// Package ffmpeg provides FFmpeg capture process management.
package ffmpeg

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/oszuidwest/zwfm-mixroute/internal/types"
	"github.com/oszuidwest/zwfm-mixroute/internal/util"
)

// quitCommand makes FFmpeg finish its output and exit.
const quitCommand = "q\n"

// Capture is a running FFmpeg subprocess streaming raw audio on stdout.
// Stderr is drained into a bounded tail so it never blocks the process.
type Capture struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr *tailBuffer
}

// StartCapture launches an FFmpeg capture subprocess.
// A spawn failure is returned as *types.ToolInvocationError.
func StartCapture(ffmpegPath string, args []string) (*Capture, error) {
	cmd := exec.Command(ffmpegPath, args...)

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		closePipe("stdin", stdinPipe)
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	stderr := newTailBuffer(stderrTailSize)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		closePipe("stdin", stdinPipe)
		closePipe("stdout", stdoutPipe)
		return nil, &types.ToolInvocationError{Tool: ffmpegPath, Err: err}
	}

	return &Capture{
		cmd:    cmd,
		stdin:  stdinPipe,
		stdout: stdoutPipe,
		stderr: stderr,
	}, nil
}

// Read reads raw audio from the process stdout.
func (c *Capture) Read(p []byte) (int, error) {
	return c.stdout.Read(p)
}

// Quit sends the quit command on stdin and closes it.
func (c *Capture) Quit() error {
	_, writeErr := io.WriteString(c.stdin, quitCommand)
	return errors.Join(writeErr, c.stdin.Close())
}

// Close closes the stdout pipe.
func (c *Capture) Close() error {
	return c.stdout.Close()
}

// Wait waits for the process to exit. A failed exit carries the last stderr line.
func (c *Capture) Wait() error {
	err := c.cmd.Wait()
	if err == nil {
		return nil
	}
	if msg := util.ExtractLastError(c.stderr.String()); msg != "" {
		return fmt.Errorf("%w: %s", err, msg)
	}
	return err
}

func closePipe(name string, pipe io.Closer) {
	if err := pipe.Close(); err != nil {
		slog.Warn("failed to close pipe", "pipe", name, "error", err)
	}
}
