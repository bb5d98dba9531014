package util

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/oszuidwest/zwfm-mixroute/internal/types"
)

// Runner runs an external tool to completion and returns its output streams.
type Runner func(name string, args ...string) (stdout, stderr []byte, err error)

// RunTool runs name with args and the C locale, so output keys are not translated.
// A spawn failure is returned as *types.ToolInvocationError. A non-zero exit
// status is returned as a plain error alongside the captured output.
func RunTool(name string, args ...string) (stdout, stderr []byte, err error) {
	cmd := exec.Command(name, args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := cmd.Start(); err != nil {
		return nil, nil, &types.ToolInvocationError{Tool: name, Err: err}
	}

	err = cmd.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return outBuf.Bytes(), errBuf.Bytes(), &types.ToolInvocationError{Tool: name, Err: err}
	}
	if err != nil {
		if msg := ExtractLastError(errBuf.String()); msg != "" {
			err = fmt.Errorf("%s: %w: %s", name, err, msg)
		} else {
			err = fmt.Errorf("%s: %w", name, err)
		}
	}
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// IsInvocationError reports whether err means the tool could not be spawned.
func IsInvocationError(err error) bool {
	var invErr *types.ToolInvocationError
	return errors.As(err, &invErr)
}
