package tesseract

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrEngineNotFound is returned when the configured executable cannot be started
var ErrEngineNotFound = errors.New("tesseract executable not found; make sure Tesseract is installed and in your PATH")

// ProcessError reports a non-zero exit of the engine along with its stderr
type ProcessError struct {
	Path   string   // Executable that was run
	Args   []string // Arguments passed to it
	Stderr string   // Diagnostic stream, verbatim
	Err    error    // Underlying exec error
}

func (e *ProcessError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("tesseract failed (%s): %v", e.Path, e.Err)
	}
	return fmt.Sprintf("tesseract failed (%s): %v: %s", e.Path, e.Err, msg)
}

func (e *ProcessError) Unwrap() error { return e.Err }

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
