// Package tesseract wraps the Tesseract OCR command-line engine.
//
// The package covers the process boundary only: building the argument list
// from a Config, verifying the executable at startup and running it once per
// image. Recognition itself happens entirely inside the external process.
//
// Invocation shape:
//
//	tesseract <input-image> <output-base> -l <lang> --psm <n> --oem <n> [extra...] [--tessdata-dir <dir>] [pdf] [txt]
//
// The engine writes <output-base>.txt and/or <output-base>.pdf depending on
// the requested output formats. With no format token it writes text only.
package tesseract

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultCommand is the executable looked up on PATH when no path is configured
const DefaultCommand = "tesseract"

// Engine runs a verified Tesseract executable
type Engine struct {
	path    string
	version string
}

// NewEngine probes the executable with --version and returns an Engine for it.
// A missing executable yields ErrEngineNotFound; a failing probe yields a
// *ProcessError. Both name the configured path.
func NewEngine(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		path = DefaultCommand
	}

	cmd := exec.CommandContext(ctx, path, "--version")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || isNotExist(err) {
			return nil, fmt.Errorf("%w at '%s'", ErrEngineNotFound, path)
		}
		return nil, &ProcessError{Path: path, Args: []string{"--version"}, Stderr: stderr.String(), Err: err}
	}

	// Older releases print the version banner on stderr
	banner := stdout.String()
	if strings.TrimSpace(banner) == "" {
		banner = stderr.String()
	}
	return &Engine{path: path, version: firstLine(banner)}, nil
}

// Path returns the executable path the engine was created with
func (e *Engine) Path() string { return e.path }

// Version returns the first line of the --version banner
func (e *Engine) Version() string { return e.version }

// Run invokes the engine once on input, writing outputs next to outputBase.
// A non-zero exit status is returned as *ProcessError.
func (e *Engine) Run(ctx context.Context, input, outputBase string, args ...string) error {
	argv := append([]string{input, outputBase}, args...)
	cmd := exec.CommandContext(ctx, e.path, argv...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &ProcessError{Path: e.path, Args: argv, Stderr: stderr.String(), Err: err}
	}
	return nil
}

func firstLine(s string) string {
	sc := bufio.NewScanner(strings.NewReader(s))
	if sc.Scan() {
		return strings.TrimSpace(sc.Text())
	}
	return ""
}
