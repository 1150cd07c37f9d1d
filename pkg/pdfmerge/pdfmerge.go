// Package pdfmerge concatenates per-page searchable PDFs into one document.
package pdfmerge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNoInputs is returned when Merge is called without any input files
var ErrNoInputs = errors.New("no PDF files to merge")

// Merger writes the pages of inputs, in order, into a single PDF at out
type Merger interface {
	Merge(ctx context.Context, inputs []string, out string) error
}

// PDFCPU merges with the pdfcpu library
type PDFCPU struct {
	conf *model.Configuration
}

func init() {
	// Keep pdfcpu from creating a config directory in the user's home
	api.DisableConfigDir()
}

// NewPDFCPU returns a merger using a relaxed validation configuration, which
// tolerates the minor syntax deviations found in engine-generated PDFs.
func NewPDFCPU() *PDFCPU {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFCPU{conf: conf}
}

// Merge implements Merger. The output is written to a temporary file in the
// target directory and renamed into place, so a failed merge never leaves a
// truncated document at out.
func (m *PDFCPU) Merge(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return ErrNoInputs
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(out), ".merge-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create merge target: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := api.MergeCreateFile(inputs, tmpPath, false, m.conf); err != nil {
		return fmt.Errorf("failed to merge %d PDFs into %s: %w", len(inputs), out, err)
	}
	if err := os.Rename(tmpPath, out); err != nil {
		return fmt.Errorf("failed to move merged PDF into place: %w", err)
	}
	return nil
}

// PageCount returns the number of pages in the PDF at path
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages of %s: %w", path, err)
	}
	return n, nil
}
