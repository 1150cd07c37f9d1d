package ocr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// scratchDir is a private temporary directory owned by one call.
// Callers must defer release immediately after acquiring it.
type scratchDir struct {
	path string
	log  *logrus.Logger
}

func newScratchDir(pattern string, log *logrus.Logger) (*scratchDir, error) {
	path, err := os.MkdirTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}
	return &scratchDir{path: path, log: log}, nil
}

// release removes the directory tree. It refuses to remove anything outside
// the process temporary root; failures are logged, never returned.
func (s *scratchDir) release() {
	if s == nil {
		return
	}
	if !underTempRoot(s.path) {
		s.log.WithField("path", s.path).Warn("Refusing to remove directory outside the temporary root")
		return
	}
	if err := os.RemoveAll(s.path); err != nil {
		s.log.WithError(err).WithField("path", s.path).Warn("Failed to clean up temporary files")
	}
}

func underTempRoot(path string) bool {
	root, err := filepath.Abs(os.TempDir())
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
