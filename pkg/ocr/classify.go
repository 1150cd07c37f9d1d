package ocr

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InputKind is the closed set of ways an input path can be processed
type InputKind int

const (
	KindUnknown   InputKind = iota // Not processable
	KindFileList                   // Text file listing one path per line
	KindDirectory                  // Directory of files
	KindFile                       // Single supported image or PDF
)

func (k InputKind) String() string {
	switch k {
	case KindFileList:
		return "file list"
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// Classify decides how path is processed. A .txt file counts as a file list
// when its first non-empty line names an existing path. Anything that is not
// a file list, a directory or a supported image or PDF yields KindUnknown and
// ErrUnclassifiable.
func Classify(path string) (InputKind, error) {
	info, err := os.Stat(path)
	if err != nil {
		return KindUnknown, fmt.Errorf("%w: %s: %v", ErrUnclassifiable, path, err)
	}

	if info.IsDir() {
		return KindDirectory, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".txt" && looksLikeFileList(path) {
		return KindFileList, nil
	}
	if isSupported(ext) {
		return KindFile, nil
	}
	return KindUnknown, fmt.Errorf("%w: %s", ErrUnclassifiable, path)
}

func looksLikeFileList(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		_, err := os.Stat(line)
		return err == nil
	}
	return false
}
