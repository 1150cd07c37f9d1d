package ocr

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Process classifies path once and dispatches it to the matching entry point.
// Single files report their text in Outcome.Text; directories and file lists
// report per-item results in Outcome.Results.
func (o *OCR) Process(ctx context.Context, path string, req Request) (Outcome, error) {
	kind, err := Classify(path)
	out := Outcome{Kind: kind}

	switch kind {
	case KindFileList:
		o.log.WithField("input", path).Info("Processing as file list")
		out.Results, err = o.ProcessFileList(ctx, path, req)
	case KindDirectory:
		o.log.WithField("input", path).Info("Processing as directory")
		out.Results, err = o.ProcessDirectory(ctx, path, req)
	case KindFile:
		o.log.WithField("input", path).Info("Processing as single file")
		out.Text, err = o.ProcessFile(ctx, path, req)
	case KindUnknown:
		return out, err
	}
	return out, err
}

// ProcessFile runs one image or PDF. The output directory falls back to the
// instance default and then to scratch space; the config falls back to the
// instance default.
func (o *OCR) ProcessFile(ctx context.Context, path string, req Request) (Text, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Text{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	outDir := req.OutputDir
	if outDir == "" {
		outDir = o.defaultOutputDir
	}
	cfg := o.defaultConfig
	if req.Config != nil {
		cfg = *req.Config
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return o.processPDF(ctx, path, outDir, cfg, req.OutputBase, req.ReturnText, req.Combine)
	case isSupportedImage(ext):
		return o.processImage(ctx, path, outDir, cfg, req.OutputBase, req.ReturnText)
	default:
		return Text{}, fmt.Errorf("%w: %q (%s). Supported formats: %s", ErrUnsupportedFormat, ext, path, supportedList())
	}
}

// ProcessDirectory runs every matching file under dir. Files are matched by
// lowercase extension against req.Extensions, or the supported formats when
// none are given. Item failures are recorded in the results, never returned.
func (o *OCR) ProcessDirectory(ctx context.Context, dir string, req Request) (Results, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	files, err := discoverFiles(dir, req.Recursive, extensionSet(req.Extensions))
	if err != nil {
		return nil, err
	}
	return o.runBatch(ctx, dir, files, req), nil
}

// ProcessFileList runs every path listed in listPath, one per line.
// Blank lines are skipped; item failures are recorded in the results.
func (o *OCR) ProcessFileList(ctx context.Context, listPath string, req Request) (Results, error) {
	files, err := readFileList(listPath)
	if err != nil {
		return nil, err
	}
	return o.runBatch(ctx, listPath, files, req), nil
}

// runBatch processes files sequentially and records exactly one result per
// distinct path; repeats are skipped. A failure is logged against its item and
// stored in place of text.
func (o *OCR) runBatch(ctx context.Context, source string, files []string, req Request) Results {
	log := o.log.WithFields(logrus.Fields{"batch": uuid.NewString(), "source": source})
	log.WithField("items", len(files)).Info("Starting batch")

	// Batch items are always named after their own file
	req.OutputBase = ""

	results := make(Results, 0, len(files))
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if seen[f] {
			log.WithField("file", f).Debug("Skipping duplicate item")
			continue
		}
		seen[f] = true

		text, err := o.ProcessFile(ctx, f, req)
		if err != nil {
			log.WithError(err).WithField("file", f).Error("Error processing file")
			results = append(results, Result{Path: f, Err: err})
			continue
		}
		log.WithField("file", f).Info("Processed")
		results = append(results, Result{Path: f, Text: text})
	}

	log.WithFields(logrus.Fields{
		"items":  len(results),
		"failed": len(results.Failed()),
	}).Info("Finished batch")
	return results
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool)
	if len(exts) == 0 {
		for _, e := range SupportedImageFormats {
			set[e] = true
		}
		set[".pdf"] = true
		return set
	}
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	return set
}

// discoverFiles lists regular files under dir in lexical order. Symlinks to
// regular files are included; symlinked directories are not descended into.
func discoverFiles(dir string, recursive bool, exts map[string]bool) ([]string, error) {
	var files []string
	match := func(name string) bool {
		return exts[strings.ToLower(filepath.Ext(name))]
	}

	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
		}
		for _, e := range entries {
			path := filepath.Join(dir, e.Name())
			if match(e.Name()) && isRegularFile(path, e) {
				files = append(files, path)
			}
		}
		return files, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if match(d.Name()) && isRegularFile(path, d) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dir, err)
	}
	return files, nil
}

func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func readFileList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file list: %w", err)
	}
	defer f.Close()

	var files []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			files = append(files, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file list %s: %w", path, err)
	}
	return files, nil
}
