// Package raster converts PDF documents into page images.
//
// Rasterization is delegated to Poppler's pdftoppm, run as an external
// process. Because the tool may not be installed, NewPoppler reports its
// absence as ErrUnavailable so callers can disable PDF support up front
// instead of failing on the first document.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultCommand is the pdftoppm executable looked up on PATH
const DefaultCommand = "pdftoppm"

// ErrUnavailable is returned when no rasterizer executable can be found
var ErrUnavailable = errors.New("PDF rasterizer not available")

// Rasterizer renders every page of a PDF at the given resolution.
// Pages are returned in document order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath string, dpi int) ([]image.Image, error)
}

// Poppler rasterizes through the pdftoppm command
type Poppler struct {
	path string
}

// NewPoppler resolves the pdftoppm executable. An empty path means
// DefaultCommand on PATH.
func NewPoppler(path string) (*Poppler, error) {
	if path == "" {
		path = DefaultCommand
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, path, err)
	}
	return &Poppler{path: resolved}, nil
}

// Path returns the resolved executable path
func (p *Poppler) Path() string { return p.path }

// Rasterize renders pdfPath to PNG pages inside a private scratch directory,
// decodes them into memory and removes the scratch directory before returning.
func (p *Poppler) Rasterize(ctx context.Context, pdfPath string, dpi int) ([]image.Image, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("invalid DPI %d", dpi)
	}

	dir, err := os.MkdirTemp("", "tessbatch-raster-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create raster directory: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, p.path, "-r", strconv.Itoa(dpi), "-png", pdfPath, prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed for %s: %v: %s", pdfPath, err, strings.TrimSpace(stderr.String()))
	}

	files, err := pageFiles(dir)
	if err != nil {
		return nil, err
	}

	pages := make([]image.Image, 0, len(files))
	for _, f := range files {
		img, err := decodePNG(f)
		if err != nil {
			return nil, err
		}
		pages = append(pages, img)
	}
	return pages, nil
}

// pageFiles lists "page-<n>.png" outputs ordered by page number. pdftoppm
// zero-pads the number to the width of the page count, so lexical order is
// not reliable across documents.
func pageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list rendered pages: %w", err)
	}

	type page struct {
		num  int
		path string
	}
	var pages []page
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "page-") || filepath.Ext(name) != ".png" {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "page-"), ".png"))
		if err != nil {
			continue
		}
		pages = append(pages, page{num: num, path: filepath.Join(dir, name)})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].num < pages[j].num })

	paths := make([]string, len(pages))
	for i, p := range pages {
		paths[i] = p.path
	}
	return paths, nil
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rendered page %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
