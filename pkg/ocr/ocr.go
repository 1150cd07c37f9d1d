// Package ocr orchestrates batch OCR of images and PDFs.
//
// An OCR value drives an external Tesseract engine over single images, over
// PDFs rasterized page by page, and over whole directories or file lists.
// Work is strictly sequential: one external process runs at a time.
//
// Key Features:
//
// - Single images: text and/or searchable PDF next to a chosen output base
// - PDFs: per-page OCR with optional combined text and merged searchable PDF
// - Batches: directories (optionally recursive) and newline-delimited file lists
// - Failure isolation: one bad item never aborts a batch
// - Scoped scratch space: intermediate files never outlive the call
//
// Main Functions:
//
// - New: Verifies the engine and detects PDF capabilities
// - Process: Classifies an input path and dispatches it
// - ProcessFile, ProcessDirectory, ProcessFileList: Direct entry points
package ocr

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gardar/tessbatch/pkg/pdfmerge"
	"github.com/gardar/tessbatch/pkg/raster"
	"github.com/gardar/tessbatch/pkg/tesseract"
)

// SupportedImageFormats lists the image extensions handed directly to the engine
var SupportedImageFormats = []string{".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp", ".gif"}

// Options configures a new OCR orchestrator
type Options struct {
	TesseractPath    string            // Engine executable (default "tesseract")
	PdftoppmPath     string            // Rasterizer executable (default "pdftoppm")
	DefaultConfig    *tesseract.Config // Config used when a request has none (nil = tesseract.DefaultConfig())
	DefaultOutputDir string            // Output directory used when a request has none
	Rasterizer       raster.Rasterizer // Overrides the pdftoppm rasterizer
	Merger           pdfmerge.Merger   // Overrides the pdfcpu merger
	DisableMerge     bool              // Never merge per-page PDFs
	Logger           *logrus.Logger    // Logger (nil = new text logger)
}

// Capabilities records which optional collaborators are usable.
// It is computed once by New.
type Capabilities struct {
	PDF   bool // A rasterizer is available
	Merge bool // A PDF merger is available
}

// OCR runs documents through the engine
type OCR struct {
	engine           *tesseract.Engine
	rasterizer       raster.Rasterizer
	merger           pdfmerge.Merger
	caps             Capabilities
	defaultConfig    tesseract.Config
	defaultOutputDir string
	log              *logrus.Logger
}

// New verifies the engine with a version probe and detects optional
// capabilities. A missing or failing engine aborts construction; a missing
// rasterizer or merger only disables the corresponding feature.
func New(ctx context.Context, opts Options) (*OCR, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	engine, err := tesseract.NewEngine(ctx, opts.TesseractPath)
	if err != nil {
		return nil, fmt.Errorf("tesseract check failed: %w", err)
	}
	log.WithField("version", engine.Version()).Info("Using Tesseract")

	o := &OCR{
		engine:        engine,
		defaultConfig: tesseract.DefaultConfig(),
		log:           log,
	}
	if opts.DefaultConfig != nil {
		o.defaultConfig = *opts.DefaultConfig
	}

	if opts.DefaultOutputDir != "" {
		if err := os.MkdirAll(opts.DefaultOutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create default output directory: %w", err)
		}
		o.defaultOutputDir = opts.DefaultOutputDir
	}

	o.rasterizer = opts.Rasterizer
	if o.rasterizer == nil {
		poppler, err := raster.NewPoppler(opts.PdftoppmPath)
		if err != nil {
			log.WithError(err).Warn("PDF support is disabled; install poppler-utils to enable it")
		} else {
			o.rasterizer = poppler
		}
	}
	o.caps.PDF = o.rasterizer != nil

	if !opts.DisableMerge {
		o.merger = opts.Merger
		if o.merger == nil {
			o.merger = pdfmerge.NewPDFCPU()
		}
	} else {
		log.Warn("PDF merging is disabled; combined searchable PDFs will not be created")
	}
	o.caps.Merge = o.merger != nil

	return o, nil
}

// Capabilities reports the optional features detected by New
func (o *OCR) Capabilities() Capabilities { return o.caps }

// DefaultConfig returns a copy of the instance default config
func (o *OCR) DefaultConfig() tesseract.Config { return o.defaultConfig }

// Engine returns the verified engine
func (o *OCR) Engine() *tesseract.Engine { return o.engine }

func isSupportedImage(ext string) bool {
	for _, f := range SupportedImageFormats {
		if ext == f {
			return true
		}
	}
	return false
}

func isSupported(ext string) bool {
	return ext == ".pdf" || isSupportedImage(ext)
}

// supportedList renders the supported extensions for error messages
func supportedList() string {
	exts := append([]string{}, SupportedImageFormats...)
	sort.Strings(exts)
	return strings.Join(exts, ", ") + " and .pdf"
}
