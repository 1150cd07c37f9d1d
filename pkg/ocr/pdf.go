package ocr

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gardar/tessbatch/pkg/pdfmerge"
	"github.com/gardar/tessbatch/pkg/tesseract"
)

// pageSeparator joins per-page texts in returned and combined output
const pageSeparator = "\n\n"

// pageArtifact tracks the outputs of one rasterized page
type pageArtifact struct {
	Number    int    // 1-based page number
	ImagePath string // Rendered page in the pipeline scratch directory
	Text      Text   // Extracted text, when produced
	PDFPath   string // Searchable PDF for this page, when it exists and is needed for merging
}

// processPDF rasterizes pdfPath and runs every page through processImage in
// order. With combine and a destination, per-page outputs are grouped in
// <destDir>/pages/<base>/ and combined into <destDir>/<base>.txt and
// <destDir>/<base>.pdf.
func (o *OCR) processPDF(
	ctx context.Context,
	pdfPath string,
	destDir string,
	cfg tesseract.Config,
	base string,
	returnText bool,
	combine bool,
) (Text, error) {
	if !o.caps.PDF {
		return Text{}, fmt.Errorf("%w (processing %s)", ErrPDFUnavailable, pdfPath)
	}
	if _, err := os.Stat(pdfPath); err != nil {
		return Text{}, fmt.Errorf("%w: %s", ErrNotFound, pdfPath)
	}

	log := o.log.WithField("pdf", pdfPath)
	log.Info("Converting PDF to images")
	images, err := o.rasterizer.Rasterize(ctx, pdfPath, cfg.DPI)
	if err != nil {
		return Text{}, fmt.Errorf("failed to rasterize %s: %w", pdfPath, err)
	}
	if len(images) == 0 {
		log.Warn("No pages found in PDF")
		return Text{}, nil
	}

	if base == "" {
		base = stem(pdfPath)
	}

	pageDir := destDir
	if combine && destDir != "" {
		pageDir = filepath.Join(destDir, "pages", base)
		if err := os.MkdirAll(pageDir, 0o755); err != nil {
			return Text{}, fmt.Errorf("failed to create page directory %s: %w", pageDir, err)
		}
	}

	scratch, err := newScratchDir("tessbatch-pdf-*", o.log)
	if err != nil {
		return Text{}, err
	}
	defer scratch.release()

	pages := make([]pageArtifact, len(images))
	for i, img := range images {
		pages[i] = pageArtifact{
			Number:    i + 1,
			ImagePath: filepath.Join(scratch.path, fmt.Sprintf("page_%d.png", i+1)),
		}
		if err := writePNG(pages[i].ImagePath, img); err != nil {
			return Text{}, err
		}
	}

	wantText := returnText || combine
	for i := range pages {
		page := &pages[i]
		pageBase := fmt.Sprintf("%s_page_%d", base, page.Number)

		text, err := o.processImage(ctx, page.ImagePath, pageDir, cfg, pageBase, wantText)
		if err != nil {
			return Text{}, fmt.Errorf("page %d of %s: %w", page.Number, pdfPath, err)
		}
		page.Text = text

		if combine && pageDir != "" && cfg.OutputPDF {
			if p := filepath.Join(pageDir, pageBase+".pdf"); fileExists(p) {
				page.PDFPath = p
			}
		}
	}

	texts, pdfs := collectPages(pages)

	if combine && destDir != "" && len(texts) > 0 {
		combinedTxt := filepath.Join(destDir, base+".txt")
		if err := os.WriteFile(combinedTxt, []byte(strings.Join(texts, pageSeparator)), 0o644); err != nil {
			return Text{}, fmt.Errorf("failed to write combined text %s: %w", combinedTxt, err)
		}
		log.WithField("path", combinedTxt).Info("Created combined text file")

		if cfg.OutputPDF && len(pdfs) > 0 {
			o.mergePages(ctx, log, pdfs, filepath.Join(destDir, base+".pdf"))
		}
	}

	if !returnText {
		return Text{}, nil
	}
	return someText(strings.Join(texts, pageSeparator)), nil
}

// collectPages returns the produced page texts and page PDFs in page order
func collectPages(pages []pageArtifact) (texts, pdfs []string) {
	for _, p := range pages {
		if p.Text.Valid {
			texts = append(texts, p.Text.String)
		}
		if p.PDFPath != "" {
			pdfs = append(pdfs, p.PDFPath)
		}
	}
	return texts, pdfs
}

// mergePages merges per-page PDFs into out. Failures are logged only, so
// the combined text output stands on its own.
func (o *OCR) mergePages(ctx context.Context, log *logrus.Entry, pdfs []string, out string) {
	if !o.caps.Merge {
		log.Warn("PDF merger not available. Cannot create combined PDF")
		return
	}
	if err := o.merger.Merge(ctx, pdfs, out); err != nil {
		log.WithError(err).Error("Failed to create combined PDF")
		return
	}

	entry := log.WithField("path", out)
	if n, err := pdfmerge.PageCount(out); err == nil {
		entry = entry.WithField("pages", n)
	}
	entry.Info("Created combined PDF file")
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to save page image: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode page image %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
