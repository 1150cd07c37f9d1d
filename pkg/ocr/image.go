package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gardar/tessbatch/pkg/tesseract"
)

// outputFormats resolves the engine output formats for one run. With no
// format token the engine writes text only. Asking for "pdf" alone suppresses
// that default, so "txt" is requested explicitly when text is also needed.
func outputFormats(cfg tesseract.Config, returnText bool) []string {
	if !cfg.OutputPDF {
		return nil
	}
	if returnText {
		return []string{tesseract.FormatPDF, tesseract.FormatText}
	}
	return []string{tesseract.FormatPDF}
}

// processImage runs the engine once on imagePath. Outputs go to
// <destDir>/<base> or, when destDir is empty, to a private scratch directory
// that is removed before returning.
func (o *OCR) processImage(
	ctx context.Context,
	imagePath string,
	destDir string,
	cfg tesseract.Config,
	base string,
	returnText bool,
) (Text, error) {
	if _, err := os.Stat(imagePath); err != nil {
		return Text{}, fmt.Errorf("%w: %s", ErrNotFound, imagePath)
	}

	if base == "" {
		base = stem(imagePath)
	}

	var outBase string
	if destDir != "" {
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return Text{}, fmt.Errorf("failed to create output directory %s: %w", destDir, err)
		}
		outBase = filepath.Join(destDir, base)
	} else {
		scratch, err := newScratchDir("tessbatch-img-*", o.log)
		if err != nil {
			return Text{}, err
		}
		defer scratch.release()
		outBase = filepath.Join(scratch.path, base)
	}

	args := append(cfg.BaseArgs(), outputFormats(cfg, returnText)...)
	log := o.log.WithFields(logrus.Fields{"image": imagePath, "output": outBase})
	log.Info("Running Tesseract")
	log.WithField("args", strings.Join(args, " ")).Debug("Tesseract command")

	if err := o.engine.Run(ctx, imagePath, outBase, args...); err != nil {
		return Text{}, fmt.Errorf("OCR failed for %s: %w", imagePath, err)
	}

	if !returnText {
		return Text{}, nil
	}
	return o.readOutputText(ctx, log, imagePath, outBase, cfg), nil
}

// readOutputText reads <outBase>.txt. If the engine did not write it, the
// engine is run once more with only the language flag; a second miss yields
// an absent result rather than an error.
func (o *OCR) readOutputText(ctx context.Context, log *logrus.Entry, imagePath, outBase string, cfg tesseract.Config) Text {
	txtPath := outBase + ".txt"

	if text, err := readTextFile(txtPath); err == nil {
		return someText(text)
	}

	log.WithField("path", txtPath).Warn("Text output not found, running Tesseract again for text output")
	if err := o.engine.Run(ctx, imagePath, outBase, "-l", cfg.Lang); err != nil {
		log.WithError(err).Error("Text-only Tesseract run failed")
		return Text{}
	}

	text, err := readTextFile(txtPath)
	if err != nil {
		log.WithError(err).WithField("path", txtPath).Error("Failed to create text output file")
		return Text{}
	}
	return someText(text)
}

// stem returns the file name without directory and extension
func stem(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
