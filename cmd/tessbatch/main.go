// tessbatch is a command-line tool for running Tesseract OCR over images,
// PDFs, directories and file lists.
//
// A single input path is classified once: an image or PDF is processed on
// its own, a directory is scanned for supported files and a .txt file whose
// first line names an existing path is read as a list of inputs. Batch items
// are isolated, so one failing file never stops the rest.
//
// Usage:
//
//	tessbatch [options] <input>
//
// Output options:
//
//	-o, --output dir        Directory for .txt/.pdf outputs (default: none, text only)
//	--basename name         Output basename for a single file (default: input stem)
//	--pdf                   Also produce searchable PDFs
//	--combine               Combine multi-page PDF results into one .txt and one .pdf
//	--print                 Print extracted text to stdout
//
// Engine options:
//
//	-l, --lang lang         Language, e.g. eng+deu (default "eng")
//	--dpi n                 PDF rasterization resolution (default 300)
//	--psm n / --oem n       Page segmentation and engine modes (default 3)
//	--extra args            Extra engine arguments
//	--tessdata-dir dir      Language data directory
//	--config-string s       Engine options as one string, e.g. "-l jpn --psm 6 pdf"
//	--config file           YAML file with engine options
//
// Every option can also be set from the environment as TESSBATCH_<NAME>,
// and a .env file in the working directory is loaded first.
//
// Examples:
//
// OCR a scanned PDF into a searchable PDF and a combined text file:
//
//	tessbatch --pdf --combine -o out/ scan.pdf
//
// OCR every image under a directory tree and print the text:
//
//	tessbatch -r --print --ext png --ext jpg ./photos
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/gardar/tessbatch/pkg/ocr"
	"github.com/gardar/tessbatch/pkg/tesseract"
)

// Version information (set during build)
var Version = "dev"

const lockFileName = ".tessbatch.lock"

var (
	errItemsFailed = errors.New("one or more items failed")
	errLocked      = errors.New("output directory is locked by another tessbatch run")
)

func main() {
	// A missing .env is normal
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(os.Stdout, os.Stderr)
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

func envVars(name string) []string {
	return []string{"TESSBATCH_" + name}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	def := tesseract.DefaultConfig()

	return &cli.App{
		Name:      "tessbatch",
		Usage:     "Batch OCR for images, PDFs, directories and file lists",
		UsageText: "tessbatch [options] <input>",
		Version:   Version,
		Writer:    stdout,
		ErrWriter: stderr,
		// Errors are reported by main so tests can inspect them
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory", EnvVars: envVars("OUTPUT")},
			&cli.StringFlag{Name: "lang", Aliases: []string{"l"}, Value: def.Lang, Usage: "Tesseract language", EnvVars: envVars("LANG")},
			&cli.IntFlag{Name: "dpi", Value: def.DPI, Usage: "Resolution for PDF rasterization", EnvVars: envVars("DPI")},
			&cli.IntFlag{Name: "psm", Value: def.PSM, Usage: "Page segmentation mode", EnvVars: envVars("PSM")},
			&cli.IntFlag{Name: "oem", Value: def.OEM, Usage: "OCR engine mode", EnvVars: envVars("OEM")},
			&cli.StringFlag{Name: "extra", Usage: "Extra Tesseract arguments", EnvVars: envVars("EXTRA")},
			&cli.BoolFlag{Name: "pdf", Usage: "Also create searchable PDFs", EnvVars: envVars("PDF")},
			&cli.StringFlag{Name: "tessdata-dir", Usage: "Tesseract language data directory", EnvVars: envVars("TESSDATA_DIR")},
			&cli.StringFlag{Name: "config-string", Usage: "Engine options as a single string; overrides individual engine flags", EnvVars: envVars("CONFIG_STRING")},
			&cli.StringFlag{Name: "config", Usage: "YAML file with engine options", EnvVars: envVars("CONFIG")},
			&cli.BoolFlag{Name: "print", Usage: "Print extracted text to stdout", EnvVars: envVars("PRINT")},
			&cli.BoolFlag{Name: "recursive", Aliases: []string{"r"}, Usage: "Descend into subdirectories", EnvVars: envVars("RECURSIVE")},
			&cli.BoolFlag{Name: "combine", Usage: "Combine multi-page PDF outputs", EnvVars: envVars("COMBINE")},
			&cli.StringFlag{Name: "basename", Usage: "Output basename for a single file", EnvVars: envVars("BASENAME")},
			&cli.StringSliceFlag{Name: "ext", Usage: "File extension to include from directories (repeatable)", EnvVars: envVars("EXT")},
			&cli.StringFlag{Name: "tesseract", Value: tesseract.DefaultCommand, Usage: "Tesseract executable", EnvVars: envVars("TESSERACT")},
			&cli.StringFlag{Name: "pdftoppm", Value: "pdftoppm", Usage: "pdftoppm executable", EnvVars: envVars("PDFTOPPM")},
			&cli.BoolFlag{Name: "no-merge", Usage: "Never merge per-page PDFs", EnvVars: envVars("NO_MERGE")},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Log level (debug, info, warn, error)", EnvVars: append(envVars("LOG_LEVEL"), "LOG_LEVEL")},
		},
		Action: func(c *cli.Context) error {
			return run(c, stdout)
		},
	}
}

func run(c *cli.Context, stdout io.Writer) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one input path, got %d", c.NArg())
	}
	input := c.Args().First()

	logger := logrus.New()
	logger.SetOutput(c.App.ErrWriter)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)

	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	outDir := c.String("output")
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		fileLock := flock.New(filepath.Join(outDir, lockFileName))
		locked, err := fileLock.TryLock()
		if err != nil {
			return fmt.Errorf("failed to lock output directory: %w", err)
		}
		if !locked {
			return fmt.Errorf("%w: %s", errLocked, outDir)
		}
		defer func() {
			if err := fileLock.Unlock(); err != nil {
				logger.WithError(err).Warn("Failed to release output directory lock")
			}
		}()
	}

	o, err := ocr.New(c.Context, ocr.Options{
		TesseractPath:    c.String("tesseract"),
		PdftoppmPath:     c.String("pdftoppm"),
		DefaultConfig:    &cfg,
		DefaultOutputDir: outDir,
		DisableMerge:     c.Bool("no-merge"),
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	outcome, err := o.Process(c.Context, input, ocr.Request{
		ReturnText: c.Bool("print"),
		Recursive:  c.Bool("recursive"),
		Combine:    c.Bool("combine"),
		OutputBase: c.String("basename"),
		Extensions: c.StringSlice("ext"),
	})
	if err != nil {
		return err
	}

	if outcome.Kind == ocr.KindFile {
		if outcome.Text.Valid {
			fmt.Fprintln(stdout, outcome.Text.String)
		}
		return nil
	}

	if c.Bool("print") {
		for _, res := range outcome.Results {
			if res.Text.Valid {
				fmt.Fprintf(stdout, "==> %s <==\n%s\n", res.Path, res.Text.String)
			}
		}
	}
	return printSummary(c.App.ErrWriter, outcome.Results)
}

// resolveConfig layers engine options: defaults or the YAML file, then
// explicitly set flags, then the config string.
func resolveConfig(c *cli.Context) (tesseract.Config, error) {
	cfg := tesseract.DefaultConfig()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = tesseract.LoadConfigFile(path); err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if c.IsSet("lang") {
		cfg.Lang = c.String("lang")
	}
	if c.IsSet("dpi") {
		cfg.DPI = c.Int("dpi")
	}
	if c.IsSet("psm") {
		cfg.PSM = c.Int("psm")
	}
	if c.IsSet("oem") {
		cfg.OEM = c.Int("oem")
	}
	if c.IsSet("extra") {
		cfg.ConfigString = c.String("extra")
	}
	if c.IsSet("pdf") {
		cfg.OutputPDF = c.Bool("pdf")
	}
	if c.IsSet("tessdata-dir") {
		cfg.TessdataDir = c.String("tessdata-dir")
	}

	if s := c.String("config-string"); s != "" {
		parsed, err := tesseract.ParseConfigString(s)
		if err != nil {
			return cfg, err
		}
		parsed.DPI = cfg.DPI
		cfg = parsed
	}

	if cfg.DPI <= 0 {
		return cfg, fmt.Errorf("dpi must be positive, got %d", cfg.DPI)
	}
	return cfg, nil
}

func printSummary(w io.Writer, results ocr.Results) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	failed := results.Failed()
	fmt.Fprintf(w, "%s %d of %d items processed\n", green("✓"), len(results)-len(failed), len(results))
	if len(failed) == 0 {
		return nil
	}
	for _, res := range failed {
		fmt.Fprintf(w, "%s %s: %v\n", red("✗"), res.Path, res.Err)
	}
	return fmt.Errorf("%w: %d of %d", errItemsFailed, len(failed), len(results))
}
