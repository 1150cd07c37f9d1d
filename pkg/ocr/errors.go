package ocr

import "errors"

var (
	// ErrNotFound indicates the input path does not exist
	ErrNotFound = errors.New("input file not found")
	// ErrUnsupportedFormat indicates the file extension is neither an image nor a PDF
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrUnclassifiable indicates an input that is not a file list, directory or supported file
	ErrUnclassifiable = errors.New("could not determine how to process input; it must be an image file, PDF, directory, or a text file containing file paths")
	// ErrPDFUnavailable indicates PDF processing was requested without a rasterizer
	ErrPDFUnavailable = errors.New("PDF support is unavailable: pdftoppm was not found")
	// ErrNotDirectory indicates a directory batch was requested on something else
	ErrNotDirectory = errors.New("input path is not a directory")
)
