package ocr

import "github.com/gardar/tessbatch/pkg/tesseract"

// Request carries the per-call options shared by every entry point
type Request struct {
	OutputDir  string            // Destination for outputs; empty uses the instance default or a scratch directory
	Config     *tesseract.Config // Engine options; nil uses the instance default
	ReturnText bool              // Read back and return the extracted text
	Recursive  bool              // Descend into subdirectories when processing a directory
	Combine    bool              // Combine multi-page PDF outputs into one text file and one PDF
	OutputBase string            // Output file basename; empty uses the input file stem
	Extensions []string          // Directory filter; nil uses the supported formats
}

// Text is an optional OCR result. Valid is false when no text was produced
// or none was requested.
type Text struct {
	String string
	Valid  bool
}

func someText(s string) Text { return Text{String: s, Valid: true} }

// Result is the outcome of one batch item
type Result struct {
	Path string // Item path as discovered or listed
	Text Text   // Extracted text, if any
	Err  error  // Failure for this item; Text is never valid when set
}

// Results holds one entry per distinct batch item path in discovery order.
// A path listed more than once is processed and recorded only once.
type Results []Result

// Len returns the number of recorded items
func (r Results) Len() int { return len(r) }

// Get returns the entry recorded for path
func (r Results) Get(path string) (Result, bool) {
	for _, res := range r {
		if res.Path == path {
			return res, true
		}
	}
	return Result{}, false
}

// Failed returns the entries whose processing failed
func (r Results) Failed() Results {
	var failed Results
	for _, res := range r {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Texts maps item paths to their extracted text, skipping absent values
func (r Results) Texts() map[string]string {
	m := make(map[string]string, len(r))
	for _, res := range r {
		if res.Text.Valid {
			m[res.Path] = res.Text.String
		}
	}
	return m
}

// Outcome is the result of Process. Text is set for a single file; Results
// for a directory or file list.
type Outcome struct {
	Kind    InputKind
	Text    Text
	Results Results
}
