// Package fakebin writes stand-in executables for the external tools driven
// by tessbatch, so tests can exercise real process invocation without
// Tesseract or Poppler installed.
package fakebin

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Write creates an executable shell script named name in a fresh temp dir
// and returns its path.
func Write(t testing.TB, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake %s: %v", name, err)
	}
	return path
}

// Tesseract returns a fake engine that behaves like the real one with respect
// to output files:
//
//   - "--version" prints a banner and exits 0
//   - text is written to <base>.txt when no format token is given or "txt" is
//     present; "pdf" writes a placeholder <base>.pdf
//   - the text is "text from <input basename>"
//   - inputs whose name contains "corrupt" fail with exit status 1
//
// Every invocation is appended as one line to the returned log file.
func Tesseract(t testing.TB) (bin, calls string) {
	t.Helper()
	calls = filepath.Join(t.TempDir(), "calls.log")
	body := fmt.Sprintf(`log=%q
echo "$@" >> "$log"
if [ "$1" = "--version" ]; then
  echo "tesseract 5.3.0"
  exit 0
fi
in="$1"; base="$2"; shift 2
case "$in" in
  *corrupt*) echo "Error in pixReadStream: Unknown format" >&2; exit 1 ;;
esac
txt=1; explicit=0
for a in "$@"; do
  case "$a" in
    pdf) explicit=1; printf '%%%%PDF-1.5 fake\n' > "$base.pdf" ;;
    txt) explicit=1; txt=2 ;;
  esac
done
if [ $explicit -eq 1 ] && [ $txt -ne 2 ]; then txt=0; fi
if [ $txt -ne 0 ]; then
  printf 'text from %%s' "$(basename "$in")" > "$base.txt"
fi
exit 0`, calls)
	return Write(t, "tesseract", body), calls
}

// Calls returns the logged invocations of a fake written by Tesseract
func Calls(t testing.TB, log string) []string {
	t.Helper()
	data, err := os.ReadFile(log)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read calls: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// PNG writes a small solid PNG image to path
func PNG(t testing.TB, path string) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: 0xff})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

// Pdftoppm returns a fake rasterizer that copies the PNG at fixture once per
// page into "<prefix>-<n>.png", mimicking pdftoppm's naming. Inputs whose
// name contains "corrupt" fail.
func Pdftoppm(t testing.TB, fixture string, pages int) string {
	t.Helper()
	body := fmt.Sprintf(`for last; do :; done
prefix="$last"
for a in "$@"; do
  case "$a" in *corrupt*) echo "Syntax Error: Couldn't read xref table" >&2; exit 1 ;; esac
done
i=1
while [ $i -le %d ]; do
  cp %q "$prefix-$(printf '%%02d' $i).png"
  i=$((i+1))
done
exit 0`, pages, fixture)
	return Write(t, "pdftoppm", body)
}
