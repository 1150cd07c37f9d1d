package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardar/tessbatch/pkg/tesseract"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()
	img := writeImage(t, dir, "page.png")
	upper := writeImage(t, dir, "PAGE.JPG")
	pdf := writePDFStub(t, dir, "doc.pdf")
	list := writeFile(t, filepath.Join(dir, "list.txt"), "\n  \n"+img+"\n/nowhere.png\n")
	notes := writeFile(t, filepath.Join(dir, "notes.txt"), "meeting notes\n")
	empty := writeFile(t, filepath.Join(dir, "empty.txt"), "")
	docx := writeFile(t, filepath.Join(dir, "report.docx"), "PK")

	tests := []struct {
		name string
		path string
		want InputKind
	}{
		{"directory", dir, KindDirectory},
		{"image", img, KindFile},
		{"uppercase extension", upper, KindFile},
		{"pdf", pdf, KindFile},
		{"file list", list, KindFileList},
		{"plain text", notes, KindUnknown},
		{"empty text", empty, KindUnknown},
		{"unsupported", docx, KindUnknown},
		{"missing", filepath.Join(dir, "missing.png"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := Classify(tt.path)
			assert.Equal(t, tt.want, kind)
			if tt.want == KindUnknown {
				assert.ErrorIs(t, err, ErrUnclassifiable)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInputKindString(t *testing.T) {
	assert.Equal(t, "file list", KindFileList.String())
	assert.Equal(t, "directory", KindDirectory.String())
	assert.Equal(t, "file", KindFile.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}

func TestProcessFileDefaults(t *testing.T) {
	out := t.TempDir()
	cfg := tesseract.DefaultConfig()
	cfg.Lang = "jpn"
	f := newFixture(t, func(o *Options) {
		o.DefaultOutputDir = out
		o.DefaultConfig = &cfg
	})
	img := writeImage(t, t.TempDir(), "scan.png")

	text, err := f.ocr.ProcessFile(context.Background(), img, Request{ReturnText: true})
	require.NoError(t, err)
	assert.Equal(t, "text from scan.png", text.String)
	assert.FileExists(t, filepath.Join(out, "scan.txt"))

	override := tesseract.DefaultConfig()
	other := t.TempDir()
	_, err = f.ocr.ProcessFile(context.Background(), img, Request{OutputDir: other, Config: &override})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(other, "scan.txt"))

	calls := f.engineCalls(t)
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0], " -l jpn ")
	assert.Contains(t, calls[1], " -l eng ")
}

func TestProcessFileOutputBase(t *testing.T) {
	f := newFixture(t)
	img := writeImage(t, t.TempDir(), "scan.png")
	out := t.TempDir()

	_, err := f.ocr.ProcessFile(context.Background(), img, Request{OutputDir: out, OutputBase: "invoice-42"})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "invoice-42.txt"))
	assert.NoFileExists(t, filepath.Join(out, "scan.txt"))
}

func TestProcessFileErrors(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()

	_, err := f.ocr.ProcessFile(context.Background(), filepath.Join(dir, "missing.png"), Request{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.ocr.ProcessFile(context.Background(), dir, Request{})
	assert.ErrorIs(t, err, ErrNotFound)

	docx := writeFile(t, filepath.Join(dir, "report.docx"), "PK")
	_, err = f.ocr.ProcessFile(context.Background(), docx, Request{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), ".png")
	assert.Contains(t, err.Error(), ".pdf")

	assert.Empty(t, f.engineCalls(t))
}

func TestProcessDirectoryIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	good := writeImage(t, dir, "good.png")
	bad := writeImage(t, dir, "broken_corrupt.png")
	writeFile(t, filepath.Join(dir, "README.md"), "not an image")

	results, err := f.ocr.ProcessDirectory(context.Background(), dir, Request{ReturnText: true})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, bad, results[0].Path)
	assert.Equal(t, good, results[1].Path)

	failed := results.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, bad, failed[0].Path)
	assert.False(t, failed[0].Text.Valid)

	assert.Equal(t, map[string]string{good: "text from good.png"}, results.Texts())
	assert.True(t, f.hasLog(logrus.ErrorLevel, "Error processing file"))
}

func TestProcessDirectoryRecordsItemsWithoutText(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	a := writeImage(t, dir, "a.png")

	results, err := f.ocr.ProcessDirectory(context.Background(), dir, Request{OutputDir: t.TempDir()})
	require.NoError(t, err)
	require.Len(t, results, 1)
	res, ok := results.Get(a)
	require.True(t, ok)
	assert.NoError(t, res.Err)
	assert.False(t, res.Text.Valid)
}

func TestProcessDirectoryExtensions(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	img := writeImage(t, dir, "a.png")
	docx := writeFile(t, filepath.Join(dir, "b.docx"), "PK")
	writeImage(t, dir, "c.jpg")

	results, err := f.ocr.ProcessDirectory(context.Background(), dir, Request{
		ReturnText: true,
		Extensions: []string{"PNG", ".docx"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	res, ok := results.Get(img)
	require.True(t, ok)
	assert.NoError(t, res.Err)

	res, ok = results.Get(docx)
	require.True(t, ok)
	assert.ErrorIs(t, res.Err, ErrUnsupportedFormat)
}

func TestProcessDirectoryEmpty(t *testing.T) {
	f := newFixture(t)
	results, err := f.ocr.ProcessDirectory(context.Background(), t.TempDir(), Request{ReturnText: true})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, results.Texts())
}

func TestProcessDirectoryRecursive(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	top := writeImage(t, dir, "a.png")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub", "deeper"), 0o755))
	nested := writeImage(t, filepath.Join(dir, "sub"), "b.png")
	deep := writeImage(t, filepath.Join(dir, "sub", "deeper"), "c.tif")

	flat, err := f.ocr.ProcessDirectory(context.Background(), dir, Request{ReturnText: true})
	require.NoError(t, err)
	require.Len(t, flat, 1)
	assert.Equal(t, top, flat[0].Path)

	all, err := f.ocr.ProcessDirectory(context.Background(), dir, Request{ReturnText: true, Recursive: true})
	require.NoError(t, err)
	var paths []string
	for _, r := range all {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{top, nested, deep}, paths)
}

func TestProcessDirectoryIgnoresOutputBase(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	writeImage(t, dir, "a.png")
	writeImage(t, dir, "b.png")
	out := t.TempDir()

	_, err := f.ocr.ProcessDirectory(context.Background(), dir, Request{OutputDir: out, OutputBase: "same"})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "a.txt"))
	assert.FileExists(t, filepath.Join(out, "b.txt"))
	assert.NoFileExists(t, filepath.Join(out, "same.txt"))
}

func TestProcessDirectoryNotADirectory(t *testing.T) {
	f := newFixture(t)
	img := writeImage(t, t.TempDir(), "a.png")

	_, err := f.ocr.ProcessDirectory(context.Background(), img, Request{})
	assert.ErrorIs(t, err, ErrNotDirectory)
	_, err = f.ocr.ProcessDirectory(context.Background(), filepath.Join(t.TempDir(), "gone"), Request{})
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestProcessFileList(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	img := writeImage(t, dir, "one.png")
	missing := filepath.Join(dir, "two.png")
	list := writeFile(t, filepath.Join(dir, "batch.txt"), img+"\n\n   \n  "+missing+"  \n")

	results, err := f.ocr.ProcessFileList(context.Background(), list, Request{ReturnText: true})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, img, results[0].Path)
	assert.Equal(t, someText("text from one.png"), results[0].Text)
	assert.Equal(t, missing, results[1].Path)
	assert.ErrorIs(t, results[1].Err, ErrNotFound)
}

func TestProcessFileListDuplicates(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	img := writeImage(t, dir, "one.png")
	list := writeFile(t, filepath.Join(dir, "batch.txt"), img+"\n"+img+"\n")

	results, err := f.ocr.ProcessFileList(context.Background(), list, Request{ReturnText: true})
	require.NoError(t, err)
	require.Equal(t, 1, results.Len())
	assert.Equal(t, img, results[0].Path)
	assert.Len(t, f.engineCalls(t), 1)
	assert.True(t, f.hasLog(logrus.DebugLevel, "Skipping duplicate item"))
}

func TestProcessFileListMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.ocr.ProcessFileList(context.Background(), filepath.Join(t.TempDir(), "none.txt"), Request{})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestProcessDispatch(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	img := writeImage(t, dir, "scan.png")
	list := writeFile(t, filepath.Join(t.TempDir(), "list.txt"), img+"\n")
	ctx := context.Background()

	out, err := f.ocr.Process(ctx, img, Request{ReturnText: true})
	require.NoError(t, err)
	assert.Equal(t, KindFile, out.Kind)
	assert.Equal(t, "text from scan.png", out.Text.String)
	assert.Nil(t, out.Results)

	out, err = f.ocr.Process(ctx, dir, Request{ReturnText: true})
	require.NoError(t, err)
	assert.Equal(t, KindDirectory, out.Kind)
	assert.Equal(t, map[string]string{img: "text from scan.png"}, out.Results.Texts())

	out, err = f.ocr.Process(ctx, list, Request{ReturnText: true})
	require.NoError(t, err)
	assert.Equal(t, KindFileList, out.Kind)
	assert.Len(t, out.Results, 1)

	out, err = f.ocr.Process(ctx, writeFile(t, filepath.Join(dir, "x.docx"), "PK"), Request{})
	assert.ErrorIs(t, err, ErrUnclassifiable)
	assert.Equal(t, KindUnknown, out.Kind)

	assert.True(t, f.hasLog(logrus.InfoLevel, "Processing as single file"))
	assert.True(t, f.hasLog(logrus.InfoLevel, "Processing as directory"))
	assert.True(t, f.hasLog(logrus.InfoLevel, "Processing as file list"))
}

func TestBatchLogFields(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	writeImage(t, dir, "a.png")

	_, err := f.ocr.ProcessDirectory(context.Background(), dir, Request{})
	require.NoError(t, err)

	var batch string
	for _, e := range f.hook.AllEntries() {
		switch e.Message {
		case "Starting batch":
			batch, _ = e.Data["batch"].(string)
			assert.Equal(t, dir, e.Data["source"])
		case "Finished batch":
			assert.Equal(t, batch, e.Data["batch"])
			assert.Equal(t, 1, e.Data["items"])
			assert.Equal(t, 0, e.Data["failed"])
		}
	}
	assert.NotEmpty(t, batch)
}

func TestResults(t *testing.T) {
	boom := errors.New("boom")
	r := Results{
		{Path: "a.png", Text: someText("alpha")},
		{Path: "b.png", Err: boom},
		{Path: "c.png"},
	}

	res, ok := r.Get("b.png")
	require.True(t, ok)
	assert.Equal(t, boom, res.Err)
	_, ok = r.Get("z.png")
	assert.False(t, ok)

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 1, r.Failed().Len())
	assert.Equal(t, 0, Results(nil).Len())
	assert.Equal(t, map[string]string{"a.png": "alpha"}, r.Texts())
}

func TestExtensionSet(t *testing.T) {
	def := extensionSet(nil)
	for _, e := range SupportedImageFormats {
		assert.True(t, def[e], e)
	}
	assert.True(t, def[".pdf"])
	assert.False(t, def[".txt"])

	custom := extensionSet([]string{"PNG", " .Tif ", ""})
	assert.Equal(t, map[string]bool{".png": true, ".tif": true}, custom)
}

func TestDiscoverFilesFollowsFileSymlinks(t *testing.T) {
	dir := t.TempDir()
	img := writeImage(t, dir, "a.png")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.png"), 0o755))
	link := filepath.Join(dir, "link.png")
	require.NoError(t, os.Symlink(img, link))
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone.png"), filepath.Join(dir, "dangling.png")))

	files, err := discoverFiles(dir, false, extensionSet(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{img, link}, files)

	files, err = discoverFiles(dir, true, extensionSet(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{img, link}, files)
}

func TestProcessDirectorySymlinkedScans(t *testing.T) {
	f := newFixture(t)
	scans := t.TempDir()
	target := writeImage(t, scans, "target.png")

	dir := t.TempDir()
	a := writeImage(t, dir, "a.png")
	b := filepath.Join(dir, "b.png")
	require.NoError(t, os.Symlink(target, b))

	results, err := f.ocr.ProcessDirectory(context.Background(), dir, Request{ReturnText: true})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, map[string]string{
		a: "text from a.png",
		b: "text from b.png",
	}, results.Texts())
}
