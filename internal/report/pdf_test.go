package report

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeTestPNG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logo.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 8, 8))))
	return path
}

func TestPDFRenderer_Render(t *testing.T) {
	r := NewPDFRenderer(PDFOptions{}, testLogger())

	out, err := r.Render(Build(testSubmission(t, `{"q1":"Acme site","q3":[{"name":"plan.pdf"}]}`)))
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	text := string(out)
	assert.Contains(t, text, "Brief report: Website redesign")
	assert.Contains(t, text, "Q: Project name?")
	assert.Contains(t, text, "Acme site")
	// The bullet goes through the cp1252 translator with the fallback font.
	assert.Contains(t, text, "\x95 plan.pdf")
	assert.Contains(t, text, "Page 1")
	assert.Contains(t, text, "/BaseFont /Helvetica")
}

func TestPDFRenderer_MissingAssets(t *testing.T) {
	dir := t.TempDir()
	r := NewPDFRenderer(PDFOptions{
		LogoPath: filepath.Join(dir, "missing.png"),
		FontPath: filepath.Join(dir, "missing.ttf"),
		Compress: true,
	}, testLogger())

	out, err := r.Render(Build(testSubmission(t, `{"q1":"x"}`)))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFRenderer_Logo(t *testing.T) {
	r := NewPDFRenderer(PDFOptions{LogoPath: writeTestPNG(t)}, testLogger())

	out, err := r.Render(Build(testSubmission(t, `{"q1":"x"}`)))
	require.NoError(t, err)
	assert.Contains(t, string(out), "/Subtype /Image")
}

func TestPDFRenderer_UndecodableLogo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logo.png")
	require.NoError(t, os.WriteFile(path, []byte("not a png"), 0o644))
	r := NewPDFRenderer(PDFOptions{LogoPath: path}, testLogger())

	out, err := r.Render(Build(testSubmission(t, `{"q1":"x"}`)))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "/Subtype /Image")
}

func TestPDFRenderer_Paginates(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("{")
	for i := 0; i < 120; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `"k%d":"answer %d"`, i, i)
	}
	sb.WriteString("}")

	r := NewPDFRenderer(PDFOptions{}, testLogger())
	out, err := r.Render(Build(testSubmission(t, sb.String())))
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "Page 2")
	assert.Contains(t, text, "Q: "+UnknownQuestion)
}

func TestImageType(t *testing.T) {
	assert.Equal(t, "PNG", imageType("static/logo.png"))
	assert.Equal(t, "JPG", imageType("logo.jpeg"))
	assert.Equal(t, "JPG", imageType("logo.JPG"))
}
