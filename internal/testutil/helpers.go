package testutil

import (
	"bytes"
	"image"
	"image/color"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter/pdf"
	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// CreateDummyFile writes content at path on fsys, creating parent directories.
func CreateDummyFile(t *testing.T, fsys afero.Fs, path string, content string) {
	t.Helper()
	fullPath := filepath.Clean(path)
	require.NoError(t, fsys.MkdirAll(filepath.Dir(fullPath), 0o755), "Failed to create directory for dummy file %s", fullPath)
	require.NoError(t, afero.WriteFile(fsys, fullPath, []byte(content), 0o644), "Failed to write dummy file %s", fullPath)
}

// CreateDummyDir ensures a directory exists at path on fsys.
func CreateDummyDir(t *testing.T, fsys afero.Fs, path string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(filepath.Clean(path), 0o755), "Failed to create dummy directory %s", path)
}

// CreateImage writes a solid w x h image at path, encoded in the format
// implied by the extension.
func CreateImage(t *testing.T, fsys afero.Fs, path string, w, h int, c color.Color) {
	t.Helper()
	format, err := imaging.FormatFromFilename(path)
	require.NoError(t, err, "No encoder for %s", path)

	img := imaging.New(w, h, c)
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, format))
	CreateDummyFile(t, fsys, path, buf.String())
}

// SolidImage returns a solid in-memory image.
func SolidImage(w, h int, c color.Color) image.Image {
	return imaging.New(w, h, c)
}

// NewTestLogHandler returns a debug-level text handler writing into buf.
func NewTestLogHandler(buf *bytes.Buffer) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// PDFPageSizes reads the page sizes of the PDF at path on fsys.
func PDFPageSizes(t *testing.T, fsys afero.Fs, path string) []pdf.PageSize {
	t.Helper()
	f, err := fsys.Open(path)
	require.NoError(t, err, "Failed to open PDF %s", path)
	defer f.Close()
	sizes, err := pdf.NewInspector().PageSizes(f)
	require.NoError(t, err, "Failed to inspect PDF %s", path)
	return sizes
}
