// Package imageio decides which files are images and decodes them into
// normalized RGB rasters ready for PDF encoding.
package imageio

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"io"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/tiff" // TIFF decoder
)

// Buffer is a decoded, opaque RGB raster owned by whoever loaded it.
type Buffer struct {
	Path  string
	Image *image.NRGBA
}

// Width returns the raster width in pixels, or 0 once released.
func (b *Buffer) Width() int {
	if b == nil || b.Image == nil {
		return 0
	}
	return b.Image.Bounds().Dx()
}

// Height returns the raster height in pixels, or 0 once released.
func (b *Buffer) Height() int {
	if b == nil || b.Image == nil {
		return 0
	}
	return b.Image.Bounds().Dy()
}

// Release drops the pixel data.
func (b *Buffer) Release() {
	if b != nil {
		b.Image = nil
	}
}

// Loader opens and decodes supported image files.
type Loader struct {
	fs     afero.Fs
	caps   Capabilities
	logger *slog.Logger
}

// NewLoader creates a Loader reading from fs with the given HEIC capabilities.
func NewLoader(fs afero.Fs, caps Capabilities, handler slog.Handler) *Loader {
	if handler == nil {
		handler = slog.NewTextHandler(io.Discard, nil)
	}
	return &Loader{
		fs:     fs,
		caps:   caps,
		logger: slog.New(handler).With(slog.String("component", "loader")),
	}
}

// Capabilities returns the HEIC capabilities the loader was built with.
func (l *Loader) Capabilities() Capabilities { return l.caps }

// Load decodes path into an RGB Buffer. Every failure, including a panic in
// a decoder, is returned as a *LoadError.
func (l *Loader) Load(path string) (buf *Buffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = newLoadError(path, KindDecodeFailure, fmt.Errorf("decoder panic: %v", r))
		}
	}()

	if !IsSupported(path) {
		return nil, newLoadError(path, KindUnsupported, nil)
	}
	if IsHEIC(path) {
		return l.loadHEIC(path)
	}

	img, err := l.decodeFile(path)
	if err != nil {
		return nil, newLoadError(path, KindDecodeFailure, err)
	}
	return newBuffer(path, img)
}

func (l *Loader) loadHEIC(path string) (*Buffer, error) {
	if l.caps.HEICCodec {
		img, err := l.decodeFile(path)
		if err == nil {
			return newBuffer(path, img)
		}
		if l.caps.ArrayDecoder == nil {
			return nil, newLoadError(path, KindDecodeFailure, err)
		}
		l.logger.Debug("Registered HEIC codec failed, trying array decoder", slog.String("path", path), slog.String("error", err.Error()))
	}
	if l.caps.ArrayDecoder == nil {
		return nil, newLoadError(path, KindUnsupported, errors.New("no HEIC decoder available"))
	}

	f, err := l.fs.Open(path)
	if err != nil {
		return nil, newLoadError(path, KindDecodeFailure, err)
	}
	defer f.Close()

	arr, err := l.caps.ArrayDecoder.DecodeArray(f)
	if err != nil {
		return nil, newLoadError(path, KindDecodeFailure, err)
	}
	if arr.Size() == 0 || arr.Width == 0 || arr.Height == 0 {
		return nil, newLoadError(path, KindEmptyDecode, nil)
	}
	img, err := arr.Image()
	if err != nil {
		return nil, newLoadError(path, KindDecodeFailure, err)
	}
	return &Buffer{Path: path, Image: img}, nil
}

func (l *Loader) decodeFile(path string) (image.Image, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return imaging.Decode(f)
}

func newBuffer(path string, img image.Image) (*Buffer, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, newLoadError(path, KindEmptyDecode, nil)
	}
	return &Buffer{Path: path, Image: ToRGB(img)}, nil
}

// ToRGB converts any image into an opaque NRGBA raster anchored at (0,0).
// Palette, grayscale and alpha sources all end up with the same channel
// layout; alpha is discarded rather than composited.
func ToRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
