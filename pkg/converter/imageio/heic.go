package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// heicProbe is the start of an ISO-BMFF HEIC file. Decoders registered with
// the image package match on the "ftypheic" brand at offset 4.
var heicProbe = []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00mif1heic")

// Capabilities describes which HEIC decode paths a Loader may use. It is
// passed explicitly so tests can substitute fake codec availability.
type Capabilities struct {
	// HEICCodec is true when a decoder registered with the image package
	// understands HEIC.
	HEICCodec bool
	// ArrayDecoder is the generic fallback path. Nil disables it.
	ArrayDecoder ArrayDecoder
}

// DetectCapabilities probes the image format registry for a HEIC decoder
// linked into the binary and pairs it with the raster array fallback.
func DetectCapabilities() Capabilities {
	return Capabilities{
		HEICCodec:    heicCodecRegistered(),
		ArrayDecoder: RasterArrayDecoder{},
	}
}

func heicCodecRegistered() (ok bool) {
	defer func() {
		if recover() != nil {
			ok = true // something claimed the header, even if it choked on it
		}
	}()
	_, _, err := image.DecodeConfig(bytes.NewReader(heicProbe))
	return !errors.Is(err, image.ErrFormat)
}

// PixelArray is a raw interleaved 8-bit raster: 1 (gray), 2 (gray+alpha),
// 3 (RGB) or 4 (RGBA) channels, row-major.
type PixelArray struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// Size is the number of samples held by the array.
func (a PixelArray) Size() int { return len(a.Pix) }

// Image converts the array into an opaque RGB raster.
func (a PixelArray) Image() (*image.NRGBA, error) {
	if a.Width <= 0 || a.Height <= 0 {
		return nil, fmt.Errorf("invalid array dimensions %dx%d", a.Width, a.Height)
	}
	if a.Channels < 1 || a.Channels > 4 {
		return nil, fmt.Errorf("unsupported channel count %d", a.Channels)
	}
	want := a.Width * a.Height * a.Channels
	if len(a.Pix) < want {
		return nil, fmt.Errorf("array holds %d samples, %dx%dx%d needs %d", len(a.Pix), a.Width, a.Height, a.Channels, want)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, a.Width, a.Height))
	for i, o := 0, 0; i < want; i, o = i+a.Channels, o+4 {
		switch a.Channels {
		case 1, 2:
			dst.Pix[o], dst.Pix[o+1], dst.Pix[o+2] = a.Pix[i], a.Pix[i], a.Pix[i]
		default:
			dst.Pix[o], dst.Pix[o+1], dst.Pix[o+2] = a.Pix[i], a.Pix[i+1], a.Pix[i+2]
		}
		dst.Pix[o+3] = 0xff
	}
	return dst, nil
}

// ArrayDecoder decodes an encoded image into a raw pixel array.
type ArrayDecoder interface {
	DecodeArray(r io.Reader) (PixelArray, error)
}

// RasterArrayDecoder decodes through every format registered with the image
// package and flattens the result to an RGB array. Without a registered HEIC
// decoder it fails with image.ErrFormat for HEIC input.
type RasterArrayDecoder struct{}

// DecodeArray implements ArrayDecoder.
func (RasterArrayDecoder) DecodeArray(r io.Reader) (PixelArray, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return PixelArray{}, err
	}
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	arr := PixelArray{Width: w, Height: h, Channels: 3, Pix: make([]uint8, 0, w*h*3)}
	for i := 0; i+3 < len(src.Pix); i += 4 {
		arr.Pix = append(arr.Pix, src.Pix[i], src.Pix[i+1], src.Pix[i+2])
	}
	return arr, nil
}
