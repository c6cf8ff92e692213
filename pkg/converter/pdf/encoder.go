// Package pdf writes image sequences as PDF documents and reads page
// information back from written files.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
)

// ErrNoPages is returned when Encode is asked to write a document without pages.
var ErrNoPages = errors.New("no pages to encode")

// Encoder writes one page per image. Each page measures exactly the image's
// pixel dimensions in points and embeds the pixels losslessly as PNG.
type Encoder struct{}

// NewEncoder creates an Encoder.
func NewEncoder() *Encoder { return &Encoder{} }

// Encode writes pages to w in the given order.
func (e *Encoder) Encode(w io.Writer, pages []image.Image) error {
	if len(pages) == 0 {
		return ErrNoPages
	}

	doc := gofpdf.New("P", "pt", "A4", "") // every page overrides the size
	doc.SetAutoPageBreak(false, 0)
	doc.SetMargins(0, 0, 0)

	for i, page := range pages {
		if page == nil {
			return fmt.Errorf("page %d: nil image", i+1)
		}
		b := page.Bounds()
		wd, ht := float64(b.Dx()), float64(b.Dy())
		if wd == 0 || ht == 0 {
			return fmt.Errorf("page %d: empty image", i+1)
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, page, imaging.PNG); err != nil {
			return fmt.Errorf("page %d: encoding pixels: %w", i+1, err)
		}

		name := fmt.Sprintf("page-%d", i+1)
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		doc.AddPageFormat("P", gofpdf.SizeType{Wd: wd, Ht: ht})
		doc.RegisterImageOptionsReader(name, opts, &buf)
		doc.ImageOptions(name, 0, 0, wd, ht, false, opts, 0, "")
		if doc.Err() {
			return fmt.Errorf("page %d: %w", i+1, doc.Error())
		}
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}
