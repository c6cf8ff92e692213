package pdf

import (
	"fmt"
	"io"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// PageSize is a page's media box size in points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Inspector reads page information from PDF documents.
type Inspector struct {
	conf *model.Configuration
}

// NewInspector creates an Inspector with relaxed validation. pdfcpu's
// on-disk configuration directory is disabled for the whole process.
func NewInspector() *Inspector {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Inspector{conf: conf}
}

// PageCount returns the number of pages in the document.
func (i *Inspector) PageCount(rs io.ReadSeeker) (int, error) {
	n, err := api.PageCount(rs, i.conf)
	if err != nil {
		return 0, fmt.Errorf("counting pages: %w", err)
	}
	return n, nil
}

// PageSizes returns the size of every page in document order.
func (i *Inspector) PageSizes(rs io.ReadSeeker) ([]PageSize, error) {
	dims, err := api.PageDims(rs, i.conf)
	if err != nil {
		return nil, fmt.Errorf("reading page dimensions: %w", err)
	}
	sizes := make([]PageSize, len(dims))
	for idx, d := range dims {
		sizes[idx] = PageSize{Width: d.Width, Height: d.Height}
	}
	return sizes, nil
}
