package converter

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter/imageio"
	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter/naming"
	"github.com/spf13/afero"
)

// Unit is one conversion job yielding at most one output PDF.
type Unit struct {
	ID   string
	Kind UnitKind
	// Name is the output base name before collision resolution.
	Name string
	// Label is what progress events show for the unit.
	Label string
	// Sources are image files in page order.
	Sources []string
	// Dirs are folders whose images are appended after Sources, listed when
	// the unit runs.
	Dirs []string
}

// merges reports whether the unit combines many sources into one document
// and reports progress on the merge scale.
func (u Unit) merges() bool {
	return u.Kind == UnitFileListMerged || u.Kind == UnitFolderMerged
}

// PlanFolderUnits turns a classification into units: one per root image and
// one per subfolder, or a single folder merge unit when merge is set.
func PlanFolderUnits(c Classification, merge bool, mergeName string, now time.Time) []Unit {
	var units []Unit
	if merge {
		if c.Total() == 0 {
			return nil
		}
		u := Unit{Kind: UnitFolderMerged, Name: naming.BaseName(mergeName, naming.PrefixFolderMerge, now)}
		for _, f := range c.Files {
			u.Sources = append(u.Sources, f.Path)
		}
		for _, d := range c.Folders {
			u.Dirs = append(u.Dirs, d.Path)
		}
		u.Label = u.Name + naming.PDFExtension
		units = append(units, u)
	} else {
		for _, f := range c.Files {
			units = append(units, Unit{Kind: UnitSingleFile, Name: naming.StemName(f.Path), Label: f.Name, Sources: []string{f.Path}})
		}
		for _, d := range c.Folders {
			units = append(units, Unit{Kind: UnitFolderGroup, Name: naming.SourceName(d.Name), Label: d.Name, Dirs: []string{d.Path}})
		}
	}
	return assignIDs(units)
}

// PlanFileUnits turns an explicit file list into units, keeping the caller's
// order: one merged unit, or one separate unit per file.
func PlanFileUnits(files []string, merge bool, mergeName string, now time.Time) []Unit {
	if len(files) == 0 {
		return nil
	}
	var units []Unit
	if merge {
		name := naming.BaseName(mergeName, naming.PrefixFileListMerge, now)
		units = append(units, Unit{
			Kind:    UnitFileListMerged,
			Name:    name,
			Label:   name + naming.PDFExtension,
			Sources: append([]string(nil), files...),
		})
	} else {
		for _, f := range files {
			units = append(units, Unit{Kind: UnitFileListSeparate, Name: naming.StemName(f), Label: filepath.Base(f), Sources: []string{f}})
		}
	}
	return assignIDs(units)
}

func assignIDs(units []Unit) []Unit {
	for i := range units {
		units[i].ID = fmt.Sprintf("u%03d", i+1)
	}
	return units
}

// progressFunc forwards scaled progress for merge units.
type progressFunc func(processed, total int, label string)

// processor runs single units. It never returns errors: every outcome is a
// ledger entry.
type processor struct {
	fs       afero.Fs
	loader   ImageLoader
	encoder  PageEncoder
	verifier PageCounter
	resolver *naming.Resolver
	logger   *slog.Logger
}

func newProcessor(fs afero.Fs, loader ImageLoader, encoder PageEncoder, verifier PageCounter, handler slog.Handler) *processor {
	return &processor{
		fs:       fs,
		loader:   loader,
		encoder:  encoder,
		verifier: verifier,
		resolver: naming.NewResolver(fs),
		logger:   slog.New(handler).With(slog.String("component", "processor")),
	}
}

func (p *processor) process(u Unit, outDir string, progress progressFunc) LedgerEntry {
	start := time.Now()
	var entry LedgerEntry
	switch u.Kind {
	case UnitSingleFile, UnitFileListSeparate:
		entry = p.processSingle(u, outDir)
	case UnitFolderGroup:
		entry = p.processGroup(u, outDir)
	case UnitFileListMerged, UnitFolderMerged:
		entry = p.processMerged(u, outDir, progress)
	default:
		entry = p.failed(u, fmt.Errorf("unknown unit kind %q", u.Kind))
	}
	entry.DurationMs = time.Since(start).Milliseconds()
	return entry
}

func (p *processor) processSingle(u Unit, outDir string) LedgerEntry {
	if len(u.Sources) != 1 {
		return p.failed(u, fmt.Errorf("single-file unit has %d sources", len(u.Sources)))
	}
	buf, err := p.loader.Load(u.Sources[0])
	if err != nil {
		p.logger.Warn("Failed to load image", slog.String("path", u.Sources[0]), slog.String("error", err.Error()))
		entry := p.failed(u, err)
		entry.Reason = loadSkipReason(err)
		return entry
	}
	defer buf.Release()

	path, err := p.write(outDir, u.Name, []image.Image{buf.Image})
	if err != nil {
		return p.failed(u, err)
	}
	return p.converted(u, path, 1, nil)
}

func (p *processor) processGroup(u Unit, outDir string) LedgerEntry {
	dir := u.Dirs[0]
	files, err := ListImages(p.fs, dir)
	if err != nil {
		p.logger.Warn("Failed to list subfolder", slog.String("path", dir), slog.String("error", err.Error()))
		entry := p.failed(u, fmt.Errorf("%w: %s: %w", ErrListFailed, dir, err))
		entry.Reason = SkipReasonListFailed
		return entry
	}
	if len(files) == 0 {
		return p.skipped(u, SkipReasonNoImages, nil)
	}
	return p.loadAndWrite(u, files, nil, outDir, nil)
}

func (p *processor) processMerged(u Unit, outDir string, progress progressFunc) LedgerEntry {
	sources := append([]string(nil), u.Sources...)
	var skips []FileSkip
	for _, dir := range u.Dirs {
		files, err := ListImages(p.fs, dir)
		if err != nil {
			p.logger.Warn("Failed to list subfolder", slog.String("path", dir), slog.String("error", err.Error()))
			skips = append(skips, FileSkip{Path: dir, Reason: SkipReasonListFailed, Error: err.Error()})
			continue
		}
		sources = append(sources, files...)
	}
	if len(sources) == 0 {
		return p.skipped(u, SkipReasonNoImages, skips)
	}

	onLoaded := func(i int, path string) {
		if progress != nil {
			progress(MergeLoadShare*(i+1)/len(sources), MergeProgressTotal, "Loading: "+filepath.Base(path))
		}
	}
	return p.loadAndWrite(u, sources, skips, outDir, onLoaded)
}

// loadAndWrite decodes files in order, dropping the ones that fail, and
// encodes the rest as one document. No decoded pages means skipped.
func (p *processor) loadAndWrite(u Unit, files []string, skips []FileSkip, outDir string, onLoaded func(int, string)) LedgerEntry {
	buffers := make([]*imageio.Buffer, 0, len(files))
	defer func() {
		for _, b := range buffers {
			b.Release()
		}
	}()

	for i, f := range files {
		buf, err := p.loader.Load(f)
		if err != nil {
			p.logger.Warn("Skipping image that failed to load", slog.String("unit", u.Label), slog.String("path", f), slog.String("error", err.Error()))
			skips = append(skips, FileSkip{Path: f, Reason: loadSkipReason(err), Error: err.Error()})
		} else {
			buffers = append(buffers, buf)
		}
		if onLoaded != nil {
			onLoaded(i, f)
		}
	}

	if len(buffers) == 0 {
		p.logger.Warn("No pages could be decoded; no PDF written", slog.String("unit", u.Label), slog.Int("files", len(files)))
		return p.skipped(u, SkipReasonNoPages, skips)
	}

	pages := make([]image.Image, len(buffers))
	for i, b := range buffers {
		pages[i] = b.Image
	}
	path, err := p.write(outDir, u.Name, pages)
	if err != nil {
		entry := p.failed(u, err)
		entry.SkippedFiles = skips
		return entry
	}
	return p.converted(u, path, len(pages), skips)
}

// write claims a unique path, encodes into it and optionally verifies the
// page count. Partial output is removed on failure.
func (p *processor) write(dir, base string, pages []image.Image) (string, error) {
	f, path, err := p.resolver.Create(dir, base)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	encErr := p.encoder.Encode(f, pages)
	closeErr := f.Close()
	if err := errors.Join(encErr, closeErr); err != nil {
		p.removePartial(path)
		return "", fmt.Errorf("%w: %s: %w", ErrEncodeFailed, path, err)
	}
	if p.verifier != nil {
		if err := p.verify(path, len(pages)); err != nil {
			p.removePartial(path)
			return "", err
		}
	}
	return path, nil
}

func (p *processor) verify(path string, want int) error {
	f, err := p.fs.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrVerifyFailed, path, err)
	}
	defer f.Close()
	got, err := p.verifier.PageCount(f)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrVerifyFailed, path, err)
	}
	if got != want {
		return fmt.Errorf("%w: %s has %d pages, expected %d", ErrVerifyFailed, path, got, want)
	}
	return nil
}

func (p *processor) removePartial(path string) {
	if err := p.fs.Remove(path); err != nil {
		p.logger.Warn("Could not remove partial output", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func (p *processor) converted(u Unit, path string, pages int, skips []FileSkip) LedgerEntry {
	return LedgerEntry{UnitID: u.ID, Kind: u.Kind, Name: u.Label, Status: StatusConverted, OutputPath: path, Pages: pages, SkippedFiles: skips}
}

func (p *processor) skipped(u Unit, reason string, skips []FileSkip) LedgerEntry {
	return LedgerEntry{UnitID: u.ID, Kind: u.Kind, Name: u.Label, Status: StatusSkipped, Reason: reason, SkippedFiles: skips}
}

func (p *processor) failed(u Unit, err error) LedgerEntry {
	return LedgerEntry{UnitID: u.ID, Kind: u.Kind, Name: u.Label, Status: StatusFailed, Err: err, ErrorMessage: err.Error()}
}

func loadSkipReason(err error) string {
	switch {
	case errors.Is(err, imageio.ErrEmptyDecode):
		return SkipReasonDecodedEmpty
	case errors.Is(err, imageio.ErrUnsupported):
		return SkipReasonUnsupported
	default:
		return SkipReasonLoadFailed
	}
}
