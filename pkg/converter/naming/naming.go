// Package naming turns user-supplied or derived base names into safe, unique
// output file names inside a target directory.
package naming

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/afero"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// PDFExtension is the extension appended to every resolved output name.
	PDFExtension = ".pdf"

	// PrefixFileListMerge prefixes generated names of merged file-list outputs.
	PrefixFileListMerge = "Merged"
	// PrefixFolderMerge prefixes generated names of merged folder-mode outputs.
	PrefixFolderMerge = "Merged_All"

	// TimestampLayout is the time.Format layout of generated name suffixes.
	TimestampLayout = "20060102_150405"
)

// maxClaimAttempts bounds how often Create re-resolves after losing an
// exclusive-create race to another writer.
const maxClaimAttempts = 64

// ErrClaimFailed is returned by Resolver.Create when every resolved candidate
// was taken by a concurrent writer before it could be claimed.
var ErrClaimFailed = errors.New("could not claim a unique output path")

// disallowed reports whether r is dropped by Sanitize.
func disallowed(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return false
	}
	return r != ' ' && r != '-' && r != '_'
}

// Sanitize strips one trailing ".pdf" (any case), keeps only letters, digits,
// spaces, hyphens and underscores, and trims surrounding whitespace.
// The result may be empty; callers fall back to a generated name.
func Sanitize(raw string) string {
	name := raw
	if strings.HasSuffix(strings.ToLower(name), PDFExtension) {
		name = name[:len(name)-len(PDFExtension)]
	}
	// Composing again after removal keeps the function idempotent when
	// dropped characters separated composable runes.
	t := transform.Chain(norm.NFC, runes.Remove(runes.Predicate(disallowed)), norm.NFC)
	cleaned, _, err := transform.String(t, name)
	if err != nil {
		cleaned = strings.Map(func(r rune) rune {
			if disallowed(r) {
				return -1
			}
			return r
		}, name)
	}
	return strings.TrimSpace(cleaned)
}

// Generated returns "<prefix>_<YYYYMMDD_HHMMSS>" for t.
func Generated(prefix string, t time.Time) string {
	return prefix + "_" + t.Format(TimestampLayout)
}

// BaseName sanitizes raw, falling back to Generated(prefix, now) when nothing
// usable remains.
func BaseName(raw, prefix string, now time.Time) string {
	if name := Sanitize(raw); name != "" {
		return name
	}
	return Generated(prefix, now)
}

// StemName derives an output base name from a source file or folder path.
// Names that sanitize to nothing keep their raw stem, which is already a
// valid name on the filesystem it came from.
func StemName(path string) string {
	base := filepath.Base(path)
	return SourceName(strings.TrimSuffix(base, filepath.Ext(base)))
}

// SourceName sanitizes a name taken verbatim from the filesystem, such as a
// folder name, keeping the raw name when sanitizing leaves nothing.
func SourceName(name string) string {
	if cleaned := Sanitize(name); cleaned != "" {
		return cleaned
	}
	return name
}

// Resolver finds non-colliding output paths by probing the live filesystem.
// It keeps no state between calls.
type Resolver struct {
	fs afero.Fs
}

// NewResolver creates a Resolver over fs.
func NewResolver(fs afero.Fs) *Resolver {
	return &Resolver{fs: fs}
}

// Resolve returns dir/base.pdf if unused, otherwise the first unused
// dir/base(n).pdf for n = 1, 2, ... Nothing is created.
func (r *Resolver) Resolve(dir, base string) (string, error) {
	return r.ResolveExt(dir, base, PDFExtension)
}

// ResolveExt is Resolve with an explicit extension.
func (r *Resolver) ResolveExt(dir, base, ext string) (string, error) {
	candidate := filepath.Join(dir, base+ext)
	for counter := 1; ; counter++ {
		exists, err := afero.Exists(r.fs, candidate)
		if err != nil {
			return "", fmt.Errorf("checking %q: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s(%d)%s", base, counter, ext))
	}
}

// Create resolves a unique path for base and claims it with an exclusive
// create, re-resolving when another writer takes the candidate first.
// The caller owns the returned file.
func (r *Resolver) Create(dir, base string) (afero.File, string, error) {
	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		path, err := r.Resolve(dir, base)
		if err != nil {
			return nil, "", err
		}
		f, err := r.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("creating %q: %w", path, err)
		}
	}
	return nil, "", fmt.Errorf("%w: %s in %s", ErrClaimFailed, base, dir)
}
