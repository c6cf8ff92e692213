package imageio

import (
	"path/filepath"
	"slices"
	"strings"
)

// SupportedExtensions lists the lower-case extensions treated as images.
var SupportedExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".heic"}

// HEICExtension is the extension routed through the HEIC decode policy.
const HEICExtension = ".heic"

// IsSupported reports whether name ends with a supported image extension,
// ignoring case. Classification and loading both use this test.
func IsSupported(name string) bool {
	return slices.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(name)))
}

// IsHEIC reports whether name carries the HEIC extension, ignoring case.
func IsHEIC(name string) bool {
	return strings.EqualFold(filepath.Ext(name), HEICExtension)
}
