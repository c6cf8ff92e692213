// Package converter turns folders and lists of images into PDF documents.
//
// A run classifies its sources into units, converts the units one at a time
// and records every outcome in a ledger that is folded into a Report.
// Per-unit failures never abort a run; only an unreadable input folder or an
// uncreatable output folder does.
package converter

import (
	"context"
)

// Convert is the main entry point for the conversion library. It runs
// opts.Mode (folder mode when empty) to completion and returns the report.
func Convert(ctx context.Context, opts Options) (Report, error) {
	engine, err := NewEngine(ctx, opts)
	if err != nil {
		return Report{}, err
	}
	return engine.Run()
}

// ConvertFolder converts the images of opts.InputPath and its first-level
// subfolders.
func ConvertFolder(ctx context.Context, opts Options) (Report, error) {
	opts.Mode = ModeFolder
	return Convert(ctx, opts)
}

// ConvertFiles converts files in the given order, one PDF each or a single
// merged PDF when opts.Merge is set.
func ConvertFiles(ctx context.Context, opts Options, files []string) (Report, error) {
	opts.Mode = ModeFiles
	opts.Files = files
	return Convert(ctx, opts)
}
