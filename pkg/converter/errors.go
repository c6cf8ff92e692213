package converter

import "errors"

// --- Exported Error Variables ---
// Library users check these with errors.Is. Per-file load failures are
// reported by the imageio package (imageio.ErrEmptyDecode,
// imageio.ErrDecodeFailure, imageio.ErrUnsupported) and end up in the ledger.

var (
	// ErrFatalRun marks an error that aborted the whole run before any
	// conversion happened. Run returns it wrapped; the ledger stays empty.
	ErrFatalRun = errors.New("fatal run error")

	// ErrListFailed indicates the input directory could not be listed
	// (missing, not a directory, permission denied). It is always wrapped
	// together with ErrFatalRun.
	ErrListFailed = errors.New("failed to list input directory")

	// ErrEncodeFailed indicates a PDF could not be encoded or written for a unit.
	// The unit is recorded as failed and the run continues.
	ErrEncodeFailed = errors.New("failed to write PDF")

	// ErrVerifyFailed indicates a written PDF did not read back with the
	// expected number of pages. The partial output is removed.
	ErrVerifyFailed = errors.New("written PDF failed verification")

	// ErrMkdirFailed indicates the dated output directory could not be created.
	// It is fatal because no unit could be written.
	ErrMkdirFailed = errors.New("failed to create output directory")

	// ErrNoInput indicates a run was started without an input folder or files.
	ErrNoInput = errors.New("no input files given")

	// ErrConfigValidation indicates that the provided Options failed validation.
	// This is returned directly by NewEngine and the CLI configuration loader.
	ErrConfigValidation = errors.New("invalid configuration options provided")

	// ErrLedgerSealed is returned when an entry is appended to a finalized ledger.
	ErrLedgerSealed = errors.New("ledger is sealed")
)
