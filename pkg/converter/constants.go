package converter

// Constants defining default values for configuration options.
// They seed the viper defaults in the CLI configuration loader.
const (
	// DefaultMode is the source mode when none is given.
	DefaultMode = ModeFolder
	// DefaultMerge is the default for combining all images into one PDF.
	DefaultMerge = false
	// DefaultTuiEnabled is the default state for the Terminal UI.
	DefaultTuiEnabled = true
	// DefaultOutputFormat is the default format for the final summary report.
	DefaultOutputFormat = OutputFormatText
	// DefaultLockEnabled guards the output root against concurrent runs.
	DefaultLockEnabled = true
	// DefaultVerifyOutput re-reads every written PDF to check its page count.
	DefaultVerifyOutput = true
	// DefaultVerbose is the default state for verbose logging.
	DefaultVerbose = false
	// DefaultInputDirName is the prompt default for the input folder, next to the executable.
	DefaultInputDirName = "BAHAN"
	// DefaultOutputDirName is the prompt default for the output folder, next to the executable.
	DefaultOutputDirName = "HASIL"
)

// DateDirLayout names the per-day output directory (local time).
const DateDirLayout = "2006-01-02"

// Merge progress is reported on a 0..MergeProgressTotal scale: loading
// advances up to MergeLoadShare, the single encode step completes it.
const (
	MergeProgressTotal = 100
	MergeLoadShare     = 80
)

// ReportSchemaVersion indicates the version of the machine-readable report.
const ReportSchemaVersion = "1.0"

// Skip reasons recorded in the ledger.
const (
	SkipReasonNoImages     = "no_images"
	SkipReasonNoPages      = "no_pages_decoded"
	SkipReasonLoadFailed   = "load_failed"
	SkipReasonListFailed   = "list_failed"
	SkipReasonDecodedEmpty = "empty_decode"
	SkipReasonUnsupported  = "unsupported"
)
