package converter

// Status defines the processing state of a conversion unit.
type Status string

// Unit statuses. Converted, Skipped and Failed are final and are the only
// values recorded in the ledger.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusConverted  Status = "converted"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// IsFinal reports whether s is a ledger outcome.
func (s Status) IsFinal() bool {
	return s == StatusConverted || s == StatusSkipped || s == StatusFailed
}

// Mode selects where the sources of a run come from.
type Mode string

const (
	// ModeFolder classifies a root directory: root images and first-level subfolders.
	ModeFolder Mode = "folder"
	// ModeFiles converts an explicit, caller-ordered list of files.
	ModeFiles Mode = "files"
)

// UnitKind identifies the conversion algorithm applied to a unit.
type UnitKind string

const (
	UnitSingleFile       UnitKind = "single_file"
	UnitFolderGroup      UnitKind = "folder_group"
	UnitFileListMerged   UnitKind = "file_list_merged"
	UnitFileListSeparate UnitKind = "file_list_separate"
	UnitFolderMerged     UnitKind = "folder_merged"
)

// State is a stage of the pipeline state machine.
type State string

// Pipeline states in the only order they are entered.
const (
	StateIdle        State = "idle"
	StateClassifying State = "classifying"
	StateConverting  State = "converting"
	StateFinalizing  State = "finalizing"
	StateDone        State = "done"
)

// OutputFormat defines the format of the final summary printed by the CLI.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatTOML OutputFormat = "toml"
)

// SourceKind tags a classified directory entry.
type SourceKind string

const (
	SourceFile   SourceKind = "file"
	SourceFolder SourceKind = "folder"
)
