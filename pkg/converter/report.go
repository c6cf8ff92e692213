package converter

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileSkip records one source file left out of a group or merge unit.
type FileSkip struct {
	Path   string `json:"path" yaml:"path" toml:"path"`
	Reason string `json:"reason" yaml:"reason" toml:"reason"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
}

// LedgerEntry is the outcome of one conversion unit.
type LedgerEntry struct {
	UnitID       string     `json:"unitId" yaml:"unitId" toml:"unitId"`
	Kind         UnitKind   `json:"kind" yaml:"kind" toml:"kind"`
	Name         string     `json:"name" yaml:"name" toml:"name"`
	Status       Status     `json:"status" yaml:"status" toml:"status"`
	OutputPath   string     `json:"outputPath,omitempty" yaml:"outputPath,omitempty" toml:"outputPath,omitempty"`
	Pages        int        `json:"pages" yaml:"pages" toml:"pages"`
	Reason       string     `json:"reason,omitempty" yaml:"reason,omitempty" toml:"reason,omitempty"`
	ErrorMessage string     `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
	SkippedFiles []FileSkip `json:"skippedFiles,omitempty" yaml:"skippedFiles,omitempty" toml:"skippedFiles,omitempty"`
	DurationMs   int64      `json:"durationMs" yaml:"durationMs" toml:"durationMs"`

	// Err is the failure cause for StatusFailed entries.
	Err error `json:"-" yaml:"-" toml:"-"`
}

// Ledger is the ordered, append-only record of unit outcomes for one run.
// Only the pipeline appends; Seal makes it immutable.
type Ledger struct {
	runID     string
	outputDir string
	startedAt time.Time

	mu        sync.Mutex
	entries   []LedgerEntry
	sealed    bool
	cancelled bool
}

// NewLedger creates an empty ledger for a run writing into outputDir.
func NewLedger(outputDir string, startedAt time.Time) *Ledger {
	return &Ledger{
		runID:     uuid.NewString(),
		outputDir: outputDir,
		startedAt: startedAt,
	}
}

// RunID returns the unique identifier of the run.
func (l *Ledger) RunID() string { return l.runID }

// Append records an entry. It fails once the ledger is sealed or when the
// entry does not carry a final status.
func (l *Ledger) Append(entry LedgerEntry) error {
	if !entry.Status.IsFinal() {
		return fmt.Errorf("ledger entry %s has non-final status %q", entry.UnitID, entry.Status)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sealed {
		return ErrLedgerSealed
	}
	l.entries = append(l.entries, entry)
	return nil
}

// MarkCancelled flags that the run stopped before every unit was processed.
func (l *Ledger) MarkCancelled() {
	l.mu.Lock()
	l.cancelled = true
	l.mu.Unlock()
}

// Seal makes the ledger immutable.
func (l *Ledger) Seal() {
	l.mu.Lock()
	l.sealed = true
	l.mu.Unlock()
}

// Entries returns a copy of the recorded entries in order.
func (l *Ledger) Entries() []LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LedgerEntry(nil), l.entries...)
}

// Summary aggregates a finalized ledger.
type Summary struct {
	RunID           string    `json:"runId" yaml:"runId" toml:"runId"`
	SucceededCount  int       `json:"succeededCount" yaml:"succeededCount" toml:"succeededCount"`
	SkippedCount    int       `json:"skippedCount" yaml:"skippedCount" toml:"skippedCount"`
	FailedCount     int       `json:"failedCount" yaml:"failedCount" toml:"failedCount"`
	OutputPaths     []string  `json:"outputPaths" yaml:"outputPaths" toml:"outputPaths"`
	OutputDirectory string    `json:"outputDirectory" yaml:"outputDirectory" toml:"outputDirectory"`
	Cancelled       bool      `json:"cancelled" yaml:"cancelled" toml:"cancelled"`
	StartedAt       time.Time `json:"startedAt" yaml:"startedAt" toml:"startedAt"`

	// FatalError is set by the engine when the run aborted before converting.
	FatalError string `json:"fatalError,omitempty" yaml:"fatalError,omitempty" toml:"fatalError,omitempty"`
}

// Finalize folds the ledger into a Summary. It performs no I/O.
func Finalize(l *Ledger) Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Summary{
		RunID:           l.runID,
		OutputPaths:     []string{},
		OutputDirectory: l.outputDir,
		Cancelled:       l.cancelled,
		StartedAt:       l.startedAt,
	}
	for _, e := range l.entries {
		switch e.Status {
		case StatusConverted:
			s.SucceededCount++
			s.OutputPaths = append(s.OutputPaths, e.OutputPath)
		case StatusSkipped:
			s.SkippedCount++
		case StatusFailed:
			s.FailedCount++
		}
	}
	return s
}

// Report is the result of a run: the summary plus the full ledger.
type Report struct {
	SchemaVersion   string        `json:"schemaVersion" yaml:"schemaVersion" toml:"schemaVersion"`
	Mode            Mode          `json:"mode" yaml:"mode" toml:"mode"`
	InputPath       string        `json:"inputPath,omitempty" yaml:"inputPath,omitempty" toml:"inputPath,omitempty"`
	Summary         Summary       `json:"summary" yaml:"summary" toml:"summary"`
	Entries         []LedgerEntry `json:"entries" yaml:"entries" toml:"entries"`
	DurationSeconds float64       `json:"durationSeconds" yaml:"durationSeconds" toml:"durationSeconds"`
}

// SkippedFiles flattens the per-file skip reasons of every entry.
func (r Report) SkippedFiles() []FileSkip {
	var out []FileSkip
	for _, e := range r.Entries {
		out = append(out, e.SkippedFiles...)
	}
	return out
}
