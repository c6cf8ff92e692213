package converter

import (
	"image"
	"io"
	"log/slog"
	"text/template"
	"time"

	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter/imageio"
	"github.com/spf13/afero"
)

// Reporter receives discrete progress events from the pipeline.
// Notify is fire-and-forget: it must not block for long, and a panic inside
// it is recovered and logged, never fatal to the run.
type Reporter interface {
	Notify(processed, total int, label string)
}

// UnitReporter is an optional Reporter extension told about every ledger entry.
type UnitReporter interface {
	OnUnitDone(entry LedgerEntry)
}

// StateReporter is an optional Reporter extension told about state transitions.
type StateReporter interface {
	OnStateChange(state State)
}

// CompletionReporter is an optional Reporter extension receiving the final report.
type CompletionReporter interface {
	OnRunComplete(report Report)
}

// NoOpReporter ignores every event.
type NoOpReporter struct{}

// Notify implements Reporter.
func (NoOpReporter) Notify(int, int, string) {}

// ImageLoader decodes one file into an RGB buffer or returns an
// *imageio.LoadError.
type ImageLoader interface {
	Load(path string) (*imageio.Buffer, error)
}

// PageEncoder writes images as consecutive PDF pages.
type PageEncoder interface {
	Encode(w io.Writer, pages []image.Image) error
}

// PageCounter counts the pages of a written PDF.
type PageCounter interface {
	PageCount(rs io.ReadSeeker) (int, error)
}

// Options configures a conversion run. Fields tagged mapstructure are filled
// by the CLI configuration loader; the rest are injected dependencies.
type Options struct {
	// --- Sources and destination ---
	InputPath  string   `mapstructure:"input"`
	OutputPath string   `mapstructure:"output"`
	Files      []string `mapstructure:"-"`
	Mode       Mode     `mapstructure:"-"`

	// --- Behaviour ---
	Merge        bool   `mapstructure:"merge"`
	MergeName    string `mapstructure:"name"`
	VerifyOutput bool   `mapstructure:"verify"`

	// --- CLI presentation ---
	TuiEnabled   bool               `mapstructure:"tui"`
	Verbose      bool               `mapstructure:"verbose"`
	LockEnabled  bool               `mapstructure:"lock"`
	OutputFormat OutputFormat       `mapstructure:"outputFormat"`
	TemplatePath string             `mapstructure:"templateFile"`
	Template     *template.Template `mapstructure:"-"`

	// --- Metadata ---
	ProfileName    string `mapstructure:"-"`
	ConfigFilePath string `mapstructure:"-"`
	AppVersion     string `mapstructure:"-"`

	// --- Dependencies ---
	// Logger is the handler the library logs through. Required.
	Logger slog.Handler `mapstructure:"-"`
	// Reporter receives progress events. Nil means NoOpReporter.
	Reporter Reporter `mapstructure:"-"`
	// Fs is the filesystem for listing, reading and writing. Nil means the OS.
	Fs afero.Fs `mapstructure:"-"`
	// Loader decodes images. Nil means an imageio.Loader over Fs with
	// detected HEIC capabilities.
	Loader ImageLoader `mapstructure:"-"`
	// Encoder writes PDFs. Nil means pdf.Encoder.
	Encoder PageEncoder `mapstructure:"-"`
	// Verifier counts pages of written PDFs when VerifyOutput is set.
	// Nil means pdf.Inspector.
	Verifier PageCounter `mapstructure:"-"`
	// Clock supplies the run's start time. Nil means time.Now.
	Clock func() time.Time `mapstructure:"-"`
}
