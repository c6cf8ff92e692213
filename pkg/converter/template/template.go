package template

import (
	_ "embed" // Required for //go:embed
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/spf13/afero"
)

//go:embed summary.tmpl
var defaultTemplateContent string

// SummaryData is what summary templates are executed against. The CLI builds
// it from a converter report.
type SummaryData struct {
	RunID           string
	Mode            string
	OutputDirectory string
	SucceededCount  int
	SkippedCount    int
	FailedCount     int
	Cancelled       bool
	FatalError      string
	Duration        time.Duration
	StartedAt       time.Time

	Converted []OutputItem
	// Skipped lists skipped units and files left out of converted units.
	Skipped []IssueItem
	Failed  []IssueItem
}

// OutputItem is one written PDF.
type OutputItem struct {
	Name  string
	Path  string
	Pages int
}

// IssueItem is one skipped or failed source with its reason.
type IssueItem struct {
	Name   string
	Reason string
}

// GoTemplateExecutor renders run summaries with text/template.
type GoTemplateExecutor struct{}

// NewGoTemplateExecutor creates a new GoTemplateExecutor.
func NewGoTemplateExecutor() *GoTemplateExecutor {
	return &GoTemplateExecutor{}
}

// Execute renders data with tmpl, falling back to the default template when
// tmpl is nil.
func (e *GoTemplateExecutor) Execute(w io.Writer, tmpl *template.Template, data *SummaryData) error {
	if tmpl == nil {
		defaultTmpl, err := LoadDefaultTemplate()
		if err != nil {
			return err
		}
		tmpl = defaultTmpl
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("template execution failed for %q: %w", tmpl.Name(), err)
	}
	return nil
}

// customTemplateFuncs are available to the default and custom templates.
var customTemplateFuncs = template.FuncMap{
	"base": filepath.Base,
	"rule": func(n int) string {
		return strings.Repeat("=", n)
	},
	"plural": func(n int, singular, plural string) string {
		if n == 1 {
			return fmt.Sprintf("%d %s", n, singular)
		}
		return fmt.Sprintf("%d %s", n, plural)
	},
	"formatDuration": func(d time.Duration) string {
		return d.Round(time.Millisecond).String()
	},
	"formatDate": func(t time.Time, layout string) string {
		if layout == "" {
			layout = time.RFC3339
		}
		return t.Format(layout)
	},
}

// LoadDefaultTemplate parses the embedded summary template.
func LoadDefaultTemplate() (*template.Template, error) {
	if defaultTemplateContent == "" {
		return nil, fmt.Errorf("embedded default template content is empty")
	}
	tmpl, err := template.New("default").Funcs(customTemplateFuncs).Parse(defaultTemplateContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse default template: %w", err)
	}
	return tmpl, nil
}

// LoadTemplateFile parses a user-supplied summary template from fsys. The
// template gets the same helper functions as the default one.
func LoadTemplateFile(fsys afero.Fs, path string) (*template.Template, error) {
	content, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file %q: %w", path, err)
	}
	tmpl, err := template.New(filepath.Base(path)).Funcs(customTemplateFuncs).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template file %q: %w", path, err)
	}
	return tmpl, nil
}
