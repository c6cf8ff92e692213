// Package testutil provides fixtures and mock implementations for the
// interfaces of the conversion library. Configure mocks with testify/mock
// expectations (.On(...).Return(...)).
package testutil

import (
	"image"
	"io"
	"sync"

	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter"
	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter/imageio"
	"github.com/stretchr/testify/mock"
)

// MockReporter mocks converter.Reporter and all of its optional extensions.
type MockReporter struct {
	mock.Mock
}

// Notify mocks the Notify method.
func (m *MockReporter) Notify(processed, total int, label string) {
	m.Called(processed, total, label)
}

// OnUnitDone mocks the OnUnitDone method.
func (m *MockReporter) OnUnitDone(entry converter.LedgerEntry) {
	m.Called(entry)
}

// OnStateChange mocks the OnStateChange method.
func (m *MockReporter) OnStateChange(state converter.State) {
	m.Called(state)
}

// OnRunComplete mocks the OnRunComplete method.
func (m *MockReporter) OnRunComplete(report converter.Report) {
	m.Called(report)
}

// ProgressEvent is one Notify call captured by RecordingReporter.
type ProgressEvent struct {
	Processed int
	Total     int
	Label     string
}

// RecordingReporter captures every event in order. Safe for concurrent use.
type RecordingReporter struct {
	mu      sync.Mutex
	Events  []ProgressEvent
	Units   []converter.LedgerEntry
	States  []converter.State
	Reports []converter.Report
}

// Notify implements converter.Reporter.
func (r *RecordingReporter) Notify(processed, total int, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, ProgressEvent{Processed: processed, Total: total, Label: label})
}

// OnUnitDone implements converter.UnitReporter.
func (r *RecordingReporter) OnUnitDone(entry converter.LedgerEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Units = append(r.Units, entry)
}

// OnStateChange implements converter.StateReporter.
func (r *RecordingReporter) OnStateChange(state converter.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.States = append(r.States, state)
}

// OnRunComplete implements converter.CompletionReporter.
func (r *RecordingReporter) OnRunComplete(report converter.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reports = append(r.Reports, report)
}

// Labels returns the labels of all captured progress events.
func (r *RecordingReporter) Labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	labels := make([]string, len(r.Events))
	for i, e := range r.Events {
		labels[i] = e.Label
	}
	return labels
}

// MockLoader mocks converter.ImageLoader.
type MockLoader struct {
	mock.Mock
}

// Load mocks the Load method.
func (m *MockLoader) Load(path string) (*imageio.Buffer, error) {
	args := m.Called(path)
	buf, _ := args.Get(0).(*imageio.Buffer)
	return buf, args.Error(1)
}

// MockEncoder mocks converter.PageEncoder. Configured return values are
// returned after the pages were recorded by testify.
type MockEncoder struct {
	mock.Mock
}

// Encode mocks the Encode method.
func (m *MockEncoder) Encode(w io.Writer, pages []image.Image) error {
	args := m.Called(w, pages)
	return args.Error(0)
}

// MockPageCounter mocks converter.PageCounter.
type MockPageCounter struct {
	mock.Mock
}

// PageCount mocks the PageCount method.
func (m *MockPageCounter) PageCount(rs io.ReadSeeker) (int, error) {
	args := m.Called(rs)
	return args.Int(0), args.Error(1)
}
