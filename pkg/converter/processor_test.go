package converter_test

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/internal/testutil"
	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter"
	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter/imageio"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var planTime = time.Date(2026, 10, 19, 14, 5, 9, 0, time.Local)

func TestPlanFolderUnits_Separate(t *testing.T) {
	c := converter.Classification{
		Files: []converter.SourceItem{
			{Kind: converter.SourceFile, Name: "photo1.jpg", Path: "/in/photo1.jpg"},
			{Kind: converter.SourceFile, Name: "my scan!.png", Path: "/in/my scan!.png"},
		},
		Folders: []converter.SourceItem{
			{Kind: converter.SourceFolder, Name: "vacation.2024", Path: "/in/vacation.2024"},
		},
	}

	units := converter.PlanFolderUnits(c, false, "", planTime)
	require.Len(t, units, 3)

	assert.Equal(t, "u001", units[0].ID)
	assert.Equal(t, converter.UnitSingleFile, units[0].Kind)
	assert.Equal(t, "photo1", units[0].Name)
	assert.Equal(t, []string{"/in/photo1.jpg"}, units[0].Sources)

	assert.Equal(t, "my scan", units[1].Name)
	assert.Equal(t, "my scan!.png", units[1].Label)

	assert.Equal(t, converter.UnitFolderGroup, units[2].Kind)
	assert.Equal(t, "vacation2024", units[2].Name, "folder names keep their dotted suffix before sanitizing")
	assert.Equal(t, []string{"/in/vacation.2024"}, units[2].Dirs)
	assert.Equal(t, "u003", units[2].ID)
}

func TestPlanFolderUnits_Merged(t *testing.T) {
	c := converter.Classification{
		Files:   []converter.SourceItem{{Kind: converter.SourceFile, Name: "a.jpg", Path: "/in/a.jpg"}},
		Folders: []converter.SourceItem{{Kind: converter.SourceFolder, Name: "v", Path: "/in/v"}},
	}

	units := converter.PlanFolderUnits(c, true, "", planTime)
	require.Len(t, units, 1)
	assert.Equal(t, converter.UnitFolderMerged, units[0].Kind)
	assert.Equal(t, "Merged_All_20261019_140509", units[0].Name)
	assert.Equal(t, []string{"/in/a.jpg"}, units[0].Sources)
	assert.Equal(t, []string{"/in/v"}, units[0].Dirs)

	named := converter.PlanFolderUnits(c, true, "Album.pdf", planTime)
	assert.Equal(t, "Album", named[0].Name)

	assert.Empty(t, converter.PlanFolderUnits(converter.Classification{}, true, "", planTime))
}

func TestPlanFileUnits(t *testing.T) {
	files := []string{"/x/C.png", "/y/A.jpg", "/x/B.png"}

	merged := converter.PlanFileUnits(files, true, "  ", planTime)
	require.Len(t, merged, 1)
	assert.Equal(t, converter.UnitFileListMerged, merged[0].Kind)
	assert.Equal(t, "Merged_20261019_140509", merged[0].Name)
	assert.Equal(t, files, merged[0].Sources, "caller order is kept")

	separate := converter.PlanFileUnits(files, false, "", planTime)
	require.Len(t, separate, 3)
	for i, u := range separate {
		assert.Equal(t, converter.UnitFileListSeparate, u.Kind)
		assert.Equal(t, []string{files[i]}, u.Sources)
	}
	assert.Equal(t, "C", separate[0].Name)

	assert.Empty(t, converter.PlanFileUnits(nil, true, "", planTime))
}

// newMockedOptions returns file-mode options over an in-memory filesystem
// with mocked loader and encoder.
func newMockedOptions(t *testing.T, files ...string) (converter.Options, afero.Fs, *testutil.MockLoader, *testutil.MockEncoder) {
	t.Helper()
	fs := afero.NewMemMapFs()
	loader := &testutil.MockLoader{}
	encoder := &testutil.MockEncoder{}
	var logBuf bytes.Buffer
	return converter.Options{
		Mode:       converter.ModeFiles,
		Files:      files,
		OutputPath: "/out",
		Logger:     testutil.NewTestLogHandler(&logBuf),
		Fs:         fs,
		Loader:     loader,
		Encoder:    encoder,
		Clock:      testutil.FixedClock(planTime),
	}, fs, loader, encoder
}

func buffer(path string) *imageio.Buffer {
	return &imageio.Buffer{Path: path, Image: imageio.ToRGB(testutil.SolidImage(8, 8, color.White))}
}

func TestProcess_MergeSkipsFailedLoads(t *testing.T) {
	opts, fs, loader, encoder := newMockedOptions(t, "/in/a.png", "/in/bad.png", "/in/c.png")
	opts.Merge = true
	opts.MergeName = "book"

	loader.On("Load", "/in/a.png").Return(buffer("/in/a.png"), nil)
	loader.On("Load", "/in/bad.png").Return(nil, &imageio.LoadError{Path: "/in/bad.png", Kind: imageio.KindDecodeFailure, Cause: errors.New("corrupt")})
	loader.On("Load", "/in/c.png").Return(buffer("/in/c.png"), nil)
	encoder.On("Encode", mock.Anything, mock.Anything).Return(nil)

	report, err := converter.Convert(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, report.Entries, 1)
	entry := report.Entries[0]
	assert.Equal(t, converter.StatusConverted, entry.Status)
	assert.Equal(t, 2, entry.Pages)
	assert.Equal(t, filepath.Join("/out", "2026-10-19", "book.pdf"), entry.OutputPath)
	require.Len(t, entry.SkippedFiles, 1)
	assert.Equal(t, "/in/bad.png", entry.SkippedFiles[0].Path)
	assert.Equal(t, converter.SkipReasonLoadFailed, entry.SkippedFiles[0].Reason)

	exists, err := afero.Exists(fs, entry.OutputPath)
	require.NoError(t, err)
	assert.True(t, exists)
	loader.AssertExpectations(t)
}

func TestProcess_MergeWithNoDecodablePagesIsSkipped(t *testing.T) {
	opts, fs, loader, encoder := newMockedOptions(t, "/in/a.png", "/in/b.png")
	opts.Merge = true

	loader.On("Load", mock.Anything).Return(nil, &imageio.LoadError{Kind: imageio.KindEmptyDecode, Cause: errors.New("empty")})

	report, err := converter.Convert(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, report.Entries, 1)
	entry := report.Entries[0]
	assert.Equal(t, converter.StatusSkipped, entry.Status)
	assert.Equal(t, converter.SkipReasonNoPages, entry.Reason)
	assert.Len(t, entry.SkippedFiles, 2)
	assert.Equal(t, converter.SkipReasonDecodedEmpty, entry.SkippedFiles[0].Reason)
	encoder.AssertNotCalled(t, "Encode", mock.Anything, mock.Anything)

	files, err := afero.ReadDir(fs, filepath.Join("/out", "2026-10-19"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestProcess_EncodeFailureRemovesPartialOutput(t *testing.T) {
	opts, fs, loader, encoder := newMockedOptions(t, "/in/a.png", "/in/b.png")

	loader.On("Load", "/in/a.png").Return(buffer("/in/a.png"), nil)
	loader.On("Load", "/in/b.png").Return(buffer("/in/b.png"), nil)
	encoder.On("Encode", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	encoder.On("Encode", mock.Anything, mock.Anything).Return(nil).Once()

	report, err := converter.Convert(context.Background(), opts)
	require.NoError(t, err, "per-unit failures do not fail the run")

	require.Len(t, report.Entries, 2)
	failed := report.Entries[0]
	assert.Equal(t, converter.StatusFailed, failed.Status)
	assert.ErrorIs(t, failed.Err, converter.ErrEncodeFailed)
	assert.Contains(t, failed.ErrorMessage, "disk full")
	assert.Equal(t, converter.StatusConverted, report.Entries[1].Status)

	exists, err := afero.Exists(fs, filepath.Join("/out", "2026-10-19", "a.pdf"))
	require.NoError(t, err)
	assert.False(t, exists, "partial output must be removed")
	assert.Equal(t, 1, report.Summary.FailedCount)
	assert.Equal(t, 1, report.Summary.SucceededCount)
}

func TestProcess_VerificationMismatchFails(t *testing.T) {
	opts, fs, loader, encoder := newMockedOptions(t, "/in/a.png")
	counter := &testutil.MockPageCounter{}
	opts.VerifyOutput = true
	opts.Verifier = counter

	loader.On("Load", "/in/a.png").Return(buffer("/in/a.png"), nil)
	encoder.On("Encode", mock.Anything, mock.Anything).Return(nil)
	counter.On("PageCount", mock.Anything).Return(0, nil)

	report, err := converter.Convert(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, report.Entries, 1)
	assert.Equal(t, converter.StatusFailed, report.Entries[0].Status)
	assert.ErrorIs(t, report.Entries[0].Err, converter.ErrVerifyFailed)
	exists, err := afero.Exists(fs, filepath.Join("/out", "2026-10-19", "a.pdf"))
	require.NoError(t, err)
	assert.False(t, exists)
	counter.AssertExpectations(t)
}

func TestProcess_SingleLoadFailureRecordsReason(t *testing.T) {
	opts, _, loader, encoder := newMockedOptions(t, "/in/a.heic")

	loader.On("Load", "/in/a.heic").Return(nil, &imageio.LoadError{Path: "/in/a.heic", Kind: imageio.KindUnsupported, Cause: errors.New("no decoder")})

	report, err := converter.Convert(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, report.Entries, 1)
	entry := report.Entries[0]
	assert.Equal(t, converter.StatusFailed, entry.Status)
	assert.Equal(t, converter.SkipReasonUnsupported, entry.Reason)
	assert.ErrorIs(t, entry.Err, imageio.ErrUnsupported)
	encoder.AssertNotCalled(t, "Encode", mock.Anything, mock.Anything)
}
