package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter"
)

// createTempConfigFile writes a config file on the real filesystem, where
// viper reads it from.
func createTempConfigFile(t *testing.T, content string, format string) string {
	t.Helper()
	filePath := filepath.Join(t.TempDir(), fmt.Sprintf("img2pdf.%s", format))
	require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	return filePath
}

// defineAllFlags mirrors the flag definitions of the root command.
func defineAllFlags(flags *pflag.FlagSet) {
	flags.StringP("input", "i", "", "Input")
	flags.StringP("output", "o", "", "Output")
	flags.String("config", "", "Config file")
	flags.String("profile", "", "Config profile")
	flags.BoolP("verbose", "v", false, "Verbose logging")
	flags.Bool("merge", false, "Merge")
	flags.String("name", "", "Merged name")
	flags.Bool("no-tui", false, "Disable TUI")
	flags.String("output-format", string(converter.DefaultOutputFormat), "Summary format")
	flags.String("template", "", "Summary template")
	flags.Bool("no-lock", false, "Disable lock")
	flags.Bool("no-verify", false, "Disable verification")
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	defineAllFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func baseParams(t *testing.T, fs afero.Fs, args ...string) (LoadParams, *bytes.Buffer) {
	t.Helper()
	var logBuf bytes.Buffer
	return LoadParams{
		ConfigFile: createTempConfigFile(t, "{}", "yaml"),
		AppVersion: "test",
		Flags:      newFlags(t, args...),
		Mode:       converter.ModeFolder,
		Fs:         fs,
		LogOutput:  &logBuf,
	}, &logBuf
}

func TestLoadAndValidate_Defaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	params, _ := baseParams(t, fs, "-i", "/data/in", "-o", "/data/out")

	opts, logger, err := LoadAndValidate(params)
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.Equal(t, "/data/in", opts.InputPath)
	assert.Equal(t, "/data/out", opts.OutputPath)
	assert.Equal(t, converter.ModeFolder, opts.Mode)
	assert.Equal(t, converter.DefaultMerge, opts.Merge)
	assert.Equal(t, converter.DefaultTuiEnabled, opts.TuiEnabled)
	assert.Equal(t, converter.DefaultLockEnabled, opts.LockEnabled)
	assert.Equal(t, converter.DefaultVerifyOutput, opts.VerifyOutput)
	assert.Equal(t, converter.DefaultOutputFormat, opts.OutputFormat)
	assert.Equal(t, "test", opts.AppVersion)
	assert.NotNil(t, opts.Logger)
	assert.NotNil(t, opts.Template)
	assert.Equal(t, "default", opts.Template.Name())

	for _, dir := range []string{"/data/in", "/data/out"} {
		exists, err := afero.DirExists(fs, dir)
		require.NoError(t, err)
		assert.True(t, exists, "%s is created when missing", dir)
	}
}

func TestLoadAndValidate_ConfigFileProfileEnvAndFlags(t *testing.T) {
	configContent := `
input: /cfg/in
output: /cfg/out
merge: false
name: from-file
outputFormat: yaml
profiles:
  album:
    merge: true
    name: Holiday
`
	fs := afero.NewMemMapFs()
	params, _ := baseParams(t, fs, "--no-verify")
	params.ConfigFile = createTempConfigFile(t, configContent, "yaml")
	params.Profile = "album"
	t.Setenv("IMG2PDF_OUTPUTFORMAT", "json")

	opts, _, err := LoadAndValidate(params)
	require.NoError(t, err)
	assert.Equal(t, "/cfg/in", opts.InputPath)
	assert.Equal(t, "/cfg/out", opts.OutputPath)
	assert.True(t, opts.Merge, "profile overrides file")
	assert.Equal(t, "Holiday", opts.MergeName)
	assert.Equal(t, converter.OutputFormatJSON, opts.OutputFormat, "env overrides file")
	assert.False(t, opts.VerifyOutput, "--no-verify overrides default")
	assert.Equal(t, "album", opts.ProfileName)
	assert.Equal(t, params.ConfigFile, opts.ConfigFilePath)

	params.Flags = newFlags(t, "--name", "FlagName", "--output-format", "toml", "-o", "/flag/out")
	opts, _, err = LoadAndValidate(params)
	require.NoError(t, err)
	assert.Equal(t, "FlagName", opts.MergeName, "flag overrides profile")
	assert.Equal(t, converter.OutputFormatTOML, opts.OutputFormat, "flag overrides env")
	assert.Equal(t, "/flag/out", opts.OutputPath)
}

func TestLoadAndValidate_BooleanFlagOverrides(t *testing.T) {
	fs := afero.NewMemMapFs()
	params, _ := baseParams(t, fs, "-i", "/in", "-o", "/out", "--no-tui", "--no-lock", "--merge", "-v")

	opts, _, err := LoadAndValidate(params)
	require.NoError(t, err)
	assert.False(t, opts.TuiEnabled)
	assert.False(t, opts.LockEnabled)
	assert.True(t, opts.Merge)
	assert.True(t, opts.Verbose)
}

func TestLoadAndValidate_VerboseParam(t *testing.T) {
	fs := afero.NewMemMapFs()
	params, logBuf := baseParams(t, fs, "-i", "/in", "-o", "/out")
	params.Verbose = true

	opts, _, err := LoadAndValidate(params)
	require.NoError(t, err)
	assert.True(t, opts.Verbose)
	assert.Contains(t, logBuf.String(), "Configuration loading and validation complete")
}

func TestLoadAndValidate_PromptsForMissingPaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	params, _ := baseParams(t, fs)
	params.ExecutableDir = "/app"

	var asked []string
	params.Prompt = func(label, def string) (string, error) {
		asked = append(asked, def)
		return def, nil
	}

	opts, _, err := LoadAndValidate(params)
	require.NoError(t, err)
	assert.Equal(t, []string{"/app/BAHAN", "/app/HASIL"}, asked)
	assert.Equal(t, "/app/BAHAN", opts.InputPath)
	assert.Equal(t, "/app/HASIL", opts.OutputPath)

	exists, err := afero.DirExists(fs, "/app/BAHAN")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLoadAndValidate_PromptOnlyForMissingPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	params, _ := baseParams(t, fs, "-i", "/given")
	params.ExecutableDir = "/app"

	calls := 0
	params.Prompt = func(label, def string) (string, error) {
		calls++
		return "/typed/out", nil
	}

	opts, _, err := LoadAndValidate(params)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "/given", opts.InputPath)
	assert.Equal(t, "/typed/out", opts.OutputPath)
}

func TestLoadAndValidate_PromptError(t *testing.T) {
	fs := afero.NewMemMapFs()
	params, _ := baseParams(t, fs)
	params.Prompt = func(string, string) (string, error) { return "", errors.New("stdin closed") }

	_, _, err := LoadAndValidate(params)
	assert.ErrorIs(t, err, converter.ErrConfigValidation)
	assert.ErrorContains(t, err, "stdin closed")
}

func TestLoadAndValidate_FilesMode(t *testing.T) {
	fs := afero.NewMemMapFs()
	params, _ := baseParams(t, fs, "-o", "/out", "--merge")
	params.Mode = converter.ModeFiles
	params.Files = []string{"/pics/b.png", "/pics/a.png"}

	opts, _, err := LoadAndValidate(params)
	require.NoError(t, err)
	assert.Equal(t, converter.ModeFiles, opts.Mode)
	assert.Equal(t, []string{"/pics/b.png", "/pics/a.png"}, opts.Files, "order is kept")
	assert.True(t, opts.Merge)
}

func TestLoadAndValidate_CustomTemplate(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/tmpl/mine.tmpl", []byte("{{ .SucceededCount }}"), 0o644))
	params, _ := baseParams(t, fs, "-i", "/in", "-o", "/out", "--template", "/tmpl/mine.tmpl")

	opts, _, err := LoadAndValidate(params)
	require.NoError(t, err)
	assert.Equal(t, "/tmpl/mine.tmpl", opts.TemplatePath)
	require.NotNil(t, opts.Template)
	assert.Equal(t, "mine.tmpl", opts.Template.Name())
}

func TestLoadAndValidate_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name      string
		args      []string
		mode      converter.Mode
		setup     func(fs afero.Fs)
		errSubstr string
	}{
		{name: "MissingInputNoPrompt", args: []string{"-o", "/out"}, errSubstr: "input path is required"},
		{name: "MissingOutputNoPrompt", args: []string{"-i", "/in"}, errSubstr: "output path is required"},
		{name: "BadOutputFormat", args: []string{"-i", "/in", "-o", "/out", "--output-format", "xml"}, errSubstr: "invalid value 'xml' for key 'outputFormat'"},
		{name: "FilesModeWithoutFiles", args: []string{"-o", "/out"}, mode: converter.ModeFiles, errSubstr: "pass at least one image file"},
		{name: "FilesModeWithoutOutput", mode: converter.ModeFiles, errSubstr: "output path is required"},
		{name: "MissingTemplate", args: []string{"-i", "/in", "-o", "/out", "--template", "/nope.tmpl"}, errSubstr: "failed to read template file"},
		{
			name:      "InputIsAFile",
			args:      []string{"-i", "/in.png", "-o", "/out"},
			setup:     func(fs afero.Fs) { _ = afero.WriteFile(fs, "/in.png", []byte("x"), 0o644) },
			errSubstr: "is not a directory",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tc.setup != nil {
				tc.setup(fs)
			}
			params, logBuf := baseParams(t, fs, tc.args...)
			if tc.mode != "" {
				params.Mode = tc.mode
			}
			if tc.name == "FilesModeWithoutOutput" {
				params.Files = []string{"/a.png"}
			}

			_, _, err := LoadAndValidate(params)
			require.Error(t, err)
			assert.ErrorIs(t, err, converter.ErrConfigValidation)
			assert.Contains(t, err.Error(), tc.errSubstr)
			assert.Contains(t, logBuf.String(), "level=ERROR")
		})
	}
}

func TestLoadAndValidate_ConfigFileErrors(t *testing.T) {
	fs := afero.NewMemMapFs()

	params, _ := baseParams(t, fs, "-i", "/in", "-o", "/out")
	params.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, _, err := LoadAndValidate(params)
	assert.ErrorContains(t, err, "error reading config file")

	params, _ = baseParams(t, fs, "-i", "/in", "-o", "/out")
	params.ConfigFile = createTempConfigFile(t, "merge: [unclosed", "yaml")
	_, _, err = LoadAndValidate(params)
	assert.ErrorContains(t, err, "error reading config file")

	params, _ = baseParams(t, fs, "-i", "/in", "-o", "/out")
	params.Profile = "ghost"
	_, _, err = LoadAndValidate(params)
	assert.ErrorContains(t, err, "profile 'ghost' not found")
}

func TestIsValidEnumValue(t *testing.T) {
	allowed := []converter.OutputFormat{converter.OutputFormatText, converter.OutputFormatJSON}
	assert.True(t, isValidEnumValue(converter.OutputFormatJSON, allowed))
	assert.False(t, isValidEnumValue(converter.OutputFormat("xml"), allowed))
}
