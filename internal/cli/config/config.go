package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter"
	tmplhelper "github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter/template"
)

const (
	EnvPrefix         = "IMG2PDF"
	DefaultConfigName = "img2pdf"
)

// PromptFunc asks the user for a value, returning def on an empty answer.
type PromptFunc func(label, def string) (string, error)

// LoadParams carries everything LoadAndValidate needs besides the sources it
// reads itself (config file, environment).
type LoadParams struct {
	ConfigFile string
	Profile    string
	AppVersion string
	Verbose    bool
	Flags      *pflag.FlagSet

	// Mode selects folder or file-list validation.
	Mode converter.Mode
	// Files are the explicit sources of a file-list run.
	Files []string
	// Prompt asks for missing folder-mode paths. Nil disables prompting.
	Prompt PromptFunc

	// Fs is where paths are checked and created. Nil means the OS.
	Fs afero.Fs
	// ExecutableDir anchors the prompt defaults. Empty means the directory
	// of the running executable.
	ExecutableDir string
	// LogOutput receives log lines. Nil means stderr.
	LogOutput io.Writer
}

// flagKeys maps flag names to the configuration keys they override.
var flagKeys = map[string]string{
	"input":         "input",
	"output":        "output",
	"merge":         "merge",
	"name":          "name",
	"verbose":       "verbose",
	"output-format": "outputFormat",
	"template":      "templateFile",
}

// LoadAndValidate layers configuration (defaults, file, profile, env, flags),
// validates it, resolves paths, loads the summary template and sets up the
// logger. Returns the populated Options or an error.
func LoadAndValidate(p LoadParams) (converter.Options, *slog.Logger, error) {
	var opts converter.Options
	v := viper.New()

	logOutput := p.LogOutput
	if logOutput == nil {
		logOutput = os.Stderr
	}
	fs := p.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	flags := p.Flags
	if flags == nil {
		flags = pflag.NewFlagSet("empty", pflag.ContinueOnError)
	}

	tempLogger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: slog.LevelInfo}))

	setDefaults(v)

	// --- Load Config File ---
	if p.ConfigFile != "" {
		v.SetConfigFile(p.ConfigFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
			v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
		} else {
			tempLogger.Debug("No home directory; searching the working directory only", slog.String("error", err.Error()))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && p.ConfigFile == "" {
			tempLogger.Debug("No configuration file found, using defaults/env/flags.")
		} else {
			used := p.ConfigFile
			if used == "" {
				used = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			tempLogger.Error("Error reading configuration file", slog.String("path", used), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error reading config file '%s': %w", used, err)
		}
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
		tempLogger.Debug("Using configuration file", slog.String("path", opts.ConfigFilePath))
	}

	// --- Apply Profile ---
	opts.ProfileName = p.Profile
	if p.Profile != "" {
		profileKey := "profiles." + p.Profile
		profileSettings := v.Sub(profileKey)
		if profileSettings == nil {
			configPath := v.ConfigFileUsed()
			if configPath == "" {
				configPath = "(no config file found)"
			}
			err := fmt.Errorf("profile '%s' not found in config file '%s'", p.Profile, configPath)
			tempLogger.Error(err.Error())
			return opts, tempLogger, err
		}
		if err := v.MergeConfigMap(profileSettings.AllSettings()); err != nil {
			tempLogger.Error("Error merging profile", slog.String("profile", p.Profile), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error merging profile '%s': %w", p.Profile, err)
		}
		tempLogger.Debug("Applied configuration profile", slog.String("profile", p.Profile))
	}

	// --- Bind Environment Variables ---
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// --- Bind Flags (Highest Priority) ---
	for flagName, key := range flagKeys {
		flag := flags.Lookup(flagName)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			tempLogger.Error("Error binding flag", slog.String("flag", flagName), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error binding flag '--%s': %w", flagName, err)
		}
	}
	v.RegisterAlias("template", "templateFile")

	opts.AppVersion = p.AppVersion
	if err := v.Unmarshal(&opts); err != nil {
		tempLogger.Error("Error unmarshalling configuration", slog.Any("error", err))
		return opts, tempLogger, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// --- Explicit Flag Overrides ---
	if flags.Changed("verbose") {
		opts.Verbose, _ = flags.GetBool("verbose")
	} else if p.Verbose {
		opts.Verbose = true
	}
	if flags.Changed("no-tui") {
		if noTui, _ := flags.GetBool("no-tui"); noTui {
			opts.TuiEnabled = false
		}
	}
	if flags.Changed("no-lock") {
		if noLock, _ := flags.GetBool("no-lock"); noLock {
			opts.LockEnabled = false
		}
	}
	if flags.Changed("no-verify") {
		if noVerify, _ := flags.GetBool("no-verify"); noVerify {
			opts.VerifyOutput = false
		}
	}

	// --- Setup Final Logger ---
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logHandler := slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logHandler)
	opts.Logger = logHandler
	opts.Fs = fs

	// --- Load Custom Template ---
	if opts.TemplatePath != "" {
		absTplPath, err := filepath.Abs(opts.TemplatePath)
		if err != nil {
			err = fmt.Errorf("%w: cannot resolve template path '%s': %w", converter.ErrConfigValidation, opts.TemplatePath, err)
			logger.Error(err.Error(), slog.String("key", "templateFile"))
			return opts, logger, err
		}
		opts.TemplatePath = absTplPath
		customTmpl, err := tmplhelper.LoadTemplateFile(fs, opts.TemplatePath)
		if err != nil {
			err = fmt.Errorf("%w: %w", converter.ErrConfigValidation, err)
			logger.Error(err.Error(), slog.String("key", "templateFile"), slog.String("value", opts.TemplatePath))
			return opts, logger, err
		}
		opts.Template = customTmpl
		logger.Debug("Loaded custom template", slog.String("path", opts.TemplatePath))
	} else {
		defaultTmpl, err := tmplhelper.LoadDefaultTemplate()
		if err != nil {
			logger.Error("Critical: Failed to load embedded default template", slog.String("error", err.Error()))
			return opts, logger, fmt.Errorf("critical internal error: failed to load default template: %w", err)
		}
		opts.Template = defaultTmpl
	}

	opts.Mode = p.Mode
	if opts.Mode == "" {
		opts.Mode = converter.DefaultMode
	}
	opts.Files = p.Files

	if err := validateAndDeriveOptions(&opts, logger, fs, p); err != nil {
		return opts, logger, err
	}

	logger.Debug("Configuration loading and validation complete",
		slog.String("configFile", opts.ConfigFilePath),
		slog.String("profile", opts.ProfileName),
		slog.String("mode", string(opts.Mode)),
		slog.String("input", opts.InputPath),
		slog.String("output", opts.OutputPath),
		slog.String("logLevel", logLevel.String()),
	)
	return opts, logger, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input", "")
	v.SetDefault("output", "")
	v.SetDefault("merge", converter.DefaultMerge)
	v.SetDefault("name", "")
	v.SetDefault("verify", converter.DefaultVerifyOutput)
	v.SetDefault("tui", converter.DefaultTuiEnabled)
	v.SetDefault("verbose", converter.DefaultVerbose)
	v.SetDefault("lock", converter.DefaultLockEnabled)
	v.SetDefault("outputFormat", string(converter.DefaultOutputFormat))
	v.SetDefault("templateFile", "")
}

func isValidEnumValue[T ~string](value T, allowedValues []T) bool {
	return slices.Contains(allowedValues, value)
}

func validateAndDeriveOptions(opts *converter.Options, logger *slog.Logger, fs afero.Fs, p LoadParams) error {
	allowedOutputFormat := []converter.OutputFormat{
		converter.OutputFormatText, converter.OutputFormatJSON,
		converter.OutputFormatYAML, converter.OutputFormatTOML,
	}
	if !isValidEnumValue(opts.OutputFormat, allowedOutputFormat) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'outputFormat' (flag --output-format). Allowed: %v", converter.ErrConfigValidation, opts.OutputFormat, allowedOutputFormat)
		logger.Error(err.Error(), slog.String("key", "outputFormat"), slog.String("value", string(opts.OutputFormat)))
		return err
	}

	switch opts.Mode {
	case converter.ModeFolder:
		if err := resolveFolderPaths(opts, logger, p); err != nil {
			return err
		}
		abs, err := ensureDir(fs, opts.InputPath)
		if err != nil {
			err = fmt.Errorf("%w: cannot create or access input directory '%s': %w", converter.ErrConfigValidation, opts.InputPath, err)
			logger.Error(err.Error(), slog.String("key", "input"), slog.String("value", opts.InputPath))
			return err
		}
		opts.InputPath = abs
	case converter.ModeFiles:
		if len(opts.Files) == 0 {
			err := fmt.Errorf("%w: %w: pass at least one image file", converter.ErrConfigValidation, converter.ErrNoInput)
			logger.Error(err.Error(), slog.String("key", "files"))
			return err
		}
		for i, f := range opts.Files {
			abs, err := filepath.Abs(f)
			if err != nil {
				err = fmt.Errorf("%w: cannot resolve file path '%s': %w", converter.ErrConfigValidation, f, err)
				logger.Error(err.Error(), slog.String("key", "files"))
				return err
			}
			opts.Files[i] = abs
		}
		if opts.OutputPath == "" {
			err := fmt.Errorf("%w: output path is required (-o, --output)", converter.ErrConfigValidation)
			logger.Error(err.Error(), slog.String("key", "output"))
			return err
		}
	default:
		err := fmt.Errorf("%w: unknown mode '%s'", converter.ErrConfigValidation, opts.Mode)
		logger.Error(err.Error())
		return err
	}

	abs, err := ensureDir(fs, opts.OutputPath)
	if err != nil {
		err = fmt.Errorf("%w: cannot create or access output directory '%s': %w", converter.ErrConfigValidation, opts.OutputPath, err)
		logger.Error(err.Error(), slog.String("key", "output"), slog.String("value", opts.OutputPath))
		return err
	}
	opts.OutputPath = abs
	return nil
}

// resolveFolderPaths fills in missing folder-mode paths by prompting, with
// BAHAN and HASIL next to the executable as defaults.
func resolveFolderPaths(opts *converter.Options, logger *slog.Logger, p LoadParams) error {
	if opts.InputPath != "" && opts.OutputPath != "" {
		return nil
	}
	if p.Prompt == nil {
		key, flag := "input", "-i, --input"
		if opts.InputPath != "" {
			key, flag = "output", "-o, --output"
		}
		err := fmt.Errorf("%w: %s path is required (%s)", converter.ErrConfigValidation, key, flag)
		logger.Error(err.Error(), slog.String("key", key))
		return err
	}

	baseDir := p.ExecutableDir
	if baseDir == "" {
		baseDir = executableDir()
	}
	if opts.InputPath == "" {
		value, err := p.Prompt("Input folder (images to convert)", filepath.Join(baseDir, converter.DefaultInputDirName))
		if err != nil {
			return fmt.Errorf("%w: input path: %w", converter.ErrConfigValidation, err)
		}
		opts.InputPath = value
	}
	if opts.OutputPath == "" {
		value, err := p.Prompt("Output folder (PDF results)", filepath.Join(baseDir, converter.DefaultOutputDirName))
		if err != nil {
			return fmt.Errorf("%w: output path: %w", converter.ErrConfigValidation, err)
		}
		opts.OutputPath = value
	}
	return nil
}

// ensureDir resolves path to an absolute directory, creating it if missing.
func ensureDir(fs afero.Fs, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if err := fs.MkdirAll(abs, 0o755); err != nil {
		return "", err
	}
	isDir, err := afero.IsDir(fs, abs)
	if err != nil {
		return "", err
	}
	if !isDir {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		wd, _ := os.Getwd()
		return wd
	}
	return filepath.Dir(exe)
}
