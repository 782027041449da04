package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"shotbridge/internal/config"
)

// LogFileName is the file written under the configured log directory.
const LogFileName = "shotbridge.log"

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string   // "console" (default) or "json"
	OutputPaths []string // "stdout", "stderr" or file paths; defaults to stderr
	// FilePath, when set, receives a JSON copy of every record at debug level
	// regardless of Level.
	FilePath    string
	Development bool
	// NoColor disables level colours even when writing to a terminal.
	NoColor     bool
}

// New builds the redacting logger described by opts.
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	source := opts.Development || level.Level() <= slog.LevelDebug

	paths := opts.OutputPaths
	if len(paths) == 0 {
		paths = []string{"stderr"}
	}
	out, tty, err := openSinks(paths)
	if err != nil {
		return nil, err
	}

	var primary slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console", "text":
		primary = newConsoleHandler(out, level, tty && !opts.NoColor, source)
	case "json":
		primary = newJSONHandler(out, level, source)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	var file slog.Handler
	if path := strings.TrimSpace(opts.FilePath); path != "" {
		w, _, err := openSinks([]string{path})
		if err != nil {
			return nil, err
		}
		file = newJSONHandler(w, slog.LevelDebug, false)
	}
	return slog.New(newRedactHandler(TeeHandler(primary, file))), nil
}

// NewFromConfig builds the CLI logger: console output at the configured level
// plus the debug-level JSON file under cfg.Paths.LogDir.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{})
	}
	opts := Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		opts.FilePath = filepath.Join(dir, LogFileName)
	}
	return New(opts)
}

func parseLevel(level string) slog.Level {
	var parsed slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "warning":
		return slog.LevelWarn
	case "":
		return slog.LevelInfo
	}
	if err := parsed.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return parsed
}

// openSinks resolves output names to one writer. tty reports whether every
// sink is an interactive terminal.
func openSinks(paths []string) (w io.Writer, tty bool, err error) {
	seen := make(map[string]bool, len(paths))
	var writers []io.Writer
	tty = true
	for _, raw := range paths {
		name := strings.TrimSpace(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		var f *os.File
		switch name {
		case "stdout":
			f = os.Stdout
		case "stderr":
			f = os.Stderr
		default:
			if dir := filepath.Dir(name); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, false, fmt.Errorf("ensure log directory: %w", err)
				}
			}
			f, err = os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return nil, false, fmt.Errorf("open log file %s: %w", name, err)
			}
		}
		tty = tty && isatty.IsTerminal(f.Fd())
		writers = append(writers, f)
	}
	switch len(writers) {
	case 0:
		return os.Stderr, isatty.IsTerminal(os.Stderr.Fd()), nil
	case 1:
		return writers[0], tty, nil
	default:
		return io.MultiWriter(writers...), tty, nil
	}
}
