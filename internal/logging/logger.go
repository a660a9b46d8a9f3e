package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	defaultHistorySize = 500
	// Identifier tags every journal entry and is what journalctl -t matches.
	Identifier = "gpioled"
)

var (
	moduleLoggers   = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	globalConfig    Config
	globalLevelVar  = &slog.LevelVar{}
	isInitialized   bool
	mutex           sync.RWMutex
	history         *RingBuffer
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
	// History is how many recent entries are kept for /api/logs. Zero uses the default.
	History int `toml:"history"`
}

// Initialize sets up the logging system. Calling it again applies new
// levels to every logger; the output format is fixed by the first call.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	first := !isInitialized
	globalConfig = config
	isInitialized = true

	size := config.History
	if size <= 0 {
		size = defaultHistorySize
	}
	if history == nil || history.Capacity() != size {
		history = NewRingBuffer(size)
	}

	globalLevelVar.Set(levelOrDefault(config.Level))

	for module, levelVar := range moduleLevelVars {
		levelVar.Set(moduleLevel(module))
		// Loggers handed out before the first Initialize use text format.
		// Rebuild them in place; later calls only change levels.
		if first {
			*moduleLoggers[module] = *slog.New(createHandler(config.Format, levelVar)).With("module", module)
		}
	}

	slog.SetDefault(slog.New(createHandler(config.Format, globalLevelVar)))
}

// History returns up to limit of the newest retained entries accepted by
// match, oldest first. See RingBuffer.Entries.
func History(match func(LogEntry) bool, limit int) []LogEntry {
	mutex.RLock()
	defer mutex.RUnlock()
	if history == nil {
		return nil
	}
	return history.Entries(match, limit)
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	// Double-check in case another goroutine created it
	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	// Per-module LevelVar so a reload can change it in place
	levelVar := &slog.LevelVar{}
	format := "text"
	if isInitialized {
		levelVar.Set(moduleLevel(module))
		format = globalConfig.Format
	} else {
		levelVar.Set(slog.LevelInfo)
	}

	logger := slog.New(createHandler(format, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevelVars[module] = levelVar
	return logger
}

// moduleLevel resolves the level for module from the global config.
// Callers hold mutex.
func moduleLevel(module string) slog.Level {
	level := levelOrDefault(globalConfig.Level)
	if levelStr, exists := globalConfig.Modules[module]; exists {
		if parsed := parseLevel(levelStr); parsed != nil {
			level = *parsed
		}
	}
	return level
}

func levelOrDefault(s string) slog.Level {
	if parsed := parseLevel(s); parsed != nil {
		return *parsed
	}
	return slog.LevelInfo
}

// createHandler creates a slog handler with the specified format and level.
// Logs to stdout, journal (when available), and the history buffer.
func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdoutHandler slog.Handler
	if format == "json" {
		stdoutHandler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdoutHandler = slog.NewTextHandler(os.Stdout, opts)
	}

	var handlers []slog.Handler
	if isStdoutAvailable() {
		handlers = append(handlers, stdoutHandler)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	// The buffer handler looks up the history buffer on every record
	handlers = append(handlers, NewBufferHandler(level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// isStdoutAvailable checks if stdout is connected to a terminal, pipe, socket, or file.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	// Not available when pointed at /dev/null, which is ModeDevice
	return (mode&os.ModeCharDevice) != 0 || (mode&os.ModeNamedPipe) != 0 || (mode&os.ModeSocket) != 0 || mode.IsRegular()
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}

// ValidLevel reports whether s names a log level.
func ValidLevel(s string) bool {
	return parseLevel(s) != nil
}
