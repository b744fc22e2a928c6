package logger

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
)

var Log *slog.Logger

// fileSink is the rotating writer behind a file: sink, if any.
var fileSink *lumberjack.Logger

// Options controls Init. Zero values mean info level, text format, stdout.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	// Sink is stdout, stderr or file:<path>.
	Sink string
	// rotation for file sinks
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func init() {
	Log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init initializes the global slog logger. ROUTEKIT_LOG_SINK and
// ROUTEKIT_LOG_LEVEL fill in whatever opts leaves empty.
func Init(opts Options) {
	if opts.Sink == "" {
		opts.Sink = os.Getenv("ROUTEKIT_LOG_SINK")
	}
	if opts.Level == "" {
		opts.Level = os.Getenv("ROUTEKIT_LOG_LEVEL")
	}
	Log = New(sinkWriter(opts), opts)
}

// New builds a logger writing to w without touching the global.
func New(w io.Writer, opts Options) *slog.Logger {
	ho := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if strings.EqualFold(opts.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, ho))
	}
	return slog.New(slog.NewTextHandler(w, ho))
}

func sinkWriter(opts Options) io.Writer {
	switch {
	case opts.Sink == "stderr":
		return os.Stderr
	case strings.HasPrefix(opts.Sink, "file:"):
		path := strings.TrimPrefix(opts.Sink, "file:")
		if path == "" {
			fmt.Fprintln(os.Stderr, "empty log file path, falling back to stdout")
			return os.Stdout
		}
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		fileSink = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSize,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		return fileSink
	default:
		return os.Stdout
	}
}

// Sync closes the file sink if one is attached. slog handlers write
// through, so nothing is buffered; lumberjack reopens on the next write.
func Sync() {
	if fileSink != nil {
		_ = fileSink.Close()
	}
}

// sensitive headers never written to logs
var redacted = map[string]struct{}{
	"Authorization": {},
	"Cookie":        {},
	"Set-Cookie":    {},
	"X-Api-Key":     {},
}

// SafeHeaders returns a flat copy of h with sensitive values masked.
func SafeHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if _, ok := redacted[http.CanonicalHeaderKey(k)]; ok {
			out[k] = "[redacted]"
			continue
		}
		out[k] = strings.Join(v, ",")
	}
	return out
}

// Debug logs with slog-style key/value pairs.
func Debug(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Debug(msg, args...)
}

// Info logs with slog-style key/value pairs.
func Info(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Info(msg, args...)
}

// Warn logs with slog-style key/value pairs.
func Warn(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Warn(msg, args...)
}

// Error logs with slog-style key/value pairs.
func Error(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Error(msg, args...)
}
