package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level is a log severity.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSilent // disables output
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "SILENT"}

// String returns the upper-case level name.
func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel parses a level name. Unknown names map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "SILENT", "OFF", "NONE":
		return LevelSilent
	default:
		return LevelInfo
	}
}

// Format selects the line encoding.
type Format int

const (
	FormatText Format = iota // human-readable
	FormatJSON               // one JSON object per line
)

// ParseFormat parses "text" or "json". Anything else is FormatText.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}

// Fields are structured key/value pairs attached to an entry.
type Fields map[string]any

// sink is shared between a logger and every logger derived from it, so
// children serialize writes and level changes with their parent.
type sink struct {
	mu    sync.Mutex
	out   io.Writer
	level atomic.Int32
	now   func() time.Time
}

// Logger writes leveled, structured entries.
type Logger struct {
	sink   *sink
	format Format
	fields Fields
	name   string
}

// LoggerOption configures a Logger.
type LoggerOption func(*Logger)

// WithOutput sets the destination writer.
func WithOutput(w io.Writer) LoggerOption {
	return func(l *Logger) { l.sink.out = w }
}

// WithLevel sets the minimum level written.
func WithLevel(level Level) LoggerOption {
	return func(l *Logger) { l.sink.level.Store(int32(level)) }
}

// WithFormat sets the line encoding.
func WithFormat(format Format) LoggerOption {
	return func(l *Logger) { l.format = format }
}

// WithFields sets fields attached to every entry.
func WithFields(fields Fields) LoggerOption {
	return func(l *Logger) { l.fields = maps.Clone(fields) }
}

// WithName sets the logger name.
func WithName(name string) LoggerOption {
	return func(l *Logger) { l.name = name }
}

// NewLogger returns an info-level text logger on stdout, adjusted by opts.
func NewLogger(opts ...LoggerOption) *Logger {
	l := &Logger{
		sink:   &sink{out: os.Stdout, now: time.Now},
		format: FormatText,
		fields: Fields{},
	}
	l.sink.level.Store(int32(LevelInfo))
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Logger) derive() *Logger {
	return &Logger{sink: l.sink, format: l.format, fields: l.fields, name: l.name}
}

// With returns a child logger carrying extra fields.
func (l *Logger) With(fields Fields) *Logger {
	c := l.derive()
	c.fields = make(Fields, len(l.fields)+len(fields))
	maps.Copy(c.fields, l.fields)
	maps.Copy(c.fields, fields)
	return c
}

// Named returns a child logger whose name is appended with a dot.
func (l *Logger) Named(name string) *Logger {
	c := l.derive()
	if l.name != "" {
		name = l.name + "." + name
	}
	c.name = name
	return c
}

// SetLevel changes the minimum level for this logger and all its children.
func (l *Logger) SetLevel(level Level) {
	l.sink.level.Store(int32(level))
}

// Enabled reports whether entries at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return level >= Level(l.sink.level.Load()) && level < LevelSilent
}

func (l *Logger) Debug(msg string, fields ...Fields) { l.log(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Fields)  { l.log(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Fields)  { l.log(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Fields) { l.log(LevelError, msg, fields) }

func (l *Logger) log(level Level, msg string, extra []Fields) {
	if !l.Enabled(level) {
		return
	}

	merged := maps.Clone(l.fields)
	if merged == nil {
		merged = Fields{}
	}
	for _, f := range extra {
		maps.Copy(merged, f)
	}

	var line []byte
	ts := l.sink.now()
	if l.format == FormatJSON {
		line = l.encodeJSON(ts, level, msg, merged)
	} else {
		line = l.encodeText(ts, level, msg, merged)
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	_, _ = l.sink.out.Write(line)
}

func (l *Logger) encodeJSON(ts time.Time, level Level, msg string, fields Fields) []byte {
	entry := make(map[string]any, len(fields)+4)
	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		entry[k] = v
	}
	entry["time"] = ts.Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg
	if l.name != "" {
		entry["logger"] = l.name
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Appendf(nil, "{\"level\":\"ERROR\",\"msg\":\"log encode failed\",\"error\":%q}\n", err.Error())
	}
	return append(data, '\n')
}

func (l *Logger) encodeText(ts time.Time, level Level, msg string, fields Fields) []byte {
	var b strings.Builder
	b.WriteString(ts.Format("15:04:05.000"))
	fmt.Fprintf(&b, " %s%-5s%s ", levelColor(level), level, colorReset)
	if l.name != "" {
		fmt.Fprintf(&b, "[%s] ", l.name)
	}
	b.WriteString(msg)
	if len(fields) > 0 {
		b.WriteByte(' ')
		b.WriteString(formatFields(fields))
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// formatFields renders fields as sorted key=value pairs.
func formatFields(fields Fields) string {
	keys := slices.Sorted(maps.Keys(fields))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, fields[k])
	}
	return strings.Join(parts, " ")
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

func levelColor(level Level) string {
	switch level {
	case LevelDebug:
		return colorGray
	case LevelInfo:
		return colorBlue
	case LevelWarn:
		return colorYellow
	case LevelError:
		return colorRed
	}
	return ""
}

// --- Global Logger ---

var globalLogger atomic.Pointer[Logger]

func init() {
	globalLogger.Store(NewLogger())
}

// SetLogger replaces the process-wide logger.
func SetLogger(l *Logger) {
	if l == nil {
		l = NullLogger()
	}
	globalLogger.Store(l)
}

// GetLogger returns the process-wide logger.
func GetLogger() *Logger {
	return globalLogger.Load()
}

func Debug(msg string, fields ...Fields) { GetLogger().Debug(msg, fields...) }
func Info(msg string, fields ...Fields)  { GetLogger().Info(msg, fields...) }
func Warn(msg string, fields ...Fields)  { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...Fields) { GetLogger().Error(msg, fields...) }

// NullLogger discards everything.
func NullLogger() *Logger {
	return NewLogger(WithOutput(io.Discard), WithLevel(LevelSilent))
}

// TestLogger is a debug-level text logger on w.
func TestLogger(w io.Writer) *Logger {
	return NewLogger(WithOutput(w), WithLevel(LevelDebug), WithFormat(FormatText))
}

// ProductionLogger is an info-level JSON logger on w.
func ProductionLogger(w io.Writer) *Logger {
	return NewLogger(WithOutput(w), WithLevel(LevelInfo), WithFormat(FormatJSON))
}
