package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPurple = "\033[35m"
	colorWhite  = "\033[37m"
)

type LogType string

const (
	TypeCommand LogType = "CMD"
	TypeDB      LogType = "DB"
	TypeSystem  LogType = "SYS"
	TypeError   LogType = "ERR"
	TypeStreak  LogType = "STK"
)

// Options configures a CustomHandler. The zero value logs Info and above to
// stdout with colors.
type Options struct {
	Level   slog.Leveler
	Writer  io.Writer
	NoColor bool
}

type CustomHandler struct {
	opts      Options
	mu        *sync.Mutex
	startTime time.Time
	attrs     []slog.Attr
	groups    []string
}

func NewHandler(opts Options) *CustomHandler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	return &CustomHandler{
		opts:      opts,
		mu:        &sync.Mutex{},
		startTime: time.Now(),
	}
}

func (h *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &CustomHandler{
		opts:      h.opts,
		mu:        h.mu,
		startTime: h.startTime,
		attrs:     merged,
		groups:    h.groups,
	}
}

func (h *CustomHandler) WithGroup(name string) slog.Handler {
	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	return &CustomHandler{
		opts:      h.opts,
		mu:        h.mu,
		startTime: h.startTime,
		attrs:     h.attrs,
		groups:    append(groups, name),
	}
}

func (h *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	if shouldSkipLog(&r) {
		return nil
	}

	timestamp := r.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var levelColor, levelText string
	switch {
	case r.Level >= slog.LevelError:
		levelColor, levelText = colorRed, "ERROR"
	case r.Level >= slog.LevelWarn:
		levelColor, levelText = colorYellow, "WARN"
	case r.Level >= slog.LevelInfo:
		levelColor, levelText = colorGreen, "INFO"
	default:
		levelColor, levelText = colorPurple, "DEBUG"
	}

	logType := getLogType(&r)
	status := findAttr(&r, "status")
	userName := findAttr(&r, "user_name")
	cmdName := findAttr(&r, "name")

	message := r.Message
	if r.Level >= slog.LevelError {
		if loc := getErrorLocation(&r); loc != "" {
			message = fmt.Sprintf("%s (%s)", message, loc)
		}
		if details := findAttr(&r, "error"); details != "" {
			message = fmt.Sprintf("%s: %s", message, details)
		}
	}

	if cmdName != "" && userName != "" {
		message = fmt.Sprintf("%s [%s by %s]", message, cmdName, userName)
	}
	if status != "" {
		message = fmt.Sprintf("%s [Status: %s]", message, status)
	}

	var attrs strings.Builder
	prefix := strings.Join(h.groups, ".")
	if prefix != "" {
		prefix += "."
	}
	for _, attr := range h.attrs {
		if !isInternalAttr(attr.Key) {
			fmt.Fprintf(&attrs, " %s%s=%v", prefix, attr.Key, attr.Value)
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		if isInternalAttr(a.Key) || (a.Key == "error" && r.Level >= slog.LevelError) {
			return true
		}
		fmt.Fprintf(&attrs, " %s%s=%v", prefix, a.Key, a.Value)
		return true
	})

	line := fmt.Sprintf("%s[Streaks] [%s] [%s%s%s] [%s] %s%s%s\n",
		colorWhite,
		timestamp.Format("15:04:05"),
		levelColor,
		levelText,
		colorWhite,
		logType,
		message,
		attrs.String(),
		colorReset,
	)
	if h.opts.NoColor {
		line = stripColors(line)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.opts.Writer, line)
	return err
}

// Uptime reports how long the handler has been alive.
func (h *CustomHandler) Uptime() time.Duration {
	return time.Since(h.startTime)
}

func shouldSkipLog(r *slog.Record) bool {
	// disgo's gateway and rest chatter
	skippedMessages := []string{
		"locking buckets",
		"unlocking buckets",
		"gateway event",
		"cleaning up bucket",
		"cleaned up rate limit buckets",
		"binary message received",
		"received gateway message",
		"locking gateway rate limiter",
		"unlocking gateway rate limiter",
		"sending gateway command",
		"new request",
		"new response",
		"locking rest bucket",
		"unlocking rest bucket",
		"rate limit response headers",
		"sending heartbeat",
	}

	msg := strings.ToLower(r.Message)
	for _, skip := range skippedMessages {
		if strings.Contains(msg, skip) {
			return true
		}
	}
	return false
}

func getLogType(r *slog.Record) LogType {
	switch findAttr(r, "type") {
	case "cmd":
		return TypeCommand
	case "db":
		return TypeDB
	case "error":
		return TypeError
	case "streak":
		return TypeStreak
	default:
		return TypeSystem
	}
}

func isInternalAttr(key string) bool {
	switch key {
	case "type", "name", "user_name", "status", "error_location":
		return true
	}
	return false
}

func findAttr(r *slog.Record, key string) string {
	var value string
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			value = a.Value.String()
			return false
		}
		return true
	})
	return value
}

func getErrorLocation(r *slog.Record) string {
	if loc := findAttr(r, "error_location"); loc != "" {
		return loc
	}
	if r.PC == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{r.PC})
	f, _ := frames.Next()
	if f.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
}

func stripColors(s string) string {
	for _, c := range []string{colorReset, colorRed, colorGreen, colorYellow, colorPurple, colorWhite} {
		s = strings.ReplaceAll(s, c, "")
	}
	return s
}
