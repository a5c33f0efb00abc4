package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := NewHandler(Options{Level: level, Writer: &buf, NoColor: true})
	return slog.New(h), &buf
}

func TestHandler_Format(t *testing.T) {
	tests := []struct {
		name   string
		log    func(l *slog.Logger)
		want   []string
		reject []string
	}{
		{
			name: "command with user",
			log: func(l *slog.Logger) {
				l.Info("Command completed", "type", "cmd", "name", "gamble", "user_name", "alice", "status", "success")
			},
			want:   []string{"[INFO]", "[CMD]", "Command completed [gamble by alice] [Status: success]"},
			reject: []string{"type=", "user_name="},
		},
		{
			name: "error details",
			log: func(l *slog.Logger) {
				l.Error("Query failed", "type", "db", "error", errors.New("boom"))
			},
			want: []string{"[ERROR]", "[DB]", "Query failed", ": boom"},
		},
		{
			name: "plain attrs",
			log: func(l *slog.Logger) {
				l.With("guild_id", "42").Warn("Slow transaction", "attempt", 2)
			},
			want: []string{"[WARN]", "[SYS]", "guild_id=42", "attempt=2"},
		},
		{
			name: "ledger type",
			log: func(l *slog.Logger) {
				l.Info("Streak counted", "type", "streak")
			},
			want: []string{"[STK]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newTestLogger(slog.LevelDebug)
			tt.log(l)
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q missing %q", out, w)
				}
			}
			for _, r := range tt.reject {
				if strings.Contains(out, r) {
					t.Errorf("output %q should not contain %q", out, r)
				}
			}
			if strings.Contains(out, "\033[") {
				t.Errorf("NoColor output still has escape codes: %q", out)
			}
		})
	}
}

func TestHandler_LevelAndSkips(t *testing.T) {
	l, buf := newTestLogger(slog.LevelInfo)
	l.Debug("hidden")
	l.Info("sending heartbeat")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing logged, got %q", buf.String())
	}
	l.Info("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("expected info line, got %q", buf.String())
	}
}
