package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "cache reset", Field{Key: "entries", Value: 3})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	entry := lines[0]
	if entry["msg"] != "cache reset" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
	if entry["entries"] != float64(3) {
		t.Errorf("entries = %v", entry["entries"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, "warn")
	logger.Error(ctx, "error")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %s", len(lines), buf.String())
	}
	if lines[0]["msg"] != "warn" || lines[1]["msg"] != "error" {
		t.Errorf("unexpected messages: %v, %v", lines[0]["msg"], lines[1]["msg"])
	}
}

func TestLogger_WithOp(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf).WithOp(OpMeta{
		Engine:    "basepair",
		Operation: "cofoldSequence",
		SeqLen:    24,
		Strands:   2,
	})

	logger.Debug(context.Background(), "hit")

	entry := decodeLines(t, &buf)[0]
	want := map[string]any{
		"fold.engine":  "basepair",
		"fold.op":      "cofoldSequence",
		"fold.seq_len": float64(24),
		"fold.strands": float64(2),
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestLogger_WithOpDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter("info", &buf)
	_ = base.WithOp(OpMeta{Engine: "basepair", Operation: "foldSequence"})

	base.Info(context.Background(), "plain")

	entry := decodeLines(t, &buf)[0]
	if _, ok := entry["fold.engine"]; ok {
		t.Error("derived logger attributes leaked into base logger")
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "parameters loaded",
		Field{Key: "params", Value: "pairs:\n  GC: 3"},
		Field{Key: "raw", Value: []byte("secret weights")},
		Field{Key: "bytes", Value: 42},
	)

	entry := decodeLines(t, &buf)[0]
	for _, k := range []string{"params", "raw"} {
		if entry[k] != "[REDACTED]" {
			t.Errorf("%s = %v, want [REDACTED]", k, entry[k])
		}
	}
	if entry["bytes"] != float64(42) {
		t.Errorf("bytes = %v", entry["bytes"])
	}
}

func TestLogger_TruncatesLongStrings(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)
	long := strings.Repeat("ACGU", 100)

	logger.Info(context.Background(), "fold", Field{Key: "sequence", Value: long})

	got, _ := decodeLines(t, &buf)[0]["sequence"].(string)
	if len(got) != MaxFieldLength+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("sequence not truncated: len=%d", len(got))
	}
}

func TestLogger_ErrorValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Error(context.Background(), "failed", Field{Key: "error", Value: errors.New("boom")})

	if got := decodeLines(t, &buf)[0]["error"]; got != "boom" {
		t.Errorf("error = %v, want boom", got)
	}
}

func TestLogger_ConcurrentDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter("info", &buf)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := base.WithOp(OpMeta{Engine: "basepair", Operation: "foldSequence"})
			for j := 0; j < 50; j++ {
				l.Info(context.Background(), "line")
			}
		}()
	}
	wg.Wait()

	if got := len(decodeLines(t, &buf)); got != 400 {
		t.Errorf("got %d lines, want 400", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug": LevelDebug,
		"info":  LevelInfo,
		"warn":  LevelWarn,
		"error": LevelError,
		"":      LevelInfo,
		"loud":  LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	l.Info(context.Background(), "ignored")
	if l.WithOp(OpMeta{}) == nil {
		t.Fatal("WithOp returned nil")
	}
}
