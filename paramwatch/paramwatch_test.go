package paramwatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/foldops/backends/basepair"
	"github.com/jonwraymond/foldops/folding"
)

type recordingLoader struct {
	mu     sync.Mutex
	loads  []string
	reject string
}

func (l *recordingLoader) Name() string { return "recording" }

func (l *recordingLoader) LoadCustomParameters(_ context.Context, raw []byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if string(raw) == l.reject {
		return false
	}
	l.loads = append(l.loads, string(raw))
	return true
}

func (l *recordingLoader) last() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.loads) == 0 {
		return ""
	}
	return l.loads[len(l.loads)-1]
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func next(t *testing.T, ch <-chan Reload) Reload {
	t.Helper()
	select {
	case r, ok := <-ch:
		if !ok {
			t.Fatal("reload channel closed")
		}
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	return Reload{}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	writeFile(t, path, "a")

	l := &recordingLoader{reject: "bad"}
	if err := Load(context.Background(), l, path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if l.last() != "a" {
		t.Errorf("loaded %q", l.last())
	}

	writeFile(t, path, "bad")
	if err := Load(context.Background(), l, path); !errors.Is(err, ErrRejected) {
		t.Errorf("Load() error = %v, want ErrRejected", err)
	}
	if err := Load(context.Background(), l, filepath.Join(t.TempDir(), "none")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

func TestWatch_InitialLoadFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	writeFile(t, path, "bad")

	_, err := Watch(context.Background(), &recordingLoader{reject: "bad"}, Config{Path: path})
	if !errors.Is(err, ErrRejected) {
		t.Errorf("Watch() error = %v, want ErrRejected", err)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	writeFile(t, path, "one")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := &recordingLoader{reject: "bad"}
	reloads, err := Watch(ctx, l, Config{Path: path, Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if l.last() != "one" {
		t.Fatalf("initial load = %q", l.last())
	}

	writeFile(t, path, "two")
	if r := next(t, reloads); !r.Loaded || r.Err != nil {
		t.Errorf("reload = %+v", r)
	}
	if l.last() != "two" {
		t.Errorf("after write loaded %q", l.last())
	}

	writeFile(t, path, "bad")
	if r := next(t, reloads); r.Loaded || !errors.Is(r.Err, ErrRejected) {
		t.Errorf("rejected reload = %+v", r)
	}

	cancel()
	for range reloads {
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")
	writeFile(t, path, "one")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads, err := Watch(ctx, &recordingLoader{}, Config{Path: path, Debounce: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(dir, "other.yaml"), "x")
	select {
	case r := <-reloads:
		t.Errorf("unexpected reload %+v", r)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatch_EngineCacheReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	writeFile(t, path, "gc: -4\n")

	backend := basepair.NewDefault()
	engine, err := folding.NewEngine(backend)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads, err := Watch(ctx, engine, Config{Path: path, Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if backend.Params().GC != -4 {
		t.Fatalf("GC = %v after initial load", backend.Params().GC)
	}

	_, _ = engine.FoldSequence(ctx, folding.FoldRequest{Sequence: folding.MustSequence("GGGGAAACCCC")})
	if engine.CacheLen() != 1 {
		t.Fatalf("CacheLen = %d", engine.CacheLen())
	}

	writeFile(t, path, "gc: -6\n")
	if r := next(t, reloads); !r.Loaded {
		t.Fatalf("reload = %+v", r)
	}
	if backend.Params().GC != -6 || engine.CacheLen() != 0 {
		t.Errorf("GC = %v, CacheLen = %d after reload", backend.Params().GC, engine.CacheLen())
	}
}
