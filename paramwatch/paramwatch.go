// Package paramwatch keeps an engine's custom parameters in step with a file.
package paramwatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jonwraymond/foldops/observe"
)

// DefaultDebounce is the quiet period after the last file event before a reload.
const DefaultDebounce = 100 * time.Millisecond

// ErrRejected indicates the engine refused the parameter file.
var ErrRejected = errors.New("paramwatch: parameters rejected")

// Loader accepts raw custom parameters. *folding.Engine implements it.
type Loader interface {
	Name() string
	LoadCustomParameters(ctx context.Context, raw []byte) bool
}

// Config configures a watch.
type Config struct {
	// Path is the parameter file.
	Path string

	// Debounce collapses bursts of events; zero uses DefaultDebounce.
	Debounce time.Duration

	// Logger receives reload outcomes. Nil discards them.
	Logger observe.Logger
}

// Reload reports the outcome of one reload.
type Reload struct {
	Path   string
	Loaded bool
	Err    error
}

// Load reads path and hands it to loader once.
func Load(ctx context.Context, loader Loader, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("paramwatch: read %s: %w", path, err)
	}
	if !loader.LoadCustomParameters(ctx, raw) {
		return fmt.Errorf("%w: %s into %q", ErrRejected, path, loader.Name())
	}
	return nil
}

// Watch loads cfg.Path into loader, then reloads it whenever the file is
// written or replaced. It fails when the initial load
// fails.
//
// The returned channel receives each reload outcome; outcomes are dropped
// when the reader falls behind. It is closed once ctx is done.
func Watch(ctx context.Context, loader Loader, cfg Config) (<-chan Reload, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("paramwatch: %w", err)
	}

	if err := Load(ctx, loader, path); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("paramwatch: %w", err)
	}
	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("paramwatch: watch %s: %w", filepath.Dir(path), err)
	}

	logger := cfg.Logger
	logger.Info(ctx, "watching custom parameters",
		observe.Field{Key: "engine", Value: loader.Name()},
		observe.Field{Key: "path", Value: path},
	)

	reloads := make(chan Reload, 8)
	go func() {
		defer watcher.Close()
		defer close(reloads)

		var timer *time.Timer
		var fire <-chan time.Time
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(cfg.Debounce)
				} else {
					timer.Reset(cfg.Debounce)
				}
				fire = timer.C

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn(ctx, "parameter watch error", observe.Field{Key: "error", Value: err})

			case <-fire:
				fire = nil
				r := Reload{Path: path}
				if r.Err = Load(ctx, loader, path); r.Err == nil {
					r.Loaded = true
				}
				if r.Err != nil && !errors.Is(r.Err, ErrRejected) {
					// The engine logs rejections itself.
					logger.Warn(ctx, "parameter reload failed",
						observe.Field{Key: "engine", Value: loader.Name()},
						observe.Field{Key: "error", Value: r.Err},
					)
				}
				select {
				case reloads <- r:
				default:
				}
			}
		}
	}()

	return reloads, nil
}
