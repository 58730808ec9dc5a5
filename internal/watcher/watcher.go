package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Forgetter drops catalog knowledge of a stored file.
type Forgetter interface {
	Forget(ctx context.Context, storedName string) (bool, error)
}

// Watcher keeps a catalog in step with an upload directory by forgetting
// entries whose files are removed or renamed away outside the server.
type Watcher struct {
	dir       string
	forgetter Forgetter
	fsw       *fsnotify.Watcher
}

// New starts watching dir. Run must be called to process events.
func New(dir string, forgetter Forgetter) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{dir: dir, forgetter: forgetter, fsw: fsw}, nil
}

// Run processes events until ctx is cancelled or the watcher is closed. The
// underlying watcher is closed when Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	slog.Info("Watching upload directory", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				slog.Warn("Upload directory watcher overflowed, some removals may be missed", "dir", w.dir)
				continue
			}
			slog.Error("Upload directory watcher error", "dir", w.dir, "err", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	name := filepath.Base(event.Name)

	// Temporary files from in-flight writes are renamed away on success.
	if strings.HasPrefix(name, ".") {
		return
	}

	existed, err := w.forgetter.Forget(ctx, name)
	if err != nil {
		slog.Error("Failed to forget removed upload", "stored_name", name, "err", err)
		return
	}

	if existed {
		slog.Info("Forgot removed upload", "stored_name", name, "op", event.Op.String())
	}
}
