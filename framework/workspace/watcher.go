package workspace

import (
	"context"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to C and C++ files below a root directory.
type Watcher struct {
	watcher *fsnotify.Watcher
	filter  func(path string) bool
	logger  *log.Logger
}

// NewWatcher watches root recursively. filter selects the files whose
// changes are reported; hidden directories are never watched.
func NewWatcher(root string, filter func(path string) bool, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{watcher: fw, filter: filter, logger: logger}
	if err := w.addRecursive(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}

// Run delivers changed paths to onChange until ctx is done.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						w.logger.Printf("[watch] failed to watch new directory %s: %v", event.Name, err)
					}
					continue
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if w.filter != nil && !w.filter(event.Name) {
				continue
			}
			w.logger.Printf("[watch] %s %s", event.Op, event.Name)
			onChange(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Printf("[watch] error: %v", err)
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
