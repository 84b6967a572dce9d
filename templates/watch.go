package templates

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Watch resets the compiled templates whenever a file under the override
// directory changes. It blocks until ctx is done. onChange, if set, is
// called with the changed path after each reset.
func (e *Engine) Watch(ctx context.Context, onChange func(path string)) error {
	if e.overrides == "" {
		<-ctx.Done()
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "templates: watcher")
	}
	defer w.Close()

	// fsnotify is not recursive; add every directory up front.
	err = filepath.WalkDir(e.overrides, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "templates: watch %q", e.overrides)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.Add(ev.Name)
				}
			}
			e.Reset()
			if onChange != nil {
				onChange(ev.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(err, "templates: watcher")
		}
	}
}
