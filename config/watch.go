// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/accel"
)

// Watch calls fn with freshly loaded options each time the file at path is
// written or replaced, until ctx is done. A reload that fails calls fn with
// the error and the zero Options.
//
// The parent directory is watched rather than the file, so editors that
// save by renaming a temporary file are seen too.
func Watch(ctx context.Context, path string, fn func(Options, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	defer w.Close()

	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			accel.Logger().Debug("config: reloading", "path", path, "op", ev.Op.String())
			fn(Load(path))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			accel.Logger().Warn("config: watcher error", "path", path, "err", err)
		}
	}
}
