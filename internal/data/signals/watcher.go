package signals

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

// Watcher tails a signal file written by an editor extension. It follows
// appends, restarts from the top when the file is truncated or recreated,
// and tolerates the file not existing yet.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher

	file    util.FileInfo
	offset  int64
	pending []byte
	lineNo  int
}

// NewWatcher watches path. Unless fromStart is set, content already in the
// file is skipped.
func NewWatcher(path string, fromStart bool) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid signal file %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// the directory is watched so that creation and rotation are seen
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{path: abs, watcher: watcher}
	if info, err := util.GetFileInfo(abs); err == nil {
		w.file = info
		if !fromStart {
			w.offset = info.Size
		}
	}
	return w, nil
}

// Run emits signals appended to the file until ctx is cancelled
func (w *Watcher) Run(ctx context.Context, out chan<- Signal) error {
	defer w.watcher.Close()

	util.LogInfo("Watching signal file", util.F("path", w.path))
	if err := w.readNew(ctx, out); err != nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.reset()
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if err := w.readNew(ctx, out); err != nil {
					return nil
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			util.LogError("Signal file monitoring error", util.F("error", err.Error()))
		}
	}
}

func (w *Watcher) reset() {
	w.offset = 0
	w.pending = nil
}

// readNew emits every complete line appended since the last read. It only
// returns an error when ctx is done.
func (w *Watcher) readNew(ctx context.Context, out chan<- Signal) error {
	f, err := os.Open(w.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			util.LogWarnf("Failed to open signal file: %v", err)
		}
		return nil
	}
	defer f.Close()

	if stat, err := f.Stat(); err == nil {
		info := util.FileInfoOf(stat)
		switch {
		case w.file.Replaced(info):
			util.LogDebugf("Signal file replaced, reading from start")
			w.reset()
		case info.Size < w.offset:
			util.LogDebugf("Signal file truncated, reading from start")
			w.reset()
		}
		w.file = info
	}

	if _, err := f.Seek(w.offset, io.SeekStart); err != nil {
		util.LogWarnf("Failed to seek signal file: %v", err)
		return nil
	}
	data, err := io.ReadAll(f)
	if err != nil {
		util.LogWarnf("Failed to read signal file: %v", err)
		return nil
	}
	w.offset += int64(len(data))

	data = append(w.pending, data...)
	cut := bytes.LastIndexByte(data, '\n')
	if cut < 0 {
		w.pending = data
		return nil
	}
	w.pending = append([]byte(nil), data[cut+1:]...)

	for _, line := range bytes.Split(data[:cut], []byte{'\n'}) {
		w.lineNo++
		if err := emit(ctx, line, w.lineNo, out); err != nil {
			return err
		}
	}
	return nil
}
