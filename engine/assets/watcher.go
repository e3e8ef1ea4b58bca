package assets

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

// ReferenceWatcher reports registered asset files that are deleted or renamed
// while the program runs. It only reports: payloads are never reloaded or
// dropped, so the next Get of a broken handle fails and logs as usual.
type ReferenceWatcher struct {
	registry *Registry
	root     string

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	mutex    sync.Mutex
	isClosed bool
}

// NewReferenceWatcher starts watching the registry root and all of its
// sub-directories.
func NewReferenceWatcher(r *Registry) (*ReferenceWatcher, error) {
	root := r.requireRoot()
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	rw := &ReferenceWatcher{
		registry: r,
		root:     root,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}
	if err := rw.watchRecursive(root); err != nil {
		fsWatch.Close()
		return nil, err
	}

	rw.wg.Add(1)
	go rw.start()
	core.LogInfo("watching asset references under '%s'", root)
	return rw, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (rw *ReferenceWatcher) Close() error {
	rw.mutex.Lock()
	if rw.isClosed {
		rw.mutex.Unlock()
		return core.ErrWatcherClosed
	}
	rw.isClosed = true
	rw.mutex.Unlock()

	close(rw.done)
	rw.wg.Wait()
	return rw.fsnotify.Close()
}

func (rw *ReferenceWatcher) start() {
	defer rw.wg.Done()
	for {
		select {

		case e, ok := <-rw.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&fsnotify.Create != 0 {
				if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
					if err := rw.watchRecursive(e.Name); err != nil {
						core.LogWarn("cannot watch '%s': %s", e.Name, err)
					}
				}
			}
			// A removed path may have been a file or a whole directory, we
			// cannot stat it anymore so check both.
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				rw.handleRemoved(e.Name)
			}

		case err, ok := <-rw.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("reference watcher: %s", err)

		case <-rw.done:
			return
		}
	}
}

// watchRecursive adds path and every directory below it to the watch list.
func (rw *ReferenceWatcher) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return rw.fsnotify.Add(walkPath)
		}
		return nil
	})
}

func (rw *ReferenceWatcher) handleRemoved(name string) {
	rel, err := filepath.Rel(rw.root, name)
	if err != nil {
		return
	}
	relPath := filepath.ToSlash(rel)
	for _, h := range rw.registry.handlesWithin(relPath) {
		info, ok := rw.registry.Info(h)
		if !ok {
			continue
		}
		core.LogError("broken reference: %s asset %s points to '%s' which was removed", info.Type, h, info.Path)
		rw.registry.events.Fire(core.EventAssetMissing, rw, core.EventContext{
			Handle:  h.Uint64(),
			TypeTag: info.Type,
			Path:    info.Path,
		})
	}
}
