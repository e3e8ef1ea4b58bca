package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio/v2/maybe"
	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

const indexVersion = 1

// indexFile is the on-disk layout. Both collections are written sorted so
// that the file diffs cleanly.
type indexFile struct {
	Version int          `toml:"version"`
	Keys    []indexKey   `toml:"keys"`
	Assets  []indexAsset `toml:"assets"`
}

type indexKey struct {
	Key    string `toml:"key"`
	Handle Handle `toml:"handle"`
}

type indexAsset struct {
	Handle Handle `toml:"handle"`
	Type   string `toml:"type"`
	Path   string `toml:"path"`
}

// IndexPath returns the file SaveIndex writes to.
func (r *Registry) IndexPath() string {
	r.mutex.RLock()
	p := r.indexPath
	r.mutex.RUnlock()
	if p != "" {
		return p
	}
	return r.indexFilePath(r.config.IndexFile)
}

// indexFilePath resolves an index location: empty means the default file in
// the root, a relative path is taken from the root and a directory means the
// default file inside it.
func (r *Registry) indexFilePath(path string) string {
	if path == "" {
		path = DefaultIndexFilename
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.requireRoot(), path)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultIndexFilename)
	}
	return path
}

// LoadIndex reads the persisted key and record maps. A missing file is not an
// error: the registry simply starts empty. Payloads are never loaded here.
// Entries already in memory win over conflicting entries from the file.
func (r *Registry) LoadIndex(path string) error {
	p := r.indexFilePath(path)

	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		core.LogInfo("no asset index at '%s', starting empty", p)
		r.mutex.Lock()
		r.indexPath = p
		r.mutex.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read asset index: %w", err)
	}

	var f indexFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: %s: %s", core.ErrMalformedIndex, p, err)
	}
	keys, records, err := decodeIndex(&f)
	if err != nil {
		return fmt.Errorf("%w: %s: %s", core.ErrMalformedIndex, p, err)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	added := 0
	for key, h := range keys {
		if existing, ok := r.keys[key]; ok {
			if existing != h {
				core.LogWarn("asset index entry '%s' -> %s ignored, already registered as %s", key, h, existing)
			}
			continue
		}
		if _, taken := r.records[h]; taken {
			core.LogWarn("asset index entry '%s' ignored, handle %s already in use", key, h)
			continue
		}
		r.keys[key] = h
		r.records[h] = records[h]
		added++
	}
	r.indexPath = p
	core.LogInfo("loaded %d asset index entries from '%s'", added, p)
	return nil
}

// decodeIndex checks the file for internal consistency and builds the maps.
func decodeIndex(f *indexFile) (map[string]Handle, map[Handle]*record, error) {
	if f.Version > indexVersion {
		return nil, nil, fmt.Errorf("unsupported index version %d", f.Version)
	}
	records := make(map[Handle]*record, len(f.Assets))
	for _, a := range f.Assets {
		if !a.Handle.IsValid() {
			return nil, nil, fmt.Errorf("asset '%s' has an invalid handle", a.Path)
		}
		if a.Type == "" || a.Path == "" {
			return nil, nil, fmt.Errorf("asset %s is missing its type or path", a.Handle)
		}
		if _, dup := records[a.Handle]; dup {
			return nil, nil, fmt.Errorf("duplicate asset handle %s", a.Handle)
		}
		records[a.Handle] = &record{typeTag: a.Type, relPath: a.Path}
	}

	keys := make(map[string]Handle, len(f.Keys))
	used := make(map[Handle]struct{}, len(f.Keys))
	for _, k := range f.Keys {
		rec, ok := records[k.Handle]
		if !ok {
			return nil, nil, fmt.Errorf("key '%s' refers to unknown handle %s", k.Key, k.Handle)
		}
		if want := MakeKey(rec.typeTag, rec.relPath); want != k.Key {
			return nil, nil, fmt.Errorf("key '%s' does not match asset %s (%s)", k.Key, k.Handle, want)
		}
		if _, dup := keys[k.Key]; dup {
			return nil, nil, fmt.Errorf("duplicate key '%s'", k.Key)
		}
		if _, dup := used[k.Handle]; dup {
			return nil, nil, fmt.Errorf("handle %s has more than one key", k.Handle)
		}
		keys[k.Key] = k.Handle
		used[k.Handle] = struct{}{}
	}
	if len(keys) != len(records) {
		return nil, nil, fmt.Errorf("%d keys for %d assets", len(keys), len(records))
	}
	return keys, records, nil
}

// SaveIndex writes the key and record maps, never payloads, to the index
// file. The file is replaced atomically.
func (r *Registry) SaveIndex() error {
	p := r.IndexPath()

	r.mutex.RLock()
	f := indexFile{
		Version: indexVersion,
		Keys:    make([]indexKey, 0, len(r.keys)),
		Assets:  make([]indexAsset, 0, len(r.records)),
	}
	for key, h := range r.keys {
		f.Keys = append(f.Keys, indexKey{Key: key, Handle: h})
	}
	for h, rec := range r.records {
		f.Assets = append(f.Assets, indexAsset{Handle: h, Type: rec.typeTag, Path: rec.relPath})
	}
	r.mutex.RUnlock()

	sort.Slice(f.Keys, func(i, j int) bool { return f.Keys[i].Key < f.Keys[j].Key })
	sort.Slice(f.Assets, func(i, j int) bool { return f.Assets[i].Handle < f.Assets[j].Handle })

	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode asset index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("write asset index: %w", err)
	}
	if err := maybe.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write asset index: %w", err)
	}

	r.mutex.Lock()
	r.indexPath = p
	r.mutex.Unlock()
	core.LogInfo("saved %d asset index entries to '%s'", len(f.Assets), p)
	return nil
}
