package assets

import (
	"fmt"
	"os"
	"reflect"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

// record is the per-handle metadata. The payload is empty until a loader
// succeeds and is shared with every caller of Get.
type record struct {
	typeTag string
	relPath string
	payload interface{}
}

// AssetInfo describes a registered asset without touching its payload.
type AssetInfo struct {
	Handle Handle
	Type   string
	Path   string
	Cached bool
}

// Registry hands out stable handles for asset files, loads payloads on first
// need and caches them for every holder of the same handle.
//
// One RWMutex guards the root, both maps and the payload slots. It is never
// held while a loader runs, so loaders may call back into the registry.
type Registry struct {
	config    *RegistryConfig
	root      string
	valid     bool
	indexPath string

	keys    map[string]Handle
	records map[Handle]*record
	mutex   sync.RWMutex

	loaders     map[string]boundLoader
	loaderMutex sync.RWMutex

	events  *core.EventBus
	metrics *core.AssetMetrics
}

type Option func(*Registry)

// WithEventBus publishes registry events on bus.
func WithEventBus(bus *core.EventBus) Option {
	return func(r *Registry) {
		r.events = bus
	}
}

// WithMetrics records registry activity in m.
func WithMetrics(m *core.AssetMetrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry creates an empty registry. When config names a root directory
// it is applied immediately; the index is not loaded until LoadIndex.
func NewRegistry(config *RegistryConfig, opts ...Option) (*Registry, error) {
	if config == nil {
		config = DefaultRegistryConfig()
	}
	r := &Registry{
		config:  config,
		keys:    make(map[string]Handle),
		records: make(map[Handle]*record),
		loaders: make(map[string]boundLoader),
		metrics: core.NewAssetMetrics(),
	}
	for _, o := range opts {
		o(r)
	}
	if r.events == nil {
		r.events = core.NewEventBus()
	}
	if config.RootDirectory != "" {
		if err := r.SetRootDirectory(config.RootDirectory); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// SetRootDirectory sets the base for all relative paths. The registry stays
// invalid until it is given a directory that exists.
func (r *Registry) SetRootDirectory(path string) error {
	root, err := canonicalRoot(path)

	r.mutex.Lock()
	defer r.mutex.Unlock()
	if err != nil {
		r.valid = false
		core.LogError(err.Error())
		return err
	}
	r.root = root
	r.valid = true
	core.LogInfo("asset registry rooted at '%s'", root)
	return nil
}

// RootPath returns the canonical root directory, empty while invalid.
func (r *Registry) RootPath() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if !r.valid {
		return ""
	}
	return r.root
}

// IsValid reports whether the registry has a usable root directory.
func (r *Registry) IsValid() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.valid
}

// Events returns the bus registry events are published on.
func (r *Registry) Events() *core.EventBus {
	return r.events
}

// Metrics returns a snapshot of the registry counters.
func (r *Registry) Metrics() core.MetricsSnapshot {
	return r.metrics.Snapshot()
}

// requireRoot panics when no valid root is set.
func (r *Registry) requireRoot() string {
	root := r.RootPath()
	if root == "" {
		err := fmt.Errorf("%w: set a root directory before using the registry", core.ErrInvalidRoot)
		core.LogError(err.Error())
		panic(err)
	}
	return root
}

// Load returns the handle of the asset of type T at path, registering and
// eagerly loading it the first time the (type, path) pair is seen. A failed
// load still yields a valid handle whose payload Get retries later.
func Load[T any](r *Registry, path string) Handle {
	return r.load(TypeTag[T](), reflect.TypeFor[T](), path)
}

// Get returns the payload of handle, loading it if it is not cached. The
// boolean is false for unknown handles and for loads that failed.
func Get[T any](r *Registry, h Handle) (T, bool) {
	var zero T
	tag := TypeTag[T]()
	// Fail fast on an unbound or mismatched T, even for unknown handles.
	r.loaderForType(tag, reflect.TypeFor[T]())

	payload, ok := r.get(tag, h)
	if !ok {
		return zero, false
	}
	v, ok := payload.(T)
	if !ok {
		err := fmt.Errorf("%w: handle %s holds %T, requested %s", core.ErrTypeMismatch, h, payload, tag)
		core.LogError(err.Error())
		panic(err)
	}
	return v, true
}

// LoadAndGet is Load followed by Get.
func LoadAndGet[T any](r *Registry, path string) (T, bool) {
	return Get[T](r, Load[T](r, path))
}

func (r *Registry) load(tag string, goType reflect.Type, path string) Handle {
	loader := r.loaderForType(tag, goType)
	root := r.requireRoot()
	absPath, relPath := resolvePath(root, path)
	key := MakeKey(tag, relPath)

	r.mutex.RLock()
	h, ok := r.keys[key]
	r.mutex.RUnlock()
	if ok {
		return h
	}

	payload, err := r.invoke(loader, tag, absPath)

	r.mutex.Lock()
	if existing, ok := r.keys[key]; ok {
		// Another caller registered the key while our loader ran. Its
		// handle wins; our payload only fills an empty slot.
		if rec := r.records[existing]; rec.payload == nil && payload != nil {
			rec.payload = payload
		}
		r.mutex.Unlock()
		return existing
	}
	h = NewHandle()
	for {
		if _, taken := r.records[h]; !taken {
			break
		}
		h = NewHandle()
	}
	r.keys[key] = h
	r.records[h] = &record{
		typeTag: tag,
		relPath: relPath,
		payload: payload,
	}
	r.mutex.Unlock()

	r.metrics.RecordRegistration()
	ctx := core.EventContext{Handle: h.Uint64(), TypeTag: tag, Path: relPath, Err: err}
	r.events.Fire(core.EventAssetRegistered, r, ctx)
	r.fireLoadResult(ctx)
	return h
}

// get looks up the payload of h, reloading it when the slot is empty. An
// empty tag skips the type check. Two callers racing on a cold handle may
// both run the loader; the last one to install its payload wins.
func (r *Registry) get(tag string, h Handle) (interface{}, bool) {
	r.mutex.RLock()
	rec, ok := r.records[h]
	if !ok {
		r.mutex.RUnlock()
		r.metrics.RecordMiss()
		core.LogWarn("unknown asset handle %s", h)
		return nil, false
	}
	payload, recTag, relPath := rec.payload, rec.typeTag, rec.relPath
	r.mutex.RUnlock()

	if tag != "" && tag != recTag {
		err := fmt.Errorf("%w: handle %s is a %s, requested %s", core.ErrTypeMismatch, h, recTag, tag)
		core.LogError(err.Error())
		panic(err)
	}
	if payload != nil {
		r.metrics.RecordHit()
		return payload, true
	}

	loader := r.loaderFor(recTag).load
	root := r.requireRoot()
	payload, err := r.invoke(loader, recTag, absolutePath(root, relPath))
	if payload != nil {
		r.mutex.Lock()
		rec.payload = payload
		r.mutex.Unlock()
	}
	r.fireLoadResult(core.EventContext{Handle: h.Uint64(), TypeTag: recTag, Path: relPath, Err: err})
	return payload, payload != nil
}

// invoke runs a loader with no registry lock held. Failures are logged and
// turned into an empty payload; loader panics propagate to the caller.
func (r *Registry) invoke(loader erasedLoader, tag, absPath string) (interface{}, error) {
	clock := core.NewClock()
	clock.Start()
	payload, err := loader(absPath)
	clock.Update()

	if err == nil && isEmpty(payload) {
		err = fmt.Errorf("%w: loader returned no payload", core.ErrLoadFailed)
	}
	r.metrics.RecordLoad(clock.Elapsed(), err)
	if err != nil {
		core.LogError("failed to load %s asset '%s': %s", tag, absPath, err)
		return nil, err
	}
	core.LogDebug("loaded %s asset '%s' in %s", tag, absPath, clock.Elapsed())
	return payload, nil
}

func (r *Registry) fireLoadResult(ctx core.EventContext) {
	if ctx.Err != nil {
		r.events.Fire(core.EventAssetLoadFailed, r, ctx)
		return
	}
	r.events.Fire(core.EventAssetLoaded, r, ctx)
}

// Warm loads the payload of h if it is not cached yet, whatever its type.
func (r *Registry) Warm(h Handle) bool {
	_, ok := r.get("", h)
	return ok
}

// GetPath returns the path of h relative to the root.
func (r *Registry) GetPath(h Handle) (string, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	rec, ok := r.records[h]
	if !ok {
		return "", false
	}
	return rec.relPath, true
}

// HasKey reports whether a handle was minted for the key built by MakeKey.
func (r *Registry) HasKey(key string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	_, ok := r.keys[key]
	return ok
}

// Lookup returns the handle registered for key, if any. Unlike Load it never
// mints a handle nor runs a loader.
func (r *Registry) Lookup(key string) (Handle, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	h, ok := r.keys[key]
	return h, ok
}

// Info describes the record behind h without loading it.
func (r *Registry) Info(h Handle) (AssetInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	rec, ok := r.records[h]
	if !ok {
		return AssetInfo{}, false
	}
	return AssetInfo{
		Handle: h,
		Type:   rec.typeTag,
		Path:   rec.relPath,
		Cached: rec.payload != nil,
	}, true
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.records)
}

// Handles returns every registered handle in ascending order.
func (r *Registry) Handles() []Handle {
	r.mutex.RLock()
	handles := maps.Keys(r.records)
	r.mutex.RUnlock()
	slices.Sort(handles)
	return handles
}

// handlesWithin returns the handles whose path is relPath or lies below it.
func (r *Registry) handlesWithin(relPath string) []Handle {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	var out []Handle
	for h, rec := range r.records {
		if pathWithin(rec.relPath, relPath) {
			out = append(out, h)
		}
	}
	slices.Sort(out)
	return out
}

// Validate checks that the file behind every record still exists. Broken
// references are logged and returned in ascending handle order; nothing is
// removed from the registry.
func (r *Registry) Validate() []Handle {
	root := r.RootPath()
	if root == "" {
		core.LogError("%s: cannot validate asset references", core.ErrInvalidRoot)
		return nil
	}

	var broken []Handle
	for _, h := range r.Handles() {
		info, ok := r.Info(h)
		if !ok {
			continue
		}
		absPath := absolutePath(root, info.Path)
		if _, err := os.Stat(absPath); err != nil {
			core.LogError("broken reference: %s asset %s points to '%s': %s", info.Type, h, info.Path, err)
			broken = append(broken, h)
			r.events.Fire(core.EventAssetMissing, r, core.EventContext{
				Handle:  h.Uint64(),
				TypeTag: info.Type,
				Path:    info.Path,
				Err:     err,
			})
		}
	}
	if len(broken) == 0 {
		core.LogInfo("validated %d asset references", r.Len())
	}
	return broken
}
