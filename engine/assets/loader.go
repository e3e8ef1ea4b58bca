package assets

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

// Loader turns the absolute path of a file into a resource of type T. A
// loader knows nothing about handles or caching; it may call back into the
// registry since no registry lock is held while it runs.
type Loader[T any] interface {
	LoadAsset(absPath string) (T, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc[T any] func(absPath string) (T, error)

func (f LoaderFunc[T]) LoadAsset(absPath string) (T, error) {
	return f(absPath)
}

// Tagged lets a payload type choose its own type tag instead of the Go type
// name. Tags end up in persisted keys, so renaming a type without a tag
// orphans its index entries.
type Tagged interface {
	AssetTag() string
}

// erasedLoader is a Loader with its type parameter erased so loaders of every
// type can live in one table.
type erasedLoader func(absPath string) (interface{}, error)

// boundLoader remembers the Go type a tag was registered for, since T and *T
// share a tag.
type boundLoader struct {
	goType reflect.Type
	load   erasedLoader
}

// TypeTag returns the tag the registry uses for T.
func TypeTag[T any]() string {
	rt := reflect.TypeFor[T]()
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Interface {
		// *rt carries the method sets of both rt and *rt.
		if t, ok := reflect.New(rt).Interface().(Tagged); ok {
			return t.AssetTag()
		}
	}
	return rt.String()
}

// MakeKey builds the lookup key of a (type, relative path) pair.
func MakeKey(typeTag, relPath string) string {
	return typeTag + "@" + relPath
}

// SplitKey is the inverse of MakeKey.
func SplitKey(key string) (typeTag, relPath string, ok bool) {
	return strings.Cut(key, "@")
}

// RegisterLoader binds loader to T. It must be called before any Load or Get
// for T. Registering T twice replaces the previous loader; binding the tag of
// T to a second Go type is a configuration error and panics.
func RegisterLoader[T any](r *Registry, loader Loader[T]) {
	r.registerLoader(TypeTag[T](), reflect.TypeFor[T](), func(absPath string) (interface{}, error) {
		payload, err := loader.LoadAsset(absPath)
		if err != nil {
			return nil, err
		}
		return payload, nil
	})
}

func (r *Registry) registerLoader(tag string, goType reflect.Type, loader erasedLoader) {
	if tag == "" || strings.Contains(tag, "@") {
		err := fmt.Errorf("%w: '%s' bound to %s", core.ErrInvalidTag, tag, goType)
		core.LogError(err.Error())
		panic(err)
	}

	r.loaderMutex.Lock()
	defer r.loaderMutex.Unlock()

	if existing, exists := r.loaders[tag]; exists {
		if existing.goType != goType {
			err := fmt.Errorf("%w: '%s' is bound to %s, cannot bind %s", core.ErrTagConflict, tag, existing.goType, goType)
			core.LogError(err.Error())
			panic(err)
		}
		core.LogWarn("loader for asset type '%s' replaced", tag)
	}
	r.loaders[tag] = boundLoader{goType: goType, load: loader}
	core.LogDebug("loader registered for asset type '%s' (%s)", tag, goType)
}

// HasLoader reports whether a loader is bound to the given type tag.
func (r *Registry) HasLoader(tag string) bool {
	r.loaderMutex.RLock()
	defer r.loaderMutex.RUnlock()
	_, ok := r.loaders[tag]
	return ok
}

// loaderFor panics when no loader is registered: asking for an unknown type
// is a wiring mistake, not a runtime condition.
func (r *Registry) loaderFor(tag string) boundLoader {
	r.loaderMutex.RLock()
	loader, ok := r.loaders[tag]
	r.loaderMutex.RUnlock()
	if !ok {
		err := fmt.Errorf("%w: '%s'", core.ErrNoLoader, tag)
		core.LogError(err.Error())
		panic(err)
	}
	return loader
}

// loaderForType is loaderFor for a caller that names a Go type. It also
// panics when the tag was registered for another type, such as T against *T.
func (r *Registry) loaderForType(tag string, goType reflect.Type) erasedLoader {
	loader := r.loaderFor(tag)
	if loader.goType != goType {
		err := fmt.Errorf("%w: asset type '%s' is loaded as %s, requested %s", core.ErrTypeMismatch, tag, loader.goType, goType)
		core.LogError(err.Error())
		panic(err)
	}
	return loader.load
}

// isEmpty reports whether a payload returned by a loader carries nothing,
// including typed nil pointers boxed in an interface.
func isEmpty(payload interface{}) bool {
	if payload == nil {
		return true
	}
	v := reflect.ValueOf(payload)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
