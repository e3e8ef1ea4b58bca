package assets

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

func TestTypeTag(t *testing.T) {
	assert.Equal(t, "assets.texture", TypeTag[*texture]())
	assert.Equal(t, "assets.texture", TypeTag[texture]())
	assert.Equal(t, "custom-tag", TypeTag[tagged]())
	assert.Equal(t, "custom-tag", TypeTag[*tagged]())
	assert.Equal(t, "[]uint8", TypeTag[[]byte]())
	assert.Equal(t, "error", TypeTag[error]())
}

func TestMakeAndSplitKey(t *testing.T) {
	key := MakeKey("assets.texture", "textures/brick@2x.png")
	assert.Equal(t, "assets.texture@textures/brick@2x.png", key)

	tag, rel, ok := SplitKey(key)
	require.True(t, ok)
	assert.Equal(t, "assets.texture", tag)
	assert.Equal(t, "textures/brick@2x.png", rel)
}

func TestNewRegistryWithInvalidRoot(t *testing.T) {
	_, err := NewRegistry(&RegistryConfig{RootDirectory: filepath.Join(t.TempDir(), "missing")})
	assert.ErrorIs(t, err, core.ErrInvalidRoot)

	file := writeAsset(t, t.TempDir(), "file.txt", "x")
	_, err = NewRegistry(&RegistryConfig{RootDirectory: file})
	assert.ErrorIs(t, err, core.ErrInvalidRoot)
}

func TestRegistryWithoutRootPanics(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)
	RegisterLoader[*texture](r, &countingLoader{})

	assert.False(t, r.IsValid())
	assert.Equal(t, "", r.RootPath())
	assert.Panics(t, func() { Load[*texture](r, "a.png") })
	assert.Nil(t, r.Validate())
}

func TestSetRootDirectoryInvalidatesOnFailure(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	require.True(t, r.IsValid())

	err := r.SetRootDirectory(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, core.ErrInvalidRoot)
	assert.False(t, r.IsValid())
}

func TestLoadWithoutLoaderPanics(t *testing.T) {
	r, _, root := newTestRegistry(t)
	writeAsset(t, root, "meshes/cube.obj", "v 0 0 0")

	assert.PanicsWithError(t, "no loader registered for asset type: 'assets.mesh'", func() {
		Load[*mesh](r, "meshes/cube.obj")
	})
	assert.Panics(t, func() { Get[*mesh](r, HandleFromString("x")) })
}

func TestLoadRegistersAndLoadsEagerly(t *testing.T) {
	r, loader, root := newTestRegistry(t)
	writeAsset(t, root, "textures/brick.png", "brick")

	h := Load[*texture](r, "textures/brick.png")
	require.True(t, h.IsValid())
	assert.Equal(t, int32(1), loader.calls.Load())

	path, ok := r.GetPath(h)
	require.True(t, ok)
	assert.Equal(t, "textures/brick.png", path)
	assert.True(t, r.HasKey(MakeKey("assets.texture", "textures/brick.png")))

	info, ok := r.Info(h)
	require.True(t, ok)
	assert.True(t, info.Cached)
	assert.Equal(t, "assets.texture", info.Type)
}

func TestPathResolutionIdempotence(t *testing.T) {
	r, loader, root := newTestRegistry(t)
	abs := writeAsset(t, root, "textures/brick.png", "brick")

	h1 := Load[*texture](r, "textures/brick.png")
	h2 := Load[*texture](r, abs)
	h3 := Load[*texture](r, "textures/../textures/./brick.png")
	h4 := Load[*texture](r, filepath.Join(r.RootPath(), "textures", "brick.png"))

	assert.Equal(t, h1, h2)
	assert.Equal(t, h1, h3)
	assert.Equal(t, h1, h4)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, int32(1), loader.calls.Load())
}

func TestCacheCorrectness(t *testing.T) {
	r, loader, root := newTestRegistry(t)
	writeAsset(t, root, "textures/brick.png", "brick")

	h := Load[*texture](r, "textures/brick.png")
	first, ok := Get[*texture](r, h)
	require.True(t, ok)
	second, ok := Get[*texture](r, h)
	require.True(t, ok)

	assert.Same(t, first, second)
	assert.Equal(t, "brick", first.data)
	assert.Equal(t, int32(1), loader.calls.Load())

	m := r.Metrics()
	assert.Equal(t, uint64(2), m.Hits)
	assert.Equal(t, uint64(1), m.Loads)
	assert.Equal(t, uint64(1), m.Registrations)
}

func TestGetUnknownHandle(t *testing.T) {
	r, loader, _ := newTestRegistry(t)

	var payload *texture
	var ok bool
	assert.NotPanics(t, func() {
		payload, ok = Get[*texture](r, HandleFromString("never registered"))
	})
	assert.False(t, ok)
	assert.Nil(t, payload)
	assert.Equal(t, int32(0), loader.calls.Load())
	assert.Equal(t, uint64(1), r.Metrics().Misses)

	_, ok = r.GetPath(HandleFromString("never registered"))
	assert.False(t, ok)
	assert.False(t, r.Warm(HandleFromString("never registered")))
}

func TestTypeSeparation(t *testing.T) {
	r, texCalls, root := newTestRegistry(t)
	var meshCalls atomic.Int32
	RegisterLoader[*mesh](r, meshLoader(&meshCalls))
	writeAsset(t, root, "x", "shared")

	ht := Load[*texture](r, "x")
	hm := Load[*mesh](r, "x")
	assert.NotEqual(t, ht, hm)
	assert.Equal(t, 2, r.Len())

	tex, ok := Get[*texture](r, ht)
	require.True(t, ok)
	m, ok := Get[*mesh](r, hm)
	require.True(t, ok)
	assert.Equal(t, "shared", tex.data)
	assert.Equal(t, tex.path, m.path)
	assert.Equal(t, int32(1), texCalls.calls.Load())
	assert.Equal(t, int32(1), meshCalls.Load())
}

func TestGetWithWrongTypePanics(t *testing.T) {
	r, _, root := newTestRegistry(t)
	var calls atomic.Int32
	RegisterLoader[*mesh](r, meshLoader(&calls))
	writeAsset(t, root, "x", "shared")

	h := Load[*texture](r, "x")
	assert.Panics(t, func() { Get[*mesh](r, h) })
}

func TestFailedLoadKeepsHandleAndRetries(t *testing.T) {
	r, loader, root := newTestRegistry(t)

	h := Load[*texture](r, "textures/late.png")
	require.True(t, h.IsValid())
	assert.Equal(t, int32(1), loader.calls.Load())

	info, ok := r.Info(h)
	require.True(t, ok)
	assert.False(t, info.Cached)

	_, ok = Get[*texture](r, h)
	assert.False(t, ok)
	assert.Equal(t, int32(2), loader.calls.Load())

	// The file shows up later: the same handle now resolves.
	writeAsset(t, root, "textures/late.png", "late")
	tex, ok := Get[*texture](r, h)
	require.True(t, ok)
	assert.Equal(t, "late", tex.data)
	assert.Equal(t, h, Load[*texture](r, "textures/late.png"))

	m := r.Metrics()
	assert.Equal(t, uint64(3), m.Loads)
	assert.Equal(t, uint64(2), m.Failures)
}

func TestLoaderReturningNothingIsAFailure(t *testing.T) {
	r, _, root := newTestRegistry(t)
	RegisterLoader[*mesh](r, LoaderFunc[*mesh](func(string) (*mesh, error) { return nil, nil }))
	writeAsset(t, root, "empty.obj", "")

	h := Load[*mesh](r, "empty.obj")
	_, ok := Get[*mesh](r, h)
	assert.False(t, ok)
	assert.Equal(t, uint64(2), r.Metrics().Failures)
}

func TestLoaderPanicPropagates(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	RegisterLoader[*mesh](r, LoaderFunc[*mesh](func(string) (*mesh, error) { panic(errBoom) }))

	assert.PanicsWithError(t, errBoom.Error(), func() { Load[*mesh](r, "anything") })
	assert.Equal(t, 0, r.Len())
}

func TestLoadAndGet(t *testing.T) {
	r, loader, root := newTestRegistry(t)
	writeAsset(t, root, "a.png", "a")

	tex, ok := LoadAndGet[*texture](r, "a.png")
	require.True(t, ok)
	assert.Equal(t, "a", tex.data)
	assert.Equal(t, int32(1), loader.calls.Load())

	_, ok = LoadAndGet[*texture](r, "missing.png")
	assert.False(t, ok)
}

func TestReentrantLoader(t *testing.T) {
	r, texCalls, root := newTestRegistry(t)
	writeAsset(t, root, "models/crate.obj", "textures/crate.png")
	writeAsset(t, root, "textures/crate.png", "crate")

	var inner Handle
	RegisterLoader[*mesh](r, LoaderFunc[*mesh](func(absPath string) (*mesh, error) {
		data, err := os.ReadFile(absPath)
		if err != nil {
			return nil, err
		}
		// Nested Load and Get from inside a loader must not deadlock.
		inner = Load[*texture](r, string(data))
		if _, ok := Get[*texture](r, inner); !ok {
			return nil, errors.New("texture missing")
		}
		return &mesh{path: absPath}, nil
	}))

	h := Load[*mesh](r, "models/crate.obj")
	_, ok := Get[*mesh](r, h)
	require.True(t, ok)
	assert.True(t, inner.IsValid())
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, int32(1), texCalls.calls.Load())
}

func TestConcurrentLoadOfSameKey(t *testing.T) {
	r, _, root := newTestRegistry(t)
	writeAsset(t, root, "a.png", "a")

	const n = 32
	handles := make([]Handle, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i] = Load[*texture](r, "a.png")
		}(i)
	}
	wg.Wait()

	for _, h := range handles {
		assert.Equal(t, handles[0], h)
	}
	assert.Equal(t, 1, r.Len())
}

func TestConcurrentColdAccess(t *testing.T) {
	r, _, root := newTestRegistry(t)
	writeAsset(t, root, "a.png", "a")
	h := Load[*texture](r, "a.png")
	require.NoError(t, r.SaveIndex())

	// A fresh registry knows the handle but has never loaded it.
	cold, err := NewRegistry(&RegistryConfig{RootDirectory: root})
	require.NoError(t, err)
	loader := &countingLoader{}
	RegisterLoader[*texture](cold, loader)
	require.NoError(t, cold.LoadIndex(""))
	assert.Equal(t, int32(0), loader.calls.Load())

	const n = 16
	results := make([]*texture, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], _ = Get[*texture](cold, h)
		}(i)
	}
	close(start)
	wg.Wait()

	for _, tex := range results {
		require.NotNil(t, tex)
		assert.Equal(t, "a", tex.data)
	}
	assert.GreaterOrEqual(t, loader.calls.Load(), int32(1))
	assert.Equal(t, 1, cold.Len())
	info, ok := cold.Info(h)
	require.True(t, ok)
	assert.True(t, info.Cached)
}

func TestWarm(t *testing.T) {
	r, _, root := newTestRegistry(t)
	writeAsset(t, root, "a.png", "a")
	h := Load[*texture](r, "a.png")
	require.NoError(t, r.SaveIndex())

	cold, err := NewRegistry(&RegistryConfig{RootDirectory: root})
	require.NoError(t, err)
	loader := &countingLoader{}
	RegisterLoader[*texture](cold, loader)
	require.NoError(t, cold.LoadIndex(""))

	assert.True(t, cold.Warm(h))
	assert.True(t, cold.Warm(h))
	assert.Equal(t, int32(1), loader.calls.Load())
}

func TestHandlesAreSorted(t *testing.T) {
	r, _, root := newTestRegistry(t)
	for _, p := range []string{"a", "b", "c", "d"} {
		writeAsset(t, root, p, p)
		Load[*texture](r, p)
	}
	handles := r.Handles()
	require.Len(t, handles, 4)
	for i := 1; i < len(handles); i++ {
		assert.Less(t, handles[i-1], handles[i])
	}
}

func TestLookup(t *testing.T) {
	r, _, root := newTestRegistry(t)
	writeAsset(t, root, "a.png", "a")
	h := Load[*texture](r, "a.png")

	got, ok := r.Lookup(MakeKey(TypeTag[*texture](), "a.png"))
	require.True(t, ok)
	assert.Equal(t, h, got)

	_, ok = r.Lookup(MakeKey(TypeTag[*texture](), "b.png"))
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	bus := core.NewEventBus()
	var missing []string
	bus.Register(core.EventAssetMissing, t, func(_ core.EventCode, _, _ interface{}, data core.EventContext) bool {
		missing = append(missing, data.Path)
		return false
	})
	r, _, root := newTestRegistry(t, WithEventBus(bus))
	writeAsset(t, root, "keep.png", "k")
	gone := writeAsset(t, root, "gone.png", "g")

	Load[*texture](r, "keep.png")
	hGone := Load[*texture](r, "gone.png")
	assert.Empty(t, r.Validate())

	require.NoError(t, os.Remove(gone))
	broken := r.Validate()
	assert.Equal(t, []Handle{hGone}, broken)
	assert.Equal(t, []string{"gone.png"}, missing)

	// Validation never drops records.
	assert.Equal(t, 2, r.Len())
}

func TestEventsAreFired(t *testing.T) {
	bus := core.NewEventBus()
	counts := map[core.EventCode]int{}
	var mu sync.Mutex
	record := func(code core.EventCode, _, _ interface{}, _ core.EventContext) bool {
		mu.Lock()
		counts[code]++
		mu.Unlock()
		return false
	}
	for _, code := range []core.EventCode{core.EventAssetRegistered, core.EventAssetLoaded, core.EventAssetLoadFailed} {
		bus.Register(code, t, record)
	}

	r, _, root := newTestRegistry(t, WithEventBus(bus))
	assert.Same(t, bus, r.Events())
	writeAsset(t, root, "ok.png", "ok")

	h := Load[*texture](r, "ok.png")
	Get[*texture](r, h)
	Load[*texture](r, "missing.png")

	assert.Equal(t, 2, counts[core.EventAssetRegistered])
	assert.Equal(t, 1, counts[core.EventAssetLoaded])
	assert.Equal(t, 1, counts[core.EventAssetLoadFailed])
}

func TestWithMetrics(t *testing.T) {
	m := core.NewAssetMetrics()
	r, _, root := newTestRegistry(t, WithMetrics(m))
	writeAsset(t, root, "a.png", "a")
	Load[*texture](r, "a.png")
	assert.Equal(t, uint64(1), m.Snapshot().Registrations)
}

func TestRegisterLoaderTwiceReplaces(t *testing.T) {
	r, first, root := newTestRegistry(t)
	second := &countingLoader{}
	RegisterLoader[*texture](r, second)
	writeAsset(t, root, "a.png", "a")

	Load[*texture](r, "a.png")
	assert.Equal(t, int32(0), first.calls.Load())
	assert.Equal(t, int32(1), second.calls.Load())
	assert.True(t, r.HasLoader(TypeTag[*texture]()))
	assert.False(t, r.HasLoader("nothing"))
}

func TestRegisterLoaderForPointerAndValueConflicts(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	values := LoaderFunc[texture](func(absPath string) (texture, error) {
		return texture{path: absPath}, nil
	})

	err := panicErr(t, func() { RegisterLoader[texture](r, values) })
	assert.ErrorIs(t, err, core.ErrTagConflict)
	assert.Contains(t, err.Error(), "*assets.texture")
}

func TestLoadAndGetWithUnboundGoTypePanics(t *testing.T) {
	r, loader, root := newTestRegistry(t)
	writeAsset(t, root, "a.png", "a")
	h := Load[*texture](r, "a.png")

	err := panicErr(t, func() { Load[texture](r, "a.png") })
	assert.ErrorIs(t, err, core.ErrTypeMismatch)
	err = panicErr(t, func() { Get[texture](r, h) })
	assert.ErrorIs(t, err, core.ErrTypeMismatch)

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, int32(1), loader.calls.Load())
}

func TestRegisterLoaderTagConflictBetweenTypes(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	RegisterLoader[tagged](r, LoaderFunc[tagged](func(string) (tagged, error) { return tagged{}, nil }))

	err := panicErr(t, func() {
		RegisterLoader[sameTag](r, LoaderFunc[sameTag](func(string) (sameTag, error) { return sameTag{}, nil }))
	})
	assert.ErrorIs(t, err, core.ErrTagConflict)
	assert.True(t, r.HasLoader("custom-tag"))
}

func TestRegisterLoaderRejectsSeparatorInTag(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	err := panicErr(t, func() {
		RegisterLoader[atTagged](r, LoaderFunc[atTagged](func(string) (atTagged, error) { return atTagged{}, nil }))
	})
	assert.ErrorIs(t, err, core.ErrInvalidTag)
	assert.False(t, r.HasLoader("bad@tag"))
}
