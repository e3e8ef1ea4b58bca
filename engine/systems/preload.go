package systems

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

// Preloader warms registry handles in parallel so later Gets are cache hits.
type Preloader struct {
	registry *assets.Registry
	jobs     *JobSystem
}

func NewPreloader(registry *assets.Registry, jobs *JobSystem) *Preloader {
	return &Preloader{
		registry: registry,
		jobs:     jobs,
	}
}

// Preload warms every handle and waits for all of them. It returns the number
// of handles whose payload is cached afterwards. Handles of a type with no
// registered loader are skipped with a warning and count as not warmed.
func (p *Preloader) Preload(handles []assets.Handle) int {
	var (
		wg     sync.WaitGroup
		warmed atomic.Int64
	)
	clock := core.NewClock()
	clock.Start()

	for _, h := range handles {
		h := h
		if info, ok := p.registry.Info(h); ok && !p.registry.HasLoader(info.Type) {
			core.LogWarn("skipping asset %s: no loader registered for asset type '%s'", h, info.Type)
			continue
		}
		wg.Add(1)
		p.jobs.Submit(JobTask{
			OnStart: func() error {
				if !p.registry.Warm(h) {
					return fmt.Errorf("%w: asset %s", core.ErrLoadFailed, h)
				}
				return nil
			},
			OnComplete: func() {
				warmed.Add(1)
			},
			OnCompletionCallback: wg.Done,
		})
	}
	wg.Wait()

	clock.Update()
	core.LogInfo("preloaded %d/%d assets in %s", warmed.Load(), len(handles), clock.Elapsed())
	return int(warmed.Load())
}

// PreloadAll warms every handle the registry knows.
func (p *Preloader) PreloadAll() int {
	return p.Preload(p.registry.Handles())
}
