package forms

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nfrund/durian/internal/metrics"
)

// ViewsOptions configures a Views store.
type ViewsOptions struct {
	// IdleTTL unmounts views not touched for this long. Defaults to 15m.
	IdleTTL time.Duration
	// MaxViews caps the number of mounted views; the least recently used
	// are unmounted first. Zero means unbounded.
	MaxViews int
	Logger   *slog.Logger
	Now      func() time.Time
}

type viewEntry struct {
	ctrl     *Controller
	lastSeen time.Time
}

// Views holds the controllers of mounted views keyed by view ID.
type Views struct {
	mu      sync.Mutex
	entries map[string]*viewEntry
	opts    ViewsOptions
}

func NewViews(opts ViewsOptions) *Views {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 15 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Views{entries: make(map[string]*viewEntry), opts: opts}
}

// Mount registers ctrl under its ID, replacing and closing any previous
// controller with the same ID.
func (v *Views) Mount(ctrl *Controller) {
	v.mu.Lock()
	if prev, ok := v.entries[ctrl.ID()]; ok {
		prev.ctrl.Close()
	} else {
		metrics.ViewsActive.Inc()
	}
	v.entries[ctrl.ID()] = &viewEntry{ctrl: ctrl, lastSeen: v.opts.Now()}
	evicted := v.evictOverflowLocked(ctrl.ID())
	v.mu.Unlock()

	for _, id := range evicted {
		v.opts.Logger.Debug("view evicted (LRU pressure)", "view_id", id)
	}
}

// Get returns the controller mounted under id and marks it as seen.
func (v *Views) Get(id string) (*Controller, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ent, ok := v.entries[id]
	if !ok {
		return nil, false
	}
	if ent.ctrl.Closed() {
		delete(v.entries, id)
		metrics.ViewsActive.Dec()
		return nil, false
	}
	ent.lastSeen = v.opts.Now()
	return ent.ctrl, true
}

// Unmount closes and forgets the view. It reports whether the view existed.
func (v *Views) Unmount(id string) bool {
	v.mu.Lock()
	ent, ok := v.entries[id]
	if ok {
		delete(v.entries, id)
		metrics.ViewsActive.Dec()
	}
	v.mu.Unlock()
	if ok {
		ent.ctrl.Close()
	}
	return ok
}

// Len is the number of mounted views.
func (v *Views) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}

// Sweep unmounts views idle longer than IdleTTL and returns how many were
// removed.
func (v *Views) Sweep() int {
	now := v.opts.Now()
	var idle []*viewEntry

	v.mu.Lock()
	for id, ent := range v.entries {
		if now.Sub(ent.lastSeen) > v.opts.IdleTTL {
			idle = append(idle, ent)
			delete(v.entries, id)
		}
	}
	v.mu.Unlock()

	for _, ent := range idle {
		ent.ctrl.Close()
		metrics.ViewsActive.Dec()
		metrics.ViewEvictionsTotal.Inc()
		v.opts.Logger.Debug("view evicted after idle",
			"view_id", ent.ctrl.ID(),
			"idle", now.Sub(ent.lastSeen).Truncate(time.Second))
	}
	return len(idle)
}

// evictOverflowLocked drops least recently used views beyond MaxViews,
// never the one just mounted under keep.
func (v *Views) evictOverflowLocked(keep string) []string {
	over := len(v.entries) - v.opts.MaxViews
	if v.opts.MaxViews <= 0 || over <= 0 {
		return nil
	}
	type kv struct {
		id string
		at time.Time
	}
	all := make([]kv, 0, len(v.entries))
	for id, ent := range v.entries {
		if id != keep {
			all = append(all, kv{id: id, at: ent.lastSeen})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })

	evicted := make([]string, 0, over)
	for _, item := range all[:over] {
		v.entries[item.id].ctrl.Close()
		delete(v.entries, item.id)
		metrics.ViewsActive.Dec()
		metrics.ViewEvictionsTotal.Inc()
		evicted = append(evicted, item.id)
	}
	return evicted
}

// CloseAll unmounts every view.
func (v *Views) CloseAll() {
	v.mu.Lock()
	entries := v.entries
	v.entries = make(map[string]*viewEntry)
	v.mu.Unlock()

	for _, ent := range entries {
		ent.ctrl.Close()
		metrics.ViewsActive.Dec()
	}
}

// Run sweeps idle views until ctx is done, then unmounts everything.
func (v *Views) Run(ctx context.Context) error {
	interval := v.opts.IdleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			v.CloseAll()
			return nil
		case <-ticker.C:
			if n := v.Sweep(); n > 0 {
				v.opts.Logger.Info("swept idle views", "count", n, "remaining", v.Len())
			}
		}
	}
}
