package storage

import (
	"context"
	"time"
)

// EventType distinguishes volume arrivals from removals.
type EventType int

const (
	// VolumeAttached means a volume appeared since the previous poll.
	VolumeAttached EventType = iota + 1
	// VolumeDetached means a previously seen volume is gone.
	VolumeDetached
)

func (t EventType) String() string {
	switch t {
	case VolumeAttached:
		return "attached"
	case VolumeDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// Event reports one volume attach or detach.
type Event struct {
	Type   EventType
	Volume VolumeInfo
}

// Watcher polls a VolumeStore and emits attach/detach events, the way the
// original removable-media monitor rescans mounts once a second.
type Watcher struct {
	store    VolumeStore
	interval time.Duration
	events   chan Event
}

// NewWatcher creates a watcher polling store at the given interval.
func NewWatcher(store VolumeStore, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{
		store:    store,
		interval: interval,
		events:   make(chan Event, 16),
	}
}

// Events is the stream of attach/detach notifications. It is closed when
// Run returns.
func (w *Watcher) Events() <-chan Event { return w.events }

// Run polls until ctx is canceled. Volumes present at startup are
// reported as attached, matching the original detector's initial scan. A
// store error during a poll is treated as "no volumes visible", so a
// yanked mount root surfaces as detach events rather than a hang.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.events)

	known := make(map[string]VolumeInfo)
	w.poll(ctx, known)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx, known)
		}
	}
}

func (w *Watcher) poll(ctx context.Context, known map[string]VolumeInfo) {
	current := make(map[string]VolumeInfo)
	volumes, err := w.store.ListVolumes()
	if err == nil {
		for _, v := range volumes {
			current[v.ID] = v
		}
	}

	for id, v := range current {
		if _, seen := known[id]; !seen {
			w.emit(ctx, Event{Type: VolumeAttached, Volume: v})
		}
	}
	for id, v := range known {
		if _, still := current[id]; !still {
			w.emit(ctx, Event{Type: VolumeDetached, Volume: v})
		}
	}

	clear(known)
	for id, v := range current {
		known[id] = v
	}
}

func (w *Watcher) emit(ctx context.Context, ev Event) {
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}
