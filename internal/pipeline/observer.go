package pipeline

import (
	"context"
	"sync"
	"time"
)

// StageEvent reports a finished stage. Output holds the typed stage result,
// e.g. the labeled markdown string after StageLabelSections.
type StageEvent struct {
	Stage    Stage
	Duration time.Duration
	Summary  string
	Output   any
	Skipped  bool
}

// Observer is notified after every stage, including skipped ones.
type Observer interface {
	OnStage(ctx context.Context, ev StageEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev StageEvent)

// OnStage implements Observer.
func (f ObserverFunc) OnStage(ctx context.Context, ev StageEvent) {
	f(ctx, ev)
}

// SnapshotRecorder keeps the last event of each stage for replay and
// debugging.
type SnapshotRecorder struct {
	mu    sync.Mutex
	snaps map[Stage]StageEvent
}

// NewSnapshotRecorder creates an empty recorder.
func NewSnapshotRecorder() *SnapshotRecorder {
	return &SnapshotRecorder{snaps: make(map[Stage]StageEvent)}
}

// OnStage implements Observer.
func (r *SnapshotRecorder) OnStage(_ context.Context, ev StageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps[ev.Stage] = ev
}

// Snapshot returns the recorded event for stage.
func (r *SnapshotRecorder) Snapshot(stage Stage) (StageEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.snaps[stage]
	return ev, ok
}

// Snapshots returns the recorded events in stage order.
func (r *SnapshotRecorder) Snapshots() []StageEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StageEvent, 0, len(r.snaps))
	for _, s := range Stages() {
		if ev, ok := r.snaps[s]; ok {
			out = append(out, ev)
		}
	}
	return out
}
