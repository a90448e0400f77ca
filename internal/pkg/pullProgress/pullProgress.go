package pullProgress

import (
	"errors"
	"sync"
	"time"

	"ollama-webchat/internal/pkg/ollama"
)

// DefaultClearDelay keeps the terminal status visible briefly before the
// tracker clears itself.
const DefaultClearDelay = 5 * time.Second

// ErrPullInFlight is returned when a pull for the same model is already running.
var ErrPullInFlight = errors.New("a pull for this model is already in flight")

// Status is a renderable snapshot of one model pull.
type Status struct {
	Model string
	Event ollama.PullProgressEvent

	// Ratio is completed/total; only meaningful when Determinate.
	Ratio       float64
	Determinate bool

	Terminal bool
	Failed   bool

	// Cleared marks the final notification sent after the clear delay; the UI
	// removes the progress line when it sees it.
	Cleared bool
}

// StatusFunc receives status snapshots in the order they are produced.
type StatusFunc func(status Status)

// Tracker holds at most the latest progress event of a single pull. Each
// event overwrites the previous one; nothing is merged.
type Tracker struct {
	mutex      sync.Mutex
	model      string
	latest     *ollama.PullProgressEvent
	completed  bool
	clearTimer *time.Timer
	clearDelay time.Duration
	statusFunc StatusFunc
	release    func(tracker *Tracker) bool
}

// Observe replaces the held event and pushes a fresh snapshot.
func (tracker *Tracker) Observe(event ollama.PullProgressEvent) {
	tracker.mutex.Lock()
	tracker.latest = &event
	status := tracker.snapshotLocked()
	tracker.mutex.Unlock()

	tracker.statusFunc(status)
}

// Complete marks the pull as finished, successfully or not. The terminal
// status stays visible until the clear delay elapses, then a cleared snapshot
// is pushed and the tracker forgets its event. A tracker superseded by a new
// pull for the same model before the delay elapses never pushes the cleared
// snapshot, so it cannot wipe the successor's progress line.
func (tracker *Tracker) Complete(err error) {
	tracker.mutex.Lock()
	tracker.completed = true
	status := tracker.snapshotLocked()
	status.Terminal = true
	status.Failed = err != nil
	tracker.mutex.Unlock()

	tracker.statusFunc(status)

	timer := time.AfterFunc(tracker.clearDelay, func() {
		if !tracker.release(tracker) {
			return
		}

		tracker.mutex.Lock()
		tracker.latest = nil
		tracker.mutex.Unlock()

		tracker.statusFunc(Status{Model: tracker.model, Cleared: true})
	})

	tracker.mutex.Lock()
	tracker.clearTimer = timer
	tracker.mutex.Unlock()
}

// Latest returns the most recent event, if any.
func (tracker *Tracker) Latest() (ollama.PullProgressEvent, bool) {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()

	if tracker.latest == nil {
		return ollama.PullProgressEvent{}, false
	}
	return *tracker.latest, true
}

// Ratio returns the display progress of the held event. ok is false when the
// progress is indeterminate (missing counts or zero total).
func (tracker *Tracker) Ratio() (ratio float64, ok bool) {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()

	if tracker.latest == nil {
		return 0, false
	}
	return eventRatio(*tracker.latest)
}

func (tracker *Tracker) isCompleted() bool {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()

	return tracker.completed
}

func (tracker *Tracker) stopClear() {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()

	if tracker.clearTimer != nil {
		tracker.clearTimer.Stop()
	}
}

func (tracker *Tracker) snapshotLocked() Status {
	status := Status{Model: tracker.model}
	if tracker.latest != nil {
		status.Event = *tracker.latest
		status.Ratio, status.Determinate = eventRatio(*tracker.latest)
	}
	return status
}

func eventRatio(event ollama.PullProgressEvent) (float64, bool) {
	if event.Total <= 0 {
		return 0, false
	}
	return float64(event.Completed) / float64(event.Total), true
}

// Registry keys pulls by model name so a second request for a model already
// being pulled is rejected instead of double-tracked. A completed tracker
// keeps its slot until its clear delay elapses or a new pull takes over.
type Registry struct {
	mutex      sync.Mutex
	trackers   map[string]*Tracker
	clearDelay time.Duration
}

func NewRegistry(clearDelay time.Duration) *Registry {
	if clearDelay <= 0 {
		clearDelay = DefaultClearDelay
	}
	return &Registry{
		trackers:   make(map[string]*Tracker),
		clearDelay: clearDelay,
	}
}

// Begin registers a new pull for the model and returns its tracker. It fails
// with ErrPullInFlight while an earlier pull for the same model is running.
// A completed predecessor still awaiting its clear delay is silently retired.
func (registry *Registry) Begin(model string, statusFunc StatusFunc) (*Tracker, error) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	if existing := registry.trackers[model]; existing != nil {
		if !existing.isCompleted() {
			return nil, ErrPullInFlight
		}
		existing.stopClear()
	}

	tracker := &Tracker{
		model:      model,
		clearDelay: registry.clearDelay,
		statusFunc: statusFunc,
		release:    registry.release,
	}
	registry.trackers[model] = tracker

	return tracker, nil
}

// InFlight reports whether a pull for the model is currently running.
func (registry *Registry) InFlight(model string) bool {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	tracker := registry.trackers[model]
	return tracker != nil && !tracker.isCompleted()
}

// release drops the tracker's slot, but only while it still owns it. It
// reports false when a newer pull for the same model has taken over.
func (registry *Registry) release(tracker *Tracker) bool {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	if registry.trackers[tracker.model] != tracker {
		return false
	}

	delete(registry.trackers, tracker.model)
	return true
}
