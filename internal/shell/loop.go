package shell

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/calder-vision/atrium/internal/notify"
)

// Dispatcher executes initialization commands. Dispatch must not block: the
// command runs in the background and reports back by posting an Event to
// the loop.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd Command, epoch uuid.UUID)
}

// Publisher receives what a tick produced: drained notices, queue-cleared
// acknowledgments, and state transitions.
type Publisher interface {
	PublishNotice(sev notify.Severity, e notify.Entry)
	PublishCleared(sev notify.Severity)
	PublishState(view StateView)
}

// EventKind discriminates the external state changes that drive ticks.
type EventKind string

const (
	// EventTick requests a reconciliation pass with no state mutation.
	EventTick EventKind = "tick"
	// EventCompleted reports a successful load; the resource initializes.
	EventCompleted EventKind = "completed"
	// EventFailed reports a failed load; the resource becomes retryable.
	EventFailed EventKind = "failed"
	// EventInvalidated returns a resource to the unready state so the next
	// tick re-initializes it (plugin manifest changed on disk).
	EventInvalidated EventKind = "invalidated"
	// EventIdentityReset discards the identity, bumps the epoch, and
	// re-enters the loading state.
	EventIdentityReset EventKind = "identityReset"
)

// Event is one external state change feeding the tick loop. Completed and
// Failed events carry the epoch their command was dispatched under;
// mismatched epochs are discarded as stale.
type Event struct {
	Kind     EventKind
	Resource Resource
	Epoch    uuid.UUID
	Identity *Identity
}

// StateView is a consistent per-tick snapshot exposed to readers outside
// the loop goroutine.
type StateView struct {
	Resources         map[Resource]ResourceState `json:"resources"`
	Identity          *Identity                  `json:"identity"`
	Epoch             uuid.UUID                  `json:"epoch"`
	Ready             bool                       `json:"ready"`
	ModelPluginActive bool                       `json:"model_plugin_active"`
}

// Loop drives the bootstrap reconciliation. A single goroutine (Run) owns
// the tracker and identity; loaders and watchers communicate with it
// exclusively through Post, so no locking is needed on shell state.
type Loop struct {
	tracker           *Tracker
	identity          *Identity
	epoch             uuid.UUID
	modelPluginActive bool
	lastReady         bool
	started           bool

	dispatcher Dispatcher
	publisher  Publisher
	errors     *notify.Queue
	messages   *notify.Queue
	log        *slog.Logger

	events   chan Event
	stateReq chan chan StateView
	done     chan struct{}
}

// NewLoop creates a loop over the given collaborators. Run must be called
// before the loop reacts to anything.
func NewLoop(dispatcher Dispatcher, publisher Publisher, errors, messages *notify.Queue, modelPluginActive bool, log *slog.Logger) *Loop {
	return &Loop{
		tracker:           NewTracker(),
		epoch:             uuid.New(),
		modelPluginActive: modelPluginActive,
		dispatcher:        dispatcher,
		publisher:         publisher,
		errors:            errors,
		messages:          messages,
		log:               log,
		events:            make(chan Event, 256),
		stateReq:          make(chan chan StateView),
		done:              make(chan struct{}),
	}
}

// Post delivers an event to the loop. Safe for any goroutine; a no-op once
// the loop has stopped.
func (l *Loop) Post(ev Event) {
	select {
	case l.events <- ev:
	case <-l.done:
	}
}

// Tick requests a reconciliation pass with no state mutation. Used by
// producers that only queued notices.
func (l *Loop) Tick() {
	l.Post(Event{Kind: EventTick})
}

// State returns a consistent snapshot of the loop's state.
func (l *Loop) State(ctx context.Context) (StateView, error) {
	resp := make(chan StateView, 1)
	select {
	case l.stateReq <- resp:
	case <-l.done:
		return StateView{}, context.Canceled
	case <-ctx.Done():
		return StateView{}, ctx.Err()
	}
	select {
	case view := <-resp:
		return view, nil
	case <-ctx.Done():
		return StateView{}, ctx.Err()
	}
}

// Run executes the tick loop until ctx is cancelled. The first tick runs
// immediately and dispatches the identity check.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	l.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-l.events:
			if l.apply(ev) {
				l.tick(ctx)
			}
		case resp := <-l.stateReq:
			resp <- l.view()
		}
	}
}

// apply mutates loop state for one event and reports whether a tick should
// follow. Stale-epoch completions are discarded without a tick.
func (l *Loop) apply(ev Event) bool {
	switch ev.Kind {
	case EventCompleted, EventFailed:
		if ev.Epoch != l.epoch {
			l.log.Debug("discarding stale completion",
				slog.String("resource", string(ev.Resource)),
				slog.String("epoch", ev.Epoch.String()))
			return false
		}
	}

	switch ev.Kind {
	case EventCompleted:
		l.tracker.MarkInitialized(ev.Resource)
		if ev.Resource == ResourceUser {
			l.identity = ev.Identity
		}
	case EventFailed:
		l.tracker.MarkFailed(ev.Resource)
	case EventInvalidated:
		l.tracker.Reset(ev.Resource)
	case EventIdentityReset:
		l.identity = nil
		l.epoch = uuid.New()
		// Auth actions are identity-independent and plugins are local, so
		// both survive a reset.
		l.tracker.Reset(ResourceUser, ResourceUserAgreements,
			ResourceFormats, ResourceAbout, ResourceModels)
		l.log.Info("identity reset", slog.String("epoch", l.epoch.String()))
	}
	return true
}

func (l *Loop) snapshot() Snapshot {
	return Snapshot{
		Resources:         l.tracker.Snapshot(),
		Identity:          l.identity,
		ModelPluginActive: l.modelPluginActive,
	}
}

func (l *Loop) view() StateView {
	snap := l.snapshot()
	return StateView{
		Resources:         snap.Resources,
		Identity:          l.identity,
		Epoch:             l.epoch,
		Ready:             snap.Ready(),
		ModelPluginActive: l.modelPluginActive,
	}
}

// tick runs one reconciliation pass: dispatch the commands the snapshot
// calls for, drain both notification queues, and publish the state view
// when readiness or identity changed.
func (l *Loop) tick(ctx context.Context) {
	for _, cmd := range Reconcile(l.snapshot()) {
		res := CommandResource(cmd)
		l.tracker.MarkFetching(res)
		l.log.Debug("dispatching", slog.String("command", string(cmd)))
		l.dispatcher.Dispatch(ctx, cmd, l.epoch)
	}

	l.drain(notify.SeverityError, l.errors)
	l.drain(notify.SeverityMessage, l.messages)

	ready := l.snapshot().Ready()
	if !l.started || ready != l.lastReady {
		l.started = true
		l.lastReady = ready
		l.publisher.PublishState(l.view())
	}
}

// drain empties one queue and fans the notices out. Error notices always
// land in the diagnostic log in full; the broker only ever sees the
// screen-safe detail. The cleared acknowledgment is issued once, and only
// after a non-empty drain.
func (l *Loop) drain(sev notify.Severity, q *notify.Queue) {
	entries := q.Drain()
	if len(entries) == 0 {
		return
	}
	for _, e := range entries {
		if sev == notify.SeverityError {
			l.log.Error("notice",
				slog.String("source", e.Source),
				slog.String("slot", e.Slot),
				slog.String("text", e.Notice.Text),
				slog.String("detail", e.Notice.Detail))
		} else {
			l.log.Info("notice",
				slog.String("source", e.Source),
				slog.String("slot", e.Slot),
				slog.String("text", e.Notice.Text))
		}
		l.publisher.PublishNotice(sev, e)
	}
	l.publisher.PublishCleared(sev)
}
