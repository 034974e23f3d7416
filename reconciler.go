package hotplug

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"
)

const (
	// DefaultPollInterval bounds how long the Reconciler waits for hardware
	// events before running a bookkeeping cycle.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultMaxBatch caps how many events are drained into one batch.
	DefaultMaxBatch = 10
)

// Reconciler waits for hardware events, re-queries every controller, diffs
// the result against its baseline and reports stable connector changes to a
// Notifier.
//
// The baseline, pending candidates and controller handles are owned by a
// single goroutine; cycles run strictly one at a time in the order
// snapshot, diff, debounce, notify.
type Reconciler struct {
	source      EventSource
	controllers *ControllerSet
	pipeline    pipz.Chainable[Change]
	detector    *ChangeDetector
	filter      *DebounceFilter

	pollInterval time.Duration
	maxBatch     int
	syncMode     bool
	clock        clockz.Clock
	metrics      MetricsProvider
	onStop       func(Phase)

	phase     atomic.Int32
	lastError atomic.Pointer[error]
	faults    *faultRing

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
	err      error

	// For sync mode: channel to receive events
	events <-chan Event
}

// New creates a Reconciler over the given event source and controllers.
// Stable changes are delivered to notifier through a pipeline built from
// opts. Instance configuration uses chainable methods before Start().
//
// Example:
//
//	r := hotplug.New(
//	    uevent.New(),
//	    hotplug.NewControllerSet(cards...),
//	    hotplug.NotifierFunc(func(ctx context.Context, c hotplug.Change) error {
//	        log.Printf("%s %s", c.Connector, c.State)
//	        return nil
//	    }),
//	    hotplug.WithTimeout(2*time.Second),
//	).QuietPeriod(150 * time.Millisecond)
func New(source EventSource, controllers *ControllerSet, notifier Notifier, opts ...Option) *Reconciler {
	r := &Reconciler{
		source:       source,
		controllers:  controllers,
		pipeline:     newPipeline(notifier, opts),
		detector:     NewChangeDetector(),
		filter:       NewDebounceFilter(DefaultQuietPeriod),
		pollInterval: DefaultPollInterval,
		maxBatch:     DefaultMaxBatch,
		clock:        clockz.RealClock,
		faults:       newFaultRing(0),
		done:         make(chan struct{}),
	}
	r.phase.Store(int32(PhaseIdle))
	return r
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// QuietPeriod sets how long a non-connect transition must persist before it
// is reported. Default: 200ms. Must be called before Start().
func (r *Reconciler) QuietPeriod(d time.Duration) *Reconciler {
	r.filter.quiet = d
	return r
}

// Override sets the quiet period for a single connector.
// Must be called before Start().
func (r *Reconciler) Override(key ConnectorKey, d time.Duration) *Reconciler {
	r.filter.Override(key, d)
	return r
}

// PollInterval sets the bounded wait between bookkeeping cycles.
// Default: 100ms. Must be called before Start().
func (r *Reconciler) PollInterval(d time.Duration) *Reconciler {
	r.pollInterval = d
	return r
}

// MaxBatch caps how many buffered events are drained into one batch.
// Default: 10. Must be called before Start().
func (r *Reconciler) MaxBatch(n int) *Reconciler {
	r.maxBatch = n
	return r
}

// Promotion sets the promotion policy for pending candidates.
// Default: PromoteRevalidate. Must be called before Start().
func (r *Reconciler) Promotion(p PromotionPolicy) *Reconciler {
	r.filter.Policy(p)
	return r
}

// RetainVanished keeps baseline entries for connectors whose controller
// stopped reporting them. Must be called before Start().
func (r *Reconciler) RetainVanished(retain bool) *Reconciler {
	r.detector.RetainVanished(retain)
	return r
}

// SyncMode enables synchronous processing for testing.
// In sync mode, Start only runs the initial cycle and no goroutine is
// spawned; call Process() to run each subsequent cycle. Must be called
// before Start().
func (r *Reconciler) SyncMode() *Reconciler {
	r.syncMode = true
	return r
}

// Clock sets a custom clock for time operations.
// Use this with clockz.FakeClock for deterministic debounce testing.
// Must be called before Start().
func (r *Reconciler) Clock(clock clockz.Clock) *Reconciler {
	r.clock = clock
	return r
}

// Metrics sets a metrics provider for observability integration.
// Must be called before Start().
func (r *Reconciler) Metrics(provider MetricsProvider) *Reconciler {
	r.metrics = provider
	return r
}

// OnStop sets a callback that is invoked once the Reconciler has shut down.
// It receives the final phase. Must be called before Start().
func (r *Reconciler) OnStop(fn func(Phase)) *Reconciler {
	r.onStop = fn
	return r
}

// ErrorHistorySize sets the number of recent faults to retain.
// Use 0 (default) to only retain the most recent error via LastError().
// Must be called before Start().
func (r *Reconciler) ErrorHistorySize(n int) *Reconciler {
	r.faults = newFaultRing(n)
	return r
}

// Configure applies a validated Config. Must be called before Start().
func (r *Reconciler) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	policy, _ := ParsePromotionPolicy(cfg.Promotion) //nolint:errcheck // checked by Validate

	r.QuietPeriod(cfg.QuietPeriod).
		PollInterval(cfg.PollInterval).
		MaxBatch(cfg.MaxBatch).
		Promotion(policy).
		RetainVanished(cfg.RetainVanished)
	for _, o := range cfg.Overrides {
		r.Override(o.Key(), o.QuietPeriod)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

// Phase returns the current phase of the Reconciler.
func (r *Reconciler) Phase() Phase {
	return Phase(r.phase.Load())
}

// Baseline returns a copy of the last reconciled state of every connector.
// Only call from sync mode or after Done() is closed.
func (r *Reconciler) Baseline() map[ConnectorKey]State {
	return r.detector.Snapshot()
}

// Pending returns the number of candidates waiting for their quiet period.
// Only call from sync mode or after Done() is closed.
func (r *Reconciler) Pending() int {
	return r.filter.Pending()
}

// LastError returns the last error encountered, or nil if no error occurred.
func (r *Reconciler) LastError() error {
	ptr := r.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns the recent faults, oldest first.
// Returns nil if error history is not enabled (see ErrorHistorySize).
func (r *Reconciler) ErrorHistory() []Fault {
	return r.faults.all()
}

// Done is closed once the Reconciler has shut down.
func (r *Reconciler) Done() <-chan struct{} {
	return r.done
}

// Err returns the fatal error that stopped the Reconciler, or nil if it is
// still running or stopped because its context was canceled.
func (r *Reconciler) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start subscribes to the event source and runs the initial cycle
// synchronously: every connector present is reported as an initial change
// without debouncing. Monitoring then continues in the background until ctx
// is canceled, Shutdown is called or the event source fails.
//
// Start can only be called once. Subsequent calls return an error.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return fmt.Errorf("reconciler already started")
	}
	r.started = true
	ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	capitan.Emit(ctx, ReconcilerStarted,
		KeyQuietPeriod.Field(r.filter.quiet),
		KeyPollInterval.Field(r.pollInterval),
		KeyControllers.Field(r.controllers.Len()),
	)

	events, err := r.source.Watch(ctx)
	if err != nil {
		serr := &EventSourceError{Err: fmt.Errorf("failed to start source: %w", err)}
		r.stop(ctx, serr)
		return serr
	}

	r.cycle(ctx, nil, true)

	if r.syncMode {
		r.events = events
		return nil
	}

	go r.run(ctx, events)

	return nil
}

// Process drains whatever events are buffered and runs one cycle.
// This is only available in sync mode and is used for deterministic testing.
// Returns false if the Reconciler is not in sync mode or has stopped.
func (r *Reconciler) Process(ctx context.Context) bool {
	if !r.syncMode || r.events == nil || r.stopped() {
		return false
	}

	batch, closed := r.collect(r.events, nil)
	r.cycle(ctx, batch, false)
	if closed {
		r.stop(ctx, r.sourceError(ctx))
		return false
	}
	return true
}

// Shutdown stops the Reconciler and waits for it to finish. Pending
// candidates are discarded, the event source is closed if it implements
// io.Closer and every controller handle is released.
func (r *Reconciler) Shutdown(ctx context.Context) {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	if r.syncMode {
		r.stop(ctx, nil)
		return
	}
	<-r.done
}

// run is the bounded-wait loop: it wakes on an event batch or after the poll
// interval, whichever comes first, and always runs a cycle.
func (r *Reconciler) run(ctx context.Context, events <-chan Event) {
	timer := r.clock.NewTimer(r.pollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.stop(ctx, nil)
			return

		case e, ok := <-events:
			if !ok {
				r.stop(ctx, r.sourceError(ctx))
				return
			}
			batch, closed := r.collect(events, []Event{e})
			r.cycle(ctx, batch, false)
			if closed {
				r.stop(ctx, r.sourceError(ctx))
				return
			}

		case <-timer.C():
			r.cycle(ctx, nil, false)
			timer.Reset(r.pollInterval)
		}
	}
}

// collect drains buffered events without blocking, up to the batch cap.
func (r *Reconciler) collect(events <-chan Event, batch []Event) ([]Event, bool) {
	for len(batch) < r.maxBatch {
		select {
		case e, ok := <-events:
			if !ok {
				return batch, true
			}
			batch = append(batch, e)
		default:
			return batch, false
		}
	}
	return batch, false
}

// cycle runs one reconciliation pass. The controllers are re-queried when
// forced, when the batch holds an add or change event, or when a pending
// candidate is due and must be revalidated against live state. Otherwise
// the pass only sweeps the debounce filter.
func (r *Reconciler) cycle(ctx context.Context, batch []Event, force bool) {
	now := r.clock.Now()

	if len(batch) > 0 {
		capitan.Emit(ctx, EventsReceived, KeyEvents.Field(len(batch)))
		if r.metrics != nil {
			r.metrics.OnEventBatch(len(batch))
		}
	}

	refresh := force || anyTriggers(batch) ||
		(r.filter.policy == PromoteRevalidate && r.filter.Due(now))

	r.setPhase(ctx, PhaseReconciling)

	var candidates []Change
	if refresh {
		readings, errs := r.controllers.SnapshotAll(ctx)
		var unreachable []string
		for _, err := range errs {
			r.recordError(err)
			var qerr *DeviceQueryError
			if !errors.As(err, &qerr) {
				continue
			}
			unreachable = append(unreachable, qerr.Controller)
			if r.metrics != nil {
				r.metrics.OnControllerFailure(qerr.Controller)
			}
		}
		candidates = r.detector.Diff(readings, unreachable...)
	}

	stable := r.filter.Admit(ctx, candidates, now, r.detector.Live)
	for _, c := range stable {
		r.notify(ctx, c)
	}

	elapsed := r.clock.Since(now)
	capitan.Emit(ctx, CycleCompleted,
		KeyCandidates.Field(len(candidates)),
		KeyReported.Field(len(stable)),
		KeyPending.Field(r.filter.Pending()),
		KeyElapsed.Field(elapsed),
	)
	if r.metrics != nil {
		r.metrics.OnCycle(elapsed, len(candidates), len(stable))
	}

	r.setPhase(ctx, PhaseIdle)
}

// notify hands one stable change to the pipeline. Failures are recorded and
// not retried.
func (r *Reconciler) notify(ctx context.Context, c Change) {
	emitChange(ctx, TransitionReported, c)
	if r.metrics != nil {
		r.metrics.OnTransition(c)
	}

	if _, err := r.pipeline.Process(ctx, c); err != nil {
		r.recordError(fmt.Errorf("notify %s %s: %w", c.Connector, c.State, err))
		emitChange(ctx, NotifyFailed, c, KeyError.Field(err.Error()))
		if r.metrics != nil {
			r.metrics.OnNotifyFailure(c)
		}
	}
}

// stop performs the clean shutdown exactly once.
func (r *Reconciler) stop(ctx context.Context, err error) {
	r.stopOnce.Do(func() {
		discarded := r.filter.Drain()
		for _, c := range discarded {
			emitChange(ctx, TransitionDiscarded, c)
		}

		if closer, ok := r.source.(io.Closer); ok {
			if cerr := closer.Close(); cerr != nil {
				r.recordError(&EventSourceError{Err: cerr})
			}
		}
		if cerr := r.controllers.Close(); cerr != nil {
			r.recordError(cerr)
		}

		if err != nil {
			r.err = err
			r.recordError(err)
			capitan.Emit(ctx, SourceFailed, KeyError.Field(err.Error()))
		}

		capitan.Emit(ctx, ReconcilerStopped,
			KeyNewPhase.Field(r.Phase().String()),
			KeyPending.Field(len(discarded)),
		)
		if r.onStop != nil {
			r.onStop(r.Phase())
		}
		close(r.done)
	})
}

func (r *Reconciler) stopped() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// sourceError explains why the event channel closed.
func (r *Reconciler) sourceError(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	if s, ok := r.source.(interface{ Err() error }); ok {
		if err := s.Err(); err != nil {
			return &EventSourceError{Err: err}
		}
	}
	return &EventSourceError{Err: ErrSourceClosed}
}

// setPhase updates the phase and emits a phase change event if changed.
func (r *Reconciler) setPhase(ctx context.Context, next Phase) {
	prev := Phase(r.phase.Swap(int32(next)))
	if prev == next {
		return
	}
	capitan.Emit(ctx, PhaseChanged,
		KeyOldPhase.Field(prev.String()),
		KeyNewPhase.Field(next.String()),
	)
	if r.metrics != nil {
		r.metrics.OnPhaseChange(prev, next)
	}
}

// recordError stores an error as the last error and in the fault history.
func (r *Reconciler) recordError(err error) {
	e := err
	r.lastError.Store(&e)
	r.faults.push(Fault{At: r.clock.Now(), Err: err})
}
