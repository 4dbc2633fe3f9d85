package reflector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
)

// errExpiredWatch signals, inside the run loop only, that the watched
// resource version is no longer retained upstream and a full resync is
// needed. It never escapes Run.
var errExpiredWatch = errors.New("watch expired upstream")

// Reflector mirrors a remote collection into a local cache and appends
// every cache mutation to an event chain served by ObserveAll. The run
// loop is the single writer: it alone mutates the cache, the chain, and
// the version bookkeeping, all under mu. Observers take their snapshot
// under the read lock and afterwards touch only their own cursor.
type Reflector[T Object] struct {
	lw        ListerWatcher[T]
	log       *slog.Logger
	metrics   *metrics
	pageLimit int64
	bookmarks bool

	mu            sync.RWMutex
	cache         *resourceCache[T]
	chain         *eventLog[T]
	latestVersion string
	synced        bool
	running       bool
	stopped       bool
	cancel        context.CancelFunc

	syncedOnce sync.Once
	syncedCh   chan struct{}
}

// New constructs a Reflector over the given ListerWatcher. The cache is
// empty and unsynced until Run performs its first listing.
func New[T Object](lw ListerWatcher[T], opts ...Option) *Reflector[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Reflector[T]{
		lw:        lw,
		log:       o.logger.With("component", o.name),
		metrics:   newMetrics(o.registerer, o.name),
		pageLimit: o.pageLimit,
		bookmarks: o.bookmarks,
		cache:     newResourceCache[T](),
		chain:     newEventLog[T](),
		syncedCh:  make(chan struct{}),
	}
}

// ---------------------------------------------------------------------------
// Synchronization loop
// ---------------------------------------------------------------------------

// Run drives the cache to eventual consistency with the remote collection
// and publishes every transition to the event chain. It blocks until ctx
// ends, Stop is called, or a fatal error occurs.
//
// List and Watch call failures are not retried here; they propagate out
// unchanged and the caller owns restart policy. Integrity violations and
// non-expired watch errors are fatal to the instance. An expired watch
// version triggers a Desynced event and a clean relist from "0".
//
// At most one Run may be active per Reflector; a second concurrent call
// returns ErrRunning.
func (r *Reflector[T]) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	switch {
	case r.stopped:
		r.mu.Unlock()
		return ErrStopped
	case r.running:
		r.mu.Unlock()
		return ErrRunning
	}
	r.running = true
	r.cancel = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.cancel = nil
		r.mu.Unlock()
	}()

	for {
		if err := r.relist(ctx); err != nil {
			return err
		}

		err := r.watchLoop(ctx)
		if errors.Is(err, errExpiredWatch) {
			r.desync()
			continue
		}
		return err
	}
}

// relist performs a full (possibly paged) listing and diffs it against the
// cache: new keys become Added, changed resourceVersions become Modified,
// keys absent from the listing become Deleted, and a trailing Synced marks
// the cache as a complete snapshot of the list's version. Items whose
// version is unchanged produce no event.
func (r *Reflector[T]) relist(ctx context.Context) error {
	from := r.LastResourceVersion()
	if from == "" {
		from = "0"
	}

	opts := metav1.ListOptions{ResourceVersion: from, Limit: r.pageLimit}
	var items []T
	var listVersion string

	// The diff needs the complete key set to compute deletions, so pages
	// accumulate before anything is applied. The first page's version is
	// the snapshot version.
	for {
		page, err := r.lw.List(ctx, opts)
		if err != nil {
			return fmt.Errorf("list from %q: %w", from, err)
		}
		if listVersion == "" {
			listVersion = page.ResourceVersion
		}
		items = append(items, page.Items...)
		if page.Continue == "" {
			break
		}
		opts.Continue = page.Continue
	}

	for _, obj := range items {
		if err := checkIdentity(obj); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(items))
	for _, obj := range items {
		key := objectKey(obj.GetNamespace(), obj.GetName())
		seen[key] = struct{}{}

		prev, ok := r.cache.get(key)
		switch {
		case !ok:
			r.cache.set(key, obj)
			r.appendLocked(Event[T]{Type: Added, Object: obj}, "")
		case prev.GetResourceVersion() != obj.GetResourceVersion():
			r.cache.set(key, obj)
			r.appendLocked(Event[T]{Type: Modified, Object: obj, Previous: prev}, "")
		}
	}

	for _, key := range r.cache.keys() {
		if _, ok := seen[key]; ok {
			continue
		}
		prev, _ := r.cache.get(key)
		r.cache.delete(key)
		r.appendLocked(Event[T]{Type: Deleted, Object: prev}, "")
	}

	r.appendLocked(Event[T]{Type: Synced, ResourceVersion: listVersion}, listVersion)
	r.metrics.relist()
	r.metrics.setCached(r.cache.len())

	r.log.Debug("relist complete", "resourceVersion", listVersion, "items", len(items))
	return nil
}

// watchLoop issues watch calls from the current version and consumes their
// streams. A stream that ends cleanly is simply reopened from the version
// reached so far; no relist happens for a clean end. Returns
// errExpiredWatch when the upstream no longer retains the requested
// version, and a fatal error for everything else.
func (r *Reflector[T]) watchLoop(ctx context.Context) error {
	for {
		opts := metav1.ListOptions{
			ResourceVersion:     r.LastResourceVersion(),
			AllowWatchBookmarks: r.bookmarks,
		}

		w, err := r.lw.Watch(ctx, opts)
		if err != nil {
			return fmt.Errorf("watch from %q: %w", opts.ResourceVersion, err)
		}

		if err := r.consumeWatch(ctx, w); err != nil {
			return err
		}
		r.log.Debug("watch stream ended cleanly, rewatching", "resourceVersion", r.LastResourceVersion())
	}
}

// consumeWatch drains one watch stream. A nil return means the stream
// ended cleanly and the caller should reopen it.
func (r *Reflector[T]) consumeWatch(ctx context.Context, w watch.Interface) error {
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.ResultChan():
			if !ok {
				return nil
			}
			if err := r.handleWatchEvent(ev); err != nil {
				return err
			}
		}
	}
}

// handleWatchEvent applies a single upstream watch event to the cache and
// the chain. Unrecognized event types and payloads are integrity
// violations.
func (r *Reflector[T]) handleWatchEvent(ev watch.Event) error {
	switch ev.Type {
	case watch.Added, watch.Modified, watch.Deleted:
		obj, ok := ev.Object.(T)
		if !ok {
			return &IntegrityError{Reason: fmt.Sprintf("%s event carries unexpected type %T", ev.Type, ev.Object)}
		}
		if err := checkIdentity(obj); err != nil {
			return err
		}
		r.applyWatch(ev.Type, obj)
		return nil

	case watch.Bookmark:
		accessor, err := meta.Accessor(ev.Object)
		if err != nil {
			return &IntegrityError{Reason: fmt.Sprintf("bookmark event carries unexpected type %T", ev.Object)}
		}
		r.applyBookmark(accessor.GetResourceVersion())
		return nil

	case watch.Error:
		status, ok := ev.Object.(*metav1.Status)
		if !ok {
			return &IntegrityError{Reason: fmt.Sprintf("error event carries %T, not *metav1.Status", ev.Object)}
		}
		if status.Reason == metav1.StatusReasonExpired {
			// Recoverable: observers find out via the Desynced marker,
			// never via an Error event.
			return errExpiredWatch
		}
		// The Error event below terminates every observer, so the
		// instance is finished: latch stopped so a later Run cannot
		// silently restart over a dead chain.
		r.mu.Lock()
		r.stopped = true
		r.appendLocked(Event[T]{Type: Error, Status: status}, "")
		r.mu.Unlock()
		return apierrors.FromObject(status)

	default:
		return &IntegrityError{Reason: fmt.Sprintf("unrecognized watch event type %q", ev.Type)}
	}
}

// applyWatch mutates the cache for one content-bearing watch event and
// appends the matching chain event. The event's resourceVersion becomes
// the new resume point.
func (r *Reflector[T]) applyWatch(t watch.EventType, obj T) {
	key := objectKey(obj.GetNamespace(), obj.GetName())
	version := obj.GetResourceVersion()

	r.mu.Lock()
	defer r.mu.Unlock()

	switch t {
	case watch.Added:
		r.cache.set(key, obj)
		r.appendLocked(Event[T]{Type: Added, Object: obj}, version)

	case watch.Modified:
		prev, ok := r.cache.get(key)
		r.cache.set(key, obj)
		if !ok {
			// Tolerated anomaly: a modification for an item we never saw.
			r.log.Warn("modified event for unknown item, treating as added", "key", key, "resourceVersion", version)
			r.appendLocked(Event[T]{Type: Added, Object: obj}, version)
			break
		}
		r.appendLocked(Event[T]{Type: Modified, Object: obj, Previous: prev}, version)

	case watch.Deleted:
		r.cache.delete(key)
		r.appendLocked(Event[T]{Type: Deleted, Object: obj}, version)
	}

	r.metrics.setCached(r.cache.len())
}

// applyBookmark advances the resume point without touching the cache.
func (r *Reflector[T]) applyBookmark(version string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendLocked(Event[T]{Type: Bookmark, ResourceVersion: version}, version)
}

// desync marks the cache as untrustworthy and resets the resume point so
// the next relist requests from "0".
func (r *Reflector[T]) desync() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.Info("watch expired, resyncing from scratch", "resourceVersion", r.latestVersion)
	r.appendLocked(Event[T]{Type: Desynced}, "")
	r.metrics.desync()
}

// appendLocked appends ev to the chain and keeps the version bookkeeping
// consistent with it. Caller must hold mu for writing.
func (r *Reflector[T]) appendLocked(ev Event[T], version string) {
	r.chain.append(ev)
	if version != "" {
		r.latestVersion = version
	}

	switch ev.Type {
	case Synced:
		r.synced = true
		r.syncedOnce.Do(func() { close(r.syncedCh) })
	case Desynced:
		r.synced = false
		r.latestVersion = ""
	}

	r.metrics.event(ev.Type)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Stop tears the Reflector down: it cancels any in-flight List or Watch
// call, appends a terminal Error event so every active observer unwinds,
// and refuses further Runs. A second Stop is a usage error and returns
// ErrStopped.
func (r *Reflector[T]) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrStopped
	}
	r.stopped = true
	cancel := r.cancel

	r.appendLocked(Event[T]{Type: Error, Status: &metav1.Status{
		Status:  metav1.StatusFailure,
		Reason:  StatusReasonStopped,
		Message: "reflector stopped",
	}}, "")
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// Get returns the cached item for namespace/name, if present.
func (r *Reflector[T]) Get(namespace, name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cache.get(objectKey(namespace, name))
}

// List returns the cached items sorted by key.
func (r *Reflector[T]) List() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cache.snapshot()
}

// IsSynced reports whether the cache is currently a complete snapshot of
// some remote version. It goes false again while a resync is in progress.
func (r *Reflector[T]) IsSynced() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.synced
}

// LastResourceVersion returns the most recent resume point, or "" when it
// is unknown (before the first listing, or after a desync).
func (r *Reflector[T]) LastResourceVersion() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latestVersion
}

// WaitForSync blocks until the cache has completed its first full listing,
// or ctx ends.
func (r *Reflector[T]) WaitForSync(ctx context.Context) error {
	select {
	case <-r.syncedCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ---------------------------------------------------------------------------
// Observers
// ---------------------------------------------------------------------------

// ObserveAll returns an independent event sequence for one consumer: an
// Added event per cached item as of the subscription instant (sorted by
// key), a Synced event if the snapshot version was known, then every event
// appended after the snapshot, in order and without gaps. The channel
// closes after delivering an Error event, or when ctx ends. Every call
// produces a fresh sequence from a fresh snapshot.
func (r *Reflector[T]) ObserveAll(ctx context.Context) <-chan Event[T] {
	r.mu.RLock()
	snapshot := r.cache.snapshot()
	version := r.latestVersion
	synced := r.synced
	cursor := r.chain.cursor()
	r.mu.RUnlock()

	log := r.log.With("observer", uuid.NewString())
	out := make(chan Event[T])

	go func() {
		defer close(out)
		log.Debug("observer attached", "items", len(snapshot), "resourceVersion", version)

		for _, obj := range snapshot {
			if !send(ctx, out, Event[T]{Type: Added, Object: obj}) {
				return
			}
		}
		if synced {
			if !send(ctx, out, Event[T]{Type: Synced, ResourceVersion: version}) {
				return
			}
		}

		for {
			if err := cursor.wait(ctx); err != nil {
				log.Debug("observer detached", "reason", err)
				return
			}
			ev := cursor.event
			if !send(ctx, out, ev) {
				return
			}
			if ev.Type == Error {
				log.Debug("observer terminated by error event")
				return
			}
			cursor = cursor.next
		}
	}()

	return out
}

// send delivers ev unless ctx ends first.
func send[T Object](ctx context.Context, out chan<- Event[T], ev Event[T]) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
