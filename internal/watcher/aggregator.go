package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

const subsystem = "Watcher"

// DefaultDebounce is the quiet period applied when none is configured.
// Values between 300ms and 1s work well in practice; shorter windows
// split one save-all into several batches, longer ones feel laggy.
const DefaultDebounce = 500 * time.Millisecond

const (
	observeBuffer = 1024
	batchBuffer   = 16
	errorBuffer   = 8
)

// Options configures an Aggregator.
type Options struct {
	Root           string        // Project root; watched paths are relative to it
	Paths          []string      // Subtrees to watch (default: the root itself)
	Extensions     []string      // Only files with these extensions produce records (empty: all)
	IgnorePatterns []string      // Glob patterns excluded from watching
	Debounce       time.Duration // Quiet period before a batch is emitted
}

// Aggregator turns raw filesystem events into debounced ChangeBatches.
// Events are ingested without blocking the producer, buffered until the
// configured quiet period passes with no new events, then emitted as a
// single ordered batch.
type Aggregator struct {
	opts Options

	observed chan ChangeRecord
	batches  chan ChangeBatch
	errs     chan error

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	fsw     *fsnotify.Watcher
}

// New creates an Aggregator. Start must be called before batches flow.
func New(opts Options) *Aggregator {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if len(opts.Paths) == 0 {
		opts.Paths = []string{"."}
	}
	return &Aggregator{
		opts:     opts,
		observed: make(chan ChangeRecord, observeBuffer),
		batches:  make(chan ChangeBatch, batchBuffer),
		errs:     make(chan error, errorBuffer),
	}
}

// Batches delivers one ChangeBatch per quiet period. The channel is
// closed when the aggregator stops.
func (a *Aggregator) Batches() <-chan ChangeBatch {
	return a.batches
}

// Errors surfaces watch failures. The aggregator keeps running after
// reporting one; a full channel drops the oldest information first.
func (a *Aggregator) Errors() <-chan error {
	return a.errs
}

// Observe feeds a change record into the debounce window without ever
// blocking the caller. Under event storms that outrun the buffer the
// record is dropped and a warning logged.
func (a *Aggregator) Observe(rec ChangeRecord) {
	select {
	case a.observed <- rec:
	default:
		logging.Warn(subsystem, "Event buffer full, dropping change for %s", rec.Path)
	}
}

// Start begins watching the configured paths and running the debounce
// loop. It returns an error if the filesystem watcher cannot be set up;
// after a successful return the aggregator runs until Stop or context
// cancellation.
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return fmt.Errorf("watcher already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}

	for _, p := range a.opts.Paths {
		root := filepath.Join(a.opts.Root, p)
		if err := a.addRecursive(fsw, root); err != nil {
			fsw.Close()
			return fmt.Errorf("watching %s: %w", root, err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.fsw = fsw
	a.cancel = cancel
	a.started = true

	a.wg.Add(2)
	go a.eventLoop(runCtx, fsw)
	go a.debounceLoop(runCtx)

	logging.Info(subsystem, "Watching %s (debounce %s)", a.opts.Root, a.opts.Debounce)
	return nil
}

// Stop shuts the watcher down and closes the Batches channel. Pending
// records that never saw a quiet period are discarded.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	a.started = false
	cancel, fsw := a.cancel, a.fsw
	a.mu.Unlock()

	cancel()
	fsw.Close()
	a.wg.Wait()
	close(a.batches)
	logging.Info(subsystem, "Stopped watching %s", a.opts.Root)
}

// eventLoop converts fsnotify events into change records.
func (a *Aggregator) eventLoop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			a.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			a.reportError(fmt.Errorf("filesystem watch: %w", err))
		}
	}
}

func (a *Aggregator) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	rel, err := filepath.Rel(a.opts.Root, ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	rel = filepath.ToSlash(rel)
	if a.ignored(rel) {
		return
	}

	switch {
	case ev.Op.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			// New directories join the watch; their contents arrive as
			// their own events.
			if err := a.addRecursive(fsw, ev.Name); err != nil {
				a.reportError(fmt.Errorf("watching new directory %s: %w", rel, err))
			}
			return
		}
		a.record(rel, ChangeAdded)
	case ev.Op.Has(fsnotify.Write):
		a.record(rel, ChangeModified)
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		a.record(rel, ChangeRemoved)
	}
}

func (a *Aggregator) record(rel string, kind ChangeKind) {
	if !a.interesting(rel) {
		return
	}
	a.Observe(ChangeRecord{Path: rel, Kind: kind, ObservedAt: time.Now()})
}

// debounceLoop buffers observed records and flushes them as one batch
// once the quiet period elapses with nothing new.
func (a *Aggregator) debounceLoop(ctx context.Context) {
	defer a.wg.Done()

	var (
		pending []ChangeRecord
		timer   *time.Timer
		fire    <-chan time.Time
	)
	stopTimer := func() {
		if timer != nil && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
	defer stopTimer()

	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-a.observed:
			// Collapse bursts of identical events for the same path so a
			// noisy editor save does not pad the batch.
			if n := len(pending); n > 0 && pending[n-1].Path == rec.Path && pending[n-1].Kind == rec.Kind {
				pending[n-1].ObservedAt = rec.ObservedAt
			} else {
				pending = append(pending, rec)
			}
			if timer == nil {
				timer = time.NewTimer(a.opts.Debounce)
				fire = timer.C
			} else {
				stopTimer()
				timer.Reset(a.opts.Debounce)
			}
		case <-fire:
			timer, fire = nil, nil
			if len(pending) == 0 {
				continue
			}
			batch := newBatch(pending)
			pending = nil
			logging.Debug(subsystem, "Emitting batch %s with %d records", batch.ID, len(batch.Records))
			select {
			case a.batches <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (a *Aggregator) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(a.opts.Root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && a.ignored(rel) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func (a *Aggregator) ignored(rel string) bool {
	for _, p := range a.opts.IgnorePatterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
		// "node_modules/**" should also exclude the directory itself.
		if trimmed, found := strings.CutSuffix(p, "/**"); found {
			if ok, _ := doublestar.Match(trimmed, rel); ok {
				return true
			}
		}
	}
	return false
}

func (a *Aggregator) interesting(rel string) bool {
	if len(a.opts.Extensions) == 0 {
		return true
	}
	ext := filepath.Ext(rel)
	for _, e := range a.opts.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func (a *Aggregator) reportError(err error) {
	select {
	case a.errs <- err:
	default:
		logging.Warn(subsystem, "Error channel full, dropping: %v", err)
	}
}
