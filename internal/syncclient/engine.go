// Package syncclient keeps a local copy of the catalog in step with the server: edits
// are pushed as debounced patches, remote changes are picked up by polling the
// version.
package syncclient

import (
	"context"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/shopsync/config"
	"github.com/talkincode/shopsync/internal/domain"
	"github.com/talkincode/shopsync/internal/protocol"
	"github.com/talkincode/shopsync/pkg/metrics"
	"go.uber.org/zap"
)

// Event topics published on the engine bus.
const (
	// TopicChanged carries a *domain.Snapshot copy of the live state.
	TopicChanged = "catalog:changed"
	// TopicFlushed carries the int64 version adopted after a patch.
	TopicFlushed = "sync:flushed"
	// TopicError carries the error of a failed background operation.
	TopicError = "sync:error"
)

var (
	ErrStaleRefresh = errors.New("refresh discarded: local edits happened meanwhile")
	ErrClosed       = errors.New("sync engine closed")
)

// Remote is the server side of the protocol.
type Remote interface {
	// Version returns ok=false when the server answered without a usable version.
	Version(ctx context.Context) (version int64, ok bool, err error)
	State(ctx context.Context) (*domain.Snapshot, error)
	Patch(ctx context.Context, req protocol.PatchRequest) (*protocol.PatchResponse, error)
	ImportChunk(ctx context.Context, req protocol.ImportChunkRequest) (*protocol.ImportChunkResponse, error)
}

type Options struct {
	Debounce     time.Duration
	PollInterval time.Duration
	ChunkSize    int
	// Timeout bounds each background request.
	Timeout time.Duration
}

func OptionsFromConfig(cfg config.SyncConfig) Options {
	return Options{
		Debounce:     cfg.Debounce(),
		PollInterval: cfg.PollInterval(),
		ChunkSize:    cfg.ImportChunkSize,
		Timeout:      cfg.Timeout(),
	}
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = 1200 * time.Millisecond
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 20
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	return o
}

// Engine is the client state container. All state sits behind mu; network calls are
// made without holding it.
type Engine struct {
	remote Remote
	opts   Options
	bus    EventBus.Bus
	pool   *ants.Pool
	sched  *cron.Cron
	log    *zap.Logger

	mu      sync.Mutex
	state   *domain.Snapshot
	last    *domain.Snapshot
	pending bool
	timer   *time.Timer
	closed  bool

	// editSeq counts local mutations, flushSeq numbers outgoing patches and
	// appliedSeq is the newest patch response reconciled so far.
	editSeq    uint64
	flushSeq   uint64
	appliedSeq uint64
}

// New returns an engine with an empty catalog. Call Start to pull the server state and
// begin polling.
func New(remote Remote, opts Options) (*Engine, error) {
	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, errors.Wrap(err, "create flush pool")
	}
	return &Engine{
		remote: remote,
		opts:   opts.withDefaults(),
		bus:    EventBus.New(),
		pool:   pool,
		log:    zap.L().With(zap.String("namespace", "syncclient")),
		state:  emptySnapshot(),
	}, nil
}

func emptySnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Products:   []domain.Product{},
		Categories: []string{},
		Theme:      domain.DefaultTheme,
		PageSize:   domain.DefaultPageSize,
	}
}

// Subscribe registers fn for one of the Topic* events. Handlers run synchronously on
// the goroutine that produced the event.
func (e *Engine) Subscribe(topic string, fn interface{}) error {
	return e.bus.Subscribe(topic, fn)
}

func (e *Engine) Unsubscribe(topic string, fn interface{}) error {
	return e.bus.Unsubscribe(topic, fn)
}

// Snapshot returns a copy of the live state.
func (e *Engine) Snapshot() *domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// LastSnapshot returns a copy of the last state known to match the server, or nil.
func (e *Engine) LastSnapshot() *domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last.Clone()
}

func (e *Engine) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

func (e *Engine) Version() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Version
}

// Start pulls the server state and schedules the version poll. The poll keeps running
// when the first pull fails; its error is returned.
func (e *Engine) Start(ctx context.Context) error {
	err := e.Refresh(ctx)
	if err != nil {
		e.log.Warn("initial refresh failed", zap.Error(err))
	}
	if e.opts.PollInterval <= 0 {
		return err
	}

	logger := cronLogger{zap.S().With("namespace", "syncclient")}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.sched = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	e.sched.Schedule(cron.Every(e.opts.PollInterval), cron.FuncJob(e.pollJob))
	e.sched.Start()
	return err
}

// Close stops polling and the debounce task. Unsent edits are not flushed; call Apply
// first to keep them.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.stopTimerLocked()
	sched := e.sched
	e.mu.Unlock()

	if sched != nil {
		<-sched.Stop().Done()
	}
	e.pool.Release()
}

// Apply sends pending edits right away, cancelling the debounce task.
func (e *Engine) Apply(ctx context.Context) error {
	e.mu.Lock()
	e.stopTimerLocked()
	e.mu.Unlock()
	return e.flush(ctx)
}

// Poll asks the server for its version and refreshes when it moved ahead. A poll is
// skipped while local edits are pending.
func (e *Engine) Poll(ctx context.Context) error {
	version, ok, err := e.remote.Version(ctx)
	if err != nil {
		return errors.Wrap(err, "poll version")
	}
	if !ok {
		return nil
	}
	e.mu.Lock()
	skip := e.pending || version <= e.state.Version
	e.mu.Unlock()
	if skip {
		return nil
	}
	err = e.pull(ctx, false)
	if errors.Is(err, ErrStaleRefresh) {
		return nil
	}
	return err
}

// Refresh replaces the live state with the server state. It fails with
// ErrStaleRefresh when an edit was made while the request was in flight.
func (e *Engine) Refresh(ctx context.Context) error {
	return e.pull(ctx, true)
}

// ResetToSeed drops local edits and reloads the server state. When the server cannot be
// reached the last synchronized snapshot is restored.
func (e *Engine) ResetToSeed(ctx context.Context) error {
	e.mu.Lock()
	e.stopTimerLocked()
	e.editSeq++
	e.pending = false
	if e.last != nil {
		e.state = e.last.Clone()
	}
	e.mu.Unlock()

	err := e.pull(ctx, true)
	if err != nil {
		e.emit(TopicChanged, e.Snapshot())
	}
	return err
}

// RestoreLastSnapshot discards local edits in favour of the last synchronized
// snapshot, or refreshes when there is none.
func (e *Engine) RestoreLastSnapshot(ctx context.Context) error {
	e.mu.Lock()
	if e.last == nil {
		e.mu.Unlock()
		return e.Refresh(ctx)
	}
	e.stopTimerLocked()
	e.editSeq++
	e.pending = false
	e.state = e.last.Clone()
	snap := e.state.Clone()
	e.mu.Unlock()

	e.emit(TopicChanged, snap)
	return nil
}

// pull fetches the full state. force adopts it even when edits were pending before the
// request; edits made while the request was in flight always win.
func (e *Engine) pull(ctx context.Context, force bool) error {
	e.mu.Lock()
	edit := e.editSeq
	e.mu.Unlock()

	snap, err := e.remote.State(ctx)

	e.mu.Lock()
	if err != nil {
		if !e.pending && e.last != nil {
			e.state = e.last.Clone()
		}
		e.mu.Unlock()
		e.log.Warn("refresh failed", zap.Error(err))
		return errors.Wrap(err, "load state")
	}
	if e.editSeq != edit || (!force && e.pending) {
		e.mu.Unlock()
		e.log.Debug("refresh discarded", zap.Int64("version", snap.Version))
		return ErrStaleRefresh
	}
	e.stopTimerLocked()
	e.adoptLocked(snap)
	out := e.state.Clone()
	e.mu.Unlock()

	e.log.Debug("state refreshed", zap.Int64("version", out.Version), zap.Int("products", len(out.Products)))
	e.emit(TopicChanged, out)
	return nil
}

func (e *Engine) adoptLocked(snap *domain.Snapshot) {
	if snap.Products == nil {
		snap.Products = []domain.Product{}
	}
	if snap.Categories == nil {
		snap.Categories = []string{}
	}
	domain.SortProductsByID(snap.Products)
	e.state = snap.Clone()
	e.last = snap.Clone()
	e.pending = false
}

// flush sends the difference between the live state and the last synchronized
// snapshot as one patch.
func (e *Engine) flush(ctx context.Context) error {
	e.mu.Lock()
	cur := e.state.Clone()
	prev := e.last.Clone()
	edit := e.editSeq
	d := protocol.BuildDiff(prev, cur)
	if d.Empty() {
		if e.editSeq == edit {
			e.pending = false
		}
		e.mu.Unlock()
		return nil
	}
	e.flushSeq++
	seq := e.flushSeq
	e.mu.Unlock()

	start := time.Now()
	resp, err := e.remote.Patch(ctx, d.Request())
	metrics.Observe("sync_flush_ms", time.Since(start))

	e.mu.Lock()
	if err != nil {
		e.pending = true
		e.mu.Unlock()
		e.log.Error("flush failed", zap.Uint64("seq", seq), zap.Error(err))
		e.emit(TopicError, err)
		return errors.Wrap(err, "send patch")
	}
	if applied := e.appliedSeq; seq < applied {
		e.mu.Unlock()
		e.log.Debug("stale flush response discarded", zap.Uint64("seq", seq), zap.Uint64("applied", applied))
		return nil
	}
	e.appliedSeq = seq

	version := cur.Version + 1
	if resp.Version != nil {
		version = *resp.Version
	}
	sent := cur
	sent.Version = version
	if resp.Categories != nil {
		sent.Categories = append([]string{}, resp.Categories...)
	}
	e.last = sent
	e.state.Version = version
	if e.editSeq == edit {
		e.state.Categories = append([]string{}, sent.Categories...)
		e.pending = false
	} else {
		e.armLocked()
	}
	out := e.state.Clone()
	e.mu.Unlock()

	e.log.Info("catalog flushed",
		zap.Uint64("seq", seq),
		zap.Int("upserts", len(d.Upserts)),
		zap.Int("deletes", len(d.DeletedIDs)),
		zap.Int64("version", version))
	e.emit(TopicFlushed, version)
	e.emit(TopicChanged, out)
	return nil
}

// markDirtyLocked records a local edit and re-arms the debounce task.
func (e *Engine) markDirtyLocked() {
	e.editSeq++
	e.pending = true
	e.armLocked()
}

func (e *Engine) armLocked() {
	if e.closed {
		return
	}
	e.stopTimerLocked()
	e.timer = time.AfterFunc(e.opts.Debounce, e.onDebounce)
}

func (e *Engine) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) onDebounce() {
	err := e.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.opts.Timeout)
		defer cancel()
		// errors are logged and published by flush
		_ = e.flush(ctx)
	})
	if err != nil {
		e.log.Debug("debounced flush not scheduled", zap.Error(err))
	}
}

func (e *Engine) pollJob() {
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.Timeout)
	defer cancel()
	if err := e.Poll(ctx); err != nil {
		e.log.Warn("poll failed", zap.Error(err))
		e.emit(TopicError, err)
	}
}

func (e *Engine) emit(topic string, arg interface{}) {
	if e.bus.HasCallback(topic) {
		e.bus.Publish(topic, arg)
	}
}

// cronLogger routes cron's own logging into zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
