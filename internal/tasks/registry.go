package tasks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MimeLyc/subtitle-studio/pkg/log"
	"github.com/google/uuid"
)

type entry struct {
	rec       *Record
	seq       uint64
	runner    Runner
	cancel    context.CancelFunc
	cancelled bool
	done      chan struct{}
}

// Registry owns every task record of the process and runs submitted tasks on a
// fixed number of workers. Readers only ever receive snapshots.
type Registry struct {
	workerCount int
	store       Store

	mu      sync.RWMutex
	tasks   map[string]*entry
	seq     uint64
	started bool
	pending chan string

	ctx      context.Context
	stop     context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewRegistry(workerCount int, store Store) *Registry {
	if workerCount <= 0 {
		workerCount = 1
	}
	ctx, stop := context.WithCancel(context.Background())
	r := &Registry{
		workerCount: workerCount,
		store:       store,
		tasks:       make(map[string]*entry),
		pending:     make(chan string, 1024),
		ctx:         ctx,
		stop:        stop,
	}
	r.hydrateFromStore(context.Background())
	return r
}

// Create registers a pending task without work attached.
func (r *Registry) Create(kind Kind, input string) *Record {
	e := r.add(kind, input, nil)
	return r.snapshot(e)
}

// Submit registers a task and queues runner for execution.
func (r *Registry) Submit(kind Kind, input string, runner Runner) *Handle {
	e := r.add(kind, input, runner)

	r.mu.RLock()
	started := r.started
	r.mu.RUnlock()
	if started {
		r.enqueue(e.rec.ID)
	}
	return &Handle{ID: e.rec.ID, done: e.done, registry: r}
}

func (r *Registry) add(kind Kind, input string, runner Runner) *entry {
	now := time.Now()

	r.mu.Lock()
	r.seq++
	e := &entry{
		rec: &Record{
			ID:        uuid.NewString(),
			Kind:      kind,
			Status:    StatusPending,
			Input:     input,
			CreatedAt: now,
			UpdatedAt: now,
		},
		seq:    r.seq,
		runner: runner,
		done:   make(chan struct{}),
	}
	r.tasks[e.rec.ID] = e
	snapshot := e.rec.Clone()
	r.mu.Unlock()

	log.Debug("Task %s (%s) created for %s", snapshot.ID, kind, input)
	r.persist(snapshot)
	return e
}

func (r *Registry) Get(id string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tasks[id]
	if !ok {
		return nil, false
	}
	return e.rec.Clone(), true
}

// List returns every task, newest first.
func (r *Registry) List() []*Record {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.tasks))
	for _, e := range r.tasks {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.rec.CreatedAt.Equal(b.rec.CreatedAt) {
			return a.rec.CreatedAt.After(b.rec.CreatedAt)
		}
		return a.seq > b.seq
	})
	ret := make([]*Record, 0, len(entries))
	for _, e := range entries {
		ret = append(ret, e.rec.Clone())
	}
	r.mu.RUnlock()
	return ret
}

// Cancel stops a pending or processing task. A pending task fails immediately; a
// processing one fails once its runner returns. It reports whether the task
// existed and was still cancellable.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	e, ok := r.tasks[id]
	if !ok || e.rec.Status.Terminal() || e.cancelled {
		r.mu.Unlock()
		return false
	}
	e.cancelled = true

	if e.rec.Status == StatusPending {
		snapshot := r.failLocked(e, CancelledMessage)
		r.mu.Unlock()
		log.Info("Task %s cancelled before start", id)
		r.persist(snapshot)
		return true
	}

	cancel := e.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	log.Info("Task %s cancellation requested", id)
	return true
}

// Start launches the workers and queues tasks submitted before.
func (r *Registry) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true

	queued := make([]*entry, 0)
	for _, e := range r.tasks {
		if e.rec.Status == StatusPending && e.runner != nil {
			queued = append(queued, e)
		}
	}
	sort.Slice(queued, func(i, j int) bool { return queued[i].seq < queued[j].seq })
	r.mu.Unlock()

	for _, e := range queued {
		r.enqueue(e.rec.ID)
	}

	for range r.workerCount {
		r.wg.Add(1)
		go r.worker()
	}
}

// Stop cancels running tasks and waits for the workers to exit. Tasks still
// pending stay pending.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		r.stop()
		r.wg.Wait()
	})
}

func (r *Registry) worker() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case id := <-r.pending:
			r.run(id)
		}
	}
}

func (r *Registry) run(id string) {
	ctx, cancel := context.WithCancel(r.ctx)
	defer cancel()

	runner, ok := r.markProcessing(id, cancel)
	if !ok {
		return
	}

	result, err := safeRun(ctx, runner, &reporter{registry: r, id: id})
	r.finish(id, result, err)
}

func safeRun(ctx context.Context, runner Runner, rep Reporter) (result *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return runner(ctx, rep)
}

func (r *Registry) enqueue(id string) {
	select {
	case r.pending <- id:
	default:
		go func() {
			select {
			case r.pending <- id:
			case <-r.ctx.Done():
			}
		}()
	}
}

func (r *Registry) markProcessing(id string, cancel context.CancelFunc) (Runner, bool) {
	r.mu.Lock()
	e, ok := r.tasks[id]
	if !ok || e.rec.Status != StatusPending || e.runner == nil {
		r.mu.Unlock()
		return nil, false
	}
	e.rec.Status = StatusProcessing
	e.rec.UpdatedAt = time.Now()
	e.cancel = cancel
	runner := e.runner
	snapshot := e.rec.Clone()
	r.mu.Unlock()

	log.Info("Task %s processing %s", id, snapshot.Input)
	r.persist(snapshot)
	return runner, true
}

func (r *Registry) finish(id string, result *Result, err error) {
	r.mu.Lock()
	e, ok := r.tasks[id]
	if !ok || e.rec.Status != StatusProcessing {
		r.mu.Unlock()
		return
	}
	e.cancel = nil

	var snapshot *Record
	switch {
	case e.cancelled:
		snapshot = r.failLocked(e, CancelledMessage)
	case err != nil:
		snapshot = r.failLocked(e, err.Error())
	default:
		e.rec.Status = StatusCompleted
		e.rec.Progress = 100
		e.rec.Result = result
		e.rec.Error = ""
		e.rec.UpdatedAt = time.Now()
		e.runner = nil
		close(e.done)
		snapshot = e.rec.Clone()
	}
	r.mu.Unlock()

	if snapshot.Status == StatusFailed {
		log.Error("Task %s failed: %s", id, snapshot.Error)
	} else {
		log.Info("Task %s completed", id)
	}
	r.persist(snapshot)
}

// failLocked moves e to failed and releases its waiters. r.mu must be held.
func (r *Registry) failLocked(e *entry, message string) *Record {
	e.rec.Status = StatusFailed
	e.rec.Progress = ProgressErrored
	e.rec.Result = nil
	e.rec.Error = message
	e.rec.UpdatedAt = time.Now()
	e.runner = nil
	close(e.done)
	return e.rec.Clone()
}

func (r *Registry) progress(id string, percent int) {
	percent = min(max(percent, 0), 100)

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[id]
	if !ok || e.rec.Status != StatusProcessing || percent <= e.rec.Progress {
		return
	}
	e.rec.Progress = percent
	e.rec.UpdatedAt = time.Now()
}

func (r *Registry) snapshot(e *entry) *Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return e.rec.Clone()
}

func (r *Registry) hydrateFromStore(ctx context.Context) {
	if r.store == nil {
		return
	}
	loaded, err := r.store.LoadTasks(ctx)
	if err != nil {
		log.Error("Failed to load tasks from store: %v", err)
		return
	}
	valid := make([]*Record, 0, len(loaded))
	for _, raw := range loaded {
		if raw != nil && raw.ID != "" {
			valid = append(valid, raw)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].CreatedAt.Before(valid[j].CreatedAt)
	})

	now := time.Now()
	interrupted := make([]*Record, 0)
	r.mu.Lock()
	for _, raw := range valid {
		r.seq++
		e := &entry{rec: raw.Clone(), seq: r.seq, done: make(chan struct{})}
		close(e.done)
		if !e.rec.Status.Terminal() {
			e.rec.Status = StatusFailed
			e.rec.Progress = ProgressErrored
			e.rec.Error = InterruptedMessage
			e.rec.UpdatedAt = now
			interrupted = append(interrupted, e.rec.Clone())
		}
		r.tasks[e.rec.ID] = e
	}
	r.mu.Unlock()

	if len(interrupted) > 0 {
		log.Warn("Marked %d unfinished tasks as interrupted", len(interrupted))
	}
	for _, rec := range interrupted {
		r.persist(rec)
	}
}

func (r *Registry) persist(rec *Record) {
	if r.store == nil || rec == nil {
		return
	}
	if err := r.store.UpsertTask(context.Background(), rec); err != nil {
		log.Error("Failed to persist task %s: %v", rec.ID, err)
	}
}

type reporter struct {
	registry *Registry
	id       string
}

func (p *reporter) Progress(percent int) {
	p.registry.progress(p.id, percent)
}
