// Package scheduler runs one independent recurring timer per plugin.
//
// Each plugin loops Idle -> Running -> (Success | Failed) -> Idle until
// the run context is cancelled. The first tick fires immediately on
// startup; every later tick is armed only after the current cycle
// completes, so a slow producer delays its own plugin and nothing else.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/perchlab/perch/internal/model"
	"github.com/perchlab/perch/internal/plugin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultPersistGrace bounds how long an in-flight persist may keep
// running after shutdown begins.
const DefaultPersistGrace = 5 * time.Second

// CycleResult is the outcome of one completed cycle, published to
// subscribers (the websocket relay among them). Err carries the actual
// failure detail; isolation must not destroy diagnosability.
type CycleResult struct {
	Plugin    string
	At        time.Time
	Persisted bool
	Groups    map[string][]model.Value
	Err       error
}

// Config holds tunable runner parameters.
type Config struct {
	PersistGrace time.Duration
}

// Runner drives the per-plugin timers and forwards successful output
// to the sample store.
type Runner struct {
	store  model.SampleWriter
	logger *zap.Logger
	grace  time.Duration

	mu   sync.Mutex
	subs map[chan CycleResult]struct{}
}

// New creates a runner writing to store.
func New(store model.SampleWriter, logger *zap.Logger, conf ...Config) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	grace := DefaultPersistGrace
	if len(conf) > 0 && conf[0].PersistGrace > 0 {
		grace = conf[0].PersistGrace
	}
	return &Runner{
		store:  store,
		logger: logger,
		grace:  grace,
		subs:   make(map[chan CycleResult]struct{}),
	}
}

// Subscribe registers a listener for completed cycles. Slow listeners
// drop results rather than stalling the scheduler.
func (r *Runner) Subscribe() chan CycleResult {
	ch := make(chan CycleResult, 16)
	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a listener channel.
func (r *Runner) Unsubscribe(ch chan CycleResult) {
	r.mu.Lock()
	if _, ok := r.subs[ch]; ok {
		delete(r.subs, ch)
		close(ch)
	}
	r.mu.Unlock()
}

func (r *Runner) publish(res CycleResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subs {
		select {
		case ch <- res:
		default:
		}
	}
}

// Run starts one loop per plugin and blocks until ctx is cancelled and
// every loop has wound down.
func (r *Runner) Run(ctx context.Context, plugins []*plugin.Plugin) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range plugins {
		g.Go(func() error {
			r.loop(gctx, p)
			return nil
		})
	}
	err := g.Wait()

	r.mu.Lock()
	for ch := range r.subs {
		delete(r.subs, ch)
		close(ch)
	}
	r.mu.Unlock()
	return err
}

func (r *Runner) loop(ctx context.Context, p *plugin.Plugin) {
	props, err := p.Properties()
	if err != nil {
		// Registry screens identity before plugins reach the runner.
		r.logger.Error("refusing to schedule plugin", zap.String("plugin", p.Name()), zap.Error(err))
		return
	}

	r.logger.Info("scheduling plugin",
		zap.String("plugin", props.Name),
		zap.Duration("every", props.Every))

	// First cycle fires immediately so a fresh start charts data
	// without waiting out a full interval.
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		r.cycle(ctx, p)
		timer.Reset(props.Every)
	}
}

// cycle executes one tick: record the start unconditionally, invoke
// the producer, then either persist the complete batch or record the
// failure. Failures stay inside this plugin's loop.
func (r *Runner) cycle(ctx context.Context, p *plugin.Plugin) {
	now := time.Now()
	p.MarkExecuted(now)

	res := CycleResult{Plugin: p.Name(), At: now}

	batch, err := p.Produce(ctx)
	if err != nil {
		p.RecordResult(false)
		res.Err = fmt.Errorf("producer: %w", err)
		r.logger.Error("cycle failed", zap.String("plugin", p.Name()), zap.Error(err))
		r.publish(res)
		return
	}

	if len(batch) == 0 {
		// Recoverable: no exception, no data. The result stays true
		// but nothing reaches the store.
		p.RecordResult(true)
		r.logger.Warn("producer returned no data", zap.String("plugin", p.Name()))
		r.publish(res)
		return
	}

	// All-or-nothing: an incomplete container anywhere fails the whole
	// cycle before anything is persisted.
	groups := make(map[string][]model.Value, len(batch))
	names := make([]string, 0, len(batch))
	for name, container := range batch {
		values, verr := container.Values()
		if verr != nil {
			p.RecordResult(false)
			res.Err = verr
			r.logger.Error("cycle produced a partial record",
				zap.String("plugin", p.Name()),
				zap.String("group", name),
				zap.Error(verr))
			r.publish(res)
			return
		}
		groups[name] = values
		names = append(names, name)
	}
	sort.Strings(names)

	// Persists run on a detached context so shutdown never tears a
	// sample mid-write; the grace period bounds them instead.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.grace)
	defer cancel()

	for _, name := range names {
		sample := model.Sample{CreatedAt: now, Values: groups[name]}
		if err := r.store.Persist(pctx, p.Name(), name, sample); err != nil {
			p.RecordResult(false)
			res.Err = fmt.Errorf("persist group %q: %w", name, err)
			r.logger.Error("persist failed",
				zap.String("plugin", p.Name()),
				zap.String("group", name),
				zap.Error(err))
			r.publish(res)
			return
		}
	}

	p.RecordResult(true)
	res.Persisted = true
	res.Groups = groups
	r.publish(res)
}
