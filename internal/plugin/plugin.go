// Package plugin defines the polled-plugin contract and the build-time
// registry that resolves configured plugin names into instances.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/perchlab/perch/internal/model"
	"github.com/perchlab/perch/internal/schema"
)

var (
	// ErrConfiguration marks a plugin that cannot be made valid:
	// missing identity or an empty schema. Fatal at startup for that
	// plugin only.
	ErrConfiguration = errors.New("plugin configuration error")

	// ErrNoProducer is returned at registration time for a plugin
	// without a producer. Producers are context-aware by contract;
	// absence is the registration-time contract violation.
	ErrNoProducer = errors.New("plugin has no producer")
)

// Producer yields one cycle's sample data. It must honor ctx: producer
// invocation is a suspension point and may not block the scheduler
// past cancellation.
type Producer func(ctx context.Context) (schema.Batch, error)

// Properties is the read-only identity of a plugin.
type Properties struct {
	Name        string
	Description string
	Priority    int // reserved for future ordering, currently unenforced
	Every       time.Duration
}

// Plugin is one named polling unit: identity, a frozen field schema,
// a producer, and mutable run state written by the scheduler and read
// by the query layer.
type Plugin struct {
	props    Properties
	schema   *schema.Schema
	producer Producer

	mu     sync.Mutex
	lastAt time.Time
	lastOK bool
	ran    bool
}

// New builds a plugin and freezes its schema. A nil producer or an
// empty schema is rejected here; empty identity fields are not — they
// fail later at Properties(), as a registration precondition.
func New(props Properties, sch *schema.Schema, producer Producer) (*Plugin, error) {
	if producer == nil {
		return nil, fmt.Errorf("plugin %q: %w", props.Name, ErrNoProducer)
	}
	if sch == nil || len(sch.Groups()) == 0 {
		return nil, fmt.Errorf("%w: plugin %q declares no field groups", ErrConfiguration, props.Name)
	}
	if props.Every <= 0 {
		props.Every = model.DefaultEvery
	}
	sch.Freeze()
	return &Plugin{props: props, schema: sch, producer: producer}, nil
}

// Name returns the raw plugin name, valid or not.
func (p *Plugin) Name() string { return p.props.Name }

// Properties returns the identity tuple. It fails with
// ErrConfiguration when name or description is empty.
func (p *Plugin) Properties() (Properties, error) {
	if p.props.Name == "" || p.props.Description == "" {
		return Properties{}, fmt.Errorf("%w: name and description must be set", ErrConfiguration)
	}
	return p.props, nil
}

// Schema returns the frozen field schema.
func (p *Plugin) Schema() *schema.Schema { return p.schema }

// Produce invokes the producer for one cycle.
func (p *Plugin) Produce(ctx context.Context) (schema.Batch, error) {
	return p.producer(ctx)
}

// MarkExecuted records the start of a cycle. The scheduler calls this
// unconditionally before invoking the producer.
func (p *Plugin) MarkExecuted(at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastAt = at
}

// RecordResult records the outcome of the cycle started last.
func (p *Plugin) RecordResult(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastOK = ok
	p.ran = true
}

// LastExecution returns the last cycle start time and result.
// ran is false before the first cycle completes recording.
func (p *Plugin) LastExecution() (at time.Time, ok bool, ran bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastAt, p.lastOK, p.ran
}

// Status assembles the metadata row served by the query layer.
func (p *Plugin) Status() model.PluginStatus {
	status := model.PluginStatus{
		Description: p.props.Description,
		Every:       int(p.props.Every / time.Minute),
		Priority:    p.props.Priority,
	}
	if status.Every < 1 {
		status.Every = 1
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.lastAt.IsZero() {
		epoch := p.lastAt.Unix()
		status.LastExecutedAt = &epoch
	}
	if p.ran {
		ok := p.lastOK
		status.LastExecutedResult = &ok
	}
	return status
}
