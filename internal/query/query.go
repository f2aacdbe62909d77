// Package query translates stored samples plus field metadata into
// chart-ready rows for the HTTP layer.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/perchlab/perch/internal/model"
	"github.com/perchlab/perch/internal/plugin"
)

// ErrNotFound is returned for queries against unregistered plugins.
var ErrNotFound = errors.New("plugin not found")

// Handler answers metadata and range queries over the registered
// plugins and the sample store.
type Handler struct {
	plugins map[string]*plugin.Plugin
	names   []string
	store   model.SampleReader
}

// NewHandler indexes the registered plugins. Registration order is
// preserved for stable listings.
func NewHandler(plugins []*plugin.Plugin, store model.SampleReader) *Handler {
	h := &Handler{
		plugins: make(map[string]*plugin.Plugin, len(plugins)),
		store:   store,
	}
	for _, p := range plugins {
		h.plugins[p.Name()] = p
		h.names = append(h.names, p.Name())
	}
	return h
}

// Names returns plugin names in registration order.
func (h *Handler) Names() []string {
	return append([]string(nil), h.names...)
}

// Plugins returns the metadata mapping served by /plugins/list.
func (h *Handler) Plugins() map[string]model.PluginStatus {
	out := make(map[string]model.PluginStatus, len(h.plugins))
	for name, p := range h.plugins {
		out[name] = p.Status()
	}
	return out
}

// Logs builds chart data for every field group of one plugin over
// [gte, lte]. Rows are [epochSeconds, v1, v2, ...] in declaration
// order, ascending by time.
func (h *Handler) Logs(ctx context.Context, name string, gte, lte time.Time) (map[string]model.GroupChart, error) {
	p, ok := h.plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	out := make(map[string]model.GroupChart)
	for _, group := range p.Schema().Groups() {
		legends := make([]string, 0, len(group.Fields)+1)
		legends = append(legends, "created")
		for _, f := range group.Fields {
			legends = append(legends, f.Name)
		}

		samples, err := h.store.Samples(ctx, name, group.Name, gte, lte)
		if err != nil {
			return nil, fmt.Errorf("query %s/%s: %w", name, group.Name, err)
		}

		rows := make([][]any, 0, len(samples))
		for _, sample := range samples {
			row := make([]any, 0, len(sample.Values)+1)
			row = append(row, sample.CreatedAt.Unix())
			for _, v := range sample.Values {
				row = append(row, v.Num())
			}
			rows = append(rows, row)
		}

		out[group.Name] = model.GroupChart{
			Type:    group.Hint,
			Legends: legends,
			Data:    rows,
		}
	}
	return out, nil
}
