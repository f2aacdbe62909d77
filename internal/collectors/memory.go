package collectors

import (
	"context"
	"fmt"

	"github.com/perchlab/perch/internal/model"
	"github.com/perchlab/perch/internal/plugin"
	"github.com/perchlab/perch/internal/schema"
	"github.com/shirou/gopsutil/v4/mem"
)

// Memory builds the virtual-memory usage plugin.
func Memory(opts plugin.Options) (*plugin.Plugin, error) {
	s := schema.New()
	err := s.DeclareGroup("virtual", []model.Field{
		{Name: "used", Kind: model.KindInt},
		{Name: "cached", Kind: model.KindInt},
		{Name: "free", Kind: model.KindInt},
	}, model.HintStack)
	if err != nil {
		return nil, err
	}

	producer := func(ctx context.Context) (schema.Batch, error) {
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("virtual memory: %w", err)
		}
		batch := s.NewBatch()
		virtual := batch["virtual"]
		if err := virtual.SetInt("used", int64(vm.Used)); err != nil {
			return nil, err
		}
		if err := virtual.SetInt("cached", int64(vm.Cached)); err != nil {
			return nil, err
		}
		if err := virtual.SetInt("free", int64(vm.Free)); err != nil {
			return nil, err
		}
		return batch, nil
	}

	return plugin.New(props("memory", "Virtual memory usage in bytes", opts), s, producer)
}
