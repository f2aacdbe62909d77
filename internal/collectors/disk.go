package collectors

import (
	"context"
	"fmt"

	"github.com/perchlab/perch/internal/model"
	"github.com/perchlab/perch/internal/plugin"
	"github.com/perchlab/perch/internal/schema"
	"github.com/shirou/gopsutil/v4/disk"
)

// Disk builds the root-filesystem usage plugin.
func Disk(opts plugin.Options) (*plugin.Plugin, error) {
	s := schema.New()
	err := s.DeclareGroup("usage", []model.Field{
		{Name: "free", Kind: model.KindInt},
		{Name: "used", Kind: model.KindInt},
	}, model.HintLine)
	if err != nil {
		return nil, err
	}

	producer := func(ctx context.Context) (schema.Batch, error) {
		du, err := disk.UsageWithContext(ctx, "/")
		if err != nil {
			return nil, fmt.Errorf("disk usage: %w", err)
		}
		batch := s.NewBatch()
		usage := batch["usage"]
		if err := usage.SetInt("free", int64(du.Free)); err != nil {
			return nil, err
		}
		if err := usage.SetInt("used", int64(du.Used)); err != nil {
			return nil, err
		}
		return batch, nil
	}

	return plugin.New(props("disk", "Root filesystem usage in bytes", opts), s, producer)
}
