package collectors

import (
	"context"
	"fmt"

	"github.com/perchlab/perch/internal/model"
	"github.com/perchlab/perch/internal/plugin"
	"github.com/perchlab/perch/internal/schema"
	"github.com/shirou/gopsutil/v4/load"
)

// LoadAvg builds the system load average plugin.
func LoadAvg(opts plugin.Options) (*plugin.Plugin, error) {
	s := schema.New()
	err := s.DeclareGroup("load", []model.Field{
		{Name: "load1", Kind: model.KindFloat},
		{Name: "load5", Kind: model.KindFloat},
		{Name: "load15", Kind: model.KindFloat},
	}, model.HintLine)
	if err != nil {
		return nil, err
	}

	producer := func(ctx context.Context) (schema.Batch, error) {
		avg, err := load.AvgWithContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("load average: %w", err)
		}
		batch := s.NewBatch()
		group := batch["load"]
		if err := group.SetFloat("load1", avg.Load1); err != nil {
			return nil, err
		}
		if err := group.SetFloat("load5", avg.Load5); err != nil {
			return nil, err
		}
		if err := group.SetFloat("load15", avg.Load15); err != nil {
			return nil, err
		}
		return batch, nil
	}

	return plugin.New(props("loadavg", "System load averages", opts), s, producer)
}
