package collectors

import (
	"context"
	"errors"
	"fmt"

	"github.com/perchlab/perch/internal/model"
	"github.com/perchlab/perch/internal/plugin"
	"github.com/perchlab/perch/internal/schema"
	gnet "github.com/shirou/gopsutil/v4/net"
)

// NetIO builds the network traffic counters plugin. Counters are
// cumulative since boot; charts show the raw series.
func NetIO(opts plugin.Options) (*plugin.Plugin, error) {
	s := schema.New()
	err := s.DeclareGroup("traffic", []model.Field{
		{Name: "sent", Kind: model.KindInt},
		{Name: "recv", Kind: model.KindInt},
	}, model.HintLine)
	if err != nil {
		return nil, err
	}

	producer := func(ctx context.Context) (schema.Batch, error) {
		counters, err := gnet.IOCountersWithContext(ctx, false)
		if err != nil {
			return nil, fmt.Errorf("net io counters: %w", err)
		}
		if len(counters) == 0 {
			return nil, errors.New("net io counters: no interfaces")
		}
		batch := s.NewBatch()
		traffic := batch["traffic"]
		if err := traffic.SetInt("sent", int64(counters[0].BytesSent)); err != nil {
			return nil, err
		}
		if err := traffic.SetInt("recv", int64(counters[0].BytesRecv)); err != nil {
			return nil, err
		}
		return batch, nil
	}

	return plugin.New(props("netio", "Aggregate network bytes sent/received", opts), s, producer)
}
