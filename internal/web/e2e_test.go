package web

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchlab/perch/internal/memstore"
	"github.com/perchlab/perch/internal/model"
	"github.com/perchlab/perch/internal/plugin"
	"github.com/perchlab/perch/internal/query"
	"github.com/perchlab/perch/internal/schema"
	"github.com/perchlab/perch/internal/scheduler"
)

// End-to-end: scheduler polls a plugin, persists to the store, and the
// HTTP layer serves the resulting charts and metadata.
func TestPollPersistQueryLoop(t *testing.T) {
	s := schema.New()
	err := s.DeclareGroup("usage", []model.Field{
		{Name: "free", Kind: model.KindInt},
		{Name: "used", Kind: model.KindInt},
	}, model.HintLine)
	require.NoError(t, err)

	p, err := plugin.New(plugin.Properties{
		Name:        "disk",
		Description: "Disk usage",
		Every:       time.Minute,
	}, s, func(ctx context.Context) (schema.Batch, error) {
		batch := s.NewBatch()
		require.NoError(t, batch["usage"].SetInt("free", 500))
		require.NoError(t, batch["usage"].SetInt("used", 1500))
		return batch, nil
	})
	require.NoError(t, err)

	store := memstore.New()
	runner := scheduler.New(store, nil)

	// The first tick fires immediately; one cycle completes well
	// within the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, runner.Run(ctx, []*plugin.Plugin{p}))

	require.Equal(t, 1, store.Count())

	handler := query.NewHandler([]*plugin.Plugin{p}, store)
	srv := NewServer(Config{}, handler, store, nil, nil)
	r, err := srv.Router()
	require.NoError(t, err)

	rr := get(r, "/plugins/disk")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		LastExecutedAt     *int64 `json:"lastExecutedAt"`
		LastExecutedResult *bool  `json:"lastExecutedResult"`
		Data               map[string]struct {
			Data [][]any `json:"data"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	require.NotNil(t, body.LastExecutedAt)
	require.NotNil(t, body.LastExecutedResult)
	assert.True(t, *body.LastExecutedResult)

	usage := body.Data["usage"]
	require.Len(t, usage.Data, 1)
	assert.EqualValues(t, 500, usage.Data[0][1])
	assert.EqualValues(t, 1500, usage.Data[0][2])
}
