package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchlab/perch/internal/memstore"
	"github.com/perchlab/perch/internal/model"
	"github.com/perchlab/perch/internal/plugin"
	"github.com/perchlab/perch/internal/query"
	"github.com/perchlab/perch/internal/schema"
	"github.com/perchlab/perch/internal/scheduler"
)

func diskPlugin(t *testing.T) *plugin.Plugin {
	t.Helper()
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
		return nil, nil
	})
	require.NoError(t, err)
	return p
}

func newTestRouter(t *testing.T, conf Config, feed CycleFeed) (*gin.Engine, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	handler := query.NewHandler([]*plugin.Plugin{diskPlugin(t)}, store)
	srv := NewServer(conf, handler, store, feed, nil)
	r, err := srv.Router()
	require.NoError(t, err)
	return r, store
}

func persistUsage(t *testing.T, store *memstore.Store, at time.Time, free, used int64) {
	t.Helper()
	err := store.Persist(context.Background(), "disk", "usage", model.Sample{
		CreatedAt: at,
		Values: []model.Value{
			{Name: "free", Kind: model.KindInt, Int: free},
			{Name: "used", Kind: model.KindInt, Int: used},
		},
	})
	require.NoError(t, err)
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(rr, req)
	return rr
}

func TestListEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, Config{}, nil)

	rr := get(r, "/plugins/list")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]struct {
		Description        string `json:"description"`
		Every              int    `json:"every"`
		LastExecutedAt     *int64 `json:"lastExecutedAt"`
		LastExecutedResult *bool  `json:"lastExecutedResult"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	disk, ok := body["disk"]
	require.True(t, ok)
	assert.Equal(t, "Disk usage", disk.Description)
	assert.Equal(t, 1, disk.Every)
	assert.Nil(t, disk.LastExecutedAt)
	assert.Nil(t, disk.LastExecutedResult)
}

func TestPluginEndpointReturnsCharts(t *testing.T) {
	r, store := newTestRouter(t, Config{}, nil)
	at := time.Now().Add(-time.Hour)
	persistUsage(t, store, at, 500, 1500)

	rr := get(r, "/plugins/disk")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Name string `json:"name"`
		Data map[string]struct {
			Type    string  `json:"type"`
			Legends []string `json:"legends"`
			Data    [][]any `json:"data"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	assert.Equal(t, "disk", body.Name)
	usage, ok := body.Data["usage"]
	require.True(t, ok)
	assert.Equal(t, "line", usage.Type)
	assert.Equal(t, []string{"created", "free", "used"}, usage.Legends)
	require.Len(t, usage.Data, 1)
	require.Len(t, usage.Data[0], 3)
	assert.EqualValues(t, at.Unix(), usage.Data[0][0])
	assert.EqualValues(t, 500, usage.Data[0][1])
	assert.EqualValues(t, 1500, usage.Data[0][2])
}

func TestPluginEndpointUnknown(t *testing.T) {
	r, _ := newTestRouter(t, Config{}, nil)

	rr := get(r, "/plugins/ghost")
	require.Equal(t, http.StatusNotFound, rr.Code)

	var body struct {
		Ok     bool   `json:"ok"`
		Reason string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body.Ok)
	assert.NotEmpty(t, body.Reason)
}

func TestPluginEndpointBadDatetime(t *testing.T) {
	r, _ := newTestRouter(t, Config{}, nil)

	rr := get(r, "/plugins/disk?gte=garbage")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body struct {
		Ok     bool   `json:"ok"`
		Reason string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body.Ok)
}

func TestPluginEndpointExplicitWindow(t *testing.T) {
	r, store := newTestRouter(t, Config{}, nil)
	persistUsage(t, store, time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local), 1, 2)
	persistUsage(t, store, time.Date(2025, 6, 20, 12, 0, 0, 0, time.Local), 3, 4)

	rr := get(r, "/plugins/disk?gte=2025-06-01&lte=2025-06-02")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data map[string]struct {
			Data [][]any `json:"data"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Data["usage"].Data, 1)
}

func TestAllEndpoint(t *testing.T) {
	r, store := newTestRouter(t, Config{}, nil)
	persistUsage(t, store, time.Now().Add(-time.Minute), 10, 20)

	rr := get(r, "/plugins/all")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data map[string]struct {
			Description string `json:"description"`
			Data        map[string]struct {
				Legends []string `json:"legends"`
			} `json:"data"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	disk, ok := body.Data["disk"]
	require.True(t, ok)
	assert.Equal(t, "Disk usage", disk.Description)
	assert.Equal(t, []string{"created", "free", "used"}, disk.Data["usage"].Legends)
}

func TestHealthEndpoint(t *testing.T) {
	r, store := newTestRouter(t, Config{}, nil)
	persistUsage(t, store, time.Now(), 1, 2)

	rr := get(r, "/api/health")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Status      string `json:"status"`
		Plugins     int    `json:"plugins"`
		SampleCount int64  `json:"sample_count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.Plugins)
	assert.EqualValues(t, 1, body.SampleCount)
}

func TestEndpointsBehindAuth(t *testing.T) {
	r, _ := newTestRouter(t, Config{AuthKey: "s3cret"}, nil)

	rr := get(r, "/plugins/list")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/plugins/list", nil)
	req.Header.Set(AuthHeader, "s3cret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type fakeFeed struct {
	ch chan scheduler.CycleResult
}

func (f *fakeFeed) Subscribe() chan scheduler.CycleResult     { return f.ch }
func (f *fakeFeed) Unsubscribe(ch chan scheduler.CycleResult) {}

func TestWebsocketStreamsCycleResults(t *testing.T) {
	feed := &fakeFeed{ch: make(chan scheduler.CycleResult, 1)}
	r, _ := newTestRouter(t, Config{}, feed)

	ts := httptest.NewServer(r)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	at := time.Now()
	feed.ch <- scheduler.CycleResult{Plugin: "disk", At: at, Persisted: true}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev struct {
		Plugin    string `json:"plugin"`
		At        int64  `json:"at"`
		Ok        bool   `json:"ok"`
		Persisted bool   `json:"persisted"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "disk", ev.Plugin)
	assert.Equal(t, at.Unix(), ev.At)
	assert.True(t, ev.Ok)
	assert.True(t, ev.Persisted)

	// Closing the feed ends the stream with a normal close frame.
	close(feed.ch)
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
