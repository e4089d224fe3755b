package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aouyang1/go-demand/store"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2023, 6, d, 0, 0, 0, 0, time.UTC)
}

func boostingRun() *store.Run {
	return store.NewRun(store.ModelBoosting, []store.Point{
		{Date: day(1), Value: 150.5},
		{Date: day(2), Value: 151},
	})
}

func decompositionRun() *store.Run {
	run := store.NewRun(store.ModelDecomposition, []store.Point{
		{Date: day(1), Value: 150, Lower: 140, Upper: 160.25},
	})
	run.Bounded = true
	return run
}

func TestWriteRun(t *testing.T) {
	testData := map[string]struct {
		run      *store.Run
		expected string
	}{
		"boosting": {
			run:      boostingRun(),
			expected: "date,forecast\n2023-06-01,150.5\n2023-06-02,151\n",
		},
		"decomposition": {
			run:      decompositionRun(),
			expected: "ds,yhat,yhat_lower,yhat_upper\n2023-06-01,150,140,160.25\n",
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var b bytes.Buffer
			require.NoError(t, WriteRun(&b, td.run))
			assert.Equal(t, td.expected, b.String())
		})
	}
}

func TestCSVExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	sink := NewCSV(dir)
	require.NoError(t, sink.Export(context.Background(), boostingRun()))

	data, err := os.ReadFile(filepath.Join(dir, "xgboost_forecast.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "date,forecast\n"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.Equal(t, "prophet_forecast.csv", FileName(store.ModelDecomposition))
	assert.Equal(t, "naive_forecast.csv", FileName("naive"))
}

func TestInfluxExport(t *testing.T) {
	var mu sync.Mutex
	var body, query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = string(b)
		query = r.URL.RawQuery
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInflux(InfluxConfig{URL: srv.URL, Token: "token", Org: "grid", Bucket: "forecasts"})
	defer func() { require.NoError(t, sink.Close()) }()

	run := decompositionRun()
	require.NoError(t, sink.Export(context.Background(), run))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, query, "bucket=forecasts")
	assert.Contains(t, body, "demand_forecast,model=decomposition,run_id="+run.ID.String())
	assert.Contains(t, body, "lower=140")
	assert.Contains(t, body, "upper=160.25")
	assert.Contains(t, body, "value=150")
}

type fakeToken struct {
	err error
}

func (f fakeToken) Wait() bool                     { return true }
func (f fakeToken) WaitTimeout(time.Duration) bool { return true }
func (f fakeToken) Error() error                   { return f.err }
func (f fakeToken) Done() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}

type fakePublisher struct {
	topic   string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.topic = topic
	f.payload = payload.([]byte)
	return fakeToken{err: f.err}
}

func TestMQTTExport(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewMQTTWithPublisher(pub, MQTTConfig{TopicPrefix: "grid/ap/"})

	run := boostingRun()
	require.NoError(t, sink.Export(context.Background(), run))
	assert.Equal(t, "grid/ap/boosting", pub.topic)

	var decoded store.Run
	require.NoError(t, json.Unmarshal(pub.payload, &decoded))
	assert.Equal(t, run.ID, decoded.ID)
	assert.Equal(t, run.Points, decoded.Points)

	pub.err = errors.New("broker gone")
	assert.Error(t, sink.Export(context.Background(), run))

	assert.Equal(t, DefaultTopicPrefix+"/decomposition", NewMQTTWithPublisher(pub, MQTTConfig{}).Topic(store.ModelDecomposition))
}

type failingSink struct {
	calls int
}

func (f *failingSink) Export(context.Context, *store.Run) error {
	f.calls++
	return errors.New("unavailable")
}

func TestMulti(t *testing.T) {
	failing := &failingSink{}
	pub := &fakePublisher{}
	m := Multi{failing, NewMQTTWithPublisher(pub, MQTTConfig{})}

	err := m.Export(context.Background(), boostingRun())
	assert.Error(t, err)
	assert.Equal(t, 1, failing.calls)
	assert.NotEmpty(t, pub.payload)
	assert.NoError(t, m.Close())

	sinks, err := New(Config{})
	require.NoError(t, err)
	assert.Empty(t, sinks)
	assert.NoError(t, sinks.Export(context.Background(), boostingRun()))
}
