package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTask(t *testing.T) {
	m := New()
	m.RecordTask("concurrent", time.Millisecond, true)
	m.RecordTask("concurrent", time.Millisecond, true)
	m.RecordTask("concurrent", time.Millisecond, false)
	assert.EqualValues(t, 2, testutil.ToFloat64(m.taskCounter.WithLabelValues("concurrent", "true")))
	assert.EqualValues(t, 1, testutil.ToFloat64(m.taskCounter.WithLabelValues("concurrent", "false")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.taskCounter))
}

func TestRecordRun(t *testing.T) {
	m := New()
	m.RecordRun("sequential", 6*time.Second, true)
	m.RecordRun("concurrent", 2*time.Second, true)
	assert.Equal(t, 2, testutil.CollectAndCount(m.runHistogram))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordRun("sequential", time.Second, true)
	m.RecordTask("sequential", time.Second, true)
	assert.NoError(t, m.Push("http://localhost:9999", "abc", time.Second))
}

func TestPush(t *testing.T) {
	var path, method string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		method = r.Method
		body, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	m := New()
	m.RecordTask("sequential", time.Millisecond, true)
	require.NoError(t, m.Push(srv.URL, "abc", time.Second))
	assert.Equal(t, "/metrics/job/sleepbench/run_id/abc", path)
	assert.Equal(t, http.MethodPut, method)
	assert.NotEmpty(t, body)
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	assert.Error(t, New().Push(srv.URL, "abc", time.Second))
}

func TestPushTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	err := New().Push(srv.URL, "abc", 50*time.Millisecond)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
