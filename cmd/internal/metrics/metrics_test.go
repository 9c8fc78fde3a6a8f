package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AuthAttempt("login", "success")
	m.AuthAttempt("login", "success")
	m.AuthAttempt("login", "invalid_credentials")
	m.PostMutation("update", "forbidden")
	m.HTTPRequest("GET", "2xx")
	m.ObserveHash("hash", 50*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthAttempts.WithLabelValues("login", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthAttempts.WithLabelValues("login", "invalid_credentials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PostMutations.WithLabelValues("update", "forbidden")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "2xx")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AuthAttempt("login", "success")
		m.ObserveHash("hash", time.Second)
		m.HTTPRequest("GET", "2xx")
		m.PostMutation("create", "success")
	})
}

func TestHandler_Exposes(t *testing.T) {
	reg, m := NewRegistry()
	m.AuthAttempt("register", "success")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), `quill_auth_attempts_total{op="register",result="success"} 1`))
}
