package httpclient

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskPath(t *testing.T) {
	assert.Equal(t, "/api", MaskPath("/api"))
	assert.Equal(t, "/api/", MaskPath("/api/"))
	assert.Equal(t, "/api/***", MaskPath("/api/secret"))
	assert.Equal(t, "/api/***/lights/1/state", MaskPath("/api/secret/lights/1/state"))
	assert.Equal(t, "/description.xml", MaskPath("/description.xml"))
}

func TestClient_DoLogsWithoutUsername(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	c := NewClient(time.Second, WithLogger(zerolog.New(&buf).Level(zerolog.TraceLevel)))

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/api/secret/config", nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, c.Requests())
	assert.Contains(t, buf.String(), `"path":"/api/***/config"`)
	assert.NotContains(t, buf.String(), "secret")
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(50*time.Millisecond, WithLogger(zerolog.Nop()))
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = c.Do(req)
	assert.Error(t, err)
}
