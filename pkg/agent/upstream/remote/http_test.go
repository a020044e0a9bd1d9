package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarabid-archived/pyroscope/pkg/agent/upstream"
)

func testRequest() *upstream.Request {
	return &upstream.Request{
		Name:       "my.app.cpu{env=staging}",
		StartTime:  time.Unix(1680350400, 0),
		Until:      time.Unix(1680350410, 0),
		SampleRate: 100,
		Units:      "samples",
		SpyName:    "gospy",
		Payload:    []byte("main.main;main.work 5\n"),
	}
}

func TestHTTPTransport_Send(t *testing.T) {
	var mu sync.Mutex
	var gotPath string
	var gotQuery url.Values
	var gotBody []byte
	var gotHeader http.Header

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotBody, _ = io.ReadAll(r.Body)
		gotHeader = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	tr, err := NewHTTPTransport(TransportConfig{
		ServerAddress: ts.URL,
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)

	require.NoError(t, tr.Send(context.Background(), testRequest()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/ingest", gotPath)
	assert.Equal(t, "my.app.cpu{env=staging}", gotQuery.Get("name"))
	assert.Equal(t, "1680350400", gotQuery.Get("from"))
	assert.Equal(t, "1680350410", gotQuery.Get("until"))
	assert.Equal(t, "folded", gotQuery.Get("format"))
	assert.Equal(t, "100", gotQuery.Get("sampleRate"))
	assert.Equal(t, "gospy", gotQuery.Get("spyName"))
	assert.Equal(t, "samples", gotQuery.Get("units"))
	assert.Equal(t, []byte("main.main;main.work 5\n"), gotBody)
	assert.Equal(t, "binary/octet-stream", gotHeader.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(gotHeader.Get("User-Agent"), "pyroscope-agent/"))
	assert.Empty(t, gotHeader.Get("Authorization"))
}

func TestHTTPTransport_AuthToken(t *testing.T) {
	var mu sync.Mutex
	var gotAuth string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotAuth = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	tr, err := NewHTTPTransport(TransportConfig{
		ServerAddress: ts.URL,
		AuthToken:     "secret-token",
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)

	require.NoError(t, tr.Send(context.Background(), testRequest()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Bearer secret-token", gotAuth)
}

func TestHTTPTransport_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		wantErr   bool
		transient bool
	}{
		{http.StatusOK, false, false},
		{http.StatusNoContent, false, false},
		{http.StatusBadRequest, true, false},
		{http.StatusUnauthorized, true, false},
		{http.StatusNotFound, true, false},
		{http.StatusTooManyRequests, true, true},
		{http.StatusInternalServerError, true, true},
		{http.StatusBadGateway, true, true},
		{http.StatusServiceUnavailable, true, true},
	}

	for _, tt := range tests {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		tr, err := NewHTTPTransport(TransportConfig{
			ServerAddress: ts.URL,
			Logger:        zerolog.Nop(),
		})
		require.NoError(t, err)

		err = tr.Send(context.Background(), testRequest())
		if !tt.wantErr {
			assert.NoError(t, err, "status %d", tt.status)
		} else {
			require.Error(t, err, "status %d", tt.status)
			assert.Equal(t, tt.transient, upstream.IsTransient(err),
				"status %d transient classification", tt.status)
		}
		ts.Close()
	}
}

func TestHTTPTransport_ConnectionErrorIsTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := ts.URL
	ts.Close()

	tr, err := NewHTTPTransport(TransportConfig{
		ServerAddress: addr,
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)

	err = tr.Send(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, upstream.IsTransient(err), "refused connections should be retryable")
}

func TestHTTPTransport_TrailingSlash(t *testing.T) {
	var mu sync.Mutex
	var gotPath string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath = r.URL.Path
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	tr, err := NewHTTPTransport(TransportConfig{
		ServerAddress: ts.URL + "/",
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)

	require.NoError(t, tr.Send(context.Background(), testRequest()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/ingest", gotPath)
}

func TestNewHTTPTransport_Validation(t *testing.T) {
	_, err := NewHTTPTransport(TransportConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be empty")

	_, err = NewHTTPTransport(TransportConfig{ServerAddress: "localhost:4040"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http or https")
}

func TestHTTPTransport_ErrorIncludesServerBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("unknown format"))
	}))
	defer ts.Close()

	tr, err := NewHTTPTransport(TransportConfig{
		ServerAddress: ts.URL,
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)

	err = tr.Send(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "unknown format")
}
