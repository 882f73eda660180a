package registry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQiitaServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var steps []string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/study/13059/samples", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]string{"13059.SP331130A04", "13059.BLANK3.3B"})
	})
	mux.HandleFunc("/api/v1/study/13059/samples/info", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"number-of-samples": 2, "categories": ["tube_id", "host_subject_id"]}`)
	})
	mux.HandleFunc("/api/v1/study/13059/samples/categories=tube_id", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"header": ["tube_id"], "samples": {"13059.SP331130A04": ["SP331130A-4"]}}`)
	})
	mux.HandleFunc("/api/v1/study/13059/samples/categories=missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/api/v1/study/666/samples", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/qiita_db/jobs/job-1/step/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		steps = append(steps, body["step"])
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &steps
}

func TestHTTPClientQueries(t *testing.T) {
	srv, steps := newQiitaServer(t)
	c, err := NewHTTPClient(HTTPConfig{BaseURL: srv.URL + "/", Token: "secret"}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	samples, err := c.ListSamples(ctx, "13059")
	require.NoError(t, err)
	assert.Equal(t, []string{"13059.SP331130A04", "13059.BLANK3.3B"}, samples)

	info, err := c.GetMetadataCategories(ctx, "13059")
	require.NoError(t, err)
	assert.Equal(t, 2, info.SampleCount)
	assert.True(t, info.Has(DefaultAliasCategory))
	assert.False(t, info.Has("missing"))

	table, err := c.GetAliasCategory(ctx, "13059", DefaultAliasCategory)
	require.NoError(t, err)
	require.NotNil(t, table)
	assert.Equal(t, []string{"tube_id"}, table.Header)
	assert.Equal(t, []string{"SP331130A-4"}, table.Samples["13059.SP331130A04"])

	table, err = c.GetAliasCategory(ctx, "13059", "missing")
	require.NoError(t, err)
	assert.Nil(t, table)

	require.NoError(t, c.UpdateJobStep(ctx, "job-1", "Step 1 of 6: converting"))
	assert.Equal(t, []string{"Step 1 of 6: converting"}, *steps)
}

func TestHTTPClientFailuresAreUnavailable(t *testing.T) {
	srv, _ := newQiitaServer(t)
	c, err := NewHTTPClient(HTTPConfig{BaseURL: srv.URL, Token: "secret"}, nil)
	require.NoError(t, err)

	_, err = c.ListSamples(context.Background(), "666")
	var ue *UnavailableError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "666", ue.ProjectID)
	assert.Contains(t, err.Error(), "500")
}

func TestHTTPClientBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewHTTPClient(HTTPConfig{BaseURL: srv.URL, FailureThreshold: 2, OpenTimeout: time.Minute}, nil)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := c.ListSamples(context.Background(), "1")
		var ue *UnavailableError
		require.True(t, errors.As(err, &ue))
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewHTTPClientRejectsRelativeURL(t *testing.T) {
	_, err := NewHTTPClient(HTTPConfig{BaseURL: "qiita.local/api"}, nil)
	assert.Error(t, err)
}

func TestUnavailableDoesNotDoubleWrap(t *testing.T) {
	base := errors.New("conn refused")
	first := Unavailable("list samples", "1", base)
	second := Unavailable("compare", "1", first)
	assert.Same(t, first, second)
	assert.ErrorIs(t, second, base)
	assert.NoError(t, Unavailable("x", "1", nil))
}
