package refstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler func(req queryRequest) queryResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/query", r.URL.Path)
		var req queryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(handler(req))
	}))
}

func TestQuery_FilteredMatch(t *testing.T) {
	srv := newServer(t, func(req queryRequest) queryResponse {
		if req.Filter == "Backend Engineer" {
			return queryResponse{Documents: []string{"backend JD text"}}
		}
		return queryResponse{Documents: []string{"generic JD text"}}
	})
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second, nil)
	doc, err := c.Query(context.Background(), DocJobDescription, "Backend Engineer")
	require.NoError(t, err)
	assert.Equal(t, "backend JD text", doc)
}

func TestQuery_FallsBackToUnfiltered(t *testing.T) {
	var calls []string
	srv := newServer(t, func(req queryRequest) queryResponse {
		calls = append(calls, req.Filter)
		if req.Filter != "" {
			return queryResponse{} // unknown role: filtered query finds nothing
		}
		return queryResponse{Documents: []string{"generic rubric"}}
	})
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second, nil)
	doc, err := c.Query(context.Background(), DocCVRubric, "Underwater Basket Weaver")
	require.NoError(t, err)
	assert.Equal(t, "generic rubric", doc)
	require.Equal(t, []string{"Underwater Basket Weaver", ""}, calls,
		"the unfiltered fallback must be attempted before any failure")
}

func TestQuery_EmptyAfterFallbackFails(t *testing.T) {
	srv := newServer(t, func(req queryRequest) queryResponse {
		return queryResponse{}
	})
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second, nil)
	_, err := c.Query(context.Background(), DocCaseBrief, "any role")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestQuery_ServerErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second, nil)
	_, err := c.Query(context.Background(), DocProjectRubric, "")
	require.Error(t, err)
}
