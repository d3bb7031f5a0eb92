package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServerClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &APIClient{baseURL: srv.URL, httpClient: srv.Client()}
}

func TestAPIClientGet(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/rag/stats", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]int{"chunks_created": 7}})
	})

	resp, err := client.Get("/api/rag/stats")
	require.NoError(t, err)

	var data map[string]int
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 7, data["chunks_created"])
}

func TestAPIClientPost(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "threats", body["query"])
		json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]int{"count": 0}})
	})

	resp, err := client.Post("/api/rag/search", map[string]string{"query": "threats"})
	require.NoError(t, err)
	assert.NotNil(t, resp.Data)
}

func TestAPIClientErrorEnvelope(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "knowledge service is not initialized"})
	})

	_, err := client.Get("/api/rag/stats")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "not initialized")
}

func TestAPIClientNonJSONError(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream gone"))
	})

	_, err := client.Get("/health")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream gone", apiErr.Message)
}

func TestAPIClientGetRaw(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	body, status, err := client.GetRaw("/api/rag/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status": "healthy"}`, string(body))
}

func TestNewAPIClientWithCmdCascade(t *testing.T) {
	t.Setenv(envAPIURL, "")

	client, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultAPIURL, client.baseURL)

	t.Setenv(envAPIURL, "http://env-host:8080")
	client, err = NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://env-host:8080", client.baseURL)

	cmd := &cobra.Command{}
	cmd.Flags().String("api-url", "", "")
	require.NoError(t, cmd.Flags().Set("api-url", "http://flag-host:8080"))
	client, err = NewAPIClientWithCmd(cmd)
	require.NoError(t, err)
	assert.Equal(t, "http://flag-host:8080", client.baseURL)
}
