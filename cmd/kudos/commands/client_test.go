package commands

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *apiClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	old := serverURL
	serverURL = ts.URL
	t.Cleanup(func() { serverURL = old })

	return newAPIClient()
}

func TestPostJSONRoundTrip(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/test", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "value", body["key"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"echo": body["key"]})
	})

	var resp map[string]string
	err := client.postJSON("/api/test", map[string]string{"key": "value"}, &resp)
	require.NoError(t, err)
	assert.Equal(t, "value", resp["echo"])
}

func TestAPIErrorUsesServerMessage(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "NotFound",
			"message": "no such kudo",
		})
	})

	err := client.postJSON("/api/test", nil, nil)
	require.Error(t, err)
	assert.Equal(t, "no such kudo", err.Error())
}

func TestAPIErrorFallsBackToStatus(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	err := client.getJSON("/api/test", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestGetBytes(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("audio-bytes"))
	})

	data, err := client.getBytes("/api/audio")
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))
}
