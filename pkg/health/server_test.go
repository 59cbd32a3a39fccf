package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ChayaSt/QCFractal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandlerMethods(t *testing.T) {
	hs := NewServer(nil, "test")

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodPost, http.StatusMethodNotAllowed},
		{http.MethodDelete, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, "/health", nil)
		w := httptest.NewRecorder()
		hs.healthHandler(w, req)
		assert.Equal(t, tt.want, w.Code)
	}
}

func TestReadyHandlerReportsNotReadyWithoutStore(t *testing.T) {
	hs := NewServer(nil, "test")

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	hs.readyHandler(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadyHandlerReportsReadyWithStore(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir(), 0)
	require.NoError(t, err)
	defer store.Close()

	hs := NewServer(store, "test")
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	hs.readyHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
