package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vtecchio/dadosbr-pipeline/internal/models"
)

func testClient(maxRetries int) *Client {
	return NewClient(&ClientConfig{
		Timeout:    5 * time.Second,
		MaxRetries: maxRetries,
		RateLimit:  1000,
		RateBurst:  100,
	})
}

func TestDownloadSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dadosbr-pipeline/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	body, err := testClient(3).Download(context.Background(), server.URL)
	assert.NoError(t, err)
	assert.Equal(t, []byte("payload"), body)
}

func TestDownloadNotFoundFailsFast(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := testClient(5).Download(context.Background(), server.URL)
	assert.Error(t, err)
	assert.Equal(t, "NotFoundError", models.ErrorClass(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "404 must not consume the retry budget")
}

func TestDownloadRecoversFromServerError(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	body, err := testClient(3).Download(context.Background(), server.URL)
	assert.NoError(t, err)
	assert.Equal(t, []byte("recovered"), body)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestDownloadExhaustsRetryBudget(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := testClient(2).Download(context.Background(), server.URL)
	assert.Error(t, err)
	assert.Equal(t, "TransientFetchError", models.ErrorClass(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	var transient *models.TransientFetchError
	assert.ErrorAs(t, err, &transient)
	assert.Equal(t, 2, transient.Attempts)
}

func TestDownloadClientErrorIsPermanent(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	_, err := testClient(5).Download(context.Background(), server.URL)
	assert.Error(t, err)
	assert.Equal(t, "UnknownError", models.ErrorClass(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
