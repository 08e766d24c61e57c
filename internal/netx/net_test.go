package netx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransfer_Upload(t *testing.T) {
	body := []byte("ciphertext")

	t.Run("success 200 OK", func(t *testing.T) {
		var gotBody []byte
		var gotCT, gotMethod string

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotCT = r.Header.Get("Content-Type")
			gotBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		err := NewTransfer(ts.Client()).Upload(context.Background(), ts.URL+"/records/x?X-Amz-Signature=abc", body)
		require.NoError(t, err)
		assert.Equal(t, http.MethodPut, gotMethod)
		assert.Equal(t, "application/octet-stream", gotCT)
		assert.Equal(t, body, gotBody)
	})

	t.Run("non-200 -> error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("SignatureDoesNotMatch"))
		}))
		defer ts.Close()

		err := NewTransfer(nil).Upload(context.Background(), ts.URL, body)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upload failed: 403")
		assert.Contains(t, err.Error(), "SignatureDoesNotMatch")
	})

	t.Run("network error", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		err := NewTransfer(nil).Upload(context.Background(), ts.URL, body)
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "upload failed")
	})

	t.Run("bad url", func(t *testing.T) {
		err := NewTransfer(nil).Upload(context.Background(), "://nope", body)
		assert.Error(t, err)
	})
}

func TestTransfer_Download(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			_, _ = w.Write([]byte("payload"))
		}))
		defer ts.Close()

		got, err := NewTransfer(ts.Client()).Download(context.Background(), ts.URL)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), got)
	})

	t.Run("not found", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		defer ts.Close()

		_, err := NewTransfer(nil).Download(context.Background(), ts.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "download failed: 404")
	})

	t.Run("canceled context", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer ts.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewTransfer(nil).Download(ctx, ts.URL)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
