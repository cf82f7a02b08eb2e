package generation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPEngineGenerate(t *testing.T) {
	t.Run("forwards payload and decodes result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/generate_srs", r.URL.Path)
			assert.Equal(t, "quick", r.URL.Query().Get("mode"))
			assert.Equal(t, "job-42", r.URL.Query().Get("job"))

			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"project_name":"Nebula Core"}`, string(body))

			json.NewEncoder(w).Encode(GenerateResult{
				DownloadURL: "/files/nebula.docx",
				Mode:        "quick",
			})
		}))
		defer srv.Close()

		eng := NewHTTPEngine(srv.URL, nil)
		result, err := eng.Generate(context.Background(), "job-42", json.RawMessage(`{"project_name":"Nebula Core"}`), TierQuick)
		require.NoError(t, err)
		assert.Equal(t, "/files/nebula.docx", result.DownloadURL)
	})

	t.Run("non-2xx becomes EngineError with detail", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "renderer out of memory", http.StatusInternalServerError)
		}))
		defer srv.Close()

		eng := NewHTTPEngine(srv.URL, nil)
		_, err := eng.Generate(context.Background(), "job-42", nil, TierFull)
		var engineErr *EngineError
		require.ErrorAs(t, err, &engineErr)
		assert.Equal(t, http.StatusInternalServerError, engineErr.Status)
		assert.Equal(t, "renderer out of memory", engineErr.Detail)
		assert.Equal(t, TierFull, engineErr.Tier)
	})

	t.Run("context deadline becomes ErrTimeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		eng := NewHTTPEngine(srv.URL, nil)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := eng.Generate(ctx, "job-42", nil, TierQuick)
		require.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("rejects unknown tier", func(t *testing.T) {
		eng := NewHTTPEngine("http://localhost:0", nil)
		_, err := eng.Generate(context.Background(), "job-42", nil, Tier("turbo"))
		require.Error(t, err)
	})
}

func TestHTTPEngineStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/srs_status/job-42", r.URL.Path)
		json.NewEncoder(w).Encode(JobStatus{
			QuickReady:       true,
			QuickDownloadURL: "/files/quick.docx",
		})
	}))
	defer srv.Close()

	eng := NewHTTPEngine(srv.URL, nil)
	status, err := eng.Status(context.Background(), "job-42")
	require.NoError(t, err)

	location, tier, ok := status.Best()
	require.True(t, ok)
	assert.Equal(t, "/files/quick.docx", location)
	assert.Equal(t, TierQuick, tier)
}

func TestHTTPEngineProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/srs_progress/job-42", r.URL.Path)
		json.NewEncoder(w).Encode(JobProgress{Stage: "compose", Progress: 55, Message: "Writing sections", Status: "running"})
	}))
	defer srv.Close()

	eng := NewHTTPEngine(srv.URL, nil)
	progress, err := eng.Progress(context.Background(), "job-42")
	require.NoError(t, err)
	assert.Equal(t, 55, progress.Progress)
	assert.Equal(t, "Writing sections", progress.Message)
}
