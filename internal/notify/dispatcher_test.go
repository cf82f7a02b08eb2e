package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuverse/studio/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("info", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

func TestPublishDisabled(t *testing.T) {
	d := NewWebhookDispatcher(Config{BaseURL: "http://localhost:5678", Enabled: false})
	ok := d.Publish(context.Background(), Event{Kind: KindSRSGenerated})
	assert.False(t, ok)
}

func TestPublishSuccess(t *testing.T) {
	var got eventPayload
	var gotPath, gotSource string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSource = r.Header.Get("X-Source")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewWebhookDispatcher(Config{BaseURL: srv.URL, Enabled: true, Timeout: time.Second})
	d.now = func() time.Time { return time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC) }

	ok := d.Publish(context.Background(), Event{
		Kind: KindSRSGenerated,
		Project: ProjectInfo{
			ID:      "p-1",
			Name:    "Nebula Core",
			Domain:  "web",
			ShareID: "abc123",
		},
		Links: Links{View: "http://app/projects/abc123", Download: "/files/doc.docx"},
	})
	assert.True(t, ok)
	assert.Equal(t, "/webhook/srs-generated", gotPath)
	assert.Equal(t, "DocuVerse-Backend", gotSource)
	assert.Equal(t, KindSRSGenerated, got.Event)
	assert.Equal(t, "2026-02-01T09:30:00Z", got.Timestamp)
	assert.Equal(t, "Nebula Core", got.Project.Name)
	require.NotNil(t, got.Links)
	assert.Equal(t, "/files/doc.docx", got.Links.Download)
}

func TestPublishSubscriberRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no workflow bound", http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewWebhookDispatcher(Config{BaseURL: srv.URL, Enabled: true, Timeout: time.Second})
	ok := d.Publish(context.Background(), Event{Kind: KindProjectCreated})
	assert.False(t, ok)
}

func TestPublishUnreachableSubscriber(t *testing.T) {
	// Closed port: delivery must fail quietly, never panic or error out.
	d := NewWebhookDispatcher(Config{BaseURL: "http://127.0.0.1:1", Enabled: true, Timeout: 100 * time.Millisecond})
	ok := d.Publish(context.Background(), Event{Kind: KindPrototypeGenerated})
	assert.False(t, ok)
}
