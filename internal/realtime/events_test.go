// file: internal/realtime/events_test.go
// version: 2.0.0
// guid: 76e7b7f7-74e6-4b9b-bc70-5c6144c37130

package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSubscriptions(t *testing.T) {
	client := NewClient("c1")
	assert.True(t, client.Wants(EventRecordUpdated), "no subscription means everything")

	client.Subscribe(EventCommitCompleted)
	assert.True(t, client.Wants(EventCommitCompleted))
	assert.False(t, client.Wants(EventRecordUpdated))
}

func TestPublishRespectsSubscriptions(t *testing.T) {
	hub := NewHub()
	all := NewClient("all")
	commits := NewClient("commits")
	commits.Subscribe(EventCommitCompleted)
	hub.Register(all)
	hub.Register(commits)
	require.Equal(t, 2, hub.ClientCount())

	hub.Publish(EventRecordUpdated, "01ABC", map[string]any{"status": "finished"})
	hub.Publish(EventCommitCompleted, "", map[string]any{"inserted": 2})

	got := <-all.Channel
	assert.Equal(t, EventRecordUpdated, got.Type)
	assert.Equal(t, "01ABC", got.ID)
	assert.Equal(t, EventCommitCompleted, (<-all.Channel).Type)

	got = <-commits.Channel
	assert.Equal(t, EventCommitCompleted, got.Type)
	assert.Equal(t, 2, got.Data["inserted"])
	assert.Empty(t, commits.Channel)

	hub.Unregister("all")
	hub.Unregister("all")
	assert.Equal(t, 1, hub.ClientCount())
	_, open := <-all.Channel
	assert.False(t, open)
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	client := NewClient("slow")
	hub.Register(client)
	for i := 0; i < cap(client.Channel)+5; i++ {
		hub.Publish(EventLibraryStale, "", nil)
	}
	assert.Len(t, client.Channel, cap(client.Channel))

	var nilHub *Hub
	assert.NotPanics(t, func() { nilHub.Publish(EventLibraryStale, "", nil) })
}

func TestHandleSSE(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	router := gin.New()
	router.GET("/events", hub.HandleSSE)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events?types=record.deleted", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	hub.Publish(EventRecordUpdated, "skip", nil)
	hub.Publish(EventRecordDeleted, "01XYZ", nil)
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, body, "event: connected\n")
	assert.Contains(t, body, "event: record.deleted\n")
	assert.Contains(t, body, `"id":"01XYZ"`)
	assert.NotContains(t, body, "skip")
	assert.Equal(t, 0, hub.ClientCount())
}
