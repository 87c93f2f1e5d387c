package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"duvidapp/internal/notify"
	"duvidapp/ports"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSSEServer(t *testing.T, hub *SSEHub, workspaceID string) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/events", func(c *gin.Context) {
		if workspaceID != "" {
			c.Set(WorkspaceIDKey, workspaceID)
		}
		hub.HandleSSE(c)
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleSSE_RequiresWorkspace(t *testing.T) {
	hub := NewSSEHub(nil)
	t.Cleanup(hub.Close)
	srv := newSSEServer(t, hub, "")

	resp, err := http.Get(srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleSSE_StreamsToastsOfOwnWorkspace(t *testing.T) {
	hub := NewSSEHub(nil)
	t.Cleanup(hub.Close)
	srv := newSSEServer(t, hub, "ws-1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return hub.ClientCount("ws-1") == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"ws-1"}, hub.ActiveWorkspaces())

	center := notify.NewCenter(time.Minute)
	t.Cleanup(center.Close)
	other := notify.NewCenter(time.Minute)
	t.Cleanup(other.Close)
	center.Subscribe(hub.Forward("ws-1"))
	other.Subscribe(hub.Forward("ws-2"))

	other.ShowToast("não deveria chegar", ports.SeverityInfo)
	center.ShowToast("Dúvida publicada com sucesso!", ports.SeveritySuccess)

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	var sawEvent, sawData bool
	timeout := time.After(2 * time.Second)
	for !(sawEvent && sawData) {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed early")
			assert.NotContains(t, line, "não deveria chegar")
			if line == "event:toast_added" {
				sawEvent = true
			}
			if strings.HasPrefix(line, "data:") && strings.Contains(line, "Dúvida publicada com sucesso!") {
				sawData = true
			}
		case <-timeout:
			t.Fatal("no toast event received")
		}
	}

	cancel()
	assert.Eventually(t, func() bool { return hub.ClientCount("ws-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}
