package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finesse/gamify-engine/engine"
	"github.com/finesse/gamify-engine/remote"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]int
}

func newBackend(t *testing.T) (*remote.Client, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var got []recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]int
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		got = append(got, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: body})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	return remote.New(srv.URL+"/api", nil), func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), got...)
	}
}

func waitForPush(t *testing.T, got func() []recordedRequest) recordedRequest {
	t.Helper()
	require.Eventually(t, func() bool { return len(got()) == 1 }, 2*time.Second, 10*time.Millisecond)
	return got()[0]
}

func TestClient_PushXP(t *testing.T) {
	client, got := newBackend(t)

	client.PushXP(context.Background(), engine.StoredUser{ID: 7}, 350)

	req := waitForPush(t, got)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/api/users/7/xp", req.Path)
	assert.Equal(t, map[string]int{"xp_points": 350}, req.Body)
}

func TestClient_PushStreak(t *testing.T) {
	client, got := newBackend(t)

	client.PushStreak(context.Background(), engine.StoredUser{ID: 7}, 12)

	req := waitForPush(t, got)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/api/users/7/streak", req.Path)
	assert.Equal(t, map[string]int{"streak_days": 12}, req.Body)
}

func TestClient_PushProgress(t *testing.T) {
	client, got := newBackend(t)

	client.PushProgress(context.Background(), engine.StoredUser{ID: 7}, 2, 80)

	req := waitForPush(t, got)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/users/7/lessons/2/progress", req.Path)
	assert.Equal(t, map[string]int{"progress_percentage": 80}, req.Body)
}

func TestClient_FailuresAreSwallowed(t *testing.T) {
	// GIVEN: a backend that is already gone
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()
	client := remote.New(url+"/api", nil)

	// WHEN/THEN: pushes return immediately and never surface the failure
	done := make(chan struct{})
	go func() {
		client.PushXP(context.Background(), engine.StoredUser{ID: 7}, 1)
		client.PushStreak(context.Background(), engine.StoredUser{ID: 7}, 1)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("push blocked the caller")
	}
}

func TestClient_CancelledCallerContextDoesNotCancelPush(t *testing.T) {
	client, got := newBackend(t)

	ctx, cancel := context.WithCancel(context.Background())
	client.PushXP(ctx, engine.StoredUser{ID: 7}, 99)
	cancel()

	req := waitForPush(t, got)
	assert.Equal(t, map[string]int{"xp_points": 99}, req.Body)
}
