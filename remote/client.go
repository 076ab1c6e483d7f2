/*
Package remote pushes ledger changes to the backend, best-effort.

PURPOSE:
  The backend keeps a leaderboard copy of XP, streak, and lesson
  progress. Local storage is the source of truth; the remote copy is
  eventually consistent at best. Every push here is fire-and-forget:
  it runs on its own goroutine with a detached context, failures are
  logged and swallowed, nothing is retried inline, and the local write
  path is never blocked or reverted.

SEE ALSO:
  - engine/ledger.go: The Pusher contract and its call sites
*/
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finesse/gamify-engine/engine"
)

const pushTimeout = 5 * time.Second

// Client implements engine.Pusher against the backend user API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Log     *zap.Logger

	// async is disabled only by tests that need deterministic delivery.
	async bool
}

var _ engine.Pusher = (*Client)(nil)

// New creates a push client for baseURL (e.g. "http://api:8000/api").
func New(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: pushTimeout},
		Log:     log,
		async:   true,
	}
}

// =============================================================================
// PUSHER IMPLEMENTATION
// =============================================================================

// PushXP mirrors the XP total for the leaderboard.
func (c *Client) PushXP(ctx context.Context, user engine.StoredUser, xp int) {
	c.fire(ctx, http.MethodPut,
		fmt.Sprintf("%s/users/%d/xp", c.BaseURL, user.ID),
		map[string]int{"xp_points": xp})
}

// PushStreak mirrors the streak count.
func (c *Client) PushStreak(ctx context.Context, user engine.StoredUser, days int) {
	c.fire(ctx, http.MethodPut,
		fmt.Sprintf("%s/users/%d/streak", c.BaseURL, user.ID),
		map[string]int{"streak_days": days})
}

// PushProgress mirrors a lesson progress percentage.
func (c *Client) PushProgress(ctx context.Context, user engine.StoredUser, lessonID, percent int) {
	c.fire(ctx, http.MethodPost,
		fmt.Sprintf("%s/users/%d/lessons/%d/progress", c.BaseURL, user.ID, lessonID),
		map[string]int{"progress_percentage": percent})
}

// =============================================================================
// DELIVERY
// =============================================================================

// fire sends the push without blocking the caller. The request context
// is detached from ctx so a finished local operation doesn't cancel an
// in-flight push.
func (c *Client) fire(ctx context.Context, method, url string, body any) {
	send := func() {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer cancel()
		if err := c.send(pushCtx, method, url, body); err != nil {
			c.Log.Warn("remote push dropped",
				zap.String("url", url), zap.Error(err))
		}
	}
	if c.async {
		go send()
	} else {
		send()
	}
}

func (c *Client) send(ctx context.Context, method, url string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("backend returned %s", resp.Status)
	}
	return nil
}
