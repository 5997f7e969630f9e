package secondaryd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/datawire/dlib/dlog"
)

const (
	pendingSyncAttempts = 5
	pendingSyncInterval = 2 * time.Second
)

// PendingSync asks masterURL to replay its log to selfURL, retrying a fixed
// number of times on failure. It never returns an error. If every attempt
// fails, nothing else asks the master for a replay: later writes still reach
// this secondary, but any earlier id the master no longer has queued for it
// leaves a gap, and those later writes wait in the reorder buffer behind it.
func PendingSync(ctx context.Context, client *http.Client, masterURL, selfURL string) {
	body, err := json.Marshal(struct {
		URL string `json:"url"`
	}{URL: selfURL})
	if err != nil {
		dlog.Errorf(ctx, "pending sync: marshal request: %+v", err)
		return
	}

	for attempt := 1; attempt <= pendingSyncAttempts; attempt++ {
		if ctx.Err() != nil {
			return
		}
		if pendingSyncAttempt(ctx, client, masterURL, body) {
			dlog.Infof(ctx, "pending sync: master acknowledged catch-up request")
			return
		}
		if attempt < pendingSyncAttempts {
			if !sleepCtx(ctx, pendingSyncInterval) {
				return
			}
		}
	}
	dlog.Warnf(ctx, "pending sync: gave up after %d attempts, relying on future writes to catch up", pendingSyncAttempts)
}

func pendingSyncAttempt(ctx context.Context, client *http.Client, masterURL string, body []byte) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, masterURL+"/pending", bytes.NewReader(body))
	if err != nil {
		dlog.Warnf(ctx, "pending sync: build request: %v", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		dlog.Warnf(ctx, "pending sync: request to %s failed: %v", masterURL, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		dlog.Warnf(ctx, "pending sync: %v", fmt.Errorf("HTTP %d from %s", resp.StatusCode, masterURL))
		return false
	}
	return true
}

// sleepCtx sleeps for d, returning early (and reporting false) if ctx is
// done first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
