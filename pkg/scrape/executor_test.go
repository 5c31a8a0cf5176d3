package scrape

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clipscout/scraper/internal/testutil"
	"github.com/clipscout/scraper/pkg/keyring"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func testRegistry(keyCount int) *keyring.Registry {
	slots := make([]keyring.Slot, keyCount)
	for i := range slots {
		slots[i] = keyring.Slot{
			Name:   "key_" + string(rune('1'+i)),
			Secret: "secret-" + string(rune('1'+i)),
		}
	}
	return keyring.New(slots, testLogger())
}

func newTestExecutor(registry *keyring.Registry, baseURL string) *Executor {
	cfg := DefaultExecutorConfig()
	cfg.BaseURL = baseURL
	cfg.Region = "US"
	return NewExecutor(registry, cfg, testLogger())
}

func TestExecute_Success(t *testing.T) {
	mock := testutil.NewMockSearchAPI()
	defer mock.Close()
	mock.SetResponse("/feed/search", testutil.NewSearchOKResponse(`{"code":0,"data":{"videos":[]}}`))

	registry := testRegistry(1)
	executor := newTestExecutor(registry, mock.URL())
	key := registry.ListActive()[0]

	outcome := executor.Execute(context.Background(), key, Request{Term: "street food", Cursor: 30, Count: 30})

	if !outcome.OK {
		t.Fatalf("Execute() failed: %s", outcome.Err)
	}
	if outcome.KeyName != "key_1" {
		t.Errorf("KeyName = %q, want key_1", outcome.KeyName)
	}
	if outcome.NextCursor != 60 {
		t.Errorf("NextCursor = %d, want 60", outcome.NextCursor)
	}
	if !strings.Contains(string(outcome.Payload), `"videos"`) {
		t.Errorf("Payload = %s, want raw response body", outcome.Payload)
	}
}

func TestExecute_SendsAuthHeadersAndParams(t *testing.T) {
	mock := testutil.NewMockSearchAPI()
	defer mock.Close()

	registry := testRegistry(1)
	executor := newTestExecutor(registry, mock.URL())
	key := registry.ListActive()[0]

	executor.Execute(context.Background(), key, Request{Term: "street food", Cursor: 0, Count: 30})

	calls := mock.GetCalls()
	if len(calls) != 1 {
		t.Fatalf("mock saw %d calls, want 1", len(calls))
	}
	call := calls[0]

	if call.Path != "/feed/search" {
		t.Errorf("path = %q, want /feed/search", call.Path)
	}
	if got := call.Header.Get("x-rapidapi-key"); got != key.Secret {
		t.Errorf("x-rapidapi-key = %q, want %q", got, key.Secret)
	}
	if got := call.Header.Get("x-rapidapi-host"); got != DefaultHost {
		t.Errorf("x-rapidapi-host = %q, want %q", got, DefaultHost)
	}

	wantParams := map[string]string{
		"keywords":     "street food",
		"region":       "US",
		"count":        "30",
		"cursor":       "0",
		"publish_time": "0",
		"sort_type":    "0",
	}
	for param, want := range wantParams {
		if got := call.Query.Get(param); got != want {
			t.Errorf("query param %s = %q, want %q", param, got, want)
		}
	}
}

func TestExecute_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name     string
		response testutil.MockSearchResponse
		errPart  string
	}{
		{"server error", testutil.NewServerErrorResponse(), "status 500"},
		{"rate limited", testutil.NewRateLimitResponse(), "status 429"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockSearchAPI()
			defer mock.Close()
			mock.SetResponse("/feed/search", tt.response)

			registry := testRegistry(1)
			executor := newTestExecutor(registry, mock.URL())
			key := registry.ListActive()[0]

			outcome := executor.Execute(context.Background(), key, Request{Term: "demo", Cursor: 0, Count: 30})

			if outcome.OK {
				t.Error("Execute() succeeded on non-2xx response")
			}
			if !strings.Contains(outcome.Err, tt.errPart) {
				t.Errorf("Err = %q, want it to contain %q", outcome.Err, tt.errPart)
			}
			// A failed call still consumed quota remotely.
			if calls := registry.Stats()["key_1"].CallsThisPeriod; calls != 1 {
				t.Errorf("usage after failed call = %d, want 1", calls)
			}
		})
	}
}

func TestExecute_NetworkError(t *testing.T) {
	mock := testutil.NewMockSearchAPI()
	url := mock.URL()
	mock.Close() // Nothing is listening anymore.

	registry := testRegistry(1)
	executor := newTestExecutor(registry, url)
	key := registry.ListActive()[0]

	outcome := executor.Execute(context.Background(), key, Request{Term: "demo", Cursor: 0, Count: 30})

	if outcome.OK {
		t.Error("Execute() succeeded against a closed server")
	}
	if outcome.Err == "" {
		t.Error("Err is empty for a network failure")
	}
	if calls := registry.Stats()["key_1"].CallsThisPeriod; calls != 1 {
		t.Errorf("usage after network failure = %d, want 1", calls)
	}
}

func TestExecute_NextCursorArithmetic(t *testing.T) {
	mock := testutil.NewMockSearchAPI()
	defer mock.Close()

	registry := testRegistry(1)
	executor := newTestExecutor(registry, mock.URL())
	key := registry.ListActive()[0]

	tests := []struct {
		cursor int
		count  int
		next   int
	}{
		{0, 30, 30},
		{30, 30, 60},
		{90, 50, 140},
	}

	for _, tt := range tests {
		outcome := executor.Execute(context.Background(), key, Request{Term: "demo", Cursor: tt.cursor, Count: tt.count})
		if outcome.NextCursor != tt.next {
			t.Errorf("NextCursor for cursor=%d count=%d = %d, want %d", tt.cursor, tt.count, outcome.NextCursor, tt.next)
		}
	}
}
