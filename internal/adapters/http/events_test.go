package httpadapter

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vportnov/briefly/internal/core/domain"
	"github.com/vportnov/briefly/internal/core/usecase"
)

func TestEventsStreamReplaysLatestThenLive(t *testing.T) {
	events := usecase.NewEventBroadcaster()
	server := httptest.NewServer(EventsHandler(events))
	defer server.Close()

	events.Publish("job-1", domain.ProgressUpdate{Current: 1, Total: 2, Percentage: 50})

	resp, err := http.Get(server.URL + "/v1/jobs/job-1/events")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content type = %q", got)
	}

	reader := bufio.NewReader(resp.Body)
	first := readEvent(t, reader)
	if !strings.Contains(first, "event: progress") || !strings.Contains(first, `"percentage":50`) {
		t.Fatalf("expected replayed progress event, got %q", first)
	}

	// give the subscription time to register, then push a terminal event
	go func() {
		time.Sleep(10 * time.Millisecond)
		events.Publish("job-1", domain.ProcessingComplete{})
	}()

	second := readEvent(t, reader)
	if !strings.Contains(second, "event: complete") {
		t.Fatalf("expected completion event, got %q", second)
	}
}

func TestEventsStreamRequiresJobID(t *testing.T) {
	events := usecase.NewEventBroadcaster()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs//events", nil)

	EventsHandler(events).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// readEvent reads one SSE frame up to its trailing blank line.
func readEvent(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	var sb strings.Builder
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if line == "\n" {
			return sb.String()
		}
		sb.WriteString(line)
	}
}
